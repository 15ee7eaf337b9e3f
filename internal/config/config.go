package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"
)

// Config represents the quorum configuration.
type Config struct {
	RulesFile      string       `json:"rulesFile"`
	RulesRev       string       `json:"rulesRev,omitempty"`
	BaseBranch     string       `json:"baseBranch"`
	Remote         string       `json:"remote"`
	NotesPrefix    string       `json:"notesPrefix"`
	Reviewer       string       `json:"reviewer,omitempty"`
	SyncRetries    int          `json:"syncRetries"`
	RemoteTimeout  int          `json:"remoteTimeoutSeconds"`
	GitLab         GitLabConfig `json:"gitlab"`
	Cache          CacheConfig  `json:"cache"`
}

// GitLabConfig locates the merge-request tracker.
type GitLabConfig struct {
	Host    string `json:"host,omitempty"`
	Token   string `json:"token,omitempty"`
	Project int    `json:"project,omitempty"`
}

// CacheConfig controls MR metadata caching.
type CacheConfig struct {
	Enabled    bool   `json:"enabled"`
	Dir        string `json:"dir,omitempty"`
	TTLSeconds int    `json:"ttlSeconds"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		RulesFile:     "MAINTAINERS",
		RulesRev:      "", // working tree
		BaseBranch:    "origin/main",
		Remote:        "origin",
		NotesPrefix:   "refs/notes/quorum",
		SyncRetries:   3,
		RemoteTimeout: 60,
		Cache: CacheConfig{
			Enabled:    true,
			TTLSeconds: 300,
		},
	}
}

// Timeout returns the remote-operation deadline as a duration.
func (c Config) Timeout() time.Duration {
	if c.RemoteTimeout <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.RemoteTimeout) * time.Second
}

// ConfigDir returns the platform-appropriate config directory for quorum.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "quorum"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "quorum"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "quorum"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "quorum"), nil
	default:
		return filepath.Join(home, ".config", "quorum"), nil
	}
}

// ConfigPath returns the full path to the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// LoadFile loads config from the config file. Returns zero Config and nil error if file doesn't exist.
func LoadFile() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Save writes the config to the config file.
func Save(cfg Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Load builds the effective config by merging: defaults <- file <- env <- overrides.
// The overrides map comes from CLI flags (only non-zero values should be set).
func Load(overrides map[string]string) (Config, error) {
	cfg := Default()

	fileCfg, err := LoadFile()
	if err != nil {
		return Config{}, err
	}
	mergeFile(&cfg, fileCfg)
	mergeEnv(&cfg)
	mergeOverrides(&cfg, overrides)

	return cfg, nil
}

func mergeFile(dst *Config, src Config) {
	if src.RulesFile != "" {
		dst.RulesFile = src.RulesFile
	}
	if src.RulesRev != "" {
		dst.RulesRev = src.RulesRev
	}
	if src.BaseBranch != "" {
		dst.BaseBranch = src.BaseBranch
	}
	if src.Remote != "" {
		dst.Remote = src.Remote
	}
	if src.NotesPrefix != "" {
		dst.NotesPrefix = src.NotesPrefix
	}
	if src.Reviewer != "" {
		dst.Reviewer = src.Reviewer
	}
	if src.SyncRetries > 0 {
		dst.SyncRetries = src.SyncRetries
	}
	if src.RemoteTimeout > 0 {
		dst.RemoteTimeout = src.RemoteTimeout
	}
	if src.GitLab.Host != "" {
		dst.GitLab.Host = src.GitLab.Host
	}
	if src.GitLab.Token != "" {
		dst.GitLab.Token = src.GitLab.Token
	}
	if src.GitLab.Project > 0 {
		dst.GitLab.Project = src.GitLab.Project
	}
	if src.Cache.Dir != "" {
		dst.Cache.Dir = src.Cache.Dir
	}
	if src.Cache.TTLSeconds > 0 {
		dst.Cache.TTLSeconds = src.Cache.TTLSeconds
	}
	dst.Cache.Enabled = src.Cache.Enabled || dst.Cache.Enabled
}

func mergeEnv(cfg *Config) {
	if v := os.Getenv("QUORUM_RULES_FILE"); v != "" {
		cfg.RulesFile = v
	}
	if v := os.Getenv("QUORUM_RULES_REV"); v != "" {
		cfg.RulesRev = v
	}
	if v := os.Getenv("QUORUM_BASE"); v != "" {
		cfg.BaseBranch = v
	}
	if v := os.Getenv("QUORUM_REMOTE"); v != "" {
		cfg.Remote = v
	}
	if v := os.Getenv("QUORUM_REVIEWER"); v != "" {
		cfg.Reviewer = v
	}
	if v := os.Getenv("QUORUM_GITLAB_HOST"); v != "" {
		cfg.GitLab.Host = v
	}
	if v := os.Getenv("QUORUM_GITLAB_TOKEN"); v != "" {
		cfg.GitLab.Token = v
	}
	if v := os.Getenv("QUORUM_GITLAB_PROJECT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.GitLab.Project = n
		}
	}
}

func mergeOverrides(cfg *Config, overrides map[string]string) {
	if overrides == nil {
		return
	}
	if v, ok := overrides["rulesFile"]; ok && v != "" {
		cfg.RulesFile = v
	}
	if v, ok := overrides["rulesRev"]; ok && v != "" {
		cfg.RulesRev = v
	}
	if v, ok := overrides["baseBranch"]; ok && v != "" {
		cfg.BaseBranch = v
	}
	if v, ok := overrides["remote"]; ok && v != "" {
		cfg.Remote = v
	}
	if v, ok := overrides["reviewer"]; ok && v != "" {
		cfg.Reviewer = v
	}
}

// SetField sets a single config field by key name. Returns error if key is unknown.
func SetField(cfg *Config, key, value string) error {
	switch key {
	case "rulesFile":
		cfg.RulesFile = value
	case "rulesRev":
		cfg.RulesRev = value
	case "baseBranch":
		cfg.BaseBranch = value
	case "remote":
		cfg.Remote = value
	case "notesPrefix":
		cfg.NotesPrefix = value
	case "reviewer":
		cfg.Reviewer = value
	case "syncRetries":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("syncRetries must be an integer: %w", err)
		}
		cfg.SyncRetries = n
	case "remoteTimeoutSeconds":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("remoteTimeoutSeconds must be an integer: %w", err)
		}
		cfg.RemoteTimeout = n
	case "gitlab.host":
		cfg.GitLab.Host = value
	case "gitlab.token":
		cfg.GitLab.Token = value
	case "gitlab.project":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("gitlab.project must be an integer: %w", err)
		}
		cfg.GitLab.Project = n
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}
