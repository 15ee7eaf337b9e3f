// Package config loads and merges quorum configuration from multiple
// sources.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (QUORUM_RULES_FILE, QUORUM_BASE, etc.)
//  3. Config file ($XDG_CONFIG_HOME/quorum/config.json)
//  4. Built-in defaults
//
// Use [Load] to obtain a merged [Config] and [SetField] to update a
// single key for `config set`.
package config
