package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/quorumgit/quorum/internal/approvals"
	"github.com/quorumgit/quorum/internal/config"
	"github.com/quorumgit/quorum/internal/gitctx"
	"github.com/quorumgit/quorum/internal/marks"
	"github.com/quorumgit/quorum/internal/notes"
	"github.com/quorumgit/quorum/internal/rules"
)

// env bundles what nearly every command needs: the open repository,
// the effective configuration, and the two annotation stores.
type env struct {
	repo      *gitctx.Repo
	cfg       config.Config
	approvals *approvals.Store
	marks     *marks.Store
}

func loadEnv() (*env, error) {
	cfg, err := config.Load(map[string]string{
		"rulesFile": flagRules,
		"rulesRev":  flagRulesRev,
		"baseBranch": flagBase,
		"reviewer":  flagReviewer,
	})
	if err != nil {
		return nil, err
	}
	repo, err := gitctx.Open()
	if err != nil {
		return nil, err
	}
	return newEnv(repo, cfg), nil
}

func newEnv(repo *gitctx.Repo, cfg config.Config) *env {
	sig := repo.Signature()
	return &env{
		repo: repo,
		cfg:  cfg,
		approvals: approvals.NewStore(
			notes.NewStore(repo.Git(), cfg.NotesPrefix+"/"+approvals.Namespace, sig)),
		marks: marks.NewStore(
			notes.NewStore(repo.Git(), cfg.NotesPrefix+"/"+marks.Namespace, sig)),
	}
}

// reviewer resolves the acting reviewer identity: --as, then config,
// then the repository signature.
func (e *env) reviewer() string {
	if e.cfg.Reviewer != "" {
		return e.cfg.Reviewer
	}
	return e.repo.Signature().Name
}

// loadRules reads the rule file at the configured revision. A missing
// rule file is an empty rule set: no requirements, any range passes.
func (e *env) loadRules() (*rules.RuleSet, error) {
	data, err := e.repo.ReadFile(e.cfg.RulesRev, e.cfg.RulesFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &rules.RuleSet{}, nil
		}
		return nil, fmt.Errorf("loading rules: %w", err)
	}
	rs, err := rules.ParseString(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.cfg.RulesFile, err)
	}
	return rs, nil
}
