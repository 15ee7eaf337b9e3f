package policy

import (
	"errors"
	"fmt"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/quorumgit/quorum/internal/approvals"
	"github.com/quorumgit/quorum/internal/gitctx"
	"github.com/quorumgit/quorum/internal/rules"
)

// ErrNoMatch is returned when an approve target matches no changed
// path in the range. No partial approval is written.
var ErrNoMatch = errors.New("target matches no changed path in range")

// ResolveTargets returns the changed files an approve target selects:
// the literal path if the range touches it, otherwise the target is a
// glob matched against the changed-path set.
func ResolveTargets(rng *gitctx.Range, target string) ([]gitctx.ChangedFile, error) {
	if f, ok := rng.File(target); ok {
		return []gitctx.ChangedFile{f}, nil
	}
	var out []gitctx.ChangedFile
	for _, f := range rng.Files {
		ok, err := doublestar.Match(target, f.Path)
		if err != nil {
			return nil, fmt.Errorf("bad target pattern %q: %w", target, err)
		}
		if ok || rules.Match(target, f.Path) {
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%q: %w", target, ErrNoMatch)
	}
	return out, nil
}

// Applied records one approval written by Approve.
type Applied struct {
	File  gitctx.ChangedFile
	Level rules.Level
}

// Approve resolves target within rng and appends one approval per
// selected file. level 0 means "choose per file": the level of the
// lowest unsatisfied matching rule. Nothing is written when the target
// resolves to nothing.
func Approve(rng *gitctx.Range, target string, level rules.Level, reviewer, comment string, rs *rules.RuleSet, store *approvals.Store) ([]Applied, error) {
	files, err := ResolveTargets(rng, target)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC().Truncate(time.Second)
	var applied []Applied
	for _, file := range files {
		lvl := level
		if lvl == 0 {
			lvl, err = DefaultLevel(rs, file, store)
			if err != nil {
				return applied, err
			}
		}
		rec := approvals.Record{
			Reviewer: reviewer,
			Level:    lvl,
			Time:     now,
			Comment:  comment,
		}
		if err := store.Add(file.Blob, rec); err != nil {
			return applied, fmt.Errorf("recording approval for %s: %w", file.Path, err)
		}
		applied = append(applied, Applied{File: file, Level: lvl})
	}
	return applied, nil
}
