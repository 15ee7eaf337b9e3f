package policy

import (
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/quorumgit/quorum/internal/gitctx"
	"github.com/quorumgit/quorum/internal/marks"
)

// MarkSource is the read side of the commit review store.
type MarkSource interface {
	All() (map[plumbing.Hash]marks.Mark, error)
}

// WalkOptions tunes which commits count as needing review.
type WalkOptions struct {
	// SkipMerges drops merge commits from the result.
	SkipMerges bool
	// SkipAuthor drops commits authored by this name (one's own work
	// is not review material).
	SkipAuthor string
	// StopAtCheckpoint ends the walk at the newest commit carrying a
	// Checkpoint mark: everything older is taken as handled.
	StopAtCheckpoint bool
}

// Unreviewed lists the range's commits lacking any review mark, in
// range order (oldest first). The result is recomputed from a fresh
// snapshot on every call.
func Unreviewed(repo *gitctx.Repo, rng *gitctx.Range, store MarkSource, opts WalkOptions) ([]gitctx.CommitInfo, error) {
	commits, err := repo.Commits(rng)
	if err != nil {
		return nil, err
	}
	marked, err := store.All()
	if err != nil {
		return nil, err
	}

	if opts.StopAtCheckpoint {
		for i := len(commits) - 1; i >= 0; i-- {
			if m, ok := marked[commits[i].Hash]; ok && m.Status >= marks.Checkpoint {
				commits = commits[i+1:]
				break
			}
		}
	}

	var out []gitctx.CommitInfo
	for _, c := range commits {
		if _, ok := marked[c.Hash]; ok {
			continue
		}
		if opts.SkipMerges && c.Merge {
			continue
		}
		if opts.SkipAuthor != "" && c.Author == opts.SkipAuthor {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}
