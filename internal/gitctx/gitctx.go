package gitctx

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	git "github.com/go-git/go-git/v5"
	gitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Repo wraps an open git repository.
type Repo struct {
	repo *git.Repository
}

// Open opens the repository containing the working directory.
func Open() (*Repo, error) {
	repo, err := git.PlainOpenWithOptions(".", &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("not a git repository: %w", err)
	}
	return &Repo{repo: repo}, nil
}

// Wrap adapts an already-open repository; used by tests with in-memory
// storage.
func Wrap(repo *git.Repository) *Repo {
	return &Repo{repo: repo}
}

// Git exposes the underlying repository for the annotation stores.
func (r *Repo) Git() *git.Repository { return r.repo }

// Signature returns the identity commits and notes are written under,
// from user.name/user.email in git config with an inert fallback.
func (r *Repo) Signature() object.Signature {
	cfg, err := r.repo.ConfigScoped(gitcfg.SystemScope)
	if err != nil || cfg.User.Name == "" {
		return object.Signature{Name: "quorum", Email: "quorum@localhost"}
	}
	email := cfg.User.Email
	if email == "" {
		email = cfg.User.Name + "@localhost"
	}
	return object.Signature{Name: cfg.User.Name, Email: email}
}

// ReadFile returns the file's bytes at rev, or from the working tree
// when rev is empty.
func (r *Repo) ReadFile(rev, path string) ([]byte, error) {
	if rev == "" {
		wt, err := r.repo.Worktree()
		if err != nil {
			return nil, fmt.Errorf("opening worktree: %w", err)
		}
		f, err := wt.Filesystem.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%s: %w", path, os.ErrNotExist)
			}
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		defer f.Close()
		return io.ReadAll(f)
	}
	hash, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("resolving %q: %w", rev, err)
	}
	commit, err := r.repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("reading commit %s: %w", hash, err)
	}
	file, err := commit.File(path)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, fmt.Errorf("%s at %s: %w", path, rev, os.ErrNotExist)
		}
		return nil, fmt.Errorf("reading %s at %s: %w", path, rev, err)
	}
	content, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("reading %s at %s: %w", path, rev, err)
	}
	return []byte(content), nil
}

// CommitInfo describes one commit in a range.
type CommitInfo struct {
	Hash    plumbing.Hash
	Summary string
	Author  string
	Merge   bool
}

// Commits lists the range's commits, oldest first.
func (r *Repo) Commits(rng *Range) ([]CommitInfo, error) {
	head, err := r.repo.CommitObject(rng.Head)
	if err != nil {
		return nil, fmt.Errorf("reading head commit: %w", err)
	}

	seen := make(map[plumbing.Hash]bool)
	if !rng.Base.IsZero() {
		base, err := r.repo.CommitObject(rng.Base)
		if err != nil {
			return nil, fmt.Errorf("reading base commit: %w", err)
		}
		baseIter := object.NewCommitPreorderIter(base, nil, nil)
		err = baseIter.ForEach(func(c *object.Commit) error {
			seen[c.Hash] = true
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking base history: %w", err)
		}
	}

	var commits []CommitInfo
	iter := object.NewCommitPreorderIter(head, seen, nil)
	err = iter.ForEach(func(c *object.Commit) error {
		summary := c.Message
		if i := strings.IndexByte(summary, '\n'); i >= 0 {
			summary = summary[:i]
		}
		commits = append(commits, CommitInfo{
			Hash:    c.Hash,
			Summary: summary,
			Author:  c.Author.Name,
			Merge:   c.NumParents() > 1,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking range: %w", err)
	}

	// Preorder walks newest first; the range order is oldest first.
	for i, j := 0, len(commits)-1; i < j; i, j = i+1, j-1 {
		commits[i], commits[j] = commits[j], commits[i]
	}
	return commits, nil
}
