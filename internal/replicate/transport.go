package replicate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	git "github.com/go-git/go-git/v5"
	gitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/quorumgit/quorum/internal/notes"
)

// stagingPrefix holds fetched remote namespace tips, kept apart from
// the live local namespaces so a crashed sync never corrupts them.
const stagingPrefix = "refs/quorum/staging"

// GitTransport exchanges namespaces with a named git remote.
type GitTransport struct {
	repo   *git.Repository
	remote string
	prefix string // local notes namespace prefix, e.g. "refs/notes/quorum"
}

// NewGitTransport builds a Transport for the given remote name.
func NewGitTransport(repo *git.Repository, remote, prefix string) *GitTransport {
	return &GitTransport{repo: repo, remote: remote, prefix: prefix}
}

// Fetch pulls the remote namespace into a staging ref and returns its
// tip. A remote without the namespace yields a zero tip.
func (t *GitTransport) Fetch(ctx context.Context, ns string) (plumbing.Hash, error) {
	src := t.prefix + "/" + ns
	dst := stagingPrefix + "/" + ns
	spec := gitcfg.RefSpec(fmt.Sprintf("+%s:%s", src, dst))

	err := t.repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: t.remote,
		RefSpecs:   []gitcfg.RefSpec{spec},
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		if isMissingRemoteRef(err) {
			// Remote has never seen this namespace; staging may hold a
			// stale tip from an earlier sync.
			_ = t.repo.Storer.RemoveReference(plumbing.ReferenceName(dst))
			return plumbing.ZeroHash, nil
		}
		return plumbing.ZeroHash, fmt.Errorf("fetching %s from %s: %w", src, t.remote, err)
	}

	ref, err := t.repo.Reference(plumbing.ReferenceName(dst), true)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return plumbing.ZeroHash, nil
		}
		return plumbing.ZeroHash, fmt.Errorf("reading staging ref %s: %w", dst, err)
	}
	return ref.Hash(), nil
}

// Push publishes the local namespace tip under a force-with-lease
// discipline: the remote ref must still be at expect, otherwise the
// push is rejected and reported as notes.ErrStale for the caller to
// re-fetch and retry.
func (t *GitTransport) Push(ctx context.Context, ns string, expect plumbing.Hash) error {
	refName := t.prefix + "/" + ns
	opts := &git.PushOptions{
		RemoteName: t.remote,
	}
	if expect.IsZero() {
		// Creating: a plain push fails if the ref appeared since the
		// fetch, which is exactly the stale signal we want.
		opts.RefSpecs = []gitcfg.RefSpec{gitcfg.RefSpec(fmt.Sprintf("%s:%s", refName, refName))}
	} else {
		// The merged commit descends from the local tip, not the
		// remote one, so the push must force; the lease bounds what it
		// can overwrite.
		opts.RefSpecs = []gitcfg.RefSpec{gitcfg.RefSpec(fmt.Sprintf("+%s:%s", refName, refName))}
		opts.RequireRemoteRefs = []gitcfg.RefSpec{
			gitcfg.RefSpec(fmt.Sprintf("%s:%s", expect, refName)),
		}
	}
	err := t.repo.PushContext(ctx, opts)
	if err == nil || errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	if isLeaseViolation(err) {
		return fmt.Errorf("%w: remote %s moved", notes.ErrStale, refName)
	}
	return fmt.Errorf("pushing %s to %s: %w", refName, t.remote, err)
}

func isMissingRemoteRef(err error) bool {
	var noMatch git.NoMatchingRefSpecError
	if errors.As(err, &noMatch) {
		return true
	}
	return strings.Contains(err.Error(), "couldn't find remote ref")
}

// isLeaseViolation spots a push rejected because the remote ref is not
// where RequireRemoteRefs said it must be, or moved non-fast-forward
// underneath us.
func isLeaseViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "required to be") ||
		strings.Contains(msg, "non-fast-forward") ||
		strings.Contains(msg, "remote ref") && strings.Contains(msg, "changed")
}
