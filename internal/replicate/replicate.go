package replicate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/quorumgit/quorum/internal/approvals"
	"github.com/quorumgit/quorum/internal/marks"
	"github.com/quorumgit/quorum/internal/notes"
)

// ErrConflict is returned when the compare-and-swap retry budget is
// exhausted by concurrent writers. Local writes are preserved; a later
// sync picks them up without re-running approve or mark.
var ErrConflict = errors.New("sync conflict: retry budget exhausted")

// ErrTimeout is returned when a remote operation hits the caller's
// deadline. Distinct from ErrConflict so callers can decide whether a
// retry is worth it.
var ErrTimeout = errors.New("remote operation timed out")

// ErrCancelled is returned when the caller cancelled a remote
// operation.
var ErrCancelled = errors.New("remote operation cancelled")

// Namespace describes one replicated annotation store.
type Namespace struct {
	// Name is the suffix under the configured notes prefix.
	Name string
	// Merge combines the two sides' values for one annotated object.
	// Either side may be nil; a nil result drops the entry.
	Merge func(local, remote []byte) []byte
}

// Namespaces returns the stores quorum replicates.
func Namespaces() []Namespace {
	return []Namespace{
		{Name: approvals.Namespace, Merge: approvals.MergeNote},
		{Name: marks.Namespace, Merge: marks.MergeNote},
	}
}

// Transport moves one namespace between the local repository and the
// shared remote. Implementations must honor ctx.
type Transport interface {
	// Fetch brings the remote namespace's objects into local storage
	// and returns the remote tip, zero when the remote has none.
	Fetch(ctx context.Context, ns string) (plumbing.Hash, error)
	// Push publishes the local namespace tip, requiring the remote to
	// still be at expect (zero = must not exist). notes.ErrStale means
	// the remote moved and the caller should re-fetch and retry.
	Push(ctx context.Context, ns string, expect plumbing.Hash) error
}

// Options configure a sync run.
type Options struct {
	// Push publishes merged namespaces back to the remote.
	Push bool
	// Retries bounds CAS retry cycles per namespace.
	Retries int
}

// Syncer merges local and remote copies of the annotation namespaces.
type Syncer struct {
	repo      *git.Repository
	prefix    string // e.g. "refs/notes/quorum"
	who       object.Signature
	transport Transport
}

// New builds a Syncer for repo using transport. prefix is the local
// notes namespace prefix.
func New(repo *git.Repository, prefix string, who object.Signature, transport Transport) *Syncer {
	return &Syncer{repo: repo, prefix: prefix, who: who, transport: transport}
}

// Sync runs fetch, merge, and publish for every namespace.
func (s *Syncer) Sync(ctx context.Context, opts Options) error {
	retries := opts.Retries
	if retries <= 0 {
		retries = 3
	}
	for _, ns := range Namespaces() {
		if err := s.syncNamespace(ctx, ns, opts.Push, retries); err != nil {
			return fmt.Errorf("syncing %s: %w", ns.Name, err)
		}
	}
	return nil
}

func (s *Syncer) syncNamespace(ctx context.Context, ns Namespace, push bool, retries int) error {
	store := notes.NewStore(s.repo, s.prefix+"/"+ns.Name, s.who)

	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return classify(err)
		}

		remoteTip, err := s.transport.Fetch(ctx, ns.Name)
		if err != nil {
			return classify(err)
		}
		remote, err := store.ReadAt(remoteTip)
		if err != nil {
			return err
		}

		local, localTip, err := store.Read()
		if err != nil {
			return err
		}

		merged := mergeNamespace(local, remote, ns.Merge)
		newTip := localTip
		if !equalEntries(merged, local) {
			newTip, err = store.Commit(merged, localTip, "sync: merge "+ns.Name)
			if err != nil {
				if errors.Is(err, notes.ErrStale) {
					// A concurrent local approve/mark moved the tip
					// between our read and write. Their write is in the
					// namespace; re-read and merge again.
					slog.Debug("local tip moved during sync, retrying",
						slog.String("namespace", ns.Name))
					lastErr = err
					continue
				}
				return err
			}
		}

		if !push || newTip == remoteTip {
			return nil
		}
		if err := s.transport.Push(ctx, ns.Name, remoteTip); err != nil {
			if errors.Is(err, notes.ErrStale) {
				// Someone published between our fetch and push.
				slog.Debug("remote tip moved during sync, retrying",
					slog.String("namespace", ns.Name))
				lastErr = err
				continue
			}
			return classify(err)
		}
		return nil
	}
	return fmt.Errorf("%w: %v", ErrConflict, lastErr)
}

// mergeNamespace unions the key sets and merges values per key.
func mergeNamespace(local, remote map[plumbing.Hash][]byte, merge func(a, b []byte) []byte) map[plumbing.Hash][]byte {
	out := make(map[plumbing.Hash][]byte, len(local)+len(remote))
	for target, note := range local {
		if other, ok := remote[target]; ok {
			if m := merge(note, other); len(m) > 0 {
				out[target] = m
			}
			continue
		}
		out[target] = note
	}
	for target, note := range remote {
		if _, ok := local[target]; !ok {
			out[target] = note
		}
	}
	return out
}

func equalEntries(a, b map[plumbing.Hash][]byte) bool {
	if len(a) != len(b) {
		return false
	}
	for target, note := range a {
		if !bytes.Equal(b[target], note) {
			return false
		}
	}
	return true
}

// classify maps context errors onto the distinct timeout and
// cancellation outcomes.
func classify(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %v", ErrCancelled, err)
	default:
		return err
	}
}
