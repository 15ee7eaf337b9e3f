package notes

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage"
)

// ErrStale is returned when the namespace tip moved between read and
// write. Callers re-read and retry; local data is never lost because
// every write starts from the current tip.
var ErrStale = errors.New("notes namespace changed concurrently")

// Store gives read and compare-and-swap write access to one notes
// namespace.
type Store struct {
	repo *git.Repository
	ref  plumbing.ReferenceName
	who  object.Signature
}

// NewStore opens the namespace at ref (e.g. "refs/notes/quorum/approvals")
// in repo. Writes are attributed to who.
func NewStore(repo *git.Repository, ref string, who object.Signature) *Store {
	return &Store{repo: repo, ref: plumbing.ReferenceName(ref), who: who}
}

// Ref returns the namespace's ref name.
func (s *Store) Ref() string { return string(s.ref) }

// Tip returns the current namespace tip, or plumbing.ZeroHash when the
// namespace does not exist yet.
func (s *Store) Tip() (plumbing.Hash, error) {
	ref, err := s.repo.Reference(s.ref, true)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return plumbing.ZeroHash, nil
		}
		return plumbing.ZeroHash, fmt.Errorf("resolving %s: %w", s.ref, err)
	}
	return ref.Hash(), nil
}

// Read returns the whole namespace as annotated-object -> note bytes,
// together with the tip it was read at. A missing namespace reads as
// empty with a zero tip.
func (s *Store) Read() (map[plumbing.Hash][]byte, plumbing.Hash, error) {
	tip, err := s.Tip()
	if err != nil {
		return nil, plumbing.ZeroHash, err
	}
	entries, err := s.ReadAt(tip)
	if err != nil {
		return nil, plumbing.ZeroHash, err
	}
	return entries, tip, nil
}

// ReadAt returns the namespace content at a specific tip. A zero tip
// reads as empty.
func (s *Store) ReadAt(tip plumbing.Hash) (map[plumbing.Hash][]byte, error) {
	entries := make(map[plumbing.Hash][]byte)
	if tip.IsZero() {
		return entries, nil
	}
	commit, err := s.repo.CommitObject(tip)
	if err != nil {
		return nil, fmt.Errorf("reading notes commit %s: %w", tip, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("reading notes tree: %w", err)
	}
	walker := object.NewTreeWalker(tree, true, nil)
	defer walker.Close()
	for {
		name, entry, err := walker.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("walking notes tree: %w", err)
		}
		if !entry.Mode.IsFile() {
			continue
		}
		// git-notes fanout stores "ab/cdef..."; flatten the path back
		// into one hex object id.
		hex := strings.ReplaceAll(name, "/", "")
		if len(hex) != 40 {
			continue
		}
		target := plumbing.NewHash(hex)
		if target.String() != hex {
			continue // not a hex name, some other tool's file
		}
		data, err := s.blobBytes(entry.Hash)
		if err != nil {
			return nil, err
		}
		entries[target] = data
	}
	return entries, nil
}

// Commit writes entries as the namespace's new content. parent must be
// the tip the caller read; the ref is updated with a compare-and-swap
// against it and ErrStale is returned if it moved. Entries with empty
// values are dropped. Returns the new tip.
func (s *Store) Commit(entries map[plumbing.Hash][]byte, parent plumbing.Hash, msg string) (plumbing.Hash, error) {
	treeHash, err := s.writeTree(entries)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	who := s.who
	if who.When.IsZero() {
		who.When = time.Now()
	}
	commit := &object.Commit{
		Author:    who,
		Committer: who,
		Message:   msg,
		TreeHash:  treeHash,
	}
	if !parent.IsZero() {
		commit.ParentHashes = []plumbing.Hash{parent}
	}
	obj := s.repo.Storer.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("encoding notes commit: %w", err)
	}
	commitHash, err := s.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("writing notes commit: %w", err)
	}

	newRef := plumbing.NewHashReference(s.ref, commitHash)
	var oldRef *plumbing.Reference
	if !parent.IsZero() {
		oldRef = plumbing.NewHashReference(s.ref, parent)
	} else {
		// CheckAndSetReference with a nil old ref does not check at
		// all, so a creating write must verify the ref is still absent.
		cur, err := s.Tip()
		if err != nil {
			return plumbing.ZeroHash, err
		}
		if !cur.IsZero() {
			return plumbing.ZeroHash, fmt.Errorf("%w: %s", ErrStale, s.ref)
		}
	}
	if err := s.repo.Storer.CheckAndSetReference(newRef, oldRef); err != nil {
		if errors.Is(err, storage.ErrReferenceHasChanged) {
			return plumbing.ZeroHash, fmt.Errorf("%w: %s", ErrStale, s.ref)
		}
		// Some storers report staleness with their own error; confirm
		// by re-reading the tip before giving up.
		if cur, terr := s.Tip(); terr == nil && cur != parent {
			return plumbing.ZeroHash, fmt.Errorf("%w: %s", ErrStale, s.ref)
		}
		return plumbing.ZeroHash, fmt.Errorf("updating %s: %w", s.ref, err)
	}
	return commitHash, nil
}

// SetRef moves the namespace tip unconditionally. Used after a merge
// has already been committed through Commit on a staging copy.
func (s *Store) SetRef(tip plumbing.Hash) error {
	if tip.IsZero() {
		return s.repo.Storer.RemoveReference(s.ref)
	}
	return s.repo.Storer.SetReference(plumbing.NewHashReference(s.ref, tip))
}

func (s *Store) writeTree(entries map[plumbing.Hash][]byte) (plumbing.Hash, error) {
	treeEntries := make([]object.TreeEntry, 0, len(entries))
	for target, data := range entries {
		if len(data) == 0 {
			continue
		}
		blobHash, err := s.writeBlob(data)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		treeEntries = append(treeEntries, object.TreeEntry{
			Name: target.String(),
			Mode: filemode.Regular,
			Hash: blobHash,
		})
	}
	sort.Slice(treeEntries, func(i, j int) bool {
		return treeEntries[i].Name < treeEntries[j].Name
	})
	tree := &object.Tree{Entries: treeEntries}
	obj := s.repo.Storer.NewEncodedObject()
	if err := tree.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("encoding notes tree: %w", err)
	}
	hash, err := s.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("writing notes tree: %w", err)
	}
	return hash, nil
}

func (s *Store) writeBlob(data []byte) (plumbing.Hash, error) {
	obj := s.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	w, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("opening blob writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return plumbing.ZeroHash, fmt.Errorf("writing note blob: %w", err)
	}
	if err := w.Close(); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("closing note blob: %w", err)
	}
	hash, err := s.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("storing note blob: %w", err)
	}
	return hash, nil
}

func (s *Store) blobBytes(hash plumbing.Hash) ([]byte, error) {
	blob, err := s.repo.BlobObject(hash)
	if err != nil {
		return nil, fmt.Errorf("reading note blob %s: %w", hash, err)
	}
	r, err := blob.Reader()
	if err != nil {
		return nil, fmt.Errorf("opening note blob %s: %w", hash, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading note blob %s: %w", hash, err)
	}
	return data, nil
}
