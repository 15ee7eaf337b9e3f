package gitctx

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"
)

// ChangedFile is one path changed in a range, with its blob id (the
// ContentId approvals attach to) at the range head.
type ChangedFile struct {
	Path string
	Blob plumbing.Hash
}

// Range denotes the commits reachable from Head but not Base, plus the
// files those commits changed.
type Range struct {
	Spec  string
	Base  plumbing.Hash
	Head  plumbing.Hash
	Files []ChangedFile
}

// File returns the changed file for path, if the range touches it.
func (r *Range) File(path string) (ChangedFile, bool) {
	for _, f := range r.Files {
		if f.Path == path {
			return f, true
		}
	}
	return ChangedFile{}, false
}

// RangeError reports an argument that does not resolve to a range.
type RangeError struct {
	Spec string
	Err  error
}

func (e *RangeError) Error() string {
	if e.Spec == "" {
		return fmt.Sprintf("resolving default range: %v", e.Err)
	}
	return fmt.Sprintf("resolving range %q: %v", e.Spec, e.Err)
}

func (e *RangeError) Unwrap() error { return e.Err }

// ResolveRange turns a range argument into a concrete base/head pair
// with changed files.
//
// An empty spec means HEAD against the merge-base with defaultBase. A
// "base..head" spec resolves both sides and uses their merge-base as
// the comparison point ("..." is accepted and means the same). A bare
// revision is taken as the head against defaultBase.
func (r *Repo) ResolveRange(spec, defaultBase string) (*Range, error) {
	baseRev, headRev := defaultBase, "HEAD"
	switch {
	case spec == "":
	case strings.Contains(spec, ".."):
		parts := strings.SplitN(strings.Replace(spec, "...", "..", 1), "..", 2)
		if parts[0] != "" {
			baseRev = parts[0]
		}
		if parts[1] != "" {
			headRev = parts[1]
		}
	default:
		headRev = spec
	}

	head, err := r.repo.ResolveRevision(plumbing.Revision(headRev))
	if err != nil {
		return nil, &RangeError{Spec: spec, Err: fmt.Errorf("unknown revision %q: %w", headRev, err)}
	}

	var base plumbing.Hash
	if baseRev != "" {
		b, err := r.repo.ResolveRevision(plumbing.Revision(baseRev))
		if err != nil {
			return nil, &RangeError{Spec: spec, Err: fmt.Errorf("unknown revision %q: %w", baseRev, err)}
		}
		base, err = r.mergeBase(*b, *head)
		if err != nil {
			return nil, &RangeError{Spec: spec, Err: err}
		}
	}

	files, err := r.changedFiles(base, *head)
	if err != nil {
		return nil, &RangeError{Spec: spec, Err: err}
	}

	display := spec
	if display == "" {
		display = fmt.Sprintf("%s..%s", defaultBase, headRev)
	}
	return &Range{Spec: display, Base: base, Head: *head, Files: files}, nil
}

func (r *Repo) mergeBase(a, b plumbing.Hash) (plumbing.Hash, error) {
	if a == b {
		return a, nil
	}
	ca, err := r.repo.CommitObject(a)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("reading commit %s: %w", a, err)
	}
	cb, err := r.repo.CommitObject(b)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("reading commit %s: %w", b, err)
	}
	bases, err := ca.MergeBase(cb)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("computing merge-base: %w", err)
	}
	if len(bases) == 0 {
		return plumbing.ZeroHash, fmt.Errorf("no common ancestor of %s and %s", a, b)
	}
	return bases[0].Hash, nil
}

// changedFiles diffs base against head and keeps the head side of
// every addition and modification. Deletions have no head content to
// approve, so they drop out.
func (r *Repo) changedFiles(base, head plumbing.Hash) ([]ChangedFile, error) {
	headCommit, err := r.repo.CommitObject(head)
	if err != nil {
		return nil, fmt.Errorf("reading head commit: %w", err)
	}
	headTree, err := headCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("reading head tree: %w", err)
	}

	var baseTree *object.Tree
	if !base.IsZero() {
		baseCommit, err := r.repo.CommitObject(base)
		if err != nil {
			return nil, fmt.Errorf("reading base commit: %w", err)
		}
		baseTree, err = baseCommit.Tree()
		if err != nil {
			return nil, fmt.Errorf("reading base tree: %w", err)
		}
	} else {
		baseTree = &object.Tree{}
	}

	changes, err := object.DiffTree(baseTree, headTree)
	if err != nil {
		return nil, fmt.Errorf("diffing trees: %w", err)
	}

	var files []ChangedFile
	for _, change := range changes {
		action, err := change.Action()
		if err != nil {
			return nil, fmt.Errorf("classifying change: %w", err)
		}
		if action == merkletrie.Delete {
			continue
		}
		files = append(files, ChangedFile{
			Path: change.To.Name,
			Blob: change.To.TreeEntry.Hash,
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}
