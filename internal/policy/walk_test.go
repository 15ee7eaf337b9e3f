package policy

import (
	"sort"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/quorumgit/quorum/internal/gitctx"
	"github.com/quorumgit/quorum/internal/marks"
)

// fakeMarks serves a canned mark table.
type fakeMarks map[plumbing.Hash]marks.Mark

func (f fakeMarks) All() (map[plumbing.Hash]marks.Mark, error) {
	return f, nil
}

type commitBuilder struct {
	t    *testing.T
	repo *git.Repository
	when time.Time
}

func newCommitBuilder(t *testing.T) (*commitBuilder, *gitctx.Repo) {
	t.Helper()
	repo, err := git.Init(memory.NewStorage(), nil)
	if err != nil {
		t.Fatalf("init repo: %v", err)
	}
	return &commitBuilder{
		t:    t,
		repo: repo,
		when: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}, gitctx.Wrap(repo)
}

func (b *commitBuilder) commit(files map[string]string, parents []plumbing.Hash, author, msg string) plumbing.Hash {
	b.t.Helper()
	b.when = b.when.Add(time.Minute)

	entries := make([]object.TreeEntry, 0, len(files))
	for name, content := range files {
		obj := b.repo.Storer.NewEncodedObject()
		obj.SetType(plumbing.BlobObject)
		w, err := obj.Writer()
		if err != nil {
			b.t.Fatalf("blob writer: %v", err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			b.t.Fatalf("writing blob: %v", err)
		}
		if err := w.Close(); err != nil {
			b.t.Fatalf("closing blob: %v", err)
		}
		blobHash, err := b.repo.Storer.SetEncodedObject(obj)
		if err != nil {
			b.t.Fatalf("storing blob: %v", err)
		}
		entries = append(entries, object.TreeEntry{Name: name, Mode: filemode.Regular, Hash: blobHash})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	treeObj := b.repo.Storer.NewEncodedObject()
	if err := (&object.Tree{Entries: entries}).Encode(treeObj); err != nil {
		b.t.Fatalf("encoding tree: %v", err)
	}
	treeHash, err := b.repo.Storer.SetEncodedObject(treeObj)
	if err != nil {
		b.t.Fatalf("storing tree: %v", err)
	}

	sig := object.Signature{Name: author, Email: author + "@example.com", When: b.when}
	commitObj := b.repo.Storer.NewEncodedObject()
	err = (&object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      msg,
		TreeHash:     treeHash,
		ParentHashes: parents,
	}).Encode(commitObj)
	if err != nil {
		b.t.Fatalf("encoding commit: %v", err)
	}
	hash, err := b.repo.Storer.SetEncodedObject(commitObj)
	if err != nil {
		b.t.Fatalf("storing commit: %v", err)
	}
	return hash
}

func TestUnreviewedSkipsMarked(t *testing.T) {
	b, repo := newCommitBuilder(t)
	root := b.commit(map[string]string{"f": "0"}, nil, "author", "root")
	c1 := b.commit(map[string]string{"f": "1"}, []plumbing.Hash{root}, "author", "one")
	c2 := b.commit(map[string]string{"f": "2"}, []plumbing.Hash{c1}, "author", "two")
	c3 := b.commit(map[string]string{"f": "3"}, []plumbing.Hash{c2}, "author", "three")

	store := fakeMarks{c2: {Status: marks.Reviewed, Reviewer: "alice"}}
	got, err := Unreviewed(repo, &gitctx.Range{Base: root, Head: c3}, store, WalkOptions{})
	if err != nil {
		t.Fatalf("Unreviewed: %v", err)
	}
	want := []plumbing.Hash{c1, c3}
	if len(got) != len(want) {
		t.Fatalf("got %d commits, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i].Hash != want[i] {
			t.Errorf("got[%d] = %s, want %s", i, got[i].Hash, want[i])
		}
	}
}

func TestUnreviewedSkipsMergesAndOwnCommits(t *testing.T) {
	b, repo := newCommitBuilder(t)
	root := b.commit(map[string]string{"f": "0"}, nil, "author", "root")
	left := b.commit(map[string]string{"f": "l"}, []plumbing.Hash{root}, "alice", "left")
	right := b.commit(map[string]string{"f": "r"}, []plumbing.Hash{root}, "me", "my own work")
	merge := b.commit(map[string]string{"f": "m"}, []plumbing.Hash{left, right}, "alice", "merge")

	opts := WalkOptions{SkipMerges: true, SkipAuthor: "me"}
	got, err := Unreviewed(repo, &gitctx.Range{Base: root, Head: merge}, fakeMarks{}, opts)
	if err != nil {
		t.Fatalf("Unreviewed: %v", err)
	}
	if len(got) != 1 || got[0].Hash != left {
		t.Errorf("got %+v, want alice's left commit only", got)
	}

	// Without the options everything shows up.
	got, err = Unreviewed(repo, &gitctx.Range{Base: root, Head: merge}, fakeMarks{}, WalkOptions{})
	if err != nil {
		t.Fatalf("Unreviewed: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("got %d commits, want 3", len(got))
	}
}

func TestUnreviewedStopsAtCheckpoint(t *testing.T) {
	b, repo := newCommitBuilder(t)
	root := b.commit(map[string]string{"f": "0"}, nil, "author", "root")
	c1 := b.commit(map[string]string{"f": "1"}, []plumbing.Hash{root}, "author", "one")
	c2 := b.commit(map[string]string{"f": "2"}, []plumbing.Hash{c1}, "author", "two")
	c3 := b.commit(map[string]string{"f": "3"}, []plumbing.Hash{c2}, "author", "three")

	store := fakeMarks{c2: {Status: marks.Checkpoint, Reviewer: "alice"}}

	// With the flag, c1 (older than the checkpoint) is taken as handled.
	got, err := Unreviewed(repo, &gitctx.Range{Base: root, Head: c3}, store,
		WalkOptions{StopAtCheckpoint: true})
	if err != nil {
		t.Fatalf("Unreviewed: %v", err)
	}
	if len(got) != 1 || got[0].Hash != c3 {
		t.Errorf("got %+v, want c3 only", got)
	}

	// Without it, c1 still needs review.
	got, err = Unreviewed(repo, &gitctx.Range{Base: root, Head: c3}, store, WalkOptions{})
	if err != nil {
		t.Fatalf("Unreviewed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d commits, want 2", len(got))
	}
}

func TestUnreviewedTestedCountsAsReviewed(t *testing.T) {
	b, repo := newCommitBuilder(t)
	root := b.commit(map[string]string{"f": "0"}, nil, "author", "root")
	c1 := b.commit(map[string]string{"f": "1"}, []plumbing.Hash{root}, "author", "one")

	store := fakeMarks{c1: {Status: marks.Tested, Reviewer: "alice"}}
	got, err := Unreviewed(repo, &gitctx.Range{Base: root, Head: c1}, store, WalkOptions{})
	if err != nil {
		t.Fatalf("Unreviewed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %+v, want none", got)
	}
}
