package marks

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/quorumgit/quorum/internal/notes"
)

// Namespace is the notes ref suffix holding commit review marks.
const Namespace = "marks"

const retryBudget = 3

// Status is a rung of the review-mark lattice.
type Status int

const (
	// Reviewed means the commit was read.
	Reviewed Status = iota + 1
	// Checkpoint marks a commit known-good to stop unreviewed walks at.
	Checkpoint
	// Tested means the commit was read and exercised. Tested strictly
	// dominates everything else.
	Tested
)

var statusTokens = map[Status]string{
	Reviewed:   "Reviewed-by",
	Checkpoint: "Checkpoint-by",
	Tested:     "Tested-by",
}

func (s Status) String() string {
	if tok, ok := statusTokens[s]; ok {
		return strings.TrimSuffix(tok, "-by")
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// ParseStatus accepts the forms used on the command line.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(s) {
	case "reviewed":
		return Reviewed, nil
	case "checkpoint":
		return Checkpoint, nil
	case "tested":
		return Tested, nil
	}
	return 0, fmt.Errorf("unknown mark status %q (want reviewed, checkpoint, or tested)", s)
}

// Mark is the current review mark of one commit.
type Mark struct {
	Status   Status
	Reviewer string
	Comment  string
}

// Encode renders the mark in its durable trailer form.
func (m Mark) Encode() []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", statusTokens[m.Status], m.Reviewer)
	if m.Comment != "" {
		fmt.Fprintf(&b, "Comment: %s\n", m.Comment)
	}
	return []byte(b.String())
}

// Decode parses a mark note. ok is false if no status trailer is
// present.
func Decode(note []byte) (Mark, bool) {
	var m Mark
	var found bool
	for _, line := range strings.Split(string(note), "\n") {
		line = strings.TrimSpace(line)
		// A hand-edited note may carry several status trailers; the
		// highest rung wins, same as Join.
		for _, status := range []Status{Reviewed, Checkpoint, Tested} {
			if rest, ok := strings.CutPrefix(line, statusTokens[status]+":"); ok {
				if !found || status > m.Status {
					m.Status = status
					m.Reviewer = strings.TrimSpace(rest)
				}
				found = true
			}
		}
		if rest, ok := strings.CutPrefix(line, "Comment:"); ok {
			m.Comment = strings.TrimSpace(rest)
		}
	}
	return m, found
}

// Join returns the least upper bound of two marks. The higher status
// wins; between equal statuses the record with the smaller encoding is
// kept, so concurrent equal-rank writes converge to the same bytes on
// every replica instead of racing on timestamps.
func Join(a, b Mark) Mark {
	if a.Status != b.Status {
		if a.Status > b.Status {
			return a
		}
		return b
	}
	if bytes.Compare(a.Encode(), b.Encode()) <= 0 {
		return a
	}
	return b
}

// MergeNote joins two note-level encodings of a commit's mark. Sides
// that fail to decode lose to sides that decode; if neither decodes
// the smaller byte string is kept.
func MergeNote(a, b []byte) []byte {
	ma, oka := Decode(a)
	mb, okb := Decode(b)
	switch {
	case oka && okb:
		return Join(ma, mb).Encode()
	case oka:
		return ma.Encode()
	case okb:
		return mb.Encode()
	case bytes.Compare(a, b) <= 0:
		return a
	default:
		return b
	}
}

// Store maps commit ids to their single current mark.
type Store struct {
	notes *notes.Store
}

// NewStore wraps the marks namespace.
func NewStore(n *notes.Store) *Store {
	return &Store{notes: n}
}

// Get returns the commit's mark, if any.
func (s *Store) Get(commit plumbing.Hash) (Mark, bool, error) {
	entries, _, err := s.notes.Read()
	if err != nil {
		return Mark{}, false, err
	}
	m, ok := Decode(entries[commit])
	return m, ok, nil
}

// All returns every marked commit.
func (s *Store) All() (map[plumbing.Hash]Mark, error) {
	entries, _, err := s.notes.Read()
	if err != nil {
		return nil, err
	}
	out := make(map[plumbing.Hash]Mark, len(entries))
	for commit, note := range entries {
		if m, ok := Decode(note); ok {
			out[commit] = m
		}
	}
	return out, nil
}

// Set joins mark with the commit's existing mark and stores the
// result. A join that changes nothing writes nothing. Concurrent local
// writers are handled by compare-and-swap with bounded retry.
func (s *Store) Set(commit plumbing.Hash, mark Mark) error {
	var lastErr error
	for attempt := 0; attempt < retryBudget; attempt++ {
		entries, tip, err := s.notes.Read()
		if err != nil {
			return err
		}
		next := mark
		if existing, ok := Decode(entries[commit]); ok {
			next = Join(existing, mark)
		}
		encoded := next.Encode()
		if bytes.Equal(entries[commit], encoded) {
			return nil
		}
		entries[commit] = encoded
		msg := fmt.Sprintf("mark %s %s by %s", commit, next.Status, next.Reviewer)
		if _, err := s.notes.Commit(entries, tip, msg); err != nil {
			if errors.Is(err, notes.ErrStale) {
				lastErr = err
				continue
			}
			return err
		}
		return nil
	}
	return lastErr
}
