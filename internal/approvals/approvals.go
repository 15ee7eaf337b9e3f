package approvals

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/quorumgit/quorum/internal/notes"
	"github.com/quorumgit/quorum/internal/rules"
)

// Namespace is the notes ref suffix holding approvals.
const Namespace = "approvals"

// retryBudget bounds read-merge-write attempts against concurrent
// local writers before giving up.
const retryBudget = 3

// Record is one approval of one file content by one reviewer.
type Record struct {
	Reviewer string
	Level    rules.Level
	Time     time.Time
	Comment  string
}

// String renders the record in its durable one-line form.
func (r Record) String() string {
	line := fmt.Sprintf("%s %s %s", r.Reviewer, r.Level, r.Time.UTC().Format(time.RFC3339))
	if r.Comment != "" {
		line += " " + r.Comment
	}
	return line
}

// ParseRecord parses one note line. ok is false for lines in a shape
// we do not recognize; such lines are preserved but never counted.
func ParseRecord(line string) (Record, bool) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return Record{}, false
	}
	lvl, err := rules.ParseLevel(fields[1])
	if err != nil {
		return Record{}, false
	}
	when, err := time.Parse(time.RFC3339, fields[2])
	if err != nil {
		return Record{}, false
	}
	rec := Record{
		Reviewer: fields[0],
		Level:    lvl,
		Time:     when,
	}
	if len(fields) > 3 {
		rec.Comment = strings.Join(fields[3:], " ")
	}
	return rec, true
}

// Store maps ContentId (blob hash) to the set of approvals recorded
// against it.
type Store struct {
	notes *notes.Store
}

// NewStore wraps the approvals namespace.
func NewStore(n *notes.Store) *Store {
	return &Store{notes: n}
}

// For returns every parseable approval recorded for content, sorted by
// time then reviewer.
func (s *Store) For(content plumbing.Hash) ([]Record, error) {
	entries, _, err := s.notes.Read()
	if err != nil {
		return nil, err
	}
	return decode(entries[content]), nil
}

// All returns the full store keyed by ContentId.
func (s *Store) All() (map[plumbing.Hash][]Record, error) {
	entries, _, err := s.notes.Read()
	if err != nil {
		return nil, err
	}
	out := make(map[plumbing.Hash][]Record, len(entries))
	for content, note := range entries {
		if recs := decode(note); len(recs) > 0 {
			out[content] = recs
		}
	}
	return out, nil
}

// Add appends rec to content's approval set. Existing records are
// never overwritten; a byte-identical record is a no-op. Concurrent
// local writers are handled by compare-and-swap with bounded retry.
func (s *Store) Add(content plumbing.Hash, rec Record) error {
	return s.update(content, fmt.Sprintf("approve %s by %s", content, rec.Reviewer),
		func(lines []string) []string {
			return unionLines(lines, []string{rec.String()})
		})
}

// Revoke removes every approval by reviewer for content. This is the
// rare administrative escape hatch; normal operation only appends.
func (s *Store) Revoke(content plumbing.Hash, reviewer string) error {
	return s.update(content, fmt.Sprintf("revoke %s by %s", content, reviewer),
		func(lines []string) []string {
			kept := lines[:0]
			for _, line := range lines {
				if rec, ok := ParseRecord(line); ok && rec.Reviewer == reviewer {
					continue
				}
				kept = append(kept, line)
			}
			return kept
		})
}

func (s *Store) update(content plumbing.Hash, msg string, f func([]string) []string) error {
	var lastErr error
	for attempt := 0; attempt < retryBudget; attempt++ {
		entries, tip, err := s.notes.Read()
		if err != nil {
			return err
		}
		lines := splitLines(entries[content])
		next := f(lines)
		if sameLineSet(lines, next) {
			return nil
		}
		if len(next) == 0 {
			delete(entries, content)
		} else {
			entries[content] = []byte(strings.Join(next, "\n") + "\n")
		}
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

// MergeNote combines two versions of one content's note by line-set
// union. Unparseable lines survive the union; byte-identical records
// collapse.
func MergeNote(a, b []byte) []byte {
	merged := unionLines(splitLines(a), splitLines(b))
	if len(merged) == 0 {
		return nil
	}
	return []byte(strings.Join(merged, "\n") + "\n")
}

func decode(note []byte) []Record {
	var recs []Record
	for _, line := range splitLines(note) {
		if rec, ok := ParseRecord(line); ok {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].Time.Equal(recs[j].Time) {
			return recs[i].Time.Before(recs[j].Time)
		}
		return recs[i].Reviewer < recs[j].Reviewer
	})
	return recs
}

func splitLines(note []byte) []string {
	var lines []string
	for _, line := range strings.Split(string(note), "\n") {
		line = strings.TrimRight(line, " \t\r")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func unionLines(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, line := range a {
		if !seen[line] {
			seen[line] = true
			out = append(out, line)
		}
	}
	for _, line := range b {
		if !seen[line] {
			seen[line] = true
			out = append(out, line)
		}
	}
	sort.Strings(out)
	return out
}

func sameLineSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]bool, len(a))
	for _, line := range a {
		seen[line] = true
	}
	for _, line := range b {
		if !seen[line] {
			return false
		}
	}
	return true
}
