package policy

import (
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/quorumgit/quorum/internal/approvals"
	"github.com/quorumgit/quorum/internal/gitctx"
	"github.com/quorumgit/quorum/internal/rules"
)

// fakeApprovals serves canned records keyed by content id.
type fakeApprovals map[plumbing.Hash][]approvals.Record

func (f fakeApprovals) For(content plumbing.Hash) ([]approvals.Record, error) {
	return f[content], nil
}

func blobID(c byte) plumbing.Hash {
	return plumbing.NewHash(strings.Repeat(string(c), 40))
}

func approval(reviewer string, level rules.Level) approvals.Record {
	return approvals.Record{
		Reviewer: reviewer,
		Level:    level,
		Time:     time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func mustRules(t *testing.T, text string) *rules.RuleSet {
	t.Helper()
	rs, err := rules.ParseString(text)
	if err != nil {
		t.Fatalf("parsing rules: %v", err)
	}
	return rs
}

func rangeOf(files ...gitctx.ChangedFile) *gitctx.Range {
	return &gitctx.Range{Spec: "test..head", Head: blobID('9'), Files: files}
}

func TestEvaluateQuorum(t *testing.T) {
	rs := mustRules(t, "src/*.go !! 2 alice,bob,carol\n")
	file := gitctx.ChangedFile{Path: "src/a.go", Blob: blobID('a')}

	tests := []struct {
		name      string
		records   []approvals.Record
		approvers []string
		satisfied bool
	}{
		{
			name:      "no approvals",
			satisfied: false,
		},
		{
			name:      "one short of quorum",
			records:   []approvals.Record{approval("alice", 2)},
			approvers: []string{"alice"},
			satisfied: false,
		},
		{
			name: "quorum met",
			records: []approvals.Record{
				approval("alice", 2),
				approval("bob", 3),
			},
			approvers: []string{"alice", "bob"},
			satisfied: true,
		},
		{
			name: "outsider never counts",
			records: []approvals.Record{
				approval("alice", 2),
				approval("dave", 3),
			},
			approvers: []string{"alice"},
			satisfied: false,
		},
		{
			name: "insufficient scrutiny never counts",
			records: []approvals.Record{
				approval("alice", 2),
				approval("bob", 1),
			},
			approvers: []string{"alice"},
			satisfied: false,
		},
		{
			name: "same reviewer counts once",
			records: []approvals.Record{
				approval("alice", 2),
				approval("alice", 3),
			},
			approvers: []string{"alice"},
			satisfied: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := fakeApprovals{file.Blob: tt.records}
			report, err := Evaluate(rs, rangeOf(file), store)
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if len(report.Paths) != 1 || len(report.Paths[0].Rules) != 1 {
				t.Fatalf("report shape: %+v", report.Paths)
			}
			rr := report.Paths[0].Rules[0]
			if rr.Satisfied != tt.satisfied {
				t.Errorf("satisfied = %v, want %v", rr.Satisfied, tt.satisfied)
			}
			if len(rr.Approvers) != len(tt.approvers) {
				t.Fatalf("approvers = %v, want %v", rr.Approvers, tt.approvers)
			}
			for i, name := range tt.approvers {
				if rr.Approvers[i] != name {
					t.Errorf("approvers[%d] = %s, want %s", i, rr.Approvers[i], name)
				}
			}
			if report.Satisfied() != tt.satisfied {
				t.Errorf("report.Satisfied() = %v, want %v", report.Satisfied(), tt.satisfied)
			}
		})
	}
}

func TestEvaluateAllMatchingRulesApply(t *testing.T) {
	rs := mustRules(t, strings.Join([]string{
		"crypto/* !!! 1 alice",
		"*.go ! 1 bob",
	}, "\n"))
	file := gitctx.ChangedFile{Path: "crypto/aes.go", Blob: blobID('a')}
	store := fakeApprovals{file.Blob: {approval("bob", 1)}}

	report, err := Evaluate(rs, rangeOf(file), store)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(report.Paths) != 1 || len(report.Paths[0].Rules) != 2 {
		t.Fatalf("want both rules applied, got %+v", report.Paths)
	}
	// bob's rule is met, alice's is not; the path as a whole is not.
	if report.Satisfied() {
		t.Error("report satisfied despite unmet crypto rule")
	}
	var cryptoMet, goMet bool
	for _, rr := range report.Paths[0].Rules {
		switch rr.Rule.Pattern {
		case "crypto/*":
			cryptoMet = rr.Satisfied
		case "*.go":
			goMet = rr.Satisfied
		}
	}
	if cryptoMet || !goMet {
		t.Errorf("crypto met = %v, go met = %v; want false, true", cryptoMet, goMet)
	}
}

func TestEvaluateUnmatchedPathsPass(t *testing.T) {
	rs := mustRules(t, "src/*.go !! 2 alice,bob\n")
	file := gitctx.ChangedFile{Path: "README.md", Blob: blobID('a')}

	report, err := Evaluate(rs, rangeOf(file), fakeApprovals{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(report.Paths) != 0 {
		t.Errorf("unmatched path produced a report entry: %+v", report.Paths)
	}
	if !report.Satisfied() {
		t.Error("range with no matching rules should pass")
	}
}

func TestEvaluateEmptyRuleSetPasses(t *testing.T) {
	file := gitctx.ChangedFile{Path: "anything.go", Blob: blobID('a')}
	report, err := Evaluate(&rules.RuleSet{}, rangeOf(file), fakeApprovals{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !report.Satisfied() {
		t.Error("empty rule set should pass everything")
	}
}

func TestRuleResultMissingAndCandidates(t *testing.T) {
	rr := RuleResult{
		Rule: rules.Rule{
			Pattern:   "*.go",
			Level:     2,
			Required:  2,
			Reviewers: []string{"alice", "bob", "carol"},
		},
		Approvers: []string{"bob"},
	}
	if got := rr.Missing(); got != 1 {
		t.Errorf("Missing() = %d, want 1", got)
	}
	want := []string{"alice", "carol"}
	got := rr.Candidates()
	if len(got) != len(want) {
		t.Fatalf("Candidates() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Candidates()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestReportUnsatisfied(t *testing.T) {
	rs := mustRules(t, "*.go !! 1 alice\n")
	met := gitctx.ChangedFile{Path: "ok.go", Blob: blobID('a')}
	unmet := gitctx.ChangedFile{Path: "bad.go", Blob: blobID('b')}
	store := fakeApprovals{met.Blob: {approval("alice", 2)}}

	report, err := Evaluate(rs, rangeOf(met, unmet), store)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	un := report.Unsatisfied()
	if len(un) != 1 || un[0].Path != "bad.go" {
		t.Errorf("Unsatisfied() = %+v, want bad.go only", un)
	}
}

func TestDefaultLevel(t *testing.T) {
	rs := mustRules(t, strings.Join([]string{
		"crypto/* !!! 1 alice",
		"crypto/* ! 1 bob",
	}, "\n"))
	file := gitctx.ChangedFile{Path: "crypto/aes.go", Blob: blobID('a')}

	// Both rules unmet: the lowest unsatisfied level wins.
	lvl, err := DefaultLevel(rs, file, fakeApprovals{})
	if err != nil {
		t.Fatalf("DefaultLevel: %v", err)
	}
	if lvl != 1 {
		t.Errorf("level = %d, want 1", lvl)
	}

	// bob's rule met: the remaining unmet rule sets the level.
	store := fakeApprovals{file.Blob: {approval("bob", 1)}}
	lvl, err = DefaultLevel(rs, file, store)
	if err != nil {
		t.Fatalf("DefaultLevel: %v", err)
	}
	if lvl != 3 {
		t.Errorf("level = %d, want 3", lvl)
	}

	// Everything met, or nothing matches: level 1.
	store = fakeApprovals{file.Blob: {approval("bob", 1), approval("alice", 3)}}
	lvl, err = DefaultLevel(rs, file, store)
	if err != nil {
		t.Fatalf("DefaultLevel: %v", err)
	}
	if lvl != 1 {
		t.Errorf("level = %d, want 1", lvl)
	}
	lvl, err = DefaultLevel(rs, gitctx.ChangedFile{Path: "README.md", Blob: blobID('c')}, fakeApprovals{})
	if err != nil {
		t.Fatalf("DefaultLevel: %v", err)
	}
	if lvl != 1 {
		t.Errorf("level = %d, want 1", lvl)
	}
}
