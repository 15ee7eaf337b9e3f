package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/quorumgit/quorum/internal/gitctx"
	"github.com/quorumgit/quorum/internal/policy"
	"github.com/quorumgit/quorum/internal/rules"
)

func sampleReport() *policy.Report {
	blob := plumbing.NewHash(strings.Repeat("a", 40))
	head := plumbing.NewHash(strings.Repeat("b", 40))
	return &policy.Report{
		Range: &gitctx.Range{Spec: "origin/main..HEAD", Head: head},
		Paths: []policy.PathReport{
			{
				Path: "src/ok.go",
				Blob: blob,
				Rules: []policy.RuleResult{{
					Rule: rules.Rule{
						Pattern: "src/*.go", Level: 2, Required: 1,
						Reviewers: []string{"alice", "bob"},
					},
					Approvers: []string{"alice"},
					Satisfied: true,
				}},
			},
			{
				Path: "crypto/aes.go",
				Blob: blob,
				Rules: []policy.RuleResult{{
					Rule: rules.Rule{
						Pattern: "crypto/*", Level: 3, Required: 2,
						Reviewers: []string{"alice", "bob", "carol"},
					},
					Approvers: []string{"bob"},
					Satisfied: false,
				}},
			},
		},
	}
}

func TestNew(t *testing.T) {
	if _, err := New("text"); err != nil {
		t.Errorf("New(text): %v", err)
	}
	if _, err := New(""); err != nil {
		t.Errorf("New(empty): %v", err)
	}
	if _, err := New("json"); err != nil {
		t.Errorf("New(json): %v", err)
	}
	if _, err := New("yaml"); err == nil {
		t.Error("New(yaml) accepted, want error")
	}
}

func TestTextWriter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TextWriter{}).Write(&buf, sampleReport()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "✓ src/ok.go") {
		t.Errorf("satisfied path missing marker:\n%s", out)
	}
	if !strings.Contains(out, "✗ crypto/aes.go") {
		t.Errorf("unsatisfied path missing marker:\n%s", out)
	}
	if !strings.Contains(out, "missing 1 of") {
		t.Errorf("missing-count line absent:\n%s", out)
	}
	if !strings.Contains(out, "alice, carol") {
		t.Errorf("candidates absent:\n%s", out)
	}
	if !strings.Contains(out, "1 path(s) still need review.") {
		t.Errorf("summary line absent:\n%s", out)
	}
}

func TestTextWriterAllSatisfied(t *testing.T) {
	report := sampleReport()
	report.Paths = report.Paths[:1]

	var buf bytes.Buffer
	if err := (&TextWriter{}).Write(&buf, report); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !strings.Contains(buf.String(), "All requirements satisfied.") {
		t.Errorf("missing satisfied summary:\n%s", buf.String())
	}
}

func TestTextWriterUnsatisfiableRule(t *testing.T) {
	report := sampleReport()
	report.Paths = []policy.PathReport{{
		Path: "legal/license.txt",
		Rules: []policy.RuleResult{{
			Rule: rules.Rule{
				Pattern: "legal/*", Level: 1, Required: 3,
				Reviewers: []string{"alice"},
			},
		}},
	}}

	var buf bytes.Buffer
	if err := (&TextWriter{}).Write(&buf, report); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !strings.Contains(buf.String(), "UNSATISFIABLE") {
		t.Errorf("unsatisfiable rule not called out:\n%s", buf.String())
	}
}

func TestTextWriterNoMatches(t *testing.T) {
	report := sampleReport()
	report.Paths = nil

	var buf bytes.Buffer
	if err := (&TextWriter{}).Write(&buf, report); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !strings.Contains(buf.String(), "Nothing to approve.") {
		t.Errorf("empty-report message absent:\n%s", buf.String())
	}
}

func TestJSONWriter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&JSONWriter{}).Write(&buf, sampleReport()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	var decoded struct {
		Range     string `json:"range"`
		Satisfied bool   `json:"satisfied"`
		Paths     []struct {
			Path      string `json:"path"`
			ContentID string `json:"contentId"`
			Satisfied bool   `json:"satisfied"`
			Rules     []struct {
				Pattern  string `json:"pattern"`
				Scrutiny int    `json:"scrutiny"`
			} `json:"rules"`
		} `json:"paths"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded.Range != "origin/main..HEAD" {
		t.Errorf("range = %q", decoded.Range)
	}
	if decoded.Satisfied {
		t.Error("satisfied = true, want false")
	}
	if len(decoded.Paths) != 2 {
		t.Fatalf("got %d paths, want 2", len(decoded.Paths))
	}
	if decoded.Paths[1].Rules[0].Scrutiny != 3 {
		t.Errorf("scrutiny = %d, want 3", decoded.Paths[1].Rules[0].Scrutiny)
	}
}

func TestWriteCommits(t *testing.T) {
	commits := []gitctx.CommitInfo{
		{Hash: plumbing.NewHash(strings.Repeat("a", 40)), Summary: "fix the parser"},
		{Hash: plumbing.NewHash(strings.Repeat("b", 40)), Summary: "add tests"},
	}
	var buf bytes.Buffer
	if err := WriteCommits(&buf, commits); err != nil {
		t.Fatalf("WriteCommits: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "aaaaaaaaaa fix the parser") {
		t.Errorf("short hash line absent:\n%s", out)
	}
	if !strings.Contains(out, "2 commit(s) awaiting review.") {
		t.Errorf("count line absent:\n%s", out)
	}

	buf.Reset()
	if err := WriteCommits(&buf, nil); err != nil {
		t.Fatalf("WriteCommits(nil): %v", err)
	}
	if !strings.Contains(buf.String(), "Nothing to review.") {
		t.Errorf("empty message absent: %q", buf.String())
	}
}
