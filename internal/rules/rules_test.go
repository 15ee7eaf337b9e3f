package rules

import (
	"errors"
	"testing"
)

func TestParse_SingleRule(t *testing.T) {
	rs, err := ParseString("Cargo.toml ! 1 alice\n")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if len(rs.Rules) != 1 {
		t.Fatalf("got %d rules, want 1", len(rs.Rules))
	}
	r := rs.Rules[0]
	if r.Pattern != "Cargo.toml" || r.Level != 1 || r.Required != 1 {
		t.Errorf("rule = %+v", r)
	}
	if !r.HasReviewer("alice") || r.HasReviewer("bob") {
		t.Errorf("reviewers = %v", r.Reviewers)
	}
	if !Match(r.Pattern, "Cargo.toml") {
		t.Error("pattern should match Cargo.toml")
	}
	if Match(r.Pattern, "src/Cargo.toml") {
		t.Error("pattern should not match src/Cargo.toml")
	}
}

func TestParse_CommentsAndBlanks(t *testing.T) {
	text := `
# full line comment
*.proto !! 1 alice,charlie  # trailing comment

src/* ! 2 alice,bob
`
	rs, err := ParseString(text)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if len(rs.Rules) != 2 {
		t.Fatalf("got %d rules, want 2", len(rs.Rules))
	}
	if rs.Rules[0].Level != 2 {
		t.Errorf("Level = %d, want 2", rs.Rules[0].Level)
	}
	if len(rs.Rules[0].Reviewers) != 2 {
		t.Errorf("Reviewers = %v", rs.Rules[0].Reviewers)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		text string
		line int
	}{
		{"too few fields", "src/* ! 1\n", 1},
		{"bad scrutiny", "src/* ？ 1 alice\n", 1},
		{"non-integer count", "src/* ! one alice\n", 1},
		{"zero count", "src/* ! 0 alice\n", 1},
		{"empty reviewers", "src/* ! 1 ,,\n", 1},
		{"error after valid line", "src/* ! 1 alice\nbroken line\n", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseString(tt.text)
			if err == nil {
				t.Fatal("expected parse error")
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("error type = %T, want *ParseError", err)
			}
			if pe.Line != tt.line {
				t.Errorf("Line = %d, want %d", pe.Line, tt.line)
			}
		})
	}
}

func TestParse_NoPartialRuleSet(t *testing.T) {
	rs, err := ParseString("src/* ! 1 alice\nbroken\n")
	if err == nil {
		t.Fatal("expected parse error")
	}
	if rs != nil {
		t.Error("malformed file must not produce a partial rule set")
	}
}

func TestParse_UnsatisfiableAccepted(t *testing.T) {
	rs, err := ParseString("src/* ! 3 alice,bob\n")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if !rs.Rules[0].Unsatisfiable() {
		t.Error("rule requiring 3 of 2 reviewers should report unsatisfiable")
	}
}

func TestParse_DuplicateReviewersCollapsed(t *testing.T) {
	rs, err := ParseString("src/* ! 1 alice,alice,bob\n")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if got := len(rs.Rules[0].Reviewers); got != 2 {
		t.Errorf("got %d reviewers, want 2", got)
	}
}

func TestLevelSatisfies(t *testing.T) {
	for need := Level(1); need <= 3; need++ {
		if (need - 1).Satisfies(need) {
			t.Errorf("level %d should not satisfy need %d", need-1, need)
		}
		if !need.Satisfies(need) {
			t.Errorf("level %d should satisfy need %d", need, need)
		}
		if !(need + 1).Satisfies(need) {
			t.Errorf("level %d should satisfy need %d", need+1, need)
		}
	}
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("!!")
	if err != nil || lvl != 2 {
		t.Errorf("ParseLevel(!!) = %d, %v", lvl, err)
	}
	if _, err := ParseLevel(""); err == nil {
		t.Error("empty marker should fail")
	}
	if _, err := ParseLevel("!?"); err == nil {
		t.Error("mixed marker should fail")
	}
	if got := Level(3).String(); got != "!!!" {
		t.Errorf("Level(3).String() = %q", got)
	}
}

func TestMatching_AllRulesApply(t *testing.T) {
	rs, err := ParseString("src/* ! 1 alice,bob\n*.proto !! 1 alice,charlie\nsrc/* !! 2 daisuke,erin\n")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	got := rs.Matching("src/schema.proto")
	if len(got) != 3 {
		t.Fatalf("got %d matching rules, want 3 (no cascade, all matches apply)", len(got))
	}
	if got := rs.Matching("README.md"); got != nil {
		t.Errorf("README.md should match no rules, got %v", got)
	}
}
