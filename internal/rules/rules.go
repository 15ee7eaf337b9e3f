package rules

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
)

// Level is the ordinal scrutiny required by (or granted in) a review.
// Levels form a total order; level n is written as n exclamation marks.
type Level int

// Satisfies reports whether a review at this level counts toward a
// requirement at level need.
func (l Level) Satisfies(need Level) bool {
	return l >= need
}

func (l Level) String() string {
	if l < 1 {
		return "!"
	}
	return strings.Repeat("!", int(l))
}

// ParseLevel parses a scrutiny marker: one or more '!' characters,
// level = count.
func ParseLevel(s string) (Level, error) {
	if s == "" || strings.Trim(s, "!") != "" {
		return 0, fmt.Errorf("scrutiny must be one or more '!', got %q", s)
	}
	return Level(len(s)), nil
}

// Rule requires `Required` distinct members of `Reviewers` to approve
// at or above `Level` any path matching `Pattern`. Immutable once
// parsed.
type Rule struct {
	Pattern   string
	Level     Level
	Required  int
	Reviewers []string
}

// HasReviewer reports whether name belongs to the rule's reviewer set.
func (r Rule) HasReviewer(name string) bool {
	for _, rev := range r.Reviewers {
		if rev == name {
			return true
		}
	}
	return false
}

// Unsatisfiable reports whether the rule can never be met because it
// requires more approvals than it has reviewers. Such rules load fine
// and simply evaluate as permanently unsatisfied.
func (r Rule) Unsatisfiable() bool {
	return r.Required > len(r.Reviewers)
}

func (r Rule) String() string {
	return fmt.Sprintf("%s\t%s\t%d\t%s", r.Pattern, r.Level, r.Required, strings.Join(r.Reviewers, ","))
}

// RuleSet is an ordered sequence of rules. Order affects display only;
// all matching rules apply to a path independently.
type RuleSet struct {
	Rules []Rule
}

// ParseError reports a malformed rule line. Any malformed line fails
// the whole load; no partial rule set is produced.
type ParseError struct {
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("rule line %d: %s", e.Line, e.Reason)
}

// Parse reads a rule file. It returns a *ParseError naming the first
// offending line on any malformed field.
func Parse(r io.Reader) (*RuleSet, error) {
	rs := &RuleSet{}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		rule, err := parseRule(line)
		if err != nil {
			return nil, &ParseError{Line: lineNo, Reason: err.Error()}
		}
		if rule.Unsatisfiable() {
			slog.Warn("unsatisfiable rule",
				slog.Int("line", lineNo),
				slog.String("pattern", rule.Pattern),
				slog.Int("required", rule.Required),
				slog.Int("reviewers", len(rule.Reviewers)))
		}
		rs.Rules = append(rs.Rules, rule)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading rules: %w", err)
	}
	return rs, nil
}

// ParseString parses rule file text.
func ParseString(text string) (*RuleSet, error) {
	return Parse(strings.NewReader(text))
}

func parseRule(line string) (Rule, error) {
	fields := strings.Fields(line)
	if len(fields) != 4 {
		return Rule{}, fmt.Errorf("want 4 fields (pattern scrutiny required reviewers), got %d", len(fields))
	}
	lvl, err := ParseLevel(fields[1])
	if err != nil {
		return Rule{}, err
	}
	required, err := strconv.Atoi(fields[2])
	if err != nil {
		return Rule{}, fmt.Errorf("required count %q is not an integer", fields[2])
	}
	if required < 1 {
		return Rule{}, fmt.Errorf("required count must be at least 1, got %d", required)
	}
	var reviewers []string
	seen := make(map[string]bool)
	for _, name := range strings.Split(fields[3], ",") {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		reviewers = append(reviewers, name)
	}
	if len(reviewers) == 0 {
		return Rule{}, fmt.Errorf("reviewer list %q is empty", fields[3])
	}
	sort.Strings(reviewers)
	return Rule{
		Pattern:   fields[0],
		Level:     lvl,
		Required:  required,
		Reviewers: reviewers,
	}, nil
}

// Matching returns every rule whose pattern matches path, in
// declaration order.
func (rs *RuleSet) Matching(path string) []Rule {
	var out []Rule
	for _, rule := range rs.Rules {
		if Match(rule.Pattern, path) {
			out = append(out, rule)
		}
	}
	return out
}

func (rs *RuleSet) String() string {
	var b strings.Builder
	for _, rule := range rs.Rules {
		fmt.Fprintln(&b, rule)
	}
	return b.String()
}
