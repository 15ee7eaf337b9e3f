package policy

import (
	"sort"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/quorumgit/quorum/internal/approvals"
	"github.com/quorumgit/quorum/internal/gitctx"
	"github.com/quorumgit/quorum/internal/rules"
)

// ApprovalSource is the read side of the approval store.
type ApprovalSource interface {
	For(content plumbing.Hash) ([]approvals.Record, error)
}

// RuleResult is one rule applied to one changed path.
type RuleResult struct {
	Rule      rules.Rule
	Approvers []string // distinct qualifying reviewers
	Satisfied bool
}

// Missing returns how many more qualifying approvals the rule needs.
func (r RuleResult) Missing() int {
	n := r.Rule.Required - len(r.Approvers)
	if n < 0 {
		return 0
	}
	return n
}

// Candidates returns the rule's reviewers who have not yet approved.
func (r RuleResult) Candidates() []string {
	counted := make(map[string]bool, len(r.Approvers))
	for _, name := range r.Approvers {
		counted[name] = true
	}
	var out []string
	for _, name := range r.Rule.Reviewers {
		if !counted[name] {
			out = append(out, name)
		}
	}
	return out
}

// PathReport collects every matching rule for one changed path.
type PathReport struct {
	Path  string
	Blob  plumbing.Hash
	Rules []RuleResult
}

// Satisfied reports whether every matching rule for the path is met.
func (p PathReport) Satisfied() bool {
	for _, r := range p.Rules {
		if !r.Satisfied {
			return false
		}
	}
	return true
}

// Report is the requirement report for a whole range. Derived, never
// persisted.
type Report struct {
	Range *gitctx.Range
	Paths []PathReport
}

// Satisfied reports whether the range passes: every (path, rule) pair
// met. A range matching no rules passes trivially.
func (r *Report) Satisfied() bool {
	for _, p := range r.Paths {
		if !p.Satisfied() {
			return false
		}
	}
	return true
}

// Unsatisfied returns the paths with at least one unmet rule.
func (r *Report) Unsatisfied() []PathReport {
	var out []PathReport
	for _, p := range r.Paths {
		if !p.Satisfied() {
			out = append(out, p)
		}
	}
	return out
}

// Evaluate builds the requirement report for a range. Every rule
// matching a changed path applies independently; an approval counts
// toward a rule only if its reviewer is in the rule's set and its
// scrutiny satisfies the rule's level, and each reviewer counts once
// per rule no matter how many records they left.
func Evaluate(rs *rules.RuleSet, rng *gitctx.Range, store ApprovalSource) (*Report, error) {
	report := &Report{Range: rng}
	for _, file := range rng.Files {
		matching := rs.Matching(file.Path)
		if len(matching) == 0 {
			continue
		}
		recs, err := store.For(file.Blob)
		if err != nil {
			return nil, err
		}
		pr := PathReport{Path: file.Path, Blob: file.Blob}
		for _, rule := range matching {
			approvers := make(map[string]bool)
			for _, rec := range recs {
				if !rule.HasReviewer(rec.Reviewer) {
					continue
				}
				if !rec.Level.Satisfies(rule.Level) {
					continue
				}
				approvers[rec.Reviewer] = true
			}
			names := make([]string, 0, len(approvers))
			for name := range approvers {
				names = append(names, name)
			}
			sort.Strings(names)
			pr.Rules = append(pr.Rules, RuleResult{
				Rule:      rule,
				Approvers: names,
				Satisfied: len(names) >= rule.Required,
			})
		}
		report.Paths = append(report.Paths, pr)
	}
	return report, nil
}

// DefaultLevel picks the scrutiny an approval defaults to for a path:
// the level of the lowest unsatisfied matching rule, or 1 when every
// matching rule is already met (or none matches).
func DefaultLevel(rs *rules.RuleSet, file gitctx.ChangedFile, store ApprovalSource) (rules.Level, error) {
	matching := rs.Matching(file.Path)
	if len(matching) == 0 {
		return 1, nil
	}
	recs, err := store.For(file.Blob)
	if err != nil {
		return 0, err
	}
	best := rules.Level(0)
	for _, rule := range matching {
		approvers := make(map[string]bool)
		for _, rec := range recs {
			if rule.HasReviewer(rec.Reviewer) && rec.Level.Satisfies(rule.Level) {
				approvers[rec.Reviewer] = true
			}
		}
		if len(approvers) >= rule.Required {
			continue
		}
		if best == 0 || rule.Level < best {
			best = rule.Level
		}
	}
	if best == 0 {
		best = 1
	}
	return best, nil
}
