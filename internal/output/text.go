package output

import (
	"io"
	"strings"

	"github.com/quorumgit/quorum/internal/gitctx"
	"github.com/quorumgit/quorum/internal/policy"
)

// TextWriter outputs a human-readable requirement report.
type TextWriter struct{}

func (t *TextWriter) Write(w io.Writer, report *policy.Report) error {
	ew := &errWriter{w: w}

	ew.printf("Review requirements for %s\n", report.Range.Spec)
	ew.println(strings.Repeat("─", 60))

	if len(report.Paths) == 0 {
		ew.println("No changed path matches any rule. Nothing to approve.")
		return ew.err
	}

	for _, p := range report.Paths {
		marker := "✓"
		if !p.Satisfied() {
			marker = "✗"
		}
		ew.printf("%s %s\n", marker, p.Path)
		for _, rr := range p.Rules {
			if rr.Satisfied {
				ew.printf("    ok    %-20s %s %d  approved by %s\n",
					rr.Rule.Pattern, rr.Rule.Level, rr.Rule.Required,
					strings.Join(rr.Approvers, ", "))
				continue
			}
			if rr.Rule.Unsatisfiable() {
				ew.printf("    needs %-20s %s %d  UNSATISFIABLE (only %d reviewers listed)\n",
					rr.Rule.Pattern, rr.Rule.Level, rr.Rule.Required,
					len(rr.Rule.Reviewers))
				continue
			}
			ew.printf("    needs %-20s %s %d  missing %d of %s\n",
				rr.Rule.Pattern, rr.Rule.Level, rr.Rule.Required,
				rr.Missing(), strings.Join(rr.Candidates(), ", "))
		}
	}

	ew.println(strings.Repeat("─", 60))
	if report.Satisfied() {
		ew.println("All requirements satisfied.")
	} else {
		ew.printf("%d path(s) still need review.\n", len(report.Unsatisfied()))
	}
	return ew.err
}

// WriteCommits renders an unreviewed-commit list, oldest first.
func WriteCommits(w io.Writer, commits []gitctx.CommitInfo) error {
	ew := &errWriter{w: w}
	if len(commits) == 0 {
		ew.println("Nothing to review.")
		return ew.err
	}
	for _, c := range commits {
		short := c.Hash.String()[:10]
		ew.printf("%s %s\n", short, c.Summary)
	}
	ew.printf("%d commit(s) awaiting review.\n", len(commits))
	return ew.err
}
