package cli

import (
	"fmt"
	"os"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/spf13/cobra"

	"github.com/quorumgit/quorum/internal/marks"
)

var (
	flagMarkStatus  string
	flagMarkComment string
)

var markCmd = &cobra.Command{
	Use:   "mark <commit>...",
	Short: "Mark commits as reviewed or tested",
	Long: "Mark records that you personally looked at a commit. Tested dominates\n" +
		"Reviewed: re-marking joins with the existing mark and never downgrades\n" +
		"it, no matter who writes in what order.",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return fail(ExitRuntime, err)
		}
		status, err := marks.ParseStatus(flagMarkStatus)
		if err != nil {
			return fail(ExitUsageError, err)
		}
		reviewer := e.reviewer()
		for _, arg := range args {
			hash, err := e.repo.Git().ResolveRevision(plumbing.Revision(arg))
			if err != nil {
				return fail(ExitUsageError, fmt.Errorf("unknown revision %q: %w", arg, err))
			}
			mark := marks.Mark{Status: status, Reviewer: reviewer, Comment: flagMarkComment}
			if err := e.marks.Set(*hash, mark); err != nil {
				return fail(ExitRuntime, fmt.Errorf("marking %s: %w", arg, err))
			}
			fmt.Fprintf(os.Stdout, "%s %s by %s\n", hash.String()[:10], status, reviewer)
		}
		return nil
	},
}

func init() {
	markCmd.Flags().StringVarP(&flagMarkStatus, "status", "s", "reviewed", "Mark status: reviewed, checkpoint, or tested")
	markCmd.Flags().StringVarP(&flagMarkComment, "comment", "m", "", "Optional comment recorded with the mark")
}
