package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/quorumgit/quorum/internal/output"
	"github.com/quorumgit/quorum/internal/policy"
)

var (
	flagNextAll        bool
	flagNextCheckpoint bool
)

var nextCmd = &cobra.Command{
	Use:   "next [range]",
	Short: "List commits in a range that nobody has marked yet",
	Long: "Next lists the range's commits lacking any review mark, oldest first.\n" +
		"By default merge commits and your own commits are skipped; they are\n" +
		"rarely review material.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return fail(ExitRuntime, err)
		}
		spec := ""
		if len(args) == 1 {
			spec = args[0]
		}
		rng, err := e.repo.ResolveRange(spec, e.cfg.BaseBranch)
		if err != nil {
			return fail(ExitUsageError, err)
		}
		opts := policy.WalkOptions{
			StopAtCheckpoint: flagNextCheckpoint,
		}
		if !flagNextAll {
			opts.SkipMerges = true
			opts.SkipAuthor = e.repo.Signature().Name
		}
		commits, err := policy.Unreviewed(e.repo, rng, e.marks, opts)
		if err != nil {
			return fail(ExitRuntime, err)
		}
		if err := output.WriteCommits(os.Stdout, commits); err != nil {
			return fail(ExitRuntime, err)
		}
		if len(commits) > 0 {
			exitCode = ExitUnsatisfied
		}
		return nil
	},
}

func init() {
	nextCmd.Flags().BoolVarP(&flagNextAll, "all", "a", false, "Include merge commits and your own commits")
	nextCmd.Flags().BoolVar(&flagNextCheckpoint, "stop-at-checkpoint", false, "Ignore everything older than the newest checkpoint mark")
}
