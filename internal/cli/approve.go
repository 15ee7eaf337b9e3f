package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quorumgit/quorum/internal/policy"
	"github.com/quorumgit/quorum/internal/rules"
)

var (
	flagApproveLevel   string
	flagApproveComment string
	flagApproveRange   string
)

var approveCmd = &cobra.Command{
	Use:   "approve <path-or-glob>",
	Short: "Approve the current content of changed files",
	Long: "Approve records that you reviewed the content of the matching changed\n" +
		"files at the range head. The approval is keyed by file content, so it\n" +
		"carries across rebases and amends; any commit with byte-identical\n" +
		"content is already covered.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return fail(ExitRuntime, err)
		}
		rng, err := e.repo.ResolveRange(flagApproveRange, e.cfg.BaseBranch)
		if err != nil {
			return fail(ExitUsageError, err)
		}
		rs, err := e.loadRules()
		if err != nil {
			return fail(ExitRuntime, err)
		}
		var level rules.Level
		if flagApproveLevel != "" {
			level, err = rules.ParseLevel(flagApproveLevel)
			if err != nil {
				return fail(ExitUsageError, err)
			}
		}
		applied, err := policy.Approve(rng, args[0], level, e.reviewer(), flagApproveComment, rs, e.approvals)
		if err != nil {
			if errors.Is(err, policy.ErrNoMatch) {
				return fail(ExitUsageError, err)
			}
			return fail(ExitRuntime, err)
		}
		for _, a := range applied {
			fmt.Fprintf(os.Stdout, "approved %s %s (%s)\n", a.File.Path, a.Level, a.File.Blob.String()[:10])
		}
		return nil
	},
}

func init() {
	approveCmd.Flags().StringVarP(&flagApproveLevel, "level", "l", "", "Scrutiny granted, as '!' marks (default: lowest unsatisfied rule)")
	approveCmd.Flags().StringVarP(&flagApproveComment, "comment", "m", "", "Optional comment recorded with the approval")
	approveCmd.Flags().StringVarP(&flagApproveRange, "range", "r", "", "Range to resolve the target in (default: merge-base with base branch)")
}
