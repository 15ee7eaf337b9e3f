package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/quorumgit/quorum/internal/output"
	"github.com/quorumgit/quorum/internal/policy"
)

var flagFormat string

var statusCmd = &cobra.Command{
	Use:   "status [range]",
	Short: "Report which review requirements a range still needs",
	Long: "Status evaluates every changed path in the range against the rule file\n" +
		"and the approval store. It exits 0 only when every matching rule is\n" +
		"satisfied, so it can gate merges directly.",
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
		rs, err := e.loadRules()
		if err != nil {
			return fail(ExitRuntime, err)
		}
		report, err := policy.Evaluate(rs, rng, e.approvals)
		if err != nil {
			return fail(ExitRuntime, err)
		}
		w, err := output.New(flagFormat)
		if err != nil {
			return fail(ExitUsageError, err)
		}
		if err := w.Write(os.Stdout, report); err != nil {
			return fail(ExitRuntime, err)
		}
		if !report.Satisfied() {
			exitCode = ExitUnsatisfied
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&flagFormat, "format", "text", "Output format: text or json")
}
