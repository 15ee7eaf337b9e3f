package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rulesCmd = &cobra.Command{
	Use:   "rules [path...]",
	Short: "Show the parsed rule set, or the rules matching given paths",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return fail(ExitRuntime, err)
		}
		rs, err := e.loadRules()
		if err != nil {
			return fail(ExitRuntime, err)
		}
		if len(rs.Rules) == 0 {
			fmt.Fprintf(os.Stdout, "No rules loaded (%s missing or empty).\n", e.cfg.RulesFile)
			return nil
		}
		if len(args) == 0 {
			fmt.Fprint(os.Stdout, rs)
			return nil
		}
		for _, path := range args {
			matching := rs.Matching(path)
			if len(matching) == 0 {
				fmt.Fprintf(os.Stdout, "%s: no matching rules\n", path)
				continue
			}
			fmt.Fprintf(os.Stdout, "%s:\n", path)
			for _, rule := range matching {
				fmt.Fprintf(os.Stdout, "  %s\n", rule)
			}
		}
		return nil
	},
}
