package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

// Exit codes. `status` exits 0 iff every matching rule is satisfied,
// which is what makes it usable as a merge gate.
const (
	ExitSuccess     = 0
	ExitUnsatisfied = 1
	ExitUsageError  = 2
	ExitConflict    = 3
	ExitRuntime     = 4
)

var rootCmd = &cobra.Command{
	Use:   "quorum",
	Short: "Review policy and tracking on top of git notes",
	Long: "Quorum tracks which commits you have reviewed and enforces path-based\n" +
		"review requirements. Approvals attach to file content, so they survive\n" +
		"rebases; all state lives in git notes and syncs through your ordinary\n" +
		"remotes.",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if flagVerbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})))
	},
}

// Global flags
var (
	flagVerbose  bool
	flagRules    string
	flagRulesRev string
	flagBase     string
	flagReviewer string
)

// exitCode is set by command handlers to control the process exit code.
var exitCode = ExitSuccess

// Run executes the root command and returns an exit code.
func Run() int {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagRules, "rules", "", "Rule file path (default MAINTAINERS)")
	rootCmd.PersistentFlags().StringVar(&flagRulesRev, "rules-rev", "", "Revision to read the rule file at (default: working tree)")
	rootCmd.PersistentFlags().StringVar(&flagBase, "base", "", "Default base branch for ranges (default origin/main)")
	rootCmd.PersistentFlags().StringVar(&flagReviewer, "as", "", "Reviewer identity (default: git user.name)")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(markCmd)
	rootCmd.AddCommand(nextCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(mrCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error
		if exitCode == ExitSuccess {
			return ExitUsageError
		}
		return exitCode
	}
	return exitCode
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print quorum version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(os.Stdout, "quorum version %s\n", version)
	},
}

// fail reports err, records code, and returns err so cobra stops the
// command.
func fail(code int, err error) error {
	exitCode = code
	return err
}
