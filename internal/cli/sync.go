package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quorumgit/quorum/internal/replicate"
)

var flagSyncNoPush bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Exchange approvals and marks with the remote",
	Long: "Sync fetches the remote's annotation namespaces, merges them into the\n" +
		"local ones (approvals by set union, marks by lattice join, so nothing\n" +
		"is ever lost or downgraded), and pushes the result back. Concurrent\n" +
		"writers are handled by bounded compare-and-swap retries.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return fail(ExitRuntime, err)
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), e.cfg.Timeout())
		defer cancel()

		transport := replicate.NewGitTransport(e.repo.Git(), e.cfg.Remote, e.cfg.NotesPrefix)
		syncer := replicate.New(e.repo.Git(), e.cfg.NotesPrefix, e.repo.Signature(), transport)
		err = syncer.Sync(ctx, replicate.Options{
			Push:    !flagSyncNoPush,
			Retries: e.cfg.SyncRetries,
		})
		if err != nil {
			switch {
			case errors.Is(err, replicate.ErrConflict):
				return fail(ExitConflict, fmt.Errorf("%w (local writes are intact; run sync again)", err))
			case errors.Is(err, replicate.ErrTimeout), errors.Is(err, replicate.ErrCancelled):
				return fail(ExitRuntime, err)
			default:
				return fail(ExitRuntime, err)
			}
		}
		fmt.Fprintln(os.Stdout, "sync complete")
		return nil
	},
}

func init() {
	syncCmd.Flags().BoolVar(&flagSyncNoPush, "no-push", false, "Fetch and merge only; do not publish to the remote")
}
