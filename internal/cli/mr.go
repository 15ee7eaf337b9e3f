package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quorumgit/quorum/internal/cache"
	"github.com/quorumgit/quorum/internal/gitlab"
	"github.com/quorumgit/quorum/internal/policy"
)

var (
	flagMRCached bool
	flagMRHidden bool
)

var mrCmd = &cobra.Command{
	Use:   "mr",
	Short: "List open merge requests with their review state",
	Long: "Mr fetches the tracker's open merge requests and prints each one with\n" +
		"its versions (one base/head pair per push) and how many commits of the\n" +
		"latest version still await review. Drafts and your own MRs are hidden\n" +
		"unless --hidden is given.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return fail(ExitRuntime, err)
		}
		store, err := cache.New(e.cfg.Cache.Enabled, e.cfg.Cache.Dir, e.cfg.Cache.TTLSeconds)
		if err != nil {
			return fail(ExitRuntime, err)
		}
		key := cache.MergeRequestKey(e.cfg.GitLab.Host, e.cfg.GitLab.Project)

		var listing []mrWithVersions
		if flagMRCached {
			payload, ok := store.Get(key, true)
			if !ok {
				return fail(ExitRuntime, fmt.Errorf("no cached merge requests; run without --cached first"))
			}
			if err := json.Unmarshal(payload, &listing); err != nil {
				return fail(ExitRuntime, fmt.Errorf("reading cached merge requests: %w", err))
			}
		} else {
			listing, err = fetchMergeRequests(cmd.Context(), e)
			if err != nil {
				return fail(ExitRuntime, err)
			}
			if payload, err := json.Marshal(listing); err == nil {
				if err := store.Put(key, payload); err != nil {
					fmt.Fprintf(os.Stderr, "warning: caching merge requests: %v\n", err)
				}
			}
		}

		me := e.reviewer()
		shown := 0
		for _, mr := range listing {
			if !flagMRHidden && (mr.Draft || mr.Author == me) {
				continue
			}
			printMR(e, mr)
			shown++
		}
		if shown == 0 {
			fmt.Fprintln(os.Stdout, "No merge requests to show.")
		}
		return nil
	},
}

// mrWithVersions is the cached shape: tracker metadata plus the
// version history quorum actually consumes.
type mrWithVersions struct {
	IID      int              `json:"iid"`
	Title    string           `json:"title"`
	Author   string           `json:"author"`
	Draft    bool             `json:"draft"`
	Branch   string           `json:"branch"`
	Versions []gitlab.Version `json:"versions"`
}

func fetchMergeRequests(ctx context.Context, e *env) ([]mrWithVersions, error) {
	client, err := gitlab.NewClient(e.cfg.GitLab.Host, e.cfg.GitLab.Token, e.cfg.GitLab.Project, e.cfg.Timeout())
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout())
	defer cancel()

	mrs, err := client.ListOpenMergeRequests(ctx)
	if err != nil {
		return nil, err
	}
	var out []mrWithVersions
	for _, mr := range mrs {
		versions, err := client.Versions(ctx, mr.IID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: versions of !%d: %v\n", mr.IID, err)
			continue
		}
		out = append(out, mrWithVersions{
			IID:      mr.IID,
			Title:    mr.Title,
			Author:   mr.Author.Username,
			Draft:    mr.Draft,
			Branch:   mr.SourceBranch,
			Versions: versions,
		})
	}
	return out, nil
}

func printMR(e *env, mr mrWithVersions) {
	fmt.Fprintf(os.Stdout, "!%d %s (@%s)\n", mr.IID, mr.Title, mr.Author)
	for i, v := range mr.Versions {
		line := fmt.Sprintf("  v%d: %.10s..%.10s", i+1, v.Base, v.Head)
		// Count what the local clone still needs to review; versions
		// not fetched locally just print without a count.
		rng, err := e.repo.ResolveRange(v.Base+".."+v.Head, e.cfg.BaseBranch)
		if err == nil {
			unreviewed, err := policy.Unreviewed(e.repo, rng, e.marks, policy.WalkOptions{})
			if err == nil {
				line += fmt.Sprintf("  (%d unreviewed)", len(unreviewed))
			}
		}
		fmt.Fprintln(os.Stdout, line)
	}
}

func init() {
	mrCmd.Flags().BoolVar(&flagMRCached, "cached", false, "Use cached tracker metadata; no network")
	mrCmd.Flags().BoolVar(&flagMRHidden, "hidden", false, "Include drafts and your own merge requests")
}
