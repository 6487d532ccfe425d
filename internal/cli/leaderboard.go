package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"tftstocks/internal/app"
	"tftstocks/internal/domain"
)

// NewLeaderboardCmd prints one leaderboard page.
func NewLeaderboardCmd(configPath *string) *cobra.Command {
	var page, limit int
	cmd := &cobra.Command{
		Use:   "leaderboard <standard|portfolio>",
		Short: "Show a leaderboard page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := loadDeps(*configPath)
			if err != nil {
				return err
			}
			if err := d.connect(cmd.Context()); err != nil {
				return err
			}
			defer d.close()
			service := app.NewLeaderboardService(d.leaderboards(d.client))
			result, err := service.Fetch(cmd.Context(), domain.LeaderboardKind(args[0]), "", page, limit)
			if err != nil {
				return err
			}
			return printLeaderboard(cmd, result)
		},
	}
	cmd.Flags().IntVar(&page, "page", app.DefaultLeaderboardPage, "zero-based page")
	cmd.Flags().IntVar(&limit, "limit", app.DefaultLeaderboardPageSize, "entries per page")
	return cmd
}

func printLeaderboard(cmd *cobra.Command, page domain.LeaderboardPage) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	switch page.Kind {
	case domain.LeaderboardPortfolio:
		fmt.Fprintln(w, "RANK\tUSER\tVALUE")
		for _, e := range page.Portfolio {
			fmt.Fprintf(w, "%d\t%s\t%s\n", e.Rank, e.Username, humanize.CommafWithDigits(e.Value, 2))
		}
	default:
		fmt.Fprintln(w, "RANK\tPLAYER\tLP\t8H\t24H\t3D")
		for _, e := range page.Standard {
			fmt.Fprintf(w, "%d\t%s#%s\t%s\t%+.1f\t%+.1f\t%+.1f\n",
				e.Rank, e.GameName, e.TagLine, humanize.Comma(int64(e.LP)), e.Delta8h, e.Delta24h, e.Delta72h)
		}
	}
	fmt.Fprintf(w, "\n%d of %d entries\n", page.Len(), page.TotalEntries)
	return w.Flush()
}
