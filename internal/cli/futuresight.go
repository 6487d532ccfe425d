package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"tftstocks/internal/app"
	"tftstocks/internal/domain"
	"tftstocks/internal/draft"
)

// NewFutureSightCmd groups the Future Sight subcommands.
func NewFutureSightCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "futuresight",
		Aliases: []string{"ffs"},
		Short:   "Rank players before the tournament",
	}
	cmd.AddCommand(newFutureSightShowCmd(configPath))
	cmd.AddCommand(newFutureSightSubmitCmd(configPath))
	cmd.AddCommand(newFutureSightStandingsCmd(configPath))
	return cmd
}

func newFutureSightShowCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the player pool, your ranking and the tiebreakers",
		RunE: func(cmd *cobra.Command, args []string) error {
			page, cleanup, err := openPage(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer cleanup()
			return printPage(cmd.OutOrStdout(), page.Snapshot())
		},
	}
}

func newFutureSightSubmitCmd(configPath *string) *cobra.Command {
	var ranking []int
	var answers []string
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit eight player ids in rank order with tiebreaker answers",
		Example: `  tftstocks futuresight submit --rank 12,4,9,1,33,7,2,18 \
    --answer 0=3 --answer "2=Dishsoap" --answer 3=31`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(ranking) != draft.SlotCount {
				return fmt.Errorf("expected %d player ids, got %d", draft.SlotCount, len(ranking))
			}
			parsed, err := parseAnswers(answers)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			page, cleanup, err := openPage(ctx, *configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := fillPage(ctx, page, ranking, parsed); err != nil {
				return err
			}
			if err := page.Submit(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "future sight submitted")
			return printPage(cmd.OutOrStdout(), page.Snapshot())
		},
	}
	cmd.Flags().IntSliceVar(&ranking, "rank", nil, "player ids for ranks 1..8")
	cmd.Flags().StringArrayVar(&answers, "answer", nil, "tiebreaker answer as index=value (repeatable)")
	return cmd
}

func newFutureSightStandingsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "standings",
		Short: "Show Future Sight points by user",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := loadDeps(*configPath)
			if err != nil {
				return err
			}
			standings, err := d.client.Standings(cmd.Context())
			if err != nil {
				return err
			}
			sort.SliceStable(standings, func(i, j int) bool {
				return standings[i].CurrentPoints > standings[j].CurrentPoints
			})
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "#\tUSER\tPOINTS\tPICKS")
			for i, s := range standings {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, s.Username, humanize.CommafWithDigits(s.CurrentPoints, 1), pickNames(s.Picks))
			}
			return w.Flush()
		},
	}
}

// openPage loads the caller's page with drafts wired from config.
func openPage(ctx context.Context, configPath string) (*app.FutureSightPage, func(), error) {
	d, err := loadDeps(configPath)
	if err != nil {
		return nil, nil, err
	}
	if err := d.connect(ctx); err != nil {
		return nil, nil, err
	}
	drafts, err := d.drafts()
	if err != nil {
		d.close()
		return nil, nil, err
	}
	page := app.NewFutureSightPage(d.client, app.PageOptions{User: d.user(), Drafts: drafts, Log: d.log})
	if err := page.Load(ctx); err != nil {
		d.close()
		if msg := page.Snapshot().Error; msg != "" {
			return nil, nil, fmt.Errorf("%s: %w", msg, err)
		}
		return nil, nil, err
	}
	page.WaitDetails()
	return page, d.close, nil
}

// fillPage clears the board, places ranking in order and applies answers.
func fillPage(ctx context.Context, page *app.FutureSightPage, ranking []int, answers map[int]string) error {
	for slot := 0; slot < draft.SlotCount; slot++ {
		if err := page.ReturnToPool(ctx, slot); err != nil {
			return err
		}
	}
	for slot, id := range ranking {
		if err := page.Move(ctx, id, draft.FromPool(), slot); err != nil {
			return fmt.Errorf("rank %d (player %d): %w", slot+1, id, err)
		}
	}
	for idx, value := range answers {
		if err := page.Answer(ctx, idx, value); err != nil {
			return fmt.Errorf("answer %d: %w", idx, err)
		}
	}
	return nil
}

func parseAnswers(raw []string) (map[int]string, error) {
	out := make(map[int]string, len(raw))
	for _, a := range raw {
		key, value, ok := strings.Cut(a, "=")
		if !ok {
			return nil, fmt.Errorf("answer %q: want index=value", a)
		}
		idx, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			return nil, fmt.Errorf("answer %q: bad index: %w", a, err)
		}
		out[idx] = strings.TrimSpace(value)
	}
	return out, nil
}

func printPage(out io.Writer, state app.PageState) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	status := "editable"
	if state.ReadOnly {
		status = "submitted (read-only)"
	}
	fmt.Fprintf(w, "Future Sight: %s\n\n", status)

	fmt.Fprintln(w, "RANK\tPLAYER\tID\tMULT")
	for i, p := range state.Board.Slots {
		name, id := "-", ""
		if p != nil {
			name, id = p.DisplayName(), strconv.Itoa(p.ID)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\tx%.1f\n", i+1, name, id, draft.Multiplier(i+1))
	}

	fmt.Fprintf(w, "\nPOOL (%d)\n", len(state.Board.Pool))
	for _, p := range state.Board.Pool {
		fmt.Fprintf(w, "%d\t%s\n", p.ID, p.DisplayName())
	}

	fmt.Fprintln(w, "\nTIEBREAKERS")
	for i, q := range state.Questions {
		answer := q.Answer
		if answer == "" {
			answer = "-"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", i, q.Prompt, answer)
	}
	if state.Detail != nil && state.Selected != nil {
		d := state.Detail
		fmt.Fprintf(w, "\nDETAIL %s: 8h %+.1f  24h %+.1f  3d %+.1f\n", state.Selected.DisplayName(), d.Change8h, d.Change24h, d.Change72h)
	}
	return w.Flush()
}

func pickNames(picks []domain.SubmittedPick) string {
	sorted := make([]domain.SubmittedPick, len(picks))
	copy(sorted, picks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Rank < sorted[j].Rank })
	names := make([]string, 0, len(sorted))
	for _, p := range sorted {
		names = append(names, p.GameName)
	}
	return strings.Join(names, ", ")
}
