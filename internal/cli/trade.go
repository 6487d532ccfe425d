package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"tftstocks/internal/app"
	"tftstocks/internal/domain"
)

// NewTradeCmd buys or sells player shares with the configured token.
func NewTradeCmd(configPath *string) *cobra.Command {
	var shares int
	cmd := &cobra.Command{
		Use:       "trade <buy|sell> <gameName> <tagLine>",
		Short:     "Buy or sell shares of a player in your current league",
		Example:   `  tftstocks trade buy Dishsoap NA1 --shares 10`,
		Args:      cobra.ExactArgs(3),
		ValidArgs: []string{string(domain.TradeBuy), string(domain.TradeSell)},
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := loadDeps(*configPath)
			if err != nil {
				return err
			}
			trade := domain.Trade{Side: domain.TradeSide(args[0]), GameName: args[1], TagLine: args[2], Shares: shares}
			if err := app.NewTradeService(d.client, d.log).Place(cmd.Context(), trade); err != nil {
				return err
			}
			verb := "bought"
			if trade.Side == domain.TradeSell {
				verb = "sold"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s of %s#%s\n", verb, humanize.Comma(int64(shares)),
				pluralShares(shares), args[1], args[2])
			return nil
		},
	}
	cmd.Flags().IntVar(&shares, "shares", 1, "number of shares")
	return cmd
}

func pluralShares(n int) string {
	if n == 1 {
		return "share"
	}
	return "shares"
}
