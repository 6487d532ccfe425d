package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"tftstocks/internal/app"
	"tftstocks/internal/domain"
)

// NewSearchCmd resolves a query to the route the search bar would open.
func NewSearchCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:       "search <players|users> <query>",
		Short:     "Resolve a player or user search",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{string(domain.SearchPlayers), string(domain.SearchUsers)},
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := loadDeps(*configPath)
			if err != nil {
				return err
			}
			service := app.NewSearchService(d.client, d.log)
			input := &app.SearchInput{}
			input.Set(args[1])
			_, err = service.Submit(cmd.Context(), domain.SearchType(args[0]), input, app.NavigatorFunc(func(route string) {
				fmt.Fprintln(cmd.OutOrStdout(), route)
			}))
			return err
		},
	}
}
