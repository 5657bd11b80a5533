package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/matthewbaird/stationcu/internal/catalog"
	"github.com/matthewbaird/stationcu/internal/termview"
	"github.com/matthewbaird/stationcu/internal/types"
)

func newSearchCmd(app *App) *cobra.Command {
	var stock, desc, db string
	var limit int
	cmd := &cobra.Command{
		Use:   "search [description words...]",
		Short: "Search the stock catalog",
		Example: strings.TrimSpace(`
  stationctl search --stock 23130
  stationctl search anchor guy`),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				desc = strings.TrimSpace(desc + " " + strings.Join(args, " "))
			}
			path := db
			if path == "" {
				path = app.cfg.Catalog.DBPath
			}
			if limit <= 0 {
				limit = app.cfg.Catalog.SearchLimit
			}
			cat, err := catalog.Open(cmd.Context(), path, limit)
			if err != nil {
				return writeErr(cmd, err)
			}
			results := cat.Search(stock, desc)
			if results == nil {
				results = []types.CatalogEntry{}
			}
			return writeOut(cmd, app, map[string]any{
				"results": results,
				"count":   len(results),
			}, func() string { return termview.Entries(results) })
		},
	}
	cmd.Flags().StringVar(&stock, "stock", "", "Stock number substring")
	cmd.Flags().StringVar(&desc, "desc", "", "Description words, all required")
	cmd.Flags().StringVar(&db, "db", "", "Catalog database (default: configured or embedded catalog)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum results")
	return cmd
}
