package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matthewbaird/stationcu/internal/catalog"
)

func newCatalogCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the stock catalog database",
	}
	cmd.AddCommand(newCatalogImportCmd(app))
	cmd.AddCommand(newCatalogExportCmd(app))
	return cmd
}

func catalogPath(app *App, flag string) string {
	if flag != "" {
		return flag
	}
	if app.cfg.Catalog.DBPath != "" {
		return app.cfg.Catalog.DBPath
	}
	return "catalog.db"
}

func newCatalogImportCmd(app *App) *cobra.Command {
	var db string
	cmd := &cobra.Command{
		Use:   "import <catalog.json>",
		Short: "Replace the catalog database contents with a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			defer f.Close()

			entries, err := catalog.DecodeJSON(f)
			if err != nil {
				return writeErr(cmd, fmt.Errorf("decoding %s: %w", args[0], err))
			}

			path := catalogPath(app, db)
			conn, err := catalog.OpenSQLite(cmd.Context(), path)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer conn.Close()
			if err := catalog.Import(cmd.Context(), conn, entries); err != nil {
				return writeErr(cmd, err)
			}

			app.logger().Sugar().Infow("catalog imported", "db", path, "entries", len(entries))
			return writeOut(cmd, app, map[string]any{"db": path, "imported": len(entries)}, func() string {
				return fmt.Sprintf("imported %d entries into %s\n", len(entries), path)
			})
		},
	}
	cmd.Flags().StringVar(&db, "db", "", "Catalog database (default: configured path or catalog.db)")
	return cmd
}

func newCatalogExportCmd(app *App) *cobra.Command {
	var db string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the catalog as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if db != "" || app.cfg.Catalog.DBPath != "" {
				path = catalogPath(app, db)
			}
			cat, err := catalog.Open(cmd.Context(), path, 0)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeJSON(cmd, cat.Entries())
		},
	}
	cmd.Flags().StringVar(&db, "db", "", "Catalog database (default: configured path or the embedded catalog)")
	return cmd
}
