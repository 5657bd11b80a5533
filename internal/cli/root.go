// Package cli implements stationctl, the operator tool for rendering
// payloads against a simulated host and managing the stock catalog.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matthewbaird/stationcu/internal/config"
	"github.com/matthewbaird/stationcu/internal/logging"
)

type App struct {
	ConfigFile string
	EnvFile    string
	LogLevel   string
	JSON       bool

	cfg config.Config
	log *zap.Logger
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "stationctl",
		Short:        "Station materials operator tool",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Render the bundled sample activity through a simulated host
  stationctl render

  # Render a payload file as user E81049, expanding one station
  stationctl render --payload stations.xml --user E81049 --expand STN002

  # Search the stock catalog
  stationctl search --desc "anchor guy"

  # Load a catalog JSON file into SQLite
  stationctl catalog import catalog.json --db catalog.db
`),
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(config.Options{ConfigFile: app.ConfigFile, EnvFile: app.EnvFile})
		if err != nil {
			return writeErr(cmd, err)
		}
		log, err := logging.New(logging.Config{Level: app.LogLevel, Format: "console", OutputPath: "stderr"})
		if err != nil {
			return writeErr(cmd, err)
		}
		app.cfg = cfg
		app.log = log
		return nil
	}

	cmd.PersistentFlags().StringVar(&app.ConfigFile, "config", envOr("CONFIG_FILE", ""), "CUE config file unified with the built-in schema")
	cmd.PersistentFlags().StringVar(&app.EnvFile, "env-file", "", "Environment file (default: .env when present)")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", envOr("STATIONCTL_LOG_LEVEL", "warn"), "Log level written to stderr")
	cmd.PersistentFlags().BoolVar(&app.JSON, "json", false, "Write JSON instead of styled text")

	cmd.AddCommand(newRenderCmd(app))
	cmd.AddCommand(newSearchCmd(app))
	cmd.AddCommand(newCatalogCmd(app))

	return cmd
}

// logger is usable before PersistentPreRunE has run, e.g. in tests that
// call a RunE directly.
func (a *App) logger() *zap.Logger {
	if a.log == nil {
		return zap.NewNop()
	}
	return a.log
}

func envOr(name, def string) string {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		return v
	}
	return def
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeOut writes v as JSON, or text when JSON output is off.
func writeOut(cmd *cobra.Command, app *App, v any, text func() string) error {
	if app.JSON || text == nil {
		return writeJSON(cmd, v)
	}
	_, err := fmt.Fprint(cmd.OutOrStdout(), text())
	return err
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
