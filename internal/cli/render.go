package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/matthewbaird/stationcu/internal/catalog"
	"github.com/matthewbaird/stationcu/internal/fixture"
	"github.com/matthewbaird/stationcu/internal/hostproto"
	"github.com/matthewbaird/stationcu/internal/session"
	"github.com/matthewbaird/stationcu/internal/termview"
)

type renderFlags struct {
	payload      string
	aid          string
	user         string
	userName     string
	expand       string
	checkout     string
	hideComplete bool
	hideOthers   bool
	allLines     bool
	width        int
	standalone   bool
	wait         time.Duration
}

func newRenderCmd(app *App) *cobra.Command {
	f := &renderFlags{}
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Load a station payload through a simulated host and print the view",
		Long: `Runs the widget handshake against an in-process host, delivers the payload
in an "open" message and prints the resulting view. With --standalone the host
never answers, the session falls back to standalone mode and the payload is
loaded locally.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runRender(cmd, app, f); err != nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&f.payload, "payload", "", "XML or JSON station payload (default: bundled sample)")
	cmd.Flags().StringVar(&f.aid, "aid", "", "Activity id sent with the open message")
	cmd.Flags().StringVar(&f.user, "user", "", "Host user login")
	cmd.Flags().StringVar(&f.userName, "user-name", "", "Host user display name")
	cmd.Flags().StringVar(&f.expand, "expand", "", "Station to expand")
	cmd.Flags().StringVar(&f.checkout, "checkout", "", "Station to check out as the user before rendering")
	cmd.Flags().BoolVar(&f.hideComplete, "hide-complete", false, "Hide complete stations")
	cmd.Flags().BoolVar(&f.hideOthers, "hide-others", false, "Hide stations checked out by other users")
	cmd.Flags().BoolVar(&f.allLines, "all", false, "Show lines of collapsed stations")
	cmd.Flags().IntVar(&f.width, "width", 0, "Station card width")
	cmd.Flags().BoolVar(&f.standalone, "standalone", false, "Simulate a host that never answers")
	cmd.Flags().DurationVar(&f.wait, "wait", 3*time.Second, "How long to wait for the session to settle")
	return cmd
}

func runRender(cmd *cobra.Command, app *App, f *renderFlags) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	payload := fixture.SampleActivityXML()
	if f.payload != "" {
		b, err := os.ReadFile(f.payload)
		if err != nil {
			return fmt.Errorf("reading payload: %w", err)
		}
		payload = b
	}

	cat, err := catalog.Open(ctx, app.cfg.Catalog.DBPath, app.cfg.Catalog.SearchLimit)
	if err != nil {
		return err
	}

	opts := session.OptionsFromConfig(app.cfg)
	opts.Catalog = cat
	opts.Logger = app.logger()
	opts.FixtureFallback = false
	if f.standalone {
		opts.Host.ReadyRetries = 0
		opts.Host.HostTimeout = 100 * time.Millisecond
	}

	sess := session.NewSession(opts)
	host := startHost(ctx, sess)
	defer host.stop()

	if f.standalone {
		if err := waitFor(ctx, f.wait, "standalone fallback", func() bool {
			return sess.HostState() == hostproto.StateStandalone
		}); err != nil {
			return err
		}
		// a malformed payload is shown as a load error in the view
		_ = sess.Store().LoadFromSource(ctx, payload)
	} else {
		if err := host.handshake(ctx, f.wait); err != nil {
			return err
		}
		if err := host.open(ctx, f.wait, opts.PayloadField, f.aid, f.user, f.userName, payload); err != nil {
			return err
		}
	}

	st := sess.Store()
	if f.checkout != "" {
		if err := st.Checkout(ctx, f.checkout, st.Actor()); err != nil {
			return err
		}
	}
	if f.expand != "" {
		if err := st.Expand(f.expand); err != nil {
			return err
		}
	}
	if f.hideComplete || f.hideOthers {
		st.SetFilters(f.hideComplete, f.hideOthers)
	}

	view := sess.View()
	return writeOut(cmd, app, view, func() string {
		return termview.Render(view, termview.Options{Width: f.width, AllLines: f.allLines})
	})
}
