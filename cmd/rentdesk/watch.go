package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	httpadapter "github.com/artpar/rentdesk/adapters/http"
	"github.com/artpar/rentdesk/bootstrap"
	"github.com/artpar/rentdesk/domain/dashboard"
	"github.com/artpar/rentdesk/domain/querystate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep a dashboard live and serve operator endpoints",
	Long: `Refresh a dashboard on an interval through the shared query cache.

With metrics enabled (metrics.enabled or --listen), an operator server runs
alongside:
  GET  /health, /health/live, /version
  GET  /metrics                      Prometheus metrics
  GET  /debug/cache                  cache entries
  POST /debug/cache/invalidate?tag=  invalidate by tag (e.g. Vehicle:42)
  GET  /debug/endpoints              registry and tag audit

The configuration file is watched; logging.level and cache.stale_time
apply without a restart (also on SIGHUP).

Examples:
  rentdesk watch --view admin --interval 30s
  rentdesk watch --view user --listen 127.0.0.1:9464`,
	RunE: runWatch,
}

var (
	watchView     string
	watchInterval time.Duration
	watchListen   string
)

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchView, "view", "admin", "dashboard to show: admin or user")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 30*time.Second, "refresh interval")
	watchCmd.Flags().StringVar(&watchListen, "listen", "", "operator server address (overrides metrics.listen)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchView != "admin" && watchView != "user" {
		return fmt.Errorf("--view must be admin or user, got %q", watchView)
	}
	if watchInterval <= 0 {
		return fmt.Errorf("--interval must be positive")
	}

	opts := bootstrap.Options{ConfigPath: cfgFile, Watch: true}
	if !quiet {
		opts.Notify = printNotice
	}
	app, err := bootstrap.New(cmd.Context(), opts)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer func() {
		if err := app.Shutdown(10 * time.Second); err != nil {
			app.Logger.Error().Err(err).Msg("shutdown")
		}
	}()

	g, ctx := errgroup.WithContext(cmd.Context())

	if addr := operatorAddr(app); addr != "" {
		srv := newOperatorServer(app, addr)
		g.Go(func() error {
			app.Logger.Info().Str("addr", addr).Msg("operator server listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("operator server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		return refreshLoop(ctx, app)
	})

	return g.Wait()
}

func operatorAddr(app *bootstrap.App) string {
	if watchListen != "" {
		return watchListen
	}
	if app.Config.Metrics.Enabled {
		return app.Config.Metrics.Listen
	}
	return ""
}

func newOperatorServer(app *bootstrap.App, addr string) *http.Server {
	logger := app.Logger.With().Str("component", "http").Logger()
	router := httpadapter.NewRouter(logger, httpadapter.RouterConfig{
		MetricsHandler: promhttp.HandlerFor(app.Gatherer, promhttp.HandlerOpts{}),
		MetricsPath:    app.Config.Metrics.Path,
		Debug:          httpadapter.NewDebugHandler(app.Cache, app.API.Registry(), logger),
		Version:        version,
	})
	return &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// refreshLoop renders the dashboard until ctx is cancelled. Refreshes go
// through the cache, so data younger than cache.stale_time is reused.
func refreshLoop(ctx context.Context, app *bootstrap.App) error {
	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	for {
		if err := renderView(ctx, app); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func renderView(ctx context.Context, app *bootstrap.App) error {
	if tableOutput() {
		fmt.Print("\033[H\033[2J")
		fmt.Printf("rentdesk %s dashboard  %s  (every %s, Ctrl-C to quit)\n\n",
			watchView, time.Now().Format("15:04:05"), watchInterval)
	}

	if watchView == "user" {
		d, status := app.API.UserDashboard(ctx)
		if status == querystate.Idle {
			fmt.Println("Not signed in: waiting for 'rentdesk session login'.")
			return nil
		}
		warnFallbacks(d.Errors)
		return printUserDashboard(d)
	}

	d, _ := app.API.AdminDashboard(ctx, dashboard.RevenueSearch{Period: revenuePeriod})
	warnFallbacks(d.Errors)
	return printAdminDashboard(d)
}
