// Package bootstrap wires all dependencies: config, logging, metrics, the
// event bus, the session source, the query cache and the typed API.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/artpar/rentdesk/adapters/memory"
	"github.com/artpar/rentdesk/adapters/metrics"
	"github.com/artpar/rentdesk/adapters/redisstore"
	"github.com/artpar/rentdesk/adapters/remote"
	"github.com/artpar/rentdesk/adapters/seal"
	"github.com/artpar/rentdesk/adapters/sqlite"
	"github.com/artpar/rentdesk/app"
	"github.com/artpar/rentdesk/config"
	"github.com/artpar/rentdesk/core/events"
	"github.com/artpar/rentdesk/core/querycache"
	"github.com/artpar/rentdesk/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

// ErrAudit is returned when the endpoint registry leaves queries stale after
// a mutation.
var ErrAudit = errors.New("endpoint tag coverage audit failed")

// App is the wired data layer.
type App struct {
	Logger   zerolog.Logger
	Config   *config.Config
	Metrics  *metrics.Collector
	Gatherer prometheus.Gatherer
	Bus      *events.Bus
	Cache    *querycache.Cache
	Session  *memory.Session
	API      *app.API

	holder  *config.Holder
	closers []func() error
}

// Options configures New.
type Options struct {
	// ConfigPath is the YAML file; when missing, RENTDESK_* variables are used.
	ConfigPath string
	// Config skips loading entirely when set.
	Config *config.Config
	// Watch enables hot reload (file changes and SIGHUP) for file configs.
	Watch bool
	// LogOutput defaults to os.Stderr.
	LogOutput io.Writer
	// HTTPClient overrides the transport's client.
	HTTPClient *http.Client
	// Notify receives user-facing notices from the event bus.
	Notify func(Notice)
}

// New loads configuration and wires the application.
func New(ctx context.Context, opts Options) (*App, error) {
	a := &App{}

	cfg, err := a.loadConfig(opts)
	if err != nil {
		return nil, err
	}
	a.Config = cfg

	out := opts.LogOutput
	if out == nil {
		out = os.Stderr
	}
	a.Logger = setupLogger(cfg.Logging, out)
	a.Logger.Debug().Str("base_url", cfg.API.BaseURL).Msg("initializing rentdesk")

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.Metrics = metrics.NewWithRegistry(reg)
	a.Gatherer = reg

	a.Bus = events.NewBus(a.Logger)
	RegisterHooks(a.Bus, a.Logger, opts.Notify)

	store, err := a.openTokenStore(ctx, cfg.Session)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init session store: %w", err)
	}
	a.Session = memory.NewSession(store, a.Bus)
	if err := a.Session.Restore(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("failed to restore session, starting signed out")
	}

	a.Cache = querycache.New(querycache.Options{
		StaleTime:         cfg.Cache.StaleTime,
		GCDelay:           cfg.Cache.GCDelay,
		BackgroundRefetch: cfg.Cache.Background(),
		Bus:               a.Bus,
		Metrics:           a.Metrics,
		Logger:            a.Logger.With().Str("component", "querycache").Logger(),
	})
	a.closers = append(a.closers, func() error { a.Cache.Close(); return nil })

	transport := remote.NewClient(remote.ClientConfig{
		BaseURL:    cfg.API.BaseURL,
		Domains:    cfg.API.Domains,
		Timeout:    cfg.API.Timeout,
		Headers:    cfg.API.Headers,
		HTTPClient: opts.HTTPClient,
		Metrics:    a.Metrics,
		Logger:     a.Logger.With().Str("component", "remote").Logger(),
	})

	a.API, err = app.New(app.Config{
		Cache:     a.Cache,
		Transport: transport,
		Session:   a.Session,
		Logger:    a.Logger,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init api: %w", err)
	}

	if findings := a.API.Registry().Audit(); len(findings) > 0 {
		for _, f := range findings {
			a.Logger.Error().Str("finding", f.String()).Msg("tag coverage gap")
		}
		a.Close()
		return nil, fmt.Errorf("%w: %d finding(s)", ErrAudit, len(findings))
	}

	if a.holder != nil {
		a.watchConfig()
	}

	return a, nil
}

func (a *App) loadConfig(opts Options) (*config.Config, error) {
	if opts.Config != nil {
		return opts.Config, nil
	}

	if opts.Watch && opts.ConfigPath != "" {
		if _, err := os.Stat(opts.ConfigPath); err == nil {
			// The holder logs through a placeholder until the real logger exists.
			h, err := config.NewHolder(opts.ConfigPath, zerolog.Nop())
			if err != nil {
				return nil, err
			}
			a.holder = h
			return h.Get(), nil
		}
	}

	cfg, err := config.LoadWithFallback(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func (a *App) watchConfig() {
	h := a.holder
	h.SetLogger(a.Logger.With().Str("component", "config").Logger())
	h.OnChange(func(cfg *config.Config) {
		a.Metrics.ConfigReloads.Inc()
		applyLogLevel(cfg.Logging.Level)
		a.Cache.SetStaleTime(cfg.Cache.StaleTime)
		a.Config = cfg
	})
	h.OnError(func(error) {
		a.Metrics.ConfigReloadErrors.Inc()
	})
	if err := h.WatchFile(); err != nil {
		a.Logger.Warn().Err(err).Msg("config file watch unavailable, SIGHUP only")
	}
	h.WatchSignals()
	a.closers = append(a.closers, func() error { h.Stop(); return nil })
}

func (a *App) openTokenStore(ctx context.Context, cfg config.SessionConfig) (ports.TokenStore, error) {
	sealer := seal.Sealer{}
	if cfg.Secret != "" {
		sealer = seal.New(cfg.Secret)
	}

	switch cfg.Store {
	case config.StoreSQLite:
		db, err := sqlite.Open(cfg.SQLite.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		if err := db.Migrate(); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		a.Logger.Debug().Str("dsn", cfg.SQLite.DSN).Bool("sealed", sealer.Enabled()).Msg("sqlite session store")
		return sqlite.NewSessionStore(db, sealer), nil

	case config.StoreRedis:
		store, err := redisstore.NewSessionStore(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Key:      cfg.Redis.Key,
			TTL:      cfg.Redis.TTL,
		}, sealer)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		a.Logger.Debug().Str("addr", cfg.Redis.Addr).Bool("sealed", sealer.Enabled()).Msg("redis session store")
		return store, nil

	default:
		return memory.NewTokenStore(), nil
	}
}

// Close releases everything New opened, newest first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Shutdown closes the app, giving background refetches up to timeout.
func (a *App) Shutdown(timeout time.Duration) error {
	done := make(chan error, 1)
	go func() { done <- a.Close() }()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("shutdown timed out after %s", timeout)
	}
}

func setupLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	applyLogLevel(cfg.Level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}

	return zerolog.New(out).With().Timestamp().Logger()
}

func applyLogLevel(levelStr string) {
	level, err := zerolog.ParseLevel(strings.ToLower(levelStr))
	if err != nil || levelStr == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
