package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/JesseRWeigel/stay-focused/pkg/appdir"
	"github.com/JesseRWeigel/stay-focused/pkg/engine"
	"github.com/JesseRWeigel/stay-focused/pkg/feedback"
	"github.com/JesseRWeigel/stay-focused/pkg/identity"
	"github.com/JesseRWeigel/stay-focused/pkg/metrics"
	"github.com/JesseRWeigel/stay-focused/pkg/provider"
	"github.com/JesseRWeigel/stay-focused/pkg/provider/cloud"
	"github.com/prometheus/client_golang/prometheus"
)

type appOptions struct {
	configPath string
	dir        string
	ephemeral  bool
	headless   bool
}

// app holds everything a frontend needs: the loaded config, the engine and
// the resources that must be released on exit.
type app struct {
	cfg        engine.Config
	dir        appdir.Dir
	configPath string // file that feedback.notifications is written back to
	logger     *slog.Logger
	store      identity.Store
	registry   *prometheus.Registry
	notifier   *feedback.ExecNotifier
	haptics    *feedback.BellHaptics
	engine     *engine.Engine

	closers []func() error
}

func openApp(ctx context.Context, opts appOptions) (*app, error) {
	d := appdir.New(opts.dir)
	if err := appdir.EnsureStructure(d); err != nil {
		return nil, err
	}

	a := &app{dir: d}

	configPath := resolveConfigPath(opts.configPath, d)
	cfg := engine.DefaultConfig()
	if configPath != "" {
		loaded, err := engine.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
		a.configPath = configPath
	} else {
		a.configPath = d.ConfigPath()
	}
	cfg.Dir = d.Root()

	if opts.ephemeral {
		cfg.Storage.Driver = identity.DriverMemory
		cfg.Provider.SessionCache = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a.cfg = cfg

	logger, closeLog, err := openLogger(d, cfg.Log.Level, opts.headless)
	if err != nil {
		return nil, err
	}
	a.logger = logger
	a.closers = append(a.closers, closeLog)

	store, err := identity.Open(cfg.Storage.Driver, storePath(d, cfg.Storage.Driver))
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.store = store
	a.closers = append(a.closers, store.Close)

	a.registry = prometheus.NewRegistry()
	collector := metrics.NewCollector(a.registry)

	a.notifier = feedback.NewExecNotifier(cfg.Feedback.NotifyCommand, cfg.Feedback.Notifications, logger)
	a.haptics = &feedback.BellHaptics{W: os.Stderr}

	fbOpts := feedback.Options{
		Threshold:         cfg.Feedback.Threshold,
		Pulse:             cfg.Feedback.Pulse,
		NotifyMinInterval: cfg.Feedback.NotifyMinInterval,
		Haptics:           a.haptics,
		Notifier:          a.notifier,
		Logger:            logger,
	}
	// The TUI paints the alert color itself; headless runs recolor the
	// terminal background instead.
	if opts.headless {
		fbOpts.Indicator = &feedback.TerminalIndicator{W: os.Stdout, Alert: cfg.Feedback.AlertColor}
	}

	eng, err := engine.New(ctx, cfg, engine.Options{
		Store:    store,
		Factory:  providerFactory(cfg, d, logger),
		Feedback: feedback.NewController(fbOpts),
		Metrics:  collector,
		Logger:   logger,
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.engine = eng

	return a, nil
}

// providerFactory returns the cloud provider factory, or nil when no API is
// configured so that only demo mode is available.
func providerFactory(cfg engine.Config, d appdir.Dir, logger *slog.Logger) provider.Factory {
	if cfg.Provider.BaseURL == "" {
		logger.Warn("no provider.base_url configured, only demo mode is available")
		return nil
	}

	client := cloud.NewClient(cfg.Provider.BaseURL, cloud.Auth{
		Key:    cfg.Provider.APIKey,
		Header: cfg.Provider.APIKeyHeader,
	}, nil)

	var sessions *cloud.SessionCache
	if cfg.Provider.SessionCache {
		sessions = cloud.NewSessionCache(d.SessionPath())
	}

	return cloud.NewFactory(cloud.Options{
		Client:   client,
		Sessions: sessions,
		Logger:   logger,
	})
}

// storePath returns the file backing the identity store for driver.
func storePath(d appdir.Dir, driver string) string {
	if driver == identity.DriverFile {
		return d.IdentityPath()
	}
	return d.StatePath()
}

// openLogger writes text logs to the log file while the TUI owns the
// terminal and JSON to stderr in headless mode.
func openLogger(d appdir.Dir, level string, headless bool) (*slog.Logger, func() error, error) {
	lvl, err := engine.ParseLevel(level)
	if err != nil {
		return nil, nil, err
	}

	if headless {
		return newLogger(os.Stderr, lvl, true), func() error { return nil }, nil
	}

	f, err := os.OpenFile(d.LogPath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	return newLogger(f, lvl, false), f.Close, nil
}

func newLogger(w io.Writer, level slog.Level, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// serveStatus starts the HTTP status server when status.addr is set.
func (a *app) serveStatus(ctx context.Context) {
	if a.cfg.Status.Addr == "" {
		return
	}

	srv := metrics.NewServer(metrics.NewRouter(a.engine, a.registry), a.logger)

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.ListenAndServe(ctx, a.cfg.Status.Addr); err != nil {
			a.logger.Error("status server stopped", "error", err)
		}
	}()

	a.closers = append(a.closers, func() error {
		cancel()
		<-done
		return nil
	})
}

// Close stops the engine, then releases resources in reverse order of
// acquisition.
func (a *app) Close() error {
	var errs []error

	if a.engine != nil {
		errs = append(errs, a.engine.Close())
	}
	if a.haptics != nil {
		a.haptics.Cancel()
	}

	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil

	return errors.Join(errs...)
}
