package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tinytelemetry/edetail/internal/clock"
	"github.com/tinytelemetry/edetail/internal/fetch"
	"github.com/tinytelemetry/edetail/internal/navigator"
	"github.com/tinytelemetry/edetail/internal/session"
	"github.com/tinytelemetry/edetail/internal/sitemap"
	"github.com/tinytelemetry/edetail/internal/tracking"
	"github.com/tinytelemetry/edetail/internal/tui"
)

// runClient owns the terminal until the user quits.
func runClient(parent context.Context, cfg clientConfig) error {
	logger, closeLog, err := openLogger(cfg.LogFile, cfg.Settings.Debug)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	client, err := fetch.New(fetch.Config{
		BaseURL:   cfg.ServerURL,
		UserAgent: "edetail/" + version,
	})
	if err != nil {
		return fmt.Errorf("creating content client: %w", err)
	}

	loop := clock.NewLoop()

	build := func(doc *sitemap.Document) (*session.Session, error) {
		return session.New(doc, session.Config{
			Settings: cfg.Settings,
			Navigator: navigator.Config{
				RevealDelay:  navigator.DefaultConfig().RevealDelay,
				SettleDelay:  navigator.DefaultConfig().SettleDelay,
				RetryLimit:   cfg.RetryLimit,
				RetryInitial: cfg.RetryInitial,
				RetryMax:     cfg.RetryMax,
			},
			FetchTimeout: cfg.FetchTimeout,
		}, session.Deps{
			Scheduler: loop,
			Fetcher:   client,
			Transport: tracking.HTTPTransport{Client: client},
			Logger:    logger,
		})
	}

	splash := tui.NewSplashPage(tui.SplashConfig{
		Ctx:    ctx,
		Loader: client,
		Policy: session.RetryPolicy{
			Path:     cfg.SitemapPath,
			Timeout:  cfg.FetchTimeout,
			MaxTries: cfg.ConfigRetryLimit,
			Initial:  cfg.RetryInitial,
			Max:      cfg.RetryMax,
			Logger:   logger,
		},
		Build: build,
		Next:  tui.PresenterID,
	})
	presenter := tui.NewPresenterPage(tui.PresenterConfig{
		Ctx:    ctx,
		Loop:   loop,
		Debug:  cfg.Settings.Debug,
		Logger: logger,
	})

	logger.Info("client: starting", "server", cfg.ServerURL, "sitemap", cfg.SitemapPath, "config", cfg.ConfigPath)

	app := tui.NewApp(splash, presenter)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	_, runErr := p.Run()
	interrupted := ctx.Err() != nil
	cancel()

	if err := splash.Err(); err != nil {
		return err
	}
	if runErr != nil && !interrupted {
		return runErr
	}
	return nil
}

// openLogger writes structured logs to path; the terminal belongs to the UI.
func openLogger(path string, debug bool) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	return logger, func() { _ = f.Close() }, nil
}
