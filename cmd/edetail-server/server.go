package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/tinytelemetry/edetail/internal/backup"
	"github.com/tinytelemetry/edetail/internal/content"
	"github.com/tinytelemetry/edetail/internal/duckdb"
	"github.com/tinytelemetry/edetail/internal/httpserver"
	"github.com/tinytelemetry/edetail/internal/journal"
	"github.com/tinytelemetry/edetail/internal/model"
	"github.com/tinytelemetry/edetail/internal/sitemap"
)

// runServer serves content and collects clickstream events until signalled.
func runServer(cfg serverConfig) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)

	// Initialize DuckDB store
	store, err := duckdb.NewStore(cfg.DBPath, cfg.QueryTimeout)
	if err != nil {
		return fmt.Errorf("failed to initialize DuckDB: %w", err)
	}
	defer store.Close()

	// Open the event journal and store anything a previous run left behind.
	var eventJournal *journal.Journal
	if cfg.JournalEnabled {
		eventJournal, err = journal.Open(cfg.JournalPath)
		if err != nil {
			return fmt.Errorf("failed to open event journal: %w", err)
		}
		defer eventJournal.Close()
		replayed, err := replayUncommittedJournal(eventJournal, store, cfg.InsertBatchSize)
		if err != nil {
			return fmt.Errorf("failed to replay event journal: %w", err)
		}
		if replayed > 0 {
			logger.Info("journal: replayed uncommitted events", "count", replayed)
		}
	}

	insertBuffer := duckdb.NewInsertBuffer(store, duckdb.InsertBufferConfig{
		BatchSize:      cfg.InsertBatchSize,
		FlushInterval:  cfg.InsertFlushInterval,
		FlushQueueSize: cfg.InsertFlushQueue,
		Journal:        eventJournal,
		Logger:         logger,
	})
	defer insertBuffer.Stop()

	retentionCleaner := duckdb.NewRetentionCleaner(store, duckdb.RetentionConfig{
		RetentionDays: cfg.EventRetention,
		Logger:        logger,
	})
	if retentionCleaner != nil {
		defer retentionCleaner.Stop()
	}

	backupManager, err := backup.NewManager(store, backup.Config{
		Enabled:  cfg.BackupEnabled,
		Interval: cfg.BackupInterval,
		LocalDir: cfg.BackupDir,
		KeepLast: cfg.BackupKeepLast,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize backups: %w", err)
	}
	var snapshots httpserver.Snapshots
	if backupManager != nil {
		defer backupManager.Stop()
		snapshots = backupManager
	}

	library, err := content.New(content.Config{
		Dir:         cfg.ContentDir,
		SitemapFile: cfg.SitemapFile,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("failed to open content dir: %w", err)
	}
	defer library.Close()

	apiServer := httpserver.NewServer(cfg.Addr, httpserver.Deps{
		Store:   store,
		Queue:   insertBuffer,
		Library: library,
		Backups: snapshots,
		Logger:  logger,
	})
	metrics := apiServer.Metrics()
	_, loadErr := library.Status()
	metrics.ObserveReload(loadErr)
	library.OnReload(func(_ *sitemap.Document, err error) {
		metrics.ObserveReload(err)
	})

	if err := apiServer.Start(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	defer apiServer.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
			return
		}
		fmt.Println("\nShutting down gracefully... (press Ctrl+C again to force)")
		cancel()

		// Shutdown deadline starts now, not at boot.
		deadline := time.NewTimer(10 * time.Second)
		defer deadline.Stop()

		select {
		case <-sigCh:
			fmt.Println("\nForce shutdown.")
		case <-deadline.C:
			fmt.Println("Shutdown timed out, forcing exit.")
		}
		os.Exit(1)
	}()

	printStartupBanner(cfg, library)

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Watch {
		g.Go(func() error {
			err := library.Watch(gctx, content.DefaultDebounce)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("content: watcher stopped", "err", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server: errgroup exited with error", "err", err)
	}
	return nil
}

// replayUncommittedJournal stores journaled events that never reached the
// database and advances the commit mark after every batch.
func replayUncommittedJournal(j *journal.Journal, store model.EventWriter, batchSize int) (int, error) {
	if j == nil {
		return 0, nil
	}
	if batchSize <= 0 {
		batchSize = defaultInsertBatchSize
	}

	batch := make([]*model.TrackEvent, 0, batchSize)
	batchMaxSeq := uint64(0)
	replayed := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := store.InsertEventBatch(batch); err != nil {
			return err
		}
		if batchMaxSeq > 0 {
			if err := j.Commit(batchMaxSeq); err != nil {
				return err
			}
		}
		replayed += len(batch)
		batch = make([]*model.TrackEvent, 0, batchSize)
		batchMaxSeq = 0
		return nil
	}

	if err := j.Replay(func(seq uint64, ev *model.TrackEvent) error {
		copied := *ev
		batch = append(batch, &copied)
		if seq > batchMaxSeq {
			batchMaxSeq = seq
		}
		if len(batch) >= batchSize {
			return flush()
		}
		return nil
	}); err != nil {
		return replayed, err
	}

	if err := flush(); err != nil {
		return replayed, err
	}
	return replayed, nil
}

func printStartupBanner(cfg serverConfig, library *content.Library) {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	red := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	cyan := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	bold := lipgloss.NewStyle().Bold(true)

	check := green.Render("●")
	dot := dim.Render("●")
	fail := red.Render("●")

	logo := cyan.Bold(true).Render(`
    ╔═╗╔╦╗╔═╗╔╦╗╔═╗╦╦
    ║╣  ║║║╣  ║ ╠═╣║║
    ╚═╝═╩╝╚═╝ ╩ ╩ ╩╩╩═╝`)

	var lines []string
	lines = append(lines, "", logo, "    "+dim.Render("v"+version), "")

	separator := dim.Render("    ─────────────────────────────────")
	lines = append(lines, separator, "")

	lines = append(lines, bold.Render("    Gateway"), "")
	lines = append(lines, fmt.Sprintf("    %s  HTTP API       %s", check, cyan.Render(cfg.Addr)))
	lines = append(lines, fmt.Sprintf("    %s  Metrics        %s", check, cyan.Render("/metrics")))
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Content"), "")
	lines = append(lines, fmt.Sprintf("    %s  Directory      %s", check, dim.Render(shortenPath(library.Dir()))))
	if _, _, ok := library.Document(); ok {
		lines = append(lines, fmt.Sprintf("    %s  Sitemap        %s", check, dim.Render(library.SitemapFile())))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Sitemap        %s", fail, dim.Render(library.SitemapFile()+" (not loaded)")))
	}
	if cfg.Watch {
		lines = append(lines, fmt.Sprintf("    %s  Watch          %s", check, dim.Render("enabled")))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Watch          %s", dot, dim.Render("disabled")))
	}
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Storage"), "")
	lines = append(lines, fmt.Sprintf("    %s  Storage        %s", check, dim.Render(shortenPath(cfg.DBPath))))
	if cfg.JournalEnabled {
		lines = append(lines, fmt.Sprintf("    %s  Journal        %s", check, dim.Render(shortenPath(cfg.JournalPath))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Journal        %s", dot, dim.Render("disabled")))
	}
	if cfg.BackupEnabled {
		lines = append(lines, fmt.Sprintf("    %s  Snapshots      %s", check, dim.Render(shortenPath(cfg.BackupDir))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Snapshots      %s", dot, dim.Render("disabled")))
	}
	if cfg.EventRetention > 0 {
		lines = append(lines, fmt.Sprintf("    %s  Retention      %s", check, dim.Render(fmt.Sprintf("%d days", cfg.EventRetention))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Retention      %s", dot, dim.Render("forever")))
	}
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Config"), "")
	if cfg.ConfigPath != "" {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", check, dim.Render(shortenPath(cfg.ConfigPath))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", dot, dim.Render("default (no file)")))
	}

	lines = append(lines, "", separator, "")
	lines = append(lines, "    "+dim.Render("Press ")+yellow.Render("Ctrl+C")+dim.Render(" to stop"), "")

	fmt.Println(strings.Join(lines, "\n"))
}

func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}
