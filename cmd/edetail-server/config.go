package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tinytelemetry/edetail/internal/model"
)

const (
	defaultAddr                = "0.0.0.0:3000"
	defaultContentDir          = "./content"
	defaultQueryTimeout        = 30 * time.Second
	defaultInsertBatchSize     = 500
	defaultInsertFlushInterval = 250 * time.Millisecond
	defaultInsertFlushQueue    = 64
	defaultEventRetention      = 90 // days, 0 = disabled
	defaultBackupInterval      = 6 * time.Hour
	defaultBackupKeepLast      = 24
)

// serverConfig is the runtime configuration of the content server.
type serverConfig struct {
	Addr                string        `mapstructure:"addr" validate:"required"`
	ContentDir          string        `mapstructure:"content-dir" validate:"required"`
	SitemapFile         string        `mapstructure:"sitemap-file" validate:"required"`
	DBPath              string        `mapstructure:"db-path"`
	QueryTimeout        time.Duration `mapstructure:"query-timeout" validate:"gt=0"`
	InsertBatchSize     int           `mapstructure:"insert-batch-size" validate:"gt=0"`
	InsertFlushInterval time.Duration `mapstructure:"insert-flush-interval" validate:"gt=0"`
	InsertFlushQueue    int           `mapstructure:"insert-flush-queue-size" validate:"gt=0"`
	JournalEnabled      bool          `mapstructure:"journal-enabled"`
	JournalPath         string        `mapstructure:"journal-path" validate:"required_if=JournalEnabled true"`
	EventRetention      int           `mapstructure:"event-retention" validate:"gte=0"`
	Watch               bool          `mapstructure:"watch"`
	BackupEnabled       bool          `mapstructure:"backup-enabled"`
	BackupInterval      time.Duration `mapstructure:"backup-interval" validate:"gte=0"`
	BackupDir           string        `mapstructure:"backup-dir" validate:"required_if=BackupEnabled true"`
	BackupKeepLast      int           `mapstructure:"backup-keep-last" validate:"gte=0"`
	LogLevel            string        `mapstructure:"log-level" validate:"oneof=debug info warn error"`
	ConfigPath          string        `mapstructure:"-"` // not from config file
}

// Level maps log-level onto slog.
func (c serverConfig) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func registerFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "config file (default is $HOME/.config/edetail/server.yml)")
	fs.String("addr", defaultAddr, "HTTP listen address")
	fs.String("content-dir", defaultContentDir, "directory holding the sitemap and page fragments")
	fs.String("sitemap-file", model.DefaultSitemapPath, "sitemap source relative to content-dir (.json or .yml)")
	fs.String("db-path", "", "DuckDB file (default is $HOME/.local/share/edetail/edetail.duckdb)")
	fs.Duration("query-timeout", defaultQueryTimeout, "timeout for database reads")
	fs.Int("insert-batch-size", defaultInsertBatchSize, "events per batched insert")
	fs.Duration("insert-flush-interval", defaultInsertFlushInterval, "flush partial batches after this long")
	fs.Int("insert-flush-queue-size", defaultInsertFlushQueue, "batches waiting for the writer before backpressure")
	fs.Bool("journal-enabled", true, "journal received events before they are stored")
	fs.String("journal-path", "", "journal file (default is $HOME/.local/share/edetail/events.journal)")
	fs.Int("event-retention", defaultEventRetention, "days to keep clickstream events (0 = forever)")
	fs.Bool("watch", true, "reload the sitemap when content-dir changes")
	fs.Bool("backup-enabled", false, "take periodic database snapshots")
	fs.Duration("backup-interval", defaultBackupInterval, "time between snapshots")
	fs.String("backup-dir", "", "snapshot directory (default is $HOME/.local/share/edetail/backups)")
	fs.Int("backup-keep-last", defaultBackupKeepLast, "snapshots to keep")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
}

func loadConfig(fs *pflag.FlagSet) (serverConfig, error) {
	var cfg serverConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}
	dataDir := filepath.Join(home, ".local", "share", "edetail")

	v := viper.New()
	v.SetEnvPrefix("EDETAIL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	if err := v.BindPFlags(fs); err != nil {
		return cfg, err
	}

	if configPath := v.GetString("config"); configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "edetail", "server.yml"))
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	cfg.ConfigPath = v.ConfigFileUsed()
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(dataDir, "edetail.duckdb")
	}
	if cfg.JournalPath == "" {
		cfg.JournalPath = filepath.Join(dataDir, "events.journal")
	}
	if cfg.BackupDir == "" {
		cfg.BackupDir = filepath.Join(dataDir, "backups")
	}

	// Expand ~ in paths
	for _, p := range []*string{&cfg.ContentDir, &cfg.DBPath, &cfg.JournalPath, &cfg.BackupDir} {
		if strings.HasPrefix(*p, "~/") {
			*p = filepath.Join(home, (*p)[2:])
		}
	}

	if err := model.Validator().Struct(&cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
