package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tinytelemetry/edetail/internal/model"
)

const (
	defaultServerURL        = "http://127.0.0.1:3000"
	defaultConfigRetryLimit = 0 // retry until interrupted
)

// clientConfig holds the presentation client's settings.
type clientConfig struct {
	ServerURL        string        `mapstructure:"server-url" validate:"required,url"`
	SitemapPath      string        `mapstructure:"sitemap-path" validate:"required"`
	FetchTimeout     time.Duration `mapstructure:"fetch-timeout" validate:"gt=0"`
	RetryLimit       int           `mapstructure:"retry-limit" validate:"gte=0"`
	RetryInitial     time.Duration `mapstructure:"retry-initial" validate:"gte=0"`
	RetryMax         time.Duration `mapstructure:"retry-max" validate:"gte=0"`
	ConfigRetryLimit uint          `mapstructure:"config-retry-limit"`
	LogFile          string        `mapstructure:"log-file"`

	Settings model.Settings `mapstructure:",squash"`

	ConfigPath string `mapstructure:"-"`
}

func defaultLogFile(home string) string {
	return filepath.Join(home, ".local", "state", "edetail", "edetail.log")
}

// registerFlags declares the command-line overrides. Every flag is bound to
// the viper key of the same name.
func registerFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "config file (default is $HOME/.config/edetail/config.yml)")
	fs.String("server-url", defaultServerURL, "content server base URL")
	fs.String("sitemap-path", model.DefaultSitemapPath, "sitemap document path on the server")
	fs.Bool("debug", false, "enable debug logging and tracking status")
	fs.Bool("preload", false, "accepted for compatibility")
	fs.String("primary", model.DefaultPrimary, "page shown first")
	fs.String("transition", string(model.DefaultTransition), "page transition (R2L, L2R, T2B, B2T, FADE, NONE)")
	fs.String("swipe-path", model.DefaultSwipePath, "path followed by next/prev")
	fs.Bool("lock-nav", model.DefaultLockNav, "lock navigation while a page loads")
	fs.Duration("fetch-timeout", model.DefaultFetchTimeout, "timeout per content request")
	fs.Int("retry-limit", model.DefaultRetryLimit, "page fetch retries before giving up (0 = forever)")
	fs.Duration("retry-initial", model.DefaultRetryInitial, "first retry delay")
	fs.Duration("retry-max", model.DefaultRetryMax, "largest retry delay")
	fs.Uint("config-retry-limit", defaultConfigRetryLimit, "sitemap fetch attempts at startup (0 = until interrupted)")
	fs.String("log-file", "", "log file (default is $HOME/.local/state/edetail/edetail.log)")
}

func loadConfig(fs *pflag.FlagSet) (clientConfig, error) {
	var cfg clientConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("EDETAIL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	if err := v.BindPFlags(fs); err != nil {
		return cfg, err
	}
	v.SetDefault("log-file", defaultLogFile(home))

	configPath := v.GetString("config")
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "edetail", "config.yml"))
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
	if cfg.LogFile == "" {
		cfg.LogFile = defaultLogFile(home)
	}
	if strings.HasPrefix(cfg.LogFile, "~/") {
		cfg.LogFile = filepath.Join(home, cfg.LogFile[2:])
	}

	if err := model.Validator().Struct(&cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.Settings.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
