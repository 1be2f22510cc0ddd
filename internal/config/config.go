// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vidgate Contributors

package config

import (
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	vgerr "github.com/vidgate-dev/vidgate/pkg/errors"
)

// Config is the top-level Vidgate configuration.
type Config struct {
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Downloads DownloadsConfig `mapstructure:"downloads"`
	Ops       OpsConfig       `mapstructure:"ops"`

	// Admins are bootstrap admin user ids. Admins added at runtime via
	// /addadmin live in the admin store instead.
	Admins []int64 `mapstructure:"admins"`

	// ChannelsFile optionally seeds the channel registry at start.
	ChannelsFile string `mapstructure:"channels_file"`
}

// TelegramConfig controls the Bot API connection.
type TelegramConfig struct {
	// Token may be empty; the keyring and VIDGATE_TELEGRAM_TOKEN are
	// consulted in that case.
	Token       string `mapstructure:"token"`
	APIBase     string `mapstructure:"api_base"`
	PollTimeout int    `mapstructure:"poll_timeout"`
}

// StorageConfig selects the storage backend and the Telegram storage
// channel used as the media blob store.
type StorageConfig struct {
	Backend          string `mapstructure:"backend"`
	DataDir          string `mapstructure:"data_dir"`
	StorageChannelID int64  `mapstructure:"storage_channel_id"`
}

// DownloadsConfig bounds the download executor.
type DownloadsConfig struct {
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	QueueSize      int           `mapstructure:"queue_size"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// OpsConfig controls the operator HTTP API.
type OpsConfig struct {
	Listen      string   `mapstructure:"listen"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix VIDGATE_).
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("telegram.api_base", "https://api.telegram.org")
	v.SetDefault("telegram.poll_timeout", 30)
	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.data_dir", "")
	v.SetDefault("downloads.max_concurrency", 2)
	v.SetDefault("downloads.queue_size", 64)
	v.SetDefault("downloads.timeout", 10*time.Minute)
	v.SetDefault("ops.listen", "127.0.0.1:18990")

	// Environment
	v.SetEnvPrefix("VIDGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// File
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, vgerr.Errorf(vgerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, vgerr.Errorf(vgerr.CodeConfigValidateInvalidValue, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, vgerr.Errorf(vgerr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors. It returns all
// validation errors rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateTelegram()...)
	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateDownloads()...)
	errs = append(errs, c.validateOps()...)

	return errs
}

func (c *Config) validateTelegram() []error {
	var errs []error

	if c.Telegram.APIBase == "" {
		errs = append(errs, vgerr.Errorf(vgerr.CodeConfigValidateInvalidValue, "config: telegram.api_base must not be empty"))
	} else if !strings.HasPrefix(c.Telegram.APIBase, "http://") && !strings.HasPrefix(c.Telegram.APIBase, "https://") {
		errs = append(errs, vgerr.Errorf(vgerr.CodeConfigValidateInvalidValue,
			"config: telegram.api_base must be an http(s) URL, got %q",
			c.Telegram.APIBase,
		))
	}

	if c.Telegram.PollTimeout < 1 || c.Telegram.PollTimeout > 50 {
		errs = append(errs, vgerr.Errorf(vgerr.CodeConfigValidateInvalidValue,
			"config: telegram.poll_timeout must be between 1 and 50 seconds, got %d",
			c.Telegram.PollTimeout,
		))
	}

	return errs
}

func (c *Config) validateStorage() []error {
	var errs []error

	validBackends := map[string]bool{"sqlite": true}
	if !validBackends[c.Storage.Backend] {
		errs = append(errs, vgerr.Errorf(vgerr.CodeConfigValidateInvalidValue,
			"config: storage.backend must be one of [sqlite], got %q",
			c.Storage.Backend,
		))
	}

	// Storage channels are Telegram supergroup/channel ids, which are
	// negative. Zero means delivery is disabled.
	if c.Storage.StorageChannelID > 0 {
		errs = append(errs, vgerr.Errorf(vgerr.CodeConfigValidateInvalidValue,
			"config: storage.storage_channel_id must be a channel id (negative), got %d",
			c.Storage.StorageChannelID,
		))
	}

	return errs
}

func (c *Config) validateDownloads() []error {
	var errs []error

	if c.Downloads.MaxConcurrency < 1 {
		errs = append(errs, vgerr.Errorf(vgerr.CodeConfigValidateInvalidValue,
			"config: downloads.max_concurrency must be greater than 0, got %d",
			c.Downloads.MaxConcurrency,
		))
	}

	if c.Downloads.QueueSize < 1 {
		errs = append(errs, vgerr.Errorf(vgerr.CodeConfigValidateInvalidValue,
			"config: downloads.queue_size must be greater than 0, got %d",
			c.Downloads.QueueSize,
		))
	}

	if c.Downloads.Timeout <= 0 {
		errs = append(errs, vgerr.Errorf(vgerr.CodeConfigValidateInvalidValue,
			"config: downloads.timeout must be greater than 0, got %s",
			c.Downloads.Timeout,
		))
	}

	return errs
}

func (c *Config) validateOps() []error {
	var errs []error

	if c.Ops.Listen == "" {
		errs = append(errs, vgerr.Errorf(vgerr.CodeConfigValidateInvalidValue, "config: ops.listen must not be empty"))
		return errs
	}

	_, portStr, err := net.SplitHostPort(c.Ops.Listen)
	if err != nil {
		errs = append(errs, vgerr.Errorf(vgerr.CodeConfigValidateInvalidValue,
			"config: ops.listen must be a valid host:port address, got %q: %w",
			c.Ops.Listen, err,
		))
		return errs
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		errs = append(errs, vgerr.Errorf(vgerr.CodeConfigValidateInvalidValue,
			"config: ops.listen port must be a number, got %q",
			portStr,
		))
	} else if port < 1 || port > 65535 {
		errs = append(errs, vgerr.Errorf(vgerr.CodeConfigValidateInvalidValue,
			"config: ops.listen port must be between 1 and 65535, got %d",
			port,
		))
	}

	return errs
}
