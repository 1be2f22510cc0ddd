// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vidgate Contributors

package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vidgate-dev/vidgate/internal/bot"
	"github.com/vidgate-dev/vidgate/internal/config"
	"github.com/vidgate-dev/vidgate/internal/dispatch"
	"github.com/vidgate-dev/vidgate/internal/executor"
	"github.com/vidgate-dev/vidgate/internal/gate"
	"github.com/vidgate-dev/vidgate/internal/metrics"
	"github.com/vidgate-dev/vidgate/internal/registry"
	"github.com/vidgate-dev/vidgate/internal/secrets"
	"github.com/vidgate-dev/vidgate/internal/server"
	"github.com/vidgate-dev/vidgate/internal/store/sqlite"
	"github.com/vidgate-dev/vidgate/internal/telegram"
	vgerr "github.com/vidgate-dev/vidgate/pkg/errors"
)

func newStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the vidgate bot",
		Long:  "Load configuration, connect to the Telegram Bot API, and run the gate, dispatch, and download subsystems alongside the ops HTTP server.",
		RunE:  runStart,
	}

	cmd.Flags().String("listen", "", "override ops listen address (host:port)")
	_ = viper.BindPFlag("ops.listen", cmd.Flags().Lookup("listen"))

	return cmd
}

func runStart(cmd *cobra.Command, _ []string) error {
	cfgPath := viper.ConfigFileUsed()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfgPath != "" {
		config.WarnInsecurePermissions(cfgPath)
	}

	// Apply any flag overrides that the global Viper resolved.
	if listen := viper.GetString("ops.listen"); listen != "" {
		cfg.Ops.Listen = listen
	}
	if dataDir := viper.GetString("storage.data_dir"); dataDir != "" {
		cfg.Storage.DataDir = dataDir
	}
	if cfg.Storage.DataDir == "" {
		dataDir, err := config.DefaultDataDir()
		if err != nil {
			return fmt.Errorf("resolving data directory: %w", err)
		}
		cfg.Storage.DataDir = dataDir
	}

	token, err := secrets.ResolveToken(cfg.Telegram.Token, secretStoreFactory())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := telegram.NewClient(token, telegram.WithBaseURL(cfg.Telegram.APIBase))
	if err := client.ValidateToken(ctx); err != nil {
		return fmt.Errorf("validating bot token: %w", err)
	}

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o700); err != nil {
		return vgerr.Errorf(vgerr.CodeCLISetupFailure, "creating data directory %s: %w", cfg.Storage.DataDir, err)
	}
	bs, err := sqlite.NewBotStore(filepath.Join(cfg.Storage.DataDir, "bot.db"))
	if err != nil {
		return fmt.Errorf("opening bot store: %w", err)
	}
	defer func() { _ = bs.Close() }()

	reg := registry.NewService(bs.Channels())
	if cfg.ChannelsFile != "" {
		entries, err := registry.LoadSeedFile(cfg.ChannelsFile)
		if err != nil {
			return fmt.Errorf("loading channels file: %w", err)
		}
		if err := reg.Seed(ctx, entries); err != nil {
			return fmt.Errorf("seeding channel registry: %w", err)
		}
	}

	promReg := prometheus.NewRegistry()
	collector := metrics.NewCollector(promReg)

	subGate := gate.New(reg, gate.NewChecker(client), collector)

	if cfg.Storage.StorageChannelID == 0 {
		slog.Warn("storage.storage_channel_id is not set; downloads cannot be delivered")
	}
	downloader := executor.NewYTDLPDownloader(client, cfg.Storage.StorageChannelID, "")
	pool := executor.NewPool(downloader, bs.Videos(), collector, executor.Options{
		Workers:   cfg.Downloads.MaxConcurrency,
		QueueSize: cfg.Downloads.QueueSize,
		Timeout:   cfg.Downloads.Timeout,
	})

	notifier := bot.NewNotifier(client, bs.Users(), cfg.Storage.StorageChannelID)
	coord := dispatch.New(subGate, pool, notifier, collector)

	tgBot := bot.New(client, coord, subGate, reg, bs, bot.Config{
		PollTimeout: time.Duration(cfg.Telegram.PollTimeout) * time.Second,
		Admins:      cfg.Admins,
	})

	srv, err := server.New(server.Config{
		ListenAddr:  cfg.Ops.Listen,
		CORSOrigins: cfg.Ops.CORSOrigins,
	}, promReg)
	if err != nil {
		return fmt.Errorf("building ops server: %w", err)
	}
	srv.RegisterServices(&server.Services{
		Registry: reg,
		Users:    bs.Users(),
		Videos:   bs.Videos(),
		Dispatch: coord,
	})

	slog.Info("starting vidgate",
		"ops_listen", cfg.Ops.Listen,
		"data_dir", cfg.Storage.DataDir,
		"workers", cfg.Downloads.MaxConcurrency,
	)

	poolDone := make(chan struct{})
	go func() {
		defer close(poolDone)
		pool.Run(ctx, coord)
	}()

	errCh := make(chan error, 2)
	go func() { errCh <- tgBot.Run(ctx) }()
	go func() { errCh <- srv.Start(ctx) }()

	// First subsystem error (or nil on clean ctx cancellation) wins;
	// stop() cancels the rest, then wait for them and the pool to drain.
	runErr := <-errCh
	stop()
	if second := <-errCh; runErr == nil {
		runErr = second
	}
	<-poolDone

	slog.Info("vidgate stopped")
	return runErr
}
