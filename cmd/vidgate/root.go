// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vidgate Contributors

package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vidgate-dev/vidgate/internal/config"
	vgerr "github.com/vidgate-dev/vidgate/pkg/errors"
)

// NewRootCmd creates the root vidgate command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "vidgate",
		Short:         "Vidgate — subscription-gated Telegram download bot",
		Long:          "Vidgate is a Telegram bot that gates video downloads behind channel subscriptions and dispatches them through a bounded download pipeline.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initViper(cmd)
		},
	}

	// Global flags — these map to viper keys via initViper.
	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().String("data-dir", "", "path to data directory")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")

	root.AddCommand(
		newStartCmd(),
		newStatusCmd(),
		newTokenCmd(),
		newVersionCmd(),
	)

	return root
}

// initViper resolves the config file on the global Viper and binds the
// persistent flags, so every subcommand sees the same precedence
// (flag > env > file > defaults).
func initViper(cmd *cobra.Command) error {
	v := viper.GetViper()

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return vgerr.Errorf(vgerr.CodeConfigLoadReadFailure, "reading config file: %w", err)
		}
	} else {
		// Auto-discover vidgate.yaml from standard locations.
		// Note: SetConfigType is intentionally omitted. When set, Viper
		// falls back to trying the bare config name without extension,
		// which collides with the ./vidgate binary in the project root.
		v.SetConfigName("vidgate")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/vidgate")
		v.AddConfigPath("/etc/vidgate")
		// No config file is fine — defaults and env vars still apply.
		// Parse or permission errors must surface.
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return vgerr.Errorf(vgerr.CodeConfigLoadReadFailure, "reading config: %w", err)
			}
			// No config found anywhere — bootstrap a default to ~/.config/vidgate/.
			if path := config.BootstrapConfig(); path != "" {
				v.SetConfigFile(path)
				if err := v.ReadInConfig(); err != nil {
					return vgerr.Errorf(vgerr.CodeConfigLoadReadFailure, "reading bootstrapped config: %w", err)
				}
			}
		}
	}

	if err := v.BindPFlag("storage.data_dir", cmd.Root().PersistentFlags().Lookup("data-dir")); err != nil {
		return vgerr.Errorf(vgerr.CodeCLISetupFailure, "binding data-dir flag: %w", err)
	}
	if err := v.BindPFlag("verbose", cmd.Root().PersistentFlags().Lookup("verbose")); err != nil {
		return vgerr.Errorf(vgerr.CodeCLISetupFailure, "binding verbose flag: %w", err)
	}

	if v.GetBool("verbose") {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	return nil
}
