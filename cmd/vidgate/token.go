// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vidgate Contributors

package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vidgate-dev/vidgate/internal/secrets"
	vgerr "github.com/vidgate-dev/vidgate/pkg/errors"
)

// secretStoreFactory creates a secrets.Store. It is a package-level
// variable so tests can substitute a mock implementation.
var secretStoreFactory = func() secrets.Store {
	return secrets.NewKeyringStore()
}

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the bot token stored in the OS keyring",
		Long:  "Store or remove the Telegram bot token in the operating system keyring, avoiding plaintext tokens in config files.",
	}

	cmd.AddCommand(
		newTokenSetCmd(),
		newTokenClearCmd(),
	)

	return cmd
}

func newTokenSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set [token]",
		Short: "Store the bot token in the OS keyring",
		Long:  "Store the Telegram bot token in the OS keyring. Reads the token from the argument, or from stdin when omitted.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTokenSet,
	}
}

func newTokenClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the bot token from the OS keyring",
		RunE:  runTokenClear,
	}
}

func runTokenSet(cmd *cobra.Command, args []string) error {
	var token string
	if len(args) == 1 {
		token = args[0]
	} else {
		_, _ = fmt.Fprint(cmd.OutOrStdout(), "Bot token: ")
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return vgerr.Errorf(vgerr.CodeSecretInvalidInput, "reading token from stdin: %w", err)
		}
		token = strings.TrimSpace(line)
	}

	if err := secrets.SetToken(secretStoreFactory(), token); err != nil {
		return err
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Token stored in OS keyring.")
	return nil
}

func runTokenClear(cmd *cobra.Command, _ []string) error {
	if err := secrets.ClearToken(secretStoreFactory()); err != nil {
		if vgerr.HasCode(err, vgerr.CodeSecretNotFound) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No token stored.")
			return nil
		}
		return err
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Token removed from OS keyring.")
	return nil
}
