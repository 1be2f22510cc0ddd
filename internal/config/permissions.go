// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vidgate Contributors

//go:build !windows

package config

import (
	"io/fs"
	"log/slog"
	"os"
)

// WarnInsecurePermissions checks whether the config file is group- or
// world-readable and logs a warning if so. The config may carry the bot
// token, so exposure to other users on the host matters. Best-effort:
// never fails startup.
func WarnInsecurePermissions(path string) {
	if path == "" {
		// No config file loaded (defaults only). Nothing to check.
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		slog.Debug("could not stat config file for permission check", "path", path, "error", err)
		return
	}

	mode := info.Mode()
	perm := mode.Perm()

	const groupRead fs.FileMode = 0o040
	const otherRead fs.FileMode = 0o004

	if perm&(groupRead|otherRead) != 0 {
		slog.Warn(
			"config file has insecure permissions, bot token may be exposed to other users",
			"path", path,
			"mode", mode,
			"recommended", "0600",
		)
	}
}
