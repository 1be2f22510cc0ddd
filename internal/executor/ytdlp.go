// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vidgate Contributors

package executor

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lrstanley/go-ytdlp"

	"github.com/vidgate-dev/vidgate/internal/dispatch"
	vgerr "github.com/vidgate-dev/vidgate/pkg/errors"
)

// MediaUploader pushes a finished file into the storage channel.
// Implemented by *telegram.Client.
type MediaUploader interface {
	UploadVideo(ctx context.Context, chatID int64, path, caption string) (int64, error)
	UploadAudio(ctx context.Context, chatID int64, path, caption string) (int64, error)
}

// fetchFunc fetches the media behind url into destDir and returns the
// resulting file path. Swapped out in tests.
type fetchFunc func(ctx context.Context, url, format, destDir string) (string, error)

// YTDLPDownloader downloads media with yt-dlp and uploads the result to
// the Telegram storage channel.
type YTDLPDownloader struct {
	uploader         MediaUploader
	storageChannelID int64
	workDir          string
	fetch            fetchFunc
}

// NewYTDLPDownloader creates a YTDLPDownloader. workDir is where
// per-job temp directories are created; empty means the OS temp dir.
func NewYTDLPDownloader(uploader MediaUploader, storageChannelID int64, workDir string) *YTDLPDownloader {
	return &YTDLPDownloader{
		uploader:         uploader,
		storageChannelID: storageChannelID,
		workDir:          workDir,
		fetch:            fetchWithYTDLP,
	}
}

var _ Downloader = (*YTDLPDownloader)(nil)

// Download implements Downloader: fetch with yt-dlp, upload to the
// storage channel, return the storage message id.
func (d *YTDLPDownloader) Download(ctx context.Context, job dispatch.Job) (int64, error) {
	if d.storageChannelID == 0 {
		return 0, vgerr.New(vgerr.CodeExecutorDownloadFailure,
			"no storage channel configured",
			vgerr.FieldRequestID(job.RequestID),
		)
	}

	dir, err := os.MkdirTemp(d.workDir, "vidgate-dl-*")
	if err != nil {
		return 0, vgerr.Wrap(err, vgerr.CodeExecutorDownloadFailure, "creating download dir")
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			slog.Warn("download dir cleanup failed", "dir", dir, "error", err)
		}
	}()

	path, err := d.fetch(ctx, job.URL, job.Format, dir)
	if err != nil {
		return 0, vgerr.Wrapf(err, vgerr.CodeExecutorDownloadFailure, "fetching %s", job.URL)
	}

	if job.Format == "mp3" {
		return d.uploader.UploadAudio(ctx, d.storageChannelID, path, job.URL)
	}
	return d.uploader.UploadVideo(ctx, d.storageChannelID, path, job.URL)
}

// formatSelector maps a user-facing format to a yt-dlp format string.
func formatSelector(format string) string {
	switch format {
	case "360p":
		return "bv*[height<=360]+ba/b[height<=360]"
	case "480p":
		return "bv*[height<=480]+ba/b[height<=480]"
	case "720p":
		return "bv*[height<=720]+ba/b[height<=720]"
	default:
		// Platform default: best muxed video up to 720p keeps files
		// inside Telegram's upload limits.
		return "bv*[height<=720]+ba/b[height<=720]/b"
	}
}

func fetchWithYTDLP(ctx context.Context, url, format, destDir string) (string, error) {
	dl := ytdlp.New().
		NoPlaylist().
		RestrictFilenames().
		Output(filepath.Join(destDir, "%(id)s.%(ext)s"))

	if format == "mp3" {
		dl = dl.ExtractAudio().AudioFormat("mp3")
	} else {
		dl = dl.Format(formatSelector(format))
	}

	result, err := dl.Run(ctx, url)
	if err != nil {
		return "", err
	}

	if info, err := result.GetExtractedInfo(); err == nil {
		for _, i := range info {
			if i.Filename != nil && *i.Filename != "" {
				return *i.Filename, nil
			}
		}
	}

	// Post-processing (audio extraction) can rename the output; fall
	// back to the only file left in the directory.
	return soleFile(destDir)
}

func soleFile(dir string) (string, error) {
	var found string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		found = path
		return nil
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", fmt.Errorf("no file produced in %s", dir)
	}
	return found, nil
}
