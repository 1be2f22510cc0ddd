// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vidgate Contributors

package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	vgerr "github.com/vidgate-dev/vidgate/pkg/errors"
)

// UploadVideo sends a local video file to chatID via sendVideo and
// returns the resulting message id.
func (c *Client) UploadVideo(ctx context.Context, chatID int64, path, caption string) (int64, error) {
	return c.uploadMedia(ctx, "sendVideo", "video", chatID, path, caption)
}

// UploadAudio sends a local audio file to chatID via sendAudio and
// returns the resulting message id.
func (c *Client) UploadAudio(ctx context.Context, chatID int64, path, caption string) (int64, error) {
	return c.uploadMedia(ctx, "sendAudio", "audio", chatID, path, caption)
}

// uploadMedia POSTs a multipart form with the media file attached under
// the given field name. Uploads bypass call() because the payload is a
// form, not JSON. The form is streamed through a pipe so a near-limit
// video is never buffered in memory whole.
func (c *Client) uploadMedia(ctx context.Context, method, field string, chatID int64, path, caption string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, vgerr.Wrapf(err, vgerr.CodeTelegramRequestFailure, "opening media file %s", path)
	}
	defer func() { _ = f.Close() }()

	pr, pw := io.Pipe()
	w := multipart.NewWriter(pw)
	go func() {
		err := writeMediaForm(w, field, chatID, caption, path, f)
		if cerr := w.Close(); err == nil {
			err = cerr
		}
		// A write error aborts the in-flight request via the pipe.
		_ = pw.CloseWithError(err)
	}()

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, pr)
	if err != nil {
		_ = pr.Close()
		return 0, vgerr.Wrapf(err, vgerr.CodeTelegramRequestFailure, "building %s request", method)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, vgerr.Wrapf(err, vgerr.CodeTelegramRequestFailure, "calling %s", method)
	}
	defer func() { _ = resp.Body.Close() }()

	var env apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return 0, vgerr.Wrapf(err, vgerr.CodeTelegramRequestFailure, "decoding %s response", method)
	}
	if !env.OK {
		return 0, vgerr.New(vgerr.CodeTelegramStatusFailure,
			fmt.Sprintf("%s failed: %s", method, env.Description),
			vgerr.Field("method", method),
			vgerr.Field("error_code", env.ErrorCode),
		)
	}

	var msg Message
	if err := json.Unmarshal(env.Result, &msg); err != nil {
		return 0, vgerr.Wrapf(err, vgerr.CodeTelegramRequestFailure, "decoding %s result", method)
	}
	return msg.MessageID, nil
}

func writeMediaForm(w *multipart.Writer, field string, chatID int64, caption, path string, f *os.File) error {
	if err := w.WriteField("chat_id", strconv.FormatInt(chatID, 10)); err != nil {
		return err
	}
	if caption != "" {
		if err := w.WriteField("caption", caption); err != nil {
			return err
		}
	}
	part, err := w.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(part, f)
	return err
}
