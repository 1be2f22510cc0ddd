// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vidgate Contributors

// Package platform detects which media platform a shared link belongs to
// and normalizes URLs into stable cache keys.
package platform

import (
	"net/url"
	"regexp"
	"strings"
)

// Platform identifies a supported media source.
type Platform string

const (
	Instagram Platform = "instagram"
	YouTube   Platform = "youtube"
	TikTok    Platform = "tiktok"
	Facebook  Platform = "facebook"
	Twitter   Platform = "twitter"
	Unknown   Platform = ""
)

// hostPlatforms maps canonical host suffixes to platforms. Subdomains
// (www, m, vm, vt) match via suffix comparison.
var hostPlatforms = map[string]Platform{
	"instagram.com": Instagram,
	"youtube.com":   YouTube,
	"youtu.be":      YouTube,
	"tiktok.com":    TikTok,
	"facebook.com":  Facebook,
	"fb.watch":      Facebook,
	"twitter.com":   Twitter,
	"x.com":         Twitter,
	"t.co":          Twitter,
}

var urlPattern = regexp.MustCompile(`https?://[^\s<>"]+`)

// ExtractURLs returns all http(s) URLs found in free-form message text.
func ExtractURLs(text string) []string {
	return urlPattern.FindAllString(text, -1)
}

// Detect returns the platform a URL belongs to, or Unknown.
func Detect(rawURL string) Platform {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return Unknown
	}

	host := strings.ToLower(u.Hostname())
	for suffix, p := range hostPlatforms {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return p
		}
	}
	return Unknown
}

// Normalize strips tracking parameters and fragments so equivalent links
// share one cache key. YouTube keeps only the video id parameter; every
// other platform keeps the bare path.
func Normalize(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}

	p := Detect(rawURL)
	if p == Unknown {
		return "", false
	}

	u.Fragment = ""
	u.Host = strings.ToLower(u.Host)
	u.Host = strings.TrimPrefix(u.Host, "www.")
	u.Scheme = "https"

	if p == YouTube {
		if v := u.Query().Get("v"); v != "" {
			q := url.Values{"v": {v}}
			u.RawQuery = q.Encode()
		} else {
			u.RawQuery = ""
		}
	} else {
		u.RawQuery = ""
	}

	u.Path = strings.TrimSuffix(u.Path, "/")

	return u.String(), true
}
