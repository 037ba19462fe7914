// Package feedsrc builds feed items from RSS/Atom/JSON feeds with media
// enclosures (video podcasts, media RSS) or from generated demo data.
package feedsrc

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/abelbrown/reelfeed/internal/feed"
	"github.com/abelbrown/reelfeed/internal/logging"
)

// Load reads a feed from an http(s) URL or a local file.
func Load(ctx context.Context, location string) ([]feed.Item, error) {
	parser := gofeed.NewParser()

	var (
		parsed *gofeed.Feed
		err    error
	)
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		parsed, err = parser.ParseURLWithContext(location, ctx)
	} else {
		var f *os.File
		f, err = os.Open(location)
		if err != nil {
			return nil, fmt.Errorf("open feed %s: %w", location, err)
		}
		defer f.Close()
		parsed, err = parser.Parse(f)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", location, err)
	}

	items := convert(parsed)
	logging.Info("feed loaded", "location", location, "entries", len(parsed.Items), "playable", len(items))
	return items, nil
}

// Parse reads a feed document from r.
func Parse(r io.Reader) ([]feed.Item, error) {
	parsed, err := gofeed.NewParser().Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return convert(parsed), nil
}

// convert keeps entries that carry playable media, in document order.
func convert(f *gofeed.Feed) []feed.Item {
	items := make([]feed.Item, 0, len(f.Items))
	for _, entry := range f.Items {
		ref, dur := media(entry)
		if ref == "" {
			continue
		}

		author := ""
		if entry.Author != nil {
			author = entry.Author.Name
		} else if f.Author != nil {
			author = f.Author.Name
		}

		items = append(items, feed.Item{
			ID:           itemID(entry, ref),
			MediaRef:     ref,
			DurationHint: dur,
			Title:        entry.Title,
			Author:       author,
		})
	}
	return items
}

// itemID prefers the entry GUID, falling back to a hash of link or media.
func itemID(entry *gofeed.Item, ref string) string {
	if entry.GUID != "" {
		return entry.GUID
	}
	key := entry.Link
	if key == "" {
		key = ref
	}
	return fmt.Sprintf("%x", sha256.Sum256([]byte(key)))[:16]
}

// media finds the first video or audio reference and its duration.
func media(entry *gofeed.Item) (string, time.Duration) {
	var dur time.Duration
	if entry.ITunesExt != nil {
		dur = ParseDuration(entry.ITunesExt.Duration)
	}

	for _, enc := range entry.Enclosures {
		if enc == nil || enc.URL == "" {
			continue
		}
		if strings.HasPrefix(enc.Type, "video/") || strings.HasPrefix(enc.Type, "audio/") || enc.Type == "" {
			return enc.URL, dur
		}
	}

	for _, mc := range entry.Extensions["media"]["content"] {
		url := mc.Attrs["url"]
		if url == "" {
			continue
		}
		if medium := mc.Attrs["medium"]; medium != "" && medium != "video" && medium != "audio" {
			continue
		}
		if d := ParseDuration(mc.Attrs["duration"]); d > 0 {
			dur = d
		}
		return url, dur
	}
	return "", 0
}

// ParseDuration accepts "SS", "MM:SS" and "HH:MM:SS". Invalid, non-finite
// or out-of-range input yields 0.
func ParseDuration(s string) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	var total float64
	for _, part := range strings.Split(s, ":") {
		n, err := strconv.ParseFloat(part, 64)
		if err != nil || n < 0 || math.IsNaN(n) || math.IsInf(n, 0) {
			return 0
		}
		total = total*60 + n
	}
	ns := total * float64(time.Second)
	if ns >= math.MaxInt64 {
		return 0
	}
	return time.Duration(ns)
}
