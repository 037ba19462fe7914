package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/abelbrown/reelfeed/internal/history"
)

func runStats() {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	keys := fs.Bool("keys", false, "Include raw persisted keys (sqlite backend only)")
	recent := fs.Int("recent", 10, "Number of continue-watching entries to list")
	fs.Parse(os.Args[1:])

	ctx := context.Background()
	cfg := loadConfig()
	p, st, closeFn := openPersistence(ctx, cfg)
	defer closeFn()

	profile := cfg.Storage.Profile
	if profile == "" {
		profile = "(default)"
	}
	fmt.Printf("Backend:               %s\n", cfg.Storage.Backend)
	fmt.Printf("Profile:               %s\n", profile)

	// --- Engagement ---

	eng := p.LoadEngagement(ctx)
	liked, saved, both := 0, 0, 0
	for _, e := range eng {
		if e.Liked {
			liked++
		}
		if e.Saved {
			saved++
		}
		if e.Liked && e.Saved {
			both++
		}
	}
	fmt.Printf("\nLiked:                 %d\n", liked)
	fmt.Printf("Saved:                 %d\n", saved)
	fmt.Printf("Liked and saved:       %d\n", both)

	// --- Watch history ---

	records := p.LoadWatchHistory(ctx)
	completed := 0
	var watched float64
	for _, r := range records {
		if r.Completed() {
			completed++
		}
		watched += r.WatchedSeconds
	}
	fmt.Printf("\nWatched items:         %d\n", len(records))
	fmt.Printf("Completed:             %d\n", completed)
	fmt.Printf("Total watch position:  %s\n", (time.Duration(watched) * time.Second).String())

	h := history.New(ctx, p)
	cw := h.ContinueWatching(*recent)
	if len(cw) > 0 {
		fmt.Printf("\nContinue watching (%d):\n", len(cw))
		for _, id := range cw {
			r, _ := h.Get(id)
			fmt.Printf("  %-28s %5.1f%%  %s\n", truncate(id, 28), r.CompletionPercent, r.LastWatchedAt.Format(time.RFC3339))
		}
	}

	if !*keys {
		return
	}
	fmt.Println()
	fmt.Println("=== Keys ===")
	if st == nil {
		fmt.Println("  key listing is only available for the sqlite backend")
		return
	}
	all, err := st.Keys(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	sort.Strings(all)
	for _, k := range all {
		fmt.Printf("  %s\n", k)
	}
}
