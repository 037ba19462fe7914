package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/abelbrown/reelfeed/internal/feedsrc"
)

func runFeed() {
	fs := flag.NewFlagSet("feed", flag.ExitOnError)
	timeout := fs.Duration("timeout", 30*time.Second, "Fetch timeout for URLs")
	limit := fs.Int("n", 50, "Maximum items to list")
	fs.Parse(os.Args[1:])

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: reelctl feed [flags] <url|file>")
		os.Exit(2)
	}
	source := fs.Arg(0)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	start := time.Now()
	items, err := feedsrc.Load(ctx, source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	ms := float64(time.Since(start)) / float64(time.Millisecond)

	fmt.Printf("Playable items:        %d (%.*fms)\n\n", len(items), durPrecision(ms), ms)
	for i, item := range items {
		if i >= *limit {
			fmt.Printf("  ... %d more\n", len(items)-*limit)
			break
		}
		dur := "?"
		if item.DurationHint > 0 {
			dur = item.DurationHint.String()
		}
		fmt.Printf("  %-18s %7s  %-40s %s\n", truncate(item.ID, 18), dur, truncate(item.Title, 40), item.MediaRef)
	}
}
