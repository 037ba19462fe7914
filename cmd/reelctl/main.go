// Command reelctl is the debug and maintenance CLI for reelfeed.
//
// Usage:
//
//	reelctl                 Show help
//	reelctl stats           Engagement and watch-history summary
//	reelctl stats --keys    Summary plus raw persisted keys (sqlite)
//	reelctl feed <source>   Parse an RSS/Atom feed and list playable items
//	reelctl events          JSONL event log viewer
package main

import (
	"fmt"
	"os"
)

const usage = `reelctl - reelfeed debug & maintenance CLI

Usage:
  reelctl <command> [flags]

Commands:
  stats       Engagement and watch-history summary for a profile
  feed        Parse an RSS/Atom feed (URL or file) and list playable items
  events      JSONL event log viewer

Environment:
  REELFEED_STORAGE     Backend: sqlite, redis (default: from config)
  REELFEED_REDIS_ADDR  Redis address (implies redis backend)
  REELFEED_PROFILE     Profile key prefix

Run 'reelctl <command> -h' for command-specific help.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(0)
	}

	cmd := os.Args[1]
	// Strip the program name + subcommand so flag sets see only their flags
	os.Args = os.Args[1:]

	switch cmd {
	case "stats":
		runStats()
	case "feed":
		runFeed()
	case "events":
		runEvents()
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "reelctl: unknown command %q\n\n", cmd)
		fmt.Print(usage)
		os.Exit(1)
	}
}
