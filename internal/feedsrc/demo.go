package feedsrc

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/abelbrown/reelfeed/internal/feed"
)

// Demo generates n short-video items. The same seed yields the same feed so
// persisted engagement keeps matching across runs.
func Demo(seed int64, n int) []feed.Item {
	f := gofakeit.New(seed)
	items := make([]feed.Item, n)
	for i := range items {
		id := fmt.Sprintf("reel-%03d", i+1)
		items[i] = feed.Item{
			ID:           id,
			MediaRef:     "sim://" + id,
			DurationHint: time.Duration(f.Number(6, 45)) * time.Second,
			Title:        f.Sentence(f.Number(3, 7)),
			Author:       "@" + f.Username(),
			Stats: feed.Stats{
				Views:    int64(f.Number(500, 2_000_000)),
				Likes:    int64(f.Number(10, 90_000)),
				Comments: int64(f.Number(0, 4_000)),
				Shares:   int64(f.Number(0, 9_000)),
			},
		}
	}
	return items
}

// Comment is a generated comment for the comments overlay.
type Comment struct {
	Author string
	Text   string
	Likes  int
}

// DemoComments generates n comments for itemID, stable per item.
func DemoComments(itemID string, n int) []Comment {
	var seed int64
	for _, r := range itemID {
		seed = seed*31 + int64(r)
	}
	f := gofakeit.New(seed)
	out := make([]Comment, n)
	for i := range out {
		out[i] = Comment{
			Author: "@" + f.Username(),
			Text:   f.Sentence(f.Number(4, 12)),
			Likes:  f.Number(0, 500),
		}
	}
	return out
}
