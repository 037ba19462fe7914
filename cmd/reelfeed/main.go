// Command reelfeed is a terminal short-video feed: a reel viewer, a preview
// grid and a watch page sharing one feed, each playing at most one item.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/reelfeed/internal/config"
	"github.com/abelbrown/reelfeed/internal/events"
	"github.com/abelbrown/reelfeed/internal/feed"
	"github.com/abelbrown/reelfeed/internal/feedsrc"
	"github.com/abelbrown/reelfeed/internal/history"
	"github.com/abelbrown/reelfeed/internal/logging"
	"github.com/abelbrown/reelfeed/internal/metrics"
	"github.com/abelbrown/reelfeed/internal/persist"
	"github.com/abelbrown/reelfeed/internal/redisx"
	"github.com/abelbrown/reelfeed/internal/simplayer"
	"github.com/abelbrown/reelfeed/internal/store"
	"github.com/abelbrown/reelfeed/internal/surface"
	"github.com/abelbrown/reelfeed/internal/ui"
	"github.com/abelbrown/reelfeed/internal/visibility"
)

func main() {
	if err := run(); err != nil {
		fatal("Error: %v", err)
	}
}

func run() error {
	// Setup context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := os.MkdirAll(config.DataDir(), 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	if err := logging.Init(config.DataDir(), logging.ParseLevel(cfg.LogLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logging: %v\n", err)
	}
	defer logging.Close()

	// Diagnostics: JSONL on disk, last events in memory for the debug pane
	ring := events.NewRing(events.DefaultRingSize)
	evlog, closeEvents := openEventLog()
	evlog.SetRing(ring)
	defer closeEvents()

	m := metrics.New()

	kv, closeKV, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeKV()
	p := persist.New(kv, m).WithPrefix(cfg.Storage.Profile).WithEvents(evlog)

	items := loadItems(ctx, cfg)
	feedStore := feed.New(ctx, items, p)
	hist := history.New(ctx, p)
	logging.Info("Feed loaded", "items", feedStore.Len(), "source", cfg.Feed.Source)

	evlog.Emit(events.Event{
		Kind:  events.KindStartup,
		Level: events.LevelInfo,
		Msg:   fmt.Sprintf("backend=%s items=%d", cfg.Storage.Backend, feedStore.Len()),
	})

	simOpts := simplayer.Options{
		LoadDelay:            time.Duration(cfg.Playback.LoadDelayMs) * time.Millisecond,
		BlockUnmutedAutoplay: cfg.Playback.BlockAutoplay,
	}

	var panes []ui.Pane
	for _, kind := range []surface.Kind{surface.Grid, surface.Reels, surface.Watch} {
		binder := simplayer.NewBinder(simOpts)
		s, err := surface.New(ctx, feedStore, binder, hist, surface.Config{
			Kind:                kind,
			Cooldown:            cfg.Cooldown(),
			TouchThreshold:      cfg.Navigation.TouchThreshold,
			VisibilityThreshold: cfg.Visibility.Threshold,
			AutoAdvance:         kind == surface.Watch && cfg.Playback.WatchAutoAdvance,
			Muted:               cfg.Playback.StartMuted,
			Viewport: visibility.Viewport{
				RowHeight: ui.GridRowHeight,
				Columns:   cfg.UI.GridColumns,
			},
			Events:  evlog,
			Metrics: m,
		})
		if err != nil {
			return err
		}
		defer s.Close()
		panes = append(panes, ui.Pane{Surface: s, Player: binder})
	}

	app := ui.NewApp(ctx, ui.Options{
		Panes:     panes,
		Start:     surface.Reels,
		Ring:      ring,
		ShowDebug: cfg.UI.ShowDebug,
	})

	program := tea.NewProgram(app,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)

	g, gctx := errgroup.WithContext(ctx)
	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: m.Handler()}
		g.Go(func() error {
			logging.Info("Metrics listening", "addr", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
			defer done()
			return srv.Shutdown(shutdownCtx)
		})
	}

	// Run UI (blocks until quit)
	logging.Info("Starting UI")
	_, runErr := program.Run()
	if errors.Is(runErr, tea.ErrProgramKilled) {
		runErr = nil
	}

	// Graceful shutdown
	cancel()
	if err := g.Wait(); err != nil {
		logging.Error("Background task failed", "error", err)
	}

	evlog.Emit(events.Event{Kind: events.KindShutdown, Level: events.LevelInfo})
	logging.Info("reelfeed exiting normally")
	return runErr
}

// openBackend opens the configured key-value backend. Redis falls back to
// the local sqlite store when it cannot be reached.
func openBackend(ctx context.Context, cfg *config.Config) (persist.KV, func(), error) {
	switch cfg.Storage.Backend {
	case "memory":
		return persist.NewMemory(), func() {}, nil
	case "redis":
		pingCtx, done := context.WithTimeout(ctx, 5*time.Second)
		defer done()
		rdb, err := redisx.Open(pingCtx, cfg.Storage.RedisAddr)
		if err == nil {
			logging.Info("Storage initialized", "backend", "redis", "addr", cfg.Storage.RedisAddr)
			return redisx.NewKV(rdb, ""), func() { rdb.Close() }, nil
		}
		logging.Warn("Redis unavailable, using sqlite", "error", err)
	}

	st, err := store.Open(cfg.DBPath())
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	logging.Info("Storage initialized", "backend", "sqlite", "path", cfg.DBPath())
	return st, func() { st.Close() }, nil
}

// loadItems reads the configured feed, falling back to generated demo items
// when none is set or it yields nothing playable.
func loadItems(ctx context.Context, cfg *config.Config) []feed.Item {
	if cfg.Feed.Source != "" {
		loadCtx, done := context.WithTimeout(ctx, 30*time.Second)
		defer done()
		items, err := feedsrc.Load(loadCtx, cfg.Feed.Source)
		switch {
		case err != nil:
			logging.Warn("Feed load failed, using demo feed", "source", cfg.Feed.Source, "error", err)
		case len(items) == 0:
			logging.Warn("Feed has no playable items, using demo feed", "source", cfg.Feed.Source)
		default:
			return items
		}
	}
	return feedsrc.Demo(cfg.Feed.DemoSeed, cfg.Feed.DemoSize)
}

// openEventLog appends to the JSONL event log, or discards when the file
// cannot be opened. The returned func flushes the log and closes the file.
func openEventLog() (*events.Log, func()) {
	f, err := os.OpenFile(config.EventLogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		logging.Warn("Event log unavailable", "error", err)
		l := events.NewNullLog()
		return l, l.Close
	}
	l := events.NewLog(f)
	return l, func() {
		l.Close()
		f.Close()
	}
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
