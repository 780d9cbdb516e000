package roomwatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dukerupert/roomboard/internal/apiclient"
	"github.com/dukerupert/roomboard/internal/availability"
	"github.com/dukerupert/roomboard/internal/model"
)

const (
	DefaultRefresh = 120 * time.Second
	DefaultClock   = 30 * time.Second
)

type Config struct {
	// Refresh is how often events are refetched.
	Refresh time.Duration
	// Clock is how often the snapshot is re-derived against the current time.
	Clock time.Duration
	// Now returns the current time in the dashboard's timezone.
	Now func() time.Time
}

func (c Config) withDefaults() Config {
	if c.Refresh <= 0 {
		c.Refresh = DefaultRefresh
	}
	if c.Clock <= 0 {
		c.Clock = DefaultClock
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Publisher receives each new snapshot. It must not block.
type Publisher func(availability.RoomSnapshot)

// Watcher keeps the snapshot of one room for one kiosk connection.
type Watcher struct {
	group  *Group
	roomID int64
	cfg    Config
	logger *slog.Logger
	nudge  chan struct{}

	issued atomic.Uint64

	mu      sync.Mutex
	applied uint64
	room    model.Room
	events  []model.Event
	stale   bool
}

// Watch creates a watcher for roomID. It does nothing until Run.
func (g *Group) Watch(roomID int64, cfg Config) *Watcher {
	return &Watcher{
		group:  g,
		roomID: roomID,
		cfg:    cfg.withDefaults(),
		logger: g.logger.With("room_id", roomID),
		nudge:  make(chan struct{}, 1),
	}
}

// Nudge asks the watcher to refetch as soon as possible. Never blocks.
func (w *Watcher) Nudge() {
	select {
	case w.nudge <- struct{}{}:
	default:
	}
}

// Run loads the room, publishes a first snapshot and keeps publishing on
// every refresh, clock tick and nudge until ctx is done. It returns
// ctx.Err() on cancellation, or the API error when the room is gone or the
// session is no longer authorized.
func (w *Watcher) Run(ctx context.Context, publish Publisher) error {
	room, err := w.group.Room(ctx, w.roomID)
	if err != nil {
		return fmt.Errorf("load room %d: %w", w.roomID, err)
	}
	w.mu.Lock()
	w.room = room
	w.mu.Unlock()

	if err := w.Refresh(ctx); fatal(ctx, err) {
		return err
	}
	publish(w.Snapshot())

	refresh := time.NewTicker(w.cfg.Refresh)
	defer refresh.Stop()
	clock := time.NewTicker(w.cfg.Clock)
	defer clock.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-clock.C:
		case <-refresh.C:
			if err := w.Refresh(ctx); fatal(ctx, err) {
				return err
			}
		case <-w.nudge:
			if err := w.Refresh(ctx); fatal(ctx, err) {
				return err
			}
			refresh.Reset(w.cfg.Refresh)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		publish(w.Snapshot())
	}
}

// Refresh refetches the room's events. Safe for concurrent use; a response
// that arrives after a newer one has been applied is discarded. Failures
// other than cancellation mark the snapshot stale and keep the last events.
func (w *Watcher) Refresh(ctx context.Context) error {
	gen := w.issued.Add(1)
	events, err := w.group.Events(ctx, w.roomID)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Warn("refresh room events", "error", err)
			w.mu.Lock()
			w.stale = true
			w.mu.Unlock()
		}
		return err
	}
	w.apply(gen, events)
	return nil
}

// apply replaces the events if gen is newer than what is held.
func (w *Watcher) apply(gen uint64, events []model.Event) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if gen <= w.applied {
		return false
	}
	w.applied = gen
	w.events = events
	w.stale = false
	return true
}

// Snapshot derives the room's state at the current time from the held
// events. It is marked stale while the last refresh has failed.
func (w *Watcher) Snapshot() availability.RoomSnapshot {
	w.mu.Lock()
	room, events, stale := w.room, w.events, w.stale
	w.mu.Unlock()
	snap := availability.Summarize(room, events, w.cfg.Now())
	snap.Stale = stale
	return snap
}

// fatal reports whether err ends the watch: the connection is gone, the
// session was rejected or the room was deleted.
func fatal(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	return ctx.Err() != nil ||
		errors.Is(err, apiclient.ErrUnauthorized) ||
		errors.Is(err, apiclient.ErrNotFound)
}
