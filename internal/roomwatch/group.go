// Package roomwatch keeps live room snapshots for kiosk connections.
package roomwatch

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"golang.org/x/sync/singleflight"

	"github.com/dukerupert/roomboard/internal/model"
)

// Fetcher is the part of the booking API a watcher reads from.
type Fetcher interface {
	GetRoom(ctx context.Context, id int64) (model.Room, error)
	ListRoomEvents(ctx context.Context, roomID int64) ([]model.Event, error)
}

// Group coalesces event fetches for the same room across all watchers.
type Group struct {
	api    Fetcher
	flight singleflight.Group
	logger *slog.Logger
}

func NewGroup(api Fetcher, logger *slog.Logger) *Group {
	return &Group{api: api, logger: logger}
}

// Events fetches the events of roomID. Concurrent callers for the same room
// share one request. The request runs under the first caller's context; a
// later caller whose leader was cancelled retries once under its own.
func (g *Group) Events(ctx context.Context, roomID int64) ([]model.Event, error) {
	events, err := g.events(ctx, roomID)
	if err != nil && errors.Is(err, context.Canceled) && ctx.Err() == nil {
		events, err = g.events(ctx, roomID)
	}
	return events, err
}

func (g *Group) events(ctx context.Context, roomID int64) ([]model.Event, error) {
	key := strconv.FormatInt(roomID, 10)
	ch := g.flight.DoChan(key, func() (any, error) {
		return g.api.ListRoomEvents(ctx, roomID)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			g.logger.Debug("coalesced room fetch", "room_id", roomID)
		}
		events := res.Val.([]model.Event)
		// callers share the slice; hand each its own copy
		return append([]model.Event(nil), events...), nil
	}
}

func (g *Group) Room(ctx context.Context, roomID int64) (model.Room, error) {
	return g.api.GetRoom(ctx, roomID)
}
