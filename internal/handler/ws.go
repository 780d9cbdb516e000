package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/dukerupert/roomboard/internal/apiclient"
	"github.com/dukerupert/roomboard/internal/auth"
	"github.com/dukerupert/roomboard/internal/availability"
	"github.com/dukerupert/roomboard/internal/roomwatch"
	"github.com/dukerupert/roomboard/internal/websocket"
)

// KioskHandler streams live room snapshots to kiosk pages.
type KioskHandler struct {
	*base
	group   *roomwatch.Group
	watch   roomwatch.Config
	origins []string
}

func NewKioskHandler(d Deps, group *roomwatch.Group, watch roomwatch.Config, origins []string) *KioskHandler {
	b := newBase(d, "kiosk")
	if watch.Now == nil {
		watch.Now = b.now
	}
	return &KioskHandler{
		base:    b,
		group:   group,
		watch:   watch,
		origins: origins,
	}
}

// Socket upgrades GET /ws?room=ID. The connection receives a room_status
// message on connect, on every clock tick and after every refetch; it is
// closed when the room disappears or the session stops being accepted by
// the booking API.
func (h *KioskHandler) Socket(w http.ResponseWriter, r *http.Request) {
	roomID, err := strconv.ParseInt(r.URL.Query().Get("room"), 10, 64)
	if err != nil || roomID <= 0 {
		http.Error(w, "Invalid room", http.StatusBadRequest)
		return
	}

	client, err := websocket.Accept(h.hub, w, r, roomID, h.origins)
	if err != nil {
		h.logger.Error("accept kiosk socket", "room_id", roomID, "error", err)
		return
	}

	watcher := h.group.Watch(roomID, h.watch)
	client.OnRoomEvent(watcher.Nudge)

	sessionID := auth.SessionID(r.Context())
	h.logger.Info("kiosk connected", "room_id", roomID, "session_id", sessionID)

	client.Run(r.Context(), func(ctx context.Context) {
		err := watcher.Run(ctx, func(snap availability.RoomSnapshot) {
			h.hub.Send(client, websocket.NewMessage("room", "status", roomID, roomID, snap))
		})
		switch {
		case err == nil || ctx.Err() != nil:
		case errors.Is(err, apiclient.ErrUnauthorized):
			h.logger.Info("kiosk session rejected by api", "room_id", roomID, "session_id", sessionID)
			if sessionID != 0 {
				if err := h.sessions.Invalidate(context.WithoutCancel(ctx), sessionID); err != nil {
					h.logger.Error("invalidate session", "session_id", sessionID, "error", err)
				}
			}
			h.hub.Send(client, websocket.NewMessage("session", "expired", sessionID, roomID, map[string]string{"redirect": "/login"}))
			client.Close("session expired")
		case errors.Is(err, apiclient.ErrNotFound):
			client.Close("room not found")
		default:
			h.logger.Error("kiosk watcher stopped", "room_id", roomID, "error", err)
			client.Close("watcher stopped")
		}
	})
	h.logger.Info("kiosk disconnected", "room_id", roomID)
}
