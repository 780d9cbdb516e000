// Package handler serves the dashboard's pages and JSON endpoints.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dukerupert/roomboard/internal/apiclient"
	"github.com/dukerupert/roomboard/internal/auth"
	"github.com/dukerupert/roomboard/internal/middleware"
	"github.com/dukerupert/roomboard/internal/model"
	"github.com/dukerupert/roomboard/internal/session"
	"github.com/dukerupert/roomboard/internal/websocket"
)

// BookingAPI is the booking REST API as the handlers use it.
type BookingAPI interface {
	Register(ctx context.Context, req apiclient.RegisterRequest) (model.User, error)

	ListUsers(ctx context.Context) ([]model.User, error)
	CreateUser(ctx context.Context, in apiclient.UserInput) (model.User, error)
	UpdateUser(ctx context.Context, id int64, in apiclient.UserInput) (model.User, error)
	DeleteUser(ctx context.Context, id int64) error

	ListRooms(ctx context.Context) ([]model.Room, error)
	GetRoom(ctx context.Context, id int64) (model.Room, error)
	CreateRoom(ctx context.Context, in apiclient.RoomInput) (model.Room, error)
	UpdateRoom(ctx context.Context, id int64, in apiclient.RoomInput) (model.Room, error)
	DeleteRoom(ctx context.Context, id int64) error
	ListRoomEvents(ctx context.Context, roomID int64) ([]model.Event, error)

	ListEvents(ctx context.Context) ([]model.Event, error)
	GetEvent(ctx context.Context, id int64) (model.Event, error)
	CreateEvent(ctx context.Context, in apiclient.EventInput) (model.Event, error)
	UpdateEvent(ctx context.Context, id int64, in apiclient.EventInput) (model.Event, error)
	DeleteEvent(ctx context.Context, id int64) error
}

// Sessions is the session manager as the handlers use it.
type Sessions interface {
	Login(ctx context.Context, email, password string) (*session.State, error)
	Logout(ctx context.Context, cookie string) error
	Invalidate(ctx context.Context, sessionID int64) error
}

const flashCookie = "roomboard_flash"

// Deps are the collaborators shared by every handler.
type Deps struct {
	API      BookingAPI
	Sessions Sessions
	Views    *Views
	Hub      *websocket.Hub
	Location *time.Location
	Now      func() time.Time
	Logger   *slog.Logger
}

func newBase(d Deps, component string) *base {
	loc := d.Location
	if loc == nil {
		loc = time.Local
	}
	clock := d.Now
	if clock == nil {
		clock = time.Now
	}
	return &base{
		api:      d.API,
		sessions: d.Sessions,
		views:    d.Views,
		hub:      d.Hub,
		loc:      loc,
		clock:    clock,
		logger:   d.Logger.With("component", component),
	}
}

// base carries what every handler needs.
type base struct {
	api      BookingAPI
	sessions Sessions
	views    *Views
	hub      *websocket.Hub
	loc      *time.Location
	clock    func() time.Time
	logger   *slog.Logger
}

func (b *base) now() time.Time {
	return b.clock().In(b.loc)
}

// page returns the template data shared by every page.
func (b *base) page(w http.ResponseWriter, r *http.Request, title string) map[string]any {
	_, signedIn := auth.FromContext(r.Context())
	return map[string]any{
		"Title":    title,
		"SignedIn": signedIn,
		"User":     auth.User(r.Context()),
		"IsAdmin":  auth.IsAdmin(r.Context()),
		"Flash":    takeFlash(w, r),
		"Now":      b.now(),
	}
}

func (b *base) render(w http.ResponseWriter, r *http.Request, status int, page string, data map[string]any) {
	if err := b.views.Render(w, status, page, data); err != nil {
		b.logger.Error("render page", "page", page, "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}

// apiFailure reports a failed API call. A 401 ends the session and sends the
// browser to the login page; anything else renders an error banner with a
// link to try again.
func (b *base) apiFailure(w http.ResponseWriter, r *http.Request, err error, retryURL string) {
	if errors.Is(err, apiclient.ErrUnauthorized) {
		b.expire(w, r)
		return
	}

	status := failureStatus(err)
	b.logger.Warn("api call failed", "path", r.URL.Path, "error", err)

	data := b.page(w, r, "Something went wrong")
	data["Error"] = apiclient.UserMessage(err)
	data["RetryURL"] = retryURL
	b.render(w, r, status, "error", data)
}

// apiFailureJSON is apiFailure for JSON endpoints.
func (b *base) apiFailureJSON(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, apiclient.ErrUnauthorized) {
		b.invalidate(r)
		session.ClearCookie(w)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "session expired", "redirect": "/login"})
		return
	}
	writeJSON(w, failureStatus(err), map[string]string{"error": apiclient.UserMessage(err)})
}

// failureStatus passes the API's 404 and 403 through; everything else is
// the upstream's fault.
func failureStatus(err error) int {
	switch {
	case errors.Is(err, apiclient.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apiclient.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusBadGateway
	}
}

// expire tears down the current session after the API rejected its token.
func (b *base) expire(w http.ResponseWriter, r *http.Request) {
	b.invalidate(r)
	session.ClearCookie(w)
	middleware.Redirect(w, r, "/login")
}

func (b *base) invalidate(r *http.Request) {
	id := auth.SessionID(r.Context())
	if id == 0 {
		return
	}
	if err := b.sessions.Invalidate(r.Context(), id); err != nil {
		b.logger.Error("invalidate session", "session_id", id, "error", err)
		return
	}
	b.logger.Info("session invalidated after 401", "session_id", id)
}

// notify tells the kiosks showing roomID that one of its events changed.
func (b *base) notify(roomID int64, action string, eventID int64, data any) {
	b.announce(roomID, websocket.NewMessage("event", action, eventID, roomID, data))
}

func (b *base) announce(roomID int64, msg websocket.Message) {
	if b.hub == nil {
		return
	}
	b.hub.BroadcastRoom(roomID, msg)
}

// setFlash stores a one-shot notice shown on the next page.
func setFlash(w http.ResponseWriter, msg string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(msg),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func takeFlash(w http.ResponseWriter, r *http.Request) string {
	c, err := r.Cookie(flashCookie)
	if err != nil || c.Value == "" {
		return ""
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	msg, err := url.QueryUnescape(c.Value)
	if err != nil {
		return ""
	}
	return msg
}

// redirectWithFlash reports a successful mutation on the page it lands on.
func redirectWithFlash(w http.ResponseWriter, r *http.Request, location, msg string) {
	setFlash(w, msg)
	middleware.Redirect(w, r, location)
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
