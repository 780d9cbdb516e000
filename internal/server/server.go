package server

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/roomboard/internal/auth"
	"github.com/dukerupert/roomboard/internal/handler"
	"github.com/dukerupert/roomboard/internal/middleware"
	"github.com/dukerupert/roomboard/internal/roomwatch"
	ws "github.com/dukerupert/roomboard/internal/websocket"
	"github.com/dukerupert/roomboard/web"
)

// Sessions is what the server needs from the session manager: the gate
// resolves cookies, the handlers sign in and out.
type Sessions interface {
	handler.Sessions
	middleware.SessionSource
}

// Options carries the settings the router depends on.
type Options struct {
	EnforceAdmin   bool
	Location       *time.Location
	Watch          roomwatch.Config
	AllowedOrigins []string
	TrustProxy     bool
	Now            func() time.Time
}

type Server struct {
	gate        auth.Gate
	sessions    Sessions
	hub         *ws.Hub
	authH       *handler.AuthHandler
	dashboardH  *handler.DashboardHandler
	roomH       *handler.RoomHandler
	eventH      *handler.EventHandler
	userH       *handler.UserHandler
	kioskH      *handler.KioskHandler
	rateLimiter *middleware.RateLimiter
	rateKey     func(*http.Request) string
	logger      *slog.Logger
}

func New(api handler.BookingAPI, sessions Sessions, opts Options, logger *slog.Logger) (*Server, error) {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	views, err := handler.NewViews(loc)
	if err != nil {
		return nil, fmt.Errorf("load views: %w", err)
	}

	hub := ws.NewHub(logger.With("component", "websocket"))
	deps := handler.Deps{
		API:      api,
		Sessions: sessions,
		Views:    views,
		Hub:      hub,
		Location: loc,
		Now:      opts.Now,
		Logger:   logger,
	}
	group := roomwatch.NewGroup(api, logger.With("component", "roomwatch"))

	gate := auth.NewGate(opts.EnforceAdmin)
	logger.Info("route gate ready", "enforce_admin", gate.EnforcesAdmin())

	return &Server{
		gate:        gate,
		sessions:    sessions,
		hub:         hub,
		authH:       handler.NewAuthHandler(deps),
		dashboardH:  handler.NewDashboardHandler(deps),
		roomH:       handler.NewRoomHandler(deps),
		eventH:      handler.NewEventHandler(deps),
		userH:       handler.NewUserHandler(deps),
		kioskH:      handler.NewKioskHandler(deps, group, opts.Watch, opts.AllowedOrigins),
		rateLimiter: middleware.NewRateLimiter(),
		rateKey:     middleware.ByIPAndPath(opts.TrustProxy),
		logger:      logger,
	}, nil
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Hub returns the websocket hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	static, _ := fs.Sub(web.FS, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.Handle("GET /unauthorized", s.open(s.authH.Unauthorized))

	// Public routes redirect signed-in users to the dashboard.
	mux.Handle("GET /login", s.public(s.authH.LoginPage))
	mux.Handle("POST /login", s.rateLimited(s.public(s.authH.Login)))
	mux.Handle("GET /register", s.public(s.authH.RegisterPage))
	mux.Handle("POST /register", s.rateLimited(s.public(s.authH.Register)))

	mux.Handle("GET /{$}", s.protected(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	}))
	mux.Handle("POST /logout", s.protected(s.authH.Logout))
	mux.Handle("GET /dashboard", s.protected(s.dashboardH.Show))

	mux.Handle("GET /rooms", s.protected(s.roomH.List))
	mux.Handle("GET /rooms/{id}", s.protected(s.roomH.Kiosk))
	mux.Handle("GET /rooms/{id}/status", s.protected(s.roomH.Status))
	mux.Handle("GET /rooms/{id}/calendar.ics", s.protected(s.roomH.Calendar))
	mux.Handle("POST /rooms/{id}/book", s.protected(s.roomH.QuickBook))

	mux.Handle("GET /events", s.protected(s.eventH.List))
	mux.Handle("POST /events", s.protected(s.eventH.Create))
	mux.Handle("GET /events/durations", s.protected(s.eventH.Durations))
	mux.Handle("POST /events/{id}", s.protected(s.eventH.Update))
	mux.Handle("POST /events/{id}/delete", s.protected(s.eventH.Delete))

	mux.Handle("GET /ws", s.protected(s.kioskH.Socket))

	// Admin routes
	mux.Handle("POST /rooms", s.admin(s.roomH.Create))
	mux.Handle("POST /rooms/{id}", s.admin(s.roomH.Update))
	mux.Handle("POST /rooms/{id}/delete", s.admin(s.roomH.Delete))
	mux.Handle("POST /rooms/{id}/events/{eventID}/delete", s.admin(s.roomH.DeleteEvent))

	mux.Handle("GET /users", s.admin(s.userH.List))
	mux.Handle("POST /users", s.admin(s.userH.Create))
	mux.Handle("POST /users/{id}", s.admin(s.userH.Update))
	mux.Handle("POST /users/{id}/delete", s.admin(s.userH.Delete))

	httpLogger := s.logger.With("component", "http")
	return middleware.RequestID(middleware.RequestLogger(httpLogger)(mux))
}

func (s *Server) guard(kind auth.RouteKind, h http.HandlerFunc) http.Handler {
	return middleware.Gate(s.gate, kind, s.sessions, s.logger.With("component", "gate"))(h)
}

func (s *Server) public(h http.HandlerFunc) http.Handler    { return s.guard(auth.Public, h) }
func (s *Server) protected(h http.HandlerFunc) http.Handler { return s.guard(auth.Protected, h) }
func (s *Server) admin(h http.HandlerFunc) http.Handler     { return s.guard(auth.Admin, h) }

// open serves h to everyone, signed in or not.
func (s *Server) open(h http.HandlerFunc) http.Handler {
	return middleware.Optional(s.sessions, s.logger.With("component", "gate"))(h)
}

func (s *Server) rateLimited(h http.Handler) http.Handler {
	return middleware.RateLimit(s.rateLimiter, s.rateKey, 10, time.Minute)(h)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":        "ok",
		"enforce_admin": s.gate.EnforcesAdmin(),
		"kiosk_clients": s.hub.ClientCount(),
		"kiosk_rooms":   s.hub.RoomCounts(),
	})
}
