package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dukerupert/roomboard/internal/apiclient"
	"github.com/dukerupert/roomboard/internal/auth"
	"github.com/dukerupert/roomboard/internal/session"
)

// SessionSource resolves a session cookie to its signed-in state.
type SessionSource interface {
	Current(ctx context.Context, cookie string) (*session.State, error)
}

// Gate loads the session, applies the gate's decision for kind, and on
// Allow populates AuthContext and the API token in the request context.
// HTMX-aware: returns HX-Redirect header instead of 303 redirect for HTMX requests.
func Gate(g auth.Gate, kind auth.RouteKind, sessions SessionSource, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			st, stale := load(r, sessions, logger)

			var state auth.State
			if st != nil {
				state = auth.State{Authenticated: true, Role: st.User.Role}
			}

			decision := g.Decide(kind, state)
			if decision != auth.Allow {
				if stale {
					session.ClearCookie(w)
				}
				Redirect(w, r, decision.Location())
				return
			}
			next.ServeHTTP(w, r.WithContext(withState(r.Context(), st)))
		})
	}
}

// Optional loads the session when there is one but never redirects.
func Optional(sessions SessionSource, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			st, stale := load(r, sessions, logger)
			if stale {
				session.ClearCookie(w)
			}
			next.ServeHTTP(w, r.WithContext(withState(r.Context(), st)))
		})
	}
}

// load resolves the request's cookie. stale reports a cookie that no longer
// names a live session.
func load(r *http.Request, sessions SessionSource, logger *slog.Logger) (st *session.State, stale bool) {
	cookie := session.CookieValue(r)
	if cookie == "" {
		return nil, false
	}
	st, err := sessions.Current(r.Context(), cookie)
	if err != nil {
		logger.Error("load session", "error", err)
		return nil, false
	}
	return st, st == nil
}

func withState(ctx context.Context, st *session.State) context.Context {
	if st == nil {
		return ctx
	}
	ctx = auth.WithAuth(ctx, auth.AuthContext{
		SessionID: st.SessionID,
		UserID:    st.User.ID,
		Role:      st.User.Role,
		APIToken:  st.Token,
		User:      st.User,
	})
	return apiclient.WithToken(ctx, st.Token)
}

// Redirect sends a 303, or an HX-Redirect header for HTMX requests.
func Redirect(w http.ResponseWriter, r *http.Request, location string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", location)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}
