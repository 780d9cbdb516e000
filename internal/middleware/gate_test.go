package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukerupert/roomboard/internal/apiclient"
	"github.com/dukerupert/roomboard/internal/auth"
	"github.com/dukerupert/roomboard/internal/model"
	"github.com/dukerupert/roomboard/internal/session"
)

type fakeSessions struct {
	states map[string]*session.State
	err    error
}

func (f fakeSessions) Current(ctx context.Context, cookie string) (*session.State, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.states[cookie], nil
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func testSessions() fakeSessions {
	return fakeSessions{states: map[string]*session.State{
		"user-cookie": {
			SessionID: 11,
			Token:     "user-token",
			User:      model.User{ID: 7, Role: model.RoleUser},
		},
		"admin-cookie": {
			SessionID: 12,
			Token:     "admin-token",
			User:      model.User{ID: 1, Role: model.RoleAdmin},
		},
	}}
}

func serveGate(t *testing.T, kind auth.RouteKind, enforce bool, sessions SessionSource, cookie string, htmx bool) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	reached := false
	h := Gate(auth.NewGate(enforce), kind, sessions, discard)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: cookie})
	}
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, reached
}

func TestGateNoCookie(t *testing.T) {
	rec, reached := serveGate(t, auth.Protected, true, testSessions(), "", false)

	if reached {
		t.Fatal("should not reach handler")
	}
	if rec.Code != http.StatusSeeOther {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != "/login" {
		t.Errorf("Location = %q, want %q", loc, "/login")
	}
}

func TestGateStaleCookieCleared(t *testing.T) {
	rec, _ := serveGate(t, auth.Protected, true, testSessions(), "gone", false)

	if rec.Code != http.StatusSeeOther {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != session.CookieName || cookies[0].MaxAge != -1 {
		t.Errorf("expected cleared session cookie, got %v", cookies)
	}
}

func TestGateValidSession(t *testing.T) {
	var gotAC auth.AuthContext
	var gotToken string
	h := Gate(auth.NewGate(true), auth.Protected, testSessions(), discard)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac, ok := auth.FromContext(r.Context())
		if !ok {
			t.Fatal("expected AuthContext in request context")
		}
		gotAC = ac
		gotToken = apiclient.TokenFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "user-cookie"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotAC.UserID != 7 {
		t.Errorf("UserID = %d, want 7", gotAC.UserID)
	}
	if gotAC.SessionID != 11 {
		t.Errorf("SessionID = %d, want 11", gotAC.SessionID)
	}
	if gotToken != "user-token" {
		t.Errorf("api token = %q, want %q", gotToken, "user-token")
	}
}

func TestGateHTMXRedirect(t *testing.T) {
	rec, _ := serveGate(t, auth.Protected, true, testSessions(), "", true)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if hxRedirect := rec.Header().Get("HX-Redirect"); hxRedirect != "/login" {
		t.Errorf("HX-Redirect = %q, want %q", hxRedirect, "/login")
	}
}

func TestGatePublicRedirectsSignedIn(t *testing.T) {
	rec, reached := serveGate(t, auth.Public, true, testSessions(), "user-cookie", false)

	if reached {
		t.Fatal("should not reach handler")
	}
	if loc := rec.Header().Get("Location"); loc != "/dashboard" {
		t.Errorf("Location = %q, want %q", loc, "/dashboard")
	}

	_, reached = serveGate(t, auth.Public, true, testSessions(), "", false)
	if !reached {
		t.Error("anonymous visitor should reach public route")
	}
}

func TestGateAdmin(t *testing.T) {
	rec, reached := serveGate(t, auth.Admin, true, testSessions(), "user-cookie", false)
	if reached {
		t.Fatal("non-admin should not reach admin route")
	}
	if loc := rec.Header().Get("Location"); loc != "/unauthorized" {
		t.Errorf("Location = %q, want %q", loc, "/unauthorized")
	}

	if _, reached := serveGate(t, auth.Admin, true, testSessions(), "admin-cookie", false); !reached {
		t.Error("admin should reach admin route")
	}
	if _, reached := serveGate(t, auth.Admin, false, testSessions(), "user-cookie", false); !reached {
		t.Error("user should reach admin route when enforcement is off")
	}
}

func TestGateSessionError(t *testing.T) {
	rec, reached := serveGate(t, auth.Protected, true, fakeSessions{err: errors.New("db down")}, "user-cookie", false)

	if reached {
		t.Fatal("should not reach handler")
	}
	if loc := rec.Header().Get("Location"); loc != "/login" {
		t.Errorf("Location = %q, want %q", loc, "/login")
	}
}

func TestOptionalNeverRedirects(t *testing.T) {
	for _, cookie := range []string{"", "gone", "user-cookie"} {
		var signedIn bool
		h := Optional(testSessions(), discard)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, signedIn = auth.FromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest("GET", "/unauthorized", nil)
		if cookie != "" {
			req.AddCookie(&http.Cookie{Name: session.CookieName, Value: cookie})
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("cookie %q: status = %d, want %d", cookie, rec.Code, http.StatusOK)
		}
		if want := cookie == "user-cookie"; signedIn != want {
			t.Errorf("cookie %q: signed in = %v, want %v", cookie, signedIn, want)
		}
		if cookie == "gone" && len(rec.Result().Cookies()) != 1 {
			t.Errorf("stale cookie should be cleared")
		}
	}
}
