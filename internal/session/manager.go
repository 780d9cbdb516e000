// Package session owns the signed-in state of a dashboard browser: the
// booking API token and the user it belongs to.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/roomboard/internal/apiclient"
	"github.com/dukerupert/roomboard/internal/model"
	"github.com/dukerupert/roomboard/internal/store"
)

const (
	CookieName = "roomboard_session"

	keyToken = "token"
	keyUser  = "user"
)

// ErrInvalidCredentials is returned by Login when the API rejects the
// credentials with any 4xx other than 429. No session state is touched.
var ErrInvalidCredentials = errors.New("invalid email or password")

// Authenticator is the part of the booking API the manager signs in with.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (apiclient.LoginResult, error)
}

// State is the signed-in view of one session.
type State struct {
	SessionID int64
	Cookie    string
	Token     string
	User      model.User
	ExpiresAt time.Time
}

type Manager struct {
	sessions *store.SessionStore
	api      Authenticator
	sealer   *Sealer
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewManager(sessions *store.SessionStore, api Authenticator, sealer *Sealer, ttl time.Duration, logger *slog.Logger) *Manager {
	return &Manager{
		sessions: sessions,
		api:      api,
		sealer:   sealer,
		ttl:      ttl,
		logger:   logger.With("component", "session"),
		now:      time.Now,
	}
}

// Login authenticates against the API and, on success, creates a session
// holding the token and user. The session expires at the earlier of the
// configured TTL and the token's own expiry.
func (m *Manager) Login(ctx context.Context, email, password string) (*State, error) {
	res, err := m.api.Login(ctx, email, password)
	if err != nil {
		if rejectedCredentials(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if res.AccessToken == "" {
		return nil, fmt.Errorf("login response carried no access token")
	}

	expiresAt := m.now().Add(m.ttl)
	if exp, ok := apiclient.TokenExpiry(res.AccessToken); ok && exp.Before(expiresAt) {
		expiresAt = exp
	}
	if !expiresAt.After(m.now()) {
		return nil, fmt.Errorf("access token already expired")
	}

	sealed, err := m.sealer.Seal(res.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("seal token: %w", err)
	}
	userJSON, err := json.Marshal(res.User)
	if err != nil {
		return nil, fmt.Errorf("marshal user: %w", err)
	}

	sess, err := m.sessions.Create(expiresAt)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if err := m.sessions.SetValues(sess.ID, map[string]string{
		keyToken: sealed,
		keyUser:  string(userJSON),
	}); err != nil {
		m.sessions.Delete(sess.ID)
		return nil, fmt.Errorf("store session values: %w", err)
	}

	m.logger.Info("signed in", "user_id", res.User.ID, "session_id", sess.ID)
	return &State{
		SessionID: sess.ID,
		Cookie:    sess.Token,
		Token:     res.AccessToken,
		User:      res.User,
		ExpiresAt: sess.ExpiresAt,
	}, nil
}

func rejectedCredentials(err error) bool {
	var apiErr *apiclient.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 &&
		apiErr.StatusCode != http.StatusTooManyRequests
}

// Current returns the signed-in state behind a cookie value, or nil when the
// cookie names no live session or the session lacks a token or user.
func (m *Manager) Current(ctx context.Context, cookie string) (*State, error) {
	if cookie == "" {
		return nil, nil
	}
	sess, err := m.sessions.GetByToken(cookie)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, nil
	}

	sealed, ok, err := m.sessions.Value(sess.ID, keyToken)
	if err != nil || !ok {
		return nil, err
	}
	userJSON, ok, err := m.sessions.Value(sess.ID, keyUser)
	if err != nil || !ok {
		return nil, err
	}

	token, err := m.sealer.Open(sealed)
	if err != nil {
		m.logger.Warn("dropping session with unreadable token", "session_id", sess.ID)
		return nil, m.Invalidate(ctx, sess.ID)
	}
	var user model.User
	if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
		m.logger.Warn("dropping session with unreadable user", "session_id", sess.ID)
		return nil, m.Invalidate(ctx, sess.ID)
	}

	return &State{
		SessionID: sess.ID,
		Cookie:    sess.Token,
		Token:     token,
		User:      user,
		ExpiresAt: sess.ExpiresAt,
	}, nil
}

// Logout destroys the session behind a cookie value. Unknown cookies are
// not an error.
func (m *Manager) Logout(ctx context.Context, cookie string) error {
	if cookie == "" {
		return nil
	}
	sess, err := m.sessions.GetByToken(cookie)
	if err != nil {
		return err
	}
	if sess == nil {
		return nil
	}
	m.logger.Info("signed out", "session_id", sess.ID)
	return m.Invalidate(ctx, sess.ID)
}

// Invalidate clears the token and user of a session and removes it. Called
// on logout and whenever the API answers 401.
func (m *Manager) Invalidate(ctx context.Context, sessionID int64) error {
	if err := m.sessions.DeleteValues(sessionID, keyToken, keyUser); err != nil {
		return err
	}
	return m.sessions.Delete(sessionID)
}

// Reap removes expired sessions.
func (m *Manager) Reap() (int64, error) {
	return m.sessions.DeleteExpired()
}

// SetCookie writes the session cookie for st.
func SetCookie(w http.ResponseWriter, r *http.Request, st *State) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    st.Cookie,
		Path:     "/",
		Expires:  st.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
}

func ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// CookieValue returns the session cookie carried by r, or "".
func CookieValue(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
