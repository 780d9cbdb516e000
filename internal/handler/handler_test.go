package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dukerupert/roomboard/internal/apiclient"
	"github.com/dukerupert/roomboard/internal/auth"
	"github.com/dukerupert/roomboard/internal/model"
	"github.com/dukerupert/roomboard/internal/session"
)

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 10, hour, minute, 0, 0, time.UTC)
}

// fakeAPI is an in-memory booking API. errs fails calls by method name.
type fakeAPI struct {
	mu     sync.Mutex
	users  []model.User
	rooms  []model.Room
	events []model.Event
	errs   map[string]error
	nextID int64

	registered []apiclient.RegisterRequest
	created    []apiclient.EventInput
	updated    map[int64]apiclient.EventInput
	deleted    []int64
	rooms2     []apiclient.RoomInput
	usersIn    []apiclient.UserInput
}

func (f *fakeAPI) fail(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errs[method]
}

func (f *fakeAPI) Register(ctx context.Context, req apiclient.RegisterRequest) (model.User, error) {
	if err := f.fail("Register"); err != nil {
		return model.User{}, err
	}
	f.registered = append(f.registered, req)
	return model.User{ID: 99, FirstName: req.FirstName, LastName: req.LastName}, nil
}

func (f *fakeAPI) ListUsers(ctx context.Context) ([]model.User, error) {
	if err := f.fail("ListUsers"); err != nil {
		return nil, err
	}
	return f.users, nil
}

func (f *fakeAPI) CreateUser(ctx context.Context, in apiclient.UserInput) (model.User, error) {
	if err := f.fail("CreateUser"); err != nil {
		return model.User{}, err
	}
	f.usersIn = append(f.usersIn, in)
	return model.User{ID: 50, FirstName: in.FirstName, LastName: in.LastName}, nil
}

func (f *fakeAPI) UpdateUser(ctx context.Context, id int64, in apiclient.UserInput) (model.User, error) {
	if err := f.fail("UpdateUser"); err != nil {
		return model.User{}, err
	}
	f.usersIn = append(f.usersIn, in)
	return model.User{ID: id, FirstName: in.FirstName, LastName: in.LastName}, nil
}

func (f *fakeAPI) DeleteUser(ctx context.Context, id int64) error {
	if err := f.fail("DeleteUser"); err != nil {
		return err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeAPI) ListRooms(ctx context.Context) ([]model.Room, error) {
	if err := f.fail("ListRooms"); err != nil {
		return nil, err
	}
	return f.rooms, nil
}

func (f *fakeAPI) GetRoom(ctx context.Context, id int64) (model.Room, error) {
	if err := f.fail("GetRoom"); err != nil {
		return model.Room{}, err
	}
	for _, r := range f.rooms {
		if r.ID == id {
			return r, nil
		}
	}
	return model.Room{}, &apiclient.APIError{StatusCode: http.StatusNotFound, Message: "Room not found."}
}

func (f *fakeAPI) CreateRoom(ctx context.Context, in apiclient.RoomInput) (model.Room, error) {
	if err := f.fail("CreateRoom"); err != nil {
		return model.Room{}, err
	}
	f.rooms2 = append(f.rooms2, in)
	return model.Room{ID: 77, Name: in.Name}, nil
}

func (f *fakeAPI) UpdateRoom(ctx context.Context, id int64, in apiclient.RoomInput) (model.Room, error) {
	if err := f.fail("UpdateRoom"); err != nil {
		return model.Room{}, err
	}
	f.rooms2 = append(f.rooms2, in)
	return model.Room{ID: id, Name: in.Name}, nil
}

func (f *fakeAPI) DeleteRoom(ctx context.Context, id int64) error {
	if err := f.fail("DeleteRoom"); err != nil {
		return err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeAPI) ListRoomEvents(ctx context.Context, roomID int64) ([]model.Event, error) {
	if err := f.fail("ListRoomEvents"); err != nil {
		return nil, err
	}
	var out []model.Event
	for _, e := range f.events {
		if e.RoomID == roomID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeAPI) ListEvents(ctx context.Context) ([]model.Event, error) {
	if err := f.fail("ListEvents"); err != nil {
		return nil, err
	}
	return f.events, nil
}

func (f *fakeAPI) GetEvent(ctx context.Context, id int64) (model.Event, error) {
	if err := f.fail("GetEvent"); err != nil {
		return model.Event{}, err
	}
	for _, e := range f.events {
		if e.ID == id {
			return e, nil
		}
	}
	return model.Event{}, &apiclient.APIError{StatusCode: http.StatusNotFound, Message: "Event not found."}
}

func (f *fakeAPI) CreateEvent(ctx context.Context, in apiclient.EventInput) (model.Event, error) {
	if err := f.fail("CreateEvent"); err != nil {
		return model.Event{}, err
	}
	f.created = append(f.created, in)
	f.nextID++
	return model.Event{ID: 1000 + f.nextID, Title: in.Title, RoomID: in.RoomID, StartTime: in.StartTime, EndTime: in.EndTime}, nil
}

func (f *fakeAPI) UpdateEvent(ctx context.Context, id int64, in apiclient.EventInput) (model.Event, error) {
	if err := f.fail("UpdateEvent"); err != nil {
		return model.Event{}, err
	}
	if f.updated == nil {
		f.updated = map[int64]apiclient.EventInput{}
	}
	f.updated[id] = in
	return model.Event{ID: id, Title: in.Title, RoomID: in.RoomID, StartTime: in.StartTime, EndTime: in.EndTime}, nil
}

func (f *fakeAPI) DeleteEvent(ctx context.Context, id int64) error {
	if err := f.fail("DeleteEvent"); err != nil {
		return err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeSessions struct {
	mu          sync.Mutex
	state       *session.State
	loginErr    error
	logouts     []string
	invalidated []int64
}

func (f *fakeSessions) Login(ctx context.Context, email, password string) (*session.State, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.state, nil
}

func (f *fakeSessions) Logout(ctx context.Context, cookie string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logouts = append(f.logouts, cookie)
	return nil
}

func (f *fakeSessions) Invalidate(ctx context.Context, sessionID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, sessionID)
	return nil
}

func (f *fakeSessions) invalidatedIDs() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.invalidated...)
}

var (
	alice = model.User{ID: 1, FirstName: "Alice", LastName: "Ng", Username: "alice", Email: "alice@example.com", Role: model.RoleUser}
	root  = model.User{ID: 2, FirstName: "Ada", LastName: "Root", Username: "ada", Email: "ada@example.com", Role: model.RoleAdmin}
)

func testDeps(t *testing.T, api *fakeAPI, sessions *fakeSessions) Deps {
	t.Helper()
	views, err := NewViews(time.UTC)
	require.NoError(t, err)
	return Deps{
		API:      api,
		Sessions: sessions,
		Views:    views,
		Location: time.UTC,
		Now:      func() time.Time { return testNow },
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func signedIn(r *http.Request, u model.User) *http.Request {
	ctx := auth.WithAuth(r.Context(), auth.AuthContext{
		SessionID: 7,
		UserID:    u.ID,
		Role:      u.Role,
		APIToken:  "tok",
		User:      u,
	})
	return r.WithContext(ctx)
}

func postForm(target string, values url.Values) *http.Request {
	r := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func flashOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == flashCookie {
			msg, err := url.QueryUnescape(c.Value)
			require.NoError(t, err)
			return msg
		}
	}
	return ""
}

func TestViewsParseEveryPage(t *testing.T) {
	views, err := NewViews(time.UTC)
	require.NoError(t, err)
	for _, page := range []string{"login", "register", "unauthorized", "error", "dashboard", "rooms", "kiosk", "events", "users"} {
		require.Contains(t, views.pages, page)
	}
	require.NotContains(t, views.pages, "layout")
}

func TestRenderUnknownPage(t *testing.T) {
	views, err := NewViews(time.UTC)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	require.Error(t, views.Render(rec, http.StatusOK, "missing", nil))
	require.Equal(t, 0, rec.Body.Len())
}

func TestFlashIsShownOnce(t *testing.T) {
	rec := httptest.NewRecorder()
	setFlash(rec, "Room deleted.")
	cookie := rec.Result().Cookies()[0]

	r := httptest.NewRequest(http.MethodGet, "/rooms", nil)
	r.AddCookie(cookie)
	next := httptest.NewRecorder()
	require.Equal(t, "Room deleted.", takeFlash(next, r))

	cleared := next.Result().Cookies()
	require.Len(t, cleared, 1)
	require.Equal(t, -1, cleared[0].MaxAge)
}

func TestAPIFailureUnauthorizedEndsSession(t *testing.T) {
	api := &fakeAPI{errs: map[string]error{"ListRooms": apiclient.ErrUnauthorized}}
	sessions := &fakeSessions{}
	h := NewDashboardHandler(testDeps(t, api, sessions))

	rec := httptest.NewRecorder()
	h.Show(rec, signedIn(httptest.NewRequest(http.MethodGet, "/dashboard", nil), alice))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/login", rec.Header().Get("Location"))
	require.Equal(t, []int64{7}, sessions.invalidated)
	require.Contains(t, rec.Header().Get("Set-Cookie"), session.CookieName+"=;")
}

func TestAPIFailureTransportShowsRetry(t *testing.T) {
	api := &fakeAPI{errs: map[string]error{"ListEvents": apiclient.ErrTransport}}
	sessions := &fakeSessions{}
	h := NewDashboardHandler(testDeps(t, api, sessions))

	rec := httptest.NewRecorder()
	h.Show(rec, signedIn(httptest.NewRequest(http.MethodGet, "/dashboard", nil), alice))

	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Contains(t, rec.Body.String(), "The booking service could not be reached.")
	require.Contains(t, rec.Body.String(), `href="/dashboard">Try again`)
	require.Empty(t, sessions.invalidated)
}

func TestAPIFailureForbiddenKeepsSession(t *testing.T) {
	forbidden := &apiclient.APIError{StatusCode: http.StatusForbidden, Message: "This action is unauthorized."}
	api := &fakeAPI{errs: map[string]error{"ListRooms": forbidden}}
	sessions := &fakeSessions{}
	h := NewDashboardHandler(testDeps(t, api, sessions))

	rec := httptest.NewRecorder()
	h.Show(rec, signedIn(httptest.NewRequest(http.MethodGet, "/dashboard", nil), alice))

	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), "This action is unauthorized.")
	require.Empty(t, sessions.invalidated)
}

func TestFailureStatus(t *testing.T) {
	require.Equal(t, http.StatusNotFound, failureStatus(&apiclient.APIError{StatusCode: http.StatusNotFound}))
	require.Equal(t, http.StatusForbidden, failureStatus(&apiclient.APIError{StatusCode: http.StatusForbidden}))
	require.Equal(t, http.StatusBadGateway, failureStatus(&apiclient.APIError{StatusCode: http.StatusInternalServerError}))
	require.Equal(t, http.StatusBadGateway, failureStatus(apiclient.ErrTransport))
}

func TestBackOnlyAcceptsLocalPaths(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		referer string
		want    string
	}{
		{"field", "/dashboard", "", "/dashboard"},
		{"protocol relative", "//evil.example", "", "/events"},
		{"referer same host", "", "http://example.com/rooms/3", "/rooms/3"},
		{"referer other host", "", "http://evil.example/rooms/3", "/events"},
		{"nothing", "", "", "/events"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := postForm("/events/1/delete", url.Values{"back": {tt.field}})
			if tt.referer != "" {
				r.Header.Set("Referer", tt.referer)
			}
			require.Equal(t, tt.want, back(r, "/events"))
		})
	}
}
