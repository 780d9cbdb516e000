package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/roomboard/internal/apiclient"
	"github.com/dukerupert/roomboard/internal/availability"
	"github.com/dukerupert/roomboard/internal/calendarfeed"
	"github.com/dukerupert/roomboard/internal/model"
)

func roomsAPI() *fakeAPI {
	return &fakeAPI{
		rooms: []model.Room{
			{ID: 1, Name: "Atlas", Capacity: 8},
			{ID: 2, Name: "Borealis", Location: "Ground floor"},
			{ID: 3, Name: "Cygnus"},
		},
		events: []model.Event{
			{ID: 30, Title: "Standup", RoomID: 1, UserID: alice.ID, StartTime: at(8, 30), EndTime: at(9, 30)},
			{ID: 31, Title: "Sync", RoomID: 2, UserID: root.ID, StartTime: at(9, 10), EndTime: at(9, 40)},
			{ID: 32, Title: "Lunch talk", RoomID: 2, UserID: root.ID, StartTime: at(12, 0), EndTime: at(13, 0)},
			{ID: 33, Title: "Review", RoomID: 3, UserID: root.ID, StartTime: at(9, 20), EndTime: at(10, 0)},
		},
	}
}

func withID(r *http.Request, id string) *http.Request {
	r.SetPathValue("id", id)
	return r
}

func TestRoomList(t *testing.T) {
	h := NewRoomHandler(testDeps(t, roomsAPI(), &fakeSessions{}))

	rec := httptest.NewRecorder()
	h.List(rec, signedIn(httptest.NewRequest(http.MethodGet, "/rooms", nil), alice))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, `room-card status-occupied`)
	require.Contains(t, body, `room-card status-soon`)
	require.Contains(t, body, "Starting soon: Sync in 10 min")
	require.NotContains(t, body, "Add a room")
}

func TestRoomListAdminSeesForm(t *testing.T) {
	h := NewRoomHandler(testDeps(t, roomsAPI(), &fakeSessions{}))

	rec := httptest.NewRecorder()
	h.List(rec, signedIn(httptest.NewRequest(http.MethodGet, "/rooms", nil), root))

	require.Contains(t, rec.Body.String(), "Add a room")
	require.Contains(t, rec.Body.String(), `action="/rooms/1/delete"`)
}

func TestKioskOccupiedRoom(t *testing.T) {
	h := NewRoomHandler(testDeps(t, roomsAPI(), &fakeSessions{}))

	rec := httptest.NewRecorder()
	h.Kiosk(rec, withID(signedIn(httptest.NewRequest(http.MethodGet, "/rooms/1", nil), alice), "1"))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "Occupied")
	require.Contains(t, body, "Standup until 09:30")
	require.Contains(t, body, "The room cannot be booked right now.")
	require.Contains(t, body, `data-room="1"`)
	require.NotContains(t, body, "Remove</button>")
	require.NotContains(t, body, `class="topbar"`)
}

func TestKioskFreeRoomOffersQuickBook(t *testing.T) {
	h := NewRoomHandler(testDeps(t, roomsAPI(), &fakeSessions{}))

	rec := httptest.NewRecorder()
	h.Kiosk(rec, withID(signedIn(httptest.NewRequest(http.MethodGet, "/rooms/3", nil), root), "3"))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "Available")
	require.Contains(t, body, "Next: Review at 09:20")
	require.Contains(t, body, `name="duration" value="15"`)
	require.NotContains(t, body, `name="duration" value="30"`)
	require.Contains(t, body, "Remove</button>")
}

func TestKioskUnknownRoom(t *testing.T) {
	h := NewRoomHandler(testDeps(t, roomsAPI(), &fakeSessions{}))

	rec := httptest.NewRecorder()
	h.Kiosk(rec, withID(signedIn(httptest.NewRequest(http.MethodGet, "/rooms/9", nil), alice), "9"))

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "Room not found.")
}

func TestRoomStatusJSON(t *testing.T) {
	h := NewRoomHandler(testDeps(t, roomsAPI(), &fakeSessions{}))

	rec := httptest.NewRecorder()
	h.Status(rec, withID(signedIn(httptest.NewRequest(http.MethodGet, "/rooms/2/status", nil), alice), "2"))

	require.Equal(t, http.StatusOK, rec.Code)
	var snap availability.RoomSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, availability.StatusSoon, snap.Status)
	assert.Equal(t, 10, snap.MinutesUntil)
	require.NotNil(t, snap.Next)
	assert.Equal(t, int64(31), snap.Next.ID)
	assert.Len(t, snap.Today, 2)
}

func TestRoomStatusJSONUnauthorized(t *testing.T) {
	api := roomsAPI()
	api.errs = map[string]error{"GetRoom": apiclient.ErrUnauthorized}
	sessions := &fakeSessions{}
	h := NewRoomHandler(testDeps(t, api, sessions))

	rec := httptest.NewRecorder()
	h.Status(rec, withID(signedIn(httptest.NewRequest(http.MethodGet, "/rooms/2/status", nil), alice), "2"))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, []int64{7}, sessions.invalidated)
}

func TestRoomCalendar(t *testing.T) {
	h := NewRoomHandler(testDeps(t, roomsAPI(), &fakeSessions{}))

	rec := httptest.NewRecorder()
	h.Calendar(rec, withID(signedIn(httptest.NewRequest(http.MethodGet, "/rooms/2/calendar.ics", nil), alice), "2"))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, calendarfeed.ContentType, rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	require.True(t, strings.HasPrefix(body, "BEGIN:VCALENDAR"))
	require.Contains(t, body, "SUMMARY:Sync")
	require.Contains(t, body, "SUMMARY:Lunch talk")
}

func TestQuickBook(t *testing.T) {
	api := roomsAPI()
	h := NewRoomHandler(testDeps(t, api, &fakeSessions{}))

	r := withID(signedIn(postForm("/rooms/3/book", url.Values{"duration": {"15"}}), alice), "3")
	rec := httptest.NewRecorder()
	h.QuickBook(rec, r)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/rooms/3", rec.Header().Get("Location"))
	require.Len(t, api.created, 1)
	assert.Equal(t, "Ad-hoc meeting", api.created[0].Title)
	assert.True(t, api.created[0].StartTime.Equal(at(9, 0)))
	assert.True(t, api.created[0].EndTime.Equal(at(9, 15)))
	assert.Equal(t, "Booked Cygnus until 09:15.", flashOf(t, rec))
}

func TestQuickBookRejected(t *testing.T) {
	tests := []struct {
		name     string
		room     string
		duration string
	}{
		{"occupied room", "1", "15"},
		{"runs into next meeting", "3", "30"},
		{"not on the ladder", "3", "20"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := roomsAPI()
			h := NewRoomHandler(testDeps(t, api, &fakeSessions{}))

			r := withID(signedIn(postForm("/rooms/"+tt.room+"/book", url.Values{"duration": {tt.duration}}), alice), tt.room)
			rec := httptest.NewRecorder()
			h.QuickBook(rec, r)

			require.Equal(t, http.StatusConflict, rec.Code)
			require.Contains(t, rec.Body.String(), "That duration is no longer available.")
			require.Empty(t, api.created)
		})
	}
}

func TestKioskDeleteEvent(t *testing.T) {
	api := roomsAPI()
	h := NewRoomHandler(testDeps(t, api, &fakeSessions{}))

	r := withID(signedIn(postForm("/rooms/1/events/30/delete", nil), root), "1")
	r.SetPathValue("eventID", "30")
	rec := httptest.NewRecorder()
	h.DeleteEvent(rec, r)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/rooms/1", rec.Header().Get("Location"))
	require.Equal(t, []int64{30}, api.deleted)
}

func TestKioskDeleteEventWrongRoom(t *testing.T) {
	api := roomsAPI()
	h := NewRoomHandler(testDeps(t, api, &fakeSessions{}))

	r := withID(signedIn(postForm("/rooms/2/events/30/delete", nil), root), "2")
	r.SetPathValue("eventID", "30")
	rec := httptest.NewRecorder()
	h.DeleteEvent(rec, r)

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Empty(t, api.deleted)
}

func TestRoomCreate(t *testing.T) {
	api := roomsAPI()
	h := NewRoomHandler(testDeps(t, api, &fakeSessions{}))

	rec := httptest.NewRecorder()
	h.Create(rec, signedIn(postForm("/rooms", url.Values{"name": {"Cygnus"}, "capacity": {"12"}}), root))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, []apiclient.RoomInput{{Name: "Cygnus", Capacity: 12}}, api.rooms2)
}

func TestRoomCreateValidation(t *testing.T) {
	tests := []struct {
		name string
		form url.Values
		msg  string
	}{
		{"no name", url.Values{"name": {" "}}, "This field is required."},
		{"bad capacity", url.Values{"name": {"Cygnus"}, "capacity": {"lots"}}, "Enter a whole number."},
		{"negative capacity", url.Values{"name": {"Cygnus"}, "capacity": {"-1"}}, "Must be at least 0."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := roomsAPI()
			h := NewRoomHandler(testDeps(t, api, &fakeSessions{}))

			rec := httptest.NewRecorder()
			h.Create(rec, signedIn(postForm("/rooms", tt.form), root))

			require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			require.Contains(t, rec.Body.String(), tt.msg)
			require.Empty(t, api.rooms2)
		})
	}
}

func TestRoomDeleteMissingIsNotAnError(t *testing.T) {
	api := roomsAPI()
	api.errs = map[string]error{"DeleteRoom": &apiclient.APIError{StatusCode: http.StatusNotFound, Message: "Not found."}}
	h := NewRoomHandler(testDeps(t, api, &fakeSessions{}))

	rec := httptest.NewRecorder()
	h.Delete(rec, withID(signedIn(postForm("/rooms/5/delete", nil), root), "5"))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "That room no longer exists.", flashOf(t, rec))
}
