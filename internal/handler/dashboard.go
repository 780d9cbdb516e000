package handler

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/roomboard/internal/auth"
	"github.com/dukerupert/roomboard/internal/availability"
	"github.com/dukerupert/roomboard/internal/model"
)

// Meeting is an event prepared for display.
type Meeting struct {
	model.Event
	RoomName  string
	Mine      bool
	CanDelete bool
}

// DashboardStats are the counters along the top of the dashboard.
type DashboardStats struct {
	Rooms       int
	FreeRooms   int
	MyToday     int
	MyUpcoming  int
	BookedToday int
}

type DashboardHandler struct {
	*base
}

func NewDashboardHandler(d Deps) *DashboardHandler {
	return &DashboardHandler{base: newBase(d, "dashboard")}
}

// fetchRoomsAndEvents loads both collections concurrently.
func fetchRoomsAndEvents(ctx context.Context, api BookingAPI) ([]model.Room, []model.Event, error) {
	var (
		rooms  []model.Room
		events []model.Event
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rooms, err = api.ListRooms(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		events, err = api.ListEvents(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return rooms, events, nil
}

func (h *DashboardHandler) Show(w http.ResponseWriter, r *http.Request) {
	rooms, events, err := fetchRoomsAndEvents(r.Context(), h.api)
	if err != nil {
		h.apiFailure(w, r, err, "/dashboard")
		return
	}

	now := h.now()
	userID := auth.UserID(r.Context())
	mine := ownedBy(events, userID)
	names := roomNames(rooms)

	data := h.page(w, r, "Dashboard")
	if current, ok := availability.CurrentMeeting(mine, now); ok {
		m := toMeeting(current, names, userID, now)
		data["Current"] = &m
	}
	today := availability.TodaysMeetings(mine, now)
	upcoming := availability.UpcomingMeetings(mine, now)
	free := availability.FreeRooms(rooms, events, now)

	data["Today"] = toMeetings(today, names, userID, now)
	data["Upcoming"] = toMeetings(upcoming, names, userID, now)
	data["Later"] = toMeetings(availability.LaterMeetings(mine, now), names, userID, now)
	data["FreeRooms"] = free
	data["Stats"] = DashboardStats{
		Rooms:       len(rooms),
		FreeRooms:   len(free),
		MyToday:     len(today),
		MyUpcoming:  len(upcoming),
		BookedToday: len(availability.TodaysMeetings(events, now)),
	}
	data["RefreshSeconds"] = int(time.Minute / time.Second)
	h.render(w, r, http.StatusOK, "dashboard", data)
}

func ownedBy(events []model.Event, userID int64) []model.Event {
	var out []model.Event
	for _, e := range events {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}

func roomNames(rooms []model.Room) map[int64]string {
	names := make(map[int64]string, len(rooms))
	for _, r := range rooms {
		names[r.ID] = r.Name
	}
	return names
}

func toMeeting(e model.Event, names map[int64]string, userID int64, now time.Time) Meeting {
	return Meeting{
		Event:     e,
		RoomName:  names[e.RoomID],
		Mine:      e.UserID == userID,
		CanDelete: availability.CanDelete(e, userID, now),
	}
}

func toMeetings(events []model.Event, names map[int64]string, userID int64, now time.Time) []Meeting {
	out := make([]Meeting, 0, len(events))
	for _, e := range events {
		out = append(out, toMeeting(e, names, userID, now))
	}
	return out
}
