package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/roomboard/internal/apiclient"
	"github.com/dukerupert/roomboard/internal/auth"
	"github.com/dukerupert/roomboard/internal/availability"
	"github.com/dukerupert/roomboard/internal/calendarfeed"
	"github.com/dukerupert/roomboard/internal/model"
	"github.com/dukerupert/roomboard/internal/timeutil"
	"github.com/dukerupert/roomboard/internal/websocket"
)

// RoomCard is one room on the rooms page.
type RoomCard struct {
	model.Room
	availability.RoomStatus
}

type RoomHandler struct {
	*base
}

func NewRoomHandler(d Deps) *RoomHandler {
	return &RoomHandler{base: newBase(d, "rooms")}
}

func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	rooms, events, err := fetchRoomsAndEvents(r.Context(), h.api)
	if err != nil {
		h.apiFailure(w, r, err, "/rooms")
		return
	}
	h.renderList(w, r, http.StatusOK, rooms, events, RoomForm{}, FieldErrors{})
}

func (h *RoomHandler) renderList(w http.ResponseWriter, r *http.Request, status int, rooms []model.Room, events []model.Event, form RoomForm, errs FieldErrors) {
	now := h.now()
	cards := make([]RoomCard, 0, len(rooms))
	for _, room := range rooms {
		cards = append(cards, RoomCard{
			Room:       room,
			RoomStatus: availability.Classify(availability.RoomEvents(events, room.ID), now),
		})
	}
	data := h.page(w, r, "Rooms")
	data["Rooms"] = cards
	data["Form"] = form
	data["Errors"] = errs
	h.render(w, r, status, "rooms", data)
}

// Kiosk renders the full-screen view of one room. The page then keeps
// itself current over the websocket.
func (h *RoomHandler) Kiosk(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	room, events, err := h.roomWithEvents(r, id)
	if err != nil {
		h.apiFailure(w, r, err, r.URL.Path)
		return
	}
	h.renderKiosk(w, r, http.StatusOK, room, events, FieldErrors{})
}

func (h *RoomHandler) renderKiosk(w http.ResponseWriter, r *http.Request, status int, room model.Room, events []model.Event, errs FieldErrors) {
	now := h.now()
	snap := availability.Summarize(room, events, now)
	nowPct, inWindow := availability.NowOffsetPct(now, availability.DefaultWindow)
	start := now.Truncate(time.Minute)

	userID := auth.UserID(r.Context())
	data := h.page(w, r, room.Name)
	data["Kiosk"] = true
	data["Snapshot"] = snap
	data["Today"] = toMeetings(snap.Today, map[int64]string{room.ID: room.Name}, userID, now)
	data["NowPct"] = nowPct
	data["NowInWindow"] = inWindow
	quick := []int{}
	if snap.Current == nil {
		quick = availability.AvailableDurations(events, start, 0)
	}
	data["QuickDurations"] = quick
	data["Errors"] = errs
	h.render(w, r, status, "kiosk", data)
}

func (h *RoomHandler) roomWithEvents(r *http.Request, id int64) (model.Room, []model.Event, error) {
	room, err := h.api.GetRoom(r.Context(), id)
	if err != nil {
		return model.Room{}, nil, err
	}
	events, err := h.api.ListRoomEvents(r.Context(), id)
	if err != nil {
		return model.Room{}, nil, err
	}
	return room, events, nil
}

// Status returns the room's current snapshot as JSON.
func (h *RoomHandler) Status(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	room, events, err := h.roomWithEvents(r, id)
	if err != nil {
		h.apiFailureJSON(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, availability.Summarize(room, events, h.now()))
}

func (h *RoomHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	room, events, err := h.roomWithEvents(r, id)
	if err != nil {
		h.apiFailure(w, r, err, r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", calendarfeed.ContentType)
	w.Header().Set("Content-Disposition", `inline; filename="room-`+strconv.FormatInt(id, 10)+`.ics"`)
	if err := calendarfeed.Write(w, room, events, h.clock()); err != nil {
		h.logger.Error("write calendar", "room_id", id, "error", err)
	}
}

// QuickBook books the room from now for the chosen duration.
func (h *RoomHandler) QuickBook(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	room, events, err := h.roomWithEvents(r, id)
	if err != nil {
		h.apiFailure(w, r, err, "/rooms/"+strconv.FormatInt(id, 10))
		return
	}

	start := h.now().Truncate(time.Minute)
	duration, _ := strconv.Atoi(r.PostFormValue("duration"))
	if errs := fitErrors(events, start, 0, duration); errs.Any() {
		h.renderKiosk(w, r, http.StatusConflict, room, events,
			FieldErrors{"duration": "That duration is no longer available."})
		return
	}
	title := strings.TrimSpace(r.PostFormValue("title"))
	if title == "" {
		title = "Ad-hoc meeting"
	}

	ev, err := h.api.CreateEvent(r.Context(), apiclient.EventInput{
		Title:     title,
		RoomID:    id,
		StartTime: start,
		EndTime:   start.Add(time.Duration(duration) * time.Minute),
	})
	if err != nil {
		h.apiFailure(w, r, err, "/rooms/"+strconv.FormatInt(id, 10))
		return
	}
	h.notify(id, "created", ev.ID, ev)
	h.logger.Info("room quick-booked", "room_id", id, "event_id", ev.ID, "minutes", duration)
	redirectWithFlash(w, r, "/rooms/"+strconv.FormatInt(id, 10),
		"Booked "+room.Name+" until "+timeutil.MinutesToTimeString(timeutil.MinutesOfDay(start)+duration)+".")
}

// DeleteEvent removes any meeting of the room. Admin only.
func (h *RoomHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	eventID, err := strconv.ParseInt(r.PathValue("eventID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	back := "/rooms/" + strconv.FormatInt(id, 10)

	ev, err := h.api.GetEvent(r.Context(), eventID)
	if err != nil {
		h.apiFailure(w, r, err, back)
		return
	}
	if ev.RoomID != id {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	if err := h.api.DeleteEvent(r.Context(), eventID); err != nil {
		h.apiFailure(w, r, err, back)
		return
	}
	h.notify(id, "deleted", eventID, nil)
	h.logger.Info("meeting removed from kiosk", "room_id", id, "event_id", eventID, "by", auth.UserID(r.Context()))
	redirectWithFlash(w, r, back, "Meeting removed.")
}

func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	form, errs := parseRoomForm(r)
	if !errs.Any() {
		errs = check(form)
	}
	if errs.Any() {
		h.rerenderList(w, r, form, errs)
		return
	}
	room, err := h.api.CreateRoom(r.Context(), roomInput(form))
	if err != nil {
		h.apiFailure(w, r, err, "/rooms")
		return
	}
	h.logger.Info("room created", "room_id", room.ID)
	redirectWithFlash(w, r, "/rooms", "Room "+room.Name+" created.")
}

func (h *RoomHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	form, errs := parseRoomForm(r)
	if !errs.Any() {
		errs = check(form)
	}
	if errs.Any() {
		h.rerenderList(w, r, form, errs)
		return
	}
	room, err := h.api.UpdateRoom(r.Context(), id, roomInput(form))
	if err != nil {
		h.apiFailure(w, r, err, "/rooms")
		return
	}
	h.announce(room.ID, websocket.NewMessage("room", "updated", room.ID, room.ID, room))
	h.logger.Info("room updated", "room_id", room.ID)
	redirectWithFlash(w, r, "/rooms", "Room "+room.Name+" updated.")
}

func (h *RoomHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	if err := h.api.DeleteRoom(r.Context(), id); err != nil {
		if errors.Is(err, apiclient.ErrNotFound) {
			redirectWithFlash(w, r, "/rooms", "That room no longer exists.")
			return
		}
		h.apiFailure(w, r, err, "/rooms")
		return
	}
	h.announce(id, websocket.NewMessage("room", "deleted", id, id, nil))
	h.logger.Info("room deleted", "room_id", id)
	redirectWithFlash(w, r, "/rooms", "Room deleted.")
}

// rerenderList shows the rooms page again with the rejected form.
func (h *RoomHandler) rerenderList(w http.ResponseWriter, r *http.Request, form RoomForm, errs FieldErrors) {
	rooms, events, err := fetchRoomsAndEvents(r.Context(), h.api)
	if err != nil {
		h.apiFailure(w, r, err, "/rooms")
		return
	}
	h.renderList(w, r, http.StatusUnprocessableEntity, rooms, events, form, errs)
}

func roomInput(f RoomForm) apiclient.RoomInput {
	return apiclient.RoomInput{Name: f.Name, Location: f.Location, Capacity: f.Capacity}
}
