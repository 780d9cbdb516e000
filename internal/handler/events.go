package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dukerupert/roomboard/internal/apiclient"
	"github.com/dukerupert/roomboard/internal/auth"
	"github.com/dukerupert/roomboard/internal/availability"
	"github.com/dukerupert/roomboard/internal/model"
	"github.com/dukerupert/roomboard/internal/timeutil"
)

type EventHandler struct {
	*base
}

func NewEventHandler(d Deps) *EventHandler {
	return &EventHandler{base: newBase(d, "events")}
}

// List shows the meetings from today onwards and the booking form. With
// ?edit=ID the form is prefilled from that meeting.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	form := EventForm{Date: h.now().Format("2006-01-02"), Duration: 30}
	if v := r.URL.Query().Get("room_id"); v != "" {
		form.RoomID, _ = strconv.ParseInt(v, 10, 64)
	}
	var editing int64
	if v := r.URL.Query().Get("edit"); v != "" {
		editing, _ = strconv.ParseInt(v, 10, 64)
	}
	h.renderList(w, r, http.StatusOK, form, FieldErrors{}, editing)
}

func (h *EventHandler) renderList(w http.ResponseWriter, r *http.Request, status int, form EventForm, errs FieldErrors, editing int64) {
	rooms, events, err := fetchRoomsAndEvents(r.Context(), h.api)
	if err != nil {
		h.apiFailure(w, r, err, "/events")
		return
	}

	now := h.now()
	userID := auth.UserID(r.Context())
	names := roomNames(rooms)

	var shown []model.Event
	dayStart := timeutil.StartOfDay(now)
	for _, e := range events {
		if !e.EndTime.Before(dayStart) {
			shown = append(shown, e)
		}
	}
	availability.SortByStart(shown)

	data := h.page(w, r, "Meetings")
	data["Meetings"] = toMeetings(shown, names, userID, now)
	data["Rooms"] = rooms
	data["Errors"] = errs
	data["Ladder"] = availability.DurationLadder

	if editing != 0 && !errs.Any() {
		for _, e := range events {
			if e.ID == editing && availability.CanDelete(e, userID, now) {
				form = formFromEvent(e, h.loc)
				break
			}
		}
	}
	data["Form"] = form
	data["EditingID"] = editing
	h.render(w, r, status, "events", data)
}

func formFromEvent(e model.Event, loc *time.Location) EventForm {
	start := e.StartTime.In(loc)
	return EventForm{
		Title:       e.Title,
		Description: e.Description,
		RoomID:      e.RoomID,
		Date:        start.Format("2006-01-02"),
		StartTime:   start.Format("15:04"),
		Duration:    int(e.Duration() / time.Minute),
	}
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	form := parseEventForm(r)
	start, end, errs := checkEvent(form, h.loc)
	if errs.Any() {
		h.renderList(w, r, http.StatusUnprocessableEntity, form, errs, 0)
		return
	}

	roomEvents, err := h.api.ListRoomEvents(r.Context(), form.RoomID)
	if err != nil {
		h.apiFailure(w, r, err, "/events")
		return
	}
	if errs := fitErrors(roomEvents, start, 0, form.Duration); errs.Any() {
		h.renderList(w, r, http.StatusConflict, form, errs, 0)
		return
	}

	ev, err := h.api.CreateEvent(r.Context(), apiclient.EventInput{
		Title:       form.Title,
		Description: form.Description,
		RoomID:      form.RoomID,
		StartTime:   start,
		EndTime:     end,
	})
	if err != nil {
		h.apiFailure(w, r, err, "/events")
		return
	}
	h.notify(ev.RoomID, "created", ev.ID, ev)
	h.logger.Info("meeting booked", "event_id", ev.ID, "room_id", ev.RoomID)
	redirectWithFlash(w, r, "/events", "Meeting \""+ev.Title+"\" booked.")
}

// Update changes one of the user's own meetings before it starts.
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	existing, ok := h.owned(w, r, id)
	if !ok {
		return
	}

	form := parseEventForm(r)
	start, end, errs := checkEvent(form, h.loc)
	if errs.Any() {
		h.renderList(w, r, http.StatusUnprocessableEntity, form, errs, id)
		return
	}
	roomEvents, err := h.api.ListRoomEvents(r.Context(), form.RoomID)
	if err != nil {
		h.apiFailure(w, r, err, "/events")
		return
	}
	if errs := fitErrors(roomEvents, start, id, form.Duration); errs.Any() {
		h.renderList(w, r, http.StatusConflict, form, errs, id)
		return
	}

	ev, err := h.api.UpdateEvent(r.Context(), id, apiclient.EventInput{
		Title:       form.Title,
		Description: form.Description,
		RoomID:      form.RoomID,
		StartTime:   start,
		EndTime:     end,
	})
	if err != nil {
		h.apiFailure(w, r, err, "/events")
		return
	}
	if existing.RoomID != ev.RoomID {
		h.notify(existing.RoomID, "deleted", id, nil)
	}
	h.notify(ev.RoomID, "updated", ev.ID, ev)
	h.logger.Info("meeting updated", "event_id", id)
	redirectWithFlash(w, r, "/events", "Meeting updated.")
}

// Delete removes one of the user's own meetings before it starts.
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	ev, ok := h.owned(w, r, id)
	if !ok {
		return
	}
	if err := h.api.DeleteEvent(r.Context(), id); err != nil {
		h.apiFailure(w, r, err, "/events")
		return
	}
	h.notify(ev.RoomID, "deleted", id, nil)
	h.logger.Info("meeting deleted", "event_id", id, "room_id", ev.RoomID)
	redirectWithFlash(w, r, back(r, "/events"), "Meeting deleted.")
}

// owned loads the event and checks that the signed-in user may change it.
// It writes the response and returns false otherwise.
func (h *EventHandler) owned(w http.ResponseWriter, r *http.Request, id int64) (model.Event, bool) {
	ev, err := h.api.GetEvent(r.Context(), id)
	if err != nil {
		h.apiFailure(w, r, err, "/events")
		return model.Event{}, false
	}
	userID := auth.UserID(r.Context())
	if !availability.CanDelete(ev, userID, h.now()) {
		h.logger.Warn("meeting change refused", "event_id", id, "user_id", userID)
		msg := "Only the organiser can change a meeting, and only before it starts."
		if ev.UserID == userID {
			msg = "This meeting has already started."
		}
		redirectWithFlash(w, r, "/events", msg)
		return model.Event{}, false
	}
	return ev, true
}

// Durations returns the bookable durations for a room at a start time as
// JSON. Query: room_id, date (YYYY-MM-DD), start (HH:MM), exclude (optional
// event ID being edited).
func (h *EventHandler) Durations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	roomID, err := strconv.ParseInt(q.Get("room_id"), 10, 64)
	if err != nil || roomID <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid room_id"})
		return
	}
	day, err := time.ParseInLocation("2006-01-02", q.Get("date"), h.loc)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date"})
		return
	}
	minutes, err := timeutil.TimeToMinutes(q.Get("start"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid start"})
		return
	}
	var exclude int64
	if v := q.Get("exclude"); v != "" {
		exclude, _ = strconv.ParseInt(v, 10, 64)
	}

	events, err := h.api.ListRoomEvents(r.Context(), roomID)
	if err != nil {
		h.apiFailureJSON(w, r, err)
		return
	}
	start := timeutil.AtMinutes(day, minutes)
	writeJSON(w, http.StatusOK, map[string]any{
		"room_id":   roomID,
		"start":     start,
		"durations": availability.AvailableDurations(events, start, exclude),
	})
}

// fitErrors rejects a booking that overlaps another meeting or runs past
// the next one.
func fitErrors(roomEvents []model.Event, start time.Time, excludeID int64, minutes int) FieldErrors {
	end := start.Add(time.Duration(minutes) * time.Minute)
	if c := availability.Conflicts(roomEvents, start, end, excludeID); len(c) > 0 {
		return FieldErrors{"start_time": "The room is booked from " + c[0].StartTime.In(start.Location()).Format("15:04") + " (" + c[0].Title + ")."}
	}
	if !availability.FitsDuration(roomEvents, start, excludeID, minutes) {
		return FieldErrors{"duration": "That duration does not fit before the next meeting."}
	}
	return FieldErrors{}
}

// back returns the local page the form was posted from, taken from the
// "back" field or the Referer, or fallback.
func back(r *http.Request, fallback string) string {
	if v := r.PostFormValue("back"); localPath(v) {
		return v
	}
	if ref, err := url.Parse(r.Referer()); err == nil && ref.Host == r.Host && localPath(ref.Path) {
		return ref.Path
	}
	return fallback
}

func localPath(p string) bool {
	return len(p) > 1 && p[0] == '/' && p[1] != '/' && p[1] != '\\'
}
