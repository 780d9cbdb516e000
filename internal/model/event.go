package model

import "time"

// Event is a booked meeting in a room, owned by the user who created it.
type Event struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	RoomID      int64     `json:"roomId"`
	UserID      int64     `json:"userId"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
}

// Duration returns the booked length of the event.
func (e Event) Duration() time.Duration {
	return e.EndTime.Sub(e.StartTime)
}

// Contains reports whether t falls within the event, inclusive of both bounds.
func (e Event) Contains(t time.Time) bool {
	return !t.Before(e.StartTime) && !t.After(e.EndTime)
}
