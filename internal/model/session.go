package model

import "time"

// Session is the local record behind a dashboard cookie. The booking API
// token and the signed-in user are stored alongside it as keyed values.
type Session struct {
	ID        int64     `json:"id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
