package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dukerupert/roomboard/internal/model"
)

type EventInput struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	RoomID      int64     `json:"roomId"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
}

func (c *Client) ListEvents(ctx context.Context) ([]model.Event, error) {
	out := newList[model.Event](eventListKeys)
	if err := c.do(ctx, http.MethodGet, "/events", nil, out); err != nil {
		return nil, err
	}
	return out.items, nil
}

func (c *Client) GetEvent(ctx context.Context, id int64) (model.Event, error) {
	out := newSingle[model.Event](eventKeys)
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/events/%d", id), nil, out); err != nil {
		return model.Event{}, err
	}
	return out.item, nil
}

func (c *Client) CreateEvent(ctx context.Context, in EventInput) (model.Event, error) {
	out := newSingle[model.Event](eventKeys)
	if err := c.do(ctx, http.MethodPost, "/events", in, out); err != nil {
		return model.Event{}, err
	}
	return out.item, nil
}

func (c *Client) UpdateEvent(ctx context.Context, id int64, in EventInput) (model.Event, error) {
	out := newSingle[model.Event](eventKeys)
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/events/%d", id), in, out); err != nil {
		return model.Event{}, err
	}
	return out.item, nil
}

func (c *Client) DeleteEvent(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/events/%d", id), nil, nil)
}
