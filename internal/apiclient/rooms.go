package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dukerupert/roomboard/internal/model"
)

type RoomInput struct {
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
	Capacity int    `json:"capacity,omitempty"`
}

func (c *Client) ListRooms(ctx context.Context) ([]model.Room, error) {
	out := newList[model.Room](roomListKeys)
	if err := c.do(ctx, http.MethodGet, "/rooms", nil, out); err != nil {
		return nil, err
	}
	return out.items, nil
}

func (c *Client) GetRoom(ctx context.Context, id int64) (model.Room, error) {
	out := newSingle[model.Room](roomKeys)
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/rooms/%d", id), nil, out); err != nil {
		return model.Room{}, err
	}
	return out.item, nil
}

func (c *Client) CreateRoom(ctx context.Context, in RoomInput) (model.Room, error) {
	out := newSingle[model.Room](roomKeys)
	if err := c.do(ctx, http.MethodPost, "/rooms", in, out); err != nil {
		return model.Room{}, err
	}
	return out.item, nil
}

func (c *Client) UpdateRoom(ctx context.Context, id int64, in RoomInput) (model.Room, error) {
	out := newSingle[model.Room](roomKeys)
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/rooms/%d", id), in, out); err != nil {
		return model.Room{}, err
	}
	return out.item, nil
}

func (c *Client) DeleteRoom(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/rooms/%d", id), nil, nil)
}

// ListRoomEvents returns the events booked in one room.
func (c *Client) ListRoomEvents(ctx context.Context, roomID int64) ([]model.Event, error) {
	out := newList[model.Event](eventListKeys)
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/rooms/%d/events", roomID), nil, out); err != nil {
		return nil, err
	}
	return out.items, nil
}
