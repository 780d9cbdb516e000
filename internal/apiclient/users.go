package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dukerupert/roomboard/internal/model"
)

// UserInput is the body of user create and update calls. Password is only
// sent when set.
type UserInput struct {
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Role      model.Role `json:"role"`
	Password  string     `json:"password,omitempty"`
}

func (c *Client) ListUsers(ctx context.Context) ([]model.User, error) {
	out := newList[model.User](userListKeys)
	if err := c.do(ctx, http.MethodGet, "/users", nil, out); err != nil {
		return nil, err
	}
	return out.items, nil
}

func (c *Client) GetUser(ctx context.Context, id int64) (model.User, error) {
	out := newSingle[model.User](userKeys)
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%d", id), nil, out); err != nil {
		return model.User{}, err
	}
	return out.item, nil
}

func (c *Client) CreateUser(ctx context.Context, in UserInput) (model.User, error) {
	out := newSingle[model.User](userKeys)
	if err := c.do(ctx, http.MethodPost, "/users", in, out); err != nil {
		return model.User{}, err
	}
	return out.item, nil
}

func (c *Client) UpdateUser(ctx context.Context, id int64, in UserInput) (model.User, error) {
	out := newSingle[model.User](userKeys)
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/users/%d", id), in, out); err != nil {
		return model.User{}, err
	}
	return out.item, nil
}

func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/users/%d", id), nil, nil)
}
