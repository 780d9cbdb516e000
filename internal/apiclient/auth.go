package apiclient

import (
	"context"
	"net/http"

	"github.com/dukerupert/roomboard/internal/model"
)

type LoginResult struct {
	AccessToken string     `json:"access_token"`
	User        model.User `json:"user"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /register.
type RegisterRequest struct {
	FirstName            string `json:"firstName"`
	LastName             string `json:"lastName"`
	Username             string `json:"username"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

// Login exchanges credentials for an access token and the signed-in user.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var res LoginResult
	if err := c.do(ctx, http.MethodPost, "/login", loginRequest{Email: email, Password: password}, &res); err != nil {
		return LoginResult{}, err
	}
	return res, nil
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (model.User, error) {
	out := newSingle[model.User](userKeys)
	if err := c.do(ctx, http.MethodPost, "/register", req, out); err != nil {
		return model.User{}, err
	}
	return out.item, nil
}
