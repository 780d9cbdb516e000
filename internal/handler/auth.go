package handler

import (
	"errors"
	"net/http"

	"github.com/dukerupert/roomboard/internal/apiclient"
	"github.com/dukerupert/roomboard/internal/session"
)

type AuthHandler struct {
	*base
}

func NewAuthHandler(d Deps) *AuthHandler {
	return &AuthHandler{base: newBase(d, "auth")}
}

func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	data := h.page(w, r, "Sign in")
	data["Form"] = LoginForm{}
	data["Errors"] = FieldErrors{}
	h.render(w, r, http.StatusOK, "login", data)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	form := parseLoginForm(r)
	errs := check(form)
	if errs.Any() {
		h.loginFailed(w, r, http.StatusUnprocessableEntity, form, errs, "")
		return
	}

	st, err := h.sessions.Login(r.Context(), form.Email, form.Password)
	if errors.Is(err, session.ErrInvalidCredentials) {
		h.logger.Info("login rejected", "email", form.Email)
		h.loginFailed(w, r, http.StatusUnauthorized, form, FieldErrors{"password": "Invalid email or password."}, "")
		return
	}
	if err != nil {
		h.logger.Error("login", "error", err)
		h.loginFailed(w, r, http.StatusBadGateway, form, FieldErrors{}, apiclient.UserMessage(err))
		return
	}

	session.SetCookie(w, r, st)
	h.logger.Info("user signed in", "user_id", st.User.ID, "session_id", st.SessionID)
	redirectWithFlash(w, r, "/dashboard", "Welcome back, "+st.User.FullName()+".")
}

func (h *AuthHandler) loginFailed(w http.ResponseWriter, r *http.Request, status int, form LoginForm, errs FieldErrors, banner string) {
	form.Password = ""
	data := h.page(w, r, "Sign in")
	data["Form"] = form
	data["Errors"] = errs
	data["Error"] = banner
	h.render(w, r, status, "login", data)
}

func (h *AuthHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	data := h.page(w, r, "Create account")
	data["Form"] = RegisterForm{}
	data["Errors"] = FieldErrors{}
	h.render(w, r, http.StatusOK, "register", data)
}

// Register creates an account. Mismatched passwords are caught here and
// never sent to the API.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	form := parseRegisterForm(r)
	if errs := check(form); errs.Any() {
		h.registerFailed(w, r, http.StatusUnprocessableEntity, form, errs, "")
		return
	}

	user, err := h.api.Register(r.Context(), apiclient.RegisterRequest{
		FirstName:            form.FirstName,
		LastName:             form.LastName,
		Username:             form.Username,
		Email:                form.Email,
		Password:             form.Password,
		PasswordConfirmation: form.PasswordConfirmation,
	})
	if err != nil {
		status := http.StatusBadGateway
		var apiErr *apiclient.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode < 500 {
			status = http.StatusUnprocessableEntity
		}
		h.logger.Warn("register", "email", form.Email, "error", err)
		h.registerFailed(w, r, status, form, FieldErrors{}, apiclient.UserMessage(err))
		return
	}

	h.logger.Info("user registered", "user_id", user.ID)
	redirectWithFlash(w, r, "/login", "Account created. You can sign in now.")
}

func (h *AuthHandler) registerFailed(w http.ResponseWriter, r *http.Request, status int, form RegisterForm, errs FieldErrors, banner string) {
	form.Password = ""
	form.PasswordConfirmation = ""
	data := h.page(w, r, "Create account")
	data["Form"] = form
	data["Errors"] = errs
	data["Error"] = banner
	h.render(w, r, status, "register", data)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(r.Context(), session.CookieValue(r)); err != nil {
		h.logger.Error("logout", "error", err)
	}
	session.ClearCookie(w)
	redirectWithFlash(w, r, "/login", "You have been signed out.")
}

func (h *AuthHandler) Unauthorized(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusForbidden, "unauthorized", h.page(w, r, "Not allowed"))
}
