package handler

import (
	"net/http"
	"strconv"

	"github.com/dukerupert/roomboard/internal/apiclient"
	"github.com/dukerupert/roomboard/internal/auth"
	"github.com/dukerupert/roomboard/internal/model"
)

type UserHandler struct {
	*base
}

func NewUserHandler(d Deps) *UserHandler {
	return &UserHandler{base: newBase(d, "users")}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	var editing int64
	if v := r.URL.Query().Get("edit"); v != "" {
		editing, _ = strconv.ParseInt(v, 10, 64)
	}
	h.renderList(w, r, http.StatusOK, UserForm{Role: string(model.RoleUser)}, FieldErrors{}, editing)
}

func (h *UserHandler) renderList(w http.ResponseWriter, r *http.Request, status int, form UserForm, errs FieldErrors, editing int64) {
	users, err := h.api.ListUsers(r.Context())
	if err != nil {
		h.apiFailure(w, r, err, "/users")
		return
	}
	if editing != 0 && !errs.Any() {
		for _, u := range users {
			if u.ID == editing {
				form = UserForm{
					FirstName: u.FirstName,
					LastName:  u.LastName,
					Username:  u.Username,
					Email:     u.Email,
					Role:      string(u.Role),
				}
				break
			}
		}
	}
	data := h.page(w, r, "Users")
	data["Users"] = users
	data["Form"] = form
	data["Errors"] = errs
	data["EditingID"] = editing
	data["SelfID"] = auth.UserID(r.Context())
	h.render(w, r, status, "users", data)
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	form := parseUserForm(r)
	errs := check(form)
	if form.Password == "" {
		errs["password"] = "This field is required."
	}
	if errs.Any() {
		form.Password = ""
		h.renderList(w, r, http.StatusUnprocessableEntity, form, errs, 0)
		return
	}
	user, err := h.api.CreateUser(r.Context(), userInput(form))
	if err != nil {
		h.apiFailure(w, r, err, "/users")
		return
	}
	h.logger.Info("user created", "user_id", user.ID, "by", auth.UserID(r.Context()))
	redirectWithFlash(w, r, "/users", "User "+user.FullName()+" created.")
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	form := parseUserForm(r)
	if errs := check(form); errs.Any() {
		form.Password = ""
		h.renderList(w, r, http.StatusUnprocessableEntity, form, errs, id)
		return
	}
	user, err := h.api.UpdateUser(r.Context(), id, userInput(form))
	if err != nil {
		h.apiFailure(w, r, err, "/users")
		return
	}
	h.logger.Info("user updated", "user_id", user.ID, "by", auth.UserID(r.Context()))
	redirectWithFlash(w, r, "/users", "User "+user.FullName()+" updated.")
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	if id == auth.UserID(r.Context()) {
		redirectWithFlash(w, r, "/users", "You cannot delete your own account.")
		return
	}
	if err := h.api.DeleteUser(r.Context(), id); err != nil {
		h.apiFailure(w, r, err, "/users")
		return
	}
	h.logger.Info("user deleted", "user_id", id, "by", auth.UserID(r.Context()))
	redirectWithFlash(w, r, "/users", "User deleted.")
}

func userInput(f UserForm) apiclient.UserInput {
	return apiclient.UserInput{
		FirstName: f.FirstName,
		LastName:  f.LastName,
		Username:  f.Username,
		Email:     f.Email,
		Role:      model.Role(f.Role),
		Password:  f.Password,
	}
}
