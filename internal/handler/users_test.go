package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dukerupert/roomboard/internal/model"
)

func userForm(overrides map[string]string) url.Values {
	v := url.Values{
		"first_name": {"Bob"},
		"last_name":  {"Lee"},
		"username":   {"bob"},
		"email":      {"bob@example.com"},
		"role":       {"user"},
		"password":   {"longenough"},
	}
	for k, val := range overrides {
		v.Set(k, val)
	}
	return v
}

func TestUserList(t *testing.T) {
	api := &fakeAPI{users: []model.User{alice, root}}
	h := NewUserHandler(testDeps(t, api, &fakeSessions{}))

	rec := httptest.NewRecorder()
	h.List(rec, signedIn(httptest.NewRequest(http.MethodGet, "/users?edit=1", nil), root))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "Alice Ng")
	require.Contains(t, body, `action="/users/1/delete"`)
	require.NotContains(t, body, `action="/users/2/delete"`)
	require.Contains(t, body, `action="/users/1"`)
	require.Contains(t, body, `value="alice"`)
}

func TestUserCreate(t *testing.T) {
	api := &fakeAPI{}
	h := NewUserHandler(testDeps(t, api, &fakeSessions{}))

	rec := httptest.NewRecorder()
	h.Create(rec, signedIn(postForm("/users", userForm(nil)), root))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Len(t, api.usersIn, 1)
	require.Equal(t, model.RoleUser, api.usersIn[0].Role)
	require.Equal(t, "longenough", api.usersIn[0].Password)
	require.Equal(t, "User Bob Lee created.", flashOf(t, rec))
}

func TestUserCreateValidation(t *testing.T) {
	tests := []struct {
		name string
		form map[string]string
		msg  string
	}{
		{"no password", map[string]string{"password": ""}, "This field is required."},
		{"short password", map[string]string{"password": "short"}, "Must be at least 8 characters."},
		{"bad role", map[string]string{"role": "owner"}, "Choose one of: user, admin."},
		{"bad email", map[string]string{"email": "bob"}, "Enter a valid email address."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{}
			h := NewUserHandler(testDeps(t, api, &fakeSessions{}))

			rec := httptest.NewRecorder()
			h.Create(rec, signedIn(postForm("/users", userForm(tt.form)), root))

			require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			require.Contains(t, rec.Body.String(), tt.msg)
			require.Empty(t, api.usersIn)
		})
	}
}

func TestUserUpdateKeepsPasswordWhenBlank(t *testing.T) {
	api := &fakeAPI{}
	h := NewUserHandler(testDeps(t, api, &fakeSessions{}))

	r := withID(signedIn(postForm("/users/1", userForm(map[string]string{"password": "", "role": "admin"})), root), "1")
	rec := httptest.NewRecorder()
	h.Update(rec, r)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Len(t, api.usersIn, 1)
	require.Empty(t, api.usersIn[0].Password)
	require.Equal(t, model.RoleAdmin, api.usersIn[0].Role)
}

func TestUserDeleteSelfRefused(t *testing.T) {
	api := &fakeAPI{}
	h := NewUserHandler(testDeps(t, api, &fakeSessions{}))

	rec := httptest.NewRecorder()
	h.Delete(rec, withID(signedIn(postForm("/users/2/delete", nil), root), "2"))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Empty(t, api.deleted)
	require.Equal(t, "You cannot delete your own account.", flashOf(t, rec))
}

func TestUserDelete(t *testing.T) {
	api := &fakeAPI{}
	h := NewUserHandler(testDeps(t, api, &fakeSessions{}))

	rec := httptest.NewRecorder()
	h.Delete(rec, withID(signedIn(postForm("/users/1/delete", nil), root), "1"))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, []int64{1}, api.deleted)
}
