package handler

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dukerupert/roomboard/internal/timeutil"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		_, err := timeutil.TimeToMinutes(fl.Field().String())
		return err == nil
	})
	return v
}

// FieldErrors maps form field names to the message shown beside them.
type FieldErrors map[string]string

func (fe FieldErrors) Any() bool { return len(fe) > 0 }

// check validates form and translates failures into FieldErrors.
func check(form any) FieldErrors {
	err := validate.Struct(form)
	if err == nil {
		return FieldErrors{}
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return FieldErrors{"_": err.Error()}
	}
	out := FieldErrors{}
	for _, fe := range verrs {
		if _, seen := out[fe.Field()]; seen {
			continue
		}
		out[fe.Field()] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "eqfield":
		return "Passwords do not match."
	case "min":
		return fmt.Sprintf("Must be at least %s characters.", fe.Param())
	case "max":
		return fmt.Sprintf("Must be at most %s characters.", fe.Param())
	case "gte":
		return fmt.Sprintf("Must be at least %s.", fe.Param())
	case "oneof":
		return "Choose one of: " + strings.ReplaceAll(fe.Param(), " ", ", ") + "."
	case "hhmm":
		return "Use the HH:MM format."
	case "datetime":
		return "Use the YYYY-MM-DD format."
	}
	return "Invalid value."
}

type LoginForm struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
}

func parseLoginForm(r *http.Request) LoginForm {
	return LoginForm{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
}

type RegisterForm struct {
	FirstName            string `form:"first_name" validate:"required,max=100"`
	LastName             string `form:"last_name" validate:"required,max=100"`
	Username             string `form:"username" validate:"required,min=3,max=50"`
	Email                string `form:"email" validate:"required,email"`
	Password             string `form:"password" validate:"required,min=8"`
	PasswordConfirmation string `form:"password_confirmation" validate:"required,eqfield=Password"`
}

func parseRegisterForm(r *http.Request) RegisterForm {
	return RegisterForm{
		FirstName:            strings.TrimSpace(r.PostFormValue("first_name")),
		LastName:             strings.TrimSpace(r.PostFormValue("last_name")),
		Username:             strings.TrimSpace(r.PostFormValue("username")),
		Email:                strings.TrimSpace(r.PostFormValue("email")),
		Password:             r.PostFormValue("password"),
		PasswordConfirmation: r.PostFormValue("password_confirmation"),
	}
}

// UserForm is the admin create/edit form. Password is required on create only.
type UserForm struct {
	FirstName string `form:"first_name" validate:"required,max=100"`
	LastName  string `form:"last_name" validate:"required,max=100"`
	Username  string `form:"username" validate:"required,min=3,max=50"`
	Email     string `form:"email" validate:"required,email"`
	Role      string `form:"role" validate:"required,oneof=user admin"`
	Password  string `form:"password" validate:"omitempty,min=8"`
}

func parseUserForm(r *http.Request) UserForm {
	return UserForm{
		FirstName: strings.TrimSpace(r.PostFormValue("first_name")),
		LastName:  strings.TrimSpace(r.PostFormValue("last_name")),
		Username:  strings.TrimSpace(r.PostFormValue("username")),
		Email:     strings.TrimSpace(r.PostFormValue("email")),
		Role:      r.PostFormValue("role"),
		Password:  r.PostFormValue("password"),
	}
}

type RoomForm struct {
	Name     string `form:"name" validate:"required,max=100"`
	Location string `form:"location" validate:"max=200"`
	Capacity int    `form:"capacity" validate:"gte=0"`
}

func parseRoomForm(r *http.Request) (RoomForm, FieldErrors) {
	f := RoomForm{
		Name:     strings.TrimSpace(r.PostFormValue("name")),
		Location: strings.TrimSpace(r.PostFormValue("location")),
	}
	errs := FieldErrors{}
	if raw := strings.TrimSpace(r.PostFormValue("capacity")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			errs["capacity"] = "Enter a whole number."
		}
		f.Capacity = n
	}
	return f, errs
}

// EventForm is the booking form. A meeting starts at Date StartTime and lasts
// Duration minutes; it must end on the same day.
type EventForm struct {
	Title       string `form:"title" validate:"required,max=200"`
	Description string `form:"description" validate:"max=2000"`
	RoomID      int64  `form:"room_id" validate:"required,gt=0"`
	Date        string `form:"date" validate:"required,datetime=2006-01-02"`
	StartTime   string `form:"start_time" validate:"required,hhmm"`
	Duration    int    `form:"duration" validate:"required,oneof=15 30 45 60"`
}

func parseEventForm(r *http.Request) EventForm {
	f := EventForm{
		Title:       strings.TrimSpace(r.PostFormValue("title")),
		Description: strings.TrimSpace(r.PostFormValue("description")),
		Date:        strings.TrimSpace(r.PostFormValue("date")),
		StartTime:   strings.TrimSpace(r.PostFormValue("start_time")),
	}
	f.RoomID, _ = strconv.ParseInt(r.PostFormValue("room_id"), 10, 64)
	f.Duration, _ = strconv.Atoi(r.PostFormValue("duration"))
	return f
}

// Span returns the meeting's start and end in loc. Call it only after the
// form has validated.
func (f EventForm) Span(loc *time.Location) (time.Time, time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", f.Date, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse date: %w", err)
	}
	minutes, err := timeutil.TimeToMinutes(f.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	clock := time.Date(0, 1, 1, 0, minutes, 0, 0, loc)
	start := timeutil.CombineDateTime(day, clock)
	return start, start.Add(time.Duration(f.Duration) * time.Minute), nil
}

// checkEvent validates the form and the same-day rule, returning the span
// when everything is in order.
func checkEvent(f EventForm, loc *time.Location) (time.Time, time.Time, FieldErrors) {
	errs := check(f)
	if errs.Any() {
		return time.Time{}, time.Time{}, errs
	}
	start, end, err := f.Span(loc)
	if err != nil {
		errs["start_time"] = "Invalid start time."
		return time.Time{}, time.Time{}, errs
	}
	if !start.Before(end) {
		errs["duration"] = "The meeting must end after it starts."
	} else if end.After(timeutil.EndOfDay(start)) {
		errs["duration"] = "The meeting must end on the same day."
	}
	return start, end, errs
}
