package handler

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/dukerupert/roomboard/internal/availability"
	"github.com/dukerupert/roomboard/internal/timeutil"
	"github.com/dukerupert/roomboard/web"
)

// Views holds one parsed template set per page, each combined with the
// shared layout.
type Views struct {
	pages map[string]*template.Template
}

// NewViews parses the embedded templates. Times are shown in loc.
func NewViews(loc *time.Location) (*Views, error) {
	funcs := template.FuncMap{
		"clock": func(t time.Time) string {
			return t.In(loc).Format("15:04")
		},
		"date": func(t time.Time) string {
			return t.In(loc).Format("Mon 2 Jan 2006")
		},
		"minutes": func(d time.Duration) int {
			return int(d / time.Minute)
		},
		"hourLabel": func(hour int) string {
			return timeutil.MinutesToTimeString(hour * 60)
		},
		"statusClass": statusClass,
		"statusLabel": statusLabel,
		"pct": func(f float64) string {
			return fmt.Sprintf("%.2f%%", f)
		},
		"hours": func() []int {
			return availability.DefaultWindow.Hours()
		},
		"eq64": func(a, b int64) bool { return a == b },
	}

	layout, err := template.New("layout.html").Funcs(funcs).ParseFS(web.FS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	files, err := fs.Glob(web.FS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}

	v := &Views{pages: make(map[string]*template.Template)}
	for _, file := range files {
		name := path.Base(file)
		if name == "layout.html" {
			continue
		}
		t, err := template.Must(layout.Clone()).ParseFS(web.FS, file)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		v.pages[strings.TrimSuffix(name, ".html")] = t
	}
	return v, nil
}

// Render executes page into a buffer first so a template error never leaves
// a half-written response.
func (v *Views) Render(w http.ResponseWriter, status int, page string, data any) error {
	t, ok := v.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("render %s: %w", page, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

func statusClass(s availability.Status) string {
	switch s {
	case availability.StatusOccupied:
		return "status-occupied"
	case availability.StatusSoon:
		return "status-soon"
	}
	return "status-available"
}

func statusLabel(s availability.Status) string {
	switch s {
	case availability.StatusOccupied:
		return "Occupied"
	case availability.StatusSoon:
		return "Starting soon"
	}
	return "Available"
}
