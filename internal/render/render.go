package render

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"reservation-dashboard/internal/board"
)

var funcs = template.FuncMap{
	"rowClass": func(s board.Status) string {
		switch s {
		case board.StatusPhoneCall:
			return "bg-danger-subtle"
		case board.StatusWalkIn:
			return "bg-info-subtle"
		}
		return ""
	},
	"caption": func(s board.Status) string {
		if s == board.StatusPhoneCall {
			return "Phone call"
		}
		return "Walk in"
	},
}

var (
	tablesTemplate = template.Must(template.New("tables").Funcs(funcs).Parse(tablesHTML))
	pageTemplate   = template.Must(template.Must(tablesTemplate.Clone()).New("page").Parse(pageHTML))
)

// Clock holds the formatted time and date displays.
type Clock struct {
	Time string `json:"time"`
	Date string `json:"date"`
}

// ClockAt formats t for the dashboard header, e.g. "03:04:05 PM" and
// "Saturday, October 17, 2026".
func ClockAt(t time.Time) Clock {
	return Clock{
		Time: t.Format("03:04:05 PM"),
		Date: t.Format("Monday, January 2, 2006"),
	}
}

// PageView is the data behind the full dashboard document.
type PageView struct {
	Title  string
	Clock  Clock
	Tables []board.Table
	Live   bool
}

// Tables renders one card per table. The output depends only on tables.
func Tables(tables []board.Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := tablesTemplate.ExecuteTemplate(&buf, "tables", tables); err != nil {
		return nil, fmt.Errorf("failed to render tables: %w", err)
	}
	return buf.Bytes(), nil
}

// Page renders the full dashboard document.
func Page(view PageView) ([]byte, error) {
	if view.Title == "" {
		view.Title = "Table Reservations"
	}
	var buf bytes.Buffer
	if err := pageTemplate.ExecuteTemplate(&buf, "page", view); err != nil {
		return nil, fmt.Errorf("failed to render page: %w", err)
	}
	return buf.Bytes(), nil
}
