package airtable

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Field names of the Reservation collection.
const (
	FieldTable           = "Table"
	FieldDateTime        = "DateandTime"
	FieldStatus          = "Status"
	FieldReservationType = "Reservation Type"
	FieldNotes           = "Notes"
	FieldPax             = "Pax"
)

// Values of the "Reservation Type" field.
const (
	TypePhoneCall   = "Phone call"
	TypeWalkIn      = "Walk in"
	TypeGoogleSheet = "Google Sheet"
)

// StatusWalkIn is written to the Status field of walk-in records.
const StatusWalkIn = "Walk in"

// ReservationFields models the fields of a Reservation record.
type ReservationFields struct {
	Table           string `json:"Table,omitempty"`
	DateandTime     string `json:"DateandTime,omitempty"`
	Status          string `json:"Status,omitempty"`
	ReservationType string `json:"Reservation Type,omitempty"`
	Notes           string `json:"Notes,omitempty"`
	Pax             *Pax   `json:"Pax,omitempty"`
}

// Record is a single record as returned by the REST API.
type Record struct {
	ID          string            `json:"id,omitempty"`
	CreatedTime string            `json:"createdTime,omitempty"`
	Fields      ReservationFields `json:"fields"`
}

// ListResponse models a page of a filtered list call.
type ListResponse struct {
	Records []Record `json:"records"`
	Offset  string   `json:"offset,omitempty"`
}

// CreateRequest is the body of a create call.
type CreateRequest struct {
	Records  []Record `json:"records"`
	Typecast bool     `json:"typecast,omitempty"`
}

// CreateResponse is the body returned by a create call.
type CreateResponse struct {
	Records []Record `json:"records"`
}

// UpdateRequest is the body of a single-record update call.
type UpdateRequest struct {
	Fields ReservationFields `json:"fields"`
}

// ErrorResponse models the error envelope of the REST API.
type ErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Pax is a party size that tolerates numbers and numeric text.
type Pax int

// UnmarshalJSON coerces numbers and numeric strings into a Pax. Anything
// else decodes as zero.
func (p *Pax) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
	}
	var f float64
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		*p = 0
		return nil
	}
	*p = Pax(math.Round(f))
	return nil
}

func parseCreatedTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
