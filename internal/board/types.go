package board

import (
	"fmt"
	"time"
)

// Status is the booking state of a slot.
type Status string

const (
	StatusAvailable Status = "available"
	StatusWalkIn    Status = "walk-in"
	StatusPhoneCall Status = "phone-call"
)

// ParseStatus validates a raw status coming from the dashboard.
func ParseStatus(raw string) (Status, error) {
	switch s := Status(raw); s {
	case StatusAvailable, StatusWalkIn, StatusPhoneCall:
		return s, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
}

// Booked reports whether the status carries a customer.
func (s Status) Booked() bool {
	return s == StatusWalkIn || s == StatusPhoneCall
}

// TimeSlot is one hour of one table.
// CustomerName and Pax are only set while the slot is booked.
type TimeSlot struct {
	Time         string `json:"time"`
	Hour         int    `json:"hour"`
	Status       Status `json:"status"`
	CustomerName string `json:"customerName,omitempty"`
	Pax          int    `json:"pax,omitempty"`
}

// Table is a dining table with its slot grid for the current day.
type Table struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	TimeSlots []TimeSlot `json:"timeSlots"`
}

// Reservation is the projection of a remote reservation record.
type Reservation struct {
	ID              string    `json:"id"`
	TableID         string    `json:"tableId"`
	Time            string    `json:"time"`
	Status          Status    `json:"status"`
	CustomerName    string    `json:"customerName"`
	Pax             int       `json:"pax"`
	ReservationType string    `json:"reservationType"`
	CreatedTime     time.Time `json:"createdTime"`
}

// ChangeSource identifies what caused a slot to change.
type ChangeSource string

const (
	SourceRemote ChangeSource = "remote"
	SourceUser   ChangeSource = "user"
	SourceReset  ChangeSource = "reset"
)

// SlotChange describes a slot whose visible state changed.
type SlotChange struct {
	TableID       string
	Slot          string
	Day           time.Time
	Status        Status
	CustomerName  string
	Pax           int
	Source        ChangeSource
	ReservationID string
}
