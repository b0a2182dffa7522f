package store

import (
	"time"

	"reservation-dashboard/internal/board"
	"reservation-dashboard/internal/model"
)

// DayKey formats the store-local day a slot belongs to.
func DayKey(day time.Time) string {
	return day.Format("2006-01-02")
}

// toEvent converts a board change into its persisted form.
func toEvent(c board.SlotChange, observedAt time.Time) model.SlotEvent {
	return model.SlotEvent{
		TableID:       c.TableID,
		Day:           DayKey(c.Day),
		Slot:          c.Slot,
		Status:        string(c.Status),
		CustomerName:  c.CustomerName,
		Pax:           c.Pax,
		Source:        string(c.Source),
		ReservationID: c.ReservationID,
		ObservedAt:    observedAt,
	}
}
