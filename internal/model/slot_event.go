package model

import "time"

// SlotEvent records one visible change of a table's time slot.
type SlotEvent struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	TableID       string    `gorm:"size:16;not null;index:idx_slot_events_table_day" json:"table_id"`
	Day           string    `gorm:"size:10;not null;index:idx_slot_events_table_day" json:"day"` // YYYY-MM-DD, store-local
	Slot          string    `gorm:"size:16;not null" json:"slot"`
	Status        string    `gorm:"size:16;not null" json:"status"`
	CustomerName  string    `gorm:"size:256" json:"customer_name,omitempty"`
	Pax           int       `json:"pax,omitempty"`
	Source        string    `gorm:"size:16;not null" json:"source"`
	ReservationID string    `gorm:"size:32" json:"reservation_id,omitempty"`
	ObservedAt    time.Time `gorm:"not null" json:"observed_at"`
}
