package model

import "time"

// DiningTable is a table on the restaurant floor.
type DiningTable struct {
	ID        string    `gorm:"primaryKey;size:16"`
	Name      string    `gorm:"size:64;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
