package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"reservation-dashboard/internal/board"
	"reservation-dashboard/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the interface for all database operations.
type Store interface {
	UpsertTables(ctx context.Context, tables []board.Table) error
	RecordSlotChanges(ctx context.Context, observedAt time.Time, changes []board.SlotChange) error
	SlotHistory(ctx context.Context, tableID string, day time.Time) ([]model.SlotEvent, error)
	SeenReservations(ctx context.Context, ids []string) (map[string]bool, error)

	SaveSubscription(ctx context.Context, sub model.PushSubscription, tableIDs []string) error
	DeleteSubscription(ctx context.Context, endpoint string) error
	GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	SubscriptionsForTable(ctx context.Context, tableID string) ([]model.PushSubscription, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// UpsertTables makes sure every board table has a row, refreshing names.
func (s *gormStore) UpsertTables(ctx context.Context, tables []board.Table) error {
	if len(tables) == 0 {
		return nil
	}
	rows := make([]model.DiningTable, 0, len(tables))
	for _, t := range tables {
		rows = append(rows, model.DiningTable{ID: t.ID, Name: t.Name})
	}

	log.Printf("Batch upserting %d dining tables...", len(rows))
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
	}).Create(&rows).Error; err != nil {
		return fmt.Errorf("batch upsert dining tables failed: %w", err)
	}
	return nil
}

// RecordSlotChanges appends the given changes to the slot history.
func (s *gormStore) RecordSlotChanges(ctx context.Context, observedAt time.Time, changes []board.SlotChange) error {
	if len(changes) == 0 {
		return nil
	}
	events := make([]model.SlotEvent, 0, len(changes))
	for _, c := range changes {
		events = append(events, toEvent(c, observedAt))
	}
	if err := s.db.WithContext(ctx).Create(&events).Error; err != nil {
		return fmt.Errorf("failed to record %d slot events: %w", len(events), err)
	}
	return nil
}

// SlotHistory lists the recorded changes of a table on the given day in the
// order they were observed.
func (s *gormStore) SlotHistory(ctx context.Context, tableID string, day time.Time) ([]model.SlotEvent, error) {
	var events []model.SlotEvent
	if err := s.db.WithContext(ctx).
		Where("table_id = ? AND day = ?", tableID, DayKey(day)).
		Order("observed_at, id").
		Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to load slot history for table %s: %w", tableID, err)
	}
	return events, nil
}

// SeenReservations reports which of the given reservation IDs already
// appear in the slot history.
func (s *gormStore) SeenReservations(ctx context.Context, ids []string) (map[string]bool, error) {
	seen := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return seen, nil
	}

	var found []string
	if err := s.db.WithContext(ctx).
		Model(&model.SlotEvent{}).
		Where("reservation_id IN ?", ids).
		Distinct().
		Pluck("reservation_id", &found).Error; err != nil {
		return nil, fmt.Errorf("failed to look up reservations: %w", err)
	}
	for _, id := range found {
		seen[id] = true
	}
	return seen, nil
}

// SaveSubscription creates or replaces a subscription and the set of tables
// it follows.
func (s *gormStore) SaveSubscription(ctx context.Context, sub model.PushSubscription, tableIDs []string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
		}).Omit("Tables").Create(&sub).Error; err != nil {
			return err
		}

		var tables []model.DiningTable
		if len(tableIDs) > 0 {
			if err := tx.Where("id IN ?", tableIDs).Find(&tables).Error; err != nil {
				return err
			}
		}

		return tx.Model(&sub).Association("Tables").Replace(&tables)
	})
}

// DeleteSubscription removes a subscription and its table links.
func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub := model.PushSubscription{Endpoint: endpoint}
		if err := tx.Model(&sub).Association("Tables").Clear(); err != nil {
			return err
		}
		return tx.Delete(&sub).Error
	})
}

// GetSubscription loads a subscription with its tables.
func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	if err := s.db.WithContext(ctx).Preload("Tables").First(&sub, "endpoint = ?", endpoint).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// SubscriptionsForTable lists the subscriptions following a table.
func (s *gormStore) SubscriptionsForTable(ctx context.Context, tableID string) ([]model.PushSubscription, error) {
	var subscriptions []model.PushSubscription
	err := s.db.WithContext(ctx).
		Joins("JOIN subscription_table_mapping stm ON stm.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("stm.dining_table_id = ?", tableID).
		Find(&subscriptions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subscriptions for table %s: %w", tableID, err)
	}
	return subscriptions, nil
}
