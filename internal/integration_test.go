package internal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"reservation-dashboard/config"
	"reservation-dashboard/internal/airtable"
	"reservation-dashboard/internal/board"
	"reservation-dashboard/internal/dashboard"
	"reservation-dashboard/internal/db"
	"reservation-dashboard/internal/model"
	"reservation-dashboard/internal/notification"
	"reservation-dashboard/internal/store"
)

// TestReservationDayLifecycle drives one dashboard day end to end: a phone
// reservation arrives from the record store, staff seat a walk-in, and the
// midnight reset clears the board. The slot history is checked at each step.
func TestReservationDayLifecycle(t *testing.T) {
	// --- Test Setup ---

	// 1. Setup an in-memory SQLite database for testing.
	testDB, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, _ := testDB.DB()
	sqlDB.SetMaxOpenConns(1)
	defer sqlDB.Close()
	require.NoError(t, db.Migrate(testDB))
	appStore := store.NewGormStore(testDB)

	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	booking := today.Add(14*time.Hour + 5*time.Minute)

	// 2. Mock record store.
	var mu sync.Mutex
	var created []airtable.ReservationFields
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode(airtable.ListResponse{Records: []airtable.Record{{
				ID:          "recNguyen",
				CreatedTime: "2026-10-01T08:00:00.000Z",
				Fields: airtable.ReservationFields{
					Table:           "Table 3",
					DateandTime:     airtable.FormatTime(booking),
					ReservationType: airtable.TypePhoneCall,
					Notes:           "Nguyen",
					Pax:             paxOf(4),
				},
			}}})
		case http.MethodPost:
			var req airtable.CreateRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			mu.Lock()
			for _, rec := range req.Records {
				created = append(created, rec.Fields)
			}
			mu.Unlock()
			_ = json.NewEncoder(w).Encode(airtable.CreateResponse{Records: []airtable.Record{{ID: "recWalkIn", Fields: req.Records[0].Fields}}})
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	defer server.Close()

	client, err := airtable.NewClient(config.AirtableConfig{
		BaseURL:    server.URL + "/v0",
		BaseID:     "appTest",
		Token:      "patTest",
		Collection: "Reservation",
	}, time.UTC)
	require.NoError(t, err)

	// 3. Wire the dashboard. The worker pool is not started so queued jobs can be inspected.
	b := board.New(10, now, time.UTC)
	require.NoError(t, appStore.UpsertTables(context.Background(), b.Snapshot()))
	workerPool := notification.NewWorkerPool(1, appStore, &webpush.Options{})
	svc := dashboard.NewService(config.DashboardConfig{}, b, dashboard.Options{
		Client:   client,
		Store:    appStore,
		Notifier: workerPool,
	})
	ctx := context.Background()

	// --- Step 1: the phone reservation is merged ---
	require.NoError(t, svc.RefreshOnce(ctx))

	slot := b.Snapshot()[2].TimeSlots[5]
	assert.Equal(t, "14:00 - 15:00", slot.Time)
	assert.Equal(t, board.StatusPhoneCall, slot.Status)
	assert.Equal(t, "Nguyen", slot.CustomerName)
	assert.Equal(t, 4, slot.Pax)

	select {
	case job := <-workerPool.Jobs():
		assert.Equal(t, "Table 3: new phone reservation 14:00 - 15:00 (Nguyen, 4 pax)", job.Message())
	default:
		t.Fatal("expected a notification job for the new reservation")
	}

	history, err := appStore.SlotHistory(ctx, "3", today)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "recNguyen", history[0].ReservationID)
	assert.Equal(t, string(board.SourceRemote), history[0].Source)

	// A second refresh with the same records changes nothing.
	require.NoError(t, svc.RefreshOnce(ctx))
	history, err = appStore.SlotHistory(ctx, "3", today)
	require.NoError(t, err)
	assert.Len(t, history, 1)
	assert.Len(t, workerPool.Jobs(), 0)

	// --- Step 2: staff seat a walk-in ---
	outcome, err := svc.ApplyUserEdit(ctx, "5", "10:00 - 11:00", board.StatusWalkIn)
	require.NoError(t, err)
	require.NoError(t, outcome.RemoteErr)
	assert.Equal(t, "recWalkIn", outcome.Record.ID)

	mu.Lock()
	require.Len(t, created, 1)
	assert.Equal(t, "Table 5", created[0].Table)
	assert.Equal(t, airtable.FormatTime(today.Add(10*time.Hour)), created[0].DateandTime)
	assert.Equal(t, airtable.StatusWalkIn, created[0].Status)
	mu.Unlock()

	// --- Step 3: midnight ---
	svc.ResetOnce(ctx, board.NextMidnight(now, time.UTC))

	for _, table := range b.Snapshot() {
		assert.Equal(t, board.GenerateSlots(), table.TimeSlots, table.Name)
	}

	var resets []model.SlotEvent
	require.NoError(t, testDB.Where("source = ?", string(board.SourceReset)).Order("table_id").Find(&resets).Error)
	require.Len(t, resets, 2)
	assert.Equal(t, "3", resets[0].TableID)
	assert.Equal(t, "5", resets[1].TableID)
	assert.Equal(t, string(board.StatusAvailable), resets[0].Status)
}

func paxOf(n int) *airtable.Pax {
	p := airtable.Pax(n)
	return &p
}
