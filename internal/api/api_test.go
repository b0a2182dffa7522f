package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"reservation-dashboard/config"
	"reservation-dashboard/internal/board"
	"reservation-dashboard/internal/dashboard"
	"reservation-dashboard/internal/db"
	"reservation-dashboard/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type jsonBody = map[string]any

type testEnv struct {
	router *gin.Engine
	svc    *dashboard.Service
	store  store.Store
}

// newTestEnv wires a local-only dashboard with four tables onto a SQLite store.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	gormDB, err := db.Init(&config.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "api.db")})
	require.NoError(t, err)
	sqlDB, _ := gormDB.DB()
	t.Cleanup(func() { sqlDB.Close() })

	st := store.NewGormStore(gormDB)
	b := board.New(4, time.Now(), time.UTC)
	require.NoError(t, st.UpsertTables(context.Background(), b.Snapshot()))

	svc := dashboard.NewService(config.DashboardConfig{}, b, dashboard.Options{Store: st})
	h := NewHandler(svc, st, &webpush.Options{VAPIDPublicKey: "test_public_key"})
	return &testEnv{
		router: NewRouter(h, config.ServerConfig{RateLimitPerSec: 1000, RateLimitBurst: 1000}),
		svc:    svc,
		store:  st,
	}
}

func (e *testEnv) do(method, target string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	e.router.ServeHTTP(w, req)
	return w
}
