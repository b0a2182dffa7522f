package api

import (
	"github.com/SherClockHolmes/webpush-go"
	"github.com/gorilla/websocket"

	"reservation-dashboard/internal/dashboard"
	"reservation-dashboard/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	svc     *dashboard.Service
	store   store.Store
	webpush *webpush.Options

	upgrader *websocket.Upgrader
}

// NewHandler creates a new API handler. A nil store disables the history
// and subscription endpoints; nil webpush options disable push.
func NewHandler(svc *dashboard.Service, s store.Store, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		svc:      svc,
		store:    s,
		webpush:  webpushOptions,
		upgrader: newUpgrader(nil),
	}
}

// AllowOrigins lets browsers on the given origins open the websocket in
// addition to the dashboard's own host.
func (h *Handler) AllowOrigins(origins []string) {
	h.upgrader = newUpgrader(origins)
}
