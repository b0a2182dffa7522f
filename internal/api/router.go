package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"reservation-dashboard/config"
	"reservation-dashboard/internal/mw"
)

// NewRouter creates and configures a new Gin router. The GET cache is
// flushed whenever the board changes, so call it before the dashboard
// service runs.
func NewRouter(h *Handler, cfg config.ServerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mw.RequestID())
	h.AllowOrigins(cfg.AllowedOrigins)

	ratePerSec := cfg.RateLimitPerSec
	if ratePerSec <= 0 {
		ratePerSec = 10
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 20
	}
	rateLimiter := mw.RateLimiter(rate.Limit(ratePerSec), burst)

	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	responses := mw.NewResponseCache(ttl)
	h.svc.OnChange(responses.Flush)
	caching := responses.Handler()

	r.GET("/", h.GetPage)
	r.GET("/ws", h.ServeWS)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/tables", caching, h.GetTables)
		api.PUT("/tables/:table_id/slots", h.PutSlot)
		api.GET("/tables/:table_id/history", h.GetHistory)

		api.PATCH("/reservations/:record_id", h.PatchReservation)

		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	return r
}
