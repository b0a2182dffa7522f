package api

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"reservation-dashboard/internal/mw"
)

// newUpgrader accepts connections from the dashboard's own host and from
// the listed origins. Requests without an Origin header come from
// non-browser clients and are accepted.
func newUpgrader(allowedOrigins []string) *websocket.Upgrader {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.TrimRight(strings.ToLower(o), "/")] = true
	}
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if allowed[strings.ToLower(origin)] {
				return true
			}
			u, err := url.Parse(origin)
			if err != nil {
				return false
			}
			return strings.EqualFold(u.Host, r.Host)
		},
	}
}

// ServeWS upgrades the connection and streams board and clock events. The
// client first receives the current board and clock.
func (h *Handler) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		mw.Logger(c).WithError(err).Warn("websocket upgrade failed")
		return
	}

	if err := h.svc.Attach(conn); err != nil {
		mw.Logger(c).WithError(err).Debug("websocket client not attached")
		conn.Close()
		return
	}

	// The dashboard never sends anything; reading only answers pings and
	// detects the close.
	h.svc.Hub().ReadPump(conn)
}
