package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"reservation-dashboard/internal/board"
	"reservation-dashboard/internal/model"
	"reservation-dashboard/internal/mw"
	"reservation-dashboard/internal/store"
)

// GetPage serves the dashboard document.
func (h *Handler) GetPage(c *gin.Context) {
	page, err := h.svc.Page()
	if err != nil {
		mw.Logger(c).WithError(err).Error("failed to render dashboard")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to render dashboard"})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

type tablesResponse struct {
	Day       string        `json:"day"`
	LocalOnly bool          `json:"local_only"`
	Tables    []board.Table `json:"tables"`
}

// GetTables handles the GET /api/tables request.
func (h *Handler) GetTables(c *gin.Context) {
	b := h.svc.Board()
	c.JSON(http.StatusOK, tablesResponse{
		Day:       store.DayKey(b.Day()),
		LocalOnly: h.svc.LocalOnly(),
		Tables:    b.Snapshot(),
	})
}

type putSlotRequest struct {
	TimeSlot string `json:"time_slot" binding:"required"`
	Status   string `json:"status" binding:"required"`
}

type putSlotResponse struct {
	TableID     string       `json:"table_id"`
	TimeSlot    string       `json:"time_slot"`
	Status      board.Status `json:"status"`
	RecordID    string       `json:"record_id,omitempty"`
	RemoteError string       `json:"remote_error,omitempty"`
}

// PutSlot handles the PUT /api/tables/{table_id}/slots request. The local
// edit stands even when the reservation store rejects the walk-in.
func (h *Handler) PutSlot(c *gin.Context) {
	var req putSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	status, err := board.ParseStatus(req.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tableID := c.Param("table_id")
	outcome, err := h.svc.ApplyUserEdit(c.Request.Context(), tableID, req.TimeSlot, status)
	switch {
	case errors.Is(err, board.ErrTableNotFound), errors.Is(err, board.ErrSlotNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case errors.Is(err, board.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := putSlotResponse{
		TableID:  tableID,
		TimeSlot: req.TimeSlot,
		Status:   outcome.Change.Status,
	}
	if outcome.Record != nil {
		resp.RecordID = outcome.Record.ID
	}
	if outcome.RemoteErr != nil {
		mw.Logger(c).WithError(outcome.RemoteErr).WithField("table", tableID).Warn("walk-in kept locally only")
		resp.RemoteError = outcome.RemoteErr.Error()
	}
	c.JSON(http.StatusOK, resp)
}

// GetHistory handles the GET /api/tables/{table_id}/history request. The
// optional date query selects a day as YYYY-MM-DD; it defaults to the
// board day.
func (h *Handler) GetHistory(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history is not available"})
		return
	}

	b := h.svc.Board()
	tableID := c.Param("table_id")
	if !hasTable(b.Snapshot(), tableID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "table not found"})
		return
	}

	day := b.Day()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, b.Location())
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'date' format. Use YYYY-MM-DD."})
			return
		}
		day = parsed
	}

	events, err := h.store.SlotHistory(c.Request.Context(), tableID, day)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve history"})
		return
	}
	if events == nil {
		events = []model.SlotEvent{}
	}
	c.JSON(http.StatusOK, gin.H{"table_id": tableID, "day": store.DayKey(day), "events": events})
}

func hasTable(tables []board.Table, id string) bool {
	for _, t := range tables {
		if t.ID == id {
			return true
		}
	}
	return false
}
