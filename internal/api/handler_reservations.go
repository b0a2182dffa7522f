package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"reservation-dashboard/internal/airtable"
	"reservation-dashboard/internal/dashboard"
	"reservation-dashboard/internal/mw"
)

type patchReservationRequest struct {
	Status string `json:"status" binding:"required"`
}

// PatchReservation handles the PATCH /api/reservations/{record_id} request.
func (h *Handler) PatchReservation(c *gin.Context) {
	var req patchReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	recordID := c.Param("record_id")
	err := h.svc.UpdateReservation(c.Request.Context(), recordID, req.Status)
	if err != nil {
		mw.Logger(c).WithError(err).WithField("record_id", recordID).Error("failed to update reservation")

		var apiErr *airtable.APIError
		switch {
		case errors.Is(err, dashboard.ErrLocalOnly):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "reservation not found"})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"record_id": recordID, "status": req.Status})
}
