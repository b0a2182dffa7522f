package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"reservation-dashboard/internal/model"
	"reservation-dashboard/internal/parse"
	"reservation-dashboard/internal/store"
)

type putSubscriptionRequest struct {
	Endpoint         string   `json:"endpoint" binding:"required"`
	P256DH           string   `json:"p256dh" binding:"required"`
	Auth             string   `json:"auth" binding:"required"`
	SubscribedTables []string `json:"subscribed_tables"`
}

// PutSubscription handles the creation or replacement of a subscription.
// Tables may be given as "3" or "Table 3".
func (h *Handler) PutSubscription(c *gin.Context) {
	var req putSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "subscriptions are not available"})
		return
	}

	tableIDs := make([]string, 0, len(req.SubscribedTables))
	for _, ref := range req.SubscribedTables {
		id, ok := parse.TableID(ref)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid table reference: " + ref})
			return
		}
		tableIDs = append(tableIDs, id)
	}

	subscription := model.PushSubscription{
		Endpoint: req.Endpoint,
		P256DH:   req.P256DH,
		Auth:     req.Auth,
	}
	if err := h.store.SaveSubscription(c.Request.Context(), subscription, tableIDs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusCreated)
}

type deleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// DeleteSubscription handles the deletion of a subscription.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	var req deleteSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "subscriptions are not available"})
		return
	}

	if err := h.store.DeleteSubscription(c.Request.Context(), req.Endpoint); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}

// GetSubscription handles the retrieval of a subscription.
func (h *Handler) GetSubscription(c *gin.Context) {
	endpoint := c.Query("endpoint")
	if endpoint == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endpoint is required"})
		return
	}
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "subscriptions are not available"})
		return
	}

	subscription, err := h.store.GetSubscription(c.Request.Context(), endpoint)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	tableIDs := make([]string, len(subscription.Tables))
	for i, table := range subscription.Tables {
		tableIDs[i] = table.ID
	}

	c.JSON(http.StatusOK, gin.H{"subscribed_tables": tableIDs})
}

// GetVAPIDPublicKey returns the VAPID public key to the client.
func (h *Handler) GetVAPIDPublicKey(c *gin.Context) {
	if h.webpush == nil || h.webpush.VAPIDPublicKey == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "vapid keys are not configured"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"public_key": h.webpush.VAPIDPublicKey})
}
