package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"venuebook/internal/models"
	"venuebook/internal/notify"
	"venuebook/internal/proposals"

	"github.com/gin-gonic/gin"
)

type sweepResponse struct {
	Success  bool `json:"success"`
	Expired  int  `json:"expired"`
	Notified int  `json:"notified"`
	Skipped  bool `json:"skipped,omitempty"`
}

func (h *handler) checkExpiredSlots(c *gin.Context) {
	summary, err := h.deps.Sweeper.Run(c.Request.Context())
	if err != nil {
		h.logger.Error().Err(err).Str("request_id", c.GetString("request_id")).Msg("sweep failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, sweepResponse{
		Success:  true,
		Expired:  summary.Expired,
		Notified: summary.Notified,
		Skipped:  summary.Skipped,
	})
}

// BearerAuth rejects requests whose Authorization header is not "Bearer <key>".
func BearerAuth(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || key == "" || subtle.ConstantTimeCompare([]byte(token), []byte(key)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func (h *handler) triggerAdminNotification(c *gin.Context) {
	var n notify.AdminNotification
	if err := c.ShouldBindJSON(&n); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.deps.Relay.Dispatch(c.Request.Context(), n); err != nil {
		h.logger.Error().Err(err).Str("booking_id", n.BookingID).Msg("relay notification failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

type proposalResponse struct {
	BookingID     string    `json:"booking_id"`
	BookingNumber int64     `json:"booking_number"`
	SlotID        string    `json:"slot_id"`
	Status        string    `json:"status"`
	Currency      string    `json:"currency"`
	ExpiresAt     time.Time `json:"expires_at"`
}

func (h *handler) createProposal(c *gin.Context) {
	var in proposals.ProposeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	booking, slot, err := h.deps.Proposals.Propose(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, proposalResponse{
		BookingID:     booking.ID,
		BookingNumber: booking.BookingNumber,
		SlotID:        slot.ID,
		Status:        string(booking.Status),
		Currency:      booking.Currency,
		ExpiresAt:     slot.ExpiresAt,
	})
}

type validateRequest struct {
	Slot        int    `json:"slot" binding:"required,oneof=1 2"`
	TherapistID string `json:"therapist_id" binding:"required"`
}

func (h *handler) validateProposal(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	booking, err := h.deps.Proposals.Validate(c.Request.Context(), c.Param("id"), models.SlotChoice(req.Slot), req.TherapistID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

func (h *handler) cancelBooking(c *gin.Context) {
	booking, err := h.deps.Proposals.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

type venueRequest struct {
	ID       string `json:"id" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Currency string `json:"currency" binding:"omitempty,len=3"`
}

func (h *handler) upsertVenue(c *gin.Context) {
	var req venueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	v := &models.Venue{ID: req.ID, Name: req.Name, Currency: strings.ToUpper(req.Currency)}
	if err := h.deps.Venues.UpsertVenue(c.Request.Context(), v); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *handler) healthz(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func (h *handler) readyz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
	defer cancel()

	if h.deps.Store != nil {
		if err := h.deps.Store.Ping(ctx); err != nil {
			c.String(http.StatusServiceUnavailable, "db not ready")
			return
		}
	}
	if h.deps.Redis != nil {
		if err := h.deps.Redis.Ping(ctx).Err(); err != nil {
			c.String(http.StatusServiceUnavailable, "redis not ready")
			return
		}
	}
	c.String(http.StatusOK, "ready")
}

func (h *handler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, proposals.ErrInvalidInput), errors.Is(err, proposals.ErrInvalidChoice):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, proposals.ErrAlreadyValidated),
		errors.Is(err, proposals.ErrAlreadyExpired),
		errors.Is(err, proposals.ErrInvalidTransition):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("request_id", c.GetString("request_id")).Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
