package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/you/donationsvc/domain"
	"github.com/you/donationsvc/internal/http/middleware"
)

// DonationHandlers serves the synchronous donation flow
type DonationHandlers struct {
	donationSvc  domain.DonationService
	donationRepo domain.DonationRepository
	logger       zerolog.Logger
}

// NewDonationHandlers creates new donation handlers. The repository backs the
// admin listing only.
func NewDonationHandlers(donationSvc domain.DonationService, donationRepo domain.DonationRepository, logger zerolog.Logger) *DonationHandlers {
	return &DonationHandlers{
		donationSvc:  donationSvc,
		donationRepo: donationRepo,
		logger:       logger.With().Str("component", "donation_handlers").Logger(),
	}
}

// CreateOrderRequest carries the amount in minor currency units
type CreateOrderRequest struct {
	Amount int64 `json:"amount" binding:"required"`
}

// CaptureOrderRequest identifies the order to capture
type CaptureOrderRequest struct {
	OrderID string `json:"order_id" binding:"required"`
}

// DonationResponse is the public view of a donation
type DonationResponse struct {
	ID               uint      `json:"id"`
	UserID           uint      `json:"user_id"`
	Amount           int64     `json:"amount"`
	AmountValue      string    `json:"amount_value"`
	Currency         string    `json:"currency"`
	Status           string    `json:"status"`
	PaymentReference string    `json:"payment_reference"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func newDonationResponse(d *domain.Donation) DonationResponse {
	return DonationResponse{
		ID:               d.ID,
		UserID:           d.UserID,
		Amount:           d.Amount,
		AmountValue:      domain.FormatAmount(d.Amount),
		Currency:         d.Currency,
		Status:           string(d.Status),
		PaymentReference: d.PaymentReference,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

func newDonationList(donations []domain.Donation) []DonationResponse {
	out := make([]DonationResponse, 0, len(donations))
	for i := range donations {
		out = append(out, newDonationResponse(&donations[i]))
	}
	return out
}

// respondError maps service errors to status codes. Upstream gateway bodies
// are logged, not returned.
func (h *DonationHandlers) respondError(c *gin.Context, err error) {
	var gwErr *domain.GatewayError
	switch {
	case errors.Is(err, domain.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrPaymentNotCompleted):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Payment not completed"})
	case errors.Is(err, domain.ErrDonationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Donation not found"})
	case errors.Is(err, domain.ErrIllegalTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "Donation can no longer be captured"})
	case errors.As(err, &gwErr):
		h.logger.Error().Err(err).Str("op", gwErr.Op).Int("upstream_status", gwErr.StatusCode).Str("upstream_body", gwErr.Body).Msg("payment gateway call failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Payment gateway error", "upstream_status": gwErr.StatusCode})
	default:
		h.logger.Error().Err(err).Msg("donation request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func requireUser(c *gin.Context) (uint, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in context"})
	}
	return userID, ok
}

// CreateOrder starts a donation
func (h *DonationHandlers) CreateOrder(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, donation, err := h.donationSvc.CreateOrder(c.Request.Context(), userID, req.Amount)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_id":     order.ID,
		"status":       order.Status,
		"approval_url": order.ApprovalLink,
		"donation_id":  donation.ID,
	})
}

// CaptureOrder completes a donation after the payer approved it
func (h *DonationHandlers) CaptureOrder(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req CaptureOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	donation, err := h.donationSvc.CaptureOrder(c.Request.Context(), userID, req.OrderID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Payment captured",
		"donation": newDonationResponse(donation),
	})
}

// MyDonations lists the caller's donations
func (h *DonationHandlers) MyDonations(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	donations, err := h.donationSvc.ListForUser(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDonationList(donations))
}

// Get returns one of the caller's donations
func (h *DonationHandlers) Get(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid donation ID"})
		return
	}

	donation, err := h.donationSvc.GetForUser(c.Request.Context(), userID, uint(id))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDonationResponse(donation))
}

// VerifyOrder returns the gateway's view of the caller's order
func (h *DonationHandlers) VerifyOrder(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	details, err := h.donationSvc.OrderDetails(c.Request.Context(), userID, c.Param("order_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", details)
}

// ListRecent lists the latest donations across all users
func (h *DonationHandlers) ListRecent(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	donations, err := h.donationRepo.ListRecent(c.Request.Context(), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDonationList(donations))
}
