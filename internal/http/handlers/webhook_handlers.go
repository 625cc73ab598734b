package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/you/donationsvc/domain"
)

// maxWebhookBody bounds the bytes read from a webhook delivery
const maxWebhookBody = 1 << 20

// WebhookHandlers receives PayPal notifications
type WebhookHandlers struct {
	webhookSvc domain.WebhookService
	logger     zerolog.Logger
}

// NewWebhookHandlers creates new webhook handlers
func NewWebhookHandlers(webhookSvc domain.WebhookService, logger zerolog.Logger) *WebhookHandlers {
	return &WebhookHandlers{webhookSvc: webhookSvc, logger: logger.With().Str("component", "webhook_handlers").Logger()}
}

func transmissionHeaders(c *gin.Context) domain.TransmissionHeaders {
	return domain.TransmissionHeaders{
		TransmissionID:   c.GetHeader(domain.HeaderTransmissionID),
		TransmissionTime: c.GetHeader(domain.HeaderTransmissionTime),
		CertURL:          c.GetHeader(domain.HeaderCertURL),
		AuthAlgo:         c.GetHeader(domain.HeaderAuthAlgo),
		TransmissionSig:  c.GetHeader(domain.HeaderTransmissionSig),
	}
}

// PayPal handles POST /webhooks/paypal. Anything past signature verification
// is answered with 200 so PayPal does not retry.
func (h *WebhookHandlers) PayPal(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		h.logger.Warn().Err(err).Msg("failed to read webhook body")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable body"})
		return
	}

	ack, err := h.webhookSvc.Handle(c.Request.Context(), transmissionHeaders(c), body)
	if err != nil {
		if errors.Is(err, domain.ErrVerificationFailed) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Webhook verification failed"})
			return
		}
		h.logger.Error().Err(err).Msg("webhook handling failed")
		c.JSON(http.StatusOK, domain.WebhookAck{Status: domain.AckError})
		return
	}
	c.JSON(http.StatusOK, ack)
}
