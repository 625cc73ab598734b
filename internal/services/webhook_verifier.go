package services

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog"
	"github.com/you/donationsvc/domain"
)

// WebhookVerifierImpl checks deliveries against PayPal's
// verify-webhook-signature endpoint. Every failure mode answers false.
type WebhookVerifierImpl struct {
	gateway domain.PaymentGateway
	logger  zerolog.Logger
}

// NewWebhookVerifier creates a new webhook verifier
func NewWebhookVerifier(gateway domain.PaymentGateway, logger zerolog.Logger) *WebhookVerifierImpl {
	return &WebhookVerifierImpl{
		gateway: gateway,
		logger:  logger.With().Str("component", "webhook_verifier").Logger(),
	}
}

// Verify implements domain.WebhookVerifier
func (v *WebhookVerifierImpl) Verify(ctx context.Context, webhookID string, headers domain.TransmissionHeaders, body []byte) bool {
	if missing := headers.Missing(); len(missing) > 0 {
		v.reject("missing_headers").Strs("headers", missing).Msg("webhook verification failed")
		return false
	}
	if webhookID == "" {
		v.reject("webhook_id_unset").Msg("webhook verification failed")
		return false
	}
	if !json.Valid(body) {
		v.reject("invalid_body").Msg("webhook verification failed")
		return false
	}

	status, err := v.gateway.VerifyWebhookSignature(ctx, &domain.SignatureVerification{
		TransmissionID:   headers.TransmissionID,
		TransmissionTime: headers.TransmissionTime,
		CertURL:          headers.CertURL,
		AuthAlgo:         headers.AuthAlgo,
		TransmissionSig:  headers.TransmissionSig,
		WebhookID:        webhookID,
		WebhookEvent:     json.RawMessage(body),
	})
	if err != nil {
		v.reject("gateway_error").Err(err).Msg("webhook verification failed")
		return false
	}
	if !strings.EqualFold(status, domain.VerificationSuccess) {
		v.reject("status").Str("verification_status", status).Msg("webhook verification failed")
		return false
	}
	return true
}

func (v *WebhookVerifierImpl) reject(reason string) *zerolog.Event {
	return v.logger.Warn().Str("event", domain.WebhookVerifyFailureEvent).Str("reason", reason)
}

var _ domain.WebhookVerifier = (*WebhookVerifierImpl)(nil)
