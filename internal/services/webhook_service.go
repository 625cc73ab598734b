package services

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/you/donationsvc/domain"
)

// WebhookConfig selects how deliveries are authenticated
type WebhookConfig struct {
	WebhookID string
	// AllowUnverified accepts deliveries without a signature check when
	// WebhookID is empty
	AllowUnverified bool
}

// WebhookServiceImpl implements domain.WebhookService
type WebhookServiceImpl struct {
	verifier   domain.WebhookVerifier
	reconciler domain.DonationReconciler
	events     domain.WebhookEventRepository
	config     WebhookConfig
	logger     zerolog.Logger
}

// NewWebhookService creates a new webhook service
func NewWebhookService(
	verifier domain.WebhookVerifier,
	reconciler domain.DonationReconciler,
	events domain.WebhookEventRepository,
	config WebhookConfig,
	logger zerolog.Logger,
) *WebhookServiceImpl {
	return &WebhookServiceImpl{
		verifier:   verifier,
		reconciler: reconciler,
		events:     events,
		config:     config,
		logger:     logger.With().Str("component", "webhooks").Logger(),
	}
}

// Handle implements domain.WebhookService. Once a delivery is authenticated
// every outcome, including internal failures, is acknowledged so PayPal stops
// retrying; replays are safe because reconciliation is idempotent.
func (s *WebhookServiceImpl) Handle(ctx context.Context, headers domain.TransmissionHeaders, body []byte) (*domain.WebhookAck, error) {
	verified := false
	switch {
	case s.config.WebhookID != "":
		if !s.verifier.Verify(ctx, s.config.WebhookID, headers, body) {
			return nil, domain.ErrVerificationFailed
		}
		verified = true
	case s.config.AllowUnverified:
		s.logger.Warn().Msg("webhook signature verification disabled, accepting unverified delivery")
	default:
		s.logger.Warn().Str("event", domain.WebhookVerifyFailureEvent).Str("reason", "webhook_id_unset").Msg("webhook rejected")
		return nil, domain.ErrVerificationFailed
	}

	event, err := domain.ParseWebhookEvent(body)
	if err != nil {
		s.logger.Warn().Err(err).Msg("unparseable webhook body")
		return &domain.WebhookAck{Status: domain.AckIgnored}, nil
	}
	ack := &domain.WebhookAck{EventType: event.EventType}

	rec := &domain.WebhookRecord{
		EventID:        event.ID,
		EventType:      event.EventType,
		OrderID:        event.OrderID,
		Payload:        string(body),
		SignatureValid: verified,
	}
	duplicate, err := s.events.Record(ctx, rec)
	if err != nil {
		// the audit row is not required to reconcile
		s.logger.Error().Err(err).Str("event_id", event.ID).Msg("failed to record webhook event")
	}
	if duplicate {
		s.logger.Info().Str("event_id", event.ID).Msg("webhook redelivery")
	}

	result, err := s.reconciler.HandleEvent(ctx, event)
	if err != nil {
		s.logger.Error().Err(err).Str("event_id", event.ID).Str("order_id", event.OrderID).Msg("webhook reconciliation failed")
		s.markProcessed(ctx, rec.ID, domain.AckError, err.Error())
		ack.Status = domain.AckError
		return ack, nil
	}

	s.markProcessed(ctx, rec.ID, string(result.Outcome), "")
	switch result.Outcome {
	case domain.OutcomeApplied, domain.OutcomeNoop:
		ack.Status = domain.AckSuccess
	default:
		ack.Status = domain.AckIgnored
	}
	s.logger.Info().Str("event_id", event.ID).Str("event_type", event.EventType).Str("outcome", string(result.Outcome)).Msg("webhook processed")
	return ack, nil
}

func (s *WebhookServiceImpl) markProcessed(ctx context.Context, id uint, outcome, processingError string) {
	if id == 0 {
		return
	}
	if err := s.events.MarkProcessed(ctx, id, outcome, processingError); err != nil {
		s.logger.Error().Err(err).Uint("record_id", id).Msg("failed to mark webhook event processed")
	}
}

var _ domain.WebhookService = (*WebhookServiceImpl)(nil)
