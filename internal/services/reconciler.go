package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/you/donationsvc/domain"
)

// ReconcilerImpl implements domain.DonationReconciler. It is the single place
// where payment events change a donation and its owner's total; the
// synchronous capture endpoint and the webhook both come through here.
type ReconcilerImpl struct {
	donationRepo    domain.DonationRepository
	notificationSvc domain.NotificationService
	logger          zerolog.Logger
}

// NewReconciler creates a new reconciler
func NewReconciler(donationRepo domain.DonationRepository, notificationSvc domain.NotificationService, logger zerolog.Logger) *ReconcilerImpl {
	return &ReconcilerImpl{
		donationRepo:    donationRepo,
		notificationSvc: notificationSvc,
		logger:          logger.With().Str("component", "reconciler").Logger(),
	}
}

// CompleteCapture implements domain.DonationReconciler
func (r *ReconcilerImpl) CompleteCapture(ctx context.Context, orderID string) (*domain.ReconcileResult, error) {
	return r.apply(ctx, orderID, domain.CompleteTransition)
}

// RefundCapture implements domain.DonationReconciler
func (r *ReconcilerImpl) RefundCapture(ctx context.Context, orderID string) (*domain.ReconcileResult, error) {
	return r.apply(ctx, orderID, domain.RefundTransition)
}

// HandleEvent implements domain.DonationReconciler
func (r *ReconcilerImpl) HandleEvent(ctx context.Context, event *domain.WebhookEvent) (*domain.ReconcileResult, error) {
	if !event.HasOrderID() {
		r.logger.Warn().Str("event_id", event.ID).Str("event_type", event.EventType).Msg("webhook event has no order id, dropping")
		return &domain.ReconcileResult{Outcome: domain.OutcomeUnparseable}, nil
	}

	switch event.Kind {
	case domain.EventCaptureCompleted:
		return r.CompleteCapture(ctx, event.OrderID)
	case domain.EventCaptureRefunded:
		return r.RefundCapture(ctx, event.OrderID)
	case domain.EventCaptureDenied:
		r.logger.Warn().Str("event", domain.PaymentDeniedEvent).Str("order_id", event.OrderID).Str("event_id", event.ID).Msg("payment denied")
		return &domain.ReconcileResult{Outcome: domain.OutcomeIgnored}, nil
	case domain.EventOrderApproved:
		r.logger.Info().Str("order_id", event.OrderID).Str("event_id", event.ID).Msg("order approved")
		return &domain.ReconcileResult{Outcome: domain.OutcomeIgnored}, nil
	default:
		r.logger.Info().Str("event_type", event.EventType).Str("event_id", event.ID).Msg("unhandled webhook event type")
		return &domain.ReconcileResult{Outcome: domain.OutcomeIgnored}, nil
	}
}

func (r *ReconcilerImpl) apply(ctx context.Context, orderID string, t domain.Transition) (*domain.ReconcileResult, error) {
	res, err := r.donationRepo.Transition(ctx, orderID, t)
	if err != nil {
		if errors.Is(err, domain.ErrDonationNotFound) {
			r.logger.Warn().Str("order_id", orderID).Str("to", string(t.To)).Msg("no donation for order")
			return &domain.ReconcileResult{Outcome: domain.OutcomeNotFound}, nil
		}
		return nil, fmt.Errorf("failed to apply %s transition: %w", t.To, err)
	}

	if !res.Applied {
		r.logger.Debug().Str("order_id", orderID).Str("status", string(res.Donation.Status)).Str("to", string(t.To)).Msg("transition already applied or not applicable")
		return &domain.ReconcileResult{Outcome: domain.OutcomeNoop, Donation: res.Donation}, nil
	}

	event, subject, verb := domain.DonationCompletedEvent, "Thank you for your donation", "Your donation of %s %s has been received."
	if t.To == domain.DonationRefunded {
		event, subject, verb = domain.DonationRefundedEvent, "Your donation was refunded", "Your donation of %s %s has been refunded."
	}
	r.logger.Info().
		Str("event", event).
		Uint("donation_id", res.Donation.ID).
		Uint("user_id", res.Donation.UserID).
		Int64("amount", res.Donation.Amount).
		Int64("total_donated", res.User.TotalDonated).
		Str("order_id", orderID).
		Msg("donation updated")

	// committed; a failed email must not undo the state change
	body := fmt.Sprintf(verb, domain.FormatAmount(res.Donation.Amount), res.Donation.Currency)
	if err := r.notificationSvc.SendEmail(ctx, res.User.Email, subject, body); err != nil {
		r.logger.Warn().Err(err).Str("event", domain.NotificationFailureEvent).Uint("donation_id", res.Donation.ID).Msg("donation email not sent")
	}

	return &domain.ReconcileResult{Outcome: domain.OutcomeApplied, Donation: res.Donation}, nil
}

var _ domain.DonationReconciler = (*ReconcilerImpl)(nil)
