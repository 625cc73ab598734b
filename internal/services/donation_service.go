package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/you/donationsvc/domain"
)

// DonationServiceImpl implements domain.DonationService
type DonationServiceImpl struct {
	donationRepo domain.DonationRepository
	gateway      domain.PaymentGateway
	reconciler   domain.DonationReconciler
	currency     string
	logger       zerolog.Logger
}

// NewDonationService creates a new donation service
func NewDonationService(
	donationRepo domain.DonationRepository,
	gateway domain.PaymentGateway,
	reconciler domain.DonationReconciler,
	currency string,
	logger zerolog.Logger,
) *DonationServiceImpl {
	if currency == "" {
		currency = "USD"
	}
	return &DonationServiceImpl{
		donationRepo: donationRepo,
		gateway:      gateway,
		reconciler:   reconciler,
		currency:     strings.ToUpper(currency),
		logger:       logger.With().Str("component", "donations").Logger(),
	}
}

// CreateOrder implements domain.DonationService. The gateway call happens
// before any database write.
func (s *DonationServiceImpl) CreateOrder(ctx context.Context, userID uint, amount int64) (*domain.Order, *domain.Donation, error) {
	if amount <= 0 {
		return nil, nil, domain.ErrInvalidAmount
	}

	order, err := s.gateway.CreateOrder(ctx, amount, s.currency)
	if err != nil {
		return nil, nil, err
	}

	donation := &domain.Donation{
		UserID:           userID,
		Amount:           amount,
		Currency:         s.currency,
		PaymentReference: order.ID,
	}
	if err := s.donationRepo.Create(ctx, donation); err != nil {
		return nil, nil, fmt.Errorf("failed to record donation for order %s: %w", order.ID, err)
	}

	s.logger.Info().
		Str("event", domain.DonationCreatedEvent).
		Uint("donation_id", donation.ID).
		Uint("user_id", userID).
		Int64("amount", amount).
		Str("order_id", order.ID).
		Msg("donation created")
	return order, donation, nil
}

// CaptureOrder implements domain.DonationService
func (s *DonationServiceImpl) CaptureOrder(ctx context.Context, userID uint, orderID string) (*domain.Donation, error) {
	donation, err := s.ownedByReference(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}

	switch donation.Status {
	case domain.DonationCompleted:
		return donation, nil
	case domain.DonationRefunded:
		return nil, fmt.Errorf("%w: donation was refunded", domain.ErrIllegalTransition)
	}

	capture, err := s.gateway.CaptureOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !capture.Completed() {
		s.logger.Info().Str("order_id", orderID).Str("status", capture.Status).Msg("capture not completed")
		return nil, fmt.Errorf("%w: status %s", domain.ErrPaymentNotCompleted, capture.Status)
	}

	res, err := s.reconciler.CompleteCapture(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if res.Outcome == domain.OutcomeNotFound || res.Donation == nil {
		return nil, domain.ErrDonationNotFound
	}
	return res.Donation, nil
}

// ListForUser implements domain.DonationService
func (s *DonationServiceImpl) ListForUser(ctx context.Context, userID uint) ([]domain.Donation, error) {
	return s.donationRepo.ListByUser(ctx, userID)
}

// GetForUser implements domain.DonationService. Another user's donation is
// reported as not found.
func (s *DonationServiceImpl) GetForUser(ctx context.Context, userID, donationID uint) (*domain.Donation, error) {
	donation, err := s.donationRepo.FindByID(ctx, donationID)
	if err != nil {
		return nil, err
	}
	if donation.UserID != userID {
		return nil, domain.ErrDonationNotFound
	}
	return donation, nil
}

// OrderDetails implements domain.DonationService
func (s *DonationServiceImpl) OrderDetails(ctx context.Context, userID uint, orderID string) (json.RawMessage, error) {
	if _, err := s.ownedByReference(ctx, userID, orderID); err != nil {
		return nil, err
	}
	return s.gateway.GetOrderDetails(ctx, orderID)
}

func (s *DonationServiceImpl) ownedByReference(ctx context.Context, userID uint, orderID string) (*domain.Donation, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, domain.ErrDonationNotFound
	}
	donation, err := s.donationRepo.FindByPaymentReference(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrDonationNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load donation: %w", err)
	}
	if donation.UserID != userID {
		return nil, domain.ErrDonationNotFound
	}
	return donation, nil
}

var _ domain.DonationService = (*DonationServiceImpl)(nil)
