package mocks

import (
	"context"
	"encoding/json"

	"github.com/you/donationsvc/domain"
)

// MockWebhookVerifier implements domain.WebhookVerifier interface for testing
type MockWebhookVerifier struct {
	VerifyFunc func(ctx context.Context, webhookID string, headers domain.TransmissionHeaders, body []byte) bool
}

// Verify reports whether the delivery is genuine
func (m *MockWebhookVerifier) Verify(ctx context.Context, webhookID string, headers domain.TransmissionHeaders, body []byte) bool {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, webhookID, headers, body)
	}
	// Default behavior: fail closed
	return false
}

// MockDonationReconciler implements domain.DonationReconciler interface for testing
type MockDonationReconciler struct {
	CompleteCaptureFunc func(ctx context.Context, orderID string) (*domain.ReconcileResult, error)
	RefundCaptureFunc   func(ctx context.Context, orderID string) (*domain.ReconcileResult, error)
	HandleEventFunc     func(ctx context.Context, event *domain.WebhookEvent) (*domain.ReconcileResult, error)
}

// CompleteCapture applies a settled capture
func (m *MockDonationReconciler) CompleteCapture(ctx context.Context, orderID string) (*domain.ReconcileResult, error) {
	if m.CompleteCaptureFunc != nil {
		return m.CompleteCaptureFunc(ctx, orderID)
	}
	return &domain.ReconcileResult{Outcome: domain.OutcomeNoop}, nil
}

// RefundCapture applies a refund
func (m *MockDonationReconciler) RefundCapture(ctx context.Context, orderID string) (*domain.ReconcileResult, error) {
	if m.RefundCaptureFunc != nil {
		return m.RefundCaptureFunc(ctx, orderID)
	}
	return &domain.ReconcileResult{Outcome: domain.OutcomeNoop}, nil
}

// HandleEvent dispatches a parsed webhook event
func (m *MockDonationReconciler) HandleEvent(ctx context.Context, event *domain.WebhookEvent) (*domain.ReconcileResult, error) {
	if m.HandleEventFunc != nil {
		return m.HandleEventFunc(ctx, event)
	}
	return &domain.ReconcileResult{Outcome: domain.OutcomeIgnored}, nil
}

// MockDonationService implements domain.DonationService interface for testing
type MockDonationService struct {
	CreateOrderFunc  func(ctx context.Context, userID uint, amount int64) (*domain.Order, *domain.Donation, error)
	CaptureOrderFunc func(ctx context.Context, userID uint, orderID string) (*domain.Donation, error)
	ListForUserFunc  func(ctx context.Context, userID uint) ([]domain.Donation, error)
	GetForUserFunc   func(ctx context.Context, userID, donationID uint) (*domain.Donation, error)
	OrderDetailsFunc func(ctx context.Context, userID uint, orderID string) (json.RawMessage, error)
}

// CreateOrder starts a donation
func (m *MockDonationService) CreateOrder(ctx context.Context, userID uint, amount int64) (*domain.Order, *domain.Donation, error) {
	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, userID, amount)
	}
	return nil, nil, domain.ErrGateway
}

// CaptureOrder finishes a donation
func (m *MockDonationService) CaptureOrder(ctx context.Context, userID uint, orderID string) (*domain.Donation, error) {
	if m.CaptureOrderFunc != nil {
		return m.CaptureOrderFunc(ctx, userID, orderID)
	}
	return nil, domain.ErrDonationNotFound
}

// ListForUser lists the user's donations
func (m *MockDonationService) ListForUser(ctx context.Context, userID uint) ([]domain.Donation, error) {
	if m.ListForUserFunc != nil {
		return m.ListForUserFunc(ctx, userID)
	}
	return []domain.Donation{}, nil
}

// GetForUser returns one of the user's donations
func (m *MockDonationService) GetForUser(ctx context.Context, userID, donationID uint) (*domain.Donation, error) {
	if m.GetForUserFunc != nil {
		return m.GetForUserFunc(ctx, userID, donationID)
	}
	return nil, domain.ErrDonationNotFound
}

// OrderDetails returns the gateway's view of an order
func (m *MockDonationService) OrderDetails(ctx context.Context, userID uint, orderID string) (json.RawMessage, error) {
	if m.OrderDetailsFunc != nil {
		return m.OrderDetailsFunc(ctx, userID, orderID)
	}
	return json.RawMessage(`{}`), nil
}

// MockWebhookService implements domain.WebhookService interface for testing
type MockWebhookService struct {
	HandleFunc func(ctx context.Context, headers domain.TransmissionHeaders, body []byte) (*domain.WebhookAck, error)
}

// Handle processes a delivery
func (m *MockWebhookService) Handle(ctx context.Context, headers domain.TransmissionHeaders, body []byte) (*domain.WebhookAck, error) {
	if m.HandleFunc != nil {
		return m.HandleFunc(ctx, headers, body)
	}
	return &domain.WebhookAck{Status: domain.AckSuccess}, nil
}

// Compile-time interface compliance verification
var (
	_ domain.WebhookService     = (*MockWebhookService)(nil)
	_ domain.WebhookVerifier    = (*MockWebhookVerifier)(nil)
	_ domain.DonationReconciler = (*MockDonationReconciler)(nil)
	_ domain.DonationService    = (*MockDonationService)(nil)
)
