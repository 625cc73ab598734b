package mocks

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/you/donationsvc/domain"
)

// MockPaymentGateway implements domain.PaymentGateway interface for testing
type MockPaymentGateway struct {
	CreateOrderFunc            func(ctx context.Context, amount int64, currency string) (*domain.Order, error)
	CaptureOrderFunc           func(ctx context.Context, orderID string) (*domain.Capture, error)
	GetOrderDetailsFunc        func(ctx context.Context, orderID string) (json.RawMessage, error)
	VerifyWebhookSignatureFunc func(ctx context.Context, req *domain.SignatureVerification) (string, error)

	VerifyCalls atomic.Int32
}

// NewMockPaymentGateway creates a new MockPaymentGateway with default behaviors
func NewMockPaymentGateway() *MockPaymentGateway {
	return &MockPaymentGateway{}
}

// CreateOrder creates a gateway order
func (m *MockPaymentGateway) CreateOrder(ctx context.Context, amount int64, currency string) (*domain.Order, error) {
	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, amount, currency)
	}
	return &domain.Order{ID: "ORDER123", Status: "CREATED", ApprovalLink: "https://paypal.test/approve/ORDER123"}, nil
}

// CaptureOrder captures a gateway order
func (m *MockPaymentGateway) CaptureOrder(ctx context.Context, orderID string) (*domain.Capture, error) {
	if m.CaptureOrderFunc != nil {
		return m.CaptureOrderFunc(ctx, orderID)
	}
	return &domain.Capture{Status: domain.StatusCompleted, Raw: json.RawMessage(`{"status":"COMPLETED"}`)}, nil
}

// GetOrderDetails fetches a gateway order
func (m *MockPaymentGateway) GetOrderDetails(ctx context.Context, orderID string) (json.RawMessage, error) {
	if m.GetOrderDetailsFunc != nil {
		return m.GetOrderDetailsFunc(ctx, orderID)
	}
	return json.RawMessage(`{"id":"` + orderID + `","status":"APPROVED"}`), nil
}

// VerifyWebhookSignature asks the gateway to check a webhook signature
func (m *MockPaymentGateway) VerifyWebhookSignature(ctx context.Context, req *domain.SignatureVerification) (string, error) {
	m.VerifyCalls.Add(1)
	if m.VerifyWebhookSignatureFunc != nil {
		return m.VerifyWebhookSignatureFunc(ctx, req)
	}
	return domain.VerificationSuccess, nil
}

// Compile-time interface compliance verification
var _ domain.PaymentGateway = (*MockPaymentGateway)(nil)
