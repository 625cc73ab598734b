package mocks

import (
	"context"

	"github.com/you/donationsvc/domain"
)

// MockDonationRepository implements domain.DonationRepository interface for testing
type MockDonationRepository struct {
	CreateFunc                 func(ctx context.Context, donation *domain.Donation) error
	FindByIDFunc               func(ctx context.Context, id uint) (*domain.Donation, error)
	FindByPaymentReferenceFunc func(ctx context.Context, ref string) (*domain.Donation, error)
	ListByUserFunc             func(ctx context.Context, userID uint) ([]domain.Donation, error)
	ListRecentFunc             func(ctx context.Context, limit int) ([]domain.Donation, error)
	TransitionFunc             func(ctx context.Context, paymentRef string, t domain.Transition) (*domain.TransitionResult, error)
}

// NewMockDonationRepository creates a new MockDonationRepository with default behaviors
func NewMockDonationRepository() *MockDonationRepository {
	return &MockDonationRepository{}
}

// Create records a new donation
func (m *MockDonationRepository) Create(ctx context.Context, donation *domain.Donation) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, donation)
	}
	// Default behavior: success
	return nil
}

// FindByID finds a donation by ID
func (m *MockDonationRepository) FindByID(ctx context.Context, id uint) (*domain.Donation, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, domain.ErrDonationNotFound
}

// FindByPaymentReference finds a donation by its gateway order id
func (m *MockDonationRepository) FindByPaymentReference(ctx context.Context, ref string) (*domain.Donation, error) {
	if m.FindByPaymentReferenceFunc != nil {
		return m.FindByPaymentReferenceFunc(ctx, ref)
	}
	return nil, domain.ErrDonationNotFound
}

// ListByUser lists a user's donations
func (m *MockDonationRepository) ListByUser(ctx context.Context, userID uint) ([]domain.Donation, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID)
	}
	return nil, nil
}

// ListRecent lists the newest donations
func (m *MockDonationRepository) ListRecent(ctx context.Context, limit int) ([]domain.Donation, error) {
	if m.ListRecentFunc != nil {
		return m.ListRecentFunc(ctx, limit)
	}
	return nil, nil
}

// Transition applies a guarded status change
func (m *MockDonationRepository) Transition(ctx context.Context, paymentRef string, t domain.Transition) (*domain.TransitionResult, error) {
	if m.TransitionFunc != nil {
		return m.TransitionFunc(ctx, paymentRef, t)
	}
	return nil, domain.ErrDonationNotFound
}

// Compile-time interface compliance verification
var _ domain.DonationRepository = (*MockDonationRepository)(nil)
