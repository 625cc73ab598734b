package mocks

import (
	"context"
	"sync"

	"github.com/you/donationsvc/domain"
)

// MockWebhookEventRepository implements domain.WebhookEventRepository interface for testing
type MockWebhookEventRepository struct {
	RecordFunc        func(ctx context.Context, record *domain.WebhookRecord) (bool, error)
	MarkProcessedFunc func(ctx context.Context, id uint, outcome, processingError string) error

	mu        sync.Mutex
	Records   []domain.WebhookRecord
	Processed map[uint]string
}

// NewMockWebhookEventRepository creates a new MockWebhookEventRepository with default behaviors
func NewMockWebhookEventRepository() *MockWebhookEventRepository {
	return &MockWebhookEventRepository{Processed: map[uint]string{}}
}

// Record stores the delivery; by default duplicates are detected by event id
func (m *MockWebhookEventRepository) Record(ctx context.Context, record *domain.WebhookRecord) (bool, error) {
	if m.RecordFunc != nil {
		return m.RecordFunc(ctx, record)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.Records {
		if record.EventID != "" && r.EventID == record.EventID {
			record.ID = r.ID
			return true, nil
		}
	}
	record.ID = uint(len(m.Records) + 1)
	m.Records = append(m.Records, *record)
	return false, nil
}

// MarkProcessed records the final outcome
func (m *MockWebhookEventRepository) MarkProcessed(ctx context.Context, id uint, outcome, processingError string) error {
	if m.MarkProcessedFunc != nil {
		return m.MarkProcessedFunc(ctx, id, outcome, processingError)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Processed[id] = outcome
	return nil
}

// Compile-time interface compliance verification
var _ domain.WebhookEventRepository = (*MockWebhookEventRepository)(nil)
