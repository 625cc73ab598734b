package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/you/donationsvc/domain"
	"gorm.io/gorm"
)

// WebhookEventRepositoryImpl implements domain.WebhookEventRepository using GORM
type WebhookEventRepositoryImpl struct {
	db *gorm.DB
}

// DBWebhookEvent is the audit row for one inbound webhook delivery.
// EventID is nullable so events without an id never collide on the unique index.
type DBWebhookEvent struct {
	ID              uint    `gorm:"primaryKey"`
	EventID         *string `gorm:"uniqueIndex;size:128"`
	EventType       string  `gorm:"size:128;index"`
	OrderID         string  `gorm:"size:64;index"`
	Payload         string  `gorm:"type:text"`
	SignatureValid  bool
	Outcome         string `gorm:"size:32"`
	ProcessingError string `gorm:"type:text"`
	ProcessedAt     *time.Time
	CreatedAt       time.Time `gorm:"index"`
}

// TableName returns the table name for GORM
func (DBWebhookEvent) TableName() string {
	return "webhook_events"
}

// NewWebhookEventRepository creates a new webhook audit repository
func NewWebhookEventRepository(db *gorm.DB) domain.WebhookEventRepository {
	return &WebhookEventRepositoryImpl{db: db}
}

// Record implements domain.WebhookEventRepository. A delivery whose event id is
// already on file is reported as a duplicate and not inserted again.
func (r *WebhookEventRepositoryImpl) Record(ctx context.Context, rec *domain.WebhookRecord) (bool, error) {
	var eventID *string
	if rec.EventID != "" {
		id := rec.EventID
		eventID = &id

		var existing DBWebhookEvent
		err := r.db.WithContext(ctx).Where("event_id = ?", id).First(&existing).Error
		if err == nil {
			rec.ID = existing.ID
			return true, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return false, err
		}
	}

	row := &DBWebhookEvent{
		EventID:        eventID,
		EventType:      rec.EventType,
		OrderID:        rec.OrderID,
		Payload:        string(rec.Payload),
		SignatureValid: rec.SignatureValid,
		Outcome:        rec.Outcome,
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// concurrent redelivery won the insert
			return true, nil
		}
		return false, err
	}
	rec.ID = row.ID
	rec.CreatedAt = row.CreatedAt
	return false, nil
}

// MarkProcessed implements domain.WebhookEventRepository
func (r *WebhookEventRepositoryImpl) MarkProcessed(ctx context.Context, id uint, outcome, processingError string) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&DBWebhookEvent{}).Where("id = ?", id).Updates(map[string]interface{}{
		"outcome":          outcome,
		"processing_error": processingError,
		"processed_at":     &now,
	}).Error
}
