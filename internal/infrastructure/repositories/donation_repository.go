package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/you/donationsvc/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DonationRepositoryImpl implements domain.DonationRepository using GORM
type DonationRepositoryImpl struct {
	db *gorm.DB
}

// DBDonation represents the database model for Donation
type DBDonation struct {
	ID               uint      `gorm:"primaryKey"`
	UserID           uint      `gorm:"index;not null"`
	Amount           int64     `gorm:"not null;check:chk_donations_amount,amount > 0"`
	Currency         string    `gorm:"size:3;not null;default:USD"`
	Status           string    `gorm:"size:16;index;not null;default:pending"`
	PaymentReference string    `gorm:"uniqueIndex;size:64;not null"`
	CreatedAt        time.Time `gorm:"index"`
	UpdatedAt        time.Time
}

// TableName returns the table name for GORM
func (DBDonation) TableName() string {
	return "donations"
}

// NewDonationRepository creates a new donation repository
func NewDonationRepository(db *gorm.DB) domain.DonationRepository {
	return &DonationRepositoryImpl{db: db}
}

// Create implements domain.DonationRepository. New rows always start pending.
func (r *DonationRepositoryImpl) Create(ctx context.Context, donation *domain.Donation) error {
	if donation.Amount <= 0 {
		return domain.ErrInvalidAmount
	}
	row := &DBDonation{
		UserID:           donation.UserID,
		Amount:           donation.Amount,
		Currency:         donation.Currency,
		Status:           string(domain.DonationPending),
		PaymentReference: donation.PaymentReference,
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("payment reference %q already recorded: %w", donation.PaymentReference, err)
		}
		return err
	}
	*donation = *donationDBToDomain(row)
	return nil
}

// FindByID implements domain.DonationRepository
func (r *DonationRepositoryImpl) FindByID(ctx context.Context, id uint) (*domain.Donation, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByPaymentReference implements domain.DonationRepository
func (r *DonationRepositoryImpl) FindByPaymentReference(ctx context.Context, ref string) (*domain.Donation, error) {
	return r.findOne(ctx, "payment_reference = ?", ref)
}

func (r *DonationRepositoryImpl) findOne(ctx context.Context, query string, arg interface{}) (*domain.Donation, error) {
	var row DBDonation
	err := r.db.WithContext(ctx).Where(query, arg).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrDonationNotFound
		}
		return nil, err
	}
	return donationDBToDomain(&row), nil
}

// ListByUser implements domain.DonationRepository
func (r *DonationRepositoryImpl) ListByUser(ctx context.Context, userID uint) ([]domain.Donation, error) {
	var rows []DBDonation
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return donationsDBToDomain(rows), nil
}

// ListRecent implements domain.DonationRepository
func (r *DonationRepositoryImpl) ListRecent(ctx context.Context, limit int) ([]domain.Donation, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var rows []DBDonation
	err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return donationsDBToDomain(rows), nil
}

// Transition implements domain.DonationRepository.
//
// The donation row is locked, the status guard is evaluated, and the status
// and the owner's total are written in one transaction. A donation that is not
// in t.From is left untouched and reported with Applied=false.
func (r *DonationRepositoryImpl) Transition(ctx context.Context, paymentRef string, t domain.Transition) (*domain.TransitionResult, error) {
	if !t.From.CanTransitionTo(t.To) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrIllegalTransition, t.From, t.To)
	}

	result := &domain.TransitionResult{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row DBDonation
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("payment_reference = ?", paymentRef).
			First(&row).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrDonationNotFound
			}
			return err
		}

		result.Donation = donationDBToDomain(&row)
		if domain.DonationStatus(row.Status) != t.From {
			return nil
		}

		now := time.Now()
		res := tx.Model(&DBDonation{}).
			Where("id = ? AND status = ?", row.ID, string(t.From)).
			Updates(map[string]interface{}{"status": string(t.To), "updated_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// lost the race to a concurrent transition
			return nil
		}

		delta := t.CreditSign * row.Amount
		userQuery := tx.Model(&DBUser{}).Where("id = ?", row.UserID)
		if delta < 0 {
			userQuery = userQuery.Where("total_donated >= ?", -delta)
		}
		res = userQuery.Update("total_donated", gorm.Expr("total_donated + ?", delta))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if delta < 0 {
				return domain.ErrNegativeTotal
			}
			return domain.ErrUserNotFound
		}

		var user DBUser
		if err := tx.Where("id = ?", row.UserID).First(&user).Error; err != nil {
			return err
		}

		row.Status = string(t.To)
		row.UpdatedAt = now
		result.Donation = donationDBToDomain(&row)
		result.User = userDBToDomain(&user)
		result.Applied = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func donationDBToDomain(row *DBDonation) *domain.Donation {
	return &domain.Donation{
		ID:               row.ID,
		UserID:           row.UserID,
		Amount:           row.Amount,
		Currency:         row.Currency,
		Status:           domain.DonationStatus(row.Status),
		PaymentReference: row.PaymentReference,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
}

func donationsDBToDomain(rows []DBDonation) []domain.Donation {
	out := make([]domain.Donation, 0, len(rows))
	for i := range rows {
		out = append(out, *donationDBToDomain(&rows[i]))
	}
	return out
}
