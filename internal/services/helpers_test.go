package services

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/you/donationsvc/internal/infrastructure/repositories"
	"github.com/you/donationsvc/internal/infrastructure/tokenstore"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testLogger = zerolog.Nop()

// setupTestDB creates an in-memory SQLite database with the service schema
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&repositories.DBUser{}, &repositories.DBDonation{}, &repositories.DBWebhookEvent{}); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	return db
}

// setupTestStore starts a miniredis server and returns a token store on it
func setupTestStore(t *testing.T) (*tokenstore.RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return tokenstore.NewRedisStore(client), mr
}

func seedUser(t *testing.T, db *gorm.DB, email string, total int64) *repositories.DBUser {
	t.Helper()

	user := &repositories.DBUser{
		Name:         "Donor",
		Email:        email,
		PasswordHash: "hashed_password",
		Role:         "user",
		Verified:     true,
		TotalDonated: total,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}

func seedDonation(t *testing.T, db *gorm.DB, userID uint, ref string, amount int64, status string) *repositories.DBDonation {
	t.Helper()

	row := &repositories.DBDonation{
		UserID:           userID,
		Amount:           amount,
		Currency:         "USD",
		Status:           status,
		PaymentReference: ref,
	}
	if err := db.Create(row).Error; err != nil {
		t.Fatalf("failed to seed donation: %v", err)
	}
	return row
}

func userTotal(t *testing.T, db *gorm.DB, id uint) int64 {
	t.Helper()

	var user repositories.DBUser
	if err := db.First(&user, id).Error; err != nil {
		t.Fatalf("failed to load user: %v", err)
	}
	return user.TotalDonated
}

func donationStatus(t *testing.T, db *gorm.DB, ref string) string {
	t.Helper()

	var row repositories.DBDonation
	if err := db.Where("payment_reference = ?", ref).First(&row).Error; err != nil {
		t.Fatalf("failed to load donation: %v", err)
	}
	return row.Status
}
