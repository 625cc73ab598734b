package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/you/donationsvc/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestJWTService_RoundTrip(t *testing.T) {
	for _, alg := range []string{"HS256", "HS384", "HS512"} {
		t.Run(alg, func(t *testing.T) {
			svc, err := NewJWTService("secret", alg, "donationsvc", 30*time.Minute)
			require.NoError(t, err)

			token, err := svc.GenerateAccessToken(42, "user")
			require.NoError(t, err)

			claims, err := svc.ValidateAccessToken(token)
			require.NoError(t, err)
			assert.Equal(t, uint(42), claims.UserID)
			assert.Equal(t, "user", claims.Role)
			assert.Greater(t, claims.ExpiresAt, claims.IssuedAt)
			assert.Equal(t, 30*time.Minute, svc.AccessTTL())
		})
	}
}

func TestJWTService_UnsupportedAlgorithm(t *testing.T) {
	_, err := NewJWTService("secret", "RS256", "donationsvc", time.Minute)
	assert.Error(t, err)
}

func TestJWTService_Validate(t *testing.T) {
	svc, err := NewJWTService("secret", "HS256", "donationsvc", time.Minute)
	require.NoError(t, err)

	sign := func(claims jwt.MapClaims, method jwt.SigningMethod, key string) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(key))
		require.NoError(t, err)
		return s
	}
	now := time.Now()
	valid := func() jwt.MapClaims {
		return jwt.MapClaims{"user_id": 1, "role": "user", "iss": "donationsvc", "iat": now.Unix(), "exp": now.Add(time.Minute).Unix()}
	}

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "garbage", token: "not.a.jwt", wantErr: domain.ErrTokenMalformed},
		{name: "wrong key", token: sign(valid(), jwt.SigningMethodHS256, "other"), wantErr: domain.ErrTokenInvalid},
		{name: "wrong algorithm", token: sign(valid(), jwt.SigningMethodHS512, "secret"), wantErr: domain.ErrTokenInvalid},
		{
			name: "expired",
			token: sign(jwt.MapClaims{"user_id": 1, "role": "user", "iss": "donationsvc", "iat": now.Add(-time.Hour).Unix(), "exp": now.Add(-time.Minute).Unix()},
				jwt.SigningMethodHS256, "secret"),
			wantErr: domain.ErrTokenExpired,
		},
		{
			name:    "wrong issuer",
			token:   sign(jwt.MapClaims{"user_id": 1, "role": "user", "iss": "elsewhere", "iat": now.Unix(), "exp": now.Add(time.Minute).Unix()}, jwt.SigningMethodHS256, "secret"),
			wantErr: domain.ErrTokenInvalid,
		},
		{
			name:    "missing user id",
			token:   sign(jwt.MapClaims{"role": "user", "iss": "donationsvc", "iat": now.Unix(), "exp": now.Add(time.Minute).Unix()}, jwt.SigningMethodHS256, "secret"),
			wantErr: domain.ErrTokenMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateAccessToken(tt.token)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPasswordService(t *testing.T) {
	svc := NewPasswordServiceWithCost(4)

	hash, err := svc.Hash("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)
	assert.True(t, svc.Verify(hash, "correct horse"))
	assert.False(t, svc.Verify(hash, "wrong"))
}

func TestCasbinService_SeedAndEnforce(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	svc, err := NewCasbinService(db)
	require.NoError(t, err)

	added, err := svc.SeedDefaults()
	require.NoError(t, err)
	assert.Equal(t, len(DefaultPolicies), added)

	added, err = svc.SeedDefaults()
	require.NoError(t, err)
	assert.Zero(t, added, "seeding is idempotent")

	tests := []struct {
		sub, obj, act string
		want          bool
	}{
		{"role_user", "/donations/:id", "GET", true},
		{"role_user", "/donations/create-order", "POST", true},
		{"role_user", "/admin/policies", "GET", false},
		{"role_admin", "/admin/policies", "DELETE", true},
		{"role_admin", "/donations/my-donations", "GET", true},
		{"role_guest", "/me", "GET", false},
	}
	for _, tt := range tests {
		ok, err := svc.E.Enforce(tt.sub, tt.obj, tt.act)
		require.NoError(t, err)
		assert.Equal(t, tt.want, ok, "%s %s %s", tt.sub, tt.act, tt.obj)
	}
}
