// internal/services/auth_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/eventra/eventra-backend/internal/config"
	"github.com/eventra/eventra-backend/internal/models"
	"github.com/eventra/eventra-backend/internal/utils"
)

func newAuthService(db *gorm.DB) *AuthService {
	return NewAuthService(db, config.JWTConfig{
		SecretKey:      "test-secret-key-for-auth-tests",
		AccessTokenTTL: 1,
	})
}

func TestRegisterAndLoginUser(t *testing.T) {
	db := setupTestDB(t)
	svc := newAuthService(db)

	user, err := svc.RegisterUser(&RegisterUserRequest{
		Name:     "Pat Buyer",
		Email:    "pat@buyer.test",
		Password: "correct-horse-1",
	})
	require.NoError(t, err)
	assert.NotEqual(t, "correct-horse-1", user.PasswordHash)

	resp, err := svc.LoginUser(&LoginRequest{Email: "pat@buyer.test", Password: "correct-horse-1"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, utils.ActorTypeUser, resp.ActorType)

	claims, err := utils.ValidateJWT(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.ActorID)
	assert.Equal(t, utils.ActorTypeUser, claims.ActorType)
}

func TestRegisterUserDuplicateEmail(t *testing.T) {
	db := setupTestDB(t)
	svc := newAuthService(db)

	_, err := svc.RegisterUser(&RegisterUserRequest{Name: "A", Email: "dup@x.test", Password: "password-123"})
	require.NoError(t, err)

	_, err = svc.RegisterUser(&RegisterUserRequest{Name: "B", Email: "dup@x.test", Password: "password-456"})
	assert.Error(t, err)
}

func TestLoginUserWrongPassword(t *testing.T) {
	db := setupTestDB(t)
	svc := newAuthService(db)

	_, err := svc.RegisterUser(&RegisterUserRequest{Name: "A", Email: "a@x.test", Password: "password-123"})
	require.NoError(t, err)

	_, err = svc.LoginUser(&LoginRequest{Email: "a@x.test", Password: "password-999"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.LoginUser(&LoginRequest{Email: "missing@x.test", Password: "password-123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginSeller(t *testing.T) {
	db := setupTestDB(t)
	f := seedSale(t, db, 5, 0)
	svc := newAuthService(db)

	resp, err := svc.LoginSeller(&LoginRequest{Email: f.Seller.Email, Password: "seller-password-1"})
	require.NoError(t, err)
	assert.Equal(t, utils.ActorTypeSeller, resp.ActorType)

	claims, err := utils.ValidateJWT(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, f.Organization.ID.String(), claims.OrganizationID)
}

func TestLoginSuspendedSeller(t *testing.T) {
	db := setupTestDB(t)
	f := seedSale(t, db, 5, 0)
	require.NoError(t, db.Model(&models.Seller{}).Where("id = ?", f.Seller.ID).
		Update("status", models.SellerStatusSuspended).Error)
	svc := newAuthService(db)

	_, err := svc.LoginSeller(&LoginRequest{Email: f.Seller.Email, Password: "seller-password-1"})
	assert.ErrorIs(t, err, ErrSellerNotAllowed)
}

func TestLoginOrganization(t *testing.T) {
	db := setupTestDB(t)
	f := seedSale(t, db, 5, 0)
	svc := newAuthService(db)

	resp, err := svc.LoginOrganization(&LoginRequest{Email: f.Organization.Email, Password: "org-password-1"})
	require.NoError(t, err)
	assert.Equal(t, utils.ActorTypeOrganization, resp.ActorType)
}

func TestLoginInactiveOrganization(t *testing.T) {
	db := setupTestDB(t)
	f := seedSale(t, db, 5, 0)
	require.NoError(t, db.Model(&models.Organization{}).Where("id = ?", f.Organization.ID).
		Update("status", models.OrganizationStatusSuspended).Error)
	svc := newAuthService(db)

	_, err := svc.LoginOrganization(&LoginRequest{Email: f.Organization.Email, Password: "org-password-1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
