// internal/services/discount_service_test.go
package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/eventra/eventra-backend/internal/models"
)

func seedCoupon(t *testing.T, db *gorm.DB, coupon models.Coupon) models.Coupon {
	t.Helper()
	require.NoError(t, db.Create(&coupon).Error)
	return coupon
}

func TestApplyExplicitPercentCoupon(t *testing.T) {
	db := setupTestDB(t)
	seedCoupon(t, db, models.Coupon{Code: "TEN", Method: models.CouponMethodPercent, Value: 10})
	policy := NewDefaultDiscountPolicy()

	result, err := policy.Apply(db, uuid.New(), 10000, "TEN", time.Now())
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "TEN", result.CouponCode)
	assert.Equal(t, 10000.0, result.InitialAmount)
	assert.Equal(t, 9000.0, result.ReducedAmount)
}

func TestApplyExplicitFixedCouponClampsAtZero(t *testing.T) {
	db := setupTestDB(t)
	seedCoupon(t, db, models.Coupon{Code: "BIGCUT", Method: models.CouponMethodFixed, Value: 7000})
	policy := NewDefaultDiscountPolicy()

	result, err := policy.Apply(db, uuid.New(), 5000, "BIGCUT", time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.ReducedAmount)
}

func TestApplyUnknownCodeIsHardError(t *testing.T) {
	db := setupTestDB(t)
	policy := NewDefaultDiscountPolicy()

	_, err := policy.Apply(db, uuid.New(), 5000, "GHOST", time.Now())
	assert.ErrorIs(t, err, ErrInvalidCoupon)
}

func TestApplyExpiredExplicitCode(t *testing.T) {
	db := setupTestDB(t)
	until := time.Now().Add(-time.Hour)
	seedCoupon(t, db, models.Coupon{Code: "OLD", Method: models.CouponMethodPercent, Value: 10, ValidUntil: &until})
	policy := NewDefaultDiscountPolicy()

	_, err := policy.Apply(db, uuid.New(), 5000, "OLD", time.Now())
	assert.ErrorIs(t, err, ErrInvalidCoupon)
}

func TestApplyUsageLimitExhausted(t *testing.T) {
	db := setupTestDB(t)
	seedCoupon(t, db, models.Coupon{Code: "CAP", Method: models.CouponMethodPercent, Value: 10, UsageLimit: 2, UsedCount: 2})
	policy := NewDefaultDiscountPolicy()

	_, err := policy.Apply(db, uuid.New(), 5000, "CAP", time.Now())
	assert.ErrorIs(t, err, ErrInvalidCoupon)
}

func TestApplyEventScopedCode(t *testing.T) {
	db := setupTestDB(t)
	eventID := uuid.New()
	otherEventID := uuid.New()
	seedCoupon(t, db, models.Coupon{Code: "SCOPED", Method: models.CouponMethodPercent, Value: 10, EventID: &eventID})
	policy := NewDefaultDiscountPolicy()

	result, err := policy.Apply(db, eventID, 5000, "SCOPED", time.Now())
	require.NoError(t, err)
	assert.Equal(t, 4500.0, result.ReducedAmount)

	_, err = policy.Apply(db, otherEventID, 5000, "SCOPED", time.Now())
	assert.ErrorIs(t, err, ErrInvalidCoupon)
}

func TestApplyNoCodeNoAutomaticCoupons(t *testing.T) {
	db := setupTestDB(t)
	policy := NewDefaultDiscountPolicy()

	result, err := policy.Apply(db, uuid.New(), 5000, "", time.Now())
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestApplyBestAutomaticCouponWins(t *testing.T) {
	db := setupTestDB(t)
	seedCoupon(t, db, models.Coupon{Code: "AUTO5", Method: models.CouponMethodPercent, Value: 5, Automatic: true})
	seedCoupon(t, db, models.Coupon{Code: "AUTO20", Method: models.CouponMethodPercent, Value: 20, Automatic: true})
	seedCoupon(t, db, models.Coupon{Code: "AUTO500", Method: models.CouponMethodFixed, Value: 500, Automatic: true})
	policy := NewDefaultDiscountPolicy()

	result, err := policy.Apply(db, uuid.New(), 10000, "", time.Now())
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "AUTO20", result.CouponCode)
	assert.Equal(t, 8000.0, result.ReducedAmount)
}

func TestApplyAutomaticSkipsInvalidCandidates(t *testing.T) {
	db := setupTestDB(t)
	until := time.Now().Add(-time.Hour)
	seedCoupon(t, db, models.Coupon{Code: "AUTOEXP", Method: models.CouponMethodPercent, Value: 50, Automatic: true, ValidUntil: &until})
	seedCoupon(t, db, models.Coupon{Code: "AUTOOK", Method: models.CouponMethodPercent, Value: 10, Automatic: true})
	policy := NewDefaultDiscountPolicy()

	result, err := policy.Apply(db, uuid.New(), 10000, "", time.Now())
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "AUTOOK", result.CouponCode)
}

func TestApplyAutomaticIgnoresNonAutomatic(t *testing.T) {
	db := setupTestDB(t)
	seedCoupon(t, db, models.Coupon{Code: "MANUAL", Method: models.CouponMethodPercent, Value: 90})
	policy := NewDefaultDiscountPolicy()

	result, err := policy.Apply(db, uuid.New(), 10000, "", time.Now())
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestMarkCouponUsed(t *testing.T) {
	db := setupTestDB(t)
	seedCoupon(t, db, models.Coupon{Code: "COUNT", Method: models.CouponMethodPercent, Value: 10})

	require.NoError(t, MarkCouponUsed(db, "COUNT"))
	require.NoError(t, MarkCouponUsed(db, "COUNT"))

	var coupon models.Coupon
	require.NoError(t, db.First(&coupon, "code = ?", "COUNT").Error)
	assert.Equal(t, 2, coupon.UsedCount)
}
