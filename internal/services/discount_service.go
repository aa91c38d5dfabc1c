// internal/services/discount_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gorm.io/gorm"

	"github.com/eventra/eventra-backend/internal/models"
)

// DiscountResult is the immutable snapshot of one discount application. Both
// the order item and the transaction persist it so later commission and stats
// computations do not depend on mutable coupon state.
type DiscountResult struct {
	CouponCode    string  `json:"coupon_code"`
	Method        string  `json:"method"`
	Value         float64 `json:"value"`
	InitialAmount float64 `json:"initial_amount"`
	ReducedAmount float64 `json:"reduced_amount"`
}

func (r *DiscountResult) Snapshot() models.JSONB {
	return models.JSONB{
		"coupon_code":    r.CouponCode,
		"method":         r.Method,
		"value":          r.Value,
		"initial_amount": r.InitialAmount,
		"reduced_amount": r.ReducedAmount,
	}
}

// DiscountPolicy decides which single discount, if any, applies to an order.
// It is injected so tests can substitute deterministic policies.
type DiscountPolicy interface {
	// Apply computes the discount for amount on the given event. couponCode
	// is the buyer-supplied code; empty means "pick the best automatic
	// coupon, or none". A non-empty invalid code is a hard error; an
	// automatic coupon that turns out invalid is silently skipped.
	Apply(tx *gorm.DB, eventID uuid.UUID, amount float64, couponCode string, now time.Time) (*DiscountResult, error)
}

// DefaultDiscountPolicy resolves coupons from the database.
type DefaultDiscountPolicy struct{}

func NewDefaultDiscountPolicy() *DefaultDiscountPolicy {
	return &DefaultDiscountPolicy{}
}

func (p *DefaultDiscountPolicy) Apply(tx *gorm.DB, eventID uuid.UUID, amount float64, couponCode string, now time.Time) (*DiscountResult, error) {
	if couponCode != "" {
		var coupon models.Coupon
		if err := tx.Where("code = ?", couponCode).First(&coupon).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrInvalidCoupon
			}
			return nil, fmt.Errorf("database error: %w", err)
		}

		if !coupon.IsValidAt(now) || !p.couponMatchesEvent(&coupon, eventID) {
			return nil, ErrInvalidCoupon
		}

		return p.result(&coupon, amount), nil
	}

	// Best automatic discount: largest reduction wins; invalid candidates
	// are skipped silently.
	var candidates []models.Coupon
	if err := tx.Where("automatic = ? AND is_active = ?", true, true).Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	var best *models.Coupon
	var bestReduced float64
	for i := range candidates {
		c := &candidates[i]
		if !c.IsValidAt(now) || !p.couponMatchesEvent(c, eventID) {
			continue
		}
		reduced := c.Reduce(amount)
		if best == nil || reduced < bestReduced {
			best = c
			bestReduced = reduced
		}
	}

	if best == nil {
		return nil, nil
	}
	return p.result(best, amount), nil
}

func (p *DefaultDiscountPolicy) couponMatchesEvent(coupon *models.Coupon, eventID uuid.UUID) bool {
	if coupon.EventID == nil {
		return true
	}
	return *coupon.EventID == eventID
}

func (p *DefaultDiscountPolicy) result(coupon *models.Coupon, amount float64) *DiscountResult {
	return &DiscountResult{
		CouponCode:    coupon.Code,
		Method:        string(coupon.Method),
		Value:         coupon.Value,
		InitialAmount: amount,
		ReducedAmount: coupon.Reduce(amount),
	}
}

// MarkCouponUsed bumps the coupon's usage counter once an order applying it is
// created.
func MarkCouponUsed(tx *gorm.DB, code string) error {
	return tx.Model(&models.Coupon{}).
		Where("code = ?", code).
		UpdateColumn("used_count", gorm.Expr("used_count + 1")).Error
}
