// internal/services/withdrawal_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/eventra/eventra-backend/internal/config"
	"github.com/eventra/eventra-backend/internal/models"
	"github.com/eventra/eventra-backend/internal/utils"
)

var (
	ErrInsufficientBalance = errors.New("insufficient_balance")
	ErrBelowMinimum        = errors.New("below_minimum_withdrawal")
)

// WithdrawalService lets organizations pull accumulated sale proceeds. The
// requested amount is held immediately; the payout webhook resolves or
// returns it.
type WithdrawalService struct {
	db  *gorm.DB
	cfg config.PaymentConfig
}

func NewWithdrawalService(db *gorm.DB, cfg config.PaymentConfig) *WithdrawalService {
	return &WithdrawalService{db: db, cfg: cfg}
}

type WithdrawalRequest struct {
	OrganizationID uuid.UUID    `json:"-"`
	Amount         float64      `json:"amount" validate:"required,gt=0"`
	AccountInfo    models.JSONB `json:"account_info" validate:"required"`
}

func (s *WithdrawalService) Request(req *WithdrawalRequest) (*models.Withdrawal, *models.Transaction, error) {
	if req.Amount < s.cfg.MinimumWithdrawal {
		return nil, nil, ErrBelowMinimum
	}

	var withdrawal models.Withdrawal
	var transaction models.Transaction

	err := s.db.Transaction(func(tx *gorm.DB) error {
		// Conditional hold: the balance check and deduction are one
		// statement so concurrent requests cannot both pass.
		result := tx.Model(&models.Organization{}).
			Where("id = ? AND balance >= ?", req.OrganizationID, req.Amount).
			Update("balance", gorm.Expr("balance - ?", req.Amount))
		if result.Error != nil {
			return fmt.Errorf("failed to hold balance: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrInsufficientBalance
		}

		withdrawal = models.Withdrawal{
			OrganizationID: req.OrganizationID,
			Amount:         req.Amount,
			Status:         models.WithdrawalStatusRequested,
			AccountInfo:    req.AccountInfo,
		}
		if err := tx.Create(&withdrawal).Error; err != nil {
			return fmt.Errorf("failed to create withdrawal: %w", err)
		}

		ref, err := utils.GenerateRandomString(24)
		if err != nil {
			return fmt.Errorf("failed to generate payout reference: %w", err)
		}

		transaction = models.Transaction{
			Kind:            models.TransactionKindWithdraw,
			WithdrawalID:    &withdrawal.ID,
			Amount:          req.Amount,
			Status:          models.TransactionStatusInProgress,
			Gateway:         models.GatewayStripe,
			GatewayID:       "po_" + ref,
			StatusUpdatedAt: time.Now(),
		}
		if err := tx.Create(&transaction).Error; err != nil {
			return fmt.Errorf("failed to create payout transaction: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	logrus.WithFields(logrus.Fields{
		"withdrawal_id":   withdrawal.ID,
		"organization_id": req.OrganizationID,
		"amount":          req.Amount,
	}).Info("Withdrawal requested")

	return &withdrawal, &transaction, nil
}

// ListByOrganization returns an organization's withdrawals, newest first.
func (s *WithdrawalService) ListByOrganization(orgID uuid.UUID) ([]models.Withdrawal, error) {
	var withdrawals []models.Withdrawal
	err := s.db.Where("organization_id = ?", orgID).Order("created_at DESC").Find(&withdrawals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list withdrawals: %w", err)
	}
	return withdrawals, nil
}
