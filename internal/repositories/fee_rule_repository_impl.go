package repositories

import (
	"context"
	"errors"
	"fmt"

	"walletcore/internal/models"

	"gorm.io/gorm"
)

type feeRuleRepository struct {
	db *gorm.DB
}

func NewFeeRuleRepository(db *gorm.DB) FeeRuleRepository {
	return &feeRuleRepository{db: db}
}

func (r *feeRuleRepository) FindMatching(ctx context.Context, txType models.TransactionType, currency, processor string, amount int64) (*models.FeeRule, error) {
	q := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("transaction_type = ?", txType).
		Where("currency = ?", currency).
		Where("min_transaction_amount IS NULL OR min_transaction_amount <= ?", amount).
		Where("max_transaction_amount IS NULL OR max_transaction_amount >= ?", amount)

	if processor != "" {
		q = q.Where("payment_processor = ? OR payment_processor IS NULL", processor)
	} else {
		q = q.Where("payment_processor IS NULL")
	}

	// Processor-specific rules sort before the catch-all; newest rule wins
	// within each group.
	var rule models.FeeRule
	err := q.Order("payment_processor IS NULL, id DESC").Take(&rule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFeeRuleNotFound
		}
		return nil, fmt.Errorf("failed to query fee rules: %w", err)
	}
	return &rule, nil
}
