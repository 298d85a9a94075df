// Package fee evaluates configured fee rules against a transaction type,
// gross amount and optional payment-processor tag. The computation is
// read-only: rules are re-queried per calculation and nothing is persisted.
package fee

import (
	"context"
	"errors"
	"fmt"

	"walletcore/internal/models"
	"walletcore/internal/repositories"
)

// Result is the outcome of a fee calculation. RuleID is nil when no rule
// matched and the fee is zero.
type Result struct {
	Fee       models.Money
	NetAmount models.Money
	RuleID    *uint64
}

// Service calculates fees for ledger operations.
type Service interface {
	Calculate(ctx context.Context, txType models.TransactionType, amount models.Money, processor string) (Result, error)
}

type service struct {
	rules repositories.FeeRuleRepository
}

func NewService(rules repositories.FeeRuleRepository) Service {
	if rules == nil {
		panic("fee rule repository is required")
	}
	return &service{rules: rules}
}

func (s *service) Calculate(ctx context.Context, txType models.TransactionType, amount models.Money, processor string) (Result, error) {
	if !txType.Valid() {
		return Result{}, fmt.Errorf("unknown transaction type %q", txType)
	}
	if amount.IsNegative() {
		return Result{}, fmt.Errorf("fee calculation requires a non-negative amount, got %s", amount)
	}

	rule, err := s.rules.FindMatching(ctx, txType, amount.Currency(), processor, amount.Amount())
	if err != nil {
		if errors.Is(err, repositories.ErrFeeRuleNotFound) {
			return Result{
				Fee:       models.ZeroMoney(amount.Currency()),
				NetAmount: amount,
			}, nil
		}
		return Result{}, fmt.Errorf("fee rule lookup failed: %w", err)
	}

	feeAmount, err := rawFee(rule, amount)
	if err != nil {
		return Result{}, err
	}
	feeAmount = clamp(feeAmount, rule.MinFee, rule.MaxFee)

	fee := models.NewMoney(feeAmount, amount.Currency())
	net, err := amount.Sub(fee)
	if err != nil {
		return Result{}, err
	}

	ruleID := rule.ID
	return Result{Fee: fee, NetAmount: net, RuleID: &ruleID}, nil
}

// rawFee computes the unclamped fee for a rule; the switch is exhaustive
// over FeeType so an unknown strategy is an error, not a zero fee.
func rawFee(rule *models.FeeRule, amount models.Money) (int64, error) {
	switch rule.FeeType {
	case models.FeeTypeFixed:
		return rule.FixedAmount, nil
	case models.FeeTypePercentage:
		return amount.MulFraction(rule.Percentage).Amount(), nil
	case models.FeeTypeTiered:
		return rule.FixedAmount + amount.MulFraction(rule.Percentage).Amount(), nil
	default:
		return 0, fmt.Errorf("fee rule %d has unknown fee type %q", rule.ID, rule.FeeType)
	}
}

func clamp(fee int64, min, max *int64) int64 {
	if min != nil && fee < *min {
		fee = *min
	}
	if max != nil && fee > *max {
		fee = *max
	}
	return fee
}
