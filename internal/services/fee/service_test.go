package fee

import (
	"context"
	"testing"

	"walletcore/internal/models"
	"walletcore/internal/repositories"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRuleRepo struct {
	mock.Mock
}

func (m *mockRuleRepo) FindMatching(ctx context.Context, txType models.TransactionType, currency, processor string, amount int64) (*models.FeeRule, error) {
	args := m.Called(ctx, txType, currency, processor, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FeeRule), args.Error(1)
}

func i64(v int64) *int64 { return &v }

func TestCalculate_NoMatchingRule(t *testing.T) {
	repo := new(mockRuleRepo)
	repo.On("FindMatching", mock.Anything, models.TypeCredit, "USD", "", int64(1000)).
		Return(nil, repositories.ErrFeeRuleNotFound)

	svc := NewService(repo)
	res, err := svc.Calculate(context.Background(), models.TypeCredit, models.NewMoney(1000, "USD"), "")
	require.NoError(t, err)

	assert.Equal(t, int64(0), res.Fee.Amount())
	assert.Equal(t, int64(1000), res.NetAmount.Amount())
	assert.Nil(t, res.RuleID)
	repo.AssertExpectations(t)
}

func TestCalculate_FeeTypes(t *testing.T) {
	tests := []struct {
		name    string
		rule    *models.FeeRule
		amount  int64
		wantFee int64
		wantNet int64
	}{
		{
			name: "fixed fee",
			rule: &models.FeeRule{
				ID:          1,
				FeeType:     models.FeeTypeFixed,
				FixedAmount: 100,
			},
			amount:  5000,
			wantFee: 100,
			wantNet: 4900,
		},
		{
			name: "percentage fee rounds half up",
			rule: &models.FeeRule{
				ID:         2,
				FeeType:    models.FeeTypePercentage,
				Percentage: decimal.RequireFromString("0.025"),
			},
			amount:  1000,
			wantFee: 25,
			wantNet: 975,
		},
		{
			name: "tiered combines fixed and percentage",
			rule: &models.FeeRule{
				ID:          3,
				FeeType:     models.FeeTypeTiered,
				FixedAmount: 50,
				Percentage:  decimal.RequireFromString("0.01"),
			},
			amount:  10000,
			wantFee: 150,
			wantNet: 9850,
		},
		{
			name: "min fee clamp",
			rule: &models.FeeRule{
				ID:         4,
				FeeType:    models.FeeTypePercentage,
				Percentage: decimal.RequireFromString("0.001"),
				MinFee:     i64(30),
			},
			amount:  1000,
			wantFee: 30,
			wantNet: 970,
		},
		{
			name: "max fee clamp",
			rule: &models.FeeRule{
				ID:         5,
				FeeType:    models.FeeTypePercentage,
				Percentage: decimal.RequireFromString("0.10"),
				MaxFee:     i64(200),
			},
			amount:  100000,
			wantFee: 200,
			wantNet: 99800,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mockRuleRepo)
			repo.On("FindMatching", mock.Anything, models.TypeDebit, "USD", "", tt.amount).
				Return(tt.rule, nil)

			svc := NewService(repo)
			res, err := svc.Calculate(context.Background(), models.TypeDebit, models.NewMoney(tt.amount, "USD"), "")
			require.NoError(t, err)

			assert.Equal(t, tt.wantFee, res.Fee.Amount())
			assert.Equal(t, tt.wantNet, res.NetAmount.Amount())
			require.NotNil(t, res.RuleID)
			assert.Equal(t, tt.rule.ID, *res.RuleID)
		})
	}
}

func TestCalculate_PassesProcessorThrough(t *testing.T) {
	repo := new(mockRuleRepo)
	repo.On("FindMatching", mock.Anything, models.TypeDebit, "USD", "stripe", int64(5000)).
		Return(&models.FeeRule{ID: 9, FeeType: models.FeeTypeFixed, FixedAmount: 40}, nil)

	svc := NewService(repo)
	res, err := svc.Calculate(context.Background(), models.TypeDebit, models.NewMoney(5000, "USD"), "stripe")
	require.NoError(t, err)
	assert.Equal(t, int64(40), res.Fee.Amount())
	repo.AssertExpectations(t)
}

func TestCalculate_RejectsUnknownFeeType(t *testing.T) {
	repo := new(mockRuleRepo)
	repo.On("FindMatching", mock.Anything, models.TypeDebit, "USD", "", int64(100)).
		Return(&models.FeeRule{ID: 7, FeeType: models.FeeType("SURPRISE")}, nil)

	svc := NewService(repo)
	_, err := svc.Calculate(context.Background(), models.TypeDebit, models.NewMoney(100, "USD"), "")
	assert.Error(t, err)
}

func TestCalculate_RejectsInvalidInput(t *testing.T) {
	svc := NewService(new(mockRuleRepo))

	_, err := svc.Calculate(context.Background(), models.TransactionType("NOPE"), models.NewMoney(100, "USD"), "")
	assert.Error(t, err)

	_, err = svc.Calculate(context.Background(), models.TypeDebit, models.NewMoney(-1, "USD"), "")
	assert.Error(t, err)
}
