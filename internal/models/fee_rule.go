package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FeeType is a closed enum of fee calculation strategies.
type FeeType string

const (
	FeeTypeFixed      FeeType = "FIXED"
	FeeTypePercentage FeeType = "PERCENTAGE"
	FeeTypeTiered     FeeType = "TIERED"
)

func (f FeeType) Valid() bool {
	switch f {
	case FeeTypeFixed, FeeTypePercentage, FeeTypeTiered:
		return true
	}
	return false
}

// FeeRule configures a fee for a transaction type in one currency.
// Rules are read-only at transaction time. A nil PaymentProcessor matches
// any processor; a processor-specific rule beats the nil rule, and ties
// go to the highest id (most recently created).
type FeeRule struct {
	ID                   uint64          `gorm:"primarykey" json:"id"`
	Name                 string          `gorm:"size:128;not null" json:"name"`
	TransactionType      TransactionType `gorm:"size:16;index;not null" json:"transaction_type"`
	FeeType              FeeType         `gorm:"size:16;not null" json:"fee_type"`
	FixedAmount          int64           `gorm:"not null;default:0" json:"fixed_amount"`
	Percentage           decimal.Decimal `gorm:"type:numeric(10,6);not null;default:0" json:"percentage"`
	MinFee               *int64          `json:"min_fee,omitempty"`
	MaxFee               *int64          `json:"max_fee,omitempty"`
	MinTransactionAmount *int64          `json:"min_transaction_amount,omitempty"`
	MaxTransactionAmount *int64          `json:"max_transaction_amount,omitempty"`
	Currency             string          `gorm:"size:8;index;not null" json:"currency"`
	PaymentProcessor     *string         `gorm:"size:64;index" json:"payment_processor,omitempty"`
	IsActive             bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}
