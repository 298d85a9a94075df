package models

import (
	"time"
)

// TransactionType is a closed enum; every switch over it must handle all
// values and error on anything else so new types cannot fall through.
type TransactionType string

const (
	TypeCredit      TransactionType = "CREDIT"
	TypeDebit       TransactionType = "DEBIT"
	TypeTransferIn  TransactionType = "TRANSFER_IN"
	TypeTransferOut TransactionType = "TRANSFER_OUT"
	TypeRefund      TransactionType = "REFUND"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TypeCredit, TypeDebit, TypeTransferIn, TypeTransferOut, TypeRefund:
		return true
	}
	return false
}

// IsOutgoing reports whether the type reduces the wallet balance and is
// therefore subject to the sufficient-funds check.
func (t TransactionType) IsOutgoing() bool {
	return t == TypeDebit || t == TypeTransferOut
}

// TransactionStatus values. COMPLETED and FAILED are terminal: corrections
// happen through new REFUND entries, never by editing history.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "PENDING"
	StatusCompleted TransactionStatus = "COMPLETED"
	StatusFailed    TransactionStatus = "FAILED"
)

func (s TransactionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Transaction is one immutable ledger entry. Amount is the gross amount in
// smallest units (always >= 0); Fee may be negative only on a REFUND that
// reverses a prior fee; NetAmount is the signed delta applied to the wallet
// balance. BalanceBefore/BalanceAfter snapshot the cached balance around the
// entry so history is auditable without replaying the ledger.
type Transaction struct {
	ID                     uint64            `gorm:"primarykey" json:"id"`
	WalletID               uint64            `gorm:"index;not null" json:"wallet_id"`
	Type                   TransactionType   `gorm:"size:16;index;not null" json:"type"`
	Amount                 int64             `gorm:"not null" json:"amount"`
	Fee                    int64             `gorm:"not null;default:0" json:"fee"`
	NetAmount              int64             `gorm:"not null" json:"net_amount"`
	BalanceBefore          int64             `gorm:"not null" json:"balance_before"`
	BalanceAfter           int64             `gorm:"not null" json:"balance_after"`
	Currency               string            `gorm:"size:8;not null" json:"currency"`
	Status                 TransactionStatus `gorm:"size:16;index;not null;default:'PENDING'" json:"status"`
	ReferenceID            string            `gorm:"size:128;uniqueIndex;not null" json:"reference_id"`
	IdempotencyKey         *string           `gorm:"size:128;uniqueIndex" json:"idempotency_key,omitempty"`
	ParentTransactionID    *uint64           `gorm:"index" json:"parent_transaction_id,omitempty"`
	FeeRuleID              *uint64           `json:"fee_rule_id,omitempty"`
	PaymentProcessor       string            `gorm:"size:64" json:"payment_processor,omitempty"`
	ProcessorTransactionID string            `gorm:"size:128" json:"processor_transaction_id,omitempty"`
	Description            string            `gorm:"size:255" json:"description,omitempty"`
	Metadata               JSON              `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt              time.Time         `gorm:"index" json:"created_at"`
	CompletedAt            *time.Time        `json:"completed_at,omitempty"`
}

func (t *Transaction) IsCompleted() bool {
	return t.Status == StatusCompleted
}

// AmountMoney returns the gross amount as Money.
func (t *Transaction) AmountMoney() Money {
	return NewMoney(t.Amount, t.Currency)
}

// NetMoney returns the signed balance delta as Money.
func (t *Transaction) NetMoney() Money {
	return NewMoney(t.NetAmount, t.Currency)
}
