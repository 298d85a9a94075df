package models

import (
	"time"
)

// Wallet statuses
const (
	WalletStatusActive = "active"
	WalletStatusFrozen = "frozen"
)

// Wallet holds the cached balance for one owner in one currency.
// The balance column is denormalized: the ledger (completed transactions)
// is the source of truth, and reconciliation corrects any drift.
//
// Owners are polymorphic: OwnerType is an open-ended tag ("reseller",
// "client", "organization", ...) so no per-kind foreign key exists.
// (owner_id, owner_type, currency) is unique; an owner holding several
// currencies owns several wallet rows.
type Wallet struct {
	ID                uint64     `gorm:"primarykey" json:"id"`
	OwnerID           uint64     `gorm:"not null;uniqueIndex:idx_wallet_owner_currency" json:"owner_id"`
	OwnerType         string     `gorm:"size:64;not null;uniqueIndex:idx_wallet_owner_currency" json:"owner_type"`
	Currency          string     `gorm:"size:8;not null;default:'USD';uniqueIndex:idx_wallet_owner_currency" json:"currency"`
	Balance           int64      `gorm:"not null;default:0" json:"balance"`
	Status            string     `gorm:"size:16;not null;default:'active'" json:"status"`
	StatusReason      string     `gorm:"size:255" json:"status_reason,omitempty"`
	LastTransactionAt *time.Time `json:"last_transaction_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// BalanceMoney returns the cached balance as a Money value.
func (w *Wallet) BalanceMoney() Money {
	return NewMoney(w.Balance, w.Currency)
}

func (w *Wallet) IsActive() bool {
	return w.Status == WalletStatusActive
}
