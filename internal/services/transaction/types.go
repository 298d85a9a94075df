package transaction

import (
	"walletcore/internal/models"
)

// CreateRequest describes one ledger entry to be written. ReferenceID is
// the caller-supplied idempotency key; when empty a random one is
// generated, which means retries of that call are NOT deduplicated.
type CreateRequest struct {
	WalletID               uint64
	Type                   models.TransactionType
	Amount                 models.Money
	Fee                    int64
	Status                 models.TransactionStatus
	ReferenceID            string
	IdempotencyKey         string
	ParentTransactionID    *uint64
	FeeRuleID              *uint64
	PaymentProcessor       string
	ProcessorTransactionID string
	Description            string
	Metadata               models.JSON
}
