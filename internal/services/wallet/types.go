package wallet

import (
	"walletcore/internal/models"
	"walletcore/internal/repositories"
)

// TxOptions carries the optional knobs of a mutating wallet operation.
// Fee and CalculateFee are mutually exclusive: an explicit fee wins, and
// CalculateFee asks the fee rule engine to evaluate configured rules.
type TxOptions struct {
	Fee                    *int64
	CalculateFee           bool
	ReferenceID            string
	IdempotencyKey         string
	PaymentProcessor       string
	ProcessorTransactionID string
	Description            string
	Metadata               models.JSON
}

// TransferResult holds both legs of a completed transfer. The credit leg
// links to the debit leg through ParentTransactionID.
type TransferResult struct {
	Debit  *models.Transaction `json:"debit"`
	Credit *models.Transaction `json:"credit"`
}

// Stats is a reporting snapshot: ledger activity over a period plus the
// current wallet totals for one currency.
type Stats struct {
	Transactions  repositories.TransactionStats `json:"transactions"`
	TotalBalance  int64                         `json:"total_balance"`
	ActiveWallets int64                         `json:"active_wallets"`
	Currency      string                        `json:"currency"`
}
