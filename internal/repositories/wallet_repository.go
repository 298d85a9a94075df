package repositories

import (
	"context"
	"errors"
	"time"

	"walletcore/internal/models"
)

var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrDuplicateKey        = errors.New("duplicate key")
	ErrFeeRuleNotFound     = errors.New("fee rule not found")
)

// TransactionFilter narrows ledger history queries. Zero values mean
// "no filter"; Limit defaults to 50 and is capped at 500.
type TransactionFilter struct {
	Type   models.TransactionType
	Status models.TransactionStatus
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// TransactionStats aggregates ledger activity over a period.
type TransactionStats struct {
	TotalTransactions int64
	TotalVolume       int64
	AvgAmount         float64
	MaxAmount         int64
	MinAmount         int64
	SuccessRate       float64
}

// WalletRepository defines all wallet and ledger persistence operations.
// Mutations are expected to run on a repository obtained inside
// ExecuteInTransaction so that lock + insert + balance update commit or
// roll back as one unit.
type WalletRepository interface {
	// Wallet rows
	Create(wallet *models.Wallet) error
	GetByID(id uint64) (*models.Wallet, error)
	// GetByIDForUpdate acquires SELECT ... FOR UPDATE on the wallet row.
	// Only valid on a transaction-scoped repository.
	GetByIDForUpdate(id uint64) (*models.Wallet, error)
	GetByOwner(ownerID uint64, ownerType, currency string) (*models.Wallet, error)
	Update(wallet *models.Wallet) error
	UpdateStatus(walletID uint64, status, reason string) error

	// Ledger entries (insert-only; completed entries are never mutated)
	CreateTransaction(tx *models.Transaction) error
	GetTransactionByID(id uint64) (*models.Transaction, error)
	GetTransactionByReference(referenceID string) (*models.Transaction, error)
	ReferenceExists(referenceID string) (bool, error)
	IdempotencyKeyExists(key string) (bool, error)
	SumCompletedNet(walletID uint64) (int64, error)
	SumCompletedRefunds(parentTransactionID uint64) (int64, error)
	ListTransactions(ctx context.Context, walletID uint64, f TransactionFilter) ([]models.Transaction, error)

	// Unit of work
	ExecuteInTransaction(fn func(WalletRepository) error) error

	// Analytics and reporting
	GetTotalBalance(currency string) (int64, error)
	GetActiveWalletsCount() (int64, error)
	GetTransactionStats(start, end time.Time) (*TransactionStats, error)
}

// FeeRuleRepository is the read-only fee rule source. Rules are re-queried
// per calculation; nothing is cached so rule edits take effect immediately.
type FeeRuleRepository interface {
	// FindMatching returns the best active rule for the given transaction
	// type, currency, processor tag and gross amount, or ErrFeeRuleNotFound.
	// Processor-specific rules win over null-processor rules; ties go to
	// the highest id.
	FindMatching(ctx context.Context, txType models.TransactionType, currency, processor string, amount int64) (*models.FeeRule, error)
}
