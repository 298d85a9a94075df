package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"walletcore/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const uniqueViolationCode = "23505"

type walletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) WalletRepository {
	return &walletRepository{db: db}
}

// isUniqueViolation detects a storage-level unique constraint failure,
// which is the real idempotency guarantee when two identical requests
// race past the fast-path existence checks.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolationCode
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func (r *walletRepository) Create(wallet *models.Wallet) error {
	if err := r.db.Create(wallet).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	return nil
}

func (r *walletRepository) GetByID(id uint64) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.First(&wallet, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &wallet, nil
}

func (r *walletRepository) GetByIDForUpdate(id uint64) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&wallet, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to lock wallet: %w", err)
	}
	return &wallet, nil
}

func (r *walletRepository) GetByOwner(ownerID uint64, ownerType, currency string) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.
		Where("owner_id = ? AND owner_type = ? AND currency = ?", ownerID, ownerType, currency).
		First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet by owner: %w", err)
	}
	return &wallet, nil
}

func (r *walletRepository) Update(wallet *models.Wallet) error {
	if err := r.db.Save(wallet).Error; err != nil {
		return fmt.Errorf("failed to update wallet: %w", err)
	}
	return nil
}

func (r *walletRepository) UpdateStatus(walletID uint64, status, reason string) error {
	result := r.db.Model(&models.Wallet{}).
		Where("id = ?", walletID).
		Updates(map[string]interface{}{"status": status, "status_reason": reason})
	if result.Error != nil {
		return fmt.Errorf("failed to update wallet status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrWalletNotFound
	}
	return nil
}

func (r *walletRepository) CreateTransaction(tx *models.Transaction) error {
	if err := r.db.Create(tx).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *walletRepository) GetTransactionByID(id uint64) (*models.Transaction, error) {
	var tx models.Transaction
	if err := r.db.First(&tx, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &tx, nil
}

func (r *walletRepository) GetTransactionByReference(referenceID string) (*models.Transaction, error) {
	var tx models.Transaction
	if err := r.db.Where("reference_id = ?", referenceID).First(&tx).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction by reference: %w", err)
	}
	return &tx, nil
}

func (r *walletRepository) ReferenceExists(referenceID string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Transaction{}).
		Where("reference_id = ?", referenceID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check reference: %w", err)
	}
	return count > 0, nil
}

func (r *walletRepository) IdempotencyKeyExists(key string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Transaction{}).
		Where("idempotency_key = ?", key).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check idempotency key: %w", err)
	}
	return count > 0, nil
}

func (r *walletRepository) SumCompletedNet(walletID uint64) (int64, error) {
	var total int64
	err := r.db.Model(&models.Transaction{}).
		Where("wallet_id = ? AND status = ?", walletID, models.StatusCompleted).
		Select("COALESCE(SUM(net_amount), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum ledger for wallet %d: %w", walletID, err)
	}
	return total, nil
}

func (r *walletRepository) SumCompletedRefunds(parentTransactionID uint64) (int64, error) {
	var total int64
	err := r.db.Model(&models.Transaction{}).
		Where("parent_transaction_id = ? AND type = ? AND status = ?",
			parentTransactionID, models.TypeRefund, models.StatusCompleted).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum refunds for transaction %d: %w", parentTransactionID, err)
	}
	return total, nil
}

func (r *walletRepository) ListTransactions(ctx context.Context, walletID uint64, f TransactionFilter) ([]models.Transaction, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	q := r.db.WithContext(ctx).Where("wallet_id = ?", walletID)
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at <= ?", *f.To)
	}

	var txs []models.Transaction
	err := q.Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(f.Offset).
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, nil
}

func (r *walletRepository) ExecuteInTransaction(fn func(WalletRepository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&walletRepository{db: tx})
	})
}

func (r *walletRepository) GetTotalBalance(currency string) (int64, error) {
	var total int64
	err := r.db.Model(&models.Wallet{}).
		Where("currency = ?", currency).
		Select("COALESCE(SUM(balance), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to get total balance: %w", err)
	}
	return total, nil
}

func (r *walletRepository) GetActiveWalletsCount() (int64, error) {
	var count int64
	err := r.db.Model(&models.Wallet{}).
		Where("status = ?", models.WalletStatusActive).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count active wallets: %w", err)
	}
	return count, nil
}

func (r *walletRepository) GetTransactionStats(start, end time.Time) (*TransactionStats, error) {
	var stats TransactionStats
	err := r.db.Model(&models.Transaction{}).
		Where("created_at BETWEEN ? AND ?", start, end).
		Select(`
			COUNT(*) as total_transactions,
			COALESCE(SUM(amount), 0) as total_volume,
			COALESCE(AVG(amount), 0) as avg_amount,
			COALESCE(MAX(amount), 0) as max_amount,
			COALESCE(MIN(amount), 0) as min_amount,
			COALESCE(SUM(CASE WHEN status = 'COMPLETED' THEN 1 ELSE 0 END) * 100.0 / NULLIF(COUNT(*), 0), 0) as success_rate
		`).
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction stats: %w", err)
	}
	return &stats, nil
}
