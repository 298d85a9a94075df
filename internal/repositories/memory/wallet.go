// Package memory provides in-memory repository implementations used by
// service tests. ExecuteInTransaction snapshots state and rolls it back
// on error so multi-step writes behave like their database counterparts.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"walletcore/internal/models"
	"walletcore/internal/repositories"
)

type WalletRepo struct {
	mu           sync.Mutex
	wallets      map[uint64]models.Wallet
	transactions []models.Transaction
	nextWalletID uint64
	nextTxID     uint64
}

func NewWalletRepository() *WalletRepo {
	return &WalletRepo{
		wallets:      make(map[uint64]models.Wallet),
		nextWalletID: 1,
		nextTxID:     1,
	}
}

var _ repositories.WalletRepository = (*WalletRepo)(nil)

func (r *WalletRepo) Create(wallet *models.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.wallets {
		if w.OwnerID == wallet.OwnerID && w.OwnerType == wallet.OwnerType && w.Currency == wallet.Currency {
			return repositories.ErrDuplicateKey
		}
	}
	wallet.ID = r.nextWalletID
	r.nextWalletID++
	wallet.CreatedAt = time.Now().UTC()
	wallet.UpdatedAt = wallet.CreatedAt
	r.wallets[wallet.ID] = *wallet
	return nil
}

func (r *WalletRepo) GetByID(id uint64) (*models.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[id]
	if !ok {
		return nil, repositories.ErrWalletNotFound
	}
	return &w, nil
}

func (r *WalletRepo) GetByIDForUpdate(id uint64) (*models.Wallet, error) {
	return r.GetByID(id)
}

func (r *WalletRepo) GetByOwner(ownerID uint64, ownerType, currency string) (*models.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.wallets {
		if w.OwnerID == ownerID && w.OwnerType == ownerType && w.Currency == currency {
			w := w
			return &w, nil
		}
	}
	return nil, repositories.ErrWalletNotFound
}

func (r *WalletRepo) Update(wallet *models.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.wallets[wallet.ID]; !ok {
		return repositories.ErrWalletNotFound
	}
	wallet.UpdatedAt = time.Now().UTC()
	r.wallets[wallet.ID] = *wallet
	return nil
}

func (r *WalletRepo) UpdateStatus(walletID uint64, status, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[walletID]
	if !ok {
		return repositories.ErrWalletNotFound
	}
	w.Status = status
	w.StatusReason = reason
	w.UpdatedAt = time.Now().UTC()
	r.wallets[walletID] = w
	return nil
}

func (r *WalletRepo) CreateTransaction(tx *models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.transactions {
		if existing.ReferenceID == tx.ReferenceID {
			return repositories.ErrDuplicateKey
		}
		if tx.IdempotencyKey != nil && existing.IdempotencyKey != nil &&
			*existing.IdempotencyKey == *tx.IdempotencyKey {
			return repositories.ErrDuplicateKey
		}
	}
	tx.ID = r.nextTxID
	r.nextTxID++
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	r.transactions = append(r.transactions, *tx)
	return nil
}

func (r *WalletRepo) GetTransactionByID(id uint64) (*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tx := range r.transactions {
		if tx.ID == id {
			tx := tx
			return &tx, nil
		}
	}
	return nil, repositories.ErrTransactionNotFound
}

func (r *WalletRepo) GetTransactionByReference(referenceID string) (*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tx := range r.transactions {
		if tx.ReferenceID == referenceID {
			tx := tx
			return &tx, nil
		}
	}
	return nil, repositories.ErrTransactionNotFound
}

func (r *WalletRepo) ReferenceExists(referenceID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tx := range r.transactions {
		if tx.ReferenceID == referenceID {
			return true, nil
		}
	}
	return false, nil
}

func (r *WalletRepo) IdempotencyKeyExists(key string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tx := range r.transactions {
		if tx.IdempotencyKey != nil && *tx.IdempotencyKey == key {
			return true, nil
		}
	}
	return false, nil
}

func (r *WalletRepo) SumCompletedNet(walletID uint64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum int64
	for _, tx := range r.transactions {
		if tx.WalletID == walletID && tx.Status == models.StatusCompleted {
			sum += tx.NetAmount
		}
	}
	return sum, nil
}

func (r *WalletRepo) SumCompletedRefunds(parentTransactionID uint64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum int64
	for _, tx := range r.transactions {
		if tx.ParentTransactionID != nil && *tx.ParentTransactionID == parentTransactionID &&
			tx.Type == models.TypeRefund && tx.Status == models.StatusCompleted {
			sum += tx.Amount
		}
	}
	return sum, nil
}

func (r *WalletRepo) ListTransactions(ctx context.Context, walletID uint64, f repositories.TransactionFilter) ([]models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.Transaction
	for _, tx := range r.transactions {
		if tx.WalletID != walletID {
			continue
		}
		if f.Type != "" && tx.Type != f.Type {
			continue
		}
		if f.Status != "" && tx.Status != f.Status {
			continue
		}
		if f.From != nil && tx.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && tx.CreatedAt.After(*f.To) {
			continue
		}
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	if f.Offset >= len(out) {
		return nil, nil
	}
	out = out[f.Offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *WalletRepo) ExecuteInTransaction(fn func(repositories.WalletRepository) error) error {
	r.mu.Lock()
	walletsSnapshot := make(map[uint64]models.Wallet, len(r.wallets))
	for id, w := range r.wallets {
		walletsSnapshot[id] = w
	}
	txSnapshot := make([]models.Transaction, len(r.transactions))
	copy(txSnapshot, r.transactions)
	nextWalletID, nextTxID := r.nextWalletID, r.nextTxID
	r.mu.Unlock()

	if err := fn(r); err != nil {
		r.mu.Lock()
		r.wallets = walletsSnapshot
		r.transactions = txSnapshot
		r.nextWalletID = nextWalletID
		r.nextTxID = nextTxID
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *WalletRepo) GetTotalBalance(currency string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum int64
	for _, w := range r.wallets {
		if w.Currency == currency {
			sum += w.Balance
		}
	}
	return sum, nil
}

func (r *WalletRepo) GetActiveWalletsCount() (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, w := range r.wallets {
		if w.Status == models.WalletStatusActive {
			n++
		}
	}
	return n, nil
}

func (r *WalletRepo) GetTransactionStats(start, end time.Time) (*repositories.TransactionStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := &repositories.TransactionStats{}
	var completed int64
	for _, tx := range r.transactions {
		if tx.CreatedAt.Before(start) || tx.CreatedAt.After(end) {
			continue
		}
		stats.TotalTransactions++
		stats.TotalVolume += tx.Amount
		if tx.Amount > stats.MaxAmount {
			stats.MaxAmount = tx.Amount
		}
		if stats.MinAmount == 0 || tx.Amount < stats.MinAmount {
			stats.MinAmount = tx.Amount
		}
		if tx.Status == models.StatusCompleted {
			completed++
		}
	}
	if stats.TotalTransactions > 0 {
		stats.AvgAmount = float64(stats.TotalVolume) / float64(stats.TotalTransactions)
		stats.SuccessRate = float64(completed) * 100 / float64(stats.TotalTransactions)
	}
	return stats, nil
}

// FeeRuleRepo serves fee rules from a fixed slice, applying the same
// matching semantics as the database implementation.
type FeeRuleRepo struct {
	Rules []models.FeeRule
}

var _ repositories.FeeRuleRepository = (*FeeRuleRepo)(nil)

func (r *FeeRuleRepo) FindMatching(ctx context.Context, txType models.TransactionType, currency, processor string, amount int64) (*models.FeeRule, error) {
	var best *models.FeeRule
	for i := range r.Rules {
		rule := &r.Rules[i]
		if !rule.IsActive || rule.TransactionType != txType || rule.Currency != currency {
			continue
		}
		if rule.MinTransactionAmount != nil && amount < *rule.MinTransactionAmount {
			continue
		}
		if rule.MaxTransactionAmount != nil && amount > *rule.MaxTransactionAmount {
			continue
		}
		if rule.PaymentProcessor != nil {
			if processor == "" || *rule.PaymentProcessor != processor {
				continue
			}
		}
		if best == nil || better(rule, best) {
			best = rule
		}
	}
	if best == nil {
		return nil, repositories.ErrFeeRuleNotFound
	}
	out := *best
	return &out, nil
}

// better prefers processor-specific rules, then higher ids.
func better(a, b *models.FeeRule) bool {
	if (a.PaymentProcessor != nil) != (b.PaymentProcessor != nil) {
		return a.PaymentProcessor != nil
	}
	return a.ID > b.ID
}
