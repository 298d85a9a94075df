// Package transaction is the single choke point for ledger writes. Every
// money movement becomes one immutable transaction row created atomically
// with the wallet balance update, under the wallet's exclusive row lock.
package transaction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"walletcore/internal/models"
	"walletcore/internal/repositories"
	"walletcore/internal/repositories/cache"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Service creates and reads ledger entries.
type Service interface {
	// Create runs the full write path in one database transaction:
	// duplicate pre-check, wallet row lock, net amount computation,
	// sufficient-funds guard, snapshot insert and balance update.
	Create(ctx context.Context, req CreateRequest) (*models.Transaction, error)
	// CreateInTx is Create for callers that already hold a unit of work
	// (e.g. the two legs of a transfer). The repository must be
	// transaction-scoped and the wallet rows already lockable in a
	// deadlock-free order.
	CreateInTx(ctx context.Context, repo repositories.WalletRepository, req CreateRequest) (*models.Transaction, error)
	// EnsureNewReferences fails fast when any reference id is already
	// used, before the caller takes any locks. A pass proves nothing
	// under concurrency; the unique constraint stays authoritative.
	EnsureNewReferences(ctx context.Context, referenceIDs ...string) error
	GetByReference(ctx context.Context, referenceID string) (*models.Transaction, error)
	ListByWallet(ctx context.Context, walletID uint64, f repositories.TransactionFilter) ([]models.Transaction, error)
}

type service struct {
	repo  repositories.WalletRepository
	cache *cache.Service
	log   *logrus.Logger
}

// NewService creates a new transaction service. The cache is optional.
func NewService(repo repositories.WalletRepository, cacheSvc *cache.Service, log *logrus.Logger) Service {
	if repo == nil {
		panic("wallet repository is required")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &service{repo: repo, cache: cacheSvc, log: log}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*models.Transaction, error) {
	if err := s.normalize(&req); err != nil {
		return nil, err
	}
	if err := s.failFastOnDuplicate(ctx, req); err != nil {
		return nil, err
	}

	var created *models.Transaction
	err := s.repo.ExecuteInTransaction(func(tx repositories.WalletRepository) error {
		var err error
		created, err = s.create(tx, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, created)
	return created, nil
}

func (s *service) CreateInTx(ctx context.Context, repo repositories.WalletRepository, req CreateRequest) (*models.Transaction, error) {
	if err := s.normalize(&req); err != nil {
		return nil, err
	}
	if err := s.failFastOnDuplicate(ctx, req); err != nil {
		return nil, err
	}
	return s.create(repo, req)
}

func (s *service) EnsureNewReferences(ctx context.Context, referenceIDs ...string) error {
	for _, ref := range referenceIDs {
		if err := s.failFastOnDuplicate(ctx, CreateRequest{ReferenceID: ref}); err != nil {
			return err
		}
	}
	return nil
}

// normalize validates the request and fills defaults.
func (s *service) normalize(req *CreateRequest) error {
	if !req.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, req.Type)
	}
	if req.Amount.IsNegative() {
		return fmt.Errorf("%w: gross amount must be >= 0", ErrInvalidAmount)
	}
	if req.Fee < 0 && req.Type != models.TypeRefund {
		return ErrInvalidFee
	}
	if req.Status == "" {
		req.Status = models.StatusCompleted
	}
	if !req.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, req.Status)
	}
	if req.ReferenceID == "" {
		req.ReferenceID = uuid.NewString()
	}
	return nil
}

// failFastOnDuplicate rejects known reference/idempotency collisions before
// any lock is taken. The database unique constraints remain the guarantee
// for races that slip past these checks.
func (s *service) failFastOnDuplicate(ctx context.Context, req CreateRequest) error {
	if s.cache != nil {
		if seen, err := s.cache.ReferenceSeen(ctx, req.ReferenceID); err == nil && seen {
			return ErrDuplicateTransaction
		}
	}
	exists, err := s.repo.ReferenceExists(req.ReferenceID)
	if err != nil {
		return err
	}
	if exists {
		return ErrDuplicateTransaction
	}
	if req.IdempotencyKey != "" {
		exists, err = s.repo.IdempotencyKeyExists(req.IdempotencyKey)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateTransaction
		}
	}
	return nil
}

// create performs steps lock → net amount → funds check → insert →
// balance apply on a transaction-scoped repository.
func (s *service) create(tx repositories.WalletRepository, req CreateRequest) (*models.Transaction, error) {
	wallet, err := tx.GetByIDForUpdate(req.WalletID)
	if err != nil {
		return nil, err
	}

	net, err := netAmount(req.Type, req.Amount.Amount(), req.Fee)
	if err != nil {
		return nil, err
	}

	if req.Type.IsOutgoing() && wallet.Balance < -net {
		return nil, &InsufficientFundsError{
			WalletID:  wallet.ID,
			Required:  -net,
			Available: wallet.Balance,
		}
	}

	entry := &models.Transaction{
		WalletID:               wallet.ID,
		Type:                   req.Type,
		Amount:                 req.Amount.Amount(),
		Fee:                    req.Fee,
		NetAmount:              net,
		BalanceBefore:          wallet.Balance,
		BalanceAfter:           wallet.Balance,
		Currency:               wallet.Currency,
		Status:                 req.Status,
		ReferenceID:            req.ReferenceID,
		ParentTransactionID:    req.ParentTransactionID,
		FeeRuleID:              req.FeeRuleID,
		PaymentProcessor:       req.PaymentProcessor,
		ProcessorTransactionID: req.ProcessorTransactionID,
		Description:            req.Description,
		Metadata:               req.Metadata,
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		entry.IdempotencyKey = &key
	}

	now := time.Now().UTC()
	if req.Status == models.StatusCompleted {
		entry.BalanceAfter = wallet.Balance + net
		entry.CompletedAt = &now
	}

	if err := tx.CreateTransaction(entry); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrDuplicateTransaction
		}
		return nil, err
	}

	// Only completed entries move money; pending/failed entries are
	// recorded without touching the cached balance so it stays equal to
	// the sum of completed net amounts.
	if req.Status == models.StatusCompleted {
		wallet.Balance += net
		wallet.LastTransactionAt = &now
		if err := tx.Update(wallet); err != nil {
			return nil, err
		}
	}

	return entry, nil
}

func (s *service) afterCommit(ctx context.Context, tx *models.Transaction) {
	if s.cache == nil || tx == nil {
		return
	}
	if err := s.cache.MarkReference(ctx, tx.ReferenceID); err != nil {
		s.log.WithError(err).Debug("failed to mark reference in cache")
	}
	if err := s.cache.SetTransaction(ctx, tx); err != nil {
		s.log.WithError(err).Debug("failed to cache transaction")
	}
}

func (s *service) GetByReference(ctx context.Context, referenceID string) (*models.Transaction, error) {
	if s.cache != nil {
		if tx, err := s.cache.GetTransaction(ctx, referenceID); err == nil && tx != nil {
			return tx, nil
		}
	}

	tx, err := s.repo.GetTransactionByReference(referenceID)
	if err != nil {
		if errors.Is(err, repositories.ErrTransactionNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}

	if s.cache != nil && tx.Status != models.StatusPending {
		if err := s.cache.SetTransaction(ctx, tx); err != nil {
			s.log.WithError(err).Debug("failed to cache transaction")
		}
	}
	return tx, nil
}

func (s *service) ListByWallet(ctx context.Context, walletID uint64, f repositories.TransactionFilter) ([]models.Transaction, error) {
	return s.repo.ListTransactions(ctx, walletID, f)
}

// netAmount computes the signed balance delta for an entry. The switch is
// exhaustive: a type that is not handled here is rejected, never defaulted.
func netAmount(t models.TransactionType, amount, fee int64) (int64, error) {
	switch t {
	case models.TypeCredit, models.TypeTransferIn:
		return amount - fee, nil
	case models.TypeDebit, models.TypeTransferOut:
		return -(amount + fee), nil
	case models.TypeRefund:
		// A refund credits the wallet; a negative fee here reverses the
		// fee charged on the original entry.
		return amount - fee, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidType, t)
	}
}
