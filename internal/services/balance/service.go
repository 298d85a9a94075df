// Package balance owns the cached-balance read path, wallet row locking
// and reconciliation of the cached balance against the transaction ledger.
package balance

import (
	"context"
	"fmt"

	"walletcore/internal/models"
	"walletcore/internal/repositories"

	"github.com/sirupsen/logrus"
)

// Service reads and reconciles wallet balances. The cached balance on the
// wallet row is persisted state, not an in-memory cache; the ledger sum of
// completed entries is the source of truth.
type Service interface {
	GetBalance(ctx context.Context, walletID uint64) (models.Money, error)
	CalculateFromLedger(ctx context.Context, walletID uint64) (models.Money, error)
	// LockWallet acquires the exclusive row lock for a wallet. It must be
	// called with a transaction-scoped repository; every mutating ledger
	// operation serializes on this lock.
	LockWallet(repo repositories.WalletRepository, walletID uint64) (*models.Wallet, error)
	// Reconcile compares cached vs ledger-derived balance. Returns true
	// when consistent; on drift it logs the discrepancy, overwrites the
	// cached value from the ledger and returns false.
	Reconcile(ctx context.Context, walletID uint64) (bool, error)
}

type service struct {
	repo repositories.WalletRepository
	log  *logrus.Logger
}

func NewService(repo repositories.WalletRepository, log *logrus.Logger) Service {
	if repo == nil {
		panic("wallet repository is required")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &service{repo: repo, log: log}
}

func (s *service) GetBalance(ctx context.Context, walletID uint64) (models.Money, error) {
	wallet, err := s.repo.GetByID(walletID)
	if err != nil {
		return models.Money{}, err
	}
	return wallet.BalanceMoney(), nil
}

func (s *service) CalculateFromLedger(ctx context.Context, walletID uint64) (models.Money, error) {
	wallet, err := s.repo.GetByID(walletID)
	if err != nil {
		return models.Money{}, err
	}
	sum, err := s.repo.SumCompletedNet(walletID)
	if err != nil {
		return models.Money{}, err
	}
	return models.NewMoney(sum, wallet.Currency), nil
}

func (s *service) LockWallet(repo repositories.WalletRepository, walletID uint64) (*models.Wallet, error) {
	return repo.GetByIDForUpdate(walletID)
}

func (s *service) Reconcile(ctx context.Context, walletID uint64) (bool, error) {
	consistent := true
	err := s.repo.ExecuteInTransaction(func(tx repositories.WalletRepository) error {
		wallet, err := s.LockWallet(tx, walletID)
		if err != nil {
			return err
		}

		ledger, err := tx.SumCompletedNet(walletID)
		if err != nil {
			return err
		}
		if wallet.Balance == ledger {
			return nil
		}

		consistent = false
		s.log.WithFields(logrus.Fields{
			"wallet_id": walletID,
			"cached":    wallet.Balance,
			"ledger":    ledger,
			"delta":     wallet.Balance - ledger,
		}).Warn("cached balance drifted from ledger, correcting")

		wallet.Balance = ledger
		if err := tx.Update(wallet); err != nil {
			return fmt.Errorf("failed to heal wallet %d: %w", walletID, err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return consistent, nil
}
