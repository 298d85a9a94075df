package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"walletcore/internal/models"
	"walletcore/internal/repositories"
	"walletcore/internal/services/balance"
	"walletcore/internal/services/fee"
	"walletcore/internal/services/transaction"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Service is the public facade of the ledger. It validates currency and
// amounts, resolves fees and delegates ledger writes to the transaction
// manager, which serializes per-wallet mutations under a row lock.
type Service interface {
	Create(ctx context.Context, ownerID uint64, ownerType, currency string) (*models.Wallet, error)
	FindWallet(ctx context.Context, walletID uint64) (*models.Wallet, error)
	// FindWalletByOwner returns (nil, nil) when no wallet exists for the
	// owner/currency pair.
	FindWalletByOwner(ctx context.Context, ownerID uint64, ownerType, currency string) (*models.Wallet, error)
	FindOrCreate(ctx context.Context, ownerID uint64, ownerType, currency string) (*models.Wallet, error)

	Credit(ctx context.Context, walletID uint64, amount models.Money, opts TxOptions) (*models.Transaction, error)
	Debit(ctx context.Context, walletID uint64, amount models.Money, opts TxOptions) (*models.Transaction, error)
	Transfer(ctx context.Context, fromWalletID, toWalletID uint64, amount models.Money, opts TxOptions) (*TransferResult, error)
	Refund(ctx context.Context, referenceID string, amount *models.Money, opts TxOptions) (*models.Transaction, error)

	GetBalance(ctx context.Context, walletID uint64) (models.Money, error)
	Reconcile(ctx context.Context, walletID uint64) (bool, error)
	GetTransactions(ctx context.Context, walletID uint64, f repositories.TransactionFilter) ([]models.Transaction, error)

	Freeze(ctx context.Context, walletID uint64, reason string) error
	Unfreeze(ctx context.Context, walletID uint64) error

	Stats(ctx context.Context, start, end time.Time, currency string) (*Stats, error)
}

type service struct {
	repo         repositories.WalletRepository
	balances     balance.Service
	fees         fee.Service
	transactions transaction.Service
	metrics      MetricsCollector
	log          *logrus.Logger
}

// NewService creates the wallet facade. Metrics is optional.
func NewService(
	repo repositories.WalletRepository,
	balances balance.Service,
	fees fee.Service,
	transactions transaction.Service,
	metrics MetricsCollector,
	log *logrus.Logger,
) Service {
	if repo == nil {
		panic("wallet repository is required")
	}
	if balances == nil {
		panic("balance service is required")
	}
	if fees == nil {
		panic("fee service is required")
	}
	if transactions == nil {
		panic("transaction service is required")
	}
	if metrics == nil {
		metrics = &NoopMetricsCollector{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &service{
		repo:         repo,
		balances:     balances,
		fees:         fees,
		transactions: transactions,
		metrics:      metrics,
		log:          log,
	}
}

func (s *service) Create(ctx context.Context, ownerID uint64, ownerType, currency string) (*models.Wallet, error) {
	if ownerID == 0 || ownerType == "" {
		return nil, ErrInvalidOwner
	}
	if len(currency) != 3 {
		return nil, ErrUnsupportedCurrency
	}

	wallet := &models.Wallet{
		OwnerID:   ownerID,
		OwnerType: ownerType,
		Currency:  currency,
		Balance:   0,
		Status:    models.WalletStatusActive,
	}
	if err := s.repo.Create(wallet); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrWalletExists
		}
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}
	return wallet, nil
}

func (s *service) FindWallet(ctx context.Context, walletID uint64) (*models.Wallet, error) {
	return s.repo.GetByID(walletID)
}

func (s *service) FindWalletByOwner(ctx context.Context, ownerID uint64, ownerType, currency string) (*models.Wallet, error) {
	wallet, err := s.repo.GetByOwner(ownerID, ownerType, currency)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return wallet, nil
}

func (s *service) FindOrCreate(ctx context.Context, ownerID uint64, ownerType, currency string) (*models.Wallet, error) {
	wallet, err := s.FindWalletByOwner(ctx, ownerID, ownerType, currency)
	if err != nil || wallet != nil {
		return wallet, err
	}
	wallet, err = s.Create(ctx, ownerID, ownerType, currency)
	if errors.Is(err, ErrWalletExists) {
		// Lost a creation race; the winner's row is what we want.
		return s.repo.GetByOwner(ownerID, ownerType, currency)
	}
	return wallet, err
}

func (s *service) Credit(ctx context.Context, walletID uint64, amount models.Money, opts TxOptions) (*models.Transaction, error) {
	return s.apply(ctx, "credit", models.TypeCredit, walletID, amount, opts)
}

func (s *service) Debit(ctx context.Context, walletID uint64, amount models.Money, opts TxOptions) (*models.Transaction, error) {
	return s.apply(ctx, "debit", models.TypeDebit, walletID, amount, opts)
}

// apply is the shared single-wallet mutation path for credits and debits.
func (s *service) apply(ctx context.Context, op string, txType models.TransactionType, walletID uint64, amount models.Money, opts TxOptions) (*models.Transaction, error) {
	start := time.Now()
	defer func() { s.metrics.RecordOperationDuration(op, time.Since(start)) }()

	wallet, err := s.guardMutable(walletID, amount)
	if err != nil {
		s.metrics.RecordError(op, errType(err))
		return nil, err
	}

	feeAmount, ruleID, err := s.resolveFee(ctx, txType, amount, opts)
	if err != nil {
		s.metrics.RecordError(op, errType(err))
		return nil, err
	}

	created, err := s.transactions.Create(ctx, transaction.CreateRequest{
		WalletID:               wallet.ID,
		Type:                   txType,
		Amount:                 amount,
		Fee:                    feeAmount,
		ReferenceID:            opts.ReferenceID,
		IdempotencyKey:         opts.IdempotencyKey,
		FeeRuleID:              ruleID,
		PaymentProcessor:       opts.PaymentProcessor,
		ProcessorTransactionID: opts.ProcessorTransactionID,
		Description:            opts.Description,
		Metadata:               opts.Metadata,
	})
	if err != nil {
		s.metrics.RecordError(op, errType(err))
		return nil, err
	}

	s.metrics.RecordTransaction(op, amount.Amount())
	return created, nil
}

func (s *service) Transfer(ctx context.Context, fromWalletID, toWalletID uint64, amount models.Money, opts TxOptions) (*TransferResult, error) {
	start := time.Now()
	defer func() { s.metrics.RecordOperationDuration("transfer", time.Since(start)) }()

	if fromWalletID == toWalletID {
		return nil, ErrSelfTransfer
	}

	// Both currency assertions happen before any lock is taken.
	if _, err := s.guardMutable(fromWalletID, amount); err != nil {
		s.metrics.RecordError("transfer", errType(err))
		return nil, err
	}
	if _, err := s.guardMutable(toWalletID, amount); err != nil {
		s.metrics.RecordError("transfer", errType(err))
		return nil, err
	}

	// Fee, if any, is charged on the sender's leg only.
	feeAmount, ruleID, err := s.resolveFee(ctx, models.TypeTransferOut, amount, opts)
	if err != nil {
		s.metrics.RecordError("transfer", errType(err))
		return nil, err
	}

	reference := opts.ReferenceID
	if reference == "" {
		reference = uuid.NewString()
	}

	// Reject known reference collisions before taking the two row locks.
	if err := s.transactions.EnsureNewReferences(ctx, reference+"_OUT", reference+"_IN"); err != nil {
		s.metrics.RecordError("transfer", errType(err))
		return nil, err
	}

	var result TransferResult
	err = s.repo.ExecuteInTransaction(func(tx repositories.WalletRepository) error {
		// Lock both rows in ascending id order so two opposite-direction
		// transfers cannot deadlock.
		first, second := fromWalletID, toWalletID
		if second < first {
			first, second = second, first
		}
		if _, err := s.balances.LockWallet(tx, first); err != nil {
			return err
		}
		if _, err := s.balances.LockWallet(tx, second); err != nil {
			return err
		}

		debit, err := s.transactions.CreateInTx(ctx, tx, transaction.CreateRequest{
			WalletID:         fromWalletID,
			Type:             models.TypeTransferOut,
			Amount:           amount,
			Fee:              feeAmount,
			ReferenceID:      reference + "_OUT",
			FeeRuleID:        ruleID,
			PaymentProcessor: opts.PaymentProcessor,
			Description:      opts.Description,
			Metadata:         opts.Metadata,
		})
		if err != nil {
			return err
		}

		credit, err := s.transactions.CreateInTx(ctx, tx, transaction.CreateRequest{
			WalletID:            toWalletID,
			Type:                models.TypeTransferIn,
			Amount:              amount,
			ReferenceID:         reference + "_IN",
			ParentTransactionID: &debit.ID,
			Description:         opts.Description,
			Metadata:            opts.Metadata,
		})
		if err != nil {
			return err
		}

		result = TransferResult{Debit: debit, Credit: credit}
		return nil
	})
	if err != nil {
		s.metrics.RecordError("transfer", errType(err))
		return nil, err
	}

	s.metrics.RecordTransaction("transfer", amount.Amount())
	return &result, nil
}

func (s *service) Refund(ctx context.Context, referenceID string, amount *models.Money, opts TxOptions) (*models.Transaction, error) {
	start := time.Now()
	defer func() { s.metrics.RecordOperationDuration("refund", time.Since(start)) }()

	original, err := s.transactions.GetByReference(ctx, referenceID)
	if err != nil {
		s.metrics.RecordError("refund", errType(err))
		return nil, err
	}
	if original.Type == models.TypeRefund || original.Status != models.StatusCompleted {
		return nil, ErrRefundNotAllowed
	}

	// Refunds post to frozen wallets too: freezing blocks new spending,
	// not corrections that return money already taken.
	wallet, err := s.repo.GetByID(original.WalletID)
	if err != nil {
		return nil, err
	}

	// Refundable net of the original: gross minus its fee.
	refundable := original.Amount - original.Fee

	var refundAmount int64
	var refundFee int64
	if amount == nil {
		// Default full refund also reverses the original fee, so the
		// wallet recovers net plus fee in one entry.
		refundAmount = refundable
		refundFee = -original.Fee
	} else {
		if wallet.Currency != amount.Currency() {
			return nil, &models.CurrencyMismatchError{Want: wallet.Currency, Got: amount.Currency()}
		}
		refundAmount = amount.Amount()
	}
	if refundAmount <= 0 {
		return nil, transaction.ErrInvalidAmount
	}

	// The refunded-so-far sum is only trustworthy under the wallet row
	// lock; read outside it, two concurrent refunds of the same original
	// would both pass the guard.
	var created *models.Transaction
	err = s.repo.ExecuteInTransaction(func(tx repositories.WalletRepository) error {
		if _, err := s.balances.LockWallet(tx, original.WalletID); err != nil {
			return err
		}

		refunded, err := tx.SumCompletedRefunds(original.ID)
		if err != nil {
			return err
		}
		if refunded >= refundable {
			return ErrAlreadyRefunded
		}
		if refunded+refundAmount > refundable {
			return ErrRefundExceedsNet
		}

		created, err = s.transactions.CreateInTx(ctx, tx, transaction.CreateRequest{
			WalletID:            original.WalletID,
			Type:                models.TypeRefund,
			Amount:              models.NewMoney(refundAmount, wallet.Currency),
			Fee:                 refundFee,
			ReferenceID:         opts.ReferenceID,
			IdempotencyKey:      opts.IdempotencyKey,
			ParentTransactionID: &original.ID,
			Description:         opts.Description,
			Metadata:            opts.Metadata,
		})
		return err
	})
	if err != nil {
		s.metrics.RecordError("refund", errType(err))
		return nil, err
	}

	s.metrics.RecordTransaction("refund", refundAmount)
	return created, nil
}

func (s *service) GetBalance(ctx context.Context, walletID uint64) (models.Money, error) {
	return s.balances.GetBalance(ctx, walletID)
}

func (s *service) Reconcile(ctx context.Context, walletID uint64) (bool, error) {
	consistent, err := s.balances.Reconcile(ctx, walletID)
	if err == nil {
		s.metrics.RecordReconciliation(consistent)
	}
	return consistent, err
}

func (s *service) GetTransactions(ctx context.Context, walletID uint64, f repositories.TransactionFilter) ([]models.Transaction, error) {
	return s.transactions.ListByWallet(ctx, walletID, f)
}

func (s *service) Freeze(ctx context.Context, walletID uint64, reason string) error {
	return s.repo.UpdateStatus(walletID, models.WalletStatusFrozen, reason)
}

func (s *service) Unfreeze(ctx context.Context, walletID uint64) error {
	return s.repo.UpdateStatus(walletID, models.WalletStatusActive, "")
}

func (s *service) Stats(ctx context.Context, start, end time.Time, currency string) (*Stats, error) {
	txStats, err := s.repo.GetTransactionStats(start, end)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.GetTotalBalance(currency)
	if err != nil {
		return nil, err
	}
	active, err := s.repo.GetActiveWalletsCount()
	if err != nil {
		return nil, err
	}
	return &Stats{
		Transactions:  *txStats,
		TotalBalance:  total,
		ActiveWallets: active,
		Currency:      currency,
	}, nil
}

// guardMutable runs the pre-lock checks shared by every mutating
// operation: positive amount, wallet exists, wallet active, currency
// matches the wallet.
func (s *service) guardMutable(walletID uint64, amount models.Money) (*models.Wallet, error) {
	if !amount.IsPositive() {
		return nil, transaction.ErrInvalidAmount
	}
	wallet, err := s.repo.GetByID(walletID)
	if err != nil {
		return nil, err
	}
	if !wallet.IsActive() {
		return nil, ErrWalletFrozen
	}
	if wallet.Currency != amount.Currency() {
		return nil, &models.CurrencyMismatchError{Want: wallet.Currency, Got: amount.Currency()}
	}
	return wallet, nil
}

// resolveFee picks the fee for an operation: explicit fee wins, otherwise
// the rule engine runs when CalculateFee is set, otherwise zero.
func (s *service) resolveFee(ctx context.Context, txType models.TransactionType, amount models.Money, opts TxOptions) (int64, *uint64, error) {
	if opts.Fee != nil {
		return *opts.Fee, nil, nil
	}
	if !opts.CalculateFee {
		return 0, nil, nil
	}
	res, err := s.fees.Calculate(ctx, txType, amount, opts.PaymentProcessor)
	if err != nil {
		return 0, nil, fmt.Errorf("fee calculation failed: %w", err)
	}
	return res.Fee.Amount(), res.RuleID, nil
}

// errType reduces an error to a stable label for metrics.
func errType(err error) string {
	switch {
	case errors.Is(err, transaction.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, transaction.ErrDuplicateTransaction):
		return "duplicate"
	case errors.Is(err, transaction.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, models.ErrCurrencyMismatch):
		return "currency_mismatch"
	case errors.Is(err, repositories.ErrWalletNotFound):
		return "wallet_not_found"
	case errors.Is(err, ErrWalletFrozen):
		return "wallet_frozen"
	default:
		return "internal"
	}
}
