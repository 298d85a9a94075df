package transaction

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateTransaction = errors.New("duplicate transaction reference")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidType          = errors.New("invalid transaction type")
	ErrInvalidStatus        = errors.New("invalid transaction status")
	ErrInvalidFee           = errors.New("fee may be negative only on refunds")
	ErrInsufficientFunds    = errors.New("insufficient funds")
)

// InsufficientFundsError carries the wallet and the amounts involved so
// callers can report exactly how short the balance was. Matches
// ErrInsufficientFunds via errors.Is.
type InsufficientFundsError struct {
	WalletID  uint64
	Required  int64
	Available int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds in wallet %d: required %d, available %d",
		e.WalletID, e.Required, e.Available)
}

func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}
