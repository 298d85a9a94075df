package wallet

import "errors"

// Service errors. Conditions detected inside the transaction manager
// (duplicates, insufficient funds) propagate from that package unchanged.
var (
	ErrWalletExists        = errors.New("wallet already exists for owner and currency")
	ErrWalletFrozen        = errors.New("wallet is frozen")
	ErrSelfTransfer        = errors.New("cannot transfer to the same wallet")
	ErrAlreadyRefunded     = errors.New("transaction already fully refunded")
	ErrRefundExceedsNet    = errors.New("refund amount exceeds refundable net of original")
	ErrRefundNotAllowed    = errors.New("transaction cannot be refunded")
	ErrInvalidOwner        = errors.New("invalid wallet owner")
	ErrUnsupportedCurrency = errors.New("unsupported currency code")
)
