/*
Package wallet is the public facade of the ledger core.

It composes the balance manager, the fee rule engine and the transaction
manager to expose credit, debit, transfer and refund operations plus
wallet lookup and reconciliation. Every mutating operation validates
currency and amount before any lock is taken, then runs as one database
transaction: ledger entry insert and cached balance update commit or roll
back together.

Usage:

	svc := wallet.NewService(repo, balances, fees, transactions, metrics, log)

	w, err := svc.FindOrCreate(ctx, ownerID, "reseller", "USD")

	tx, err := svc.Credit(ctx, w.ID, models.NewMoney(10000, "USD"), wallet.TxOptions{
	    ReferenceID: "invoice-1042",
	})

	res, err := svc.Transfer(ctx, from.ID, to.ID, models.NewMoney(3000, "USD"), wallet.TxOptions{})

Idempotency: callers that need safe retries must supply ReferenceID (or
IdempotencyKey). A repeated reference is rejected with
transaction.ErrDuplicateTransaction instead of moving money twice.
*/
package wallet
