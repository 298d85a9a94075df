// Package handlers exposes the ledger facade over HTTP. The surface is
// deliberately thin and unauthenticated: access control belongs to the
// application embedding this service.
package handlers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"walletcore/internal/models"
	"walletcore/internal/repositories"
	"walletcore/internal/services/transaction"
	"walletcore/internal/services/wallet"

	"github.com/gofiber/fiber/v2"
)

type WalletHandler struct {
	walletService wallet.Service
}

func NewWalletHandler(walletService wallet.Service) *WalletHandler {
	return &WalletHandler{walletService: walletService}
}

type createWalletRequest struct {
	OwnerID   uint64 `json:"owner_id"`
	OwnerType string `json:"owner_type"`
	Currency  string `json:"currency"`
}

type moveMoneyRequest struct {
	Amount                 int64       `json:"amount"`
	Currency               string      `json:"currency"`
	Fee                    *int64      `json:"fee,omitempty"`
	CalculateFee           bool        `json:"calculate_fee,omitempty"`
	ReferenceID            string      `json:"reference_id,omitempty"`
	IdempotencyKey         string      `json:"idempotency_key,omitempty"`
	PaymentProcessor       string      `json:"payment_processor,omitempty"`
	ProcessorTransactionID string      `json:"processor_transaction_id,omitempty"`
	Description            string      `json:"description,omitempty"`
	Metadata               models.JSON `json:"metadata,omitempty"`
}

func (r *moveMoneyRequest) options() wallet.TxOptions {
	return wallet.TxOptions{
		Fee:                    r.Fee,
		CalculateFee:           r.CalculateFee,
		ReferenceID:            r.ReferenceID,
		IdempotencyKey:         r.IdempotencyKey,
		PaymentProcessor:       r.PaymentProcessor,
		ProcessorTransactionID: r.ProcessorTransactionID,
		Description:            r.Description,
		Metadata:               r.Metadata,
	}
}

func (h *WalletHandler) CreateWallet(c *fiber.Ctx) error {
	var input createWalletRequest
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "invalid request body")
	}
	w, err := h.walletService.Create(c.Context(), input.OwnerID, input.OwnerType, input.Currency)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(w)
}

func (h *WalletHandler) GetWallet(c *fiber.Ctx) error {
	id, err := walletID(c)
	if err != nil {
		return badRequest(c, "invalid wallet id")
	}
	w, err := h.walletService.FindWallet(c.Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(w)
}

func (h *WalletHandler) GetBalance(c *fiber.Ctx) error {
	id, err := walletID(c)
	if err != nil {
		return badRequest(c, "invalid wallet id")
	}
	balance, err := h.walletService.GetBalance(c.Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"wallet_id": id,
		"balance":   balance.Amount(),
		"currency":  balance.Currency(),
	})
}

func (h *WalletHandler) Credit(c *fiber.Ctx) error {
	return h.move(c, h.walletService.Credit)
}

func (h *WalletHandler) Debit(c *fiber.Ctx) error {
	return h.move(c, h.walletService.Debit)
}

func (h *WalletHandler) move(c *fiber.Ctx, op func(ctx context.Context, walletID uint64, amount models.Money, opts wallet.TxOptions) (*models.Transaction, error)) error {
	id, err := walletID(c)
	if err != nil {
		return badRequest(c, "invalid wallet id")
	}
	var input moveMoneyRequest
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "invalid request body")
	}
	tx, err := op(c.Context(), id, models.NewMoney(input.Amount, input.Currency), input.options())
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(tx)
}

type transferRequest struct {
	moveMoneyRequest
	FromWalletID uint64 `json:"from_wallet_id"`
	ToWalletID   uint64 `json:"to_wallet_id"`
}

func (h *WalletHandler) Transfer(c *fiber.Ctx) error {
	var input transferRequest
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "invalid request body")
	}
	result, err := h.walletService.Transfer(c.Context(),
		input.FromWalletID, input.ToWalletID,
		models.NewMoney(input.Amount, input.Currency), input.options())
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

type refundRequest struct {
	moveMoneyRequest
	OriginalReference string `json:"original_reference"`
}

func (h *WalletHandler) Refund(c *fiber.Ctx) error {
	var input refundRequest
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "invalid request body")
	}
	var amount *models.Money
	if input.Amount != 0 {
		m := models.NewMoney(input.Amount, input.Currency)
		amount = &m
	}
	tx, err := h.walletService.Refund(c.Context(), input.OriginalReference, amount, input.options())
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(tx)
}

func (h *WalletHandler) Reconcile(c *fiber.Ctx) error {
	id, err := walletID(c)
	if err != nil {
		return badRequest(c, "invalid wallet id")
	}
	consistent, err := h.walletService.Reconcile(c.Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"wallet_id": id, "consistent": consistent})
}

func (h *WalletHandler) ListTransactions(c *fiber.Ctx) error {
	id, err := walletID(c)
	if err != nil {
		return badRequest(c, "invalid wallet id")
	}

	filter := repositories.TransactionFilter{
		Type:   models.TransactionType(c.Query("type")),
		Status: models.TransactionStatus(c.Query("status")),
		Limit:  c.QueryInt("limit", 50),
		Offset: c.QueryInt("offset", 0),
	}
	if from := c.Query("from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			filter.From = &t
		}
	}
	if to := c.Query("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			filter.To = &t
		}
	}

	txs, err := h.walletService.GetTransactions(c.Context(), id, filter)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"transactions": txs})
}

func (h *WalletHandler) GetStats(c *fiber.Ctx) error {
	end := time.Now().UTC()
	start := end.AddDate(0, -1, 0)
	if from := c.Query("from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			start = t
		}
	}
	if to := c.Query("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			end = t
		}
	}

	stats, err := h.walletService.Stats(c.Context(), start, end, c.Query("currency", "USD"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(stats)
}

func walletID(c *fiber.Ctx) (uint64, error) {
	return strconv.ParseUint(c.Params("id"), 10, 64)
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

// writeError maps ledger errors onto HTTP statuses.
func writeError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, repositories.ErrWalletNotFound),
		errors.Is(err, transaction.ErrTransactionNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, transaction.ErrDuplicateTransaction),
		errors.Is(err, wallet.ErrWalletExists),
		errors.Is(err, wallet.ErrAlreadyRefunded):
		status = fiber.StatusConflict
	case errors.Is(err, transaction.ErrInsufficientFunds):
		status = fiber.StatusUnprocessableEntity
	case errors.Is(err, transaction.ErrInvalidAmount),
		errors.Is(err, models.ErrCurrencyMismatch),
		errors.Is(err, wallet.ErrSelfTransfer),
		errors.Is(err, wallet.ErrRefundExceedsNet),
		errors.Is(err, wallet.ErrRefundNotAllowed),
		errors.Is(err, wallet.ErrWalletFrozen),
		errors.Is(err, wallet.ErrInvalidOwner),
		errors.Is(err, wallet.ErrUnsupportedCurrency):
		status = fiber.StatusBadRequest
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
