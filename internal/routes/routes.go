// Package routes wires repositories, services and handlers onto the
// fiber application.
package routes

import (
	"walletcore/internal/handlers"
	"walletcore/internal/repositories"
	"walletcore/internal/repositories/cache"
	"walletcore/internal/services/balance"
	"walletcore/internal/services/fee"
	"walletcore/internal/services/transaction"
	"walletcore/internal/services/wallet"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SetupRoutes builds the service graph and registers all ledger routes.
// The returned facade is handed back so callers (and tests) can reuse it.
func SetupRoutes(app *fiber.App, db *gorm.DB, cacheSvc *cache.Service, collector wallet.MetricsCollector, log *logrus.Logger) wallet.Service {
	walletRepo := repositories.NewWalletRepository(db)
	feeRuleRepo := repositories.NewFeeRuleRepository(db)

	balanceService := balance.NewService(walletRepo, log)
	feeService := fee.NewService(feeRuleRepo)
	transactionService := transaction.NewService(walletRepo, cacheSvc, log)
	walletService := wallet.NewService(walletRepo, balanceService, feeService, transactionService, collector, log)

	walletHandler := handlers.NewWalletHandler(walletService)

	api := app.Group("/api")
	api.Post("/wallets", walletHandler.CreateWallet)
	api.Get("/wallets/:id", walletHandler.GetWallet)
	api.Get("/wallets/:id/balance", walletHandler.GetBalance)
	api.Get("/wallets/:id/transactions", walletHandler.ListTransactions)
	api.Post("/wallets/:id/credit", walletHandler.Credit)
	api.Post("/wallets/:id/debit", walletHandler.Debit)
	api.Post("/wallets/:id/reconcile", walletHandler.Reconcile)
	api.Post("/transfers", walletHandler.Transfer)
	api.Post("/refunds", walletHandler.Refund)
	api.Get("/stats", walletHandler.GetStats)

	return walletService
}
