package repositories

import (
	"context"
	"regexp"
	"testing"

	"walletcore/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestGetByIDForUpdate_EmitsRowLock(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWalletRepository(db)

	rows := sqlmock.NewRows([]string{"id", "owner_id", "owner_type", "currency", "balance", "status"}).
		AddRow(1, 7, "reseller", "USD", 4900, "active")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "wallets" WHERE "wallets"."id" = $1`) + `.*FOR UPDATE`).
		WithArgs(uint64(1), 1).
		WillReturnRows(rows)

	w, err := repo.GetByIDForUpdate(1)
	require.NoError(t, err)
	assert.Equal(t, int64(4900), w.Balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWalletRepository(db)

	mock.ExpectQuery(`SELECT .* FROM "wallets"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(42)
	assert.ErrorIs(t, err, ErrWalletNotFound)
}

func TestCreateWallet_UniqueViolation(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWalletRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "wallets"`)).
		WillReturnError(&pgconn.PgError{Code: uniqueViolationCode})
	mock.ExpectRollback()

	err := repo.Create(&models.Wallet{OwnerID: 7, OwnerType: "reseller", Currency: "USD"})
	assert.ErrorIs(t, err, ErrDuplicateKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus_MissingWallet(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWalletRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "wallets" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.UpdateStatus(42, models.WalletStatusFrozen, "review")
	assert.ErrorIs(t, err, ErrWalletNotFound)
}

func TestSumCompletedNet(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWalletRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(SUM(net_amount), 0) FROM "transactions" WHERE wallet_id = $1 AND status = $2`)).
		WithArgs(uint64(1), string(models.StatusCompleted)).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(4900))

	sum, err := repo.SumCompletedNet(1)
	require.NoError(t, err)
	assert.Equal(t, int64(4900), sum)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReferenceExists(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWalletRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "transactions" WHERE reference_id = $1`)).
		WithArgs("order-42").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	exists, err := repo.ReferenceExists("order-42")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestFindMatchingFeeRule_PrefersProcessorSpecific(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFeeRuleRepository(db)

	rows := sqlmock.NewRows([]string{"id", "transaction_type", "fee_type", "fixed_amount", "percentage", "currency", "payment_processor", "is_active"}).
		AddRow(3, "DEBIT", "FIXED", 100, "0", "USD", "stripe", true)
	mock.ExpectQuery(`SELECT .* FROM "fee_rules" WHERE .*payment_processor = \$\d OR payment_processor IS NULL.*ORDER BY payment_processor IS NULL, id DESC`).
		WillReturnRows(rows)

	rule, err := repo.FindMatching(context.Background(), models.TypeDebit, "USD", "stripe", 5000)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), rule.ID)
	require.NotNil(t, rule.PaymentProcessor)
	assert.Equal(t, "stripe", *rule.PaymentProcessor)
}

func TestFindMatchingFeeRule_NoProcessorMatchesCatchAllOnly(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFeeRuleRepository(db)

	mock.ExpectQuery(`SELECT .* FROM "fee_rules" WHERE .*payment_processor IS NULL`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindMatching(context.Background(), models.TypeDebit, "USD", "", 5000)
	assert.ErrorIs(t, err, ErrFeeRuleNotFound)
}
