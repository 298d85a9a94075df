package balance

import (
	"context"
	"testing"

	"walletcore/internal/models"
	"walletcore/internal/repositories"
	"walletcore/internal/repositories/memory"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*memory.WalletRepo, Service, *models.Wallet) {
	t.Helper()
	repo := memory.NewWalletRepository()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	svc := NewService(repo, log)

	w := &models.Wallet{OwnerID: 1, OwnerType: "client", Currency: "USD", Status: models.WalletStatusActive}
	require.NoError(t, repo.Create(w))
	return repo, svc, w
}

func completedEntry(t *testing.T, repo *memory.WalletRepo, walletID uint64, net int64, ref string) {
	t.Helper()
	require.NoError(t, repo.CreateTransaction(&models.Transaction{
		WalletID:    walletID,
		Type:        models.TypeCredit,
		Amount:      net,
		NetAmount:   net,
		Currency:    "USD",
		Status:      models.StatusCompleted,
		ReferenceID: ref,
	}))
}

func TestGetBalance(t *testing.T) {
	repo, svc, w := setup(t)

	w.Balance = 2500
	require.NoError(t, repo.Update(w))

	got, err := svc.GetBalance(context.Background(), w.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), got.Amount())
	assert.Equal(t, "USD", got.Currency())

	_, err = svc.GetBalance(context.Background(), 999)
	assert.ErrorIs(t, err, repositories.ErrWalletNotFound)
}

func TestCalculateFromLedger(t *testing.T) {
	repo, svc, w := setup(t)

	completedEntry(t, repo, w.ID, 1000, "r1")
	completedEntry(t, repo, w.ID, -300, "r2")
	// pending entries never count
	require.NoError(t, repo.CreateTransaction(&models.Transaction{
		WalletID:    w.ID,
		Type:        models.TypeCredit,
		Amount:      5000,
		NetAmount:   5000,
		Currency:    "USD",
		Status:      models.StatusPending,
		ReferenceID: "r3",
	}))

	got, err := svc.CalculateFromLedger(context.Background(), w.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(700), got.Amount())
}

func TestReconcile_Consistent(t *testing.T) {
	repo, svc, w := setup(t)

	completedEntry(t, repo, w.ID, 1000, "r1")
	w.Balance = 1000
	require.NoError(t, repo.Update(w))

	consistent, err := svc.Reconcile(context.Background(), w.ID)
	require.NoError(t, err)
	assert.True(t, consistent)
}

func TestReconcile_DriftHealsFromLedger(t *testing.T) {
	repo, svc, w := setup(t)

	completedEntry(t, repo, w.ID, 1000, "r1")
	completedEntry(t, repo, w.ID, -250, "r2")
	w.Balance = 9999
	require.NoError(t, repo.Update(w))

	consistent, err := svc.Reconcile(context.Background(), w.ID)
	require.NoError(t, err)
	assert.False(t, consistent)

	after, err := repo.GetByID(w.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(750), after.Balance)

	// a second pass sees the healed value
	consistent, err = svc.Reconcile(context.Background(), w.ID)
	require.NoError(t, err)
	assert.True(t, consistent)
}

func TestReconcile_UnknownWallet(t *testing.T) {
	_, svc, _ := setup(t)

	_, err := svc.Reconcile(context.Background(), 999)
	assert.ErrorIs(t, err, repositories.ErrWalletNotFound)
}
