package wallet

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cargolink/backend/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.AgentProfile{},
		&models.Wallet{},
		&models.LedgerEntry{},
		&models.Order{},
	))
	return db
}

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func TestCreditProvisionsWalletAndAppendsEntry(t *testing.T) {
	db := setupTestDB(t)
	svc := NewWalletService(db)
	userID := uuid.New()

	entry, err := svc.Credit(userID, dec("100.00"), models.EntryDeposit, "dep-1", "First deposit")
	require.NoError(t, err)
	assert.True(t, entry.Amount.Equal(dec("100.00")), "credit entry carries the positive amount")
	assert.Equal(t, models.EntryCompleted, entry.Status)
	assert.True(t, entry.BalanceBefore.Equal(decimal.Zero))
	assert.True(t, entry.BalanceAfter.Equal(dec("100.00")))

	w, err := svc.GetWalletByUser(userID)
	require.NoError(t, err)
	assert.True(t, w.Available.Equal(dec("100.00")))
	assert.True(t, w.Locked.Equal(decimal.Zero))
}

func TestDebitUpdatesBalanceAndLedger(t *testing.T) {
	db := setupTestDB(t)
	svc := NewWalletService(db)
	userID := uuid.New()

	_, err := svc.Credit(userID, dec("100.00"), models.EntryDeposit, "dep-1", "Deposit")
	require.NoError(t, err)

	entry, err := svc.Debit(userID, dec("40.00"), models.EntryWithdrawal, "wd-1", "Withdrawal")
	require.NoError(t, err)
	assert.True(t, entry.Amount.Equal(dec("-40.00")), "debit entry carries the negative amount")
	assert.True(t, entry.BalanceBefore.Equal(dec("100.00")))
	assert.True(t, entry.BalanceAfter.Equal(dec("60.00")))

	w, err := svc.GetWalletByUser(userID)
	require.NoError(t, err)
	assert.True(t, w.Available.Equal(dec("60.00")))
}

func TestDebitInsufficientFundsLeavesNoTrace(t *testing.T) {
	db := setupTestDB(t)
	svc := NewWalletService(db)
	userID := uuid.New()

	_, err := svc.Credit(userID, dec("10.00"), models.EntryDeposit, "dep-1", "Deposit")
	require.NoError(t, err)

	_, err = svc.Debit(userID, dec("10.01"), models.EntryWithdrawal, "wd-1", "Withdrawal")
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	// Balance untouched and no ledger entry written
	w, err := svc.GetWalletByUser(userID)
	require.NoError(t, err)
	assert.True(t, w.Available.Equal(dec("10.00")))

	var count int64
	db.Model(&models.LedgerEntry{}).Where("wallet_id = ?", w.ID).Count(&count)
	assert.Equal(t, int64(1), count, "only the deposit entry exists")
}

func TestNonPositiveAmountsRejected(t *testing.T) {
	db := setupTestDB(t)
	svc := NewWalletService(db)
	userID := uuid.New()

	for _, amount := range []decimal.Decimal{decimal.Zero, dec("-5.00")} {
		_, err := svc.Credit(userID, amount, models.EntryDeposit, "ref", "desc")
		assert.ErrorIs(t, err, ErrInvalidAmount)
		_, err = svc.Debit(userID, amount, models.EntryWithdrawal, "ref", "desc")
		assert.ErrorIs(t, err, ErrInvalidAmount)
		_, err = svc.LockFunds(userID, amount, "ref", "desc")
		assert.ErrorIs(t, err, ErrInvalidAmount)
		_, err = svc.ReleaseFunds(userID, amount, "ref", "desc")
		assert.ErrorIs(t, err, ErrInvalidAmount)
		_, err = svc.UnlockFunds(userID, amount, "ref", "desc")
		assert.ErrorIs(t, err, ErrInvalidAmount)
	}
}

func TestLockFundsConservesTotal(t *testing.T) {
	db := setupTestDB(t)
	svc := NewWalletService(db)
	userID := uuid.New()

	_, err := svc.Credit(userID, dec("100.00"), models.EntryDeposit, "dep-1", "Deposit")
	require.NoError(t, err)

	entry, err := svc.LockFunds(userID, dec("30.00"), "ord-1", "Order hold")
	require.NoError(t, err)
	assert.Equal(t, models.EntryPending, entry.Status)
	assert.True(t, entry.Amount.Equal(dec("-30.00")))

	w, err := svc.GetWalletByUser(userID)
	require.NoError(t, err)
	assert.True(t, w.Available.Equal(dec("70.00")))
	assert.True(t, w.Locked.Equal(dec("30.00")))
	assert.True(t, w.Available.Add(w.Locked).Equal(dec("100.00")), "lock moves funds, never creates or destroys them")
}

func TestLockFundsInsufficientAvailable(t *testing.T) {
	db := setupTestDB(t)
	svc := NewWalletService(db)
	userID := uuid.New()

	_, err := svc.Credit(userID, dec("20.00"), models.EntryDeposit, "dep-1", "Deposit")
	require.NoError(t, err)

	_, err = svc.LockFunds(userID, dec("20.01"), "ord-1", "Order hold")
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestReleaseFundsFinalisesSpend(t *testing.T) {
	db := setupTestDB(t)
	svc := NewWalletService(db)
	userID := uuid.New()

	_, err := svc.Credit(userID, dec("100.00"), models.EntryDeposit, "dep-1", "Deposit")
	require.NoError(t, err)
	_, err = svc.LockFunds(userID, dec("30.00"), "ord-1", "Order hold")
	require.NoError(t, err)

	entry, err := svc.ReleaseFunds(userID, dec("30.00"), "ord-1", "Order settled")
	require.NoError(t, err)
	assert.True(t, entry.Amount.Equal(decimal.Zero), "release never touches available")

	w, err := svc.GetWalletByUser(userID)
	require.NoError(t, err)
	assert.True(t, w.Available.Equal(dec("70.00")))
	assert.True(t, w.Locked.Equal(decimal.Zero))
}

func TestReleaseMoreThanLockedRejected(t *testing.T) {
	db := setupTestDB(t)
	svc := NewWalletService(db)
	userID := uuid.New()

	_, err := svc.Credit(userID, dec("100.00"), models.EntryDeposit, "dep-1", "Deposit")
	require.NoError(t, err)
	_, err = svc.LockFunds(userID, dec("30.00"), "ord-1", "Order hold")
	require.NoError(t, err)

	_, err = svc.ReleaseFunds(userID, dec("30.01"), "ord-1", "Order settled")
	assert.ErrorIs(t, err, ErrInsufficientLockedFunds)
}

func TestUnlockFundsReturnsToAvailable(t *testing.T) {
	db := setupTestDB(t)
	svc := NewWalletService(db)
	userID := uuid.New()

	_, err := svc.Credit(userID, dec("100.00"), models.EntryDeposit, "dep-1", "Deposit")
	require.NoError(t, err)
	_, err = svc.LockFunds(userID, dec("30.00"), "ord-1", "Order hold")
	require.NoError(t, err)

	entry, err := svc.UnlockFunds(userID, dec("30.00"), "ord-1", "Order cancelled")
	require.NoError(t, err)
	assert.Equal(t, models.EntryRefund, entry.Type)
	assert.True(t, entry.Amount.Equal(dec("30.00")))

	w, err := svc.GetWalletByUser(userID)
	require.NoError(t, err)
	assert.True(t, w.Available.Equal(dec("100.00")))
	assert.True(t, w.Locked.Equal(decimal.Zero))
}

func TestLedgerReplayMatchesBalance(t *testing.T) {
	db := setupTestDB(t)
	svc := NewWalletService(db)
	userID := uuid.New()

	_, err := svc.Credit(userID, dec("250.00"), models.EntryDeposit, "dep-1", "Deposit")
	require.NoError(t, err)
	_, err = svc.Debit(userID, dec("75.50"), models.EntryPayment, "ord-1", "Purchase")
	require.NoError(t, err)
	_, err = svc.Credit(userID, dec("12.25"), models.EntryCommission, "ord-2", "Commission")
	require.NoError(t, err)
	_, err = svc.Debit(userID, dec("50.00"), models.EntryWithdrawal, "wd-1", "Withdrawal")
	require.NoError(t, err)

	w, err := svc.GetWalletByUser(userID)
	require.NoError(t, err)

	var entries []models.LedgerEntry
	require.NoError(t, db.Where("wallet_id = ?", w.ID).Find(&entries).Error)

	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(e.Amount)
	}
	assert.True(t, sum.Equal(w.Available), "replaying entry amounts reproduces the available balance")
	assert.True(t, w.Available.Equal(dec("136.75")))
}

func TestGetLedgerPagination(t *testing.T) {
	db := setupTestDB(t)
	svc := NewWalletService(db)
	userID := uuid.New()

	for i := 0; i < 5; i++ {
		_, err := svc.Credit(userID, dec("1.00"), models.EntryDeposit, fmt.Sprintf("dep-%d", i), "Deposit")
		require.NoError(t, err)
	}

	w, err := svc.GetWalletByUser(userID)
	require.NoError(t, err)

	entries, total, err := svc.GetLedger(w.ID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, entries, 2)

	entries, _, err = svc.GetLedger(w.ID, 3, 2)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestGetWalletByUserNotFound(t *testing.T) {
	db := setupTestDB(t)
	svc := NewWalletService(db)

	_, err := svc.GetWalletByUser(uuid.New())
	assert.ErrorIs(t, err, ErrWalletNotFound)
}
