package wallet

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cargolink/backend/internal/models"
)

// Typed errors so callers can tell a business rejection from an operational
// failure. All of them are returned before any ledger write happens.
var (
	ErrInvalidAmount           = errors.New("amount must be greater than zero")
	ErrInsufficientFunds       = errors.New("insufficient funds")
	ErrInsufficientLockedFunds = errors.New("insufficient locked funds")
	ErrWalletNotFound          = errors.New("wallet not found")
)

// WalletService owns every mutation of wallet balances. Each operation is
// atomic: the balance update and its ledger entry commit together or not at
// all, and the available/locked balances can never go negative.
type WalletService struct {
	db *gorm.DB
}

// NewWalletService creates a new wallet service
func NewWalletService(db *gorm.DB) *WalletService {
	return &WalletService{db: db}
}

// GetOrCreateWallet gets a user's wallet or provisions one on first use
func (s *WalletService) GetOrCreateWallet(userID uuid.UUID, currency models.Currency) (*models.Wallet, error) {
	return s.GetOrCreateWalletTx(s.db, userID, currency)
}

// GetOrCreateWalletTx is the transactional variant of GetOrCreateWallet
func (s *WalletService) GetOrCreateWalletTx(tx *gorm.DB, userID uuid.UUID, currency models.Currency) (*models.Wallet, error) {
	var wallet models.Wallet

	err := tx.Where("user_id = ?", userID).First(&wallet).Error
	if err == nil {
		return &wallet, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("error finding wallet: %w", err)
	}

	wallet = models.Wallet{
		UserID:    userID,
		Currency:  currency,
		Available: decimal.Zero,
		Locked:    decimal.Zero,
	}
	if err := tx.Create(&wallet).Error; err != nil {
		return nil, fmt.Errorf("error creating wallet: %w", err)
	}
	return &wallet, nil
}

// GetWalletByUser returns the wallet owned by userID
func (s *WalletService) GetWalletByUser(userID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := s.db.Where("user_id = ?", userID).First(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("error finding wallet: %w", err)
	}
	return &wallet, nil
}

// Credit increases the available balance and appends a completed entry
func (s *WalletService) Credit(userID uuid.UUID, amount decimal.Decimal, entryType models.EntryType, reference, description string) (*models.LedgerEntry, error) {
	var entry *models.LedgerEntry
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = s.CreditTx(tx, userID, amount, entryType, reference, description)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// CreditTx credits a wallet inside an existing transaction
func (s *WalletService) CreditTx(tx *gorm.DB, userID uuid.UUID, amount decimal.Decimal, entryType models.EntryType, reference, description string) (*models.LedgerEntry, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}

	wallet, err := s.GetOrCreateWalletTx(tx, userID, models.DefaultCurrency)
	if err != nil {
		return nil, err
	}

	result := tx.Model(&models.Wallet{}).
		Where("id = ?", wallet.ID).
		Update("available", gorm.Expr("available + ?", amount))
	if result.Error != nil {
		return nil, fmt.Errorf("error updating wallet balance: %w", result.Error)
	}

	updated, err := s.reload(tx, wallet.ID)
	if err != nil {
		return nil, err
	}

	return s.appendEntry(tx, updated, models.LedgerEntry{
		Type:          entryType,
		Amount:        amount,
		Status:        models.EntryCompleted,
		Reference:     reference,
		Description:   description,
		BalanceBefore: updated.Available.Sub(amount),
		BalanceAfter:  updated.Available,
	})
}

// Debit decreases the available balance, failing without mutation if the
// wallet cannot cover the amount
func (s *WalletService) Debit(userID uuid.UUID, amount decimal.Decimal, entryType models.EntryType, reference, description string) (*models.LedgerEntry, error) {
	var entry *models.LedgerEntry
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = s.DebitTx(tx, userID, amount, entryType, reference, description)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// DebitTx debits a wallet inside an existing transaction. The balance guard
// lives in the UPDATE's WHERE clause so concurrent debits cannot race the
// wallet below zero.
func (s *WalletService) DebitTx(tx *gorm.DB, userID uuid.UUID, amount decimal.Decimal, entryType models.EntryType, reference, description string) (*models.LedgerEntry, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}

	wallet, err := s.GetOrCreateWalletTx(tx, userID, models.DefaultCurrency)
	if err != nil {
		return nil, err
	}

	result := tx.Model(&models.Wallet{}).
		Where("id = ? AND available >= ?", wallet.ID, amount).
		Update("available", gorm.Expr("available - ?", amount))
	if result.Error != nil {
		return nil, fmt.Errorf("error updating wallet balance: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrInsufficientFunds
	}

	updated, err := s.reload(tx, wallet.ID)
	if err != nil {
		return nil, err
	}

	return s.appendEntry(tx, updated, models.LedgerEntry{
		Type:          entryType,
		Amount:        amount.Neg(),
		Status:        models.EntryCompleted,
		Reference:     reference,
		Description:   description,
		BalanceBefore: updated.Available.Add(amount),
		BalanceAfter:  updated.Available,
	})
}

// LockFunds moves amount from available to locked, representing funds
// committed to an in-flight order. The pending payment entry keeps the
// reservation visible in the ledger until release.
func (s *WalletService) LockFunds(userID uuid.UUID, amount decimal.Decimal, reference, description string) (*models.LedgerEntry, error) {
	var entry *models.LedgerEntry
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = s.LockFundsTx(tx, userID, amount, reference, description)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// LockFundsTx locks funds inside an existing transaction
func (s *WalletService) LockFundsTx(tx *gorm.DB, userID uuid.UUID, amount decimal.Decimal, reference, description string) (*models.LedgerEntry, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}

	wallet, err := s.GetOrCreateWalletTx(tx, userID, models.DefaultCurrency)
	if err != nil {
		return nil, err
	}

	result := tx.Model(&models.Wallet{}).
		Where("id = ? AND available >= ?", wallet.ID, amount).
		Updates(map[string]interface{}{
			"available": gorm.Expr("available - ?", amount),
			"locked":    gorm.Expr("locked + ?", amount),
		})
	if result.Error != nil {
		return nil, fmt.Errorf("error locking funds: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrInsufficientFunds
	}

	updated, err := s.reload(tx, wallet.ID)
	if err != nil {
		return nil, err
	}

	return s.appendEntry(tx, updated, models.LedgerEntry{
		Type:          models.EntryPayment,
		Amount:        amount.Neg(),
		Status:        models.EntryPending,
		Reference:     reference,
		Description:   description,
		BalanceBefore: updated.Available.Add(amount),
		BalanceAfter:  updated.Available,
	})
}

// ReleaseFunds finalises locked funds as spent. The locked balance drops but
// nothing returns to available: the money left the spendable balance when it
// was locked, so the release entry carries amount zero.
func (s *WalletService) ReleaseFunds(userID uuid.UUID, amount decimal.Decimal, reference, description string) (*models.LedgerEntry, error) {
	var entry *models.LedgerEntry
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = s.ReleaseFundsTx(tx, userID, amount, reference, description)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ReleaseFundsTx releases locked funds inside an existing transaction
func (s *WalletService) ReleaseFundsTx(tx *gorm.DB, userID uuid.UUID, amount decimal.Decimal, reference, description string) (*models.LedgerEntry, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}

	wallet, err := s.GetOrCreateWalletTx(tx, userID, models.DefaultCurrency)
	if err != nil {
		return nil, err
	}

	result := tx.Model(&models.Wallet{}).
		Where("id = ? AND locked >= ?", wallet.ID, amount).
		Update("locked", gorm.Expr("locked - ?", amount))
	if result.Error != nil {
		return nil, fmt.Errorf("error releasing funds: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrInsufficientLockedFunds
	}

	updated, err := s.reload(tx, wallet.ID)
	if err != nil {
		return nil, err
	}

	return s.appendEntry(tx, updated, models.LedgerEntry{
		Type:          models.EntryRelease,
		Amount:        decimal.Zero,
		Status:        models.EntryCompleted,
		Reference:     reference,
		Description:   description,
		BalanceBefore: updated.Available,
		BalanceAfter:  updated.Available,
	})
}

// UnlockFunds returns locked funds to the available balance, unwinding a
// cancelled order before its funds were released
func (s *WalletService) UnlockFunds(userID uuid.UUID, amount decimal.Decimal, reference, description string) (*models.LedgerEntry, error) {
	var entry *models.LedgerEntry
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = s.UnlockFundsTx(tx, userID, amount, reference, description)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// UnlockFundsTx unlocks funds inside an existing transaction
func (s *WalletService) UnlockFundsTx(tx *gorm.DB, userID uuid.UUID, amount decimal.Decimal, reference, description string) (*models.LedgerEntry, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}

	wallet, err := s.GetOrCreateWalletTx(tx, userID, models.DefaultCurrency)
	if err != nil {
		return nil, err
	}

	result := tx.Model(&models.Wallet{}).
		Where("id = ? AND locked >= ?", wallet.ID, amount).
		Updates(map[string]interface{}{
			"locked":    gorm.Expr("locked - ?", amount),
			"available": gorm.Expr("available + ?", amount),
		})
	if result.Error != nil {
		return nil, fmt.Errorf("error unlocking funds: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrInsufficientLockedFunds
	}

	updated, err := s.reload(tx, wallet.ID)
	if err != nil {
		return nil, err
	}

	return s.appendEntry(tx, updated, models.LedgerEntry{
		Type:          models.EntryRefund,
		Amount:        amount,
		Status:        models.EntryCompleted,
		Reference:     reference,
		Description:   description,
		BalanceBefore: updated.Available.Sub(amount),
		BalanceAfter:  updated.Available,
	})
}

// GetLedger returns the paginated ledger for a wallet, newest first
func (s *WalletService) GetLedger(walletID uuid.UUID, page, pageSize int) ([]models.LedgerEntry, int64, error) {
	var entries []models.LedgerEntry
	var total int64

	if err := s.db.Model(&models.LedgerEntry{}).Where("wallet_id = ?", walletID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("error counting ledger entries: %w", err)
	}

	offset := (page - 1) * pageSize
	if err := s.db.Where("wallet_id = ?", walletID).Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&entries).Error; err != nil {
		return nil, 0, fmt.Errorf("error finding ledger entries: %w", err)
	}
	return entries, total, nil
}

func (s *WalletService) reload(tx *gorm.DB, walletID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := tx.First(&wallet, "id = ?", walletID).Error; err != nil {
		return nil, fmt.Errorf("error reloading wallet: %w", err)
	}
	return &wallet, nil
}

func (s *WalletService) appendEntry(tx *gorm.DB, wallet *models.Wallet, entry models.LedgerEntry) (*models.LedgerEntry, error) {
	entry.WalletID = wallet.ID
	if err := tx.Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("error creating ledger entry: %w", err)
	}
	return &entry, nil
}
