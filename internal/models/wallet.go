package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Currency represents supported currencies
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyNGN Currency = "NGN"
	CurrencyGHS Currency = "GHS"
)

// DefaultCurrency is used when a wallet is auto-provisioned
const DefaultCurrency = CurrencyUSD

// EntryType classifies a ledger entry
type EntryType string

const (
	EntryDeposit    EntryType = "deposit"
	EntryWithdrawal EntryType = "withdrawal"
	EntryPayment    EntryType = "payment"
	EntryRefund     EntryType = "refund"
	EntryCommission EntryType = "commission"
	EntryRelease    EntryType = "release"
	EntryEarning    EntryType = "earning"
)

// EntryStatus is the settlement state of a ledger entry
type EntryStatus string

const (
	EntryPending   EntryStatus = "pending"
	EntryCompleted EntryStatus = "completed"
	EntryFailed    EntryStatus = "failed"
)

// Wallet represents a user's account balances. Available and Locked are both
// kept non-negative by the wallet service; no other code writes them.
type Wallet struct {
	Base
	UserID    uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	User      User            `gorm:"foreignKey:UserID" json:"-"`
	Currency  Currency        `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	Available decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"available"`
	Locked    decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"locked"`
}

// LedgerEntry is one immutable record of a balance-affecting event.
// Entries are only ever inserted; corrections happen through new offsetting
// entries. Amounts are signed: negative for debits.
type LedgerEntry struct {
	Base
	WalletID      uuid.UUID       `gorm:"type:uuid;index;not null" json:"wallet_id"`
	Wallet        Wallet          `gorm:"foreignKey:WalletID" json:"-"`
	Type          EntryType       `gorm:"type:varchar(20);not null" json:"type"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Status        EntryStatus     `gorm:"type:varchar(20);not null" json:"status"`
	Reference     string          `gorm:"type:varchar(100);index" json:"reference"`
	Description   string          `gorm:"type:text" json:"description"`
	MetaData      JSON            `gorm:"type:jsonb" json:"metadata,omitempty"`
	BalanceBefore decimal.Decimal `gorm:"type:decimal(20,2)" json:"balance_before"`
	BalanceAfter  decimal.Decimal `gorm:"type:decimal(20,2)" json:"balance_after"`
}
