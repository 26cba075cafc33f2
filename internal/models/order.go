package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus tracks the purchase lifecycle
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

// Order records a customer purchase. The wallet and commission services only
// read Amount, UserID and Reference; the order lifecycle itself belongs to
// the ordering layer.
type Order struct {
	Base
	UserID          uuid.UUID       `gorm:"type:uuid;index;not null" json:"user_id"`
	User            User            `gorm:"foreignKey:UserID" json:"-"`
	Reference       string          `gorm:"type:varchar(150);uniqueIndex;not null" json:"reference"`
	ItemDescription string          `gorm:"type:text;not null" json:"item_description"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Currency        Currency        `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	Status          OrderStatus     `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	PaidAt          *time.Time      `json:"paid_at,omitempty"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
}
