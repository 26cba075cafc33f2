package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cargolink/backend/internal/models"
	"github.com/cargolink/backend/internal/services/commission"
	"github.com/cargolink/backend/internal/services/wallet"
	"github.com/cargolink/backend/internal/utils"
)

// ErrMissingItem means the purchase request had no item description
var ErrMissingItem = errors.New("item description is required")

// OrderService records purchases and settles their money movement. The order
// row, the buyer's debit and the agent's commission credit commit as a
// single transaction: a failed distribution also unwinds the debit.
type OrderService struct {
	db          *gorm.DB
	wallets     *wallet.WalletService
	commissions *commission.CommissionService
}

// NewOrderService creates a new order service
func NewOrderService(db *gorm.DB, wallets *wallet.WalletService, commissions *commission.CommissionService) *OrderService {
	return &OrderService{db: db, wallets: wallets, commissions: commissions}
}

// Purchase executes a buyer's purchase end to end
func (s *OrderService) Purchase(buyerID uuid.UUID, itemDescription string, amount decimal.Decimal) (*models.Order, *commission.Result, error) {
	if itemDescription == "" {
		return nil, nil, ErrMissingItem
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, nil, wallet.ErrInvalidAmount
	}

	var order models.Order
	var result *commission.Result

	err := s.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		order = models.Order{
			UserID:          buyerID,
			Reference:       makeReference(itemDescription),
			ItemDescription: itemDescription,
			Amount:          amount,
			Currency:        models.DefaultCurrency,
			Status:          models.OrderCompleted,
			PaidAt:          &now,
			CompletedAt:     &now,
		}
		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("error creating order: %w", err)
		}

		description := fmt.Sprintf("Payment for %s", itemDescription)
		if _, err := s.wallets.DebitTx(tx, buyerID, amount, models.EntryPayment, order.Reference, description); err != nil {
			return err
		}

		var err error
		result, err = s.commissions.DistributeTx(tx, buyerID, amount, order.Reference)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return &order, result, nil
}

// ListOrders returns a user's orders, newest first
func (s *OrderService) ListOrders(userID uuid.UUID, page, pageSize int) ([]models.Order, int64, error) {
	var orders []models.Order
	var total int64

	if err := s.db.Model(&models.Order{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("error counting orders: %w", err)
	}

	offset := (page - 1) * pageSize
	if err := s.db.Where("user_id = ?", userID).Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&orders).Error; err != nil {
		return nil, 0, fmt.Errorf("error finding orders: %w", err)
	}
	return orders, total, nil
}

// makeReference builds a readable, unique order reference from the item
// description, e.g. "ord-container-freight-X7K2Q9W4"
func makeReference(itemDescription string) string {
	s := slug.Make(itemDescription)
	if len(s) > 40 {
		s = s[:40]
	}
	return fmt.Sprintf("ord-%s-%s", s, utils.RandomReferenceSuffix(8))
}
