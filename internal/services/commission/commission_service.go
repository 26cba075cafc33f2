package commission

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cargolink/backend/internal/models"
	"github.com/cargolink/backend/internal/services/wallet"
)

// ErrBuyerNotFound means the purchase references a user that does not exist
var ErrBuyerNotFound = errors.New("buyer not found")

// DistributionError wraps any failure that aborted a distribution. The whole
// transaction rolls back before it is returned, so a caller seeing it can
// retry the distribution safely.
type DistributionError struct {
	Err error
}

func (e *DistributionError) Error() string {
	return fmt.Sprintf("commission distribution failed: %v", e.Err)
}

func (e *DistributionError) Unwrap() error {
	return e.Err
}

// Result is the outcome of a distribution. CommissionPaid zero with a nil
// AgentID means no referrer was involved; zero with an AgentID means the
// agent's rate is zero. Neither is an error.
type Result struct {
	CommissionPaid decimal.Decimal `json:"commission_paid"`
	AgentID        *uuid.UUID      `json:"agent_id"`
}

// CommissionService credits referring agents for their customers' purchases
type CommissionService struct {
	db      *gorm.DB
	wallets *wallet.WalletService
}

// NewCommissionService creates a new commission service
func NewCommissionService(db *gorm.DB, wallets *wallet.WalletService) *CommissionService {
	return &CommissionService{db: db, wallets: wallets}
}

// Distribute resolves the buyer's referring agent and credits the agent's
// wallet with the commission, all in one transaction. Callers sequence this
// after the buyer's own purchase debit, or compose both via DistributeTx.
func (s *CommissionService) Distribute(buyerID uuid.UUID, purchaseAmount decimal.Decimal, orderRef string) (*Result, error) {
	var result *Result
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = s.DistributeTx(tx, buyerID, purchaseAmount, orderRef)
		return err
	})
	if err != nil {
		return nil, &DistributionError{Err: err}
	}
	return result, nil
}

// DistributeTx runs the distribution inside an existing transaction so the
// purchase debit and the commission credit can commit as one unit.
func (s *CommissionService) DistributeTx(tx *gorm.DB, buyerID uuid.UUID, purchaseAmount decimal.Decimal, orderRef string) (*Result, error) {
	if purchaseAmount.LessThanOrEqual(decimal.Zero) {
		return nil, wallet.ErrInvalidAmount
	}

	var buyer models.User
	if err := tx.First(&buyer, "id = ?", buyerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBuyerNotFound
		}
		return nil, fmt.Errorf("error finding buyer: %w", err)
	}

	// No referrer: the platform keeps the full margin.
	if buyer.ReferredBy == nil {
		return &Result{CommissionPaid: decimal.Zero, AgentID: nil}, nil
	}

	var agent models.User
	err := tx.First(&agent, "id = ?", *buyer.ReferredBy).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &Result{CommissionPaid: decimal.Zero, AgentID: nil}, nil
		}
		return nil, fmt.Errorf("error finding referrer: %w", err)
	}
	// Referrer no longer holds the agent role: referral silently voided.
	if agent.Role != models.RoleAgent {
		return &Result{CommissionPaid: decimal.Zero, AgentID: nil}, nil
	}

	agentID := agent.ID

	var profile models.AgentProfile
	err = tx.Where("user_id = ?", agent.ID).First(&profile).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("error finding agent profile: %w", err)
	}

	rate := decimal.Zero
	if err == nil {
		rate = profile.CommissionRate
	}
	// Zero rate is a valid outcome, distinct from having no referrer.
	if rate.LessThanOrEqual(decimal.Zero) {
		return &Result{CommissionPaid: decimal.Zero, AgentID: &agentID}, nil
	}

	commissionAmount := purchaseAmount.Mul(rate).Div(decimal.NewFromInt(100)).Round(2)
	// A tiny purchase can round the commission down to nothing; that is the
	// zero-commission outcome, not a failed credit.
	if commissionAmount.LessThanOrEqual(decimal.Zero) {
		return &Result{CommissionPaid: decimal.Zero, AgentID: &agentID}, nil
	}

	agentWallet, err := s.wallets.GetOrCreateWalletTx(tx, agent.ID, models.DefaultCurrency)
	if err != nil {
		return nil, err
	}

	// A retried purchase must not pay the agent twice: the ledger's partial
	// unique index on (wallet_id, reference) for commission entries backs
	// this lookup at the storage level.
	var existing models.LedgerEntry
	err = tx.Where("wallet_id = ? AND reference = ? AND type = ?", agentWallet.ID, orderRef, models.EntryCommission).First(&existing).Error
	if err == nil {
		return &Result{CommissionPaid: existing.Amount, AgentID: &agentID}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("error checking existing commission: %w", err)
	}

	description := fmt.Sprintf("Commission for purchase by %s (order %s)", buyer.FullName(), orderRef)
	if _, err := s.wallets.CreditTx(tx, agent.ID, commissionAmount, models.EntryCommission, orderRef, description); err != nil {
		return nil, err
	}

	return &Result{CommissionPaid: commissionAmount, AgentID: &agentID}, nil
}
