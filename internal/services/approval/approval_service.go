package approval

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cargolink/backend/internal/models"
	"github.com/cargolink/backend/internal/services/referral"
)

// Action is an admin decision on a pending or existing account
type Action string

const (
	ActionApprove    Action = "approve"
	ActionReject     Action = "reject"
	ActionDeactivate Action = "deactivate"
)

// DefaultReason is recorded when an admin rejects or deactivates without one
const DefaultReason = "No reason provided"

var (
	ErrUserNotFound = errors.New("user not found")
	ErrAlreadyInState = errors.New("user is already in the requested state")
	ErrInvalidAction = errors.New("invalid approval action")
	ErrInvalidTransition = errors.New("status transition not allowed")
	// ErrProfileInconsistent blocks agent approval when the agent profile is
	// missing; approving would leave an agent no customer can ever cite.
	ErrProfileInconsistent = errors.New("agent profile missing or inconsistent")
)

// Notifier delivers status-change notices. Delivery is best-effort: a
// failure is logged and never rolls back the transition.
type Notifier interface {
	NotifyStatusChange(user *models.User, action Action, referralCode, reason string) error
}

// ApprovalService drives the admin approval state machine. Agent approval
// additionally issues the referral code, inside the same transaction, so an
// agent is never approved without a code.
type ApprovalService struct {
	db        *gorm.DB
	referrals *referral.ReferralService
	notifier  Notifier
}

// NewApprovalService creates a new approval service
func NewApprovalService(db *gorm.DB, referrals *referral.ReferralService, notifier Notifier) *ApprovalService {
	return &ApprovalService{db: db, referrals: referrals, notifier: notifier}
}

// Transition applies an admin action to a user. Allowed transitions:
// pending -> approved/rejected, any -> deactivated, and re-approval from
// rejected or deactivated. The audit fields of the two states not entered
// are cleared so only the current status carries a record.
func (s *ApprovalService) Transition(userID, actorID uuid.UUID, action Action, reason string) (*models.User, error) {
	var user models.User
	var issuedCode string

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("error finding user: %w", err)
		}

		target, err := targetStatus(action)
		if err != nil {
			return err
		}
		if user.Status == target {
			return ErrAlreadyInState
		}
		if action == ActionReject && user.Status != models.StatusPending {
			return ErrInvalidTransition
		}

		now := time.Now()
		switch action {
		case ActionApprove:
			if user.Role == models.RoleAgent {
				code, err := s.ensureReferralCode(tx, user.ID)
				if err != nil {
					return err
				}
				issuedCode = code
			}
			user.Status = models.StatusApproved
			user.ApprovedBy = &actorID
			user.ApprovedAt = &now
			user.RejectedBy = nil
			user.RejectedAt = nil
			user.RejectionReason = nil
			user.DeactivatedBy = nil
			user.DeactivatedAt = nil
			user.DeactivationReason = nil

		case ActionReject:
			r := orDefault(reason)
			user.Status = models.StatusRejected
			user.RejectedBy = &actorID
			user.RejectedAt = &now
			user.RejectionReason = &r
			user.ApprovedBy = nil
			user.ApprovedAt = nil
			user.DeactivatedBy = nil
			user.DeactivatedAt = nil
			user.DeactivationReason = nil

		case ActionDeactivate:
			r := orDefault(reason)
			user.Status = models.StatusDeactivated
			user.DeactivatedBy = &actorID
			user.DeactivatedAt = &now
			user.DeactivationReason = &r
			user.ApprovedBy = nil
			user.ApprovedAt = nil
			user.RejectedBy = nil
			user.RejectedAt = nil
			user.RejectionReason = nil
		}

		if err := tx.Save(&user).Error; err != nil {
			return fmt.Errorf("error saving user status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyStatusChange(&user, action, issuedCode, orDefault(reason)); err != nil {
			log.Printf("failed to queue status notification for user %s: %v", user.ID, err)
		}
	}

	return &user, nil
}

// ensureReferralCode verifies the agent profile exists and issues a code if
// the profile has none yet. Codes are never regenerated or reassigned.
func (s *ApprovalService) ensureReferralCode(tx *gorm.DB, userID uuid.UUID) (string, error) {
	var profile models.AgentProfile
	if err := tx.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrProfileInconsistent
		}
		return "", fmt.Errorf("error finding agent profile: %w", err)
	}

	if profile.ReferralCode != nil {
		return *profile.ReferralCode, nil
	}

	code, err := s.referrals.GenerateCodeTx(tx)
	if err != nil {
		return "", err
	}
	profile.ReferralCode = &code
	if err := tx.Save(&profile).Error; err != nil {
		return "", fmt.Errorf("error saving referral code: %w", err)
	}
	return code, nil
}

func targetStatus(action Action) (models.UserStatus, error) {
	switch action {
	case ActionApprove:
		return models.StatusApproved, nil
	case ActionReject:
		return models.StatusRejected, nil
	case ActionDeactivate:
		return models.StatusDeactivated, nil
	default:
		return "", ErrInvalidAction
	}
}

func orDefault(reason string) string {
	if reason == "" {
		return DefaultReason
	}
	return reason
}
