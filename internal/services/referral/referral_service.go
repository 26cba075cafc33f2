package referral

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"regexp"

	"gorm.io/gorm"

	"github.com/cargolink/backend/internal/models"
)

var (
	// ErrCodeGeneration means the uniqueness check itself failed; callers
	// must not treat the agent as approved without a persisted code.
	ErrCodeGeneration = errors.New("referral code generation failed")
	// ErrCodeNotFound means no active agent owns the given code
	ErrCodeNotFound = errors.New("referral code not found")
)

const (
	codeLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	codeDigits  = "0123456789"

	// Collisions in a 26^6 * 100 space are astronomically rare; needing more
	// than this many attempts points at a data problem worth alerting on.
	retryAlarmThreshold = 20
)

// CodePattern is the canonical referral code format: 6 letters, 2 digits
var CodePattern = regexp.MustCompile(`^[A-Z]{6}[0-9]{2}$`)

// ReferralService issues and resolves agent referral codes. The code itself
// is persisted by the approval workflow; the service only guarantees format
// and global uniqueness.
type ReferralService struct {
	db *gorm.DB
}

// NewReferralService creates a new referral service
func NewReferralService(db *gorm.DB) *ReferralService {
	return &ReferralService{db: db}
}

// GenerateCode produces a unique referral code, regenerating on collision.
// The agent_profiles unique index remains the final arbiter for concurrent
// approvals; this pre-check just keeps the happy path collision-free.
func (s *ReferralService) GenerateCode() (string, error) {
	return s.GenerateCodeTx(s.db)
}

// GenerateCodeTx generates a code using an existing transaction
func (s *ReferralService) GenerateCodeTx(tx *gorm.DB) (string, error) {
	for attempts := 1; ; attempts++ {
		code, err := randomCode()
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrCodeGeneration, err)
		}

		unique, err := s.isUniqueTx(tx, code)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrCodeGeneration, err)
		}
		if unique {
			return code, nil
		}

		if attempts >= retryAlarmThreshold {
			log.Printf("referral code generation still colliding after %d attempts", attempts)
		}
	}
}

// IsUnique reports whether no agent profile holds the given code
func (s *ReferralService) IsUnique(code string) (bool, error) {
	return s.isUniqueTx(s.db, code)
}

func (s *ReferralService) isUniqueTx(tx *gorm.DB, code string) (bool, error) {
	var count int64
	if err := tx.Model(&models.AgentProfile{}).Where("referral_code = ?", code).Count(&count).Error; err != nil {
		return false, fmt.Errorf("error checking referral code uniqueness: %w", err)
	}
	return count == 0, nil
}

// FindAgentByCode resolves a referral code to its approved, active agent.
// Used at customer registration to bind the referral relationship.
func (s *ReferralService) FindAgentByCode(code string) (*models.User, *models.AgentProfile, error) {
	if !CodePattern.MatchString(code) {
		return nil, nil, ErrCodeNotFound
	}

	var profile models.AgentProfile
	err := s.db.Where("referral_code = ? AND is_active = ?", code, true).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrCodeNotFound
		}
		return nil, nil, fmt.Errorf("error finding referral code: %w", err)
	}

	var agent models.User
	if err := s.db.First(&agent, "id = ?", profile.UserID).Error; err != nil {
		return nil, nil, fmt.Errorf("error finding agent for referral code: %w", err)
	}
	if agent.Role != models.RoleAgent || agent.Status != models.StatusApproved {
		return nil, nil, ErrCodeNotFound
	}
	return &agent, &profile, nil
}

// randomCode draws 6 uniform letters and 2 uniform digits from crypto/rand
func randomCode() (string, error) {
	buf := make([]byte, 0, 8)
	for i := 0; i < 6; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeLetters))))
		if err != nil {
			return "", err
		}
		buf = append(buf, codeLetters[n.Int64()])
	}
	for i := 0; i < 2; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeDigits))))
		if err != nil {
			return "", err
		}
		buf = append(buf, codeDigits[n.Int64()])
	}
	return string(buf), nil
}
