package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cargolink/backend/internal/models"
	"github.com/cargolink/backend/internal/services/referral"
	"github.com/cargolink/backend/internal/utils"
)

var (
	ErrEmailTaken          = errors.New("email is already registered")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrAccountNotApproved  = errors.New("account is not approved")
	ErrInvalidReferralCode = errors.New("referral code is not valid")
)

// AuthService registers users and authenticates logins. Registration is
// where a customer's referral relationship is bound; it never changes after.
type AuthService struct {
	db        *gorm.DB
	referrals *referral.ReferralService
}

// NewAuthService creates a new auth service
func NewAuthService(db *gorm.DB, referrals *referral.ReferralService) *AuthService {
	return &AuthService{db: db, referrals: referrals}
}

// RegisterCustomerInput is the payload for customer signup
type RegisterCustomerInput struct {
	Email        string
	Password     string
	FirstName    string
	LastName     string
	Phone        string
	ReferralCode string
}

// RegisterCustomer creates a pending customer account, binding the referral
// relationship when a code is supplied
func (s *AuthService) RegisterCustomer(input RegisterCustomerInput) (*models.User, error) {
	if err := utils.ValidatePassword(input.Password); err != nil {
		return nil, err
	}

	var referredBy *uuid.UUID
	if input.ReferralCode != "" {
		agent, _, err := s.referrals.FindAgentByCode(input.ReferralCode)
		if err != nil {
			if errors.Is(err, referral.ErrCodeNotFound) {
				return nil, ErrInvalidReferralCode
			}
			return nil, err
		}
		referredBy = &agent.ID
	}

	hash, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := models.User{
		Email:        input.Email,
		PasswordHash: hash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Phone:        input.Phone,
		Role:         models.RoleCustomer,
		Status:       models.StatusPending,
		ReferredBy:   referredBy,
	}
	if err := s.createUser(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

// RegisterAgentInput is the payload for agent signup
type RegisterAgentInput struct {
	Email         string
	Password      string
	FirstName     string
	LastName      string
	Phone         string
	BankName      string
	BankAccount   string
	PaymentMethod string
}

// RegisterAgent creates a pending agent account together with its profile.
// The referral code stays unset until an admin approves the agent.
func (s *AuthService) RegisterAgent(input RegisterAgentInput) (*models.User, *models.AgentProfile, error) {
	if err := utils.ValidatePassword(input.Password); err != nil {
		return nil, nil, err
	}

	hash, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := models.User{
		Email:        input.Email,
		PasswordHash: hash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Phone:        input.Phone,
		Role:         models.RoleAgent,
		Status:       models.StatusPending,
	}
	profile := models.AgentProfile{
		CommissionRate: models.DefaultCommissionRate,
		BankName:       input.BankName,
		BankAccount:    input.BankAccount,
		PaymentMethod:  input.PaymentMethod,
		IsActive:       true,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.checkEmailFree(tx, user.Email); err != nil {
			return err
		}
		if err := tx.Create(&user).Error; err != nil {
			return fmt.Errorf("error creating user: %w", err)
		}
		profile.UserID = user.ID
		if err := tx.Create(&profile).Error; err != nil {
			return fmt.Errorf("error creating agent profile: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &user, &profile, nil
}

// Login verifies credentials and issues a token pair. Only approved
// accounts can sign in.
func (s *AuthService) Login(email, password string) (*models.User, utils.TokenPair, error) {
	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.TokenPair{}, ErrInvalidCredentials
		}
		return nil, utils.TokenPair{}, fmt.Errorf("error finding user: %w", err)
	}

	if !utils.CheckPasswordHash(password, user.PasswordHash) {
		return nil, utils.TokenPair{}, ErrInvalidCredentials
	}
	if user.Status != models.StatusApproved {
		return nil, utils.TokenPair{}, ErrAccountNotApproved
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.db.Model(&user).Update("last_login_at", now).Error; err != nil {
		return nil, utils.TokenPair{}, fmt.Errorf("error recording login: %w", err)
	}

	pair, err := utils.GenerateTokenPair(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, utils.TokenPair{}, fmt.Errorf("error generating tokens: %w", err)
	}
	return &user, pair, nil
}

func (s *AuthService) createUser(user *models.User) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.checkEmailFree(tx, user.Email); err != nil {
			return err
		}
		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("error creating user: %w", err)
		}
		return nil
	})
}

func (s *AuthService) checkEmailFree(tx *gorm.DB, email string) error {
	var count int64
	if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return fmt.Errorf("error checking email: %w", err)
	}
	if count > 0 {
		return ErrEmailTaken
	}
	return nil
}
