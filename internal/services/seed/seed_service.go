package seed

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/cargolink/backend/internal/config"
	"github.com/cargolink/backend/internal/models"
	"github.com/cargolink/backend/internal/services/email"
	"github.com/cargolink/backend/internal/utils"
)

// ErrNoAdminPassword means seeding was requested without a password set
var ErrNoAdminPassword = errors.New("SEED_ADMIN_PASSWORD is not set")

// SeedService bootstraps the platform's first admin account
type SeedService struct {
	db     *gorm.DB
	emails *email.EmailService
}

// NewSeedService creates a new seed service
func NewSeedService(db *gorm.DB, emails *email.EmailService) *SeedService {
	return &SeedService{db: db, emails: emails}
}

// SeedAdmin creates the super admin account if none exists. Idempotent: a
// second run is a no-op. The welcome email is best-effort and a failure
// never unwinds the created account.
func (s *SeedService) SeedAdmin(cfg config.SeedConfig) error {
	var count int64
	if err := s.db.Model(&models.User{}).Where("role = ?", models.RoleSuperAdmin).Count(&count).Error; err != nil {
		return fmt.Errorf("error checking for existing admin: %w", err)
	}
	if count > 0 {
		return nil
	}

	if cfg.AdminPassword == "" {
		return ErrNoAdminPassword
	}

	hash, err := utils.HashPassword(cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("error hashing admin password: %w", err)
	}

	now := time.Now()
	admin := models.User{
		Email:        cfg.AdminEmail,
		PasswordHash: hash,
		FirstName:    "Platform",
		LastName:     "Admin",
		Role:         models.RoleSuperAdmin,
		Status:       models.StatusApproved,
		ApprovedAt:   &now,
	}
	if err := s.db.Create(&admin).Error; err != nil {
		return fmt.Errorf("error creating admin account: %w", err)
	}
	log.Printf("Seeded super admin account %s", admin.Email)

	if s.emails != nil {
		if err := s.emails.SendAdminWelcomeEmail(admin.Email); err != nil {
			log.Printf("Failed to send admin welcome email: %v", err)
		}
	}
	return nil
}
