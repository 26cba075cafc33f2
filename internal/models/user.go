package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UserRole identifies which dashboard and permissions a user gets
type UserRole string

const (
	RoleSuperAdmin UserRole = "super_admin"
	RoleAdmin      UserRole = "admin"
	RoleSupplier   UserRole = "supplier"
	RoleAgent      UserRole = "agent"
	RoleCustomer   UserRole = "customer"
)

// UserStatus is the admin-driven account state
type UserStatus string

const (
	StatusPending     UserStatus = "pending"
	StatusApproved    UserStatus = "approved"
	StatusRejected    UserStatus = "rejected"
	StatusDeactivated UserStatus = "deactivated"
)

// User represents a platform account. Role-specific data lives in the
// one-to-one profile tables (AgentProfile for agents); the user row itself
// only carries the role tag and the approval state machine.
type User struct {
	Base
	Email        string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"type:varchar(255);not null" json:"-"`
	FirstName    string     `gorm:"type:varchar(100)" json:"first_name"`
	LastName     string     `gorm:"type:varchar(100)" json:"last_name"`
	Phone        string     `gorm:"type:varchar(20)" json:"phone"`
	Role         UserRole   `gorm:"type:varchar(20);not null;index:idx_users_role_status" json:"role"`
	Status       UserStatus `gorm:"type:varchar(20);not null;default:'pending';index:idx_users_role_status" json:"status"`

	// Referral binding, fixed at registration time and never reassigned.
	ReferredBy *uuid.UUID `gorm:"type:uuid;index" json:"referred_by,omitempty"`

	// Approval audit trail. Only the fields matching the current status are
	// ever set; transitioning clears the other two groups.
	ApprovedBy         *uuid.UUID `gorm:"type:uuid" json:"approved_by,omitempty"`
	ApprovedAt         *time.Time `json:"approved_at,omitempty"`
	RejectedBy         *uuid.UUID `gorm:"type:uuid" json:"rejected_by,omitempty"`
	RejectedAt         *time.Time `json:"rejected_at,omitempty"`
	RejectionReason    *string    `gorm:"type:varchar(500)" json:"rejection_reason,omitempty"`
	DeactivatedBy      *uuid.UUID `gorm:"type:uuid" json:"deactivated_by,omitempty"`
	DeactivatedAt      *time.Time `json:"deactivated_at,omitempty"`
	DeactivationReason *string    `gorm:"type:varchar(500)" json:"deactivation_reason,omitempty"`

	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// FullName returns the display name used in ledger descriptions and emails
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// IsAdmin reports whether the user can perform admin-only operations
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.Role == RoleSuperAdmin
}

// DefaultCommissionRate is the percentage applied to new agent profiles
var DefaultCommissionRate = decimal.NewFromInt(5)

// AgentProfile holds agent-specific data, one row per agent user.
// ReferralCode stays nil until the agent is approved and is never reassigned
// afterwards, even if the agent is deactivated.
type AgentProfile struct {
	Base
	UserID         uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	User           User            `gorm:"foreignKey:UserID" json:"-"`
	ReferralCode   *string         `gorm:"type:varchar(8);uniqueIndex" json:"referral_code,omitempty"`
	CommissionRate decimal.Decimal `gorm:"type:decimal(5,2);not null;default:5" json:"commission_rate"`
	BankName       string          `gorm:"type:varchar(100)" json:"bank_name"`
	BankAccount    string          `gorm:"type:varchar(50)" json:"bank_account"`
	PaymentMethod  string          `gorm:"type:varchar(50)" json:"payment_method"`
	IsActive       bool            `gorm:"default:true" json:"is_active"`
}
