package auth

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cargolink/backend/internal/models"
	"github.com/cargolink/backend/internal/services/referral"
	"github.com/cargolink/backend/internal/utils"
)

func setupTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.AgentProfile{}))
	return db
}

func newService(db *gorm.DB) *AuthService {
	return NewAuthService(db, referral.NewReferralService(db))
}

func seedApprovedAgent(t *testing.T, db *gorm.DB, code string) *models.User {
	agent := models.User{
		Email:        "agent@cargolink.test",
		PasswordHash: "x",
		FirstName:    "Abena",
		LastName:     "Sarpong",
		Role:         models.RoleAgent,
		Status:       models.StatusApproved,
	}
	require.NoError(t, db.Create(&agent).Error)
	profile := models.AgentProfile{
		UserID:         agent.ID,
		ReferralCode:   &code,
		CommissionRate: decimal.NewFromInt(5),
		IsActive:       true,
	}
	require.NoError(t, db.Create(&profile).Error)
	return &agent
}

func TestRegisterCustomerWithReferralCode(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(db)
	agent := seedApprovedAgent(t, db, "REFFER01")

	user, err := svc.RegisterCustomer(RegisterCustomerInput{
		Email:        "buyer@cargolink.test",
		Password:     "secret1234",
		FirstName:    "Kojo",
		LastName:     "Antwi",
		ReferralCode: "REFFER01",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleCustomer, user.Role)
	assert.Equal(t, models.StatusPending, user.Status)
	require.NotNil(t, user.ReferredBy)
	assert.Equal(t, agent.ID, *user.ReferredBy)
	assert.NotEqual(t, "secret1234", user.PasswordHash, "password is stored hashed")
}

func TestRegisterCustomerWithoutCode(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(db)

	user, err := svc.RegisterCustomer(RegisterCustomerInput{
		Email:     "buyer@cargolink.test",
		Password:  "secret1234",
		FirstName: "Kojo",
		LastName:  "Antwi",
	})
	require.NoError(t, err)
	assert.Nil(t, user.ReferredBy)
}

func TestRegisterCustomerInvalidCode(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(db)

	_, err := svc.RegisterCustomer(RegisterCustomerInput{
		Email:        "buyer@cargolink.test",
		Password:     "secret1234",
		FirstName:    "Kojo",
		LastName:     "Antwi",
		ReferralCode: "NOSUCH99",
	})
	assert.ErrorIs(t, err, ErrInvalidReferralCode)
}

func TestRegisterCustomerDuplicateEmail(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(db)

	input := RegisterCustomerInput{
		Email:     "buyer@cargolink.test",
		Password:  "secret1234",
		FirstName: "Kojo",
		LastName:  "Antwi",
	}
	_, err := svc.RegisterCustomer(input)
	require.NoError(t, err)

	_, err = svc.RegisterCustomer(input)
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterAgentCreatesProfileWithoutCode(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(db)

	user, profile, err := svc.RegisterAgent(RegisterAgentInput{
		Email:     "agent@cargolink.test",
		Password:  "secret1234",
		FirstName: "Abena",
		LastName:  "Sarpong",
		BankName:  "GCB",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAgent, user.Role)
	assert.Equal(t, models.StatusPending, user.Status)
	assert.Nil(t, profile.ReferralCode, "codes are only issued at approval")
	assert.True(t, profile.CommissionRate.Equal(models.DefaultCommissionRate))
}

func TestLogin(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(db)

	hash, err := utils.HashPassword("secret1234")
	require.NoError(t, err)
	user := models.User{
		Email:        "buyer@cargolink.test",
		PasswordHash: hash,
		Role:         models.RoleCustomer,
		Status:       models.StatusApproved,
	}
	require.NoError(t, db.Create(&user).Error)

	loggedIn, tokens, err := svc.Login("buyer@cargolink.test", "secret1234")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)

	_, _, err = svc.Login("buyer@cargolink.test", "wrongpass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login("nobody@cargolink.test", "secret1234")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginPendingAccountBlocked(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(db)

	hash, err := utils.HashPassword("secret1234")
	require.NoError(t, err)
	user := models.User{
		Email:        "buyer@cargolink.test",
		PasswordHash: hash,
		Role:         models.RoleCustomer,
		Status:       models.StatusPending,
	}
	require.NoError(t, db.Create(&user).Error)

	_, _, err = svc.Login("buyer@cargolink.test", "secret1234")
	assert.ErrorIs(t, err, ErrAccountNotApproved)
}
