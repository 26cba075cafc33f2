package commission

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cargolink/backend/internal/models"
	"github.com/cargolink/backend/internal/services/wallet"
)

func setupTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.AgentProfile{},
		&models.Wallet{},
		&models.LedgerEntry{},
	))
	return db
}

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func newService(db *gorm.DB) *CommissionService {
	return NewCommissionService(db, wallet.NewWalletService(db))
}

func createAgentWithRate(t *testing.T, db *gorm.DB, email string, rate decimal.Decimal) *models.User {
	agent := models.User{
		Email:        email,
		PasswordHash: "x",
		FirstName:    "Kofi",
		LastName:     "Boateng",
		Role:         models.RoleAgent,
		Status:       models.StatusApproved,
	}
	require.NoError(t, db.Create(&agent).Error)
	code := "AGENTX0" + email[:1]
	profile := models.AgentProfile{
		UserID:         agent.ID,
		ReferralCode:   &code,
		CommissionRate: rate,
		IsActive:       true,
	}
	require.NoError(t, db.Create(&profile).Error)
	return &agent
}

func createBuyer(t *testing.T, db *gorm.DB, email string, referredBy *uuid.UUID) *models.User {
	buyer := models.User{
		Email:        email,
		PasswordHash: "x",
		FirstName:    "Efua",
		LastName:     "Owusu",
		Role:         models.RoleCustomer,
		Status:       models.StatusApproved,
		ReferredBy:   referredBy,
	}
	require.NoError(t, db.Create(&buyer).Error)
	return &buyer
}

func TestDistributePaysReferringAgent(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(db)
	wallets := wallet.NewWalletService(db)

	agent := createAgentWithRate(t, db, "a@cargolink.test", dec("5"))
	buyer := createBuyer(t, db, "b@cargolink.test", &agent.ID)

	result, err := svc.Distribute(buyer.ID, dec("200.00"), "ord-1")
	require.NoError(t, err)
	assert.True(t, result.CommissionPaid.Equal(dec("10.00")), "5%% of 200.00")
	require.NotNil(t, result.AgentID)
	assert.Equal(t, agent.ID, *result.AgentID)

	w, err := wallets.GetWalletByUser(agent.ID)
	require.NoError(t, err)
	assert.True(t, w.Available.Equal(dec("10.00")))

	var entry models.LedgerEntry
	require.NoError(t, db.Where("wallet_id = ?", w.ID).First(&entry).Error)
	assert.Equal(t, models.EntryCommission, entry.Type)
	assert.Equal(t, "ord-1", entry.Reference)
	assert.Contains(t, entry.Description, "Efua Owusu")
}

func TestDistributeRoundsToCents(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(db)

	agent := createAgentWithRate(t, db, "a@cargolink.test", dec("7.5"))
	buyer := createBuyer(t, db, "b@cargolink.test", &agent.ID)

	// 33.33 * 7.5% = 2.49975, rounds to 2.50
	result, err := svc.Distribute(buyer.ID, dec("33.33"), "ord-1")
	require.NoError(t, err)
	assert.True(t, result.CommissionPaid.Equal(dec("2.50")))
}

func TestDistributeCommissionRoundsToZero(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(db)

	agent := createAgentWithRate(t, db, "a@cargolink.test", dec("5"))
	buyer := createBuyer(t, db, "b@cargolink.test", &agent.ID)

	// 0.05 * 5% = 0.0025, rounds to 0.00: the purchase still succeeds
	// with a zero commission rather than failing the credit
	result, err := svc.Distribute(buyer.ID, dec("0.05"), "ord-tiny")
	require.NoError(t, err)
	assert.True(t, result.CommissionPaid.IsZero())
	require.NotNil(t, result.AgentID)
	assert.Equal(t, agent.ID, *result.AgentID)

	var count int64
	db.Model(&models.LedgerEntry{}).Count(&count)
	assert.Zero(t, count, "no ledger entry for a zero commission")
}

func TestDistributeNoReferrerIsNoOp(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(db)

	buyer := createBuyer(t, db, "b@cargolink.test", nil)

	result, err := svc.Distribute(buyer.ID, dec("200.00"), "ord-1")
	require.NoError(t, err)
	assert.True(t, result.CommissionPaid.IsZero())
	assert.Nil(t, result.AgentID)

	var count int64
	db.Model(&models.LedgerEntry{}).Count(&count)
	assert.Zero(t, count, "no ledger entry when no referrer")
}

func TestDistributeReferrerLostAgentRole(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(db)

	referrer := models.User{
		Email:        "ex-agent@cargolink.test",
		PasswordHash: "x",
		Role:         models.RoleCustomer,
		Status:       models.StatusApproved,
	}
	require.NoError(t, db.Create(&referrer).Error)
	buyer := createBuyer(t, db, "b@cargolink.test", &referrer.ID)

	result, err := svc.Distribute(buyer.ID, dec("200.00"), "ord-1")
	require.NoError(t, err)
	assert.True(t, result.CommissionPaid.IsZero())
	assert.Nil(t, result.AgentID)
}

func TestDistributeZeroRateKeepsAgentIdentity(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(db)

	agent := createAgentWithRate(t, db, "a@cargolink.test", decimal.Zero)
	buyer := createBuyer(t, db, "b@cargolink.test", &agent.ID)

	result, err := svc.Distribute(buyer.ID, dec("200.00"), "ord-1")
	require.NoError(t, err)
	assert.True(t, result.CommissionPaid.IsZero())
	require.NotNil(t, result.AgentID, "zero rate still identifies the agent")
	assert.Equal(t, agent.ID, *result.AgentID)
}

func TestDistributeMissingProfileTreatedAsZeroRate(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(db)

	agent := models.User{
		Email:        "a@cargolink.test",
		PasswordHash: "x",
		Role:         models.RoleAgent,
		Status:       models.StatusApproved,
	}
	require.NoError(t, db.Create(&agent).Error)
	buyer := createBuyer(t, db, "b@cargolink.test", &agent.ID)

	result, err := svc.Distribute(buyer.ID, dec("200.00"), "ord-1")
	require.NoError(t, err)
	assert.True(t, result.CommissionPaid.IsZero())
	require.NotNil(t, result.AgentID)
}

func TestDistributeIdempotentPerOrder(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(db)
	wallets := wallet.NewWalletService(db)

	agent := createAgentWithRate(t, db, "a@cargolink.test", dec("5"))
	buyer := createBuyer(t, db, "b@cargolink.test", &agent.ID)

	first, err := svc.Distribute(buyer.ID, dec("200.00"), "ord-1")
	require.NoError(t, err)
	second, err := svc.Distribute(buyer.ID, dec("200.00"), "ord-1")
	require.NoError(t, err)

	assert.True(t, first.CommissionPaid.Equal(second.CommissionPaid))

	w, err := wallets.GetWalletByUser(agent.ID)
	require.NoError(t, err)
	assert.True(t, w.Available.Equal(dec("10.00")), "retried order pays at most once")

	var count int64
	db.Model(&models.LedgerEntry{}).Where("wallet_id = ?", w.ID).Count(&count)
	assert.Equal(t, int64(1), count)

	// A different order pays again
	_, err = svc.Distribute(buyer.ID, dec("200.00"), "ord-2")
	require.NoError(t, err)
	w, _ = wallets.GetWalletByUser(agent.ID)
	assert.True(t, w.Available.Equal(dec("20.00")))
}

func TestDistributeBuyerNotFound(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(db)

	_, err := svc.Distribute(uuid.New(), dec("200.00"), "ord-1")
	require.Error(t, err)

	var distErr *DistributionError
	assert.ErrorAs(t, err, &distErr)
	assert.ErrorIs(t, err, ErrBuyerNotFound)
}

func TestDistributeInvalidAmount(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(db)

	buyer := createBuyer(t, db, "b@cargolink.test", nil)

	_, err := svc.Distribute(buyer.ID, decimal.Zero, "ord-1")
	assert.ErrorIs(t, err, wallet.ErrInvalidAmount)
}
