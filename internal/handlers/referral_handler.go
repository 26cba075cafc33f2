package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cargolink/backend/internal/models"
	"github.com/cargolink/backend/internal/services/referral"
)

// ReferralHandler handles referral code requests
type ReferralHandler struct {
	db        *gorm.DB
	referrals *referral.ReferralService
}

// NewReferralHandler creates a new referral handler
func NewReferralHandler(db *gorm.DB, referrals *referral.ReferralService) *ReferralHandler {
	return &ReferralHandler{db: db, referrals: referrals}
}

// GetMyCode returns the calling agent's referral code
func (h *ReferralHandler) GetMyCode(c *gin.Context) {
	userID := c.MustGet("user_id").(uuid.UUID)

	var profile models.AgentProfile
	if err := h.db.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Agent profile not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profile"})
		return
	}

	if profile.ReferralCode == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Referral code not issued yet"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"referral_code":   *profile.ReferralCode,
		"commission_rate": profile.CommissionRate,
	})
}

// LookupCode resolves a referral code to the agent that owns it. Used by
// signup forms to validate a code before submitting.
func (h *ReferralHandler) LookupCode(c *gin.Context) {
	code := c.Param("code")

	agent, profile, err := h.referrals.FindAgentByCode(code)
	if err != nil {
		if errors.Is(err, referral.ErrCodeNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Referral code not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up code"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"agent_name":      agent.FullName(),
		"commission_rate": profile.CommissionRate,
	})
}
