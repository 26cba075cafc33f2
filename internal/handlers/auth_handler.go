package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cargolink/backend/internal/services/auth"
)

// AuthHandler handles authentication related requests
type AuthHandler struct {
	auth *auth.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *auth.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// RegisterCustomerRequest represents the request body for customer signup
type RegisterCustomerRequest struct {
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required,min=8"`
	FirstName    string `json:"first_name" binding:"required"`
	LastName     string `json:"last_name" binding:"required"`
	Phone        string `json:"phone"`
	ReferralCode string `json:"referral_code"`
}

// RegisterAgentRequest represents the request body for agent signup
type RegisterAgentRequest struct {
	Email         string `json:"email" binding:"required,email"`
	Password      string `json:"password" binding:"required,min=8"`
	FirstName     string `json:"first_name" binding:"required"`
	LastName      string `json:"last_name" binding:"required"`
	Phone         string `json:"phone"`
	BankName      string `json:"bank_name"`
	BankAccount   string `json:"bank_account"`
	PaymentMethod string `json:"payment_method"`
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RegisterCustomer handles customer registration
func (h *AuthHandler) RegisterCustomer(c *gin.Context) {
	var req RegisterCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.auth.RegisterCustomer(auth.RegisterCustomerInput{
		Email:        req.Email,
		Password:     req.Password,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		ReferralCode: req.ReferralCode,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailTaken):
			c.JSON(http.StatusConflict, gin.H{"error": "Email already in use"})
		case errors.Is(err, auth.ErrInvalidReferralCode):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid referral code"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Registration successful. Your account is pending approval.",
		"user":    user,
	})
}

// RegisterAgent handles agent registration
func (h *AuthHandler) RegisterAgent(c *gin.Context) {
	var req RegisterAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, profile, err := h.auth.RegisterAgent(auth.RegisterAgentInput{
		Email:         req.Email,
		Password:      req.Password,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Phone:         req.Phone,
		BankName:      req.BankName,
		BankAccount:   req.BankAccount,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "Email already in use"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Registration successful. Your account is pending approval.",
		"user":    user,
		"profile": profile,
	})
}

// Login handles user login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, tokens, err := h.auth.Login(req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		case errors.Is(err, auth.ErrAccountNotApproved):
			c.JSON(http.StatusForbidden, gin.H{"error": "Account is not approved"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sign in"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":          user,
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_in":    tokens.ExpiresIn,
		"token_type":    "Bearer",
	})
}
