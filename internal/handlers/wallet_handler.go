package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cargolink/backend/internal/models"
	"github.com/cargolink/backend/internal/services/wallet"
	"github.com/cargolink/backend/internal/utils"
)

// WalletHandler handles wallet and ledger requests
type WalletHandler struct {
	wallets *wallet.WalletService
}

// NewWalletHandler creates a new wallet handler
func NewWalletHandler(wallets *wallet.WalletService) *WalletHandler {
	return &WalletHandler{wallets: wallets}
}

// AmountRequest represents the request body for deposit and withdrawal
type AmountRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Description string          `json:"description"`
}

// GetWallet returns the caller's wallet, creating it on first use
func (h *WalletHandler) GetWallet(c *gin.Context) {
	userID := c.MustGet("user_id").(uuid.UUID)

	w, err := h.wallets.GetOrCreateWallet(userID, models.DefaultCurrency)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load wallet"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"wallet": w})
}

// GetLedger returns the caller's ledger entries, newest first
func (h *WalletHandler) GetLedger(c *gin.Context) {
	userID := c.MustGet("user_id").(uuid.UUID)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	w, err := h.wallets.GetOrCreateWallet(userID, models.DefaultCurrency)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load wallet"})
		return
	}

	entries, total, err := h.wallets.GetLedger(w.ID, page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load ledger"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries":   entries,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// Deposit credits the caller's wallet
func (h *WalletHandler) Deposit(c *gin.Context) {
	userID := c.MustGet("user_id").(uuid.UUID)

	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	description := req.Description
	if description == "" {
		description = "Wallet deposit"
	}

	entry, err := h.wallets.Credit(userID, req.Amount, models.EntryDeposit,
		utils.GenerateTransactionReference("dep"), description)
	if err != nil {
		if errors.Is(err, wallet.ErrInvalidAmount) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Amount must be positive"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to deposit"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"entry": entry})
}

// Withdraw debits the caller's available balance
func (h *WalletHandler) Withdraw(c *gin.Context) {
	userID := c.MustGet("user_id").(uuid.UUID)

	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	description := req.Description
	if description == "" {
		description = "Wallet withdrawal"
	}

	entry, err := h.wallets.Debit(userID, req.Amount, models.EntryWithdrawal,
		utils.GenerateTransactionReference("wd"), description)
	if err != nil {
		switch {
		case errors.Is(err, wallet.ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Amount must be positive"})
		case errors.Is(err, wallet.ErrInsufficientFunds):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Insufficient available balance"})
		case errors.Is(err, wallet.ErrWalletNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Wallet not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to withdraw"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"entry": entry})
}
