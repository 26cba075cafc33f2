package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cargolink/backend/internal/services/commission"
	"github.com/cargolink/backend/internal/services/order"
	"github.com/cargolink/backend/internal/services/wallet"
)

// OrderHandler handles purchase and order history requests
type OrderHandler struct {
	orders *order.OrderService
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders *order.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// PurchaseRequest represents the request body for a purchase
type PurchaseRequest struct {
	ItemDescription string          `json:"item_description" binding:"required"`
	Amount          decimal.Decimal `json:"amount" binding:"required"`
}

// Purchase pays for an order from the caller's wallet and distributes
// commission to the referring agent if there is one
func (h *OrderHandler) Purchase(c *gin.Context) {
	userID := c.MustGet("user_id").(uuid.UUID)

	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ord, result, err := h.orders.Purchase(userID, req.ItemDescription, req.Amount)
	if err != nil {
		var distErr *commission.DistributionError
		switch {
		case errors.Is(err, wallet.ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Amount must be positive"})
		case errors.Is(err, order.ErrMissingItem):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Item description is required"})
		case errors.Is(err, wallet.ErrInsufficientFunds):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Insufficient available balance"})
		case errors.As(err, &distErr):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to distribute commission"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to complete purchase"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"order":           ord,
		"commission_paid": result.CommissionPaid,
	})
}

// ListOrders returns the caller's orders, newest first
func (h *OrderHandler) ListOrders(c *gin.Context) {
	userID := c.MustGet("user_id").(uuid.UUID)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	orders, total, err := h.orders.ListOrders(userID, page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list orders"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders":    orders,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}
