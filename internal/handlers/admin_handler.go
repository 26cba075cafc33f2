package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cargolink/backend/internal/models"
	"github.com/cargolink/backend/internal/services/approval"
)

// AdminHandler handles account review operations
type AdminHandler struct {
	db        *gorm.DB
	approvals *approval.ApprovalService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(db *gorm.DB, approvals *approval.ApprovalService) *AdminHandler {
	return &AdminHandler{db: db, approvals: approvals}
}

// ReviewRequest represents the request body for an approval decision
type ReviewRequest struct {
	Action string `json:"action" binding:"required,oneof=approve reject deactivate"`
	Reason string `json:"reason"`
}

// ListUsers returns users filtered by status and role
func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	query := h.db.Model(&models.User{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list users"})
		return
	}

	var users []models.User
	if err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list users"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users":     users,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ReviewUser applies an approval decision to a user account
func (h *AdminHandler) ReviewUser(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actorID := c.MustGet("user_id").(uuid.UUID)

	user, err := h.approvals.Transition(userID, actorID, approval.Action(req.Action), req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, approval.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		case errors.Is(err, approval.ErrAlreadyInState):
			c.JSON(http.StatusConflict, gin.H{"error": "User is already in the requested state"})
		case errors.Is(err, approval.ErrInvalidTransition):
			c.JSON(http.StatusConflict, gin.H{"error": "Status transition not allowed"})
		case errors.Is(err, approval.ErrProfileInconsistent):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Agent profile is missing"})
		case errors.Is(err, approval.ErrInvalidAction):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid action"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to review user"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}
