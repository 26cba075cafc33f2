package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cargolink/backend/internal/handlers"
	"github.com/cargolink/backend/internal/middleware"
	"github.com/cargolink/backend/internal/models"
)

// Handlers bundles the HTTP handlers wired into the router
type Handlers struct {
	Auth     *handlers.AuthHandler
	Admin    *handlers.AdminHandler
	Wallet   *handlers.WalletHandler
	Order    *handlers.OrderHandler
	Referral *handlers.ReferralHandler
}

// Register mounts all API routes on the router
func Register(router *gin.Engine, h Handlers, rateLimiter *middleware.RateLimiter) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authGroup := router.Group("/api/auth")
	authGroup.Use(rateLimiter.Middleware())
	{
		authGroup.POST("/register", h.Auth.RegisterCustomer)
		authGroup.POST("/register/agent", h.Auth.RegisterAgent)
		authGroup.POST("/login", h.Auth.Login)
	}

	// Public referral code lookup, used by signup forms
	router.GET("/api/referrals/:code", h.Referral.LookupCode)

	walletGroup := router.Group("/api/wallet")
	walletGroup.Use(middleware.AuthMiddleware())
	{
		walletGroup.GET("", h.Wallet.GetWallet)
		walletGroup.GET("/ledger", h.Wallet.GetLedger)
		walletGroup.POST("/deposit", h.Wallet.Deposit)
		walletGroup.POST("/withdraw", h.Wallet.Withdraw)
	}

	orderGroup := router.Group("/api/orders")
	orderGroup.Use(middleware.AuthMiddleware())
	{
		orderGroup.POST("", h.Order.Purchase)
		orderGroup.GET("", h.Order.ListOrders)
	}

	agentGroup := router.Group("/api/agent")
	agentGroup.Use(middleware.AuthMiddleware(), middleware.RequireRoles(models.RoleAgent))
	{
		agentGroup.GET("/referral-code", h.Referral.GetMyCode)
	}

	adminGroup := router.Group("/api/admin")
	adminGroup.Use(middleware.AuthMiddleware(), middleware.AdminMiddleware())
	{
		adminGroup.GET("/users", h.Admin.ListUsers)
		adminGroup.POST("/users/:id/review", h.Admin.ReviewUser)
	}
}
