package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/cargolink/backend/internal/config"
	"github.com/cargolink/backend/internal/database"
	"github.com/cargolink/backend/internal/handlers"
	"github.com/cargolink/backend/internal/jobs"
	"github.com/cargolink/backend/internal/middleware"
	"github.com/cargolink/backend/internal/queue"
	"github.com/cargolink/backend/internal/routes"
	"github.com/cargolink/backend/internal/services/approval"
	"github.com/cargolink/backend/internal/services/auth"
	"github.com/cargolink/backend/internal/services/commission"
	"github.com/cargolink/backend/internal/services/email"
	"github.com/cargolink/backend/internal/services/order"
	"github.com/cargolink/backend/internal/services/referral"
	"github.com/cargolink/backend/internal/services/seed"
	"github.com/cargolink/backend/internal/services/wallet"
)

func main() {
	cfg := config.LoadConfig()

	db, err := database.InitDB(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.URL,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	jobQueue := queue.NewQueue(redisClient)
	worker := queue.NewWorker(jobQueue, 4)

	// Services
	emailService := email.NewEmailService(cfg.SMTP, cfg.FrontendURL)
	walletService := wallet.NewWalletService(db)
	referralService := referral.NewReferralService(db)
	commissionService := commission.NewCommissionService(db, walletService)
	orderService := order.NewOrderService(db, walletService, commissionService)
	notifier := jobs.NewQueueNotifier(jobQueue)
	approvalService := approval.NewApprovalService(db, referralService, notifier)
	authService := auth.NewAuthService(db, referralService)

	jobs.RegisterNotificationJobHandlers(worker, db, emailService)

	seedService := seed.NewSeedService(db, emailService)
	if err := seedService.SeedAdmin(cfg.Seed); err != nil {
		if errors.Is(err, seed.ErrNoAdminPassword) {
			log.Println("Skipping admin seeding: SEED_ADMIN_PASSWORD is not set")
		} else {
			log.Fatalf("Failed to seed admin account: %v", err)
		}
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	rateLimiter := middleware.NewRateLimiter(10, 20)
	defer rateLimiter.Stop()

	routes.Register(router, routes.Handlers{
		Auth:     handlers.NewAuthHandler(authService),
		Admin:    handlers.NewAdminHandler(db, approvalService),
		Wallet:   handlers.NewWalletHandler(walletService),
		Order:    handlers.NewOrderHandler(orderService),
		Referral: handlers.NewReferralHandler(db, referralService),
	}, rateLimiter)

	worker.Start()

	srv := startServer(router, cfg.Server.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	worker.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}

// startServer starts the HTTP server
func startServer(router *gin.Engine, port string) *http.Server {
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Server started on port %s", port)
	return srv
}
