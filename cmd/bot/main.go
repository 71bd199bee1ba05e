package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/vipreceiver/backend/internal/bot"
	"github.com/vipreceiver/backend/internal/config"
	"github.com/vipreceiver/backend/internal/handlers"
	"github.com/vipreceiver/backend/internal/middleware"
	"github.com/vipreceiver/backend/internal/models"
	"github.com/vipreceiver/backend/internal/provider"
	"github.com/vipreceiver/backend/internal/services"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.New()

	// Initialize database
	db, err := models.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Run migrations
	if err := models.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize Redis
	redisClient := models.InitRedis(cfg)
	defer redisClient.Close()

	// Initialize the MTProto gateway client
	gateway := provider.NewGatewayClient(cfg)

	// Initialize services
	artifactService := services.NewArtifactService(cfg)
	regionService := services.NewRegionService(db)
	ledgerService := services.NewLedgerService(db)
	cancelRegistry := services.NewCancelRegistry()
	exclusivityService := services.NewExclusivityService(gateway)
	validatorService := services.NewValidatorService(cfg, gateway, artifactService)
	verificationService := services.NewVerificationService(cfg, gateway, artifactService, regionService, ledgerService, exclusivityService)
	withdrawalService := services.NewWithdrawalService(db, cfg)
	reportService := services.NewReportService(artifactService)

	// Initialize the Telegram bot
	tgBot, err := bot.New(cfg, verificationService, cancelRegistry, ledgerService, withdrawalService, reportService)
	if err != nil {
		log.Fatalf("Failed to initialize bot: %v", err)
	}

	// Attach collaborators that need the bot itself
	membershipGate := bot.NewMembershipGate(tgBot.API(), cfg, redisClient, ledgerService)
	tgBot.AttachMembershipGate(membershipGate)
	rewardService := services.NewRewardService(cfg, cancelRegistry, validatorService, exclusivityService, ledgerService, tgBot)
	tgBot.AttachRewardService(rewardService)

	// Setup Gin router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg))
	router.Use(middleware.RateLimiter(redisClient, cfg))

	// Initialize handlers
	adminHandler := handlers.NewAdminHandler(cfg, regionService, ledgerService, cancelRegistry, withdrawalService)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	// Setup routes
	api := router.Group("/api/v1")
	{
		api.OPTIONS("/*path", func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		})

		api.POST("/admin/login", adminHandler.Login)

		admin := api.Group("/admin")
		admin.Use(middleware.Auth(cfg))
		{
			admin.GET("/regions", adminHandler.GetRegions)
			admin.POST("/regions", adminHandler.CreateRegion)
			admin.PUT("/regions/:code", adminHandler.UpdateRegion)
			admin.DELETE("/regions/:code", adminHandler.DeleteRegion)
			admin.POST("/verifications/cancel", adminHandler.CancelVerification)
			admin.POST("/withdrawals/approve", adminHandler.ApproveWithdrawals)
			admin.GET("/stats", adminHandler.GetStats)
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start the HTTP server
	go func() {
		log.Printf("Starting admin API on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Start the bot long-poll loop
	botCtx, botCancel := context.WithCancel(context.Background())
	go tgBot.Run(botCtx)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")

	botCancel()

	// Let in-flight confirmation tasks finish before exiting
	rewardService.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
