package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	_ "github.com/joho/godotenv/autoload"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/sjperalta/coachpay-api/docs" // Swagger docs
	"github.com/sjperalta/coachpay-api/internal/cache"
	"github.com/sjperalta/coachpay-api/internal/config"
	"github.com/sjperalta/coachpay-api/internal/database"
	"github.com/sjperalta/coachpay-api/internal/handlers"
	"github.com/sjperalta/coachpay-api/internal/jobs"
	"github.com/sjperalta/coachpay-api/internal/middleware"
	"github.com/sjperalta/coachpay-api/internal/paymentrail"
	"github.com/sjperalta/coachpay-api/internal/repository"
	"github.com/sjperalta/coachpay-api/internal/secure"
	"github.com/sjperalta/coachpay-api/internal/services"
	"github.com/sjperalta/coachpay-api/internal/storage"
	"github.com/sjperalta/coachpay-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// @title CoachPay API
// @version 1.0
// @description Revenue split, payout scheduling, TDS compliance and payment reconciliation for coaching enrollments
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email payouts@coachpay.app

// @host localhost:8080
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Setup(cfg.Environment, cfg.LogLevel)

	// Initialize Sentry when DSN is configured
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			TracesSampleRate: 0.2,
			Environment:      cfg.Environment,
		}); err != nil {
			logger.Error("Sentry initialization failed", "error", err)
		} else {
			logger.Info("Sentry initialized")
		}
	}

	if cfg.ResendAPIKey == "" {
		logger.Warn("Resend email disabled: RESEND_API_KEY not set. Payout confirmations and ops alerts will be skipped.")
	}

	policy, err := config.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		logger.Error("Failed to load payout policy", "error", err)
		os.Exit(1)
	}
	logger.Info("Loaded payout policy",
		"tds_rate", policy.TDSRatePercent,
		"tds_threshold", policy.TDSAnnualThreshold,
		"installments", policy.InstallmentCount,
		"payout_day", policy.PayoutDayOfMonth,
	)

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.Connect(cfg.DatabaseURL, cfg.Environment)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(db); err != nil {
		logger.Error("Failed to migrate database", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to database")

	// Initialize storage for issued certificates
	store, err := storage.NewLocalStorage(cfg.StoragePath)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	cipher, err := secure.NewFieldCipher(cfg.BankDataKey)
	if err != nil {
		logger.Error("Failed to initialize bank data cipher", "error", err)
		os.Exit(1)
	}

	// Optional summary cache
	var summaryCache services.SummaryCache
	if c := cache.Connect(context.Background(), cfg.RedisAddr); c != nil {
		summaryCache = c
		defer c.Close()
	}

	// Payment rail; without credentials payouts and reconciliation answer 503
	var rail paymentrail.Rail
	if cfg.RailConfigured() {
		rail = paymentrail.NewRazorpayRail(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.RazorpayXAccount)
		logger.Info("Payment rail configured", "provider", "razorpay")
	} else {
		logger.Warn("Payment rail disabled: RAZORPAY_KEY_ID, RAZORPAY_KEY_SECRET or RAZORPAYX_ACCOUNT not set")
	}

	// Initialize background worker
	worker := jobs.NewWorker(cfg.WorkerCount)
	logger.Info("Started background worker", "goroutines", cfg.WorkerCount)

	// Initialize services
	svcs := services.NewServices(services.Deps{
		Repos:   repository.NewRepositories(db),
		Worker:  worker,
		Storage: store,
		Rail:    rail,
		Cipher:  cipher,
		Cache:   summaryCache,
		Config:  cfg,
		Policy:  policy,
	})

	seeded, err := svcs.CoachGroup.SeedDefaults(context.Background(), policy.CoachGroups)
	if err != nil {
		logger.Error("Failed to seed coach groups", "error", err)
		os.Exit(1)
	}
	if seeded > 0 {
		logger.Info("Seeded coach groups", "count", seeded)
	}

	// Schedule recurring jobs
	if cfg.EnableScheduler {
		svcs.Job.StartSchedule(cfg.PayoutInterval, cfg.ReconcileInterval)
		logger.Info("Scheduled recurring jobs", "payouts", cfg.PayoutInterval.String(), "reconciliation", cfg.ReconcileInterval.String())
	}

	// Setup router
	router := setupRouter(handlers.NewHandlers(svcs), cfg)

	// Create HTTP server. Internal job triggers run synchronously, hence the long write timeout.
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// Cancels running batch jobs between payees and waits for them
	worker.Shutdown()
	logger.Info("Background worker stopped")

	if cfg.SentryDSN != "" {
		sentry.Flush(5 * time.Second)
	}

	logger.Info("Server exited gracefully")
}

func setupRouter(h *handlers.Handlers, cfg *config.Config) *gin.Engine {
	router := gin.New()

	// Global middleware
	if cfg.SentryDSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// Redirect root to swagger
	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	handlers.RegisterRoutes(router.Group("/api/v1"), h, cfg.JWTSecret, cfg.CronSecret)

	return router
}
