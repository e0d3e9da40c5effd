package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/busticket-client/internal/config"
	"github.com/smarttransit/busticket-client/internal/gateway"
	"github.com/smarttransit/busticket-client/internal/handlers"
	"github.com/smarttransit/busticket-client/internal/middleware"
	"github.com/smarttransit/busticket-client/internal/services"
	"github.com/smarttransit/busticket-client/internal/session"
	"github.com/smarttransit/busticket-client/internal/state"
	"github.com/smarttransit/busticket-client/pkg/validator"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

// Country code of local phone numbers
const homeCountryCode = "94"

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting bus ticket client")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Open the state backend
	ctx := context.Background()
	backend, err := state.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to open %s state backend: %v", cfg.State.Backend, err)
	}
	defer backend.Close()
	logger.WithFields(logrus.Fields{
		"backend":   backend.Name,
		"namespace": cfg.State.Namespace,
	}).Info("State backend ready")

	vault := state.NewVault(backend.Store, cfg.State.Namespace)

	// Initialize the API client and session
	api := gateway.NewAPI(gateway.NewClient(cfg.API, logger))
	logger.WithField("base_url", cfg.API.BaseURL).Info("Booking API client initialized")

	sessionStore := session.NewStore(api.Auth, vault, logger)
	if err := sessionStore.Init(ctx); err != nil {
		logger.Fatalf("Failed to restore session: %v", err)
	}
	logger.WithField("state", sessionStore.State()).Info("Session restored")

	// Initialize services
	logger.Info("Initializing services...")
	v := validator.New(homeCountryCode)
	tripService := services.NewTripService(api, logger)
	seatService := services.NewSeatService(api, cfg.Booking.DefaultSeatCapacity, logger)
	bookingService := services.NewBookingService(api, vault, v, logger)
	paymentService := services.NewPaymentService(api, vault, cfg.Booking, logger)
	myBookingsService := services.NewMyBookingsService(api, vault, logger)
	ticketService := services.NewTicketService(api, logger)
	reportService := services.NewReportService(api, logger)

	sessionStore.OnLogout(myBookingsService.Reset)

	// Initialize and start cron service
	var jobs handlers.JobStatus
	if cfg.Jobs.Enabled {
		cronService := services.NewCronService(sessionStore, api, vault, cfg.Jobs, logger)
		if err := cronService.Start(); err != nil {
			logger.Fatalf("Failed to start cron service: %v", err)
		}
		defer cronService.Stop()
		jobs = cronService
	} else {
		logger.Info("Scheduled jobs disabled")
	}

	// Initialize handlers
	h := handlers.Handlers{
		Session: handlers.NewSessionHandler(sessionStore, v, logger),
		Trips:   handlers.NewTripHandler(tripService, seatService, logger),
		Booking: handlers.NewBookingHandler(bookingService, paymentService, myBookingsService, ticketService, logger),
		Admin:   handlers.NewAdminHandler(api, reportService, jobs, logger),
	}

	// Initialize Gin router
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     append(cfg.CORS.AllowedHeaders, middleware.RequestIDHeader),
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(backend, sessionStore))

	// Every backend call made while serving a request authenticates as the session
	router.Use(middleware.AttachSession(sessionStore))

	// API v1 routes
	handlers.RegisterRoutes(router.Group("/api/v1"), h)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.API.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// healthCheckHandler reports the state backend and the session
func healthCheckHandler(backend *state.Backend, sessionStore *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		if err := backend.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"state":  backend.Name,
				"error":  err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"state":     backend.Name,
			"session":   sessionStore.State(),
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
