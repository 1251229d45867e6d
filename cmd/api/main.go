package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/salesflow/salesflow-api/docs"
	"github.com/salesflow/salesflow-api/internal/assistant"
	"github.com/salesflow/salesflow-api/internal/auth"
	"github.com/salesflow/salesflow-api/internal/backend"
	"github.com/salesflow/salesflow-api/internal/config"
	"github.com/salesflow/salesflow-api/internal/database"
	"github.com/salesflow/salesflow-api/internal/email"
	"github.com/salesflow/salesflow-api/internal/http/handler"
	"github.com/salesflow/salesflow-api/internal/http/middleware"
	"github.com/salesflow/salesflow-api/internal/http/router"
	"github.com/salesflow/salesflow-api/internal/jobs"
	"github.com/salesflow/salesflow-api/internal/logger"
	"github.com/salesflow/salesflow-api/internal/repository"
	"github.com/salesflow/salesflow-api/internal/service"
	"github.com/salesflow/salesflow-api/internal/storage"
	"go.uber.org/zap"
)

// @title SalesFlow API
// @version 1.0
// @description Backend-for-frontend for the SalesFlow CRM: entity workflows, pipeline metrics and the AI assistant
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@salesflow.app

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Bearer token issued by the CRM backend
// @Security BearerAuth

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	if host := os.Getenv("SWAGGER_HOST"); host != "" {
		docs.SwaggerInfo.Host = host
	} else {
		docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)
	}

	// In development secrets come from the environment, in staging/production from Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() { _ = database.Close(db) }()

	if err := database.AutoMigrate(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	reportStorage, err := storage.NewStorage(&cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	backendClient := backend.NewClient(&cfg.Backend, log)
	if cfg.Backend.BaseURL == "" {
		log.Warn("Backend API URL not configured, CRM routes will fail")
	}

	// The assistant routes answer 500 until a provider is configured
	completer, err := assistant.NewCompleter(ctx, &cfg.AI, log)
	if err != nil {
		if !errors.Is(err, assistant.ErrNotConfigured) {
			return fmt.Errorf("failed to initialize AI provider: %w", err)
		}
		log.Warn("AI provider not configured, assistant routes disabled", zap.String("provider", cfg.AI.Provider))
		completer = nil
	}

	var sender email.Sender
	if cfg.Email.Configured() {
		sender = email.NewEmailJSClient(&cfg.Email, log)
	} else {
		log.Info("EmailJS not configured, invitations will not be emailed")
	}

	// Repositories
	auditLogRepo := repository.NewAuditLogRepository(db)
	snapshotRepo := repository.NewPipelineSnapshotRepository(db)
	interactionRepo := repository.NewAssistantInteractionRepository(db)

	// Services
	auditLogService := service.NewAuditLogService(auditLogRepo, log)
	authService := service.NewAuthService(backendClient, log)
	userService := service.NewUserService(backendClient, log)
	invitationService := service.NewInvitationService(backendClient, sender, log)
	clientService := service.NewClientService(backendClient, log)
	contactService := service.NewContactService(backendClient, log)
	opportunityService := service.NewOpportunityService(backendClient, &cfg.Assistant, log)
	proposalService := service.NewProposalService(backendClient, log)
	contractService := service.NewContractService(backendClient, log)
	activityService := service.NewActivityService(backendClient, log)
	pricingRequestService := service.NewPricingRequestService(backendClient, log)
	dashboardService := service.NewDashboardService(backendClient, log)
	snapshotService := service.NewSnapshotService(snapshotRepo, opportunityService, reportStorage, auditLogService, log)
	contextBuilder := assistant.NewBuilder(backendClient, assistant.LimitsFromConfig(&cfg.Assistant), log)
	assistantService := service.NewAssistantService(completer, contextBuilder, interactionRepo, &cfg.AI, log)

	// Middleware
	authMiddleware := auth.NewMiddleware(auth.NewVerifier(&cfg.Auth, backendClient, log), log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)
	auditMiddleware := middleware.NewAuditMiddleware(auditLogService, nil, log)

	healthHandler := handler.NewHealthHandler(db, backendClient, log)
	rt := router.NewRouter(cfg, log, authMiddleware, rateLimiter, auditMiddleware, router.Handlers{
		Health:         healthHandler,
		Auth:           handler.NewAuthHandler(authService, auditLogService, log),
		User:           handler.NewUserHandler(userService, invitationService, auditLogService, log),
		Client:         handler.NewClientHandler(clientService, contactService, log),
		Contact:        handler.NewContactHandler(contactService, log),
		Opportunity:    handler.NewOpportunityHandler(opportunityService, log),
		Proposal:       handler.NewProposalHandler(proposalService, log),
		Contract:       handler.NewContractHandler(contractService, log),
		Activity:       handler.NewActivityHandler(activityService, log),
		PricingRequest: handler.NewPricingRequestHandler(pricingRequestService, log),
		Dashboard:      handler.NewDashboardHandler(dashboardService, log),
		Snapshot:       handler.NewSnapshotHandler(snapshotService, log),
		Assistant:      handler.NewAssistantHandler(assistantService, log),
		Audit:          handler.NewAuditHandler(auditLogService, log),
	})

	// Background jobs
	var scheduler *jobs.Scheduler
	if cfg.Jobs.SnapshotEnabled {
		scheduler = jobs.NewScheduler(&cfg.Jobs, log)
		job := jobs.NewSnapshotJob(snapshotService, auditLogService, cfg.Jobs.RetentionDays, log)
		if err := scheduler.Register(job, cfg.Jobs.SnapshotCron); err != nil {
			log.Error("Failed to register pipeline snapshot job", zap.Error(err))
		} else {
			scheduler.Start()
			healthHandler.WithJobs(scheduler)
		}
	} else {
		log.Info("Pipeline snapshot job disabled")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		if scheduler != nil {
			<-scheduler.Stop().Done()
			log.Info("Scheduler stopped")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		// Pending audit writes finish before the database closes
		auditMiddleware.Wait()

		log.Info("Server stopped gracefully")
	}

	return nil
}
