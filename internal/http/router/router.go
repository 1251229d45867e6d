package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/salesflow/salesflow-api/internal/auth"
	"github.com/salesflow/salesflow-api/internal/config"
	"github.com/salesflow/salesflow-api/internal/http/handler"
	"github.com/salesflow/salesflow-api/internal/http/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	_ "github.com/salesflow/salesflow-api/docs" // Import generated swagger docs
)

// Handlers groups the HTTP handlers mounted by the router
type Handlers struct {
	Health         *handler.HealthHandler
	Auth           *handler.AuthHandler
	User           *handler.UserHandler
	Client         *handler.ClientHandler
	Contact        *handler.ContactHandler
	Opportunity    *handler.OpportunityHandler
	Proposal       *handler.ProposalHandler
	Contract       *handler.ContractHandler
	Activity       *handler.ActivityHandler
	PricingRequest *handler.PricingRequestHandler
	Dashboard      *handler.DashboardHandler
	Snapshot       *handler.SnapshotHandler
	Assistant      *handler.AssistantHandler
	Audit          *handler.AuditHandler
}

type Router struct {
	cfg             *config.Config
	logger          *zap.Logger
	authMiddleware  *auth.Middleware
	rateLimiter     *middleware.RateLimiter
	auditMiddleware *middleware.AuditMiddleware
	h               Handlers
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	auditMiddleware *middleware.AuditMiddleware,
	handlers Handlers,
) *Router {
	return &Router{
		cfg:             cfg,
		logger:          logger,
		authMiddleware:  authMiddleware,
		rateLimiter:     rateLimiter,
		auditMiddleware: auditMiddleware,
		h:               handlers,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.LimitByIP)
	if timeout := rt.cfg.Server.RequestTimeoutDuration(); timeout > 0 {
		r.Use(chimiddleware.Timeout(timeout))
	}

	// Health checks
	r.Get("/health", rt.h.Health.Live)
	r.Get("/health/db", rt.h.Health.Database)
	r.Get("/health/ready", rt.h.Health.Ready)

	// Swagger documentation
	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	// Assistant routes, rate limited per user
	r.Route("/api/assistant", func(r chi.Router) {
		r.Use(rt.authMiddleware.Authenticate)
		r.Use(rt.rateLimiter.LimitAssistant)

		r.Post("/query", rt.h.Assistant.Query)
		r.Post("/contract-terms", rt.h.Assistant.ContractTerms)
		r.Post("/client-draft", rt.h.Assistant.ClientDraft)
		r.Get("/context", rt.h.Assistant.Context)
		r.Get("/usage", rt.h.Assistant.Usage)
		r.Get("/interactions", rt.h.Assistant.Interactions)
	})

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/auth/login", rt.h.Auth.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(rt.authMiddleware.Authenticate)
			r.Use(rt.rateLimiter.Limit)
			r.Use(rt.auditMiddleware.Audit)

			r.Get("/auth/me", rt.h.Auth.Me)

			// Audit logs (admin only)
			r.Route("/audit", func(r chi.Router) {
				r.Get("/", rt.h.Audit.List)
				r.Get("/stats", rt.h.Audit.GetStats)
				r.Get("/entity/{entityType}/{entityId}", rt.h.Audit.GetByEntity)
				r.Get("/{id}", rt.h.Audit.GetByID)
			})

			r.Route("/users", func(r chi.Router) {
				r.Get("/", rt.h.User.List)
				r.Post("/invite", rt.h.User.Invite)
				r.Get("/{id}", rt.h.User.GetByID)
				r.Put("/{id}", rt.h.User.Update)
				r.Delete("/{id}", rt.h.User.Deactivate)
			})

			r.Route("/clients", func(r chi.Router) {
				r.Get("/", rt.h.Client.List)
				r.Post("/", rt.h.Client.Create)
				r.Get("/{id}", rt.h.Client.GetByID)
				r.Put("/{id}", rt.h.Client.Update)
				r.Delete("/{id}", rt.h.Client.Delete)
				r.Get("/{id}/contacts", rt.h.Client.ListContacts)
			})

			r.Route("/contacts", func(r chi.Router) {
				r.Get("/", rt.h.Contact.List)
				r.Post("/", rt.h.Contact.Create)
				r.Get("/{id}", rt.h.Contact.GetByID)
				r.Put("/{id}", rt.h.Contact.Update)
				r.Delete("/{id}", rt.h.Contact.Delete)
			})

			r.Route("/opportunities", func(r chi.Router) {
				r.Get("/", rt.h.Opportunity.List)
				r.Post("/", rt.h.Opportunity.Create)
				r.Post("/advance", rt.h.Opportunity.Advance)
				r.Get("/{id}", rt.h.Opportunity.GetByID)
				r.Put("/{id}", rt.h.Opportunity.Update)
				r.Delete("/{id}", rt.h.Opportunity.Delete)
				r.Put("/{id}/stage", rt.h.Opportunity.UpdateStage)
				r.Get("/{id}/stage-history", rt.h.Opportunity.GetStageHistory)
				r.Put("/{id}/assign", rt.h.Opportunity.Assign)
			})

			// Pipeline and snapshots
			r.Route("/pipeline", func(r chi.Router) {
				r.Get("/", rt.h.Opportunity.Pipeline)
				r.Get("/metrics", rt.h.Opportunity.Metrics)
				r.Get("/snapshots", rt.h.Snapshot.List)
				r.Post("/snapshots", rt.h.Snapshot.Capture)
				r.Get("/snapshots/latest", rt.h.Snapshot.Latest)
				r.Get("/snapshots/{id}", rt.h.Snapshot.GetByID)
				r.Get("/snapshots/{id}/report", rt.h.Snapshot.Report)
			})

			r.Route("/proposals", func(r chi.Router) {
				r.Get("/", rt.h.Proposal.List)
				r.Post("/", rt.h.Proposal.Create)
				r.Get("/{id}", rt.h.Proposal.GetByID)
				r.Put("/{id}", rt.h.Proposal.Update)
				r.Delete("/{id}", rt.h.Proposal.Delete)
				r.Put("/{id}/submit", rt.h.Proposal.Submit)
				r.Put("/{id}/approve", rt.h.Proposal.Approve)
				r.Put("/{id}/reject", rt.h.Proposal.Reject)
			})

			r.Route("/contracts", func(r chi.Router) {
				r.Get("/", rt.h.Contract.List)
				r.Post("/", rt.h.Contract.Create)
				r.Get("/expiring", rt.h.Contract.Expiring)
				r.Get("/{id}", rt.h.Contract.GetByID)
				r.Put("/{id}", rt.h.Contract.Update)
				r.Delete("/{id}", rt.h.Contract.Delete)
				r.Put("/{id}/activate", rt.h.Contract.Activate)
				r.Put("/{id}/cancel", rt.h.Contract.Cancel)
			})

			r.Route("/activities", func(r chi.Router) {
				r.Get("/", rt.h.Activity.List)
				r.Post("/", rt.h.Activity.Create)
				r.Get("/my", rt.h.Activity.ListMine)
				r.Get("/{id}", rt.h.Activity.GetByID)
				r.Put("/{id}", rt.h.Activity.Update)
				r.Delete("/{id}", rt.h.Activity.Delete)
				r.Put("/{id}/complete", rt.h.Activity.Complete)
				r.Put("/{id}/cancel", rt.h.Activity.Cancel)
			})

			r.Route("/pricing-requests", func(r chi.Router) {
				r.Get("/", rt.h.PricingRequest.List)
				r.Post("/", rt.h.PricingRequest.Create)
				r.Get("/{id}", rt.h.PricingRequest.GetByID)
				r.Put("/{id}", rt.h.PricingRequest.Update)
				r.Delete("/{id}", rt.h.PricingRequest.Delete)
				r.Put("/{id}/assign", rt.h.PricingRequest.Assign)
				r.Put("/{id}/complete", rt.h.PricingRequest.Complete)
			})

			// Dashboard & reports
			r.Get("/dashboard", rt.h.Dashboard.Overview)
			r.Get("/reports/{name}", rt.h.Dashboard.Report)
		})
	})

	return r
}
