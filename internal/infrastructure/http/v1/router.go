package v1

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"tradebook/internal/config"
	"tradebook/internal/domain"
	"tradebook/internal/domain/catalogs/party"
	"tradebook/internal/domain/document"
	"tradebook/internal/infrastructure/http/v1/dto"
	"tradebook/internal/infrastructure/http/v1/handlers"
	"tradebook/internal/infrastructure/http/v1/middleware"
	"tradebook/internal/infrastructure/storage/postgres"
	"tradebook/internal/infrastructure/storage/postgres/catalog_repo"
	"tradebook/internal/infrastructure/storage/postgres/document_repo"
	"tradebook/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Pool is used by health checks
	Pool *postgres.Pool

	// TxManager is shared by every repository and store
	TxManager *postgres.TxManager

	// Logger for request logging
	Logger *logger.Logger

	// Idempotency stores X-Idempotency-Key results; nil disables the middleware
	Idempotency *postgres.IdempotencyStore

	// Config carries CORS, rate limit, idempotency and audit settings
	Config *config.Config
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	if cfg.Config.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	dto.RegisterValidators()

	router := gin.New()

	// Global middleware (order matters: Recovery must sit inside ErrorHandler
	// so a recovered panic is still rendered)
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS(cfg.Config.CORS.AllowedOrigins))

	if cfg.Config.RateLimit.Enabled {
		l, err := middleware.NewRateLimiter(cfg.Config.RateLimit.Rate)
		if err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
		router.Use(middleware.RateLimit(l))
	}

	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	auditService, err := postgres.NewAuditService(cfg.TxManager, cfg.Config.Audit.CompressThreshold)
	if err != nil {
		return nil, fmt.Errorf("audit service: %w", err)
	}

	api := router.Group("/api/v1")
	if cfg.Idempotency != nil {
		api.Use(middleware.Idempotency(cfg.Idempotency))
	}

	base := handlers.NewBaseHandler()
	partyService := party.NewService(catalog_repo.NewPartyRepo(cfg.TxManager))
	resolver := party.NewResolver(catalog_repo.NewPartyRepo(cfg.TxManager))

	partyHandler := handlers.NewPartyHandler(base, partyService)
	parties := api.Group("/parties")
	{
		parties.POST("", partyHandler.Create)
		parties.GET("/:id", partyHandler.Get)
	}

	documents := api.Group("/documents")
	kinds := []struct {
		path string
		repo *document_repo.Repo
	}{
		{"/sales-invoices", document_repo.NewSalesInvoiceRepo(cfg.TxManager)},
		{"/purchase-bills", document_repo.NewPurchaseBillRepo(cfg.TxManager)},
	}
	for _, k := range kinds {
		service := document.NewService(k.repo, cfg.TxManager, resolver, auditService)
		registerDocumentHooks(service)
		reader := document.NewReader(k.repo, cfg.TxManager, auditService)

		RegisterDocumentRoutes(documents.Group(k.path), handlers.NewDocumentHandler(base, service, reader))
	}

	return router, nil
}

// registerDocumentHooks logs committed writes.
func registerDocumentHooks(service *document.Service) {
	logCommitted := func(event domain.HookEvent) domain.Hook[*document.Document] {
		return func(ctx context.Context, doc *document.Document) error {
			logger.Debug(ctx, "document committed",
				"event", event,
				"kind", doc.Kind,
				"id", doc.ID,
				"grand_total", doc.GrandTotal.StringFixed(2),
			)
			return nil
		}
	}
	for _, event := range []domain.HookEvent{domain.AfterCreate, domain.AfterUpdate, domain.AfterDelete} {
		service.Hooks().On(event, logCommitted(event))
	}
}
