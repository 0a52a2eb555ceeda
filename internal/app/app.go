package app

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/paysync/server/internal/module/invoice"
	"github.com/paysync/server/internal/module/payment"
	"github.com/paysync/server/internal/module/payment/gateway"
	"github.com/paysync/server/internal/shared/cache"
	"github.com/paysync/server/internal/shared/config"
	"github.com/paysync/server/internal/shared/database"
	"github.com/paysync/server/internal/shared/logger"
	"github.com/paysync/server/internal/shared/metrics"
	"github.com/paysync/server/internal/shared/middleware"
)

// App wires the payment service together: provider gateway, invoice store,
// webhook ingestion and the HTTP router.
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	router *gin.Engine
	db     *gorm.DB
	redis  redis.UniversalClient
}

// New assembles the application from configuration. An empty database host
// or Redis address selects the in-process store or ledger, for single-node
// and development deployments.
func New(cfg *config.Config) (*App, error) {
	log, err := logger.New(&logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return nil, err
	}

	m := metrics.New("paysync")

	a := &App{cfg: cfg, logger: log}

	var invoiceStore invoice.Store
	if cfg.Database.Host != "" {
		db, err := database.New(&cfg.Database)
		if err != nil {
			return nil, err
		}
		a.db = db

		store, err := invoice.NewGormStore(db)
		if err != nil {
			return nil, err
		}
		invoiceStore = store
	} else {
		log.Warn("no database configured, using in-memory invoice store")
		invoiceStore = invoice.NewMemoryStore()
	}

	var ledger payment.EventLedger
	if cfg.Redis.Address != "" {
		client, err := cache.NewRedisClient(&cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.redis = client
		ledger = payment.NewRedisLedger(client, cfg.Webhook.LedgerTTL)
	} else {
		log.Warn("no redis configured, using in-memory event ledger")
		ledger = payment.NewMemoryLedger(cfg.Webhook.LedgerTTL)
	}

	signer := payment.NewSigner(cfg.Gateway.KeySecret, cfg.Webhook.Secret)
	if signer.WeakMode() {
		log.Warn("webhook secret not configured, signature verification disabled")
	}

	gw := gateway.NewRazorpayGateway(&gateway.RazorpayConfig{
		KeyID:          cfg.Gateway.KeyID,
		KeySecret:      cfg.Gateway.KeySecret,
		RequestTimeout: cfg.Gateway.RequestTimeout,
		MaxRetries:     cfg.Gateway.MaxRetries,
		RetryBackoff:   cfg.Gateway.RetryBackoff,
	}, m, log)

	svc := payment.NewService(gw, invoiceStore, signer, cfg.Gateway.KeyID, m, log)
	handler := payment.NewHandler(svc, log)

	reconciler := payment.NewReconciler(invoiceStore, m, log)
	webhookHandler := payment.NewWebhookHandler(signer, ledger, reconciler, m, log)

	a.router = buildRouter(cfg, log, m, handler, webhookHandler)
	return a, nil
}

func buildRouter(
	cfg *config.Config,
	log *zap.Logger,
	m *metrics.Metrics,
	handler *payment.Handler,
	webhookHandler *payment.WebhookHandler,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Metrics(m))

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	r.Use(cors.New(corsCfg))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")

	// The webhook authenticates by signature, so it stays outside the
	// bearer-token group.
	webhookHandler.RegisterRoutes(api.Group("/payments"))

	secured := api.Group("/payments")
	if cfg.Auth.JWTSecret != "" {
		secured.Use(middleware.BearerAuth(cfg.Auth.JWTSecret, cfg.Auth.Issuer))
	} else {
		log.Warn("jwt secret not configured, payment routes are unauthenticated")
	}
	handler.RegisterRoutes(secured)

	return r
}

// Router returns the HTTP handler.
func (a *App) Router() *gin.Engine {
	return a.router
}

// Logger returns the application logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Stop releases held connections.
func (a *App) Stop() {
	if a.redis != nil {
		if err := cache.Close(a.redis); err != nil {
			a.logger.Warn("redis close failed", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := database.Close(a.db); err != nil {
			a.logger.Warn("database close failed", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
