package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumashop/lumashop/internal/cache"
	"github.com/lumashop/lumashop/internal/cart"
	"github.com/lumashop/lumashop/internal/catalog"
	"github.com/lumashop/lumashop/internal/config"
	"github.com/lumashop/lumashop/internal/db"
	"github.com/lumashop/lumashop/internal/email"
	"github.com/lumashop/lumashop/internal/handlers"
	"github.com/lumashop/lumashop/internal/logging"
	"github.com/lumashop/lumashop/internal/observability"
	"github.com/lumashop/lumashop/internal/services"
	"github.com/lumashop/lumashop/internal/session"
)

const emailTimeout = 10 * time.Second

type App struct {
	Config         *config.Config
	Logger         *slog.Logger
	DB             *pgxpool.Pool
	CacheProvider  cache.Provider
	SessionManager *session.Manager
	Handlers       *handlers.Handlers

	sentryEnabled bool
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	sentryEnabled, err := initSentry(cfg)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg, sentryEnabled)

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()
	startupCtx = logging.WithLogger(startupCtx, logger)

	if err := db.Migrate(cfg.DatabaseURL, logger.With("component", "migrate")); err != nil {
		return nil, err
	}

	database, err := db.Connect(startupCtx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	cacheProvider, err := cache.NewProvider(startupCtx, cache.Config{
		Provider:              cfg.CacheProvider,
		RedisConnectionString: cfg.RedisConnectionString,
	})
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize cache provider: %w", err)
	}

	sessionStore, err := session.NewStore(startupCtx, session.Config{
		Provider:              cfg.SessionStoreProvider,
		RedisConnectionString: cfg.RedisConnectionString,
		Logger:                logger.With("component", "session_store"),
	})
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize session store: %w", err)
	}
	sessionManager := session.NewManager(sessionStore, handlers.SecureCookiesFromConfig(cfg), cfg.SessionTTL)

	productStore := db.NewProductStore(database)
	orderStore := db.NewOrderStore(database)
	accountStore := db.NewAccountStore(database)

	productLookup := catalog.NewCachedLookup(productStore, cacheProvider, cfg.CatalogCacheTTL, logger)

	if cfg.CatalogSeedPath != "" {
		seeder := catalog.NewSeeder(productStore, productLookup, logger)
		count, err := seeder.SeedFile(startupCtx, cfg.CatalogSeedPath)
		if err != nil {
			closeSessionManager(logger, sessionManager)
			closeCacheProvider(logger, cacheProvider)
			database.Close()
			return nil, fmt.Errorf("failed to seed catalog: %w", err)
		}
		logger.Info("catalog seeded", "path", cfg.CatalogSeedPath, "products", count)
	}

	carts := cart.NewEngine(productLookup, accountStore, logger.With("component", "cart"))

	emailProvider, err := email.NewProvider(email.Config{
		Provider:   cfg.EmailProvider,
		APIKey:     cfg.EmailAPIKey,
		From:       cfg.EmailFrom,
		Domain:     cfg.EmailDomain,
		HTTPClient: observability.NewHTTPClient(emailTimeout, observability.EmailAPIHosts...),
	})
	if err != nil {
		closeSessionManager(logger, sessionManager)
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize email provider: %w", err)
	}
	orderEmailer, err := services.NewEmailOrderSender(emailProvider, services.StoreInfo{
		Name: cfg.StoreName,
		URL:  cfg.BaseURL,
	})
	if err != nil {
		closeSessionManager(logger, sessionManager)
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, err
	}

	checkoutService := services.NewCheckoutService(carts, orderStore, accountStore, orderEmailer, logger)
	accountService := services.NewAccountService(accountStore, carts, logger)
	fulfillmentService := services.NewFulfillmentService(orderStore, productLookup, orderEmailer, logger)

	h, err := handlers.New(handlers.Dependencies{
		Config:         cfg,
		DB:             database,
		SessionManager: sessionManager,
		Catalog:        productLookup,
		Carts:          carts,
		Checkout:       checkoutService,
		Accounts:       accountService,
		Fulfillment:    fulfillmentService,
		Logger:         logger,
	})
	if err != nil {
		closeSessionManager(logger, sessionManager)
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	return &App{
		Config:         cfg,
		Logger:         logger,
		DB:             database,
		CacheProvider:  cacheProvider,
		SessionManager: sessionManager,
		Handlers:       h,
		sentryEnabled:  sentryEnabled,
	}, nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.SessionManager != nil {
		closeSessionManager(a.Logger, a.SessionManager)
	}
	if a.CacheProvider != nil {
		closeCacheProvider(a.Logger, a.CacheProvider)
	}
	if a.DB != nil {
		a.DB.Close()
	}
	if a.sentryEnabled {
		sentry.Flush(2 * time.Second)
	}
}

// initSentry reports whether error reporting, tracing and metrics are on.
func initSentry(cfg *config.Config) (bool, error) {
	if cfg.SentryDSN == "" {
		return false, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.SentryEnvironment,
		EnableTracing:    true,
		TracesSampleRate: 1.0,
		EnableLogs:       true,
	})
	if err != nil {
		return false, fmt.Errorf("failed to initialize sentry: %w", err)
	}
	return true, nil
}

func newLogger(cfg *config.Config, sentryEnabled bool) *slog.Logger {
	console := logging.NewHandler(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if !sentryEnabled {
		return slog.New(console)
	}

	sentryHandler := sentryslog.Option{
		EventLevel: []slog.Level{slog.LevelError},
		LogLevel:   []slog.Level{slog.LevelWarn, slog.LevelInfo},
	}.NewSentryHandler(context.Background())
	return slog.New(logging.MultiHandler(console, sentryHandler))
}

func closeSessionManager(logger *slog.Logger, manager *session.Manager) {
	if manager == nil {
		return
	}
	if err := manager.Close(); err != nil && logger != nil {
		logger.Warn("failed to close session manager", "error", err)
	}
}

func closeCacheProvider(logger *slog.Logger, provider cache.Provider) {
	if provider == nil {
		return
	}
	if err := provider.Close(); err != nil && logger != nil {
		logger.Warn("failed to close cache provider", "error", err)
	}
}
