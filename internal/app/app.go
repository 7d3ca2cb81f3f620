package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/repurpost/oauth-service/internal/config"
	"github.com/repurpost/oauth-service/internal/handler"
	"github.com/repurpost/oauth-service/internal/provider"
	"github.com/repurpost/oauth-service/internal/repository"
	"github.com/repurpost/oauth-service/internal/service"
	"github.com/repurpost/oauth-service/internal/utils"
	"github.com/repurpost/oauth-service/pkg/observability"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	infra  Infrastructure
	config *config.Config
	router *gin.Engine
	server *http.Server
}

func NewApp(infra Infrastructure, cfg *config.Config) (*App, error) {
	repos := repository.NewRepositories(infra.Postgres())

	cipher, err := utils.NewTokenCipher(cfg.Encryption.Secret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token cipher: %w", err)
	}

	jwtManager := utils.NewJWTManager(cfg.JWT.Secret, cfg.JWT.TokenExpiry.Duration)

	metrics, err := observability.NewMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	registry := provider.NewRegistry(cfg.Providers, infra.Logger())

	tokenManager := service.NewTokenManager(
		repos.Connection,
		repos.APICredentials,
		registry,
		cipher,
		infra.Logger(),
		metrics,
	)

	credentialsService := service.NewCredentialsService(repos.APICredentials, cipher, infra.Logger())

	var limitStore service.LimitStore
	if cfg.RateLimit.Backend == "redis" {
		limitStore = service.NewRedisLimitStore(infra.Redis())
	} else {
		limitStore = service.NewMemoryLimitStore()
	}
	rateLimiter := service.NewRateLimiter(limitStore, cfg.RateLimit)

	healthChecker := NewHealthChecker(infra)

	oauthHandler := handler.NewOAuthHandler(tokenManager)
	credentialsHandler := handler.NewCredentialsHandler(credentialsService)
	webhookHandler := handler.NewWebhookHandler(
		tokenManager,
		cfg.Webhook.MetaAppSecret,
		cfg.Webhook.DeletionStatusURL,
		infra.Logger(),
	)

	router := gin.Default()
	router.Use(otelgin.Middleware("oauth-service"))
	router.Use(handler.LoggerMiddleware(infra.Logger()))
	router.Use(handler.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders))

	setupRoutes(router, oauthHandler, credentialsHandler, webhookHandler, jwtManager, rateLimiter, metrics, infra.Logger(), healthChecker, infra.MetricsHandler())

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	return &App{
		infra:  infra,
		config: cfg,
		router: router,
		server: srv,
	}, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func setupRoutes(
	router *gin.Engine,
	oauthHandler *handler.OAuthHandler,
	credentialsHandler *handler.CredentialsHandler,
	webhookHandler *handler.WebhookHandler,
	jwtManager *utils.JWTManager,
	rateLimiter *service.RateLimiter,
	metrics *observability.Metrics,
	logger *zap.Logger,
	healthChecker *HealthChecker,
	metricsHandler http.Handler,
) {
	router.GET("/metrics", observability.PrometheusHandler(metricsHandler))
	router.GET("/health", healthChecker.Handler)

	// Provider-initiated callbacks authenticate via payload signature, not JWT.
	// IP-keyed limiting only.
	webhooks := router.Group("/webhooks")
	{
		webhooks.POST("/meta/data-deletion",
			handler.RateLimitMiddleware(rateLimiter, metrics, logger, handler.IPKey),
			webhookHandler.MetaDataDeletion,
		)
	}

	api := router.Group("/api/v1")
	api.Use(handler.AuthMiddleware(jwtManager))
	api.Use(handler.RateLimitMiddleware(rateLimiter, metrics, logger, handler.ProfileKey))
	{
		oauth := api.Group("/oauth")
		{
			oauth.GET("/status", oauthHandler.GetStatus)
			oauth.POST("/status", oauthHandler.CheckHealth)
			oauth.DELETE("/connections/:provider", oauthHandler.Disconnect)
		}

		credentials := api.Group("/credentials")
		{
			credentials.GET("/:provider", credentialsHandler.Get)
			credentials.PUT("/:provider", credentialsHandler.Save)
			credentials.DELETE("/:provider", credentialsHandler.Delete)
		}
	}
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		a.infra.Logger().Info("Application starting",
			zap.String("host", a.config.Server.Host),
			zap.String("port", a.config.Server.Port),
		)

		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.infra.Logger().Error("Server error", zap.Error(err))
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case err := <-errChan:
		a.infra.Logger().Error("Application failed to start", zap.Error(err))
		serverErr = err
	case <-ctx.Done():
		a.infra.Logger().Info("Application stopped by context")
	}

	if err := a.Shutdown(); err != nil {
		a.infra.Logger().Error("Shutdown error", zap.Error(err))
		if serverErr != nil {
			return errors.Join(serverErr, err)
		}
		return err
	}

	return serverErr
}

func (a *App) Shutdown() error {
	a.infra.Logger().Info("Application shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	errs := make(chan error, 2)

	go func() {
		errs <- a.server.Shutdown(ctx)
	}()

	go func() {
		errs <- a.infra.Shutdown(ctx)
	}()

	err := errors.Join(<-errs, <-errs)
	if err != nil {
		a.infra.Logger().Error("Shutdown failed", zap.Error(err))
		return err
	}

	a.infra.Logger().Info("Application exited successfully")
	return nil
}
