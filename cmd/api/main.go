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

	"go.uber.org/zap"

	"github.com/urban-tuxedo/api/internal/handlers"
	"github.com/urban-tuxedo/api/internal/payments"
	"github.com/urban-tuxedo/api/internal/platform/auth"
	"github.com/urban-tuxedo/api/internal/platform/config"
	pfirestore "github.com/urban-tuxedo/api/internal/platform/firestore"
	"github.com/urban-tuxedo/api/internal/platform/mail"
	"github.com/urban-tuxedo/api/internal/platform/metrics"
	"github.com/urban-tuxedo/api/internal/platform/observability"
	firestoreRepo "github.com/urban-tuxedo/api/internal/repositories/firestore"
	"github.com/urban-tuxedo/api/internal/services"
)

const (
	shutdownGracePeriod = 15 * time.Second
	dispatcherDrain     = 10 * time.Second
	taskTimeout         = 30 * time.Second
)

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	provider := pfirestore.NewProvider(cfg.Firestore)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Close(closeCtx); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	pendingRepo, err := firestoreRepo.NewPendingPurchaseRepository(provider)
	if err != nil {
		logger.Fatal("failed to initialise pending purchase repository", zap.Error(err))
	}
	orderRepo, err := firestoreRepo.NewOrderRepository(provider)
	if err != nil {
		logger.Fatal("failed to initialise order repository", zap.Error(err))
	}
	inventoryRepo, err := firestoreRepo.NewInventoryRepository(provider)
	if err != nil {
		logger.Fatal("failed to initialise inventory repository", zap.Error(err))
	}
	productRepo, err := firestoreRepo.NewProductRepository(provider)
	if err != nil {
		logger.Fatal("failed to initialise product repository", zap.Error(err))
	}
	categoryRepo, err := firestoreRepo.NewCategoryRepository(provider)
	if err != nil {
		logger.Fatal("failed to initialise category repository", zap.Error(err))
	}
	promotionRepo, err := firestoreRepo.NewPromotionRepository(provider)
	if err != nil {
		logger.Fatal("failed to initialise promotion repository", zap.Error(err))
	}
	userRepo, err := firestoreRepo.NewUserRepository(provider)
	if err != nil {
		logger.Fatal("failed to initialise user repository", zap.Error(err))
	}

	stripeProvider, err := payments.NewStripeProvider(payments.StripeProviderConfig{
		APIKey:        cfg.Stripe.APIKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		Logger:        payments.StripeLogger(observability.NewEventLogger(logger.Named("stripe"))),
	})
	if err != nil {
		logger.Fatal("failed to initialise stripe provider", zap.Error(err))
	}

	tokenIssuer, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		logger.Fatal("failed to initialise token issuer", zap.Error(err))
	}

	var sender mail.Sender
	if cfg.Email.Enabled() {
		smtpSender, err := mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.Email.Host,
			Port:     cfg.Email.Port,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.FromAddress,
		})
		if err != nil {
			logger.Fatal("failed to initialise smtp sender", zap.Error(err))
		}
		sender = smtpSender
	} else {
		logger.Warn("smtp relay not configured, emails will be logged only")
		sender = &logSender{logger: logger.Named("mail")}
	}

	appMetrics := metrics.New()

	dispatcher := services.NewGoroutineDispatcher(services.GoroutineDispatcherDeps{
		TaskTimeout: taskTimeout,
		Logger:      observability.NewEventLogger(logger.Named("dispatcher")),
	})

	inventoryService, err := services.NewInventoryService(services.InventoryServiceDeps{
		Inventory: inventoryRepo,
		Logger:    observability.NewEventLogger(logger.Named("inventory")),
		Metrics:   appMetrics,
	})
	if err != nil {
		logger.Fatal("failed to initialise inventory service", zap.Error(err))
	}

	notificationService, err := services.NewNotificationService(services.NotificationServiceDeps{
		Sender:       sender,
		OwnerAddress: cfg.Email.OwnerAddress,
		Logger:       observability.NewEventLogger(logger.Named("notifications")),
		Metrics:      appMetrics,
	})
	if err != nil {
		logger.Fatal("failed to initialise notification service", zap.Error(err))
	}

	orderService, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:        orderRepo,
		Inventory:     inventoryService,
		Notifications: notificationService,
		Dispatcher:    dispatcher,
		Logger:        observability.NewEventLogger(logger.Named("orders")),
		Metrics:       appMetrics,
	})
	if err != nil {
		logger.Fatal("failed to initialise order service", zap.Error(err))
	}

	checkoutService, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Pending:    pendingRepo,
		Payments:   stripeProvider,
		Currency:   cfg.Checkout.Currency,
		SuccessURL: cfg.Checkout.SuccessURL,
		CancelURL:  cfg.Checkout.CancelURL,
		PendingTTL: cfg.Checkout.PendingTTL,
		Logger:     observability.NewEventLogger(logger.Named("checkout")),
		Metrics:    appMetrics,
	})
	if err != nil {
		logger.Fatal("failed to initialise checkout service", zap.Error(err))
	}

	webhookService, err := services.NewWebhookService(services.WebhookServiceDeps{
		Payments: stripeProvider,
		Orders:   orderService,
		Logger:   observability.NewEventLogger(logger.Named("webhooks")),
		Metrics:  appMetrics,
	})
	if err != nil {
		logger.Fatal("failed to initialise webhook service", zap.Error(err))
	}

	catalogService, err := services.NewCatalogService(services.CatalogServiceDeps{
		Products:   productRepo,
		Categories: categoryRepo,
		Inventory:  inventoryService,
		Logger:     observability.NewEventLogger(logger.Named("catalog")),
	})
	if err != nil {
		logger.Fatal("failed to initialise catalog service", zap.Error(err))
	}

	promotionService, err := services.NewPromotionService(services.PromotionServiceDeps{
		Promotions: promotionRepo,
		Logger:     observability.NewEventLogger(logger.Named("promotions")),
	})
	if err != nil {
		logger.Fatal("failed to initialise promotion service", zap.Error(err))
	}

	authService, err := services.NewAuthService(services.AuthServiceDeps{
		Users:  userRepo,
		Tokens: tokenIssuer,
		Logger: observability.NewEventLogger(logger.Named("auth")),
	})
	if err != nil {
		logger.Fatal("failed to initialise auth service", zap.Error(err))
	}

	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithReadinessCheck("firestore", func(ctx context.Context) error {
			_, err := provider.Client(ctx)
			return err
		}),
	)

	checkoutHandlers := handlers.NewCheckoutHandlers(checkoutService)
	webhookHandlers := handlers.NewWebhookHandlers(webhookService)
	orderHandlers := handlers.NewOrderHandlers(orderService, tokenIssuer)
	catalogHandlers := handlers.NewCatalogHandlers(catalogService, tokenIssuer)
	promotionHandlers := handlers.NewPromotionHandlers(promotionService, tokenIssuer)
	authHandlers := handlers.NewAuthHandlers(authService)

	router := handlers.NewRouter(
		handlers.WithMiddlewares(
			observability.TraceMiddleware(),
			observability.InjectLoggerMiddleware(logger),
			observability.RequestLoggerMiddleware(),
			observability.RecoveryMiddleware(logger),
		),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithMetricsHandler(appMetrics.Handler()),
		handlers.WithCheckoutRoutes(checkoutHandlers.Routes),
		handlers.WithWebhookRoutes(webhookHandlers.Routes),
		handlers.WithOrderRoutes(orderHandlers.Routes),
		handlers.WithCatalogRoutes(catalogHandlers.Routes),
		handlers.WithPromotionRoutes(promotionHandlers.Routes),
		handlers.WithAuthRoutes(authHandlers.Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown error", zap.Error(err))
	}

	drainCtx, cancelDrain := context.WithTimeout(context.Background(), dispatcherDrain)
	defer cancelDrain()
	if err := dispatcher.Shutdown(drainCtx); err != nil {
		logger.Warn("dispatcher drain error", zap.Error(err))
	}

	logger.Info("server stopped")
}

// logSender stands in for SMTP delivery when no relay is configured.
type logSender struct {
	logger *zap.Logger
}

func (s *logSender) Send(_ context.Context, msg mail.Message) error {
	s.logger.Info("email suppressed",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}
