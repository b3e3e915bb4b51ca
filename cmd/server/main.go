package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/config"
	"storefront/internal/api"
	"storefront/internal/auth"
	"storefront/internal/broker"
	"storefront/internal/media"
	"storefront/internal/notify"
	"storefront/internal/payments"
	"storefront/internal/redisclient"
	"storefront/internal/service"
	"storefront/internal/store"
	"storefront/internal/util"
	"storefront/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting storefront service", zap.String("store", cfg.Database.Driver), zap.String("notify", cfg.Kafka.NotifyMode))

	tp, err := util.InitTracer("storefront", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := openBackend(cfg)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.Database.Driver, err)
	}
	defer db.Close()
	logger.Info("Store connected", zap.String("driver", cfg.Database.Driver))

	var (
		cache  service.CartCache
		locker service.Locker
		rdb    *redisclient.Client
	)
	if cfg.Redis.Addr != "" {
		rdb, err = redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer rdb.Close()
		cache, locker = rdb, rdb
		logger.Info("Redis connected")
	}

	var (
		producer  *broker.Producer
		publisher *broker.EventPublisher
	)
	if len(cfg.Kafka.Brokers) > 0 {
		producer = broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents)
		defer producer.Close()
		publisher = broker.NewEventPublisher(producer)
		logger.Info("Kafka producer initialized")
	}

	provider, err := payments.NewStripeProvider(payments.StripeProviderConfig{
		APIKey:        cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
	})
	if err != nil {
		log.Fatalf("Failed to initialize Stripe: %v", err)
	}

	mailer := mailNotifier(cfg)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var (
		webhookNotifier notify.Notifier = mailer
		notifyWorker    *worker.NotificationWorker
	)
	if cfg.Kafka.NotifyMode == "kafka" {
		webhookNotifier = notify.NewEventNotifier(publisher)
		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents, cfg.Kafka.ConsumerGroup)
		notifyWorker = worker.NewNotificationWorker(consumer, mailer)
		go func() {
			if err := notifyWorker.Start(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Notification worker stopped", zap.Error(err))
			}
		}()
	}

	var uploader media.Uploader
	if cfg.Cloudinary.CloudName != "" {
		cld, err := media.NewCloudinaryUploader(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret, cfg.Cloudinary.Folder)
		if err != nil {
			log.Fatalf("Failed to initialize Cloudinary: %v", err)
		}
		uploader = cld
	} else {
		logger.Warn("Cloudinary is not configured, product image uploads are disabled")
	}

	var orderEvents service.OrderEventPublisher
	if publisher != nil {
		orderEvents = publisher
	}

	tokens := auth.NewTokenManager(
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.AccessTTLMinutes)*time.Minute,
		time.Duration(cfg.Auth.RefreshTTLHours)*time.Hour,
	)

	carts := service.NewCartService(db, cache)
	svc := api.Services{
		Accounts: service.NewAccountService(db, tokens, service.AdminCredentials{
			ID:       cfg.Auth.AdminID,
			Email:    cfg.Auth.AdminEmail,
			Password: cfg.Auth.AdminPassword,
		}),
		Catalog: service.NewCatalogService(db, uploader),
		Carts:   carts,
		Checkout: service.NewCheckoutService(db, db, carts, provider, locker, orderEvents, service.CheckoutConfig{
			SuccessURL: cfg.Stripe.SuccessURL,
			CancelURL:  cfg.Stripe.CancelURL,
			Currency:   cfg.Stripe.Currency,
		}),
		Webhooks: service.NewWebhookService(provider, db, db, carts, webhookNotifier),
		Orders:   service.NewOrderService(db),
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(svc, tokens, api.Config{
		AllowedOrigin: cfg.Server.AllowedOrigin,
		SecureCookies: cfg.Auth.SecureRefreshToken,
	})
	handler.AddReadinessCheck("store", db)
	if rdb != nil {
		handler.AddReadinessCheck("redis", rdb)
	}
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if notifyWorker != nil {
		if err := notifyWorker.Stop(); err != nil {
			logger.Warn("Failed to stop notification worker", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}

func openBackend(cfg *config.Config) (store.Backend, error) {
	switch cfg.Database.Driver {
	case "mongo":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return store.NewMongoStore(ctx, cfg.Database.MongoURI, cfg.Database.MongoDatabase)
	case "memory":
		return store.NewMemoryStore(), nil
	default:
		db, err := store.NewStore(cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := db.Migrate(); err != nil {
				db.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		return db, nil
	}
}

// mailNotifier sends through Mailjet when keys are configured and logs the
// confirmation otherwise.
func mailNotifier(cfg *config.Config) notify.Notifier {
	if cfg.Mailjet.PublicKey == "" || cfg.Mailjet.PrivateKey == "" {
		util.GetLogger().Warn("Mailjet is not configured, order confirmations are logged only")
		return notify.NewLogNotifier()
	}
	return notify.NewMailjetNotifier(
		cfg.Mailjet.PublicKey,
		cfg.Mailjet.PrivateKey,
		cfg.Mailjet.SenderEmail,
		cfg.Mailjet.SenderName,
		cfg.Stripe.Currency,
	)
}
