package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-gonic/gin"
	"github.com/kylerivers/47-industries-admin/config"
	"github.com/kylerivers/47-industries-admin/controllers"
	"github.com/kylerivers/47-industries-admin/database"
	"github.com/kylerivers/47-industries-admin/events"
	"github.com/kylerivers/47-industries-admin/logger"
	"github.com/kylerivers/47-industries-admin/middleware"
	aws_pkg "github.com/kylerivers/47-industries-admin/pkg/aws"
	"github.com/kylerivers/47-industries-admin/providers"
	"github.com/kylerivers/47-industries-admin/repository"
	"github.com/kylerivers/47-industries-admin/routes"
	"github.com/kylerivers/47-industries-admin/services"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const serviceName = "admin-service"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// AWS is optional in development; everything degrades to no-ops.
	awsCfg, awsErr := aws_pkg.LoadAWSConfig(ctx)

	var cwWriter io.Writer
	if cfg.CloudWatchEnabled && awsErr == nil {
		if w, err := aws_pkg.NewCloudWatchLogsClient(ctx, awsCfg, serviceName); err == nil {
			cwWriter = w
		} else {
			log.Printf("CloudWatch Logs unavailable: %v", err)
		}
	}

	zapLogger, err := logger.InitializeWithWriter(cfg.AppEnv, cwWriter)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync() //nolint:errcheck

	db, err := database.ConnectPostgres(cfg.DSN(), zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db) //nolint:errcheck

	var metrics aws_pkg.MetricsRecorder = aws_pkg.NopMetrics{}
	if awsErr != nil {
		zapLogger.Warn("AWS config unavailable, metrics and SNS disabled", zap.Error(awsErr))
	} else {
		metrics = aws_pkg.NewMetricsClient(awsCfg)
	}

	publisher := newPublisher(cfg, awsErr == nil, awsCfg, zapLogger)
	defer publisher.Close() //nolint:errcheck

	var idempotencyStore services.IdempotencyStore
	if cfg.RedisURL != "" {
		rdb, err := database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			zapLogger.Warn("Redis unavailable, idempotent replay disabled", zap.Error(err))
		} else {
			defer rdb.Close() //nolint:errcheck
			idempotencyStore = services.NewRedisIdempotencyStore(rdb, cfg.IdempotencyTTL)
		}
	}

	// Providers
	stripeGateway := providers.NewStripeGateway(cfg.StripeAPIKey, cfg.StripeWebhookSecret, cfg.PublicBaseURL)
	shippo := providers.NewShippoProvider(cfg.ShippoAPIKey, cfg.ShippoBaseURL)
	var mailer providers.EmailSender = providers.DisabledEmailSender{}
	if cfg.SMTPHost != "" {
		smtpSender, err := providers.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)
		if err != nil {
			zapLogger.Warn("SMTP misconfigured, email disabled", zap.Error(err))
		} else {
			mailer = smtpSender
		}
	}

	// Repositories and services
	orderRepo := repository.NewGormOrderRepository(db)
	inquiryRepo := repository.NewGormInquiryRepository(db)
	invoiceRepo := repository.NewGormInvoiceRepository(db)
	inventoryRepo := repository.NewGormInventoryRepository(db)
	productRepo := repository.NewGormProductRepository(db)

	orderService := services.NewOrderService(orderRepo, stripeGateway, shippo, publisher, metrics,
		services.OrderServiceConfig{StrictTransitions: cfg.StrictStatusTransitions, Origin: cfg.OriginAddress()}, zapLogger)
	inquiryService := services.NewInquiryService(inquiryRepo, mailer, publisher, metrics,
		services.InquiryServiceConfig{StrictTransitions: cfg.StrictStatusTransitions}, zapLogger)
	invoiceService := services.NewInvoiceService(invoiceRepo, inquiryRepo, orderRepo, stripeGateway, mailer, publisher, metrics,
		services.InvoiceServiceConfig{DefaultTaxRate: cfg.DefaultTaxRate}, zapLogger)
	inventoryService := services.NewInventoryService(inventoryRepo, cfg.Thresholds(), publisher, metrics, zapLogger)
	productService := services.NewProductService(productRepo, zapLogger)

	if cfg.PaymentEventsQueueURL != "" && awsErr == nil {
		consumer := services.NewPaymentEventConsumer(
			aws_pkg.NewSQSConsumer(awsCfg, cfg.PaymentEventsQueueURL, zapLogger), orderService, zapLogger)
		go consumer.Start(ctx)
	}

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.RequestLogger(zapLogger),
		gin.Recovery(),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.AllowedOrigins),
		middleware.RateLimit(middleware.NewRateLimiter(rate.Limit(20), 40, 10*time.Minute)),
		middleware.Metrics(metrics, serviceName),
	)

	// 30-second request timeout
	r.Use(func(c *gin.Context) {
		reqCtx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()
		c.Request = c.Request.WithContext(reqCtx)
		c.Next()
	})

	var idempotency gin.HandlerFunc
	if idempotencyStore != nil {
		idempotency = middleware.IdempotentReplay(idempotencyStore, metrics, zapLogger)
	}
	routes.RegisterRoutes(r, routes.Controllers{
		Orders:    controllers.NewOrderController(orderService),
		Inquiries: controllers.NewInquiryController(inquiryService, invoiceService),
		Invoices:  controllers.NewInvoiceController(invoiceService),
		Inventory: controllers.NewInventoryController(inventoryService),
		Products:  controllers.NewProductController(productService),
		Webhooks:  controllers.NewWebhookController(stripeGateway, orderService, invoiceService, zapLogger),
	}, middleware.AdminAuth(cfg.JWTSecret), idempotency)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	zapLogger.Info("Admin service started", zap.String("port", cfg.Port))
	<-quit
	zapLogger.Info("Shutting down admin service...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	zapLogger.Info("Server exited cleanly")
}

// newPublisher picks the event transport from EVENTS_BACKEND.
func newPublisher(cfg *config.Config, awsReady bool, awsCfg sdkaws.Config, zapLogger *zap.Logger) events.Publisher {
	switch cfg.EventsBackend {
	case "sns":
		if !awsReady {
			zapLogger.Warn("EVENTS_BACKEND=sns but AWS is unavailable; events disabled")
			return events.NopPublisher{}
		}
		return events.NewSNSPublisher(aws_pkg.NewSNSClient(awsCfg), cfg.EventsSNSTopicARN)
	case "kafka":
		zapLogger.Info("Publishing events to Kafka", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
		return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	default:
		return events.NopPublisher{}
	}
}
