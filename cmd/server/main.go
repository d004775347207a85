// Package main runs the registration backend HTTP server with the admin live feed and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/stride-coaching/backend/config"
	"github.com/stride-coaching/backend/internal/analytics"
	"github.com/stride-coaching/backend/internal/auth"
	"github.com/stride-coaching/backend/internal/contacts"
	"github.com/stride-coaching/backend/internal/events"
	"github.com/stride-coaching/backend/internal/middleware"
	"github.com/stride-coaching/backend/internal/models"
	"github.com/stride-coaching/backend/internal/notifications"
	"github.com/stride-coaching/backend/internal/payments"
	"github.com/stride-coaching/backend/internal/posts"
	"github.com/stride-coaching/backend/internal/promocodes"
	"github.com/stride-coaching/backend/internal/realtime"
	"github.com/stride-coaching/backend/internal/registrations"
	"github.com/stride-coaching/backend/internal/sessions"
	"github.com/stride-coaching/backend/internal/worker"
	"github.com/stride-coaching/backend/pkg/database"
	"github.com/stride-coaching/backend/pkg/queue"
	"github.com/stride-coaching/backend/pkg/redis"
	"github.com/stride-coaching/backend/pkg/response"
	"github.com/stride-coaching/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	// Cover uploads are optional; posts answer 503 for image endpoints without S3.
	var images posts.ImageStore
	if cfg.AWS.Region != "" && cfg.AWS.UploadsBucket != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			UploadsBucket:        cfg.AWS.UploadsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		} else {
			images = s3Client
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)

	// Notifications
	jobQueue := queue.NewQueue(rdb.Client, logger)
	notifier := notifications.NewNotifier(jobQueue, cfg.Webhook.URLs, logger)
	notificationRepo := notifications.NewRepository(pool)
	notificationHandler := notifications.NewHandler(notificationRepo, jobQueue, logger)
	webhookClient := &http.Client{Timeout: time.Duration(cfg.Webhook.TimeoutSec) * time.Second}
	notificationProcessor := worker.NewNotificationProcessor(notificationRepo, jobQueue, webhookClient, cfg.Webhook.Secret, logger)

	// Payments
	var gateway *payments.Gateway
	if cfg.NewebPay.Enabled() {
		gateway = payments.NewGateway(cfg.NewebPay)
	} else {
		logger.Warn("NewebPay not configured, online payment disabled")
	}
	paymentRepo := payments.NewRepository(pool)
	paymentService := payments.NewService(paymentRepo, gateway, notifier, hub, logger)
	paymentHandler := payments.NewHandler(paymentService, cfg.Server.SiteURL, logger)

	// Course sessions and registrations
	sessionRepo := sessions.NewRepository(pool)
	sessionHandler := sessions.NewHandler(sessionRepo, logger)
	registrationRepo := registrations.NewRepository(pool)
	registrationService := registrations.NewService(registrations.Deps{
		Store:    registrationRepo,
		Sessions: sessionRepo,
		Checkout: paymentService,
		Guard:    rdb,
		GuardTTL: cfg.Registration.DuplicateGuardTTL,
		Notifier: notifier,
		Feed:     hub,
	}, logger)
	registrationHandler := registrations.NewHandler(registrationService, cfg.Server.SiteURL, logger)

	// Promo codes and events
	promoRepo := promocodes.NewRepository(pool)
	promoService := promocodes.NewService(promoRepo, logger)
	promoHandler := promocodes.NewHandler(promoService, logger)
	eventRepo := events.NewRepository(pool)
	eventService := events.NewService(eventRepo, promoService, paymentService, notifier, hub, logger)
	eventHandler := events.NewHandler(eventRepo, eventService, logger)

	paymentService.SetOwner(models.PaymentKindCourse, registrationService)
	paymentService.SetOwner(models.PaymentKindEvent, eventService)

	// Content and back office
	postHandler := posts.NewHandler(posts.NewRepository(pool), images, logger)
	contactHandler := contacts.NewHandler(contacts.NewRepository(pool), notifier, logger)
	analyticsHandler := analytics.NewHandler(analytics.NewRepository(pool), logger)
	authHandler := auth.NewHandler(auth.NewRepository(pool), jwtService, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Metrics())

	router.GET("/health", func(c *gin.Context) {
		if err := pool.Ping(c.Request.Context()); err != nil {
			response.ServiceUnavailable(c, "database unavailable")
			return
		}
		response.OK(c, gin.H{"status": "ok", "online_payment": paymentService.Enabled()})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public site
	router.GET("/sessions", sessionHandler.List)
	router.POST("/registrations", registrationHandler.Create)
	router.POST("/registrations/preview", registrationHandler.Preview)
	router.GET("/registrations/:code/qr", registrationHandler.QR)
	router.POST("/promo-codes/validate", promoHandler.Validate)
	router.GET("/events", eventHandler.List)
	router.GET("/events/:id", eventHandler.GetByID)
	router.POST("/events/:id/register", eventHandler.Register)
	router.GET("/posts", postHandler.List)
	router.GET("/posts/:slug", postHandler.GetBySlug)
	router.POST("/contacts", contactHandler.Create)

	// Gateway callbacks (authenticated by TradeSha)
	router.POST("/payments/newebpay/notify", paymentHandler.Notify)
	router.POST("/payments/newebpay/return", paymentHandler.Return)

	router.POST("/auth/login", authHandler.Login)
	account := router.Group("/auth", middleware.JWT(jwtService))
	{
		account.GET("/me", authHandler.Me)
		account.PUT("/password", authHandler.ChangePassword)
	}

	// Back office (JWT required). Editors manage content; money and people need admin.
	staff := middleware.RequireRole(string(models.RoleAdmin), string(models.RoleEditor))
	adminOnly := middleware.RequireRole(string(models.RoleAdmin))
	admin := router.Group("/admin", middleware.JWT(jwtService))
	{
		admin.GET("/registrations", staff, registrationHandler.List)
		admin.GET("/registrations/:id", staff, registrationHandler.Get)
		admin.PATCH("/registrations/:id/payment-status", adminOnly, registrationHandler.UpdatePaymentStatus)
		admin.POST("/registrations/:id/transfer", staff, registrationHandler.Transfer)
		admin.POST("/registrations/:id/checkin", staff, registrationHandler.CheckIn)

		admin.POST("/sessions", adminOnly, sessionHandler.Create)
		admin.PUT("/sessions/:id", adminOnly, sessionHandler.Update)
		admin.DELETE("/sessions/:id", adminOnly, sessionHandler.Delete)

		admin.GET("/events", staff, eventHandler.AdminList)
		admin.POST("/events", staff, eventHandler.Create)
		admin.PATCH("/events/:id", staff, eventHandler.Update)
		admin.DELETE("/events/:id", adminOnly, eventHandler.Delete)
		admin.GET("/events/:id/registrations", staff, eventHandler.Registrations)

		admin.GET("/promo-codes", adminOnly, promoHandler.List)
		admin.POST("/promo-codes", adminOnly, promoHandler.Create)
		admin.PUT("/promo-codes/:id", adminOnly, promoHandler.Update)
		admin.DELETE("/promo-codes/:id", adminOnly, promoHandler.Delete)

		admin.GET("/payments", adminOnly, paymentHandler.List)

		admin.GET("/posts", staff, postHandler.AdminList)
		admin.POST("/posts", staff, postHandler.Create)
		admin.PUT("/posts/:id", staff, postHandler.Update)
		admin.DELETE("/posts/:id", staff, postHandler.Delete)
		admin.POST("/posts/:id/cover/upload-url", staff, postHandler.CoverUploadURL)
		admin.POST("/posts/:id/cover", staff, postHandler.UploadCover)

		admin.GET("/contacts", staff, contactHandler.List)
		admin.GET("/notifications", adminOnly, notificationHandler.List)
		admin.POST("/notifications/:id/resend", adminOnly, notificationHandler.Resend)
		admin.GET("/analytics/summary", staff, analyticsHandler.Summary)

		admin.GET("/users", adminOnly, authHandler.List)
		admin.POST("/users", adminOnly, authHandler.Create)
	}

	// WebSocket (token in query; no Authorization header required)
	upgrader := realtime.NewUpgrader(middleware.ParseOrigins(cfg.Server.CORSAllowedOrigins))
	router.GET("/admin/ws", realtime.ServeWs(hub, upgrader, jwtService.ValidateToken, logger,
		string(models.RoleAdmin), string(models.RoleEditor)))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// In-process webhook delivery; cmd/worker can run more consumers on the same queue.
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if len(cfg.Webhook.URLs) > 0 {
		go notificationProcessor.Run(workerCtx)
		logger.Info("notification worker started", zap.Int("targets", len(cfg.Webhook.URLs)))
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
