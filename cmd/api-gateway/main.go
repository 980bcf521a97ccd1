package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/tahfidz-api/api/swagger"
	"github.com/noah-isme/tahfidz-api/internal/handler"
	"github.com/noah-isme/tahfidz-api/internal/middleware"
	"github.com/noah-isme/tahfidz-api/internal/repository"
	"github.com/noah-isme/tahfidz-api/internal/scoring"
	"github.com/noah-isme/tahfidz-api/internal/service"
	"github.com/noah-isme/tahfidz-api/pkg/cache"
	"github.com/noah-isme/tahfidz-api/pkg/config"
	"github.com/noah-isme/tahfidz-api/pkg/database"
	"github.com/noah-isme/tahfidz-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/tahfidz-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/tahfidz-api/pkg/middleware/requestid"
	"github.com/noah-isme/tahfidz-api/pkg/storage"
)

// @title Tahfidz API
// @version 1.0.0
// @description TPQ / Rumah Tahfidz management API with behaviour scoring
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect redis", "error", err)
	}
	defer redisClient.Close()

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	santriRepo := repository.NewSantriRepository(db)
	halaqahRepo := repository.NewHalaqahRepository(db)
	behaviorRepo := repository.NewBehaviorRepository(db)
	goalRepo := repository.NewGoalRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	hafalanRepo := repository.NewHafalanRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	reportRepo := repository.NewReportRepository(db)

	metricsSvc := service.NewMetricsService()

	policy := scoring.Policy{
		Baseline:           cfg.Scoring.Baseline,
		StabilityThreshold: cfg.Scoring.StabilityThreshold,
	}

	authSvc := service.NewAuthService(userRepo, cfg.JWT, validate, logr)
	userSvc := service.NewUserService(userRepo, validate, logr)
	santriSvc := service.NewSantriService(santriRepo, halaqahRepo, validate, logr)
	halaqahSvc := service.NewHalaqahService(halaqahRepo, validate, logr)
	behaviorSvc := service.NewBehaviorService(behaviorRepo, policy, validate, logr)
	goalSvc := service.NewGoalService(goalRepo, userRepo, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, validate, logr)
	hafalanSvc := service.NewHafalanService(hafalanRepo, validate, logr)
	paymentSvc := service.NewPaymentService(paymentRepo, userRepo, service.PaymentConfig{
		InvoicePrefix:  cfg.Billing.InvoicePrefix,
		CheckoutExpiry: cfg.Billing.CheckoutExpiry,
	}, validate, logr)

	var dashboardSvc *service.DashboardService
	if cfg.Dashboard.Enabled {
		dashboardSvc = service.NewDashboardService(
			santriRepo, halaqahRepo, attendanceRepo, hafalanRepo, goalRepo, paymentRepo,
			behaviorSvc, behaviorRepo, policy, redisClient, cfg.Dashboard.CacheTTL, logr,
		)
	}

	var reportSvc *service.ReportService
	if cfg.Reports.Enabled {
		store, err := storage.NewReportStore(cfg.Reports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init report storage", "error", err)
		}
		signer := storage.NewDownloadSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		reportSvc = service.NewReportService(
			reportRepo, behaviorRepo, hafalanRepo, attendanceRepo,
			store, signer, metricsSvc,
			service.ReportServiceConfig{
				Workers:    cfg.Reports.WorkerConcurrency,
				MaxRetries: cfg.Reports.WorkerRetries,
				BaseURL:    cfg.APIPrefix,
			}, logr,
		)
	}

	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	santriHandler := handler.NewSantriHandler(santriSvc)
	halaqahHandler := handler.NewHalaqahHandler(halaqahSvc)
	behaviorHandler := handler.NewBehaviorHandler(behaviorSvc, metricsSvc)
	goalHandler := handler.NewGoalHandler(goalSvc, metricsSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	hafalanHandler := handler.NewHafalanHandler(hafalanSvc)
	paymentHandler := handler.NewPaymentHandler(paymentSvc, metricsSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.WithResponseMeta())
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)

	protected := api.Group("", middleware.JWT(authSvc))
	protected.POST("/auth/logout", authHandler.Logout)
	protected.POST("/auth/change-password", authHandler.ChangePassword)
	protected.GET("/auth/me", authHandler.Me)

	users := protected.Group("/users", middleware.RBAC("ADMIN"))
	users.GET("", userHandler.List)
	users.GET("/:id", userHandler.Get)
	users.POST("", userHandler.Create)

	santri := protected.Group("/santri")
	santri.GET("", santriHandler.List)
	santri.GET("/:id", santriHandler.Get)
	santri.POST("", middleware.RBAC("ADMIN"), santriHandler.Create)
	santri.PUT("/:id", middleware.RBAC("ADMIN"), santriHandler.Update)
	santri.DELETE("/:id", middleware.RBAC("ADMIN"), santriHandler.Delete)

	halaqah := protected.Group("/halaqah")
	halaqah.GET("", halaqahHandler.List)
	halaqah.GET("/:id", halaqahHandler.Get)
	halaqah.POST("", middleware.RBAC("ADMIN"), halaqahHandler.Create)
	halaqah.PUT("/:id", middleware.RBAC("ADMIN"), halaqahHandler.Update)

	behavior := protected.Group("/behavior")
	behavior.GET("", behaviorHandler.List)
	behavior.GET("/summary/:santriId", behaviorHandler.Summary)
	behavior.POST("", middleware.RBAC("ADMIN", "MUSYRIF"), behaviorHandler.Create)
	behavior.PUT("/:id/follow-up", middleware.RBAC("ADMIN", "MUSYRIF"), behaviorHandler.UpdateFollowUp)
	behavior.DELETE("/:id", middleware.RBAC("ADMIN"), behaviorHandler.Archive)

	goals := protected.Group("/goals")
	goals.GET("", goalHandler.List)
	goals.GET("/summary", goalHandler.Summary)
	goals.GET("/:id", goalHandler.Get)
	goals.POST("", middleware.RBAC("ADMIN", "MUSYRIF"), goalHandler.Create)
	goals.POST("/:id/milestones", middleware.RBAC("ADMIN", "MUSYRIF"), goalHandler.AddMilestone)
	goals.POST("/:id/milestones/:milestoneId/complete", middleware.RBAC("ADMIN", "MUSYRIF"), goalHandler.CompleteMilestone)
	goals.PUT("/:id/status", middleware.RBAC("ADMIN", "MUSYRIF"), goalHandler.ChangeStatus)

	attendance := protected.Group("/attendance")
	attendance.GET("", attendanceHandler.List)
	attendance.GET("/summary/:santriId", attendanceHandler.Summary)
	attendance.GET("/today", attendanceHandler.Today)
	attendance.POST("", middleware.RBAC("ADMIN", "MUSYRIF"), attendanceHandler.Mark)

	hafalan := protected.Group("/hafalan")
	hafalan.GET("", hafalanHandler.List)
	hafalan.GET("/progress/:santriId", hafalanHandler.Progress)
	hafalan.POST("", middleware.RBAC("ADMIN", "MUSYRIF"), hafalanHandler.Create)

	if cfg.Billing.Enabled {
		payments := protected.Group("/payments")
		payments.GET("/invoices", paymentHandler.List)
		payments.GET("/invoices/:id", paymentHandler.Get)
		payments.GET("/summary", paymentHandler.Summary)
		payments.POST("/invoices", middleware.RBAC("ADMIN"), paymentHandler.Create)
		payments.POST("/invoices/:id/checkout", middleware.RBAC("ADMIN", "WALI"), paymentHandler.Checkout)
		payments.DELETE("/invoices/:id/checkout", middleware.RBAC("ADMIN", "WALI"), paymentHandler.CancelCheckout)
		payments.POST("/invoices/:id/confirm", middleware.RBAC("ADMIN"), paymentHandler.Confirm)
		payments.POST("/invoices/:id/expire", middleware.RBAC("ADMIN"), paymentHandler.Expire)
	}

	if dashboardSvc != nil {
		dashboardHandler := handler.NewDashboardHandler(dashboardSvc, metricsSvc)
		dashboard := protected.Group("/dashboard")
		dashboard.GET("/admin", middleware.RBAC("ADMIN"), dashboardHandler.Admin)
		dashboard.GET("/musyrif", middleware.RBAC("MUSYRIF"), dashboardHandler.Musyrif)
		dashboard.GET("/wali", middleware.RBAC("WALI"), dashboardHandler.Wali)
	}

	if reportSvc != nil {
		reportHandler := handler.NewReportHandler(reportSvc)
		reports := protected.Group("/reports")
		reports.GET("", reportHandler.ListMine)
		reports.GET("/:id", reportHandler.Get)
		reports.POST("", middleware.RBAC("ADMIN", "MUSYRIF"), reportHandler.Request)
		// Download uses a signed token, not a session.
		api.GET("/reports/download/:token", reportHandler.Download)
	}

	protected.GET("/metrics/snapshot", middleware.RBAC("ADMIN"), metricsHandler.Snapshot)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if reportSvc != nil {
		reportSvc.Start(ctx)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
	if reportSvc != nil {
		reportSvc.Stop()
	}
}
