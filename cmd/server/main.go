// Package main runs the speaker portal HTTP server with WebSocket push and
// graceful shutdown.
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

	"github.com/cybercon/speaker-portal/config"
	"github.com/cybercon/speaker-portal/internal/admin"
	"github.com/cybercon/speaker-portal/internal/audit"
	"github.com/cybercon/speaker-portal/internal/auth"
	"github.com/cybercon/speaker-portal/internal/broadcast"
	"github.com/cybercon/speaker-portal/internal/files"
	"github.com/cybercon/speaker-portal/internal/middleware"
	"github.com/cybercon/speaker-portal/internal/models"
	"github.com/cybercon/speaker-portal/internal/notifications"
	"github.com/cybercon/speaker-portal/internal/questions"
	"github.com/cybercon/speaker-portal/internal/realtime"
	"github.com/cybercon/speaker-portal/internal/reviews"
	"github.com/cybercon/speaker-portal/internal/scheduling"
	"github.com/cybercon/speaker-portal/internal/sessions"
	"github.com/cybercon/speaker-portal/pkg/database"
	"github.com/cybercon/speaker-portal/pkg/queue"
	"github.com/cybercon/speaker-portal/pkg/redis"
	"github.com/cybercon/speaker-portal/pkg/response"
	"github.com/cybercon/speaker-portal/pkg/storage"
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

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var store storage.Store
	if cfg.Storage.Backend == "s3" {
		store, err = storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			Bucket:               cfg.AWS.FilesBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Fatal("s3 store", zap.Error(err))
		}
	} else {
		store, err = storage.NewLocal(cfg.Storage.LocalDir)
		if err != nil {
			logger.Fatal("local store", zap.Error(err))
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpireHours, cfg.JWT.RefreshExpireDays)
	revoker := auth.NewRevoker(rdb.Client)
	mfa := auth.NewMFA(cfg.MFA.Issuer)
	hub := realtime.NewHub(logger)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	auditRepo := audit.NewRepository(pool, logger)

	notifRepo := notifications.NewRepository(pool)
	notifService := notifications.NewService(notifRepo, hub, jobQueue, logger)
	notifHandler := notifications.NewHandler(notifRepo, notifService, logger)

	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, mfa, revoker, auditRepo, logger)

	sessionRepo := sessions.NewRepository(pool)
	sessionHandler := sessions.NewHandler(sessionRepo, logger)

	fileRepo := files.NewRepository(pool)
	fileHandler := files.NewHandler(fileRepo, sessionRepo, store, cfg.Upload.MaxFileSizeMB, cfg.Upload.AllowedExtensions, logger)

	reviewRepo := reviews.NewRepository(pool)
	reviewHandler := reviews.NewHandler(reviewRepo, sessionRepo, notifService, logger)

	scheduleRepo := scheduling.NewRepository(pool)
	scheduleHandler := scheduling.NewHandler(scheduleRepo, sessionRepo, notifService, logger)

	questionRepo := questions.NewRepository(pool)
	questionHandler := questions.NewHandler(questionRepo, sessionRepo, notifService, logger)

	broadcastRepo := broadcast.NewRepository(pool)
	broadcastHandler := broadcast.NewHandler(broadcastRepo, notifService, logger)

	adminRepo := admin.NewRepository(pool)
	adminHandler := admin.NewHandler(adminRepo, store, auditRepo, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Metrics())

	router.GET("/health", func(c *gin.Context) {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(pingCtx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "down"})
			return
		}
		response.OK(c, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// WebSocket push (token in query; no Authorization header required)
	router.GET("/ws", realtime.ServeWs(hub, jwtService, logger))

	// Auth (public)
	authGroup := router.Group("/api/auth")
	authGroup.Use(middleware.RateLimit(rdb.Client, cfg.RateLimit.RequestsPerMinute, logger))
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
	}

	// Protected API
	api := router.Group("/api")
	api.Use(middleware.RateLimit(rdb.Client, cfg.RateLimit.RequestsPerMinute, logger))
	api.Use(middleware.JWT(jwtService, revoker))
	{
		api.POST("/auth/logout", authHandler.Logout)
		api.GET("/auth/profile", authHandler.Profile)
		api.PUT("/auth/profile", authHandler.UpdateProfile)
		api.POST("/auth/change-password", authHandler.ChangePassword)
		api.POST("/auth/mfa/setup", authHandler.MFASetup)
		api.POST("/auth/mfa/verify", authHandler.MFAVerify)
		api.POST("/auth/mfa/disable", authHandler.MFADisable)

		// Sessions
		api.GET("/session-types", sessionHandler.ListTypes)
		api.GET("/sessions", sessionHandler.List)
		api.POST("/sessions", sessionHandler.Create)
		api.GET("/sessions/:id", sessionHandler.Get)
		api.PUT("/sessions/:id", sessionHandler.Update)
		api.DELETE("/sessions/:id", sessionHandler.Delete)
		api.POST("/sessions/:id/submit", sessionHandler.Submit)
		api.POST("/sessions/:id/resubmit", sessionHandler.Resubmit)

		// Session files (versioned). /file is the current version.
		api.POST("/sessions/:id/files", fileHandler.Upload)
		api.GET("/sessions/:id/files", fileHandler.ListVersions)
		api.GET("/sessions/:id/file", fileHandler.DownloadCurrent)
		api.GET("/sessions/:id/files/:fileId", fileHandler.Download)
		api.GET("/sessions/:id/files/:fileId/view", fileHandler.View)
		api.DELETE("/sessions/:id/files/:fileId", fileHandler.Delete)
		api.GET("/files/:fileId", fileHandler.Download)
		api.GET("/files/:fileId/view", fileHandler.View)
		api.DELETE("/files/:fileId", fileHandler.Delete)

		// Questions
		api.POST("/sessions/:id/questions", questionHandler.Ask)
		api.GET("/sessions/:id/questions", questionHandler.ListForSession)
		api.POST("/questions/:questionId/responses", questionHandler.Respond)
		api.GET("/questions/:questionId/responses", questionHandler.ListResponses)
		api.POST("/questions/:questionId/close", questionHandler.CloseQuestion)

		// Schedules and rooms (read side)
		api.GET("/sessions/:id/schedule", scheduleHandler.GetForSession)
		api.GET("/schedules", scheduleHandler.List)
		api.GET("/rooms", scheduleHandler.ListRooms)

		api.GET("/faqs", adminHandler.ListFAQs)

		// Broadcast inbox
		api.GET("/messages", broadcastHandler.Inbox)
		api.POST("/messages/:id/read", broadcastHandler.MarkRead)

		// Notifications. PUT on the collection marks everything read.
		api.GET("/notifications", notifHandler.List)
		api.PUT("/notifications", notifHandler.MarkAllRead)
		api.POST("/notifications/:id/read", notifHandler.MarkRead)
		api.DELETE("/notifications/:id", notifHandler.Delete)
		api.GET("/notification-preferences", notifHandler.GetPreferences)
		api.PUT("/notification-preferences", notifHandler.UpdatePreferences)
	}

	// Approver surface (managers and admins)
	approver := api.Group("/approver")
	approver.Use(middleware.RequireRole(auditRepo, models.RoleManager, models.RoleAdmin))
	{
		approver.GET("/dashboard", reviewHandler.Dashboard)
		approver.GET("/questions", questionHandler.Queue)

		approver.GET("/sessions/:id/review", reviewHandler.GetMine)
		approver.PUT("/sessions/:id/review", reviewHandler.Save)
		approver.POST("/sessions/:id/review/complete", reviewHandler.Complete)
		approver.GET("/sessions/:id/reviews", reviewHandler.ListReviews)
		approver.POST("/reviews/:reviewId/comments", reviewHandler.AddComment)
		approver.GET("/reviews/:reviewId/comments", reviewHandler.ListComments)

		approver.POST("/sessions/:id/schedule", scheduleHandler.Place)
		approver.PATCH("/schedules/:scheduleId", scheduleHandler.SetStatus)
	}

	// Admin surface
	adminGroup := api.Group("/admin")
	adminGroup.Use(middleware.RequireRole(auditRepo, models.RoleAdmin))
	{
		adminGroup.GET("/users", adminHandler.ListUsers)
		adminGroup.PUT("/users/:id/roles", adminHandler.SetRoles)
		adminGroup.PATCH("/users/:id/active", adminHandler.SetActive)
		adminGroup.GET("/users/:id/audit", adminHandler.AuditTrail)

		adminGroup.POST("/sessions/:id/assignments", reviewHandler.Assign)
		adminGroup.GET("/sessions/:id/assignments", reviewHandler.ListAssignments)
		adminGroup.DELETE("/assignments/:assignmentId", reviewHandler.CancelAssignment)

		adminGroup.POST("/invitations", adminHandler.Invite)
		adminGroup.GET("/invitations", adminHandler.ListInvitations)

		adminGroup.GET("/faqs", adminHandler.ListAllFAQs)
		adminGroup.POST("/faqs", adminHandler.CreateFAQ)
		adminGroup.PUT("/faqs/:faqId", adminHandler.UpdateFAQ)
		adminGroup.DELETE("/faqs/:faqId", adminHandler.DeleteFAQ)

		adminGroup.POST("/rooms", scheduleHandler.CreateRoom)

		adminGroup.POST("/broadcasts", broadcastHandler.Create)
		adminGroup.GET("/broadcasts", broadcastHandler.List)
		adminGroup.GET("/broadcasts/:id", broadcastHandler.Get)

		adminGroup.POST("/notifications", notifHandler.Send)
		adminGroup.GET("/files/export", adminHandler.BulkDownload)
		adminGroup.GET("/stats", adminHandler.Stats)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
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
