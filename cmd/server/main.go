// Package main runs the RaiseMyHand classroom Q&A server with WebSocket
// broadcast and graceful shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/OER-Forge/raisemyhand/config"
	"github.com/OER-Forge/raisemyhand/internal/answers"
	"github.com/OER-Forge/raisemyhand/internal/auth"
	"github.com/OER-Forge/raisemyhand/internal/classes"
	"github.com/OER-Forge/raisemyhand/internal/meetings"
	"github.com/OER-Forge/raisemyhand/internal/middleware"
	"github.com/OER-Forge/raisemyhand/internal/models"
	"github.com/OER-Forge/raisemyhand/internal/questions"
	"github.com/OER-Forge/raisemyhand/internal/realtime"
	"github.com/OER-Forge/raisemyhand/internal/sysconfig"
	"github.com/OER-Forge/raisemyhand/pkg/database"
	"github.com/OER-Forge/raisemyhand/pkg/redis"
	"github.com/OER-Forge/raisemyhand/pkg/response"
	"github.com/OER-Forge/raisemyhand/pkg/utils"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	// Redis is optional: without it the hub broadcasts local to this
	// instance only.
	var pub realtime.Publisher
	var sub realtime.Subscriber
	if cfg.Redis.Addr != "" {
		rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer rdb.Close()
		bridge := realtime.NewRedisPubSub(rdb.Client, logger)
		pub, sub = bridge, bridge
	} else {
		logger.Info("redis disabled, hub running local-only")
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)

	hubCfg := realtime.Config{
		MaxMessages: cfg.Realtime.MaxMessages,
		RateWindow:  time.Duration(cfg.Realtime.RateWindowSec) * time.Second,
		IdleTimeout: time.Duration(cfg.Realtime.IdleTimeoutSec) * time.Second,
	}
	hub := realtime.NewHub(logger, hubCfg, clockwork.NewRealClock(), pub, sub)
	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	go hub.Run(hubCtx)

	// Config
	configRepo := sysconfig.NewRepository(pool)
	registrationGate := func(ctx context.Context) bool {
		return configRepo.BoolFlag(ctx, models.ConfigKeyRegistrationEnabled, true)
	}

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, registrationGate, logger)
	bootstrapAdmin(ctx, cfg.Admin, authRepo, logger)

	// Classes
	classRepo := classes.NewRepository(pool)
	classHandler := classes.NewHandler(classRepo, logger)

	// Meetings and questions
	meetingRepo := meetings.NewRepository(pool)
	questionRepo := questions.NewRepository(pool)
	meetingHandler := meetings.NewHandler(meetingRepo, classRepo, questionRepo, logger)
	questionHandler := questions.NewHandler(questionRepo, meetingRepo, hub, logger)

	// Written answers
	answerRepo := answers.NewRepository(pool)
	answerHandler := answers.NewHandler(answerRepo, questionRepo, meetingRepo, hub, logger)

	configHandler := sysconfig.NewHandler(configRepo, hub, logger)

	jwtValidate := func(token string) (uuid.UUID, models.Role, error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return uuid.Nil, "", err
		}
		return claims.InstructorID, claims.Role, nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
	}

	// Student endpoints (public, per-IP rate limited). Students are
	// anonymous; knowing the meeting code is the only credential.
	student := router.Group("/api")
	student.Use(middleware.RateLimit(cfg.Server.RequestsPerSecond, cfg.Server.RequestBurst))
	{
		student.GET("/meetings/:code", meetingHandler.Get)
		student.GET("/meetings/:code/answers", answerHandler.ListForMeeting)
		student.POST("/meetings/:code/questions", questionHandler.Create)
		student.POST("/questions/:id/vote", questionHandler.Vote)
	}

	// Instructor API (JWT bearer token or API key)
	api := router.Group("/api")
	api.Use(middleware.InstructorAuth(jwtValidate, authRepo.ValidateAPIKey))
	{
		api.GET("/me", authHandler.Me)

		api.POST("/keys", authHandler.CreateAPIKey)
		api.GET("/keys", authHandler.ListAPIKeys)
		api.DELETE("/keys/:id", authHandler.RevokeAPIKey)

		api.POST("/classes", classHandler.Create)
		api.GET("/classes", classHandler.List)
		api.GET("/classes/:id", classHandler.Get)
		api.PUT("/classes/:id", classHandler.Update)
		api.POST("/classes/:id/archive", classHandler.Archive)
		api.POST("/classes/:id/unarchive", classHandler.Unarchive)
		api.POST("/classes/:id/meetings", meetingHandler.Create)
		api.GET("/classes/:id/meetings", meetingHandler.ListByClass)

		api.GET("/instructor/meetings/:code", meetingHandler.GetByInstructorCode)
		api.POST("/instructor/meetings/:code/end", meetingHandler.End)
		api.POST("/instructor/meetings/:code/restart", meetingHandler.Restart)
		api.GET("/instructor/meetings/:code/report", meetingHandler.Report)

		api.PATCH("/questions/:id/status", questionHandler.UpdateStatus)
		api.POST("/questions/:id/answered", questionHandler.MarkAnswered)

		api.PUT("/questions/:id/answer", answerHandler.Write)
		api.GET("/questions/:id/answer", answerHandler.Get)
		api.POST("/questions/:id/answer/approve", answerHandler.Approve)
		api.POST("/questions/:id/answer/retract", answerHandler.Retract)
		api.DELETE("/questions/:id/answer", answerHandler.Delete)

		admin := api.Group("/admin")
		admin.Use(middleware.RequireRole(models.RoleAdmin))
		{
			admin.GET("/config", configHandler.List)
			admin.GET("/config/:key", configHandler.Get)
			admin.PUT("/config/:key", configHandler.Set)

			admin.POST("/instructors", authHandler.CreateInstructor)
			admin.GET("/instructors", authHandler.ListInstructors)
			admin.GET("/instructors/:id", authHandler.GetInstructor)
			admin.PUT("/instructors/:id/activate", authHandler.ActivateInstructor)
			admin.PUT("/instructors/:id/deactivate", authHandler.DeactivateInstructor)
			admin.POST("/instructors/:id/reset-password", authHandler.ResetInstructorPassword)
			admin.POST("/instructors/bulk/activate", authHandler.BulkActivate)
			admin.POST("/instructors/bulk/deactivate", authHandler.BulkDeactivate)
		}
	}

	// WebSocket (no Authorization header; system channel takes a token in
	// the query string)
	validateMeeting := func(ctx context.Context, code string) error {
		_, err := meetingRepo.GetActiveByCode(ctx, code)
		switch {
		case errors.Is(err, meetings.ErrNotFound):
			return realtime.ErrMeetingNotFound
		case errors.Is(err, meetings.ErrNotActive):
			return realtime.ErrMeetingNotActive
		}
		return err
	}
	validateWsToken := func(token string) error {
		_, err := jwtService.Validate(token)
		return err
	}
	router.GET("/ws/:code", realtime.ServeWs(hub, logger, validateMeeting, validateWsToken))

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

	hubCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

// bootstrapAdmin creates the admin account from ADMIN_USERNAME and
// ADMIN_PASSWORD when set and absent. Existing accounts are left alone.
func bootstrapAdmin(ctx context.Context, cfg config.AdminConfig, repo *auth.Repository, logger *zap.Logger) {
	if cfg.Username == "" || cfg.Password == "" {
		return
	}
	if _, err := repo.GetByUsername(ctx, cfg.Username); err == nil {
		return
	}
	hash, err := utils.HashPassword(cfg.Password)
	if err != nil {
		logger.Error("bootstrap admin", zap.Error(err))
		return
	}
	admin := &models.Instructor{
		Username:     cfg.Username,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
	}
	if err := repo.Create(ctx, admin); err != nil {
		logger.Error("bootstrap admin", zap.Error(err))
		return
	}
	logger.Info("bootstrap admin created", zap.String("username", cfg.Username))
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
