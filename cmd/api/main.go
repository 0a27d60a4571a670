package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/timelov/admin-api/internal/cache"
	"github.com/timelov/admin-api/internal/config"
	"github.com/timelov/admin-api/internal/database"
	"github.com/timelov/admin-api/internal/handler"
	"github.com/timelov/admin-api/internal/middleware"
	"github.com/timelov/admin-api/internal/repository"
	"github.com/timelov/admin-api/internal/service"
)

// main is the application entrypoint for the TimeLov admin API.
func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logger
	setupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Msg("starting admin api")

	// 3. Connect database
	db, err := database.Connect(&cfg.DB)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "database connection failed: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// 3a. Run migrations
	if err := runMigrations(db.DB); err != nil {
		log.Error().Err(err).Msg("migration failed")
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}
	log.Info().Msg("migrations completed successfully")

	// 3b. Connect to Redis
	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Error().Err(err).Msg("redis connection failed")
		fmt.Fprintf(os.Stderr, "redis connection failed: %v\n", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected successfully")

	// 4. Initialize repositories
	adminRepo := repository.NewAdminUserRepository(db)
	appUserRepo := repository.NewAppUserRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	pageRepo := repository.NewPageRepository(db)
	postRepo := repository.NewPostRepository(db)
	widgetRepo := repository.NewWidgetRepository(db)
	settingRepo := repository.NewSettingRepository(db)

	// 5. Initialize services
	blacklist := cache.NewRedisTokenBlacklist(redisClient)
	tokenSvc := service.NewTokenService(&cfg.Auth)
	hasher := service.NewPasswordHasher(cfg.Auth.BcryptCost)
	auditSvc := service.NewAuditService(auditRepo)
	emailSender := service.NewLogEmailSender()
	authSvc := service.NewAuthService(cfg, adminRepo, tokenSvc, hasher, blacklist, auditSvc, emailSender)
	userAuthSvc := service.NewUserAuthService(appUserRepo, tokenSvc, hasher, blacklist)

	// 6. Initialize handlers
	handlers := &Handlers{
		Health:    handler.NewHealthHandler(db, redisClient),
		Auth:      handler.NewAuthHandler(authSvc),
		UserAuth:  handler.NewUserAuthHandler(userAuthSvc),
		Page:      handler.NewPageHandler(pageRepo, auditSvc),
		Post:      handler.NewPostHandler(postRepo, auditSvc),
		Widget:    handler.NewWidgetHandler(widgetRepo, auditSvc),
		Settings:  handler.NewSettingsHandler(settingRepo, auditSvc),
		AuditLog:  handler.NewAuditLogHandler(auditRepo),
		Dashboard: handler.NewDashboardHandler(pageRepo, postRepo, widgetRepo, auditRepo),
	}

	// 7. Initialize middleware
	jwtMw := middleware.NewJWTMiddleware(authSvc)
	userJwtMw := middleware.NewUserJWTMiddleware(userAuthSvc)
	loginLimiter := middleware.NewIPRateLimiter(cfg.Auth.LockoutWindow/5, 5)
	resetLimiter := middleware.NewIPRateLimiter(20*time.Minute, 3)
	registerLimiter := middleware.NewIPRateLimiter(12*time.Minute, 5)

	// 8. Setup router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(cfg.CORS.AllowedHosts))
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.LoggingMiddleware())
	setupRoutes(router, handlers, jwtMw, userJwtMw, loginLimiter, resetLimiter, registerLimiter)

	// 9. Start HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// 10. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// 11. Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

// Handlers groups all HTTP handlers used by the server.
type Handlers struct {
	Health    *handler.HealthHandler
	Auth      *handler.AuthHandler
	UserAuth  *handler.UserAuthHandler
	Page      *handler.PageHandler
	Post      *handler.PostHandler
	Widget    *handler.WidgetHandler
	Settings  *handler.SettingsHandler
	AuditLog  *handler.AuditLogHandler
	Dashboard *handler.DashboardHandler
}

// setupRoutes registers all routes.
func setupRoutes(
	router *gin.Engine,
	handlers *Handlers,
	jwtMiddleware *middleware.JWTMiddleware,
	userJWTMiddleware *middleware.UserJWTMiddleware,
	loginLimiter, resetLimiter, registerLimiter *middleware.IPRateLimiter,
) {
	router.GET("/api/health", handlers.Health.Check)

	// Auth routes. Login and forgot-password carry per-IP rate limits on top
	// of the account lockout counter.
	auth := router.Group("/api/auth")
	{
		auth.POST("/login", loginLimiter.Handle(), handlers.Auth.Login)
		auth.POST("/refresh", handlers.Auth.Refresh)
		auth.POST("/forgot-password", resetLimiter.Handle(), handlers.Auth.ForgotPassword)
		auth.POST("/reset-password", handlers.Auth.ResetPassword)
		auth.POST("/setup", handlers.Auth.Setup)

		auth.POST("/logout", jwtMiddleware.Handle(), handlers.Auth.Logout)
		auth.GET("/me", jwtMiddleware.Handle(), handlers.Auth.Me)
	}

	// Public end-user auth routes. Registration and login are rate limited
	// per IP; public accounts carry no lockout counters.
	userAuth := router.Group("/api/auth/user")
	{
		userAuth.POST("/register", registerLimiter.Handle(), handlers.UserAuth.Register)
		userAuth.POST("/login", loginLimiter.Handle(), handlers.UserAuth.Login)
		userAuth.POST("/refresh", handlers.UserAuth.Refresh)
		userAuth.GET("/me", userJWTMiddleware.Handle(), handlers.UserAuth.Me)
	}

	// CMS routes (JWT protected)
	cms := router.Group("/api/cms")
	cms.Use(jwtMiddleware.Handle())
	{
		cms.GET("/dashboard", handlers.Dashboard.Stats)

		cms.GET("/pages", handlers.Page.List)
		cms.POST("/pages", handlers.Page.Create)
		cms.GET("/pages/:id", handlers.Page.Get)
		cms.PATCH("/pages/:id", handlers.Page.Update)
		cms.DELETE("/pages/:id", handlers.Page.Delete)

		cms.GET("/posts", handlers.Post.List)
		cms.POST("/posts", handlers.Post.Create)
		cms.GET("/posts/:id", handlers.Post.Get)
		cms.PATCH("/posts/:id", handlers.Post.Update)
		cms.DELETE("/posts/:id", handlers.Post.Delete)

		cms.GET("/widgets", handlers.Widget.List)
		cms.POST("/widgets", handlers.Widget.Create)
		cms.GET("/widgets/:id", handlers.Widget.Get)
		cms.PATCH("/widgets/:id", handlers.Widget.Update)
		cms.DELETE("/widgets/:id", handlers.Widget.Delete)

		cms.GET("/settings", handlers.Settings.List)
		cms.GET("/settings/:key", handlers.Settings.Get)
		cms.PUT("/settings/:key", handlers.Settings.Upsert)

		cms.GET("/audit-logs", handlers.AuditLog.List)
		cms.GET("/audit-logs/stats", handlers.AuditLog.Stats)
		cms.GET("/audit-logs/export", handlers.AuditLog.Export)
	}
}

// runMigrations runs database migrations using golang-migrate.
func runMigrations(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}
