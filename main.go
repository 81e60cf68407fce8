package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dvs-teja/webanalytics/aggregator"
	"github.com/dvs-teja/webanalytics/config"
	"github.com/dvs-teja/webanalytics/database"
	"github.com/dvs-teja/webanalytics/docstore"
	"github.com/dvs-teja/webanalytics/handlers"
	"github.com/dvs-teja/webanalytics/logger"
	"github.com/dvs-teja/webanalytics/middleware"
	"github.com/dvs-teja/webanalytics/store"
	"github.com/dvs-teja/webanalytics/tracker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	// --- PostgreSQL: users, admins, and session documents ---
	pgClient, err := database.NewPostgresDB(cfg.Postgres, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to initialize PostgreSQL", zap.Error(err))
	}
	defer pgClient.Close()

	userStore := store.NewUserStore(pgClient.DB, zapLogger)
	if err := userStore.EnsureSchema(ctx); err != nil {
		zapLogger.Fatal("failed to ensure user schema", zap.Error(err))
	}

	sessionStore := docstore.NewPostgresStore(pgClient.DB, zapLogger)
	if err := sessionStore.EnsureSchema(ctx); err != nil {
		zapLogger.Fatal("failed to ensure document schema", zap.Error(err))
	}

	// --- ClickHouse: optional raw page-view event log ---
	var eventStore *store.EventStore
	var eventSink tracker.EventSink
	if cfg.ClickHouse.EventsEnabled() {
		chClient, err := database.NewClickHouseDB(cfg.ClickHouse, zapLogger)
		if err != nil {
			zapLogger.Fatal("failed to initialize ClickHouse", zap.Error(err))
		}
		defer chClient.Close()

		eventStore = store.NewEventStore(chClient, zapLogger)
		if err := eventStore.EnsureSchema(ctx); err != nil {
			zapLogger.Fatal("failed to ensure event schema", zap.Error(err))
		}
		eventSink = eventStore
	} else {
		zapLogger.Info("page-view event log disabled (CLICKHOUSE_HOST not set)")
	}

	trackers := tracker.NewManager(sessionStore, eventSink, zapLogger)
	agg := aggregator.New(sessionStore, zapLogger)

	jwtSecret := []byte(cfg.Auth.JWTSecret)
	authHandlers := handlers.NewAuthHandlers(userStore, trackers, jwtSecret, cfg.Auth.TokenTTL, zapLogger)
	pageHandlers := handlers.NewPageHandlers(trackers, zapLogger)
	adminHandlers := handlers.NewAdminHandlers(
		userStore, agg, eventStore,
		jwtSecret, cfg.Auth.TokenTTL, cfg.Dashboard.RefreshInterval,
		zapLogger,
	)

	r := gin.Default()
	r.Use(middleware.CORSMiddleware(cfg.FrontendURL))

	api := r.Group("/api")
	{
		api.GET("/", pageHandlers.Index)

		api.POST("/signup", authHandlers.Signup)
		api.POST("/login", authHandlers.Login)
		api.POST("/logout", authHandlers.Logout)
		api.POST("/admin/login", adminHandlers.Login)

		protected := api.Group("/")
		protected.Use(middleware.AuthRequired(jwtSecret, zapLogger))
		{
			protected.GET("/pages/:name", pageHandlers.GetPage)
			protected.GET("/profile", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{
					"message":    "Welcome to your profile!",
					"user_email": c.GetString("user_email"),
					"ip_address": c.ClientIP(),
				})
			})
		}

		admin := api.Group("/admin")
		admin.Use(middleware.AuthRequired(jwtSecret, zapLogger), middleware.AdminRequired())
		{
			admin.GET("/analytics", adminHandlers.GetAnalytics)
			admin.GET("/analytics/charts", adminHandlers.GetCharts)
			admin.GET("/stats/pageviews-over-time", adminHandlers.GetPageViewsOverTime)
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		zapLogger.Info("API server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("API server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Fatal("server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("server exiting")
}
