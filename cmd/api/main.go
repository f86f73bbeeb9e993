package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/joshua-takyi/greenwich/internal/config"
	"github.com/joshua-takyi/greenwich/internal/connect"
	"github.com/joshua-takyi/greenwich/internal/container"
	"github.com/joshua-takyi/greenwich/internal/models"
	"github.com/joshua-takyi/greenwich/internal/routes"
	"github.com/joshua-takyi/greenwich/internal/services"
)

const memoryAdminID = "admin-001"

func main() {
	// Load environment variables
	_ = godotenv.Load(".env.local", ".env")

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg)
	slog.SetDefault(logger)
	logger.Info("Starting Greenwich API server", "environment", cfg.Environment)
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	ctx := context.Background()

	probe := connect.NewProbe(logger)
	var mongoClient *mongo.Client
	if cfg.MongoDBURI != "" {
		mongoClient, err = connect.MongoDBConnect(ctx, cfg.MongoURI(), probe)
		if err != nil {
			logger.Error("Failed to configure MongoDB, continuing in memory mode", "error", err)
		}
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb, err = connect.RedisConnect(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Warn("Redis unavailable, realtime notifications disabled", "error", err)
		} else {
			logger.Info("Connected to Redis", "addr", cfg.RedisAddr)
		}
	}

	appContainer := container.NewContainer(logger, cfg, mongoClient, probe.Connected, rdb)

	if repo, ok := appContainer.MongoStore.(*models.MongodbRepo); ok && probe.Connected() {
		if err := repo.EnsureIndexes(ctx); err != nil {
			logger.Error("Failed to create MongoDB indexes", "error", err)
		}
	}

	seedAdmins(ctx, appContainer, probe.Connected())

	router := routes.SetupRoutes(appContainer)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port, "database", appContainer.Store.Backend())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	appContainer.Close()
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			logger.Error("Error closing Redis", "error", err)
		}
	}
	if err := connect.MongoDBDisconnect(mongoClient); err != nil {
		logger.Error("Error disconnecting from MongoDB", "error", err)
	}

	logger.Info("Server exited")
}

// seedAdmins makes sure the default admin exists in memory and, when reachable, in MongoDB.
func seedAdmins(ctx context.Context, c *container.Container, mongoUp bool) {
	if c.Config.AdminPassword == "" {
		c.Logger.Warn("ADMIN_PASSWORD not set, skipping admin seeding")
		return
	}
	seed := services.AdminSeed{Email: c.Config.AdminEmail, Password: c.Config.AdminPassword}

	memorySeed := seed
	memorySeed.ID = memoryAdminID
	if _, err := c.UserService.SeedAdmin(ctx, c.Store.Memory(), memorySeed); err != nil {
		c.Logger.Error("Failed to seed admin in memory", "error", err)
	}

	if c.MongoStore != nil && mongoUp {
		if _, err := c.UserService.SeedAdmin(ctx, c.MongoStore, seed); err != nil {
			c.Logger.Error("Failed to seed admin in MongoDB", "error", err)
		}
	}
}

func setupLogger(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	if cfg.IsProduction() {
		// JSON logging for production
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: parseLevel(cfg.LogLevel, slog.LevelInfo),
		})
	} else {
		// Human-readable logging for development
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: parseLevel(cfg.LogLevel, slog.LevelDebug),
		})
	}

	return slog.New(handler)
}

func parseLevel(s string, fallback slog.Level) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info":
		return slog.LevelInfo
	}
	return fallback
}
