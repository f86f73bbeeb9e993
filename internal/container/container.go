package container

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/joshua-takyi/greenwich/internal/config"
	"github.com/joshua-takyi/greenwich/internal/helpers"
	"github.com/joshua-takyi/greenwich/internal/metrics"
	"github.com/joshua-takyi/greenwich/internal/middleware"
	"github.com/joshua-takyi/greenwich/internal/models"
	"github.com/joshua-takyi/greenwich/internal/realtime"
	"github.com/joshua-takyi/greenwich/internal/services"
)

// Container holds all application dependencies
type Container struct {
	Logger *slog.Logger
	Config *config.Config

	// Database clients; both may be nil
	MongoDBClient *mongo.Client
	Redis         *redis.Client

	Registry *prometheus.Registry
	Metrics  *metrics.Collector

	Store      *models.DualStore
	MongoStore models.Store

	Tokens              *helpers.TokenManager
	UserService         *services.UserService
	PostService         *services.PostService
	NotificationService *services.NotificationService
	AuthLimiter         *middleware.RateLimiter
}

// NewContainer creates a new dependency injection container. connected is
// consulted on every store call to choose between Mongo and memory.
func NewContainer(
	logger *slog.Logger,
	cfg *config.Config,
	mongoDBClient *mongo.Client,
	connected func() bool,
	rdb *redis.Client,
) *Container {
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	var mongoStore models.Store
	if mongoDBClient != nil {
		mongoStore = models.MongodbNewRepo(mongoDBClient, cfg.MongoDBDatabase)
	}
	store := models.NewDualStore(models.NewMemoryStore(), mongoStore, connected)
	store.OnBackend = collector.RecordBackend

	tokens := helpers.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	notificationService := services.NewNotificationService(store, realtime.NewPublisher(rdb), collector, logger)

	return &Container{
		Logger:              logger,
		Config:              cfg,
		MongoDBClient:       mongoDBClient,
		Redis:               rdb,
		Registry:            registry,
		Metrics:             collector,
		Store:               store,
		MongoStore:          mongoStore,
		Tokens:              tokens,
		UserService:         services.NewUserService(store, tokens, logger),
		PostService:         services.NewPostService(store, notificationService),
		NotificationService: notificationService,
		AuthLimiter:         middleware.NewRateLimiter(middleware.PerMinute(cfg.AuthRatePerMinute), collector),
	}
}

// Close stops background workers. Client connections are closed by the caller.
func (c *Container) Close() {
	c.AuthLimiter.Stop()
}
