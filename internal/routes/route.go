package routes

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/joshua-takyi/greenwich/internal/container"
	"github.com/joshua-takyi/greenwich/internal/handlers"
	"github.com/joshua-takyi/greenwich/internal/metrics"
	"github.com/joshua-takyi/greenwich/internal/middleware"
	"github.com/joshua-takyi/greenwich/internal/models"
)

// SetupRoutes configures all routes with the dependency container
func SetupRoutes(container *container.Container) *gin.Engine {
	production := container.Config.IsProduction()
	if production {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     container.Config.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID", "Retry-After"},
		AllowCredentials: true,
	}))

	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(container.Logger))
	r.Use(middleware.Metrics(container.Metrics))
	r.Use(middleware.ErrorHandler(container.Logger, production))
	r.Use(middleware.Recovery())

	r.GET("/metrics", gin.WrapH(metrics.Handler(container.Registry)))

	api := r.Group("/api")
	{
		api.GET("/health", handlers.Health(container.Store))

		limited := container.AuthLimiter.Middleware()
		api.POST("/register", limited, handlers.Register(container.UserService))
		api.POST("/login", limited, handlers.Login(container.UserService))
	}

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(container.UserService))
	{
		protected.GET("/feed", handlers.Feed(container.PostService))
		protected.POST("/posts", handlers.CreatePost(container.PostService))
		protected.PUT("/posts/:id/like", handlers.ToggleLike(container.PostService))
		protected.POST("/posts/:id/comment", handlers.AddComment(container.PostService))
		protected.DELETE("/posts/:id", handlers.DeletePost(container.PostService))
		protected.PUT("/posts/:id/restore", handlers.RestorePost(container.PostService))
	}

	userRoutes := protected.Group("/user")
	{
		userRoutes.GET("/posts", handlers.ListUserPosts(container.PostService))
		userRoutes.GET("/trash", handlers.ListTrash(container.PostService))
		userRoutes.GET("/profile", handlers.GetProfile(container.UserService))
		userRoutes.PUT("/profile", handlers.UpdateProfile(container.UserService))
	}

	notificationRoutes := protected.Group("/notifications")
	{
		notificationRoutes.GET("", handlers.ListNotifications(container.NotificationService))
		notificationRoutes.GET("/stream", handlers.StreamNotifications(container.NotificationService))
		notificationRoutes.PUT("/read-all", handlers.MarkAllNotificationsRead(container.NotificationService))
		notificationRoutes.PUT("/:id/read", handlers.MarkNotificationRead(container.NotificationService))
	}

	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(middleware.RequireAdmin())
	{
		adminRoutes.GET("/users", handlers.ListUsers(container.UserService))
		adminRoutes.PUT("/users/:id/approve", handlers.ApproveUser(container.UserService))
		adminRoutes.PUT("/users/:id/reject", handlers.RejectUser(container.UserService))
		adminRoutes.GET("/pending-approvals", handlers.PendingApprovals(container.UserService))
	}

	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			handlers.APINotFound()(c)
			return
		}
		c.JSON(http.StatusNotFound, models.ErrorResponse("Not found", models.KindNotFound))
	})

	return r
}
