package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joshua-takyi/greenwich/internal/metrics"
	"github.com/joshua-takyi/greenwich/internal/models"
	"github.com/joshua-takyi/greenwich/internal/services"
)

const (
	requestIDKey = "request_id"
	userKey      = "user"
)

// RequestID middleware adds a unique request ID to each request
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(requestIDKey, requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// StructuredLogger provides structured logging middleware
func StructuredLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}
		requestID, _ := c.Get(requestIDKey)

		logger.Info("HTTP Request",
			"request_id", requestID,
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}

// Metrics records count and latency per matched route.
func Metrics(recorder metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		recorder.RecordRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// ErrorHandler turns the last error a handler pushed with c.Error into the
// JSON error envelope. Unclassified errors become SERVER_ERROR, and their
// text is hidden in production.
func ErrorHandler(logger *slog.Logger, production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		requestID, _ := c.Get(requestIDKey)

		kind := models.KindServer
		message := err.Error()
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			kind = appErr.Kind
			message = appErr.Message
		}
		status := kind.Status()
		if status >= http.StatusInternalServerError && production {
			message = "Internal server error"
		}

		level := slog.LevelWarn
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "Request error",
			"request_id", requestID,
			"error", err.Error(),
			"code", kind,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		)

		if c.Writer.Written() {
			return
		}
		c.JSON(status, models.ErrorResponse(message, kind))
	}
}

// Recovery turns a panic into a ServerError for ErrorHandler to answer.
// It must be registered after ErrorHandler.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		_ = c.Error(models.NewServerError("Internal server error", fmt.Errorf("panic: %v", recovered)))
		c.Abort()
	})
}

// AuthMiddleware resolves the bearer token to a user and stores it in the
// context. Handlers read it back only through CurrentUser.
func AuthMiddleware(userService *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			_ = c.Error(models.NewAuthError(models.KindMissingToken, "No token, authorization denied"))
			c.Abort()
			return
		}

		user, err := userService.Authenticate(c.Request.Context(), token)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// RequireAdmin must run after AuthMiddleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok || !user.IsAdmin() {
			_ = c.Error(models.NewAuthError(models.KindForbidden, "Admin access required"))
			c.Abort()
			return
		}
		c.Next()
	}
}

func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, exists := c.Get(userKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok && user != nil
}
