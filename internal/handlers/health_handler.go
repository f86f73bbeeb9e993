package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/joshua-takyi/greenwich/internal/models"
)

const Version = "1.0.0"

// Health reports which backend would serve the next call.
func Health(store models.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"message":   "Greenwich Server is running",
			"database":  store.Backend(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"version":   Version,
		})
	}
}

func APINotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, models.ErrorResponse("API endpoint not found", models.KindNotFound))
	}
}
