package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joshua-takyi/greenwich/internal/middleware"
	"github.com/joshua-takyi/greenwich/internal/models"
	"github.com/joshua-takyi/greenwich/internal/services"
)

func Register(u *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req services.RegisterInput
		if !bindJSON(c, &req) {
			return
		}

		res, err := u.Register(c.Request.Context(), req)
		if err != nil {
			_ = c.Error(err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"message": "User registered successfully",
			"user":    res.User,
			"token":   res.Token,
		})
	}
}

func Login(u *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req services.LoginInput
		if !bindJSON(c, &req) {
			return
		}

		res, err := u.Login(c.Request.Context(), req)
		if err != nil {
			_ = c.Error(err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"user":    res.User,
			"token":   res.Token,
		})
	}
}

// bindJSON reports a malformed body as a validation error.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		_ = c.Error(models.NewValidationError("invalid request payload"))
		return false
	}
	return true
}

// currentUser fetches the authenticated user or pushes MissingToken when
// the route was mounted without AuthMiddleware.
func currentUser(c *gin.Context) (*models.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		_ = c.Error(models.NewAuthError(models.KindMissingToken, "No token, authorization denied"))
		return nil, false
	}
	return user, true
}
