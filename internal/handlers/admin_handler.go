package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joshua-takyi/greenwich/internal/services"
)

func ListUsers(u *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := u.ListUsers(c.Request.Context())
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "users": users, "count": len(users)})
	}
}

func PendingApprovals(u *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := u.PendingApprovals(c.Request.Context())
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "users": users, "count": len(users)})
	}
}

func ApproveUser(u *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := u.Approve(c.Request.Context(), c.Param("id"))
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "User approved successfully",
			"user":    user,
		})
	}
}

func RejectUser(u *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := u.Reject(c.Request.Context(), c.Param("id"))
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "User rejected",
			"user":    user,
		})
	}
}
