package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joshua-takyi/greenwich/internal/models"
	"github.com/joshua-takyi/greenwich/internal/services"
)

func GetProfile(u *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		profile, err := u.Profile(c.Request.Context(), user.ID)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "user": profile})
	}
}

func UpdateProfile(u *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}
		var update models.UserUpdate
		if !bindJSON(c, &update) {
			return
		}

		updated, err := u.UpdateProfile(c.Request.Context(), user.ID, update)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Profile updated successfully",
			"user":    updated,
		})
	}
}

func ListUserPosts(p *services.PostService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		posts, err := p.UserPosts(c.Request.Context(), user.ID)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "posts": posts, "count": len(posts)})
	}
}

func ListTrash(p *services.PostService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		posts, err := p.Trash(c.Request.Context(), user)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "posts": posts, "count": len(posts)})
	}
}
