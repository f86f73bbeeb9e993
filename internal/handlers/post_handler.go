package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joshua-takyi/greenwich/internal/models"
	"github.com/joshua-takyi/greenwich/internal/services"
)

type createPostRequest struct {
	Content string `json:"content" form:"content"`
	Image   string `json:"image" form:"image"`
}

type commentRequest struct {
	Content string `json:"content"`
}

func Feed(p *services.PostService) gin.HandlerFunc {
	return func(c *gin.Context) {
		posts, err := p.Feed(c.Request.Context())
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "posts": posts, "count": len(posts)})
	}
}

// CreatePost accepts JSON or form fields. The image is an opaque reference.
func CreatePost(p *services.PostService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}
		var req createPostRequest
		if err := c.ShouldBind(&req); err != nil {
			_ = c.Error(models.NewValidationError("invalid request payload"))
			return
		}

		post, err := p.Create(c.Request.Context(), user, req.Content, req.Image)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"message": "Post created successfully",
			"post":    post,
		})
	}
}

func ToggleLike(p *services.PostService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		post, isLiked, err := p.ToggleLike(c.Request.Context(), user, c.Param("id"))
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "post": post, "isLiked": isLiked})
	}
}

func AddComment(p *services.PostService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}
		var req commentRequest
		if !bindJSON(c, &req) {
			return
		}

		post, err := p.Comment(c.Request.Context(), user, c.Param("id"), req.Content)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "post": post})
	}
}

func DeletePost(p *services.PostService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		post, err := p.Delete(c.Request.Context(), user, c.Param("id"))
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Post moved to trash",
			"post":    post,
		})
	}
}

func RestorePost(p *services.PostService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		post, err := p.Restore(c.Request.Context(), user, c.Param("id"))
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Post restored",
			"post":    post,
		})
	}
}
