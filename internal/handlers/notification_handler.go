package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/joshua-takyi/greenwich/internal/services"
)

func ListNotifications(n *services.NotificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		list, unread, err := n.List(c.Request.Context(), user.ID)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":       true,
			"notifications": list,
			"unreadCount":   unread,
		})
	}
}

func MarkNotificationRead(n *services.NotificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		notification, err := n.MarkRead(c.Request.Context(), c.Param("id"), user.ID)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "notification": notification})
	}
}

func MarkAllNotificationsRead(n *services.NotificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		modified, err := n.MarkAllRead(c.Request.Context(), user.ID)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"message":  "All notifications marked as read",
			"modified": modified,
		})
	}
}

// StreamNotifications relays the caller's new notifications as server-sent
// events until the client goes away. Without Redis the stream does not exist.
func StreamNotifications(n *services.NotificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		ctx := c.Request.Context()
		sub, err := n.Subscribe(ctx, user.ID)
		if err != nil {
			_ = c.Error(err)
			return
		}
		defer func() { _ = sub.Close() }()

		// the server write timeout is meant for ordinary requests
		_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Status(http.StatusOK)
		c.Writer.Flush()

		messages := sub.Channel()
		c.Stream(func(w io.Writer) bool {
			select {
			case <-ctx.Done():
				return false
			case msg, open := <-messages:
				if !open {
					return false
				}
				c.SSEvent("notification", msg.Payload)
				return true
			}
		})
	}
}
