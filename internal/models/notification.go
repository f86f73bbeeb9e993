package models

import "time"

const (
	NotificationLike    = "like"
	NotificationComment = "comment"
	NotificationFollow  = "follow"
	NotificationSystem  = "system"

	NotificationLimit = 50
)

type Notification struct {
	ID         string       `json:"id"`
	UserID     string       `json:"userId"`
	Type       string       `json:"type" validate:"required,oneof=like comment follow system"`
	FromUserID string       `json:"fromUserId,omitempty"`
	FromUser   *UserSummary `json:"fromUser,omitempty"`
	PostID     string       `json:"postId,omitempty"`
	Content    string       `json:"content"`
	Read       bool         `json:"read"`
	ReadAt     *time.Time   `json:"readAt,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
}
