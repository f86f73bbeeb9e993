package models

import (
	"strings"
	"time"
)

const FeedLimit = 50

type Comment struct {
	UserID    string       `json:"userId"`
	Author    *UserSummary `json:"author,omitempty"`
	Content   string       `json:"content"`
	CreatedAt time.Time    `json:"createdAt"`
}

type Post struct {
	ID        string       `json:"id"`
	UserID    string       `json:"userId"`
	Author    *UserSummary `json:"author,omitempty"`
	Content   string       `json:"content"`
	Image     string       `json:"image"`
	Likes     []string     `json:"likes"`
	Comments  []Comment    `json:"comments"`
	Deleted   bool         `json:"deleted"`
	DeletedAt *time.Time   `json:"deletedAt,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

func (p *Post) LikedBy(userID string) bool {
	for _, id := range p.Likes {
		if id == userID {
			return true
		}
	}
	return false
}

// PostFilter narrows ListPosts. Deleted posts are never listed.
type PostFilter struct {
	OwnerID string
	Limit   int
}

// NormalizePostInput trims the post body and rejects posts with neither text nor image.
func NormalizePostInput(content, image string) (string, string, error) {
	content = strings.TrimSpace(content)
	image = strings.TrimSpace(image)
	if content == "" && image == "" {
		return "", "", NewValidationError("post must have content or image")
	}
	return content, image, nil
}

// NormalizeCommentInput trims the comment and rejects blank ones.
func NormalizeCommentInput(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", NewValidationError("comment content is required")
	}
	return text, nil
}
