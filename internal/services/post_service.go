package services

import (
	"context"
	"fmt"

	"github.com/joshua-takyi/greenwich/internal/models"
)

type PostService struct {
	store    models.Store
	notifier *NotificationService
}

func NewPostService(store models.Store, notifier *NotificationService) *PostService {
	return &PostService{
		store:    store,
		notifier: notifier,
	}
}

func (ps *PostService) Create(ctx context.Context, author *models.User, content, image string) (*models.Post, error) {
	post, err := ps.store.InsertPost(ctx, author.ID, content, image)
	if err != nil {
		return nil, storeError("Server error creating post", err)
	}
	return post, nil
}

// Feed lists the newest live posts across all users.
func (ps *PostService) Feed(ctx context.Context) ([]*models.Post, error) {
	posts, err := ps.store.ListPosts(ctx, models.PostFilter{Limit: models.FeedLimit})
	if err != nil {
		return nil, storeError("Server error fetching feed", err)
	}
	return posts, nil
}

func (ps *PostService) UserPosts(ctx context.Context, userID string) ([]*models.Post, error) {
	posts, err := ps.store.ListPosts(ctx, models.PostFilter{OwnerID: userID})
	if err != nil {
		return nil, storeError("Server error fetching posts", err)
	}
	return posts, nil
}

// ToggleLike flips the caller's like and tells the owner about new likes.
// Unlikes are silent.
func (ps *PostService) ToggleLike(ctx context.Context, actor *models.User, postID string) (*models.Post, bool, error) {
	post, liked, err := ps.store.ToggleLike(ctx, postID, actor.ID)
	if err != nil {
		return nil, false, storeError("Server error updating like", err)
	}
	if liked {
		ps.notifier.Notify(ctx, post.UserID, models.NotificationLike, actor.ID, post.ID,
			fmt.Sprintf("%s liked your post", actor.DisplayName()))
	}
	return post, liked, nil
}

func (ps *PostService) Comment(ctx context.Context, actor *models.User, postID, text string) (*models.Post, error) {
	post, err := ps.store.AppendComment(ctx, postID, actor.ID, text)
	if err != nil {
		return nil, storeError("Server error adding comment", err)
	}
	ps.notifier.Notify(ctx, post.UserID, models.NotificationComment, actor.ID, post.ID,
		fmt.Sprintf("%s commented on your post", actor.DisplayName()))
	return post, nil
}

func (ps *PostService) Delete(ctx context.Context, owner *models.User, postID string) (*models.Post, error) {
	post, err := ps.store.SoftDeletePost(ctx, postID, owner.ID)
	if err != nil {
		return nil, storeError("Server error deleting post", err)
	}
	return post, nil
}

func (ps *PostService) Restore(ctx context.Context, owner *models.User, postID string) (*models.Post, error) {
	post, err := ps.store.RestorePost(ctx, postID, owner.ID)
	if err != nil {
		return nil, storeError("Server error restoring post", err)
	}
	return post, nil
}

// Trash lists the owner's soft-deleted posts.
func (ps *PostService) Trash(ctx context.Context, owner *models.User) ([]*models.Post, error) {
	posts, err := ps.store.ListDeletedPosts(ctx, owner.ID)
	if err != nil {
		return nil, storeError("Server error fetching trash", err)
	}
	return posts, nil
}
