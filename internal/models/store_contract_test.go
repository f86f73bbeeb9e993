package models

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fakeUserSeq atomic.Int64

func fakeUser() *User {
	n := fakeUserSeq.Add(1)
	return &User{
		Username:         fmt.Sprintf("%s%d", gofakeit.Username(), n),
		Email:            fmt.Sprintf("u%d.%s", n, gofakeit.Email()),
		Password:         gofakeit.Password(true, true, true, false, false, 12),
		Name:             gofakeit.FirstName(),
		Surname:          gofakeit.LastName(),
		OrganizationName: gofakeit.Company(),
	}
}

func mustInsertUser(t *testing.T, store Store) *User {
	t.Helper()
	u, err := store.InsertUser(context.Background(), fakeUser())
	require.NoError(t, err)
	return u
}

// runStoreContract checks the behavior every Store backend must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("insert user applies defaults", func(t *testing.T) {
		store := newStore(t)
		in := fakeUser()
		in.OrganizationName = ""

		u, err := store.InsertUser(ctx, in)
		require.NoError(t, err)
		assert.NotEmpty(t, u.ID)
		assert.Equal(t, RoleUser, u.Role)
		assert.Equal(t, ApprovalPending, u.IsApproved)
		assert.Equal(t, DefaultOrganizationName, u.OrganizationName)
		assert.Equal(t, []string{"Other"}, u.OrganizationType)
		assert.False(t, u.CreatedAt.IsZero())
	})

	t.Run("duplicate username or email is rejected", func(t *testing.T) {
		store := newStore(t)
		first := mustInsertUser(t, store)

		sameEmail := fakeUser()
		sameEmail.Email = first.Email
		_, err := store.InsertUser(ctx, sameEmail)
		assert.ErrorIs(t, err, ErrDuplicateKey)

		sameName := fakeUser()
		sameName.Username = first.Username
		_, err = store.InsertUser(ctx, sameName)
		assert.ErrorIs(t, err, ErrDuplicateKey)
	})

	t.Run("find user by email or username", func(t *testing.T) {
		store := newStore(t)
		u := mustInsertUser(t, store)

		byEmail, err := store.FindUserByEmail(ctx, u.Email)
		require.NoError(t, err)
		assert.Equal(t, u.ID, byEmail.ID)
		assert.NotEmpty(t, byEmail.Password)

		byName, err := store.FindUserByUsername(ctx, u.Username)
		require.NoError(t, err)
		assert.Equal(t, u.ID, byName.ID)

		_, err = store.FindUserByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = store.FindUserByEmail(ctx, u.Username)
		assert.ErrorIs(t, err, ErrNotFound, "email lookup never matches usernames")
		_, err = store.FindUserByUsername(ctx, u.Email)
		assert.ErrorIs(t, err, ErrNotFound, "username lookup never matches emails")

		_, err = store.FindUserByID(ctx, "missing-id")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("username shaped like another email does not shadow it", func(t *testing.T) {
		store := newStore(t)
		victim := fakeUser()

		squatter := fakeUser()
		squatter.Username = victim.Email
		_, err := store.InsertUser(ctx, squatter)
		require.NoError(t, err)

		owner, err := store.InsertUser(ctx, victim)
		require.NoError(t, err)

		found, err := store.FindUserByEmail(ctx, victim.Email)
		require.NoError(t, err)
		assert.Equal(t, owner.ID, found.ID)
	})

	t.Run("update user merges fields", func(t *testing.T) {
		store := newStore(t)
		u := mustInsertUser(t, store)

		name := "Renamed"
		approved := ApprovalApproved
		updated, err := store.UpdateUser(ctx, u.ID, UserUpdate{Name: &name, IsApproved: &approved})
		require.NoError(t, err)
		assert.Equal(t, "Renamed", updated.Name)
		assert.Equal(t, ApprovalApproved, updated.IsApproved)
		assert.Equal(t, u.Surname, updated.Surname)
		assert.Equal(t, u.Email, updated.Email)

		_, err = store.UpdateUser(ctx, "missing-id", UserUpdate{Name: &name})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list users filters by approval state", func(t *testing.T) {
		store := newStore(t)
		a := mustInsertUser(t, store)
		b := mustInsertUser(t, store)
		approved := ApprovalApproved
		_, err := store.UpdateUser(ctx, a.ID, UserUpdate{IsApproved: &approved})
		require.NoError(t, err)

		pending, err := store.ListUsers(ctx, UserFilter{ApprovalState: ApprovalPending})
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, b.ID, pending[0].ID)

		all, err := store.ListUsers(ctx, UserFilter{})
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, b.ID, all[0].ID, "newest first")
	})

	t.Run("insert post validates and populates", func(t *testing.T) {
		store := newStore(t)
		u := mustInsertUser(t, store)

		_, err := store.InsertPost(ctx, u.ID, "   ", "")
		assert.ErrorIs(t, err, ErrValidation)

		p, err := store.InsertPost(ctx, u.ID, "  hello  ", "")
		require.NoError(t, err)
		assert.Equal(t, "hello", p.Content)
		assert.Equal(t, u.ID, p.UserID)
		require.NotNil(t, p.Author)
		assert.Equal(t, u.Username, p.Author.Username)
		assert.NotNil(t, p.Likes)
		assert.Empty(t, p.Likes)
		assert.NotNil(t, p.Comments)
		assert.Empty(t, p.Comments)
		assert.False(t, p.Deleted)

		imageOnly, err := store.InsertPost(ctx, u.ID, "", "img-ref")
		require.NoError(t, err)
		assert.Equal(t, "img-ref", imageOnly.Image)
	})

	t.Run("list posts newest first with owner filter and limit", func(t *testing.T) {
		store := newStore(t)
		alice := mustInsertUser(t, store)
		bob := mustInsertUser(t, store)

		p1, err := store.InsertPost(ctx, alice.ID, "one", "")
		require.NoError(t, err)
		p2, err := store.InsertPost(ctx, bob.ID, "two", "")
		require.NoError(t, err)
		p3, err := store.InsertPost(ctx, alice.ID, "three", "")
		require.NoError(t, err)

		feed, err := store.ListPosts(ctx, PostFilter{})
		require.NoError(t, err)
		require.Len(t, feed, 3)
		assert.Equal(t, []string{p3.ID, p2.ID, p1.ID}, []string{feed[0].ID, feed[1].ID, feed[2].ID})

		mine, err := store.ListPosts(ctx, PostFilter{OwnerID: alice.ID})
		require.NoError(t, err)
		require.Len(t, mine, 2)
		for _, p := range mine {
			assert.Equal(t, alice.ID, p.UserID)
		}

		limited, err := store.ListPosts(ctx, PostFilter{Limit: 1})
		require.NoError(t, err)
		require.Len(t, limited, 1)
		assert.Equal(t, p3.ID, limited[0].ID)
	})

	t.Run("toggle like adds then removes", func(t *testing.T) {
		store := newStore(t)
		u := mustInsertUser(t, store)
		p, err := store.InsertPost(ctx, u.ID, "likeable", "")
		require.NoError(t, err)

		liked, isLiked, err := store.ToggleLike(ctx, p.ID, u.ID)
		require.NoError(t, err)
		assert.True(t, isLiked)
		assert.Equal(t, []string{u.ID}, liked.Likes)

		unliked, isLiked, err := store.ToggleLike(ctx, p.ID, u.ID)
		require.NoError(t, err)
		assert.False(t, isLiked)
		assert.Empty(t, unliked.Likes)

		_, _, err = store.ToggleLike(ctx, "missing-id", u.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("concurrent likes from distinct users are all kept", func(t *testing.T) {
		store := newStore(t)
		owner := mustInsertUser(t, store)
		p, err := store.InsertPost(ctx, owner.ID, "popular", "")
		require.NoError(t, err)

		const n = 16
		likers := make([]*User, n)
		for i := range likers {
			likers[i] = mustInsertUser(t, store)
		}

		var wg sync.WaitGroup
		for _, liker := range likers {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				_, _, err := store.ToggleLike(ctx, p.ID, id)
				assert.NoError(t, err)
			}(liker.ID)
		}
		wg.Wait()

		got, err := store.GetPost(ctx, p.ID)
		require.NoError(t, err)
		assert.Len(t, got.Likes, n)
	})

	t.Run("append comment validates and populates author", func(t *testing.T) {
		store := newStore(t)
		owner := mustInsertUser(t, store)
		commenter := mustInsertUser(t, store)
		p, err := store.InsertPost(ctx, owner.ID, "discuss", "")
		require.NoError(t, err)

		_, err = store.AppendComment(ctx, p.ID, commenter.ID, "  ")
		assert.ErrorIs(t, err, ErrValidation)

		updated, err := store.AppendComment(ctx, p.ID, commenter.ID, " nice ")
		require.NoError(t, err)
		require.Len(t, updated.Comments, 1)
		c := updated.Comments[0]
		assert.Equal(t, "nice", c.Content)
		assert.Equal(t, commenter.ID, c.UserID)
		require.NotNil(t, c.Author)
		assert.Equal(t, commenter.Username, c.Author.Username)
		assert.False(t, c.CreatedAt.IsZero())

		_, err = store.AppendComment(ctx, "missing-id", commenter.ID, "hi")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("soft delete hides post until restored", func(t *testing.T) {
		store := newStore(t)
		owner := mustInsertUser(t, store)
		other := mustInsertUser(t, store)
		p, err := store.InsertPost(ctx, owner.ID, "ephemeral", "")
		require.NoError(t, err)

		_, err = store.SoftDeletePost(ctx, p.ID, other.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		deleted, err := store.SoftDeletePost(ctx, p.ID, owner.ID)
		require.NoError(t, err)
		assert.True(t, deleted.Deleted)
		require.NotNil(t, deleted.DeletedAt)

		feed, err := store.ListPosts(ctx, PostFilter{})
		require.NoError(t, err)
		assert.Empty(t, feed)

		trash, err := store.ListDeletedPosts(ctx, owner.ID)
		require.NoError(t, err)
		require.Len(t, trash, 1)
		assert.Equal(t, p.ID, trash[0].ID)

		stillThere, err := store.GetPost(ctx, p.ID)
		require.NoError(t, err)
		assert.True(t, stillThere.Deleted)

		restored, err := store.RestorePost(ctx, p.ID, owner.ID)
		require.NoError(t, err)
		assert.False(t, restored.Deleted)
		assert.Nil(t, restored.DeletedAt)

		feed, err = store.ListPosts(ctx, PostFilter{})
		require.NoError(t, err)
		assert.Len(t, feed, 1)
	})

	t.Run("notifications are listed populated and marked read", func(t *testing.T) {
		store := newStore(t)
		alice := mustInsertUser(t, store)
		bob := mustInsertUser(t, store)
		p, err := store.InsertPost(ctx, alice.ID, "hi", "")
		require.NoError(t, err)

		first, err := store.InsertNotification(ctx, &Notification{
			UserID: alice.ID, Type: NotificationLike, FromUserID: bob.ID, PostID: p.ID, Content: "liked",
		})
		require.NoError(t, err)
		assert.False(t, first.Read)
		require.NotNil(t, first.FromUser)
		assert.Equal(t, bob.Username, first.FromUser.Username)

		second, err := store.InsertNotification(ctx, &Notification{
			UserID: alice.ID, Type: NotificationComment, FromUserID: bob.ID, PostID: p.ID, Content: "commented",
		})
		require.NoError(t, err)

		list, err := store.ListNotifications(ctx, alice.ID, NotificationLimit)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, second.ID, list[0].ID)
		assert.Equal(t, p.ID, list[0].PostID)

		unread, err := store.CountUnread(ctx, alice.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 2, unread)

		_, err = store.MarkNotificationRead(ctx, first.ID, bob.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		read, err := store.MarkNotificationRead(ctx, first.ID, alice.ID)
		require.NoError(t, err)
		assert.True(t, read.Read)
		assert.NotNil(t, read.ReadAt)

		modified, err := store.MarkAllNotificationsRead(ctx, alice.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 1, modified)

		unread, err = store.CountUnread(ctx, alice.ID)
		require.NoError(t, err)
		assert.Zero(t, unread)

		none, err := store.ListNotifications(ctx, bob.ID, NotificationLimit)
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}
