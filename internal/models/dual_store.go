package models

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// DualStore routes every call to Mongo while the probe reports it reachable
// and to the memory store otherwise. The probe is asked on each call.
type DualStore struct {
	memory    Store
	mongo     Store
	connected func() bool

	// OnBackend, when set, is told about the backend chosen for a call.
	OnBackend func(backend string)

	last atomic.Value
}

func NewDualStore(memory, mongo Store, connected func() bool) *DualStore {
	if connected == nil {
		connected = func() bool { return false }
	}
	return &DualStore{memory: memory, mongo: mongo, connected: connected}
}

func (d *DualStore) active() Store {
	store := d.memory
	if d.mongo != nil && d.connected() {
		store = d.mongo
	}
	backend := store.Backend()
	if prev, _ := d.last.Swap(backend).(string); prev != backend {
		if prev != "" {
			slog.Warn("persistence backend switched", "from", prev, "to", backend)
		}
	}
	if d.OnBackend != nil {
		d.OnBackend(backend)
	}
	return store
}

func (d *DualStore) Backend() string {
	if d.mongo != nil && d.connected() {
		return d.mongo.Backend()
	}
	return d.memory.Backend()
}

// Memory exposes the fallback store, used for admin seeding.
func (d *DualStore) Memory() Store {
	return d.memory
}

func (d *DualStore) FindUserByID(ctx context.Context, id string) (*User, error) {
	return d.active().FindUserByID(ctx, id)
}

func (d *DualStore) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	return d.active().FindUserByEmail(ctx, email)
}

func (d *DualStore) FindUserByUsername(ctx context.Context, username string) (*User, error) {
	return d.active().FindUserByUsername(ctx, username)
}

func (d *DualStore) InsertUser(ctx context.Context, user *User) (*User, error) {
	return d.active().InsertUser(ctx, user)
}

func (d *DualStore) UpdateUser(ctx context.Context, id string, update UserUpdate) (*User, error) {
	return d.active().UpdateUser(ctx, id, update)
}

func (d *DualStore) ListUsers(ctx context.Context, filter UserFilter) ([]*User, error) {
	return d.active().ListUsers(ctx, filter)
}

func (d *DualStore) InsertPost(ctx context.Context, ownerID, content, image string) (*Post, error) {
	return d.active().InsertPost(ctx, ownerID, content, image)
}

func (d *DualStore) GetPost(ctx context.Context, id string) (*Post, error) {
	return d.active().GetPost(ctx, id)
}

func (d *DualStore) ListPosts(ctx context.Context, filter PostFilter) ([]*Post, error) {
	return d.active().ListPosts(ctx, filter)
}

func (d *DualStore) ListDeletedPosts(ctx context.Context, ownerID string) ([]*Post, error) {
	return d.active().ListDeletedPosts(ctx, ownerID)
}

func (d *DualStore) ToggleLike(ctx context.Context, postID, userID string) (*Post, bool, error) {
	return d.active().ToggleLike(ctx, postID, userID)
}

func (d *DualStore) AppendComment(ctx context.Context, postID, userID, text string) (*Post, error) {
	return d.active().AppendComment(ctx, postID, userID, text)
}

func (d *DualStore) SoftDeletePost(ctx context.Context, postID, ownerID string) (*Post, error) {
	return d.active().SoftDeletePost(ctx, postID, ownerID)
}

func (d *DualStore) RestorePost(ctx context.Context, postID, ownerID string) (*Post, error) {
	return d.active().RestorePost(ctx, postID, ownerID)
}

func (d *DualStore) InsertNotification(ctx context.Context, n *Notification) (*Notification, error) {
	return d.active().InsertNotification(ctx, n)
}

func (d *DualStore) ListNotifications(ctx context.Context, userID string, limit int) ([]*Notification, error) {
	return d.active().ListNotifications(ctx, userID, limit)
}

func (d *DualStore) CountUnread(ctx context.Context, userID string) (int64, error) {
	return d.active().CountUnread(ctx, userID)
}

func (d *DualStore) MarkNotificationRead(ctx context.Context, id, userID string) (*Notification, error) {
	return d.active().MarkNotificationRead(ctx, id, userID)
}

func (d *DualStore) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	return d.active().MarkAllNotificationsRead(ctx, userID)
}
