package services

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/joshua-takyi/greenwich/internal/metrics"
	"github.com/joshua-takyi/greenwich/internal/models"
	"github.com/joshua-takyi/greenwich/internal/realtime"
)

const (
	notifyStored  = "stored"
	notifyFailed  = "failed"
	notifySkipped = "skipped"
)

type NotificationService struct {
	store     models.Store
	publisher *realtime.Publisher
	metrics   metrics.Recorder
	logger    *slog.Logger
}

func NewNotificationService(store models.Store, publisher *realtime.Publisher, recorder metrics.Recorder, logger *slog.Logger) *NotificationService {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationService{
		store:     store,
		publisher: publisher,
		metrics:   recorder,
		logger:    logger,
	}
}

// Notify records a notification for recipientID and pushes it to any live
// subscriber. It is best effort: failures are logged and counted but never
// returned, and an actor acting on their own content produces nothing.
func (ns *NotificationService) Notify(ctx context.Context, recipientID, kind, actorID, postID, text string) {
	if recipientID == "" || actorID == recipientID {
		ns.metrics.RecordNotification(kind, notifySkipped)
		return
	}

	n := &models.Notification{
		UserID:     recipientID,
		Type:       kind,
		FromUserID: actorID,
		PostID:     postID,
		Content:    text,
	}
	if err := models.Validate.Struct(n); err != nil {
		ns.logger.Warn("dropping malformed notification", "type", kind, "error", err)
		ns.metrics.RecordNotification(kind, notifyFailed)
		return
	}

	stored, err := ns.store.InsertNotification(ctx, n)
	if err != nil {
		ns.logger.Error("failed to store notification",
			"recipient", recipientID,
			"type", kind,
			"backend", ns.store.Backend(),
			"error", err,
		)
		ns.metrics.RecordNotification(kind, notifyFailed)
		return
	}
	ns.metrics.RecordNotification(kind, notifyStored)

	if err := ns.publisher.PublishNotification(ctx, stored); err != nil {
		ns.logger.Warn("failed to publish notification", "recipient", recipientID, "error", err)
	}
}

// List returns the newest notifications and the unread total for userID.
func (ns *NotificationService) List(ctx context.Context, userID string) ([]*models.Notification, int64, error) {
	list, err := ns.store.ListNotifications(ctx, userID, models.NotificationLimit)
	if err != nil {
		return nil, 0, storeError("Server error fetching notifications", err)
	}
	unread, err := ns.store.CountUnread(ctx, userID)
	if err != nil {
		return nil, 0, storeError("Server error fetching notifications", err)
	}
	return list, unread, nil
}

func (ns *NotificationService) MarkRead(ctx context.Context, id, userID string) (*models.Notification, error) {
	n, err := ns.store.MarkNotificationRead(ctx, id, userID)
	if err != nil {
		return nil, storeError("Server error updating notification", err)
	}
	return n, nil
}

func (ns *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	modified, err := ns.store.MarkAllNotificationsRead(ctx, userID)
	if err != nil {
		return 0, storeError("Server error updating notifications", err)
	}
	return modified, nil
}

// Subscribe opens the live feed of userID's notifications. The subscription
// is confirmed before it is returned, so nothing published afterwards is
// missed. The caller closes it.
func (ns *NotificationService) Subscribe(ctx context.Context, userID string) (*redis.PubSub, error) {
	sub := ns.publisher.SubscribeUser(ctx, userID)
	if sub == nil {
		return nil, models.NewNotFoundError("notification stream")
	}
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, models.NewServerError("Server error opening notification stream", err)
	}
	return sub, nil
}
