package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joshua-takyi/greenwich/internal/helpers"
	"github.com/joshua-takyi/greenwich/internal/models"
	"github.com/joshua-takyi/greenwich/internal/realtime"
)

type recordingMetrics struct {
	mu            sync.Mutex
	notifications map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{notifications: map[string]int{}}
}

func (r *recordingMetrics) RecordRequest(string, string, int, time.Duration) {}
func (r *recordingMetrics) RecordBackend(string)                             {}
func (r *recordingMetrics) RecordRateLimited(string)                         {}

func (r *recordingMetrics) RecordNotification(kind, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications[kind+"/"+outcome]++
}

func (r *recordingMetrics) count(kind, outcome string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.notifications[kind+"/"+outcome]
}

// failingNotifications breaks only the notification insert.
type failingNotifications struct {
	*models.MemoryStore
}

func (failingNotifications) InsertNotification(context.Context, *models.Notification) (*models.Notification, error) {
	return nil, errors.New("connection reset")
}

type fixture struct {
	store         models.Store
	metrics       *recordingMetrics
	users         *UserService
	posts         *PostService
	notifications *NotificationService
}

func newFixture(t *testing.T, store models.Store) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rec := newRecordingMetrics()
	notifier := NewNotificationService(store, realtime.NewPublisher(nil), rec, logger)
	return &fixture{
		store:         store,
		metrics:       rec,
		users:         NewUserService(store, helpers.NewTokenManager("test-secret", time.Hour), logger),
		posts:         NewPostService(store, notifier),
		notifications: notifier,
	}
}

func (f *fixture) register(t *testing.T, username string) *models.User {
	t.Helper()
	res, err := f.users.Register(context.Background(), RegisterInput{
		Username: username,
		Email:    username + "@x.com",
		Password: "pw123456",
	})
	require.NoError(t, err)
	return res.User
}

func requireKind(t *testing.T, err error, kind models.ErrorKind) {
	t.Helper()
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, kind, appErr.Kind, appErr.Message)
}
