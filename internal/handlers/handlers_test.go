package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshua-takyi/greenwich/internal/helpers"
	"github.com/joshua-takyi/greenwich/internal/metrics"
	"github.com/joshua-takyi/greenwich/internal/middleware"
	"github.com/joshua-takyi/greenwich/internal/models"
	"github.com/joshua-takyi/greenwich/internal/realtime"
	"github.com/joshua-takyi/greenwich/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type harness struct {
	store  *models.MemoryStore
	users  *services.UserService
	engine *gin.Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := models.NewMemoryStore()
	users := services.NewUserService(store, helpers.NewTokenManager("test-secret", time.Hour), logger)
	notifier := services.NewNotificationService(store, realtime.NewPublisher(nil), metrics.Nop{}, logger)
	posts := services.NewPostService(store, notifier)

	r := gin.New()
	r.Use(middleware.ErrorHandler(logger, false))
	r.GET("/health", Health(store))
	r.POST("/register", Register(users))
	r.POST("/login", Login(users))
	r.POST("/unauthenticated", CreatePost(posts))

	auth := r.Group("/", middleware.AuthMiddleware(users))
	auth.GET("/feed", Feed(posts))
	auth.POST("/posts", CreatePost(posts))
	auth.PUT("/posts/:id/like", ToggleLike(posts))
	auth.POST("/posts/:id/comment", AddComment(posts))
	auth.DELETE("/posts/:id", DeletePost(posts))
	auth.PUT("/posts/:id/restore", RestorePost(posts))
	auth.GET("/user/posts", ListUserPosts(posts))
	auth.GET("/user/trash", ListTrash(posts))
	auth.GET("/user/profile", GetProfile(users))
	auth.PUT("/user/profile", UpdateProfile(users))
	auth.GET("/notifications", ListNotifications(notifier))
	auth.PUT("/notifications/read-all", MarkAllNotificationsRead(notifier))
	auth.PUT("/notifications/:id/read", MarkNotificationRead(notifier))
	admin := auth.Group("/admin", middleware.RequireAdmin())
	admin.GET("/users", ListUsers(users))
	admin.GET("/pending-approvals", PendingApprovals(users))
	admin.PUT("/users/:id/approve", ApproveUser(users))
	admin.PUT("/users/:id/reject", RejectUser(users))
	r.NoRoute(APINotFound())

	return &harness{store: store, users: users, engine: r}
}

func (h *harness) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.engine.ServeHTTP(w, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w.Code, out
}

// signup registers a user through the API and returns its id and token.
func (h *harness) signup(t *testing.T, username string) (string, string) {
	t.Helper()
	code, res := h.do(t, http.MethodPost, "/register", "", gin.H{
		"username": username,
		"email":    username + "@example.com",
		"password": "secret123",
		"name":     strings.ToUpper(username[:1]) + username[1:],
	})
	require.Equal(t, http.StatusCreated, code, res)
	user := res["user"].(map[string]any)
	return user["id"].(string), res["token"].(string)
}

func (h *harness) adminToken(t *testing.T) string {
	t.Helper()
	_, err := h.users.SeedAdmin(context.Background(), h.store, services.AdminSeed{
		ID: "admin-001", Email: "admin@greenwich.com", Password: "Admin123!",
	})
	require.NoError(t, err)
	code, res := h.do(t, http.MethodPost, "/login", "", gin.H{"email": "admin@greenwich.com", "password": "Admin123!"})
	require.Equal(t, http.StatusOK, code, res)
	return res["token"].(string)
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	code, res := h.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, res["success"])
	assert.Equal(t, "memory", res["database"])
	assert.Equal(t, Version, res["version"])
	_, err := time.Parse(time.RFC3339, res["timestamp"].(string))
	assert.NoError(t, err)
}

func TestRegisterAndLogin(t *testing.T) {
	h := newHarness(t)

	code, res := h.do(t, http.MethodPost, "/register", "", gin.H{
		"username": "alice", "email": "Alice@Example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, code)
	user := res["user"].(map[string]any)
	assert.Equal(t, "alice@example.com", user["email"])
	assert.Equal(t, "pending", user["isApproved"])
	assert.NotContains(t, user, "password")
	assert.NotEmpty(t, res["token"])

	code, res = h.do(t, http.MethodPost, "/register", "", gin.H{
		"username": "alice", "email": "other@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "DUPLICATE_KEY", res["code"])

	code, res = h.do(t, http.MethodPost, "/register", "", gin.H{"username": "bob"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_ERROR", res["code"])
	assert.Contains(t, res["error"], "email")

	code, res = h.do(t, http.MethodPost, "/register", "", "{not json")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid request payload", res["error"])

	code, res = h.do(t, http.MethodPost, "/login", "", gin.H{"username": "alice", "password": "secret123"})
	assert.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, res["token"])

	code, res = h.do(t, http.MethodPost, "/login", "", gin.H{"email": "alice@example.com", "password": "nope"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "INVALID_CREDENTIALS", res["code"])
	assert.Equal(t, "Invalid credentials", res["error"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h := newHarness(t)

	code, res := h.do(t, http.MethodGet, "/feed", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "MISSING_TOKEN", res["code"])

	code, res = h.do(t, http.MethodGet, "/feed", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "INVALID_TOKEN", res["code"])

	// handlers mounted without the auth middleware refuse to guess a user
	code, res = h.do(t, http.MethodPost, "/unauthenticated", "", gin.H{"content": "hi"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "MISSING_TOKEN", res["code"])
}

func TestPostLifecycle(t *testing.T) {
	h := newHarness(t)
	aliceID, alice := h.signup(t, "alice")
	_, bob := h.signup(t, "bob")

	code, res := h.do(t, http.MethodPost, "/posts", alice, gin.H{"content": "hello"})
	require.Equal(t, http.StatusCreated, code, res)
	post := res["post"].(map[string]any)
	postID := post["id"].(string)
	assert.Equal(t, aliceID, post["userId"])
	assert.Equal(t, "alice", post["author"].(map[string]any)["username"])

	code, res = h.do(t, http.MethodPost, "/posts", alice, gin.H{"content": "   "})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_ERROR", res["code"])

	code, res = h.do(t, http.MethodPut, "/posts/"+postID+"/like", bob, nil)
	require.Equal(t, http.StatusOK, code, res)
	assert.Equal(t, true, res["isLiked"])
	assert.Len(t, res["post"].(map[string]any)["likes"], 1)

	code, res = h.do(t, http.MethodPut, "/posts/"+postID+"/like", bob, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, res["isLiked"])

	code, res = h.do(t, http.MethodPost, "/posts/"+postID+"/comment", bob, gin.H{"content": "nice"})
	require.Equal(t, http.StatusOK, code, res)
	comments := res["post"].(map[string]any)["comments"].([]any)
	require.Len(t, comments, 1)
	assert.Equal(t, "nice", comments[0].(map[string]any)["content"])

	code, _ = h.do(t, http.MethodPut, "/posts/missing/like", bob, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, res = h.do(t, http.MethodDelete, "/posts/"+postID, bob, nil)
	assert.Equal(t, http.StatusNotFound, code, "only the owner can delete")
	assert.Equal(t, "NOT_FOUND", res["code"])

	code, res = h.do(t, http.MethodDelete, "/posts/"+postID, alice, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, res["post"].(map[string]any)["deleted"])

	_, res = h.do(t, http.MethodGet, "/feed", alice, nil)
	assert.EqualValues(t, 0, res["count"])
	_, res = h.do(t, http.MethodGet, "/user/trash", alice, nil)
	assert.EqualValues(t, 1, res["count"])

	code, _ = h.do(t, http.MethodPut, "/posts/"+postID+"/restore", alice, nil)
	require.Equal(t, http.StatusOK, code)
	_, res = h.do(t, http.MethodGet, "/user/posts", alice, nil)
	assert.EqualValues(t, 1, res["count"])
	_, res = h.do(t, http.MethodGet, "/user/posts", bob, nil)
	assert.EqualValues(t, 0, res["count"])
}

func TestNotificationsFlow(t *testing.T) {
	h := newHarness(t)
	_, alice := h.signup(t, "alice")
	_, bob := h.signup(t, "bob")

	_, res := h.do(t, http.MethodPost, "/posts", alice, gin.H{"content": "hello"})
	postID := res["post"].(map[string]any)["id"].(string)
	h.do(t, http.MethodPut, "/posts/"+postID+"/like", bob, nil)
	h.do(t, http.MethodPost, "/posts/"+postID+"/comment", bob, gin.H{"content": "hey"})
	h.do(t, http.MethodPost, "/posts/"+postID+"/comment", alice, gin.H{"content": "thanks"})

	code, res := h.do(t, http.MethodGet, "/notifications", alice, nil)
	require.Equal(t, http.StatusOK, code)
	list := res["notifications"].([]any)
	require.Len(t, list, 2)
	assert.EqualValues(t, 2, res["unreadCount"])
	latest := list[0].(map[string]any)
	assert.Equal(t, "comment", latest["type"])
	assert.Equal(t, "Bob commented on your post", latest["content"])
	assert.Equal(t, "bob", latest["fromUser"].(map[string]any)["username"])

	code, _ = h.do(t, http.MethodPut, "/notifications/"+latest["id"].(string)+"/read", bob, nil)
	assert.Equal(t, http.StatusNotFound, code, "cannot read someone else's notification")

	code, res = h.do(t, http.MethodPut, "/notifications/"+latest["id"].(string)+"/read", alice, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, res["notification"].(map[string]any)["read"])

	code, res = h.do(t, http.MethodPut, "/notifications/read-all", alice, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, res["modified"])

	_, res = h.do(t, http.MethodGet, "/notifications", alice, nil)
	assert.EqualValues(t, 0, res["unreadCount"])
}

func TestProfile(t *testing.T) {
	h := newHarness(t)
	_, alice := h.signup(t, "alice")

	code, res := h.do(t, http.MethodGet, "/user/profile", alice, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "alice", res["user"].(map[string]any)["username"])

	code, res = h.do(t, http.MethodPut, "/user/profile", alice, gin.H{"organizationName": "Acme"})
	require.Equal(t, http.StatusOK, code, res)
	assert.Equal(t, "Acme", res["user"].(map[string]any)["organizationName"])

	code, res = h.do(t, http.MethodPut, "/user/profile", alice, gin.H{})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_ERROR", res["code"])
}

func TestAdminRoutes(t *testing.T) {
	h := newHarness(t)
	aliceID, alice := h.signup(t, "alice")
	bobID, _ := h.signup(t, "bob")
	admin := h.adminToken(t)

	code, res := h.do(t, http.MethodGet, "/admin/users", alice, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "FORBIDDEN", res["code"])

	code, res = h.do(t, http.MethodGet, "/admin/pending-approvals", admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 2, res["count"])

	code, res = h.do(t, http.MethodPut, "/admin/users/"+aliceID+"/approve", admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "approved", res["user"].(map[string]any)["isApproved"])

	code, res = h.do(t, http.MethodPut, "/admin/users/"+bobID+"/reject", admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "rejected", res["user"].(map[string]any)["isApproved"])

	_, res = h.do(t, http.MethodGet, "/admin/pending-approvals", admin, nil)
	assert.EqualValues(t, 0, res["count"])

	_, res = h.do(t, http.MethodGet, "/admin/users", admin, nil)
	assert.EqualValues(t, 2, res["count"], "admins are not listed")

	code, _ = h.do(t, http.MethodPut, "/admin/users/nobody/approve", admin, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestAPINotFound(t *testing.T) {
	h := newHarness(t)
	code, res := h.do(t, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "API endpoint not found", res["error"])
}
