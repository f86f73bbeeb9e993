package models

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"
)

type userRecord struct {
	user User
	seq  int64
}

type postRecord struct {
	post Post
	seq  int64
}

type notificationRecord struct {
	notification Notification
	seq          int64
}

// MemoryStore is the in-process fallback backend. It mimics document
// semantics: generated ids, manual population of references and filtering
// of soft-deleted posts. Contents are lost when the process exits.
type MemoryStore struct {
	mu sync.Mutex

	users         []*userRecord
	posts         []*postRecord
	notifications []*notificationRecord

	seq                 int64
	postCounter         int64
	notificationCounter int64
	lastUserStamp       int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Backend() string {
	return BackendMemory
}

func (m *MemoryStore) nextSeq() int64 {
	m.seq++
	return m.seq
}

// nextUserID returns "user-<ms>" where the stamp is forced to grow even
// when two registrations land in the same millisecond.
func (m *MemoryStore) nextUserID() string {
	stamp := time.Now().UnixMilli()
	if stamp <= m.lastUserStamp {
		stamp = m.lastUserStamp + 1
	}
	m.lastUserStamp = stamp
	return "user-" + strconv.FormatInt(stamp, 10)
}

func (m *MemoryStore) userByID(id string) *userRecord {
	for _, r := range m.users {
		if r.user.ID == id {
			return r
		}
	}
	return nil
}

func (m *MemoryStore) postByID(id string) *postRecord {
	for _, r := range m.posts {
		if r.post.ID == id {
			return r
		}
	}
	return nil
}

func (m *MemoryStore) summaryFor(userID string) *UserSummary {
	if r := m.userByID(userID); r != nil {
		return r.user.Summary()
	}
	return nil
}

func (m *MemoryStore) populatePost(p *Post) *Post {
	out := clonePost(p)
	if s := m.summaryFor(p.UserID); s != nil {
		out.Author = s
	} else {
		out.Author = unknownAuthor(p.UserID)
	}
	for i := range out.Comments {
		if s := m.summaryFor(out.Comments[i].UserID); s != nil {
			out.Comments[i].Author = s
		} else {
			out.Comments[i].Author = unknownAuthor(out.Comments[i].UserID)
		}
	}
	return out
}

func (m *MemoryStore) populateNotification(n *Notification) *Notification {
	out := cloneNotification(n)
	if n.FromUserID != "" {
		if s := m.summaryFor(n.FromUserID); s != nil {
			out.FromUser = s
		} else {
			out.FromUser = &UserSummary{ID: n.FromUserID}
		}
	}
	return out
}

// users

func (m *MemoryStore) FindUserByID(ctx context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.userByID(id)
	if r == nil {
		return nil, NewNotFoundError("user")
	}
	return cloneUser(&r.user), nil
}

func (m *MemoryStore) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	return m.findUserBy(email, func(u *User) string { return u.Email })
}

func (m *MemoryStore) FindUserByUsername(ctx context.Context, username string) (*User, error) {
	return m.findUserBy(username, func(u *User) string { return u.Username })
}

func (m *MemoryStore) findUserBy(value string, field func(*User) string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if value == "" {
		return nil, NewNotFoundError("user")
	}
	for _, r := range m.users {
		if field(&r.user) == value {
			return cloneUser(&r.user), nil
		}
	}
	return nil, NewNotFoundError("user")
}

func (m *MemoryStore) InsertUser(ctx context.Context, user *User) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.users {
		if r.user.Email == user.Email || r.user.Username == user.Username {
			return nil, NewDuplicateKeyError("user already exists with this email or username")
		}
		if user.ID != "" && r.user.ID == user.ID {
			return nil, NewDuplicateKeyError("user id already exists")
		}
	}

	created := cloneUser(user)
	created.ApplyDefaults()
	if created.ID == "" {
		created.ID = m.nextUserID()
	}
	ts := now()
	created.CreatedAt = ts
	created.UpdatedAt = ts

	m.users = append(m.users, &userRecord{user: *created, seq: m.nextSeq()})
	return cloneUser(created), nil
}

func (m *MemoryStore) UpdateUser(ctx context.Context, id string, update UserUpdate) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.userByID(id)
	if r == nil {
		return nil, NewNotFoundError("user")
	}
	update.apply(&r.user)
	r.user.UpdatedAt = now()
	return cloneUser(&r.user), nil
}

func (m *MemoryStore) ListUsers(ctx context.Context, filter UserFilter) ([]*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matched := make([]*userRecord, 0, len(m.users))
	for _, r := range m.users {
		if filter.matches(&r.user) {
			matched = append(matched, r)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return newerFirst(matched[i].user.CreatedAt, matched[i].seq, matched[j].user.CreatedAt, matched[j].seq)
	})

	users := make([]*User, 0, len(matched))
	for _, r := range matched {
		users = append(users, cloneUser(&r.user))
	}
	return users, nil
}

// posts

func (m *MemoryStore) InsertPost(ctx context.Context, ownerID, content, image string) (*Post, error) {
	content, image, err := NormalizePostInput(content, image)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.postCounter++
	ts := now()
	p := Post{
		ID:        "post-" + strconv.FormatInt(m.postCounter, 10),
		UserID:    ownerID,
		Content:   content,
		Image:     image,
		Likes:     []string{},
		Comments:  []Comment{},
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	m.posts = append(m.posts, &postRecord{post: p, seq: m.nextSeq()})
	return m.populatePost(&p), nil
}

func (m *MemoryStore) GetPost(ctx context.Context, id string) (*Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.postByID(id)
	if r == nil {
		return nil, NewNotFoundError("post")
	}
	return m.populatePost(&r.post), nil
}

func (m *MemoryStore) ListPosts(ctx context.Context, filter PostFilter) ([]*Post, error) {
	return m.listPosts(func(p *Post) bool {
		if p.Deleted {
			return false
		}
		return filter.OwnerID == "" || p.UserID == filter.OwnerID
	}, filter.Limit), nil
}

func (m *MemoryStore) ListDeletedPosts(ctx context.Context, ownerID string) ([]*Post, error) {
	return m.listPosts(func(p *Post) bool {
		return p.Deleted && p.UserID == ownerID
	}, 0), nil
}

func (m *MemoryStore) listPosts(keep func(*Post) bool, limit int) []*Post {
	m.mu.Lock()
	defer m.mu.Unlock()

	matched := make([]*postRecord, 0, len(m.posts))
	for _, r := range m.posts {
		if keep(&r.post) {
			matched = append(matched, r)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return newerFirst(matched[i].post.CreatedAt, matched[i].seq, matched[j].post.CreatedAt, matched[j].seq)
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	posts := make([]*Post, 0, len(matched))
	for _, r := range matched {
		posts = append(posts, m.populatePost(&r.post))
	}
	return posts
}

func (m *MemoryStore) ToggleLike(ctx context.Context, postID, userID string) (*Post, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.postByID(postID)
	if r == nil {
		return nil, false, NewNotFoundError("post")
	}

	liked := false
	if r.post.LikedBy(userID) {
		likes := r.post.Likes[:0:0]
		for _, id := range r.post.Likes {
			if id != userID {
				likes = append(likes, id)
			}
		}
		r.post.Likes = likes
	} else {
		r.post.Likes = append(r.post.Likes, userID)
		liked = true
	}
	r.post.UpdatedAt = now()
	return m.populatePost(&r.post), liked, nil
}

func (m *MemoryStore) AppendComment(ctx context.Context, postID, userID, text string) (*Post, error) {
	text, err := NormalizeCommentInput(text)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.postByID(postID)
	if r == nil {
		return nil, NewNotFoundError("post")
	}
	ts := now()
	r.post.Comments = append(r.post.Comments, Comment{UserID: userID, Content: text, CreatedAt: ts})
	r.post.UpdatedAt = ts
	return m.populatePost(&r.post), nil
}

func (m *MemoryStore) SoftDeletePost(ctx context.Context, postID, ownerID string) (*Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.postByID(postID)
	if r == nil || r.post.UserID != ownerID {
		return nil, NewNotFoundError("post")
	}
	if !r.post.Deleted {
		ts := now()
		r.post.Deleted = true
		r.post.DeletedAt = &ts
		r.post.UpdatedAt = ts
	}
	return m.populatePost(&r.post), nil
}

func (m *MemoryStore) RestorePost(ctx context.Context, postID, ownerID string) (*Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.postByID(postID)
	if r == nil || r.post.UserID != ownerID {
		return nil, NewNotFoundError("post")
	}
	r.post.Deleted = false
	r.post.DeletedAt = nil
	r.post.UpdatedAt = now()
	return m.populatePost(&r.post), nil
}

// notifications

func (m *MemoryStore) InsertNotification(ctx context.Context, n *Notification) (*Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.notificationCounter++
	created := cloneNotification(n)
	created.ID = "notif-" + strconv.FormatInt(m.notificationCounter, 10)
	created.FromUser = nil
	created.Read = false
	created.ReadAt = nil
	created.CreatedAt = now()

	m.notifications = append(m.notifications, &notificationRecord{notification: *created, seq: m.nextSeq()})
	return m.populateNotification(created), nil
}

func (m *MemoryStore) ListNotifications(ctx context.Context, userID string, limit int) ([]*Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matched := make([]*notificationRecord, 0)
	for _, r := range m.notifications {
		if r.notification.UserID == userID {
			matched = append(matched, r)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return newerFirst(matched[i].notification.CreatedAt, matched[i].seq, matched[j].notification.CreatedAt, matched[j].seq)
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]*Notification, 0, len(matched))
	for _, r := range matched {
		out = append(out, m.populateNotification(&r.notification))
	}
	return out, nil
}

func (m *MemoryStore) CountUnread(ctx context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for _, r := range m.notifications {
		if r.notification.UserID == userID && !r.notification.Read {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) MarkNotificationRead(ctx context.Context, id, userID string) (*Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.notifications {
		if r.notification.ID == id && r.notification.UserID == userID {
			ts := now()
			r.notification.Read = true
			r.notification.ReadAt = &ts
			return m.populateNotification(&r.notification), nil
		}
	}
	return nil, NewNotFoundError("notification")
}

func (m *MemoryStore) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ts := now()
	var modified int64
	for _, r := range m.notifications {
		if r.notification.UserID == userID && !r.notification.Read {
			readAt := ts
			r.notification.Read = true
			r.notification.ReadAt = &readAt
			modified++
		}
	}
	return modified, nil
}

// newerFirst orders by creation time descending, then by insertion order
// descending so that the later of two same-instant records comes first.
func newerFirst(a time.Time, aSeq int64, b time.Time, bSeq int64) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return aSeq > bSeq
}

func unknownAuthor(userID string) *UserSummary {
	return &UserSummary{
		ID:               userID,
		Name:             "Unknown User",
		OrganizationName: "Unknown Organization",
	}
}

func cloneUser(u *User) *User {
	c := *u
	c.OrganizationType = append([]string(nil), u.OrganizationType...)
	return &c
}

func clonePost(p *Post) *Post {
	c := *p
	c.Likes = append([]string{}, p.Likes...)
	c.Comments = append([]Comment{}, p.Comments...)
	if p.DeletedAt != nil {
		t := *p.DeletedAt
		c.DeletedAt = &t
	}
	return &c
}

func cloneNotification(n *Notification) *Notification {
	c := *n
	if n.ReadAt != nil {
		t := *n.ReadAt
		c.ReadAt = &t
	}
	return &c
}
