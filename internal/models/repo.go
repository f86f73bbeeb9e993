package models

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/mongo"
)

var Validate = newValidator()

// MaxPasswordBytes is the longest input bcrypt will hash.
const MaxPasswordBytes = 72

// newValidator reports fields by their json names so messages match the payload.
func newValidator() *validator.Validate {
	v := validator.New()
	// bcryptlen limits bytes, not runes, unlike the builtin max.
	_ = v.RegisterValidation("bcryptlen", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= MaxPasswordBytes
	})
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

const (
	BackendMongo  = "connected"
	BackendMemory = "memory"
)

type UserRepo interface {
	FindUserByID(ctx context.Context, id string) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	FindUserByUsername(ctx context.Context, username string) (*User, error)
	InsertUser(ctx context.Context, user *User) (*User, error)
	UpdateUser(ctx context.Context, id string, update UserUpdate) (*User, error)
	ListUsers(ctx context.Context, filter UserFilter) ([]*User, error)
}

type PostRepo interface {
	InsertPost(ctx context.Context, ownerID, content, image string) (*Post, error)
	GetPost(ctx context.Context, id string) (*Post, error)
	ListPosts(ctx context.Context, filter PostFilter) ([]*Post, error)
	ListDeletedPosts(ctx context.Context, ownerID string) ([]*Post, error)
	ToggleLike(ctx context.Context, postID, userID string) (*Post, bool, error)
	AppendComment(ctx context.Context, postID, userID, text string) (*Post, error)
	SoftDeletePost(ctx context.Context, postID, ownerID string) (*Post, error)
	RestorePost(ctx context.Context, postID, ownerID string) (*Post, error)
}

type NotificationRepo interface {
	InsertNotification(ctx context.Context, n *Notification) (*Notification, error)
	ListNotifications(ctx context.Context, userID string, limit int) ([]*Notification, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	MarkNotificationRead(ctx context.Context, id, userID string) (*Notification, error)
	MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error)
}

// Store is the persistence surface every handler works against, whatever backs it.
type Store interface {
	UserRepo
	PostRepo
	NotificationRepo
	Backend() string
}

// now returns the store clock. Mongo keeps millisecond precision, so the
// memory store truncates the same way to keep both outputs identical.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

type MongodbRepo struct {
	mongodbClient *mongo.Client
	dbName        string
}

func MongodbNewRepo(mongodbClient *mongo.Client, dbName string) *MongodbRepo {
	return &MongodbRepo{
		mongodbClient: mongodbClient,
		dbName:        dbName,
	}
}

func (mdb *MongodbRepo) Backend() string {
	return BackendMongo
}

func (mdb *MongodbRepo) GetCollection(colName string) (*mongo.Collection, error) {
	if mdb.mongodbClient == nil {
		return nil, fmt.Errorf("mongodb client is not initialized")
	}
	return mdb.mongodbClient.Database(mdb.dbName).Collection(colName), nil
}
