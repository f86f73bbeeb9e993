package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	UsersColName         = "users"
	PostsColName         = "posts"
	NotificationsColName = "notifications"
)

type userDoc struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	Username         string             `bson:"username"`
	Email            string             `bson:"email"`
	Password         string             `bson:"password,omitempty"`
	Name             string             `bson:"name"`
	Surname          string             `bson:"surname"`
	ProfileImage     string             `bson:"profileImage"`
	OrganizationName string             `bson:"organizationName"`
	OrganizationType []string           `bson:"organizationType"`
	Role             string             `bson:"role"`
	IsApproved       string             `bson:"isApproved"`
	CreatedAt        time.Time          `bson:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt"`
}

func (d *userDoc) toUser() *User {
	orgType := d.OrganizationType
	if orgType == nil {
		orgType = []string{}
	}
	return &User{
		ID:               d.ID.Hex(),
		Username:         d.Username,
		Email:            d.Email,
		Password:         d.Password,
		Name:             d.Name,
		Surname:          d.Surname,
		ProfileImage:     d.ProfileImage,
		OrganizationName: d.OrganizationName,
		OrganizationType: orgType,
		Role:             d.Role,
		IsApproved:       d.IsApproved,
		CreatedAt:        d.CreatedAt.UTC(),
		UpdatedAt:        d.UpdatedAt.UTC(),
	}
}

func (d *userDoc) toSummary() *UserSummary {
	return d.toUser().Summary()
}

// objectID parses an opaque id. Ids minted by the memory backend never
// parse, which callers surface as not-found.
func objectID(id string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return oid, true
}

// EnsureIndexes creates the unique constraints and the listing indexes.
func (mdb *MongodbRepo) EnsureIndexes(ctx context.Context) error {
	users, err := mdb.GetCollection(UsersColName)
	if err != nil {
		return err
	}
	_, err = users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("username_unique"),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("email_unique"),
		},
		{
			Keys:    bson.D{{Key: "role", Value: 1}, {Key: "isApproved", Value: 1}},
			Options: options.Index().SetName("role_approval_idx"),
		},
	})
	if err != nil {
		return fmt.Errorf("error creating user indexes: %w", err)
	}

	posts, err := mdb.GetCollection(PostsColName)
	if err != nil {
		return err
	}
	_, err = posts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "deleted", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("feed_idx"),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("owner_created_idx"),
		},
	})
	if err != nil {
		return fmt.Errorf("error creating post indexes: %w", err)
	}

	notifications, err := mdb.GetCollection(NotificationsColName)
	if err != nil {
		return err
	}
	_, err = notifications.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("recipient_created_idx"),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "read", Value: 1}},
			Options: options.Index().SetName("recipient_unread_idx"),
		},
	})
	if err != nil {
		return fmt.Errorf("error creating notification indexes: %w", err)
	}
	return nil
}

func (mdb *MongodbRepo) findUser(ctx context.Context, filter bson.M) (*User, error) {
	col, err := mdb.GetCollection(UsersColName)
	if err != nil {
		return nil, err
	}
	var doc userDoc
	if err := col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, NewNotFoundError("user")
		}
		return nil, fmt.Errorf("error finding user: %w", err)
	}
	return doc.toUser(), nil
}

func (mdb *MongodbRepo) FindUserByID(ctx context.Context, id string) (*User, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, NewNotFoundError("user")
	}
	return mdb.findUser(ctx, bson.M{"_id": oid})
}

func (mdb *MongodbRepo) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	if email == "" {
		return nil, NewNotFoundError("user")
	}
	return mdb.findUser(ctx, bson.M{"email": email})
}

func (mdb *MongodbRepo) FindUserByUsername(ctx context.Context, username string) (*User, error) {
	if username == "" {
		return nil, NewNotFoundError("user")
	}
	return mdb.findUser(ctx, bson.M{"username": username})
}

func (mdb *MongodbRepo) InsertUser(ctx context.Context, user *User) (*User, error) {
	col, err := mdb.GetCollection(UsersColName)
	if err != nil {
		return nil, err
	}

	existing, err := col.CountDocuments(ctx, bson.M{"$or": bson.A{
		bson.M{"email": user.Email},
		bson.M{"username": user.Username},
	}})
	if err != nil {
		return nil, fmt.Errorf("error checking existing user: %w", err)
	}
	if existing > 0 {
		return nil, NewDuplicateKeyError("user already exists with this email or username")
	}

	created := cloneUser(user)
	created.ApplyDefaults()
	ts := now()
	doc := userDoc{
		Username:         created.Username,
		Email:            created.Email,
		Password:         created.Password,
		Name:             created.Name,
		Surname:          created.Surname,
		ProfileImage:     created.ProfileImage,
		OrganizationName: created.OrganizationName,
		OrganizationType: created.OrganizationType,
		Role:             created.Role,
		IsApproved:       created.IsApproved,
		CreatedAt:        ts,
		UpdatedAt:        ts,
	}
	if oid, ok := objectID(created.ID); ok {
		doc.ID = oid
	} else {
		doc.ID = primitive.NewObjectID()
	}

	if _, err := col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, NewDuplicateKeyError("username or email already exists")
		}
		return nil, fmt.Errorf("error inserting user: %w", err)
	}
	return doc.toUser(), nil
}

func (mdb *MongodbRepo) UpdateUser(ctx context.Context, id string, update UserUpdate) (*User, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, NewNotFoundError("user")
	}
	col, err := mdb.GetCollection(UsersColName)
	if err != nil {
		return nil, err
	}

	set := bson.M{"updatedAt": now()}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.Surname != nil {
		set["surname"] = *update.Surname
	}
	if update.ProfileImage != nil {
		set["profileImage"] = *update.ProfileImage
	}
	if update.OrganizationName != nil {
		set["organizationName"] = *update.OrganizationName
	}
	if update.OrganizationType != nil {
		set["organizationType"] = *update.OrganizationType
	}
	if update.IsApproved != nil {
		set["isApproved"] = *update.IsApproved
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc userDoc
	err = col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, NewNotFoundError("user")
		}
		return nil, fmt.Errorf("error updating user: %w", err)
	}
	return doc.toUser(), nil
}

func (mdb *MongodbRepo) ListUsers(ctx context.Context, filter UserFilter) ([]*User, error) {
	col, err := mdb.GetCollection(UsersColName)
	if err != nil {
		return nil, err
	}

	query := bson.M{}
	if filter.Role != "" {
		query["role"] = filter.Role
	}
	if filter.ApprovalState != "" {
		query["isApproved"] = filter.ApprovalState
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetProjection(bson.M{"password": 0})
	cursor, err := col.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("error finding users: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []userDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("error decoding users: %w", err)
	}

	users := make([]*User, 0, len(docs))
	for i := range docs {
		users = append(users, docs[i].toUser())
	}
	return users, nil
}
