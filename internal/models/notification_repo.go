package models

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type notificationDoc struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty"`
	UserID     primitive.ObjectID  `bson:"userId"`
	Type       string              `bson:"type"`
	FromUserID *primitive.ObjectID `bson:"fromUserId,omitempty"`
	PostID     *primitive.ObjectID `bson:"postId,omitempty"`
	Content    string              `bson:"content"`
	Read       bool                `bson:"read"`
	ReadAt     *time.Time          `bson:"readAt,omitempty"`
	CreatedAt  time.Time           `bson:"createdAt"`

	FromUser []userDoc `bson:"fromUser,omitempty"`
}

func (d *notificationDoc) toNotification() *Notification {
	n := &Notification{
		ID:        d.ID.Hex(),
		UserID:    d.UserID.Hex(),
		Type:      d.Type,
		Content:   d.Content,
		Read:      d.Read,
		CreatedAt: d.CreatedAt.UTC(),
	}
	if d.ReadAt != nil {
		t := d.ReadAt.UTC()
		n.ReadAt = &t
	}
	if d.PostID != nil {
		n.PostID = d.PostID.Hex()
	}
	if d.FromUserID != nil {
		n.FromUserID = d.FromUserID.Hex()
		if len(d.FromUser) > 0 {
			n.FromUser = d.FromUser[0].toSummary()
		} else {
			n.FromUser = &UserSummary{ID: n.FromUserID}
		}
	}
	return n
}

// optionalObjectID maps "" to nil and rejects anything that is not a hex id.
func optionalObjectID(field, id string) (*primitive.ObjectID, error) {
	if id == "" {
		return nil, nil
	}
	oid, ok := objectID(id)
	if !ok {
		return nil, NewValidationError("invalid " + field)
	}
	return &oid, nil
}

func notificationPipeline(match bson.M, limit int) mongo.Pipeline {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}}},
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: limit}})
	}
	return append(pipeline,
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         UsersColName,
			"localField":   "fromUserId",
			"foreignField": "_id",
			"as":           "fromUser",
		}}},
		bson.D{{Key: "$project", Value: bson.M{"fromUser.password": 0}}},
	)
}

func (mdb *MongodbRepo) queryNotifications(ctx context.Context, match bson.M, limit int) ([]*Notification, error) {
	col, err := mdb.GetCollection(NotificationsColName)
	if err != nil {
		return nil, err
	}
	cursor, err := col.Aggregate(ctx, notificationPipeline(match, limit))
	if err != nil {
		return nil, fmt.Errorf("error aggregating notifications: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []notificationDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("error decoding notifications: %w", err)
	}
	out := make([]*Notification, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toNotification())
	}
	return out, nil
}

func (mdb *MongodbRepo) getNotification(ctx context.Context, oid primitive.ObjectID) (*Notification, error) {
	found, err := mdb.queryNotifications(ctx, bson.M{"_id": oid}, 1)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, NewNotFoundError("notification")
	}
	return found[0], nil
}

func (mdb *MongodbRepo) InsertNotification(ctx context.Context, n *Notification) (*Notification, error) {
	recipient, ok := objectID(n.UserID)
	if !ok {
		return nil, NewNotFoundError("user")
	}
	from, err := optionalObjectID("fromUserId", n.FromUserID)
	if err != nil {
		return nil, err
	}
	post, err := optionalObjectID("postId", n.PostID)
	if err != nil {
		return nil, err
	}
	col, err := mdb.GetCollection(NotificationsColName)
	if err != nil {
		return nil, err
	}

	doc := notificationDoc{
		ID:         primitive.NewObjectID(),
		UserID:     recipient,
		Type:       n.Type,
		FromUserID: from,
		PostID:     post,
		Content:    n.Content,
		CreatedAt:  now(),
	}
	if _, err := col.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("error inserting notification: %w", err)
	}
	return mdb.getNotification(ctx, doc.ID)
}

func (mdb *MongodbRepo) ListNotifications(ctx context.Context, userID string, limit int) ([]*Notification, error) {
	recipient, ok := objectID(userID)
	if !ok {
		return []*Notification{}, nil
	}
	return mdb.queryNotifications(ctx, bson.M{"userId": recipient}, limit)
}

func (mdb *MongodbRepo) CountUnread(ctx context.Context, userID string) (int64, error) {
	recipient, ok := objectID(userID)
	if !ok {
		return 0, nil
	}
	col, err := mdb.GetCollection(NotificationsColName)
	if err != nil {
		return 0, err
	}
	count, err := col.CountDocuments(ctx, bson.M{"userId": recipient, "read": false})
	if err != nil {
		return 0, fmt.Errorf("error counting notifications: %w", err)
	}
	return count, nil
}

func (mdb *MongodbRepo) MarkNotificationRead(ctx context.Context, id, userID string) (*Notification, error) {
	nid, ok := objectID(id)
	if !ok {
		return nil, NewNotFoundError("notification")
	}
	recipient, ok := objectID(userID)
	if !ok {
		return nil, NewNotFoundError("notification")
	}
	col, err := mdb.GetCollection(NotificationsColName)
	if err != nil {
		return nil, err
	}

	res, err := col.UpdateOne(ctx,
		bson.M{"_id": nid, "userId": recipient},
		bson.M{"$set": bson.M{"read": true, "readAt": now()}},
	)
	if err != nil {
		return nil, fmt.Errorf("error marking notification read: %w", err)
	}
	if res.MatchedCount == 0 {
		return nil, NewNotFoundError("notification")
	}
	return mdb.getNotification(ctx, nid)
}

func (mdb *MongodbRepo) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	recipient, ok := objectID(userID)
	if !ok {
		return 0, nil
	}
	col, err := mdb.GetCollection(NotificationsColName)
	if err != nil {
		return 0, err
	}
	res, err := col.UpdateMany(ctx,
		bson.M{"userId": recipient, "read": false},
		bson.M{"$set": bson.M{"read": true, "readAt": now()}},
	)
	if err != nil {
		return 0, fmt.Errorf("error marking notifications read: %w", err)
	}
	return res.ModifiedCount, nil
}
