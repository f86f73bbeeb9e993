package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// likeToggleAttempts bounds the add/pull race loop in ToggleLike.
const likeToggleAttempts = 3

type commentDoc struct {
	UserID    primitive.ObjectID `bson:"userId"`
	Content   string             `bson:"content"`
	CreatedAt time.Time          `bson:"createdAt"`
}

type postDoc struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty"`
	UserID    primitive.ObjectID   `bson:"userId"`
	Content   string               `bson:"content"`
	Image     string               `bson:"image"`
	Likes     []primitive.ObjectID `bson:"likes"`
	Comments  []commentDoc         `bson:"comments"`
	Deleted   bool                 `bson:"deleted"`
	DeletedAt *time.Time           `bson:"deletedAt,omitempty"`
	CreatedAt time.Time            `bson:"createdAt"`
	UpdatedAt time.Time            `bson:"updatedAt"`

	// filled by the $lookup stages, never written
	Owner          []userDoc `bson:"owner,omitempty"`
	CommentAuthors []userDoc `bson:"commentAuthors,omitempty"`
}

func (d *postDoc) toPost() *Post {
	authors := make(map[primitive.ObjectID]*UserSummary, len(d.CommentAuthors))
	for i := range d.CommentAuthors {
		authors[d.CommentAuthors[i].ID] = d.CommentAuthors[i].toSummary()
	}

	p := &Post{
		ID:        d.ID.Hex(),
		UserID:    d.UserID.Hex(),
		Content:   d.Content,
		Image:     d.Image,
		Likes:     make([]string, 0, len(d.Likes)),
		Comments:  make([]Comment, 0, len(d.Comments)),
		Deleted:   d.Deleted,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
	if d.DeletedAt != nil {
		t := d.DeletedAt.UTC()
		p.DeletedAt = &t
	}
	if len(d.Owner) > 0 {
		p.Author = d.Owner[0].toSummary()
	} else {
		p.Author = unknownAuthor(p.UserID)
	}
	for _, id := range d.Likes {
		p.Likes = append(p.Likes, id.Hex())
	}
	for _, c := range d.Comments {
		author, ok := authors[c.UserID]
		if !ok {
			author = unknownAuthor(c.UserID.Hex())
		}
		p.Comments = append(p.Comments, Comment{
			UserID:    c.UserID.Hex(),
			Author:    author,
			Content:   c.Content,
			CreatedAt: c.CreatedAt.UTC(),
		})
	}
	return p
}

// postPipeline matches, orders newest first and joins the owner and every
// comment author in one round trip.
func postPipeline(match bson.M, limit int) mongo.Pipeline {
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
			"localField":   "userId",
			"foreignField": "_id",
			"as":           "owner",
		}}},
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         UsersColName,
			"localField":   "comments.userId",
			"foreignField": "_id",
			"as":           "commentAuthors",
		}}},
		bson.D{{Key: "$project", Value: bson.M{
			"owner.password":          0,
			"commentAuthors.password": 0,
		}}},
	)
}

func (mdb *MongodbRepo) queryPosts(ctx context.Context, match bson.M, limit int) ([]*Post, error) {
	col, err := mdb.GetCollection(PostsColName)
	if err != nil {
		return nil, err
	}
	cursor, err := col.Aggregate(ctx, postPipeline(match, limit))
	if err != nil {
		return nil, fmt.Errorf("error aggregating posts: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []postDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("error decoding posts: %w", err)
	}
	posts := make([]*Post, 0, len(docs))
	for i := range docs {
		posts = append(posts, docs[i].toPost())
	}
	return posts, nil
}

func (mdb *MongodbRepo) getPost(ctx context.Context, oid primitive.ObjectID) (*Post, error) {
	posts, err := mdb.queryPosts(ctx, bson.M{"_id": oid}, 1)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, NewNotFoundError("post")
	}
	return posts[0], nil
}

func (mdb *MongodbRepo) InsertPost(ctx context.Context, ownerID, content, image string) (*Post, error) {
	content, image, err := NormalizePostInput(content, image)
	if err != nil {
		return nil, err
	}
	owner, ok := objectID(ownerID)
	if !ok {
		return nil, NewNotFoundError("user")
	}
	col, err := mdb.GetCollection(PostsColName)
	if err != nil {
		return nil, err
	}

	ts := now()
	doc := postDoc{
		ID:        primitive.NewObjectID(),
		UserID:    owner,
		Content:   content,
		Image:     image,
		Likes:     []primitive.ObjectID{},
		Comments:  []commentDoc{},
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	if _, err := col.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("error inserting post: %w", err)
	}
	return mdb.getPost(ctx, doc.ID)
}

func (mdb *MongodbRepo) GetPost(ctx context.Context, id string) (*Post, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, NewNotFoundError("post")
	}
	return mdb.getPost(ctx, oid)
}

func (mdb *MongodbRepo) ListPosts(ctx context.Context, filter PostFilter) ([]*Post, error) {
	match := bson.M{"deleted": bson.M{"$ne": true}}
	if filter.OwnerID != "" {
		owner, ok := objectID(filter.OwnerID)
		if !ok {
			return []*Post{}, nil
		}
		match["userId"] = owner
	}
	return mdb.queryPosts(ctx, match, filter.Limit)
}

func (mdb *MongodbRepo) ListDeletedPosts(ctx context.Context, ownerID string) ([]*Post, error) {
	owner, ok := objectID(ownerID)
	if !ok {
		return []*Post{}, nil
	}
	return mdb.queryPosts(ctx, bson.M{"deleted": true, "userId": owner}, 0)
}

// ToggleLike adds the like only when absent and pulls it only when present,
// so two concurrent toggles by different users never overwrite each other.
func (mdb *MongodbRepo) ToggleLike(ctx context.Context, postID, userID string) (*Post, bool, error) {
	pid, ok := objectID(postID)
	if !ok {
		return nil, false, NewNotFoundError("post")
	}
	uid, ok := objectID(userID)
	if !ok {
		return nil, false, NewNotFoundError("user")
	}
	col, err := mdb.GetCollection(PostsColName)
	if err != nil {
		return nil, false, err
	}

	for attempt := 0; attempt < likeToggleAttempts; attempt++ {
		res, err := col.UpdateOne(ctx,
			bson.M{"_id": pid, "likes": bson.M{"$ne": uid}},
			bson.M{"$addToSet": bson.M{"likes": uid}, "$set": bson.M{"updatedAt": now()}},
		)
		if err != nil {
			return nil, false, fmt.Errorf("error liking post: %w", err)
		}
		if res.MatchedCount == 1 {
			post, err := mdb.getPost(ctx, pid)
			return post, true, err
		}

		res, err = col.UpdateOne(ctx,
			bson.M{"_id": pid, "likes": uid},
			bson.M{"$pull": bson.M{"likes": uid}, "$set": bson.M{"updatedAt": now()}},
		)
		if err != nil {
			return nil, false, fmt.Errorf("error unliking post: %w", err)
		}
		if res.MatchedCount == 1 {
			post, err := mdb.getPost(ctx, pid)
			return post, false, err
		}

		exists, err := col.CountDocuments(ctx, bson.M{"_id": pid})
		if err != nil {
			return nil, false, fmt.Errorf("error checking post: %w", err)
		}
		if exists == 0 {
			return nil, false, NewNotFoundError("post")
		}
	}
	return nil, false, NewServerError("like toggle did not settle", nil)
}

func (mdb *MongodbRepo) AppendComment(ctx context.Context, postID, userID, text string) (*Post, error) {
	text, err := NormalizeCommentInput(text)
	if err != nil {
		return nil, err
	}
	pid, ok := objectID(postID)
	if !ok {
		return nil, NewNotFoundError("post")
	}
	uid, ok := objectID(userID)
	if !ok {
		return nil, NewNotFoundError("user")
	}
	col, err := mdb.GetCollection(PostsColName)
	if err != nil {
		return nil, err
	}

	ts := now()
	res, err := col.UpdateOne(ctx,
		bson.M{"_id": pid},
		bson.M{
			"$push": bson.M{"comments": commentDoc{UserID: uid, Content: text, CreatedAt: ts}},
			"$set":  bson.M{"updatedAt": ts},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("error adding comment: %w", err)
	}
	if res.MatchedCount == 0 {
		return nil, NewNotFoundError("post")
	}
	return mdb.getPost(ctx, pid)
}

func (mdb *MongodbRepo) SoftDeletePost(ctx context.Context, postID, ownerID string) (*Post, error) {
	pid, owner, err := ownedPostIDs(postID, ownerID)
	if err != nil {
		return nil, err
	}
	col, err := mdb.GetCollection(PostsColName)
	if err != nil {
		return nil, err
	}

	ts := now()
	res, err := col.UpdateOne(ctx,
		bson.M{"_id": pid, "userId": owner, "deleted": bson.M{"$ne": true}},
		bson.M{"$set": bson.M{"deleted": true, "deletedAt": ts, "updatedAt": ts}},
	)
	if err != nil {
		return nil, fmt.Errorf("error deleting post: %w", err)
	}
	if res.MatchedCount == 0 {
		// already in the trash is fine, anything else is not found
		if err := mdb.requireOwnedPost(ctx, col, pid, owner); err != nil {
			return nil, err
		}
	}
	return mdb.getPost(ctx, pid)
}

func (mdb *MongodbRepo) RestorePost(ctx context.Context, postID, ownerID string) (*Post, error) {
	pid, owner, err := ownedPostIDs(postID, ownerID)
	if err != nil {
		return nil, err
	}
	col, err := mdb.GetCollection(PostsColName)
	if err != nil {
		return nil, err
	}

	res, err := col.UpdateOne(ctx,
		bson.M{"_id": pid, "userId": owner},
		bson.M{
			"$set":   bson.M{"deleted": false, "updatedAt": now()},
			"$unset": bson.M{"deletedAt": ""},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("error restoring post: %w", err)
	}
	if res.MatchedCount == 0 {
		return nil, NewNotFoundError("post")
	}
	return mdb.getPost(ctx, pid)
}

func ownedPostIDs(postID, ownerID string) (primitive.ObjectID, primitive.ObjectID, error) {
	pid, ok := objectID(postID)
	if !ok {
		return primitive.NilObjectID, primitive.NilObjectID, NewNotFoundError("post")
	}
	owner, ok := objectID(ownerID)
	if !ok {
		return primitive.NilObjectID, primitive.NilObjectID, NewNotFoundError("post")
	}
	return pid, owner, nil
}

func (mdb *MongodbRepo) requireOwnedPost(ctx context.Context, col *mongo.Collection, pid, owner primitive.ObjectID) error {
	err := col.FindOne(ctx, bson.M{"_id": pid, "userId": owner}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return NewNotFoundError("post")
	}
	if err != nil {
		return fmt.Errorf("error finding post: %w", err)
	}
	return nil
}
