package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vaughan-dsouza/BeSocial/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	usersCollection = "users"
	postsCollection = "posts"
)

type userDoc struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	FirstName       string             `bson:"firstName"`
	LastName        string             `bson:"lastName"`
	Email           string             `bson:"email"`
	Password        string             `bson:"password"`
	PicturePath     string             `bson:"picturePath"`
	PicturePublicID string             `bson:"picturePublicId,omitempty"`
	Friends         []string           `bson:"friends"`
	Location        string             `bson:"location"`
	Occupation      string             `bson:"occupation"`
	ViewedProfile   int64              `bson:"viewedProfile"`
	Impressions     int64              `bson:"impressions"`
	CreatedAt       time.Time          `bson:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt"`
}

func (d userDoc) model() models.User {
	friends := d.Friends
	if friends == nil {
		friends = []string{}
	}
	return models.User{
		ID:              d.ID.Hex(),
		FirstName:       d.FirstName,
		LastName:        d.LastName,
		Email:           d.Email,
		Password:        d.Password,
		PicturePath:     d.PicturePath,
		PicturePublicID: d.PicturePublicID,
		Friends:         friends,
		Location:        d.Location,
		Occupation:      d.Occupation,
		ViewedProfile:   d.ViewedProfile,
		Impressions:     d.Impressions,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

type postDoc struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	UserID          string             `bson:"userId"`
	FirstName       string             `bson:"firstName"`
	LastName        string             `bson:"lastName"`
	Location        string             `bson:"location"`
	Description     string             `bson:"description"`
	PicturePath     string             `bson:"picturePath"`
	PicturePublicID string             `bson:"picturePublicId"`
	UserPicturePath string             `bson:"userPicturePath"`
	Likes           map[string]bool    `bson:"likes"`
	Comments        []string           `bson:"comments"`
	CreatedAt       time.Time          `bson:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt"`
}

func (d postDoc) model() models.Post {
	likes := d.Likes
	if likes == nil {
		likes = map[string]bool{}
	}
	comments := d.Comments
	if comments == nil {
		comments = []string{}
	}
	return models.Post{
		ID:              d.ID.Hex(),
		UserID:          d.UserID,
		FirstName:       d.FirstName,
		LastName:        d.LastName,
		Location:        d.Location,
		Description:     d.Description,
		PicturePath:     d.PicturePath,
		PicturePublicID: d.PicturePublicID,
		UserPicturePath: d.UserPicturePath,
		Likes:           likes,
		Comments:        comments,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

// NewMongo wraps an already connected database and ensures its indexes.
func NewMongo(ctx context.Context, database *mongo.Database) (*Repositories, error) {
	users := database.Collection(usersCollection)
	posts := database.Collection(postsCollection)

	if _, err := users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return nil, fmt.Errorf("repository: users index: %w", err)
	}
	if _, err := posts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
	}); err != nil {
		return nil, fmt.Errorf("repository: posts index: %w", err)
	}

	client := database.Client()
	return &Repositories{
		Users:   &mongoUsers{coll: users},
		Posts:   &mongoPosts{coll: posts},
		Backend: "mongo",
		ping: func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		},
		close: client.Disconnect,
	}, nil
}

type mongoUsers struct {
	coll *mongo.Collection
}

func (r *mongoUsers) Create(ctx context.Context, u *models.User) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	friends := u.Friends
	if friends == nil {
		friends = []string{}
	}
	doc := userDoc{
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		Email:           u.Email,
		Password:        u.Password,
		PicturePath:     u.PicturePath,
		PicturePublicID: u.PicturePublicID,
		Friends:         friends,
		Location:        u.Location,
		Occupation:      u.Occupation,
		ViewedProfile:   u.ViewedProfile,
		Impressions:     u.Impressions,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("repository: insert user: %w", err)
	}

	u.ID = res.InsertedID.(primitive.ObjectID).Hex()
	u.Friends = friends
	u.CreatedAt, u.UpdatedAt = now, now
	return nil
}

func (r *mongoUsers) GetByID(ctx context.Context, id string) (models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.User{}, ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *mongoUsers) GetByEmail(ctx context.Context, email string) (models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *mongoUsers) findOne(ctx context.Context, filter bson.M) (models.User, error) {
	var doc userDoc
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("repository: find user: %w", err)
	}
	return doc.model(), nil
}

func (r *mongoUsers) ListByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return []models.User{}, nil
	}

	cur, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, fmt.Errorf("repository: list users: %w", err)
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("repository: decode users: %w", err)
	}

	byID := make(map[string]models.User, len(docs))
	for _, d := range docs {
		byID[d.ID.Hex()] = d.model()
	}
	out := make([]models.User, 0, len(docs))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *mongoUsers) AddFriend(ctx context.Context, userID, friendID string) error {
	return r.link(ctx, "$addToSet", userID, friendID)
}

func (r *mongoUsers) RemoveFriend(ctx context.Context, userID, friendID string) error {
	return r.link(ctx, "$pull", userID, friendID)
}

func (r *mongoUsers) link(ctx context.Context, op, userID, friendID string) error {
	a, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return ErrNotFound
	}
	b, err := primitive.ObjectIDFromHex(friendID)
	if err != nil {
		return ErrNotFound
	}

	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": bson.M{"$in": []primitive.ObjectID{a, b}}})
	if err != nil {
		return fmt.Errorf("repository: count users: %w", err)
	}
	if n != 2 {
		return ErrNotFound
	}

	now := time.Now().UTC()
	for _, pair := range [][2]primitive.ObjectID{{a, b}, {b, a}} {
		update := bson.M{
			op:     bson.M{"friends": pair[1].Hex()},
			"$set": bson.M{"updatedAt": now},
		}
		if _, err := r.coll.UpdateByID(ctx, pair[0], update); err != nil {
			return fmt.Errorf("repository: update friends: %w", err)
		}
	}
	return nil
}

func (r *mongoUsers) UpdatePicture(ctx context.Context, id, picturePath, publicID string) (models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.User{}, ErrNotFound
	}

	var doc userDoc
	err = r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"picturePath": picturePath, "picturePublicId": publicID, "updatedAt": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("repository: update picture: %w", err)
	}
	return doc.model(), nil
}

func (r *mongoUsers) AddCounters(ctx context.Context, id string, views, impressions int64) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := r.coll.UpdateByID(ctx, oid, bson.M{
		"$inc": bson.M{"viewedProfile": views, "impressions": impressions},
	})
	if err != nil {
		return fmt.Errorf("repository: update counters: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

type mongoPosts struct {
	coll *mongo.Collection
}

func (r *mongoPosts) Create(ctx context.Context, p *models.Post) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	if p.Likes == nil {
		p.Likes = map[string]bool{}
	}
	if p.Comments == nil {
		p.Comments = []string{}
	}
	doc := postDoc{
		UserID:          p.UserID,
		FirstName:       p.FirstName,
		LastName:        p.LastName,
		Location:        p.Location,
		Description:     p.Description,
		PicturePath:     p.PicturePath,
		PicturePublicID: p.PicturePublicID,
		UserPicturePath: p.UserPicturePath,
		Likes:           p.Likes,
		Comments:        p.Comments,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("repository: insert post: %w", err)
	}
	p.ID = res.InsertedID.(primitive.ObjectID).Hex()
	p.CreatedAt, p.UpdatedAt = now, now
	return nil
}

func (r *mongoPosts) GetByID(ctx context.Context, id string) (models.Post, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.Post{}, ErrNotFound
	}

	var doc postDoc
	err = r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Post{}, ErrNotFound
	}
	if err != nil {
		return models.Post{}, fmt.Errorf("repository: find post: %w", err)
	}
	return doc.model(), nil
}

func (r *mongoPosts) List(ctx context.Context) ([]models.Post, error) {
	return r.find(ctx, bson.M{})
}

func (r *mongoPosts) ListByUser(ctx context.Context, userID string) ([]models.Post, error) {
	return r.find(ctx, bson.M{"userId": userID})
}

func (r *mongoPosts) find(ctx context.Context, filter bson.M) ([]models.Post, error) {
	// _id breaks ties between posts created in the same millisecond.
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("repository: list posts: %w", err)
	}
	var docs []postDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("repository: decode posts: %w", err)
	}

	out := make([]models.Post, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}

// SetLike only matches a post whose like is in the opposite state, so of two
// racing toggles exactly one reports a change.
func (r *mongoPosts) SetLike(ctx context.Context, postID, userID string, liked bool) (models.Post, bool, error) {
	oid, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return models.Post{}, false, ErrNotFound
	}

	field := "likes." + userID
	now := time.Now().UTC()
	update := bson.M{"$set": bson.M{field: true, "updatedAt": now}}
	if !liked {
		update = bson.M{
			"$unset": bson.M{field: ""},
			"$set":   bson.M{"updatedAt": now},
		}
	}

	post, err := r.findAndUpdate(ctx, bson.M{"_id": oid, field: bson.M{"$exists": !liked}}, update)
	if errors.Is(err, ErrNotFound) {
		// Missing post, or the like is already in the requested state.
		post, err = r.GetByID(ctx, postID)
		return post, false, err
	}
	return post, err == nil, err
}

func (r *mongoPosts) AddComment(ctx context.Context, postID, comment string) (models.Post, error) {
	return r.update(ctx, postID, bson.M{
		"$push": bson.M{"comments": comment},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	})
}

func (r *mongoPosts) UpdateDescription(ctx context.Context, postID, description string) (models.Post, error) {
	return r.update(ctx, postID, bson.M{
		"$set": bson.M{"description": description, "updatedAt": time.Now().UTC()},
	})
}

func (r *mongoPosts) update(ctx context.Context, postID string, update bson.M) (models.Post, error) {
	oid, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return models.Post{}, ErrNotFound
	}

	return r.findAndUpdate(ctx, bson.M{"_id": oid}, update)
}

func (r *mongoPosts) findAndUpdate(ctx context.Context, filter, update bson.M) (models.Post, error) {
	var doc postDoc
	err := r.coll.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Post{}, ErrNotFound
	}
	if err != nil {
		return models.Post{}, fmt.Errorf("repository: update post: %w", err)
	}
	return doc.model(), nil
}

func (r *mongoPosts) Delete(ctx context.Context, postID string) error {
	oid, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return ErrNotFound
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("repository: delete post: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
