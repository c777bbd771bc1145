package store

import (
	"context"
	"time"

	"github.com/pipify/server/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TrackOwner is the projected owner of a track in read shapes.
type TrackOwner struct {
	Name string             `bson:"name" json:"name"`
	ID   primitive.ObjectID `bson:"id" json:"id"`
}

// TrackView is the flat track shape served by list endpoints (latest
// uploads, recommendations, favourites, playlist contents).
type TrackView struct {
	ID        primitive.ObjectID `bson:"id" json:"id"`
	Title     string             `bson:"title" json:"title"`
	About     string             `bson:"about,omitempty" json:"about,omitempty"`
	Category  string             `bson:"category,omitempty" json:"category,omitempty"`
	File      string             `bson:"file" json:"file"`
	Thumbnail string             `bson:"thumbnail,omitempty" json:"thumbnail,omitempty"`
	Owner     TrackOwner         `bson:"user" json:"user"`
	Date      time.Time          `bson:"date,omitempty" json:"date,omitempty"`
}

func (db *DB) InsertMusic(ctx context.Context, m *models.Music) (primitive.ObjectID, error) {
	now := time.Now()
	m.CreatedAt = now
	m.UpdatedAt = now
	if m.Likes == nil {
		m.Likes = []primitive.ObjectID{}
	}
	res, err := db.Musics().InsertOne(ctx, m)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

func (db *DB) MusicByID(ctx context.Context, id primitive.ObjectID) (*models.Music, error) {
	var m models.Music
	err := db.Musics().FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// UpdateMusicMeta updates title/about/category for a track owned by userID
// and returns the updated document, or nil when no owned track matches.
func (db *DB) UpdateMusicMeta(ctx context.Context, id, userID primitive.ObjectID, title, about, category string) (*models.Music, error) {
	var m models.Music
	err := db.Musics().FindOneAndUpdate(ctx,
		bson.M{"_id": id, "user": userID},
		bson.M{"$set": bson.M{"title": title, "about": about, "category": category, "updatedAt": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (db *DB) SetMusicThumbnail(ctx context.Context, id primitive.ObjectID, thumbnail *models.FileRef) error {
	_, err := db.Musics().UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"thumbnail": thumbnail, "updatedAt": time.Now()}})
	return err
}

// AddLike / RemoveLike mirror the favourites toggle into Music.likes. Both
// are idempotent so the non-transactional pairing with the favourite
// document converges on retry.

func (db *DB) AddLike(ctx context.Context, musicID, userID primitive.ObjectID) error {
	_, err := db.Musics().UpdateOne(ctx, bson.M{"_id": musicID},
		bson.M{"$addToSet": bson.M{"likes": userID}})
	return err
}

func (db *DB) RemoveLike(ctx context.Context, musicID, userID primitive.ObjectID) error {
	_, err := db.Musics().UpdateOne(ctx, bson.M{"_id": musicID},
		bson.M{"$pull": bson.M{"likes": userID}})
	return err
}

// UploadsByUser pages over a user's uploads, newest first. skip is a page
// number: page N skips N*limit documents.
func (db *DB) UploadsByUser(ctx context.Context, userID primitive.ObjectID, skip, limit int64) ([]models.Music, error) {
	cur, err := db.Musics().Find(ctx, bson.M{"user": userID},
		options.Find().
			SetSkip(skip*limit).
			SetLimit(limit).
			SetSort(bson.M{"createdAt": -1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var musics []models.Music
	if err := cur.All(ctx, &musics); err != nil {
		return nil, err
	}
	return musics, nil
}

// trackProjection is the shared $project stage joining a music document
// (with its owner already unwound into "user") into a TrackView.
func trackProjection() bson.D {
	return bson.D{{Key: "$project", Value: bson.M{
		"_id":       0,
		"id":        "$_id",
		"title":     "$title",
		"about":     "$about",
		"category":  "$category",
		"file":      "$file.url",
		"thumbnail": "$thumbnail.url",
		"date":      "$createdAt",
		"user":      bson.M{"name": "$user.name", "id": "$user._id"},
	}}}
}

func latestUploadsPipeline(limit int64) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$sort", Value: bson.M{"createdAt": -1}}},
		{{Key: "$limit", Value: limit}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "users",
			"localField":   "user",
			"foreignField": "_id",
			"as":           "user",
		}}},
		{{Key: "$unwind", Value: "$user"}},
		trackProjection(),
	}
}

// recommendedPipeline is the global top-N by like count with owner join.
// There is no personalized branch: recommendation is unconditionally the
// most-liked tracks.
func recommendedPipeline(limit int64) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$addFields", Value: bson.M{"likeCount": bson.M{"$size": "$likes"}}}},
		{{Key: "$sort", Value: bson.M{"likeCount": -1}}},
		{{Key: "$limit", Value: limit}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "users",
			"localField":   "user",
			"foreignField": "_id",
			"as":           "user",
		}}},
		{{Key: "$unwind", Value: "$user"}},
		trackProjection(),
	}
}

// autoPlaylistPipeline samples a bounded random subset of tracks and groups
// their ids by category for the daily auto-generated playlists.
func autoPlaylistPipeline(sampleSize int64) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$sample", Value: bson.M{"size": sampleSize}}},
		{{Key: "$group", Value: bson.M{
			"_id":    "$category",
			"musics": bson.M{"$push": "$_id"},
		}}},
	}
}

func (db *DB) LatestUploads(ctx context.Context, limit int64) ([]TrackView, error) {
	return db.aggregateTracks(ctx, latestUploadsPipeline(limit))
}

func (db *DB) RecommendedTracks(ctx context.Context, limit int64) ([]TrackView, error) {
	return db.aggregateTracks(ctx, recommendedPipeline(limit))
}

func (db *DB) aggregateTracks(ctx context.Context, pipeline mongo.Pipeline) ([]TrackView, error) {
	cur, err := db.Musics().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	tracks := []TrackView{}
	if err := cur.All(ctx, &tracks); err != nil {
		return nil, err
	}
	return tracks, nil
}

// CategorySample is one category bucket from the auto-playlist sampler.
type CategorySample struct {
	Category string               `bson:"_id"`
	Items    []primitive.ObjectID `bson:"musics"`
}

func (db *DB) SampleByCategory(ctx context.Context, sampleSize int64) ([]CategorySample, error) {
	cur, err := db.Musics().Aggregate(ctx, autoPlaylistPipeline(sampleSize))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var samples []CategorySample
	if err := cur.All(ctx, &samples); err != nil {
		return nil, err
	}
	return samples, nil
}
