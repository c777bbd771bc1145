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

func (db *DB) InsertPlaylist(ctx context.Context, p *models.Playlist) (primitive.ObjectID, error) {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Items == nil {
		p.Items = []primitive.ObjectID{}
	}
	res, err := db.Playlists().InsertOne(ctx, p)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

// UpdatePlaylistMeta updates title/visibility for a playlist owned by
// userID and returns the updated document, or nil when no owned playlist
// matches. Auto-generated playlists are never matched: they carry no owner.
func (db *DB) UpdatePlaylistMeta(ctx context.Context, id, userID primitive.ObjectID, title, visibility string) (*models.Playlist, error) {
	var p models.Playlist
	err := db.Playlists().FindOneAndUpdate(ctx,
		bson.M{"_id": id, "user": userID},
		bson.M{"$set": bson.M{"title": title, "visibility": visibility, "updatedAt": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (db *DB) AddPlaylistItem(ctx context.Context, id, userID, musicID primitive.ObjectID) error {
	_, err := db.Playlists().UpdateOne(ctx,
		bson.M{"_id": id, "user": userID},
		bson.M{"$addToSet": bson.M{"items": musicID}, "$set": bson.M{"updatedAt": time.Now()}})
	return err
}

// PullPlaylistItem removes one track from an owned playlist. Returns false
// when no owned playlist matched.
func (db *DB) PullPlaylistItem(ctx context.Context, id, userID, musicID primitive.ObjectID) (bool, error) {
	res, err := db.Playlists().UpdateOne(ctx,
		bson.M{"_id": id, "user": userID},
		bson.M{"$pull": bson.M{"items": musicID}, "$set": bson.M{"updatedAt": time.Now()}})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

// DeletePlaylist removes an owned playlist. Returns false when no owned
// playlist matched.
func (db *DB) DeletePlaylist(ctx context.Context, id, userID primitive.ObjectID) (bool, error) {
	res, err := db.Playlists().DeleteOne(ctx, bson.M{"_id": id, "user": userID})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// PlaylistsByUser pages over a user's own playlists, excluding the
// auto-generated ones, newest first. skip is a page number.
func (db *DB) PlaylistsByUser(ctx context.Context, userID primitive.ObjectID, skip, limit int64) ([]models.Playlist, error) {
	return db.findPlaylists(ctx,
		bson.M{"user": userID, "visibility": bson.M{"$ne": models.VisibilityAuto}},
		skip, limit)
}

// PublicPlaylistsByUser pages over another user's public playlists.
func (db *DB) PublicPlaylistsByUser(ctx context.Context, userID primitive.ObjectID, skip, limit int64) ([]models.Playlist, error) {
	return db.findPlaylists(ctx,
		bson.M{"user": userID, "visibility": models.VisibilityPublic},
		skip, limit)
}

func (db *DB) findPlaylists(ctx context.Context, filter bson.M, skip, limit int64) ([]models.Playlist, error) {
	cur, err := db.Playlists().Find(ctx, filter,
		options.Find().
			SetSkip(skip*limit).
			SetLimit(limit).
			SetSort(bson.M{"createdAt": -1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var playlists []models.Playlist
	if err := cur.All(ctx, &playlists); err != nil {
		return nil, err
	}
	return playlists, nil
}

func (db *DB) PlaylistByIDAndUser(ctx context.Context, id, userID primitive.ObjectID) (*models.Playlist, error) {
	var p models.Playlist
	err := db.Playlists().FindOne(ctx, bson.M{"_id": id, "user": userID}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func playlistTracksPipeline(id, userID primitive.ObjectID) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"_id": id, "user": userID}}},
		{{Key: "$unwind", Value: "$items"}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "musics",
			"localField":   "items",
			"foreignField": "_id",
			"as":           "music",
		}}},
		{{Key: "$unwind", Value: "$music"}},
		{{Key: "$replaceRoot", Value: bson.M{"newRoot": "$music"}}},
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

// PlaylistTracks returns the tracks of an owned playlist joined to their
// owners, in playlist order.
func (db *DB) PlaylistTracks(ctx context.Context, id, userID primitive.ObjectID) ([]TrackView, error) {
	cur, err := db.Playlists().Aggregate(ctx, playlistTracksPipeline(id, userID))
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

// UpsertAutoPlaylist replaces the items of the auto-generated playlist for
// one category wholesale, creating it on first run. Keyed by title and
// visibility so overlapping scheduler runs stay per-category idempotent.
func (db *DB) UpsertAutoPlaylist(ctx context.Context, category string, items []primitive.ObjectID) error {
	now := time.Now()
	_, err := db.Playlists().UpdateOne(ctx,
		bson.M{"title": category, "visibility": models.VisibilityAuto},
		bson.M{
			// title and visibility come from the equality filter on insert.
			"$set":         bson.M{"items": items, "updatedAt": now},
			"$setOnInsert": bson.M{"createdAt": now},
		},
		options.Update().SetUpsert(true))
	return err
}
