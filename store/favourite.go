package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// HasFavourite reports whether musicID is in the user's favourite set.
func (db *DB) HasFavourite(ctx context.Context, userID, musicID primitive.ObjectID) (bool, error) {
	err := db.Favourites().FindOne(ctx, bson.M{"user": userID, "items": musicID}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// FavouritesExist reports whether the user has a favourite document at all.
func (db *DB) FavouritesExist(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	err := db.Favourites().FindOne(ctx, bson.M{"user": userID}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// AddFavourite adds musicID to the user's favourite set, creating the
// document lazily on the first add. The upsert keeps create-vs-update a
// single write under the unique user index.
func (db *DB) AddFavourite(ctx context.Context, userID, musicID primitive.ObjectID) error {
	now := time.Now()
	_, err := db.Favourites().UpdateOne(ctx,
		bson.M{"user": userID},
		bson.M{
			// user comes from the equality filter on insert.
			"$addToSet":    bson.M{"items": musicID},
			"$set":         bson.M{"updatedAt": now},
			"$setOnInsert": bson.M{"createdAt": now},
		},
		options.Update().SetUpsert(true))
	return err
}

func (db *DB) RemoveFavourite(ctx context.Context, userID, musicID primitive.ObjectID) error {
	_, err := db.Favourites().UpdateOne(ctx,
		bson.M{"user": userID},
		bson.M{"$pull": bson.M{"items": musicID}, "$set": bson.M{"updatedAt": time.Now()}})
	return err
}

func favouriteTracksPipeline(userID primitive.ObjectID) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user": userID}}},
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

// FavouriteTracks returns the user's favourites joined to track and owner
// data. A nil slice means the user has no favourite document yet.
func (db *DB) FavouriteTracks(ctx context.Context, userID primitive.ObjectID) ([]TrackView, error) {
	exists, err := db.FavouritesExist(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	return db.aggregateFavouriteTracks(ctx, userID)
}

func (db *DB) aggregateFavouriteTracks(ctx context.Context, userID primitive.ObjectID) ([]TrackView, error) {
	cur, err := db.Favourites().Aggregate(ctx, favouriteTracksPipeline(userID))
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
