package store

import (
	"context"
	"time"

	"github.com/pipify/server/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// DayBounds returns the [local midnight, next local midnight) window of
// t's calendar date. Same-day dedup is computed against the play event's
// own timestamp, not the server clock at write time.
func DayBounds(t time.Time) (start, end time.Time) {
	start = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}

func (db *DB) HistoryByUser(ctx context.Context, userID primitive.ObjectID) (*models.History, error) {
	var h models.History
	err := db.Histories().FindOne(ctx, bson.M{"user": userID}).Decode(&h)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// RecordProgress records a play event. If an entry for the same track on
// the same calendar day already exists, its progress and timestamp are
// updated in place; otherwise the event is prepended so "all" stays
// newest-first, and "last" is overwritten.
func (db *DB) RecordProgress(ctx context.Context, userID primitive.ObjectID, event models.PlayEvent) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}

	history, err := db.HistoryByUser(ctx, userID)
	if err != nil {
		return err
	}
	if history == nil {
		now := time.Now()
		_, err := db.Histories().InsertOne(ctx, models.History{
			UserID:    userID,
			Last:      event,
			All:       []models.PlayEvent{event},
			CreatedAt: now,
			UpdatedAt: now,
		})
		return err
	}

	start, end := DayBounds(event.Date)
	sameDay, err := db.sameDayMusicIDs(ctx, userID, start, end)
	if err != nil {
		return err
	}

	if containsID(sameDay, event.MusicID) {
		_, err := db.Histories().UpdateOne(ctx,
			bson.M{"user": userID, "all.music": event.MusicID},
			bson.M{"$set": bson.M{
				"all.$.progress": event.Progress,
				"all.$.date":     event.Date,
				"updatedAt":      time.Now(),
			}})
		return err
	}

	_, err = db.Histories().UpdateByID(ctx, history.ID, bson.M{
		"$push": bson.M{"all": bson.M{"$each": bson.A{event}, "$position": 0}},
		"$set":  bson.M{"last": event, "updatedAt": time.Now()},
	})
	return err
}

func sameDayPipeline(userID primitive.ObjectID, start, end time.Time) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user": userID}}},
		{{Key: "$unwind", Value: "$all"}},
		{{Key: "$match", Value: bson.M{"all.date": bson.M{"$gte": start, "$lt": end}}}},
		{{Key: "$project", Value: bson.M{"_id": 0, "musicId": "$all.music"}}},
	}
}

func (db *DB) sameDayMusicIDs(ctx context.Context, userID primitive.ObjectID, start, end time.Time) ([]primitive.ObjectID, error) {
	cur, err := db.Histories().Aggregate(ctx, sameDayPipeline(userID, start, end))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var rows []struct {
		MusicID primitive.ObjectID `bson:"musicId"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.MusicID)
	}
	return ids, nil
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// RemoveAllHistory deletes the user's entire history document.
func (db *DB) RemoveAllHistory(ctx context.Context, userID primitive.ObjectID) error {
	_, err := db.Histories().DeleteOne(ctx, bson.M{"user": userID})
	return err
}

// RemoveHistoryEntries removes only the entries whose ids are given.
func (db *DB) RemoveHistoryEntries(ctx context.Context, userID primitive.ObjectID, ids []primitive.ObjectID) error {
	_, err := db.Histories().UpdateOne(ctx,
		bson.M{"user": userID},
		bson.M{"$pull": bson.M{"all": bson.M{"_id": bson.M{"$in": ids}}}})
	return err
}

// HistoryEntryView is one history row joined to its track title.
type HistoryEntryView struct {
	ID      primitive.ObjectID `bson:"id" json:"id"`
	MusicID primitive.ObjectID `bson:"musicId" json:"musicId"`
	Date    time.Time          `bson:"date" json:"date"`
	Title   string             `bson:"title" json:"title"`
}

// HistoryDay groups one page of history rows by calendar day.
type HistoryDay struct {
	Date   string             `bson:"date" json:"date"`
	Musics []HistoryEntryView `bson:"musics" json:"musics"`
}

// historiesPipeline pages over "all" (page-based: page skip starts at
// skip*limit), joins each entry to its track title and groups the page by
// YYYY-MM-DD descending.
func historiesPipeline(userID primitive.ObjectID, skip, limit int64) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user": userID}}},
		{{Key: "$project", Value: bson.M{
			"all": bson.M{"$slice": bson.A{"$all", skip * limit, limit}},
		}}},
		{{Key: "$unwind", Value: "$all"}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "musics",
			"localField":   "all.music",
			"foreignField": "_id",
			"as":           "musicInfo",
		}}},
		{{Key: "$unwind", Value: "$musicInfo"}},
		{{Key: "$project", Value: bson.M{
			"_id":     0,
			"id":      "$all._id",
			"musicId": "$musicInfo._id",
			"date":    "$all.date",
			"title":   "$musicInfo.title",
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":    bson.M{"$dateToString": bson.M{"format": "%Y-%m-%d", "date": "$date"}},
			"musics": bson.M{"$push": "$$ROOT"},
		}}},
		{{Key: "$project", Value: bson.M{
			"_id":    0,
			"date":   "$_id",
			"musics": "$musics",
		}}},
		{{Key: "$sort", Value: bson.M{"date": -1}}},
	}
}

func (db *DB) ListHistories(ctx context.Context, userID primitive.ObjectID, skip, limit int64) ([]HistoryDay, error) {
	cur, err := db.Histories().Aggregate(ctx, historiesPipeline(userID, skip, limit))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	days := []HistoryDay{}
	if err := cur.All(ctx, &days); err != nil {
		return nil, err
	}
	return days, nil
}

// RecentTrack is one recently-played row joined to its track and owner.
type RecentTrack struct {
	ID        primitive.ObjectID `bson:"id" json:"id"`
	Title     string             `bson:"title" json:"title"`
	About     string             `bson:"about,omitempty" json:"about,omitempty"`
	File      string             `bson:"file" json:"file"`
	Thumbnail string             `bson:"thumbnail,omitempty" json:"thumbnail,omitempty"`
	Category  string             `bson:"category,omitempty" json:"category,omitempty"`
	Owner     TrackOwner         `bson:"user" json:"user"`
	Date      time.Time          `bson:"date" json:"date"`
	Progress  float64            `bson:"progress" json:"progress"`
}

// recentlyPlayedPipeline takes the first 10 stored entries, sorts those by
// date descending, and joins each to its track and the track's owner.
// The category projection reads a subfield of a string-typed field and so
// always resolves empty; the field is kept for response-shape
// compatibility.
func recentlyPlayedPipeline(userID primitive.ObjectID) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user": userID}}},
		{{Key: "$project", Value: bson.M{
			"myHistory": bson.M{"$slice": bson.A{"$all", 10}},
		}}},
		{{Key: "$project", Value: bson.M{
			"histories": bson.M{"$sortArray": bson.M{
				"input":  "$myHistory",
				"sortBy": bson.M{"date": -1},
			}},
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$histories", "includeArrayIndex": "index"}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "musics",
			"localField":   "histories.music",
			"foreignField": "_id",
			"as":           "musicInfo",
		}}},
		{{Key: "$unwind", Value: "$musicInfo"}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "users",
			"localField":   "musicInfo.user",
			"foreignField": "_id",
			"as":           "user",
		}}},
		{{Key: "$unwind", Value: "$user"}},
		{{Key: "$project", Value: bson.M{
			"_id":       0,
			"id":        "$musicInfo._id",
			"title":     "$musicInfo.title",
			"about":     "$musicInfo.about",
			"file":      "$musicInfo.file.url",
			"thumbnail": "$musicInfo.thumbnail.url",
			"category":  "$musicInfo.category.url",
			"user":      bson.M{"name": "$user.name", "id": "$user._id"},
			"date":      "$histories.date",
			"progress":  "$histories.progress",
		}}},
	}
}

func (db *DB) RecentlyPlayed(ctx context.Context, userID primitive.ObjectID) ([]RecentTrack, error) {
	cur, err := db.Histories().Aggregate(ctx, recentlyPlayedPipeline(userID))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	tracks := []RecentTrack{}
	if err := cur.All(ctx, &tracks); err != nil {
		return nil, err
	}
	return tracks, nil
}
