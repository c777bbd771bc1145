package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlayEvent is one play-history entry: which track, how far through, when.
type PlayEvent struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MusicID  primitive.ObjectID `bson:"music" json:"musicId"`
	Progress float64            `bson:"progress" json:"progress"`
	Date     time.Time          `bson:"date" json:"date"`
}

// History is one document per user. All is kept newest-first and holds at
// most one entry per (music, calendar day); Last mirrors the most recent
// play event.
type History struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user" json:"userId"`
	Last      PlayEvent          `bson:"last" json:"last"`
	All       []PlayEvent        `bson:"all" json:"all"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}
