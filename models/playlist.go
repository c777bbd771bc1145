package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
	// VisibilityAuto marks playlists rebuilt by the daily scheduler. They are
	// excluded from user listings and never written by user endpoints.
	VisibilityAuto = "auto-generated"
)

type Playlist struct {
	ID         primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title      string               `bson:"title" json:"title"`
	UserID     primitive.ObjectID   `bson:"user,omitempty" json:"userId,omitempty"` // unset for auto-generated playlists
	Items      []primitive.ObjectID `bson:"items" json:"items"`
	Visibility string               `bson:"visibility" json:"visibility"`
	CreatedAt  time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time            `bson:"updatedAt" json:"updatedAt"`
}
