package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Categories are the fixed genre values a track may carry. "Others" is the
// catch-all and the default when upload omits a category.
var Categories = []string{
	"Pop",
	"Hip-Hop/Rap",
	"Rock",
	"Electronic/Dance",
	"R&B",
	"Latin",
	"Country",
	"Jazz",
	"Classical",
	"Indie",
	"Metal",
	"Folk",
	"Blues",
	"Reggae",
	"K-Pop",
	"Alternative",
	"Punk",
	"Soul",
	"Funk",
	"Ambient",
	"Others",
}

const DefaultCategory = "Others"

// ValidCategory reports whether c is one of the fixed genre values.
func ValidCategory(c string) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

type Music struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title     string               `bson:"title" json:"title"`
	About     string               `bson:"about" json:"about"`
	UserID    primitive.ObjectID   `bson:"user" json:"userId"`
	File      FileRef              `bson:"file" json:"file"`
	Thumbnail *FileRef             `bson:"thumbnail,omitempty" json:"thumbnail,omitempty"`
	Likes     []primitive.ObjectID `bson:"likes" json:"-"` // user ids; written only by the favourites toggle
	Category  string               `bson:"category" json:"category"`
	CreatedAt time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time            `bson:"updatedAt" json:"updatedAt"`
}
