package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FileRef points at an object in external storage (S3). Key is the object
// key used for deletion; URL is what clients are given.
type FileRef struct {
	URL string `bson:"url" json:"url"`
	Key string `bson:"key" json:"-"`
}

type User struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name      string               `bson:"name" json:"name"`
	Email     string               `bson:"email" json:"email"` // stored lowercase, unique
	Password  string               `bson:"password" json:"-"`  // bcrypt hash; may be empty for externally provisioned accounts
	Verified  bool                 `bson:"verified" json:"verified"`
	Avatar    *FileRef             `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Tokens    []string             `bson:"tokens" json:"-"` // currently valid session tokens, one per device
	Followers []primitive.ObjectID `bson:"followers" json:"-"`
	Following []primitive.ObjectID `bson:"following" json:"-"`
	CreatedAt time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// Profile is the public view of a user attached to authenticated requests
// and returned from auth endpoints.
type Profile struct {
	ID        primitive.ObjectID `json:"id"`
	Name      string             `json:"name"`
	Email     string             `json:"email"`
	Verified  bool               `json:"verified"`
	Avatar    string             `json:"avatar,omitempty"`
	Followers int                `json:"followers"`
	Following int                `json:"followings"`
}

func (u *User) Profile() Profile {
	p := Profile{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Verified:  u.Verified,
		Followers: len(u.Followers),
		Following: len(u.Following),
	}
	if u.Avatar != nil {
		p.Avatar = u.Avatar.URL
	}
	return p
}
