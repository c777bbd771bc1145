package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OneTimeToken is a hashed single-use secret (email verification OTP or
// password reset token). At most one exists per user per purpose; a TTL
// index on createdAt expires records after an hour regardless of
// application-level deletion.
type OneTimeToken struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    primitive.ObjectID `bson:"user"`
	Token     string             `bson:"token"` // bcrypt hash; the raw value is never stored
	CreatedAt time.Time          `bson:"createdAt"`
}
