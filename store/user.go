package store

import (
	"context"
	"strings"
	"time"

	"github.com/pipify/server/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func (db *DB) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := db.Users().FindOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (db *DB) UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	err := db.Users().FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UserByIDAndToken resolves a user only if token is in their current token
// list. This is the per-device revocation check: a token removed by logout
// stops resolving even while its signature is still valid.
func (db *DB) UserByIDAndToken(ctx context.Context, id primitive.ObjectID, token string) (*models.User, error) {
	var u models.User
	err := db.Users().FindOne(ctx, bson.M{"_id": id, "tokens": token}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (db *DB) CreateUser(ctx context.Context, user *models.User) (primitive.ObjectID, error) {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Tokens == nil {
		user.Tokens = []string{}
	}
	if user.Followers == nil {
		user.Followers = []primitive.ObjectID{}
	}
	if user.Following == nil {
		user.Following = []primitive.ObjectID{}
	}
	res, err := db.Users().InsertOne(ctx, user)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

func (db *DB) SetVerified(ctx context.Context, id primitive.ObjectID) error {
	_, err := db.Users().UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"verified": true, "updatedAt": time.Now()}})
	return err
}

func (db *DB) SetPassword(ctx context.Context, id primitive.ObjectID, hashed string) error {
	_, err := db.Users().UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"password": hashed, "updatedAt": time.Now()}})
	return err
}

func (db *DB) SetName(ctx context.Context, id primitive.ObjectID, name string) error {
	_, err := db.Users().UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"name": name, "updatedAt": time.Now()}})
	return err
}

func (db *DB) SetAvatar(ctx context.Context, id primitive.ObjectID, avatar *models.FileRef) error {
	_, err := db.Users().UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"avatar": avatar, "updatedAt": time.Now()}})
	return err
}

// PushToken appends a freshly issued session token to the user's device list.
func (db *DB) PushToken(ctx context.Context, id primitive.ObjectID, token string) error {
	_, err := db.Users().UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$push": bson.M{"tokens": token}, "$set": bson.M{"updatedAt": time.Now()}})
	return err
}

// RemoveToken removes exactly the presented token, leaving other devices
// signed in.
func (db *DB) RemoveToken(ctx context.Context, id primitive.ObjectID, token string) error {
	_, err := db.Users().UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$pull": bson.M{"tokens": token}, "$set": bson.M{"updatedAt": time.Now()}})
	return err
}

// ClearTokens logs the user out of every device.
func (db *DB) ClearTokens(ctx context.Context, id primitive.ObjectID) error {
	_, err := db.Users().UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"tokens": []string{}, "updatedAt": time.Now()}})
	return err
}

// IsFollower reports whether actor is in target's followers set.
func (db *DB) IsFollower(ctx context.Context, target, actor primitive.ObjectID) (bool, error) {
	err := db.Users().FindOne(ctx, bson.M{"_id": target, "followers": actor}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// AddFollower / RemoveFollower and AddFollowing / RemoveFollowing are the
// two halves of the follow toggle. They are deliberately separate writes:
// each is idempotent ($addToSet/$pull), so a retry after a partial failure
// converges rather than corrupting either set.

func (db *DB) AddFollower(ctx context.Context, target, actor primitive.ObjectID) error {
	_, err := db.Users().UpdateOne(ctx, bson.M{"_id": target},
		bson.M{"$addToSet": bson.M{"followers": actor}})
	return err
}

func (db *DB) RemoveFollower(ctx context.Context, target, actor primitive.ObjectID) error {
	_, err := db.Users().UpdateOne(ctx, bson.M{"_id": target},
		bson.M{"$pull": bson.M{"followers": actor}})
	return err
}

func (db *DB) AddFollowing(ctx context.Context, actor, target primitive.ObjectID) error {
	_, err := db.Users().UpdateOne(ctx, bson.M{"_id": actor},
		bson.M{"$addToSet": bson.M{"following": target}})
	return err
}

func (db *DB) RemoveFollowing(ctx context.Context, actor, target primitive.ObjectID) error {
	_, err := db.Users().UpdateOne(ctx, bson.M{"_id": actor},
		bson.M{"$pull": bson.M{"following": target}})
	return err
}
