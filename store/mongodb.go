package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type DB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

func NewMongoDB(ctx context.Context, uri, dbName string) (*DB, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return &DB{
		Client:   client,
		Database: client.Database(dbName),
	}, nil
}

func (db *DB) Users() *mongo.Collection {
	return db.Database.Collection("users")
}

func (db *DB) Musics() *mongo.Collection {
	return db.Database.Collection("musics")
}

func (db *DB) Playlists() *mongo.Collection {
	return db.Database.Collection("playlists")
}

func (db *DB) Favourites() *mongo.Collection {
	return db.Database.Collection("favourites")
}

func (db *DB) Histories() *mongo.Collection {
	return db.Database.Collection("histories")
}

func (db *DB) VerificationTokens() *mongo.Collection {
	return db.Database.Collection("verification_tokens")
}

func (db *DB) ResetTokens() *mongo.Collection {
	return db.Database.Collection("reset_tokens")
}

// oneTimeTokenTTL is how long verification/reset tokens live in storage.
// Session tokens expire via their JWT claim instead.
const oneTimeTokenTTL = 3600 * time.Second

// EnsureIndexes creates the indexes the data model relies on: unique
// lowercase email, one document per user for favourites/history and for
// each token purpose, and TTL expiry on the token collections.
func (db *DB) EnsureIndexes(ctx context.Context) error {
	uniqueUser := mongo.IndexModel{
		Keys:    bson.D{{Key: "user", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	tokenIndexes := []mongo.IndexModel{
		uniqueUser,
		{
			Keys:    bson.D{{Key: "createdAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(oneTimeTokenTTL.Seconds())),
		},
	}

	if _, err := db.Users().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return err
	}
	if _, err := db.Favourites().Indexes().CreateOne(ctx, uniqueUser); err != nil {
		return err
	}
	if _, err := db.Histories().Indexes().CreateOne(ctx, uniqueUser); err != nil {
		return err
	}
	if _, err := db.VerificationTokens().Indexes().CreateMany(ctx, tokenIndexes); err != nil {
		return err
	}
	if _, err := db.ResetTokens().Indexes().CreateMany(ctx, tokenIndexes); err != nil {
		return err
	}
	return nil
}

func (db *DB) Disconnect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return db.Client.Disconnect(ctx)
}
