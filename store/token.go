package store

import (
	"context"
	"crypto/sha256"
	"time"

	"github.com/pipify/server/models"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// TokenStore manages single-use hashed tokens for one purpose (email
// verification or password reset), at most one per user. Compare and Delete
// are separate calls: callers compare first, then delete after a successful
// use, and delete any existing token before issuing a new one.
type TokenStore struct {
	coll *mongo.Collection
	log  zerolog.Logger
}

func NewTokenStore(coll *mongo.Collection, log zerolog.Logger) *TokenStore {
	return &TokenStore{coll: coll, log: log}
}

// hashToken bcrypt-hashes the SHA-256 digest of raw. bcrypt rejects
// inputs over 72 bytes and the reset token is 84 hex chars, so the
// digest keeps every token shape hashable without changing the raw
// value callers mail out.
func hashToken(raw string) (string, error) {
	digest := sha256.Sum256([]byte(raw))
	hashed, err := bcrypt.GenerateFromPassword(digest[:], bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// tokenMatches reports whether raw is the value hashToken stored as hash.
func tokenMatches(hash, raw string) bool {
	digest := sha256.Sum256([]byte(raw))
	return bcrypt.CompareHashAndPassword([]byte(hash), digest[:]) == nil
}

// Issue hashes raw and stores it for userID. The raw value is never
// persisted; storage TTL expires the record after an hour.
func (s *TokenStore) Issue(ctx context.Context, userID primitive.ObjectID, raw string) error {
	hashed, err := hashToken(raw)
	if err != nil {
		return err
	}
	_, err = s.coll.InsertOne(ctx, models.OneTimeToken{
		UserID:    userID,
		Token:     hashed,
		CreatedAt: time.Now(),
	})
	return err
}

// Compare reports whether raw matches the stored hash for userID. Absence
// of a document, an expired record, or a mismatch all return false; the
// distinction is logged but never surfaced, so callers cannot be used to
// enumerate which accounts have pending tokens.
func (s *TokenStore) Compare(ctx context.Context, userID primitive.ObjectID, raw string) (bool, error) {
	if userID.IsZero() || raw == "" {
		s.log.Debug().Str("collection", s.coll.Name()).Msg("token compare: missing user id or token")
		return false, nil
	}
	var doc models.OneTimeToken
	err := s.coll.FindOne(ctx, bson.M{"user": userID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		s.log.Debug().Str("collection", s.coll.Name()).Str("user", userID.Hex()).Msg("token compare: no document")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !tokenMatches(doc.Token, raw) {
		s.log.Debug().Str("collection", s.coll.Name()).Str("user", userID.Hex()).Msg("token compare: mismatch")
		return false, nil
	}
	return true, nil
}

// Delete removes the user's token document. Deleting an already-absent
// document is not an error, so consumption stays idempotent.
func (s *TokenStore) Delete(ctx context.Context, userID primitive.ObjectID) error {
	_, err := s.coll.DeleteOne(ctx, bson.M{"user": userID})
	return err
}
