package handlers

import (
	"context"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/pipify/server/middleware"
	"github.com/pipify/server/models"
	"github.com/pipify/server/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FavouriteStore covers the favourite set and its mirror into Music.likes.
type FavouriteStore interface {
	MusicByID(ctx context.Context, id primitive.ObjectID) (*models.Music, error)
	HasFavourite(ctx context.Context, userID, musicID primitive.ObjectID) (bool, error)
	AddFavourite(ctx context.Context, userID, musicID primitive.ObjectID) error
	RemoveFavourite(ctx context.Context, userID, musicID primitive.ObjectID) error
	AddLike(ctx context.Context, musicID, userID primitive.ObjectID) error
	RemoveLike(ctx context.Context, musicID, userID primitive.ObjectID) error
	FavouriteTracks(ctx context.Context, userID primitive.ObjectID) ([]store.TrackView, error)
}

type FavouriteHandler struct {
	Store FavouriteStore
}

// Toggle flips the favourite state of a track for the caller and mirrors
// the change into the track's likes. The favourite document is created
// lazily on the first add. POST /api/v1/favourite?musicId=...
func (h *FavouriteHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	profile, ok := middleware.ProfileFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized access"}`, http.StatusUnauthorized)
		return
	}
	musicID, err := primitive.ObjectIDFromHex(r.URL.Query().Get("musicId"))
	if err != nil {
		http.Error(w, `{"error":"invalid musicId"}`, http.StatusUnprocessableEntity)
		return
	}
	music, err := h.Store.MusicByID(r.Context(), musicID)
	if err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}
	if music == nil {
		http.Error(w, `{"error":"music not found"}`, http.StatusNotFound)
		return
	}

	exists, err := h.Store.HasFavourite(r.Context(), profile.ID, musicID)
	if err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}

	var status, message string
	if exists {
		err = h.Store.RemoveFavourite(r.Context(), profile.ID, musicID)
		status, message = "removed", "removed from favourites"
	} else {
		err = h.Store.AddFavourite(r.Context(), profile.ID, musicID)
		status, message = "added", "added to favourites"
	}
	if err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}

	// Mirror into Music.likes. Separate write from the favourite update;
	// both sides are idempotent so retries converge.
	if status == "added" {
		err = h.Store.AddLike(r.Context(), musicID, profile.ID)
	} else {
		err = h.Store.RemoveLike(r.Context(), musicID, profile.ID)
	}
	if err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": status, "message": message})
}

// List returns the caller's favourites joined to track and owner data.
// GET /api/v1/favourite
func (h *FavouriteHandler) List(w http.ResponseWriter, r *http.Request) {
	profile, ok := middleware.ProfileFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized access"}`, http.StatusUnauthorized)
		return
	}
	tracks, err := h.Store.FavouriteTracks(r.Context(), profile.ID)
	if err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if tracks == nil {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error":  "favourites not found",
			"musics": []store.TrackView{},
		})
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{"musics": tracks})
}

// IsFavourite is a pure membership query with no side effects.
// GET /api/v1/favourite/is-favourite?musicId=...
func (h *FavouriteHandler) IsFavourite(w http.ResponseWriter, r *http.Request) {
	profile, ok := middleware.ProfileFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized access"}`, http.StatusUnauthorized)
		return
	}
	musicID, err := primitive.ObjectIDFromHex(r.URL.Query().Get("musicId"))
	if err != nil {
		http.Error(w, `{"error":"invalid musicId"}`, http.StatusUnprocessableEntity)
		return
	}
	exists, err := h.Store.HasFavourite(r.Context(), profile.ID, musicID)
	if err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"isFavourite": exists})
}
