package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/pipify/server/middleware"
	"github.com/pipify/server/models"
	"github.com/pipify/server/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProfileStore covers the social-graph and public-profile reads.
type ProfileStore interface {
	UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	IsFollower(ctx context.Context, target, actor primitive.ObjectID) (bool, error)
	AddFollower(ctx context.Context, target, actor primitive.ObjectID) error
	RemoveFollower(ctx context.Context, target, actor primitive.ObjectID) error
	AddFollowing(ctx context.Context, actor, target primitive.ObjectID) error
	RemoveFollowing(ctx context.Context, actor, target primitive.ObjectID) error
	UploadsByUser(ctx context.Context, userID primitive.ObjectID, skip, limit int64) ([]models.Music, error)
	PublicPlaylistsByUser(ctx context.Context, userID primitive.ObjectID, skip, limit int64) ([]models.Playlist, error)
	RecommendedTracks(ctx context.Context, limit int64) ([]store.TrackView, error)
}

type ProfileHandler struct {
	Store ProfileStore
}

// UpdateFollower toggles the follow edge between the caller and profileId.
// Both sides are updated with separate idempotent writes: followers on the
// target first, then following on the actor.
// POST /api/v1/profile/update-follower/{profileId}
func (h *ProfileHandler) UpdateFollower(w http.ResponseWriter, r *http.Request) {
	profile, ok := middleware.ProfileFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized access"}`, http.StatusUnauthorized)
		return
	}
	targetID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "profileId"))
	if err != nil {
		http.Error(w, `{"error":"unauthorized access"}`, http.StatusUnprocessableEntity)
		return
	}
	target, err := h.Store.UserByID(r.Context(), targetID)
	if err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}
	if target == nil {
		http.Error(w, `{"error":"user not found"}`, http.StatusNotFound)
		return
	}

	following, err := h.Store.IsFollower(r.Context(), targetID, profile.ID)
	if err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}

	var status string
	if following {
		err = h.Store.RemoveFollower(r.Context(), targetID, profile.ID)
		status = "removed"
	} else {
		err = h.Store.AddFollower(r.Context(), targetID, profile.ID)
		status = "added"
	}
	if err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}

	if status == "added" {
		err = h.Store.AddFollowing(r.Context(), profile.ID, targetID)
	} else {
		err = h.Store.RemoveFollowing(r.Context(), profile.ID, targetID)
	}
	if err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

// GetUploads lists the caller's own uploads, newest first.
// GET /api/v1/profile/uploads
func (h *ProfileHandler) GetUploads(w http.ResponseWriter, r *http.Request) {
	profile, ok := middleware.ProfileFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized access"}`, http.StatusUnauthorized)
		return
	}
	skip, limit := pagination(r)
	musics, err := h.Store.UploadsByUser(r.Context(), profile.ID, skip, limit)
	if err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}
	owner := store.TrackOwner{Name: profile.Name, ID: profile.ID}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"musics": tracksOf(musics, owner)})
}

// GetPublicUploads lists another user's uploads.
// GET /api/v1/profile/uploads/{profileId}
func (h *ProfileHandler) GetPublicUploads(w http.ResponseWriter, r *http.Request) {
	profileID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "profileId"))
	if err != nil {
		http.Error(w, `{"error":"unauthorized access"}`, http.StatusUnprocessableEntity)
		return
	}
	user, err := h.Store.UserByID(r.Context(), profileID)
	if err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}
	if user == nil {
		http.Error(w, `{"error":"user not found"}`, http.StatusNotFound)
		return
	}
	skip, limit := pagination(r)
	musics, err := h.Store.UploadsByUser(r.Context(), profileID, skip, limit)
	if err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}
	owner := store.TrackOwner{Name: user.Name, ID: user.ID}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"musics": tracksOf(musics, owner)})
}

// GetPublicProfile returns the public view of a user.
// GET /api/v1/profile/public/{profileId}
func (h *ProfileHandler) GetPublicProfile(w http.ResponseWriter, r *http.Request) {
	profileID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "profileId"))
	if err != nil {
		http.Error(w, `{"error":"unauthorized access"}`, http.StatusUnprocessableEntity)
		return
	}
	user, err := h.Store.UserByID(r.Context(), profileID)
	if err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}
	if user == nil {
		http.Error(w, `{"error":"user not found"}`, http.StatusNotFound)
		return
	}
	avatar := ""
	if user.Avatar != nil {
		avatar = user.Avatar.URL
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"profile": map[string]interface{}{
			"id":        user.ID,
			"name":      user.Name,
			"followers": len(user.Followers),
			"avatar":    avatar,
		},
	})
}

// GetPublicPlaylists lists another user's public playlists.
// GET /api/v1/profile/playlist/{profileId}
func (h *ProfileHandler) GetPublicPlaylists(w http.ResponseWriter, r *http.Request) {
	profileID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "profileId"))
	if err != nil {
		http.Error(w, `{"error":"unauthorized access"}`, http.StatusUnprocessableEntity)
		return
	}
	skip, limit := pagination(r)
	playlists, err := h.Store.PublicPlaylistsByUser(r.Context(), profileID, skip, limit)
	if err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"playlists": playlistSummaries(playlists)})
}

// GetRecommended serves the global top tracks by like count. There is no
// per-user signal: recommendation is unconditional.
// GET /api/v1/profile/recommended
func (h *ProfileHandler) GetRecommended(w http.ResponseWriter, r *http.Request) {
	musics, err := h.Store.RecommendedTracks(r.Context(), 10)
	if err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"musics": musics})
}

// pagination reads the page-based skip/limit query parameters: page skip
// starts at skip*limit documents.
func pagination(r *http.Request) (skip, limit int64) {
	skip, limit = 0, 10
	if v, err := strconv.ParseInt(r.URL.Query().Get("skip"), 10, 64); err == nil && v >= 0 {
		skip = v
	}
	if v, err := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64); err == nil && v > 0 {
		limit = v
	}
	return skip, limit
}

func tracksOf(musics []models.Music, owner store.TrackOwner) []store.TrackView {
	tracks := make([]store.TrackView, 0, len(musics))
	for _, m := range musics {
		t := store.TrackView{
			ID:       m.ID,
			Title:    m.Title,
			About:    m.About,
			Category: m.Category,
			File:     m.File.URL,
			Owner:    owner,
			Date:     m.CreatedAt,
		}
		if m.Thumbnail != nil {
			t.Thumbnail = m.Thumbnail.URL
		}
		tracks = append(tracks, t)
	}
	return tracks
}

type playlistSummary struct {
	ID         primitive.ObjectID `json:"id"`
	Title      string             `json:"title"`
	ItemsCount int                `json:"itemsCount"`
	Visibility string             `json:"visibility"`
}

func playlistSummaries(playlists []models.Playlist) []playlistSummary {
	out := make([]playlistSummary, 0, len(playlists))
	for _, p := range playlists {
		out = append(out, playlistSummary{
			ID:         p.ID,
			Title:      p.Title,
			ItemsCount: len(p.Items),
			Visibility: p.Visibility,
		})
	}
	return out
}
