package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/pipify/server/middleware"
	"github.com/pipify/server/models"
	"github.com/pipify/server/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PlaylistHandler struct {
	DB *store.DB
}

type createPlaylistRequest struct {
	Title      string `json:"title"`
	MusicID    string `json:"musicId,omitempty"`
	Visibility string `json:"visibility"`
}

// Create makes a new playlist, optionally seeded with one validated track.
// Users cannot create auto-generated playlists; those are written only by
// the scheduler. POST /api/v1/playlist/create
func (h *PlaylistHandler) Create(w http.ResponseWriter, r *http.Request) {
	profile, ok := middleware.ProfileFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized access"}`, http.StatusUnauthorized)
		return
	}
	var req createPlaylistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		http.Error(w, `{"error":"title is required"}`, http.StatusUnprocessableEntity)
		return
	}
	if req.Visibility == "" {
		req.Visibility = models.VisibilityPublic
	}
	if req.Visibility != models.VisibilityPublic && req.Visibility != models.VisibilityPrivate {
		http.Error(w, `{"error":"invalid visibility"}`, http.StatusUnprocessableEntity)
		return
	}

	playlist := &models.Playlist{
		Title:      strings.TrimSpace(req.Title),
		UserID:     profile.ID,
		Visibility: req.Visibility,
	}

	if req.MusicID != "" {
		musicID, err := primitive.ObjectIDFromHex(req.MusicID)
		if err != nil {
			http.Error(w, `{"error":"invalid musicId"}`, http.StatusUnprocessableEntity)
			return
		}
		music, err := h.DB.MusicByID(r.Context(), musicID)
		if err != nil {
			http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
			return
		}
		if music == nil {
			http.Error(w, `{"error":"music not found"}`, http.StatusNotFound)
			return
		}
		playlist.Items = []primitive.ObjectID{musicID}
	}

	id, err := h.DB.InsertPlaylist(r.Context(), playlist)
	if err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"playlist": map[string]interface{}{
			"id":         id,
			"title":      playlist.Title,
			"visibility": playlist.Visibility,
		},
	})
}

type updatePlaylistRequest struct {
	ID         string `json:"id"`
	Item       string `json:"item,omitempty"`
	Title      string `json:"title"`
	Visibility string `json:"visibility"`
}

// Update edits title/visibility of an owned playlist and optionally adds
// one validated track. PATCH /api/v1/playlist/update
func (h *PlaylistHandler) Update(w http.ResponseWriter, r *http.Request) {
	profile, ok := middleware.ProfileFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized access"}`, http.StatusUnauthorized)
		return
	}
	var req updatePlaylistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	playlistID, err := primitive.ObjectIDFromHex(req.ID)
	if err != nil {
		http.Error(w, `{"error":"invalid playlist"}`, http.StatusUnprocessableEntity)
		return
	}
	if req.Visibility != models.VisibilityPublic && req.Visibility != models.VisibilityPrivate {
		http.Error(w, `{"error":"invalid visibility"}`, http.StatusUnprocessableEntity)
		return
	}

	playlist, err := h.DB.UpdatePlaylistMeta(r.Context(), playlistID, profile.ID, req.Title, req.Visibility)
	if err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}
	if playlist == nil {
		http.Error(w, `{"error":"playlist not found"}`, http.StatusNotFound)
		return
	}

	if req.Item != "" {
		musicID, err := primitive.ObjectIDFromHex(req.Item)
		if err != nil {
			http.Error(w, `{"error":"invalid music"}`, http.StatusUnprocessableEntity)
			return
		}
		music, err := h.DB.MusicByID(r.Context(), musicID)
		if err != nil {
			http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
			return
		}
		if music == nil {
			http.Error(w, `{"error":"music not found"}`, http.StatusNotFound)
			return
		}
		if err := h.DB.AddPlaylistItem(r.Context(), playlistID, profile.ID, musicID); err != nil {
			http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"playlist": map[string]interface{}{
			"id":         playlist.ID,
			"title":      playlist.Title,
			"visibility": playlist.Visibility,
		},
	})
}

// Remove deletes a whole owned playlist (?all=yes) or pulls one track
// (?musicId=...). DELETE /api/v1/playlist?playlistId=...
func (h *PlaylistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	profile, ok := middleware.ProfileFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized access"}`, http.StatusUnauthorized)
		return
	}
	playlistID, err := primitive.ObjectIDFromHex(r.URL.Query().Get("playlistId"))
	if err != nil {
		http.Error(w, `{"error":"invalid playlist"}`, http.StatusUnprocessableEntity)
		return
	}

	if r.URL.Query().Get("all") == "yes" {
		ok, err := h.DB.DeletePlaylist(r.Context(), playlistID, profile.ID)
		if err != nil {
			http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
			return
		}
		if !ok {
			http.Error(w, `{"error":"playlist not found"}`, http.StatusNotFound)
			return
		}
	} else if musicIDStr := r.URL.Query().Get("musicId"); musicIDStr != "" {
		musicID, err := primitive.ObjectIDFromHex(musicIDStr)
		if err != nil {
			http.Error(w, `{"error":"invalid music"}`, http.StatusUnprocessableEntity)
			return
		}
		matched, err := h.DB.PullPlaylistItem(r.Context(), playlistID, profile.ID, musicID)
		if err != nil {
			http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
			return
		}
		if !matched {
			http.Error(w, `{"error":"playlist not found"}`, http.StatusNotFound)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

// List pages over the caller's own playlists. Auto-generated playlists
// never appear here. GET /api/v1/playlist
func (h *PlaylistHandler) List(w http.ResponseWriter, r *http.Request) {
	profile, ok := middleware.ProfileFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized access"}`, http.StatusUnauthorized)
		return
	}
	skip, limit := pagination(r)
	playlists, err := h.DB.PlaylistsByUser(r.Context(), profile.ID, skip, limit)
	if err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"playlists": playlistSummaries(playlists)})
}

// GetMusics returns an owned playlist's tracks with their owners.
// GET /api/v1/playlist/{playlistId}
func (h *PlaylistHandler) GetMusics(w http.ResponseWriter, r *http.Request) {
	profile, ok := middleware.ProfileFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized access"}`, http.StatusUnauthorized)
		return
	}
	playlistID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "playlistId"))
	if err != nil {
		http.Error(w, `{"error":"invalid playlistId"}`, http.StatusUnprocessableEntity)
		return
	}
	playlist, err := h.DB.PlaylistByIDAndUser(r.Context(), playlistID, profile.ID)
	if err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}
	if playlist == nil {
		http.Error(w, `{"error":"playlist not found"}`, http.StatusNotFound)
		return
	}
	tracks, err := h.DB.PlaylistTracks(r.Context(), playlistID, profile.ID)
	if err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"list": map[string]interface{}{
			"id":     playlist.ID,
			"title":  playlist.Title,
			"musics": tracks,
		},
	})
}
