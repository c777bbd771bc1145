package handlers

import (
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/pipify/server/middleware"
	"github.com/pipify/server/models"
	"github.com/pipify/server/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type HistoryHandler struct {
	DB *store.DB
}

type recordHistoryRequest struct {
	Music    string    `json:"music"`
	Progress float64   `json:"progress"`
	Date     time.Time `json:"date"`
}

// Record stores a play event. A replay of the same track on the same
// calendar day updates the existing entry in place instead of appending.
// POST /api/v1/history
func (h *HistoryHandler) Record(w http.ResponseWriter, r *http.Request) {
	profile, ok := middleware.ProfileFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized access"}`, http.StatusUnauthorized)
		return
	}
	var req recordHistoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	musicID, err := primitive.ObjectIDFromHex(req.Music)
	if err != nil {
		http.Error(w, `{"error":"invalid music"}`, http.StatusUnprocessableEntity)
		return
	}
	if req.Date.IsZero() {
		req.Date = time.Now()
	}

	event := models.PlayEvent{
		MusicID:  musicID,
		Progress: req.Progress,
		Date:     req.Date,
	}
	if err := h.DB.RecordProgress(r.Context(), profile.ID, event); err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

// Remove deletes the whole history (?all=yes) or only the entries whose
// ids are listed in ?histories=["..."]. DELETE /api/v1/history
func (h *HistoryHandler) Remove(w http.ResponseWriter, r *http.Request) {
	profile, ok := middleware.ProfileFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized access"}`, http.StatusUnauthorized)
		return
	}

	if r.URL.Query().Get("all") == "yes" {
		if err := h.DB.RemoveAllHistory(r.Context(), profile.ID); err != nil {
			http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]bool{"success": true})
		return
	}

	var hexIDs []string
	if err := json.Unmarshal([]byte(r.URL.Query().Get("histories")), &hexIDs); err != nil {
		http.Error(w, `{"error":"invalid histories"}`, http.StatusUnprocessableEntity)
		return
	}
	ids := make([]primitive.ObjectID, 0, len(hexIDs))
	for _, s := range hexIDs {
		id, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			http.Error(w, `{"error":"invalid histories"}`, http.StatusUnprocessableEntity)
			return
		}
		ids = append(ids, id)
	}
	if err := h.DB.RemoveHistoryEntries(r.Context(), profile.ID, ids); err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

// List pages over the history and groups the page by calendar day,
// newest day first. GET /api/v1/history?skip=N&limit=M
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	profile, ok := middleware.ProfileFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized access"}`, http.StatusUnauthorized)
		return
	}
	skip, limit := pagination(r)
	days, err := h.DB.ListHistories(r.Context(), profile.ID, skip, limit)
	if err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"histories": days})
}

// RecentlyPlayed serves the ten most recent plays joined to track and
// owner data. GET /api/v1/history/recently-played
func (h *HistoryHandler) RecentlyPlayed(w http.ResponseWriter, r *http.Request) {
	profile, ok := middleware.ProfileFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized access"}`, http.StatusUnauthorized)
		return
	}
	tracks, err := h.DB.RecentlyPlayed(r.Context(), profile.ID)
	if err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"musics": tracks})
}
