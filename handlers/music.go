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

type MusicHandler struct {
	DB       *store.DB
	Storage  Uploader
	MaxBytes int64
}

// Upload stores a new track: the audio file goes to object storage, the
// optional thumbnail too, and the document is saved with the owner.
// Category defaults to "Others". POST /api/v1/music/upload
func (h *MusicHandler) Upload(w http.ResponseWriter, r *http.Request) {
	profile, ok := middleware.ProfileFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized access"}`, http.StatusUnauthorized)
		return
	}
	if h.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes)
	}
	if err := r.ParseMultipartForm(h.MaxBytes); err != nil {
		http.Error(w, `{"error":"invalid form"}`, http.StatusBadRequest)
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	about := strings.TrimSpace(r.FormValue("about"))
	category := r.FormValue("category")
	if title == "" || about == "" {
		http.Error(w, `{"error":"title and about are required"}`, http.StatusUnprocessableEntity)
		return
	}
	if category == "" {
		category = models.DefaultCategory
	}
	if !models.ValidCategory(category) {
		http.Error(w, `{"error":"invalid category"}`, http.StatusUnprocessableEntity)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, `{"error":"music file is missing"}`, http.StatusBadRequest)
		return
	}
	defer file.Close()

	fileRef, err := h.Storage.Upload(r.Context(), "musics/", header.Filename, file, header.Header.Get("Content-Type"))
	if err != nil {
		http.Error(w, `{"error":"failed to upload to storage"}`, http.StatusInternalServerError)
		return
	}

	music := &models.Music{
		Title:    title,
		About:    about,
		UserID:   profile.ID,
		File:     fileRef,
		Category: category,
	}

	if thumb, thumbHeader, err := r.FormFile("thumbnail"); err == nil {
		defer thumb.Close()
		thumbRef, err := h.Storage.Upload(r.Context(), "thumbnails/", thumbHeader.Filename, thumb, thumbHeader.Header.Get("Content-Type"))
		if err != nil {
			http.Error(w, `{"error":"failed to upload thumbnail"}`, http.StatusInternalServerError)
			return
		}
		music.Thumbnail = &thumbRef
	}

	id, err := h.DB.InsertMusic(r.Context(), music)
	if err != nil {
		http.Error(w, `{"error":"failed to save music"}`, http.StatusInternalServerError)
		return
	}
	music.ID = id

	poster := ""
	if music.Thumbnail != nil {
		poster = music.Thumbnail.URL
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"music": map[string]interface{}{
			"id":     id,
			"title":  music.Title,
			"about":  music.About,
			"file":   music.File.URL,
			"poster": poster,
		},
	})
}

// Update edits a track's metadata and optionally replaces its thumbnail.
// Only the owner can update; the old thumbnail object is destroyed before
// the new one is stored. PATCH /api/v1/music/{musicId}
func (h *MusicHandler) Update(w http.ResponseWriter, r *http.Request) {
	profile, ok := middleware.ProfileFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized access"}`, http.StatusUnauthorized)
		return
	}
	musicID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "musicId"))
	if err != nil {
		http.Error(w, `{"error":"invalid musicId"}`, http.StatusUnprocessableEntity)
		return
	}
	if h.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes)
	}
	if err := r.ParseMultipartForm(h.MaxBytes); err != nil {
		http.Error(w, `{"error":"invalid form"}`, http.StatusBadRequest)
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	about := strings.TrimSpace(r.FormValue("about"))
	category := r.FormValue("category")
	if title == "" || about == "" {
		http.Error(w, `{"error":"title and about are required"}`, http.StatusUnprocessableEntity)
		return
	}
	if category == "" {
		category = models.DefaultCategory
	}
	if !models.ValidCategory(category) {
		http.Error(w, `{"error":"invalid category"}`, http.StatusUnprocessableEntity)
		return
	}

	music, err := h.DB.UpdateMusicMeta(r.Context(), musicID, profile.ID, title, about, category)
	if err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}
	if music == nil {
		http.Error(w, `{"error":"music not found"}`, http.StatusNotFound)
		return
	}

	if thumb, thumbHeader, err := r.FormFile("thumbnail"); err == nil {
		defer thumb.Close()
		if music.Thumbnail != nil && music.Thumbnail.Key != "" {
			if err := h.Storage.Delete(r.Context(), music.Thumbnail.Key); err != nil {
				http.Error(w, `{"error":"failed to replace thumbnail"}`, http.StatusInternalServerError)
				return
			}
		}
		thumbRef, err := h.Storage.Upload(r.Context(), "thumbnails/", thumbHeader.Filename, thumb, thumbHeader.Header.Get("Content-Type"))
		if err != nil {
			http.Error(w, `{"error":"failed to upload thumbnail"}`, http.StatusInternalServerError)
			return
		}
		if err := h.DB.SetMusicThumbnail(r.Context(), musicID, &thumbRef); err != nil {
			http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
			return
		}
		music.Thumbnail = &thumbRef
	}

	poster := ""
	if music.Thumbnail != nil {
		poster = music.Thumbnail.URL
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"music": map[string]interface{}{
			"id":     music.ID,
			"title":  music.Title,
			"about":  music.About,
			"file":   music.File.URL,
			"poster": poster,
		},
	})
}

// Latest serves the ten newest uploads with their owners, public.
// GET /api/v1/music/latest
func (h *MusicHandler) Latest(w http.ResponseWriter, r *http.Request) {
	musics, err := h.DB.LatestUploads(r.Context(), 10)
	if err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"musics": musics})
}
