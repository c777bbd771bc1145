package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/pipify/server/middleware"
	"github.com/pipify/server/models"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func musicForm(t *testing.T, target, musicID string, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	r := httptest.NewRequest(http.MethodPatch, target, &buf)
	r.Header.Set("Content-Type", w.FormDataContentType())
	ctx := middleware.WithProfile(r.Context(), models.Profile{ID: primitive.NewObjectID(), Verified: true})
	if musicID != "" {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("musicId", musicID)
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return r.WithContext(ctx)
}

func TestMusicUpdate_RequiresTitleAndAbout(t *testing.T) {
	t.Parallel()

	h := &MusicHandler{}
	id := primitive.NewObjectID().Hex()

	// An omitted field must not blank out the stored value.
	rec := httptest.NewRecorder()
	h.Update(rec, musicForm(t, "/", id, map[string]string{"about": "a song"}))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = httptest.NewRecorder()
	h.Update(rec, musicForm(t, "/", id, map[string]string{"title": "song", "about": "  "}))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestMusicUpdate_InvalidCategory(t *testing.T) {
	t.Parallel()

	h := &MusicHandler{}
	rec := httptest.NewRecorder()
	h.Update(rec, musicForm(t, "/", primitive.NewObjectID().Hex(), map[string]string{
		"title":    "song",
		"about":    "a song",
		"category": "Polka",
	}))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestMusicUpload_RequiresTitleAndAbout(t *testing.T) {
	t.Parallel()

	h := &MusicHandler{}
	r := musicForm(t, "/", "", map[string]string{"about": "a song"})
	r.Method = http.MethodPost
	rec := httptest.NewRecorder()
	h.Upload(rec, r)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
