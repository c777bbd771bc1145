package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/pipify/server/middleware"
	"github.com/pipify/server/models"
	"github.com/pipify/server/store"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeProfileStore struct {
	users     map[primitive.ObjectID]*models.User
	followers map[primitive.ObjectID]map[primitive.ObjectID]bool
	following map[primitive.ObjectID]map[primitive.ObjectID]bool
	uploads   []models.Music
	playlists []models.Playlist
	top       []store.TrackView
}

func newFakeProfileStore(users ...*models.User) *fakeProfileStore {
	s := &fakeProfileStore{
		users:     map[primitive.ObjectID]*models.User{},
		followers: map[primitive.ObjectID]map[primitive.ObjectID]bool{},
		following: map[primitive.ObjectID]map[primitive.ObjectID]bool{},
	}
	for _, u := range users {
		if u.ID.IsZero() {
			u.ID = primitive.NewObjectID()
		}
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeProfileStore) UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.users[id], nil
}

func (s *fakeProfileStore) IsFollower(ctx context.Context, target, actor primitive.ObjectID) (bool, error) {
	return s.followers[target][actor], nil
}

func (s *fakeProfileStore) AddFollower(ctx context.Context, target, actor primitive.ObjectID) error {
	if s.followers[target] == nil {
		s.followers[target] = map[primitive.ObjectID]bool{}
	}
	s.followers[target][actor] = true
	return nil
}

func (s *fakeProfileStore) RemoveFollower(ctx context.Context, target, actor primitive.ObjectID) error {
	delete(s.followers[target], actor)
	return nil
}

func (s *fakeProfileStore) AddFollowing(ctx context.Context, actor, target primitive.ObjectID) error {
	if s.following[actor] == nil {
		s.following[actor] = map[primitive.ObjectID]bool{}
	}
	s.following[actor][target] = true
	return nil
}

func (s *fakeProfileStore) RemoveFollowing(ctx context.Context, actor, target primitive.ObjectID) error {
	delete(s.following[actor], target)
	return nil
}

func (s *fakeProfileStore) UploadsByUser(ctx context.Context, userID primitive.ObjectID, skip, limit int64) ([]models.Music, error) {
	return s.uploads, nil
}

func (s *fakeProfileStore) PublicPlaylistsByUser(ctx context.Context, userID primitive.ObjectID, skip, limit int64) ([]models.Playlist, error) {
	return s.playlists, nil
}

func (s *fakeProfileStore) RecommendedTracks(ctx context.Context, limit int64) ([]store.TrackView, error) {
	return s.top, nil
}

func profileRequest(method, target, profileID string, profile *models.Profile) *http.Request {
	r := httptest.NewRequest(method, target, nil)
	ctx := r.Context()
	if profile != nil {
		ctx = middleware.WithProfile(ctx, *profile)
	}
	if profileID != "" {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("profileId", profileID)
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return r.WithContext(ctx)
}

func TestUpdateFollower_TargetNotFound(t *testing.T) {
	t.Parallel()

	h := &ProfileHandler{Store: newFakeProfileStore()}
	actor := models.Profile{ID: primitive.NewObjectID()}
	rec := httptest.NewRecorder()
	h.UpdateFollower(rec, profileRequest(http.MethodPost, "/", primitive.NewObjectID().Hex(), &actor))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateFollower_RoundTrip(t *testing.T) {
	t.Parallel()

	target := &models.User{Name: "bob", Email: "bob@example.com"}
	fake := newFakeProfileStore(target)
	h := &ProfileHandler{Store: fake}
	actor := models.Profile{ID: primitive.NewObjectID()}

	rec := httptest.NewRecorder()
	h.UpdateFollower(rec, profileRequest(http.MethodPost, "/", target.ID.Hex(), &actor))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"added"`)
	require.True(t, fake.followers[target.ID][actor.ID])
	require.True(t, fake.following[actor.ID][target.ID])

	rec = httptest.NewRecorder()
	h.UpdateFollower(rec, profileRequest(http.MethodPost, "/", target.ID.Hex(), &actor))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"removed"`)
	require.False(t, fake.followers[target.ID][actor.ID])
	require.False(t, fake.following[actor.ID][target.ID])
}

func TestGetPublicProfile(t *testing.T) {
	t.Parallel()

	follower := primitive.NewObjectID()
	user := &models.User{
		Name:      "bob",
		Email:     "bob@example.com",
		Followers: []primitive.ObjectID{follower},
		Avatar:    &models.FileRef{URL: "https://bucket.example.com/avatars/x.png"},
	}
	h := &ProfileHandler{Store: newFakeProfileStore(user)}

	rec := httptest.NewRecorder()
	h.GetPublicProfile(rec, profileRequest(http.MethodGet, "/", user.ID.Hex(), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"followers":1`)
	require.Contains(t, rec.Body.String(), `"name":"bob"`)
	// Public profiles never expose the email.
	require.NotContains(t, rec.Body.String(), "bob@example.com")
}

func TestGetPublicUploads_UnknownUser(t *testing.T) {
	t.Parallel()

	h := &ProfileHandler{Store: newFakeProfileStore()}
	rec := httptest.NewRecorder()
	h.GetPublicUploads(rec, profileRequest(http.MethodGet, "/", primitive.NewObjectID().Hex(), nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPagination(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/?skip=3&limit=5", nil)
	skip, limit := pagination(r)
	require.Equal(t, int64(3), skip)
	require.Equal(t, int64(5), limit)

	r = httptest.NewRequest(http.MethodGet, "/?skip=-1&limit=abc", nil)
	skip, limit = pagination(r)
	require.Equal(t, int64(0), skip)
	require.Equal(t, int64(10), limit)
}
