package handlers

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/pipify/server/middleware"
	"github.com/pipify/server/models"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

type fakeUserStore struct {
	users map[primitive.ObjectID]*models.User
}

func newFakeUserStore(users ...*models.User) *fakeUserStore {
	s := &fakeUserStore{users: map[primitive.ObjectID]*models.User{}}
	for _, u := range users {
		if u.ID.IsZero() {
			u.ID = primitive.NewObjectID()
		}
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeUserStore) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (s *fakeUserStore) UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.users[id], nil
}

func (s *fakeUserStore) CreateUser(ctx context.Context, user *models.User) (primitive.ObjectID, error) {
	user.ID = primitive.NewObjectID()
	s.users[user.ID] = user
	return user.ID, nil
}

func (s *fakeUserStore) SetVerified(ctx context.Context, id primitive.ObjectID) error {
	s.users[id].Verified = true
	return nil
}

func (s *fakeUserStore) SetPassword(ctx context.Context, id primitive.ObjectID, hashed string) error {
	s.users[id].Password = hashed
	return nil
}

func (s *fakeUserStore) SetName(ctx context.Context, id primitive.ObjectID, name string) error {
	s.users[id].Name = name
	return nil
}

func (s *fakeUserStore) SetAvatar(ctx context.Context, id primitive.ObjectID, avatar *models.FileRef) error {
	s.users[id].Avatar = avatar
	return nil
}

func (s *fakeUserStore) PushToken(ctx context.Context, id primitive.ObjectID, token string) error {
	u := s.users[id]
	u.Tokens = append(u.Tokens, token)
	return nil
}

func (s *fakeUserStore) RemoveToken(ctx context.Context, id primitive.ObjectID, token string) error {
	u := s.users[id]
	kept := u.Tokens[:0]
	for _, t := range u.Tokens {
		if t != token {
			kept = append(kept, t)
		}
	}
	u.Tokens = kept
	return nil
}

func (s *fakeUserStore) ClearTokens(ctx context.Context, id primitive.ObjectID) error {
	s.users[id].Tokens = []string{}
	return nil
}

// fakeTokens stores raw values instead of hashes; Compare is plain equality.
type fakeTokens struct {
	byUser map[primitive.ObjectID]string
	issued int
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{byUser: map[primitive.ObjectID]string{}}
}

func (f *fakeTokens) Issue(ctx context.Context, userID primitive.ObjectID, raw string) error {
	f.byUser[userID] = raw
	f.issued++
	return nil
}

func (f *fakeTokens) Compare(ctx context.Context, userID primitive.ObjectID, raw string) (bool, error) {
	stored, ok := f.byUser[userID]
	return ok && raw != "" && stored == raw, nil
}

func (f *fakeTokens) Delete(ctx context.Context, userID primitive.ObjectID) error {
	delete(f.byUser, userID)
	return nil
}

type fakeMail struct {
	verifications []string
	resetLinks    []string
	resetSuccess  []string
}

func (m *fakeMail) SendVerification(name, email, otp string) {
	m.verifications = append(m.verifications, email+":"+otp)
}

func (m *fakeMail) SendResetLink(email, link string) {
	m.resetLinks = append(m.resetLinks, link)
}

func (m *fakeMail) SendResetSuccess(name, email, signInURL string) {
	m.resetSuccess = append(m.resetSuccess, email)
}

type fakeUploader struct {
	uploads []string
	deletes []string
}

func (u *fakeUploader) Upload(ctx context.Context, prefix, originalFilename string, body io.Reader, contentType string) (models.FileRef, error) {
	key := prefix + originalFilename
	u.uploads = append(u.uploads, key)
	return models.FileRef{URL: "https://bucket.example.com/" + key, Key: key}, nil
}

func (u *fakeUploader) Delete(ctx context.Context, key string) error {
	u.deletes = append(u.deletes, key)
	return nil
}

type authFixture struct {
	handler *AuthHandler
	store   *fakeUserStore
	verify  *fakeTokens
	reset   *fakeTokens
	mail    *fakeMail
}

func newAuthFixture(users ...*models.User) *authFixture {
	store := newFakeUserStore(users...)
	verify := newFakeTokens()
	reset := newFakeTokens()
	mail := &fakeMail{}
	return &authFixture{
		handler: &AuthHandler{
			Store:              store,
			VerificationTokens: verify,
			ResetTokens:        reset,
			Mail:               mail,
			Storage:            &fakeUploader{},
			JWTSecret:          "test-secret",
			PasswordResetLink:  "https://pipify.example.com/reset-password",
			SignInURL:          "https://pipify.example.com/sign-in",
			GenerateOTP:        func(length int) string { return "123456" },
			GenerateResetToken: func() (string, error) { return "reset-token-raw", nil },
		},
		store:  store,
		verify: verify,
		reset:  reset,
		mail:   mail,
	}
}

func hashPassword(t *testing.T, plain string) string {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hashed)
}

func postJSON(t *testing.T, body interface{}) *http.Request {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	return httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(buf))
}

func TestSignUp_Validation(t *testing.T) {
	t.Parallel()

	f := newAuthFixture()
	rec := httptest.NewRecorder()
	f.handler.SignUp(rec, postJSON(t, SignUpRequest{Name: "ada", Email: "ada@example.com", Password: "short"}))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(&models.User{Name: "ada", Email: "ada@example.com"})
	rec := httptest.NewRecorder()
	f.handler.SignUp(rec, postJSON(t, SignUpRequest{Name: "ada", Email: "Ada@Example.com", Password: "password123"}))
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestSignUp_Success(t *testing.T) {
	t.Parallel()

	f := newAuthFixture()
	rec := httptest.NewRecorder()
	f.handler.SignUp(rec, postJSON(t, SignUpRequest{Name: "ada", Email: "ada@example.com", Password: "password123"}))
	require.Equal(t, http.StatusCreated, rec.Code)

	user, err := f.store.UserByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	require.NotNil(t, user)
	require.False(t, user.Verified)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("password123")))

	require.Equal(t, 1, f.verify.issued)
	require.Equal(t, []string{"ada@example.com:123456"}, f.mail.verifications)
}

func TestVerifyEmail(t *testing.T) {
	t.Parallel()

	user := &models.User{Name: "ada", Email: "ada@example.com"}
	f := newAuthFixture(user)
	require.NoError(t, f.verify.Issue(context.Background(), user.ID, "123456"))

	rec := httptest.NewRecorder()
	f.handler.VerifyEmail(rec, postJSON(t, VerifyEmailRequest{UserID: "not-an-id", Token: "123456"}))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	f.handler.VerifyEmail(rec, postJSON(t, VerifyEmailRequest{UserID: user.ID.Hex(), Token: "999999"}))
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.False(t, user.Verified)

	rec = httptest.NewRecorder()
	f.handler.VerifyEmail(rec, postJSON(t, VerifyEmailRequest{UserID: user.ID.Hex(), Token: "123456"}))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, user.Verified)

	// Token is consumed; a replay fails.
	rec = httptest.NewRecorder()
	f.handler.VerifyEmail(rec, postJSON(t, VerifyEmailRequest{UserID: user.ID.Hex(), Token: "123456"}))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestReVerifyEmail_AlreadyVerified(t *testing.T) {
	t.Parallel()

	user := &models.User{Name: "ada", Email: "ada@example.com", Verified: true}
	f := newAuthFixture(user)
	rec := httptest.NewRecorder()
	f.handler.ReVerifyEmail(rec, postJSON(t, ReVerifyEmailRequest{UserID: user.ID.Hex()}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReVerifyEmail_SupersedesToken(t *testing.T) {
	t.Parallel()

	user := &models.User{Name: "ada", Email: "ada@example.com"}
	f := newAuthFixture(user)
	require.NoError(t, f.verify.Issue(context.Background(), user.ID, "old-otp"))

	rec := httptest.NewRecorder()
	f.handler.ReVerifyEmail(rec, postJSON(t, ReVerifyEmailRequest{UserID: user.ID.Hex()}))
	require.Equal(t, http.StatusOK, rec.Code)

	ok, err := f.verify.Compare(context.Background(), user.ID, "old-otp")
	require.NoError(t, err)
	require.False(t, ok)
	ok, err = f.verify.Compare(context.Background(), user.ID, "123456")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestSignIn_SameRejectionForAllFailures(t *testing.T) {
	t.Parallel()

	verified := &models.User{Name: "ada", Email: "ada@example.com", Verified: true}
	unverified := &models.User{Name: "bob", Email: "bob@example.com"}
	f := newAuthFixture(verified, unverified)
	verified.Password = hashPassword(t, "password123")
	unverified.Password = hashPassword(t, "password123")

	cases := []SignInRequest{
		{Email: "ghost@example.com", Password: "password123"},
		{Email: "bob@example.com", Password: "password123"},
		{Email: "ada@example.com", Password: "wrong-password"},
	}
	for _, req := range cases {
		rec := httptest.NewRecorder()
		f.handler.SignIn(rec, postJSON(t, req))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Body.String(), "invalid email or password")
	}
}

func TestSignIn_Success(t *testing.T) {
	t.Parallel()

	user := &models.User{Name: "ada", Email: "ada@example.com", Verified: true}
	f := newAuthFixture(user)
	user.Password = hashPassword(t, "password123")

	rec := httptest.NewRecorder()
	f.handler.SignIn(rec, postJSON(t, SignInRequest{Email: "ada@example.com", Password: "password123"}))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Profile models.Profile `json:"profile"`
		Token   string         `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, user.ID, resp.Profile.ID)
	require.NotEmpty(t, resp.Token)
	// The issued token is appended to the per-device list.
	require.Equal(t, []string{resp.Token}, user.Tokens)
}

func TestSignOut(t *testing.T) {
	t.Parallel()

	user := &models.User{Name: "ada", Email: "ada@example.com", Verified: true, Tokens: []string{"tok-a", "tok-b"}}
	f := newAuthFixture(user)

	signOut := func(query, token string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/"+query, nil)
		ctx := middleware.WithProfile(r.Context(), user.Profile())
		ctx = middleware.WithToken(ctx, token)
		rec := httptest.NewRecorder()
		f.handler.SignOut(rec, r.WithContext(ctx))
		return rec
	}

	rec := signOut("", "tok-a")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{"tok-b"}, user.Tokens)

	rec = signOut("?logOutAll=true", "tok-b")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, user.Tokens)
}

func TestForgetPassword(t *testing.T) {
	t.Parallel()

	user := &models.User{Name: "ada", Email: "ada@example.com", Verified: true}
	f := newAuthFixture(user)

	rec := httptest.NewRecorder()
	f.handler.ForgetPassword(rec, postJSON(t, ForgetPasswordRequest{Email: "ghost@example.com"}))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	f.handler.ForgetPassword(rec, postJSON(t, ForgetPasswordRequest{Email: "ada@example.com"}))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, f.mail.resetLinks, 1)
	require.Contains(t, f.mail.resetLinks[0], "token=reset-token-raw")
	require.Contains(t, f.mail.resetLinks[0], "userId="+user.ID.Hex())

	ok, err := f.reset.Compare(context.Background(), user.ID, "reset-token-raw")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerifyResetToken(t *testing.T) {
	t.Parallel()

	user := &models.User{Name: "ada", Email: "ada@example.com", Verified: true}
	f := newAuthFixture(user)
	require.NoError(t, f.reset.Issue(context.Background(), user.ID, "reset-token-raw"))

	rec := httptest.NewRecorder()
	f.handler.VerifyResetToken(rec, postJSON(t, ResetTokenRequest{UserID: user.ID.Hex(), Token: "wrong"}))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	f.handler.VerifyResetToken(rec, postJSON(t, ResetTokenRequest{UserID: user.ID.Hex(), Token: "reset-token-raw"}))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"valid":true`)
}

func TestUpdatePassword(t *testing.T) {
	t.Parallel()

	user := &models.User{Name: "ada", Email: "ada@example.com", Verified: true, Tokens: []string{"session"}}
	f := newAuthFixture(user)
	user.Password = hashPassword(t, "old-password")
	require.NoError(t, f.reset.Issue(context.Background(), user.ID, "reset-token-raw"))

	// New password equal to the current one is rejected.
	rec := httptest.NewRecorder()
	f.handler.UpdatePassword(rec, postJSON(t, ResetTokenRequest{UserID: user.ID.Hex(), Token: "reset-token-raw", Password: "old-password"}))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = httptest.NewRecorder()
	f.handler.UpdatePassword(rec, postJSON(t, ResetTokenRequest{UserID: user.ID.Hex(), Token: "reset-token-raw", Password: "new-password"}))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("new-password")))
	require.Equal(t, []string{user.Email}, f.mail.resetSuccess)
	// Existing sessions survive a password reset.
	require.Equal(t, []string{"session"}, user.Tokens)

	// The reset token is consumed.
	rec = httptest.NewRecorder()
	f.handler.UpdatePassword(rec, postJSON(t, ResetTokenRequest{UserID: user.ID.Hex(), Token: "reset-token-raw", Password: "another"}))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUpdatePassword_EmptyPasswordAccount(t *testing.T) {
	t.Parallel()

	// Externally provisioned accounts have no password; any new one is
	// accepted without the differ-from-previous check.
	user := &models.User{Name: "ada", Email: "ada@example.com", Verified: true}
	f := newAuthFixture(user)
	require.NoError(t, f.reset.Issue(context.Background(), user.ID, "reset-token-raw"))

	rec := httptest.NewRecorder()
	f.handler.UpdatePassword(rec, postJSON(t, ResetTokenRequest{UserID: user.ID.Hex(), Token: "reset-token-raw", Password: "first-password"}))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("first-password")))
}
