package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pipify/server/middleware"
	"github.com/pipify/server/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

const (
	otpLength       = 6
	sessionTokenTTL = 30 * 24 * time.Hour
)

// AuthStore is the user persistence the auth flows need.
type AuthStore interface {
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) (primitive.ObjectID, error)
	SetVerified(ctx context.Context, id primitive.ObjectID) error
	SetPassword(ctx context.Context, id primitive.ObjectID, hashed string) error
	SetName(ctx context.Context, id primitive.ObjectID, name string) error
	SetAvatar(ctx context.Context, id primitive.ObjectID, avatar *models.FileRef) error
	PushToken(ctx context.Context, id primitive.ObjectID, token string) error
	RemoveToken(ctx context.Context, id primitive.ObjectID, token string) error
	ClearTokens(ctx context.Context, id primitive.ObjectID) error
}

// OneTimeTokens is the single-use token contract (verification and reset
// stores share it). Compare never consumes: callers delete after a
// successful use, and delete before issuing a replacement.
type OneTimeTokens interface {
	Issue(ctx context.Context, userID primitive.ObjectID, raw string) error
	Compare(ctx context.Context, userID primitive.ObjectID, raw string) (bool, error)
	Delete(ctx context.Context, userID primitive.ObjectID) error
}

// MailSender sends the auth-flow emails. Implementations are
// fire-and-forget.
type MailSender interface {
	SendVerification(name, email, otp string)
	SendResetLink(email, link string)
	SendResetSuccess(name, email, signInURL string)
}

// Uploader is the external object-storage contract: upload returns a
// public URL plus the key needed to destroy the object later.
type Uploader interface {
	Upload(ctx context.Context, prefix, originalFilename string, body io.Reader, contentType string) (models.FileRef, error)
	Delete(ctx context.Context, key string) error
}

// OTPGenerator produces the numeric verification code. Swappable in tests.
type OTPGenerator func(length int) string

type AuthHandler struct {
	Store              AuthStore
	VerificationTokens OneTimeTokens
	ResetTokens        OneTimeTokens
	Mail               MailSender
	Storage            Uploader
	JWTSecret          string
	PasswordResetLink  string
	SignInURL          string
	GenerateOTP        OTPGenerator
	GenerateResetToken func() (string, error)
	MaxBytes           int64
}

type SignUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUp creates an account, issues a hashed verification OTP and mails
// it. POST /api/v1/auth/signup
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if len(strings.TrimSpace(req.Name)) < 3 || req.Email == "" || len(req.Password) < 8 {
		http.Error(w, `{"error":"name, email and password (min 8 chars) are required"}`, http.StatusUnprocessableEntity)
		return
	}

	existing, err := h.Store.UserByEmail(r.Context(), req.Email)
	if err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}
	if existing != nil {
		http.Error(w, `{"error":"email already exists"}`, http.StatusConflict)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}
	id, err := h.Store.CreateUser(r.Context(), &models.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    req.Email,
		Password: string(hashed),
	})
	if err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}

	otp := h.GenerateOTP(otpLength)
	if err := h.VerificationTokens.Issue(r.Context(), id, otp); err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}
	h.Mail.SendVerification(req.Name, req.Email, otp)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"user": map[string]interface{}{"id": id, "name": strings.TrimSpace(req.Name), "email": req.Email},
	})
}

type VerifyEmailRequest struct {
	UserID string `json:"userId"`
	Token  string `json:"token"`
}

// VerifyEmail consumes the verification OTP: compare first, then delete
// on success. POST /api/v1/auth/verify-email
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req VerifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	userID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		http.Error(w, `{"error":"invalid userId format"}`, http.StatusBadRequest)
		return
	}
	matched, err := h.VerificationTokens.Compare(r.Context(), userID, req.Token)
	if err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}
	if !matched {
		http.Error(w, `{"error":"invalid token"}`, http.StatusForbidden)
		return
	}
	if err := h.Store.SetVerified(r.Context(), userID); err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}
	if err := h.VerificationTokens.Delete(r.Context(), userID); err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}
	writeMessage(w, http.StatusOK, "email verified successfully")
}

type ReVerifyEmailRequest struct {
	UserID string `json:"userId"`
}

// ReVerifyEmail supersedes any pending OTP with a fresh one and resends
// the mail. POST /api/v1/auth/re-verify-email
func (h *AuthHandler) ReVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req ReVerifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	userID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		http.Error(w, `{"error":"invalid userId format"}`, http.StatusBadRequest)
		return
	}
	user, err := h.Store.UserByID(r.Context(), userID)
	if err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}
	if user == nil {
		http.Error(w, `{"error":"user not found"}`, http.StatusNotFound)
		return
	}
	if user.Verified {
		http.Error(w, `{"error":"email already verified"}`, http.StatusBadRequest)
		return
	}

	// Delete-then-issue keeps at most one active token per user.
	if err := h.VerificationTokens.Delete(r.Context(), userID); err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}
	otp := h.GenerateOTP(otpLength)
	if err := h.VerificationTokens.Issue(r.Context(), userID, otp); err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}
	h.Mail.SendVerification(user.Name, user.Email, otp)
	writeMessage(w, http.StatusOK, "verification email sent again")
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignIn authenticates credentials and issues a 30-day session token,
// appended to the user's per-device token list. Absent user, unverified
// account and wrong password all produce the same 401.
// POST /api/v1/auth/sign-in
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	user, err := h.Store.UserByEmail(r.Context(), req.Email)
	if err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}
	if user == nil || !user.Verified ||
		bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		http.Error(w, `{"error":"invalid email or password"}`, http.StatusUnauthorized)
		return
	}

	token, err := h.createSessionToken(user.ID)
	if err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}
	if err := h.Store.PushToken(r.Context(), user.ID, token); err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"profile": user.Profile(),
		"token":   token,
		"message": "login successful",
	})
}

func (h *AuthHandler) createSessionToken(userID primitive.ObjectID) (string, error) {
	claims := &middleware.Claims{
		UserID: userID.Hex(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(sessionTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.JWTSecret))
}

type ForgetPasswordRequest struct {
	Email string `json:"email"`
}

// ForgetPassword supersedes any pending reset token and mails a reset
// link. POST /api/v1/auth/forget-password
func (h *AuthHandler) ForgetPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	user, err := h.Store.UserByEmail(r.Context(), req.Email)
	if err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}
	if user == nil {
		http.Error(w, `{"error":"user not found"}`, http.StatusNotFound)
		return
	}

	if err := h.ResetTokens.Delete(r.Context(), user.ID); err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}
	raw, err := h.GenerateResetToken()
	if err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}
	if err := h.ResetTokens.Issue(r.Context(), user.ID, raw); err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}

	link := fmt.Sprintf("%s?token=%s&userId=%s", h.PasswordResetLink, raw, user.ID.Hex())
	h.Mail.SendResetLink(user.Email, link)
	writeMessage(w, http.StatusOK, "password reset email sent")
}

type ResetTokenRequest struct {
	UserID   string `json:"userId"`
	Token    string `json:"token"`
	Password string `json:"password,omitempty"`
}

// checkResetToken validates the (userId, token) pair shared by the reset
// endpoints. Writes the response on failure and returns the zero id.
func (h *AuthHandler) checkResetToken(w http.ResponseWriter, r *http.Request, req ResetTokenRequest) (primitive.ObjectID, bool) {
	if req.UserID == "" || req.Token == "" {
		http.Error(w, `{"error":"userId and token are required"}`, http.StatusBadRequest)
		return primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		http.Error(w, `{"error":"invalid userId format"}`, http.StatusBadRequest)
		return primitive.NilObjectID, false
	}
	valid, err := h.ResetTokens.Compare(r.Context(), userID, req.Token)
	if err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return primitive.NilObjectID, false
	}
	if !valid {
		http.Error(w, `{"error":"invalid token"}`, http.StatusForbidden)
		return primitive.NilObjectID, false
	}
	return userID, true
}

// VerifyResetToken confirms a reset token is still valid, for the reset
// form to gate on. POST /api/v1/auth/verify-password-reset-token
func (h *AuthHandler) VerifyResetToken(w http.ResponseWriter, r *http.Request) {
	var req ResetTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if _, ok := h.checkResetToken(w, r, req); !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"valid": true})
}

// UpdatePassword sets a new password after validating the reset token.
// An account without a password accepts any new one; otherwise the new
// password must differ from the current. Existing sessions stay valid.
// POST /api/v1/auth/update-password
func (h *AuthHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req ResetTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if req.Password == "" {
		http.Error(w, `{"error":"password and userId are required"}`, http.StatusBadRequest)
		return
	}
	userID, ok := h.checkResetToken(w, r, req)
	if !ok {
		return
	}

	user, err := h.Store.UserByID(r.Context(), userID)
	if err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}
	if user == nil {
		http.Error(w, `{"error":"unauthorized access"}`, http.StatusForbidden)
		return
	}

	if user.Password != "" {
		if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) == nil {
			http.Error(w, `{"error":"password must be different than previous password"}`, http.StatusUnprocessableEntity)
			return
		}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}
	if err := h.Store.SetPassword(r.Context(), userID, string(hashed)); err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}
	if err := h.ResetTokens.Delete(r.Context(), userID); err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}
	h.Mail.SendResetSuccess(user.Name, user.Email, h.SignInURL)
	writeMessage(w, http.StatusOK, "password updated successfully")
}

// Profile echoes the authenticated profile resolved by the middleware.
// GET /api/v1/auth/profile
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	profile, ok := middleware.ProfileFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized access"}`, http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"profile": profile})
}

// UpdateProfile renames the user and optionally replaces their avatar.
// The old avatar object is destroyed before the new one is uploaded.
// POST /api/v1/auth/update-profile
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
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
	name := strings.TrimSpace(r.FormValue("name"))
	if len(name) < 3 {
		http.Error(w, `{"error":"invalid name"}`, http.StatusUnprocessableEntity)
		return
	}

	user, err := h.Store.UserByID(r.Context(), profile.ID)
	if err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}
	if user == nil {
		// Auth middleware resolved this user moments ago; absence here is an
		// invariant violation, not a client error.
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}

	if err := h.Store.SetName(r.Context(), profile.ID, name); err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}
	user.Name = name

	if file, header, err := r.FormFile("avatar"); err == nil {
		defer file.Close()
		if user.Avatar != nil && user.Avatar.Key != "" {
			if err := h.Storage.Delete(r.Context(), user.Avatar.Key); err != nil {
				http.Error(w, `{"error":"failed to replace avatar"}`, http.StatusInternalServerError)
				return
			}
		}
		ref, err := h.Storage.Upload(r.Context(), "avatars/", header.Filename, file, header.Header.Get("Content-Type"))
		if err != nil {
			http.Error(w, `{"error":"failed to upload avatar"}`, http.StatusInternalServerError)
			return
		}
		if err := h.Store.SetAvatar(r.Context(), profile.ID, &ref); err != nil {
			http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
			return
		}
		user.Avatar = &ref
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"profile": user.Profile()})
}

// SignOut removes the presented session token, or the whole token list
// when ?logOutAll=true. POST /api/v1/auth/sign-out
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	profile, ok := middleware.ProfileFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized access"}`, http.StatusUnauthorized)
		return
	}
	token, ok := middleware.TokenFromContext(r.Context())
	if !ok {
		// The middleware attaches both values together; a missing token here
		// is an invariant violation.
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}

	user, err := h.Store.UserByID(r.Context(), profile.ID)
	if err != nil || user == nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}

	if r.URL.Query().Get("logOutAll") == "true" {
		err = h.Store.ClearTokens(r.Context(), profile.ID)
	} else {
		err = h.Store.RemoveToken(r.Context(), profile.ID, token)
	}
	if err != nil {
		http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
		return
	}
	writeMessage(w, http.StatusOK, "logged out successfully")
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": msg})
}
