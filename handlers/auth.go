package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/robertfedus/natours/apperror"
	"github.com/robertfedus/natours/middleware"
	"github.com/robertfedus/natours/models"
	"github.com/robertfedus/natours/service"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserStore is the storage surface the account handlers need; *store.DB
// implements it.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	SaveResetToken(ctx context.Context, id primitive.ObjectID, tokenHash string, expires time.Time) error
	ClearResetToken(ctx context.Context, id primitive.ObjectID) error
	UserByResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error)
	UpdatePassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error
}

type AuthHandler struct {
	Store     UserStore
	Mailer    *service.Mailer
	JWTSecret string
	TokenTTL  time.Duration
}

type SignupRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Photo           string `json:"photo"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperror.Validation("", "Invalid JSON payload"))
		return
	}
	user := &models.User{
		Name:  req.Name,
		Email: req.Email,
		Photo: req.Photo,
		Role:  models.RoleUser, // roles are never taken from signup input
	}
	if err := user.ValidateNew(); err != nil {
		respondError(w, err)
		return
	}
	if err := user.SetPassword(req.Password, req.PasswordConfirm); err != nil {
		respondError(w, err)
		return
	}
	created, err := h.Store.CreateUser(r.Context(), user)
	if err != nil {
		respondError(w, err)
		return
	}
	token, err := h.createToken(created)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Envelope{
		Status: statusSuccess,
		Data:   map[string]interface{}{"token": token, "user": created},
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperror.Validation("", "Invalid JSON payload"))
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		respondError(w, apperror.Validation("", "Please provide email and password"))
		return
	}
	user, err := h.Store.UserByEmail(r.Context(), req.Email)
	if err != nil {
		respondError(w, err)
		return
	}
	if user == nil || !user.CorrectPassword(req.Password) {
		respondFail(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	token, err := h.createToken(user)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{"token": token, "user": user})
}

// ForgotPassword issues a reset token and mails it out. The plaintext token
// leaves the process exactly once, inside that mail.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperror.Validation("", "Invalid JSON payload"))
		return
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))
	user, err := h.Store.UserByEmail(r.Context(), email)
	if err != nil {
		respondError(w, err)
		return
	}
	if user == nil {
		respondError(w, apperror.NotFound("There is no user with that email address"))
		return
	}
	token, err := user.NewPasswordResetToken()
	if err != nil {
		respondError(w, err)
		return
	}
	if err := h.Store.SaveResetToken(r.Context(), user.ID, user.PasswordResetToken, *user.PasswordResetExpires); err != nil {
		respondError(w, err)
		return
	}

	resetURL := requestScheme(r) + "://" + r.Host + "/api/v1/users/reset-password/" + token
	if err := h.Mailer.SendPasswordReset(user.Email, user.Name, resetURL); err != nil {
		// token is useless if it never reached the user; revoke it
		_ = h.Store.ClearResetToken(r.Context(), user.ID)
		respondError(w, apperror.Operation("send reset mail", err))
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{"message": "Token sent to email"})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password        string `json:"password"`
		PasswordConfirm string `json:"passwordConfirm"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperror.Validation("", "Invalid JSON payload"))
		return
	}
	tokenHash := models.HashResetToken(chi.URLParam(r, "token"))
	user, err := h.Store.UserByResetToken(r.Context(), tokenHash, time.Now())
	if err != nil {
		respondError(w, err)
		return
	}
	if user == nil {
		respondError(w, apperror.Validation("token", "Token is invalid or has expired"))
		return
	}
	if err := user.SetPassword(req.Password, req.PasswordConfirm); err != nil {
		respondError(w, err)
		return
	}
	if err := h.Store.UpdatePassword(r.Context(), user.ID, user.Password); err != nil {
		respondError(w, err)
		return
	}
	token, err := h.createToken(user)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{"token": token})
}

func (h *AuthHandler) createToken(user *models.User) (string, error) {
	claims := &middleware.Claims{
		UserID: user.ID.Hex(),
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(h.TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(h.JWTSecret))
	if err != nil {
		return "", apperror.Operation("sign token", err)
	}
	return signed, nil
}

func requestScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	return "http"
}
