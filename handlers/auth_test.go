package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/robertfedus/natours/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeUserStore struct {
	usersByEmail map[string]*models.User
	created      *models.User
	savedToken   string
	cleared      bool
	resetUser    *models.User
	updatedHash  string
}

func (f *fakeUserStore) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	user.ID = primitive.NewObjectID()
	f.created = user
	return user, nil
}

func (f *fakeUserStore) UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	if f.created != nil && f.created.ID == id {
		return f.created, nil
	}
	return nil, nil
}

func (f *fakeUserStore) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	return f.usersByEmail[email], nil
}

func (f *fakeUserStore) ListUsers(ctx context.Context) ([]models.User, error) {
	return nil, nil
}

func (f *fakeUserStore) SaveResetToken(ctx context.Context, id primitive.ObjectID, tokenHash string, expires time.Time) error {
	f.savedToken = tokenHash
	return nil
}

func (f *fakeUserStore) ClearResetToken(ctx context.Context, id primitive.ObjectID) error {
	f.cleared = true
	return nil
}

func (f *fakeUserStore) UserByResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	if f.resetUser != nil && f.resetUser.PasswordResetToken == tokenHash {
		return f.resetUser, nil
	}
	return nil, nil
}

func (f *fakeUserStore) UpdatePassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error {
	f.updatedHash = passwordHash
	return nil
}

func newAuthRouter(f *fakeUserStore) http.Handler {
	h := &AuthHandler{Store: f, JWTSecret: "test-secret", TokenTTL: time.Hour}
	r := chi.NewRouter()
	r.Post("/users/signup", h.Signup)
	r.Post("/users/login", h.Login)
	r.Post("/users/forgot-password", h.ForgotPassword)
	r.Patch("/users/reset-password/{token}", h.ResetPassword)
	return r
}

func TestSignup(t *testing.T) {
	f := &fakeUserStore{}
	body, _ := json.Marshal(map[string]string{
		"name":            "Jonas Schmedtmann",
		"email":           "Jonas@Example.com",
		"password":        "pass1234",
		"passwordConfirm": "pass1234",
	})
	req := httptest.NewRequest(http.MethodPost, "/users/signup", bytes.NewReader(body))
	rec, env := doJSON(t, newAuthRouter(f), req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "success", env.Status)

	data := env.Data.(map[string]interface{})
	assert.NotEmpty(t, data["token"])
	user := data["user"].(map[string]interface{})
	assert.Equal(t, "jonas@example.com", user["email"])
	assert.Equal(t, models.RoleUser, user["role"])
	assert.NotContains(t, user, "password")

	require.NotNil(t, f.created)
	assert.True(t, f.created.CorrectPassword("pass1234"))
}

func TestSignupPasswordMismatch(t *testing.T) {
	f := &fakeUserStore{}
	body, _ := json.Marshal(map[string]string{
		"name":            "Jonas",
		"email":           "jonas@example.com",
		"password":        "pass1234",
		"passwordConfirm": "pass5678",
	})
	req := httptest.NewRequest(http.MethodPost, "/users/signup", bytes.NewReader(body))
	rec, env := doJSON(t, newAuthRouter(f), req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "passwordConfirm", env.Field)
	assert.Nil(t, f.created)
}

func TestLogin(t *testing.T) {
	existing := &models.User{ID: primitive.NewObjectID(), Name: "Jonas", Email: "jonas@example.com", Role: models.RoleUser}
	require.NoError(t, existing.SetPassword("pass1234", "pass1234"))
	f := &fakeUserStore{usersByEmail: map[string]*models.User{"jonas@example.com": existing}}

	body, _ := json.Marshal(map[string]string{"email": "jonas@example.com", "password": "pass1234"})
	req := httptest.NewRequest(http.MethodPost, "/users/login", bytes.NewReader(body))
	rec, env := doJSON(t, newAuthRouter(f), req)

	assert.Equal(t, http.StatusOK, rec.Code)
	data := env.Data.(map[string]interface{})
	assert.NotEmpty(t, data["token"])
}

func TestLoginWrongPassword(t *testing.T) {
	existing := &models.User{ID: primitive.NewObjectID(), Email: "jonas@example.com"}
	require.NoError(t, existing.SetPassword("pass1234", "pass1234"))
	f := &fakeUserStore{usersByEmail: map[string]*models.User{"jonas@example.com": existing}}

	body, _ := json.Marshal(map[string]string{"email": "jonas@example.com", "password": "wrong"})
	req := httptest.NewRequest(http.MethodPost, "/users/login", bytes.NewReader(body))
	rec, env := doJSON(t, newAuthRouter(f), req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Incorrect email or password", env.Message)
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	f := &fakeUserStore{}
	body, _ := json.Marshal(map[string]string{"email": "nobody@example.com"})
	req := httptest.NewRequest(http.MethodPost, "/users/forgot-password", bytes.NewReader(body))
	rec, env := doJSON(t, newAuthRouter(f), req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "There is no user with that email address", env.Message)
}

func TestForgotPasswordRevokesTokenWhenMailFails(t *testing.T) {
	existing := &models.User{ID: primitive.NewObjectID(), Name: "Jonas", Email: "jonas@example.com"}
	f := &fakeUserStore{usersByEmail: map[string]*models.User{"jonas@example.com": existing}}

	// Mailer is nil (unconfigured): the send fails, so the issued token must
	// be revoked instead of lingering.
	body, _ := json.Marshal(map[string]string{"email": "jonas@example.com"})
	req := httptest.NewRequest(http.MethodPost, "/users/forgot-password", bytes.NewReader(body))
	rec, _ := doJSON(t, newAuthRouter(f), req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEmpty(t, f.savedToken)
	assert.True(t, f.cleared)
}

func TestResetPassword(t *testing.T) {
	user := &models.User{ID: primitive.NewObjectID(), Email: "jonas@example.com"}
	token, err := user.NewPasswordResetToken()
	require.NoError(t, err)
	f := &fakeUserStore{resetUser: user}

	body, _ := json.Marshal(map[string]string{"password": "newpass1234", "passwordConfirm": "newpass1234"})
	req := httptest.NewRequest(http.MethodPatch, "/users/reset-password/"+token, bytes.NewReader(body))
	rec, env := doJSON(t, newAuthRouter(f), req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, f.updatedHash)
	assert.NotEqual(t, "newpass1234", f.updatedHash)
	data := env.Data.(map[string]interface{})
	assert.NotEmpty(t, data["token"])
}

func TestResetPasswordInvalidToken(t *testing.T) {
	f := &fakeUserStore{}
	body, _ := json.Marshal(map[string]string{"password": "newpass1234", "passwordConfirm": "newpass1234"})
	req := httptest.NewRequest(http.MethodPatch, "/users/reset-password/forged", bytes.NewReader(body))
	rec, env := doJSON(t, newAuthRouter(f), req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Token is invalid or has expired", env.Message)
}
