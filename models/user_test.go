package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/robertfedus/natours/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserValidateNewNormalizes(t *testing.T) {
	u := &User{Name: "  Jonas Schmedtmann ", Email: "Jonas@Example.COM"}
	require.NoError(t, u.ValidateNew())

	assert.Equal(t, "Jonas Schmedtmann", u.Name)
	assert.Equal(t, "jonas@example.com", u.Email)
	assert.Equal(t, RoleUser, u.Role)
	assert.False(t, u.CreatedAt.IsZero())
}

func TestUserValidateNewRejectsBadEmail(t *testing.T) {
	u := &User{Name: "Jonas", Email: "not-an-email"}
	err := u.ValidateNew()

	var ae *apperror.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "email", ae.Field)
	assert.Equal(t, "Please provide a valid email", ae.Message)
}

func TestSetPassword(t *testing.T) {
	u := &User{}

	err := u.SetPassword("short", "short")
	var ae *apperror.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "password", ae.Field)

	err = u.SetPassword("longenough", "different")
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "passwordConfirm", ae.Field)

	require.NoError(t, u.SetPassword("pass1234", "pass1234"))
	assert.NotEqual(t, "pass1234", u.Password, "plaintext must never be stored")
	assert.True(t, u.CorrectPassword("pass1234"))
	assert.False(t, u.CorrectPassword("wrong-pass"))
}

func TestNewPasswordResetToken(t *testing.T) {
	u := &User{}
	token, err := u.NewPasswordResetToken()
	require.NoError(t, err)

	assert.Len(t, token, 64) // 32 random bytes, hex encoded
	assert.NotEqual(t, token, u.PasswordResetToken, "only the digest is stored")
	assert.Equal(t, HashResetToken(token), u.PasswordResetToken)

	require.NotNil(t, u.PasswordResetExpires)
	ttl := time.Until(*u.PasswordResetExpires)
	assert.Greater(t, ttl, 9*time.Minute)
	assert.LessOrEqual(t, ttl, 10*time.Minute)
}

func TestResetTokenValid(t *testing.T) {
	u := &User{}
	token, err := u.NewPasswordResetToken()
	require.NoError(t, err)

	now := time.Now()
	assert.True(t, u.ResetTokenValid(token, now))
	assert.False(t, u.ResetTokenValid("forged-token", now))
	assert.False(t, u.ResetTokenValid(token, now.Add(11*time.Minute)), "token expired")
}

func TestChangedPasswordAfter(t *testing.T) {
	issued := time.Now()
	u := &User{}
	assert.False(t, u.ChangedPasswordAfter(issued))

	changed := issued.Add(time.Hour)
	u.PasswordChangedAt = &changed
	assert.True(t, u.ChangedPasswordAfter(issued))
	assert.False(t, u.ChangedPasswordAfter(issued.Add(2*time.Hour)))
}

func TestUserJSONNeverExposesSecrets(t *testing.T) {
	u := &User{Name: "Jonas", Email: "jonas@example.com"}
	require.NoError(t, u.SetPassword("pass1234", "pass1234"))
	_, err := u.NewPasswordResetToken()
	require.NoError(t, err)

	raw, err := json.Marshal(u)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))

	assert.Contains(t, out, "name")
	assert.Contains(t, out, "email")
	assert.NotContains(t, out, "password")
	assert.NotContains(t, out, "passwordResetToken")
	assert.NotContains(t, out, "passwordResetExpires")
	assert.NotContains(t, out, "passwordChangedAt")
}
