package models

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robertfedus/natours/apperror"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// Role constants for user authorization.
const (
	RoleUser      = "user"
	RoleGuide     = "guide"
	RoleLeadGuide = "lead-guide"
	RoleAdmin     = "admin"
)

var ValidRoles = []string{RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin}

const (
	passwordMinLen = 8
	bcryptCost     = 12

	// PasswordResetTTL is the validity window of a reset token.
	PasswordResetTTL = 10 * time.Minute
)

type User struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name                 string             `bson:"name" json:"name" validate:"required"`
	Email                string             `bson:"email" json:"email" validate:"required,email"`
	Photo                string             `bson:"photo,omitempty" json:"photo,omitempty"`
	Role                 string             `bson:"role" json:"role" validate:"omitempty,oneof=user guide lead-guide admin"`
	Password             string             `bson:"password,omitempty" json:"-"` // bcrypt hash, excluded from default projections
	PasswordChangedAt    *time.Time         `bson:"passwordChangedAt,omitempty" json:"-"`
	PasswordResetToken   string             `bson:"passwordResetToken,omitempty" json:"-"` // sha256 of the issued token
	PasswordResetExpires *time.Time         `bson:"passwordResetExpires,omitempty" json:"-"`
	CreatedAt            time.Time          `bson:"createdAt" json:"createdAt"`
}

// ValidateNew normalizes and checks the account fields. The password is set
// separately via SetPassword so the plaintext never lives on the struct.
func (u *User) ValidateNew() error {
	u.Name = strings.TrimSpace(u.Name)
	u.Email = strings.TrimSpace(strings.ToLower(u.Email))
	if u.Role == "" {
		u.Role = RoleUser
	}
	if err := validate.Struct(u); err != nil {
		return userValidationError(err)
	}
	u.CreatedAt = time.Now()
	return nil
}

// SetPassword validates the password pair and stores only the bcrypt hash.
// The confirmation value is discarded immediately after the comparison.
func (u *User) SetPassword(password, passwordConfirm string) error {
	if len(password) < passwordMinLen {
		return apperror.Validation("password", "Password must have at least 8 characters")
	}
	if password != passwordConfirm {
		return apperror.Validation("passwordConfirm", "Passwords do not match")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return apperror.Operation("hash password", err)
	}
	u.Password = string(hash)
	return nil
}

// CorrectPassword reports whether candidate matches the stored hash.
func (u *User) CorrectPassword(candidate string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(candidate)) == nil
}

// ChangedPasswordAfter reports whether the password changed after t
// (eg. after a token was issued).
func (u *User) ChangedPasswordAfter(t time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return u.PasswordChangedAt.After(t)
}

// NewPasswordResetToken issues a reset token. Only its sha256 digest is kept
// on the user; the plaintext is returned exactly once, for the caller to mail
// out.
func (u *User) NewPasswordResetToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", apperror.Operation("generate reset token", err)
	}
	token := hex.EncodeToString(raw)
	u.PasswordResetToken = HashResetToken(token)
	expires := time.Now().Add(PasswordResetTTL)
	u.PasswordResetExpires = &expires
	return token, nil
}

// ResetTokenValid reports whether token matches the stored digest and has not
// expired.
func (u *User) ResetTokenValid(token string, now time.Time) bool {
	if u.PasswordResetToken == "" || u.PasswordResetExpires == nil {
		return false
	}
	if now.After(*u.PasswordResetExpires) {
		return false
	}
	digest := HashResetToken(token)
	return subtle.ConstantTimeCompare([]byte(digest), []byte(u.PasswordResetToken)) == 1
}

// HashResetToken returns the hex sha256 digest stored in place of a token.
func HashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func userValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperror.Operation("user validation", err)
	}
	fe := verrs[0]
	switch fe.Field() {
	case "name":
		return apperror.Validation("name", "Please tell us your name")
	case "email":
		if fe.Tag() == "required" {
			return apperror.Validation("email", "Please provide your email")
		}
		return apperror.Validation("email", "Please provide a valid email")
	case "role":
		return apperror.Validation("role", "Role is either: user, guide, lead-guide or admin")
	}
	return apperror.Validation(fe.Field(), "Invalid value for "+fe.Field())
}
