package store

import (
	"context"
	"time"

	"github.com/robertfedus/natours/apperror"
	"github.com/robertfedus/natours/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// hidePassword keeps the hash out of every read that does not explicitly
// need it (login and reset do).
var hidePassword = bson.D{{Key: "password", Value: 0}}

func (db *DB) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	res, err := db.Users().InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperror.Validation("email", "Email already in use")
		}
		return nil, apperror.Operation("users.insert", err)
	}
	user.ID = res.InsertedID.(primitive.ObjectID)
	return user, nil
}

func (db *DB) UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	err := db.Users().FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(hidePassword)).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, apperror.NotFound("No user found with that ID")
	}
	if err != nil {
		return nil, apperror.Operation("users.findOne", err)
	}
	return &u, nil
}

// UserByEmail returns the user including the password hash, for credential
// checks. Returns (nil, nil) when no user exists: an unknown email is not an
// error at this layer.
func (db *DB) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := db.Users().FindOne(ctx, bson.M{"email": email}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, apperror.Operation("users.findOne", err)
	}
	return &u, nil
}

func (db *DB) ListUsers(ctx context.Context) ([]models.User, error) {
	opts := options.Find().
		SetProjection(hidePassword).
		SetSort(bson.D{{Key: "createdAt", Value: 1}})

	cur, err := db.Users().Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, apperror.Operation("users.find", err)
	}
	defer cur.Close(ctx)

	users := []models.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, apperror.Operation("users.decode", err)
	}
	return users, nil
}

// SaveResetToken persists the token digest and its expiry on the user.
func (db *DB) SaveResetToken(ctx context.Context, id primitive.ObjectID, tokenHash string, expires time.Time) error {
	_, err := db.Users().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"passwordResetToken":   tokenHash,
		"passwordResetExpires": expires,
	}})
	if err != nil {
		return apperror.Operation("users.saveResetToken", err)
	}
	return nil
}

// ClearResetToken drops an issued token, eg. when the reset mail could not
// be sent.
func (db *DB) ClearResetToken(ctx context.Context, id primitive.ObjectID) error {
	_, err := db.Users().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$unset": bson.M{
		"passwordResetToken":   "",
		"passwordResetExpires": "",
	}})
	if err != nil {
		return apperror.Operation("users.clearResetToken", err)
	}
	return nil
}

// UserByResetToken looks a user up by token digest, only while the token is
// still inside its validity window. Includes the password hash so the caller
// can replace it.
func (db *DB) UserByResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	var u models.User
	err := db.Users().FindOne(ctx, bson.M{
		"passwordResetToken":   tokenHash,
		"passwordResetExpires": bson.M{"$gt": now},
	}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, apperror.Operation("users.findOne", err)
	}
	return &u, nil
}

// UpdatePassword replaces the stored hash, stamps passwordChangedAt and
// consumes any outstanding reset token. The stamp is backdated by a second so
// the token issued in the same request is not itself judged stale.
func (db *DB) UpdatePassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error {
	_, err := db.Users().UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"password":          passwordHash,
			"passwordChangedAt": time.Now().Add(-time.Second),
		},
		"$unset": bson.M{
			"passwordResetToken":   "",
			"passwordResetExpires": "",
		},
	})
	if err != nil {
		return apperror.Operation("users.updatePassword", err)
	}
	return nil
}
