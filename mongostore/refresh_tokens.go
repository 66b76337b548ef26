package mongostore

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	craveAuth "github.com/CraveEvents/craveAuth"
	"github.com/CraveEvents/craveAuth/internal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type refreshTokenDocument struct {
	User      string    `bson:"user"`
	UserType  string    `bson:"userType"`
	Token     string    `bson:"token"`
	ExpiresAt time.Time `bson:"expiresAt"`
}

// RefreshTokenRepository stores the SHA-256 of each issued refresh token.
type RefreshTokenRepository struct {
	coll *mongo.Collection
}

func NewRefreshTokenRepository(coll *mongo.Collection) *RefreshTokenRepository {
	return &RefreshTokenRepository{coll: coll}
}

func tokenKey(token string) string {
	h := internal.HashToken(token)
	return hex.EncodeToString(h[:])
}

func (r *RefreshTokenRepository) Save(ctx context.Context, rec craveAuth.RefreshTokenRecord) error {
	_, err := r.coll.InsertOne(ctx, refreshTokenDocument{
		User:      rec.UserID,
		UserType:  string(rec.Role),
		Token:     tokenKey(rec.Token),
		ExpiresAt: rec.ExpiresAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

// Consume deletes the record of token. DeleteOne is atomic per document, so
// of two racing calls only one sees a deleted count of one.
func (r *RefreshTokenRepository) Consume(ctx context.Context, token string) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, bson.M{"token": tokenKey(token)})
	if err != nil {
		return false, fmt.Errorf("consume refresh token: %w", err)
	}
	return res.DeletedCount == 1, nil
}

func (r *RefreshTokenRepository) Revoke(ctx context.Context, token string) error {
	if _, err := r.coll.DeleteOne(ctx, bson.M{"token": tokenKey(token)}); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	if _, err := r.coll.DeleteMany(ctx, bson.M{"user": userID}); err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	return nil
}
