package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	craveAuth "github.com/CraveEvents/craveAuth"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	ClientCollection       = "clients"
	VendorCollection       = "vendors"
	AdminCollection        = "admins"
	RefreshTokenCollection = "refreshtokens"
)

const connectTimeout = 10 * time.Second

// Connect dials uri, pings the primary and returns the named database.
func Connect(ctx context.Context, uri, database string) (*mongo.Client, *mongo.Database, error) {
	if uri == "" || database == "" {
		return nil, nil, errors.New("mongo uri and database required")
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, client.Database(database), nil
}

// Repositories returns the user repositories and refresh token repository
// backed by db.
func Repositories(db *mongo.Database) (craveAuth.UserRepositories, *RefreshTokenRepository) {
	return craveAuth.UserRepositories{
			Client: NewUserRepository(db.Collection(ClientCollection), craveAuth.RoleClient),
			Vendor: NewUserRepository(db.Collection(VendorCollection), craveAuth.RoleVendor),
			Admin:  NewUserRepository(db.Collection(AdminCollection), craveAuth.RoleAdmin),
		},
		NewRefreshTokenRepository(db.Collection(RefreshTokenCollection))
}

// EnsureIndexes creates the unique email and userId indexes of the user
// collections and the lookup and TTL indexes of the refresh collection.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for _, name := range []string{ClientCollection, VendorCollection, AdminCollection} {
		_, err := db.Collection(name).Indexes().CreateMany(ctx, []mongo.IndexModel{
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "userId", Value: 1}}, Options: options.Index().SetUnique(true)},
		})
		if err != nil {
			return fmt.Errorf("index %s: %w", name, err)
		}
	}

	_, err := db.Collection(RefreshTokenCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "token", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "user", Value: 1}}},
		{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
	})
	if err != nil {
		return fmt.Errorf("index %s: %w", RefreshTokenCollection, err)
	}
	return nil
}
