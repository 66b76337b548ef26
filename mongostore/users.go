package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	craveAuth "github.com/CraveEvents/craveAuth"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type userDocument struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	UserID         string             `bson:"userId"`
	Name           string             `bson:"name"`
	Email          string             `bson:"email"`
	Phone          string             `bson:"phone,omitempty"`
	Password       string             `bson:"password,omitempty"`
	Image          string             `bson:"image,omitempty"`
	Role           string             `bson:"role"`
	Status         string             `bson:"status"`
	GoogleID       string             `bson:"googleId,omitempty"`
	GoogleVerified bool               `bson:"googleVerified"`
	IDProof        string             `bson:"idProof,omitempty"`
	AboutVendor    string             `bson:"aboutVendor,omitempty"`
	IsSuperAdmin   bool               `bson:"isSuperAdmin,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt"`
}

func toDocument(u *craveAuth.User) userDocument {
	return userDocument{
		UserID:         u.UserID,
		Name:           u.Name,
		Email:          u.Email,
		Phone:          u.Phone,
		Password:       u.PasswordHash,
		Image:          u.ProfileImage,
		Role:           string(u.Role),
		Status:         string(u.Status),
		GoogleID:       u.GoogleID,
		GoogleVerified: u.GoogleVerified,
		IDProof:        u.IDProof,
		AboutVendor:    u.AboutVendor,
		IsSuperAdmin:   u.IsSuperAdmin,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func (d userDocument) toUser(role craveAuth.Role) *craveAuth.User {
	r := craveAuth.Role(d.Role)
	if !r.Valid() {
		r = role
	}
	return &craveAuth.User{
		UserID:         d.UserID,
		Name:           d.Name,
		Email:          d.Email,
		Phone:          d.Phone,
		PasswordHash:   d.Password,
		Role:           r,
		Status:         craveAuth.AccountStatus(d.Status),
		GoogleID:       d.GoogleID,
		GoogleVerified: d.GoogleVerified,
		ProfileImage:   d.Image,
		IDProof:        d.IDProof,
		AboutVendor:    d.AboutVendor,
		IsSuperAdmin:   d.IsSuperAdmin,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

// UserRepository is the collection of one role.
type UserRepository struct {
	coll *mongo.Collection
	role craveAuth.Role
}

func NewUserRepository(coll *mongo.Collection, role craveAuth.Role) *UserRepository {
	return &UserRepository{coll: coll, role: role}
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*craveAuth.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) FindByID(ctx context.Context, userID string) (*craveAuth.User, error) {
	return r.findOne(ctx, bson.M{"userId": userID})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*craveAuth.User, error) {
	var doc userDocument
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, craveAuth.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", r.role, err)
	}
	return doc.toUser(r.role), nil
}

// Create inserts user. A unique index violation on email is reported as
// [craveAuth.ErrEmailExists].
func (r *UserRepository) Create(ctx context.Context, user *craveAuth.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	doc := toDocument(user)
	doc.Role = string(r.role)

	_, err := r.coll.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return craveAuth.ErrEmailExists
	}
	if err != nil {
		return fmt.Errorf("insert %s: %w", r.role, err)
	}
	return nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	return r.update(ctx, userID, bson.M{"password": passwordHash})
}

func (r *UserRepository) UpdateStatus(ctx context.Context, userID string, status craveAuth.AccountStatus) error {
	return r.update(ctx, userID, bson.M{"status": string(status)})
}

func (r *UserRepository) update(ctx context.Context, userID string, set bson.M) error {
	set["updatedAt"] = time.Now().UTC()
	res, err := r.coll.UpdateOne(ctx, bson.M{"userId": userID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update %s: %w", r.role, err)
	}
	if res.MatchedCount == 0 {
		return craveAuth.ErrUserNotFound
	}
	return nil
}
