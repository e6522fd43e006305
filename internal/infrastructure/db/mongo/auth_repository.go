package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/propspace/marketplace/internal/core/domain"
)

const authCollection = "auth_users"

type MongoAuthRepository struct {
	coll *mongo.Collection
}

func NewAuthRepository(db *mongo.Database) *MongoAuthRepository {
	return &MongoAuthRepository{coll: db.Collection(authCollection)}
}

type mongoCredential struct {
	ID           string                  `bson:"_id"`
	Email        string                  `bson:"email"`
	PasswordHash string                  `bson:"password_hash"`
	Attributes   domain.SignupAttributes `bson:"signup_attributes"`
	CreatedAt    int64                   `bson:"created_at"`
	UpdatedAt    int64                   `bson:"updated_at"`
}

func (r *MongoAuthRepository) Create(ctx context.Context, cred *domain.Credential) (*domain.Credential, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoCredential{
		ID:           cred.ID,
		Email:        cred.Email,
		PasswordHash: cred.PasswordHash,
		Attributes:   cred.Attributes,
		CreatedAt:    cred.CreatedAt.Unix(),
		UpdatedAt:    cred.UpdatedAt.Unix(),
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert credential: %w", err)
	}
	return toCredential(doc), nil
}

func (r *MongoAuthRepository) FindByEmail(ctx context.Context, email string) (*domain.Credential, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoAuthRepository) FindByID(ctx context.Context, id string) (*domain.Credential, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoAuthRepository) findOne(ctx context.Context, filter bson.M) (*domain.Credential, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoCredential
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find credential: %w", err)
	}
	return toCredential(doc), nil
}

// EnsureIndexes makes email unique so concurrent signups cannot both succeed.
func (r *MongoAuthRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func toCredential(doc mongoCredential) *domain.Credential {
	return &domain.Credential{
		ID:           doc.ID,
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		Attributes:   doc.Attributes,
		CreatedAt:    unixToTime(doc.CreatedAt),
		UpdatedAt:    unixToTime(doc.UpdatedAt),
	}
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
