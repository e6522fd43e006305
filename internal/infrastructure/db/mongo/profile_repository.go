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

const collectionProfiles = "profiles"

// ProfileRepository stores one document per principal, keyed by its id.
type ProfileRepository struct {
	col *mongo.Collection
}

func NewProfileRepository(db *mongo.Database) *ProfileRepository {
	return &ProfileRepository{col: db.Collection(collectionProfiles)}
}

func (r *ProfileRepository) FindByID(ctx context.Context, id string) (*domain.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var p domain.Profile
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, err
	}
	return &p, nil
}

// CreateIfAbsent upserts with $setOnInsert so an existing row is never
// touched. A duplicate key error means a concurrent upsert won the race; the
// winner's row is returned.
func (r *ProfileRepository) CreateIfAbsent(ctx context.Context, p *domain.Profile) (*domain.Profile, bool, error) {
	opCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	update := bson.M{"$setOnInsert": bson.M{
		"email":        p.Email,
		"role":         p.Role,
		"display_name": p.DisplayName,
		"created_at":   p.CreatedAt,
		"updated_at":   p.UpdatedAt,
	}}
	res, err := r.col.UpdateOne(opCtx, bson.M{"_id": p.ID}, update, options.Update().SetUpsert(true))
	inserted := false
	switch {
	case err == nil:
		inserted = res.UpsertedCount == 1
	case mongo.IsDuplicateKeyError(err):
	default:
		return nil, false, fmt.Errorf("upsert profile: %w", err)
	}

	stored, err := r.FindByID(ctx, p.ID)
	if err != nil {
		return nil, false, fmt.Errorf("read back profile: %w", err)
	}
	return stored, inserted, nil
}

func (r *ProfileRepository) UpdateDetails(ctx context.Context, id string, d domain.ProfileDetails, updatedAt time.Time) (*domain.Profile, error) {
	return r.findAndSet(ctx, id, bson.M{
		"display_name": d.DisplayName,
		"phone":        d.Phone,
		"bio":          d.Bio,
		"updated_at":   updatedAt,
	})
}

func (r *ProfileRepository) UpdateRole(ctx context.Context, id string, role domain.Role, updatedAt time.Time) (*domain.Profile, error) {
	return r.findAndSet(ctx, id, bson.M{"role": role, "updated_at": updatedAt})
}

func (r *ProfileRepository) findAndSet(ctx context.Context, id string, set bson.M) (*domain.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var p domain.Profile
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, err
	}
	return &p, nil
}

// EnsureIndexes creates the secondary indexes of the profiles collection.
func (r *ProfileRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}},
		{Keys: bson.D{{Key: "role", Value: 1}}},
	})
	return err
}
