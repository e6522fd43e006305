package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/propspace/marketplace/internal/core/domain"
)

const collectionFavorites = "favorites"

type FavoriteRepository struct {
	col *mongo.Collection
}

func NewFavoriteRepository(db *mongo.Database) *FavoriteRepository {
	return &FavoriteRepository{col: db.Collection(collectionFavorites)}
}

// Add upserts on (user_id, property_id) and returns the stored favorite.
func (r *FavoriteRepository) Add(ctx context.Context, f *domain.Favorite) (*domain.Favorite, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"user_id": f.UserID, "property_id": f.PropertyID}
	update := bson.M{"$setOnInsert": bson.M{"_id": f.ID, "created_at": f.CreatedAt}}
	if _, err := r.col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil && !mongo.IsDuplicateKeyError(err) {
		return nil, fmt.Errorf("upsert favorite: %w", err)
	}

	var stored domain.Favorite
	if err := r.col.FindOne(ctx, filter).Decode(&stored); err != nil {
		return nil, fmt.Errorf("read back favorite: %w", err)
	}
	return &stored, nil
}

func (r *FavoriteRepository) Remove(ctx context.Context, userID, propertyID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.DeleteOne(ctx, bson.M{"user_id": userID, "property_id": propertyID})
	return err
}

// ListByUser returns the user's favorites, newest first.
func (r *FavoriteRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Favorite, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := r.col.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	out := []*domain.Favorite{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *FavoriteRepository) Exists(ctx context.Context, userID, propertyID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, bson.M{"user_id": userID, "property_id": propertyID}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *FavoriteRepository) DeleteByProperty(ctx context.Context, propertyID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.DeleteMany(ctx, bson.M{"property_id": propertyID})
	return err
}

// EnsureIndexes makes (user_id, property_id) unique.
func (r *FavoriteRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "property_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "property_id", Value: 1}}},
	})
	return err
}
