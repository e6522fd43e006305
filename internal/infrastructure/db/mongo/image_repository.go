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

const collectionImages = "property_images"

// ImageRepository keeps one document per (property_id, position).
type ImageRepository struct {
	col *mongo.Collection
}

func NewImageRepository(db *mongo.Database) *ImageRepository {
	return &ImageRepository{col: db.Collection(collectionImages)}
}

// Upsert replaces the URL in the slot, or inserts the image when the slot is
// empty. Two writers racing on an empty slot both end with the same row: the
// loser's duplicate key error is retried as a plain update.
func (r *ImageRepository) Upsert(ctx context.Context, img *domain.Image) (*domain.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"property_id": img.PropertyID, "position": img.Position}
	update := bson.M{
		"$set":         bson.M{"url": img.URL, "updated_at": img.UpdatedAt},
		"$setOnInsert": bson.M{"_id": img.ID, "created_at": img.CreatedAt},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var stored domain.Image
	err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored)
	if mongo.IsDuplicateKeyError(err) {
		err = r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored)
	}
	if err != nil {
		return nil, fmt.Errorf("upsert image: %w", err)
	}
	return &stored, nil
}

func (r *ImageRepository) ListByProperties(ctx context.Context, propertyIDs []string) ([]*domain.Image, error) {
	if len(propertyIDs) == 0 {
		return []*domain.Image{}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "property_id", Value: 1}, {Key: "position", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"property_id": bson.M{"$in": propertyIDs}}, opts)
	if err != nil {
		return nil, err
	}
	out := []*domain.Image{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ImageRepository) Delete(ctx context.Context, propertyID string, position int) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"property_id": propertyID, "position": position})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrImageNotFound
	}
	return nil
}

func (r *ImageRepository) DeleteByProperty(ctx context.Context, propertyID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.DeleteMany(ctx, bson.M{"property_id": propertyID})
	return err
}

// EnsureIndexes makes (property_id, position) unique.
func (r *ImageRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "property_id", Value: 1}, {Key: "position", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
