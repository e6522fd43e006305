package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// defaultTimeout bounds each repository call.
const defaultTimeout = 5 * time.Second

// Config selects the deployment and the database holding the credential,
// profile, property and favorite collections. Timeout bounds server
// selection and the startup ping; zero means 10s.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Connect dials the deployment and waits for the primary before returning.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, *mongo.Database, error) {
	t := cfg.Timeout
	if t <= 0 {
		t = 10 * time.Second
	}
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetAppName("propspace").
		SetServerSelectionTimeout(t)

	ctx, cancel := context.WithTimeout(ctx, t)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo %s: %w", cfg.Database, err)
	}
	return client, client.Database(cfg.Database), nil
}

// Indexer is a repository that owns indexes on its collection.
type Indexer interface {
	EnsureIndexes(ctx context.Context) error
}

// EnsureIndexes runs every repository's index setup and stops at the first
// failure.
func EnsureIndexes(ctx context.Context, repos ...Indexer) error {
	for _, r := range repos {
		if err := r.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("ensure indexes: %w", err)
		}
	}
	return nil
}
