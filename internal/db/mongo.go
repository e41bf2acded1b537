package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

const defaultMongoDatabase = "social"

// ConnectMongo dials MongoDB and verifies the primary is reachable.
// The database name comes from name, then from the URI path, then defaults to "social".
func ConnectMongo(ctx context.Context, uri, name string) (*mongo.Database, error) {
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return nil, fmt.Errorf("db: failed to parse mongo URI: %w", err)
	}
	if name == "" {
		name = cs.Database
	}
	if name == "" {
		name = defaultMongoDatabase
	}

	opts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(5 * time.Second).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("db: failed to create mongo client: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("db: failed to connect to MongoDB: %w", err)
	}

	return client.Database(name), nil
}
