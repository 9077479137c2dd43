// Package mongo provides the MongoDB implementations of the engine's
// storage interfaces: the schema registry store and the dynamic document
// collections. It is the production counterpart of the memory package.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Connect dials a MongoDB deployment and verifies the connection with a
// ping before returning the database handle.
func Connect(ctx context.Context, uri, database string) (*mongo.Database, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return client.Database(database), nil
}

// normalizeValue converts store-native scalars into the engine's canonical
// value kinds: ObjectIDs become hex strings, BSON datetimes become UTC
// time.Time values, and nested arrays/documents are normalized recursively.
func normalizeValue(value any) any {
	switch v := value.(type) {
	case primitive.ObjectID:
		return v.Hex()
	case primitive.DateTime:
		return v.Time().UTC()
	case time.Time:
		return v.UTC()
	case primitive.A:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalizeValue(item)
		}
		return out
	case bson.M:
		return normalizeDoc(v)
	case bson.D:
		return normalizeDoc(v.Map())
	default:
		return value
	}
}

// normalizeDoc normalizes every value of a decoded BSON document.
func normalizeDoc(doc bson.M) map[string]any {
	out := make(map[string]any, len(doc))
	for key, value := range doc {
		out[key] = normalizeValue(value)
	}
	return out
}
