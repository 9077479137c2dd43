package mongo

import (
	"context"
	"fmt"

	"github.com/asaidimu/go-dyndocs/core/document"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Provider hands out MongoDB-backed document collections. Collections are
// created implicitly by the server on first write, matching the engine's
// lazy collection lifecycle.
type Provider struct {
	db     *mongo.Database
	logger *zap.Logger
}

var _ document.Provider = (*Provider)(nil)

// NewProvider creates a collection provider over a database handle.
func NewProvider(db *mongo.Database, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{db: db, logger: logger}
}

// Collection returns a handle on the named collection.
func (p *Provider) Collection(ctx context.Context, name string) (document.Collection, error) {
	return &Collection{coll: p.db.Collection(name), logger: p.logger}, nil
}

// Collection is the MongoDB implementation of document.Collection.
type Collection struct {
	coll   *mongo.Collection
	logger *zap.Logger
}

var _ document.Collection = (*Collection)(nil)

// Name returns the collection name.
func (c *Collection) Name() string { return c.coll.Name() }

// buildFilter translates an equality filter into BSON. A FieldID entry is
// parsed from its string form into a native ObjectID.
func buildFilter(filter map[string]any) (bson.M, error) {
	out := make(bson.M, len(filter))
	for key, value := range filter {
		if key == document.FieldID {
			id, ok := value.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %v", document.ErrInvalidID, value)
			}
			oid, err := primitive.ObjectIDFromHex(id)
			if err != nil {
				return nil, fmt.Errorf("%w: %s", document.ErrInvalidID, id)
			}
			out[key] = oid
			continue
		}
		out[key] = value
	}
	return out, nil
}

// InsertOne stores a document and returns the assigned identity in hex form.
func (c *Collection) InsertOne(ctx context.Context, doc map[string]any) (string, error) {
	result, err := c.coll.InsertOne(ctx, bson.M(doc))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("%w: %v", document.ErrDuplicateKey, err)
		}
		return "", fmt.Errorf("insert failed on %s: %w", c.coll.Name(), err)
	}
	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Sprintf("%v", result.InsertedID), nil
	}
	return oid.Hex(), nil
}

// FindOne returns the first matching document, (nil, nil) when none matches.
func (c *Collection) FindOne(ctx context.Context, filter map[string]any) (map[string]any, error) {
	bsonFilter, err := buildFilter(filter)
	if err != nil {
		return nil, err
	}

	var raw bson.M
	err = c.coll.FindOne(ctx, bsonFilter).Decode(&raw)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find failed on %s: %w", c.coll.Name(), err)
	}
	return normalizeDoc(raw), nil
}

// Find returns matching documents with skip/limit pagination.
func (c *Collection) Find(ctx context.Context, filter map[string]any, skip, limit int64) ([]map[string]any, error) {
	bsonFilter, err := buildFilter(filter)
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSkip(skip)
	if limit > 0 {
		opts = opts.SetLimit(limit)
	}
	cursor, err := c.coll.Find(ctx, bsonFilter, opts)
	if err != nil {
		return nil, fmt.Errorf("find failed on %s: %w", c.coll.Name(), err)
	}
	defer cursor.Close(ctx)

	var out []map[string]any
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode failed on %s: %w", c.coll.Name(), err)
		}
		out = append(out, normalizeDoc(raw))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error on %s: %w", c.coll.Name(), err)
	}
	return out, nil
}

// UpdateOne applies a merge-style $set update to the first matching document.
func (c *Collection) UpdateOne(ctx context.Context, filter, set map[string]any) (int64, error) {
	bsonFilter, err := buildFilter(filter)
	if err != nil {
		return 0, err
	}

	result, err := c.coll.UpdateOne(ctx, bsonFilter, bson.M{"$set": bson.M(set)})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return 0, fmt.Errorf("%w: %v", document.ErrDuplicateKey, err)
		}
		return 0, fmt.Errorf("update failed on %s: %w", c.coll.Name(), err)
	}
	return result.MatchedCount, nil
}

// DeleteOne removes the first matching document.
func (c *Collection) DeleteOne(ctx context.Context, filter map[string]any) (int64, error) {
	bsonFilter, err := buildFilter(filter)
	if err != nil {
		return 0, err
	}

	result, err := c.coll.DeleteOne(ctx, bsonFilter)
	if err != nil {
		return 0, fmt.Errorf("delete failed on %s: %w", c.coll.Name(), err)
	}
	return result.DeletedCount, nil
}

// EnsureIndex creates an index; an already-exists outcome is not an error.
func (c *Collection) EnsureIndex(ctx context.Context, spec document.IndexSpec) error {
	keys := make(bson.D, len(spec.Keys))
	for i, key := range spec.Keys {
		keys[i] = bson.E{Key: key, Value: 1}
	}

	opts := options.Index().SetName(spec.Name)
	if spec.Unique {
		opts = opts.SetUnique(true)
	}

	_, err := c.coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: keys, Options: opts})
	if err != nil {
		return fmt.Errorf("create index %s failed on %s: %w", spec.Name, c.coll.Name(), err)
	}
	return nil
}

// Indexes lists the collection's current indexes.
func (c *Collection) Indexes(ctx context.Context) ([]document.IndexSpec, error) {
	cursor, err := c.coll.Indexes().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list indexes failed on %s: %w", c.coll.Name(), err)
	}
	defer cursor.Close(ctx)

	var out []document.IndexSpec
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode index failed on %s: %w", c.coll.Name(), err)
		}
		spec := document.IndexSpec{}
		if name, ok := raw["name"].(string); ok {
			spec.Name = name
		}
		if unique, ok := raw["unique"].(bool); ok {
			spec.Unique = unique
		}
		if keyDoc, ok := raw["key"].(bson.M); ok {
			for key := range keyDoc {
				spec.Keys = append(spec.Keys, key)
			}
		}
		out = append(out, spec)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error listing indexes on %s: %w", c.coll.Name(), err)
	}
	return out, nil
}

// DropIndex removes an index by name.
func (c *Collection) DropIndex(ctx context.Context, name string) error {
	if _, err := c.coll.Indexes().DropOne(ctx, name); err != nil {
		return fmt.Errorf("drop index %s failed on %s: %w", name, c.coll.Name(), err)
	}
	return nil
}
