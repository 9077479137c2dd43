package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/asaidimu/go-dyndocs/core/registry"
	"github.com/asaidimu/go-dyndocs/core/schema"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// schemaCollectionName is the collection holding the versioned schema
// definitions for all tenants.
const schemaCollectionName = "schema_definitions"

// schemaRecord is the persisted shape of a schema definition. The identity
// is a native ObjectID; conversion to and from the engine's string form
// happens at this boundary.
type schemaRecord struct {
	ID           primitive.ObjectID       `bson:"_id,omitempty"`
	TenantID     string                   `bson:"tenant_id"`
	DocumentType string                   `bson:"document_type"`
	Version      int                      `bson:"version"`
	IsActive     bool                     `bson:"is_active"`
	Description  string                   `bson:"description,omitempty"`
	Fields       []schema.FieldDefinition `bson:"fields"`
	CreatedBy    string                   `bson:"created_by,omitempty"`
	UpdatedBy    string                   `bson:"updated_by,omitempty"`
	CreatedAt    time.Time                `bson:"created_at"`
	UpdatedAt    time.Time                `bson:"updated_at"`
}

// toDefinition converts a stored record into the engine's model.
func (r *schemaRecord) toDefinition() *schema.Definition {
	return &schema.Definition{
		ID:           r.ID.Hex(),
		TenantID:     r.TenantID,
		DocumentType: r.DocumentType,
		Version:      r.Version,
		IsActive:     r.IsActive,
		Description:  r.Description,
		Fields:       r.Fields,
		CreatedBy:    r.CreatedBy,
		UpdatedBy:    r.UpdatedBy,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

// fromDefinition converts the engine's model into its persisted shape.
func fromDefinition(def *schema.Definition) (*schemaRecord, error) {
	record := &schemaRecord{
		TenantID:     def.TenantID,
		DocumentType: def.DocumentType,
		Version:      def.Version,
		IsActive:     def.IsActive,
		Description:  def.Description,
		Fields:       def.Fields,
		CreatedBy:    def.CreatedBy,
		UpdatedBy:    def.UpdatedBy,
		CreatedAt:    def.CreatedAt,
		UpdatedAt:    def.UpdatedAt,
	}
	if def.ID != "" {
		oid, err := primitive.ObjectIDFromHex(def.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid schema id %q: %w", def.ID, err)
		}
		record.ID = oid
	}
	return record, nil
}

// SchemaStore is the MongoDB implementation of registry.Store.
type SchemaStore struct {
	coll   *mongo.Collection
	logger *zap.Logger
}

var _ registry.Store = (*SchemaStore)(nil)

// NewSchemaStore creates a schema store over the given database and ensures
// the uniqueness constraint on (tenant_id, document_type, version).
func NewSchemaStore(ctx context.Context, db *mongo.Database, logger *zap.Logger) (*SchemaStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	coll := db.Collection(schemaCollectionName)

	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "tenant_id", Value: 1},
			{Key: "document_type", Value: 1},
			{Key: "version", Value: 1},
		},
		Options: options.Index().SetName("tenant_id_1_document_type_1_version_1").SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ensure schema version index: %w", err)
	}

	return &SchemaStore{coll: coll, logger: logger}, nil
}

// Insert persists a new schema definition and returns the assigned identity.
func (s *SchemaStore) Insert(ctx context.Context, def *schema.Definition) (string, error) {
	record, err := fromDefinition(def)
	if err != nil {
		return "", err
	}
	record.ID = primitive.NewObjectID()

	if _, err := s.coll.InsertOne(ctx, record); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("%w: %s v%d", registry.ErrDuplicateVersion, def.DocumentType, def.Version)
		}
		return "", fmt.Errorf("failed to insert schema: %w", err)
	}
	return record.ID.Hex(), nil
}

// Get fetches a definition by identity, (nil, nil) when absent.
func (s *SchemaStore) Get(ctx context.Context, id string) (*schema.Definition, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid schema id %q: %w", id, err)
	}

	var record schemaRecord
	err = s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch schema %s: %w", id, err)
	}
	return record.toDefinition(), nil
}

// Versions returns all definitions for the pair, newest-version-first.
func (s *SchemaStore) Versions(ctx context.Context, tenantID, documentType string) ([]*schema.Definition, error) {
	filter := bson.M{"tenant_id": tenantID, "document_type": documentType}
	cursor, err := s.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "version", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list schema versions: %w", err)
	}
	return decodeDefinitions(ctx, cursor)
}

// Active returns the active definition for the pair, (nil, nil) when none.
func (s *SchemaStore) Active(ctx context.Context, tenantID, documentType string) (*schema.Definition, error) {
	filter := bson.M{"tenant_id": tenantID, "document_type": documentType, "is_active": true}

	var record schemaRecord
	err := s.coll.FindOne(ctx, filter).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch active schema: %w", err)
	}
	return record.toDefinition(), nil
}

// All returns definitions across tenants with offset/limit pagination.
func (s *SchemaStore) All(ctx context.Context, skip, limit int64) ([]*schema.Definition, error) {
	opts := options.Find().SetSkip(skip)
	if limit > 0 {
		opts = opts.SetLimit(limit)
	}
	cursor, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list schemas: %w", err)
	}
	return decodeDefinitions(ctx, cursor)
}

// Save replaces a definition by identity.
func (s *SchemaStore) Save(ctx context.Context, def *schema.Definition) error {
	record, err := fromDefinition(def)
	if err != nil {
		return err
	}
	result, err := s.coll.ReplaceOne(ctx, bson.M{"_id": record.ID}, record)
	if err != nil {
		return fmt.Errorf("failed to save schema %s: %w", def.ID, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("schema %s does not exist", def.ID)
	}
	return nil
}

// Deactivate clears is_active on every definition of the pair except the
// given identity, as one bulk conditional update.
func (s *SchemaStore) Deactivate(ctx context.Context, tenantID, documentType, exceptID string, now time.Time) (int64, error) {
	filter := bson.M{
		"tenant_id":     tenantID,
		"document_type": documentType,
		"is_active":     true,
	}
	if exceptID != "" {
		oid, err := primitive.ObjectIDFromHex(exceptID)
		if err != nil {
			return 0, fmt.Errorf("invalid schema id %q: %w", exceptID, err)
		}
		filter["_id"] = bson.M{"$ne": oid}
	}

	result, err := s.coll.UpdateMany(ctx, filter, bson.M{
		"$set": bson.M{"is_active": false, "updated_at": now},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate sibling versions: %w", err)
	}
	return result.ModifiedCount, nil
}

// Delete removes a definition by identity.
func (s *SchemaStore) Delete(ctx context.Context, id string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, fmt.Errorf("invalid schema id %q: %w", id, err)
	}
	result, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, fmt.Errorf("failed to delete schema %s: %w", id, err)
	}
	return result.DeletedCount > 0, nil
}

// decodeDefinitions drains a cursor of schema records into engine models.
func decodeDefinitions(ctx context.Context, cursor *mongo.Cursor) ([]*schema.Definition, error) {
	defer cursor.Close(ctx)

	var out []*schema.Definition
	for cursor.Next(ctx) {
		var record schemaRecord
		if err := cursor.Decode(&record); err != nil {
			return nil, fmt.Errorf("failed to decode schema record: %w", err)
		}
		out = append(out, record.toDefinition())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error while reading schemas: %w", err)
	}
	return out, nil
}
