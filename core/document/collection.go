// Package document implements the dynamic-document side of the engine:
// the collection configuration cache, the index synchronizer, and the
// document access layer that creates, reads, updates, deletes, and searches
// documents in tenant-defined collections.
package document

import (
	"context"
	"errors"
)

// Base fields stamped onto every stored document. The tenant scoping key is
// always present and always filterable; the remaining fields carry audit
// metadata.
const (
	FieldID        = "_id"
	FieldTenantID  = "tenant_id"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
	FieldCreatedBy = "created_by"
	FieldUpdatedBy = "updated_by"
)

// ErrDuplicateKey is returned (wrapped) by Collection implementations when
// an insert or update violates a unique index. The access layer surfaces it
// as a Conflict.
var ErrDuplicateKey = errors.New("duplicate key")

// ErrInvalidID is returned (wrapped) by Collection implementations when a
// document id cannot be parsed into the store's native identity type. The
// access layer surfaces it as a BadRequest.
var ErrInvalidID = errors.New("invalid document id")

// IndexSpec describes a single index on a collection. Keys are field names
// in order; all keys index ascending.
type IndexSpec struct {
	Name   string
	Keys   []string
	Unique bool
}

// Collection is the minimal surface the engine needs from a document-store
// collection. Filters are equality maps; a FieldID entry matches the
// store-assigned identity in its string form. Implementations normalize
// store-native scalars on the way out: identities become strings and
// timestamps become time.Time values.
type Collection interface {
	Name() string

	// InsertOne stores a document and returns the assigned identity.
	InsertOne(ctx context.Context, doc map[string]any) (string, error)
	// FindOne returns the first document matching the filter, or (nil, nil)
	// when none matches.
	FindOne(ctx context.Context, filter map[string]any) (map[string]any, error)
	// Find returns documents matching the filter with offset/limit
	// pagination. A limit of zero means no limit.
	Find(ctx context.Context, filter map[string]any, skip, limit int64) ([]map[string]any, error)
	// UpdateOne applies a merge-style update (only the supplied keys change)
	// to the first document matching the filter and reports how many
	// documents were matched.
	UpdateOne(ctx context.Context, filter, set map[string]any) (int64, error)
	// DeleteOne removes the first document matching the filter and reports
	// how many documents were removed.
	DeleteOne(ctx context.Context, filter map[string]any) (int64, error)

	// EnsureIndex creates an index if it does not already exist.
	EnsureIndex(ctx context.Context, spec IndexSpec) error
	// Indexes lists the collection's current indexes.
	Indexes(ctx context.Context) ([]IndexSpec, error)
	// DropIndex removes an index by name.
	DropIndex(ctx context.Context, name string) error
}

// Provider hands out collection handles by name, creating the backing
// collection implicitly on first access where the store works that way.
type Provider interface {
	Collection(ctx context.Context, name string) (Collection, error)
}
