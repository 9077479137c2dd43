// Package registry implements the schema registry: versioned schema
// definitions per (tenant, document type) with a single-active-version
// invariant.
package registry

import (
	"context"
	"errors"
	"time"

	"github.com/asaidimu/go-dyndocs/core/schema"
)

// ErrDuplicateVersion is returned (wrapped) by Store implementations when
// an insert violates the (tenant_id, document_type, version) uniqueness
// constraint. The registry surfaces it as a Conflict.
var ErrDuplicateVersion = errors.New("duplicate schema version")

// Store is the persistence surface for schema definitions. Absent records
// are reported as (nil, nil); the registry owns the translation into
// NotFound errors. Implementations live in the mongo and memory packages.
type Store interface {
	// Insert persists a new definition and returns the assigned identity.
	Insert(ctx context.Context, def *schema.Definition) (string, error)
	// Get fetches a definition by identity.
	Get(ctx context.Context, id string) (*schema.Definition, error)
	// Versions returns all definitions for a (tenant, document type) pair,
	// ordered newest-version-first.
	Versions(ctx context.Context, tenantID, documentType string) ([]*schema.Definition, error)
	// Active returns the definition with is_active set for the pair.
	Active(ctx context.Context, tenantID, documentType string) (*schema.Definition, error)
	// All returns definitions across all tenants with offset/limit
	// pagination.
	All(ctx context.Context, skip, limit int64) ([]*schema.Definition, error)
	// Save replaces a definition by identity.
	Save(ctx context.Context, def *schema.Definition) error
	// Deactivate clears is_active on every definition of the pair except
	// the given identity, bumping updated_at, as one bulk conditional
	// update. It reports how many records changed.
	Deactivate(ctx context.Context, tenantID, documentType, exceptID string, now time.Time) (int64, error)
	// Delete removes a definition by identity and reports whether a record
	// existed.
	Delete(ctx context.Context, id string) (bool, error)
}
