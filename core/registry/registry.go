package registry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/asaidimu/go-dyndocs/core/fault"
	"github.com/asaidimu/go-dyndocs/core/schema"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateRequest describes one schema version to create. Version zero means
// auto-assign (max existing + 1).
type CreateRequest struct {
	TenantID     string                   `json:"tenant_id"`
	DocumentType string                   `json:"document_type"`
	Fields       []schema.FieldDefinition `json:"fields"`
	IsActive     bool                     `json:"is_active"`
	Description  string                   `json:"description,omitempty"`
	Version      int                      `json:"version,omitempty"`
	CreatedBy    string                   `json:"created_by,omitempty"`
}

// UpdateRequest is a partial schema update. Nil members are left unchanged.
type UpdateRequest struct {
	Fields      []schema.FieldDefinition `json:"fields,omitempty"`
	Description *string                  `json:"description,omitempty"`
	IsActive    *bool                    `json:"is_active,omitempty"`
	UpdatedBy   string                   `json:"updated_by,omitempty"`
}

// Registry manages versioned schema definitions and enforces the invariant
// that at most one version per (tenant, document type) pair is active.
// Activation sequences (deactivate siblings, then activate the target) are
// serialized through a per-pair mutex and the sibling sweep is a single
// bulk conditional update in the store, so concurrent activations cannot
// leave the pair with two active versions.
type Registry struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

// New creates a schema registry over a Store.
func New(store Store, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		locks:  make(map[string]*sync.Mutex),
	}
}

// pairLock returns the mutex serializing activation for a
// (tenant, document type) pair.
func (r *Registry) pairLock(tenantID, documentType string) *sync.Mutex {
	r.lockMu.Lock()
	defer r.lockMu.Unlock()
	key := tenantID + "/" + documentType
	lock, ok := r.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[key] = lock
	}
	return lock
}

// Create validates and persists a batch of schema versions. Within the
// batch, duplicate (tenant, document type) pairs are rejected before any
// insert. Per item: field names must be unique and typed from the closed
// set; an explicit version that already exists is a Conflict; an omitted
// version is assigned max(existing)+1. When is_active is requested the
// other versions of the pair are deactivated first.
func (r *Registry) Create(ctx context.Context, requests []CreateRequest) ([]*schema.Definition, error) {
	if len(requests) == 0 {
		return nil, fault.New(fault.KindBadRequest, "schemas list cannot be empty")
	}

	for i, req := range requests {
		if _, err := uuid.Parse(req.TenantID); err != nil {
			return nil, fault.New(fault.KindBadRequest,
				"invalid tenant_id format at position %d: %s", i, req.TenantID)
		}
		if req.DocumentType == "" {
			return nil, fault.New(fault.KindBadRequest, "document_type cannot be empty at position %d", i)
		}
		if err := schema.ValidateFields(req.Fields); err != nil {
			return nil, fault.Wrap(fault.KindBadRequest, err, "invalid fields at position %d", i)
		}
	}

	// Reject duplicate pairs within the batch before touching the store.
	pairs := make(map[string]bool, len(requests))
	for _, req := range requests {
		key := req.TenantID + "/" + req.DocumentType
		if pairs[key] {
			return nil, fault.New(fault.KindConflict,
				"duplicate document type in batch for tenant %s: %s", req.TenantID, req.DocumentType)
		}
		pairs[key] = true
	}

	created := make([]*schema.Definition, 0, len(requests))
	for _, req := range requests {
		def, err := r.createOne(ctx, req)
		if err != nil {
			return nil, err
		}
		created = append(created, def)
	}

	r.logger.Info("created schemas", zap.Int("count", len(created)))
	return created, nil
}

// createOne persists a single schema version under the pair's activation lock.
func (r *Registry) createOne(ctx context.Context, req CreateRequest) (*schema.Definition, error) {
	lock := r.pairLock(req.TenantID, req.DocumentType)
	lock.Lock()
	defer lock.Unlock()

	existing, err := r.store.Versions(ctx, req.TenantID, req.DocumentType)
	if err != nil {
		return nil, fault.Wrap(fault.KindBadRequest, err, "error listing schema versions")
	}

	version := req.Version
	if version != 0 {
		for _, def := range existing {
			if def.Version == version {
				return nil, fault.New(fault.KindConflict,
					"schema %s version %d already exists for tenant %s",
					req.DocumentType, version, req.TenantID)
			}
		}
	} else {
		// Versions are newest-first; deleted versions do not block renumbering.
		version = 1
		if len(existing) > 0 {
			version = existing[0].Version + 1
		}
	}

	now := r.now()
	if req.IsActive {
		if _, err := r.store.Deactivate(ctx, req.TenantID, req.DocumentType, "", now); err != nil {
			return nil, fault.Wrap(fault.KindBadRequest, err, "error deactivating sibling versions")
		}
	}

	def := &schema.Definition{
		TenantID:     req.TenantID,
		DocumentType: req.DocumentType,
		Version:      version,
		IsActive:     req.IsActive,
		Description:  req.Description,
		Fields:       req.Fields,
		CreatedBy:    req.CreatedBy,
		UpdatedBy:    req.CreatedBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	id, err := r.store.Insert(ctx, def)
	if err != nil {
		if errors.Is(err, ErrDuplicateVersion) {
			return nil, fault.Wrap(fault.KindConflict, err,
				"schema %s version %d already exists for tenant %s",
				req.DocumentType, version, req.TenantID)
		}
		return nil, fault.Wrap(fault.KindBadRequest, err, "error creating schema %s", req.DocumentType)
	}
	def.ID = id

	r.logger.Info("created schema version",
		zap.String("tenant_id", def.TenantID),
		zap.String("document_type", def.DocumentType),
		zap.Int("version", def.Version),
		zap.Bool("is_active", def.IsActive))

	return def, nil
}

// Get fetches a schema definition by identity.
func (r *Registry) Get(ctx context.Context, id string) (*schema.Definition, error) {
	def, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, fault.Wrap(fault.KindBadRequest, err, "error retrieving schema %s", id)
	}
	if def == nil {
		return nil, fault.New(fault.KindNotFound, "schema with ID %s not found", id)
	}
	return def, nil
}

// GetActive returns the unique active schema version for a
// (tenant, document type) pair.
func (r *Registry) GetActive(ctx context.Context, tenantID, documentType string) (*schema.Definition, error) {
	def, err := r.store.Active(ctx, tenantID, documentType)
	if err != nil {
		return nil, fault.Wrap(fault.KindBadRequest, err, "error retrieving active schema for %s", documentType)
	}
	if def == nil {
		return nil, fault.New(fault.KindNotFound,
			"no active schema version for %s of tenant %s", documentType, tenantID)
	}
	return def, nil
}

// Versions returns all versions of a document type's schema for a tenant,
// ordered newest-version-first.
func (r *Registry) Versions(ctx context.Context, tenantID, documentType string) ([]*schema.Definition, error) {
	defs, err := r.store.Versions(ctx, tenantID, documentType)
	if err != nil {
		return nil, fault.Wrap(fault.KindBadRequest, err, "error listing schema versions for %s", documentType)
	}
	return defs, nil
}

// All returns schema definitions across tenants with offset/limit pagination.
func (r *Registry) All(ctx context.Context, skip, limit int64) ([]*schema.Definition, error) {
	defs, err := r.store.All(ctx, skip, limit)
	if err != nil {
		return nil, fault.Wrap(fault.KindBadRequest, err, "error listing schemas")
	}
	return defs, nil
}

// Activate makes the identified version the single active one for its
// (tenant, document type) pair: siblings are deactivated in one bulk update,
// then the target is saved active.
func (r *Registry) Activate(ctx context.Context, id string) (*schema.Definition, error) {
	def, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	lock := r.pairLock(def.TenantID, def.DocumentType)
	lock.Lock()
	defer lock.Unlock()

	now := r.now()
	if _, err := r.store.Deactivate(ctx, def.TenantID, def.DocumentType, def.ID, now); err != nil {
		return nil, fault.Wrap(fault.KindBadRequest, err, "error deactivating sibling versions")
	}

	def.IsActive = true
	def.UpdatedAt = now
	if err := r.store.Save(ctx, def); err != nil {
		return nil, fault.Wrap(fault.KindBadRequest, err, "error activating schema %s", id)
	}

	r.logger.Info("activated schema version",
		zap.String("tenant_id", def.TenantID),
		zap.String("document_type", def.DocumentType),
		zap.Int("version", def.Version))

	return def, nil
}

// Update applies a partial update to a schema definition. Toggling
// is_active on triggers the same sibling deactivation as Activate.
func (r *Registry) Update(ctx context.Context, id string, patch UpdateRequest) (*schema.Definition, error) {
	def, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	lock := r.pairLock(def.TenantID, def.DocumentType)
	lock.Lock()
	defer lock.Unlock()

	if patch.Fields != nil {
		if err := schema.ValidateFields(patch.Fields); err != nil {
			return nil, fault.Wrap(fault.KindBadRequest, err, "invalid fields")
		}
		def.Fields = patch.Fields
	}
	if patch.Description != nil {
		def.Description = *patch.Description
	}

	now := r.now()
	if patch.IsActive != nil && *patch.IsActive != def.IsActive {
		if *patch.IsActive {
			if _, err := r.store.Deactivate(ctx, def.TenantID, def.DocumentType, def.ID, now); err != nil {
				return nil, fault.Wrap(fault.KindBadRequest, err, "error deactivating sibling versions")
			}
		}
		def.IsActive = *patch.IsActive
	}
	if patch.UpdatedBy != "" {
		def.UpdatedBy = patch.UpdatedBy
	}
	def.UpdatedAt = now

	if err := r.store.Save(ctx, def); err != nil {
		return nil, fault.Wrap(fault.KindBadRequest, err, "error updating schema %s", id)
	}

	r.logger.Info("updated schema version",
		zap.String("tenant_id", def.TenantID),
		zap.String("document_type", def.DocumentType),
		zap.Int("version", def.Version))

	return def, nil
}

// Delete hard-deletes a schema version. Documents created under the
// deleted schema remain; operations against the document type simply fail
// to resolve an active version if none is left.
func (r *Registry) Delete(ctx context.Context, id string) error {
	existed, err := r.store.Delete(ctx, id)
	if err != nil {
		return fault.Wrap(fault.KindBadRequest, err, "error deleting schema %s", id)
	}
	if !existed {
		return fault.New(fault.KindNotFound, "schema with ID %s not found", id)
	}
	r.logger.Info("deleted schema version", zap.String("schema_id", id))
	return nil
}
