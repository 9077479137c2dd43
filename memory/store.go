// Package memory provides in-memory implementations of the registry store
// and the document-store interfaces. It backs the test suites and the demo
// binary; semantics mirror the mongo package, including unique-index
// enforcement on insert and update.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/asaidimu/go-dyndocs/core/registry"
	"github.com/asaidimu/go-dyndocs/core/schema"
	"github.com/google/uuid"
)

// SchemaStore is an in-memory registry.Store.
type SchemaStore struct {
	mu   sync.RWMutex
	defs map[string]*schema.Definition
	// order preserves insertion order for All.
	order []string
}

var _ registry.Store = (*SchemaStore)(nil)

// NewSchemaStore creates an empty in-memory schema store.
func NewSchemaStore() *SchemaStore {
	return &SchemaStore{defs: make(map[string]*schema.Definition)}
}

// Insert persists a new definition, enforcing the
// (tenant_id, document_type, version) uniqueness constraint.
func (s *SchemaStore) Insert(ctx context.Context, def *schema.Definition) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.defs {
		if existing.TenantID == def.TenantID &&
			existing.DocumentType == def.DocumentType &&
			existing.Version == def.Version {
			return "", fmt.Errorf("%w: %s v%d", registry.ErrDuplicateVersion, def.DocumentType, def.Version)
		}
	}

	id := uuid.NewString()
	stored := def.Clone()
	stored.ID = id
	s.defs[id] = stored
	s.order = append(s.order, id)
	return id, nil
}

// Get fetches a definition by identity, (nil, nil) when absent.
func (s *SchemaStore) Get(ctx context.Context, id string) (*schema.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, ok := s.defs[id]
	if !ok {
		return nil, nil
	}
	return def.Clone(), nil
}

// Versions returns all definitions for the pair, newest-version-first.
func (s *SchemaStore) Versions(ctx context.Context, tenantID, documentType string) ([]*schema.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*schema.Definition
	for _, def := range s.defs {
		if def.TenantID == tenantID && def.DocumentType == documentType {
			out = append(out, def.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version > out[j].Version })
	return out, nil
}

// Active returns the active definition for the pair, (nil, nil) when none.
func (s *SchemaStore) Active(ctx context.Context, tenantID, documentType string) (*schema.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, def := range s.defs {
		if def.TenantID == tenantID && def.DocumentType == documentType && def.IsActive {
			return def.Clone(), nil
		}
	}
	return nil, nil
}

// All returns definitions in insertion order with offset/limit pagination.
func (s *SchemaStore) All(ctx context.Context, skip, limit int64) ([]*schema.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*schema.Definition
	for _, id := range s.order {
		if def, ok := s.defs[id]; ok {
			out = append(out, def.Clone())
		}
	}
	if skip > 0 {
		if skip >= int64(len(out)) {
			return nil, nil
		}
		out = out[skip:]
	}
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Save replaces a definition by identity.
func (s *SchemaStore) Save(ctx context.Context, def *schema.Definition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.defs[def.ID]; !ok {
		return fmt.Errorf("schema %s does not exist", def.ID)
	}
	s.defs[def.ID] = def.Clone()
	return nil
}

// Deactivate clears is_active on every definition of the pair except the
// given identity, as a single pass under the store lock.
func (s *SchemaStore) Deactivate(ctx context.Context, tenantID, documentType, exceptID string, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var changed int64
	for _, def := range s.defs {
		if def.TenantID != tenantID || def.DocumentType != documentType || def.ID == exceptID {
			continue
		}
		if def.IsActive {
			def.IsActive = false
			def.UpdatedAt = now
			changed++
		}
	}
	return changed, nil
}

// Delete removes a definition by identity.
func (s *SchemaStore) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.defs[id]; !ok {
		return false, nil
	}
	delete(s.defs, id)
	for i, stored := range s.order {
		if stored == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true, nil
}
