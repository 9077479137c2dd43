// Package engine exposes the schema engine's external contract: schema
// lifecycle operations delegated to the registry and document operations
// delegated to the access layer, with tenant existence checked up front and
// lifecycle events emitted for observability.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/asaidimu/go-dyndocs/core/document"
	"github.com/asaidimu/go-dyndocs/core/fault"
	"github.com/asaidimu/go-dyndocs/core/registry"
	"github.com/asaidimu/go-dyndocs/core/schema"
	"github.com/asaidimu/go-events"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TenantDirectory is the tenant existence oracle. The relational
// master-data service owns tenant records; the engine only asks whether an
// id is known before touching a tenant's documents.
type TenantDirectory interface {
	TenantExists(ctx context.Context, tenantID string) (bool, error)
}

// EventType names an engine lifecycle event.
type EventType string

const (
	EventSchemaCreated    EventType = "schema.created"
	EventSchemaActivated  EventType = "schema.activated"
	EventSchemaUpdated    EventType = "schema.updated"
	EventSchemaDeleted    EventType = "schema.deleted"
	EventDocumentsCreated EventType = "documents.created"
	EventDocumentUpdated  EventType = "document.updated"
	EventDocumentDeleted  EventType = "document.deleted"
)

// Event is the payload delivered to lifecycle subscribers.
type Event struct {
	Type         EventType `json:"type"`
	TenantID     string    `json:"tenant_id,omitempty"`
	DocumentType string    `json:"document_type,omitempty"`
	SubjectID    string    `json:"subject_id,omitempty"`
	Count        int       `json:"count,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// EventCallback is invoked for each matching lifecycle event.
type EventCallback func(ctx context.Context, event Event) error

// subscription pairs a callback's unsubscribe handle with its event type.
type subscription struct {
	event       EventType
	unsubscribe func()
}

// Engine wires the schema registry, the document access layer, and the
// tenant directory behind the engine's external contract.
type Engine struct {
	registry  *registry.Registry
	documents *document.Service
	tenants   TenantDirectory
	logger    *zap.Logger

	bus   *events.TypedEventBus[Event]
	subMu sync.Mutex
	subs  map[string]*subscription
}

// New creates an Engine. The tenant directory may be nil, in which case
// tenant ids are only checked for UUID shape.
func New(reg *registry.Registry, docs *document.Service, tenants TenantDirectory, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	bus, err := events.NewTypedEventBus[Event](events.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("could not initialize event bus: %w", err)
	}
	return &Engine{
		registry:  reg,
		documents: docs,
		tenants:   tenants,
		logger:    logger,
		bus:       bus,
		subs:      make(map[string]*subscription),
	}, nil
}

// emit publishes a lifecycle event.
func (e *Engine) emit(eventType EventType, tenantID, documentType, subjectID string, count int) {
	e.bus.Emit(string(eventType), Event{
		Type:         eventType,
		TenantID:     tenantID,
		DocumentType: documentType,
		SubjectID:    subjectID,
		Count:        count,
		Timestamp:    time.Now().UTC(),
	})
}

// checkTenant validates the tenant id shape and, when a directory is
// configured, the tenant's existence.
func (e *Engine) checkTenant(ctx context.Context, tenantID string) error {
	if _, err := uuid.Parse(tenantID); err != nil {
		return fault.New(fault.KindBadRequest, "invalid tenant_id format: %s", tenantID)
	}
	if e.tenants == nil {
		return nil
	}
	known, err := e.tenants.TenantExists(ctx, tenantID)
	if err != nil {
		return fault.Wrap(fault.KindBadRequest, err, "error checking tenant %s", tenantID)
	}
	if !known {
		return fault.New(fault.KindNotFound, "tenant with ID %s not found", tenantID)
	}
	return nil
}

// CreateSchema creates a batch of schema versions.
func (e *Engine) CreateSchema(ctx context.Context, requests []registry.CreateRequest) ([]*schema.Definition, error) {
	defs, err := e.registry.Create(ctx, requests)
	if err != nil {
		return nil, err
	}
	for _, def := range defs {
		e.emit(EventSchemaCreated, def.TenantID, def.DocumentType, def.ID, 1)
	}
	return defs, nil
}

// GetSchema fetches a schema version by identity.
func (e *Engine) GetSchema(ctx context.Context, schemaID string) (*schema.Definition, error) {
	return e.registry.Get(ctx, schemaID)
}

// GetActiveSchema resolves the single active schema version for a pair.
func (e *Engine) GetActiveSchema(ctx context.Context, tenantID, documentType string) (*schema.Definition, error) {
	return e.registry.GetActive(ctx, tenantID, documentType)
}

// ListSchemaVersions lists a pair's schema versions, newest first.
func (e *Engine) ListSchemaVersions(ctx context.Context, tenantID, documentType string) ([]*schema.Definition, error) {
	return e.registry.Versions(ctx, tenantID, documentType)
}

// ListSchemas lists schema versions across tenants with pagination.
func (e *Engine) ListSchemas(ctx context.Context, skip, limit int64) ([]*schema.Definition, error) {
	return e.registry.All(ctx, skip, limit)
}

// ActivateSchema makes a schema version the active one for its pair.
func (e *Engine) ActivateSchema(ctx context.Context, schemaID string) (*schema.Definition, error) {
	def, err := e.registry.Activate(ctx, schemaID)
	if err != nil {
		return nil, err
	}
	e.emit(EventSchemaActivated, def.TenantID, def.DocumentType, def.ID, 1)
	return def, nil
}

// UpdateSchema applies a partial update to a schema version.
func (e *Engine) UpdateSchema(ctx context.Context, schemaID string, patch registry.UpdateRequest) (*schema.Definition, error) {
	def, err := e.registry.Update(ctx, schemaID, patch)
	if err != nil {
		return nil, err
	}
	e.emit(EventSchemaUpdated, def.TenantID, def.DocumentType, def.ID, 1)
	return def, nil
}

// DeleteSchema hard-deletes a schema version.
func (e *Engine) DeleteSchema(ctx context.Context, schemaID string) error {
	if err := e.registry.Delete(ctx, schemaID); err != nil {
		return err
	}
	e.emit(EventSchemaDeleted, "", "", schemaID, 1)
	return nil
}

// CreateDocuments validates and inserts a batch of documents for a tenant.
func (e *Engine) CreateDocuments(ctx context.Context, tenantID, documentType string, payloads []map[string]any, actor string) ([]document.CreatedDocument, error) {
	if err := e.checkTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	created, err := e.documents.Create(ctx, tenantID, documentType, payloads, actor)
	if err != nil {
		return nil, err
	}
	e.emit(EventDocumentsCreated, tenantID, documentType, "", len(created))
	return created, nil
}

// GetDocument fetches a document by id within a tenant's scope.
func (e *Engine) GetDocument(ctx context.Context, tenantID, documentType, docID string) (map[string]any, error) {
	if err := e.checkTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	return e.documents.Get(ctx, tenantID, documentType, docID)
}

// ListDocuments lists a tenant's documents with pagination.
func (e *Engine) ListDocuments(ctx context.Context, tenantID, documentType string, skip, limit int64) ([]map[string]any, error) {
	if err := e.checkTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	return e.documents.List(ctx, tenantID, documentType, skip, limit)
}

// SearchDocuments ranks a tenant's documents by fuzzy similarity on one
// column, returning at most the top three matches at or above the default
// threshold.
func (e *Engine) SearchDocuments(ctx context.Context, tenantID, documentType, column, value string) ([]map[string]any, error) {
	if err := e.checkTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	return e.documents.Search(ctx, tenantID, documentType, column, value, document.DefaultThreshold, document.DefaultTopN)
}

// UpdateDocument applies a partial update to a document.
func (e *Engine) UpdateDocument(ctx context.Context, tenantID, documentType, docID string, patch map[string]any, actor string) (map[string]any, error) {
	if err := e.checkTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	updated, err := e.documents.Update(ctx, tenantID, documentType, docID, patch, actor)
	if err != nil {
		return nil, err
	}
	e.emit(EventDocumentUpdated, tenantID, documentType, docID, 1)
	return updated, nil
}

// DeleteDocument hard-deletes a document.
func (e *Engine) DeleteDocument(ctx context.Context, tenantID, documentType, docID string) error {
	if err := e.checkTenant(ctx, tenantID); err != nil {
		return err
	}
	if err := e.documents.Delete(ctx, tenantID, documentType, docID); err != nil {
		return err
	}
	e.emit(EventDocumentDeleted, tenantID, documentType, docID, 1)
	return nil
}

// RegisterSubscription registers a callback for a lifecycle event type and
// returns an id for later unregistration.
func (e *Engine) RegisterSubscription(eventType EventType, callback EventCallback) string {
	e.subMu.Lock()
	defer e.subMu.Unlock()

	unsubscribe := e.bus.Subscribe(string(eventType), func(ctx context.Context, event Event) error {
		return callback(ctx, event)
	})
	id := uuid.NewString()
	e.subs[id] = &subscription{event: eventType, unsubscribe: unsubscribe}
	return id
}

// UnregisterSubscription removes a subscription by id.
func (e *Engine) UnregisterSubscription(id string) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	if sub, ok := e.subs[id]; ok {
		sub.unsubscribe()
		delete(e.subs, id)
	}
}
