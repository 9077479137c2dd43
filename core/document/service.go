package document

import (
	"context"
	"errors"
	"time"

	"github.com/asaidimu/go-dyndocs/core/fault"
	"github.com/asaidimu/go-dyndocs/core/schema"
	"go.uber.org/zap"
)

// ActiveSchemaSource resolves the single active schema version for a
// (tenant, document type) pair. Satisfied by registry.Registry.
type ActiveSchemaSource interface {
	GetActive(ctx context.Context, tenantID, documentType string) (*schema.Definition, error)
}

// CreatedDocument echoes a successful insert: the assigned identity plus
// the fields the caller supplied.
type CreatedDocument struct {
	ID           string         `json:"id"`
	DocumentType string         `json:"document_type"`
	TenantID     string         `json:"tenant_id"`
	Data         map[string]any `json:"data"`
	CreatedAt    string         `json:"created_at"`
	CreatedBy    string         `json:"created_by,omitempty"`
}

// Service is the document access layer. Every operation resolves the active
// schema for the document type, obtains the cached collection config,
// reconciles unique indexes, validates the payload, and then performs the
// storage operation.
type Service struct {
	schemas ActiveSchemaSource
	cache   *Cache
	indexes *Synchronizer
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates a document access layer over an active-schema source
// and a collection config cache.
func NewService(schemas ActiveSchemaSource, cache *Cache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		schemas: schemas,
		cache:   cache,
		indexes: NewSynchronizer(logger),
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// resolve fetches the active schema and the collection config for a
// (tenant, document type) pair.
func (s *Service) resolve(ctx context.Context, tenantID, documentType string) (*schema.Definition, *Config, error) {
	active, err := s.schemas.GetActive(ctx, tenantID, documentType)
	if err != nil {
		return nil, nil, err
	}
	config, err := s.cache.GetOrCreate(ctx, documentType, active.Fields, tenantID)
	if err != nil {
		return nil, nil, fault.Wrap(fault.KindBadRequest, err, "error resolving collection for %s", documentType)
	}
	return active, config, nil
}

// Create validates and inserts a batch of documents. Each payload is
// validated against the active schema, stamped with the tenant scoping key,
// timestamps, and actor ids, and inserted individually; there is no
// cross-item transaction, so a mid-batch failure leaves earlier inserts in
// place.
func (s *Service) Create(ctx context.Context, tenantID, documentType string, payloads []map[string]any, actor string) ([]CreatedDocument, error) {
	if len(payloads) == 0 {
		return nil, fault.New(fault.KindBadRequest, "documents list cannot be empty")
	}

	active, config, err := s.resolve(ctx, tenantID, documentType)
	if err != nil {
		return nil, err
	}

	s.indexes.Reconcile(ctx, config.Collection, active.Fields)

	validator := schema.NewValidator(config.Fields)
	created := make([]CreatedDocument, 0, len(payloads))
	for _, payload := range payloads {
		if issues := validator.Validate(payload, false); len(issues) > 0 {
			return nil, fault.New(fault.KindUnprocessable, "%s", schema.JoinIssues(issues))
		}

		now := s.now()
		doc := stampForInsert(payload, tenantID, actor, now)
		id, err := config.Collection.InsertOne(ctx, doc)
		if err != nil {
			if errors.Is(err, ErrDuplicateKey) {
				return nil, fault.Wrap(fault.KindConflict, err, "duplicate value for unique field in %s", documentType)
			}
			return nil, fault.Wrap(fault.KindBadRequest, err, "error creating document in %s", documentType)
		}

		created = append(created, CreatedDocument{
			ID:           id,
			DocumentType: documentType,
			TenantID:     tenantID,
			Data:         payload,
			CreatedAt:    now.Format(time.RFC3339Nano),
			CreatedBy:    actor,
		})
	}

	s.logger.Info("created documents",
		zap.String("collection", documentType),
		zap.String("tenant_id", tenantID),
		zap.Int("count", len(created)))

	return created, nil
}

// Get fetches a document by id, filtered by both id and tenant so that
// cross-tenant reads miss rather than leak.
func (s *Service) Get(ctx context.Context, tenantID, documentType, docID string) (map[string]any, error) {
	_, config, err := s.resolve(ctx, tenantID, documentType)
	if err != nil {
		return nil, err
	}

	doc, err := s.findOwned(ctx, config, docID, tenantID)
	if err != nil {
		return nil, err
	}

	return serializeDocument(doc), nil
}

// List returns documents for a tenant with offset/limit pagination.
func (s *Service) List(ctx context.Context, tenantID, documentType string, skip, limit int64) ([]map[string]any, error) {
	_, config, err := s.resolve(ctx, tenantID, documentType)
	if err != nil {
		return nil, err
	}

	docs, err := config.Collection.Find(ctx, map[string]any{FieldTenantID: tenantID}, skip, limit)
	if err != nil {
		return nil, fault.Wrap(fault.KindBadRequest, err, "error retrieving documents from %s", documentType)
	}

	out := make([]map[string]any, len(docs))
	for i, doc := range docs {
		out[i] = serializeDocument(doc)
	}
	return out, nil
}

// Update partial-validates the supplied fields, verifies the document
// exists and belongs to the tenant, applies a merge-style update, and
// returns the post-update document.
func (s *Service) Update(ctx context.Context, tenantID, documentType, docID string, patch map[string]any, actor string) (map[string]any, error) {
	_, config, err := s.resolve(ctx, tenantID, documentType)
	if err != nil {
		return nil, err
	}

	validator := schema.NewValidator(config.Fields)
	if issues := validator.Validate(patch, true); len(issues) > 0 {
		return nil, fault.New(fault.KindUnprocessable, "%s", schema.JoinIssues(issues))
	}

	if _, err := s.findOwned(ctx, config, docID, tenantID); err != nil {
		return nil, err
	}

	filter := map[string]any{FieldID: docID, FieldTenantID: tenantID}
	matched, err := config.Collection.UpdateOne(ctx, filter, updateSet(patch, actor, s.now()))
	if err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			return nil, fault.Wrap(fault.KindConflict, err, "duplicate value for unique field in %s", documentType)
		}
		return nil, fault.Wrap(fault.KindBadRequest, err, "error updating document in %s", documentType)
	}
	if matched == 0 {
		s.logger.Warn("document vanished between ownership check and update",
			zap.String("collection", documentType),
			zap.String("document_id", docID))
	}

	updated, err := s.findOwned(ctx, config, docID, tenantID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("updated document",
		zap.String("collection", documentType),
		zap.String("document_id", docID))

	return serializeDocument(updated), nil
}

// Delete verifies existence and tenant ownership, then hard-deletes the
// document. There is no soft-delete or tombstone.
func (s *Service) Delete(ctx context.Context, tenantID, documentType, docID string) error {
	_, config, err := s.resolve(ctx, tenantID, documentType)
	if err != nil {
		return err
	}

	if _, err := s.findOwned(ctx, config, docID, tenantID); err != nil {
		return err
	}

	filter := map[string]any{FieldID: docID, FieldTenantID: tenantID}
	deleted, err := config.Collection.DeleteOne(ctx, filter)
	if err != nil {
		return fault.Wrap(fault.KindBadRequest, err, "error deleting document from %s", documentType)
	}
	if deleted == 0 {
		return fault.New(fault.KindNotFound, "failed to delete document %s", docID)
	}

	s.logger.Info("deleted document",
		zap.String("collection", documentType),
		zap.String("document_id", docID))

	return nil
}

// findOwned fetches a document by id and tenant, translating a miss into
// NotFound and a malformed id into BadRequest.
func (s *Service) findOwned(ctx context.Context, config *Config, docID, tenantID string) (map[string]any, error) {
	filter := map[string]any{FieldID: docID, FieldTenantID: tenantID}
	doc, err := config.Collection.FindOne(ctx, filter)
	if err != nil {
		if errors.Is(err, ErrInvalidID) {
			return nil, fault.Wrap(fault.KindBadRequest, err, "invalid document id %q", docID)
		}
		return nil, fault.Wrap(fault.KindBadRequest, err, "error retrieving document %s", docID)
	}
	if doc == nil {
		return nil, fault.New(fault.KindNotFound, "document with ID %s not found in %s", docID, config.DocumentType)
	}
	return doc, nil
}
