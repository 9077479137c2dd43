package document

import (
	"context"
	"strings"

	"github.com/asaidimu/go-dyndocs/core/schema"
	"go.uber.org/zap"
)

// uniqueIndexSuffix is the deterministic naming convention for the compound
// uniqueness indexes the synchronizer owns. Only indexes matching this
// convention are ever dropped; the identity index and foreign indexes are
// left alone.
const uniqueIndexSuffix = "_1_" + FieldTenantID + "_1"

// UniqueIndexName derives the compound unique-index name for a field.
func UniqueIndexName(field string) string {
	return field + uniqueIndexSuffix
}

// Synchronizer reconciles a collection's compound uniqueness indexes with a
// schema's field definitions: indexes are created for newly-unique fields
// and dropped for fields no longer marked unique. Reconciliation is
// non-transactional and best-effort; individual create/drop failures are
// logged and skipped, and a partial reconciliation self-heals on the next
// write. The synchronizer never returns an error because index maintenance
// is an optimization, not a correctness requirement for validation.
type Synchronizer struct {
	logger *zap.Logger
}

// NewSynchronizer creates an index synchronizer.
func NewSynchronizer(logger *zap.Logger) *Synchronizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synchronizer{logger: logger}
}

// Reconcile brings the collection's unique indexes in line with the field
// definitions.
func (s *Synchronizer) Reconcile(ctx context.Context, collection Collection, fields []schema.FieldDefinition) {
	required := make(map[string]bool)

	for _, field := range fields {
		if !field.Unique {
			continue
		}
		name := UniqueIndexName(field.Name)
		required[name] = true

		spec := IndexSpec{
			Name:   name,
			Keys:   []string{field.Name, FieldTenantID},
			Unique: true,
		}
		if err := collection.EnsureIndex(ctx, spec); err != nil {
			// Tolerate already-exists races.
			s.logger.Warn("could not create unique index",
				zap.String("collection", collection.Name()),
				zap.String("index", name),
				zap.Error(err))
			continue
		}
		s.logger.Info("ensured unique compound index",
			zap.String("collection", collection.Name()),
			zap.String("index", name))
	}

	existing, err := collection.Indexes(ctx)
	if err != nil {
		s.logger.Warn("could not list indexes",
			zap.String("collection", collection.Name()),
			zap.Error(err))
		return
	}

	for _, index := range existing {
		if index.Name == "" || index.Name == "_id_" {
			continue
		}
		if !index.Unique || !strings.HasSuffix(index.Name, uniqueIndexSuffix) {
			continue
		}
		if required[index.Name] {
			continue
		}
		if err := collection.DropIndex(ctx, index.Name); err != nil {
			s.logger.Warn("could not drop obsolete unique index",
				zap.String("collection", collection.Name()),
				zap.String("index", index.Name),
				zap.Error(err))
			continue
		}
		s.logger.Info("dropped obsolete unique index",
			zap.String("collection", collection.Name()),
			zap.String("index", index.Name))
	}
}
