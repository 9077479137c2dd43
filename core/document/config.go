package document

import (
	"context"
	"sort"
	"sync"

	"github.com/asaidimu/go-dyndocs/core/schema"
	"go.uber.org/zap"
)

// Config is a process-local, cached binding of a (tenant, document type)
// pair to its backing collection handle and the field definitions it was
// built with. Configs are created lazily and never refreshed within a
// process lifetime: if the active schema's field list changes after the
// config was cached, the cached field list is stale until Clear is called.
// That trade is deliberate (resolution cost over freshness); Clear is the
// documented invalidation trigger.
type Config struct {
	DocumentType string
	TenantID     string
	Fields       []schema.FieldDefinition
	Collection   Collection

	fieldsByName map[string]schema.FieldDefinition
}

// Field looks up a field definition by name.
func (c *Config) Field(name string) (schema.FieldDefinition, bool) {
	field, ok := c.fieldsByName[name]
	return field, ok
}

// Cache is the process-wide registry of collection configs, keyed by
// (tenant id, document type). At most one Config exists per key for the
// life of the process; racing first accesses are resolved by a mutex
// around insert-if-absent, so the first writer wins.
type Cache struct {
	provider Provider
	logger   *zap.Logger

	mu      sync.Mutex
	configs map[string]*Config
}

// NewCache creates a collection config cache over a Provider.
func NewCache(provider Provider, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		provider: provider,
		logger:   logger,
		configs:  make(map[string]*Config),
	}
}

// configKey builds the composite cache key.
func configKey(tenantID, documentType string) string {
	return tenantID + "/" + documentType
}

// GetOrCreate returns the cached Config for the (tenant, document type)
// pair, building one on first access: the backing collection handle is
// obtained from the provider, baseline indexes on the tenant scoping key
// and both timestamp fields are ensured, and the handle is wrapped with
// the given field list. Subsequent calls return the same Config even when
// the fields argument differs from the cached one.
func (c *Cache) GetOrCreate(ctx context.Context, documentType string, fields []schema.FieldDefinition, tenantID string) (*Config, error) {
	key := configKey(tenantID, documentType)

	c.mu.Lock()
	defer c.mu.Unlock()

	if config, ok := c.configs[key]; ok {
		c.logger.Debug("using cached collection config", zap.String("key", key))
		return config, nil
	}

	collection, err := c.provider.Collection(ctx, documentType)
	if err != nil {
		return nil, err
	}

	for _, field := range []string{FieldTenantID, FieldCreatedAt, FieldUpdatedAt} {
		spec := IndexSpec{Name: field + "_1", Keys: []string{field}}
		if err := collection.EnsureIndex(ctx, spec); err != nil {
			c.logger.Warn("failed to ensure baseline index",
				zap.String("collection", documentType),
				zap.String("index", spec.Name),
				zap.Error(err))
		}
	}

	config := &Config{
		DocumentType: documentType,
		TenantID:     tenantID,
		Fields:       fields,
		Collection:   collection,
		fieldsByName: schema.FieldMap(fields),
	}
	c.configs[key] = config
	c.logger.Info("registered collection config", zap.String("key", key))

	return config, nil
}

// Clear drops all cached configs. Used for test isolation and as the
// operational reset after schema edits.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.configs = make(map[string]*Config)
	c.logger.Info("collection config cache cleared")
}

// Keys returns the composite keys of all registered configs, sorted.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.configs))
	for key := range c.configs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
