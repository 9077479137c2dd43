package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/asaidimu/go-dyndocs/core/document"
	"github.com/google/uuid"
)

// Provider hands out in-memory collections, creating each on first access.
type Provider struct {
	mu          sync.Mutex
	collections map[string]*Collection
}

var _ document.Provider = (*Provider)(nil)

// NewProvider creates an empty in-memory document store.
func NewProvider() *Provider {
	return &Provider{collections: make(map[string]*Collection)}
}

// Collection returns the named collection, creating it if absent.
func (p *Provider) Collection(ctx context.Context, name string) (document.Collection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	coll, ok := p.collections[name]
	if !ok {
		coll = &Collection{
			name:    name,
			docs:    make(map[string]map[string]any),
			indexes: make(map[string]document.IndexSpec),
		}
		p.collections[name] = coll
	}
	return coll, nil
}

// Collection is an in-memory document.Collection. Documents are stored as
// cloned maps; scan order is insertion order. Unique indexes are enforced
// on insert and update, mirroring the document store's behavior.
type Collection struct {
	name string

	mu      sync.RWMutex
	docs    map[string]map[string]any
	order   []string
	indexes map[string]document.IndexSpec
}

var _ document.Collection = (*Collection)(nil)

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// InsertOne stores a document and returns the assigned identity.
func (c *Collection) InsertOne(ctx context.Context, doc map[string]any) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkUnique(doc, ""); err != nil {
		return "", err
	}

	id := uuid.NewString()
	stored := cloneDoc(doc)
	stored[document.FieldID] = id
	c.docs[id] = stored
	c.order = append(c.order, id)
	return id, nil
}

// FindOne returns the first document matching the filter, (nil, nil) when
// none matches.
func (c *Collection) FindOne(ctx context.Context, filter map[string]any) (map[string]any, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, id := range c.order {
		if matches(c.docs[id], filter) {
			return cloneDoc(c.docs[id]), nil
		}
	}
	return nil, nil
}

// Find returns matching documents in insertion order with skip/limit.
func (c *Collection) Find(ctx context.Context, filter map[string]any, skip, limit int64) ([]map[string]any, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []map[string]any
	var seen int64
	for _, id := range c.order {
		if !matches(c.docs[id], filter) {
			continue
		}
		seen++
		if seen <= skip {
			continue
		}
		out = append(out, cloneDoc(c.docs[id]))
		if limit > 0 && int64(len(out)) >= limit {
			break
		}
	}
	return out, nil
}

// UpdateOne merges the change set into the first matching document.
func (c *Collection) UpdateOne(ctx context.Context, filter, set map[string]any) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, id := range c.order {
		doc := c.docs[id]
		if !matches(doc, filter) {
			continue
		}
		merged := cloneDoc(doc)
		for key, value := range set {
			merged[key] = value
		}
		if err := c.checkUnique(merged, id); err != nil {
			return 0, err
		}
		c.docs[id] = merged
		return 1, nil
	}
	return 0, nil
}

// DeleteOne removes the first matching document.
func (c *Collection) DeleteOne(ctx context.Context, filter map[string]any) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, id := range c.order {
		if !matches(c.docs[id], filter) {
			continue
		}
		delete(c.docs, id)
		c.order = append(c.order[:i], c.order[i+1:]...)
		return 1, nil
	}
	return 0, nil
}

// EnsureIndex records an index; creating an existing name is a no-op.
func (c *Collection) EnsureIndex(ctx context.Context, spec document.IndexSpec) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.indexes[spec.Name]; ok {
		return nil
	}
	c.indexes[spec.Name] = spec
	return nil
}

// Indexes lists the collection's indexes.
func (c *Collection) Indexes(ctx context.Context) ([]document.IndexSpec, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]document.IndexSpec, 0, len(c.indexes))
	for _, spec := range c.indexes {
		out = append(out, spec)
	}
	return out, nil
}

// DropIndex removes an index by name.
func (c *Collection) DropIndex(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.indexes[name]; !ok {
		return fmt.Errorf("index %s not found", name)
	}
	delete(c.indexes, name)
	return nil
}

// checkUnique enforces the collection's unique indexes against a candidate
// document, ignoring the document identified by selfID.
func (c *Collection) checkUnique(candidate map[string]any, selfID string) error {
	for _, spec := range c.indexes {
		if !spec.Unique {
			continue
		}
		for _, id := range c.order {
			if id == selfID {
				continue
			}
			existing := c.docs[id]
			same := true
			for _, key := range spec.Keys {
				if fmt.Sprintf("%v", existing[key]) != fmt.Sprintf("%v", candidate[key]) {
					same = false
					break
				}
			}
			if same {
				return fmt.Errorf("%w: index %s", document.ErrDuplicateKey, spec.Name)
			}
		}
	}
	return nil
}

// matches applies an equality filter against a document.
func matches(doc, filter map[string]any) bool {
	for key, want := range filter {
		if fmt.Sprintf("%v", doc[key]) != fmt.Sprintf("%v", want) {
			return false
		}
	}
	return true
}

// cloneDoc shallow-copies a document map.
func cloneDoc(doc map[string]any) map[string]any {
	dup := make(map[string]any, len(doc))
	for key, value := range doc {
		dup[key] = value
	}
	return dup
}
