package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/asaidimu/go-dyndocs/core/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_Collection(t *testing.T) {
	ctx := context.Background()
	provider := NewProvider()

	first, err := provider.Collection(ctx, "invoice")
	require.NoError(t, err)
	assert.Equal(t, "invoice", first.Name())

	again, err := provider.Collection(ctx, "invoice")
	require.NoError(t, err)
	assert.Same(t, first, again, "same handle per name")

	other, err := provider.Collection(ctx, "receipt")
	require.NoError(t, err)
	assert.NotSame(t, first, other)
}

func TestCollection_CRUD(t *testing.T) {
	ctx := context.Background()
	provider := NewProvider()
	coll, err := provider.Collection(ctx, "invoice")
	require.NoError(t, err)

	id, err := coll.InsertOne(ctx, map[string]any{"invoice_number": "INV-001", "amount": 1.0})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	t.Run("find one by id", func(t *testing.T) {
		doc, err := coll.FindOne(ctx, map[string]any{document.FieldID: id})
		require.NoError(t, err)
		require.NotNil(t, doc)
		assert.Equal(t, "INV-001", doc["invoice_number"])
	})

	t.Run("miss is nil, nil", func(t *testing.T) {
		doc, err := coll.FindOne(ctx, map[string]any{document.FieldID: "absent"})
		require.NoError(t, err)
		assert.Nil(t, doc)
	})

	t.Run("stored docs are isolated from caller maps", func(t *testing.T) {
		doc, err := coll.FindOne(ctx, map[string]any{document.FieldID: id})
		require.NoError(t, err)
		doc["invoice_number"] = "mutated"

		fresh, err := coll.FindOne(ctx, map[string]any{document.FieldID: id})
		require.NoError(t, err)
		assert.Equal(t, "INV-001", fresh["invoice_number"])
	})

	t.Run("update merges the set", func(t *testing.T) {
		matched, err := coll.UpdateOne(ctx, map[string]any{document.FieldID: id}, map[string]any{"amount": 2.0})
		require.NoError(t, err)
		assert.Equal(t, int64(1), matched)

		doc, err := coll.FindOne(ctx, map[string]any{document.FieldID: id})
		require.NoError(t, err)
		assert.Equal(t, 2.0, doc["amount"])
		assert.Equal(t, "INV-001", doc["invoice_number"])
	})

	t.Run("delete", func(t *testing.T) {
		deleted, err := coll.DeleteOne(ctx, map[string]any{document.FieldID: id})
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)

		deleted, err = coll.DeleteOne(ctx, map[string]any{document.FieldID: id})
		require.NoError(t, err)
		assert.Equal(t, int64(0), deleted)
	})
}

func TestCollection_Find(t *testing.T) {
	ctx := context.Background()
	provider := NewProvider()
	coll, err := provider.Collection(ctx, "invoice")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := coll.InsertOne(ctx, map[string]any{"n": i, "tenant_id": "t1"})
		require.NoError(t, err)
	}
	_, err = coll.InsertOne(ctx, map[string]any{"n": 99, "tenant_id": "t2"})
	require.NoError(t, err)

	t.Run("filter", func(t *testing.T) {
		docs, err := coll.Find(ctx, map[string]any{"tenant_id": "t1"}, 0, 0)
		require.NoError(t, err)
		assert.Len(t, docs, 5)
	})

	t.Run("insertion order with skip and limit", func(t *testing.T) {
		docs, err := coll.Find(ctx, map[string]any{"tenant_id": "t1"}, 1, 2)
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, 1, docs[0]["n"])
		assert.Equal(t, 2, docs[1]["n"])
	})

	t.Run("zero limit means unbounded", func(t *testing.T) {
		docs, err := coll.Find(ctx, map[string]any{}, 0, 0)
		require.NoError(t, err)
		assert.Len(t, docs, 6)
	})
}

func TestCollection_UniqueIndexes(t *testing.T) {
	ctx := context.Background()
	provider := NewProvider()
	coll, err := provider.Collection(ctx, "invoice")
	require.NoError(t, err)

	spec := document.IndexSpec{
		Name:   document.UniqueIndexName("invoice_number"),
		Keys:   []string{"invoice_number", document.FieldTenantID},
		Unique: true,
	}
	require.NoError(t, coll.EnsureIndex(ctx, spec))

	firstID, err := coll.InsertOne(ctx, map[string]any{"invoice_number": "INV-001", "tenant_id": "t1"})
	require.NoError(t, err)

	t.Run("insert collision", func(t *testing.T) {
		_, err := coll.InsertOne(ctx, map[string]any{"invoice_number": "INV-001", "tenant_id": "t1"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, document.ErrDuplicateKey))
	})

	t.Run("compound key scopes by tenant", func(t *testing.T) {
		_, err := coll.InsertOne(ctx, map[string]any{"invoice_number": "INV-001", "tenant_id": "t2"})
		require.NoError(t, err)
	})

	t.Run("update collision", func(t *testing.T) {
		id, err := coll.InsertOne(ctx, map[string]any{"invoice_number": "INV-002", "tenant_id": "t1"})
		require.NoError(t, err)

		_, err = coll.UpdateOne(ctx, map[string]any{document.FieldID: id}, map[string]any{"invoice_number": "INV-001"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, document.ErrDuplicateKey))
	})

	t.Run("self update is not a collision", func(t *testing.T) {
		matched, err := coll.UpdateOne(ctx, map[string]any{document.FieldID: firstID}, map[string]any{"amount": 5.0})
		require.NoError(t, err)
		assert.Equal(t, int64(1), matched)
	})
}

func TestCollection_IndexManagement(t *testing.T) {
	ctx := context.Background()
	provider := NewProvider()
	coll, err := provider.Collection(ctx, "invoice")
	require.NoError(t, err)

	spec := document.IndexSpec{Name: "tenant_id_1", Keys: []string{"tenant_id"}}
	require.NoError(t, coll.EnsureIndex(ctx, spec))
	require.NoError(t, coll.EnsureIndex(ctx, spec), "re-ensuring is a no-op")

	indexes, err := coll.Indexes(ctx)
	require.NoError(t, err)
	assert.Len(t, indexes, 1)

	require.NoError(t, coll.DropIndex(ctx, "tenant_id_1"))
	assert.Error(t, coll.DropIndex(ctx, "tenant_id_1"))
}
