package document_test

import (
	"context"
	"testing"

	"github.com/asaidimu/go-dyndocs/core/document"
	"github.com/asaidimu/go-dyndocs/core/schema"
	"github.com/asaidimu/go-dyndocs/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_GetOrCreate(t *testing.T) {
	ctx := context.Background()
	cache := document.NewCache(memory.NewProvider(), nil)
	tenantID := uuid.NewString()

	fields := []schema.FieldDefinition{
		{Name: "invoice_number", Type: schema.FieldTypeString, Unique: true},
	}

	first, err := cache.GetOrCreate(ctx, "invoice", fields, tenantID)
	require.NoError(t, err)
	assert.Equal(t, "invoice", first.DocumentType)
	assert.Equal(t, tenantID, first.TenantID)

	field, ok := first.Field("invoice_number")
	require.True(t, ok)
	assert.True(t, field.Unique)
	_, ok = first.Field("missing")
	assert.False(t, ok)

	t.Run("returns the same config per key", func(t *testing.T) {
		again, err := cache.GetOrCreate(ctx, "invoice", fields, tenantID)
		require.NoError(t, err)
		assert.Same(t, first, again)
	})

	t.Run("retains the first field list", func(t *testing.T) {
		grown := append(fields, schema.FieldDefinition{Name: "amount", Type: schema.FieldTypeNumber})
		stale, err := cache.GetOrCreate(ctx, "invoice", grown, tenantID)
		require.NoError(t, err)
		assert.Len(t, stale.Fields, 1, "cached config keeps the fields it was built with")
	})

	t.Run("distinct tenants get distinct configs", func(t *testing.T) {
		other, err := cache.GetOrCreate(ctx, "invoice", fields, uuid.NewString())
		require.NoError(t, err)
		assert.NotSame(t, first, other)
	})

	t.Run("ensures baseline indexes", func(t *testing.T) {
		indexes, err := first.Collection.Indexes(ctx)
		require.NoError(t, err)
		names := make(map[string]bool)
		for _, index := range indexes {
			names[index.Name] = true
		}
		assert.True(t, names["tenant_id_1"])
		assert.True(t, names["created_at_1"])
		assert.True(t, names["updated_at_1"])
	})
}

func TestCache_ClearAndKeys(t *testing.T) {
	ctx := context.Background()
	cache := document.NewCache(memory.NewProvider(), nil)

	tenantA := "aaaaaaaa-0000-0000-0000-000000000000"
	tenantB := "bbbbbbbb-0000-0000-0000-000000000000"

	_, err := cache.GetOrCreate(ctx, "invoice", nil, tenantB)
	require.NoError(t, err)
	_, err = cache.GetOrCreate(ctx, "receipt", nil, tenantA)
	require.NoError(t, err)

	assert.Equal(t, []string{
		tenantA + "/receipt",
		tenantB + "/invoice",
	}, cache.Keys())

	cache.Clear()
	assert.Empty(t, cache.Keys())

	// A fresh config is built after invalidation.
	rebuilt, err := cache.GetOrCreate(ctx, "invoice", nil, tenantB)
	require.NoError(t, err)
	assert.NotNil(t, rebuilt)
}
