package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/asaidimu/go-dyndocs/core/registry"
	"github.com/asaidimu/go-dyndocs/core/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func definition(tenantID, documentType string, version int, active bool) *schema.Definition {
	return &schema.Definition{
		TenantID:     tenantID,
		DocumentType: documentType,
		Version:      version,
		IsActive:     active,
		Fields: []schema.FieldDefinition{
			{Name: "invoice_number", Type: schema.FieldTypeString},
		},
	}
}

func TestSchemaStore_Insert(t *testing.T) {
	ctx := context.Background()
	store := NewSchemaStore()

	id, err := store.Insert(ctx, definition("t1", "invoice", 1, false))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	t.Run("duplicate triple", func(t *testing.T) {
		_, err := store.Insert(ctx, definition("t1", "invoice", 1, false))
		require.Error(t, err)
		assert.True(t, errors.Is(err, registry.ErrDuplicateVersion))
	})

	t.Run("same version under other keys", func(t *testing.T) {
		_, err := store.Insert(ctx, definition("t2", "invoice", 1, false))
		require.NoError(t, err)
		_, err = store.Insert(ctx, definition("t1", "receipt", 1, false))
		require.NoError(t, err)
	})
}

func TestSchemaStore_GetClonesRecords(t *testing.T) {
	ctx := context.Background()
	store := NewSchemaStore()

	id, err := store.Insert(ctx, definition("t1", "invoice", 1, false))
	require.NoError(t, err)

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	got.Fields[0].Name = "mutated"

	fresh, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "invoice_number", fresh.Fields[0].Name)

	missing, err := store.Get(ctx, "absent")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSchemaStore_VersionsAndActive(t *testing.T) {
	ctx := context.Background()
	store := NewSchemaStore()

	for v := 1; v <= 3; v++ {
		_, err := store.Insert(ctx, definition("t1", "invoice", v, v == 2))
		require.NoError(t, err)
	}
	_, err := store.Insert(ctx, definition("t2", "invoice", 1, true))
	require.NoError(t, err)

	versions, err := store.Versions(ctx, "t1", "invoice")
	require.NoError(t, err)
	require.Len(t, versions, 3)
	assert.Equal(t, 3, versions[0].Version)
	assert.Equal(t, 1, versions[2].Version)

	active, err := store.Active(ctx, "t1", "invoice")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, 2, active.Version)

	none, err := store.Active(ctx, "t1", "receipt")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestSchemaStore_Deactivate(t *testing.T) {
	ctx := context.Background()
	store := NewSchemaStore()

	keepID, err := store.Insert(ctx, definition("t1", "invoice", 1, true))
	require.NoError(t, err)
	_, err = store.Insert(ctx, definition("t1", "invoice", 2, true))
	require.NoError(t, err)
	otherID, err := store.Insert(ctx, definition("t2", "invoice", 1, true))
	require.NoError(t, err)

	changed, err := store.Deactivate(ctx, "t1", "invoice", keepID, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(1), changed)

	kept, err := store.Get(ctx, keepID)
	require.NoError(t, err)
	assert.True(t, kept.IsActive)

	other, err := store.Get(ctx, otherID)
	require.NoError(t, err)
	assert.True(t, other.IsActive, "other pairs are untouched")

	active, err := store.Active(ctx, "t1", "invoice")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, keepID, active.ID)
}

func TestSchemaStore_SaveAndDelete(t *testing.T) {
	ctx := context.Background()
	store := NewSchemaStore()

	id, err := store.Insert(ctx, definition("t1", "invoice", 1, false))
	require.NoError(t, err)

	def, err := store.Get(ctx, id)
	require.NoError(t, err)
	def.Description = "updated"
	require.NoError(t, store.Save(ctx, def))

	saved, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "updated", saved.Description)

	assert.Error(t, store.Save(ctx, definition("t1", "invoice", 9, false)))

	existed, err := store.Delete(ctx, id)
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = store.Delete(ctx, id)
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestSchemaStore_All(t *testing.T) {
	ctx := context.Background()
	store := NewSchemaStore()

	for v := 1; v <= 5; v++ {
		_, err := store.Insert(ctx, definition("t1", "invoice", v, false))
		require.NoError(t, err)
	}

	page, err := store.All(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, 2, page[0].Version, "insertion order")

	tail, err := store.All(ctx, 4, 0)
	require.NoError(t, err)
	assert.Len(t, tail, 1)

	past, err := store.All(ctx, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, past)
}
