package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func invoiceFields() []FieldDefinition {
	return []FieldDefinition{
		{Name: "amount", Type: FieldTypeNumber, Required: true},
		{Name: "status", Type: FieldTypeString, AllowedValues: []any{"open", "closed"}},
	}
}

func TestValidator_RequiredFieldMissing(t *testing.T) {
	v := NewValidator(invoiceFields())

	issues := v.Validate(map[string]any{}, false)
	require.Len(t, issues, 1)
	assert.Equal(t, "REQUIRED_FIELD_MISSING", issues[0].Code)
	assert.Contains(t, issues[0].Message, "amount")
}

func TestValidator_TypeMismatch(t *testing.T) {
	v := NewValidator(invoiceFields())

	issues := v.Validate(map[string]any{"amount": "10"}, false)
	require.Len(t, issues, 1)
	assert.Equal(t, "TYPE_MISMATCH", issues[0].Code)
	assert.Contains(t, issues[0].Message, "amount")
	assert.Contains(t, issues[0].Message, "number")
}

func TestValidator_AllowedValues(t *testing.T) {
	v := NewValidator(invoiceFields())

	issues := v.Validate(map[string]any{"amount": 10, "status": "paid"}, false)
	require.Len(t, issues, 1)
	assert.Equal(t, "ENUM_VIOLATION", issues[0].Code)
	assert.Contains(t, issues[0].Message, "status")
}

func TestValidator_ValidPayload(t *testing.T) {
	v := NewValidator(invoiceFields())

	issues := v.Validate(map[string]any{"amount": 10, "status": "open"}, false)
	assert.Empty(t, issues)
}

func TestValidator_AccumulatesAllViolations(t *testing.T) {
	v := NewValidator(invoiceFields())

	issues := v.Validate(map[string]any{"status": 42}, false)
	require.Len(t, issues, 2)

	codes := []string{issues[0].Code, issues[1].Code}
	assert.Contains(t, codes, "REQUIRED_FIELD_MISSING")
	assert.Contains(t, codes, "TYPE_MISMATCH")
}

func TestValidator_UndeclaredFieldsPassThrough(t *testing.T) {
	v := NewValidator(invoiceFields())

	issues := v.Validate(map[string]any{"amount": 10, "note": "anything", "extra": 1}, false)
	assert.Empty(t, issues)
}

func TestValidator_TypeChecks(t *testing.T) {
	fields := []FieldDefinition{
		{Name: "name", Type: FieldTypeString},
		{Name: "count", Type: FieldTypeNumber},
		{Name: "flag", Type: FieldTypeBoolean},
		{Name: "when", Type: FieldTypeDate},
		{Name: "tags", Type: FieldTypeArray},
		{Name: "meta", Type: FieldTypeObject},
	}
	v := NewValidator(fields)

	t.Run("all valid", func(t *testing.T) {
		issues := v.Validate(map[string]any{
			"name":  "widget",
			"count": 3.5,
			"flag":  true,
			"when":  "2026-01-15T10:00:00Z",
			"tags":  []any{"a", "b"},
			"meta":  map[string]any{"k": "v"},
		}, false)
		assert.Empty(t, issues)
	})

	t.Run("integers count as numbers", func(t *testing.T) {
		issues := v.Validate(map[string]any{"count": 3}, false)
		assert.Empty(t, issues)
	})

	t.Run("all mismatched", func(t *testing.T) {
		issues := v.Validate(map[string]any{
			"name":  1,
			"count": "3",
			"flag":  "true",
			"when":  20260115,
			"tags":  map[string]any{},
			"meta":  []any{},
		}, false)
		assert.Len(t, issues, 6)
		for _, issue := range issues {
			assert.Equal(t, "TYPE_MISMATCH", issue.Code)
		}
	})
}

func TestValidator_PartialMode(t *testing.T) {
	v := NewValidator(invoiceFields())

	t.Run("required fields not enforced", func(t *testing.T) {
		issues := v.Validate(map[string]any{}, true)
		assert.Empty(t, issues)
	})

	t.Run("supplied fields still checked", func(t *testing.T) {
		issues := v.Validate(map[string]any{"status": "paid"}, true)
		require.Len(t, issues, 1)
		assert.Equal(t, "ENUM_VIOLATION", issues[0].Code)
	})

	t.Run("type rules still apply", func(t *testing.T) {
		issues := v.Validate(map[string]any{"amount": false}, true)
		require.Len(t, issues, 1)
		assert.Equal(t, "TYPE_MISMATCH", issues[0].Code)
	})
}

func TestValidator_NumericAllowedValues(t *testing.T) {
	fields := []FieldDefinition{
		{Name: "priority", Type: FieldTypeNumber, AllowedValues: []any{1, 2, 3}},
	}
	v := NewValidator(fields)

	// JSON decoding yields float64; membership must still hold.
	issues := v.Validate(map[string]any{"priority": float64(2)}, false)
	assert.Empty(t, issues)

	issues = v.Validate(map[string]any{"priority": float64(9)}, false)
	require.Len(t, issues, 1)
	assert.Equal(t, "ENUM_VIOLATION", issues[0].Code)
}

func TestJoinIssues(t *testing.T) {
	issues := []Issue{
		{Message: "first"},
		{Message: "second"},
	}
	assert.Equal(t, "Validation errors: first; second", JoinIssues(issues))
}
