// Package schema defines the versioned schema model for tenant-authored
// document types, and the Validator that checks candidate documents against
// a schema's field definitions.
package schema

import (
	"fmt"
	"time"
)

// FieldType represents the basic field types supported by the schema system.
type FieldType string

const (
	FieldTypeString  FieldType = "string"  // Text data
	FieldTypeNumber  FieldType = "number"  // Numeric data, integer or float
	FieldTypeBoolean FieldType = "boolean" // True/false values
	FieldTypeDate    FieldType = "date"    // Text data in ISO-8601 form
	FieldTypeArray   FieldType = "array"   // Ordered list of items
	FieldTypeObject  FieldType = "object"  // Structured data, key-value mapping
)

// Valid reports whether t is a member of the closed type set.
func (t FieldType) Valid() bool {
	switch t {
	case FieldTypeString, FieldTypeNumber, FieldTypeBoolean, FieldTypeDate, FieldTypeArray, FieldTypeObject:
		return true
	}
	return false
}

// FieldDefinition is a declared, typed attribute within a schema version.
// Fields marked unique trigger a compound uniqueness index on
// (name, tenant_id) in the backing collection.
type FieldDefinition struct {
	Name          string    `json:"name" bson:"name"`
	Type          FieldType `json:"type" bson:"type"`
	Required      bool      `json:"required,omitempty" bson:"required,omitempty"`
	Unique        bool      `json:"unique,omitempty" bson:"unique,omitempty"`
	Default       any       `json:"default,omitempty" bson:"default,omitempty"`
	AllowedValues []any     `json:"allowed_values,omitempty" bson:"allowed_values,omitempty"`
	// RefSchema optionally names another document type this field refers to.
	// Informational only; no foreign-key enforcement.
	RefSchema   string `json:"ref_schema,omitempty" bson:"ref_schema,omitempty"`
	Description string `json:"description,omitempty" bson:"description,omitempty"`
}

// Definition is one stored version of a tenant's document-type schema.
// At most one Definition per (tenant_id, document_type) pair may be active
// at any time; the registry maintains that invariant.
type Definition struct {
	ID           string            `json:"_id,omitempty"`
	TenantID     string            `json:"tenant_id"`
	DocumentType string            `json:"document_type"`
	Version      int               `json:"version"`
	IsActive     bool              `json:"is_active"`
	Description  string            `json:"description,omitempty"`
	Fields       []FieldDefinition `json:"fields"`
	CreatedBy    string            `json:"created_by,omitempty"`
	UpdatedBy    string            `json:"updated_by,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Clone returns a deep copy of the definition. Stores hand out clones so
// that callers cannot mutate persisted state through a shared field slice.
func (d *Definition) Clone() *Definition {
	dup := *d
	dup.Fields = make([]FieldDefinition, len(d.Fields))
	copy(dup.Fields, d.Fields)
	return &dup
}

// ValidateFields checks a field-definition list for structural problems:
// empty or duplicate names and types outside the closed set.
func ValidateFields(fields []FieldDefinition) error {
	seen := make(map[string]bool, len(fields))
	for i, field := range fields {
		if field.Name == "" {
			return fmt.Errorf("field at position %d has no name", i)
		}
		if seen[field.Name] {
			return fmt.Errorf("duplicate field name %q", field.Name)
		}
		seen[field.Name] = true
		if !field.Type.Valid() {
			return fmt.Errorf("field %q has unknown type %q", field.Name, field.Type)
		}
	}
	return nil
}

// FieldMap builds a name-keyed lookup over a field-definition list.
func FieldMap(fields []FieldDefinition) map[string]FieldDefinition {
	m := make(map[string]FieldDefinition, len(fields))
	for _, field := range fields {
		m[field.Name] = field
	}
	return m
}
