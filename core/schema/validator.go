package schema

import (
	"fmt"
	"reflect"
	"strings"
)

// Issue describes a single validation failure. All issues found in one
// validation pass are reported together rather than failing fast.
type Issue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field"`
}

// Validator checks candidate document payloads against a field-definition
// list. Validation is an allow-list over declared rules, not a closed-world
// schema: payload fields with no matching definition pass through untouched.
// The validator performs no I/O; uniqueness is left to storage indexes.
type Validator struct {
	fields []FieldDefinition
	byName map[string]FieldDefinition
	issues []Issue
}

// NewValidator creates a Validator for a field-definition list. The returned
// validator can be reused across payloads.
func NewValidator(fields []FieldDefinition) *Validator {
	return &Validator{
		fields: fields,
		byName: FieldMap(fields),
		issues: make([]Issue, 0),
	}
}

// Validate checks a payload against the validator's field definitions and
// returns all issues found. With partial set, only the fields actually
// present in the payload are checked and required-ness is not enforced;
// this is the update-time mode.
func (v *Validator) Validate(payload map[string]any, partial bool) []Issue {
	v.issues = make([]Issue, 0)

	if partial {
		for name, value := range payload {
			field, declared := v.byName[name]
			if !declared {
				continue
			}
			v.validateValue(value, field)
		}
		return v.issues
	}

	for _, field := range v.fields {
		value, exists := payload[field.Name]
		if field.Required && !exists {
			v.addIssue("REQUIRED_FIELD_MISSING", fmt.Sprintf("Required field '%s' is missing", field.Name), field.Name)
			continue
		}
		if !exists {
			continue
		}
		v.validateValue(value, field)
	}

	return v.issues
}

// validateValue applies the type check and allowed-values check for one field.
func (v *Validator) validateValue(value any, field FieldDefinition) {
	if !v.validateType(value, field) {
		return
	}
	if len(field.AllowedValues) > 0 {
		v.validateAllowedValues(value, field)
	}
}

// validateType checks a value against the fixed type mapping.
func (v *Validator) validateType(value any, field FieldDefinition) bool {
	switch field.Type {
	case FieldTypeString:
		if _, ok := value.(string); !ok {
			v.addIssue("TYPE_MISMATCH", fmt.Sprintf("Field '%s' must be string, got %s", field.Name, kindOf(value)), field.Name)
			return false
		}
	case FieldTypeNumber:
		if !isNumericType(value) {
			v.addIssue("TYPE_MISMATCH", fmt.Sprintf("Field '%s' must be number, got %s", field.Name, kindOf(value)), field.Name)
			return false
		}
	case FieldTypeBoolean:
		if _, ok := value.(bool); !ok {
			v.addIssue("TYPE_MISMATCH", fmt.Sprintf("Field '%s' must be boolean, got %s", field.Name, kindOf(value)), field.Name)
			return false
		}
	case FieldTypeDate:
		if _, ok := value.(string); !ok {
			v.addIssue("TYPE_MISMATCH", fmt.Sprintf("Field '%s' must be date string (ISO format), got %s", field.Name, kindOf(value)), field.Name)
			return false
		}
	case FieldTypeArray:
		if !isArrayType(value) {
			v.addIssue("TYPE_MISMATCH", fmt.Sprintf("Field '%s' must be array, got %s", field.Name, kindOf(value)), field.Name)
			return false
		}
	case FieldTypeObject:
		if !isObjectType(value) {
			v.addIssue("TYPE_MISMATCH", fmt.Sprintf("Field '%s' must be object, got %s", field.Name, kindOf(value)), field.Name)
			return false
		}
	}
	return true
}

// validateAllowedValues checks that a value is a member of the field's
// enumerated set.
func (v *Validator) validateAllowedValues(value any, field FieldDefinition) {
	for _, allowed := range field.AllowedValues {
		if equalValue(value, allowed) {
			return
		}
	}
	v.addIssue("ENUM_VIOLATION", fmt.Sprintf("Field '%s' must be one of %v, got '%v'", field.Name, field.AllowedValues, value), field.Name)
}

// addIssue records a validation issue.
func (v *Validator) addIssue(code, message, field string) {
	v.issues = append(v.issues, Issue{Code: code, Message: message, Field: field})
}

// JoinIssues renders a set of issues as the single aggregate message used
// in the UnprocessableEntity error surfaced to callers.
func JoinIssues(issues []Issue) string {
	messages := make([]string, len(issues))
	for i, issue := range issues {
		messages[i] = issue.Message
	}
	return "Validation errors: " + strings.Join(messages, "; ")
}

// equalValue compares a payload value against an allowed value. Numeric
// values compare by magnitude so that a JSON-decoded float64(10) matches a
// declared allowed value of int(10).
func equalValue(a, b any) bool {
	if isNumericType(a) && isNumericType(b) {
		return asFloat(a) == asFloat(b)
	}
	return reflect.DeepEqual(a, b)
}

// isNumericType checks if a value is a numeric type.
func isNumericType(value any) bool {
	switch value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	}
	return false
}

// isArrayType checks if a value is an array or slice.
func isArrayType(value any) bool {
	if value == nil {
		return false
	}
	rv := reflect.ValueOf(value)
	return rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array
}

// isObjectType checks if a value is a map with string keys.
func isObjectType(value any) bool {
	_, ok := value.(map[string]any)
	return ok
}

// kindOf names a value's kind for error messages.
func kindOf(value any) string {
	if value == nil {
		return "null"
	}
	return fmt.Sprintf("%T", value)
}

// asFloat converts any numeric value to float64 for comparison.
func asFloat(value any) float64 {
	switch n := value.(type) {
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	case float64:
		return n
	}
	return 0
}
