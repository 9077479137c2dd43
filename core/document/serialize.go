package document

import (
	"time"
)

// stampForInsert builds the stored form of a new document: the user payload
// plus the tenant scoping key, UTC timestamps, and actor ids. The payload
// map itself is not mutated.
func stampForInsert(payload map[string]any, tenantID, actor string, now time.Time) map[string]any {
	doc := make(map[string]any, len(payload)+5)
	for key, value := range payload {
		doc[key] = value
	}
	doc[FieldTenantID] = tenantID
	doc[FieldCreatedAt] = now
	doc[FieldUpdatedAt] = now
	if actor != "" {
		doc[FieldCreatedBy] = actor
		doc[FieldUpdatedBy] = actor
	}
	return doc
}

// updateSet builds the merge-style change set for a partial update: the
// supplied fields plus a bumped updated_at and, when known, updated_by.
func updateSet(patch map[string]any, actor string, now time.Time) map[string]any {
	set := make(map[string]any, len(patch)+2)
	for key, value := range patch {
		set[key] = value
	}
	set[FieldUpdatedAt] = now
	if actor != "" {
		set[FieldUpdatedBy] = actor
	}
	return set
}

// serializeDocument converts a stored document into its API form: native
// timestamps become ISO-8601 strings. Identities arrive from the driver
// already in string form.
func serializeDocument(doc map[string]any) map[string]any {
	if doc == nil {
		return nil
	}
	out := make(map[string]any, len(doc))
	for key, value := range doc {
		if ts, ok := value.(time.Time); ok {
			out[key] = ts.UTC().Format(time.RFC3339Nano)
			continue
		}
		out[key] = value
	}
	return out
}
