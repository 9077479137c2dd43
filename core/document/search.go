package document

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/asaidimu/go-dyndocs/core/fault"
	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
	"go.uber.org/zap"
)

// Search defaults: matches scoring below DefaultThreshold are excluded and
// at most DefaultTopN results are returned.
const (
	DefaultThreshold = 70
	DefaultTopN      = 3
)

// baseSearchableFields are always legal search columns regardless of the
// schema's declared field names.
var baseSearchableFields = []string{FieldTenantID, FieldCreatedBy, FieldUpdatedBy}

// match pairs a candidate document with its similarity score.
type match struct {
	doc   map[string]any
	score int
}

// Search scans the tenant's documents and scores the stringified value of
// the given column against the query with case-insensitive partial-ratio
// similarity. Matches at or above the threshold are returned in
// non-increasing score order, capped at topN; ties keep the scan order.
// This is a full collection scan per call with no index acceleration.
func (s *Service) Search(ctx context.Context, tenantID, documentType, column, value string, threshold, topN int) ([]map[string]any, error) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if topN <= 0 {
		topN = DefaultTopN
	}

	active, config, err := s.resolve(ctx, tenantID, documentType)
	if err != nil {
		return nil, err
	}

	allowed := make([]string, 0, len(active.Fields)+len(baseSearchableFields))
	for _, field := range active.Fields {
		allowed = append(allowed, field.Name)
	}
	allowed = append(allowed, baseSearchableFields...)

	permitted := false
	for _, name := range allowed {
		if name == column {
			permitted = true
			break
		}
	}
	if !permitted {
		return nil, fault.New(fault.KindBadRequest,
			"invalid search column: %s. Allowed columns: %s", column, strings.Join(allowed, ", "))
	}

	value = strings.TrimSpace(value)

	docs, err := config.Collection.Find(ctx, map[string]any{FieldTenantID: tenantID}, 0, 0)
	if err != nil {
		return nil, fault.Wrap(fault.KindBadRequest, err, "error searching documents in %s", documentType)
	}

	matches := make([]match, 0)
	for _, doc := range docs {
		candidate, ok := doc[column]
		if !ok || candidate == nil {
			continue
		}
		score := fuzzy.PartialRatio(strings.ToLower(value), strings.ToLower(fmt.Sprintf("%v", candidate)))
		if score >= threshold {
			matches = append(matches, match{doc: doc, score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})
	if len(matches) > topN {
		matches = matches[:topN]
	}

	s.logger.Info("fuzzy search completed",
		zap.String("collection", documentType),
		zap.String("column", column),
		zap.Int("matches", len(matches)))

	out := make([]map[string]any, len(matches))
	for i, m := range matches {
		out[i] = serializeDocument(m.doc)
	}
	return out, nil
}
