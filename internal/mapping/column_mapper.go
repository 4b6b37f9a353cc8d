// Package mapping resolves source columns onto canonical fields. The
// column mapper scores each header cell against cross-system name
// patterns and sample-value shapes; the field mapper then regroups the
// results into the entity categories the detected system imports.
package mapping

import (
	"github.com/advocase/importer/internal/registry"
)

const (
	// baseConfidence is assigned when only the column name matches.
	baseConfidence = 0.8
	// shapeConfidence is assigned when sample values also match the
	// expected data-type shape.
	shapeConfidence = 0.9
	// overrideConfidence is assigned to caller-supplied mappings.
	overrideConfidence = 1.0

	// TargetOther is the fallback target for unmatched columns.
	TargetOther = "other"

	// maxSamples is how many sample values are kept per column.
	maxSamples = 5
)

// ColumnMapping is the result of matching one source column.
type ColumnMapping struct {
	SourceColumn string
	SourceIndex  int
	TargetField  string
	Category     registry.Category
	Confidence   float64
	DataType     registry.DataType
	Samples      []string
	Transform    *registry.TransformRule
}

// MapColumns resolves every header cell. Sample values come from the
// first data rows; overrides force a source column onto a canonical
// field with full confidence.
func MapColumns(header []string, dataRows [][]string, sys *registry.SystemMapping, overrides map[string]string) []ColumnMapping {
	out := make([]ColumnMapping, 0, len(header))
	for idx, name := range header {
		samples := collectSamples(dataRows, idx)

		if field, ok := overrides[name]; ok && field != "" {
			cm := ColumnMapping{
				SourceColumn: name,
				SourceIndex:  idx,
				TargetField:  field,
				Confidence:   overrideConfidence,
				Samples:      samples,
			}
			if rule, ok := sys.ColumnRuleFor(field); ok {
				cm.Category = rule.Category
				cm.DataType = rule.Type
			} else {
				cm.Category, cm.DataType = patternInfo(field)
			}
			cm.Transform = transformFor(cm.TargetField, cm.DataType, sys)
			out = append(out, cm)
			continue
		}

		out = append(out, mapColumn(name, idx, samples, sys))
	}
	return out
}

// mapColumn finds the best pattern for one column. Ties keep the first
// mapping found; later patterns replace it only with a strictly higher
// confidence.
func mapColumn(name string, idx int, samples []string, sys *registry.SystemMapping) ColumnMapping {
	best := ColumnMapping{
		SourceColumn: name,
		SourceIndex:  idx,
		TargetField:  TargetOther,
		Category:     registry.CategoryOther,
		Confidence:   0,
		DataType:     registry.TypeText,
		Samples:      samples,
	}

	normalized := registry.Normalize(name)

	// The detected system's declared variants win over the generic
	// cross-system patterns, but only on exact (normalized) equality.
	if sys != nil {
		for _, rule := range sys.Columns {
			for _, variant := range rule.Variants {
				if normalized != registry.Normalize(variant) {
					continue
				}
				best.TargetField = rule.Field
				best.Category = rule.Category
				best.DataType = rule.Type
				best.Confidence = baseConfidence
				if samplesMatchShape(samples, rule.Type) {
					best.Confidence = shapeConfidence
				}
				best.Transform = transformFor(rule.Field, rule.Type, sys)
				return best
			}
		}
	}

	for _, p := range namePatterns {
		if !p.re.MatchString(normalized) {
			continue
		}
		confidence := baseConfidence
		if samplesMatchShape(samples, p.dataType) {
			confidence = shapeConfidence
		}
		if confidence > best.Confidence {
			best.TargetField = p.field
			best.Category = p.category
			best.DataType = p.dataType
			best.Confidence = confidence
		}
	}

	if best.TargetField != TargetOther {
		best.Transform = transformFor(best.TargetField, best.DataType, sys)
	}
	return best
}

// transformFor prefers the detected system's declared transform and
// falls back to a generic one derived from the data type.
func transformFor(field string, t registry.DataType, sys *registry.SystemMapping) *registry.TransformRule {
	if sys != nil {
		if rule, ok := sys.TransformFor(field); ok {
			return &rule
		}
	}
	switch t {
	case registry.TypeDate:
		return &registry.TransformRule{Field: field, Kind: registry.TransformDate, SourceFormat: "auto"}
	case registry.TypeCurrency:
		return &registry.TransformRule{Field: field, Kind: registry.TransformCurrency}
	case registry.TypeTaxID:
		return &registry.TransformRule{Field: field, Kind: registry.TransformTaxID}
	}
	return nil
}

// samplesMatchShape requires at least one non-empty sample and a
// majority of non-empty samples matching the expected shape.
func samplesMatchShape(samples []string, t registry.DataType) bool {
	matched, total := 0, 0
	for _, s := range samples {
		if s == "" {
			continue
		}
		total++
		if matchesShape(s, t) {
			matched++
		}
	}
	return total > 0 && matched*2 > total
}

func collectSamples(rows [][]string, col int) []string {
	var out []string
	for _, row := range rows {
		if len(out) == maxSamples {
			break
		}
		if col < len(row) && row[col] != "" {
			out = append(out, row[col])
		}
	}
	return out
}

// patternInfo resolves category and type for a canonical field from the
// cross-system pattern list, for overrides onto fields the detected
// system does not declare.
func patternInfo(field string) (registry.Category, registry.DataType) {
	for _, p := range namePatterns {
		if p.field == field {
			return p.category, p.dataType
		}
	}
	return registry.CategoryOther, registry.TypeText
}
