package mapping

import (
	"github.com/advocase/importer/internal/registry"
)

// groupThreshold excludes low-confidence column mappings from the
// entity buckets; they land in Other instead.
const groupThreshold = 0.5

// FieldMap aggregates every source column feeding one canonical field.
type FieldMap struct {
	TargetField   string
	Sources       []string
	SourceIndexes []int
	Category      registry.Category
	Required      bool
	DataType      registry.DataType
	Transform     *registry.TransformRule
}

// FieldMapSet is the grouped mapping for one import, bucketed by
// entity category. Unmatched and low-confidence columns stay in Other
// and never count toward required-field coverage.
type FieldMapSet struct {
	Client   []FieldMap
	Case     []FieldMap
	Event    []FieldMap
	Document []FieldMap
	Other    []ColumnMapping
}

// ByCategory returns the bucket for an entity category.
func (s *FieldMapSet) ByCategory(c registry.Category) []FieldMap {
	switch c {
	case registry.CategoryClient:
		return s.Client
	case registry.CategoryCase:
		return s.Case
	case registry.CategoryEvent:
		return s.Event
	case registry.CategoryDocument:
		return s.Document
	}
	return nil
}

// MissingRequired lists the system's required fields that no grouped
// column feeds. Absence here is not an error; it becomes a validation
// concern per row.
func (s *FieldMapSet) MissingRequired(sys *registry.SystemMapping) []string {
	var missing []string
	for _, field := range sys.RequiredFields() {
		if s.find(field) == nil {
			missing = append(missing, field)
		}
	}
	return missing
}

// MissingOptional lists the system's optional catalog fields that no
// grouped column feeds. Informational only; nothing downstream depends
// on them.
func (s *FieldMapSet) MissingOptional(sys *registry.SystemMapping) []string {
	var missing []string
	for _, rule := range sys.Columns {
		if rule.Required {
			continue
		}
		if s.find(rule.Field) == nil {
			missing = append(missing, rule.Field)
		}
	}
	return missing
}

func (s *FieldMapSet) find(field string) *FieldMap {
	for _, bucket := range [][]FieldMap{s.Client, s.Case, s.Event, s.Document} {
		for i := range bucket {
			if bucket[i].TargetField == field {
				return &bucket[i]
			}
		}
	}
	return nil
}

// Group buckets column mappings above the confidence threshold into
// the four entity categories, attaching the registry's required flag.
// When several columns feed the same canonical field, they merge into
// one FieldMap in first-seen order.
func Group(mappings []ColumnMapping, sys *registry.SystemMapping) *FieldMapSet {
	set := &FieldMapSet{}
	byField := make(map[string]*FieldMap)
	var order []*FieldMap

	for _, cm := range mappings {
		if cm.TargetField == TargetOther || cm.Category == registry.CategoryOther || cm.Confidence <= groupThreshold {
			set.Other = append(set.Other, cm)
			continue
		}

		if existing, ok := byField[cm.TargetField]; ok {
			existing.Sources = append(existing.Sources, cm.SourceColumn)
			existing.SourceIndexes = append(existing.SourceIndexes, cm.SourceIndex)
			continue
		}

		fm := &FieldMap{
			TargetField:   cm.TargetField,
			Sources:       []string{cm.SourceColumn},
			SourceIndexes: []int{cm.SourceIndex},
			Category:      cm.Category,
			DataType:      cm.DataType,
			Transform:     cm.Transform,
		}
		if rule, ok := sys.ColumnRuleFor(cm.TargetField); ok {
			fm.Required = rule.Required
		}
		byField[cm.TargetField] = fm
		order = append(order, fm)
	}

	for _, fm := range order {
		switch fm.Category {
		case registry.CategoryClient:
			set.Client = append(set.Client, *fm)
		case registry.CategoryCase:
			set.Case = append(set.Case, *fm)
		case registry.CategoryEvent:
			set.Event = append(set.Event, *fm)
		case registry.CategoryDocument:
			set.Document = append(set.Document, *fm)
		}
	}

	return set
}
