// Package registry holds the static catalog of known source systems.
// Each entry is pure data: column rules, transform rules, validation
// rules and an import strategy. Adding a source system is a data
// change, not a code branch.
package registry

// Category groups canonical fields into the entity they feed.
type Category string

const (
	CategoryClient   Category = "client"
	CategoryCase     Category = "case"
	CategoryEvent    Category = "event"
	CategoryDocument Category = "document"
	CategoryOther    Category = "other"
)

// DataType is the expected shape of a canonical field's values.
type DataType string

const (
	TypeText     DataType = "text"
	TypeDate     DataType = "date"
	TypeCurrency DataType = "currency"
	TypeNumber   DataType = "number"
	TypeBool     DataType = "bool"
	TypeEmail    DataType = "email"
	TypePhone    DataType = "phone"
	TypeTaxID    DataType = "tax_id" // CPF/CNPJ
)

// ColumnRule maps the header-name variants a source system uses onto
// one canonical field.
type ColumnRule struct {
	Field    string   // canonical field name, e.g. "numero_processo"
	Variants []string // normalized header names and aliases, matched by substring
	Category Category
	Required bool
	Type     DataType
	Examples []string // sample values, shown in mapping previews
}

// TransformKind tags a transform rule variant.
type TransformKind string

const (
	TransformDate     TransformKind = "date"
	TransformCurrency TransformKind = "currency"
	TransformBool     TransformKind = "bool"
	TransformTaxID    TransformKind = "tax_id"
	TransformLookup   TransformKind = "lookup"
	TransformRegex    TransformKind = "regex"
)

// TransformRule is a declarative value transform bound to a canonical
// field. Rules are tagged variants, not closures, so the catalog stays
// serializable and testable in isolation.
type TransformRule struct {
	Field        string
	Kind         TransformKind
	SourceFormat string            // date input layout, or "auto"
	TargetFormat string            // date output layout, default ISO
	Lookup       map[string]string // for TransformLookup
	Pattern      string            // for TransformRegex
	Replacement  string            // for TransformRegex
}

// ValidationKind tags a validation rule variant.
type ValidationKind string

const (
	ValidateRequired ValidationKind = "required"
	ValidateFormat   ValidationKind = "format"
	ValidateRange    ValidationKind = "range"
)

// ValidationRule is a declarative check bound to a canonical field.
type ValidationRule struct {
	Field   string
	Kind    ValidationKind
	Pattern string // for ValidateFormat
	Min     float64
	Max     float64
	Message string
}

// ConflictPolicy decides what happens when an imported entity already
// exists under its natural key.
type ConflictPolicy string

const (
	ConflictSkip      ConflictPolicy = "skip"
	ConflictOverwrite ConflictPolicy = "overwrite"
	ConflictMerge     ConflictPolicy = "merge"
	ConflictAsk       ConflictPolicy = "ask"
)

// ImportStrategy orders entity categories for writing and records the
// dependencies between them. Categories are written strictly in Order;
// Dependencies documents why (cases need their clients to exist first).
type ImportStrategy struct {
	Order        []Category
	Dependencies map[Category][]Category
	Conflicts    ConflictPolicy
}

// SystemMapping is one immutable registry entry describing a known
// source product.
type SystemMapping struct {
	Key  string // stable identifier, e.g. "projuris"
	Name string // display name

	// FileTokens are filename substrings that identify the product
	// without looking at columns.
	FileTokens []string

	// Signature is the small set of distinctive header patterns used by
	// column-based detection scoring.
	Signature []string

	Columns     []ColumnRule
	Transforms  []TransformRule
	Validations []ValidationRule
	Strategy    ImportStrategy
}

// RequiredFields returns the canonical names of all required columns.
func (m *SystemMapping) RequiredFields() []string {
	var out []string
	for _, c := range m.Columns {
		if c.Required {
			out = append(out, c.Field)
		}
	}
	return out
}

// ColumnRuleFor returns the rule for a canonical field, if any.
func (m *SystemMapping) ColumnRuleFor(field string) (ColumnRule, bool) {
	for _, c := range m.Columns {
		if c.Field == field {
			return c, true
		}
	}
	return ColumnRule{}, false
}

// TransformFor returns the transform rule bound to a canonical field.
func (m *SystemMapping) TransformFor(field string) (TransformRule, bool) {
	for _, t := range m.Transforms {
		if t.Field == field {
			return t, true
		}
	}
	return TransformRule{}, false
}

// ValidationsFor returns every validation rule bound to a canonical field.
func (m *SystemMapping) ValidationsFor(field string) []ValidationRule {
	var out []ValidationRule
	for _, v := range m.Validations {
		if v.Field == field {
			out = append(out, v)
		}
	}
	return out
}
