// Package validate applies declarative validation rules to transformed
// values. Rules on the same field accumulate independently; a failure
// never stops the other fields of the row.
package validate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/advocase/importer/internal/registry"
)

// Error is a single failed rule on a field value.
type Error struct {
	Field   string
	Value   string
	Kind    registry.ValidationKind
	Message string
}

func (e Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Result is the outcome of validating one field.
type Result struct {
	Valid  bool
	Errors []Error
}

// Field checks a value against every rule bound to its field.
func Field(field, value string, rules []registry.ValidationRule) Result {
	result := Result{Valid: true}
	for _, rule := range rules {
		if err := check(field, value, rule); err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, *err)
		}
	}
	return result
}

func check(field, value string, rule registry.ValidationRule) *Error {
	switch rule.Kind {
	case registry.ValidateRequired:
		if strings.TrimSpace(value) == "" {
			return fail(field, value, rule, "required value is empty")
		}

	case registry.ValidateFormat:
		if strings.TrimSpace(value) == "" {
			return nil // format rules only apply to present values
		}
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return fail(field, value, rule, "invalid format pattern: "+err.Error())
		}
		if !re.MatchString(value) {
			return fail(field, value, rule, "value does not match expected format")
		}

	case registry.ValidateRange:
		if strings.TrimSpace(value) == "" {
			return nil
		}
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fail(field, value, rule, "value is not numeric")
		}
		if n < rule.Min || n > rule.Max {
			return fail(field, value, rule, fmt.Sprintf("value %v outside range [%v, %v]", n, rule.Min, rule.Max))
		}
	}
	return nil
}

func fail(field, value string, rule registry.ValidationRule, fallback string) *Error {
	msg := rule.Message
	if msg == "" {
		msg = fallback
	}
	return &Error{Field: field, Value: value, Kind: rule.Kind, Message: msg}
}
