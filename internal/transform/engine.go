// Package transform applies declarative value transforms from the
// system registry. Every function is stateless; the orchestrator owns
// counting and error accumulation.
package transform

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/advocase/importer/internal/registry"
)

// Error wraps a failed rule application so the orchestrator can record
// it as a transform error with the offending value.
type Error struct {
	Field string
	Value string
	Kind  registry.TransformKind
	Msg   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("transform %s on field %q: %s (value %q)", e.Kind, e.Field, e.Msg, e.Value)
}

// ISODate is the canonical output layout for date transforms.
const ISODate = "2006-01-02"

// autoDateLayouts are tried in order when a date rule's source format
// is "auto". Ambiguous day/month values (03/04/2024) resolve day-first:
// every supported source product is Brazilian.
var autoDateLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"02.01.2006",
	"2006-01-02",
	"2006/01/02",
	"02/01/06",
}

// truthyTokens is the fixed token list for boolean coercion.
var truthyTokens = map[string]bool{
	"true": true, "t": true, "1": true, "yes": true, "y": true,
	"sim": true, "s": true, "verdadeiro": true, "ativo": true,
}

// Apply runs one rule against a value. Empty input passes through
// unchanged: emptiness is the validator's concern, not a transform
// failure.
func Apply(value string, rule registry.TransformRule) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}

	switch rule.Kind {
	case registry.TransformDate:
		return applyDate(value, rule)
	case registry.TransformCurrency:
		amount, err := ParseCurrency(value)
		if err != nil {
			return "", &Error{Field: rule.Field, Value: value, Kind: rule.Kind, Msg: err.Error()}
		}
		return strconv.FormatFloat(amount, 'f', 2, 64), nil
	case registry.TransformBool:
		if truthyTokens[strings.ToLower(value)] {
			return "true", nil
		}
		return "false", nil
	case registry.TransformTaxID:
		return FormatTaxID(value), nil
	case registry.TransformLookup:
		if mapped, ok := rule.Lookup[value]; ok {
			return mapped, nil
		}
		return value, nil
	case registry.TransformRegex:
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return "", &Error{Field: rule.Field, Value: value, Kind: rule.Kind, Msg: "invalid pattern: " + err.Error()}
		}
		return re.ReplaceAllString(value, rule.Replacement), nil
	default:
		return "", &Error{Field: rule.Field, Value: value, Kind: rule.Kind, Msg: "unknown transform kind"}
	}
}

func applyDate(value string, rule registry.TransformRule) (string, error) {
	target := rule.TargetFormat
	if target == "" {
		target = ISODate
	}

	layouts := autoDateLayouts
	if rule.SourceFormat != "" && rule.SourceFormat != "auto" {
		layouts = []string{rule.SourceFormat}
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(target), nil
		}
	}
	return "", &Error{Field: rule.Field, Value: value, Kind: registry.TransformDate, Msg: "unparsable date"}
}

var currencyStrip = strings.NewReplacer("R$", "", "r$", "", "$", "", "€", "", "£", "", " ", "", " ", "")

// ParseCurrency parses a pt-BR or en-US formatted amount into a float.
// Unparsable input is an error; it is never silently coerced to zero.
func ParseCurrency(value string) (float64, error) {
	s := strings.TrimSpace(currencyStrip.Replace(value))
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma > lastDot:
		// pt-BR: dot thousands, comma decimal.
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case lastDot > lastComma:
		// en-US: comma thousands, dot decimal.
		s = strings.ReplaceAll(s, ",", "")
	}

	amount, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("unparsable amount %q", value)
	}
	if negative {
		amount = -amount
	}
	return amount, nil
}

var nonDigits = regexp.MustCompile(`\D`)

// FormatTaxID normalizes a CPF (11 digits) or CNPJ (14 digits) into
// canonical punctuation. Other digit counts pass through untouched.
func FormatTaxID(value string) string {
	digits := nonDigits.ReplaceAllString(value, "")
	switch len(digits) {
	case 11:
		return fmt.Sprintf("%s.%s.%s-%s", digits[0:3], digits[3:6], digits[6:9], digits[9:11])
	case 14:
		return fmt.Sprintf("%s.%s.%s/%s-%s", digits[0:2], digits[2:5], digits[5:8], digits[8:12], digits[12:14])
	default:
		return value
	}
}
