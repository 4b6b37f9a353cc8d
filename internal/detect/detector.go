// Package detect guesses which source product produced an export by
// scoring its header row against the system registry. Confidence is a
// relative ranking signal, not a calibrated probability.
package detect

import (
	"strings"

	"github.com/advocase/importer/internal/registry"
)

const (
	// filenameConfidence is returned when the file name alone names a
	// known product. The shortcut bypasses column scoring entirely.
	filenameConfidence = 0.8

	// maxColumnConfidence caps column-based scores; header matching
	// never claims full certainty.
	maxColumnConfidence = 0.95

	// requiredBonusWeight scales the required-field coverage bonus.
	requiredBonusWeight = 0.3
)

// Result is the detection outcome.
type Result struct {
	System     *registry.SystemMapping
	Confidence float64
	ByFilename bool
}

// Detect runs two passes, first one wins: a filename-token match at
// fixed confidence, then per-system column scoring. When nothing
// matches, the Unknown system is returned with confidence 0.
func Detect(header []string, fileName string, reg *registry.Registry) Result {
	name := registry.Normalize(fileName)
	for _, sys := range reg.All() {
		for _, token := range sys.FileTokens {
			if token != "" && strings.Contains(name, registry.Normalize(token)) {
				return Result{System: sys, Confidence: filenameConfidence, ByFilename: true}
			}
		}
	}

	cells := make([]string, 0, len(header))
	for _, h := range header {
		cells = append(cells, registry.Normalize(h))
	}

	var best *registry.SystemMapping
	bestScore := 0.0
	for _, sys := range reg.All() {
		if score := Score(cells, sys); score > bestScore {
			best = sys
			bestScore = score
		}
	}

	if best == nil {
		return Result{System: registry.Unknown(), Confidence: 0}
	}
	confidence := bestScore
	if confidence > maxColumnConfidence {
		confidence = maxColumnConfidence
	}
	return Result{System: best, Confidence: confidence}
}

// Score computes the column score of one system against normalized
// header cells: each matched signature pattern contributes
// 1/len(signature), plus a bonus proportional to required-field
// coverage. Exported for the registry tests that pin known layouts.
func Score(normalizedHeader []string, sys *registry.SystemMapping) float64 {
	if len(sys.Signature) == 0 {
		return 0
	}

	score := 0.0
	unit := 1.0 / float64(len(sys.Signature))
	for _, pattern := range sys.Signature {
		if anyCellContains(normalizedHeader, registry.Normalize(pattern)) {
			score += unit
		}
	}

	required := sys.RequiredFields()
	if len(required) > 0 {
		matched := 0
		for _, field := range required {
			// A required field counts as matched when any header cell
			// contains the first token of its canonical name.
			token := registry.Normalize(firstToken(field))
			if anyCellContains(normalizedHeader, token) {
				matched++
			}
		}
		score += requiredBonusWeight * float64(matched) / float64(len(required))
	}

	return score
}

func anyCellContains(cells []string, token string) bool {
	if token == "" {
		return false
	}
	for _, c := range cells {
		if strings.Contains(c, token) {
			return true
		}
	}
	return false
}

func firstToken(field string) string {
	if i := strings.IndexAny(field, "_ "); i > 0 {
		return field[:i]
	}
	return field
}
