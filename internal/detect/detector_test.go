package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/advocase/importer/internal/registry"
)

func TestDetectByFilename(t *testing.T) {
	reg := registry.Builtin()

	res := Detect(nil, "export_projuris_2024.csv", reg)
	require.NotNil(t, res.System)
	assert.Equal(t, "projuris", res.System.Key)
	assert.Equal(t, filenameConfidence, res.Confidence)
	assert.True(t, res.ByFilename)
}

func TestDetectFilenameIsCaseAndAccentInsensitive(t *testing.T) {
	reg := registry.Builtin()

	res := Detect(nil, "PROJURIS-Processos.xlsx", reg)
	assert.Equal(t, "projuris", res.System.Key)
	assert.True(t, res.ByFilename)
}

func TestDetectProjurisHeaders(t *testing.T) {
	reg := registry.Builtin()
	header := []string{"Número do Processo", "Cliente Nome", "Responsável"}

	res := Detect(header, "processos.csv", reg)
	require.NotNil(t, res.System)
	assert.Equal(t, "projuris", res.System.Key)
	assert.False(t, res.ByFilename)
	assert.GreaterOrEqual(t, res.Confidence, 0.8)
	assert.LessOrEqual(t, res.Confidence, maxColumnConfidence)
}

func TestDetectLegalOneHeaders(t *testing.T) {
	reg := registry.Builtin()
	header := []string{"Pasta", "Número CNJ", "Cliente Principal", "Contrário Principal"}

	res := Detect(header, "export.csv", reg)
	assert.Equal(t, "legalone", res.System.Key)
	assert.Greater(t, res.Confidence, 0.5)
}

func TestDetectUnknown(t *testing.T) {
	reg := registry.Builtin()
	header := []string{"Widget", "Quantity", "Price"}

	res := Detect(header, "inventory.csv", reg)
	require.NotNil(t, res.System)
	assert.Equal(t, registry.UnknownKey, res.System.Key)
	assert.Zero(t, res.Confidence)
	assert.False(t, res.ByFilename)
}

func TestDetectConfidenceNeverExceedsCap(t *testing.T) {
	reg := registry.Builtin()
	// Every signature pattern plus every required field present.
	header := []string{
		"Número do Processo", "Cliente Nome", "Responsável", "Vara",
		"CPF/CNPJ", "Valor da Causa",
	}

	res := Detect(header, "full.csv", reg)
	assert.Equal(t, "projuris", res.System.Key)
	assert.Equal(t, maxColumnConfidence, res.Confidence)
}

func TestScoreEmptySignature(t *testing.T) {
	assert.Zero(t, Score([]string{"cliente"}, registry.Unknown()))
}

func TestScorePartialSignature(t *testing.T) {
	sys := registry.Projuris()
	cells := []string{"numero do processo", "vara"}

	// 2 of 4 signature patterns plus 1 of 3 required fields.
	got := Score(cells, sys)
	assert.InDelta(t, 0.5+0.3/3.0, got, 1e-9)
}
