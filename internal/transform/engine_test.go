package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/advocase/importer/internal/registry"
)

func TestApplyDate(t *testing.T) {
	tests := []struct {
		name    string
		rule    registry.TransformRule
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "brazilian slash format",
			rule:  registry.TransformRule{Field: "data_abertura", Kind: registry.TransformDate, SourceFormat: "02/01/2006"},
			input: "15/03/2024",
			want:  "2024-03-15",
		},
		{
			name:  "dotted format",
			rule:  registry.TransformRule{Field: "data_abertura", Kind: registry.TransformDate, SourceFormat: "02.01.2006"},
			input: "01.12.2023",
			want:  "2023-12-01",
		},
		{
			name:  "auto resolves ambiguous values day first",
			rule:  registry.TransformRule{Field: "evento_data", Kind: registry.TransformDate, SourceFormat: "auto"},
			input: "03/04/2024",
			want:  "2024-04-03",
		},
		{
			name:  "auto accepts iso passthrough",
			rule:  registry.TransformRule{Field: "evento_data", Kind: registry.TransformDate, SourceFormat: "auto"},
			input: "2024-04-03",
			want:  "2024-04-03",
		},
		{
			name:    "unparsable date is an error",
			rule:    registry.TransformRule{Field: "data_abertura", Kind: registry.TransformDate, SourceFormat: "auto"},
			input:   "ontem",
			wantErr: true,
		},
		{
			name:  "empty passes through",
			rule:  registry.TransformRule{Field: "data_abertura", Kind: registry.TransformDate, SourceFormat: "auto"},
			input: "   ",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply(tt.input, tt.rule)
			if tt.wantErr {
				require.Error(t, err)
				var terr *Error
				require.ErrorAs(t, err, &terr)
				assert.Equal(t, tt.rule.Field, terr.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyCurrency(t *testing.T) {
	rule := registry.TransformRule{Field: "valor_causa", Kind: registry.TransformCurrency}

	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "R$ 1.500,00", want: "1500.00"},
		{input: "R$ 1.234.567,89", want: "1234567.89"},
		{input: "1,234.56", want: "1234.56"},
		{input: "1500", want: "1500.00"},
		{input: "(R$ 200,00)", want: "-200.00"},
		{input: "0,99", want: "0.99"},
		{input: "a definir", wantErr: true},
		{input: "R$", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Apply(tt.input, rule)
			if tt.wantErr {
				// Never a silent zero: the caller must see an error.
				require.Error(t, err)
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyBool(t *testing.T) {
	rule := registry.TransformRule{Field: "ativo", Kind: registry.TransformBool}

	for input, want := range map[string]string{
		"Sim":        "true",
		"VERDADEIRO": "true",
		"1":          "true",
		"ativo":      "true",
		"nao":        "false",
		"0":          "false",
		"arquivado":  "false",
	} {
		got, err := Apply(input, rule)
		require.NoError(t, err)
		assert.Equal(t, want, got, "input %q", input)
	}
}

func TestApplyTaxID(t *testing.T) {
	rule := registry.TransformRule{Field: "cliente_documento", Kind: registry.TransformTaxID}

	tests := []struct {
		input string
		want  string
	}{
		{input: "12345678901", want: "123.456.789-01"},
		{input: "123.456.789-01", want: "123.456.789-01"},
		{input: "12345678000190", want: "12.345.678/0001-90"},
		{input: "12.345.678/0001-90", want: "12.345.678/0001-90"},
		{input: "1234", want: "1234"}, // neither CPF nor CNPJ length
	}

	for _, tt := range tests {
		got, err := Apply(tt.input, rule)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestApplyLookup(t *testing.T) {
	rule := registry.TransformRule{
		Field:  "status_processo",
		Kind:   registry.TransformLookup,
		Lookup: map[string]string{"Em andamento": "active", "Arquivado": "archived"},
	}

	got, err := Apply("Em andamento", rule)
	require.NoError(t, err)
	assert.Equal(t, "active", got)

	// Unknown keys pass through unchanged.
	got, err = Apply("Suspenso", rule)
	require.NoError(t, err)
	assert.Equal(t, "Suspenso", got)
}

func TestApplyRegex(t *testing.T) {
	rule := registry.TransformRule{
		Field:       "numero_processo",
		Kind:        registry.TransformRegex,
		Pattern:     `^Proc\.\s*`,
		Replacement: "",
	}

	got, err := Apply("Proc. 0001234-56.2024.8.26.0100", rule)
	require.NoError(t, err)
	assert.Equal(t, "0001234-56.2024.8.26.0100", got)
}

func TestParseCurrencyRoundTrip(t *testing.T) {
	// The same numeric amount in both locales must agree.
	br, err := ParseCurrency("R$ 9.876,54")
	require.NoError(t, err)
	us, err := ParseCurrency("$9,876.54")
	require.NoError(t, err)
	assert.Equal(t, br, us)
	assert.InDelta(t, 9876.54, br, 1e-9)
}
