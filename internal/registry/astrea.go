package registry

// Astrea returns the mapping for Astrea (Aurum) exports. Astrea CSVs
// use short headers and semicolon delimiters; dates are dd/mm/yyyy.
func Astrea() *SystemMapping {
	return &SystemMapping{
		Key:        "astrea",
		Name:       "Astrea",
		FileTokens: []string{"astrea", "aurum"},
		Signature: []string{
			"processo",
			"parte",
			"tarefa",
			"instancia",
		},
		Columns: []ColumnRule{
			{
				Field:    "numero_processo",
				Variants: []string{"processo", "numero"},
				Category: CategoryCase,
				Required: true,
				Type:     TypeText,
				Examples: []string{"0009876-12.2021.5.02.0011"},
			},
			{
				Field:    "cliente",
				Variants: []string{"parte", "cliente"},
				Category: CategoryClient,
				Required: true,
				Type:     TypeText,
			},
			{
				Field:    "cliente_telefone",
				Variants: []string{"telefone", "contato"},
				Category: CategoryClient,
				Type:     TypePhone,
			},
			{
				Field:    "cliente_email",
				Variants: []string{"email"},
				Category: CategoryClient,
				Type:     TypeEmail,
			},
			{
				Field:    "vara",
				Variants: []string{"instancia", "orgao"},
				Category: CategoryCase,
				Type:     TypeText,
			},
			{
				Field:    "assunto",
				Variants: []string{"tipo de acao", "acao"},
				Category: CategoryCase,
				Type:     TypeText,
			},
			{
				Field:    "status_processo",
				Variants: []string{"andamento", "status"},
				Category: CategoryCase,
				Type:     TypeText,
			},
			{
				Field:    "valor_causa",
				Variants: []string{"valor da acao", "valor"},
				Category: CategoryCase,
				Type:     TypeCurrency,
			},
			{
				Field:    "evento_titulo",
				Variants: []string{"tarefa", "compromisso"},
				Category: CategoryEvent,
				Type:     TypeText,
			},
			{
				Field:    "evento_data",
				Variants: []string{"data da tarefa", "vencimento"},
				Category: CategoryEvent,
				Type:     TypeDate,
			},
			{
				Field:    "evento_tipo",
				Variants: []string{"tipo de tarefa"},
				Category: CategoryEvent,
				Type:     TypeText,
			},
		},
		Transforms: []TransformRule{
			{Field: "evento_data", Kind: TransformDate, SourceFormat: "02/01/2006"},
			{Field: "valor_causa", Kind: TransformCurrency},
			{Field: "evento_tipo", Kind: TransformLookup, Lookup: map[string]string{
				"Audiência":   "hearing",
				"Prazo":       "deadline",
				"Tarefa":      "task",
				"Compromisso": "task",
			}},
		},
		Validations: []ValidationRule{
			{Field: "numero_processo", Kind: ValidateRequired, Message: "process number is required"},
			{Field: "cliente", Kind: ValidateRequired, Message: "client name is required"},
			{Field: "valor_causa", Kind: ValidateRange, Min: 0, Max: 1e12, Message: "claim value out of range"},
		},
		Strategy: ImportStrategy{
			Order: []Category{CategoryClient, CategoryCase, CategoryEvent},
			Dependencies: map[Category][]Category{
				CategoryCase:  {CategoryClient},
				CategoryEvent: {CategoryCase},
			},
			Conflicts: ConflictMerge,
		},
	}
}
