package registry

// SajAdv returns the mapping for SAJ ADV (Softplan) exports. SAJ ADV
// reports come out of the court-system integration, so they carry more
// judicial metadata (comarca, foro, classe) than the other products.
func SajAdv() *SystemMapping {
	return &SystemMapping{
		Key:        "sajadv",
		Name:       "SAJ ADV",
		FileTokens: []string{"sajadv", "saj adv", "saj_adv", "softplan"},
		Signature: []string{
			"numero do processo",
			"comarca",
			"foro",
			"classe",
		},
		Columns: []ColumnRule{
			{
				Field:    "numero_processo",
				Variants: []string{"numero do processo", "numero unificado"},
				Category: CategoryCase,
				Required: true,
				Type:     TypeText,
			},
			{
				Field:    "cliente",
				Variants: []string{"nome da parte", "parte interessada", "cliente"},
				Category: CategoryClient,
				Required: true,
				Type:     TypeText,
			},
			{
				Field:    "cliente_documento",
				Variants: []string{"cpf", "cnpj", "documento da parte"},
				Category: CategoryClient,
				Type:     TypeTaxID,
			},
			{
				Field:    "vara",
				Variants: []string{"comarca", "foro", "vara"},
				Category: CategoryCase,
				Type:     TypeText,
				Examples: []string{"Foro Central Cível"},
			},
			{
				Field:    "assunto",
				Variants: []string{"classe", "assunto principal"},
				Category: CategoryCase,
				Type:     TypeText,
				Examples: []string{"Procedimento Comum Cível"},
			},
			{
				Field:    "status_processo",
				Variants: []string{"situacao do processo", "situacao"},
				Category: CategoryCase,
				Type:     TypeText,
			},
			{
				Field:    "valor_causa",
				Variants: []string{"valor da acao", "valor da causa"},
				Category: CategoryCase,
				Type:     TypeCurrency,
			},
			{
				Field:    "data_abertura",
				Variants: []string{"data de recebimento", "data de distribuicao"},
				Category: CategoryCase,
				Type:     TypeDate,
				Examples: []string{"03.04.2024"},
			},
			{
				Field:    "evento_titulo",
				Variants: []string{"movimentacao", "ato"},
				Category: CategoryEvent,
				Type:     TypeText,
			},
			{
				Field:    "evento_data",
				Variants: []string{"data da movimentacao", "data do ato"},
				Category: CategoryEvent,
				Type:     TypeDate,
			},
			{
				Field:    "documento_nome",
				Variants: []string{"peca", "documento"},
				Category: CategoryDocument,
				Type:     TypeText,
			},
			{
				Field:    "documento_url",
				Variants: []string{"link da peca", "url"},
				Category: CategoryDocument,
				Type:     TypeText,
			},
		},
		Transforms: []TransformRule{
			// SAJ uses dotted dates (03.04.2024).
			{Field: "data_abertura", Kind: TransformDate, SourceFormat: "02.01.2006"},
			{Field: "evento_data", Kind: TransformDate, SourceFormat: "02.01.2006"},
			{Field: "valor_causa", Kind: TransformCurrency},
			{Field: "cliente_documento", Kind: TransformTaxID},
		},
		Validations: []ValidationRule{
			{Field: "numero_processo", Kind: ValidateRequired, Message: "process number is required"},
			{Field: "numero_processo", Kind: ValidateFormat, Pattern: `^\d{7}-\d{2}\.\d{4}\.\d\.\d{2}\.\d{4}$`, Message: "not a valid unified number"},
			{Field: "cliente", Kind: ValidateRequired, Message: "party name is required"},
			{Field: "valor_causa", Kind: ValidateRange, Min: 0, Max: 1e12, Message: "claim value out of range"},
		},
		Strategy: ImportStrategy{
			Order: []Category{CategoryClient, CategoryCase, CategoryEvent, CategoryDocument},
			Dependencies: map[Category][]Category{
				CategoryCase:     {CategoryClient},
				CategoryEvent:    {CategoryCase},
				CategoryDocument: {CategoryCase},
			},
			Conflicts: ConflictSkip,
		},
	}
}
