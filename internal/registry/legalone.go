package registry

// LegalOne returns the mapping for Thomson Reuters Legal One exports.
// Legal One spreadsheets mix pt-BR labels with the product's own English
// column names and use ISO dates in newer report templates.
func LegalOne() *SystemMapping {
	return &SystemMapping{
		Key:        "legalone",
		Name:       "Legal One",
		FileTokens: []string{"legalone", "legal one", "legal_one"},
		Signature: []string{
			"pasta",
			"numero cnj",
			"contrario principal",
			"cliente principal",
		},
		Columns: []ColumnRule{
			{
				Field:    "numero_processo",
				Variants: []string{"numero cnj", "numero unico", "numero do processo"},
				Category: CategoryCase,
				Required: true,
				Type:     TypeText,
				Examples: []string{"1002345-67.2022.8.19.0001"},
			},
			{
				Field:    "titulo_processo",
				Variants: []string{"pasta", "titulo da pasta"},
				Category: CategoryCase,
				Type:     TypeText,
				Examples: []string{"Banco Beta x Silva"},
			},
			{
				Field:    "cliente",
				Variants: []string{"cliente principal", "cliente"},
				Category: CategoryClient,
				Required: true,
				Type:     TypeText,
				Examples: []string{"Construtora Gama S.A."},
			},
			{
				Field:    "cliente_documento",
				Variants: []string{"cnpj/cpf", "documento"},
				Category: CategoryClient,
				Type:     TypeTaxID,
				Examples: []string{"04.252.011/0001-10"},
			},
			{
				Field:    "cliente_email",
				Variants: []string{"email", "e-mail"},
				Category: CategoryClient,
				Type:     TypeEmail,
			},
			{
				Field:    "responsavel",
				Variants: []string{"responsavel", "advogado", "executor"},
				Category: CategoryCase,
				Type:     TypeText,
			},
			{
				Field:    "vara",
				Variants: []string{"orgao", "juizo", "vara"},
				Category: CategoryCase,
				Type:     TypeText,
			},
			{
				Field:    "assunto",
				Variants: []string{"objeto", "assunto"},
				Category: CategoryCase,
				Type:     TypeText,
			},
			{
				Field:    "status_processo",
				Variants: []string{"situacao da pasta", "situacao", "status"},
				Category: CategoryCase,
				Type:     TypeText,
			},
			{
				Field:    "valor_causa",
				Variants: []string{"valor envolvido", "valor da causa"},
				Category: CategoryCase,
				Type:     TypeCurrency,
				Examples: []string{"1.250.000,00"},
			},
			{
				Field:    "data_abertura",
				Variants: []string{"data de cadastro", "data de distribuicao"},
				Category: CategoryCase,
				Type:     TypeDate,
				Examples: []string{"2022-11-04"},
			},
			{
				Field:    "evento_titulo",
				Variants: []string{"andamento", "compromisso"},
				Category: CategoryEvent,
				Type:     TypeText,
			},
			{
				Field:    "evento_data",
				Variants: []string{"data do andamento", "data do compromisso"},
				Category: CategoryEvent,
				Type:     TypeDate,
			},
			{
				Field:    "documento_nome",
				Variants: []string{"documento", "ged"},
				Category: CategoryDocument,
				Type:     TypeText,
			},
		},
		Transforms: []TransformRule{
			// Newer Legal One templates export ISO dates, older ones
			// dd/mm/yyyy; auto handles both, day-first for the latter.
			{Field: "data_abertura", Kind: TransformDate, SourceFormat: "auto"},
			{Field: "evento_data", Kind: TransformDate, SourceFormat: "auto"},
			{Field: "valor_causa", Kind: TransformCurrency},
			{Field: "cliente_documento", Kind: TransformTaxID},
			{Field: "status_processo", Kind: TransformLookup, Lookup: map[string]string{
				"Ativa":      "active",
				"Ativo":      "active",
				"Suspensa":   "suspended",
				"Encerrada":  "closed",
				"Arquivada":  "archived",
			}},
		},
		Validations: []ValidationRule{
			{Field: "numero_processo", Kind: ValidateRequired, Message: "CNJ number is required"},
			{Field: "numero_processo", Kind: ValidateFormat, Pattern: `^\d{7}-\d{2}\.\d{4}\.\d\.\d{2}\.\d{4}$`, Message: "not a valid CNJ number"},
			{Field: "cliente", Kind: ValidateRequired, Message: "client name is required"},
			{Field: "valor_causa", Kind: ValidateRange, Min: 0, Max: 1e12, Message: "claim value out of range"},
		},
		Strategy: ImportStrategy{
			Order: []Category{CategoryClient, CategoryCase, CategoryDocument, CategoryEvent},
			Dependencies: map[Category][]Category{
				CategoryCase:     {CategoryClient},
				CategoryDocument: {CategoryCase},
				CategoryEvent:    {CategoryCase},
			},
			Conflicts: ConflictOverwrite,
		},
	}
}
