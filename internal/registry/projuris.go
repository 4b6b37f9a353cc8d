package registry

// Projuris returns the mapping for Projuris exports. Projuris is the
// most common source in practice; its CSV exports use long pt-BR
// headers ("Número do Processo", "Cliente Nome") and dd/mm/yyyy dates.
func Projuris() *SystemMapping {
	return &SystemMapping{
		Key:        "projuris",
		Name:       "Projuris",
		FileTokens: []string{"projuris"},
		Signature: []string{
			"numero do processo",
			"cliente",
			"responsavel",
			"vara",
		},
		Columns: []ColumnRule{
			{
				Field:    "numero_processo",
				Variants: []string{"numero do processo", "numero processo", "n do processo", "processo"},
				Category: CategoryCase,
				Required: true,
				Type:     TypeText,
				Examples: []string{"0001234-56.2023.8.26.0100"},
			},
			{
				Field:    "cliente",
				Variants: []string{"cliente nome", "nome do cliente", "cliente"},
				Category: CategoryClient,
				Required: true,
				Type:     TypeText,
				Examples: []string{"Maria Oliveira", "Transportes Alfa Ltda"},
			},
			{
				Field:    "responsavel",
				Variants: []string{"responsavel", "advogado responsavel"},
				Category: CategoryCase,
				Required: true,
				Type:     TypeText,
				Examples: []string{"Dr. Carlos Lima"},
			},
			{
				Field:    "cliente_documento",
				Variants: []string{"cpf/cnpj", "cpf cnpj", "documento do cliente", "documento"},
				Category: CategoryClient,
				Type:     TypeTaxID,
				Examples: []string{"123.456.789-09", "12.345.678/0001-95"},
			},
			{
				Field:    "cliente_email",
				Variants: []string{"email do cliente", "e-mail", "email"},
				Category: CategoryClient,
				Type:     TypeEmail,
				Examples: []string{"maria@exemplo.com.br"},
			},
			{
				Field:    "cliente_telefone",
				Variants: []string{"telefone do cliente", "telefone", "celular"},
				Category: CategoryClient,
				Type:     TypePhone,
				Examples: []string{"(11) 98765-4321"},
			},
			{
				Field:    "vara",
				Variants: []string{"vara", "comarca", "orgao julgador"},
				Category: CategoryCase,
				Type:     TypeText,
				Examples: []string{"2ª Vara Cível de São Paulo"},
			},
			{
				Field:    "assunto",
				Variants: []string{"assunto", "area", "materia"},
				Category: CategoryCase,
				Type:     TypeText,
				Examples: []string{"Cobrança"},
			},
			{
				Field:    "status_processo",
				Variants: []string{"status", "situacao", "fase"},
				Category: CategoryCase,
				Type:     TypeText,
				Examples: []string{"Em andamento"},
			},
			{
				Field:    "valor_causa",
				Variants: []string{"valor da causa", "valor causa", "valor"},
				Category: CategoryCase,
				Type:     TypeCurrency,
				Examples: []string{"R$ 15.000,00"},
			},
			{
				Field:    "data_abertura",
				Variants: []string{"data de distribuicao", "data de abertura", "distribuicao"},
				Category: CategoryCase,
				Type:     TypeDate,
				Examples: []string{"15/03/2023"},
			},
			{
				Field:    "evento_titulo",
				Variants: []string{"compromisso", "tarefa", "evento"},
				Category: CategoryEvent,
				Type:     TypeText,
				Examples: []string{"Audiência de conciliação"},
			},
			{
				Field:    "evento_data",
				Variants: []string{"data do compromisso", "data da tarefa", "data do evento", "prazo"},
				Category: CategoryEvent,
				Type:     TypeDate,
				Examples: []string{"02/05/2023"},
			},
			{
				Field:    "documento_nome",
				Variants: []string{"documento anexo", "anexo", "arquivo"},
				Category: CategoryDocument,
				Type:     TypeText,
				Examples: []string{"peticao-inicial.pdf"},
			},
		},
		Transforms: []TransformRule{
			{Field: "data_abertura", Kind: TransformDate, SourceFormat: "02/01/2006"},
			{Field: "evento_data", Kind: TransformDate, SourceFormat: "02/01/2006"},
			{Field: "valor_causa", Kind: TransformCurrency},
			{Field: "cliente_documento", Kind: TransformTaxID},
			{Field: "status_processo", Kind: TransformLookup, Lookup: map[string]string{
				"Em andamento": "active",
				"Ativo":        "active",
				"Suspenso":     "suspended",
				"Arquivado":    "archived",
				"Encerrado":    "closed",
				"Baixado":      "closed",
			}},
			// Projuris pads process numbers with a leading "Proc. " in
			// some report layouts.
			{Field: "numero_processo", Kind: TransformRegex, Pattern: `(?i)^proc\.?\s*`, Replacement: ""},
		},
		Validations: []ValidationRule{
			{Field: "numero_processo", Kind: ValidateRequired, Message: "process number is required"},
			{Field: "numero_processo", Kind: ValidateFormat, Pattern: `^[\d.\-/]{7,25}$`, Message: "not a valid process number"},
			{Field: "cliente", Kind: ValidateRequired, Message: "client name is required"},
			{Field: "cliente_email", Kind: ValidateFormat, Pattern: `^[^@\s]+@[^@\s]+\.[^@\s]+$`, Message: "not a valid e-mail address"},
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
