package mapping

import (
	"regexp"

	"github.com/advocase/importer/internal/registry"
)

// namePattern is one cross-system column-name pattern. The list is
// ordered most-specific first: date columns like "data do compromisso"
// must be claimed before the bare event-title pattern gets a chance.
type namePattern struct {
	field    string
	category registry.Category
	dataType registry.DataType
	re       *regexp.Regexp
}

// namePatterns is tested in order against the normalized column name;
// the first match sets the base mapping.
var namePatterns = []namePattern{
	{"numero_processo", registry.CategoryCase, registry.TypeText,
		regexp.MustCompile(`processo|numero cnj|numero unificado|\bcnj\b`)},
	{"evento_data", registry.CategoryEvent, registry.TypeDate,
		regexp.MustCompile(`data d[aeo] (compromisso|tarefa|evento|audiencia|movimentacao|andamento|ato)|prazo|vencimento`)},
	{"data_abertura", registry.CategoryCase, registry.TypeDate,
		regexp.MustCompile(`data de (distribuicao|cadastro|abertura|recebimento)|distribuicao`)},
	{"cliente_documento", registry.CategoryClient, registry.TypeTaxID,
		regexp.MustCompile(`cpf|cnpj|documento d[ao] (cliente|parte)`)},
	{"cliente_email", registry.CategoryClient, registry.TypeEmail,
		regexp.MustCompile(`e-?mail`)},
	{"cliente_telefone", registry.CategoryClient, registry.TypePhone,
		regexp.MustCompile(`telefone|celular|\bfone\b|contato`)},
	{"cliente", registry.CategoryClient, registry.TypeText,
		regexp.MustCompile(`cliente|\bparte\b|nome da parte|razao social`)},
	{"responsavel", registry.CategoryCase, registry.TypeText,
		regexp.MustCompile(`responsavel|advogado|executor`)},
	{"vara", registry.CategoryCase, registry.TypeText,
		regexp.MustCompile(`\bvara\b|comarca|\bforo\b|orgao|juizo|instancia`)},
	{"assunto", registry.CategoryCase, registry.TypeText,
		regexp.MustCompile(`assunto|classe|materia|objeto|tipo de acao|\barea\b`)},
	{"valor_causa", registry.CategoryCase, registry.TypeCurrency,
		regexp.MustCompile(`valor`)},
	{"status_processo", registry.CategoryCase, registry.TypeText,
		regexp.MustCompile(`status|situacao|\bfase\b`)},
	{"evento_tipo", registry.CategoryEvent, registry.TypeText,
		regexp.MustCompile(`tipo de (tarefa|evento|compromisso)`)},
	{"evento_titulo", registry.CategoryEvent, registry.TypeText,
		regexp.MustCompile(`compromisso|tarefa|evento|audiencia|movimentacao|andamento|\bato\b`)},
	{"documento_url", registry.CategoryDocument, registry.TypeText,
		regexp.MustCompile(`\burl\b|\blink\b`)},
	{"documento_nome", registry.CategoryDocument, registry.TypeText,
		regexp.MustCompile(`documento|anexo|arquivo|peca|\bged\b`)},
}

// Value-shape regexes used to raise mapping confidence when sample
// values look like the expected data type.
var (
	dateShapes = []*regexp.Regexp{
		regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{2,4}$`),
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`),
		regexp.MustCompile(`^\d{1,2}\.\d{1,2}\.\d{4}$`),
		regexp.MustCompile(`^\d{1,2}-\d{1,2}-\d{4}$`),
	}
	currencyShape = regexp.MustCompile(`^-?\s*(r\$\s*)?\d{1,3}([.,]\d{3})*([.,]\d{1,2})?$`)
	emailShape    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// matchesShape reports whether a sample value has the expected shape
// for a data type. Types without a shape heuristic never match.
func matchesShape(value string, t registry.DataType) bool {
	v := registry.Normalize(value)
	if v == "" {
		return false
	}
	switch t {
	case registry.TypeDate:
		for _, re := range dateShapes {
			if re.MatchString(v) {
				return true
			}
		}
	case registry.TypeCurrency, registry.TypeNumber:
		return currencyShape.MatchString(v)
	case registry.TypeEmail:
		return emailShape.MatchString(v)
	}
	return false
}
