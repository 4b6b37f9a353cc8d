package importer

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/advocase/importer/internal/registry"
	"github.com/advocase/importer/internal/store"
)

// projurisCSV is a semicolon-delimited Projuris export with two cases,
// one event and one document.
const projurisCSV = `Número do Processo;Cliente Nome;Responsável;Valor da Causa;Data de Distribuição;Compromisso;Data do Compromisso;Documento Anexo
0001234-56.2023.8.26.0100;Maria Oliveira;Dr. Carlos Lima;15000,00;15/03/2023;Audiência de conciliação;02/05/2023;peticao-inicial.pdf
0009876-12.2022.8.26.0002;Transportes Alfa Ltda;Dra. Ana Prado;800,50;10/06/2022;;;
`

func newTestOrchestrator() (*Orchestrator, *store.Memory) {
	m := store.NewMemory()
	return New(m, registry.Builtin(), slog.New(slog.NewTextHandler(io.Discard, nil))), m
}

func TestStartProjurisEndToEnd(t *testing.T) {
	o, m := newTestOrchestrator()
	tenant := uuid.New()

	sess, err := o.Start(context.Background(), tenant, []byte(projurisCSV), "processos.csv", Options{})
	require.NoError(t, err)
	require.NotNil(t, sess)

	assert.Equal(t, store.StatusCompleted, sess.Status)
	assert.Equal(t, "projuris", sess.System)
	assert.GreaterOrEqual(t, sess.SystemConfidence, 0.8)
	assert.Equal(t, 100, sess.Progress)
	require.NotNil(t, sess.FinishedAt)

	assert.Equal(t, 2, sess.TotalRows)
	assert.Equal(t, 2, sess.ProcessedRows)
	assert.Equal(t, 2, sess.SuccessfulRows)
	assert.Zero(t, sess.FailedRows)
	assert.Equal(t, sess.ProcessedRows, sess.SuccessfulRows+sess.FailedRows)

	assert.Equal(t, 2, sess.ClientsImported)
	assert.Equal(t, 2, sess.CasesImported)
	assert.Equal(t, 1, sess.EventsImported)
	assert.Equal(t, 1, sess.DocumentsImported)
	assert.Positive(t, sess.TransformsApplied)
	assert.Empty(t, sess.Errors)

	clients, cases, events, documents := m.Counts(tenant)
	assert.Equal(t, 2, clients)
	assert.Equal(t, 2, cases)
	assert.Equal(t, 1, events)
	assert.Equal(t, 1, documents)

	// Transformed values land on the entities.
	c, err := m.FindCaseByNumber(context.Background(), tenant, "0001234-56.2023.8.26.0100")
	require.NoError(t, err)
	assert.Equal(t, "Dr. Carlos Lima", c.Lawyer)
	require.NotNil(t, c.Value)
	assert.InDelta(t, 15000.0, *c.Value, 1e-9)
	require.NotNil(t, c.OpenedAt)
	assert.Equal(t, time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC), c.OpenedAt.UTC())

	ev, err := m.FindEvent(context.Background(), tenant, c.ID, "Audiência de conciliação")
	require.NoError(t, err)
	require.NotNil(t, ev.Date)
	assert.Equal(t, time.Date(2023, 5, 2, 0, 0, 0, 0, time.UTC), ev.Date.UTC())

	// Mapping preview and validation summary are persisted.
	assert.Len(t, sess.Mappings, 8)
	require.NotNil(t, sess.Validation)
	assert.Equal(t, 2, sess.Validation.RowsChecked)
	assert.Zero(t, sess.Validation.RowsWithError)
	assert.Len(t, sess.RowPreview, 2)

	// One audit item per row per imported category.
	items, err := m.ListAuditItems(context.Background(), tenant, sess.ID)
	require.NoError(t, err)
	assert.Len(t, items, 8)
}

func TestStartMappingWarnings(t *testing.T) {
	o, _ := newTestOrchestrator()

	sess, err := o.Start(context.Background(), uuid.New(), []byte(projurisCSV), "processos.csv", Options{})
	require.NoError(t, err)

	byKind := make(map[store.WarningKind][]store.ImportWarning)
	for _, w := range sess.Warnings {
		byKind[w.Kind] = append(byKind[w.Kind], w)
	}

	// Catalog fields with no contributing column are reported as
	// file-level optional gaps.
	optional := byKind[store.WarnMissingOptional]
	require.Len(t, optional, 6)
	fieldsSeen := make(map[string]bool)
	for _, w := range optional {
		assert.Zero(t, w.Line)
		fieldsSeen[w.Field] = true
	}
	assert.True(t, fieldsSeen["cliente_email"])
	assert.True(t, fieldsSeen["vara"])

	// Each mapped column with a transform rule gets one normalization
	// notice: regex on the process number, currency, and two dates.
	transformed := byKind[store.WarnTransformApplied]
	require.Len(t, transformed, 4)
	fieldsSeen = make(map[string]bool)
	for _, w := range transformed {
		fieldsSeen[w.Field] = true
	}
	assert.True(t, fieldsSeen["valor_causa"])
	assert.True(t, fieldsSeen["data_abertura"])
	assert.True(t, fieldsSeen["evento_data"])
	assert.True(t, fieldsSeen["numero_processo"])
}

func TestStartMissingClientName(t *testing.T) {
	o, m := newTestOrchestrator()
	tenant := uuid.New()
	csv := "Número do Processo;Cliente Nome;Responsável;Valor da Causa\n" +
		"0001111-22.2023.8.26.0100;Maria Souza;Dr. Lima;1500,00\n" +
		"0002222-33.2023.8.26.0100;;Dr. Lima;2000,00\n"

	sess, err := o.Start(context.Background(), tenant, []byte(csv), "processos.csv", Options{})
	require.NoError(t, err)

	assert.Equal(t, store.StatusCompleted, sess.Status)
	assert.Equal(t, 2, sess.ProcessedRows)
	assert.Equal(t, 1, sess.SuccessfulRows)
	assert.Equal(t, 1, sess.FailedRows)
	assert.Equal(t, 1, sess.ClientsImported)

	var missing []store.ImportWarning
	for _, w := range sess.Warnings {
		if w.Kind == store.WarnMissingRequired && w.Line > 0 {
			missing = append(missing, w)
		}
	}
	require.Len(t, missing, 1)
	assert.Equal(t, "cliente", missing[0].Field)
	assert.Equal(t, 3, missing[0].Line)

	clients, _, _, _ := m.Counts(tenant)
	assert.Equal(t, 1, clients)
}

func TestStartDuplicateFileRejected(t *testing.T) {
	o, _ := newTestOrchestrator()
	tenant := uuid.New()

	first, err := o.Start(context.Background(), tenant, []byte(projurisCSV), "a.csv", Options{})
	require.NoError(t, err)
	require.Equal(t, store.StatusCompleted, first.Status)

	second, err := o.Start(context.Background(), tenant, []byte(projurisCSV), "b.csv", Options{})
	require.ErrorIs(t, err, ErrDuplicateImport)
	require.NotNil(t, second)
	assert.Equal(t, store.StatusFailed, second.Status)
	assert.Zero(t, second.ProcessedRows)
}

func TestStartSkipDuplicatesIsIdempotent(t *testing.T) {
	o, m := newTestOrchestrator()
	tenant := uuid.New()

	first, err := o.Start(context.Background(), tenant, []byte(projurisCSV), "a.csv", Options{})
	require.NoError(t, err)
	require.Equal(t, store.StatusCompleted, first.Status)

	// Same rows, different bytes, so the content-hash preflight passes.
	again := projurisCSV + "\n"
	second, err := o.Start(context.Background(), tenant, []byte(again), "a.csv", Options{SkipDuplicates: true})
	require.NoError(t, err)

	assert.Equal(t, store.StatusCompleted, second.Status)
	assert.Equal(t, 2, second.SuccessfulRows)
	assert.Zero(t, second.FailedRows)
	assert.Zero(t, second.ClientsImported)
	assert.Zero(t, second.CasesImported)
	assert.Equal(t, 6, second.DuplicatesSkipped) // 2 clients + 2 cases + 1 event + 1 document

	clients, cases, events, documents := m.Counts(tenant)
	assert.Equal(t, 2, clients)
	assert.Equal(t, 2, cases)
	assert.Equal(t, 1, events)
	assert.Equal(t, 1, documents)
}

func TestStartOverwriteExisting(t *testing.T) {
	o, m := newTestOrchestrator()
	tenant := uuid.New()
	ctx := context.Background()

	existing := &store.Client{ID: uuid.New(), TenantID: tenant, Name: "Maria Souza"}
	require.NoError(t, m.CreateClient(ctx, existing))
	priorCase := &store.Case{ID: uuid.New(), TenantID: tenant, Number: "0001111-22.2023.8.26.0100"}
	require.NoError(t, m.CreateCase(ctx, priorCase))

	csv := "Número do Processo;Cliente Nome;Responsável;Valor da Causa\n" +
		"0001111-22.2023.8.26.0100;Maria Souza;Dr. Lima;1500,00\n"

	sess, err := o.Start(ctx, tenant, []byte(csv), "processos.csv", Options{OverwriteExisting: true})
	require.NoError(t, err)

	assert.Equal(t, store.StatusCompleted, sess.Status)
	assert.Zero(t, sess.ClientsImported)
	assert.Zero(t, sess.CasesImported)
	assert.Zero(t, sess.DuplicatesSkipped)

	updated, err := m.FindCaseByNumber(ctx, tenant, priorCase.Number)
	require.NoError(t, err)
	assert.Equal(t, priorCase.ID, updated.ID)
	assert.Equal(t, "Dr. Lima", updated.Lawyer)
	assert.Equal(t, existing.ID, updated.ClientID)
	require.NotNil(t, updated.Value)
	assert.InDelta(t, 1500.0, *updated.Value, 1e-9)

	clients, cases, _, _ := m.Counts(tenant)
	assert.Equal(t, 1, clients)
	assert.Equal(t, 1, cases)
}

func TestStartValidateOnly(t *testing.T) {
	o, m := newTestOrchestrator()
	tenant := uuid.New()

	sess, err := o.Start(context.Background(), tenant, []byte(projurisCSV), "processos.csv", Options{ValidateOnly: true})
	require.NoError(t, err)

	assert.Equal(t, store.StatusCompleted, sess.Status)
	assert.Zero(t, sess.ProcessedRows)
	require.NotNil(t, sess.Validation)
	assert.Equal(t, 2, sess.Validation.RowsChecked)

	clients, cases, events, documents := m.Counts(tenant)
	assert.Zero(t, clients+cases+events+documents)
}

func TestStartTransformErrorIsNotSilentZero(t *testing.T) {
	o, m := newTestOrchestrator()
	tenant := uuid.New()
	csv := "Número do Processo;Cliente Nome;Responsável;Valor da Causa\n" +
		"0001111-22.2023.8.26.0100;Maria Souza;Dr. Lima;1500,00\n" +
		"0002222-33.2023.8.26.0100;Joao Prado;Dr. Lima;a definir\n"

	sess, err := o.Start(context.Background(), tenant, []byte(csv), "processos.csv", Options{})
	require.NoError(t, err)

	assert.Equal(t, store.StatusCompleted, sess.Status)
	assert.Equal(t, 1, sess.SuccessfulRows)
	assert.Equal(t, 1, sess.FailedRows)

	var transformErrs []store.ImportIssue
	for _, e := range sess.Errors {
		if e.Kind == store.IssueTransform {
			transformErrs = append(transformErrs, e)
		}
	}
	require.Len(t, transformErrs, 1)
	assert.Equal(t, "valor_causa", transformErrs[0].Field)
	assert.Equal(t, "a definir", transformErrs[0].Value)

	// The case is still created, with no claim value rather than 0.
	c, err := m.FindCaseByNumber(context.Background(), tenant, "0002222-33.2023.8.26.0100")
	require.NoError(t, err)
	assert.Nil(t, c.Value)

	require.NotNil(t, sess.Validation)
	assert.Equal(t, 1, sess.Validation.RowsWithError)
	assert.Equal(t, 1, sess.Validation.ErrorsByField["valor_causa"])
}

func TestStartUnknownSystemStillImports(t *testing.T) {
	o, m := newTestOrchestrator()
	tenant := uuid.New()
	// Header names outside every system signature; columns still map
	// through the cross-system name patterns.
	csv := "CNJ;Razão Social;Valor da Ação\n0001234-56.2023.8.26.0100;Maria;1500\n"

	sess, err := o.Start(context.Background(), tenant, []byte(csv), "planilha.csv", Options{})
	require.NoError(t, err)

	assert.Equal(t, registry.UnknownKey, sess.System)
	assert.Zero(t, sess.SystemConfidence)
	assert.Equal(t, store.StatusCompleted, sess.Status)
	assert.Equal(t, 1, sess.SuccessfulRows)

	clients, cases, _, _ := m.Counts(tenant)
	assert.Equal(t, 1, clients)
	assert.Equal(t, 1, cases)
}

func TestStartCancelledContext(t *testing.T) {
	o, m := newTestOrchestrator()
	tenant := uuid.New()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sess, err := o.Start(ctx, tenant, []byte(projurisCSV), "processos.csv", Options{})
	require.NoError(t, err)

	assert.Equal(t, store.StatusCancelled, sess.Status)
	require.NotNil(t, sess.FinishedAt)
	assert.Zero(t, sess.ProcessedRows)

	clients, cases, _, _ := m.Counts(tenant)
	assert.Zero(t, clients+cases)

	// The terminal state survived the cancelled context.
	persisted, err := m.GetSession(context.Background(), tenant, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusCancelled, persisted.Status)
}

// gatedEventStore blocks the first CreateEvent until released, so a
// test can cancel while the importing phase is inside the event
// category.
type gatedEventStore struct {
	store.Datastore
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *gatedEventStore) CreateEvent(ctx context.Context, e *store.Event) error {
	s.once.Do(func() {
		close(s.started)
		<-s.release
	})
	return s.Datastore.CreateEvent(ctx, e)
}

func TestCancelMidImporting(t *testing.T) {
	m := store.NewMemory()
	gated := &gatedEventStore{
		Datastore: m,
		started:   make(chan struct{}),
		release:   make(chan struct{}),
	}
	o := New(gated, registry.Builtin(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	tenant := uuid.New()

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-gated.started
		assert.NoError(t, o.Cancel())
		close(gated.release)
	}()

	sess, err := o.Start(context.Background(), tenant, []byte(projurisCSV), "processos.csv", Options{})
	require.NoError(t, err)
	<-done

	// Cancellation is cooperative: the in-flight event write completed,
	// nothing after it ran, and prior categories were left intact.
	assert.Equal(t, store.StatusCancelled, sess.Status)
	require.NotNil(t, sess.FinishedAt)

	clients, cases, events, documents := m.Counts(tenant)
	assert.Equal(t, 2, clients)
	assert.Equal(t, 2, cases)
	assert.LessOrEqual(t, events, 1)
	assert.Zero(t, documents)

	assert.Equal(t, sess.ProcessedRows, sess.SuccessfulRows+sess.FailedRows)

	persisted, err := m.GetSession(context.Background(), tenant, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusCancelled, persisted.Status)
}

func TestStartUnparsableFileFailsSession(t *testing.T) {
	o, _ := newTestOrchestrator()

	sess, err := o.Start(context.Background(), uuid.New(), []byte("   "), "empty.csv", Options{})
	require.NoError(t, err)
	require.NotNil(t, sess)

	assert.Equal(t, store.StatusFailed, sess.Status)
	require.NotEmpty(t, sess.Errors)
	assert.Equal(t, store.IssueParse, sess.Errors[0].Kind)
	require.NotNil(t, sess.FinishedAt)
}

func TestCancelWithoutActiveSession(t *testing.T) {
	o, _ := newTestOrchestrator()
	assert.ErrorIs(t, o.Cancel(), ErrNoActiveSession)
}

func TestCurrentSnapshot(t *testing.T) {
	o, _ := newTestOrchestrator()

	_, ok := o.Current()
	assert.False(t, ok)

	sess, err := o.Start(context.Background(), uuid.New(), []byte(projurisCSV), "processos.csv", Options{})
	require.NoError(t, err)

	snap, ok := o.Current()
	require.True(t, ok)
	assert.Equal(t, sess.ID, snap.ID)
	assert.Equal(t, store.StatusCompleted, snap.Status)

	// The snapshot is a copy; mutating it must not leak back.
	snap.Status = store.StatusFailed
	again, _ := o.Current()
	assert.Equal(t, store.StatusCompleted, again.Status)
}

func TestStartBatchSizeOne(t *testing.T) {
	o, _ := newTestOrchestrator()

	sess, err := o.Start(context.Background(), uuid.New(), []byte(projurisCSV), "processos.csv", Options{BatchSize: 1})
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, sess.Status)
	assert.Equal(t, 2, sess.SuccessfulRows)
	assert.Equal(t, sess.ProcessedRows, sess.SuccessfulRows+sess.FailedRows)
}
