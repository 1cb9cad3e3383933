package filing_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appfiling "github.com/tu-usuario/filing-pro/internal/application/filing"
	"github.com/tu-usuario/filing-pro/internal/domain/entity"
	lifecycle "github.com/tu-usuario/filing-pro/internal/domain/filing"
	"github.com/tu-usuario/filing-pro/internal/infrastructure/bsa"
	"github.com/tu-usuario/filing-pro/internal/infrastructure/memory"
	infrarerx "github.com/tu-usuario/filing-pro/internal/infrastructure/rerx"
	"github.com/tu-usuario/filing-pro/pkg/config"
	"github.com/tu-usuario/filing-pro/pkg/logger"
	pkgrerx "github.com/tu-usuario/filing-pro/pkg/rerx"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes. The fake transport records uploads and can fail on demand; the fake
// source serves one canned transaction per subject.
// ──────────────────────────────────────────────────────────────────────────────

type fakeSource struct {
	mu   sync.Mutex
	txns map[string]*entity.NormalizedTransaction
}

func (s *fakeSource) NormalizedTransaction(_ context.Context, subjectID string) (*entity.NormalizedTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	txn, ok := s.txns[subjectID]
	if !ok {
		return nil, fmt.Errorf("no transaction for %s", subjectID)
	}
	return txn, nil
}

type fakeTransport struct {
	mu          sync.Mutex
	connectErr  error
	uploadErr   error
	existsAfter bool // report the file present when an upload "failed"
	files       map[string][]byte
	responses   map[string][]byte // files visible in the acknowledgments dir
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{files: map[string][]byte{}, responses: map[string][]byte{}}
}

func (t *fakeTransport) Connect(context.Context) (appfiling.TransportSession, error) {
	if t.connectErr != nil {
		return nil, t.connectErr
	}
	return &fakeSession{t: t}, nil
}

func (t *fakeTransport) uploaded() map[string][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := map[string][]byte{}
	for k, v := range t.files {
		out[k] = v
	}
	return out
}

type fakeSession struct{ t *fakeTransport }

func (s *fakeSession) Close() error { return nil }

func (s *fakeSession) Upload(_, name string, data []byte) error {
	s.t.mu.Lock()
	defer s.t.mu.Unlock()
	if s.t.uploadErr != nil {
		if s.t.existsAfter {
			s.t.files[name] = data // it actually landed
		}
		return s.t.uploadErr
	}
	s.t.files[name] = data
	return nil
}

func (s *fakeSession) List(string) ([]string, error) {
	s.t.mu.Lock()
	defer s.t.mu.Unlock()
	var names []string
	for name := range s.t.responses {
		names = append(names, name)
	}
	return names, nil
}

func (s *fakeSession) Download(_, name string) ([]byte, error) {
	s.t.mu.Lock()
	defer s.t.mu.Unlock()
	data, ok := s.t.responses[name]
	if !ok {
		return nil, fmt.Errorf("no such response file %s", name)
	}
	return data, nil
}

func (s *fakeSession) Exists(_, name string) (bool, error) {
	s.t.mu.Lock()
	defer s.t.mu.Unlock()
	_, ok := s.t.files[name]
	return ok, nil
}

type eventRecorder struct {
	mu     sync.Mutex
	events []lifecycle.StatusChange
}

func (r *eventRecorder) OnStatusChange(ev lifecycle.StatusChange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) all() []lifecycle.StatusChange {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]lifecycle.StatusChange(nil), r.events...)
}

// ──────────────────────────────────────────────────────────────────────────────
// Fixture
// ──────────────────────────────────────────────────────────────────────────────

func validTransaction(subjectID string) *entity.NormalizedTransaction {
	ssnParty := func(first, last, ssn string) entity.Party {
		return entity.Party{
			Kind: entity.KindIndividual,
			Individual: &entity.Individual{
				FirstName:      first,
				LastName:       last,
				Identification: &entity.Identification{Type: entity.IdentificationSSN, Value: ssn},
			},
		}
	}
	return &entity.NormalizedTransaction{
		SubjectID:   subjectID,
		ClosingDate: time.Date(2026, 3, 17, 0, 0, 0, 0, time.UTC),
		Property: entity.AssetsAttribute{
			Address: entity.Address{Street: "742 Evergreen Terrace", City: "Springfield", State: "VA", ZIP: "22150"},
		},
		ReportingPerson: entity.ReportingPerson{LegalName: "First Commonwealth Title Co"},
		Transferees:     []entity.Party{ssnParty("Dana", "Buyer", "123-45-6789")},
		Transferors:     []entity.Party{ssnParty("Sam", "Seller", "987-65-4321")},
		ValueTransfer: entity.ValueTransferActivity{
			TotalConsideration: decimal.NewFromInt(450000),
			Details: []entity.ValueTransferDetail{
				{Amount: decimal.NewFromInt(450000), FundingSourceCode: pkgrerx.FundingBankWire},
			},
		},
	}
}

func testBSAConfig() config.BSAConfig {
	return config.BSAConfig{
		SubmissionsDir:     "/submissions",
		AcknowledgmentsDir: "/acknowledgments",
		PollInterval:       time.Minute,
	}
}

func testTransmitterConfig() config.TransmitterConfig {
	return config.TransmitterConfig{
		TransmitterID: "12345678",
		TCC:           "TABC1234",
		LegalName:     "Acme Filing Services LLC",
		ContactName:   "Pat Operator",
		ContactPhone:  "8045551212",
		ContactEmail:  "ops@acmefiling.example",
		Street:        "100 Main St",
		City:          "Richmond",
		State:         "VA",
		ZIP:           "23220",
		Country:       "US",
	}
}

type fixture struct {
	repo      *memory.SubmissionRepository
	source    *fakeSource
	transport *fakeTransport
	events    *eventRecorder
	orch      *appfiling.Orchestrator
	poller    *appfiling.Poller
}

func newFixture(subjectID string) *fixture {
	f := &fixture{
		repo:      memory.NewSubmissionRepository(),
		source:    &fakeSource{txns: map[string]*entity.NormalizedTransaction{}},
		transport: newFakeTransport(),
		events:    &eventRecorder{},
	}
	if subjectID != "" {
		f.source.txns[subjectID] = validTransaction(subjectID)
	}
	log := logger.Nop()
	f.orch = appfiling.NewOrchestrator(
		f.repo, f.source, f.transport, infrarerx.NewDocumentBuilder(),
		testBSAConfig(), testTransmitterConfig(), f.events, log,
	)
	f.poller = appfiling.NewPoller(f.repo, f.transport, testBSAConfig(), f.events, log)
	return f
}

// ──────────────────────────────────────────────────────────────────────────────
// Orchestrator
// ──────────────────────────────────────────────────────────────────────────────

func TestSubmit_FullPipeline(t *testing.T) {
	f := newFixture("txn-1")
	ctx := context.Background()

	require.NoError(t, f.orch.Submit(ctx, "txn-1"))

	sub, err := f.repo.GetBySubject(ctx, "txn-1")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusSubmitted, sub.Status)
	assert.Equal(t, uint32(1), sub.Attempts)
	assert.NotEmpty(t, sub.Filename)
	assert.NotEmpty(t, sub.PayloadSnapshot)
	assert.True(t, sub.TotalConsideration.Equal(decimal.NewFromInt(450000)))

	uploads := f.transport.uploaded()
	require.Len(t, uploads, 1)
	assert.Equal(t, sub.PayloadSnapshot, uploads[sub.Filename],
		"the uploaded bytes are exactly the persisted snapshot")
	assert.NoError(t, infrarerx.ValidateDocument(uploads[sub.Filename]),
		"nothing structurally invalid may reach the transport")

	evs := f.events.all()
	require.Len(t, evs, 2, "one event per transition: queued, submitted")
	assert.Equal(t, entity.StatusQueued, evs[0].To)
	assert.Equal(t, entity.StatusSubmitted, evs[1].To)
}

func TestSubmit_PreflightViolationLeavesStateUntouched(t *testing.T) {
	f := newFixture("txn-1")
	f.source.txns["txn-1"].Transferees = nil

	err := f.orch.Submit(context.Background(), "txn-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, infrarerx.ErrPreflight)

	sub, getErr := f.repo.GetBySubject(context.Background(), "txn-1")
	require.NoError(t, getErr)
	assert.Equal(t, entity.StatusNotStarted, sub.Status,
		"a filing that fails preflight is never queued")
	assert.Empty(t, f.transport.uploaded(), "and nothing reaches the transport")
}

func TestSubmit_TransportExhaustionEscalates(t *testing.T) {
	f := newFixture("txn-1")
	f.transport.connectErr = fmt.Errorf("%w: retries exhausted", bsa.ErrConnection)

	err := f.orch.Submit(context.Background(), "txn-1")
	require.Error(t, err)

	sub, getErr := f.repo.GetBySubject(context.Background(), "txn-1")
	require.NoError(t, getErr)
	assert.Equal(t, entity.StatusNeedsReview, sub.Status)
	assert.Contains(t, sub.RejectionMessage, "transport retries exhausted")
}

func TestSubmit_AmbiguousUploadChecksRemoteExistence(t *testing.T) {
	f := newFixture("txn-1")
	f.transport.uploadErr = fmt.Errorf("%w: connection reset mid-transfer", bsa.ErrConnection)
	f.transport.existsAfter = true // the file actually landed

	require.NoError(t, f.orch.Submit(context.Background(), "txn-1"),
		"a remote file that exists after an ambiguous failure counts as delivered")

	sub, err := f.repo.GetBySubject(context.Background(), "txn-1")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusSubmitted, sub.Status)
}

func TestSubmit_UploadFailureWithNoRemoteFileEscalates(t *testing.T) {
	f := newFixture("txn-1")
	f.transport.uploadErr = fmt.Errorf("%w: connection reset mid-transfer", bsa.ErrConnection)

	err := f.orch.Submit(context.Background(), "txn-1")
	require.Error(t, err)

	sub, getErr := f.repo.GetBySubject(context.Background(), "txn-1")
	require.NoError(t, getErr)
	assert.Equal(t, entity.StatusNeedsReview, sub.Status)
}

func TestSubmit_InFlightConflict(t *testing.T) {
	f := newFixture("txn-1")
	ctx := context.Background()
	require.NoError(t, f.orch.Submit(ctx, "txn-1"))

	err := f.orch.Submit(ctx, "txn-1")
	assert.ErrorIs(t, err, lifecycle.ErrSubmissionInFlight,
		"a second submit while one is outstanding must conflict, never double-file")
}

func TestSubmit_RetryAfterRejectionRebuildsAndIncrements(t *testing.T) {
	f := newFixture("txn-1")
	ctx := context.Background()
	require.NoError(t, f.orch.Submit(ctx, "txn-1"))

	// Reject it as the remote system would.
	sub, err := f.repo.GetBySubject(ctx, "txn-1")
	require.NoError(t, err)
	_, err = lifecycle.Reject(sub, "E-233", "identification missing")
	require.NoError(t, err)
	require.NoError(t, f.repo.Update(ctx, sub))
	firstFilename := sub.Filename

	require.NoError(t, f.orch.Submit(ctx, "txn-1"))

	sub, err = f.repo.GetBySubject(ctx, "txn-1")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusSubmitted, sub.Status)
	assert.Equal(t, uint32(2), sub.Attempts)
	assert.Empty(t, sub.RejectionCode, "retry clears prior rejection detail")
	assert.NotEqual(t, firstFilename, sub.Filename, "a retry never reuses the upload filename")
	assert.Len(t, f.transport.uploaded(), 2)
}

func TestSubmit_AcceptedIsTerminal(t *testing.T) {
	f := newFixture("txn-1")
	ctx := context.Background()
	require.NoError(t, f.orch.Submit(ctx, "txn-1"))

	sub, err := f.repo.GetBySubject(ctx, "txn-1")
	require.NoError(t, err)
	_, err = lifecycle.Accept(sub, "31000012345678")
	require.NoError(t, err)
	require.NoError(t, f.repo.Update(ctx, sub))

	err = f.orch.Submit(ctx, "txn-1")
	assert.ErrorIs(t, err, lifecycle.ErrTerminal)
}

// ──────────────────────────────────────────────────────────────────────────────
// Poller
// ──────────────────────────────────────────────────────────────────────────────

func submitted(t *testing.T, f *fixture, subjectID string) *entity.FilingSubmission {
	t.Helper()
	require.NoError(t, f.orch.Submit(context.Background(), subjectID))
	sub, err := f.repo.GetBySubject(context.Background(), subjectID)
	require.NoError(t, err)
	return sub
}

func responseName(sub *entity.FilingSubmission, kind string) string {
	return sub.Filename + "." + kind
}

func TestPoll_AcceptanceWithReceipt(t *testing.T) {
	f := newFixture("txn-1")
	sub := submitted(t, f, "txn-1")

	f.transport.responses[responseName(sub, "MESSAGES")] = []byte(
		`<EFilingSubmissionXML StatusCode="A"/>`)
	f.transport.responses[responseName(sub, "ACKED")] = []byte(
		`<Ack><ActivitySeqNum>1</ActivitySeqNum><BSAIdentifier>31000012345678</BSAIdentifier></Ack>`)

	require.NoError(t, f.poller.Poll(context.Background()))

	sub, err := f.repo.GetBySubject(context.Background(), "txn-1")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusAccepted, sub.Status)
	assert.Equal(t, "31000012345678", sub.ReceiptID)
}

func TestPoll_RejectionRecordsFirstError(t *testing.T) {
	f := newFixture("txn-1")
	sub := submitted(t, f, "txn-1")

	f.transport.responses[responseName(sub, "MESSAGES")] = []byte(`
<EFilingSubmissionXML>
  <EFilingActivityErrorXML>
    <ErrorTypeCode>E-233</ErrorTypeCode>
    <ErrorText>Transferee identification missing</ErrorText>
  </EFilingActivityErrorXML>
</EFilingSubmissionXML>`)

	require.NoError(t, f.poller.Poll(context.Background()))

	sub, err := f.repo.GetBySubject(context.Background(), "txn-1")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusRejected, sub.Status)
	assert.Equal(t, "E-233", sub.RejectionCode)
	assert.Equal(t, "Transferee identification missing", sub.RejectionMessage)
}

func TestPoll_AckOnlyAcceptance(t *testing.T) {
	f := newFixture("txn-1")
	sub := submitted(t, f, "txn-1")

	f.transport.responses[responseName(sub, "ACKED")] = []byte(
		`<Ack><BSAIdentifier>31000099999999</BSAIdentifier></Ack>`)

	require.NoError(t, f.poller.Poll(context.Background()))

	sub, err := f.repo.GetBySubject(context.Background(), "txn-1")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusAccepted, sub.Status,
		"a receipt id only ever accompanies acceptance")
	assert.Equal(t, "31000099999999", sub.ReceiptID)
}

func TestPoll_NoResponsesLeavesSubmitted(t *testing.T) {
	f := newFixture("txn-1")
	submitted(t, f, "txn-1")

	require.NoError(t, f.poller.Poll(context.Background()))

	sub, err := f.repo.GetBySubject(context.Background(), "txn-1")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusSubmitted, sub.Status,
		"silence from the endpoint is not an outcome")
}

func TestPoll_UnreadableResponseEscalatesOnlyThatFiling(t *testing.T) {
	f := newFixture("txn-1")
	f.source.txns["txn-2"] = validTransaction("txn-2")

	subA := submitted(t, f, "txn-1")
	subB := submitted(t, f, "txn-2")

	f.transport.responses[responseName(subA, "MESSAGES")] = []byte("complete garbage }{")
	f.transport.responses[responseName(subB, "MESSAGES")] = []byte(
		`<EFilingSubmissionXML StatusCode="A"/>`)
	f.transport.responses[responseName(subB, "ACKED")] = []byte(
		`<Ack><BSAIdentifier>31000012340000</BSAIdentifier></Ack>`)

	require.NoError(t, f.poller.Poll(context.Background()))

	subA, err := f.repo.GetBySubject(context.Background(), "txn-1")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusNeedsReview, subA.Status,
		"an uninterpretable response escalates for manual review")

	subB, err = f.repo.GetBySubject(context.Background(), "txn-2")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusAccepted, subB.Status,
		"one bad response never blocks the other filings")
}

func TestPoll_WarningsStillAccept(t *testing.T) {
	f := newFixture("txn-1")
	sub := submitted(t, f, "txn-1")

	f.transport.responses[responseName(sub, "MESSAGES")] = []byte(`
<EFilingSubmissionXML StatusCode="A">
  <EFilingActivityErrorXML>
    <ErrorTypeCode>W-012</ErrorTypeCode>
    <ErrorText>ZIP code could not be verified</ErrorText>
    <ErrorLevelText>WARN</ErrorLevelText>
  </EFilingActivityErrorXML>
</EFilingSubmissionXML>`)
	f.transport.responses[responseName(sub, "ACKED")] = []byte(
		`<Ack><BSAIdentifier>31000055556666</BSAIdentifier></Ack>`)

	require.NoError(t, f.poller.Poll(context.Background()))

	sub, err := f.repo.GetBySubject(context.Background(), "txn-1")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusAccepted, sub.Status)
	assert.Equal(t, "31000055556666", sub.ReceiptID)
}
