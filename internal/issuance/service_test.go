package issuance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"unicred/internal/agent"
	"unicred/internal/audit"
	"unicred/internal/credential"
	"unicred/internal/domain"
	"unicred/internal/invitation"
	"unicred/internal/issuance/metrics"
	"unicred/internal/ledger"
	"unicred/internal/signer"
)

// fakeGateway implements agent.Gateway with scriptable failures.
type fakeGateway struct {
	mu          sync.Mutex
	events      chan domain.ConnectionRecord
	credEvents  chan agent.CredentialExchangeRecord
	createErr   error
	offerErr    error
	degradedErr error
	offers      []agent.OfferRequest
	offered     chan agent.OfferRequest
	seq         int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		events:     make(chan domain.ConnectionRecord, 8),
		credEvents: make(chan agent.CredentialExchangeRecord, 8),
		offered:    make(chan agent.OfferRequest, 8),
	}
}

func (g *fakeGateway) CreateInvitation(_ context.Context, label string) (agent.InvitationResult, error) {
	if g.createErr != nil {
		return agent.InvitationResult{}, g.createErr
	}
	g.mu.Lock()
	g.seq++
	id := fmt.Sprintf("oob-%d", g.seq)
	g.mu.Unlock()
	return agent.InvitationResult{
		Invitation: agent.OutOfBandInvitation{
			Type:               "https://didcomm.org/out-of-band/1.1/invitation",
			ID:                 id,
			Label:              label,
			HandshakeProtocols: []string{agent.HandshakeConnections},
		},
		OutOfBand: agent.OutOfBandRecord{ID: id, State: "await-response", CreatedAt: time.Now()},
		URL:       "didcomm://test/" + id,
	}, nil
}

func (g *fakeGateway) OfferCredential(_ context.Context, req agent.OfferRequest) (agent.CredentialExchangeRecord, error) {
	g.mu.Lock()
	g.offers = append(g.offers, req)
	g.mu.Unlock()

	var err error
	switch req.Format {
	case agent.FormatJSONLD:
		err = g.offerErr
	case agent.FormatBasic:
		err = g.degradedErr
	}
	if err != nil {
		return agent.CredentialExchangeRecord{}, err
	}
	g.offered <- req
	return agent.CredentialExchangeRecord{ID: "cred-ex-1", ConnectionID: req.ConnectionID, State: "offer-sent"}, nil
}

func (g *fakeGateway) ConnectionEvents() <-chan domain.ConnectionRecord { return g.events }

func (g *fakeGateway) CredentialEvents() <-chan agent.CredentialExchangeRecord { return g.credEvents }

func (g *fakeGateway) Simulated() bool { return false }

func (g *fakeGateway) offerCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.offers)
}

type fakeSubmitter struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (f *fakeSubmitter) Submit(_ context.Context, _ string, _ domain.LedgerAnchorRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *fakeSubmitter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fixture struct {
	service   *Service
	gateway   *fakeGateway
	store     *invitation.MemoryStore
	submitter *fakeSubmitter
	sink      *audit.MemorySink
}

func newFixture(t *testing.T, gw agent.Gateway) *fixture {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := invitation.NewMemoryStore(time.Hour, log)
	submitter := &fakeSubmitter{}
	sink := audit.NewMemorySink()
	pub := audit.NewPublisher(64, log)

	sgn, err := signer.New("did:web:university-example.com:issuer")
	require.NoError(t, err)

	svc := NewService(
		Config{PublicBaseURL: "http://localhost:3000", OfferDelay: 0},
		gw,
		store,
		credential.NewBuilder("Example University"),
		sgn,
		ledger.NewAnchor(submitter, log),
		pub,
		metrics.New(prometheus.NewRegistry()),
		log,
	)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = svc.Run(ctx) }()
	go func() {
		worker := audit.NewWorker(pub.Inbox(), log, sink)
		_ = worker.Run(ctx)
	}()

	f := &fixture{service: svc, store: store, submitter: submitter, sink: sink}
	if fg, ok := gw.(*fakeGateway); ok {
		f.gateway = fg
	}
	return f
}

func anaFact() domain.CompletionFact {
	return domain.CompletionFact{
		UserID:         "1",
		UserName:       "Ana",
		CourseName:     "Math 101",
		CompletionDate: "2024-01-01",
	}
}

func TestCompletionThroughOfferSent(t *testing.T) {
	gw := newFakeGateway()
	f := newFixture(t, gw)
	ctx := context.Background()

	receipt, err := f.service.HandleCompletion(ctx, anaFact())
	require.NoError(t, err)
	require.NotEmpty(t, receipt.InvitationID)
	require.Equal(t, "http://localhost:3000/credential-qr/"+receipt.InvitationID, receipt.QRPageURL)
	require.False(t, receipt.Simulated)

	pending, err := f.store.Get(ctx, receipt.InvitationID)
	require.NoError(t, err)

	gw.events <- domain.ConnectionRecord{
		ConnectionID: "conn-1",
		State:        domain.ConnectionStateCompleted,
		OutOfBandID:  pending.Invitation.OutOfBandID,
	}

	var offer agent.OfferRequest
	select {
	case offer = <-gw.offered:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for credential offer")
	}

	require.Equal(t, agent.FormatJSONLD, offer.Format)
	require.Equal(t, "conn-1", offer.ConnectionID)
	require.NotNil(t, offer.Credential)
	require.Equal(t, "Ana", offer.Credential.CredentialSubject.Name)
	require.NotNil(t, offer.Credential.Proof)
	require.NotEmpty(t, offer.Credential.Proof.ProofValue)
	require.True(t, strings.HasPrefix(offer.Credential.CredentialSubject.ID, "did:uni:holder:"))

	var hash string
	for _, attr := range offer.Preview {
		if attr.Name == "credential_hash" {
			hash = attr.Value
		}
	}
	require.Len(t, hash, 64, "preview must carry the sha256 anchor hash")

	require.Equal(t, 1, f.submitter.callCount())

	// The invitation is consumed on first use.
	_, err = f.store.ConsumeByOutOfBand(ctx, pending.Invitation.OutOfBandID)
	require.Error(t, err)

	// The agent-provided short URL lands in the audit trail.
	require.Eventually(t, func() bool {
		for _, event := range f.sink.List() {
			if event.Type == audit.EventInvitationCreated &&
				strings.HasPrefix(event.Detail, "didcomm://") {
				return true
			}
		}
		return false
	}, 2*time.Second, 20*time.Millisecond)
}

func TestHolderAcceptanceIsAudited(t *testing.T) {
	gw := newFakeGateway()
	f := newFixture(t, gw)

	gw.credEvents <- agent.CredentialExchangeRecord{
		ID:           "cred-ex-1",
		ConnectionID: "conn-1",
		State:        "offer-sent",
	}
	gw.credEvents <- agent.CredentialExchangeRecord{
		ID:           "cred-ex-1",
		ConnectionID: "conn-1",
		State:        agent.CredentialStateDone,
	}

	require.Eventually(t, func() bool {
		for _, event := range f.sink.List() {
			if event.Type == audit.EventCredentialAccepted && event.Detail == "cred-ex-1" {
				return true
			}
		}
		return false
	}, 2*time.Second, 20*time.Millisecond, "the done state must reach the audit trail")

	// Intermediate states are logged only, never audited.
	accepted := 0
	for _, event := range f.sink.List() {
		if event.Type == audit.EventCredentialAccepted {
			accepted++
		}
	}
	require.Equal(t, 1, accepted)
}

func TestBuildFailureIsAuditedAsIssuanceFailure(t *testing.T) {
	gw := newFakeGateway()
	f := newFixture(t, gw)
	ctx := context.Background()

	// A fact that slipped into the store without a course name cannot be
	// built into a credential.
	broken := anaFact()
	broken.CourseName = ""
	_, err := f.store.Put(ctx, domain.Invitation{OutOfBandID: "oob-broken"}, broken)
	require.NoError(t, err)

	gw.events <- domain.ConnectionRecord{
		ConnectionID: "conn-1",
		State:        domain.ConnectionStateCompleted,
		OutOfBandID:  "oob-broken",
	}

	require.Eventually(t, func() bool {
		for _, event := range f.sink.List() {
			if event.Type == audit.EventIssuanceFailed &&
				strings.HasPrefix(event.Detail, "credential build failed") {
				return true
			}
		}
		return false
	}, 2*time.Second, 20*time.Millisecond)

	require.Zero(t, gw.offerCount())
	require.Zero(t, f.submitter.callCount())
}

func TestDuplicateConnectionNotificationOffersOnce(t *testing.T) {
	gw := newFakeGateway()
	f := newFixture(t, gw)
	ctx := context.Background()

	receipt, err := f.service.HandleCompletion(ctx, anaFact())
	require.NoError(t, err)
	pending, err := f.store.Get(ctx, receipt.InvitationID)
	require.NoError(t, err)

	record := domain.ConnectionRecord{
		ConnectionID: "conn-1",
		State:        domain.ConnectionStateCompleted,
		OutOfBandID:  pending.Invitation.OutOfBandID,
	}
	gw.events <- record
	gw.events <- record

	select {
	case <-gw.offered:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for credential offer")
	}
	time.Sleep(100 * time.Millisecond)

	require.Equal(t, 1, gw.offerCount(), "duplicate delivery must not re-issue")
}

func TestUnknownConnectionIsDropped(t *testing.T) {
	gw := newFakeGateway()
	f := newFixture(t, gw)

	gw.events <- domain.ConnectionRecord{
		ConnectionID: "conn-ghost",
		State:        domain.ConnectionStateCompleted,
		OutOfBandID:  "oob-never-created",
	}

	time.Sleep(100 * time.Millisecond)
	require.Zero(t, gw.offerCount())
	require.Zero(t, f.submitter.callCount())
}

func TestNonCompletedStatesAreIgnored(t *testing.T) {
	gw := newFakeGateway()
	f := newFixture(t, gw)
	ctx := context.Background()

	receipt, err := f.service.HandleCompletion(ctx, anaFact())
	require.NoError(t, err)
	pending, err := f.store.Get(ctx, receipt.InvitationID)
	require.NoError(t, err)

	gw.events <- domain.ConnectionRecord{
		ConnectionID: "conn-1",
		State:        domain.ConnectionStateInvited,
		OutOfBandID:  pending.Invitation.OutOfBandID,
	}

	time.Sleep(100 * time.Millisecond)
	require.Zero(t, gw.offerCount())

	// The invitation must still be pending.
	_, err = f.store.Get(ctx, receipt.InvitationID)
	require.NoError(t, err)
}

func TestLedgerFailureDoesNotBlockOffer(t *testing.T) {
	gw := newFakeGateway()
	f := newFixture(t, gw)
	f.submitter.err = errors.New("ledger unreachable")
	ctx := context.Background()

	receipt, err := f.service.HandleCompletion(ctx, anaFact())
	require.NoError(t, err)
	pending, err := f.store.Get(ctx, receipt.InvitationID)
	require.NoError(t, err)

	gw.events <- domain.ConnectionRecord{
		ConnectionID: "conn-1",
		State:        domain.ConnectionStateCompleted,
		OutOfBandID:  pending.Invitation.OutOfBandID,
	}

	select {
	case offer := <-gw.offered:
		require.Equal(t, agent.FormatJSONLD, offer.Format)
	case <-time.After(2 * time.Second):
		t.Fatal("issuance must reach the offer despite ledger failure")
	}
}

func TestOfferFailureFallsBackToDegradedFormat(t *testing.T) {
	gw := newFakeGateway()
	gw.offerErr = errors.New("jsonld offer rejected")
	f := newFixture(t, gw)
	ctx := context.Background()

	receipt, err := f.service.HandleCompletion(ctx, anaFact())
	require.NoError(t, err)
	pending, err := f.store.Get(ctx, receipt.InvitationID)
	require.NoError(t, err)

	gw.events <- domain.ConnectionRecord{
		ConnectionID: "conn-1",
		State:        domain.ConnectionStateCompleted,
		OutOfBandID:  pending.Invitation.OutOfBandID,
	}

	var offer agent.OfferRequest
	select {
	case offer = <-gw.offered:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for degraded offer")
	}

	require.Equal(t, agent.FormatBasic, offer.Format)
	require.Nil(t, offer.Credential, "degraded offer carries attributes only")
	require.Len(t, offer.Preview, 3)
}

func TestDegradedOfferFailureIsTerminal(t *testing.T) {
	gw := newFakeGateway()
	gw.offerErr = errors.New("jsonld offer rejected")
	gw.degradedErr = errors.New("basic offer rejected")
	f := newFixture(t, gw)
	ctx := context.Background()

	receipt, err := f.service.HandleCompletion(ctx, anaFact())
	require.NoError(t, err)
	pending, err := f.store.Get(ctx, receipt.InvitationID)
	require.NoError(t, err)

	gw.events <- domain.ConnectionRecord{
		ConnectionID: "conn-1",
		State:        domain.ConnectionStateCompleted,
		OutOfBandID:  pending.Invitation.OutOfBandID,
	}

	require.Eventually(t, func() bool {
		return gw.offerCount() == 2
	}, 2*time.Second, 20*time.Millisecond, "exactly one rich and one degraded attempt")

	require.Eventually(t, func() bool {
		for _, event := range f.sink.List() {
			if event.Type == audit.EventOfferFailed {
				return true
			}
		}
		return false
	}, 2*time.Second, 20*time.Millisecond)
}

func TestInvalidFactIsRejected(t *testing.T) {
	gw := newFakeGateway()
	f := newFixture(t, gw)

	fact := anaFact()
	fact.CourseName = ""

	_, err := f.service.HandleCompletion(context.Background(), fact)
	require.Error(t, err)
	require.Zero(t, gw.offerCount())
}

func TestGatewayFailureSurfacesToCaller(t *testing.T) {
	gw := newFakeGateway()
	gw.createErr = errors.New("agent down")
	f := newFixture(t, gw)

	_, err := f.service.HandleCompletion(context.Background(), anaFact())
	require.Error(t, err)
}

func TestSimulationModeShortCircuits(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	sim := agent.NewSimulated("University Credential Issuer", log)
	f := newFixture(t, sim)
	ctx := context.Background()

	receipt, err := f.service.HandleCompletion(ctx, anaFact())
	require.NoError(t, err)
	require.True(t, receipt.Simulated)
	require.Contains(t, receipt.QRPageURL, "/credential-qr/")

	// The QR page still renders from the stored fabricated invitation.
	pending, err := f.store.Get(ctx, receipt.InvitationID)
	require.NoError(t, err)
	require.NotEmpty(t, pending.Invitation.RawInvitation)

	// No signing or ledger activity ever happens in simulation mode.
	time.Sleep(100 * time.Millisecond)
	require.Zero(t, f.submitter.callCount())
}
