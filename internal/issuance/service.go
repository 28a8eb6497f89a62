// Package issuance is the orchestration core: it turns a course completion
// fact into an invitation, waits for the wallet connection, and drives the
// build, sign, anchor, offer pipeline.
package issuance

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"unicred/internal/agent"
	"unicred/internal/audit"
	"unicred/internal/credential"
	"unicred/internal/domain"
	"unicred/internal/invitation"
	"unicred/internal/issuance/metrics"
	"unicred/internal/ledger"
	"unicred/internal/signer"
	dErrors "unicred/pkg/domain-errors"
	"unicred/pkg/platform/sentinel"
)

// Receipt is returned synchronously to the LMS caller. The learner scans the
// QR page; everything after that is asynchronous.
type Receipt struct {
	InvitationID string
	QRPageURL    string
	Simulated    bool
}

// Config carries the orchestrator tunables.
type Config struct {
	PublicBaseURL string
	// OfferDelay lets a freshly completed connection stabilize before the
	// offer is sent. Pragmatic, not a correctness requirement.
	OfferDelay time.Duration
}

// Service is the issuance orchestrator.
type Service struct {
	cfg     Config
	gateway agent.Gateway
	store   invitation.Store
	builder *credential.Builder
	signer  *signer.Signer
	anchor  *ledger.Anchor
	audit   *audit.Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewService(
	cfg Config,
	gateway agent.Gateway,
	store invitation.Store,
	builder *credential.Builder,
	sgn *signer.Signer,
	anchor *ledger.Anchor,
	auditPub *audit.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		cfg:     cfg,
		gateway: gateway,
		store:   store,
		builder: builder,
		signer:  sgn,
		anchor:  anchor,
		audit:   auditPub,
		metrics: m,
		logger:  logger,
	}
}

// HandleCompletion processes one course completion notification. It returns
// as soon as the invitation is registered; the caller never blocks on wallet
// interaction. In simulation mode the invitation is fabricated locally and
// the attempt terminates at simulated_offer_sent, with no signing or ledger
// calls ever made.
func (s *Service) HandleCompletion(ctx context.Context, fact domain.CompletionFact) (Receipt, error) {
	s.logger.Info("course completion received",
		"state", StateRequestReceived, "user", fact.UserName, "course", fact.CourseName)

	if err := fact.Validate(); err != nil {
		return Receipt{}, err
	}

	result, err := s.gateway.CreateInvitation(ctx, "Credential: "+fact.CourseName)
	if err != nil {
		s.logger.Error("invitation creation failed", "error", err, "course", fact.CourseName)
		return Receipt{}, dErrors.New(dErrors.CodeUnavailable, "could not create invitation")
	}

	raw, err := signer.Canonical(result.Invitation)
	if err != nil {
		return Receipt{}, dErrors.New(dErrors.CodeInternal, "could not encode invitation")
	}

	id, err := s.store.Put(ctx, domain.Invitation{
		RawInvitation: raw,
		OutOfBandID:   result.OutOfBand.ID,
		CreatedAt:     time.Now(),
	}, fact)
	if err != nil {
		s.logger.Error("invitation registration failed", "error", err)
		return Receipt{}, dErrors.New(dErrors.CodeInternal, "could not register invitation")
	}

	s.metrics.InvitationsCreated.Inc()
	qrPageURL := s.cfg.PublicBaseURL + "/credential-qr/" + id

	if s.gateway.Simulated() {
		s.metrics.SimulatedRequests.Inc()
		s.audit.Emit(audit.Event{
			Type:         audit.EventSimulatedOffer,
			InvitationID: id,
			SubjectID:    fact.UserID.String(),
			CourseName:   fact.CourseName,
			Detail:       result.URL,
		})
		s.logger.Info("simulated offer prepared", "state", StateSimulatedOfferSent, "invitation_id", id)
		return Receipt{InvitationID: id, QRPageURL: qrPageURL, Simulated: true}, nil
	}

	// The agent-provided short URL goes to the audit trail; the QR page hands
	// wallets the issuer's own /invitation/{id} URL instead.
	s.audit.Emit(audit.Event{
		Type:         audit.EventInvitationCreated,
		InvitationID: id,
		SubjectID:    fact.UserID.String(),
		CourseName:   fact.CourseName,
		Detail:       result.URL,
	})
	s.logger.Info("invitation registered",
		"state", StateAwaitingConnection, "invitation_id", id, "oob_id", result.OutOfBand.ID,
		"agent_url", result.URL)

	return Receipt{InvitationID: id, QRPageURL: qrPageURL}, nil
}

// Run consumes the gateway event feed until ctx is cancelled. Each completed
// connection is handled in its own goroutine so slow ledger or agent calls
// never block other in-flight attempts.
func (s *Service) Run(ctx context.Context) error {
	events := s.gateway.ConnectionEvents()
	credEvents := s.gateway.CredentialEvents()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case record, ok := <-events:
			if !ok {
				return nil
			}
			if record.State != domain.ConnectionStateCompleted {
				continue
			}
			go s.handleConnectionCompleted(ctx, record)
		case record, ok := <-credEvents:
			if !ok {
				credEvents = nil
				continue
			}
			s.handleCredentialStateChanged(record)
		}
	}
}

// handleCredentialStateChanged observes the holder side of a credential
// exchange. Acceptance is informational: the issuance attempt already
// finished when the offer was sent.
func (s *Service) handleCredentialStateChanged(record agent.CredentialExchangeRecord) {
	s.logger.Info("credential exchange state changed",
		"credential_exchange_id", record.ID, "connection_id", record.ConnectionID, "state", record.State)
	if record.State != agent.CredentialStateDone {
		return
	}
	s.audit.Emit(audit.Event{
		Type:   audit.EventCredentialAccepted,
		Detail: record.ID,
	})
	s.logger.Info("credential accepted by holder",
		"credential_exchange_id", record.ID, "connection_id", record.ConnectionID)
}

func (s *Service) handleConnectionCompleted(ctx context.Context, record domain.ConnectionRecord) {
	start := time.Now()
	s.logger.Info("connection established",
		"state", StateConnectionEstablished, "connection_id", record.ConnectionID, "oob_id", record.OutOfBandID)

	pending, err := s.store.ConsumeByOutOfBand(ctx, record.OutOfBandID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Expired, unknown, or already consumed: the connection completes
			// with no credential offered.
			s.metrics.DroppedConnections.Inc()
			s.logger.Info("no pending invitation for connection, dropping",
				"connection_id", record.ConnectionID, "oob_id", record.OutOfBandID)
			return
		}
		s.logger.Error("invitation lookup failed", "error", err, "oob_id", record.OutOfBandID)
		return
	}

	s.audit.Emit(audit.Event{
		Type:         audit.EventConnectionEstablished,
		InvitationID: pending.Invitation.ID,
		SubjectID:    pending.Fact.UserID.String(),
		CourseName:   pending.Fact.CourseName,
	})

	if s.cfg.OfferDelay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.cfg.OfferDelay):
		}
	}

	s.issue(ctx, record.ConnectionID, pending)
	s.metrics.IssuanceDuration.Observe(time.Since(start).Seconds())
}

// issue runs the synchronous pipeline: build, sign, anchor, offer. Builder
// and signer failures are terminal for the attempt; anchoring failure is not.
func (s *Service) issue(ctx context.Context, connectionID string, pending domain.PendingInvitation) {
	fact := pending.Fact
	invitationID := pending.Invitation.ID

	vc, err := s.builder.Build(fact, s.signer.IssuerDID(), s.signer.DeriveHolderDID(fact.UserID.String()))
	if err != nil {
		s.fail(audit.EventIssuanceFailed, invitationID, fact, "credential build failed", err)
		return
	}

	proof, err := s.signer.Sign(vc)
	if err != nil {
		s.fail(audit.EventIssuanceFailed, invitationID, fact, "credential signing failed", err)
		return
	}
	vc.Proof = &proof
	s.logger.Info("credential built and signed",
		"state", StateCredentialBuilt, "credential_id", vc.ID, "invitation_id", invitationID)

	hash, err := ledger.HashCredential(vc)
	if err != nil {
		s.fail(audit.EventIssuanceFailed, invitationID, fact, "credential hashing failed", err)
		return
	}

	anchorResult := s.anchor.Record(ctx, domain.LedgerAnchorRecord{
		SubjectID:      fact.UserID.String(),
		CourseName:     fact.CourseName,
		CredentialHash: hash,
		Timestamp:      time.Now().UnixMilli(),
	})
	if anchorResult.Status == ledger.StatusLocalOnly {
		s.metrics.AnchorFallbacks.Inc()
		s.audit.Emit(audit.Event{
			Type:         audit.EventAnchorFallback,
			InvitationID: invitationID,
			SubjectID:    fact.UserID.String(),
			CourseName:   fact.CourseName,
			Detail:       anchorResult.Key,
		})
	}
	s.logger.Info("anchor step finished",
		"state", StateAnchored, "status", anchorResult.Status, "key", anchorResult.Key)

	offer := agent.OfferRequest{
		ConnectionID:    connectionID,
		ProtocolVersion: "v2",
		Format:          agent.FormatJSONLD,
		Credential:      &vc,
		ProofType:       domain.ProofTypeEd25519,
		Preview: []agent.PreviewAttribute{
			{Name: "student_name", Value: fact.UserName},
			{Name: "student_email", Value: fact.UserEmail},
			{Name: "course_name", Value: fact.CourseName},
			{Name: "completion_date", Value: fact.CompletionDate},
			{Name: "credential_hash", Value: hash},
			{Name: "university", Value: vc.CredentialSubject.University.Name},
		},
	}

	if _, err := s.gateway.OfferCredential(ctx, offer); err != nil {
		s.logger.Warn("credential offer failed, retrying with degraded format",
			"error", err, "connection_id", connectionID)
		if !s.offerDegraded(ctx, connectionID, fact) {
			s.metrics.OfferFailures.Inc()
			s.fail(audit.EventOfferFailed, invitationID, fact, "degraded offer failed", err)
			return
		}
	}

	s.metrics.CredentialsIssued.Inc()
	s.audit.Emit(audit.Event{
		Type:         audit.EventCredentialIssued,
		InvitationID: invitationID,
		SubjectID:    fact.UserID.String(),
		CourseName:   fact.CourseName,
		Detail:       vc.ID,
	})
	s.logger.Info("credential offer sent",
		"state", StateOfferSent, "credential_id", vc.ID, "connection_id", connectionID)
}

// offerDegraded sends the reduced legacy-format offer. One attempt only.
func (s *Service) offerDegraded(ctx context.Context, connectionID string, fact domain.CompletionFact) bool {
	_, err := s.gateway.OfferCredential(ctx, agent.OfferRequest{
		ConnectionID:    connectionID,
		ProtocolVersion: "v2",
		Format:          agent.FormatBasic,
		Preview: []agent.PreviewAttribute{
			{Name: "name", Value: fact.UserName},
			{Name: "course", Value: fact.CourseName},
			{Name: "date", Value: fact.CompletionDate},
		},
	})
	return err == nil
}

// fail records a terminal issuance outcome. The event type distinguishes
// pipeline failures (build, sign, hash) from delivery failures; the Detail
// carries the failed stage so the trail reads without the log.
func (s *Service) fail(typ audit.EventType, invitationID string, fact domain.CompletionFact, stage string, err error) {
	s.audit.Emit(audit.Event{
		Type:         typ,
		InvitationID: invitationID,
		SubjectID:    fact.UserID.String(),
		CourseName:   fact.CourseName,
		Detail:       stage + ": " + err.Error(),
	})
	s.logger.Error(stage, "state", StateFailed, "error", err, "invitation_id", invitationID)
}
