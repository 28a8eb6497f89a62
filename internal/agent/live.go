package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"unicred/internal/domain"
	"unicred/pkg/platform/sentinel"
)

// Live drives a DIDComm agent through its admin API. Connection state changes
// arrive as webhooks the agent posts back to this process; WebhookHandler
// turns them into events on the channel the orchestrator consumes.
type Live struct {
	adminURL   string
	client     *http.Client
	logger     *slog.Logger
	events     chan domain.ConnectionRecord
	credEvents chan CredentialExchangeRecord
}

// NewLive connects to the agent admin API and verifies it is usable. An error
// here means the agent runtime is unusable for the whole process lifetime;
// the caller is expected to fall back to the simulated gateway once.
func NewLive(ctx context.Context, adminURL string, timeout time.Duration, logger *slog.Logger) (*Live, error) {
	if adminURL == "" {
		return nil, fmt.Errorf("agent admin URL not configured: %w", sentinel.ErrUnavailable)
	}

	g := &Live{
		adminURL:   adminURL,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
		events:     make(chan domain.ConnectionRecord, 64),
		credEvents: make(chan CredentialExchangeRecord, 64),
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, adminURL+"/status", nil)
	if err != nil {
		return nil, fmt.Errorf("build agent status request: %w", err)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("agent unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("agent status %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}

	return g, nil
}

type createInvitationRequest struct {
	Label              string   `json:"label"`
	HandshakeProtocols []string `json:"handshake_protocols"`
}

type createInvitationResponse struct {
	Invitation    OutOfBandInvitation `json:"invitation"`
	OutOfBand     OutOfBandRecord     `json:"out_of_band_record"`
	InvitationURL string              `json:"invitation_url"`
}

func (g *Live) CreateInvitation(ctx context.Context, label string) (InvitationResult, error) {
	body := createInvitationRequest{
		Label:              label,
		HandshakeProtocols: []string{HandshakeConnections},
	}

	var out createInvitationResponse
	if err := g.post(ctx, "/out-of-band/invitations", body, &out); err != nil {
		return InvitationResult{}, fmt.Errorf("create invitation: %w", err)
	}

	return InvitationResult{
		Invitation: out.Invitation,
		OutOfBand:  out.OutOfBand,
		URL:        out.InvitationURL,
	}, nil
}

type offerCredentialRequest struct {
	ConnectionID      string                       `json:"connection_id"`
	ProtocolVersion   string                       `json:"protocol_version"`
	CredentialFormats map[string]json.RawMessage   `json:"credential_formats"`
	Preview           []PreviewAttribute           `json:"preview,omitempty"`
}

type jsonldFormat struct {
	Credential *domain.VerifiableCredential `json:"credential"`
	Options    struct {
		ProofType string `json:"proofType"`
	} `json:"options"`
}

type basicFormat struct {
	CredentialDefinitionID string             `json:"credential_definition_id"`
	Attributes             []PreviewAttribute `json:"attributes"`
}

func (g *Live) OfferCredential(ctx context.Context, req OfferRequest) (CredentialExchangeRecord, error) {
	formats := make(map[string]json.RawMessage, 1)
	switch req.Format {
	case FormatJSONLD:
		f := jsonldFormat{Credential: req.Credential}
		f.Options.ProofType = req.ProofType
		raw, err := json.Marshal(f)
		if err != nil {
			return CredentialExchangeRecord{}, fmt.Errorf("encode jsonld format: %w", err)
		}
		formats[FormatJSONLD] = raw
	case FormatBasic:
		raw, err := json.Marshal(basicFormat{
			CredentialDefinitionID: "basic-cred-def",
			Attributes:             req.Preview,
		})
		if err != nil {
			return CredentialExchangeRecord{}, fmt.Errorf("encode basic format: %w", err)
		}
		formats[FormatBasic] = raw
	default:
		return CredentialExchangeRecord{}, fmt.Errorf("unknown credential format %q", req.Format)
	}

	body := offerCredentialRequest{
		ConnectionID:      req.ConnectionID,
		ProtocolVersion:   req.ProtocolVersion,
		CredentialFormats: formats,
		Preview:           req.Preview,
	}

	var record CredentialExchangeRecord
	if err := g.post(ctx, "/credentials/offer", body, &record); err != nil {
		return CredentialExchangeRecord{}, fmt.Errorf("offer credential: %w", err)
	}
	return record, nil
}

func (g *Live) ConnectionEvents() <-chan domain.ConnectionRecord {
	return g.events
}

func (g *Live) CredentialEvents() <-chan CredentialExchangeRecord {
	return g.credEvents
}

func (g *Live) Simulated() bool { return false }

// WebhookHandler receives connection state change webhooks from the agent and
// feeds them to the orchestrator. A full event buffer drops the event rather
// than stalling the agent's webhook delivery; the wallet will retry the
// exchange.
func (g *Live) WebhookHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var record domain.ConnectionRecord
		if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		select {
		case g.events <- record:
		default:
			g.logger.Warn("connection event buffer full, dropping event",
				"connection_id", record.ConnectionID, "state", record.State)
		}
		w.WriteHeader(http.StatusOK)
	}
}

// CredentialWebhookHandler receives credential exchange state webhooks. Same
// drop-over-stall policy as the connection feed; these events are
// informational and losing one costs only a log line.
func (g *Live) CredentialWebhookHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var record CredentialExchangeRecord
		if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		select {
		case g.credEvents <- record:
		default:
			g.logger.Warn("credential event buffer full, dropping event",
				"credential_exchange_id", record.ID, "state", record.State)
		}
		w.WriteHeader(http.StatusOK)
	}
}

func (g *Live) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.adminURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("agent call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("agent returned status %d for %s: %w", resp.StatusCode, path, sentinel.ErrUnavailable)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode agent response: %w", err)
	}
	return nil
}
