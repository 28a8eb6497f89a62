// Package agent abstracts the DIDComm agent runtime behind a small gateway
// interface. Two implementations exist: Live drives a real agent over its
// admin API and receives its webhooks; Simulated fabricates equivalent
// response shapes with no external calls. The choice is made once at startup
// and never re-evaluated per request.
package agent

import (
	"context"
	"time"

	"unicred/internal/domain"
)

// HandshakeConnections is the handshake protocol requested on invitations.
const HandshakeConnections = "https://didcomm.org/connections/1.0"

// OutOfBandInvitation is the self-contained invitation a wallet consumes,
// usually rendered as a QR code.
type OutOfBandInvitation struct {
	Type               string   `json:"@type"`
	ID                 string   `json:"@id"`
	Label              string   `json:"label"`
	HandshakeProtocols []string `json:"handshake_protocols"`
	Services           []string `json:"services,omitempty"`
}

// OutOfBandRecord is the agent-side bookkeeping record for an invitation.
type OutOfBandRecord struct {
	ID        string    `json:"oob_id"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

// InvitationResult is what CreateInvitation returns.
type InvitationResult struct {
	Invitation OutOfBandInvitation
	OutOfBand  OutOfBandRecord
	URL        string
}

// Credential offer formats. JSON-LD carries the full signed W3C document; the
// basic format is the reduced legacy fallback used when the rich offer fails.
const (
	FormatJSONLD = "jsonld"
	FormatBasic  = "basic"
)

// PreviewAttribute is a single human-readable attribute shown to the holder
// before accepting the offer.
type PreviewAttribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// OfferRequest asks the agent to send a credential offer over an established
// connection.
type OfferRequest struct {
	ConnectionID    string
	ProtocolVersion string
	Format          string
	Credential      *domain.VerifiableCredential
	ProofType       string
	Preview         []PreviewAttribute
}

// CredentialStateDone is the terminal exchange state: the holder stored the
// credential in their wallet.
const CredentialStateDone = "done"

// CredentialExchangeRecord tracks an in-flight credential exchange.
type CredentialExchangeRecord struct {
	ID           string `json:"credential_exchange_id"`
	ConnectionID string `json:"connection_id"`
	State        string `json:"state"`
}

// Gateway is the capability surface the orchestrator depends on.
type Gateway interface {
	// CreateInvitation asks the agent for a fresh out-of-band invitation.
	CreateInvitation(ctx context.Context, label string) (InvitationResult, error)
	// OfferCredential sends a credential offer over a completed connection.
	OfferCredential(ctx context.Context, req OfferRequest) (CredentialExchangeRecord, error)
	// ConnectionEvents feeds connection state changes. A nil channel is valid
	// and means the gateway never emits events.
	ConnectionEvents() <-chan domain.ConnectionRecord
	// CredentialEvents feeds credential exchange state changes, observed so
	// holder acceptance shows up in the log and audit trail. Nil is valid.
	CredentialEvents() <-chan CredentialExchangeRecord
	// Simulated reports whether this gateway fabricates responses locally.
	Simulated() bool
}
