package agent

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"unicred/internal/domain"
)

// Simulated fabricates invitation URLs, out-of-band records, and credential
// exchange records locally. It is selected once at startup when the live
// agent cannot be initialized, and carries the whole process from then on.
// It never emits connection events, so no issuance pipeline ever runs behind
// it.
type Simulated struct {
	label  string
	logger *slog.Logger
}

func NewSimulated(label string, logger *slog.Logger) *Simulated {
	logger.Warn("agent runtime unavailable, running in simulation mode")
	return &Simulated{label: label, logger: logger}
}

func (g *Simulated) CreateInvitation(_ context.Context, label string) (InvitationResult, error) {
	id := "sim-oob-" + randomHex(8)
	invitation := OutOfBandInvitation{
		Type:               "https://didcomm.org/out-of-band/1.1/invitation",
		ID:                 id,
		Label:              label,
		HandshakeProtocols: []string{HandshakeConnections},
	}

	encoded, _ := json.Marshal(invitation)
	url := "didcomm://university.example/invitation?oob=" + base64.RawURLEncoding.EncodeToString(encoded)

	return InvitationResult{
		Invitation: invitation,
		OutOfBand: OutOfBandRecord{
			ID:        id,
			State:     "await-response",
			CreatedAt: time.Now(),
		},
		URL: url,
	}, nil
}

func (g *Simulated) OfferCredential(_ context.Context, req OfferRequest) (CredentialExchangeRecord, error) {
	return CredentialExchangeRecord{
		ID:           "sim-cred-ex-" + randomHex(8),
		ConnectionID: req.ConnectionID,
		State:        "offer-sent",
	}, nil
}

func (g *Simulated) ConnectionEvents() <-chan domain.ConnectionRecord { return nil }

func (g *Simulated) CredentialEvents() <-chan CredentialExchangeRecord { return nil }

func (g *Simulated) Simulated() bool { return true }

func randomHex(n int) string {
	buf := make([]byte, n)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
