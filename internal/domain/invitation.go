package domain

import (
	"encoding/json"
	"time"
)

// Invitation is an out-of-band invitation held until a wallet connects or the
// TTL evicts it. ID is the unguessable lookup key embedded in QR URLs;
// OutOfBandID is the agent-side id that connection events correlate back to.
type Invitation struct {
	ID            string          `json:"id"`
	RawInvitation json.RawMessage `json:"rawInvitation"`
	OutOfBandID   string          `json:"outOfBandId"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// PendingInvitation pairs an invitation with the completion fact that
// produced it. Exactly one fact is associated per invitation.
type PendingInvitation struct {
	Invitation Invitation     `json:"invitation"`
	Fact       CompletionFact `json:"fact"`
}
