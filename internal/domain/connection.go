package domain

// Connection states observed from the agent event feed. Only a subset of the
// DIDComm state machine matters to the issuer.
const (
	ConnectionStateInvited   = "invited"
	ConnectionStateCompleted = "completed"
)

// ConnectionRecord is the agent-owned view of a DIDComm connection. The
// issuer only reads it to correlate a completed connection back to the
// invitation that started it.
type ConnectionRecord struct {
	ConnectionID string `json:"connection_id"`
	State        string `json:"state"`
	OutOfBandID  string `json:"out_of_band_id"`
	TheirLabel   string `json:"their_label,omitempty"`
}
