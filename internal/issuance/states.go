package issuance

// State names one step of an issuance attempt. Attempts are not persisted;
// the states exist so every transition is visible in the structured log and
// in tests that follow a single attempt end to end.
type State string

const (
	StateRequestReceived       State = "request_received"
	StateInvitationCreated     State = "invitation_created"
	StateAwaitingConnection    State = "awaiting_connection"
	StateConnectionEstablished State = "connection_established"
	StateCredentialBuilt       State = "credential_built"
	StateAnchored              State = "anchored"
	StateOfferSent             State = "offer_sent"
	StateSimulatedOfferSent    State = "simulated_offer_sent"
	StateFailed                State = "failed"
)
