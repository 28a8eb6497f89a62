// Package audit records the issuance lifecycle as structured events. The
// trail is best-effort: issuance never blocks or fails on audit problems.
package audit

import "time"

type EventType string

const (
	EventInvitationCreated     EventType = "invitation_created"
	EventSimulatedOffer        EventType = "simulated_offer"
	EventConnectionEstablished EventType = "connection_established"
	EventCredentialIssued      EventType = "credential_issued"
	EventCredentialAccepted    EventType = "credential_accepted"
	EventAnchorFallback        EventType = "anchor_fallback"
	EventIssuanceFailed        EventType = "issuance_failed"
	EventOfferFailed           EventType = "offer_failed"
)

// Event is one issuance lifecycle fact.
type Event struct {
	Type         EventType `json:"type"`
	InvitationID string    `json:"invitation_id,omitempty"`
	SubjectID    string    `json:"subject_id,omitempty"`
	CourseName   string    `json:"course_name,omitempty"`
	Detail       string    `json:"detail,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}
