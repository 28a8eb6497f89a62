// Package ledger anchors credential hashes on a distributed ledger as
// tamper-evident proof of issuance. Ledger failures never block issuance:
// they are downgraded to a warning and the anchor intent is recorded in the
// structured log for later reconciliation.
package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	"unicred/internal/domain"
	"unicred/internal/signer"
)

// Anchor statuses. StatusLocalOnly means the transaction could not be
// submitted and the record lives only in the local log.
const (
	StatusAnchored  = "anchored"
	StatusLocalOnly = "anchored-locally"
)

// AnchorResult reports where the anchor record ended up. It never carries an
// error; anchoring is best-effort by design.
type AnchorResult struct {
	Status string
	Key    string
}

// Submitter submits one anchor transaction. Implementations open and tear
// down their own network session per call.
type Submitter interface {
	Submit(ctx context.Context, key string, rec domain.LedgerAnchorRecord) error
}

// Anchor wraps a Submitter with the downgrade-to-warning failure policy. A
// nil submitter means no ledger is configured and every record is local-only.
type Anchor struct {
	submitter Submitter
	logger    *slog.Logger
}

func NewAnchor(submitter Submitter, logger *slog.Logger) *Anchor {
	return &Anchor{submitter: submitter, logger: logger}
}

// Record anchors rec on the ledger, keyed by subject and timestamp so each
// credential gets a distinct write-once asset.
func (a *Anchor) Record(ctx context.Context, rec domain.LedgerAnchorRecord) AnchorResult {
	key := fmt.Sprintf("credential_%s_%d", rec.SubjectID, rec.Timestamp)

	if a.submitter == nil {
		a.logger.Info("no ledger configured, recording anchor locally",
			"key", key, "subject_id", rec.SubjectID, "course", rec.CourseName, "hash", rec.CredentialHash)
		return AnchorResult{Status: StatusLocalOnly, Key: key}
	}

	if err := a.submitter.Submit(ctx, key, rec); err != nil {
		a.logger.Warn("ledger anchor failed, recording locally",
			"error", err, "key", key, "subject_id", rec.SubjectID, "course", rec.CourseName, "hash", rec.CredentialHash)
		return AnchorResult{Status: StatusLocalOnly, Key: key}
	}

	a.logger.Info("credential hash anchored on ledger", "key", key)
	return AnchorResult{Status: StatusAnchored, Key: key}
}

// HashCredential computes the sha256 content hash of a signed credential over
// its canonical serialization.
func HashCredential(vc domain.VerifiableCredential) (string, error) {
	payload, err := signer.Canonical(vc)
	if err != nil {
		return "", fmt.Errorf("canonicalize credential for hashing: %w", err)
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}
