// Package invitation stores pending invitations between the moment an
// invitation is handed to a learner and the moment their wallet completes the
// connection. Entries have a bounded lifetime and are consumed at most once.
package invitation

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"unicred/internal/domain"
)

// Store holds pending invitation records. Implementations must be safe for
// concurrent use without caller-side locking.
type Store interface {
	// Put registers an invitation and its completion fact under a freshly
	// generated unguessable id, returned to the caller. Entries expire after
	// the store's TTL unless consumed earlier.
	Put(ctx context.Context, inv domain.Invitation, fact domain.CompletionFact) (string, error)
	// Get looks up a pending invitation by id without removing it. Expired or
	// unknown ids return sentinel.ErrNotFound.
	Get(ctx context.Context, id string) (domain.PendingInvitation, error)
	// ConsumeByOutOfBand atomically removes and returns the entry correlated
	// to an agent out-of-band id. The atomic removal deduplicates duplicate
	// connection notifications: only the first caller gets the record.
	ConsumeByOutOfBand(ctx context.Context, oobID string) (domain.PendingInvitation, error)
	// Evict removes an entry by id. Idempotent; evicting an absent id is not
	// an error.
	Evict(ctx context.Context, id string) error
}

// newID returns 16 bytes of crypto/rand entropy as hex: 128 bits, enough that
// concurrent Puts never collide in practice.
func newID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate invitation id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
