package invitation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"unicred/internal/domain"
	"unicred/pkg/platform/sentinel"
)

const sweepInterval = time.Minute

// MemoryStore is the default single-process implementation: a mutex-guarded
// map with a secondary out-of-band index and a background sweep for TTL
// eviction. Expired entries are invisible to readers even before the sweep
// removes them.
type MemoryStore struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]domain.PendingInvitation
	byOOB   map[string]string
	logger  *slog.Logger
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration, logger *slog.Logger) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		entries: make(map[string]domain.PendingInvitation),
		byOOB:   make(map[string]string),
		logger:  logger,
		now:     time.Now,
	}
}

func (s *MemoryStore) Put(_ context.Context, inv domain.Invitation, fact domain.CompletionFact) (string, error) {
	id, err := newID()
	if err != nil {
		return "", err
	}

	inv.ID = id
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = domain.PendingInvitation{Invitation: inv, Fact: fact}
	if inv.OutOfBandID != "" {
		s.byOOB[inv.OutOfBandID] = id
	}
	return id, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (domain.PendingInvitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[id]
	if !ok || s.expired(entry) {
		return domain.PendingInvitation{}, sentinel.ErrNotFound
	}
	return entry, nil
}

func (s *MemoryStore) ConsumeByOutOfBand(_ context.Context, oobID string) (domain.PendingInvitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byOOB[oobID]
	if !ok {
		return domain.PendingInvitation{}, sentinel.ErrNotFound
	}
	entry, ok := s.entries[id]
	delete(s.byOOB, oobID)
	delete(s.entries, id)
	if !ok || s.expired(entry) {
		return domain.PendingInvitation{}, sentinel.ErrNotFound
	}
	return entry, nil
}

func (s *MemoryStore) Evict(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.entries[id]; ok {
		delete(s.byOOB, entry.Invitation.OutOfBandID)
		delete(s.entries, id)
	}
	return nil
}

// Sweep periodically evicts expired entries. Run it in its own goroutine; it
// returns when ctx is cancelled.
func (s *MemoryStore) Sweep(ctx context.Context) error {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.evictExpired()
		}
	}
}

func (s *MemoryStore) evictExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, entry := range s.entries {
		if s.expired(entry) {
			delete(s.byOOB, entry.Invitation.OutOfBandID)
			delete(s.entries, id)
			s.logger.Debug("evicted expired invitation", "invitation_id", id)
		}
	}
}

func (s *MemoryStore) expired(entry domain.PendingInvitation) bool {
	return s.now().Sub(entry.Invitation.CreatedAt) > s.ttl
}
