package invitation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"unicred/internal/domain"
	"unicred/pkg/platform/sentinel"
)

const (
	invitationKeyPrefix = "inv:id:"
	outOfBandKeyPrefix  = "inv:oob:"
)

// RedisStore shares pending invitations across issuer instances. TTL eviction
// is delegated to Redis key expiry, so no sweep task is needed; consume uses
// GETDEL so duplicate connection notifications race safely.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Put(ctx context.Context, inv domain.Invitation, fact domain.CompletionFact) (string, error) {
	id, err := newID()
	if err != nil {
		return "", err
	}

	inv.ID = id
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now()
	}

	payload, err := json.Marshal(domain.PendingInvitation{Invitation: inv, Fact: fact})
	if err != nil {
		return "", fmt.Errorf("encode pending invitation: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, invitationKeyPrefix+id, payload, s.ttl)
	if inv.OutOfBandID != "" {
		pipe.Set(ctx, outOfBandKeyPrefix+inv.OutOfBandID, id, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("store invitation: %w", err)
	}
	return id, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (domain.PendingInvitation, error) {
	payload, err := s.client.Get(ctx, invitationKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.PendingInvitation{}, sentinel.ErrNotFound
	}
	if err != nil {
		return domain.PendingInvitation{}, fmt.Errorf("fetch invitation: %w", err)
	}
	return decodePending(payload)
}

func (s *RedisStore) ConsumeByOutOfBand(ctx context.Context, oobID string) (domain.PendingInvitation, error) {
	id, err := s.client.GetDel(ctx, outOfBandKeyPrefix+oobID).Result()
	if errors.Is(err, redis.Nil) {
		return domain.PendingInvitation{}, sentinel.ErrNotFound
	}
	if err != nil {
		return domain.PendingInvitation{}, fmt.Errorf("resolve out-of-band id: %w", err)
	}

	payload, err := s.client.GetDel(ctx, invitationKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.PendingInvitation{}, sentinel.ErrNotFound
	}
	if err != nil {
		return domain.PendingInvitation{}, fmt.Errorf("consume invitation: %w", err)
	}
	return decodePending(payload)
}

func (s *RedisStore) Evict(ctx context.Context, id string) error {
	entry, err := s.Get(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, invitationKeyPrefix+id)
	if entry.Invitation.OutOfBandID != "" {
		pipe.Del(ctx, outOfBandKeyPrefix+entry.Invitation.OutOfBandID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("evict invitation: %w", err)
	}
	return nil
}

func decodePending(payload []byte) (domain.PendingInvitation, error) {
	var entry domain.PendingInvitation
	if err := json.Unmarshal(payload, &entry); err != nil {
		return domain.PendingInvitation{}, fmt.Errorf("decode pending invitation: %w", err)
	}
	return entry, nil
}
