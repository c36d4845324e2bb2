package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"uniraid-battle-service/internal/domain"

	"github.com/redis/go-redis/v9"
)

// SnapshotStore keeps the latest battle snapshot per boss so a late observer
// (or another instance) can render the fight without joining it.
type SnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSnapshotStore(client *redis.Client, ttl time.Duration) *SnapshotStore {
	return &SnapshotStore{client: client, ttl: ttl}
}

func (s *SnapshotStore) SaveSnapshot(ctx context.Context, snap domain.BattleSnapshot) error {
	// Revival codes are never shared outside the process.
	payload, err := json.Marshal(snap.ForPlayer(""))
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(snap.BossID), payload, s.ttl).Err()
}

func (s *SnapshotStore) LoadSnapshot(ctx context.Context, bossID string) (domain.BattleSnapshot, error) {
	raw, err := s.client.Get(ctx, s.key(bossID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.BattleSnapshot{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.BattleSnapshot{}, err
	}
	var snap domain.BattleSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return domain.BattleSnapshot{}, err
	}
	return snap, nil
}

func (s *SnapshotStore) key(bossID string) string {
	return "battle:" + bossID + ":snapshot"
}
