package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"time"

	"uniraid-battle-service/internal/domain"
	"uniraid-battle-service/internal/infra/memory"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// BossRepository caches bosses in Redis with TTL.
type BossRepository struct {
	client *redis.Client
	loader memory.BossLoader
	ttl    time.Duration
	sf     singleflight.Group
}

func NewBossRepository(client *redis.Client, loader memory.BossLoader, ttl time.Duration) *BossRepository {
	return &BossRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
	}
}

func (r *BossRepository) GetBoss(ctx context.Context, bossID string) (domain.Boss, error) {
	if boss, ok, err := r.cached(ctx, bossID); err == nil && ok {
		return boss, nil
	}

	result, err, _ := r.sf.Do(bossID, func() (interface{}, error) {
		if boss, ok, err := r.cached(ctx, bossID); err == nil && ok {
			return boss, nil
		}

		boss, err := r.loader.LoadBoss(ctx, bossID)
		if err != nil {
			return domain.Boss{}, err
		}

		if err := r.store(ctx, boss); err != nil {
			return domain.Boss{}, err
		}
		return boss, nil
	})
	if err != nil {
		return domain.Boss{}, err
	}
	return result.(domain.Boss), nil
}

func (r *BossRepository) cached(ctx context.Context, bossID string) (domain.Boss, bool, error) {
	raw, err := r.client.Get(ctx, r.key(bossID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Boss{}, false, nil
	}
	if err != nil {
		return domain.Boss{}, false, err
	}
	var boss domain.Boss
	if err := json.Unmarshal(raw, &boss); err != nil {
		return domain.Boss{}, false, err
	}
	return boss, true, nil
}

func (r *BossRepository) store(ctx context.Context, boss domain.Boss) error {
	payload, err := json.Marshal(boss)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(boss.ID), payload, r.ttlWithJitter()).Err()
}

func (r *BossRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(rand.Int63n(jitterMax+1))
}

func (r *BossRepository) key(bossID string) string {
	return "boss:" + bossID
}
