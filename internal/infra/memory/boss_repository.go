package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"uniraid-battle-service/internal/domain"

	"golang.org/x/sync/singleflight"
)

// BossLoader fetches boss content from a backing store.
type BossLoader interface {
	LoadBoss(ctx context.Context, bossID string) (domain.Boss, error)
}

// BossRepository caches bosses with TTL to avoid repeated DB hits.
type BossRepository struct {
	loader BossLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[string]cachedBoss
}

type cachedBoss struct {
	boss      domain.Boss
	expiresAt time.Time
}

func NewBossRepository(loader BossLoader, ttl time.Duration) *BossRepository {
	return &BossRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedBoss),
	}
}

func (r *BossRepository) GetBoss(ctx context.Context, bossID string) (domain.Boss, error) {
	if boss, ok := r.cached(bossID); ok {
		return boss, nil
	}

	result, err, _ := r.sf.Do(bossID, func() (interface{}, error) {
		if boss, ok := r.cached(bossID); ok {
			return boss, nil
		}

		boss, err := r.loader.LoadBoss(ctx, bossID)
		if err != nil {
			return domain.Boss{}, err
		}

		r.mu.Lock()
		r.cache[bossID] = cachedBoss{
			boss:      boss,
			expiresAt: r.clock().Add(r.ttlWithJitterLocked()),
		}
		r.mu.Unlock()
		return boss, nil
	})
	if err != nil {
		return domain.Boss{}, err
	}
	return result.(domain.Boss), nil
}

func (r *BossRepository) cached(bossID string) (domain.Boss, bool) {
	now := r.clock()
	r.mu.RLock()
	defer r.mu.RUnlock()
	if entry, ok := r.cache[bossID]; ok && entry.expiresAt.After(now) {
		return entry.boss, true
	}
	return domain.Boss{}, false
}

// ttlWithJitterLocked adds up to 10% jitter to spread expirations.
func (r *BossRepository) ttlWithJitterLocked() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticBossLoader is a loader backed by an in-memory map (useful for tests/demos).
type StaticBossLoader struct {
	bosses map[string]domain.Boss
}

func NewStaticBossLoader(bosses map[string]domain.Boss) *StaticBossLoader {
	return &StaticBossLoader{bosses: bosses}
}

func (l *StaticBossLoader) LoadBoss(_ context.Context, bossID string) (domain.Boss, error) {
	if boss, ok := l.bosses[bossID]; ok {
		return boss, nil
	}
	return domain.Boss{}, domain.ErrBossNotFound
}
