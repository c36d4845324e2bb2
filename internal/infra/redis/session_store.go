package redis

import (
	"context"
	"sync"
	"time"

	"uniraid-battle-service/internal/app"

	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis-aware implementation of SessionRepository.
// Sessions (and their timers) stay in process; Redis only carries a liveness
// marker per boss so other instances and operators can see which battles run.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) GetOrCreate(bossID string, create func() (*app.Session, error)) (*app.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[bossID]; ok {
		return session, nil
	}
	session, err := create()
	if err != nil {
		return nil, err
	}
	s.sessions[bossID] = session
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(bossID), session.ID(), s.ttl).Err()
	return session, nil
}

func (s *SessionStore) Get(bossID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[bossID]
	return session, ok
}

func (s *SessionStore) Remove(session *app.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.sessions[session.BossID()]
	if !ok || current != session {
		return
	}
	delete(s.sessions, session.BossID())
	_ = s.client.Del(context.Background(), s.key(session.BossID())).Err()
}

func (s *SessionStore) List() []*app.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*app.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session)
	}
	return out
}

// Touch refreshes the liveness marker of every local session.
func (s *SessionStore) Touch(ctx context.Context) error {
	pipe := s.client.Pipeline()
	for _, session := range s.List() {
		pipe.Set(ctx, s.key(session.BossID()), session.ID(), s.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *SessionStore) key(bossID string) string {
	return "battle:session:" + bossID
}
