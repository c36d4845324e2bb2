package app

import (
	"sync"
	"time"

	"uniraid-battle-service/internal/battle"
	"uniraid-battle-service/internal/domain"
)

// Session serializes access to one battle engine and fans snapshots out to
// subscribers. Every timer of the battle lives inside the engine, so closing
// the session (and stopping its ticker) releases all of them at once.
type Session struct {
	bossID string
	now    func() time.Time

	mu            sync.Mutex
	engine        *battle.Engine
	subscribers   map[chan domain.BattleSnapshot]struct{}
	lastBroadcast time.Time
	closed        bool
	done          chan struct{}
}

// NewSession wraps an engine. now is the clock fed to the engine.
func NewSession(bossID string, engine *battle.Engine, now func() time.Time) *Session {
	if now == nil {
		now = time.Now
	}
	return &Session{
		bossID:      bossID,
		now:         now,
		engine:      engine,
		subscribers: make(map[chan domain.BattleSnapshot]struct{}),
		done:        make(chan struct{}),
	}
}

// ID returns the battle instance id.
func (s *Session) ID() string { return s.engine.ID() }

// BossID returns the boss this session fights.
func (s *Session) BossID() string { return s.bossID }

// Done is closed when the session is torn down.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) join(userID, displayName string) (domain.BattleSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.BattleSnapshot{}, domain.ErrSessionTerminal
	}
	if err := s.engine.Join(userID, displayName, s.now()); err != nil {
		return domain.BattleSnapshot{}, err
	}
	return s.broadcastLocked(), nil
}

func (s *Session) leave(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.engine.Leave(userID)
	s.broadcastLocked()
}

func (s *Session) submit(userID string, sub domain.AnswerSubmission) (domain.AnswerResult, []domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.AnswerResult{}, nil, domain.ErrSessionTerminal
	}
	result, events, err := s.engine.SubmitAnswer(userID, sub.QuestionID, sub.Option, s.now())
	if len(events) > 0 {
		s.broadcastLocked()
	}
	result.ClientTimestamp = sub.Timestamp
	return result, events, err
}

func (s *Session) redeem(code, redeemerID string) (domain.RevivalResult, []domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.RevivalResult{}, nil, domain.ErrSessionTerminal
	}
	result, events, err := s.engine.RedeemRevivalCode(code, redeemerID, s.now())
	if len(events) > 0 {
		s.broadcastLocked()
	}
	return result, events, err
}

// tick feeds the clock to the engine. Snapshots go out on any transition and
// at least every refresh so clients can resync their local countdowns.
func (s *Session) tick(refresh time.Duration) []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	now := s.now()
	events := s.engine.Advance(now)
	if len(events) > 0 || (refresh > 0 && now.Sub(s.lastBroadcast) >= refresh) {
		s.broadcastLocked()
	}
	return events
}

func (s *Session) snapshot() domain.BattleSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Snapshot(s.now())
}

func (s *Session) terminal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Terminal()
}

func (s *Session) results() []domain.PlayerResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Results(s.now())
}

func (s *Session) isEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Empty()
}

// close releases subscribers and stops the ticker. It is idempotent and
// reports whether this call did the closing.
func (s *Session) close() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	close(s.done)
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
	return true
}

func (s *Session) subscribe() (<-chan domain.BattleSnapshot, func(), error) {
	ch := make(chan domain.BattleSnapshot, 8)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, nil, domain.ErrSessionTerminal
	}
	s.subscribers[ch] = struct{}{}
	ch <- s.engine.Snapshot(s.now())
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel, nil
}

func (s *Session) broadcastLocked() domain.BattleSnapshot {
	snap := s.engine.Snapshot(s.now())
	s.lastBroadcast = snap.UpdatedAt
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// Drop the oldest pending snapshot; a newer one supersedes it.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
	return snap
}
