package app

import (
	"context"
	"errors"
	"time"

	"uniraid-battle-service/internal/battle"
	"uniraid-battle-service/internal/domain"
	"uniraid-battle-service/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionRepository abstracts where live battle sessions are kept.
type SessionRepository interface {
	// GetOrCreate returns the session for bossID, calling create while holding
	// the store's lock if there is none.
	GetOrCreate(bossID string, create func() (*Session, error)) (*Session, error)
	Get(bossID string) (*Session, bool)
	// Remove drops session if it is still the one stored for its boss.
	Remove(session *Session)
	List() []*Session
}

// BossRepository loads boss content (from cache/backing store).
type BossRepository interface {
	GetBoss(ctx context.Context, bossID string) (domain.Boss, error)
}

// ResultRecorder persists per-player results when a battle ends.
type ResultRecorder interface {
	RecordResults(ctx context.Context, results []domain.PlayerResult) error
}

// SnapshotStore keeps the latest snapshot of a battle outside the process.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap domain.BattleSnapshot) error
}

// Options tune a BattleService. Zero values fall back to defaults.
type Options struct {
	Battle battle.Config
	// TickInterval drives every session's clock. Zero disables the ticker,
	// which tests use to call Tick by hand.
	TickInterval    time.Duration
	RefreshInterval time.Duration
	Results         ResultRecorder
	Snapshots       SnapshotStore
	Metrics         *metrics.Battle
	Logger          *zap.Logger
	Clock           func() time.Time
}

// BattleService contains the boss battle use cases.
type BattleService struct {
	sessions SessionRepository
	bosses   BossRepository
	opts     Options
	log      *zap.Logger
}

func NewBattleService(store SessionRepository, bosses BossRepository, opts Options) *BattleService {
	if opts.Battle.MaxLives == 0 {
		opts.Battle = battle.DefaultConfig()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &BattleService{sessions: store, bosses: bosses, opts: opts, log: opts.Logger}
}

// Join registers a player in the live battle for bossID, starting one if needed.
func (s *BattleService) Join(ctx context.Context, bossID, userID, displayName string) (domain.BattleSnapshot, error) {
	// Users cannot join unknown bosses.
	boss, err := s.bosses.GetBoss(ctx, bossID)
	if err != nil {
		return domain.BattleSnapshot{}, err
	}

	session, err := s.sessions.GetOrCreate(bossID, func() (*Session, error) {
		return s.startSession(boss)
	})
	if err != nil {
		return domain.BattleSnapshot{}, err
	}
	snap, err := session.join(userID, displayName)
	if err != nil {
		return domain.BattleSnapshot{}, err
	}
	s.log.Info("player joined",
		zap.String("boss_id", bossID),
		zap.String("session_id", session.ID()),
		zap.String("user_id", userID))
	return snap, nil
}

func (s *BattleService) startSession(boss domain.Boss) (*Session, error) {
	engine, err := battle.New(uuid.NewString(), boss, s.opts.Battle)
	if err != nil {
		return nil, err
	}
	session := NewSession(boss.ID, engine, s.opts.Clock)
	s.opts.Metrics.SessionOpened()
	s.log.Info("battle started",
		zap.String("boss_id", boss.ID),
		zap.String("session_id", session.ID()),
		zap.Float64("max_health", boss.MaxHealth))
	if s.opts.TickInterval > 0 {
		go s.run(session)
	}
	return session, nil
}

// run is the single clock of a session. It exits when the session closes.
func (s *BattleService) run(session *Session) {
	ticker := time.NewTicker(s.opts.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-session.Done():
			return
		case <-ticker.C:
			s.afterTransition(session, session.tick(s.opts.RefreshInterval))
		}
	}
}

// Tick advances the clock of one session by hand.
func (s *BattleService) Tick(_ context.Context, bossID string) error {
	session, ok := s.sessions.Get(bossID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	s.afterTransition(session, session.tick(s.opts.RefreshInterval))
	return nil
}

// SubmitAnswer resolves a player's answer against the server clock.
func (s *BattleService) SubmitAnswer(_ context.Context, bossID, userID string, submission domain.AnswerSubmission) (domain.AnswerResult, error) {
	session, ok := s.sessions.Get(bossID)
	if !ok {
		return domain.AnswerResult{}, domain.ErrSessionNotFound
	}
	result, events, err := session.submit(userID, submission)
	s.afterTransition(session, events)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	return result, nil
}

// RedeemRevivalCode revives whichever knocked-out teammate holds code.
func (s *BattleService) RedeemRevivalCode(_ context.Context, bossID, code, redeemerID string) (domain.RevivalResult, error) {
	session, ok := s.sessions.Get(bossID)
	if !ok {
		return domain.RevivalResult{}, domain.ErrSessionNotFound
	}
	result, events, err := session.redeem(code, redeemerID)
	s.afterTransition(session, events)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRevivalCode) {
			s.log.Debug("revival code rejected", zap.String("boss_id", bossID), zap.String("redeemer_id", redeemerID))
		}
		return domain.RevivalResult{}, err
	}
	return result, nil
}

// Subscribe returns a channel that receives snapshots for a battle.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *BattleService) Subscribe(_ context.Context, bossID string) (<-chan domain.BattleSnapshot, func(), error) {
	session, ok := s.sessions.Get(bossID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	return session.subscribe()
}

// Snapshot returns the current state of a battle.
func (s *BattleService) Snapshot(_ context.Context, bossID string) (domain.BattleSnapshot, error) {
	session, ok := s.sessions.Get(bossID)
	if !ok {
		return domain.BattleSnapshot{}, domain.ErrSessionNotFound
	}
	return session.snapshot(), nil
}

// Leave disconnects a participant and tears the session down once nobody is connected.
func (s *BattleService) Leave(_ context.Context, bossID, userID string) {
	session, ok := s.sessions.Get(bossID)
	if !ok {
		return
	}
	session.leave(userID)
	if session.isEmpty() {
		s.teardown(session, "abandoned")
	}
}

// Close tears down every live session.
func (s *BattleService) Close() {
	for _, session := range s.sessions.List() {
		s.teardown(session, "shutdown")
	}
}

func (s *BattleService) afterTransition(session *Session, events []domain.Event) {
	if len(events) > 0 {
		s.opts.Metrics.Observe(events)
		for _, ev := range events {
			switch ev.Type {
			case domain.EvtKnockedOut, domain.EvtPlayerRevived, domain.EvtPlayerDied:
				s.log.Info("player state changed",
					zap.String("session_id", session.ID()),
					zap.String("event", string(ev.Type)),
					zap.String("user_id", ev.PlayerID))
			case domain.EvtBossDefeated:
				s.log.Info("boss defeated", zap.String("session_id", session.ID()), zap.String("boss_id", session.BossID()))
			}
		}
		s.saveSnapshot(session)
	}
	if session.terminal() {
		s.finish(session)
	}
}

// finish persists results of a completed battle and releases the session.
func (s *BattleService) finish(session *Session) {
	results := session.results()
	reason := "defeated"
	if session.snapshot().Wiped {
		reason = "wiped"
	}
	if !s.teardown(session, reason) {
		return
	}
	if s.opts.Results == nil || len(results) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.opts.Results.RecordResults(ctx, results); err != nil {
		s.log.Error("record battle results failed", zap.String("session_id", session.ID()), zap.Error(err))
	}
}

func (s *BattleService) saveSnapshot(session *Session) {
	if s.opts.Snapshots == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.opts.Snapshots.SaveSnapshot(ctx, session.snapshot()); err != nil {
		s.log.Warn("save snapshot failed", zap.String("session_id", session.ID()), zap.Error(err))
	}
}

// teardown reports whether this call closed the session.
func (s *BattleService) teardown(session *Session, reason string) bool {
	if !session.close() {
		return false
	}
	s.sessions.Remove(session)
	s.opts.Metrics.SessionClosed()
	s.log.Info("battle closed", zap.String("session_id", session.ID()), zap.String("reason", reason))
	return true
}
