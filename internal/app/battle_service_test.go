package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"uniraid-battle-service/internal/app"
	"uniraid-battle-service/internal/battle"
	"uniraid-battle-service/internal/domain"
	"uniraid-battle-service/internal/infra/memory"
	"uniraid-battle-service/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	service *app.BattleService
	clock   *manualClock
	results *memory.ResultStore
	store   *memory.SessionStore
	metrics *metrics.Battle
}

func TestJoinAndScoring(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10)

	if _, err := f.service.Join(ctx, "boss-1", "u1", "Alice"); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	snap, err := f.service.Join(ctx, "boss-1", "u2", "Bob")
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if len(snap.Players) != 2 || snap.BossCurrentHealth != 10 {
		t.Fatalf("unexpected snapshot after join %+v", snap)
	}

	// 12s into a 30s question is past the fast third.
	f.clock.Advance(12 * time.Second)
	result, err := f.service.SubmitAnswer(ctx, "boss-1", "u2", domain.AnswerSubmission{QuestionID: "q1", Option: "4"})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if !result.Correct || result.Damage != battle.NormalDamage || result.BossHealth != 9 {
		t.Fatalf("expected normal damage, got %+v", result)
	}

	result, err = f.service.SubmitAnswer(ctx, "boss-1", "u1", domain.AnswerSubmission{QuestionID: "q1", Option: "5"})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if result.Correct || result.LivesRemaining != 2 {
		t.Fatalf("expected a miss costing a life, got %+v", result)
	}
	if got := testutil.ToFloat64(f.metrics.ActiveSessions()); got != 1 {
		t.Fatalf("expected one active session, got %v", got)
	}
}

func TestSubscribeReceivesUpdates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10)

	if _, err := f.service.Join(ctx, "boss-1", "u1", "Alice"); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	ch, cancel, err := f.service.Subscribe(ctx, "boss-1")
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer cancel()

	<-ch // initial snapshot

	if _, err := f.service.SubmitAnswer(ctx, "boss-1", "u1", domain.AnswerSubmission{QuestionID: "q1", Option: "4"}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	update := <-ch
	if update.BossCurrentHealth != 10-battle.FastDamage {
		t.Fatalf("expected health %v, got %v", 10-battle.FastDamage, update.BossCurrentHealth)
	}
	if len(update.DamageEvents) != 1 {
		t.Fatalf("expected a damage popup, got %+v", update.DamageEvents)
	}
}

func TestSubmitRequiresParticipant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10)

	_, err := f.service.SubmitAnswer(ctx, "boss-unknown", "u1", domain.AnswerSubmission{QuestionID: "q1", Option: "4"})
	if err != domain.ErrSessionNotFound {
		t.Fatalf("expected session error, got %v", err)
	}

	_, _ = f.service.Join(ctx, "boss-1", "u1", "Alice")
	_, err = f.service.SubmitAnswer(ctx, "boss-1", "u2", domain.AnswerSubmission{QuestionID: "q1", Option: "4"})
	if err != domain.ErrParticipantNotFound {
		t.Fatalf("expected participant error, got %v", err)
	}
}

func TestJoinUnknownBoss(t *testing.T) {
	f := newFixture(t, 10)
	if _, err := f.service.Join(context.Background(), "nope", "u1", "Alice"); !errors.Is(err, domain.ErrBossNotFound) {
		t.Fatalf("expected ErrBossNotFound, got %v", err)
	}
}

func TestRevivalThroughService(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10)
	_, _ = f.service.Join(ctx, "boss-1", "u1", "Alice")
	_, _ = f.service.Join(ctx, "boss-1", "u2", "Bob")

	// Three misses, each after the settle delay has moved u1 on.
	questionIDs := []string{"q1", "q2", "q1"}
	for i, qid := range questionIDs {
		if i > 0 {
			f.clock.Advance(time.Second)
			if err := f.service.Tick(ctx, "boss-1"); err != nil {
				t.Fatalf("tick: %v", err)
			}
		}
		if _, err := f.service.SubmitAnswer(ctx, "boss-1", "u1", domain.AnswerSubmission{QuestionID: qid, Option: "wrong"}); err != nil {
			t.Fatalf("miss %d: %v", i, err)
		}
	}

	snap, _ := f.service.Snapshot(ctx, "boss-1")
	if len(snap.KnockedOut) != 1 || snap.KnockedOut[0].PlayerID != "u1" {
		t.Fatalf("expected u1 knocked out, got %+v", snap.KnockedOut)
	}
	code := snap.KnockedOut[0].RevivalCode

	if _, err := f.service.RedeemRevivalCode(ctx, "boss-1", "XXXXXX", "u2"); !errors.Is(err, domain.ErrInvalidRevivalCode) {
		t.Fatalf("expected invalid code, got %v", err)
	}
	res, err := f.service.RedeemRevivalCode(ctx, "boss-1", code, "u2")
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if res.RevivedPlayerID != "u1" || res.RedeemerID != "u2" {
		t.Fatalf("unexpected revival %+v", res)
	}
	if got := testutil.ToFloat64(f.metrics.Revivals()); got != 1 {
		t.Fatalf("expected one revival counted, got %v", got)
	}
}

func TestDefeatRecordsResultsAndReleasesSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, battle.FastDamage)
	_, _ = f.service.Join(ctx, "boss-1", "u1", "Alice")

	ch, cancel, err := f.service.Subscribe(ctx, "boss-1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	if _, err := f.service.SubmitAnswer(ctx, "boss-1", "u1", domain.AnswerSubmission{QuestionID: "q1", Option: "4"}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	// Answers are refused once the boss is down.
	if _, err := f.service.SubmitAnswer(ctx, "boss-1", "u1", domain.AnswerSubmission{QuestionID: "q1", Option: "4"}); !errors.Is(err, domain.ErrSessionTerminal) {
		t.Fatalf("expected terminal error, got %v", err)
	}
	if _, err := f.service.Join(ctx, "boss-1", "u3", "Carol"); !errors.Is(err, domain.ErrSessionTerminal) {
		t.Fatalf("expected late join refused, got %v", err)
	}

	f.clock.Advance(7 * time.Second)
	if err := f.service.Tick(ctx, "boss-1"); err != nil {
		t.Fatalf("tick: %v", err)
	}

	var last domain.BattleSnapshot
	for snap := range ch {
		last = snap
	}
	if !last.Terminal() {
		t.Fatalf("expected the last snapshot to be terminal, got %s", last.DefeatPhase)
	}

	results := f.results.Results()
	if len(results) != 1 || results[0].PlayerID != "u1" || results[0].DamageDealt != battle.FastDamage {
		t.Fatalf("unexpected results %+v", results)
	}
	if _, err := f.service.Snapshot(ctx, "boss-1"); err != domain.ErrSessionNotFound {
		t.Fatalf("expected session released, got %v", err)
	}
	if got := testutil.ToFloat64(f.metrics.ActiveSessions()); got != 0 {
		t.Fatalf("expected no active sessions, got %v", got)
	}
}

func TestLeaveTearsDownEmptySession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10)
	_, _ = f.service.Join(ctx, "boss-1", "u1", "Alice")
	_, _ = f.service.Join(ctx, "boss-1", "u2", "Bob")

	f.service.Leave(ctx, "boss-1", "u1")
	if _, ok := f.store.Get("boss-1"); !ok {
		t.Fatalf("session must survive while u2 remains")
	}
	f.service.Leave(ctx, "boss-1", "u2")
	if _, ok := f.store.Get("boss-1"); ok {
		t.Fatalf("expected empty session to be torn down")
	}
	if len(f.results.Results()) != 0 {
		t.Fatalf("abandoned battles record no results")
	}
}

func TestReconnectKeepsPlayerState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10)
	_, _ = f.service.Join(ctx, "boss-1", "u1", "Alice")
	_, _ = f.service.Join(ctx, "boss-1", "u2", "Bob")

	if _, err := f.service.SubmitAnswer(ctx, "boss-1", "u1", domain.AnswerSubmission{QuestionID: "q1", Option: "wrong"}); err != nil {
		t.Fatalf("miss: %v", err)
	}
	f.service.Leave(ctx, "boss-1", "u1")
	snap, err := f.service.Join(ctx, "boss-1", "u1", "Alice")
	if err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if len(snap.Players) != 2 || snap.Players[0].LivesRemaining != 2 || !snap.Players[0].Connected {
		t.Fatalf("expected u1 back with 2 lives, got %+v", snap.Players)
	}
}

func TestWipeRecordsResults(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10)
	_, _ = f.service.Join(ctx, "boss-1", "u1", "Alice")

	for i, qid := range []string{"q1", "q2", "q1"} {
		if i > 0 {
			f.clock.Advance(time.Second)
			_ = f.service.Tick(ctx, "boss-1")
		}
		if _, err := f.service.SubmitAnswer(ctx, "boss-1", "u1", domain.AnswerSubmission{QuestionID: qid, Option: "wrong"}); err != nil {
			t.Fatalf("miss %d: %v", i, err)
		}
	}

	f.clock.Advance(time.Minute)
	if err := f.service.Tick(ctx, "boss-1"); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if _, ok := f.store.Get("boss-1"); ok {
		t.Fatalf("a wiped battle must be released")
	}
	results := f.results.Results()
	if len(results) != 1 || results[0].Status != domain.StatusDead || results[0].AnswersSubmitted != 3 {
		t.Fatalf("unexpected results %+v", results)
	}
}

func TestTickerDrivesTimeouts(t *testing.T) {
	ctx := context.Background()
	clock := &manualClock{now: time.Unix(1_700_000_000, 0)}
	service := app.NewBattleService(
		memory.NewSessionStore(),
		memory.NewBossRepository(memory.NewStaticBossLoader(map[string]domain.Boss{"boss-1": testBoss(10)}), time.Minute),
		app.Options{TickInterval: 5 * time.Millisecond, Clock: clock.Now},
	)
	defer service.Close()

	_, _ = service.Join(ctx, "boss-1", "u1", "Alice")
	clock.Advance(31 * time.Second)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := service.Snapshot(ctx, "boss-1")
		if err != nil {
			t.Fatalf("snapshot: %v", err)
		}
		if snap.Players[0].LivesRemaining == 2 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("ticker never resolved the timed-out question")
}

func newFixture(t *testing.T, health float64) fixture {
	t.Helper()
	clock := &manualClock{now: time.Unix(1_700_000_000, 0)}
	results := memory.NewResultStore()
	store := memory.NewSessionStore()
	m := metrics.New()
	service := app.NewBattleService(
		store,
		memory.NewBossRepository(memory.NewStaticBossLoader(map[string]domain.Boss{"boss-1": testBoss(health)}), time.Minute),
		app.Options{
			Battle:  battle.DefaultConfig(),
			Results: results,
			Metrics: m,
			Clock:   clock.Now,
		},
	)
	t.Cleanup(service.Close)
	return fixture{service: service, clock: clock, results: results, store: store, metrics: m}
}

func testBoss(health float64) domain.Boss {
	return domain.Boss{
		ID:        "boss-1",
		Name:      "Gorgon",
		MaxHealth: health,
		Questions: []domain.Question{
			{ID: "q1", Text: "2 + 2?", TimeLimitSeconds: 30, AnswerOptions: []string{"3", "4", "5", "6"}, CorrectAnswer: "4"},
			{ID: "q2", Text: "3 * 3?", TimeLimitSeconds: 20, AnswerOptions: []string{"6", "9", "12", "33"}, CorrectAnswer: "9"},
		},
	}
}
