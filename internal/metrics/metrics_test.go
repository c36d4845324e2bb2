package metrics

import (
	"testing"

	"uniraid-battle-service/internal/domain"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveCountsEvents(t *testing.T) {
	m := New()
	m.Observe([]domain.Event{
		{Type: domain.EvtBossDamaged, Amount: 1.5},
		{Type: domain.EvtQuestionTimedOut},
		{Type: domain.EvtPlayerHit},
		{Type: domain.EvtKnockedOut},
		{Type: domain.EvtPlayerRevived},
		{Type: domain.EvtPartyWiped},
	})

	if got := testutil.ToFloat64(m.answers.WithLabelValues("correct")); got != 1 {
		t.Fatalf("expected 1 correct answer, got %v", got)
	}
	if got := testutil.ToFloat64(m.answers.WithLabelValues("miss")); got != 1 {
		t.Fatalf("expected 1 miss, got %v", got)
	}
	if got := testutil.ToFloat64(m.timeouts); got != 1 {
		t.Fatalf("expected 1 timeout, got %v", got)
	}
	if got := testutil.ToFloat64(m.damage); got != 1.5 {
		t.Fatalf("expected 1.5 damage, got %v", got)
	}
	if got := testutil.ToFloat64(m.knockouts); got != 1 {
		t.Fatalf("expected 1 knockout, got %v", got)
	}

	if got := testutil.ToFloat64(m.wipes); got != 1 {
		t.Fatalf("expected 1 wipe, got %v", got)
	}

	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()
	if got := testutil.ToFloat64(m.activeSessions); got != 1 {
		t.Fatalf("expected 1 active session, got %v", got)
	}
}

func TestRegistryIsPrivate(t *testing.T) {
	a, b := New(), New()
	a.Observe([]domain.Event{{Type: domain.EvtPlayerDied}, {Type: domain.EvtBossDefeated}})

	n, err := testutil.GatherAndCount(a.Gatherer(), "uniraid_deaths_total", "uniraid_bosses_defeated_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 series, got %d", n)
	}
	if got := testutil.ToFloat64(b.deaths); got != 0 {
		t.Fatalf("registries must not share counters, got %v", got)
	}
}
