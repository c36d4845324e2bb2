package cli

import (
	"testing"
	"time"

	"uniraid-battle-service/internal/config"
)

func TestBattleOptionsDefaults(t *testing.T) {
	rules, tick, refresh := battleOptions(config.Config{})
	if rules.MaxLives != 3 || rules.SettleDelay != time.Second || rules.RevivalWindow != time.Minute {
		t.Fatalf("unexpected default rules %+v", rules)
	}
	if tick != 100*time.Millisecond || refresh != time.Second {
		t.Fatalf("unexpected intervals tick=%v refresh=%v", tick, refresh)
	}
}

func TestBattleOptionsOverrides(t *testing.T) {
	var cfg config.Config
	cfg.Battle.MaxLives = 5
	cfg.Battle.RevivalWindow = "30s"
	cfg.Battle.TickInterval = "20ms"
	rules, tick, _ := battleOptions(cfg)
	if rules.MaxLives != 5 || rules.RevivalWindow != 30*time.Second || tick != 20*time.Millisecond {
		t.Fatalf("overrides not applied: %+v tick=%v", rules, tick)
	}
}

func TestSampleBossesArePlayable(t *testing.T) {
	for id, boss := range sampleBosses() {
		if boss.ID != id || boss.MaxHealth <= 0 || len(boss.Questions) == 0 {
			t.Fatalf("sample boss %s is not playable: %+v", id, boss)
		}
		for _, q := range boss.Questions {
			found := false
			for _, opt := range q.AnswerOptions {
				if opt == q.CorrectAnswer {
					found = true
				}
			}
			if !found {
				t.Fatalf("question %s has no correct option among %v", q.ID, q.AnswerOptions)
			}
		}
	}
}
