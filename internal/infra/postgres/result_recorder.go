package postgres

import (
	"context"
	"fmt"
	"time"

	"uniraid-battle-service/internal/domain"

	"github.com/uptrace/bun"
)

// BattleResult is the row written for each player when a battle ends.
type BattleResult struct {
	bun.BaseModel `bun:"table:battle_results"`

	SessionID        string    `bun:"session_id,pk"`
	PlayerID         string    `bun:"player_id,pk"`
	BossID           string    `bun:"boss_id,notnull"`
	DisplayName      string    `bun:"display_name"`
	DamageDealt      float64   `bun:"damage_dealt"`
	CorrectAnswers   int       `bun:"correct_answers"`
	AnswersSubmitted int       `bun:"answers_submitted"`
	Accuracy         float64   `bun:"accuracy"`
	Status           string    `bun:"status"`
	FinishedAt       time.Time `bun:"finished_at"`
}

// ResultRecorder stores battle results through bun.
type ResultRecorder struct {
	db *bun.DB
}

func NewResultRecorder(db *bun.DB) *ResultRecorder {
	return &ResultRecorder{db: db}
}

func (r *ResultRecorder) RecordResults(ctx context.Context, results []domain.PlayerResult) error {
	if len(results) == 0 {
		return nil
	}
	rows := make([]BattleResult, len(results))
	for i, res := range results {
		rows[i] = BattleResult{
			SessionID:        res.SessionID,
			PlayerID:         res.PlayerID,
			BossID:           res.BossID,
			DisplayName:      res.DisplayName,
			DamageDealt:      res.DamageDealt,
			CorrectAnswers:   res.CorrectAnswers,
			AnswersSubmitted: res.AnswersSubmitted,
			Accuracy:         res.Accuracy(),
			Status:           string(res.Status),
			FinishedAt:       res.FinishedAt,
		}
	}
	_, err := r.db.NewInsert().
		Model(&rows).
		On("CONFLICT (session_id, player_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("insert battle results: %w", err)
	}
	return nil
}

// ResultsForBoss returns recorded results of a boss, best damage first.
func (r *ResultRecorder) ResultsForBoss(ctx context.Context, bossID string) ([]BattleResult, error) {
	var rows []BattleResult
	err := r.db.NewSelect().
		Model(&rows).
		Where("boss_id = ?", bossID).
		OrderExpr("damage_dealt DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select battle results: %w", err)
	}
	return rows, nil
}
