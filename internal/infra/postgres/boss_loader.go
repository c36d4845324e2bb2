package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"uniraid-battle-service/internal/domain"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// BossLoader loads boss JSONB from Postgres.
type BossLoader struct {
	pool *pgxpool.Pool
}

func NewBossLoader(pool *pgxpool.Pool) *BossLoader {
	return &BossLoader{pool: pool}
}

func (l *BossLoader) LoadBoss(ctx context.Context, bossID string) (domain.Boss, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM bosses WHERE id=$1`, bossID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Boss{}, domain.ErrBossNotFound
	}
	if err != nil {
		return domain.Boss{}, fmt.Errorf("load boss: %w", err)
	}
	var boss domain.Boss
	if err := json.Unmarshal(raw, &boss); err != nil {
		return domain.Boss{}, fmt.Errorf("unmarshal boss: %w", err)
	}
	if boss.ID == "" {
		boss.ID = bossID
	}
	return boss, nil
}
