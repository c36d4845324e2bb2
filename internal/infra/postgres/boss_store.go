package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"uniraid-battle-service/internal/domain"

	"github.com/uptrace/bun"
)

// BossRecord is a row of the bosses table. Data holds the whole boss as JSONB.
type BossRecord struct {
	bun.BaseModel `bun:"table:bosses"`

	ID   string          `bun:"id,pk"`
	Data json.RawMessage `bun:"data,type:jsonb,notnull"`
}

// SaveBoss inserts or replaces a boss definition.
func SaveBoss(ctx context.Context, db bun.IDB, boss domain.Boss) error {
	data, err := json.Marshal(boss)
	if err != nil {
		return fmt.Errorf("marshal boss: %w", err)
	}
	record := &BossRecord{ID: boss.ID, Data: data}
	_, err = db.NewInsert().
		Model(record).
		On("CONFLICT (id) DO UPDATE").
		Set("data = EXCLUDED.data").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("save boss: %w", err)
	}
	return nil
}
