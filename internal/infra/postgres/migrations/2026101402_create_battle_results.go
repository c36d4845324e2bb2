package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

const createBattleResultsSQL = `
CREATE TABLE IF NOT EXISTS battle_results (
	session_id        TEXT NOT NULL,
	player_id         TEXT NOT NULL,
	boss_id           TEXT NOT NULL,
	display_name      TEXT NOT NULL DEFAULT '',
	damage_dealt      DOUBLE PRECISION NOT NULL DEFAULT 0,
	correct_answers   INTEGER NOT NULL DEFAULT 0,
	answers_submitted INTEGER NOT NULL DEFAULT 0,
	accuracy          DOUBLE PRECISION NOT NULL DEFAULT 0,
	status            TEXT NOT NULL,
	finished_at       TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (session_id, player_id)
)`

const createBattleResultsIndexSQL = `CREATE INDEX IF NOT EXISTS battle_results_boss_id_idx ON battle_results (boss_id)`

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			if _, err := db.ExecContext(ctx, createBattleResultsSQL); err != nil {
				return err
			}
			_, err := db.ExecContext(ctx, createBattleResultsIndexSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS battle_results`)
			return err
		},
	)
}
