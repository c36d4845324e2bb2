package cli

import (
	"uniraid-battle-service/internal/domain"
	"uniraid-battle-service/internal/infra/postgres"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewSeedCmd writes the sample bosses into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the sample bosses into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			if err := runMigrationsWithConfig(cmd.Context(), cfg, log); err != nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			for _, boss := range sampleBosses() {
				if err := postgres.SaveBoss(cmd.Context(), db, boss); err != nil {
					return err
				}
				log.Info("boss seeded", zap.String("boss_id", boss.ID), zap.Int("questions", len(boss.Questions)))
			}
			return nil
		},
	}
}

// sampleBosses is served when no database is configured and is what seed writes.
func sampleBosses() map[string]domain.Boss {
	return map[string]domain.Boss{
		"boss-1": {
			ID:        "boss-1",
			Name:      "The Midterm Hydra",
			MaxHealth: 20,
			Questions: []domain.Question{
				{
					ID:               "q1",
					Text:             "What is 2 + 2?",
					TimeLimitSeconds: 30,
					AnswerOptions:    []string{"3", "4", "5", "22"},
					CorrectAnswer:    "4",
				},
				{
					ID:               "q2",
					Text:             "Which planet is closest to the sun?",
					TimeLimitSeconds: 20,
					AnswerOptions:    []string{"Venus", "Earth", "Mercury", "Mars"},
					CorrectAnswer:    "Mercury",
				},
				{
					ID:               "q3",
					Text:             "What is the chemical symbol for gold?",
					TimeLimitSeconds: 15,
					AnswerOptions:    []string{"Ag", "Au", "Gd", "Go"},
					CorrectAnswer:    "Au",
				},
			},
		},
	}
}
