package repository

import (
	"context"
	"database/sql"

	"tactician/internal/models"
)

// BattleHistory persists analysis results and serves the historical
// context used to ground follow-up chat. All lookups are best-effort
// from the caller's point of view.
type BattleHistory interface {
	SaveBattle(ctx context.Context, rec *models.BattleRecord) error
	MyBattles(ctx context.Context, userID string, limit int) ([]models.BattleRecord, error)
	SearchBattles(ctx context.Context, userID string, keywords []string, limit int) ([]models.BattleRecord, error)
	// SearchShared searches community records; private fields (raw OCR,
	// profile snapshot) are never included.
	SearchShared(ctx context.Context, keywords []string, limit int) ([]models.BattleRecord, error)
	CountBattles(ctx context.Context, userID string) (int, error)
}

type Repository struct {
	BattleHistory
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		BattleHistory: NewBattlePostgres(db),
		db:            db,
	}
}
