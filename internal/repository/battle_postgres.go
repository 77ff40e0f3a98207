package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"tactician/internal/models"
)

type BattlePostgres struct {
	db *sql.DB
}

func NewBattlePostgres(db *sql.DB) *BattlePostgres {
	return &BattlePostgres{db: db}
}

const publicColumns = "id, user_email, report_type, summary, recommendations, troop_composition, is_shared, created_at"

func (r *BattlePostgres) SaveBattle(ctx context.Context, rec *models.BattleRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	composition, err := json.Marshal(rec.TroopComposition)
	if err != nil {
		return fmt.Errorf("marshal troop composition: %w", err)
	}
	ocrTexts, err := json.Marshal(rec.OCRTexts)
	if err != nil {
		return fmt.Errorf("marshal ocr texts: %w", err)
	}
	var profile []byte
	if rec.Profile != nil {
		if profile, err = json.Marshal(rec.Profile); err != nil {
			return fmt.Errorf("marshal profile snapshot: %w", err)
		}
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO battle_reports
			(id, user_email, report_type, summary, recommendations,
			 troop_composition, is_shared, original_ocr, profile_snapshot, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.ID, rec.UserID, rec.ReportType, rec.Summary, rec.Recommendations,
		composition, rec.Shared, ocrTexts, profile, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert battle report: %w", err)
	}
	return nil
}

func (r *BattlePostgres) MyBattles(ctx context.Context, userID string, limit int) ([]models.BattleRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+publicColumns+`, original_ocr, profile_snapshot
		FROM battle_reports
		WHERE user_email = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanBattles(rows, true)
}

func (r *BattlePostgres) SearchBattles(ctx context.Context, userID string, keywords []string, limit int) ([]models.BattleRecord, error) {
	pattern := "%" + strings.Join(keywords, " ") + "%"
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+publicColumns+`, original_ocr, profile_snapshot
		FROM battle_reports
		WHERE user_email = $1
		  AND (summary ILIKE $2 OR recommendations ILIKE $2)
		ORDER BY created_at DESC
		LIMIT $3`, userID, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanBattles(rows, true)
}

func (r *BattlePostgres) SearchShared(ctx context.Context, keywords []string, limit int) ([]models.BattleRecord, error) {
	pattern := "%" + strings.Join(keywords, " ") + "%"
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+publicColumns+`
		FROM battle_reports
		WHERE is_shared = TRUE
		  AND (summary ILIKE $1 OR recommendations ILIKE $1)
		ORDER BY created_at DESC
		LIMIT $2`, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanBattles(rows, false)
}

func (r *BattlePostgres) CountBattles(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM battle_reports WHERE user_email = $1`, userID).Scan(&count)
	return count, err
}

func scanBattles(rows *sql.Rows, includePrivate bool) ([]models.BattleRecord, error) {
	var records []models.BattleRecord
	for rows.Next() {
		var (
			rec         models.BattleRecord
			composition []byte
			ocrTexts    []byte
			profile     []byte
		)

		dest := []interface{}{
			&rec.ID, &rec.UserID, &rec.ReportType, &rec.Summary,
			&rec.Recommendations, &composition, &rec.Shared, &rec.CreatedAt,
		}
		if includePrivate {
			dest = append(dest, &ocrTexts, &profile)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}

		if len(composition) > 0 {
			_ = json.Unmarshal(composition, &rec.TroopComposition)
		}
		if includePrivate {
			if len(ocrTexts) > 0 {
				_ = json.Unmarshal(ocrTexts, &rec.OCRTexts)
			}
			if len(profile) > 0 {
				rec.Profile = &models.UserProfile{}
				_ = json.Unmarshal(profile, rec.Profile)
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
