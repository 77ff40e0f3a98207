package models

import "time"

// BattleRecord is one persisted analysis. Summary, recommendations and
// the anonymized troop composition may be shared with the community;
// the raw OCR texts and the profile snapshot are always private.
type BattleRecord struct {
	ID               string              `json:"id" db:"id"`
	UserID           string              `json:"user_email" db:"user_email"`
	ReportType       string              `json:"report_type" db:"report_type"`
	Summary          string              `json:"summary" db:"summary"`
	Recommendations  string              `json:"recommendations" db:"recommendations"`
	TroopComposition map[string][]string `json:"troop_composition,omitempty"`
	Shared           bool                `json:"is_shared" db:"is_shared"`
	OCRTexts         []string            `json:"original_ocr,omitempty"`
	Profile          *UserProfile        `json:"profile_snapshot,omitempty"`
	CreatedAt        time.Time           `json:"created_at" db:"created_at"`
}
