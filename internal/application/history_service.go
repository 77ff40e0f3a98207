package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"

	"tactician/internal/models"
	"tactician/internal/repository"
)

const exportBattleLimit = 500

var ErrHistoryUnavailable = errors.New("battle history storage is not configured")

type HistoryService struct {
	history repository.BattleHistory
	logger  Logger
}

func NewHistoryService(history repository.BattleHistory, logger Logger) *HistoryService {
	return &HistoryService{history: history, logger: logger}
}

func (s *HistoryService) Recent(ctx context.Context, userID string, limit int) ([]models.BattleRecord, error) {
	if s.history == nil {
		return nil, ErrHistoryUnavailable
	}
	return s.history.MyBattles(ctx, userID, limit)
}

func (s *HistoryService) Count(ctx context.Context, userID string) (int, error) {
	if s.history == nil {
		return 0, ErrHistoryUnavailable
	}
	return s.history.CountBattles(ctx, userID)
}

// ExportExcel renders a user's battle history as a spreadsheet.
func (s *HistoryService) ExportExcel(ctx context.Context, userID string) ([]byte, error) {
	if s.history == nil {
		return nil, ErrHistoryUnavailable
	}

	battles, err := s.history.MyBattles(ctx, userID, exportBattleLimit)
	if err != nil {
		return nil, fmt.Errorf("load battles: %w", err)
	}

	f := excelize.NewFile()
	sheet := "Battles"
	f.NewSheet(sheet)
	f.DeleteSheet("Sheet1")

	headers := []string{"Date", "Type", "Summary", "Recommendations", "Shared"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, battle := range battles {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), battle.CreatedAt.Format("2006-01-02 15:04"))
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), battle.ReportType)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), battle.Summary)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), battle.Recommendations)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), battle.Shared)
		row++
	}

	f.SetColWidth(sheet, "A", "A", 18)
	f.SetColWidth(sheet, "B", "B", 14)
	f.SetColWidth(sheet, "C", "D", 60)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
