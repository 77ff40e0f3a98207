package logger

import (
	"context"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"error", slog.LevelError},
		{"WARN", slog.LevelWarn},
		{"info", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"nonsense", slog.LevelDebug},
		{"", slog.LevelDebug},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLevelFiltersLowerRecords(t *testing.T) {
	log := NewLogger(&Config{Level: "warn"})
	ctx := context.Background()

	if log.logger.Enabled(ctx, slog.LevelInfo) {
		t.Error("info records should be dropped at warn level")
	}
	if !log.logger.Enabled(ctx, slog.LevelError) {
		t.Error("error records must pass at warn level")
	}
}
