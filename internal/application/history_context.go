package application

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"tactician/internal/models"
	"tactician/internal/repository"
)

const (
	historyContextBattles = 5
	communityContextCap   = 3
)

// buildHistoryContext assembles the historical-battle blob blended into
// chat context: the player's own matching battles plus a few anonymous
// community ones. Every lookup is best-effort; on any failure the blob
// is simply smaller.
func buildHistoryContext(ctx context.Context, history repository.BattleHistory, userID string, keywords []string, logger Logger) string {
	if history == nil || len(keywords) == 0 {
		return ""
	}

	var b strings.Builder

	mine, err := history.SearchBattles(ctx, userID, keywords, historyContextBattles)
	if err != nil {
		logger.Warn("history search failed", "error", err.Error())
	}
	if len(mine) > 0 {
		formatBattles(&b, "YOUR PAST BATTLES", mine)
	}

	shared, err := history.SearchShared(ctx, keywords, historyContextBattles)
	if err != nil {
		logger.Warn("community search failed", "error", err.Error())
	}

	seen := make(map[string]bool, len(mine))
	for _, rec := range mine {
		seen[rec.ID] = true
	}
	var others []models.BattleRecord
	for _, rec := range shared {
		if !seen[rec.ID] {
			others = append(others, rec)
		}
		if len(others) == communityContextCap {
			break
		}
	}
	if len(others) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		formatBattles(&b, "COMMUNITY KNOWLEDGE (Anonymous)", others)
	}

	return b.String()
}

func formatBattles(b *strings.Builder, header string, battles []models.BattleRecord) {
	fmt.Fprintf(b, "%s (%d battles):\n", header, len(battles))
	for i, battle := range battles {
		fmt.Fprintf(b, "\n--- Battle %d (%s) ---\n", i+1, battle.CreatedAt.Format("2006-01-02"))
		fmt.Fprintf(b, "Type: %s\n", battle.ReportType)
		fmt.Fprintf(b, "Analysis: %s\n", truncate(battle.Summary, 200))
		fmt.Fprintf(b, "Strategy: %s\n", truncate(battle.Recommendations, 180))
	}
}

// truncate caps s at n bytes, backing up so a multi-byte rune is never
// split.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

// keywordsFrom derives search terms from a chat message: lowercase
// words longer than three characters, deduplicated, capped at five.
func keywordsFrom(message string) []string {
	var keywords []string
	seen := make(map[string]bool)
	for _, word := range strings.FieldsFunc(strings.ToLower(message), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	}) {
		if len(word) <= 3 || seen[word] {
			continue
		}
		seen[word] = true
		keywords = append(keywords, word)
		if len(keywords) == 5 {
			break
		}
	}
	return keywords
}
