package ai

import (
	"strings"
	"unicode/utf8"

	"tactician/internal/models"
)

const (
	noIntelFallback        = "No intel extracted."
	noRecommendationsText  = "No specific recommendations."
	anonymizedDataMaxBytes = 1000
)

// ParseAnalysis extracts the named sections from a semi-structured AI
// reply and classifies the report type. Section matching is a lenient
// first-occurrence scan: a header token echoed inside an earlier
// section's body will truncate that section. This fragility is inherent
// to delimiting free text with sentinel tokens and is deliberately not
// papered over.
func ParseAnalysis(rawText, originalExtractedText string) (*models.AnalysisResult, error) {
	if strings.TrimSpace(rawText) == "" {
		return nil, ErrEmptyReply
	}

	intel := extractSection(rawText, HeaderEnemyIntel)
	march := extractSection(rawText, HeaderRecommendedMarch)
	tactical := extractSection(rawText, HeaderTacticalSummary)
	data := extractSection(rawText, HeaderDataExtraction)

	summary := intel
	if summary == "" {
		if tactical != "" {
			summary = "Tactical summary: " + tactical
		} else {
			summary = noIntelFallback
		}
	}

	if march == "" {
		march = noRecommendationsText
	}

	anonymized := data
	if anonymized == "" {
		anonymized = truncateOnRune(originalExtractedText, anonymizedDataMaxBytes)
	}

	return &models.AnalysisResult{
		ReportType:      classifyReport(rawText),
		Summary:         summary,
		Recommendations: march,
		AnonymizedData:  anonymized,
		Sources:         nil,
	}, nil
}

// extractSection takes everything from the header (case-insensitive,
// first occurrence) to the next "###" or end of text, with the header
// token and surrounding whitespace stripped.
func extractSection(text, header string) string {
	idx := indexFold(text, header)
	if idx < 0 {
		return ""
	}
	section := text[idx+len(header):]
	if next := strings.Index(section, "###"); next >= 0 {
		section = section[:next]
	}
	return strings.TrimSpace(section)
}

// indexFold reports the first case-insensitive occurrence of sep, which
// must be ASCII so positions in text and its folded form line up.
func indexFold(text, sep string) int {
	for i := 0; i+len(sep) <= len(text); i++ {
		if strings.EqualFold(text[i:i+len(sep)], sep) {
			return i
		}
	}
	return -1
}

// truncateOnRune caps s at n bytes without splitting a rune.
func truncateOnRune(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func classifyReport(rawText string) models.ReportType {
	lower := strings.ToLower(rawText)

	if strings.Contains(lower, "monster") {
		return models.ReportMonster
	}
	switch {
	case strings.Contains(lower, "scout report") || strings.Contains(lower, "scouting"):
		return models.ReportScout
	case strings.Contains(lower, "alliance war"):
		return models.ReportAllianceWar
	case strings.Contains(lower, "defense") || strings.Contains(lower, "defended"):
		return models.ReportDefense
	case strings.Contains(lower, "attack"):
		return models.ReportAttack
	}
	return models.ReportUnknown
}
