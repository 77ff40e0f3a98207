package ai

import (
	"fmt"
	"strings"

	"tactician/internal/models"
)

// The four section headers the analysis reply must contain, in order.
// The parser locates sections by these exact tokens.
const (
	HeaderEnemyIntel       = "### ENEMY_INTEL"
	HeaderRecommendedMarch = "### RECOMMENDED_MARCH"
	HeaderTacticalSummary  = "### TACTICAL_SUMMARY"
	HeaderDataExtraction   = "### DATA_EXTRACTION"
)

const reportDelimiter = "\n\n--- NEXT REPORT ---\n\n"

const systemPrompt = `You are the "Evony: The King's Return" (TKR) Grand Strategist AI. You specialize in deep combat analysis for both Attack and Defense.

CORE OBJECTIVES:
1. Provide exact numerical troop configurations for any scenario.
2. Estimate casualties for both sides (Attacker and Defender).
3. Design specialized defensive layers using Embassy capacity.

IMPORTANT CONTEXT:
- You will receive EXTRACTED TEXT from battle report screenshots via OCR.
- The OCR text may contain recognition errors or formatting issues.
- Focus on extracting troop numbers, tier levels, and battle outcomes from the text.

STRATEGY PROTOCOLS:
- OFFENSE: Counter enemy's primary bulk. Use standard layering (1,000 of every tier/type below max).
- DEFENSE:
  - Analyze incoming attacker's troop types and buffs.
  - Suggest reinforcements to fill the Embassy (up to user capacity).
  - Prioritize defensive layers: Ground/Mounted for high HP/Defense buffer, Ranged/Siege for back-row damage.
- CASUALTY ESTIMATES:
  - Mandatory format: "Estimated Losses: Attacker [X-Y%], Defender [A-B% or Wiped]".

NOTE: If OCR text is unclear, state what information you could extract and what's missing.`

const chatSystemPrompt = `You are an expert Evony TKR battle analyst. Answer follow-up questions about the analyzed battle concisely and concretely, using the provided analysis and battle history context when relevant.`

const strategySystemPrompt = `You are an expert Evony: The King's Return strategy advisor. Provide detailed, actionable advice on:

- Troop compositions and counter strategies
- Building priorities and resource management
- PvP and PvE tactics
- Event optimization
- Alliance warfare
- General and equipment recommendations

Be specific, practical, and use bullet points for clarity.`

// BuildAnalysisPrompt combines the fixed system instruction, the
// extracted battle report text and the player profile into one request
// payload. Pure and deterministic; the four headers appear verbatim so
// the parser can recover the sections from the reply.
func BuildAnalysisPrompt(extractedText string, profile models.UserProfile) string {
	var b strings.Builder

	b.WriteString(systemPrompt)
	b.WriteString("\n\nEXTRACTED BATTLE REPORT DATA:\n")
	b.WriteString(extractedText)
	b.WriteString("\n\nPLAYER PROFILE:\n")
	fmt.Fprintf(&b, "- March Size: %d\n", profile.MarchSize)
	fmt.Fprintf(&b, "- Embassy: %d\n", profile.EmbassyCapacity)
	fmt.Fprintf(&b, "- Max Tiers: Ground T%d, Ranged T%d, Mounted T%d, Siege T%d\n",
		profile.HighestTiers[models.TroopGround],
		profile.HighestTiers[models.TroopRanged],
		profile.HighestTiers[models.TroopMounted],
		profile.HighestTiers[models.TroopSiege])

	b.WriteString(`
ANALYSIS REQUEST:
1. Analyze the extracted battle report text
2. Identify troop compositions, losses, and results
3. Provide counter-strategy recommendations
4. Estimate enemy strength and weaknesses

FORMAT YOUR RESPONSE WITH THESE EXACT HEADERS:
`)
	b.WriteString(HeaderEnemyIntel + "\n")
	b.WriteString(HeaderRecommendedMarch + "\n")
	b.WriteString(HeaderTacticalSummary + "\n")
	b.WriteString(HeaderDataExtraction + "\n")

	return b.String()
}

// JoinReports concatenates per-image OCR texts with explicit report
// delimiters, preserving the original image order.
func JoinReports(texts []string) string {
	return strings.Join(texts, reportDelimiter)
}

// BuildChatContext renders the current analysis plus the historical
// battle blob into the context block passed alongside a chat message.
func BuildChatContext(analysis *models.AnalysisResult, historyBlob string) string {
	var parts []string
	if analysis != nil {
		parts = append(parts, fmt.Sprintf(
			"CURRENT BATTLE ANALYSIS (%s):\nSummary: %s\nRecommendations: %s",
			analysis.ReportType, analysis.Summary, analysis.Recommendations))
	}
	if historyBlob != "" {
		parts = append(parts, historyBlob)
	}
	return strings.Join(parts, "\n\n")
}

// BuildStrategyPrompt builds the strategy-advisor question, optionally
// grounded in scraped reference content.
func BuildStrategyPrompt(query string, content *models.ScrapedContent) string {
	if content == nil {
		return query
	}

	excerpt := truncateOnRune(content.Content, 2000)

	var b strings.Builder
	fmt.Fprintf(&b, "Reference from %s:\n\n%s\n", content.Title, excerpt)
	if len(content.Tips) > 0 {
		b.WriteString("\nKey Tips:\n")
		tips := content.Tips
		if len(tips) > 10 {
			tips = tips[:10]
		}
		for i, tip := range tips {
			fmt.Fprintf(&b, "%d. %s\n", i+1, tip)
		}
	}
	fmt.Fprintf(&b, "\nSource: %s\n\n---\n\nQuestion: %s", content.URL, query)
	return b.String()
}
