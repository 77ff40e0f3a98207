package application

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"tactician/internal/ai"
	"tactician/internal/models"
	"tactician/internal/repository"
)

const maxConcurrentOCR = 4

type AnalyzerService struct {
	ocr       OCRAdapter
	providers []ai.Provider
	history   repository.BattleHistory
	logger    Logger
}

func NewAnalyzerService(ocrAdapter OCRAdapter, providers []ai.Provider, history repository.BattleHistory, logger Logger) *AnalyzerService {
	return &AnalyzerService{
		ocr:       ocrAdapter,
		providers: providers,
		history:   history,
		logger:    logger,
	}
}

// AnalyzeReports runs the full pipeline: parallel OCR over every
// screenshot, prompt construction, the provider chain with one fallback
// hop, response parsing, and a best-effort save of the result.
func (s *AnalyzerService) AnalyzeReports(ctx context.Context, images [][]byte, profile models.UserProfile, userID string, share bool) (*models.AnalysisResult, error) {
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}
	if len(images) == 0 {
		return nil, ErrEmptyExtraction
	}
	if len(s.providers) == 0 {
		return nil, ErrNoProviders
	}

	texts, extracted := s.extractTexts(ctx, images)
	if extracted == 0 {
		return nil, ErrEmptyExtraction
	}

	combined := ai.JoinReports(texts)
	if strings.TrimSpace(combined) == "" {
		return nil, ErrEmptyExtraction
	}

	prompt := ai.BuildAnalysisPrompt(combined, profile)

	reply, err := s.complete(ctx, prompt, images)
	if err != nil {
		return nil, err
	}

	result, err := ai.ParseAnalysis(reply, combined)
	if err != nil {
		return nil, fmt.Errorf("unusable AI reply: %w", err)
	}

	s.persist(ctx, userID, result, texts, profile, share)
	return result, nil
}

// extractTexts recognizes all images concurrently. Results land at the
// image's original index regardless of completion order; a failed image
// contributes a placeholder instead of aborting the batch.
func (s *AnalyzerService) extractTexts(ctx context.Context, images [][]byte) ([]string, int) {
	texts := make([]string, len(images))
	failed := make([]bool, len(images))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentOCR)

	for i := range images {
		i := i
		g.Go(func() error {
			res, err := s.ocr.RecognizeText(gctx, images[i])
			if err != nil {
				s.logger.Warn("ocr failed", "image", i+1, "error", err.Error())
				texts[i] = fmt.Sprintf("[OCR extraction failed for image %d]", i+1)
				failed[i] = true
				return nil
			}
			s.logger.Debug("ocr completed", "image", i+1, "confidence", res.Confidence)
			texts[i] = res.Text
			return nil
		})
	}
	_ = g.Wait()

	extracted := 0
	for i := range texts {
		if !failed[i] && strings.TrimSpace(texts[i]) != "" {
			extracted++
		}
	}
	return texts, extracted
}

// complete walks the provider chain in order and stops at the first
// success. Later providers that understand images get the screenshots
// directly; that path is an alternate route, not a degraded one. One
// combined error is raised only after the chain is exhausted.
func (s *AnalyzerService) complete(ctx context.Context, prompt string, images [][]byte) (string, error) {
	var attempts []error

	for i, provider := range s.providers {
		var (
			reply string
			err   error
		)
		if vp, ok := provider.(ai.VisionProvider); ok && i > 0 && len(images) > 0 {
			reply, err = vp.CompleteVision(ctx, prompt, images)
		} else {
			reply, err = provider.Complete(ctx, prompt)
		}
		if err == nil {
			return reply, nil
		}

		s.logger.Warn("provider attempt failed", "provider", provider.Name(), "error", err.Error())
		attempts = append(attempts, err)
	}

	return "", &AnalysisError{Attempts: attempts}
}

// persist saves the analysis as a side channel. Failures are logged and
// swallowed: losing a history row must never fail the analysis itself.
func (s *AnalyzerService) persist(ctx context.Context, userID string, result *models.AnalysisResult, ocrTexts []string, profile models.UserProfile, share bool) {
	if s.history == nil || userID == "" {
		return
	}

	rec := &models.BattleRecord{
		UserID:           userID,
		ReportType:       string(result.ReportType),
		Summary:          result.Summary,
		Recommendations:  result.Recommendations,
		TroopComposition: troopComposition(ocrTexts),
		Shared:           share,
		OCRTexts:         ocrTexts,
		Profile:          &profile,
	}
	if err := s.history.SaveBattle(ctx, rec); err != nil {
		s.logger.Error("failed to save battle record", "error", err.Error())
	}
}

var troopTierRes = map[string]*regexp.Regexp{
	"ground":  regexp.MustCompile(`(?i)Ground.*?T(\d+)`),
	"ranged":  regexp.MustCompile(`(?i)Ranged.*?T(\d+)`),
	"mounted": regexp.MustCompile(`(?i)Mounted.*?T(\d+)`),
	"siege":   regexp.MustCompile(`(?i)Siege.*?T(\d+)`),
}

// troopComposition pulls tier/type pairs out of the OCR text with no
// player names attached, so the shared record stays anonymous.
func troopComposition(ocrTexts []string) map[string][]string {
	composition := map[string][]string{
		"ground": {}, "ranged": {}, "mounted": {}, "siege": {},
	}
	for _, text := range ocrTexts {
		for troop, re := range troopTierRes {
			if m := re.FindStringSubmatch(text); m != nil {
				composition[troop] = append(composition[troop], m[1])
			}
		}
	}
	return composition
}
