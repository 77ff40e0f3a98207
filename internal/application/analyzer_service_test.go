package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"tactician/internal/ai"
	"tactician/internal/models"
)

type noopLogger struct{}

func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Debug(string, ...interface{}) {}

type stubOCR struct {
	texts map[string]string
	errs  map[string]error
}

func (s *stubOCR) Init(ctx context.Context) error { return nil }
func (s *stubOCR) Close() error                   { return nil }

func (s *stubOCR) RecognizeText(ctx context.Context, image []byte) (models.OCRResult, error) {
	key := string(image)
	if err, ok := s.errs[key]; ok {
		return models.OCRResult{}, err
	}
	return models.OCRResult{Text: s.texts[key], Confidence: 90}, nil
}

type stubProvider struct {
	name       string
	reply      string
	err        error
	lastPrompt string
	calls      int
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Complete(ctx context.Context, prompt string) (string, error) {
	p.calls++
	p.lastPrompt = prompt
	if p.err != nil {
		return "", p.err
	}
	return p.reply, nil
}

func (p *stubProvider) StreamChat(ctx context.Context, history []models.ChatMessage, message, contextBlock string) (*ai.Stream, error) {
	return nil, errors.New("not implemented")
}

type visionStub struct {
	stubProvider
	visionCalls  int
	visionImages int
}

func (p *visionStub) CompleteVision(ctx context.Context, prompt string, images [][]byte) (string, error) {
	p.visionCalls++
	p.visionImages = len(images)
	if p.err != nil {
		return "", p.err
	}
	return p.reply, nil
}

type stubHistory struct {
	saved   []*models.BattleRecord
	saveErr error
	mine    []models.BattleRecord
	shared  []models.BattleRecord
}

func (s *stubHistory) SaveBattle(ctx context.Context, rec *models.BattleRecord) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, rec)
	return nil
}

func (s *stubHistory) MyBattles(ctx context.Context, userID string, limit int) ([]models.BattleRecord, error) {
	return s.mine, nil
}

func (s *stubHistory) SearchBattles(ctx context.Context, userID string, keywords []string, limit int) ([]models.BattleRecord, error) {
	return s.mine, nil
}

func (s *stubHistory) SearchShared(ctx context.Context, keywords []string, limit int) ([]models.BattleRecord, error) {
	return s.shared, nil
}

func (s *stubHistory) CountBattles(ctx context.Context, userID string) (int, error) {
	return len(s.saved), nil
}

const validReply = "### ENEMY_INTEL\nintel\n### RECOMMENDED_MARCH\nmarch\n### TACTICAL_SUMMARY\nsummary\n### DATA_EXTRACTION\ndata"

func analyzerProfile() models.UserProfile {
	return models.UserProfile{
		HighestTiers: map[models.TroopType]int{
			models.TroopGround: 14, models.TroopRanged: 13,
			models.TroopMounted: 12, models.TroopSiege: 11,
		},
		MarchSize:       100000,
		EmbassyCapacity: 200000,
		IsSetup:         true,
	}
}

func TestAnalyzeFallsBackWhenPrimaryFails(t *testing.T) {
	primary := &stubProvider{
		name: "primary",
		err:  &ai.ProviderError{Provider: "primary", Kind: ai.KindTransient, Err: errors.New("down")},
	}
	fallback := &visionStub{stubProvider: stubProvider{name: "fallback", reply: validReply}}
	ocrStub := &stubOCR{texts: map[string]string{"img1": "Ground T14 attack report"}}

	svc := NewAnalyzerService(ocrStub, []ai.Provider{primary, fallback}, nil, noopLogger{})

	result, err := svc.AnalyzeReports(context.Background(), [][]byte{[]byte("img1")}, analyzerProfile(), "", false)
	if err != nil {
		t.Fatalf("AnalyzeReports() error = %v, want fallback success", err)
	}
	if result.Summary != "intel" {
		t.Errorf("Summary = %q", result.Summary)
	}
	if primary.calls != 1 {
		t.Errorf("primary attempts = %d, want 1", primary.calls)
	}
	// The fallback understands images, so it gets the screenshots directly.
	if fallback.visionCalls != 1 || fallback.visionImages != 1 {
		t.Errorf("fallback vision calls = %d (%d images), want 1 (1)", fallback.visionCalls, fallback.visionImages)
	}
}

func TestAnalyzeBothProvidersFail(t *testing.T) {
	primary := &stubProvider{
		name: "primary",
		err:  &ai.ProviderError{Provider: "primary", Kind: ai.KindTransient, Err: errors.New("down")},
	}
	fallback := &stubProvider{
		name: "fallback",
		err:  &ai.ProviderError{Provider: "fallback", Kind: ai.KindQuotaExceeded, Err: errors.New("quota")},
	}
	ocrStub := &stubOCR{texts: map[string]string{"img1": "some report"}}

	svc := NewAnalyzerService(ocrStub, []ai.Provider{primary, fallback}, nil, noopLogger{})

	result, err := svc.AnalyzeReports(context.Background(), [][]byte{[]byte("img1")}, analyzerProfile(), "", false)
	if result != nil {
		t.Fatal("no result expected when every provider fails")
	}

	var analysisErr *AnalysisError
	if !errors.As(err, &analysisErr) {
		t.Fatalf("error = %v, want *AnalysisError", err)
	}
	if len(analysisErr.Attempts) != 2 {
		t.Errorf("attempts = %d, want 2", len(analysisErr.Attempts))
	}

	// The last error's kind drives the user message.
	var provErr *ai.ProviderError
	if !errors.As(err, &provErr) || provErr.Kind != ai.KindQuotaExceeded {
		t.Errorf("unwrapped error = %v, want the fallback's quota error", err)
	}
	if msg := UserMessage(err); !strings.Contains(msg, "quota") {
		t.Errorf("UserMessage = %q, want quota cooldown advice", msg)
	}
}

func TestAnalyzePartialOCRFailureKeepsOrder(t *testing.T) {
	ocrStub := &stubOCR{
		texts: map[string]string{"img1": "first report", "img3": "third report"},
		errs:  map[string]error{"img2": errors.New("blurry")},
	}
	provider := &stubProvider{name: "primary", reply: validReply}

	svc := NewAnalyzerService(ocrStub, []ai.Provider{provider}, nil, noopLogger{})

	images := [][]byte{[]byte("img1"), []byte("img2"), []byte("img3")}
	if _, err := svc.AnalyzeReports(context.Background(), images, analyzerProfile(), "", false); err != nil {
		t.Fatalf("AnalyzeReports() error = %v", err)
	}

	prompt := provider.lastPrompt
	first := strings.Index(prompt, "first report")
	placeholder := strings.Index(prompt, "[OCR extraction failed for image 2]")
	third := strings.Index(prompt, "third report")

	if first < 0 || placeholder < 0 || third < 0 {
		t.Fatalf("prompt is missing a transcript or the placeholder:\n%s", prompt)
	}
	if !(first < placeholder && placeholder < third) {
		t.Error("combined text does not preserve original image order")
	}
}

func TestAnalyzeAllOCRFailedShortCircuits(t *testing.T) {
	ocrStub := &stubOCR{errs: map[string]error{
		"img1": errors.New("down"),
		"img2": errors.New("down"),
	}}
	provider := &stubProvider{name: "primary", reply: validReply}

	svc := NewAnalyzerService(ocrStub, []ai.Provider{provider}, nil, noopLogger{})

	_, err := svc.AnalyzeReports(context.Background(),
		[][]byte{[]byte("img1"), []byte("img2")}, analyzerProfile(), "", false)
	if !errors.Is(err, ErrEmptyExtraction) {
		t.Fatalf("error = %v, want ErrEmptyExtraction", err)
	}
	if provider.calls != 0 {
		t.Error("AI provider was called despite empty extraction")
	}
}

func TestAnalyzeNoImages(t *testing.T) {
	svc := NewAnalyzerService(&stubOCR{}, []ai.Provider{&stubProvider{name: "p", reply: validReply}}, nil, noopLogger{})
	if _, err := svc.AnalyzeReports(context.Background(), nil, analyzerProfile(), "", false); !errors.Is(err, ErrEmptyExtraction) {
		t.Fatalf("error = %v, want ErrEmptyExtraction", err)
	}
}

func TestAnalyzeInvalidProfile(t *testing.T) {
	svc := NewAnalyzerService(&stubOCR{}, []ai.Provider{&stubProvider{name: "p"}}, nil, noopLogger{})
	profile := analyzerProfile()
	delete(profile.HighestTiers, models.TroopSiege)

	if _, err := svc.AnalyzeReports(context.Background(), [][]byte{[]byte("x")}, profile, "", false); err == nil {
		t.Fatal("invalid profile should be rejected")
	}
}

func TestAnalyzePersistsBestEffort(t *testing.T) {
	ocrStub := &stubOCR{texts: map[string]string{"img1": "Ground troops T14 marched"}}
	provider := &stubProvider{name: "primary", reply: validReply}
	history := &stubHistory{}

	svc := NewAnalyzerService(ocrStub, []ai.Provider{provider}, history, noopLogger{})

	if _, err := svc.AnalyzeReports(context.Background(), [][]byte{[]byte("img1")}, analyzerProfile(), "king@example.com", true); err != nil {
		t.Fatal(err)
	}
	if len(history.saved) != 1 {
		t.Fatalf("saved %d records, want 1", len(history.saved))
	}
	rec := history.saved[0]
	if rec.UserID != "king@example.com" || !rec.Shared {
		t.Errorf("record = %+v", rec)
	}
	if got := rec.TroopComposition["ground"]; len(got) != 1 || got[0] != "14" {
		t.Errorf("TroopComposition[ground] = %v, want [14]", got)
	}
}

func TestAnalyzeSwallowsPersistenceFailure(t *testing.T) {
	ocrStub := &stubOCR{texts: map[string]string{"img1": "report text"}}
	provider := &stubProvider{name: "primary", reply: validReply}
	history := &stubHistory{saveErr: errors.New("db down")}

	svc := NewAnalyzerService(ocrStub, []ai.Provider{provider}, history, noopLogger{})

	result, err := svc.AnalyzeReports(context.Background(), [][]byte{[]byte("img1")}, analyzerProfile(), "king@example.com", false)
	if err != nil {
		t.Fatalf("persistence failure must not fail the analysis: %v", err)
	}
	if result == nil {
		t.Fatal("expected a result despite the failed save")
	}
}

func TestUserMessagesAreDistinct(t *testing.T) {
	extraction := UserMessage(ErrEmptyExtraction)
	provider := UserMessage(&AnalysisError{Attempts: []error{
		&ai.ProviderError{Provider: "groq", Kind: ai.KindTransient, Err: errors.New("x")},
	}})
	parse := UserMessage(fmt.Errorf("unusable AI reply: %w", ai.ErrEmptyReply))

	if extraction == provider || provider == parse || extraction == parse {
		t.Errorf("remediation messages must differ:\n%q\n%q\n%q", extraction, provider, parse)
	}
}
