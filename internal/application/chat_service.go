package application

import (
	"context"
	"errors"
	"io"
	"sync"

	"tactician/internal/ai"
	"tactician/internal/models"
	"tactician/internal/repository"
)

// ErrStreamActive is returned when a send is attempted while a prior
// reply is still streaming. The caller must wait for completion or call
// Cancel first; overlapping streams on one session are not supported.
var ErrStreamActive = errors.New("a reply is still streaming for this session")

const streamErrorPrefix = "[The assistant could not finish its reply: "

type ChatService struct {
	providers []ai.Provider
	history   repository.BattleHistory
	logger    Logger
}

func NewChatService(providers []ai.Provider, history repository.BattleHistory, logger Logger) *ChatService {
	return &ChatService{providers: providers, history: history, logger: logger}
}

func (s *ChatService) NewSession(userID string) *Session {
	return &Session{svc: s, userID: userID}
}

// Session holds the ordered message history of one follow-up
// conversation. The assistant message for an in-flight reply grows
// monotonically as fragments arrive and becomes immutable once the
// stream ends.
type Session struct {
	svc    *ChatService
	userID string

	mu        sync.Mutex
	messages  []models.ChatMessage
	analysis  *models.AnalysisResult
	active    *ai.Stream
	streaming bool
}

// SetAnalysis installs the current analysis as chat grounding context.
func (s *Session) SetAnalysis(result *models.AnalysisResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analysis = result
}

// Messages returns a snapshot of the conversation so far.
func (s *Session) Messages() []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// Send appends the user message and streams the assistant reply into
// the history, invoking onFragment for every delta. It blocks until the
// stream finishes or fails. Streaming errors are rendered into the
// assistant message rather than returned: the conversation must never
// die silently mid-reply.
func (s *Session) Send(ctx context.Context, message string, onFragment func(string)) error {
	s.mu.Lock()
	if s.streaming {
		s.mu.Unlock()
		return ErrStreamActive
	}
	s.streaming = true

	prior := make([]models.ChatMessage, len(s.messages))
	copy(prior, s.messages)
	analysis := s.analysis

	s.messages = append(s.messages,
		models.ChatMessage{Role: models.RoleUser, Content: message},
		models.ChatMessage{Role: models.RoleAssistant, Content: ""},
	)
	replyIdx := len(s.messages) - 1
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.streaming = false
		s.active = nil
		s.mu.Unlock()
	}()

	historyBlob := buildHistoryContext(ctx, s.svc.history, s.userID, keywordsFrom(message), s.svc.logger)
	contextBlock := ai.BuildChatContext(analysis, historyBlob)

	stream, err := s.openStream(ctx, prior, message, contextBlock)
	if err != nil {
		s.svc.logger.Error("chat stream failed to open", "error", err.Error())
		s.setReply(replyIdx, streamErrorPrefix+UserMessage(err)+"]")
		return nil
	}

	s.mu.Lock()
	s.active = stream
	s.mu.Unlock()
	defer stream.Close()

	for {
		frag, err := stream.Recv()
		if err == io.EOF {
			return nil
		}
		if errors.Is(err, ai.ErrStreamClosed) {
			// Deliberate cancellation: keep the partial reply, mark it.
			s.appendReply(replyIdx, " [stopped]")
			return nil
		}
		if err != nil {
			s.svc.logger.Error("chat stream broke", "error", err.Error())
			s.setReply(replyIdx, streamErrorPrefix+UserMessage(err)+"]")
			return nil
		}
		if frag == "" {
			continue
		}
		s.appendReply(replyIdx, frag)
		if onFragment != nil {
			onFragment(frag)
		}
	}
}

// Cancel aborts the in-flight reply, if any. Safe to call anytime.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		s.active.Close()
	}
}

// openStream tries each provider in order until one accepts the chat.
func (s *Session) openStream(ctx context.Context, history []models.ChatMessage, message, contextBlock string) (*ai.Stream, error) {
	if len(s.svc.providers) == 0 {
		return nil, ErrNoProviders
	}

	var lastErr error
	for _, provider := range s.svc.providers {
		stream, err := provider.StreamChat(ctx, history, message, contextBlock)
		if err == nil {
			return stream, nil
		}
		s.svc.logger.Warn("chat provider failed to open stream", "provider", provider.Name(), "error", err.Error())
		lastErr = err
	}
	return nil, lastErr
}

func (s *Session) appendReply(idx int, frag string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[idx].Content += frag
}

func (s *Session) setReply(idx int, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[idx].Content = content
}
