package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"tactician/internal/application"
)

// Server exposes the analysis pipeline over HTTP. It satisfies the
// services lifecycle (Init/Run/Stop) so main can manage it alongside
// other long-running components.
type Server struct {
	addr    string
	service *application.Service
	logger  application.Logger

	srv *http.Server

	mu       sync.Mutex
	sessions map[string]*application.Session
}

func NewServer(addr string, service *application.Service, logger application.Logger) *Server {
	return &Server{
		addr:     addr,
		service:  service,
		logger:   logger,
		sessions: make(map[string]*application.Session),
	}
}

func (s *Server) Init() error {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("POST /api/chat/cancel", s.handleChatCancel)
	mux.HandleFunc("POST /api/strategy", s.handleStrategy)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/history/export", s.handleHistoryExport)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	s.srv = &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

func (s *Server) Run(ctx context.Context) {
	s.logger.Info("http server listening", "addr", s.addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Error("http server stopped", "error", err.Error())
	}
}

func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Warn("http shutdown incomplete", "error", err.Error())
	}
}

// session returns the chat session for a user, creating it on first use.
// One session per user: follow-up questions keep their shared history.
func (s *Server) session(userID string) *application.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		sess = s.service.Chat.NewSession(userID)
		s.sessions[userID] = sess
	}
	return sess
}
