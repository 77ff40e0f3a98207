package http

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"tactician/internal/application"
	"tactician/internal/models"
)

const userHeader = "X-User-Email"

type analyzeRequest struct {
	Images  []string           `json:"images"`
	Profile models.UserProfile `json:"profile"`
	Share   bool               `json:"share"`
}

type chatRequest struct {
	Message string `json:"message"`
}

type strategyRequest struct {
	Query     string `json:"query"`
	SourceURL string `json:"source_url"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	images := make([][]byte, 0, len(req.Images))
	for i, enc := range req.Images {
		raw, err := decodeImage(enc)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("image %d is not valid base64", i+1))
			return
		}
		images = append(images, raw)
	}

	userID := r.Header.Get(userHeader)
	result, err := s.service.Analyzer.AnalyzeReports(r.Context(), images, req.Profile, userID, req.Share)
	if err != nil {
		s.logger.Warn("analysis request failed", "user", userID, "error", err.Error())
		writeError(w, analysisStatus(err), application.UserMessage(err))
		return
	}

	// Ground the user's follow-up chat in what was just analyzed.
	s.session(userID).SetAnalysis(result)

	writeJSON(w, http.StatusOK, result)
}

// handleChat streams the assistant reply as server-sent events, one
// `data:` line per fragment.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sess := s.session(r.Header.Get(userHeader))

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")

	err := sess.Send(r.Context(), req.Message, func(frag string) {
		fmt.Fprintf(w, "data: %s\n\n", strings.ReplaceAll(frag, "\n", "\ndata: "))
		flusher.Flush()
	})
	if errors.Is(err, application.ErrStreamActive) {
		writeError(w, http.StatusConflict, "a reply is still streaming, wait or cancel it first")
		return
	}
	if err != nil {
		s.logger.Error("chat request failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "chat failed")
		return
	}

	msgs := sess.Messages()
	final := ""
	if len(msgs) > 0 {
		final = msgs[len(msgs)-1].Content
	}
	payload, _ := json.Marshal(map[string]string{"content": final})
	fmt.Fprintf(w, "event: done\ndata: %s\n\n", payload)
	flusher.Flush()
}

func (s *Server) handleChatCancel(w http.ResponseWriter, r *http.Request) {
	s.session(r.Header.Get(userHeader)).Cancel()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStrategy(w http.ResponseWriter, r *http.Request) {
	var req strategyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	answer, err := s.service.Strategy.Search(r.Context(), req.Query, req.SourceURL)
	if err != nil {
		s.logger.Warn("strategy request failed", "error", err.Error())
		status := analysisStatus(err)
		if strings.Contains(err.Error(), "untrusted source") {
			status = http.StatusBadRequest
		}
		writeError(w, status, application.UserMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userHeader)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing "+userHeader+" header")
		return
	}

	battles, err := s.service.History.Recent(r.Context(), userID, 20)
	if err != nil {
		writeError(w, historyStatus(err), application.UserMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, battles)
}

func (s *Server) handleHistoryExport(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userHeader)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing "+userHeader+" header")
		return
	}

	data, err := s.service.History.ExportExcel(r.Context(), userID)
	if err != nil {
		writeError(w, historyStatus(err), application.UserMessage(err))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="battle_history.xlsx"`)
	w.Write(data)
}

// decodeImage accepts plain base64 or a data URL
// ("data:image/png;base64,....").
func decodeImage(enc string) ([]byte, error) {
	if idx := strings.Index(enc, ","); idx >= 0 && strings.HasPrefix(enc, "data:") {
		enc = enc[idx+1:]
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(enc))
}

func analysisStatus(err error) int {
	switch {
	case errors.Is(err, application.ErrEmptyExtraction):
		return http.StatusUnprocessableEntity
	case errors.Is(err, application.ErrNoProviders):
		return http.StatusServiceUnavailable
	default:
		var analysisErr *application.AnalysisError
		if errors.As(err, &analysisErr) {
			return http.StatusBadGateway
		}
		return http.StatusBadRequest
	}
}

func historyStatus(err error) int {
	if errors.Is(err, application.ErrHistoryUnavailable) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
