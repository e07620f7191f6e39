package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/antoniostano/ridewise/internal/assistant"
	"github.com/antoniostano/ridewise/internal/memory"
	"github.com/antoniostano/ridewise/internal/policy"
)

type chatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

type chatResponse struct {
	Reply  string `json:"reply"`
	Source string `json:"source"`
}

// handleChat answers one message over plain HTTP, for clients that do not
// hold a websocket open. Voice turns use the session websocket instead.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.adapter == nil || !s.adapter.Available() {
		respondError(w, http.StatusServiceUnavailable, "assistant_unavailable",
			"assistant is not configured; set GEMINI_API_KEY")
		return
	}

	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "message is required")
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		req.UserID = "anonymous"
	}

	redacted, changed := policy.RedactPII(req.Message)
	_ = s.store.SaveTurn(r.Context(), memory.TurnRecord{
		UserID:      req.UserID,
		Role:        "user",
		Content:     redacted,
		PIIRedacted: changed,
	})

	started := time.Now()
	builder := assistant.NewContextBuilder(s.store)
	reply, err := s.adapter.Generate(r.Context(), builder.BuildRequest(r.Context(), req.UserID, redacted))
	if err != nil {
		respondError(w, http.StatusBadGateway, "assistant_failed", err.Error())
		return
	}
	s.metrics.AssistantReplies.WithLabelValues(reply.Source).Inc()
	s.metrics.ObserveReplyLatency(time.Since(started))

	_ = s.store.SaveTurn(r.Context(), memory.TurnRecord{
		UserID:  req.UserID,
		Role:    "assistant",
		Content: reply.Text,
	})

	respondJSON(w, http.StatusOK, chatResponse{Reply: reply.Text, Source: reply.Source})
}

func (s *Server) handleChatStatus(w http.ResponseWriter, _ *http.Request) {
	available := s.adapter != nil && s.adapter.Available()
	status := map[string]any{
		"available": available,
		"model":     s.cfg.GeminiModel,
	}
	if !available {
		status["hint"] = "set GEMINI_API_KEY to enable assistant replies"
	}
	respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleChatReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		req.UserID = "anonymous"
	}
	if err := s.store.ResetTurns(r.Context(), req.UserID); err != nil {
		respondError(w, http.StatusInternalServerError, "reset_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "reset"})
}
