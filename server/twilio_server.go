package server

import (
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/room4-2/serviceswarm/dialogue"
	"github.com/room4-2/serviceswarm/logger"
	"github.com/room4-2/serviceswarm/messages"
	"github.com/room4-2/serviceswarm/turn"
)

// Call statuses that mean the caller is gone
var endedStatuses = map[string]bool{
	"completed": true,
	"busy":      true,
	"failed":    true,
	"no-answer": true,
	"canceled":  true,
}

// handleOnline answers the gateway's GET test pings
func (s *Server) handleOnline(w http.ResponseWriter, r *http.Request) {
	s.writeTwiML(w, dialogue.Online())
}

func (s *Server) handleVoiceCall(w http.ResponseWriter, r *http.Request) {
	callID := r.FormValue("CallSid")
	logger.Info("Incoming call", zap.String("call_id", callID), zap.String("from", r.FormValue("From")))
	s.writeTwiML(w, s.calls.HandleTurn(r.Context(), callID, turn.Start(dialogue.ModeMultiTurn)))
}

func (s *Server) handleRecordedCall(w http.ResponseWriter, r *http.Request) {
	callID := r.FormValue("CallSid")
	logger.Info("Incoming recorded call", zap.String("call_id", callID), zap.String("from", r.FormValue("From")))
	s.writeTwiML(w, s.calls.HandleTurn(r.Context(), callID, turn.Start(dialogue.ModeSingleShot)))
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	callID := r.FormValue("CallSid")
	step := dialogue.Step(r.URL.Query().Get("step"))

	var in turn.Input
	if url := strings.TrimSpace(r.FormValue("RecordingUrl")); url != "" {
		in = turn.Recording(step, url)
	} else {
		// A missing SpeechResult is a silent or malformed turn
		in = turn.Speech(step, r.FormValue("SpeechResult"))
	}
	s.writeTwiML(w, s.calls.HandleTurn(r.Context(), callID, in))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	callID := r.FormValue("CallSid")
	status := r.FormValue("CallStatus")
	if callID != "" && endedStatuses[status] {
		s.calls.Abandon(r.Context(), callID)
	}
	w.WriteHeader(http.StatusNoContent)
}

type healthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body, err := sonic.Marshal(healthResponse{
		Status:   "ok",
		Sessions: s.sessions.GetActiveSessionCount(r.Context()),
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) writeTwiML(w http.ResponseWriter, d dialogue.Directive) {
	body, err := s.renderer.Render(d)
	if err != nil {
		logger.Error("Failed to render TwiML", zap.Error(err))
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", messages.ContentTypeXML)
	_, _ = w.Write(body)
}

// recoverTwiML turns a handler panic into a spoken apology so the caller
// never hears a gateway error
func (s *Server) recoverTwiML(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("Voice handler panicked",
					zap.Any("panic", rec),
					zap.String("path", r.URL.Path),
				)
				s.writeTwiML(w, dialogue.Apology())
			}
		}()
		next.ServeHTTP(w, r)
	})
}
