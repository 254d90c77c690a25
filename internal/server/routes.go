package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lazypower/heartline/internal/engine"
)

const (
	defaultHistoryLimit = 20
	chatTimeout         = 60 * time.Second
)

type chatRequest struct {
	UserName string `json:"user_name"`
	Name     string `json:"name,omitempty"`
	Message  string `json:"message"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), chatTimeout)
	defer cancel()

	res, err := s.engine.Chat(ctx, engine.Request{UserID: req.UserName, Name: req.Name, Message: req.Message})
	if err != nil {
		log.Printf("server: chat for %q: %v", req.UserName, err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Detect(req.Message))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.engine.Status(r.Context(), chi.URLParam(r, "user"), r.URL.Query().Get("name"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")
	turns, err := s.engine.History(r.Context(), user, queryLimit(r, defaultHistoryLimit))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id": user,
		"count":   len(turns),
		"turns":   turns,
	})
}

func (s *Server) handleObservations(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")
	obs, err := s.engine.Observations(r.Context(), user, queryLimit(r, defaultHistoryLimit))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":      user,
		"count":        len(obs),
		"observations": obs,
	})
}

func (s *Server) handleEmotionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.EmotionStats(r.Context(), chi.URLParam(r, "user"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")
	events, err := s.engine.Events(r.Context(), user, queryLimit(r, defaultHistoryLimit))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id": user,
		"count":   len(events),
		"events":  events,
	})
}

func (s *Server) handleInstruction(w http.ResponseWriter, r *http.Request) {
	text, err := s.engine.Instruction(r.Context(), chi.URLParam(r, "user"), r.URL.Query().Get("name"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"instruction": text})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")
	if err := s.engine.Reset(r.Context(), user); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset", "user_id": user})
}

// queryLimit reads ?limit=, falling back to def for missing or invalid
// values.
func queryLimit(r *http.Request, def int) int {
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			return n
		}
	}
	return def
}
