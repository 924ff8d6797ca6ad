package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/swapnilj01/collab-ai-editor/internal/models"
	"github.com/swapnilj01/collab-ai-editor/internal/session"
	"github.com/swapnilj01/collab-ai-editor/internal/store"
	"github.com/swapnilj01/collab-ai-editor/internal/utils"
)

// DurableStore is what the HTTP layer needs from the durable database.
// *store.Mongo satisfies it; tests use an in-memory fake.
type DurableStore interface {
	CreateSession(ctx context.Context, s *models.CodeSession) error
	GetSession(ctx context.Context, id string) (*models.CodeSession, error)
	FetchCommittedCode(ctx context.Context, id string) (code, owner string, err error)
	ListSessionsByOwner(ctx context.Context, owner string) ([]models.CodeSession, error)
	DeleteSession(ctx context.Context, id string) error
	CommitCode(ctx context.Context, id, code string) error
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// Reviewer produces code suggestions for the /suggest endpoint.
type Reviewer interface {
	Review(ctx context.Context, code string) ([]models.Suggestion, error)
}

type Handlers struct {
	log       *zap.Logger
	hub       *session.Hub
	cache     *store.Cache
	db        DurableStore
	reviewer  Reviewer
	jwtSecret []byte
	upgrader  websocket.Upgrader
}

func NewHandlers(log *zap.Logger, hub *session.Hub, cache *store.Cache, db DurableStore, reviewer Reviewer, jwtSecret []byte) *Handlers {
	return &Handlers{
		log:       log,
		hub:       hub,
		cache:     cache,
		db:        db,
		reviewer:  reviewer,
		jwtSecret: jwtSecret,
		upgrader:  websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("ok"))
}

// Ready reports whether the shared fast store is reachable; every live
// request path depends on it.
func (h *Handlers) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "not_ready", "shared store unreachable")
		return
	}
	_, _ = w.Write([]byte("ready"))
}

func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	username, err := utils.UsernameFromRequest(r, h.jwtSecret)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "valid token required")
		return
	}
	var req models.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid payload")
		return
	}

	s := &models.CodeSession{
		ID:    uuid.NewString(),
		Name:  req.Name,
		Owner: username,
		Code:  "",
	}
	if err := h.db.CreateSession(r.Context(), s); err != nil {
		h.log.Error("create session failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to create session")
		return
	}
	writeJSON(w, http.StatusCreated, models.CreateSessionResponse{SessionID: s.ID})
}

func (h *Handlers) ListSessions(w http.ResponseWriter, r *http.Request) {
	username, err := utils.UsernameFromRequest(r, h.jwtSecret)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "valid token required")
		return
	}
	sessions, err := h.db.ListSessionsByOwner(r.Context(), username)
	if err != nil {
		h.log.Error("list sessions failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []models.CodeSession{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

// GetSessionCode serves the current code for a session: the transient
// latest-code value while anyone is connected, otherwise the durable copy.
func (h *Handlers) GetSessionCode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	username := utils.OptionalUsername(r, h.jwtSecret)

	if code, err := h.cache.GetString(r.Context(), "code:"+id); err == nil {
		writeJSON(w, http.StatusOK, models.SessionCodeResponse{Code: code})
		return
	}

	code, owner, err := h.db.FetchCommittedCode(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "session_not_found", "session not found")
		return
	}
	if err != nil {
		h.log.Error("get session failed", zap.String("session", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to fetch session")
		return
	}
	if username != "" && username != owner {
		writeError(w, http.StatusForbidden, "forbidden", "access denied to this session")
		return
	}
	writeJSON(w, http.StatusOK, models.SessionCodeResponse{Code: code})
}

func (h *Handlers) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	username, err := utils.UsernameFromRequest(r, h.jwtSecret)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "valid token required")
		return
	}

	s, err := h.db.GetSession(r.Context(), id)
	if err != nil || s.Owner != username {
		writeError(w, http.StatusForbidden, "forbidden", "not allowed to delete this session")
		return
	}
	if err := h.db.DeleteSession(r.Context(), id); err != nil {
		h.log.Error("delete session failed", zap.String("session", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to delete session")
		return
	}
	// Drop transient state too, in case the session was still live.
	_ = h.cache.DeleteKey(r.Context(), "code:"+id)
	_ = h.cache.DeleteKey(r.Context(), "collab:"+id)
	writeJSON(w, http.StatusOK, map[string]string{"message": "session deleted"})
}

// SaveSession commits the transient code without waiting for the session
// to empty.
func (h *Handlers) SaveSession(w http.ResponseWriter, r *http.Request) {
	if _, err := utils.UsernameFromRequest(r, h.jwtSecret); err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "valid token required")
		return
	}

	var req models.SaveSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "session_id required")
		return
	}

	code, err := h.cache.GetString(r.Context(), "code:"+req.SessionID)
	if errors.Is(err, store.ErrAbsent) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "no transient code to save"})
		return
	}
	if err != nil {
		h.log.Error("read transient code failed", zap.String("session", req.SessionID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "store_unavailable", "shared store unreachable")
		return
	}
	if err := h.db.CommitCode(r.Context(), req.SessionID, code); err != nil {
		h.log.Error("manual save failed", zap.String("session", req.SessionID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to save session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "session saved"})
}

// Suggest asks the code reviewer for suggestions on the session's current
// code, preferring the transient value over the durable copy.
func (h *Handlers) Suggest(w http.ResponseWriter, r *http.Request) {
	username := utils.OptionalUsername(r, h.jwtSecret)

	var req models.SuggestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "session_id required")
		return
	}

	// An empty transient value (a cleared editor) falls back to the durable
	// copy just like an absent one.
	code, err := h.cache.GetString(r.Context(), "code:"+req.SessionID)
	if err != nil || code == "" {
		s, err := h.db.GetSession(r.Context(), req.SessionID)
		if err != nil {
			writeError(w, http.StatusNotFound, "session_not_found", "session not found")
			return
		}
		if username != "" && username != s.Owner {
			writeError(w, http.StatusForbidden, "forbidden", "unauthorized to view this session")
			return
		}
		code = s.Code
	}
	if code == "" {
		writeError(w, http.StatusNotFound, "no_code", "no code found for session")
		return
	}
	if h.reviewer == nil {
		writeError(w, http.StatusServiceUnavailable, "suggestions_unavailable", "code review is not configured")
		return
	}

	h.log.Info("generating suggestions", zap.String("session", req.SessionID))
	suggestions, err := h.reviewer.Review(r.Context(), code)
	if err != nil {
		h.log.Error("suggestion request failed", zap.String("session", req.SessionID), zap.Error(err))
		writeError(w, http.StatusBadGateway, "suggestions_failed", "suggestion provider error")
		return
	}
	writeJSON(w, http.StatusOK, models.SuggestionResponse{Suggestions: suggestions})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, models.ErrorResponse{Code: code, Message: message})
}
