package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/swapnilj01/collab-ai-editor/internal/models"
	"github.com/swapnilj01/collab-ai-editor/internal/store"
	"github.com/swapnilj01/collab-ai-editor/internal/utils"
)

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid payload")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "username and password required")
		return
	}

	if existing, err := h.db.GetUserByUsername(r.Context(), req.Username); err == nil && existing != nil {
		writeError(w, http.StatusConflict, "username_taken", "username already exists")
		return
	} else if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.log.Error("user lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to create user")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to hash password")
		return
	}
	user := &models.User{Username: req.Username, PasswordHash: string(hash)}
	if err := h.db.CreateUser(r.Context(), user); err != nil {
		h.log.Error("create user failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to create user")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "user created"})
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid payload")
		return
	}

	user, err := h.db.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
		return
	}

	signed, err := utils.IssueToken(user.Username, h.jwtSecret)
	if err != nil {
		h.log.Error("token signing failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to sign token")
		return
	}
	writeJSON(w, http.StatusOK, models.TokenResponse{AccessToken: signed, TokenType: "bearer"})
}
