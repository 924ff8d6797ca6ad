package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/swapnilj01/collab-ai-editor/internal/session"
	"github.com/swapnilj01/collab-ai-editor/internal/utils"
)

// closeCodeUnauthorized refuses a connection whose identity cannot be
// resolved from either the token or the name query parameter.
const closeCodeUnauthorized = 4001

// CollabWS attaches a participant to a session. Identity comes from the
// `token` query parameter (JWT subject) with `name` as a fallback; the
// connection identity itself is generated here rather than derived from
// transport handshake headers.
func (h *Handlers) CollabWS(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	username := ""
	if token := r.URL.Query().Get("token"); token != "" {
		if sub, err := utils.UsernameFromToken(token, h.jwtSecret); err == nil {
			username = sub
		}
	}
	if username == "" {
		username = r.URL.Query().Get("name")
	}
	if username == "" {
		msg := websocket.FormatCloseMessage(closeCodeUnauthorized, "no resolvable identity")
		_ = conn.WriteMessage(websocket.CloseMessage, msg)
		return
	}

	// The connection outlives any per-request deadline, so hub operations
	// run on a background context.
	ctx := context.Background()
	client := session.NewClient(uuid.NewString(), username, conn)

	if err := h.hub.Join(ctx, sessionID, client); err != nil {
		h.log.Warn("join degraded",
			zap.String("session", sessionID), zap.String("conn", client.ID), zap.Error(err))
	}
	defer func() {
		client.Close()
		if err := h.hub.Leave(ctx, sessionID, client.ID); err != nil {
			h.log.Warn("leave degraded",
				zap.String("session", sessionID), zap.String("conn", client.ID), zap.Error(err))
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if err := h.hub.HandleMessage(ctx, sessionID, client.ID, raw); err != nil {
			h.log.Warn("message handling degraded",
				zap.String("session", sessionID), zap.String("conn", client.ID), zap.Error(err))
		}
	}
}
