package session

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/swapnilj01/collab-ai-editor/internal/metrics"
	"github.com/swapnilj01/collab-ai-editor/internal/models"
	"github.com/swapnilj01/collab-ai-editor/internal/store"
)

// DurableStore is the slice of the durable store the hub needs: writing the
// final code when a session's last connection leaves.
type DurableStore interface {
	CommitCode(ctx context.Context, sessionID, code string) error
}

// Hub orchestrates the collaboration sessions on this instance: it owns the
// connection registry, feeds the shared presence hash and code cache, fans
// messages out, and flushes the latest code to the durable store when a
// session empties.
type Hub struct {
	registry *Registry
	presence *PresenceTracker
	cache    *store.Cache
	durable  DurableStore
	log      *zap.Logger
}

func NewHub(cache *store.Cache, durable DurableStore, log *zap.Logger) *Hub {
	return &Hub{
		registry: NewRegistry(),
		presence: NewPresenceTracker(cache),
		cache:    cache,
		durable:  durable,
		log:      log,
	}
}

func codeKey(sessionID string) string { return "code:" + sessionID }

// Registry exposes the connection registry, mainly for tests and metrics.
func (h *Hub) Registry() *Registry { return h.registry }

// Join registers a connection and creates its presence entry with an empty
// cursor and selection, then pushes a presence snapshot to the whole
// session so existing participants learn of the newcomer immediately.
// A store outage degrades presence but never refuses the connection.
func (h *Hub) Join(ctx context.Context, sessionID string, c *Client) error {
	h.registry.Add(sessionID, c)
	metrics.ConnectionOpened()

	err := h.presence.Upsert(ctx, sessionID, c.ID, models.PresenceEntry{Name: c.Name})
	if err != nil {
		h.log.Warn("presence upsert failed on join",
			zap.String("session", sessionID), zap.String("conn", c.ID), zap.Error(err))
	}
	if berr := h.broadcastPresence(ctx, sessionID); berr != nil && err == nil {
		err = berr
	}
	return err
}

// HandleMessage applies one inbound message from a connection. Malformed
// payloads and unrecognized types are dropped without side effects and
// without tearing down the connection. Store failures are surfaced to the
// caller but never abort the broadcast of the in-memory value.
func (h *Hub) HandleMessage(ctx context.Context, sessionID, connID string, raw []byte) error {
	// A connection already removed cannot resurrect transient state after
	// the flush has run.
	c, ok := h.registry.Get(sessionID, connID)
	if !ok {
		return nil
	}

	var msg models.InboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil
	}

	var firstErr error
	switch msg.Type {
	case models.MsgCursorUpdate:
		entry := models.PresenceEntry{Name: c.Name, Cursor: msg.Cursor, Selection: msg.Selection}
		if err := h.presence.Upsert(ctx, sessionID, connID, entry); err != nil {
			firstErr = err
		}

	case models.MsgCode:
		if err := h.cache.SetString(ctx, codeKey(sessionID), msg.Code); err != nil {
			// Keep the other participants' view alive even when the cache
			// write fails; the failure still reaches the caller.
			firstErr = err
		}
		h.broadcastCode(sessionID, msg.Code, connID)

	default:
		return nil
	}

	metrics.MessageHandled(msg.Type)

	if err := h.broadcastPresence(ctx, sessionID); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Leave removes a connection exactly once. The call that empties the
// session flushes the latest transient code to the durable store, then
// clears the transient cache, residual presence entries, and the
// per-session bookkeeping.
func (h *Hub) Leave(ctx context.Context, sessionID, connID string) error {
	remaining, removed := h.registry.Remove(sessionID, connID)
	if !removed {
		return nil
	}
	metrics.ConnectionClosed()

	firstErr := h.presence.Delete(ctx, sessionID, connID)

	if remaining > 0 {
		if err := h.broadcastPresence(ctx, sessionID); err != nil && firstErr == nil {
			firstErr = err
		}
		return firstErr
	}

	// Last one out: read the cache only now that the registry is confirmed
	// empty, so a code write racing this leave is still observed.
	code, err := h.cache.GetString(ctx, codeKey(sessionID))
	switch {
	case err == nil:
		if cerr := h.durable.CommitCode(ctx, sessionID, code); cerr != nil {
			h.log.Error("flush to durable store failed",
				zap.String("session", sessionID), zap.Error(cerr))
			if firstErr == nil {
				firstErr = cerr
			}
		}
	case !errors.Is(err, store.ErrAbsent):
		if firstErr == nil {
			firstErr = err
		}
	}

	metrics.SessionFlushed()

	// A join that landed while the flush was committing keeps the session
	// alive; its transient state must survive until the next final leave.
	if !h.registry.IsEmpty(sessionID) {
		return firstErr
	}
	if err := h.cache.DeleteKey(ctx, codeKey(sessionID)); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := h.presence.Clear(ctx, sessionID); err != nil && firstErr == nil {
		firstErr = err
	}
	h.registry.Purge(sessionID)

	return firstErr
}

// broadcastCode fans the new code out to every live connection except the
// originator. Delivery is best effort; a failed or closed connection never
// aborts the rest of the fan-out.
func (h *Hub) broadcastCode(sessionID, code, excludeConnID string) {
	frame, err := json.Marshal(models.CodeBroadcast{Type: models.MsgCode, Code: code})
	if err != nil {
		return
	}
	for id, c := range h.registry.Snapshot(sessionID) {
		if id == excludeConnID || !c.Open() {
			continue
		}
		c.Send(frame)
	}
}

// broadcastPresence sends the full collaborator snapshot to every live
// connection in the session, originator included.
func (h *Hub) broadcastPresence(ctx context.Context, sessionID string) error {
	snapshot, err := h.presence.SnapshotAll(ctx, sessionID)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(models.PresenceSnapshot{
		Type:          models.MsgCollaborators,
		Collaborators: snapshot,
	})
	if err != nil {
		return err
	}
	for _, c := range h.registry.Snapshot(sessionID) {
		if !c.Open() {
			continue
		}
		c.Send(frame)
	}
	return nil
}
