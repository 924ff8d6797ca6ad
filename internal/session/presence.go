package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/swapnilj01/collab-ai-editor/internal/models"
	"github.com/swapnilj01/collab-ai-editor/internal/store"
)

// PresenceTracker keeps each session's participant states in one shared
// hash, field = connection identity, value = serialized presence entry.
// Because the hash lives in the shared fast store, presence is visible
// across every hub instance at the cost of a round trip per update.
type PresenceTracker struct {
	cache *store.Cache
}

func NewPresenceTracker(cache *store.Cache) *PresenceTracker {
	return &PresenceTracker{cache: cache}
}

func presenceKey(sessionID string) string { return "collab:" + sessionID }

func (p *PresenceTracker) Upsert(ctx context.Context, sessionID, connID string, entry models.PresenceEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal presence entry: %w", err)
	}
	return p.cache.HashSet(ctx, presenceKey(sessionID), connID, string(raw))
}

func (p *PresenceTracker) Delete(ctx context.Context, sessionID, connID string) error {
	return p.cache.HashDelete(ctx, presenceKey(sessionID), connID)
}

// SnapshotAll returns every participant's current state. Entries that fail
// to decode are skipped rather than poisoning the whole snapshot.
func (p *PresenceTracker) SnapshotAll(ctx context.Context, sessionID string) (map[string]models.PresenceEntry, error) {
	raw, err := p.cache.HashGetAll(ctx, presenceKey(sessionID))
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.PresenceEntry, len(raw))
	for connID, val := range raw {
		var entry models.PresenceEntry
		if err := json.Unmarshal([]byte(val), &entry); err != nil {
			continue
		}
		out[connID] = entry
	}
	return out, nil
}

// Clear drops the whole presence hash for a session, including any entries
// left behind by connections that never tore down cleanly.
func (p *PresenceTracker) Clear(ctx context.Context, sessionID string) error {
	return p.cache.DeleteKey(ctx, presenceKey(sessionID))
}
