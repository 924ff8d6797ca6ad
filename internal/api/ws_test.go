package api_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swapnilj01/collab-ai-editor/internal/models"
)

type wsFrame struct {
	Type          string                          `json:"type"`
	Code          string                          `json:"code"`
	Collaborators map[string]models.PresenceEntry `json:"collaborators"`
}

func wsURL(env *testEnv, sessionID, query string) string {
	base := "ws" + strings.TrimPrefix(env.server.URL, "http")
	return base + "/ws/" + sessionID + query
}

func dial(t *testing.T, env *testEnv, sessionID, query string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(env, sessionID, query), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// waitForFrame reads until a frame of the wanted type arrives, skipping
// interleaved presence snapshots or code frames.
func waitForFrame(t *testing.T, conn *websocket.Conn, wantType string) wsFrame {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %q frame", wantType)
		var frame wsFrame
		require.NoError(t, json.Unmarshal(raw, &frame))
		if frame.Type == wantType {
			return frame
		}
	}
}

// waitForSnapshot reads collaborator snapshots until one satisfies the
// predicate, tolerating stale snapshots broadcast before an update landed.
func waitForSnapshot(t *testing.T, conn *websocket.Conn, ok func(wsFrame) bool) wsFrame {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for matching snapshot")
		var frame wsFrame
		require.NoError(t, json.Unmarshal(raw, &frame))
		if frame.Type == models.MsgCollaborators && ok(frame) {
			return frame
		}
	}
}

func sendJSON(t *testing.T, conn *websocket.Conn, payload string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(payload)))
}

func TestWSRefusesAnonymousJoin(t *testing.T) {
	env := setupEnv(t, nil)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(env, "s1", ""), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	closeErr, ok := err.(*websocket.CloseError)
	require.True(t, ok, "expected close error, got %v", err)
	assert.Equal(t, 4001, closeErr.Code)
}

func TestWSAcceptsTokenIdentity(t *testing.T) {
	env := setupEnv(t, nil)
	token := env.registerAndLogin(t, "alice")

	conn := dial(t, env, "s1", "?token="+token)
	snap := waitForFrame(t, conn, models.MsgCollaborators)
	require.Len(t, snap.Collaborators, 1)
	for _, entry := range snap.Collaborators {
		assert.Equal(t, "alice", entry.Name)
	}
}

func TestWSCollaborationScenario(t *testing.T) {
	env := setupEnv(t, nil)

	a := dial(t, env, "s1", "?name=alice")
	waitForFrame(t, a, models.MsgCollaborators)

	b := dial(t, env, "s1", "?name=bob")
	waitForFrame(t, b, models.MsgCollaborators)
	waitForSnapshot(t, a, func(f wsFrame) bool { return len(f.Collaborators) == 2 })

	// A sends a code change: B gets the code, both get a snapshot with
	// entries for both participants, and A never sees its code echoed.
	sendJSON(t, a, `{"type":"code","code":"print(1)"}`)

	frame := waitForFrame(t, b, models.MsgCode)
	assert.Equal(t, "print(1)", frame.Code)
	waitForSnapshot(t, b, func(f wsFrame) bool { return len(f.Collaborators) == 2 })

	require.NoError(t, a.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := a.ReadMessage()
	require.NoError(t, err)
	var next wsFrame
	require.NoError(t, json.Unmarshal(raw, &next))
	require.Equal(t, models.MsgCollaborators, next.Type, "sender must not get its code echoed")
	assert.Len(t, next.Collaborators, 2)

	// A moves its cursor: both sides observe cursor=5 for alice.
	sendJSON(t, a, `{"type":"cursor_update","cursor":5,"selection":null}`)
	hasCursor := func(f wsFrame) bool {
		for _, entry := range f.Collaborators {
			if entry.Name == "alice" && string(entry.Cursor) == "5" {
				return true
			}
		}
		return false
	}
	waitForSnapshot(t, a, hasCursor)
	waitForSnapshot(t, b, hasCursor)

	// B disconnects: the transient code survives while A remains.
	b.Close()
	waitForSnapshot(t, a, func(f wsFrame) bool { return len(f.Collaborators) == 1 })
	code, err := env.cache.GetString(t.Context(), "code:s1")
	require.NoError(t, err)
	assert.Equal(t, "print(1)", code)

	// A disconnects: the durable store now holds the code and the
	// transient cache is gone.
	a.Close()
	assert.Eventually(t, func() bool {
		s, err := env.db.GetSession(t.Context(), "s1")
		return err == nil && s.Code == "print(1)"
	}, 2*time.Second, 20*time.Millisecond, "flush should commit the last code")
	assert.Eventually(t, func() bool {
		return !env.mr.Exists("code:s1") && !env.mr.Exists("collab:s1")
	}, 2*time.Second, 20*time.Millisecond, "transient state should be cleared")
}

func TestWSMalformedMessageKeepsConnectionOpen(t *testing.T) {
	env := setupEnv(t, nil)

	a := dial(t, env, "s1", "?name=alice")
	waitForFrame(t, a, models.MsgCollaborators)

	sendJSON(t, a, "{this is not json")

	// The connection is still serviced: a follow-up message round-trips.
	sendJSON(t, a, `{"type":"cursor_update","cursor":1,"selection":null}`)
	waitForSnapshot(t, a, func(f wsFrame) bool {
		for _, entry := range f.Collaborators {
			if string(entry.Cursor) == "1" {
				return true
			}
		}
		return false
	})
}
