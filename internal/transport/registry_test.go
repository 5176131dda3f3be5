package transport

import (
	"encoding/json"
	"testing"
	"time"

	"arena/internal/log"
)

type fakeConn struct {
	written    [][]byte
	closed     bool
	closeCode  int
	closeReason string
}

func (c *fakeConn) WriteMessage(data []byte) error {
	c.written = append(c.written, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func (c *fakeConn) CloseWithCode(code int, reason string) error {
	c.closeCode = code
	c.closeReason = reason
	return c.Close()
}

func decodeLast(t *testing.T, conn *fakeConn) outMessage {
	t.Helper()
	if len(conn.written) == 0 {
		t.Fatalf("expected at least one write")
	}
	var msg outMessage
	if err := json.Unmarshal(conn.written[len(conn.written)-1], &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return msg
}

func TestRegistrySendToBotRoutesViaSecondaryIndex(t *testing.T) {
	r := NewRegistry(log.New())
	conn := &fakeConn{}
	r.Add("sess1", conn, KindSpectator)
	r.SetSession("sess1", "bot-1")

	r.SendToBot("bot-1", "PONG", map[string]any{"timestamp": int64(42)})

	msg := decodeLast(t, conn)
	if msg.Type != "PONG" {
		t.Fatalf("expected PONG, got %s", msg.Type)
	}
}

func TestRegistrySetSessionEvictsPriorSessionForSameBot(t *testing.T) {
	r := NewRegistry(log.New())
	old := &fakeConn{}
	newer := &fakeConn{}
	r.Add("sess-old", old, KindSpectator)
	r.Add("sess-new", newer, KindSpectator)

	r.SetSession("sess-old", "bot-1")
	r.SetSession("sess-new", "bot-1")

	if !old.closed {
		t.Fatalf("expected prior session's transport to be closed on re-auth")
	}
	id, ok := r.BotSession("bot-1")
	if !ok || id != "sess-new" {
		t.Fatalf("expected bot-1 bound to sess-new, got %s (ok=%v)", id, ok)
	}
}

func TestRegistryBroadcastToSpectatorsReachesOnlyMatchMembers(t *testing.T) {
	r := NewRegistry(log.New())
	inMatch := &fakeConn{}
	other := &fakeConn{}
	r.Add("spec-1", inMatch, KindSpectator)
	r.Add("spec-2", other, KindSpectator)
	r.AddSpectator("spec-1", "match-1")

	r.BroadcastToSpectators("match-1", "MATCH_STATE", map[string]any{"frame": 1})

	if len(inMatch.written) != 1 {
		t.Fatalf("expected spectator of match-1 to receive the broadcast, got %d writes", len(inMatch.written))
	}
	if len(other.written) != 0 {
		t.Fatalf("expected non-spectator to receive nothing, got %d writes", len(other.written))
	}
}

func TestRegistrySendToUnknownSessionIsSilentNoop(t *testing.T) {
	r := NewRegistry(log.New())
	r.Remove("never-added") // must not panic
	r.Send("never-added", "PONG", nil)
}

func TestRegistryCloseSessionWithCodeUsesCodedCloser(t *testing.T) {
	r := NewRegistry(log.New())
	conn := &fakeConn{}
	r.Add("sess1", conn, KindSpectator)

	r.CloseSessionWithCode("sess1", CloseAuthFailed, "bad credential")

	if conn.closeCode != CloseAuthFailed {
		t.Fatalf("expected close code %d, got %d", CloseAuthFailed, conn.closeCode)
	}
	if !conn.closed {
		t.Fatalf("expected connection closed")
	}
}

func TestRegistryCleanupStaleRemovesOldSessions(t *testing.T) {
	r := NewRegistry(log.New())
	conn := &fakeConn{}
	r.Add("sess1", conn, KindSpectator)

	r.mu.Lock()
	r.sessions["sess1"].lastActive = time.Now().Add(-time.Hour)
	r.mu.Unlock()

	r.CleanupStale(time.Minute)

	if !conn.closed {
		t.Fatalf("expected stale session's transport closed")
	}
	r.mu.RLock()
	_, ok := r.sessions["sess1"]
	r.mu.RUnlock()
	if ok {
		t.Fatalf("expected stale session removed")
	}
}

func TestRegistryRemoveSpectatorIsIdempotent(t *testing.T) {
	r := NewRegistry(log.New())
	conn := &fakeConn{}
	r.Add("spec-1", conn, KindSpectator)
	r.AddSpectator("spec-1", "match-1")
	r.RemoveSpectator("spec-1", "match-1")
	r.RemoveSpectator("spec-1", "match-1") // must not panic

	r.BroadcastToSpectators("match-1", "MATCH_STATE", nil)
	if len(conn.written) != 0 {
		t.Fatalf("expected removed spectator to receive nothing")
	}
}
