package transport

import (
	"encoding/json"
	"testing"

	"arena/internal/config"
	"arena/internal/log"
)

func newTestDispatcher() (*Dispatcher, *Registry, *fakeConn) {
	registry := NewRegistry(log.New())
	conn := &fakeConn{}
	registry.Add("sess1", conn, KindSpectator)
	limiters := NewPeerLimiters(config.RateLimits{
		Message: config.RateLimit{PerSecond: 100, Burst: 100},
	})
	return NewDispatcher(limiters, registry), registry, conn
}

func TestDispatcherRoutesToRegisteredHandler(t *testing.T) {
	d, _, conn := newTestDispatcher()
	cc := &ConnContext{SessionID: "sess1", Addr: "127.0.0.1:1"}

	var gotType string
	d.Handle(MsgPing, func(cc *ConnContext, raw json.RawMessage) {
		gotType = "handled"
	})

	ok := d.Dispatch(cc, []byte(`{"type":"PING"}`))
	if !ok {
		t.Fatalf("expected dispatch to succeed")
	}
	if gotType != "handled" {
		t.Fatalf("expected handler invoked")
	}
	if len(conn.written) != 0 {
		t.Fatalf("expected no error reply for a known type, got %d writes", len(conn.written))
	}
}

func TestDispatcherUnknownTypeRepliesWithError(t *testing.T) {
	d, _, conn := newTestDispatcher()
	cc := &ConnContext{SessionID: "sess1", Addr: "127.0.0.1:2"}

	d.Dispatch(cc, []byte(`{"type":"NOT_A_REAL_TYPE"}`))

	msg := decodeLast(t, conn)
	if msg.Type != MsgError {
		t.Fatalf("expected ERROR reply, got %s", msg.Type)
	}
}

func TestDispatcherMalformedJSONRepliesWithError(t *testing.T) {
	d, _, conn := newTestDispatcher()
	cc := &ConnContext{SessionID: "sess1", Addr: "127.0.0.1:3"}

	d.Dispatch(cc, []byte(`not json`))

	msg := decodeLast(t, conn)
	if msg.Type != MsgError {
		t.Fatalf("expected ERROR reply for malformed JSON, got %s", msg.Type)
	}
}

func TestDispatcherRateLimitedMessageReturnsFalse(t *testing.T) {
	registry := NewRegistry(log.New())
	conn := &fakeConn{}
	registry.Add("sess1", conn, KindSpectator)
	limiters := NewPeerLimiters(config.RateLimits{
		Message: config.RateLimit{PerSecond: 0, Burst: 1},
	})
	d := NewDispatcher(limiters, registry)
	cc := &ConnContext{SessionID: "sess1", Addr: "127.0.0.1:4"}
	d.Handle(MsgPing, func(cc *ConnContext, raw json.RawMessage) {})

	if ok := d.Dispatch(cc, []byte(`{"type":"PING"}`)); !ok {
		t.Fatalf("expected first message within burst to be allowed")
	}
	if ok := d.Dispatch(cc, []byte(`{"type":"PING"}`)); ok {
		t.Fatalf("expected second message to be rate limited")
	}
}

func TestConnContextIdentityRoundTrips(t *testing.T) {
	cc := &ConnContext{SessionID: "sess1", Addr: "127.0.0.1:5"}
	if _, _, ok := cc.Identity(); ok {
		t.Fatalf("expected unauthenticated by default")
	}
	cc.SetIdentity("bot-1", "Bot One")
	botID, botName, ok := cc.Identity()
	if !ok || botID != "bot-1" || botName != "Bot One" {
		t.Fatalf("unexpected identity: %s %s %v", botID, botName, ok)
	}
}
