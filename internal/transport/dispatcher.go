package transport

import (
	"encoding/json"
	"sync"
)

// ConnContext is the per-connection state the dispatcher threads through
// to handlers: identity established by AUTH, plus routing info a handler
// needs to reply or to bind a match.
type ConnContext struct {
	SessionID string
	Addr      string

	mu            sync.RWMutex
	authenticated bool
	botID         string
	botName       string
}

// SetIdentity records a successful AUTH outcome.
func (c *ConnContext) SetIdentity(botID, botName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authenticated = true
	c.botID = botID
	c.botName = botName
}

// Identity reports the currently bound bot identity, if authenticated.
func (c *ConnContext) Identity() (botID, botName string, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.botID, c.botName, c.authenticated
}

// HandlerFunc processes one decoded message for a connection. raw is the
// full envelope bytes; the handler unmarshals its own payload shape from
// it.
type HandlerFunc func(cc *ConnContext, raw json.RawMessage)

// Dispatcher parses the JSON envelope, applies the per-peer message rate
// limit, and routes by type to a registered handler. Unknown types get
// ERROR/UNKNOWN_TYPE.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	limiters *PeerLimiters
	registry *Registry
}

// NewDispatcher constructs an empty dispatcher.
func NewDispatcher(limiters *PeerLimiters, registry *Registry) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		limiters: limiters,
		registry: registry,
	}
}

// Handle registers the handler for a message type, overwriting any prior
// registration. Intended to be called once per type during wiring.
func (d *Dispatcher) Handle(msgType string, fn HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[msgType] = fn
}

// Dispatch decodes data and routes it to the registered handler for its
// type. Returns false when the message was refused by the per-peer message
// rate limit, after a RATE_LIMITED error has been sent to the peer.
func (d *Dispatcher) Dispatch(cc *ConnContext, data []byte) bool {
	if !d.limiters.AllowMessage(cc.Addr) {
		d.registry.Send(cc.SessionID, MsgError, ErrorPayload{Code: ErrCodeRateLimited, Message: "message rate exceeded"})
		return false
	}

	msgType, raw, err := DecodeEnvelope(data)
	if err != nil {
		d.registry.Send(cc.SessionID, MsgError, ErrorPayload{Code: ErrCodeBadRequest, Message: "malformed message"})
		return true
	}

	d.mu.RLock()
	fn, ok := d.handlers[msgType]
	d.mu.RUnlock()
	if !ok {
		d.registry.Send(cc.SessionID, MsgError, ErrorPayload{Code: ErrCodeUnknownType, Message: "unknown message type: " + msgType})
		return true
	}
	fn(cc, raw)
	return true
}
