package transport

import (
	"encoding/json"
	"sync"
	"time"

	"arena/internal/log"
)

// sessionKind distinguishes a bot-facing connection from a spectator.
type sessionKind int

const (
	KindBot sessionKind = iota
	KindSpectator
)

// Sender is the minimal outbound surface a transport connection exposes to
// the registry. A websocket connection, a unit-test fake, or any other
// full-duplex transport can satisfy it.
type Sender interface {
	WriteMessage(data []byte) error
	Close() error
}

// CodedCloser is an optional Sender capability for transports that can
// close with a protocol-specific close code (e.g. websocket 4001/4029).
// Transports that don't support it fall back to a plain Close.
type CodedCloser interface {
	CloseWithCode(code int, reason string) error
}

// session is one live connection's bookkeeping.
type session struct {
	id         string
	conn       Sender
	kind       sessionKind
	botID      string
	lastActive time.Time
}

// Registry is the connection registry of spec.md §4.1: a session map keyed
// by connection id, a secondary botId→id index enforcing one session per
// bot, and a matchId→spectator-set index. It implements app.Outbound
// structurally via SendToBot/BroadcastToSpectators.
type Registry struct {
	mu         sync.RWMutex
	sessions   map[string]*session
	byBot      map[string]string            // botID -> session id
	spectators map[string]map[string]struct{} // matchID -> set of session ids
	log        log.Logger
}

// NewRegistry constructs an empty registry.
func NewRegistry(logger log.Logger) *Registry {
	return &Registry{
		sessions:   make(map[string]*session),
		byBot:      make(map[string]string),
		spectators: make(map[string]map[string]struct{}),
		log:        logger,
	}
}

// Add inserts a new, not-yet-authenticated connection.
func (r *Registry) Add(id string, conn Sender, kind sessionKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = &session{id: id, conn: conn, kind: kind, lastActive: time.Now()}
}

// Remove closes and forgets a connection, evicting it from every index it
// participates in. Idempotent.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	if !ok {
		return
	}
	delete(r.sessions, id)
	if sess.botID != "" && r.byBot[sess.botID] == id {
		delete(r.byBot, sess.botID)
	}
	for matchID, set := range r.spectators {
		if _, ok := set[id]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(r.spectators, matchID)
			}
		}
	}
	_ = sess.conn.Close()
}

// SetSession promotes a connection after authentication succeeds, binding
// it to botID. Any prior session bound to the same bot is evicted — its
// transport is closed, enforcing one-connection-per-bot.
func (r *Registry) SetSession(id string, botID string) {
	r.mu.Lock()
	var evict *session
	if prior, ok := r.byBot[botID]; ok && prior != id {
		evict = r.sessions[prior]
		delete(r.sessions, prior)
		delete(r.byBot, botID)
	}
	if sess, ok := r.sessions[id]; ok {
		sess.botID = botID
		sess.kind = KindBot
		r.byBot[botID] = id
	}
	r.mu.Unlock()
	if evict != nil {
		r.log.Info("evicting prior session for bot %s on re-auth", botID)
		_ = evict.conn.Close()
	}
}

// AssignBotToMatch is currently a no-op placeholder: bot→match binding is
// tracked by the controller/match runtime, not the registry itself; the
// registry only needs the bot→session index to route sends. Kept for
// symmetry with spec.md §4.1's operation list.
func (r *Registry) AssignBotToMatch(botID, matchID string) {}

// AddSpectator registers connection id as a spectator of matchID.
func (r *Registry) AddSpectator(id, matchID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.spectators[matchID]
	if !ok {
		set = make(map[string]struct{})
		r.spectators[matchID] = set
	}
	set[id] = struct{}{}
}

// RemoveSpectator is idempotent.
func (r *Registry) RemoveSpectator(id, matchID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if set, ok := r.spectators[matchID]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(r.spectators, matchID)
		}
	}
}

// Touch updates a session's last-activity timestamp.
func (r *Registry) Touch(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sess, ok := r.sessions[id]; ok {
		sess.lastActive = time.Now()
	}
}

// CleanupStale closes and removes every session whose last activity is
// older than ageLimit. Intended to be called periodically.
func (r *Registry) CleanupStale(ageLimit time.Duration) {
	cutoff := time.Now().Add(-ageLimit)
	r.mu.Lock()
	var stale []string
	for id, sess := range r.sessions {
		if sess.lastActive.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	r.mu.Unlock()
	for _, id := range stale {
		r.log.Info("closing stale connection %s", id)
		r.Remove(id)
	}
}

// Send serializes msgType/payload into the wire envelope and pushes it to
// connection id. A send to a closed or unknown transport is a silent
// no-op — match progress must never block on a dead peer.
func (r *Registry) Send(id string, msgType string, payload any) {
	r.mu.RLock()
	sess, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return
	}
	data, err := json.Marshal(outMessage{Type: msgType, Payload: payload})
	if err != nil {
		r.log.Error("encode message %s for %s: %v", msgType, id, err)
		return
	}
	if err := sess.conn.WriteMessage(data); err != nil {
		r.log.Debug("send to %s failed (dropping): %v", id, err)
	}
}

// SendToBot resolves botID via the secondary index and sends to its
// session. Implements app.Outbound.
func (r *Registry) SendToBot(botID string, msgType string, payload any) {
	r.mu.RLock()
	id, ok := r.byBot[botID]
	r.mu.RUnlock()
	if !ok {
		return
	}
	r.Send(id, msgType, payload)
}

// BroadcastToSpectators serializes once and fans out to every spectator of
// matchID. Implements app.Outbound.
func (r *Registry) BroadcastToSpectators(matchID string, msgType string, payload any) {
	data, err := json.Marshal(outMessage{Type: msgType, Payload: payload})
	if err != nil {
		r.log.Error("encode broadcast %s for match %s: %v", msgType, matchID, err)
		return
	}
	r.mu.RLock()
	set := r.spectators[matchID]
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sessions := make([]*session, 0, len(ids))
	for _, id := range ids {
		if sess, ok := r.sessions[id]; ok {
			sessions = append(sessions, sess)
		}
	}
	r.mu.RUnlock()
	for _, sess := range sessions {
		if err := sess.conn.WriteMessage(data); err != nil {
			r.log.Debug("broadcast to %s failed (dropping): %v", sess.id, err)
		}
	}
}

// CloseSessionWithCode closes connection id with a protocol-specific close
// code when the transport supports it (e.g. 4001 auth-failed, 4029
// rate-limited), falling back to a plain close otherwise. It also removes
// the session from every index, same as Remove.
func (r *Registry) CloseSessionWithCode(id string, code int, reason string) {
	r.mu.RLock()
	sess, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return
	}
	if coded, ok := sess.conn.(CodedCloser); ok {
		_ = coded.CloseWithCode(code, reason)
	}
	r.Remove(id)
}

// BotSession reports the session id bound to botID, if any.
func (r *Registry) BotSession(botID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byBot[botID]
	return id, ok
}

// IsBotOnline reports whether botID currently holds a live session.
func (r *Registry) IsBotOnline(botID string) bool {
	_, ok := r.BotSession(botID)
	return ok
}
