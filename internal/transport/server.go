package transport

import (
	"net"
	"net/http"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"arena/internal/log"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 54 * time.Second
	wsWriteTimeout = 10 * time.Second
	maxMessageSize = 8192
	sendQueueDepth = 256
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// wsConn adapts a gorilla websocket.Conn plus its outbound queue to the
// Sender interface the registry pushes through.
type wsConn struct {
	conn   *websocket.Conn
	send   chan []byte
	closed atomic.Bool
}

func (c *wsConn) WriteMessage(data []byte) error {
	if c.closed.Load() {
		return net.ErrClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		// Outbound queue full: drop rather than block the caller, per
		// §5's "slow spectator must not back-pressure the tick loop."
		return nil
	}
}

func (c *wsConn) Close() error {
	if c.closed.CompareAndSwap(false, true) {
		close(c.send)
	}
	return nil
}

// CloseWithCode sends a websocket close frame carrying code/reason before
// tearing the connection down. Implements transport.CodedCloser.
func (c *wsConn) CloseWithCode(code int, reason string) error {
	if c.closed.Load() {
		return nil
	}
	msg := websocket.FormatCloseMessage(code, reason)
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	_ = c.conn.WriteMessage(websocket.CloseMessage, msg)
	return c.Close()
}

// Server terminates inbound websocket connections and wires each one to
// the registry and dispatcher.
type Server struct {
	addr     string
	registry *Registry
	dispatch *Dispatcher
	limiters *PeerLimiters
	log      log.Logger
	http     *http.Server
}

// NewServer constructs a Server bound to addr.
func NewServer(addr string, registry *Registry, dispatch *Dispatcher, limiters *PeerLimiters, logger log.Logger) *Server {
	s := &Server{addr: addr, registry: registry, dispatch: dispatch, limiters: limiters, log: logger}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	s.http = &http.Server{Addr: addr, Handler: mux}
	return s
}

// ListenAndServe blocks serving connections until the listener fails or
// Shutdown is called.
func (s *Server) ListenAndServe() error {
	return s.http.ListenAndServe()
}

// Shutdown closes the listener and any connections still in plain HTTP.
// Websocket connections that were already upgraded are not closed by it,
// and nothing is drained.
func (s *Server) Shutdown() error {
	return s.http.Close()
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	addr := r.RemoteAddr
	if !s.limiters.AllowConnection(addr) {
		http.Error(w, "too many connection attempts", http.StatusTooManyRequests)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed from %s: %v", addr, err)
		return
	}

	id := uuid.NewString()
	wc := &wsConn{conn: conn, send: make(chan []byte, sendQueueDepth)}
	s.registry.Add(id, wc, KindSpectator)

	cc := &ConnContext{SessionID: id, Addr: addr}

	s.registry.Send(id, MsgWelcome, map[string]any{"requiresAuth": true})

	go s.writePump(wc)
	go s.readPump(id, cc, wc)
}

func (s *Server) readPump(id string, cc *ConnContext, wc *wsConn) {
	defer func() {
		s.registry.Remove(id)
		s.limiters.Forget(cc.Addr)
	}()

	wc.conn.SetReadLimit(maxMessageSize)
	wc.conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	wc.conn.SetPongHandler(func(string) error {
		wc.conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	for {
		_, data, err := wc.conn.ReadMessage()
		if err != nil {
			break
		}
		s.registry.Touch(id)
		s.dispatchSafe(cc, data)
	}
}

// dispatchSafe runs Dispatch with a panic recovery boundary so one
// malformed or unexpected message can never take down the connection's
// read loop, mirroring the teacher's handleMessage recover guard.
func (s *Server) dispatchSafe(cc *ConnContext, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic dispatching message from %s: %v\n%s", cc.Addr, r, debug.Stack())
		}
	}()
	if !s.dispatch.Dispatch(cc, data) {
		s.registry.Send(cc.SessionID, MsgError, ErrorPayload{Code: ErrCodeRateLimited})
	}
}

func (s *Server) writePump(wc *wsConn) {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		wc.conn.Close()
	}()

	for {
		select {
		case data, ok := <-wc.send:
			wc.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if !ok {
				wc.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := wc.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			wc.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := wc.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
