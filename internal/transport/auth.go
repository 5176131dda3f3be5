package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/form3tech-oss/jwt-go"
	"golang.org/x/time/rate"

	"arena/internal/config"
	"arena/internal/ports"
)

// ErrAuthFailed covers any credential verification failure: malformed
// token, bad signature, expired token, or an unknown subject.
var ErrAuthFailed = errors.New("authentication failed")

// Authenticator verifies bot credentials presented as a signed JWT carrying
// the bot identifier as `sub`, signed with HS256 in the same pattern the
// teacher uses for Vivox voice tokens, but without an expiry.
type Authenticator struct {
	secret    string
	issuer    string
	identities ports.BotIdentityStore
}

// NewAuthenticator constructs an Authenticator backed by identities.
func NewAuthenticator(secret, issuer string, identities ports.BotIdentityStore) *Authenticator {
	return &Authenticator{secret: secret, issuer: issuer, identities: identities}
}

// IssueCredential mints a signed, long-lived API key JWT for botID. Used by
// REGISTER_BOT to hand the caller something to AUTH with later.
func (a *Authenticator) IssueCredential(botID string) (string, error) {
	claims := jwt.MapClaims{
		"iss": a.issuer,
		"sub": botID,
		"iat": time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(a.secret))
}

// Verify checks apiKey's signature and that it carries a subject, then
// resolves the whole key to a bot identity via the identity store's
// GetByCredential. Expiry is not enforced by this
// credential shape — the token is the long-lived API key itself, not a
// short-lived session grant — mirroring REGISTER_BOT's "create once, reuse
// forever" credential contract.
func (a *Authenticator) Verify(ctx context.Context, apiKey string) (*ports.BotIdentity, error) {
	token, err := jwt.Parse(apiKey, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(a.secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrAuthFailed
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrAuthFailed
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, ErrAuthFailed
	}
	identity, err := a.identities.GetByCredential(ctx, apiKey)
	if err != nil || identity == nil {
		return nil, ErrAuthFailed
	}
	return identity, nil
}

// PeerLimiters enforces the per-peer-address rate limits from §6.3's
// rateLimits config: one token bucket per remote address per limited
// operation kind. An address's buckets are dropped by Forget, which the
// server calls when that connection's read loop ends.
type PeerLimiters struct {
	mu          sync.Mutex
	connection  map[string]*rate.Limiter
	auth        map[string]*rate.Limiter
	message     map[string]*rate.Limiter
	cfg         config.RateLimits
}

// NewPeerLimiters constructs a limiter set from the given config.
func NewPeerLimiters(cfg config.RateLimits) *PeerLimiters {
	return &PeerLimiters{
		connection: make(map[string]*rate.Limiter),
		auth:       make(map[string]*rate.Limiter),
		message:    make(map[string]*rate.Limiter),
		cfg:        cfg,
	}
}

func limiterFor(m map[string]*rate.Limiter, addr string, lim config.RateLimit) *rate.Limiter {
	l, ok := m[addr]
	if !ok {
		l = rate.NewLimiter(rate.Limit(lim.PerSecond), lim.Burst)
		m[addr] = l
	}
	return l
}

// AllowConnection reports whether addr may open a new connection now.
func (p *PeerLimiters) AllowConnection(addr string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return limiterFor(p.connection, addr, p.cfg.Connection).Allow()
}

// AllowAuth reports whether addr may attempt AUTH now.
func (p *PeerLimiters) AllowAuth(addr string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return limiterFor(p.auth, addr, p.cfg.Auth).Allow()
}

// AllowMessage reports whether addr may send another dispatcher message now.
func (p *PeerLimiters) AllowMessage(addr string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return limiterFor(p.message, addr, p.cfg.Message).Allow()
}

// Forget drops addr's limiters, e.g. on disconnect, so the maps don't grow
// without bound across the server's lifetime.
func (p *PeerLimiters) Forget(addr string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.connection, addr)
	delete(p.auth, addr)
	delete(p.message, addr)
}
