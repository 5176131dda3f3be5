package transport

import (
	"context"
	"testing"
	"time"

	"arena/internal/config"
	"arena/internal/ports"
)

type fakeIdentityStore struct {
	byCredential map[string]*ports.BotIdentity
}

func (f *fakeIdentityStore) GetByCredential(ctx context.Context, credential string) (*ports.BotIdentity, error) {
	return f.byCredential[credential], nil
}
func (f *fakeIdentityStore) GetByID(ctx context.Context, botID string) (*ports.BotIdentity, error) {
	for _, id := range f.byCredential {
		if id.BotID == botID {
			return id, nil
		}
	}
	return nil, nil
}
func (f *fakeIdentityStore) UpdateLastSeen(ctx context.Context, botID string, at time.Time) error {
	return nil
}
func (f *fakeIdentityStore) UpdateRating(ctx context.Context, botID string, newRating int) error {
	return nil
}
func (f *fakeIdentityStore) Create(ctx context.Context, botName, ownerID string) (*ports.BotIdentity, error) {
	return nil, nil
}
func (f *fakeIdentityStore) List(ctx context.Context) ([]*ports.BotIdentity, error) { return nil, nil }

func TestAuthenticatorVerifyRoundTripsIssuedCredential(t *testing.T) {
	identities := &fakeIdentityStore{byCredential: map[string]*ports.BotIdentity{}}
	auth := NewAuthenticator("top-secret", "arena", identities)

	token, err := auth.IssueCredential("bot-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	identities.byCredential[token] = &ports.BotIdentity{BotID: "bot-1", BotName: "Bot One", Rating: 1000, Credential: token}

	identity, err := auth.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if identity.BotID != "bot-1" {
		t.Fatalf("expected bot-1, got %s", identity.BotID)
	}
}

func TestAuthenticatorVerifyRejectsWrongSecret(t *testing.T) {
	identities := &fakeIdentityStore{byCredential: map[string]*ports.BotIdentity{}}
	issuer := NewAuthenticator("secret-a", "arena", identities)
	verifier := NewAuthenticator("secret-b", "arena", identities)

	token, _ := issuer.IssueCredential("bot-1")
	identities.byCredential[token] = &ports.BotIdentity{BotID: "bot-1"}

	if _, err := verifier.Verify(context.Background(), token); err != ErrAuthFailed {
		t.Fatalf("expected ErrAuthFailed for a token signed with a different secret, got %v", err)
	}
}

func TestAuthenticatorVerifyRejectsUnknownCredential(t *testing.T) {
	identities := &fakeIdentityStore{byCredential: map[string]*ports.BotIdentity{}}
	auth := NewAuthenticator("secret", "arena", identities)
	token, _ := auth.IssueCredential("bot-1")
	// Never registered in the identity store.
	if _, err := auth.Verify(context.Background(), token); err != ErrAuthFailed {
		t.Fatalf("expected ErrAuthFailed for unknown credential, got %v", err)
	}
}

func TestPeerLimitersAllowAttemptsWithinBurst(t *testing.T) {
	limiters := NewPeerLimiters(config.RateLimits{
		Auth: config.RateLimit{PerSecond: 1000, Burst: 2},
	})
	if !limiters.AllowAuth("peer-1") {
		t.Fatalf("expected first attempt allowed")
	}
	if !limiters.AllowAuth("peer-1") {
		t.Fatalf("expected second attempt allowed (within burst)")
	}
}

func TestPeerLimitersAreIndependentPerAddress(t *testing.T) {
	limiters := NewPeerLimiters(config.RateLimits{
		Connection: config.RateLimit{PerSecond: 0, Burst: 1},
	})
	if !limiters.AllowConnection("peer-a") {
		t.Fatalf("expected peer-a's first connection allowed")
	}
	if limiters.AllowConnection("peer-a") {
		t.Fatalf("expected peer-a's second connection to be limited")
	}
	if !limiters.AllowConnection("peer-b") {
		t.Fatalf("expected peer-b's own bucket to be unaffected by peer-a")
	}
}
