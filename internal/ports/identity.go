package ports

import (
	"context"
	"time"
)

// BotIdentity is a registered bot's durable identity record.
type BotIdentity struct {
	BotID      string
	BotName    string
	OwnerID    string
	Rating     int
	Credential string
	CreatedAt  time.Time
	LastSeenAt time.Time
}

// BotIdentityStore resolves and persists bot identities. It is consumed by
// the authenticator, the controller's registration handler, and the rating
// updater.
type BotIdentityStore interface {
	// GetByCredential resolves a presented API key to a bot identity. It
	// returns (nil, nil) when the credential is unknown.
	GetByCredential(ctx context.Context, credential string) (*BotIdentity, error)

	// GetByID looks up a bot identity by its opaque ID. It returns
	// (nil, nil) when the ID is unknown.
	GetByID(ctx context.Context, botID string) (*BotIdentity, error)

	// UpdateLastSeen touches the identity's last-activity timestamp.
	UpdateLastSeen(ctx context.Context, botID string, at time.Time) error

	// UpdateRating persists a new rating for the bot.
	UpdateRating(ctx context.Context, botID string, newRating int) error

	// Create registers a new bot and issues it a credential.
	Create(ctx context.Context, botName, ownerID string) (*BotIdentity, error)

	// List returns all bot identities ordered by rating descending.
	List(ctx context.Context) ([]*BotIdentity, error)
}
