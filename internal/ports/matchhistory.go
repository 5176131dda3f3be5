package ports

import (
	"context"

	"arena/internal/replay"
)

// MatchHistoryStore durably records completed matches and serves them back
// for the GET_MATCHES handler.
type MatchHistoryStore interface {
	// SaveMatch persists a completed match's replay.
	SaveMatch(ctx context.Context, rec replay.Replay) error

	// GetMatch fetches one match by ID. It returns (nil, nil) if unknown.
	GetMatch(ctx context.Context, matchID string) (*replay.Replay, error)

	// GetRecentMatches returns the most recently completed matches, newest
	// first, bounded by limit.
	GetRecentMatches(ctx context.Context, limit int) ([]*replay.Replay, error)

	// GetBotMatches returns a bot's match history, newest first, bounded by
	// limit.
	GetBotMatches(ctx context.Context, botID string, limit int) ([]*replay.Replay, error)
}
