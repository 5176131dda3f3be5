package app

import (
	"context"

	"arena/internal/domain"
	"arena/internal/replay"
)

// Outbound is the subset of the connection registry a match runtime needs:
// addressed delivery to a bot and best-effort fan-out to a match's
// spectators. Defined here (the consumer side) so that the match runtime
// depends only on this interface rather than on transport.Registry;
// transport.Registry implements this interface structurally.
type Outbound interface {
	SendToBot(botID string, msgType string, payload any)
	BroadcastToSpectators(matchID string, msgType string, payload any)
}

// MatchResult is what a match runtime hands to whoever is waiting on its
// outcome: the controller for persistence/rating, the tournament manager
// for bracket advancement.
type MatchResult struct {
	MatchID  string
	Player1  string
	Player2  string
	Winner   *domain.PlayerSlot
	Replay   replay.Replay
}

// MatchEndSink receives exactly one notification per match, once its
// replay has been finalized and both bots notified. Explicit interface
// type in place of the source's mutable setter-injected callback (see
// the redesign notes on dynamic callback wiring).
type MatchEndSink interface {
	OnMatchEnd(result MatchResult)
}

// MatchEndSinkFunc adapts a plain function to MatchEndSink.
type MatchEndSinkFunc func(result MatchResult)

func (f MatchEndSinkFunc) OnMatchEnd(result MatchResult) { f(result) }

// MatchCreator is the "create a match between these two bots" capability
// the matchmaking queue and the tournament manager both depend on,
// supplied by the controller. Explicit interface in place of the source's
// injected create-match callback.
type MatchCreator interface {
	CreateMatch(ctx context.Context, player1, player2 string) (matchID string, err error)
}

// MatchCreatorFunc adapts a plain function to MatchCreator.
type MatchCreatorFunc func(ctx context.Context, player1, player2 string) (string, error)

func (f MatchCreatorFunc) CreateMatch(ctx context.Context, player1, player2 string) (string, error) {
	return f(ctx, player1, player2)
}
