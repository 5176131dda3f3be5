package app

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"arena/internal/config"
	"arena/internal/domain"
	"arena/internal/log"
	"arena/internal/ports"
	"arena/internal/rating"
	"arena/internal/transport"
)

// Controller wires every subsystem together: it registers dispatch
// handlers for each wire message type, owns the live-match table, and is
// the single point where a match's end fans out into persistence, rating,
// and tournament advancement. Grounded on the teacher's InitModule, which
// plays the identical role of binding wire-level names to handler
// functions — generalized from "register RPC strings with Nakama's
// initializer" to "register message types with our own dispatcher."
type Controller struct {
	cfg *config.Config
	log log.Logger

	registry *transport.Registry
	auth     *transport.Authenticator

	identities ports.BotIdentityStore
	histories  ports.MatchHistoryStore
	prizePool  ports.PrizePoolPort

	matchmaker  *Matchmaker
	tournaments *TournamentManager

	mu      sync.Mutex
	matches map[string]*MatchRuntime // matchID -> runtime
	byBot   map[string]string        // botID -> matchID, for in-match checks and INPUT routing

	rootCtx context.Context
}

// NewController wires a controller from its collaborators. rootCtx governs
// every match runtime and the matchmaking loop; cancelling it begins
// graceful shutdown.
func NewController(rootCtx context.Context, cfg *config.Config, registry *transport.Registry, auth *transport.Authenticator, identities ports.BotIdentityStore, histories ports.MatchHistoryStore, prizePool ports.PrizePoolPort, logger log.Logger) *Controller {
	c := &Controller{
		cfg:        cfg,
		log:        logger,
		registry:   registry,
		auth:       auth,
		identities: identities,
		histories:  histories,
		prizePool:  prizePool,
		matches:    make(map[string]*MatchRuntime),
		byBot:      make(map[string]string),
		rootCtx:    rootCtx,
	}
	c.matchmaker = NewMatchmaker(time.Duration(cfg.MatchmakingIntervalMs)*time.Millisecond, c.isBotInMatch, MatchCreatorFunc(c.createMatch), registry, logger.With("subsystem", "matchmaking"))
	c.tournaments = NewTournamentManager(MatchCreatorFunc(c.createMatch), TournamentEndSinkFunc(c.onTournamentEnd))
	return c
}

// Matchmaker exposes the wired matchmaking queue for main to Run.
func (c *Controller) Matchmaker() *Matchmaker { return c.matchmaker }

// Tournaments exposes the wired tournament manager, e.g. for GET_BRACKET.
func (c *Controller) Tournaments() *TournamentManager { return c.tournaments }

func (c *Controller) isBotInMatch(botID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.byBot[botID]
	return ok
}

// createMatch implements MatchCreator for both the matchmaker and the
// tournament manager.
func (c *Controller) createMatch(ctx context.Context, player1, player2 string) (string, error) {
	matchID := uuid.NewString()
	rt := NewMatchRuntime(matchID, player1, player2, c.cfg, c.registry, MatchEndSinkFunc(c.onMatchEnd), c.log.With("match", matchID))

	c.mu.Lock()
	c.matches[matchID] = rt
	c.byBot[player1] = matchID
	c.byBot[player2] = matchID
	c.mu.Unlock()

	go rt.Run(c.rootCtx)
	return matchID, nil
}

// onMatchEnd is the MatchEndSink invoked exactly once per match. It
// persists the record, updates ratings when there is a clear winner, and
// forwards the result to the tournament manager if the match belonged to
// one.
func (c *Controller) onMatchEnd(result MatchResult) {
	c.mu.Lock()
	delete(c.matches, result.MatchID)
	delete(c.byBot, result.Player1)
	delete(c.byBot, result.Player2)
	c.mu.Unlock()

	ctx := context.Background()
	if c.histories != nil {
		if err := c.histories.SaveMatch(ctx, result.Replay); err != nil {
			c.log.Error("failed to save match %s: %v", result.MatchID, err)
		}
	}

	// Rating is applied only when there is a clear winner — the repo
	// does not apply rating on a draw, per the rating updater's design
	// note.
	if result.Winner != nil && c.identities != nil {
		winnerID, loserID := result.Player1, result.Player2
		if *result.Winner == domain.Player2 {
			winnerID, loserID = result.Player2, result.Player1
		}
		c.applyRating(ctx, winnerID, loserID)
	}

	c.tournaments.ReportResult(ctx, result.MatchID, winnerOrEmpty(result))
}

func winnerOrEmpty(result MatchResult) string {
	if result.Winner == nil {
		return ""
	}
	if *result.Winner == domain.Player1 {
		return result.Player1
	}
	return result.Player2
}

func (c *Controller) applyRating(ctx context.Context, winnerID, loserID string) {
	winner, err := c.identities.GetByID(ctx, winnerID)
	if err != nil || winner == nil {
		return
	}
	loser, err := c.identities.GetByID(ctx, loserID)
	if err != nil || loser == nil {
		return
	}
	newWinner, newLoser := rating.Update(winner.Rating, loser.Rating, 1)
	_ = c.identities.UpdateRating(ctx, winnerID, newWinner)
	_ = c.identities.UpdateRating(ctx, loserID, newLoser)
}

func (c *Controller) onTournamentEnd(result TournamentEndResult) {
	c.registry.BroadcastToSpectators(result.TournamentID, transport.MsgBracket, result)
	for botID := range result.Placements {
		c.registry.SendToBot(botID, transport.MsgBracket, result)
	}
	c.payoutPrizes(context.Background(), result)
}

// collectBuyIn debits a joining bot's owner wallet for the tournament's
// buy-in. A nil prizePool, or a zero buy-in, is a no-op.
func (c *Controller) collectBuyIn(ctx context.Context, tournamentID, botID string) error {
	if c.prizePool == nil {
		return nil
	}
	tour, ok := c.tournaments.Get(tournamentID)
	if !ok || tour.BuyIn <= 0 {
		return nil
	}
	identity, err := c.identities.GetByID(ctx, botID)
	if err != nil || identity == nil {
		return err
	}
	return c.prizePool.UpdateBalances(ctx, []ports.WalletUpdate{{
		OwnerID: identity.OwnerID,
		Amount:  -tour.BuyIn,
		Metadata: map[string]interface{}{
			"tournamentId": tournamentID,
			"kind":         "buy_in",
		},
	}})
}

// payoutPrizes credits each placement's share of the prize pool to its
// bot's owner wallet, per result.PrizeDistribution (index 0 = 1st place,
// and so on). Placements beyond the distribution's length receive nothing.
// A nil prizePool (no wallet backend configured) is a no-op.
func (c *Controller) payoutPrizes(ctx context.Context, result TournamentEndResult) {
	if c.prizePool == nil || c.identities == nil {
		return
	}
	var updates []ports.WalletUpdate
	for botID, placement := range result.Placements {
		idx := placement - 1
		if idx < 0 || idx >= len(result.PrizeDistribution) {
			continue
		}
		identity, err := c.identities.GetByID(ctx, botID)
		if err != nil || identity == nil {
			continue
		}
		share := result.PrizeDistribution[idx] / 100
		amount := int64(share * float64(result.PrizePool))
		if amount == 0 {
			continue
		}
		updates = append(updates, ports.WalletUpdate{
			OwnerID: identity.OwnerID,
			Amount:  amount,
			Metadata: map[string]interface{}{
				"tournamentId": result.TournamentID,
				"placement":    placement,
			},
		})
	}
	if len(updates) == 0 {
		return
	}
	if err := c.prizePool.UpdateBalances(ctx, updates); err != nil {
		c.log.Error("failed to pay out tournament %s: %v", result.TournamentID, err)
	}
}
