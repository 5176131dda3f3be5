package app

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"arena/internal/log"
)

// ErrAlreadyQueued is returned by Join when the bot already holds a queue
// entry.
var ErrAlreadyQueued = errors.New("bot already in matchmaking queue")

// ErrAlreadyInMatch is returned by Join when the bot is currently bound to
// a live match.
var ErrAlreadyInMatch = errors.New("bot already in a live match")

// queueEntry is one bot's place in line: its rating snapshot at join time
// and the time it joined, per spec.md's matchmaking queue entry shape.
type queueEntry struct {
	botID    string
	botName  string
	rating   int
	enqueued time.Time
}

// Matchmaker runs the rating-sorted queue and its periodic pairing pass.
// Grounded in intent on the teacher's quickmatch RPC (find-or-create a
// match for a waiting player), re-architected per SPEC_FULL.md because the
// teacher version delegates the open-match query to its host platform
// rather than owning an ordered, rating-sorted queue itself.
type Matchmaker struct {
	mu      sync.Mutex
	entries []queueEntry
	inMatch func(botID string) bool

	creator  MatchCreator
	outbound Outbound
	log      log.Logger

	interval time.Duration
}

// NewMatchmaker creates a matchmaker. inMatch reports whether a bot is
// currently bound to a live match; it is consulted by Join so a bot
// cannot queue while playing.
func NewMatchmaker(interval time.Duration, inMatch func(botID string) bool, creator MatchCreator, outbound Outbound, logger log.Logger) *Matchmaker {
	return &Matchmaker{
		entries:  nil,
		inMatch:  inMatch,
		creator:  creator,
		outbound: outbound,
		log:      logger,
		interval: interval,
	}
}

// Join enqueues a bot with its current name and rating snapshot.
func (q *Matchmaker) Join(botID, botName string, rating int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.inMatch(botID) {
		return ErrAlreadyInMatch
	}
	for _, e := range q.entries {
		if e.botID == botID {
			return ErrAlreadyQueued
		}
	}
	q.entries = append(q.entries, queueEntry{botID: botID, botName: botName, rating: rating, enqueued: time.Now()})
	return nil
}

// Leave removes a bot's queue entry by ID. It is idempotent: leaving a bot
// that isn't queued is a no-op.
func (q *Matchmaker) Leave(botID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, e := range q.entries {
		if e.botID == botID {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return
		}
	}
}

// Size reports the current queue length.
func (q *Matchmaker) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Run drives the periodic pairing pass until ctx is cancelled.
func (q *Matchmaker) Run(ctx context.Context) {
	ticker := time.NewTicker(q.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.pair(ctx)
		}
	}
}

// pair performs one pairing pass: sort by rating ascending, pop adjacent
// pairs from the front, create a match for each, and notify both bots.
func (q *Matchmaker) pair(ctx context.Context) {
	q.mu.Lock()
	if len(q.entries) < 2 {
		q.mu.Unlock()
		return
	}
	sort.SliceStable(q.entries, func(i, j int) bool {
		return q.entries[i].rating < q.entries[j].rating
	})

	var paired []queueEntry
	n := len(q.entries) - len(q.entries)%2
	paired = append(paired, q.entries[:n]...)
	q.entries = q.entries[n:]
	q.mu.Unlock()

	for i := 0; i+1 < len(paired); i += 2 {
		a, b := paired[i], paired[i+1]
		matchID, err := q.creator.CreateMatch(ctx, a.botID, b.botID)
		if err != nil {
			q.log.Warn("matchmaking: failed to create match for %s vs %s: %v", a.botID, b.botID, err)
			continue
		}
		q.outbound.SendToBot(a.botID, "MATCH_STARTING", MatchStartingPayload{
			MatchID:  matchID,
			Opponent: BotSummary{BotID: b.botID, BotName: b.botName, Rating: b.rating},
		})
		q.outbound.SendToBot(b.botID, "MATCH_STARTING", MatchStartingPayload{
			MatchID:  matchID,
			Opponent: BotSummary{BotID: a.botID, BotName: a.botName, Rating: a.rating},
		})
	}
}
