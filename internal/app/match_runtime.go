package app

import (
	"context"
	"sync"
	"time"

	"arena/internal/config"
	"arena/internal/domain"
	"arena/internal/log"
	"arena/internal/replay"
)

// MatchRuntime owns one active match: its simulation, its tick loop, and
// the pending-input map bots feed into from the dispatcher. Grounded on
// the teacher's per-match handler loop (MatchInit/MatchJoin/MatchLoop),
// generalized from a host-driven loop to one the runtime drives itself
// with its own ticker (see SPEC_FULL.md's note on re-expressing per-tick
// interval timers as a single periodic ticker per match).
type MatchRuntime struct {
	matchID string
	player1 string
	player2 string

	tickRate          int
	decisionTimeoutMs int

	sim      *domain.Simulation
	recorder *replay.Recorder

	outbound Outbound
	sink     MatchEndSink
	log      log.Logger

	mu      sync.Mutex
	pending [2]*domain.Input

	cancel  context.CancelFunc
	endOnce sync.Once
	done    chan struct{}
}

// NewMatchRuntime creates a match runtime for two bots and starts its
// round-1 simulation, but does not start the tick loop — call Run for
// that.
func NewMatchRuntime(matchID, player1, player2 string, cfg *config.Config, outbound Outbound, sink MatchEndSink, logger log.Logger) *MatchRuntime {
	sim, _ := domain.NewSimulation(matchID, player1, player2)
	return &MatchRuntime{
		matchID:           matchID,
		player1:           player1,
		player2:           player2,
		tickRate:          cfg.TickRate,
		decisionTimeoutMs: cfg.DecisionTimeoutMs,
		sim:               sim,
		recorder:          replay.NewRecorder(matchID, player1, player2, cfg.TickRate),
		outbound:          outbound,
		sink:              sink,
		log:               logger,
		done:              make(chan struct{}),
	}
}

// PlayerSlot reports which slot a bot occupies in this match, or false if
// the bot is not a participant.
func (m *MatchRuntime) PlayerSlot(botID string) (domain.PlayerSlot, bool) {
	switch botID {
	case m.player1:
		return domain.Player1, true
	case m.player2:
		return domain.Player2, true
	default:
		return 0, false
	}
}

// SubmitInput stores the latest input for a bot to be consumed by the
// next tick. Per §9's redesign of "no-input substitution by timer
// callback", there is no per-bot deadline timer here: the tick loop reads
// "is there a pending input" at the top of each tick and substitutes the
// zero-value default inline when there is none.
func (m *MatchRuntime) SubmitInput(botID string, input domain.Input) bool {
	slot, ok := m.PlayerSlot(botID)
	if !ok {
		return false
	}
	m.mu.Lock()
	m.pending[slot] = &input
	m.mu.Unlock()
	return true
}

func (m *MatchRuntime) consumePending(slot domain.PlayerSlot) domain.Input {
	m.mu.Lock()
	defer m.mu.Unlock()
	in := m.pending[slot]
	m.pending[slot] = nil
	if in == nil {
		return domain.Input{}
	}
	return *in
}

// Run drives the fixed-rate tick loop until the match reaches match_end or
// ctx is cancelled. It blocks the calling goroutine; callers should invoke
// it with `go`.
func (m *MatchRuntime) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	defer close(m.done)

	interval := time.Second / time.Duration(m.tickRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.terminate()
			return
		case now := <-ticker.C:
			m.tick(now)
			if m.sim.Phase == domain.PhaseMatchEnd {
				m.terminate()
				return
			}
		}
	}
}

// Stop requests the tick loop terminate at the next opportunity. It does
// not block until the loop has actually exited.
func (m *MatchRuntime) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
}

// Done returns a channel closed once the tick loop has exited and the
// match-end sink has been invoked.
func (m *MatchRuntime) Done() <-chan struct{} {
	return m.done
}

func (m *MatchRuntime) tick(now time.Time) {
	var p1In, p2In domain.Input
	fighting := m.sim.Phase == domain.PhaseFighting
	if fighting {
		p1In = m.consumePending(domain.Player1)
		p2In = m.consumePending(domain.Player2)
	}

	events := domain.Tick(m.sim, p1In, p2In, m.tickRate)
	m.recorder.Record(now, m.sim.Frame, *m.sim, events)

	m.outbound.BroadcastToSpectators(m.matchID, "MATCH_STATE", matchStateWire{State: *m.sim})
	m.dispatchEvents(events)

	if m.sim.Phase == domain.PhaseFighting {
		deadline := now.Add(time.Duration(m.decisionTimeoutMs) * time.Millisecond)
		m.pushObservations(deadline)
	}
}

func (m *MatchRuntime) dispatchEvents(events []domain.Event) {
	for _, ev := range events {
		switch ev.Kind {
		case domain.EventRoundStart:
			m.outbound.SendToBot(m.player1, "ROUND_START", ev.Payload)
			m.outbound.SendToBot(m.player2, "ROUND_START", ev.Payload)
			m.outbound.BroadcastToSpectators(m.matchID, "ROUND_START", ev.Payload)
		case domain.EventDamage:
			m.outbound.BroadcastToSpectators(m.matchID, "DAMAGE", damageOrKOWire{Event: ev.Payload})
		case domain.EventKO:
			m.outbound.BroadcastToSpectators(m.matchID, "KO", damageOrKOWire{Event: ev.Payload})
		case domain.EventMatchEnd:
			// Termination (finalize + MATCH_END delivery) happens once in
			// terminate(), driven by sim.Phase, not here.
		}
	}
}

func (m *MatchRuntime) pushObservations(deadline time.Time) {
	obs1 := domain.BuildObservation(m.sim, domain.Player1)
	obs1.DecisionDeadlineMs = deadline.UnixMilli()
	obs2 := domain.BuildObservation(m.sim, domain.Player2)
	obs2.DecisionDeadlineMs = deadline.UnixMilli()

	m.outbound.SendToBot(m.player1, "OBSERVATION", observationWire{Observation: obs1, RequiresResponse: true})
	m.outbound.SendToBot(m.player2, "OBSERVATION", observationWire{Observation: obs2, RequiresResponse: true})
}

// terminate finalizes the replay and notifies both bots, the spectators,
// and the match-end sink exactly once, whether the match reached
// match_end naturally or was stopped externally (graceful shutdown).
func (m *MatchRuntime) terminate() {
	m.endOnce.Do(func() {
		rep := m.recorder.Finalize(m.sim.Winner, m.sim.RoundsWon[domain.Player1], m.sim.RoundsWon[domain.Player2])

		var winnerID *string
		if m.sim.Winner != nil {
			id := m.player1
			if *m.sim.Winner == domain.Player2 {
				id = m.player2
			}
			winnerID = &id
		}

		payload := matchEndWire{
			MatchID:  m.matchID,
			WinnerID: winnerID,
			FinalScore: finalScoreWire{
				P1Rounds: m.sim.RoundsWon[domain.Player1],
				P2Rounds: m.sim.RoundsWon[domain.Player2],
			},
		}
		m.outbound.SendToBot(m.player1, "MATCH_END", payload)
		m.outbound.SendToBot(m.player2, "MATCH_END", payload)
		m.outbound.BroadcastToSpectators(m.matchID, "MATCH_END", payload)

		m.log.Info("match %s ended, winner=%v p1Rounds=%d p2Rounds=%d", m.matchID, winnerID, payload.FinalScore.P1Rounds, payload.FinalScore.P2Rounds)

		m.sink.OnMatchEnd(MatchResult{
			MatchID: m.matchID,
			Player1: m.player1,
			Player2: m.player2,
			Winner:  m.sim.Winner,
			Replay:  rep,
		})
	})
}

type matchStateWire struct {
	State domain.Simulation `json:"state"`
}

type observationWire struct {
	Observation      domain.Observation `json:"observation"`
	RequiresResponse bool               `json:"requiresResponse"`
}

type damageOrKOWire struct {
	Event any `json:"event"`
}

type finalScoreWire struct {
	P1Rounds int `json:"p1Rounds"`
	P2Rounds int `json:"p2Rounds"`
}

type matchEndWire struct {
	MatchID    string         `json:"matchId"`
	WinnerID   *string        `json:"winnerId"`
	FinalScore finalScoreWire `json:"finalScore"`
}
