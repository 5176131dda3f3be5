package app

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"

	"github.com/google/uuid"
)

// ErrInvalidPrizeSplit is returned by Create when the prize
// distribution does not sum to 100 (within tolerance).
var ErrInvalidPrizeSplit = errors.New("prize distribution must sum to 100")

// ErrInvalidBracketSize is returned when bracketSize is not 8 or 16.
var ErrInvalidBracketSize = errors.New("bracket size must be 8 or 16")

// ErrTournamentNotFound is returned when a tournament ID is unknown.
var ErrTournamentNotFound = errors.New("tournament not found")

// ErrTournamentNotOpen is returned by Join/Start when the tournament is
// not in the registration status.
var ErrTournamentNotOpen = errors.New("tournament is not open for this operation")

// ErrAlreadyRegistered is returned by Join for a duplicate bot.
var ErrAlreadyRegistered = errors.New("bot already registered in this tournament")

// ErrBracketFull is returned by Join once the bracket size is reached.
var ErrBracketFull = errors.New("tournament bracket is full")

const prizeSplitTolerance = 0.01

// TournamentStatus is the lifecycle stage of a tournament.
type TournamentStatus string

const (
	TournamentRegistration TournamentStatus = "registration"
	TournamentInProgress   TournamentStatus = "in_progress"
	TournamentCompleted    TournamentStatus = "completed"
	TournamentCancelled    TournamentStatus = "cancelled"
)

// BracketSlot is one pairing position within a bracket round.
type BracketSlot struct {
	MatchID   *string
	Bot1      *string
	Bot2      *string
	Winner    *string
	SlotIndex int
}

type slotRef struct {
	round int
	slot  int
}

// Tournament is a single-elimination bracket and its bookkeeping.
type Tournament struct {
	ID                 string
	Name               string
	Format             string
	BracketSize        int
	BuyIn              int64
	PrizeDistribution  []float64
	Status             TournamentStatus
	Participants       []string
	Bracket            [][]BracketSlot
	CurrentRound       int
	Placements         map[string]int

	mu            sync.Mutex
	activeMatches map[string]slotRef
	registerMatch func(matchID string)
}

// TournamentEndResult is delivered to the end-of-tournament sink exactly
// once, when a bracket's final slot resolves.
type TournamentEndResult struct {
	TournamentID      string
	Placements        map[string]int
	PrizePool         int64
	PrizeDistribution []float64
}

// TournamentEndSink receives the one notification fired when a tournament
// completes. Explicit interface type in place of the source's mutable
// end-of-tournament callback.
type TournamentEndSink interface {
	OnTournamentEnd(result TournamentEndResult)
}

// TournamentEndSinkFunc adapts a plain function to TournamentEndSink.
type TournamentEndSinkFunc func(result TournamentEndResult)

func (f TournamentEndSinkFunc) OnTournamentEnd(result TournamentEndResult) { f(result) }

// TournamentManager owns every tournament and dispatches match creation
// and advancement. Not present in the teacher; grounded structurally on
// the domain package's "hold state, mutate under one critical section,
// return events" shape and on bracket/round/slot precedent from the wider
// retrieval pack (see SPEC_FULL.md).
type TournamentManager struct {
	mu          sync.Mutex
	tournaments map[string]*Tournament
	matchOwner  map[string]string // matchID -> tournamentID

	creator MatchCreator
	sink    TournamentEndSink
}

// NewTournamentManager creates an empty manager.
func NewTournamentManager(creator MatchCreator, sink TournamentEndSink) *TournamentManager {
	return &TournamentManager{
		tournaments: map[string]*Tournament{},
		matchOwner:  map[string]string{},
		creator:     creator,
		sink:        sink,
	}
}

// Create validates and registers a new tournament in the registration
// status.
func (m *TournamentManager) Create(name string, bracketSize int, buyIn int64, prizeDistribution []float64) (*Tournament, error) {
	if bracketSize != 8 && bracketSize != 16 {
		return nil, ErrInvalidBracketSize
	}
	sum := 0.0
	for _, p := range prizeDistribution {
		sum += p
	}
	if math.Abs(sum-100) > prizeSplitTolerance {
		return nil, ErrInvalidPrizeSplit
	}

	t := &Tournament{
		ID:                uuid.NewString(),
		Name:              name,
		Format:            "single_elimination",
		BracketSize:       bracketSize,
		BuyIn:             buyIn,
		PrizeDistribution: prizeDistribution,
		Status:            TournamentRegistration,
		Placements:        map[string]int{},
		activeMatches:     map[string]slotRef{},
	}

	m.mu.Lock()
	t.registerMatch = func(matchID string) {
		m.mu.Lock()
		m.matchOwner[matchID] = t.ID
		m.mu.Unlock()
	}
	m.tournaments[t.ID] = t
	m.mu.Unlock()

	return t, nil
}

// Get looks up a tournament by ID.
func (m *TournamentManager) Get(tournamentID string) (*Tournament, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tournaments[tournamentID]
	return t, ok
}

// List returns every known tournament.
func (m *TournamentManager) List() []*Tournament {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Tournament, 0, len(m.tournaments))
	for _, t := range m.tournaments {
		out = append(out, t)
	}
	return out
}

// Join registers a bot for a tournament still in registration.
func (m *TournamentManager) Join(tournamentID, botID string) error {
	t, ok := m.Get(tournamentID)
	if !ok {
		return ErrTournamentNotFound
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Status != TournamentRegistration {
		return ErrTournamentNotOpen
	}
	if len(t.Participants) >= t.BracketSize {
		return ErrBracketFull
	}
	for _, p := range t.Participants {
		if p == botID {
			return ErrAlreadyRegistered
		}
	}
	t.Participants = append(t.Participants, botID)
	return nil
}

// Cancel marks a non-terminal tournament cancelled and drops its active
// matches from the index. Per §9's open question, matches already in
// flight are not forcibly stopped here.
func (m *TournamentManager) Cancel(tournamentID string) error {
	t, ok := m.Get(tournamentID)
	if !ok {
		return ErrTournamentNotFound
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Status == TournamentCompleted || t.Status == TournamentCancelled {
		return ErrTournamentNotOpen
	}
	t.Status = TournamentCancelled

	m.mu.Lock()
	for matchID := range t.activeMatches {
		delete(m.matchOwner, matchID)
	}
	m.mu.Unlock()
	t.activeMatches = map[string]slotRef{}
	return nil
}

func buildBracket(bracketSize int) [][]BracketSlot {
	totalRounds := int(math.Log2(float64(bracketSize)))
	bracket := make([][]BracketSlot, totalRounds)
	slots := bracketSize
	for r := 0; r < totalRounds; r++ {
		slots /= 2
		round := make([]BracketSlot, slots)
		for i := range round {
			round[i].SlotIndex = i
		}
		bracket[r] = round
	}
	return bracket
}

// resolveBye auto-advances a slot holding exactly one non-null entrant.
func resolveBye(slot *BracketSlot) {
	if slot.Winner != nil {
		return
	}
	if slot.Bot1 != nil && slot.Bot2 == nil {
		w := *slot.Bot1
		slot.Winner = &w
	} else if slot.Bot2 != nil && slot.Bot1 == nil {
		w := *slot.Bot2
		slot.Winner = &w
	}
}

func roundFullyResolved(round []BracketSlot) bool {
	for i := range round {
		if round[i].Winner == nil {
			return false
		}
	}
	return true
}

// Start transitions a tournament to in_progress, generates its bracket,
// and kicks off round-0 matches.
func (m *TournamentManager) Start(ctx context.Context, tournamentID string) error {
	t, ok := m.Get(tournamentID)
	if !ok {
		return ErrTournamentNotFound
	}
	t.mu.Lock()
	if t.Status != TournamentRegistration {
		t.mu.Unlock()
		return ErrTournamentNotOpen
	}
	t.Status = TournamentInProgress

	participants := make([]string, len(t.Participants))
	copy(participants, t.Participants)
	rand.Shuffle(len(participants), func(i, j int) {
		participants[i], participants[j] = participants[j], participants[i]
	})

	padded := make([]*string, t.BracketSize)
	for i := range padded {
		if i < len(participants) {
			p := participants[i]
			padded[i] = &p
		}
	}

	t.Bracket = buildBracket(t.BracketSize)
	for i := range t.Bracket[0] {
		t.Bracket[0][i].Bot1 = padded[2*i]
		t.Bracket[0][i].Bot2 = padded[2*i+1]
		resolveBye(&t.Bracket[0][i])
	}
	t.CurrentRound = 0
	t.mu.Unlock()

	return m.advanceOrStart(ctx, t)
}

// advanceOrStart cascades fully-bye-resolved rounds forward, completing
// the tournament if even the final round resolves purely by byes,
// otherwise starting real matches for the first round with unplayed
// pairings.
func (m *TournamentManager) advanceOrStart(ctx context.Context, t *Tournament) error {
	for {
		t.mu.Lock()
		round := t.CurrentRound
		resolved := roundFullyResolved(t.Bracket[round])
		isFinal := round == len(t.Bracket)-1
		if resolved && isFinal {
			result := t.finishLocked()
			t.mu.Unlock()
			m.sink.OnTournamentEnd(result)
			return nil
		}
		if resolved {
			t.populateNextRoundLocked()
			t.mu.Unlock()
			continue
		}

		pairs := t.pendingMatchPairsLocked(round)
		t.mu.Unlock()

		for _, p := range pairs {
			matchID, err := m.creator.CreateMatch(ctx, p.bot1, p.bot2)
			if err != nil {
				continue
			}
			t.mu.Lock()
			t.Bracket[round][p.slot].MatchID = &matchID
			t.activeMatches[matchID] = slotRef{round: round, slot: p.slot}
			t.mu.Unlock()
			t.registerMatch(matchID)
		}
		return nil
	}
}

type pendingPair struct {
	slot int
	bot1 string
	bot2 string
}

func (t *Tournament) pendingMatchPairsLocked(round int) []pendingPair {
	var pairs []pendingPair
	for i := range t.Bracket[round] {
		slot := &t.Bracket[round][i]
		if slot.Bot1 != nil && slot.Bot2 != nil && slot.Winner == nil && slot.MatchID == nil {
			pairs = append(pairs, pendingPair{slot: i, bot1: *slot.Bot1, bot2: *slot.Bot2})
		}
	}
	return pairs
}

func (t *Tournament) populateNextRoundLocked() {
	next := t.CurrentRound + 1
	for i := range t.Bracket[next] {
		t.Bracket[next][i].Bot1 = t.Bracket[t.CurrentRound][2*i].Winner
		t.Bracket[next][i].Bot2 = t.Bracket[t.CurrentRound][2*i+1].Winner
		resolveBye(&t.Bracket[next][i])
	}
	t.CurrentRound = next
}

// finishLocked marks the tournament completed and builds its end result.
// Caller must hold t.mu.
func (t *Tournament) finishLocked() TournamentEndResult {
	finalRound := len(t.Bracket) - 1
	if w := t.Bracket[finalRound][0].Winner; w != nil {
		t.Placements[*w] = 1
	}
	t.Status = TournamentCompleted

	return TournamentEndResult{
		TournamentID:      t.ID,
		Placements:        copyPlacements(t.Placements),
		PrizePool:         t.BuyIn * int64(len(t.Participants)),
		PrizeDistribution: t.PrizeDistribution,
	}
}

func copyPlacements(p map[string]int) map[string]int {
	out := make(map[string]int, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// ReportResult advances the bracket on a match-end callback. It is
// idempotent: reporting a result for a slot that has already resolved
// (or a matchID the manager no longer tracks) is a no-op.
func (m *TournamentManager) ReportResult(ctx context.Context, matchID, winnerID string) {
	m.mu.Lock()
	tid, ok := m.matchOwner[matchID]
	if ok {
		delete(m.matchOwner, matchID)
	}
	var t *Tournament
	if ok {
		t = m.tournaments[tid]
	}
	m.mu.Unlock()
	if t == nil {
		return
	}

	t.mu.Lock()
	ref, stillActive := t.activeMatches[matchID]
	if !stillActive {
		t.mu.Unlock()
		return
	}
	delete(t.activeMatches, matchID)

	slot := &t.Bracket[ref.round][ref.slot]
	if slot.Winner != nil {
		t.mu.Unlock()
		return
	}
	w := winnerID
	slot.Winner = &w

	var loser *string
	if slot.Bot1 != nil && *slot.Bot1 == winnerID {
		loser = slot.Bot2
	} else {
		loser = slot.Bot1
	}
	if loser != nil {
		t.Placements[*loser] = len(t.Bracket[ref.round]) + 1
	}
	t.mu.Unlock()

	m.advanceOrStart(ctx, t)
}
