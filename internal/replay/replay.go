// Package replay captures the per-frame history of a match so that it can
// be persisted and later reconstructed, independent of the simulation that
// produced it.
package replay

import (
	"time"

	"arena/internal/domain"
)

// SchemaVersion is bumped whenever the Frame/Replay shape changes in a way
// that would break an older consumer.
const SchemaVersion = 1

// Frame is one immutable snapshot of a match at a given tick.
type Frame struct {
	FrameNumber int64           `json:"frameNumber"`
	Timestamp   time.Time       `json:"timestamp"`
	Snapshot    domain.Simulation `json:"snapshot"`
	Events      []domain.Event  `json:"events"`
}

// Replay is the ordered record of a completed match.
type Replay struct {
	MatchID       string    `json:"matchId"`
	Player1BotID  string    `json:"player1BotId"`
	Player2BotID  string    `json:"player2BotId"`
	StartedAt     time.Time `json:"startedAt"`
	EndedAt       time.Time `json:"endedAt"`
	Duration      time.Duration `json:"duration"`
	Winner        *domain.PlayerSlot `json:"winner"`
	FinalP1Rounds int       `json:"finalP1Rounds"`
	FinalP2Rounds int       `json:"finalP2Rounds"`
	FrameCount    int       `json:"frameCount"`
	Frames        []Frame   `json:"frames"`
	KeyFrames     []int     `json:"keyFrames"`
	TickRate      int       `json:"tickRate"`
	SchemaVersion int       `json:"schemaVersion"`
}

// Recorder accumulates frames for one in-progress match. It is owned
// exclusively by the match runtime driving that match; nothing else
// mutates it concurrently.
type Recorder struct {
	matchID      string
	p1BotID      string
	p2BotID      string
	tickRate     int
	startedAt    time.Time
	frames       []Frame
	keyFrames    []int
}

// NewRecorder starts a new recording for the given match.
func NewRecorder(matchID, p1BotID, p2BotID string, tickRate int) *Recorder {
	return &Recorder{
		matchID:   matchID,
		p1BotID:   p1BotID,
		p2BotID:   p2BotID,
		tickRate:  tickRate,
		startedAt: time.Now(),
	}
}

// Record appends one frame. A deep copy of the simulation snapshot is
// stored so that subsequent in-place mutation by the live simulation can
// never retroactively change a recorded frame.
func (r *Recorder) Record(now time.Time, frame int64, snapshot domain.Simulation, events []domain.Event) {
	snapshotCopy := snapshot // Simulation has no slices or maps; its one pointer, Winner, is only ever replaced, never mutated in place, so assignment is enough.

	eventsCopy := make([]domain.Event, len(events))
	copy(eventsCopy, events)

	r.frames = append(r.frames, Frame{
		FrameNumber: frame,
		Timestamp:   now,
		Snapshot:    snapshotCopy,
		Events:      eventsCopy,
	})

	for _, ev := range eventsCopy {
		switch ev.Kind {
		case domain.EventRoundStart, domain.EventKO, domain.EventMatchEnd:
			r.keyFrames = append(r.keyFrames, len(r.frames)-1)
		}
	}
}

// Finalize produces the immutable Replay record. It must be called exactly
// once, after the match has reached its terminal state.
func (r *Recorder) Finalize(winner *domain.PlayerSlot, finalP1Rounds, finalP2Rounds int) Replay {
	endedAt := time.Now()
	return Replay{
		MatchID:       r.matchID,
		Player1BotID:  r.p1BotID,
		Player2BotID:  r.p2BotID,
		StartedAt:     r.startedAt,
		EndedAt:       endedAt,
		Duration:      endedAt.Sub(r.startedAt),
		Winner:        winner,
		FinalP1Rounds: finalP1Rounds,
		FinalP2Rounds: finalP2Rounds,
		FrameCount:    len(r.frames),
		Frames:        r.frames,
		KeyFrames:     r.keyFrames,
		TickRate:      r.tickRate,
		SchemaVersion: SchemaVersion,
	}
}
