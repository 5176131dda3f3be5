package replay

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"arena/internal/domain"
)

func TestFinalizeIsIdempotentAcrossSerialization(t *testing.T) {
	sim, initEvents := domain.NewSimulation("m1", "p1", "p2")
	rec := NewRecorder("m1", "p1", "p2", 60)
	rec.Record(time.Now(), 0, *sim, initEvents)

	sim.Phase = domain.PhaseFighting
	events := domain.Tick(sim, domain.Input{Right: true}, domain.Input{}, 60)
	rec.Record(time.Now(), sim.Frame, *sim, events)

	winner := domain.Player1
	got := rec.Finalize(&winner, 1, 0)

	data, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var roundTripped Replay
	if err := json.Unmarshal(data, &roundTripped); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !reflect.DeepEqual(got, roundTripped) {
		t.Fatalf("replay did not round-trip:\nwant %+v\ngot  %+v", got, roundTripped)
	}
}

func TestKeyFramesIndexRoundStartKOAndMatchEnd(t *testing.T) {
	rec := NewRecorder("m1", "p1", "p2", 60)
	rec.Record(time.Now(), 0, domain.Simulation{}, []domain.Event{{Kind: domain.EventRoundStart}})
	rec.Record(time.Now(), 1, domain.Simulation{}, nil)
	rec.Record(time.Now(), 2, domain.Simulation{}, []domain.Event{{Kind: domain.EventKO}})

	replay := rec.Finalize(nil, 0, 0)
	if len(replay.KeyFrames) != 2 {
		t.Fatalf("expected 2 key frames, got %d (%v)", len(replay.KeyFrames), replay.KeyFrames)
	}
	if replay.KeyFrames[0] != 0 || replay.KeyFrames[1] != 2 {
		t.Fatalf("unexpected key frame indices: %v", replay.KeyFrames)
	}
}
