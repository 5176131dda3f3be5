package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"arena/internal/config"
	"arena/internal/domain"
	"arena/internal/log"
)

type fakeOutbound struct {
	mu            sync.Mutex
	sentToBot     map[string]int
	broadcasts    int
	dropSpectator bool
}

func newFakeOutbound() *fakeOutbound {
	return &fakeOutbound{sentToBot: map[string]int{}}
}

func (f *fakeOutbound) SendToBot(botID string, msgType string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sentToBot[botID+":"+msgType]++
}

func (f *fakeOutbound) BroadcastToSpectators(matchID string, msgType string, payload any) {
	if f.dropSpectator {
		return // simulates a spectator transport that never drains
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcasts++
}

type fakeSink struct {
	mu     sync.Mutex
	result *MatchResult
	ch     chan struct{}
}

func newFakeSink() *fakeSink {
	return &fakeSink{ch: make(chan struct{})}
}

func (f *fakeSink) OnMatchEnd(result MatchResult) {
	f.mu.Lock()
	f.result = &result
	f.mu.Unlock()
	close(f.ch)
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.TickRate = 240 // fast ticks keep the test suite quick
	return cfg
}

func TestMatchRuntimeRunsToMatchEndOnContinuousAttack(t *testing.T) {
	cfg := testConfig()
	outbound := newFakeOutbound()
	sink := newFakeSink()
	rt := NewMatchRuntime("m1", "p1", "p2", cfg, outbound, sink, log.New())
	rt.sim.WithRoundsToWin(1)
	rt.sim.Phase = domain.PhaseFighting
	rt.sim.Fighters[domain.Player1].Position.X = 300
	rt.sim.Fighters[domain.Player2].Position.X = 340

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go rt.Run(ctx)

	stop := time.After(3 * time.Second)
	for {
		rt.SubmitInput("p1", domain.Input{Right: true, Attack2: true})
		select {
		case <-sink.ch:
			if sink.result.Winner == nil || *sink.result.Winner != domain.Player1 {
				t.Fatalf("expected player1 to win, got %v", sink.result.Winner)
			}
			return
		case <-stop:
			t.Fatalf("match did not end within timeout")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestMatchRuntimeDefaultsMissingInputAndKeepsTicking(t *testing.T) {
	cfg := testConfig()
	outbound := newFakeOutbound()
	sink := newFakeSink()
	rt := NewMatchRuntime("m1", "p1", "p2", cfg, outbound, sink, log.New())
	rt.sim.Phase = domain.PhaseFighting

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	rt.Run(ctx)

	if rt.sim.Frame == 0 {
		t.Fatalf("expected the simulation to have advanced despite no input ever arriving")
	}
	select {
	case <-sink.ch:
	default:
		t.Fatalf("expected terminate() to fire the sink on context cancellation")
	}
}

func TestMatchRuntimeSpectatorDropDoesNotStallTickLoop(t *testing.T) {
	cfg := testConfig()
	outbound := newFakeOutbound()
	outbound.dropSpectator = true
	sink := newFakeSink()
	rt := NewMatchRuntime("m1", "p1", "p2", cfg, outbound, sink, log.New())
	rt.sim.Phase = domain.PhaseFighting

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	rt.Run(ctx)
	if time.Since(start) > 500*time.Millisecond {
		t.Fatalf("tick loop appears to have blocked on a non-draining spectator")
	}
	if rt.sim.Frame == 0 {
		t.Fatalf("expected ticks to proceed even with a non-draining spectator")
	}
}
