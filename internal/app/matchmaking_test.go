package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"arena/internal/log"
)

type recordingCreator struct {
	mu    sync.Mutex
	pairs [][2]string
	next  int
}

func (c *recordingCreator) CreateMatch(ctx context.Context, p1, p2 string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pairs = append(c.pairs, [2]string{p1, p2})
	c.next++
	return "match-" + string(rune('0'+c.next)), nil
}

func TestMatchmakerPairsAdjacentByRating(t *testing.T) {
	creator := &recordingCreator{}
	outbound := newFakeOutbound()
	q := NewMatchmaker(time.Hour, func(string) bool { return false }, creator, outbound, log.New())

	if err := q.Join("A", "A", 1500); err != nil {
		t.Fatalf("join A: %v", err)
	}
	if err := q.Join("B", "B", 1600); err != nil {
		t.Fatalf("join B: %v", err)
	}
	if err := q.Join("C", "C", 1000); err != nil {
		t.Fatalf("join C: %v", err)
	}
	if err := q.Join("D", "D", 1400); err != nil {
		t.Fatalf("join D: %v", err)
	}

	q.pair(context.Background())

	creator.mu.Lock()
	defer creator.mu.Unlock()
	if len(creator.pairs) != 2 {
		t.Fatalf("expected 2 matches created, got %d", len(creator.pairs))
	}
	if creator.pairs[0] != [2]string{"C", "D"} {
		t.Fatalf("expected first pair (C,D), got %v", creator.pairs[0])
	}
	if creator.pairs[1] != [2]string{"A", "B"} {
		t.Fatalf("expected second pair (A,B), got %v", creator.pairs[1])
	}
	if q.Size() != 0 {
		t.Fatalf("expected queue drained, got size %d", q.Size())
	}
}

func TestMatchmakerRejectsDuplicateJoin(t *testing.T) {
	q := NewMatchmaker(time.Hour, func(string) bool { return false }, &recordingCreator{}, newFakeOutbound(), log.New())
	if err := q.Join("A", "A", 1000); err != nil {
		t.Fatalf("first join: %v", err)
	}
	if err := q.Join("A", "A", 1000); err != ErrAlreadyQueued {
		t.Fatalf("expected ErrAlreadyQueued, got %v", err)
	}
}

func TestMatchmakerRejectsJoinWhileInMatch(t *testing.T) {
	q := NewMatchmaker(time.Hour, func(string) bool { return true }, &recordingCreator{}, newFakeOutbound(), log.New())
	if err := q.Join("A", "A", 1000); err != ErrAlreadyInMatch {
		t.Fatalf("expected ErrAlreadyInMatch, got %v", err)
	}
}

func TestMatchmakerLeaveIsIdempotent(t *testing.T) {
	q := NewMatchmaker(time.Hour, func(string) bool { return false }, &recordingCreator{}, newFakeOutbound(), log.New())
	q.Join("A", "A", 1000)
	q.Leave("A")
	q.Leave("A")
	if q.Size() != 0 {
		t.Fatalf("expected empty queue after repeated leave, got %d", q.Size())
	}
}

func TestMatchmakerOddQueueLeavesOneEntryWaiting(t *testing.T) {
	creator := &recordingCreator{}
	q := NewMatchmaker(time.Hour, func(string) bool { return false }, creator, newFakeOutbound(), log.New())
	q.Join("A", "A", 1000)
	q.Join("B", "B", 1100)
	q.Join("C", "C", 1200)

	q.pair(context.Background())

	if len(creator.pairs) != 1 {
		t.Fatalf("expected 1 match from 3 entries, got %d", len(creator.pairs))
	}
	if q.Size() != 1 {
		t.Fatalf("expected 1 entry left waiting, got %d", q.Size())
	}
}
