package log

import (
	"testing"
	"time"

	"voxelportals.ai/internal/sim/world"
)

func TestEventLoggerRoundTripAcrossRotation(t *testing.T) {
	dir := t.TempDir()
	l := NewEventLogger(dir)
	clock := time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC)
	l.w.now = func() time.Time { return clock }

	to := [3]int{-2, 64, 0}
	events := []world.Event{
		{Tick: 1, Type: world.EventTravelStart, PairID: "P1", Dimension: "END"},
		{Tick: 200, Type: world.EventReposition, PairID: "P1", Dimension: "END", To: &to},
	}
	if err := l.WriteEvent(events[0]); err != nil {
		t.Fatalf("WriteEvent: %v", err)
	}
	clock = clock.Add(2 * time.Minute)
	if err := l.WriteEvent(events[1]); err != nil {
		t.Fatalf("WriteEvent: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Reopening the same hour appends a second zstd frame to the file.
	l2 := NewEventLogger(dir)
	l2.w.now = func() time.Time { return clock }
	if err := l2.WriteEvent(world.Event{Tick: 201, Type: world.EventTravelEnd, PairID: "P1", Dimension: "END"}); err != nil {
		t.Fatalf("WriteEvent: %v", err)
	}
	if err := l2.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got, err := ReadEvents(dir)
	if err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("events=%d want 3", len(got))
	}
	if got[0].Tick != 1 || got[1].Tick != 200 || got[2].Tick != 201 {
		t.Fatalf("order=%d,%d,%d", got[0].Tick, got[1].Tick, got[2].Tick)
	}
	if got[1].To == nil || *got[1].To != to {
		t.Fatalf("to=%v", got[1].To)
	}
}
