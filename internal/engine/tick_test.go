package engine

import (
	"context"
	"testing"
	"time"
)

func TestStepFiresCallbacks(t *testing.T) {
	e := NewEngine()
	e.TicksPerSeason = 4
	e.SaveEvery = 3

	var ticks, seasons, saves []uint64
	e.OnTick = func(tick uint64) { ticks = append(ticks, tick) }
	e.OnSeason = func(tick uint64) { seasons = append(seasons, tick) }
	e.OnSave = func(tick uint64) { saves = append(saves, tick) }

	for i := 0; i < 8; i++ {
		e.Step()
	}

	if len(ticks) != 8 || ticks[7] != 8 {
		t.Fatalf("ticks = %v", ticks)
	}
	if len(seasons) != 2 || seasons[0] != 4 || seasons[1] != 8 {
		t.Fatalf("seasons = %v", seasons)
	}
	if len(saves) != 2 || saves[0] != 3 || saves[1] != 6 {
		t.Fatalf("saves = %v", saves)
	}
}

func TestSetTickResumes(t *testing.T) {
	e := NewEngine()
	e.SetTick(100)
	e.Step()
	if e.Tick() != 101 {
		t.Fatalf("Tick = %d, want 101", e.Tick())
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	e := NewEngine()
	e.Interval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	ticked := make(chan struct{}, 1)
	e.OnTick = func(uint64) {
		select {
		case ticked <- struct{}{}:
		default:
		}
	}

	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()

	select {
	case <-ticked:
	case <-time.After(2 * time.Second):
		t.Fatal("engine never ticked")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestPausedEngineDoesNotTick(t *testing.T) {
	e := NewEngine()
	e.SetSpeed(0)
	e.OnTick = func(uint64) { t.Error("paused engine ticked") }

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	e.Run(ctx)
	if e.Tick() != 0 {
		t.Fatalf("Tick = %d", e.Tick())
	}
}
