// Package engine provides the world service and the tick loop that moves
// routed units.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Engine drives the world forward one tick at a time.
type Engine struct {
	mu       sync.Mutex
	tick     uint64        // Current tick counter (monotonic, never resets)
	speed    float64       // Multiplier: 1.0 = real-time, 0 = paused
	Interval time.Duration // Base tick interval

	TicksPerSeason uint64 // Season length in ticks; 0 disables season changes
	SaveEvery      uint64 // Autosave period in ticks; 0 disables autosave

	// Callbacks, populated during setup.
	OnTick   func(tick uint64) // Every tick
	OnSeason func(tick uint64) // Every TicksPerSeason ticks
	OnSave   func(tick uint64) // Every SaveEvery ticks
}

// NewEngine creates an engine with default settings.
func NewEngine() *Engine {
	return &Engine{
		speed:          1.0,
		Interval:       500 * time.Millisecond,
		TicksPerSeason: 1200,
		SaveEvery:      120,
	}
}

// Tick returns the current tick.
func (e *Engine) Tick() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tick
}

// SetTick resumes counting from t.
func (e *Engine) SetTick(t uint64) {
	e.mu.Lock()
	e.tick = t
	e.mu.Unlock()
}

// Speed returns the current speed multiplier.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// SetSpeed changes the speed multiplier. Zero pauses.
func (e *Engine) SetSpeed(s float64) {
	e.mu.Lock()
	e.speed = s
	e.mu.Unlock()
}

// Run drives ticks until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	slog.Info("engine started", "tick", e.Tick(), "speed", e.Speed())

	for {
		speed := e.Speed()
		wait := 100 * time.Millisecond // Paused: check again shortly
		if speed > 0 {
			start := time.Now()
			e.Step()
			wait = time.Duration(float64(e.Interval)/speed) - time.Since(start)
		}

		select {
		case <-ctx.Done():
			slog.Info("engine stopped", "tick", e.Tick())
			return
		case <-time.After(max(wait, 0)):
		}
	}
}

// Step advances by one tick and fires the callbacks due on it.
func (e *Engine) Step() {
	e.mu.Lock()
	e.tick++
	tick := e.tick
	e.mu.Unlock()

	if e.OnTick != nil {
		e.OnTick(tick)
	}
	if e.TicksPerSeason > 0 && tick%e.TicksPerSeason == 0 && e.OnSeason != nil {
		e.OnSeason(tick)
	}
	if e.SaveEvery > 0 && tick%e.SaveEvery == 0 && e.OnSave != nil {
		e.OnSave(tick)
	}
}
