package engine

import (
	"github.com/talgya/hexworld/internal/world"
)

// Event categories.
const (
	CategoryPlace  = "place"
	CategoryRemove = "remove"
	CategoryMove   = "move"
	CategoryStep   = "step"
	CategorySeason = "season"
)

// Event is a notable change in the world.
type Event struct {
	Seq         uint64           `json:"seq"` // Monotonic per World
	Tick        uint64           `json:"tick"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
	Coord       *world.CubeCoord `json:"coord,omitempty"`
}

// appendLocked stamps e with the next sequence number and the current tick and
// adds it to the event log. The caller holds w.mu and stamps the event in the
// same critical section as the change it describes.
func (w *World) appendLocked(e Event) Event {
	w.eventSeq++
	e.Seq = w.eventSeq
	e.Tick = w.lastTick
	w.events = append(w.events, e)
	if len(w.events) > maxEvents {
		w.events = w.events[len(w.events)-maxEvents:]
	}
	return e
}

// unlockAndPublish releases w.mu and fans events out to subscribers.
// subMu is taken before w.mu is released, so subscribers see events in
// sequence order.
func (w *World) unlockAndPublish(events ...Event) {
	w.subMu.Lock()
	w.mu.Unlock()
	defer w.subMu.Unlock()

	for _, e := range events {
		for _, ch := range w.subs {
			select {
			case ch <- e:
			default:
				// Slow subscriber; drop rather than stall the world.
			}
		}
	}
}

// Events returns up to limit of the most recent events, oldest first.
// A limit <= 0 returns all retained events.
func (w *World) Events(limit int) []Event {
	w.mu.RLock()
	defer w.mu.RUnlock()

	start := 0
	if limit > 0 && len(w.events) > limit {
		start = len(w.events) - limit
	}
	result := make([]Event, len(w.events)-start)
	copy(result, w.events[start:])
	return result
}

// Subscribe returns a channel receiving every future event and a function
// that unsubscribes and closes it.
func (w *World) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)

	w.subMu.Lock()
	id := w.subID
	w.subID++
	w.subs[id] = ch
	w.subMu.Unlock()

	cancel := func() {
		w.subMu.Lock()
		defer w.subMu.Unlock()
		if _, ok := w.subs[id]; ok {
			delete(w.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}
