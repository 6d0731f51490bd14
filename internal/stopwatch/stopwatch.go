// Package stopwatch records named timing spans.
package stopwatch

import (
	"sync"
	"time"

	"github.com/2lenet/sulu/internal/logger"
)

// Event is a named span. Duration is zero while the span is running.
type Event struct {
	Name     string        `json:"name"`
	Start    time.Time     `json:"start"`
	Duration time.Duration `json:"duration"`
	Running  bool          `json:"running"`
}

// Stopwatch collects spans in start order. Restarting a name starts a new
// span; stopping a name that is not running is a no-op.
type Stopwatch struct {
	mu     sync.Mutex
	now    func() time.Time
	events []*Event
	open   map[string]*Event
}

// New creates an empty stopwatch.
func New() *Stopwatch {
	return &Stopwatch{now: time.Now, open: make(map[string]*Event)}
}

// Start opens a span.
func (s *Stopwatch) Start(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev := &Event{Name: name, Start: s.now(), Running: true}
	s.events = append(s.events, ev)
	s.open[name] = ev
}

// Stop closes the running span with the given name.
func (s *Stopwatch) Stop(name string) {
	s.mu.Lock()
	ev, ok := s.open[name]
	if ok {
		ev.Duration = s.now().Sub(ev.Start)
		ev.Running = false
		delete(s.open, name)
	}
	s.mu.Unlock()

	if ok {
		logger.Debug("%s took %s", name, ev.Duration)
	}
}

// Events returns copies of all spans in start order.
func (s *Stopwatch) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	for i, ev := range s.events {
		out[i] = *ev
	}
	return out
}
