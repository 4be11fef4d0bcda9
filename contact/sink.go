package contact

import (
	"cmp"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/oomph-ac/contactsim/oerror"
	"github.com/samber/lo"
	"github.com/sasha-s/go-deadlock"
	"go.uber.org/atomic"
)

// Sink accumulates the contact points reported during a single step. Clear must be called once before
// every step is issued. Record and OnContact may be called concurrently from any number of
// goroutines; points tagged with a step other than the one the sink was last cleared for are rejected.
// Events are read back ordered by pair, with the points of a pair in the order they were reported, no
// matter which goroutine delivered them first.
type Sink struct {
	maxPerStep int

	mu     deadlock.Mutex
	step   uint64
	events []Event
	// spare is the storage of the previous step, reused on the next Clear so that steady state
	// stepping does not allocate.
	spare []Event
	// sorted is false if events were recorded since the last time they were ordered.
	sorted bool

	dropped atomic.Int64
	leaked  atomic.Int64
}

// NewSink returns a new sink. If maxPerStep is larger than zero, points recorded above that amount in a
// single step are dropped and counted. Which points are dropped depends on the order they arrive in.
func NewSink(maxPerStep int) *Sink {
	return &Sink{maxPerStep: max(0, maxPerStep)}
}

// Clear discards every event and prepares the sink for the step passed.
func (s *Sink) Clear(step uint64) {
	s.mu.Lock()
	s.events, s.spare = s.spare[:0], s.events[:0]
	s.step = step
	s.sorted = true
	s.mu.Unlock()
}

// Step returns the step the sink was last cleared for.
func (s *Sink) Step() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// Record records a contact point with its impulse for the step passed.
func (s *Sink) Record(step uint64, position, impulse mgl32.Vec3) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record(Event{Step: step, Position: position, Impulse: impulse})
}

// OnContact records every contact point in the batch passed.
func (s *Sink) OnContact(b Batch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, pair := range b.Pairs {
		for _, point := range pair.Points {
			_ = s.record(Event{Step: b.Step, A: pair.A, B: pair.B, Position: point.Position, Impulse: point.Impulse, Separation: point.Separation})
		}
	}
}

// record appends an event. The mutex must be held.
func (s *Sink) record(ev Event) error {
	if ev.Step != s.step {
		s.leaked.Inc()
		return oerror.New(oerror.ErrStepProtocol, "contact for step %d recorded while collecting step %d", ev.Step, s.step)
	}
	if s.maxPerStep > 0 && len(s.events) >= s.maxPerStep {
		s.dropped.Inc()
		return nil
	}
	s.events = append(s.events, ev)
	s.sorted = false
	return nil
}

// Len returns the amount of events recorded since the last clear.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// Events returns a copy of the events recorded since the last clear.
func (s *Sink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.sorted {
		// Stable, so the points of a pair, which arrive in a single batch, keep their order.
		slices.SortStableFunc(s.events, func(a, b Event) int {
			return cmp.Or(cmp.Compare(a.A, b.A), cmp.Compare(a.B, b.B))
		})
		s.sorted = true
	}
	events := make([]Event, len(s.events))
	copy(events, s.events)
	return events
}

// Impulses returns the impulses of the events recorded since the last clear.
func (s *Sink) Impulses() []mgl32.Vec3 {
	return lo.Map(s.Events(), func(ev Event, _ int) mgl32.Vec3 {
		return ev.Impulse
	})
}

// Positions returns the positions of the events recorded since the last clear.
func (s *Sink) Positions() []mgl32.Vec3 {
	return lo.Map(s.Events(), func(ev Event, _ int) mgl32.Vec3 {
		return ev.Position
	})
}

// Dropped returns the amount of events dropped because of the per-step limit over the lifetime of
// the sink.
func (s *Sink) Dropped() int64 {
	return s.dropped.Load()
}

// Leaked returns the amount of events rejected because they were tagged with a stale step.
func (s *Sink) Leaked() int64 {
	return s.leaked.Load()
}
