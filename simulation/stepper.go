package simulation

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/oomph-ac/contactsim/assert"
	"github.com/oomph-ac/contactsim/contact"
	"github.com/oomph-ac/contactsim/oerror"
	"github.com/oomph-ac/contactsim/world"
	"github.com/sirupsen/logrus"
	"github.com/zeebo/xxh3"
)

// State is the state of a Stepper.
type State uint8

const (
	// StateIdle is the state between iterations: no step is in flight.
	StateIdle State = iota
	// StateStepping is the state between the launch of a step and the return of its fetch.
	StateStepping
	// StateSettled is the state after a fetch returned, while the events of the step are reported.
	StateSettled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStepping:
		return "stepping"
	case StateSettled:
		return "settled"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// World is the world driven by a Stepper.
type World interface {
	ForceTarget
	// NextStep returns the index of the next step to be launched.
	NextStep() uint64
	// Step launches a step of dt seconds without waiting for it to complete.
	Step(dt float32) error
	// Fetch blocks until the step in flight completes.
	Fetch(ctx context.Context) error
	// Bodies returns every body in the world ordered by ID.
	Bodies() []*world.Body
}

// Observer is notified after every step with the bodies of the world and the events of the step.
// Observers must not modify the bodies or retain the events slice.
type Observer interface {
	Observe(step uint64, bodies []*world.Body, events []contact.Event)
}

// Config holds the settings of a Stepper.
type Config struct {
	// Steps is the amount of iterations Run performs.
	Steps uint64
	// TimeStep is the fixed duration of a step in seconds.
	TimeStep float32
	// FetchTimeout is the maximum time a single fetch may take. Zero disables the deadline.
	FetchTimeout time.Duration

	Scheduler *Scheduler
	// Reporter receives the events of every step that produced any. NopReporter is used if nil.
	Reporter  Reporter
	Observers []Observer

	Log *logrus.Logger
}

// New returns a stepper driving the world passed and collecting contacts in sink. The sink must be the
// contact handler of the world.
func (conf Config) New(w World, sink *contact.Sink) (*Stepper, error) {
	if w == nil || sink == nil {
		return nil, oerror.New(oerror.ErrResourceCreation, "stepper requires a world and a contact sink")
	}
	if conf.TimeStep <= 0 || math.IsNaN(float64(conf.TimeStep)) || math.IsInf(float64(conf.TimeStep), 0) {
		return nil, oerror.New(oerror.ErrResourceCreation, "invalid time step %v", conf.TimeStep)
	}
	if conf.Reporter == nil {
		conf.Reporter = NopReporter{}
	}
	if conf.Log == nil {
		conf.Log = logrus.StandardLogger()
	}
	return &Stepper{conf: conf, world: w, sink: sink, hasher: xxh3.New()}, nil
}

// Result summarises a run.
type Result struct {
	// Steps is the amount of steps completed.
	Steps uint64
	// StepsWithContacts is the amount of steps that produced at least one contact event.
	StepsWithContacts uint64
	// Contacts is the total amount of contact events.
	Contacts uint64
	// Digest is a hash of the pose of every body after every step. Two runs with equal settings
	// produce equal digests.
	Digest uint64
}

// Stepper drives a world in fixed steps: for every iteration it clears the sink, applies the forces
// due, launches the step, waits for it and reports the contacts it produced.
type Stepper struct {
	conf  Config
	world World
	sink  *contact.Sink

	state  State
	failed error
	result Result

	hasher *xxh3.Hasher
	buf    []byte
}

// State returns the current state of the stepper.
func (s *Stepper) State() State {
	return s.state
}

// Result returns the result of the iterations performed so far.
func (s *Stepper) Result() Result {
	r := s.result
	r.Digest = s.hasher.Sum64()
	return r
}

// Run performs the configured amount of iterations. It stops at the first failing step; a failed
// step cannot be retried, so the stepper cannot be used afterwards.
func (s *Stepper) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	for i := uint64(0); i < s.conf.Steps; i++ {
		if err := s.Advance(ctx, i); err != nil {
			s.conf.Log.Errorf("simulation aborted at step %d: %v", i, err)
			return s.Result(), err
		}
	}
	res := s.Result()
	s.conf.Log.WithFields(logrus.Fields{
		"steps":    res.Steps,
		"contacts": res.Contacts,
		"digest":   fmt.Sprintf("%016x", res.Digest),
		"took":     time.Since(start).Round(time.Millisecond),
	}).Info("simulation complete")
	return res, nil
}

// Advance performs a single iteration for the iteration index passed, which forces are scheduled by.
func (s *Stepper) Advance(ctx context.Context, i uint64) error {
	if s.failed != nil {
		return s.failed
	}
	assert.IsTrue(s.state == StateIdle, oerror.ErrStepProtocol, "iteration %d started in state %s", i, s.state)

	s.sink.Clear(s.world.NextStep())
	if _, err := s.conf.Scheduler.Apply(s.world, i); err != nil {
		return s.fail(fmt.Errorf("apply forces of step %d: %w", i, err))
	}
	if err := s.world.Step(s.conf.TimeStep); err != nil {
		return s.fail(fmt.Errorf("launch step %d: %w", i, err))
	}
	s.state = StateStepping

	fetchCtx, cancel := ctx, context.CancelFunc(func() {})
	if s.conf.FetchTimeout > 0 {
		fetchCtx, cancel = context.WithTimeout(ctx, s.conf.FetchTimeout)
	}
	err := s.world.Fetch(fetchCtx)
	cancel()
	if err != nil {
		// The partial contents of the sink are discarded together with the step.
		s.sink.Clear(s.sink.Step())
		return s.fail(fmt.Errorf("fetch step %d: %w", i, err))
	}
	s.state = StateSettled

	events := s.sink.Events()
	bodies := s.world.Bodies()
	s.digest(i, bodies)
	s.result.Steps++
	if len(events) > 0 {
		s.result.StepsWithContacts++
		s.result.Contacts += uint64(len(events))
		if err := s.conf.Reporter.Report(i, events); err != nil {
			s.conf.Log.Warnf("error reporting contacts of step %d: %v", i, err)
		}
	}
	for _, o := range s.conf.Observers {
		o.Observe(i, bodies, events)
	}
	s.state = StateIdle
	return nil
}

func (s *Stepper) fail(err error) error {
	s.failed = err
	return err
}

// digest writes the step index and the pose of every body into the running hash.
func (s *Stepper) digest(i uint64, bodies []*world.Body) {
	s.buf = binary.LittleEndian.AppendUint64(s.buf[:0], i)
	for _, b := range bodies {
		pose := b.Pose()
		s.buf = binary.LittleEndian.AppendUint32(s.buf, uint32(b.ID()))
		s.buf = appendVec(s.buf, pose.Position)
		s.buf = appendVec(s.buf, pose.Orientation.V)
		s.buf = binary.LittleEndian.AppendUint32(s.buf, math.Float32bits(pose.Orientation.W))
	}
	_, _ = s.hasher.Write(s.buf)
}

func appendVec(buf []byte, v mgl32.Vec3) []byte {
	for _, f := range v {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
	}
	return buf
}
