package world

import (
	"context"

	"github.com/chewxy/math32"
	"github.com/elliotchance/orderedmap/v2"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/oomph-ac/contactsim/contact"
	"github.com/oomph-ac/contactsim/filter"
	"github.com/oomph-ac/contactsim/oerror"
	"github.com/oomph-ac/contactsim/omath"
	"github.com/oomph-ac/contactsim/worker"
	"github.com/sasha-s/go-deadlock"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

// Config holds the settings of a world. The zero value of every field except Pool is replaced by a
// sensible default in New.
type Config struct {
	// Gravity is the acceleration applied to every awake dynamic body.
	Gravity mgl32.Vec3
	// Pool is the worker pool that contact generation and report delivery are distributed across.
	Pool *worker.Pool
	// Policy decides which pairs of bodies are resolved. filter.ContactReport{} is used if nil.
	Policy filter.Policy
	// Handler receives the contact reports of every step. Reports are discarded if nil.
	Handler contact.Handler
	// Material is the shared material given to bodies added without one.
	Material *Material
	// Log is the logger used by the world. logrus.StandardLogger() is used if nil.
	Log *logrus.Logger

	// SolverIterations is the amount of iterations of the impulse solver per step.
	SolverIterations int
	// ContactOffset is the distance at which shapes start generating contacts.
	ContactOffset float32
	// Slop is the penetration allowed before position correction kicks in.
	Slop float32
	// Baumgarte is the fraction of the penetration corrected per step.
	Baumgarte float32
	// BounceThreshold is the relative normal speed below which restitution is ignored.
	BounceThreshold float32

	// DisableSleeping keeps every dynamic body awake.
	DisableSleeping bool
	// SleepThreshold is the kinetic energy per unit of mass below which a body may fall asleep.
	SleepThreshold float32
	// WakeCounter is the time in seconds a body must stay below SleepThreshold before falling asleep.
	WakeCounter float32
}

// New creates a new world from the config.
func (conf Config) New() (*World, error) {
	if conf.Pool == nil {
		return nil, oerror.New(oerror.ErrResourceCreation, "world requires a worker pool")
	}
	if !omath.IsFiniteVec32(conf.Gravity) {
		return nil, oerror.New(oerror.ErrResourceCreation, "invalid gravity %v", conf.Gravity)
	}
	if conf.Policy == nil {
		conf.Policy = filter.ContactReport{}
	}
	if conf.Handler == nil {
		conf.Handler = contact.NopHandler{}
	}
	if conf.Log == nil {
		conf.Log = logrus.StandardLogger()
	}
	if conf.SolverIterations <= 0 {
		conf.SolverIterations = 8
	}
	if conf.ContactOffset <= 0 {
		conf.ContactOffset = 0.02
	}
	if conf.Slop <= 0 {
		conf.Slop = 0.005
	}
	if conf.Baumgarte <= 0 {
		conf.Baumgarte = 0.2
	}
	if conf.BounceThreshold <= 0 {
		conf.BounceThreshold = 2
	}
	if conf.SleepThreshold <= 0 {
		conf.SleepThreshold = 5e-5
	}
	if conf.WakeCounter <= 0 {
		conf.WakeCounter = 0.4
	}
	return &World{
		conf:     conf,
		bodies:   orderedmap.NewOrderedMap[BodyID, *Body](),
		touching: make(map[pairKey]filter.Flags),
		done:     make(chan error, 1),
	}, nil
}

// World holds a set of rigid bodies and simulates them in fixed steps. A step is executed in two
// phases: Step launches it and returns immediately, Fetch waits for it to complete. Exactly one step
// may be in flight at a time and the world may not be modified while it is.
type World struct {
	conf Config

	mu       deadlock.RWMutex
	bodies   *orderedmap.OrderedMap[BodyID, *Body]
	lastID   BodyID
	touching map[pairKey]filter.Flags

	released atomic.Bool

	inFlight atomic.Bool
	done     chan error
	steps    atomic.Uint64
	// poisoned holds the error that made the world unusable, if any.
	poisoned atomic.Error

	// running is set while a step goroutine executes, which may outlive the fetch of the step if it
	// timed out.
	running atomic.Bool
}

// AddBody creates a body from the description passed and adds it to the world.
func (w *World) AddBody(desc BodyDesc) (*Body, error) {
	if err := w.usable(); err != nil {
		return nil, err
	}
	if w.inFlight.Load() {
		return nil, oerror.New(oerror.ErrStepProtocol, "body added while a step is in flight")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if desc.Material == nil {
		desc.Material = w.conf.Material
	}
	b, err := newBody(w.lastID+1, desc, w.conf.WakeCounter)
	if err != nil {
		return nil, err
	}
	w.lastID++
	w.bodies.Set(b.id, b)
	w.conf.Log.Debugf("added %v", b)
	return b, nil
}

// Body returns the body with the ID passed.
func (w *World) Body(id BodyID) (*Body, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.bodies.Get(id)
}

// Bodies returns every body in the world ordered by ID.
func (w *World) Bodies() []*Body {
	w.mu.RLock()
	defer w.mu.RUnlock()
	bodies := make([]*Body, 0, w.bodies.Len())
	for el := w.bodies.Front(); el != nil; el = el.Next() {
		bodies = append(bodies, el.Value)
	}
	return bodies
}

// Gravity ...
func (w *World) Gravity() mgl32.Vec3 {
	return w.conf.Gravity
}

// Material returns the shared material of the world, or nil if it has none or was released.
func (w *World) Material() *Material {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.conf.Material
}

// NextStep returns the index of the next step to be launched. It equals the amount of steps
// completed so far.
func (w *World) NextStep() uint64 {
	return w.steps.Load()
}

// AddForce adds a force to a dynamic body for the next step only: accumulated forces are cleared once
// a step integrates them. Adding a force wakes the body up.
func (w *World) AddForce(id BodyID, force mgl32.Vec3) error {
	if err := w.usable(); err != nil {
		return err
	}
	if w.inFlight.Load() {
		return oerror.New(oerror.ErrStepProtocol, "force added while a step is in flight")
	}
	if !omath.IsFiniteVec32(force) {
		return oerror.New(nil, "invalid force %v", force)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	b, ok := w.bodies.Get(id)
	if !ok {
		return oerror.New(nil, "no body with id %d", id)
	}
	if !b.dynamic() {
		return oerror.New(nil, "cannot add force to %v", b)
	}
	b.force = b.force.Add(force)
	b.wake(w.conf.WakeCounter)
	return nil
}

// Step launches a step of dt seconds. It returns immediately; Fetch must be called before the results
// of the step may be observed or another step may be launched.
func (w *World) Step(dt float32) error {
	if err := w.usable(); err != nil {
		return err
	}
	if dt <= 0 || math32.IsNaN(dt) || math32.IsInf(dt, 0) {
		return oerror.New(oerror.ErrStepProtocol, "invalid time step %v", dt)
	}
	if !w.inFlight.CompareAndSwap(false, true) {
		return oerror.New(oerror.ErrStepProtocol, "step launched while step %d is still in flight", w.steps.Load())
	}

	step := w.steps.Load()
	w.running.Store(true)
	go func() {
		w.done <- w.simulate(step, dt)
	}()
	return nil
}

// Fetch blocks until the step in flight completes and returns its error, if any. If ctx is done
// before the step completes, the world is poisoned and a synchronization timeout is returned: a step
// cannot be retried, so the world cannot be used afterwards.
func (w *World) Fetch(ctx context.Context) error {
	if err := w.usable(); err != nil {
		return err
	}
	if !w.inFlight.Load() {
		return oerror.New(oerror.ErrStepProtocol, "fetch called without a pending step")
	}
	select {
	case err := <-w.done:
		if err != nil {
			w.poisoned.Store(err)
			return err
		}
		w.steps.Inc()
		w.inFlight.Store(false)
		return nil
	case <-ctx.Done():
		err := oerror.New(oerror.ErrSyncTimeout, "step %d did not complete: %v", w.steps.Load(), ctx.Err())
		w.poisoned.Store(err)
		return err
	}
}

// Release removes every body from the world. The world cannot be used afterwards. If a step is
// still running, for example because its fetch timed out, Release returns immediately and the bodies
// are removed by the step once it completes.
func (w *World) Release() {
	if !w.released.CompareAndSwap(false, true) {
		return
	}
	if w.running.Load() {
		w.conf.Log.Warnf("world released while step %d is still running", w.steps.Load())
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.releaseBodies()
}

// Abandoned returns true if the fetch of a step timed out while the step is still running.
func (w *World) Abandoned() bool {
	return w.running.Load() && w.poisoned.Load() != nil
}

// releaseBodies removes every body. The world lock must be held.
func (w *World) releaseBodies() {
	if w.bodies.Len() == 0 && w.conf.Material == nil {
		return
	}
	for el := w.bodies.Front(); el != nil; el = el.Next() {
		el.Value.material = nil
	}
	w.conf.Material = nil
	w.bodies = orderedmap.NewOrderedMap[BodyID, *Body]()
	clear(w.touching)
	w.conf.Log.Debugf("world released after %d steps", w.steps.Load())
}

func (w *World) usable() error {
	if err := w.poisoned.Load(); err != nil {
		return err
	}
	if w.released.Load() {
		return oerror.New(oerror.ErrStepProtocol, "world used after release")
	}
	return nil
}
