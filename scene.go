// Package contactsim builds and runs the reference contact simulation: a static ground plane and two
// dynamic boxes under gravity, one of which is pushed for a short window of steps while every contact
// point and impulse is collected and reported.
package contactsim

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/oomph-ac/contactsim/contact"
	"github.com/oomph-ac/contactsim/filter"
	"github.com/oomph-ac/contactsim/pvd"
	"github.com/oomph-ac/contactsim/settings"
	"github.com/oomph-ac/contactsim/simulation"
	"github.com/oomph-ac/contactsim/worker"
	"github.com/oomph-ac/contactsim/world"
	"github.com/sirupsen/logrus"
)

// Scene holds every resource of a simulation run.
type Scene struct {
	settings settings.Settings
	log      *logrus.Logger
	id       uuid.UUID

	pool     *worker.Pool
	sink     *contact.Sink
	world    *world.World
	material *world.Material
	debugger *pvd.Client

	plane, boxA, boxB *world.Body

	closed bool
}

// NewScene validates the settings passed and creates the worker pool, world, material and bodies of the
// scene. If any of them cannot be created, everything created so far is released and the error is
// returned.
func NewScene(s settings.Settings, log *logrus.Logger) (*Scene, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	sc := &Scene{settings: s, log: log, id: uuid.New()}
	if err := sc.build(); err != nil {
		sc.Close()
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"run":     sc.id,
		"workers": sc.pool.Size(),
		"bodies":  len(sc.world.Bodies()),
	}).Info("scene created")
	return sc, nil
}

func (sc *Scene) build() error {
	s := sc.settings
	// Settings were validated, so the vectors below are well formed.
	gravity, _ := settings.Vec3(s.Simulation.Gravity)
	halfExtents, _ := settings.Vec3(s.Scene.BoxHalfExtents)
	posA, _ := settings.Vec3(s.Scene.BoxA)
	posB, _ := settings.Vec3(s.Scene.BoxB)

	var err error
	if sc.pool, err = worker.New(s.Simulation.Workers); err != nil {
		return fmt.Errorf("create worker pool: %w", err)
	}
	sc.sink = contact.NewSink(s.Contacts.MaxPerStep)
	if sc.material, err = world.NewMaterial(s.Material.StaticFriction, s.Material.DynamicFriction, s.Material.Restitution); err != nil {
		return fmt.Errorf("create material: %w", err)
	}
	if sc.world, err = (world.Config{
		Gravity:          gravity,
		Material:         sc.material,
		Pool:             sc.pool,
		Policy:           filter.ContactReport{},
		Handler:          sc.sink,
		Log:              sc.log,
		SolverIterations: s.Simulation.SolverIterations,
		DisableSleeping:  s.Simulation.DisableSleeping,
	}).New(); err != nil {
		return fmt.Errorf("create world: %w", err)
	}
	box, err := world.NewBox(halfExtents)
	if err != nil {
		return fmt.Errorf("create box shape: %w", err)
	}

	if sc.plane, err = sc.world.AddBody(world.BodyDesc{
		Kind:   world.Static,
		Shape:  world.Plane{},
		Pose:   world.PoseAt(mgl32.Vec3{}),
		Filter: filter.DefaultAttributes(filter.KindStatic),
	}); err != nil {
		return fmt.Errorf("create ground plane: %w", err)
	}
	for _, b := range []struct {
		dst  **world.Body
		pos  mgl32.Vec3
		name string
	}{{&sc.boxA, posA, "box A"}, {&sc.boxB, posB, "box B"}} {
		if *b.dst, err = sc.world.AddBody(world.BodyDesc{
			Kind:    world.Dynamic,
			Shape:   box,
			Pose:    world.PoseAt(b.pos),
			Density: s.Scene.Density,
			Filter:  filter.DefaultAttributes(filter.KindDynamic),
		}); err != nil {
			return fmt.Errorf("create %s: %w", b.name, err)
		}
	}

	if s.Debugger.Enabled {
		if sc.debugger, err = (pvd.Config{
			Address:    s.Debugger.Address,
			ServerName: s.Debugger.ServerName,
			Insecure:   s.Debugger.Insecure,
			Log:        sc.log,
		}).Dial(sc.id); err != nil {
			return fmt.Errorf("create debugger client: %w", err)
		}
	}
	return nil
}

// ID returns the unique ID of the run.
func (sc *Scene) ID() uuid.UUID {
	return sc.id
}

// World returns the world of the scene.
func (sc *Scene) World() *world.World {
	return sc.world
}

// Sink returns the sink contacts of the scene are collected in.
func (sc *Scene) Sink() *contact.Sink {
	return sc.sink
}

// Plane returns the static ground plane.
func (sc *Scene) Plane() *world.Body {
	return sc.plane
}

// BoxA returns the box the force window applies to.
func (sc *Scene) BoxA() *world.Body {
	return sc.boxA
}

// BoxB returns the second box.
func (sc *Scene) BoxB() *world.Body {
	return sc.boxB
}

// Debugger returns the debugger client of the scene, or nil if the debugger is disabled.
func (sc *Scene) Debugger() *pvd.Client {
	return sc.debugger
}

// Stepper returns a stepper driving the scene as configured. Contact impulses are written to out if
// reporting is enabled and out is not nil.
func (sc *Scene) Stepper(out io.Writer) (*simulation.Stepper, error) {
	s := sc.settings
	timeout, err := s.FetchTimeout()
	if err != nil {
		return nil, err
	}
	conf := simulation.Config{
		Steps:        s.Simulation.Steps,
		TimeStep:     s.Simulation.TimeStep,
		FetchTimeout: timeout,
		Log:          sc.log,
	}
	if s.Force.Enabled {
		force, _ := settings.Vec3(s.Force.Vector)
		window, err := simulation.NewWindow(sc.boxA.ID(), s.Force.Start, s.Force.End, force)
		if err != nil {
			return nil, err
		}
		conf.Scheduler = simulation.NewScheduler(window)
	}
	if s.Contacts.Report && out != nil {
		conf.Reporter = simulation.ConsoleReporter{W: out}
	}
	if sc.debugger != nil {
		conf.Observers = append(conf.Observers, sc.debugger)
	}
	return conf.New(sc.world, sc.sink)
}

// Run runs the simulation to completion.
func (sc *Scene) Run(ctx context.Context, out io.Writer) (simulation.Result, error) {
	st, err := sc.Stepper(out)
	if err != nil {
		return simulation.Result{}, err
	}
	res, err := st.Run(ctx)
	if dropped := sc.sink.Dropped(); dropped > 0 {
		sc.log.WithField("run", sc.id).Warnf("%d contact points above the per-step limit were dropped", dropped)
	}
	if leaked := sc.sink.Leaked(); leaked > 0 {
		sc.log.WithField("run", sc.id).Warnf("%d contact points reported for a stale step were rejected", leaked)
	}
	return res, err
}

// Close releases the resources of the scene in reverse order of creation: the bodies and the world,
// then the worker pool, then the debugger connection. Pending Sentry events are flushed last. Close
// does not wait for a step whose fetch timed out.
func (sc *Scene) Close() {
	if sc.closed {
		return
	}
	sc.closed = true
	if sc.world != nil {
		sc.world.Release()
	}
	sc.material = nil
	switch {
	case sc.world != nil && sc.world.Abandoned():
		// Closing the pool waits for its workers, one of which is stuck in the abandoned step.
		sc.log.WithField("run", sc.id).Warn("worker pool left running behind an abandoned step")
	case sc.pool != nil:
		sc.pool.Close()
	}
	if sc.debugger != nil {
		_ = sc.debugger.Close()
	}
	sentry.Flush(time.Second * 2)
	sc.log.WithField("run", sc.id).Debug("scene closed")
}
