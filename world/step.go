package world

import (
	"fmt"

	"github.com/oomph-ac/contactsim/contact"
	"github.com/oomph-ac/contactsim/filter"
	"github.com/oomph-ac/contactsim/oerror"
)

// simulate executes a full step. It holds the world lock for its entire duration. If the world is
// released while the step runs, its reports are dropped and the bodies are removed once it completes.
func (w *World) simulate(step uint64, dt float32) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	defer func() {
		w.running.Store(false)
		if w.released.Load() {
			w.releaseBodies()
		}
	}()
	if w.released.Load() {
		return oerror.New(oerror.ErrStepProtocol, "step %d launched on a released world", step)
	}

	bodies := make([]*Body, 0, w.bodies.Len())
	for el := w.bodies.Front(); el != nil; el = el.Next() {
		bodies = append(bodies, el.Value)
	}

	w.integrateVelocities(bodies, dt)
	manifolds := w.broadPhase(bodies)
	if err := w.conf.Pool.Run(len(manifolds), func(i int) error {
		w.narrowPhase(manifolds[i])
		return nil
	}); err != nil {
		return fmt.Errorf("narrow phase of step %d: %w", step, err)
	}
	w.solve(manifolds, dt)
	w.integratePositions(bodies, dt)
	w.updateSleep(bodies, dt)

	reports := w.transitions(manifolds)
	if err := w.conf.Pool.Run(len(reports), func(i int) error {
		if w.released.Load() {
			return nil
		}
		w.conf.Handler.OnContact(contact.Batch{Step: step, Pairs: reports[i : i+1]})
		return nil
	}); err != nil {
		return fmt.Errorf("contact delivery of step %d: %w", step, err)
	}
	return nil
}

func (w *World) integrateVelocities(bodies []*Body, dt float32) {
	for _, b := range bodies {
		if b.active() {
			b.velocity = b.velocity.Add(w.conf.Gravity.Add(b.force.Mul(b.invMass)).Mul(dt))
		}
		b.force = b.force.Mul(0)
	}
}

func (w *World) integratePositions(bodies []*Body, dt float32) {
	for _, b := range bodies {
		if b.active() {
			b.pose.Position = b.pose.Position.Add(b.velocity.Mul(dt))
		}
	}
}

// updateSleep puts dynamic bodies to sleep once their kinetic energy per unit of mass stayed below the
// sleep threshold for the duration of the wake counter.
func (w *World) updateSleep(bodies []*Body, dt float32) {
	if w.conf.DisableSleeping {
		return
	}
	for _, b := range bodies {
		if !b.active() {
			continue
		}
		if 0.5*b.velocity.LenSqr() >= w.conf.SleepThreshold {
			b.wakeCounter = w.conf.WakeCounter
			continue
		}
		b.wakeCounter -= dt
		if b.wakeCounter <= 0 {
			b.wakeCounter = 0
			b.sleeping = true
			b.velocity = b.velocity.Mul(0)
		}
	}
}

// transitions updates the set of touching pairs and returns the reports requested by the filter flags
// of every pair that started, kept or stopped touching this step.
func (w *World) transitions(manifolds []*manifold) []contact.Pair {
	var reports []contact.Pair
	touching := make(map[pairKey]filter.Flags, len(w.touching))

	for _, m := range manifolds {
		prev, was := w.touching[m.key]
		if len(m.points) == 0 {
			if was && prev.Has(filter.FlagTouchLost) {
				reports = append(reports, contact.Pair{A: uint32(m.a.id), B: uint32(m.b.id), Events: contact.TouchLost})
			}
			continue
		}
		touching[m.key] = m.flags

		ev, flag := contact.TouchFound, filter.FlagTouchFound
		if was {
			ev, flag = contact.TouchPersists, filter.FlagTouchPersists
		}
		if !m.flags.Has(flag) {
			continue
		}
		pair := contact.Pair{A: uint32(m.a.id), B: uint32(m.b.id), Events: ev}
		if m.flags.Has(filter.FlagContactPoints) {
			pair.Points = make([]contact.Point, len(m.points))
			for i, p := range m.points {
				pair.Points[i] = contact.Point{Position: p.pos, Impulse: m.normal.Mul(p.normalImpulse), Separation: p.sep}
			}
		}
		reports = append(reports, pair)
	}

	for key, flags := range w.touching {
		if _, ok := touching[key]; ok || w.pairIn(manifolds, key) {
			continue
		}
		a, okA := w.bodies.Get(key.a)
		b, okB := w.bodies.Get(key.b)
		if okA && okB && !a.active() && !b.active() {
			// Neither body is simulated: the pair keeps touching while asleep.
			touching[key] = flags
			continue
		}
		if flags.Has(filter.FlagTouchLost) {
			reports = append(reports, contact.Pair{A: uint32(key.a), B: uint32(key.b), Events: contact.TouchLost})
		}
	}
	w.touching = touching
	return reports
}

func (w *World) pairIn(manifolds []*manifold, key pairKey) bool {
	for _, m := range manifolds {
		if m.key == key {
			return true
		}
	}
	return false
}
