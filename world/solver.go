package world

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/oomph-ac/contactsim/filter"
	"github.com/oomph-ac/contactsim/omath"
)

// stickVelocity is the tangential speed below which static friction applies to a contact point.
const stickVelocity = 1e-2

// invMass returns the inverse mass of the body as seen by the solver.
func invMass(b *Body) float32 {
	if !b.active() {
		return 0
	}
	return b.invMass
}

// solve resolves the contact points of every manifold with sequential impulses. Normal impulses are
// accumulated and clamped to be non-negative, friction impulses are clamped to the friction cone of the
// accumulated normal impulse.
func (w *World) solve(manifolds []*manifold, dt float32) {
	active := manifolds[:0:0]
	for _, m := range manifolds {
		if len(m.points) == 0 || !m.flags.Has(filter.FlagSolve) {
			continue
		}
		if invMass(m.a)+invMass(m.b) == 0 {
			continue
		}
		w.preStep(m, dt)
		active = append(active, m)
	}

	for range w.conf.SolverIterations {
		for _, m := range active {
			applyImpulses(m)
		}
	}
}

func (w *World) preStep(m *manifold, dt float32) {
	invA, invB := invMass(m.a), invMass(m.b)
	// Without angular terms every point of a manifold shares the same relative velocity, so the
	// effective mass of the bodies is split evenly across the points.
	normalMass := 1 / ((invA + invB) * float32(len(m.points)))

	rel := m.a.velocity.Sub(m.b.velocity)
	vn := rel.Dot(m.normal)
	tangential := rel.Sub(m.normal.Mul(vn))

	for i := range m.points {
		p := &m.points[i]
		p.normalMass = normalMass
		if p.sep > 0 {
			// Speculative contact: allow the bodies to close the gap within this step, but no further.
			p.target = -p.sep / dt
		} else {
			p.target = w.conf.Baumgarte / dt * math32.Max(0, -p.sep-w.conf.Slop)
		}
		if vn < -w.conf.BounceThreshold && m.restitution > 0 {
			p.target = math32.Max(p.target, -m.restitution*vn)
		}
		p.sticking = tangential.Len() < stickVelocity
	}
}

// applyImpulses performs one solver iteration on a manifold. The impulses of all points are computed
// from the relative velocity at the start of the iteration and applied together, so that points with
// equal targets carry equal loads regardless of the order they are visited in.
func applyImpulses(m *manifold) {
	invA, invB := invMass(m.a), invMass(m.b)
	apply := func(impulse mgl32.Vec3) {
		m.a.velocity = m.a.velocity.Add(impulse.Mul(invA))
		m.b.velocity = m.b.velocity.Sub(impulse.Mul(invB))
	}
	tangents := [2]mgl32.Vec3{omath.Axis((m.axis+1)%3, 1), omath.Axis((m.axis+2)%3, 1)}

	vn := m.a.velocity.Sub(m.b.velocity).Dot(m.normal)
	var total float32
	for i := range m.points {
		p := &m.points[i]
		acc := math32.Max(p.normalImpulse+(p.target-vn)*p.normalMass, 0)
		total += acc - p.normalImpulse
		p.normalImpulse = acc
	}
	apply(m.normal.Mul(total))

	for j, t := range tangents {
		vt := m.a.velocity.Sub(m.b.velocity).Dot(t)
		total = 0
		for i := range m.points {
			p := &m.points[i]
			friction := m.dynamicFriction
			if p.sticking {
				friction = m.staticFriction
			}
			limit := friction * p.normalImpulse
			acc := mgl32.Clamp(p.tangentImpulse[j]-vt*p.normalMass, -limit, limit)
			total += acc - p.tangentImpulse[j]
			p.tangentImpulse[j] = acc
		}
		apply(t.Mul(total))
	}
}
