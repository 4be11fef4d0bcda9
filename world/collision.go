package world

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/oomph-ac/contactsim/filter"
	"github.com/oomph-ac/contactsim/omath"
)

// pairKey identifies a pair of bodies. a always holds the lower ID.
type pairKey struct {
	a, b BodyID
}

func keyOf(a, b *Body) pairKey {
	if a.id > b.id {
		a, b = b, a
	}
	return pairKey{a: a.id, b: b.id}
}

// point is a contact point of a manifold along with its solver state.
type point struct {
	pos mgl32.Vec3
	sep float32

	normalMass float32
	target     float32
	sticking   bool

	normalImpulse  float32
	tangentImpulse [2]float32
}

// manifold holds the contact points between two bodies. The normal points from b towards a, so that
// applying an impulse along it pushes a out of b. a is always a dynamic body.
type manifold struct {
	a, b  *Body
	key   pairKey
	flags filter.Flags

	axis   int
	normal mgl32.Vec3
	points []point

	staticFriction, dynamicFriction, restitution float32
}

// broadPhase returns a manifold without contact points for every pair of bodies whose bounds are within
// the contact offset of each other and that the filter policy accepts. Pairs of which neither body is
// awake and dynamic are skipped.
func (w *World) broadPhase(bodies []*Body) []*manifold {
	var pairs []*manifold
	offset := w.conf.ContactOffset
	for i, a := range bodies {
		for _, b := range bodies[i+1:] {
			if !a.active() && !b.active() {
				continue
			}
			first, second := a, b
			if !first.dynamic() {
				first, second = second, first
			}
			if !near(first, second, offset) {
				continue
			}
			flags, ok := w.conf.Policy.Filter(first.attrs, second.attrs)
			if !ok || !flags.Has(filter.FlagDetect) {
				continue
			}
			// Touching an awake body wakes a sleeping one up.
			if first.dynamic() && !first.active() {
				first.wake(w.conf.WakeCounter)
			}
			if second.dynamic() && !second.active() {
				second.wake(w.conf.WakeCounter)
			}
			sf, df, r := combine(first.material, second.material)
			pairs = append(pairs, &manifold{
				a:               first,
				b:               second,
				key:             keyOf(first, second),
				flags:           flags,
				staticFriction:  sf,
				dynamicFriction: df,
				restitution:     r,
			})
		}
	}
	return pairs
}

// near returns true if the bounds of a, which must be a box, and b are within offset of each other.
func near(a, b *Body, offset float32) bool {
	aBB, ok := a.bbox()
	if !ok {
		return false
	}
	if _, ok := b.shape.(Plane); ok {
		return aBB.Min().Y()-b.pose.Position.Y() < offset
	}
	bBB, ok := b.bbox()
	if !ok {
		return false
	}
	return aBB.Grow(offset).IntersectsWith(bBB)
}

// narrowPhase generates the contact points of a manifold. It only reads the poses of the bodies, so it
// may run concurrently for different manifolds.
func (w *World) narrowPhase(m *manifold) {
	offset := w.conf.ContactOffset
	aBB, ok := m.a.bbox()
	if !ok {
		return
	}

	if _, ok := m.b.shape.(Plane); ok {
		height := m.b.pose.Position.Y()
		sep := aBB.Min().Y() - height
		if sep >= offset {
			return
		}
		m.axis, m.normal = 1, mgl32.Vec3{0, 1, 0}
		y := aBB.Min().Y() - sep/2
		for _, x := range [2]float32{aBB.Min().X(), aBB.Max().X()} {
			for _, z := range [2]float32{aBB.Min().Z(), aBB.Max().Z()} {
				m.points = append(m.points, point{pos: mgl32.Vec3{x, y, z}, sep: sep})
			}
		}
		return
	}

	bBB, ok := m.b.bbox()
	if !ok {
		return
	}
	overlap := omath.AxisOverlaps(aBB, bBB)
	axis := 0
	for i := 1; i < 3; i++ {
		if overlap[i] < overlap[axis] {
			axis = i
		}
	}
	sep := -overlap[axis]
	if sep >= offset {
		return
	}
	// The contact face needs a positive overlap on both tangent axes; edge and corner contacts are not
	// generated.
	t1, t2 := (axis+1)%3, (axis+2)%3
	if overlap[t1] <= 0 || overlap[t2] <= 0 {
		return
	}

	sign := float32(1)
	face := (bBB.Max()[axis] + aBB.Min()[axis]) / 2
	if omath.BoxCenter(aBB)[axis] < omath.BoxCenter(bBB)[axis] {
		sign = -1
		face = (bBB.Min()[axis] + aBB.Max()[axis]) / 2
	}
	m.axis, m.normal = axis, omath.Axis(axis, sign)

	lo1, hi1 := max(aBB.Min()[t1], bBB.Min()[t1]), min(aBB.Max()[t1], bBB.Max()[t1])
	lo2, hi2 := max(aBB.Min()[t2], bBB.Min()[t2]), min(aBB.Max()[t2], bBB.Max()[t2])
	for _, u := range [2]float32{lo1, hi1} {
		for _, v := range [2]float32{lo2, hi2} {
			var pos mgl32.Vec3
			pos[axis], pos[t1], pos[t2] = face, u, v
			m.points = append(m.points, point{pos: pos, sep: sep})
		}
	}
}
