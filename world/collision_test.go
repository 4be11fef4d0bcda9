package world

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/oomph-ac/contactsim/filter"
	"github.com/oomph-ac/contactsim/omath"
)

func testBody(id BodyID, kind Kind, shape Shape, pos mgl32.Vec3) *Body {
	mat, _ := NewMaterial(0.5, 0.5, 0.6)
	b, err := newBody(id, BodyDesc{Kind: kind, Shape: shape, Pose: PoseAt(pos), Material: mat}, 0.4)
	if err != nil {
		panic(err)
	}
	return b
}

func TestNarrowPhaseBoxPlane(t *testing.T) {
	w := &World{conf: Config{ContactOffset: 0.02}}
	box := testBody(2, Dynamic, Box{HalfExtents: mgl32.Vec3{1, 1, 1}}, mgl32.Vec3{3, 0.99, -2})
	plane := testBody(1, Static, Plane{}, mgl32.Vec3{})

	m := &manifold{a: box, b: plane}
	w.narrowPhase(m)
	if len(m.points) != 4 {
		t.Fatalf("expected 4 contact points, got %d", len(m.points))
	}
	if m.normal != (mgl32.Vec3{0, 1, 0}) {
		t.Fatalf("unexpected normal %v", m.normal)
	}
	for _, p := range m.points {
		if !omath.Float32ApproxEq(p.sep, -0.01) {
			t.Fatalf("expected a separation of -0.01, got %v", p.sep)
		}
		if x, z := p.pos.X(), p.pos.Z(); (x != 2 && x != 4) || (z != -3 && z != -1) {
			t.Fatalf("contact point %v is not below a corner of the box", p.pos)
		}
	}

	box.pose.Position = mgl32.Vec3{3, 1.5, -2}
	m = &manifold{a: box, b: plane}
	w.narrowPhase(m)
	if len(m.points) != 0 {
		t.Fatalf("expected no contact above the contact offset, got %d points", len(m.points))
	}
}

func TestNarrowPhaseBoxBox(t *testing.T) {
	w := &World{conf: Config{ContactOffset: 0.02}}
	half := Box{HalfExtents: mgl32.Vec3{1, 1, 1}}

	tests := []struct {
		name   string
		a, b   mgl32.Vec3
		normal mgl32.Vec3
		sep    float32
		points int
	}{
		{"overlap from the left", mgl32.Vec3{-1.9, 1, 0}, mgl32.Vec3{0, 1, 0}, mgl32.Vec3{-1, 0, 0}, -0.1, 4},
		{"overlap from the right", mgl32.Vec3{1.95, 1.5, 0}, mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, -0.05, 4},
		{"stacked", mgl32.Vec3{0.5, 2.99, 0}, mgl32.Vec3{0, 1, 0}, mgl32.Vec3{0, 1, 0}, -0.01, 4},
		{"within offset", mgl32.Vec3{2.01, 1, 0}, mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, 0.01, 4},
		{"apart", mgl32.Vec3{10, 1, 0}, mgl32.Vec3{0, 1, 0}, mgl32.Vec3{}, 0, 0},
		{"edge only", mgl32.Vec3{2.01, 3.01, 0}, mgl32.Vec3{0, 1, 0}, mgl32.Vec3{}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &manifold{a: testBody(1, Dynamic, half, tt.a), b: testBody(2, Dynamic, half, tt.b)}
			w.narrowPhase(m)
			if len(m.points) != tt.points {
				t.Fatalf("expected %d points, got %d", tt.points, len(m.points))
			}
			if tt.points == 0 {
				return
			}
			if m.normal != tt.normal {
				t.Fatalf("expected normal %v, got %v", tt.normal, m.normal)
			}
			for _, p := range m.points {
				if !omath.Float32ApproxEq(p.sep, tt.sep) {
					t.Fatalf("expected separation %v, got %v", tt.sep, p.sep)
				}
			}
		})
	}
}

func TestBoxesCollide(t *testing.T) {
	rec := &recorder{}
	s := newTestScene(t, Config{Handler: rec, DisableSleeping: true})
	for range 10 {
		if err := s.w.AddForce(s.boxA.ID(), mgl32.Vec3{2000, 0, 0}); err != nil {
			t.Fatal(err)
		}
		step(t, s.w)
	}
	for range 120 {
		step(t, s.w)
	}
	if s.boxB.Position().X() <= 10 {
		t.Fatalf("expected box A to push box B, B is at %v", s.boxB.Position())
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	key := uint32(s.boxA.ID())<<16 | uint32(s.boxB.ID())
	for _, pairs := range rec.pairs {
		for _, p := range pairs {
			if p.A<<16|p.B == key && len(p.Points) > 0 && p.Points[0].Impulse.X() != 0 {
				return
			}
		}
	}
	t.Fatalf("expected a reported contact between the boxes")
}

func TestBroadPhaseSkipsInactivePairs(t *testing.T) {
	w := &World{conf: Config{ContactOffset: 0.02, Policy: filter.ContactReport{}, WakeCounter: 0.4}}
	half := Box{HalfExtents: mgl32.Vec3{1, 1, 1}}
	plane := testBody(1, Static, Plane{}, mgl32.Vec3{})
	a := testBody(2, Dynamic, half, mgl32.Vec3{0, 1, 0})
	b := testBody(3, Static, half, mgl32.Vec3{1.5, 1, 0})

	pairs := w.broadPhase([]*Body{plane, a, b})
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(pairs))
	}
	for _, m := range pairs {
		if m.a != a {
			t.Fatalf("expected the dynamic body first, got %v", m.a)
		}
	}

	a.sleeping = true
	if pairs := w.broadPhase([]*Body{plane, a, b}); len(pairs) != 0 {
		t.Fatalf("expected no pairs while asleep, got %d", len(pairs))
	}
}
