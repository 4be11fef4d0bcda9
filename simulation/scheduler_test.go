package simulation

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/oomph-ac/contactsim/oerror"
	"github.com/oomph-ac/contactsim/world"
)

type forceLog struct {
	forces map[world.BodyID][]mgl32.Vec3
	err    error
}

func (l *forceLog) AddForce(id world.BodyID, force mgl32.Vec3) error {
	if l.err != nil {
		return l.err
	}
	if l.forces == nil {
		l.forces = make(map[world.BodyID][]mgl32.Vec3)
	}
	l.forces[id] = append(l.forces[id], force)
	return nil
}

func TestWindowBoundaries(t *testing.T) {
	w, err := NewWindow(1, 10000, 10020, mgl32.Vec3{10, 0, 0})
	if err != nil {
		t.Fatal(err)
	}
	for _, tc := range []struct {
		step uint64
		want bool
	}{
		{9999, false},
		{10000, true},
		{10010, true},
		{10020, true},
		{10021, false},
	} {
		if got := w.ShouldApply(tc.step); got != tc.want {
			t.Errorf("ShouldApply(%d) = %v, want %v", tc.step, got, tc.want)
		}
	}
}

func TestZeroLengthWindow(t *testing.T) {
	w, err := NewWindow(1, 5, 5, mgl32.Vec3{1, 0, 0})
	if err != nil {
		t.Fatal(err)
	}
	if !w.ShouldApply(5) || w.ShouldApply(4) || w.ShouldApply(6) {
		t.Fatalf("window [5, 5] must apply to step 5 only")
	}
}

func TestInvalidWindow(t *testing.T) {
	if _, err := NewWindow(1, 10, 9, mgl32.Vec3{}); !errors.Is(err, oerror.ErrResourceCreation) {
		t.Fatalf("expected resource creation error, got %v", err)
	}
}

func TestSchedulerApply(t *testing.T) {
	a, _ := NewWindow(1, 0, 2, mgl32.Vec3{1, 0, 0})
	b, _ := NewWindow(2, 2, 3, mgl32.Vec3{0, 0, 1})
	s := NewScheduler(a, b)

	log := &forceLog{}
	for step := uint64(0); step < 5; step++ {
		if _, err := s.Apply(log, step); err != nil {
			t.Fatal(err)
		}
	}
	if n := len(log.forces[1]); n != 3 {
		t.Fatalf("body 1 received %d forces, want 3", n)
	}
	if n := len(log.forces[2]); n != 2 {
		t.Fatalf("body 2 received %d forces, want 2", n)
	}

	failing := &forceLog{err: errors.New("static body")}
	if _, err := s.Apply(failing, 0); err == nil {
		t.Fatalf("expected error of the force target to be returned")
	}

	var nilScheduler *Scheduler
	if n, err := nilScheduler.Apply(log, 0); n != 0 || err != nil {
		t.Fatalf("nil scheduler applied %d forces: %v", n, err)
	}
}
