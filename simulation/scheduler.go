package simulation

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/oomph-ac/contactsim/oerror"
	"github.com/oomph-ac/contactsim/omath"
	"github.com/oomph-ac/contactsim/world"
)

// Window is an inclusive range of steps during which a force is applied to a body. The force is
// transient: it is added before every step inside the window and has no effect outside of it.
type Window struct {
	Body       world.BodyID
	Start, End uint64
	Force      mgl32.Vec3
}

// NewWindow returns a window applying force to body from step start up to and including step end.
func NewWindow(body world.BodyID, start, end uint64, force mgl32.Vec3) (Window, error) {
	if start > end {
		return Window{}, oerror.New(oerror.ErrResourceCreation, "force window starts at step %d after it ends at step %d", start, end)
	}
	if !omath.IsFiniteVec32(force) {
		return Window{}, oerror.New(oerror.ErrResourceCreation, "invalid window force %v", force)
	}
	return Window{Body: body, Start: start, End: end, Force: force}, nil
}

// ShouldApply returns true if step lies inside the window.
func (w Window) ShouldApply(step uint64) bool {
	return w.Start <= step && step <= w.End
}

// ForceTarget is implemented by worlds that forces may be added to.
type ForceTarget interface {
	AddForce(id world.BodyID, force mgl32.Vec3) error
}

// Scheduler applies the forces of a set of windows.
type Scheduler struct {
	windows []Window
}

// NewScheduler returns a scheduler for the windows passed.
func NewScheduler(windows ...Window) *Scheduler {
	return &Scheduler{windows: windows}
}

// Apply adds the force of every window containing step to its body. It must be called before the step
// is launched. The amount of forces applied is returned.
func (s *Scheduler) Apply(target ForceTarget, step uint64) (int, error) {
	if s == nil {
		return 0, nil
	}
	applied := 0
	for _, w := range s.windows {
		if !w.ShouldApply(step) {
			continue
		}
		if err := target.AddForce(w.Body, w.Force); err != nil {
			return applied, err
		}
		applied++
	}
	return applied, nil
}
