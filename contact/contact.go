package contact

import "github.com/go-gl/mathgl/mgl32"

// PairEvent is a set of touch transitions reported for a pair of bodies in a single step.
type PairEvent uint8

const (
	TouchFound PairEvent = 1 << iota
	TouchPersists
	TouchLost
)

// Point is a single point of contact between two bodies.
type Point struct {
	Position mgl32.Vec3
	// Impulse is the impulse applied at the point during the step, in world space. Dividing it by
	// the time step gives the force.
	Impulse mgl32.Vec3
	// Separation is the distance between the two shapes at the point. It is negative when the shapes
	// penetrate.
	Separation float32
}

// Pair holds the report of a pair of bodies. Points is empty if per-point data was not requested or
// the pair stopped touching.
type Pair struct {
	A, B   uint32
	Events PairEvent
	Points []Point
}

// Batch is a set of pair reports delivered at once. A single step may deliver many batches, possibly
// from different goroutines.
type Batch struct {
	Step  uint64
	Pairs []Pair
}

// Handler receives contact reports. OnContact is called from the engine's worker goroutines between
// the launch of a step and the return of the fetch that completes it.
type Handler interface {
	OnContact(b Batch)
}

// NopHandler discards every report.
type NopHandler struct{}

// OnContact ...
func (NopHandler) OnContact(Batch) {}

// Event is a single contact point recorded for one step.
type Event struct {
	Step       uint64
	A, B       uint32
	Position   mgl32.Vec3
	Impulse    mgl32.Vec3
	Separation float32
}
