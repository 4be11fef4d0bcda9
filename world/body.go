package world

import (
	"fmt"

	"github.com/ethaniccc/float32-cube/cube"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/oomph-ac/contactsim/filter"
	"github.com/oomph-ac/contactsim/oerror"
	"github.com/oomph-ac/contactsim/omath"
)

// BodyID identifies a body within its world. IDs are assigned in creation order, starting at 1.
type BodyID uint32

// Kind is the kind of a body.
type Kind uint8

const (
	// Static bodies never move and have infinite mass.
	Static Kind = iota
	// Dynamic bodies are moved by gravity, forces and contacts.
	Dynamic
)

func (k Kind) String() string {
	if k == Static {
		return "static"
	}
	return "dynamic"
}

// Pose is the position and orientation of a body.
type Pose struct {
	Position    mgl32.Vec3
	Orientation mgl32.Quat
}

// PoseAt returns a pose at the position passed with the identity orientation.
func PoseAt(pos mgl32.Vec3) Pose {
	return Pose{Position: pos, Orientation: mgl32.QuatIdent()}
}

// BodyDesc describes a body to be added to a world.
type BodyDesc struct {
	Kind     Kind
	Shape    Shape
	Pose     Pose
	Material *Material
	// Density is used to compute the mass of dynamic bodies from the volume of their shape. A density
	// of zero is treated as 1.
	Density float32
	// Filter holds the attributes passed to the filter policy. Their Kind is overwritten with the kind
	// of the body.
	Filter filter.Attributes
}

// Body is a rigid body in a world. The state of a body may only be read while no step is in flight:
// between the return of Fetch and the next call to Step.
type Body struct {
	id       BodyID
	kind     Kind
	shape    Shape
	pose     Pose
	material *Material
	attrs    filter.Attributes

	mass, invMass float32

	velocity mgl32.Vec3
	force    mgl32.Vec3

	sleeping    bool
	wakeCounter float32
}

func newBody(id BodyID, desc BodyDesc, wakeCounter float32) (*Body, error) {
	if desc.Shape == nil {
		return nil, oerror.New(oerror.ErrResourceCreation, "body has no shape")
	}
	if desc.Material == nil {
		return nil, oerror.New(oerror.ErrResourceCreation, "body has no material")
	}
	if !omath.IsFiniteVec32(desc.Pose.Position) {
		return nil, oerror.New(oerror.ErrResourceCreation, "invalid body position %v", desc.Pose.Position)
	}
	if desc.Pose.Orientation.Len() == 0 {
		desc.Pose.Orientation = mgl32.QuatIdent()
	}

	b := &Body{
		id:          id,
		kind:        desc.Kind,
		shape:       desc.Shape,
		pose:        desc.Pose,
		material:    desc.Material,
		attrs:       desc.Filter,
		wakeCounter: wakeCounter,
	}
	b.attrs.Kind = filter.KindStatic
	switch desc.Kind {
	case Static:
	case Dynamic:
		if _, ok := desc.Shape.(Plane); ok {
			return nil, oerror.New(oerror.ErrResourceCreation, "planes can only be attached to static bodies")
		}
		density := desc.Density
		if density == 0 {
			density = 1
		}
		if density < 0 {
			return nil, oerror.New(oerror.ErrResourceCreation, "negative density %v", density)
		}
		b.attrs.Kind = filter.KindDynamic
		b.mass = density * desc.Shape.Volume()
		b.invMass = 1 / b.mass
	default:
		return nil, oerror.New(oerror.ErrResourceCreation, "unknown body kind %d", desc.Kind)
	}
	return b, nil
}

// ID ...
func (b *Body) ID() BodyID {
	return b.id
}

// Kind ...
func (b *Body) Kind() Kind {
	return b.kind
}

// Shape ...
func (b *Body) Shape() Shape {
	return b.shape
}

// Pose ...
func (b *Body) Pose() Pose {
	return b.pose
}

// Position ...
func (b *Body) Position() mgl32.Vec3 {
	return b.pose.Position
}

// Material ...
func (b *Body) Material() *Material {
	return b.material
}

// Attributes returns the filter attributes of the body.
func (b *Body) Attributes() filter.Attributes {
	return b.attrs
}

// Mass returns the mass of the body. Static bodies have a mass of zero, meaning infinite.
func (b *Body) Mass() float32 {
	return b.mass
}

// Velocity returns the linear velocity of the body.
func (b *Body) Velocity() mgl32.Vec3 {
	return b.velocity
}

// Sleeping returns true if the body is asleep. Sleeping bodies are not simulated until woken up.
func (b *Body) Sleeping() bool {
	return b.sleeping
}

func (b *Body) String() string {
	return fmt.Sprintf("%s body #%d at %v", b.kind, b.id, b.pose.Position)
}

func (b *Body) dynamic() bool {
	return b.kind == Dynamic
}

// active returns true if the body is dynamic and awake.
func (b *Body) active() bool {
	return b.kind == Dynamic && !b.sleeping
}

func (b *Body) wake(wakeCounter float32) {
	b.sleeping = false
	b.wakeCounter = max(b.wakeCounter, wakeCounter)
}

func (b *Body) bbox() (cube.BBox, bool) {
	box, ok := b.shape.(Box)
	if !ok {
		return cube.BBox{}, false
	}
	return box.BBox(b.pose.Position), true
}
