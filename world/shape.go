package world

import (
	"github.com/ethaniccc/float32-cube/cube"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/oomph-ac/contactsim/oerror"
	"github.com/oomph-ac/contactsim/omath"
)

// Shape is the collision geometry of a body.
type Shape interface {
	// Volume returns the volume of the shape, used to derive the mass of dynamic bodies.
	Volume() float32
	shape()
}

// Box is an axis-aligned box centered on the position of its body.
type Box struct {
	HalfExtents mgl32.Vec3
}

// NewBox returns a box with the half extents passed. Every extent must be positive and finite.
func NewBox(halfExtents mgl32.Vec3) (Box, error) {
	if !omath.IsFiniteVec32(halfExtents) || halfExtents.X() <= 0 || halfExtents.Y() <= 0 || halfExtents.Z() <= 0 {
		return Box{}, oerror.New(oerror.ErrResourceCreation, "invalid box half extents %v", halfExtents)
	}
	return Box{HalfExtents: halfExtents}, nil
}

// Volume ...
func (b Box) Volume() float32 {
	return 8 * b.HalfExtents.X() * b.HalfExtents.Y() * b.HalfExtents.Z()
}

// BBox returns the bounding box of the box at the position passed.
func (b Box) BBox(pos mgl32.Vec3) cube.BBox {
	return omath.BoxAround(pos, b.HalfExtents)
}

func (Box) shape() {}

// Plane is an infinite plane with its normal pointing up (+Y). Everything below the plane is
// considered solid. Planes may only be attached to static bodies.
type Plane struct{}

// Volume ...
func (Plane) Volume() float32 {
	return 0
}

func (Plane) shape() {}
