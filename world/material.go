package world

import (
	"github.com/chewxy/math32"
	"github.com/oomph-ac/contactsim/oerror"
)

// Material holds the surface properties of bodies. A material is immutable and may be shared by any
// number of bodies.
type Material struct {
	staticFriction  float32
	dynamicFriction float32
	restitution     float32
}

// NewMaterial returns a new material. Friction coefficients must be non-negative and the restitution
// must lie in [0, 1].
func NewMaterial(staticFriction, dynamicFriction, restitution float32) (*Material, error) {
	for _, f := range [...]float32{staticFriction, dynamicFriction, restitution} {
		if math32.IsNaN(f) || math32.IsInf(f, 0) || f < 0 {
			return nil, oerror.New(oerror.ErrResourceCreation, "invalid material (%v, %v, %v)", staticFriction, dynamicFriction, restitution)
		}
	}
	if restitution > 1 {
		return nil, oerror.New(oerror.ErrResourceCreation, "restitution %v exceeds 1", restitution)
	}
	return &Material{staticFriction: staticFriction, dynamicFriction: dynamicFriction, restitution: restitution}, nil
}

// StaticFriction ...
func (m *Material) StaticFriction() float32 {
	return m.staticFriction
}

// DynamicFriction ...
func (m *Material) DynamicFriction() float32 {
	return m.dynamicFriction
}

// Restitution ...
func (m *Material) Restitution() float32 {
	return m.restitution
}

// combine averages the coefficients of two materials.
func combine(a, b *Material) (staticFriction, dynamicFriction, restitution float32) {
	return (a.staticFriction + b.staticFriction) / 2,
		(a.dynamicFriction + b.dynamicFriction) / 2,
		(a.restitution + b.restitution) / 2
}
