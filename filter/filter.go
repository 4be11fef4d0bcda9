package filter

import "strings"

// Kind is the simulation kind of an object taking part in collision filtering.
type Kind uint8

const (
	KindStatic Kind = iota
	KindDynamic
)

// Attributes are the classification attributes attached to a body when it is created. They are only
// consumed by a Policy.
type Attributes struct {
	Kind Kind
	// Group overrides the category/mask check for two objects of the same non-zero group: a positive
	// group always collides, a negative group never does.
	Group int16
	// Category is the set of categories the object belongs to.
	Category uint32
	// Mask is the set of categories the object collides with.
	Mask uint32
}

// DefaultAttributes returns attributes that collide with everything.
func DefaultAttributes(kind Kind) Attributes {
	return Attributes{Kind: kind, Category: 1, Mask: ^uint32(0)}
}

// Flags describe how a pair of objects is resolved and which contact reports are emitted for it.
type Flags uint16

const (
	// FlagSolve resolves the contacts of the pair physically.
	FlagSolve Flags = 1 << iota
	// FlagDetect generates contacts for the pair.
	FlagDetect
	// FlagTouchFound reports the step in which the pair starts touching.
	FlagTouchFound
	// FlagTouchPersists reports every step in which the pair keeps touching.
	FlagTouchPersists
	// FlagTouchLost reports the step in which the pair stops touching.
	FlagTouchLost
	// FlagContactPoints includes per-point position and impulse data in reports.
	FlagContactPoints
)

// ReportAll resolves the pair and reports initial and persisting touches with per-point data.
const ReportAll = FlagSolve | FlagDetect | FlagTouchFound | FlagTouchPersists | FlagContactPoints

// Has returns true if all flags in o are set in f.
func (f Flags) Has(o Flags) bool {
	return f&o == o
}

func (f Flags) String() string {
	names := []string{"solve", "detect", "touch_found", "touch_persists", "touch_lost", "contact_points"}
	var set []string
	for i, name := range names {
		if f&(1<<i) != 0 {
			set = append(set, name)
		}
	}
	return "[" + strings.Join(set, "|") + "]"
}

// Policy decides whether a pair of objects is resolved at all and which reports are requested for
// it. Implementations must be pure: they are called concurrently from the narrow phase workers.
type Policy interface {
	Filter(a, b Attributes) (Flags, bool)
}

// PolicyFunc is a function implementing Policy.
type PolicyFunc func(a, b Attributes) (Flags, bool)

// Filter ...
func (f PolicyFunc) Filter(a, b Attributes) (Flags, bool) {
	return f(a, b)
}

// ContactReport is the permissive policy: the attributes of the pair are ignored, every pair is
// resolved and full reporting is always granted.
type ContactReport struct{}

// Filter ...
func (ContactReport) Filter(Attributes, Attributes) (Flags, bool) {
	return ReportAll, true
}

// GroupMask is a policy that resolves pairs based on their group, category and mask. Pairs of two
// static objects are never resolved.
type GroupMask struct {
	// Report holds the flags granted to eligible pairs. ReportAll is used if zero.
	Report Flags
}

// Filter ...
func (g GroupMask) Filter(a, b Attributes) (Flags, bool) {
	if a.Kind == KindStatic && b.Kind == KindStatic {
		return 0, false
	}
	report := g.Report
	if report == 0 {
		report = ReportAll
	}
	if a.Group == b.Group && a.Group != 0 {
		return report, a.Group > 0
	}
	if a.Mask&b.Category == 0 || a.Category&b.Mask == 0 {
		return 0, false
	}
	return report, true
}
