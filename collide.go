// Package collide implements the collision-detection core of a 2D rigid-body
// physics engine: a broad phase built on a dynamic bounding-volume tree, an
// overlapping-pair registry with per-feature collision history, and
// narrow-phase batching that accumulates contact points for an external
// solver.
//
// All structures are single threaded. A simulation step owns them exclusively
// from broad-phase refresh through contact aggregation; callers that want to
// parallelize narrow-phase work must provide their own synchronization.
package collide

import (
	"fmt"
	"math"
)

const (
	infinity     float64 = math.MaxFloat64
	magicEpsilon float64 = 1e-5
)

const (
	// DefaultBBGap is the margin added on every side of a shape's bounding box
	// before it is stored in the dynamic tree. The slack lets shapes jitter
	// without forcing a tree update every step.
	DefaultBBGap float64 = 0.1

	// DefaultPairCapacity is the initial slot count of the overlapping-pair
	// registry. Must be a power of two; the registry doubles from here.
	DefaultPairCapacity int = 64
)

const (
	// Value for group signifying that a shape is in no group.
	NoGroup uint = 0
	// Value for Shape categories signifying that a shape is in every category.
	AllCategories uint = ^uint(0)
)

// ShapeFilter holds the collision filtering information of a shape.
// Two shapes in the same non-zero group never collide. Otherwise a shape
// collides with another when its mask has a bit in common with the other's
// categories, both ways.
type ShapeFilter struct {
	Group            uint
	Categories, Mask uint
}

// ShapeFilterAll is a collision filter value for a shape that collides with
// anything except ShapeFilterNone.
var ShapeFilterAll = ShapeFilter{NoGroup, AllCategories, AllCategories}

// ShapeFilterNone is a collision filter value for a shape that does not
// collide with anything.
var ShapeFilterNone = ShapeFilter{NoGroup, ^AllCategories, ^AllCategories}

// Reject returns true if the two filters rule each other out.
func (sf ShapeFilter) Reject(other ShapeFilter) bool {
	return (sf.Group != 0 && sf.Group == other.Group) ||
		(sf.Categories&other.Mask) == 0 ||
		(other.Categories&sf.Mask) == 0
}

// assert enforces an internal invariant. There is no recoverable-error path
// for misuse of this package: a failed assertion means a broken call sequence
// that cannot be repaired locally.
func assert(truth bool, msg ...any) {
	if !truth {
		panic(fmt.Sprint("Assertion failed: ", fmt.Sprint(msg...)))
	}
}
