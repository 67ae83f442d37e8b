package collide

import (
	"fmt"

	"github.com/setanarut/v"
)

// IShape is the geometry class behind a Shape. Implementations cache their
// world-space data when the owning body moves and answer the cheap geometric
// queries the collision core needs; precise shape-vs-shape tests live in the
// narrow-phase kernels.
type IShape interface {
	// CacheData recomputes world-space data from a shape-to-world transform
	// and returns the world bounding box.
	CacheData(transform Transform) BB

	// IsConvex reports whether the geometry is convex. Concave geometry is
	// tested narrow-phase one convex feature at a time.
	IsConvex() bool

	// FeatureCount returns the number of convex sub-shape features. Convex
	// geometry has exactly one feature, with id 0.
	FeatureCount() int

	// FeatureBB returns the world bounding box of feature i, valid after the
	// last CacheData call.
	FeatureBB(i int) BB

	// SegmentQuery returns the fraction along the segment a->b at which the
	// geometry is hit, or infinity for a miss.
	SegmentQuery(a, b v.Vec) float64
}

const (
	// Order of the shape classes used to group narrow-phase batches.
	orderCircle = 0
	orderBox    = 1
	orderChain  = 2

	shapeOrderCount = 3
)

// Shape is the broad phase's tracked object: one collision shape attached to
// one body. It carries the broad-phase node id (-1 while untracked) and the
// reverse-lookup set of overlapping pairs it participates in.
type Shape struct {
	Class    IShape
	Body     *Body
	UserData any
	Filter   ShapeFilter

	localTransform Transform
	broadPhaseId   int32
	bb             BB
	pairs          map[uint64]struct{}
}

// NewShape wraps a geometry class into a tracked shape. The shape starts
// untracked; registering it with the broad phase assigns its node id.
func NewShape(class IShape) *Shape {
	return &Shape{
		Class:          class,
		Filter:         ShapeFilterAll,
		localTransform: NewTransformIdentity(),
		broadPhaseId:   -1,
		pairs:          make(map[uint64]struct{}),
	}
}

func (sh Shape) String() string {
	return fmt.Sprintf("%T", sh.Class)
}

// Order returns the narrow-phase grouping order of the shape's geometry class.
func (sh *Shape) Order() int {
	switch sh.Class.(type) {
	case *Circle:
		return orderCircle
	case *Box:
		return orderBox
	case *Chain:
		return orderChain
	default:
		return shapeOrderCount
	}
}

// IsConvex reports whether the shape's geometry is convex.
func (sh *Shape) IsConvex() bool {
	return sh.Class.IsConvex()
}

// BroadPhaseId returns the shape's node id in the dynamic tree, or -1 when
// the shape is not tracked.
func (sh *Shape) BroadPhaseId() int32 {
	return sh.broadPhaseId
}

// BB returns the world bounding box cached by the last Update.
func (sh *Shape) BB() BB {
	return sh.bb
}

// LocalTransform returns the shape-to-body transform.
func (sh *Shape) LocalTransform() Transform {
	return sh.localTransform
}

// SetLocalTransform sets the shape-to-body transform. The caller is
// responsible for refreshing the shape in the broad phase afterwards.
func (sh *Shape) SetLocalTransform(t Transform) {
	sh.localTransform = t
}

// WorldTransform returns the shape-to-world transform composed from the
// owning body's transform and the shape's local transform.
func (sh *Shape) WorldTransform() Transform {
	return sh.Body.Transform().Mult(sh.localTransform)
}

// Update recomputes the shape's world data for a given shape-to-world
// transform and caches the resulting bounding box.
func (sh *Shape) Update(transform Transform) BB {
	sh.bb = sh.Class.CacheData(transform)
	return sh.bb
}

// CacheBB recomputes and returns the shape's world bounding box from the
// owning body's current transform.
func (sh *Shape) CacheBB() BB {
	return sh.Update(sh.WorldTransform())
}

// Pairs returns the ids of the overlapping pairs this shape participates in.
// The returned map is owned by the shape; callers must copy it before
// mutating the registry.
func (sh *Shape) Pairs() map[uint64]struct{} {
	return sh.pairs
}

func (sh *Shape) addPair(pairId uint64) {
	_, present := sh.pairs[pairId]
	assert(!present, "pair ", pairId, " already registered on shape")
	sh.pairs[pairId] = struct{}{}
}

func (sh *Shape) removePair(pairId uint64) {
	_, present := sh.pairs[pairId]
	assert(present, "pair ", pairId, " not registered on shape")
	delete(sh.pairs, pairId)
}
