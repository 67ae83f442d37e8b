package collide

import (
	"github.com/setanarut/v"
)

// PairNotifyFunc receives one candidate overlapping pair discovered by the
// broad phase. The same unordered pair may be reported more than once per
// pass when both members moved; the receiver is expected to be idempotent.
type PairNotifyFunc func(shapeA, shapeB *Shape)

// RaycastFilterFunc receives every tracked shape whose fat bound the ray
// traverses, together with the current effective ray. It returns the hit
// fraction along the ray, negative for a miss, or 0 to terminate the cast.
type RaycastFilterFunc func(shape *Shape, ray Ray) float64

// BroadPhase tracks the registered shapes in a dynamic tree and remembers
// which of them moved since the last pair computation. Only moved shapes are
// re-queried for candidates: a pair is rediscovered when at least one member
// moved or was newly created, so stationary-vs-stationary pairs are never
// retested.
type BroadPhase struct {
	tree *DynamicTree

	// Node ids of the shapes that moved or were created since the last
	// ComputeOverlappingPairs call.
	moved map[int32]struct{}
}

// NewBroadPhase creates a broad phase whose tree fattens bounds by gap.
func NewBroadPhase(gap float64) *BroadPhase {
	return &BroadPhase{
		tree:  NewDynamicTree(gap),
		moved: make(map[int32]struct{}),
	}
}

// Tree exposes the underlying dynamic tree for spatial queries unrelated to
// simulation stepping.
func (bp *BroadPhase) Tree() *DynamicTree {
	return bp.tree
}

// Add registers a shape with the spatial index using its current world bound
// and marks it moved so the next pair computation discovers its overlaps.
func (bp *BroadPhase) Add(shape *Shape, bb BB) {
	assert(shape.broadPhaseId == -1, "shape already tracked")

	nodeId := bp.tree.Insert(bb, shape)
	shape.broadPhaseId = nodeId
	bp.moved[nodeId] = struct{}{}
}

// Remove unregisters a shape, removing it from the moved set if present.
// Dependent pairs are the registry's responsibility.
func (bp *BroadPhase) Remove(shape *Shape) {
	assert(shape.broadPhaseId != -1, "shape not tracked")

	nodeId := shape.broadPhaseId
	shape.broadPhaseId = -1
	bp.tree.Remove(nodeId)
	delete(bp.moved, nodeId)
}

// Refresh recomputes the shape's world bound from its current transform and,
// when a time step is in flight, a linear displacement estimate of
// timeStep * linear velocity. Pass timeStep 0 outside a dynamics step.
// If the shape escaped its fat bound and was reinserted it is marked moved.
func (bp *BroadPhase) Refresh(shape *Shape, timeStep float64) {
	if shape.broadPhaseId == -1 {
		return
	}

	var displacement v.Vec
	if timeStep != 0 && shape.Body.Type() != Static {
		displacement = shape.Body.Velocity().Scale(timeStep)
	}

	bb := shape.CacheBB()
	if bp.tree.Update(shape.broadPhaseId, bb, displacement) {
		bp.moved[shape.broadPhaseId] = struct{}{}
	}
}

// ComputeOverlappingPairs queries the tree for every shape marked moved since
// the previous call and reports each candidate pair through notify exactly
// once, skipping the reference node itself and candidates on the same owning
// body. A pair found from both of its moved members is still reported once.
// The moved set is cleared afterwards.
func (bp *BroadPhase) ComputeOverlappingPairs(notify PairNotifyFunc) {
	seen := make(map[uint64]struct{})

	for nodeId := range bp.moved {
		shape := bp.tree.Payload(nodeId)
		fatBB := bp.tree.FatBB(nodeId)

		bp.tree.Query(fatBB, func(otherId int32) bool {
			if otherId == nodeId {
				return true
			}
			other := bp.tree.Payload(otherId)
			if other.Body.Id() == shape.Body.Id() {
				return true
			}
			pairId := PairId(nodeId, otherId)
			if _, dup := seen[pairId]; dup {
				return true
			}
			seen[pairId] = struct{}{}
			notify(shape, other)
			return true
		})
	}

	clear(bp.moved)
}

// TestOverlap is a direct fat-bound intersection test between two tracked
// shapes, independent of the moved-shape bookkeeping. Untracked shapes never
// overlap.
func (bp *BroadPhase) TestOverlap(shapeA, shapeB *Shape) bool {
	if shapeA.broadPhaseId == -1 || shapeB.broadPhaseId == -1 {
		return false
	}
	return bp.tree.FatBB(shapeA.broadPhaseId).Intersects(bp.tree.FatBB(shapeB.broadPhaseId))
}

// QueryBB reports every tracked shape whose fat bound intersects bb.
// Returning false from fn terminates the query.
func (bp *BroadPhase) QueryBB(bb BB, fn func(shape *Shape) bool) {
	bp.tree.Query(bb, func(nodeId int32) bool {
		return fn(bp.tree.Payload(nodeId))
	})
}

// Raycast walks the tree along the ray and hands every candidate shape whose
// collision category matches mask to fn. fn's hit-fraction feedback shrinks
// the effective ray, so closest-hit casts terminate without exhaustive
// traversal.
func (bp *BroadPhase) Raycast(ray Ray, mask uint, fn RaycastFilterFunc) {
	bp.tree.Raycast(ray, func(r Ray, nodeId int32) float64 {
		shape := bp.tree.Payload(nodeId)
		if shape.Filter.Categories&mask == 0 {
			return -1
		}
		return fn(shape, r)
	})
}
