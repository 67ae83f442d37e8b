package collide

import (
	"math"

	"github.com/setanarut/v"
)

// ShapePairKind identifies a combination of geometry classes. Candidate pairs
// are grouped per kind so each specialized test runs over a dense,
// type-homogeneous batch instead of dispatching polymorphically per pair.
type ShapePairKind int

const (
	KindCircleCircle ShapePairKind = iota
	KindCircleBox
	KindCircleChain
	KindBoxBox
	KindBoxChain

	KindCount
)

// shapePairKind classifies two shapes, returning the batch kind and whether
// the shapes must be swapped to match the kind's canonical order. Chain-chain
// pairs are unsupported and return kind -1.
func shapePairKind(a, b *Shape) (kind ShapePairKind, swapped bool) {
	oa, ob := a.Order(), b.Order()
	if oa > ob {
		oa, ob = ob, oa
		swapped = true
	}
	switch {
	case oa == orderCircle && ob == orderCircle:
		kind = KindCircleCircle
	case oa == orderCircle && ob == orderBox:
		kind = KindCircleBox
	case oa == orderCircle && ob == orderChain:
		kind = KindCircleChain
	case oa == orderBox && ob == orderBox:
		kind = KindBoxBox
	case oa == orderBox && ob == orderChain:
		kind = KindBoxChain
	default:
		kind = -1
	}
	return kind, swapped
}

// NarrowPhaseFunc is a precise collision test for one batch entry. It reads
// the entry's shapes and transforms, sets the overlap result and appends
// contact points. Implementations may consult the entry's last-frame info to
// warm start and must refresh it for the next frame.
type NarrowPhaseFunc func(batch *NarrowPhaseBatch, index int)

// NarrowPhaseBatch collects the candidate pairs of one shape-pair kind that
// have to be tested during narrow-phase collision detection. Entry fields
// live in parallel slices. The batch is reset every frame after its contacts
// have been consumed; entries must not be retained across steps.
type NarrowPhaseBatch struct {
	Kind ShapePairKind

	PairIds      []uint64
	ShapesA      []*Shape
	ShapesB      []*Shape
	TransformsA  []Transform
	TransformsB  []Transform
	FeatureIdsA  []uint32
	FeatureIdsB  []uint32
	IsColliding  []bool
	ContactPts   [][]ContactPointInfo
	LastFrameInf []*LastFrameCollisionInfo

	// Capacity remembered across Clear calls so ReserveMemory can prime the
	// slices to last frame's size.
	cachedCapacity int
}

// NewNarrowPhaseBatch creates an empty batch for one shape-pair kind.
func NewNarrowPhaseBatch(kind ShapePairKind) *NarrowPhaseBatch {
	return &NarrowPhaseBatch{Kind: kind}
}

// Count returns the number of entries in the batch.
func (batch *NarrowPhaseBatch) Count() int {
	return len(batch.PairIds)
}

// AddEntry appends a candidate pair awaiting precise testing. It performs no
// geometry test itself. lastFrame may be nil when no history exists.
func (batch *NarrowPhaseBatch) AddEntry(pairId uint64, shapeA, shapeB *Shape,
	transformA, transformB Transform, featureIdA, featureIdB uint32,
	lastFrame *LastFrameCollisionInfo) {

	batch.PairIds = append(batch.PairIds, pairId)
	batch.ShapesA = append(batch.ShapesA, shapeA)
	batch.ShapesB = append(batch.ShapesB, shapeB)
	batch.TransformsA = append(batch.TransformsA, transformA)
	batch.TransformsB = append(batch.TransformsB, transformB)
	batch.FeatureIdsA = append(batch.FeatureIdsA, featureIdA)
	batch.FeatureIdsB = append(batch.FeatureIdsB, featureIdB)
	batch.IsColliding = append(batch.IsColliding, false)
	batch.ContactPts = append(batch.ContactPts, nil)
	batch.LastFrameInf = append(batch.LastFrameInf, lastFrame)
}

// AddContactPoint appends a contact to entry index's contact list. Multi
// point manifolds call it once per point.
func (batch *NarrowPhaseBatch) AddContactPoint(index int, normal v.Vec, penetrationDepth float64, localPtA, localPtB v.Vec) {
	batch.ContactPts[index] = append(batch.ContactPts[index], ContactPointInfo{
		Normal:           normal,
		PenetrationDepth: penetrationDepth,
		LocalPointA:      localPtA,
		LocalPointB:      localPtB,
	})
}

// ResetContactPoints clears accumulated points for one entry without removing
// the entry, so a deeper test can supersede a cheaper one.
func (batch *NarrowPhaseBatch) ResetContactPoints(index int) {
	batch.ContactPts[index] = batch.ContactPts[index][:0]
	batch.IsColliding[index] = false
}

// ReserveMemory primes the slices using the capacity observed before the last
// Clear.
func (batch *NarrowPhaseBatch) ReserveMemory() {
	n := batch.cachedCapacity
	if n == 0 || batch.PairIds != nil {
		return
	}
	batch.PairIds = make([]uint64, 0, n)
	batch.ShapesA = make([]*Shape, 0, n)
	batch.ShapesB = make([]*Shape, 0, n)
	batch.TransformsA = make([]Transform, 0, n)
	batch.TransformsB = make([]Transform, 0, n)
	batch.FeatureIdsA = make([]uint32, 0, n)
	batch.FeatureIdsB = make([]uint32, 0, n)
	batch.IsColliding = make([]bool, 0, n)
	batch.ContactPts = make([][]ContactPointInfo, 0, n)
	batch.LastFrameInf = make([]*LastFrameCollisionInfo, 0, n)
}

// Clear drops all entries between frames, remembering the size for the next
// ReserveMemory.
func (batch *NarrowPhaseBatch) Clear() {
	batch.cachedCapacity = len(batch.PairIds)
	batch.PairIds = nil
	batch.ShapesA = nil
	batch.ShapesB = nil
	batch.TransformsA = nil
	batch.TransformsB = nil
	batch.FeatureIdsA = nil
	batch.FeatureIdsB = nil
	batch.IsColliding = nil
	batch.ContactPts = nil
	batch.LastFrameInf = nil
}

// builtinNarrowPhaseFuncs holds the default test kernel per shape-pair kind.
// Kinds left nil produce no contacts until a kernel is registered.
var builtinNarrowPhaseFuncs = [KindCount]NarrowPhaseFunc{
	KindCircleCircle: circleToCircle,
	KindCircleChain:  circleToChainSegment,
}

// circleToCircle tests two circles and produces a single contact point.
func circleToCircle(batch *NarrowPhaseBatch, index int) {
	c1 := batch.ShapesA[index].Class.(*Circle)
	c2 := batch.ShapesB[index].Class.(*Circle)

	mindist := c1.radius + c2.radius
	delta := c2.transformC.Sub(c1.transformC)
	distsq := delta.MagSq()

	if distsq >= mindist*mindist {
		batch.finishEntry(index, false, v.Vec{})
		return
	}

	dist := math.Sqrt(distsq)
	n := v.Vec{X: 1, Y: 0}
	if dist != 0 {
		n = delta.Scale(1.0 / dist)
	}

	pa := c1.transformC.Add(n.Scale(c1.radius))
	pb := c2.transformC.Add(n.Scale(-c2.radius))
	batch.IsColliding[index] = true
	batch.AddContactPoint(index, n, mindist-dist,
		NewTransformRigidInverse(batch.TransformsA[index]).Apply(pa),
		NewTransformRigidInverse(batch.TransformsB[index]).Apply(pb))
	batch.finishEntry(index, true, n)
}

// circleToChainSegment tests a circle against one chain feature segment.
func circleToChainSegment(batch *NarrowPhaseBatch, index int) {
	circle := batch.ShapesA[index].Class.(*Circle)
	chain := batch.ShapesB[index].Class.(*Chain)

	segA, segB := chain.Feature(int(batch.FeatureIdsB[index]))
	center := circle.transformC

	segDelta := segB.Sub(segA)
	closestT := clamp01(segDelta.Dot(center.Sub(segA)) / segDelta.MagSq())
	closest := segA.Add(segDelta.Scale(closestT))

	mindist := circle.radius + chain.radius
	delta := closest.Sub(center)
	distsq := delta.MagSq()

	if distsq >= mindist*mindist {
		batch.finishEntry(index, false, v.Vec{})
		return
	}

	dist := math.Sqrt(distsq)
	n := v.Vec{X: 0, Y: 1}
	if dist != 0 {
		n = delta.Scale(1.0 / dist)
	}

	pa := center.Add(n.Scale(circle.radius))
	pb := closest.Add(n.Scale(-chain.radius))
	batch.IsColliding[index] = true
	batch.AddContactPoint(index, n, mindist-dist,
		NewTransformRigidInverse(batch.TransformsA[index]).Apply(pa),
		NewTransformRigidInverse(batch.TransformsB[index]).Apply(pb))
	batch.finishEntry(index, true, n)
}

// finishEntry refreshes the entry's last-frame info with this frame's result.
func (batch *NarrowPhaseBatch) finishEntry(index int, colliding bool, axis v.Vec) {
	if info := batch.LastFrameInf[index]; info != nil {
		info.WasColliding = colliding
		if colliding {
			info.SeparatingAxis = axis
		}
	}
}

func clamp01(f float64) float64 {
	return math.Max(0, math.Min(f, 1))
}
