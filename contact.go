package collide

import (
	"github.com/setanarut/v"
)

// ContactPointInfo is one contact point produced by a narrow-phase test.
// Local points are expressed in each shape's local space so they stay
// meaningful while the bodies keep moving during the solve.
type ContactPointInfo struct {
	Normal           v.Vec
	PenetrationDepth float64
	LocalPointA      v.Vec
	LocalPointB      v.Vec
}

// ContactManifoldInfo is one group of contact points sharing a contact
// surface, stored as a range into the flat contact-point array.
type ContactManifoldInfo struct {
	PointsIndex int
	NbPoints    int
}

// ContactPair is the per-frame record connecting an overlapping pair to its
// contact manifolds, consumed by the external solver and island builder.
type ContactPair struct {
	// Identity of the overlapping pair.
	PairId uint64

	BodyA, BodyB   *Body
	ShapeA, ShapeB *Shape

	// Indices of this pair's manifolds in the frame's flat manifold array.
	ManifoldIndices []int

	// Index of the pair's first contact point in the flat point array and
	// the total point count across all its manifolds.
	ContactPointsIndex   int
	NbTotalContactPoints int

	// Index of this record in the frame's contact-pair array.
	ContactPairIndex int

	// Set by the island builder once the pair has been merged into an island.
	IsAlreadyInIsland bool
}

// ContactState is the per-frame aggregation of narrow-phase output: flat
// arrays of contact points and manifolds plus one ContactPair per overlapping
// pair that produced contacts. Rebuilt every step; keep no references across
// steps.
type ContactState struct {
	Points    []ContactPointInfo
	Manifolds []ContactManifoldInfo
	Pairs     []ContactPair

	pairIndex map[uint64]int
}

// NewContactState creates an empty contact aggregation.
func NewContactState() *ContactState {
	return &ContactState{pairIndex: make(map[uint64]int)}
}

// Clear resets the state for a new frame, keeping the backing storage.
func (cs *ContactState) Clear() {
	cs.Points = cs.Points[:0]
	cs.Manifolds = cs.Manifolds[:0]
	cs.Pairs = cs.Pairs[:0]
	clear(cs.pairIndex)
}

// ContactPairFor returns the frame's contact pair for an overlapping-pair
// identity, or nil when it produced no contacts.
func (cs *ContactState) ContactPairFor(pairId uint64) *ContactPair {
	if i, ok := cs.pairIndex[pairId]; ok {
		return &cs.Pairs[i]
	}
	return nil
}

// addBatch folds every colliding entry of a narrow-phase batch into the flat
// arrays, creating one manifold per entry and one contact pair per distinct
// overlapping pair. Concave pairs contribute one manifold per tested feature.
func (cs *ContactState) addBatch(batch *NarrowPhaseBatch) {
	for i := 0; i < batch.Count(); i++ {
		if !batch.IsColliding[i] || len(batch.ContactPts[i]) == 0 {
			continue
		}

		pairId := batch.PairIds[i]
		pairIdx, ok := cs.pairIndex[pairId]
		if !ok {
			pairIdx = len(cs.Pairs)
			cs.pairIndex[pairId] = pairIdx
			cs.Pairs = append(cs.Pairs, ContactPair{
				PairId:             pairId,
				BodyA:              batch.ShapesA[i].Body,
				BodyB:              batch.ShapesB[i].Body,
				ShapeA:             batch.ShapesA[i],
				ShapeB:             batch.ShapesB[i],
				ContactPointsIndex: len(cs.Points),
				ContactPairIndex:   pairIdx,
			})
		}

		manifold := ContactManifoldInfo{
			PointsIndex: len(cs.Points),
			NbPoints:    len(batch.ContactPts[i]),
		}
		cs.Points = append(cs.Points, batch.ContactPts[i]...)
		manifoldIdx := len(cs.Manifolds)
		cs.Manifolds = append(cs.Manifolds, manifold)

		pair := &cs.Pairs[pairIdx]
		pair.ManifoldIndices = append(pair.ManifoldIndices, manifoldIdx)
		pair.NbTotalContactPoints += manifold.NbPoints
	}
}
