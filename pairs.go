package collide

import (
	"github.com/setanarut/v"
)

// PairId computes the unique 64-bit identity of an unordered pair of
// broad-phase node ids. The combination is symmetric, so PairId(a, b) equals
// PairId(b, a), and collision free for the lifetime of both nodes.
func PairId(idA, idB int32) uint64 {
	a, b := uint64(uint32(idA)), uint64(uint32(idB))
	if a < b {
		a, b = b, a
	}
	// Triangular pairing of (max, min).
	return a*(a+1)/2 + b
}

// ShapeIdPair is an ordered pair of shape-local feature ids keying the
// last-frame collision info of an overlapping pair. Convex shapes have a
// single feature with id 0; concave shapes key one entry per sub-shape.
type ShapeIdPair struct {
	IdA, IdB uint32
}

// LastFrameCollisionInfo persists the narrow-phase outcome for one feature
// pair across frames so the solver can be warm started. An entry not touched
// during a full broad-phase pass is marked obsolete and purged at the start
// of the next pass: untouched information survives exactly one frame.
type LastFrameCollisionInfo struct {
	// WasColliding is the narrow-phase result of the previous frame.
	WasColliding bool

	// SeparatingAxis is the last separating (or contact) axis found, used to
	// seed the next precise test.
	SeparatingAxis v.Vec

	// WasUsingGJK records whether the previous test resolved with a simplex
	// walk, so a registered kernel can resume the cheaper path first.
	WasUsingGJK bool

	// Accumulated impulses of the previous frame's solve.
	NormalImpulse  float64
	TangentImpulse float64

	isObsolete bool
}

// bodyPair is the unordered identity of two bodies, used for the
// no-collision exclusion set.
type bodyPair struct {
	idA, idB int
}

func makeBodyPair(a, b *Body) bodyPair {
	if a.Id() < b.Id() {
		return bodyPair{a.Id(), b.Id()}
	}
	return bodyPair{b.Id(), a.Id()}
}

// OverlappingPairs owns the canonical set of candidate pairs reported by the
// broad phase. Pair fields live in parallel slices kept tightly packed and
// partitioned: indices below concaveStart are convex-vs-convex pairs, the
// rest are convex-vs-concave, with no holes at any point in time. The backing
// slices share one power-of-two capacity and grow by doubling.
type OverlappingPairs struct {
	ids          []uint64
	broadIdsA    []int32
	broadIdsB    []int32
	shapesA      []*Shape
	shapesB      []*Shape
	lastFrame    []map[ShapeIdPair]*LastFrameCollisionInfo
	needTest     []bool
	active       []bool
	count        int
	concaveStart int
	capacity     int

	indexOf map[uint64]int

	// Body pairs explicitly excluded from colliding with each other.
	noCollision map[bodyPair]struct{}
}

// NewOverlappingPairs creates an empty registry with the given initial
// capacity, which must be a positive power of two.
func NewOverlappingPairs(capacity int) *OverlappingPairs {
	assert(capacity > 0 && capacity&(capacity-1) == 0, "capacity must be a power of two")
	op := &OverlappingPairs{
		indexOf:     make(map[uint64]int),
		noCollision: make(map[bodyPair]struct{}),
	}
	op.allocate(capacity)
	return op
}

// Count returns the number of live pairs.
func (op *OverlappingPairs) Count() int {
	return op.count
}

// ConcaveStart returns the partition boundary: the index of the first
// convex-vs-concave pair.
func (op *OverlappingPairs) ConcaveStart() int {
	return op.concaveStart
}

// Capacity returns the current slot capacity of the backing store.
func (op *OverlappingPairs) Capacity() int {
	return op.capacity
}

// Contains reports whether a pair with the given identity is registered.
func (op *OverlappingPairs) Contains(pairId uint64) bool {
	_, ok := op.indexOf[pairId]
	return ok
}

// allocate grows the backing store to a new capacity, copying all live pair
// fields into the new layout preserving relative order.
func (op *OverlappingPairs) allocate(capacity int) {
	assert(capacity > op.capacity, "allocate must grow")

	ids := make([]uint64, capacity)
	broadIdsA := make([]int32, capacity)
	broadIdsB := make([]int32, capacity)
	shapesA := make([]*Shape, capacity)
	shapesB := make([]*Shape, capacity)
	lastFrame := make([]map[ShapeIdPair]*LastFrameCollisionInfo, capacity)
	needTest := make([]bool, capacity)
	active := make([]bool, capacity)

	copy(ids, op.ids[:op.count])
	copy(broadIdsA, op.broadIdsA[:op.count])
	copy(broadIdsB, op.broadIdsB[:op.count])
	copy(shapesA, op.shapesA[:op.count])
	copy(shapesB, op.shapesB[:op.count])
	copy(lastFrame, op.lastFrame[:op.count])
	copy(needTest, op.needTest[:op.count])
	copy(active, op.active[:op.count])

	op.ids = ids
	op.broadIdsA = broadIdsA
	op.broadIdsB = broadIdsB
	op.shapesA = shapesA
	op.shapesB = shapesB
	op.lastFrame = lastFrame
	op.needTest = needTest
	op.active = active
	op.capacity = capacity
}

// prepareAdd computes the insertion index for a new pair, growing the store
// if full and maintaining the convex/concave partition: convex-vs-convex
// pairs are inserted at the partition boundary after relocating the first
// concave pair to the end of the array.
func (op *OverlappingPairs) prepareAdd(isConvexVsConvex bool) int {
	if op.count == op.capacity {
		op.allocate(op.capacity * 2)
	}

	if !isConvexVsConvex {
		return op.count
	}

	if op.concaveStart != op.count {
		// Move the first convex-vs-concave pair out of the way.
		op.moveTo(op.concaveStart, op.count)
	}
	index := op.concaveStart
	op.concaveStart++
	return index
}

// AddPair registers a new candidate pair and returns its identity. The pair
// must not already exist. isActive should come from IsPairActive at
// discovery time.
func (op *OverlappingPairs) AddPair(shapeA, shapeB *Shape, isActive bool) uint64 {
	assert(shapeA.broadPhaseId != -1, "shape A not tracked")
	assert(shapeB.broadPhaseId != -1, "shape B not tracked")

	isConvexVsConvex := shapeA.IsConvex() && shapeB.IsConvex()
	index := op.prepareAdd(isConvexVsConvex)

	pairId := PairId(shapeA.broadPhaseId, shapeB.broadPhaseId)
	_, present := op.indexOf[pairId]
	assert(!present, "pair ", pairId, " already exists")

	// Keep the concave member in the B slot so narrow-phase batching can rely
	// on the ordering.
	if !shapeA.IsConvex() && shapeB.IsConvex() {
		shapeA, shapeB = shapeB, shapeA
	}

	op.ids[index] = pairId
	op.broadIdsA[index] = shapeA.broadPhaseId
	op.broadIdsB[index] = shapeB.broadPhaseId
	op.shapesA[index] = shapeA
	op.shapesB[index] = shapeB
	op.lastFrame[index] = make(map[ShapeIdPair]*LastFrameCollisionInfo)
	op.needTest[index] = true
	op.active[index] = isActive

	op.indexOf[pairId] = index

	shapeA.addPair(pairId)
	shapeB.addPair(pairId)

	op.count++

	assert(op.concaveStart <= op.count, "partition boundary past count")
	assert(op.count == len(op.indexOf), "count and index map diverged")

	return pairId
}

// RemovePair releases the pair's collision history, detaches it from both
// shapes and removes its slot while preserving the partition invariant. A
// removed concave slot is filled by the last concave slot; a removed convex
// slot is filled by the last convex slot, whose vacated position is in turn
// filled by the last concave slot.
func (op *OverlappingPairs) RemovePair(pairId uint64) {
	index, present := op.indexOf[pairId]
	assert(present, "pair ", pairId, " not registered")
	assert(index < op.count, "pair index out of range")

	op.shapesA[index].removePair(pairId)
	op.shapesB[index].removePair(pairId)

	op.destroy(index)

	if index >= op.concaveStart {
		// Convex-vs-concave zone.
		if index != op.count-1 {
			op.moveTo(op.count-1, index)
		}
	} else {
		// Convex-vs-convex zone.
		if index != op.concaveStart-1 {
			op.moveTo(op.concaveStart-1, index)
		}
		if op.concaveStart != op.count {
			op.moveTo(op.count-1, op.concaveStart-1)
		}
		op.concaveStart--
	}

	op.count--

	assert(op.concaveStart <= op.count, "partition boundary past count")
	assert(op.count == len(op.indexOf), "count and index map diverged")
}

// moveTo relocates the pair at srcIndex to destIndex. The destination slot
// must already have been destroyed.
func (op *OverlappingPairs) moveTo(srcIndex, destIndex int) {
	pairId := op.ids[srcIndex]

	op.ids[destIndex] = op.ids[srcIndex]
	op.broadIdsA[destIndex] = op.broadIdsA[srcIndex]
	op.broadIdsB[destIndex] = op.broadIdsB[srcIndex]
	op.shapesA[destIndex] = op.shapesA[srcIndex]
	op.shapesB[destIndex] = op.shapesB[srcIndex]
	op.lastFrame[destIndex] = op.lastFrame[srcIndex]
	op.needTest[destIndex] = op.needTest[srcIndex]
	op.active[destIndex] = op.active[srcIndex]

	op.destroy(srcIndex)

	op.indexOf[pairId] = destIndex
}

// destroy clears the slot at index and unmaps its identity. The slices stay
// packed only because callers immediately fill the hole.
func (op *OverlappingPairs) destroy(index int) {
	assert(index < op.count, "destroying out-of-range slot")
	delete(op.indexOf, op.ids[index])
	op.shapesA[index] = nil
	op.shapesB[index] = nil
	op.lastFrame[index] = nil
}

// PairAt returns the two shapes of the pair stored at a packed index.
// Valid indices are [0, Count()).
func (op *OverlappingPairs) PairAt(index int) (*Shape, *Shape) {
	assert(index < op.count, "pair index out of range")
	return op.shapesA[index], op.shapesB[index]
}

// PairIdAt returns the identity of the pair stored at a packed index.
func (op *OverlappingPairs) PairIdAt(index int) uint64 {
	assert(index < op.count, "pair index out of range")
	return op.ids[index]
}

// IsActiveAt returns the activity flag of the pair at a packed index.
func (op *OverlappingPairs) IsActiveAt(index int) bool {
	assert(index < op.count, "pair index out of range")
	return op.active[index]
}

// SetActive updates the activity flag of a pair.
func (op *OverlappingPairs) SetActive(pairId uint64, isActive bool) {
	index, present := op.indexOf[pairId]
	assert(present, "pair ", pairId, " not registered")
	op.active[index] = isActive
}

// NeedToTestOverlap returns the flag marking that the pair's overlap must be
// retested narrow phase.
func (op *OverlappingPairs) NeedToTestOverlap(pairId uint64) bool {
	index, present := op.indexOf[pairId]
	assert(present, "pair ", pairId, " not registered")
	return op.needTest[index]
}

// SetNeedToTestOverlap updates the retest flag of a pair.
func (op *OverlappingPairs) SetNeedToTestOverlap(pairId uint64, need bool) {
	index, present := op.indexOf[pairId]
	assert(present, "pair ", pairId, " not registered")
	op.needTest[index] = need
}

// SetBodiesCanCollide removes (canCollide false) or restores (true) the
// ability of two bodies to generate collisions with each other. Existing
// pairs are not purged here; they turn inactive through IsPairActive.
func (op *OverlappingPairs) SetBodiesCanCollide(bodyA, bodyB *Body, canCollide bool) {
	key := makeBodyPair(bodyA, bodyB)
	if canCollide {
		delete(op.noCollision, key)
	} else {
		op.noCollision[key] = struct{}{}
	}
}

// IsPairActive returns false if both owning bodies are static, disabled or
// asleep, or if the body pair is excluded from colliding; otherwise true.
func (op *OverlappingPairs) IsPairActive(shapeA, shapeB *Shape) bool {
	bodyA := shapeA.Body
	bodyB := shapeB.Body

	if bodyA.isStaticOrInactive() && bodyB.isStaticOrInactive() {
		return false
	}
	if _, excluded := op.noCollision[makeBodyPair(bodyA, bodyB)]; excluded {
		return false
	}
	return true
}

// UpdateActivity recomputes the activity flag of every pair from the current
// body states. Run once per step before narrow-phase batching.
func (op *OverlappingPairs) UpdateActivity() {
	for i := 0; i < op.count; i++ {
		op.active[i] = op.IsPairActive(op.shapesA[i], op.shapesB[i])
	}
}

// GetOrCreateLastFrameInfo returns the cached collision info of a feature
// pair, clearing its obsolescence mark, or inserts a fresh entry. Touching an
// entry this way is what keeps it alive across sweeps.
func (op *OverlappingPairs) GetOrCreateLastFrameInfo(pairId uint64, featureIdA, featureIdB uint32) *LastFrameCollisionInfo {
	index, present := op.indexOf[pairId]
	assert(present, "pair ", pairId, " not registered")

	key := ShapeIdPair{featureIdA, featureIdB}
	if info, ok := op.lastFrame[index][key]; ok {
		info.isObsolete = false
		return info
	}

	info := &LastFrameCollisionInfo{}
	op.lastFrame[index][key] = info
	return info
}

// LastFrameInfo returns the cached collision info of a feature pair without
// touching it, or nil.
func (op *OverlappingPairs) LastFrameInfo(pairId uint64, featureIdA, featureIdB uint32) *LastFrameCollisionInfo {
	index, present := op.indexOf[pairId]
	assert(present, "pair ", pairId, " not registered")
	return op.lastFrame[index][ShapeIdPair{featureIdA, featureIdB}]
}

// SweepObsoleteLastFrameInfos deletes every cached feature entry not touched
// since the previous sweep and marks all survivors obsolete again, to be
// cleared only if touched before the next sweep. Run once per broad-phase
// pass; with the touch in GetOrCreateLastFrameInfo this gives unused entries
// a one-frame grace period.
func (op *OverlappingPairs) SweepObsoleteLastFrameInfos() {
	for i := 0; i < op.count; i++ {
		for key, info := range op.lastFrame[i] {
			if info.isObsolete {
				delete(op.lastFrame[i], key)
			} else {
				info.isObsolete = true
			}
		}
	}
}
