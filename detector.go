package collide

// Detector wires the collision pipeline together: broad-phase refresh,
// overlap discovery, pair bookkeeping, narrow-phase batching and contact
// aggregation. One Step runs the whole pipeline sequentially; the contact
// state it produces is valid until the next Step.
type Detector struct {
	broadPhase *BroadPhase
	pairs      *OverlappingPairs
	contacts   *ContactState

	shapes []*Shape

	batches          [KindCount]*NarrowPhaseBatch
	narrowPhaseFuncs [KindCount]NarrowPhaseFunc
}

// NewDetector creates a detector with the default bounding-box gap and pair
// capacity.
func NewDetector() *Detector {
	return NewDetectorWith(DefaultBBGap, DefaultPairCapacity)
}

// NewDetectorWith creates a detector with an explicit tree gap margin and
// initial pair capacity. Both are fixed for the detector's lifetime.
func NewDetectorWith(gap float64, pairCapacity int) *Detector {
	d := &Detector{
		broadPhase:       NewBroadPhase(gap),
		pairs:            NewOverlappingPairs(pairCapacity),
		contacts:         NewContactState(),
		narrowPhaseFuncs: builtinNarrowPhaseFuncs,
	}
	for kind := ShapePairKind(0); kind < KindCount; kind++ {
		d.batches[kind] = NewNarrowPhaseBatch(kind)
	}
	return d
}

// BroadPhase returns the broad-phase coordinator for direct spatial queries.
func (d *Detector) BroadPhase() *BroadPhase {
	return d.broadPhase
}

// Pairs returns the overlapping-pair registry.
func (d *Detector) Pairs() *OverlappingPairs {
	return d.pairs
}

// Contacts returns the contact state produced by the last Step.
func (d *Detector) Contacts() *ContactState {
	return d.contacts
}

// RegisterNarrowPhaseFunc installs the precise test kernel for one shape-pair
// kind, replacing the builtin (or absent) one. Batches of a kind with no
// kernel registered report no contacts.
func (d *Detector) RegisterNarrowPhaseFunc(kind ShapePairKind, fn NarrowPhaseFunc) {
	d.narrowPhaseFuncs[kind] = fn
}

// AttachShape starts tracking a shape that has been attached to a body. The
// shape registers with the spatial index under its current world bound and is
// discovered by the next Step.
func (d *Detector) AttachShape(shape *Shape) {
	assert(shape.Body != nil, "shape has no body")
	assert(shape.broadPhaseId == -1, "shape already attached")

	bb := shape.CacheBB()
	d.broadPhase.Add(shape, bb)
	d.shapes = append(d.shapes, shape)
}

// DetachShape stops tracking a shape: its node leaves the spatial index and
// every pair it participates in is purged, history included.
func (d *Detector) DetachShape(shape *Shape) {
	assert(shape.broadPhaseId != -1, "shape not attached")

	// Copy before mutating: RemovePair edits the shape's pair set.
	pairIds := make([]uint64, 0, len(shape.pairs))
	for pairId := range shape.pairs {
		pairIds = append(pairIds, pairId)
	}
	for _, pairId := range pairIds {
		d.pairs.RemovePair(pairId)
	}

	d.broadPhase.Remove(shape)
	for i, s := range d.shapes {
		if s == shape {
			d.shapes = append(d.shapes[:i], d.shapes[i+1:]...)
			break
		}
	}
}

// SetBodiesCanCollide excludes two bodies from colliding with each other, or
// restores them. Existing pairs turn inactive rather than being purged.
func (d *Detector) SetBodiesCanCollide(bodyA, bodyB *Body, canCollide bool) {
	d.pairs.SetBodiesCanCollide(bodyA, bodyB, canCollide)
}

// Step runs one collision-detection pass. timeStep scales the linear-velocity
// displacement estimate used to sweep fat bounds; pass 0 when no dynamics
// step is in flight.
func (d *Detector) Step(timeStep float64) {
	// Purge feature history that went untouched through the previous pass.
	d.pairs.SweepObsoleteLastFrameInfos()

	d.computeBroadPhase(timeStep)
	d.computeMiddlePhase()
	d.computeNarrowPhase()
}

func (d *Detector) computeBroadPhase(timeStep float64) {
	for _, shape := range d.shapes {
		d.broadPhase.Refresh(shape, timeStep)
	}
	d.broadPhase.ComputeOverlappingPairs(d.notifyOverlappingPair)
}

// notifyOverlappingPair receives broad-phase candidates. Rediscovery of an
// existing pair only flags it for retesting; the registry add is idempotent
// at this level.
func (d *Detector) notifyOverlappingPair(shapeA, shapeB *Shape) {
	if shapeA.Filter.Reject(shapeB.Filter) {
		return
	}

	pairId := PairId(shapeA.broadPhaseId, shapeB.broadPhaseId)
	if d.pairs.Contains(pairId) {
		d.pairs.SetNeedToTestOverlap(pairId, true)
		return
	}
	d.pairs.AddPair(shapeA, shapeB, d.pairs.IsPairActive(shapeA, shapeB))
}

// computeMiddlePhase drops pairs whose fat bounds separated, refreshes
// activity and dispatches the survivors into per-kind narrow-phase batches.
func (d *Detector) computeMiddlePhase() {
	// Collect first: removal shuffles the packed slots.
	var separated []uint64
	for i := 0; i < d.pairs.Count(); i++ {
		shapeA, shapeB := d.pairs.PairAt(i)
		if !d.broadPhase.TestOverlap(shapeA, shapeB) {
			separated = append(separated, d.pairs.PairIdAt(i))
		}
	}
	for _, pairId := range separated {
		d.pairs.RemovePair(pairId)
	}

	d.pairs.UpdateActivity()

	for i := 0; i < d.pairs.Count(); i++ {
		if !d.pairs.IsActiveAt(i) {
			continue
		}
		d.batchPair(i)
	}
}

// batchPair appends the batch entries of the pair at a packed index: one
// entry for a convex pair, one entry per overlapping feature for a
// convex-vs-concave pair.
func (d *Detector) batchPair(index int) {
	pairId := d.pairs.PairIdAt(index)
	shapeA, shapeB := d.pairs.PairAt(index)

	kind, swapped := shapePairKind(shapeA, shapeB)
	if kind < 0 {
		// Concave vs concave: no kernel can test it.
		return
	}
	if swapped {
		shapeA, shapeB = shapeB, shapeA
	}

	batch := d.batches[kind]
	transformA := shapeA.WorldTransform()
	transformB := shapeB.WorldTransform()

	if shapeB.IsConvex() {
		info := d.pairs.GetOrCreateLastFrameInfo(pairId, 0, 0)
		batch.AddEntry(pairId, shapeA, shapeB, transformA, transformB, 0, 0, info)
	} else {
		// Test the convex shape against every concave feature whose bound
		// overlaps it.
		bbA := shapeA.BB()
		for f := 0; f < shapeB.Class.FeatureCount(); f++ {
			if !shapeB.Class.FeatureBB(f).Intersects(bbA) {
				continue
			}
			info := d.pairs.GetOrCreateLastFrameInfo(pairId, 0, uint32(f))
			batch.AddEntry(pairId, shapeA, shapeB, transformA, transformB, 0, uint32(f), info)
		}
	}

	d.pairs.SetNeedToTestOverlap(pairId, false)
}

// computeNarrowPhase runs each kind's kernel over its dense batch and folds
// the results into the frame's contact state.
func (d *Detector) computeNarrowPhase() {
	d.contacts.Clear()

	for kind := ShapePairKind(0); kind < KindCount; kind++ {
		batch := d.batches[kind]
		fn := d.narrowPhaseFuncs[kind]
		if fn != nil {
			for i := 0; i < batch.Count(); i++ {
				fn(batch, i)
			}
		}
		d.contacts.addBatch(batch)
		batch.Clear()
		batch.ReserveMemory()
	}
}

// RaycastClosest casts a ray against every tracked shape whose category
// matches mask and returns the closest hit. The broad phase prunes the
// traversal with the shrinking hit fraction.
func (d *Detector) RaycastClosest(ray Ray, mask uint) (shape *Shape, fraction float64, ok bool) {
	fraction = ray.MaxFraction

	d.broadPhase.Raycast(ray, mask, func(candidate *Shape, r Ray) float64 {
		t := candidate.Class.SegmentQuery(r.From, r.To)
		if t < fraction {
			shape = candidate
			fraction = t
			ok = true
			return t
		}
		return -1
	})

	return shape, fraction, ok
}

// QueryBB reports every tracked shape whose fat bound intersects bb, usable
// for spatial queries unrelated to simulation stepping.
func (d *Detector) QueryBB(bb BB, fn func(shape *Shape) bool) {
	d.broadPhase.QueryBB(bb, fn)
}
