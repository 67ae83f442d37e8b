package collide_test

import (
	"testing"

	"github.com/selimata/collide"
	"github.com/setanarut/v"
)

// trackedCircle builds a circle shape registered with the broad phase so the
// pair registry accepts it.
func trackedCircle(bp *collide.BroadPhase, x, y, r float64) *collide.Shape {
	body := collide.NewBody()
	body.SetTransform(v.Vec{X: x, Y: y}, 0)
	shape := collide.NewCircleShape(body, r, v.Vec{})
	bp.Add(shape, shape.CacheBB())
	return shape
}

func trackedChain(bp *collide.BroadPhase, verts []v.Vec, r float64) *collide.Shape {
	body := collide.NewStaticBody()
	shape := collide.NewChainShape(body, verts, r)
	bp.Add(shape, shape.CacheBB())
	return shape
}

func TestPairIdSymmetric(t *testing.T) {
	if collide.PairId(3, 7) != collide.PairId(7, 3) {
		t.Error("pair identity must not depend on argument order")
	}

	seen := map[uint64][2]int32{}
	for a := int32(0); a < 32; a++ {
		for b := int32(0); b < a; b++ {
			id := collide.PairId(a, b)
			if prev, ok := seen[id]; ok {
				t.Fatalf("pairs (%d,%d) and (%d,%d) collide on id %d", a, b, prev[0], prev[1], id)
			}
			seen[id] = [2]int32{a, b}
		}
	}
}

func checkPartition(t *testing.T, pairs *collide.OverlappingPairs) {
	t.Helper()
	for i := 0; i < pairs.Count(); i++ {
		a, b := pairs.PairAt(i)
		if i < pairs.ConcaveStart() {
			if !a.IsConvex() || !b.IsConvex() {
				t.Fatalf("pair %d in the convex zone has a concave member", i)
			}
		} else {
			if !a.IsConvex() || b.IsConvex() {
				t.Fatalf("pair %d in the concave zone is not convex-vs-concave", i)
			}
		}
	}
}

func TestPairPartition(t *testing.T) {
	bp := collide.NewBroadPhase(0.1)
	pairs := collide.NewOverlappingPairs(4)

	a := trackedCircle(bp, 0, 0, 1)
	b := trackedCircle(bp, 1, 0, 1)
	c := trackedCircle(bp, 0, 1, 1)
	ground := trackedChain(bp, []v.Vec{{X: -5, Y: -1}, {X: 0, Y: -1}, {X: 5, Y: -1}}, 0.1)

	// Interleave convex and concave adds so each one exercises the
	// relocation at the partition boundary.
	pairs.AddPair(a, ground, true)
	checkPartition(t, pairs)
	pairs.AddPair(a, b, true)
	checkPartition(t, pairs)
	pairs.AddPair(ground, b, true) // concave member given first
	checkPartition(t, pairs)
	pairs.AddPair(a, c, true)
	checkPartition(t, pairs)
	pairs.AddPair(c, ground, true)
	checkPartition(t, pairs)

	if pairs.Count() != 5 || pairs.ConcaveStart() != 2 {
		t.Errorf("expected 5 pairs with concave zone at 2, got count=%d concaveStart=%d",
			pairs.Count(), pairs.ConcaveStart())
	}
}

func TestPairRemoveShuffle(t *testing.T) {
	bp := collide.NewBroadPhase(0.1)
	pairs := collide.NewOverlappingPairs(4)

	a := trackedCircle(bp, 0, 0, 1)
	b := trackedCircle(bp, 1, 0, 1)
	c := trackedCircle(bp, 0, 1, 1)
	ground := trackedChain(bp, []v.Vec{{X: -5, Y: -1}, {X: 5, Y: -1}}, 0.1)

	idAB := pairs.AddPair(a, b, true)
	idAC := pairs.AddPair(a, c, true)
	idBC := pairs.AddPair(b, c, true)
	idAG := pairs.AddPair(a, ground, true)
	idBG := pairs.AddPair(b, ground, true)

	// Removing a convex pair runs the three-way shuffle across the boundary.
	pairs.RemovePair(idAB)
	checkPartition(t, pairs)
	if pairs.Count() != 4 || pairs.ConcaveStart() != 2 {
		t.Fatalf("after convex removal: count=%d concaveStart=%d", pairs.Count(), pairs.ConcaveStart())
	}
	for _, id := range []uint64{idAC, idBC, idAG, idBG} {
		if !pairs.Contains(id) {
			t.Errorf("pair %d lost during shuffle", id)
		}
	}
	if pairs.Contains(idAB) {
		t.Error("removed pair still registered")
	}

	// Removing a concave pair compacts only the concave zone.
	pairs.RemovePair(idAG)
	checkPartition(t, pairs)
	if pairs.Count() != 3 || pairs.ConcaveStart() != 2 {
		t.Fatalf("after concave removal: count=%d concaveStart=%d", pairs.Count(), pairs.ConcaveStart())
	}
	if !pairs.Contains(idBG) {
		t.Error("surviving concave pair lost")
	}

	pairs.RemovePair(idAC)
	pairs.RemovePair(idBC)
	pairs.RemovePair(idBG)
	if pairs.Count() != 0 || pairs.ConcaveStart() != 0 {
		t.Errorf("emptied registry: count=%d concaveStart=%d", pairs.Count(), pairs.ConcaveStart())
	}
}

func TestPairAddRemoveRoundTrip(t *testing.T) {
	bp := collide.NewBroadPhase(0.1)
	pairs := collide.NewOverlappingPairs(4)

	a := trackedCircle(bp, 0, 0, 1)
	b := trackedCircle(bp, 1, 0, 1)
	c := trackedCircle(bp, 0, 1, 1)
	ground := trackedChain(bp, []v.Vec{{X: -5, Y: -1}, {X: 5, Y: -1}}, 0.1)

	pairs.AddPair(a, b, true)
	pairs.AddPair(a, ground, true)
	count, boundary := pairs.Count(), pairs.ConcaveStart()

	// Adding then immediately removing a pair of either category restores
	// both the count and the partition boundary.
	id := pairs.AddPair(b, c, true)
	pairs.RemovePair(id)
	if pairs.Count() != count || pairs.ConcaveStart() != boundary {
		t.Errorf("convex round trip: count=%d concaveStart=%d, want %d/%d",
			pairs.Count(), pairs.ConcaveStart(), count, boundary)
	}

	id = pairs.AddPair(c, ground, true)
	pairs.RemovePair(id)
	if pairs.Count() != count || pairs.ConcaveStart() != boundary {
		t.Errorf("concave round trip: count=%d concaveStart=%d, want %d/%d",
			pairs.Count(), pairs.ConcaveStart(), count, boundary)
	}
	checkPartition(t, pairs)
}

func TestPairGrowth(t *testing.T) {
	bp := collide.NewBroadPhase(0.1)
	pairs := collide.NewOverlappingPairs(2)

	shapes := make([]*collide.Shape, 8)
	for i := range shapes {
		shapes[i] = trackedCircle(bp, float64(i), 0, 1)
	}

	var ids []uint64
	for i := 1; i < len(shapes); i++ {
		ids = append(ids, pairs.AddPair(shapes[0], shapes[i], true))
	}

	if pairs.Capacity() < len(ids) {
		t.Fatalf("capacity %d did not grow past pair count %d", pairs.Capacity(), len(ids))
	}
	for i, id := range ids {
		if !pairs.Contains(id) {
			t.Errorf("pair %d (index %d) lost across growth", id, i)
		}
	}
	checkPartition(t, pairs)
}

func TestIsPairActive(t *testing.T) {
	bp := collide.NewBroadPhase(0.1)
	pairs := collide.NewOverlappingPairs(4)

	dynamic := trackedCircle(bp, 0, 0, 1)
	other := trackedCircle(bp, 1, 0, 1)
	wall := trackedChain(bp, []v.Vec{{X: -5, Y: 2}, {X: 5, Y: 2}}, 0.1)
	floor := trackedChain(bp, []v.Vec{{X: -5, Y: -2}, {X: 5, Y: -2}}, 0.1)

	if pairs.IsPairActive(wall, floor) {
		t.Error("two static shapes must be inactive")
	}
	if !pairs.IsPairActive(dynamic, wall) {
		t.Error("dynamic vs static must be active")
	}

	dynamic.Body.SetSleeping(true)
	if pairs.IsPairActive(dynamic, wall) {
		t.Error("sleeping vs static must be inactive")
	}
	if !pairs.IsPairActive(dynamic, other) {
		t.Error("sleeping vs awake dynamic must stay active")
	}
	dynamic.Body.SetSleeping(false)

	pairs.SetBodiesCanCollide(dynamic.Body, other.Body, false)
	if pairs.IsPairActive(dynamic, other) {
		t.Error("excluded body pair must be inactive")
	}
	pairs.SetBodiesCanCollide(dynamic.Body, other.Body, true)
	if !pairs.IsPairActive(dynamic, other) {
		t.Error("restored body pair must be active again")
	}
}

func TestLastFrameInfoGracePeriod(t *testing.T) {
	bp := collide.NewBroadPhase(0.1)
	pairs := collide.NewOverlappingPairs(4)

	a := trackedCircle(bp, 0, 0, 1)
	b := trackedCircle(bp, 1, 0, 1)
	pairId := pairs.AddPair(a, b, true)

	info := pairs.GetOrCreateLastFrameInfo(pairId, 0, 0)
	info.WasColliding = true
	info.NormalImpulse = 2.5

	// One sweep without a touch: the entry survives, marked obsolete.
	pairs.SweepObsoleteLastFrameInfos()
	if got := pairs.LastFrameInfo(pairId, 0, 0); got == nil {
		t.Fatal("entry purged after a single sweep")
	} else if got.NormalImpulse != 2.5 {
		t.Errorf("entry contents changed across sweep: %+v", got)
	}

	// A second untouched sweep purges it.
	pairs.SweepObsoleteLastFrameInfos()
	if pairs.LastFrameInfo(pairId, 0, 0) != nil {
		t.Fatal("entry survived two sweeps without a touch")
	}

	// Touching between sweeps keeps it alive indefinitely.
	pairs.GetOrCreateLastFrameInfo(pairId, 0, 0).WasColliding = true
	for i := 0; i < 3; i++ {
		pairs.SweepObsoleteLastFrameInfos()
		if pairs.LastFrameInfo(pairId, 0, 0) == nil {
			t.Fatalf("touched entry purged on sweep %d", i)
		}
		pairs.GetOrCreateLastFrameInfo(pairId, 0, 0)
	}
}
