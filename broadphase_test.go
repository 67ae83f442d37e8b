package collide_test

import (
	"testing"

	"github.com/selimata/collide"
	"github.com/setanarut/v"
)

func collectPairs(bp *collide.BroadPhase) map[uint64]int {
	found := map[uint64]int{}
	bp.ComputeOverlappingPairs(func(a, b *collide.Shape) {
		found[collide.PairId(a.BroadPhaseId(), b.BroadPhaseId())]++
	})
	return found
}

func TestBroadPhaseDiscovery(t *testing.T) {
	bp := collide.NewBroadPhase(0.1)

	a := trackedCircle(bp, 0, 0, 1)
	b := trackedCircle(bp, 1.5, 0, 1)
	trackedCircle(bp, 100, 0, 1)

	found := collectPairs(bp)
	want := collide.PairId(a.BroadPhaseId(), b.BroadPhaseId())
	if len(found) != 1 || found[want] != 1 {
		t.Fatalf("expected exactly one report of the overlapping pair, got %v", found)
	}

	// The moved set is consumed: a second pass with nothing moved reports
	// nothing even though the shapes still overlap.
	if again := collectPairs(bp); len(again) != 0 {
		t.Errorf("stationary shapes re-reported: %v", again)
	}
}

func TestBroadPhaseNoDuplicateReports(t *testing.T) {
	bp := collide.NewBroadPhase(0.1)

	// Both members end up in the moved set, so the pair is reachable from
	// either side of the query.
	a := trackedCircle(bp, 0, 0, 1)
	b := trackedCircle(bp, 1, 0, 1)

	found := collectPairs(bp)
	if found[collide.PairId(a.BroadPhaseId(), b.BroadPhaseId())] != 1 {
		t.Errorf("pair reported %d times, want once", found[collide.PairId(a.BroadPhaseId(), b.BroadPhaseId())])
	}
}

func TestBroadPhaseSameBodySkipped(t *testing.T) {
	bp := collide.NewBroadPhase(0.1)

	body := collide.NewBody()
	sa := collide.NewCircleShape(body, 1, v.Vec{})
	sb := collide.NewCircleShape(body, 1, v.Vec{X: 0.5, Y: 0})
	bp.Add(sa, sa.CacheBB())
	bp.Add(sb, sb.CacheBB())

	if found := collectPairs(bp); len(found) != 0 {
		t.Errorf("shapes on one body must not pair up, got %v", found)
	}
}

func TestBroadPhaseRefreshMarksMoved(t *testing.T) {
	bp := collide.NewBroadPhase(0.1)

	a := trackedCircle(bp, 0, 0, 1)
	b := trackedCircle(bp, 100, 0, 1)
	collectPairs(bp) // drain the initial moved set

	// A tiny move stays inside the fat bound: nothing to recompute.
	a.Body.SetTransform(v.Vec{X: 0.01, Y: 0}, 0)
	bp.Refresh(a, 0)
	if found := collectPairs(bp); len(found) != 0 {
		t.Fatalf("in-place refresh produced reports: %v", found)
	}

	// Moving next to b escapes the fat bound and rediscovers the overlap.
	a.Body.SetTransform(v.Vec{X: 99, Y: 0}, 0)
	bp.Refresh(a, 0)
	found := collectPairs(bp)
	if found[collide.PairId(a.BroadPhaseId(), b.BroadPhaseId())] != 1 {
		t.Errorf("moved shape did not rediscover its overlap: %v", found)
	}
}

func TestBroadPhaseTestOverlap(t *testing.T) {
	bp := collide.NewBroadPhase(0.1)

	a := trackedCircle(bp, 0, 0, 1)
	b := trackedCircle(bp, 1.5, 0, 1)
	c := trackedCircle(bp, 100, 0, 1)

	if !bp.TestOverlap(a, b) {
		t.Error("adjacent fat bounds must overlap")
	}
	if bp.TestOverlap(a, c) {
		t.Error("distant fat bounds must not overlap")
	}

	bp.Remove(c)
	if bp.TestOverlap(a, c) {
		t.Error("untracked shape can never overlap")
	}
}

func TestBroadPhaseRaycastMask(t *testing.T) {
	bp := collide.NewBroadPhase(0.1)

	hit := trackedCircle(bp, 5, 0, 1)
	masked := trackedCircle(bp, 2, 0, 1)
	masked.Filter.Categories = 0b10

	var hits []*collide.Shape
	bp.Raycast(collide.NewRay(v.Vec{}, v.Vec{X: 20, Y: 0}), 0b01, func(s *collide.Shape, r collide.Ray) float64 {
		hits = append(hits, s)
		return -1
	})

	if len(hits) != 1 || hits[0] != hit {
		t.Errorf("mask 0b01 should reach only the default-category shape, got %d hits", len(hits))
	}
}
