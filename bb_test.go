package collide_test

import (
	"math"
	"testing"

	"github.com/selimata/collide"
	"github.com/setanarut/v"
)

func TestBBSweep(t *testing.T) {
	bb := collide.NewBB(-1, -1, 1, 1)

	swept := bb.Swept(v.Vec{X: 2, Y: 0})
	if swept.L != -1 || swept.R != 3 || swept.B != -1 || swept.T != 1 {
		t.Errorf("sweep along +x extended the wrong sides: %v", swept)
	}

	swept = bb.Swept(v.Vec{X: 0, Y: -2})
	if swept.B != -3 || swept.T != 1 {
		t.Errorf("sweep along -y extended the wrong sides: %v", swept)
	}

	fat := bb.Fattened(0.5)
	if fat.L != -1.5 || fat.R != 1.5 || fat.B != -1.5 || fat.T != 1.5 {
		t.Errorf("fattening must grow every side: %v", fat)
	}
}

func TestBBSegmentQuery(t *testing.T) {
	bb := collide.NewBB(4, -1, 6, 1)

	if frac := bb.SegmentQuery(v.Vec{}, v.Vec{X: 10, Y: 0}); frac < 0.39 || frac > 0.41 {
		t.Errorf("expected entry fraction 0.4, got %v", frac)
	}
	if frac := bb.SegmentQuery(v.Vec{Y: 5}, v.Vec{X: 10, Y: 5}); frac <= 1 {
		t.Errorf("missing segment must report no hit, got %v", frac)
	}
	if !bb.IntersectsSegment(v.Vec{X: 5, Y: -5}, v.Vec{X: 5, Y: 5}) {
		t.Error("vertical segment through the box must intersect")
	}
}

func TestShapeSegmentQueries(t *testing.T) {
	circle := collide.NewCircle(v.Vec{X: 5, Y: 0}, 1)
	circle.CacheData(collide.NewTransformIdentity())
	if frac := circle.SegmentQuery(v.Vec{}, v.Vec{X: 10, Y: 0}); frac < 0.39 || frac > 0.41 {
		t.Errorf("circle: expected fraction 0.4, got %v", frac)
	}

	box := collide.NewBox(2, 2)
	box.CacheData(collide.NewTransformRigid(v.Vec{X: 5, Y: 0}, 0))
	if frac := box.SegmentQuery(v.Vec{}, v.Vec{X: 10, Y: 0}); frac < 0.39 || frac > 0.41 {
		t.Errorf("box: expected fraction 0.4, got %v", frac)
	}

	// A rotated box is tested in its local frame: the ray now enters through
	// the tilted face at 1/cos(30 deg) from the center.
	box.CacheData(collide.NewTransformRigid(v.Vec{X: 5, Y: 0}, math.Pi/6))
	want := (5 - 1/math.Cos(math.Pi/6)) / 10
	if frac := box.SegmentQuery(v.Vec{}, v.Vec{X: 10, Y: 0}); math.Abs(frac-want) > 1e-9 {
		t.Errorf("rotated box: expected fraction %v, got %v", want, frac)
	}

	chain := collide.NewChain([]v.Vec{{X: 4, Y: -1}, {X: 4, Y: 1}}, 0)
	chain.CacheData(collide.NewTransformIdentity())
	if frac := chain.SegmentQuery(v.Vec{}, v.Vec{X: 10, Y: 0}); frac < 0.39 || frac > 0.41 {
		t.Errorf("chain: expected fraction 0.4, got %v", frac)
	}
}
