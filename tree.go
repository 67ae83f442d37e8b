package collide

import (
	"math"

	"github.com/setanarut/v"
)

// nullNode marks an absent node reference inside the tree.
const nullNode int32 = -1

// displacementMultiplier scales the predicted per-step displacement when the
// fat bound of a reinserted leaf is swept along the motion direction.
const displacementMultiplier float64 = 2.0

// Ray is a broad-phase ray cast query between two points. MaxFraction limits
// the effective ray to From + MaxFraction*(To-From).
type Ray struct {
	From, To    v.Vec
	MaxFraction float64
}

// NewRay returns a ray covering the whole segment from a to b.
func NewRay(a, b v.Vec) Ray {
	return Ray{From: a, To: b, MaxFraction: 1.0}
}

// Point returns the point at fraction t along the ray.
func (r Ray) Point(t float64) v.Vec {
	return r.From.Lerp(r.To, t)
}

// TreeQueryFunc is called for every leaf whose fat bound intersects a query
// bound. Returning false terminates the query early.
type TreeQueryFunc func(nodeId int32) bool

// TreeRaycastFunc is called for every candidate leaf along a ray. The return
// value steers the traversal: 0 terminates the cast, a positive fraction
// shrinks the effective ray to it, and a negative value continues with the
// ray unchanged.
type TreeRaycastFunc func(ray Ray, nodeId int32) float64

type treeNode struct {
	// Fat bound: the true bound enlarged by the tree gap, plus a sweep along
	// the motion direction for reinserted leaves.
	bb      BB
	payload *Shape

	parent int32
	next   int32 // free-list link, meaningful only while the node is free

	child1 int32
	child2 int32

	// leaf = 0, free node = -1
	height int32
}

func (node *treeNode) isLeaf() bool {
	return node.child1 == nullNode
}

// DynamicTree is a dynamic bounding-volume tree: a binary tree of enlarged
// axis-aligned bounds over tracked shapes. Leaves are stored in a growable
// node pool and addressed by index so the pool can be reallocated, which is
// why callers hold node ids rather than pointers. Internal node bounds are
// the union of their children at all times.
type DynamicTree struct {
	root int32

	nodes    []treeNode
	count    int32
	capacity int32

	freeList int32

	// gap is the fixed fattening margin added around every true bound.
	gap float64
}

// NewDynamicTree creates an empty tree whose leaves are fattened by gap.
func NewDynamicTree(gap float64) *DynamicTree {
	tree := &DynamicTree{
		root:     nullNode,
		capacity: 16,
		gap:      gap,
	}
	tree.nodes = make([]treeNode, tree.capacity)

	// Thread the free list through the pool.
	for i := int32(0); i < tree.capacity-1; i++ {
		tree.nodes[i].next = i + 1
		tree.nodes[i].height = -1
	}
	tree.nodes[tree.capacity-1].next = nullNode
	tree.nodes[tree.capacity-1].height = -1
	tree.freeList = 0

	return tree
}

// Count returns the number of leaves in the tree.
func (tree *DynamicTree) Count() int {
	n := 0
	for i := int32(0); i < tree.capacity; i++ {
		if tree.nodes[i].height == 0 {
			n++
		}
	}
	return n
}

// Height returns the height of the tree.
func (tree *DynamicTree) Height() int32 {
	if tree.root == nullNode {
		return 0
	}
	return tree.nodes[tree.root].height
}

// FatBB returns the fat bound stored for a leaf.
func (tree *DynamicTree) FatBB(nodeId int32) BB {
	assert(0 <= nodeId && nodeId < tree.capacity, "invalid node id ", nodeId)
	return tree.nodes[nodeId].bb
}

// Payload returns the shape stored on a leaf.
func (tree *DynamicTree) Payload(nodeId int32) *Shape {
	assert(0 <= nodeId && nodeId < tree.capacity, "invalid node id ", nodeId)
	return tree.nodes[nodeId].payload
}

// Insert adds a leaf with a bound fattened by the tree gap and returns its
// node id. Amortized O(log n).
func (tree *DynamicTree) Insert(bb BB, payload *Shape) int32 {
	nodeId := tree.allocateNode()

	tree.nodes[nodeId].bb = bb.Fattened(tree.gap)
	tree.nodes[nodeId].payload = payload
	tree.nodes[nodeId].height = 0

	tree.insertLeaf(nodeId)

	return nodeId
}

// Remove detaches a leaf, repairs ancestor bounds and invalidates the id.
func (tree *DynamicTree) Remove(nodeId int32) {
	assert(0 <= nodeId && nodeId < tree.capacity, "invalid node id ", nodeId)
	assert(tree.nodes[nodeId].isLeaf(), "node ", nodeId, " is not a leaf")

	tree.removeLeaf(nodeId)
	tree.freeNode(nodeId)
}

// Update refreshes a leaf after its shape moved. If the new true bound still
// fits inside the cached fat bound nothing changes and Update returns false.
// Otherwise the leaf is removed and reinserted with a bound fattened around
// the new true bound and swept along the displacement, and Update returns
// true; callers must then re-query overlaps for this leaf.
func (tree *DynamicTree) Update(nodeId int32, bb BB, displacement v.Vec) bool {
	assert(0 <= nodeId && nodeId < tree.capacity, "invalid node id ", nodeId)
	assert(tree.nodes[nodeId].isLeaf(), "node ", nodeId, " is not a leaf")

	if tree.nodes[nodeId].bb.Contains(bb) {
		return false
	}

	tree.removeLeaf(nodeId)

	fat := bb.Fattened(tree.gap).Swept(displacement.Scale(displacementMultiplier))
	tree.nodes[nodeId].bb = fat

	tree.insertLeaf(nodeId)

	return true
}

// Query reports every leaf whose fat bound intersects bb. Subtrees whose
// bound does not intersect are pruned.
func (tree *DynamicTree) Query(bb BB, fn TreeQueryFunc) {
	stack := make([]int32, 0, 64)
	stack = append(stack, tree.root)

	for len(stack) > 0 {
		nodeId := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if nodeId == nullNode {
			continue
		}

		node := &tree.nodes[nodeId]
		if !node.bb.Intersects(bb) {
			continue
		}

		if node.isLeaf() {
			if !fn(nodeId) {
				return
			}
		} else {
			stack = append(stack, node.child1, node.child2)
		}
	}
}

// Raycast reports candidate leaves along the ray. The callback's return value
// may shrink the effective ray each time it returns a smaller fraction,
// giving closest-hit semantics without exhaustive traversal.
func (tree *DynamicTree) Raycast(ray Ray, fn TreeRaycastFunc) {
	p1 := ray.From
	p2 := ray.To
	r := p2.Sub(p1)
	assert(r.MagSq() > 0, "zero-length ray")
	r = r.Unit()

	// Perpendicular to the ray, for the separating-axis reject below.
	perp := v.Vec{X: -r.Y, Y: r.X}
	absPerp := v.Vec{X: math.Abs(perp.X), Y: math.Abs(perp.Y)}

	maxFraction := ray.MaxFraction
	segmentBB := rayBB(p1, p2, maxFraction)

	stack := make([]int32, 0, 64)
	stack = append(stack, tree.root)

	for len(stack) > 0 {
		nodeId := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if nodeId == nullNode {
			continue
		}

		node := &tree.nodes[nodeId]
		if !node.bb.Intersects(segmentBB) {
			continue
		}

		// Separating axis: |dot(perp, p1 - c)| > dot(|perp|, h)
		c := node.bb.Center()
		h := node.bb.Extents()
		separation := math.Abs(perp.Dot(p1.Sub(c))) - absPerp.Dot(h)
		if separation > 0 {
			continue
		}

		if node.isLeaf() {
			value := fn(Ray{From: p1, To: p2, MaxFraction: maxFraction}, nodeId)
			if value == 0 {
				// The callback has terminated the ray cast.
				return
			}
			if value > 0 {
				maxFraction = value
				segmentBB = rayBB(p1, p2, maxFraction)
			}
		} else {
			stack = append(stack, node.child1, node.child2)
		}
	}
}

func rayBB(p1, p2 v.Vec, maxFraction float64) BB {
	t := p1.Lerp(p2, maxFraction)
	return BB{
		L: math.Min(p1.X, t.X),
		B: math.Min(p1.Y, t.Y),
		R: math.Max(p1.X, t.X),
		T: math.Max(p1.Y, t.Y),
	}
}

func (tree *DynamicTree) allocateNode() int32 {
	if tree.freeList == nullNode {
		assert(tree.count == tree.capacity, "free list empty below capacity")

		// The free list is empty. Rebuild a bigger pool.
		tree.nodes = append(tree.nodes, make([]treeNode, tree.capacity)...)
		tree.capacity *= 2

		for i := tree.count; i < tree.capacity-1; i++ {
			tree.nodes[i].next = i + 1
			tree.nodes[i].height = -1
		}
		tree.nodes[tree.capacity-1].next = nullNode
		tree.nodes[tree.capacity-1].height = -1
		tree.freeList = tree.count
	}

	nodeId := tree.freeList
	tree.freeList = tree.nodes[nodeId].next
	tree.nodes[nodeId].parent = nullNode
	tree.nodes[nodeId].child1 = nullNode
	tree.nodes[nodeId].child2 = nullNode
	tree.nodes[nodeId].height = 0
	tree.nodes[nodeId].payload = nil
	tree.count++

	return nodeId
}

func (tree *DynamicTree) freeNode(nodeId int32) {
	assert(0 <= nodeId && nodeId < tree.capacity, "invalid node id ", nodeId)
	assert(tree.count > 0, "freeing from an empty tree")
	tree.nodes[nodeId].next = tree.freeList
	tree.nodes[nodeId].height = -1
	tree.nodes[nodeId].payload = nil
	tree.freeList = nodeId
	tree.count--
}

func (tree *DynamicTree) insertLeaf(leaf int32) {
	if tree.root == nullNode {
		tree.root = leaf
		tree.nodes[leaf].parent = nullNode
		return
	}

	// Find the best sibling using the surface-area heuristic.
	leafBB := tree.nodes[leaf].bb
	index := tree.root
	for !tree.nodes[index].isLeaf() {
		child1 := tree.nodes[index].child1
		child2 := tree.nodes[index].child2

		area := tree.nodes[index].bb.Perimeter()
		combinedArea := tree.nodes[index].bb.Merge(leafBB).Perimeter()

		// Cost of creating a new parent for this node and the new leaf.
		cost := 2 * combinedArea

		// Minimum cost of pushing the leaf further down the tree.
		inheritanceCost := 2 * (combinedArea - area)

		cost1 := descendCost(&tree.nodes[child1], leafBB) + inheritanceCost
		cost2 := descendCost(&tree.nodes[child2], leafBB) + inheritanceCost

		if cost < cost1 && cost < cost2 {
			break
		}

		if cost1 < cost2 {
			index = child1
		} else {
			index = child2
		}
	}

	sibling := index

	// Create a new parent.
	oldParent := tree.nodes[sibling].parent
	newParent := tree.allocateNode()
	tree.nodes[newParent].parent = oldParent
	tree.nodes[newParent].bb = leafBB.Merge(tree.nodes[sibling].bb)
	tree.nodes[newParent].height = tree.nodes[sibling].height + 1

	if oldParent != nullNode {
		if tree.nodes[oldParent].child1 == sibling {
			tree.nodes[oldParent].child1 = newParent
		} else {
			tree.nodes[oldParent].child2 = newParent
		}
	} else {
		tree.root = newParent
	}
	tree.nodes[newParent].child1 = sibling
	tree.nodes[newParent].child2 = leaf
	tree.nodes[sibling].parent = newParent
	tree.nodes[leaf].parent = newParent

	// Walk back up the tree fixing heights and bounds.
	tree.fixUpwardsFrom(tree.nodes[leaf].parent)
}

func descendCost(child *treeNode, leafBB BB) float64 {
	merged := child.bb.Merge(leafBB).Perimeter()
	if child.isLeaf() {
		return merged
	}
	return merged - child.bb.Perimeter()
}

func (tree *DynamicTree) removeLeaf(leaf int32) {
	if leaf == tree.root {
		tree.root = nullNode
		return
	}

	parent := tree.nodes[leaf].parent
	grandParent := tree.nodes[parent].parent
	var sibling int32
	if tree.nodes[parent].child1 == leaf {
		sibling = tree.nodes[parent].child2
	} else {
		sibling = tree.nodes[parent].child1
	}

	if grandParent != nullNode {
		// Destroy the parent and connect the sibling to the grandparent.
		if tree.nodes[grandParent].child1 == parent {
			tree.nodes[grandParent].child1 = sibling
		} else {
			tree.nodes[grandParent].child2 = sibling
		}
		tree.nodes[sibling].parent = grandParent
		tree.freeNode(parent)

		tree.fixUpwardsFrom(grandParent)
	} else {
		tree.root = sibling
		tree.nodes[sibling].parent = nullNode
		tree.freeNode(parent)
	}
}

// fixUpwardsFrom rebalances and recomputes bounds and heights from a node up
// to the root.
func (tree *DynamicTree) fixUpwardsFrom(index int32) {
	for index != nullNode {
		index = tree.balance(index)

		child1 := tree.nodes[index].child1
		child2 := tree.nodes[index].child2
		assert(child1 != nullNode, "internal node missing child")
		assert(child2 != nullNode, "internal node missing child")

		tree.nodes[index].height = 1 + max(tree.nodes[child1].height, tree.nodes[child2].height)
		tree.nodes[index].bb = tree.nodes[child1].bb.Merge(tree.nodes[child2].bb)

		index = tree.nodes[index].parent
	}
}

// balance performs a left or right rotation if node iA is imbalanced.
// Returns the new subtree root index.
func (tree *DynamicTree) balance(iA int32) int32 {
	assert(iA != nullNode, "balancing a null node")

	A := &tree.nodes[iA]
	if A.isLeaf() || A.height < 2 {
		return iA
	}

	iB := A.child1
	iC := A.child2
	B := &tree.nodes[iB]
	C := &tree.nodes[iC]

	balance := C.height - B.height

	// Rotate C up.
	if balance > 1 {
		iF := C.child1
		iG := C.child2
		F := &tree.nodes[iF]
		G := &tree.nodes[iG]

		// Swap A and C.
		C.child1 = iA
		C.parent = A.parent
		A.parent = iC

		if C.parent != nullNode {
			if tree.nodes[C.parent].child1 == iA {
				tree.nodes[C.parent].child1 = iC
			} else {
				tree.nodes[C.parent].child2 = iC
			}
		} else {
			tree.root = iC
		}

		if F.height > G.height {
			C.child2 = iF
			A.child2 = iG
			G.parent = iA
			A.bb = B.bb.Merge(G.bb)
			C.bb = A.bb.Merge(F.bb)

			A.height = 1 + max(B.height, G.height)
			C.height = 1 + max(A.height, F.height)
		} else {
			C.child2 = iG
			A.child2 = iF
			F.parent = iA
			A.bb = B.bb.Merge(F.bb)
			C.bb = A.bb.Merge(G.bb)

			A.height = 1 + max(B.height, F.height)
			C.height = 1 + max(A.height, G.height)
		}

		return iC
	}

	// Rotate B up.
	if balance < -1 {
		iD := B.child1
		iE := B.child2
		D := &tree.nodes[iD]
		E := &tree.nodes[iE]

		// Swap A and B.
		B.child1 = iA
		B.parent = A.parent
		A.parent = iB

		if B.parent != nullNode {
			if tree.nodes[B.parent].child1 == iA {
				tree.nodes[B.parent].child1 = iB
			} else {
				tree.nodes[B.parent].child2 = iB
			}
		} else {
			tree.root = iB
		}

		if D.height > E.height {
			B.child2 = iD
			A.child1 = iE
			E.parent = iA
			A.bb = C.bb.Merge(E.bb)
			B.bb = A.bb.Merge(D.bb)

			A.height = 1 + max(C.height, E.height)
			B.height = 1 + max(A.height, D.height)
		} else {
			B.child2 = iE
			A.child1 = iD
			D.parent = iA
			A.bb = C.bb.Merge(D.bb)
			B.bb = A.bb.Merge(E.bb)

			A.height = 1 + max(C.height, D.height)
			B.height = 1 + max(A.height, E.height)
		}

		return iB
	}

	return iA
}

// validate walks the whole tree checking structure and cached metrics.
// It is meant for tests.
func (tree *DynamicTree) validate() {
	tree.validateNode(tree.root)
}

func (tree *DynamicTree) validateNode(index int32) {
	if index == nullNode {
		return
	}

	if index == tree.root {
		assert(tree.nodes[index].parent == nullNode, "root has a parent")
	}

	node := &tree.nodes[index]
	child1 := node.child1
	child2 := node.child2

	if node.isLeaf() {
		assert(child2 == nullNode, "leaf with a child")
		assert(node.height == 0, "leaf with nonzero height")
		return
	}

	assert(tree.nodes[child1].parent == index, "child1 parent link broken")
	assert(tree.nodes[child2].parent == index, "child2 parent link broken")

	height := 1 + max(tree.nodes[child1].height, tree.nodes[child2].height)
	assert(node.height == height, "cached height stale")
	assert(node.bb == tree.nodes[child1].bb.Merge(tree.nodes[child2].bb), "cached bound stale")

	tree.validateNode(child1)
	tree.validateNode(child2)
}
