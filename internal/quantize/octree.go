package quantize

import (
	"cmp"
	"fmt"
	"slices"
)

const (
	// DefaultMaxLeaves bounds the octree leaf count during construction.
	DefaultMaxLeaves = 16

	// leafLevel is the depth at which inserted pixels always land in a leaf.
	leafLevel = 7
)

// Octree quantizes by inserting pixels into an 8-ary tree whose leaf count is
// kept within a budget by merging the least populated deepest nodes.
type Octree struct {
	maxLeaves int
	settings
}

// NewOctree creates an Octree quantizer that keeps at most maxLeaves leaves
// while building. maxLeaves must be at least the requested palette size.
func NewOctree(maxLeaves int, opts ...Option) (*Octree, error) {
	if maxLeaves < 1 {
		return nil, fmt.Errorf("%w: max leaves must be at least 1, got %d", ErrInvalidPaletteSize, maxLeaves)
	}
	return &Octree{
		maxLeaves: maxLeaves,
		settings:  newSettings(opts),
	}, nil
}

// Name returns the algorithm identifier.
func (q *Octree) Name() Algorithm {
	return AlgorithmOctree
}

// Quantize builds a fresh tree from pixels and returns up to k of its leaf
// colours, most populated first. A shorter palette is flagged as underfilled.
func (q *Octree) Quantize(pixels []Pixel, k int) (*Result, error) {
	if err := validateInput(pixels, k); err != nil {
		return nil, err
	}
	if q.maxLeaves < k {
		return nil, fmt.Errorf("%w: max leaves %d is below palette size %d", ErrInvalidPaletteSize, q.maxLeaves, k)
	}

	tree := newOctreeBuilder()
	for _, p := range pixels {
		tree.insert(p)
		for tree.leaves > q.maxLeaves {
			if !tree.reduce() {
				break
			}
		}
	}
	q.logger.Trace("octree built", "pixels", len(pixels), "leaves", tree.leaves, "reductions", tree.reductions)

	colours, counts := tree.colours()
	if len(colours) > k {
		colours, counts = colours[:k], counts[:k]
	}

	return &Result{
		Palette:   colours,
		Counts:    counts,
		Requested: k,
		Underfill: len(colours) < k,
	}, nil
}

// octreeNode is either an internal node owning up to eight children or a leaf
// accumulating the colours mapped below it.
type octreeNode struct {
	children [8]*octreeNode
	leaf     bool
	level    int

	// count is the number of pixels that passed through or landed here.
	count int
	sum   [channels]uint64

	// queued is the node's place in its level's reduction queue; nil once the
	// node has become a leaf.
	queued *entry[*octreeNode]
}

// octreeBuilder owns all state for one tree build.
type octreeBuilder struct {
	root       *octreeNode
	reducible  [leafLevel]*queue[*octreeNode]
	leaves     int
	reductions int
}

// leastPopulated orders reduction candidates by ascending pixel count. Among
// equal counts the most recently created node comes first.
func leastPopulated(a, b *entry[*octreeNode]) bool {
	if a.value.count != b.value.count {
		return a.value.count < b.value.count
	}
	return a.seq > b.seq
}

func newOctreeBuilder() *octreeBuilder {
	b := &octreeBuilder{}
	for i := range b.reducible {
		b.reducible[i] = newQueue(leastPopulated)
	}
	b.root = b.newNode(0)
	return b
}

func (b *octreeBuilder) newNode(level int) *octreeNode {
	n := &octreeNode{level: level}
	if level == leafLevel {
		n.leaf = true
		b.leaves++
		return n
	}
	n.queued = b.reducible[level].push(n)
	return n
}

// branchIndex combines bit level (counted from the most significant bit) of
// R, G and B into a child slot in [0, 7].
func branchIndex(p Pixel, level int) int {
	shift := 7 - level
	r := int(p.R>>shift) & 1
	g := int(p.G>>shift) & 1
	bl := int(p.B>>shift) & 1
	return r<<2 | g<<1 | bl
}

func (b *octreeBuilder) insert(p Pixel) {
	n := b.root
	for !n.leaf {
		n.count++
		b.reducible[n.level].fix(n.queued)

		idx := branchIndex(p, n.level)
		if n.children[idx] == nil {
			n.children[idx] = b.newNode(n.level + 1)
		}
		n = n.children[idx]
	}
	n.count++
	n.sum[0] += uint64(p.R)
	n.sum[1] += uint64(p.G)
	n.sum[2] += uint64(p.B)
}

// reduce merges the least populated internal node at the deepest level that
// has one. It reports false when nothing is left to merge.
func (b *octreeBuilder) reduce() bool {
	level := leafLevel - 1
	for level >= 0 && b.reducible[level].Len() == 0 {
		level--
	}
	if level < 0 {
		return false
	}

	n := b.reducible[level].pop()
	n.queued = nil

	merged := 0
	n.count = 0
	n.sum = [channels]uint64{}
	for i, child := range n.children {
		if child == nil {
			continue
		}
		for c := range channels {
			n.sum[c] += child.sum[c]
		}
		n.count += child.count
		n.children[i] = nil
		merged++
	}
	n.leaf = true
	b.leaves -= merged - 1
	b.reductions++
	return true
}

// colours aggregates leaf colours that truncate to the same value and ranks
// them by descending pixel count. Ties keep tree traversal order.
func (b *octreeBuilder) colours() (Palette, []int) {
	totals := make(map[Pixel]int)
	var order Palette
	b.walkLeaves(b.root, func(n *octreeNode) {
		c := Pixel{
			R: uint8(n.sum[0] / uint64(n.count)),
			G: uint8(n.sum[1] / uint64(n.count)),
			B: uint8(n.sum[2] / uint64(n.count)),
		}
		if _, seen := totals[c]; !seen {
			order = append(order, c)
		}
		totals[c] += n.count
	})

	slices.SortStableFunc(order, func(x, y Pixel) int {
		return cmp.Compare(totals[y], totals[x])
	})
	counts := make([]int, len(order))
	for i, c := range order {
		counts[i] = totals[c]
	}
	return order, counts
}

func (b *octreeBuilder) walkLeaves(n *octreeNode, visit func(*octreeNode)) {
	if n.leaf {
		if n.count > 0 {
			visit(n)
		}
		return
	}
	for _, child := range n.children {
		if child != nil {
			b.walkLeaves(child, visit)
		}
	}
}

// leafPixels sums the pixel counts of all current leaves.
func (b *octreeBuilder) leafPixels() int {
	total := 0
	b.walkLeaves(b.root, func(n *octreeNode) { total += n.count })
	return total
}
