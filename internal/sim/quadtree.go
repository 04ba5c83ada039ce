package sim

import "math"

const (
	noQuad = -1

	// maxSubdivide bounds how deep Add will split quadrants trying to
	// separate two points. Beyond this the coordinates are closer than
	// float64 midpoint resolution, so the points are chained as coincident
	// instead of corrupting the tree.
	maxSubdivide = 48
)

// quadNode is one slot in the quadtree arena. A leaf has data >= 0 and may
// chain further coincident leaves through next; an internal node has
// data == noQuad and at least one child. The value/weight/cx/cy aggregates
// are written by a bottom-up pass (see ManyBody) and are only valid until the
// next rebuild; the tree is rebuilt once per simulation step.
type quadNode struct {
	children [4]int32
	data     int32
	next     int32
	px, py   float64

	value  float64
	weight float64
	cx, cy float64
}

func (q *quadNode) leaf() bool { return q.data != noQuad }

// Quadtree is an adaptive 2D point index backed by a flat arena. Children are
// addressed by index instead of pointers, which keeps traversal iterative and
// the whole structure cheap to rebuild every step.
//
// Quadrants are numbered 0=NW, 1=NE, 2=SW, 3=SE with y growing downward.
type Quadtree struct {
	arena []quadNode
	root  int32

	x0, y0, x1, y1 float64
	bounded        bool
	size           int
}

// NewQuadtree returns an empty tree with degenerate bounds. Bounds grow as
// points are added.
func NewQuadtree() *Quadtree {
	return &Quadtree{root: noQuad}
}

func (t *Quadtree) alloc() int32 {
	t.arena = append(t.arena, quadNode{
		children: [4]int32{noQuad, noQuad, noQuad, noQuad},
		data:     noQuad,
		next:     noQuad,
	})
	return int32(len(t.arena) - 1)
}

func (t *Quadtree) allocLeaf(x, y float64, data int32) int32 {
	i := t.alloc()
	n := &t.arena[i]
	n.px, n.py = x, y
	n.data = data
	return i
}

// Size reports the number of points stored, counting coincident chains.
func (t *Quadtree) Size() int { return t.size }

// Extent returns the current bounds. Valid only once a point has been added
// or Cover called.
func (t *Quadtree) Extent() (x0, y0, x1, y1 float64) {
	return t.x0, t.y0, t.x1, t.y1
}

// Cover grows the bounds to enclose (x, y), doubling outward so existing
// quadrant boundaries are preserved. NaN coordinates are ignored.
func (t *Quadtree) Cover(x, y float64) {
	if math.IsNaN(x) || math.IsNaN(y) {
		return
	}
	if !t.bounded {
		t.x0 = math.Floor(x)
		t.y0 = math.Floor(y)
		t.x1 = t.x0 + 1
		t.y1 = t.y0 + 1
		t.bounded = true
		return
	}
	z := t.x1 - t.x0
	node := t.root
	for x < t.x0 || x >= t.x1 || y < t.y0 || y >= t.y1 {
		i := 0
		if x < t.x0 {
			i |= 1
		}
		if y < t.y0 {
			i |= 2
		}
		parent := t.alloc()
		t.arena[parent].children[i] = node
		node = parent
		z *= 2
		switch i {
		case 0:
			t.x1, t.y1 = t.x0+z, t.y0+z
		case 1:
			t.x0, t.y1 = t.x1-z, t.y0+z
		case 2:
			t.x1, t.y0 = t.x0+z, t.y1-z
		case 3:
			t.x0, t.y0 = t.x1-z, t.y1-z
		}
	}
	// Re-root only when the old root was an internal node; a lone leaf stays
	// the root regardless of bounds.
	if t.root != noQuad && !t.arena[t.root].leaf() {
		t.root = node
	}
}

// Add inserts a point carrying the payload index data. Points with NaN
// coordinates are skipped so one malformed node cannot corrupt the shared
// bounds. Reports whether the point was stored.
func (t *Quadtree) Add(x, y float64, data int32) bool {
	if math.IsNaN(x) || math.IsNaN(y) {
		return false
	}
	t.Cover(x, y)
	t.add(x, y, data)
	t.size++
	return true
}

func (t *Quadtree) add(x, y float64, data int32) {
	if t.root == noQuad {
		t.root = t.allocLeaf(x, y, data)
		return
	}

	x0, y0, x1, y1 := t.x0, t.y0, t.x1, t.y1
	node := t.root
	parent := int32(noQuad)
	var pi int

	// Descend to an empty slot or an occupied leaf.
	for !t.arena[node].leaf() {
		xm, ym := (x0+x1)/2, (y0+y1)/2
		i := 0
		if x >= xm {
			i |= 1
			x0 = xm
		} else {
			x1 = xm
		}
		if y >= ym {
			i |= 2
			y0 = ym
		} else {
			y1 = ym
		}
		parent, pi = node, i
		node = t.arena[node].children[i]
		if node == noQuad {
			t.arena[parent].children[pi] = t.allocLeaf(x, y, data)
			return
		}
	}

	// Coincident with the existing leaf: chain the new point in front.
	xp, yp := t.arena[node].px, t.arena[node].py
	if x == xp && y == yp {
		leaf := t.allocLeaf(x, y, data)
		t.arena[leaf].next = node
		if parent == noQuad {
			t.root = leaf
		} else {
			t.arena[parent].children[pi] = leaf
		}
		return
	}

	// Split until the old and new points land in different quadrants, up to
	// the subdivision bound.
	for depth := 0; ; depth++ {
		if depth >= maxSubdivide {
			leaf := t.allocLeaf(x, y, data)
			t.arena[leaf].next = node
			t.arena[parent].children[pi] = leaf
			return
		}
		split := t.alloc()
		if parent == noQuad {
			t.root = split
		} else {
			t.arena[parent].children[pi] = split
		}
		xm, ym := (x0+x1)/2, (y0+y1)/2
		i, j := 0, 0
		if x >= xm {
			i |= 1
		}
		if y >= ym {
			i |= 2
		}
		if xp >= xm {
			j |= 1
		}
		if yp >= ym {
			j |= 2
		}
		if i != j {
			t.arena[split].children[j] = node
			t.arena[split].children[i] = t.allocLeaf(x, y, data)
			return
		}
		if x >= xm {
			x0 = xm
		} else {
			x1 = xm
		}
		if y >= ym {
			y0 = ym
		} else {
			y1 = ym
		}
		parent, pi = split, i
	}
}

// AddAll inserts every node's current position, keyed by its slot index.
func (t *Quadtree) AddAll(nodes []*Node) {
	for _, n := range nodes {
		t.Add(n.X, n.Y, int32(n.Index))
	}
}

type quadFrame struct {
	node           int32
	x0, y0, x1, y1 float64
}

// Visit walks the tree pre-order. Returning true from the callback skips the
// node's children, which is how distance-pruned searches terminate early.
func (t *Quadtree) Visit(fn func(n *quadNode, x0, y0, x1, y1 float64) bool) {
	if t.root == noQuad {
		return
	}
	stack := []quadFrame{{t.root, t.x0, t.y0, t.x1, t.y1}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node := &t.arena[f.node]
		if fn(node, f.x0, f.y0, f.x1, f.y1) || node.leaf() {
			continue
		}
		xm, ym := (f.x0+f.x1)/2, (f.y0+f.y1)/2
		// Push in reverse so quadrant 0 is visited first.
		if c := node.children[3]; c != noQuad {
			stack = append(stack, quadFrame{c, xm, ym, f.x1, f.y1})
		}
		if c := node.children[2]; c != noQuad {
			stack = append(stack, quadFrame{c, f.x0, ym, xm, f.y1})
		}
		if c := node.children[1]; c != noQuad {
			stack = append(stack, quadFrame{c, xm, f.y0, f.x1, ym})
		}
		if c := node.children[0]; c != noQuad {
			stack = append(stack, quadFrame{c, f.x0, f.y0, xm, ym})
		}
	}
}

// VisitAfter walks the tree post-order, so every internal node sees its
// children first. Used for the bottom-up Barnes-Hut aggregation pass.
func (t *Quadtree) VisitAfter(fn func(n *quadNode, x0, y0, x1, y1 float64)) {
	if t.root == noQuad {
		return
	}
	var out []quadFrame
	stack := []quadFrame{{t.root, t.x0, t.y0, t.x1, t.y1}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, f)
		node := &t.arena[f.node]
		if node.leaf() {
			continue
		}
		xm, ym := (f.x0+f.x1)/2, (f.y0+f.y1)/2
		if c := node.children[0]; c != noQuad {
			stack = append(stack, quadFrame{c, f.x0, f.y0, xm, ym})
		}
		if c := node.children[1]; c != noQuad {
			stack = append(stack, quadFrame{c, xm, f.y0, f.x1, ym})
		}
		if c := node.children[2]; c != noQuad {
			stack = append(stack, quadFrame{c, f.x0, ym, xm, f.y1})
		}
		if c := node.children[3]; c != noQuad {
			stack = append(stack, quadFrame{c, xm, ym, f.x1, f.y1})
		}
	}
	for i := len(out) - 1; i >= 0; i-- {
		f := out[i]
		fn(&t.arena[f.node], f.x0, f.y0, f.x1, f.y1)
	}
}

// Find returns the payload of the point nearest (x, y) within maxRadius.
// Pass a non-positive maxRadius for an unbounded search.
func (t *Quadtree) Find(x, y, maxRadius float64) (int32, bool) {
	if t.root == noQuad {
		return 0, false
	}
	radius := math.Inf(1)
	x3, y3 := math.Inf(1), math.Inf(1)
	x2, y2 := math.Inf(-1), math.Inf(-1)
	if maxRadius > 0 {
		radius = maxRadius
		x2, y2 = x-maxRadius, y-maxRadius
		x3, y3 = x+maxRadius, y+maxRadius
	}

	var (
		found bool
		data  int32
	)
	stack := []quadFrame{{t.root, t.x0, t.y0, t.x1, t.y1}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.x0 > x3 || f.y0 > y3 || f.x1 < x2 || f.y1 < y2 {
			continue
		}
		node := &t.arena[f.node]
		if node.leaf() {
			dx, dy := x-node.px, y-node.py
			d := math.Hypot(dx, dy)
			if d < radius {
				radius = d
				x2, y2 = x-d, y-d
				x3, y3 = x+d, y+d
				data = node.data
				found = true
			}
			continue
		}
		xm, ym := (f.x0+f.x1)/2, (f.y0+f.y1)/2
		base := len(stack)
		if c := node.children[3]; c != noQuad {
			stack = append(stack, quadFrame{c, xm, ym, f.x1, f.y1})
		}
		if c := node.children[2]; c != noQuad {
			stack = append(stack, quadFrame{c, f.x0, ym, xm, f.y1})
		}
		if c := node.children[1]; c != noQuad {
			stack = append(stack, quadFrame{c, xm, f.y0, f.x1, ym})
		}
		if c := node.children[0]; c != noQuad {
			stack = append(stack, quadFrame{c, f.x0, f.y0, xm, ym})
		}
		// Hoist the quadrant containing the query point to the top of the
		// stack so the nearest candidates shrink the search box early.
		for k := base; k < len(stack); k++ {
			if containsQuad(stack[k], x, y) {
				stack[k], stack[len(stack)-1] = stack[len(stack)-1], stack[k]
				break
			}
		}
	}
	if !found {
		return 0, false
	}
	return data, true
}

func containsQuad(f quadFrame, x, y float64) bool {
	return x >= f.x0 && x < f.x1 && y >= f.y0 && y < f.y1
}

// Data returns every stored payload index, including coincident chains.
func (t *Quadtree) Data() []int32 {
	out := make([]int32, 0, t.size)
	t.Visit(func(n *quadNode, _, _, _, _ float64) bool {
		if !n.leaf() {
			return false
		}
		for i := n; ; {
			out = append(out, i.data)
			if i.next == noQuad {
				break
			}
			i = &t.arena[i.next]
		}
		return false
	})
	return out
}
