package sim

import "math"

// ManyBody approximates the all-pairs charge force in O(n log n) with
// Barnes-Hut: a fresh quadtree is built over current positions each
// application, subtree charges are aggregated bottom-up, and distant
// quadrants are collapsed to their center of mass when their apparent size
// drops below Theta.
type ManyBody struct {
	// Strength is evaluated once per node at initialization. Negative
	// strength repels, positive attracts. Nil means the default -30 for
	// every node.
	Strength func(n *Node) float64
	// Theta is the accuracy/performance threshold in (0, 1); smaller is
	// more accurate and slower. Zero means the default 0.9.
	Theta float64
	// DistanceMin clamps the minimum separation used for force magnitude,
	// avoiding singularities at zero separation. Zero means 1.
	DistanceMin float64
	// DistanceMax bounds the influence of far bodies. Zero means unbounded.
	DistanceMax float64

	nodes     []*Node
	strengths []float64
	random    RandomSource
	visited   int
}

// ConstantStrength adapts a fixed charge to the per-node strength signature.
func ConstantStrength(v float64) func(*Node) float64 {
	return func(*Node) float64 { return v }
}

func (f *ManyBody) Initialize(nodes []*Node, random RandomSource) {
	f.nodes = nodes
	f.random = random
	f.strengths = make([]float64, len(nodes))
	strength := f.Strength
	if strength == nil {
		strength = ConstantStrength(-30)
	}
	for i, n := range nodes {
		f.strengths[i] = strength(n)
	}
}

// Visited reports how many tree nodes the last Apply touched across all
// targets. Exposed for the approximation tests and the metrics collector.
func (f *ManyBody) Visited() int { return f.visited }

func (f *ManyBody) Apply(alpha float64) {
	if len(f.nodes) == 0 {
		return
	}
	theta := f.Theta
	if theta == 0 {
		theta = 0.9
	}
	distanceMin := f.DistanceMin
	if distanceMin == 0 {
		distanceMin = 1
	}
	distanceMax := f.DistanceMax
	if distanceMax == 0 {
		distanceMax = math.Inf(1)
	}
	theta2 := theta * theta
	distanceMin2 := distanceMin * distanceMin
	distanceMax2 := distanceMax * distanceMax
	random := f.random
	if random == nil {
		random = NewLCG(1)
	}

	tree := NewQuadtree()
	tree.AddAll(f.nodes)
	f.accumulate(tree)

	f.visited = 0
	for _, node := range f.nodes {
		tree.Visit(func(q *quadNode, x0, _, x1, _ float64) bool {
			f.visited++
			if q.weight == 0 {
				return true
			}
			dx := q.cx - node.X
			dy := q.cy - node.Y
			w := x1 - x0
			l := dx*dx + dy*dy

			// Far enough: treat the whole quadrant as one body and prune.
			if w*w < theta2*l {
				if l < distanceMax2 {
					if dx == 0 {
						dx = jiggle(random)
						l += dx * dx
					}
					if dy == 0 {
						dy = jiggle(random)
						l += dy * dy
					}
					if l < distanceMin2 {
						l = math.Sqrt(distanceMin2 * l)
					}
					k := q.value * alpha / l
					if node.Fx == nil {
						node.VX += dx * k
					}
					if node.Fy == nil {
						node.VY += dy * k
					}
				}
				return true
			}
			if !q.leaf() || l >= distanceMax2 {
				return false
			}

			// Close leaf: apply each stored point directly, skipping the
			// target itself.
			if q.data != int32(node.Index) || q.next != noQuad {
				if dx == 0 {
					dx = jiggle(random)
					l += dx * dx
				}
				if dy == 0 {
					dy = jiggle(random)
					l += dy * dy
				}
				if l < distanceMin2 {
					l = math.Sqrt(distanceMin2 * l)
				}
			}
			for c := q; ; c = &tree.arena[c.next] {
				if c.data != int32(node.Index) {
					k := f.strengths[c.data] * f.nodes[c.data].Mass * alpha / l
					if node.Fx == nil {
						node.VX += dx * k
					}
					if node.Fy == nil {
						node.VY += dy * k
					}
				}
				if c.next == noQuad {
					break
				}
			}
			return true
		})
	}
}

// accumulate fills every tree node's Barnes-Hut summary bottom-up: value is
// the summed charge (mass x strength), weight the total mass, (cx, cy) the
// mass-weighted centroid of the subtree.
func (f *ManyBody) accumulate(tree *Quadtree) {
	tree.VisitAfter(func(q *quadNode, _, _, _, _ float64) {
		if q.leaf() {
			q.cx, q.cy = q.px, q.py
			q.value, q.weight = 0, 0
			for c := q; ; c = &tree.arena[c.next] {
				m := f.nodes[c.data].Mass
				q.value += f.strengths[c.data] * m
				q.weight += m
				if c.next == noQuad {
					break
				}
			}
			return
		}
		var value, weight, x, y float64
		for _, ci := range q.children {
			if ci == noQuad {
				continue
			}
			c := &tree.arena[ci]
			if c.weight == 0 {
				continue
			}
			value += c.value
			weight += c.weight
			x += c.weight * c.cx
			y += c.weight * c.cy
		}
		q.value = value
		q.weight = weight
		if weight > 0 {
			q.cx = x / weight
			q.cy = y / weight
		}
	})
}
