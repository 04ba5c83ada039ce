package sim

import "math"

// Collide resolves pairwise overlap: any two nodes closer than the sum of
// their radii are pushed apart along the separation axis, split between them
// by inverse mass so better-connected (heavier) nodes yield less.
//
// This is intentionally a plain O(n^2) sweep, not spatially accelerated:
// node radii are small relative to typical graph spread, so the constant
// factor stays low, but it is the known quadratic ceiling of the engine.
type Collide struct {
	// Strength in [0, 1] scales how much of each overlap is corrected per
	// pass. Zero means 1.
	Strength float64
	// Iterations is the number of relaxation passes per tick. Zero means 1.
	Iterations int

	nodes  []*Node
	radii  []float64
	random RandomSource
}

func (f *Collide) Initialize(nodes []*Node, random RandomSource) {
	f.nodes = nodes
	f.random = random
	f.radii = make([]float64, len(nodes))
	for i, n := range nodes {
		r := n.Radius
		if r <= 0 {
			r = DefaultRadius
		}
		f.radii[i] = r
	}
}

func (f *Collide) Apply(_ float64) {
	strength := f.Strength
	if strength == 0 {
		strength = 1
	}
	iterations := f.Iterations
	if iterations < 1 {
		iterations = 1
	}
	random := f.random
	if random == nil {
		random = NewLCG(1)
	}
	for k := 0; k < iterations; k++ {
		for i, a := range f.nodes {
			ri := f.radii[i]
			for j := i + 1; j < len(f.nodes); j++ {
				b := f.nodes[j]
				r := ri + f.radii[j]
				dx := b.X + b.VX - a.X - a.VX
				dy := b.Y + b.VY - a.Y - a.VY
				l := dx*dx + dy*dy
				if l >= r*r {
					continue
				}
				if dx == 0 {
					dx = jiggle(random)
					l += dx * dx
				}
				if dy == 0 {
					dy = jiggle(random)
					l += dy * dy
				}
				d := math.Sqrt(l)
				push := (r - d) / d * strength * 0.5
				// Inverse-mass split; equal masses give the even 0.5 each.
				wa := 2 * b.Mass / (a.Mass + b.Mass)
				wb := 2 * a.Mass / (a.Mass + b.Mass)
				if b.Fx == nil {
					b.VX += dx * push * wb
				}
				if b.Fy == nil {
					b.VY += dy * push * wb
				}
				if a.Fx == nil {
					a.VX -= dx * push * wa
				}
				if a.Fy == nil {
					a.VY -= dy * push * wa
				}
			}
		}
	}
}
