package sim

import "math"

// PositionX pulls every node toward a target x coordinate, scaled by alpha
// and strength. The y axis is untouched.
type PositionX struct {
	X float64
	// Strength in [0, 1]. Zero means 0.1.
	Strength float64

	nodes []*Node
}

func (f *PositionX) Initialize(nodes []*Node, _ RandomSource) { f.nodes = nodes }

func (f *PositionX) Apply(alpha float64) {
	strength := f.Strength
	if strength == 0 {
		strength = 0.1
	}
	for _, n := range f.nodes {
		if n.Fx == nil {
			n.VX += (f.X - n.X) * strength * alpha
		}
	}
}

// PositionY pulls every node toward a target y coordinate.
type PositionY struct {
	Y        float64
	Strength float64

	nodes []*Node
}

func (f *PositionY) Initialize(nodes []*Node, _ RandomSource) { f.nodes = nodes }

func (f *PositionY) Apply(alpha float64) {
	strength := f.Strength
	if strength == 0 {
		strength = 0.1
	}
	for _, n := range f.nodes {
		if n.Fy == nil {
			n.VY += (f.Y - n.Y) * strength * alpha
		}
	}
}

// Radial pulls every node toward a circle of the given radius around
// (X, Y), useful for ring layouts and per-cluster orbits.
type Radial struct {
	Radius   float64
	X, Y     float64
	Strength float64

	nodes  []*Node
	random RandomSource
}

func (f *Radial) Initialize(nodes []*Node, random RandomSource) {
	f.nodes = nodes
	f.random = random
}

func (f *Radial) Apply(alpha float64) {
	strength := f.Strength
	if strength == 0 {
		strength = 0.1
	}
	random := f.random
	if random == nil {
		random = NewLCG(1)
	}
	for _, n := range f.nodes {
		dx := n.X - f.X
		dy := n.Y - f.Y
		if dx == 0 {
			dx = jiggle(random)
		}
		if dy == 0 {
			dy = jiggle(random)
		}
		r := math.Sqrt(dx*dx + dy*dy)
		k := (f.Radius - r) * strength * alpha / r
		if n.Fx == nil {
			n.VX += dx * k
		}
		if n.Fy == nil {
			n.VY += dy * k
		}
	}
}
