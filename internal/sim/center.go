package sim

// Center translates the whole node set so its centroid drifts toward a
// target point. It adjusts positions directly rather than velocities, keeping
// the visual mass centered without constraining individual node motion.
// Pinned nodes are excluded from the centroid and never moved.
type Center struct {
	X, Y float64
	// Strength scales the per-step correction. Zero means 1.
	Strength float64

	nodes []*Node
}

func (f *Center) Initialize(nodes []*Node, _ RandomSource) {
	f.nodes = nodes
}

func (f *Center) Apply(alpha float64) {
	strength := f.Strength
	if strength == 0 {
		strength = 1
	}
	var sx, sy float64
	n := 0
	for _, node := range f.nodes {
		if node.Fx != nil || node.Fy != nil {
			continue
		}
		sx += node.X
		sy += node.Y
		n++
	}
	if n == 0 {
		return
	}
	dx := (f.X - sx/float64(n)) * strength * alpha
	dy := (f.Y - sy/float64(n)) * strength * alpha
	for _, node := range f.nodes {
		if node.Fx == nil {
			node.X += dx
		}
		if node.Fy == nil {
			node.Y += dy
		}
	}
}
