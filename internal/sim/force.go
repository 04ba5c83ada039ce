package sim

// Force is one composable velocity rule. Forces run in registration order
// within a step, each observing the velocity changes of the forces before it.
type Force interface {
	// Apply adds this force's contribution for the current alpha. Forces
	// write velocities only (the centering force is the one sanctioned
	// exception, it translates positions) and must skip writes on pinned
	// axes.
	Apply(alpha float64)

	// Initialize rebinds per-node caches (resolved links, per-node
	// strengths, radii) whenever the node array identity changes. The
	// simulation calls it on registration and on every SetNodes.
	Initialize(nodes []*Node, random RandomSource)
}
