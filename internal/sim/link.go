package sim

import "math"

// resolvedLink pairs direct node references with the per-link spring
// parameters derived at initialization.
type resolvedLink struct {
	source, target *Node
	distance       float64
	strength       float64
	// bias splits each correction between the endpoints by relative degree:
	// the better-connected endpoint moves proportionally less.
	bias float64
}

// LinkForce is a spring per resolved link: the extension l - distance scaled
// by alpha and the link strength, split across the endpoints by degree bias.
//
// Degree counts (and so bias and default strengths) are computed when the
// link set is (re)initialized, not live as links change elsewhere; callers
// that mutate the raw link list must call SetLinks again.
type LinkForce struct {
	// Distance is the default rest length for links that do not set one.
	// Zero means 30.
	Distance float64
	// Iterations is the number of relaxation passes per tick. Zero means 1.
	Iterations int

	links    []Link
	resolved []resolvedLink
	nodes    []*Node
	random   RandomSource
}

// NewLinkForce returns a spring force over the given raw links. Links whose
// endpoints are missing from the node set are kept in the raw list but
// excluded from the resolved set until a later SetNodes supplies them.
func NewLinkForce(links []Link) *LinkForce {
	return &LinkForce{links: links}
}

// Links returns the raw link list, including any currently-dangling entries.
func (f *LinkForce) Links() []Link { return f.links }

// SetLinks replaces the raw link list and re-resolves against the current
// node set.
func (f *LinkForce) SetLinks(links []Link) {
	f.links = links
	f.resolve()
}

func (f *LinkForce) Initialize(nodes []*Node, random RandomSource) {
	f.nodes = nodes
	f.random = random
	f.resolve()
}

func (f *LinkForce) resolve() {
	byID := make(map[string]*Node, len(f.nodes))
	for _, n := range f.nodes {
		byID[n.ID] = n
	}
	defaultDistance := f.Distance
	if defaultDistance == 0 {
		defaultDistance = 30
	}

	f.resolved = f.resolved[:0]
	degree := make(map[*Node]int, len(f.nodes))
	type pending struct {
		link           Link
		source, target *Node
	}
	var keep []pending
	for _, l := range f.links {
		source, ok := byID[l.Source]
		if !ok {
			continue
		}
		target, ok := byID[l.Target]
		if !ok {
			continue
		}
		// Dangling links are dropped here but stay in f.links so a later
		// node set can resurrect them.
		degree[source]++
		degree[target]++
		keep = append(keep, pending{l, source, target})
	}
	for _, p := range keep {
		distance := p.link.Distance
		if distance <= 0 {
			distance = defaultDistance
		}
		strength := p.link.Strength
		if strength <= 0 {
			strength = 1 / float64(min(degree[p.source], degree[p.target]))
		}
		f.resolved = append(f.resolved, resolvedLink{
			source:   p.source,
			target:   p.target,
			distance: distance,
			strength: strength,
			bias:     float64(degree[p.source]) / float64(degree[p.source]+degree[p.target]),
		})
	}
}

func (f *LinkForce) Apply(alpha float64) {
	iterations := f.Iterations
	if iterations < 1 {
		iterations = 1
	}
	random := f.random
	if random == nil {
		random = NewLCG(1)
	}
	for k := 0; k < iterations; k++ {
		for _, l := range f.resolved {
			x := l.target.X + l.target.VX - l.source.X - l.source.VX
			y := l.target.Y + l.target.VY - l.source.Y - l.source.VY
			if x == 0 {
				x = jiggle(random)
			}
			if y == 0 {
				y = jiggle(random)
			}
			d := math.Sqrt(x*x + y*y)
			scale := (d - l.distance) / d * alpha * l.strength
			x *= scale
			y *= scale
			if l.target.Fx == nil {
				l.target.VX -= x * l.bias
			}
			if l.target.Fy == nil {
				l.target.VY -= y * l.bias
			}
			if l.source.Fx == nil {
				l.source.VX += x * (1 - l.bias)
			}
			if l.source.Fy == nil {
				l.source.VY += y * (1 - l.bias)
			}
		}
	}
}
