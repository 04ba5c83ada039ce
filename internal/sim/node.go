package sim

import (
	"encoding/json"
	"math"
)

const (
	// DefaultMass is assigned to nodes that do not specify a mass.
	DefaultMass = 1.0
	// DefaultRadius is assigned to nodes that do not specify a radius.
	DefaultRadius = 8.0

	initialRadius = 10.0
)

var initialAngle = math.Pi * (3 - math.Sqrt(5))

// Node is the mutable physics state for one graph node. The simulation owns
// the slice of nodes between SetNodes calls; external consumers must treat
// positions read from tick callbacks as a snapshot and only mutate Fx/Fy.
type Node struct {
	// ID is a stable unique identifier assigned by the caller.
	ID string
	// Index is the dense slot index assigned by the simulation on each
	// SetNodes call. It is not persisted across node set replacements.
	Index int

	X, Y   float64
	VX, VY float64

	// Fx and Fy pin the node on an axis when non-nil. A pinned axis has its
	// velocity zeroed and its position snapped to the fixed value every step,
	// overriding all forces.
	Fx, Fy *float64

	// Mass is a force-computation weight, not inertia. Must be > 0.
	Mass float64
	// Radius is used by the collision force and Barnes-Hut distance checks.
	Radius float64

	// Metadata carries opaque host data (labels, types) through the
	// simulation untouched.
	Metadata json.RawMessage
}

// NewNode returns a node without a position. SetNodes places such nodes on
// the default spiral; NaN coordinates are the "unplaced" sentinel, so a node
// deliberately seeded at the origin keeps its position.
func NewNode(id string) *Node {
	return &Node{ID: id, X: math.NaN(), Y: math.NaN()}
}

// Pin fixes the node at (x, y) on both axes. Used as the sanctioned mutation
// channel for drag interactions.
func (n *Node) Pin(x, y float64) {
	n.Fx, n.Fy = &x, &y
}

// Unpin releases both axes.
func (n *Node) Unpin() {
	n.Fx, n.Fy = nil, nil
}

// Link is a directed pairing of two node identifiers. Distance and Strength
// override the link force defaults when positive; zero means "use default".
type Link struct {
	Source string
	Target string

	Distance float64
	Strength float64
}

// placeDefault assigns the deterministic phyllotaxis position used for nodes
// that arrive without coordinates, spiraling outward so no two nodes start
// coincident.
func placeDefault(n *Node, i int) {
	radius := initialRadius * math.Sqrt(0.5+float64(i))
	angle := float64(i) * initialAngle
	n.X = radius * math.Cos(angle)
	n.Y = radius * math.Sin(angle)
}
