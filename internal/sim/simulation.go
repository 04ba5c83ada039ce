package sim

import (
	"math"
	"time"
)

// Event names observers can subscribe to.
const (
	EventTick = "tick"
	EventEnd  = "end"
)

// Stats is a snapshot of the simulation's timing counters.
type Stats struct {
	Ticks        int64
	LastTick     time.Duration
	AvgTick      time.Duration
	FPS          float64
	Alpha        float64
	Nodes        int
	ForcesActive int
}

type forceEntry struct {
	name  string
	force Force
}

// Simulation owns the node state and drives one cooling, force-integrating
// step at a time. It exposes no timers of its own; the host (or the
// scheduler driver) decides when Step runs. All methods are single-threaded
// by contract: ticks are strictly sequential and never concurrent.
type Simulation struct {
	nodes  []*Node
	forces []forceEntry
	random RandomSource

	alpha         float64
	alphaMin      float64
	alphaDecay    float64
	alphaTarget   float64
	velocityDecay float64

	running  bool
	handlers map[string][]func(*Simulation)

	ticks        int64
	lastTick     time.Duration
	totalTickDur time.Duration
}

// NewSimulation returns an idle simulation with the standard cooling
// schedule: alpha 1 decaying toward 0, self-stopping below alphaMin after
// roughly 300 undriven steps.
func NewSimulation() *Simulation {
	s := &Simulation{
		alpha:         1,
		alphaMin:      0.001,
		alphaTarget:   0,
		velocityDecay: 0.6,
		random:        NewLCG(42),
		handlers:      make(map[string][]func(*Simulation)),
	}
	s.alphaDecay = 1 - math.Pow(s.alphaMin, 1.0/300)
	return s
}

// SetRandomSource replaces the perturbation source, re-initializing every
// force so cached state picks it up. Used for deterministic tests.
func (s *Simulation) SetRandomSource(random RandomSource) {
	s.random = random
	s.initializeForces()
}

// Nodes returns the live node slice. Callers must treat it as a read-only
// snapshot between ticks; pinning via Fx/Fy is the only sanctioned mutation.
func (s *Simulation) Nodes() []*Node { return s.nodes }

// SetNodes replaces the node set wholesale. Slot indices are reassigned,
// missing physical parameters get defaults, nodes without a position (NaN
// coordinates, see NewNode) are placed on a deterministic phyllotaxis
// spiral, and every registered force is re-initialized. No physics state is
// diffed across the swap; callers wanting continuity pre-seed positions
// before calling. Any finite pre-seeded position, the origin included, is
// left untouched.
func (s *Simulation) SetNodes(nodes []*Node) {
	s.nodes = nodes
	for i, n := range nodes {
		n.Index = i
		if n.Mass <= 0 {
			n.Mass = DefaultMass
		}
		if n.Radius <= 0 {
			n.Radius = DefaultRadius
		}
		if math.IsNaN(n.X) || math.IsNaN(n.Y) {
			placeDefault(n, i)
		}
	}
	s.initializeForces()
}

func (s *Simulation) initializeForces() {
	for _, e := range s.forces {
		e.force.Initialize(s.nodes, s.random)
	}
}

// AddForce registers a named force at the end of the application order,
// replacing any force already registered under the name (its position in the
// order is preserved on replace).
func (s *Simulation) AddForce(name string, f Force) {
	f.Initialize(s.nodes, s.random)
	for i, e := range s.forces {
		if e.name == name {
			s.forces[i].force = f
			return
		}
	}
	s.forces = append(s.forces, forceEntry{name, f})
}

// Force returns the force registered under name, or nil.
func (s *Simulation) Force(name string) Force {
	for _, e := range s.forces {
		if e.name == name {
			return e.force
		}
	}
	return nil
}

// RemoveForce unregisters a force by name.
func (s *Simulation) RemoveForce(name string) {
	for i, e := range s.forces {
		if e.name == name {
			s.forces = append(s.forces[:i], s.forces[i+1:]...)
			return
		}
	}
}

// Alpha returns the current cooling scalar.
func (s *Simulation) Alpha() float64 { return s.alpha }

// SetAlpha clamps the value into [0, 1] rather than rejecting it; the
// simulation parameters are continuously tunable, not transactional.
func (s *Simulation) SetAlpha(v float64) { s.alpha = clamp01(v) }

func (s *Simulation) AlphaMin() float64     { return s.alphaMin }
func (s *Simulation) SetAlphaMin(v float64) { s.alphaMin = clamp01(v) }

func (s *Simulation) AlphaDecay() float64     { return s.alphaDecay }
func (s *Simulation) SetAlphaDecay(v float64) { s.alphaDecay = clamp01(v) }

// SetAlphaDecayForIterations derives the decay rate so that alpha cools from
// 1 to below alphaMin after roughly n steps.
func (s *Simulation) SetAlphaDecayForIterations(n int) {
	if n <= 0 {
		return
	}
	s.alphaDecay = 1 - math.Pow(s.alphaMin, 1.0/float64(n))
}

func (s *Simulation) AlphaTarget() float64     { return s.alphaTarget }
func (s *Simulation) SetAlphaTarget(v float64) { s.alphaTarget = clamp01(v) }

// VelocityDecay returns the damping factor applied to velocities each step.
func (s *Simulation) VelocityDecay() float64 { return 1 - s.velocityDecay }

// SetVelocityDecay sets the damping factor (default 0.4); internally stored
// as the retained fraction.
func (s *Simulation) SetVelocityDecay(v float64) { s.velocityDecay = 1 - clamp01(v) }

// Running reports whether the simulation is in the running state.
func (s *Simulation) Running() bool { return s.running }

// Start moves idle -> running. The host drives actual stepping.
func (s *Simulation) Start() { s.running = true }

// Stop moves running -> idle. Idempotent; any step already in flight
// completes, the next scheduled one does not run.
func (s *Simulation) Stop() { s.running = false }

// Restart resets alpha to 1 and resumes running, reheating a converged
// layout after a structural change.
func (s *Simulation) Restart() {
	s.alpha = 1
	s.running = true
}

// On subscribes fn to EventTick or EventEnd.
func (s *Simulation) On(event string, fn func(*Simulation)) {
	s.handlers[event] = append(s.handlers[event], fn)
}

func (s *Simulation) emit(event string) {
	for _, fn := range s.handlers[event] {
		fn(s)
	}
}

// Tick advances n steps synchronously regardless of run state and without
// firing events. Used for deterministic testing and settle-instantly hosts.
func (s *Simulation) Tick(n int) {
	for i := 0; i < n; i++ {
		s.step()
	}
}

// Step advances one step, fires the tick event, and self-stops (firing end)
// once alpha has cooled below alphaMin. Returns false when stopped.
func (s *Simulation) Step() bool {
	start := time.Now()
	s.step()
	s.lastTick = time.Since(start)
	s.totalTickDur += s.lastTick
	s.emit(EventTick)
	if s.alpha < s.alphaMin {
		s.running = false
		s.emit(EventEnd)
		return false
	}
	return s.running
}

// step is one unit of simulation: cool alpha, apply every force in
// registration order, then integrate velocities into positions with
// per-axis pinning taking precedence over everything.
func (s *Simulation) step() {
	s.ticks++
	s.alpha += (s.alphaTarget - s.alpha) * s.alphaDecay

	for _, e := range s.forces {
		e.force.Apply(s.alpha)
	}

	for _, n := range s.nodes {
		if n.Fx == nil {
			n.VX *= s.velocityDecay
			n.X += n.VX
		} else {
			n.X = *n.Fx
			n.VX = 0
		}
		if n.Fy == nil {
			n.VY *= s.velocityDecay
			n.Y += n.VY
		} else {
			n.Y = *n.Fy
			n.VY = 0
		}
	}
}

// NodeByID returns the node with the given ID, or nil.
func (s *Simulation) NodeByID(id string) *Node {
	for _, n := range s.nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// Find returns the node nearest (x, y) within radius, or nil. Pass a
// non-positive radius for an unbounded search.
func (s *Simulation) Find(x, y, radius float64) *Node {
	tree := NewQuadtree()
	tree.AddAll(s.nodes)
	i, ok := tree.Find(x, y, radius)
	if !ok {
		return nil
	}
	return s.nodes[i]
}

// Stats returns a snapshot of the timing counters for observability.
func (s *Simulation) Stats() Stats {
	st := Stats{
		Ticks:        s.ticks,
		LastTick:     s.lastTick,
		Alpha:        s.alpha,
		Nodes:        len(s.nodes),
		ForcesActive: len(s.forces),
	}
	if s.ticks > 0 {
		st.AvgTick = s.totalTickDur / time.Duration(s.ticks)
	}
	if s.lastTick > 0 {
		st.FPS = float64(time.Second) / float64(s.lastTick)
	}
	return st
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(1, math.Max(0, v))
}
