package sim

import (
	"math"
	"strconv"
	"testing"
)

func TestSimulationDefaults(t *testing.T) {
	s := NewSimulation()
	if s.Alpha() != 1 {
		t.Errorf("expected initial alpha 1, got %f", s.Alpha())
	}
	if s.AlphaMin() != 0.001 {
		t.Errorf("expected alphaMin 0.001, got %f", s.AlphaMin())
	}
	if math.Abs(s.AlphaDecay()-0.0228) > 0.001 {
		t.Errorf("expected alphaDecay ~0.0228, got %f", s.AlphaDecay())
	}
	if math.Abs(s.VelocityDecay()-0.4) > 1e-9 {
		t.Errorf("expected velocityDecay 0.4, got %f", s.VelocityDecay())
	}
}

func TestSimulationParameterClamping(t *testing.T) {
	s := NewSimulation()
	s.SetAlpha(5)
	if s.Alpha() != 1 {
		t.Errorf("alpha should clamp to 1, got %f", s.Alpha())
	}
	s.SetAlpha(-2)
	if s.Alpha() != 0 {
		t.Errorf("alpha should clamp to 0, got %f", s.Alpha())
	}
	s.SetAlphaTarget(math.NaN())
	if s.AlphaTarget() != 0 {
		t.Errorf("NaN alphaTarget should clamp to 0, got %f", s.AlphaTarget())
	}
	s.SetVelocityDecay(3)
	if s.VelocityDecay() != 1 {
		t.Errorf("velocityDecay should clamp to 1, got %f", s.VelocityDecay())
	}
}

func TestSimulationConvergence(t *testing.T) {
	s := NewSimulation()
	s.SetNodes([]*Node{{ID: "a"}, {ID: "b"}})
	s.Start()

	ended := false
	s.On(EventEnd, func(*Simulation) { ended = true })

	steps := 0
	for s.Step() {
		steps++
		if steps > 1000 {
			t.Fatal("simulation failed to converge within 1000 steps")
		}
	}
	if s.Alpha() >= s.AlphaMin() {
		t.Errorf("expected alpha below alphaMin after convergence, got %f", s.Alpha())
	}
	if !ended {
		t.Error("end event did not fire")
	}
	if s.Running() {
		t.Error("simulation should be idle after convergence")
	}
	// The default schedule cools from 1 to below 0.001 in ~300 steps.
	if steps < 250 || steps > 350 {
		t.Errorf("expected ~300 steps to converge, got %d", steps)
	}
}

func TestSimulationSetNodesAssignsDefaults(t *testing.T) {
	s := NewSimulation()
	nodes := []*Node{
		NewNode("a"),
		{ID: "b", X: 5, Y: 7, Mass: 2, Radius: 3},
		NewNode("c"),
	}
	s.SetNodes(nodes)

	for i, n := range nodes {
		if n.Index != i {
			t.Errorf("node %s: expected index %d, got %d", n.ID, i, n.Index)
		}
	}
	if nodes[0].Mass != DefaultMass || nodes[0].Radius != DefaultRadius {
		t.Errorf("expected defaults mass=1 radius=8, got %f/%f", nodes[0].Mass, nodes[0].Radius)
	}
	if nodes[1].Mass != 2 || nodes[1].Radius != 3 {
		t.Error("explicit mass/radius must be preserved")
	}
	if nodes[1].X != 5 || nodes[1].Y != 7 {
		t.Error("pre-seeded positions must be preserved")
	}
	// Unplaced nodes land on the phyllotaxis spiral, never coincident.
	if math.IsNaN(nodes[0].X) || math.IsNaN(nodes[2].X) {
		t.Error("unplaced nodes should receive positions")
	}
	if nodes[0].X == nodes[2].X && nodes[0].Y == nodes[2].Y {
		t.Error("default placement produced coincident nodes")
	}
}

func TestSimulationSetNodesKeepsOriginSeed(t *testing.T) {
	s := NewSimulation()
	origin := &Node{ID: "a", X: 0, Y: 0}
	s.SetNodes([]*Node{origin, NewNode("b")})

	if origin.X != 0 || origin.Y != 0 {
		t.Errorf("node seeded at the origin was moved to (%f,%f)", origin.X, origin.Y)
	}
}

func TestSimulationPinningInvariant(t *testing.T) {
	s := NewSimulation()
	a := &Node{ID: "a"}
	b := &Node{ID: "b"}
	s.SetNodes([]*Node{a, b})
	s.AddForce("charge", &ManyBody{})
	s.AddForce("link", NewLinkForce([]Link{{Source: "a", Target: "b", Distance: 40}}))

	a.Pin(25, -60)
	s.Tick(100)

	if a.X != 25 || a.Y != -60 {
		t.Errorf("pinned node moved to (%f,%f)", a.X, a.Y)
	}
	if a.VX != 0 || a.VY != 0 {
		t.Errorf("pinned node kept velocity (%f,%f)", a.VX, a.VY)
	}

	// Pinning one axis leaves the other free.
	fy := 10.0
	b.Fy = &fy
	s.Tick(50)
	if b.Y != 10 || b.VY != 0 {
		t.Errorf("y-pinned node has y=%f vy=%f", b.Y, b.VY)
	}
}

func TestLinkSpringEquilibrium(t *testing.T) {
	s := NewSimulation()
	a := &Node{ID: "a", X: 0, Y: 0}
	b := &Node{ID: "b", X: 100, Y: 0}
	s.SetNodes([]*Node{a, b})
	s.AddForce("link", NewLinkForce([]Link{{Source: "a", Target: "b", Distance: 50, Strength: 1}}))

	for s.Alpha() >= s.AlphaMin() {
		s.Tick(1)
	}

	dist := math.Hypot(a.X-b.X, a.Y-b.Y)
	if math.Abs(dist-50) >= 1 {
		t.Errorf("expected separation within 1 of 50 after convergence, got %f", dist)
	}
}

func TestManyBodyDriftBounded(t *testing.T) {
	s := NewSimulation()
	random := NewLCG(3)
	nodes := make([]*Node, 500)
	for i := range nodes {
		nodes[i] = &Node{
			ID: "n" + strconv.Itoa(i),
			X:  random()*1000 - 500,
			Y:  random()*1000 - 500,
		}
	}
	s.SetNodes(nodes)
	mb := &ManyBody{Strength: ConstantStrength(-30), Theta: 0.9}
	s.AddForce("charge", mb)

	prevX := make([]float64, len(nodes))
	prevY := make([]float64, len(nodes))
	var totalDisp float64
	for tick := 0; tick < 50; tick++ {
		for i, n := range nodes {
			prevX[i], prevY[i] = n.X, n.Y
		}
		s.Tick(1)
		for i, n := range nodes {
			totalDisp += math.Hypot(n.X-prevX[i], n.Y-prevY[i])
		}
	}
	avgDispPerNodePerTick := totalDisp / float64(len(nodes)) / 50
	if avgDispPerNodePerTick > 50 {
		t.Errorf("runaway divergence: average displacement %f per node per tick", avgDispPerNodePerTick)
	}
	if mb.Visited() >= len(nodes)*len(nodes)/2 {
		t.Errorf("visited %d tree nodes, expected sub-quadratic", mb.Visited())
	}
}

func TestSimulationForceRegistry(t *testing.T) {
	s := NewSimulation()
	charge := &ManyBody{}
	s.AddForce("charge", charge)
	s.AddForce("center", &Center{})

	if s.Force("charge") != Force(charge) {
		t.Error("Force(name) should return the registered force")
	}
	if s.Force("missing") != nil {
		t.Error("unknown name should return nil")
	}

	replacement := &ManyBody{Theta: 0.5}
	s.AddForce("charge", replacement)
	if s.Force("charge") != Force(replacement) {
		t.Error("re-registering a name should replace the force")
	}
	if len(s.forces) != 2 {
		t.Errorf("replace should not grow the registry, got %d entries", len(s.forces))
	}
	if s.forces[0].name != "charge" {
		t.Error("replace should preserve application order")
	}

	s.RemoveForce("charge")
	if s.Force("charge") != nil {
		t.Error("removed force should be gone")
	}
}

func TestSimulationEvents(t *testing.T) {
	s := NewSimulation()
	s.SetNodes([]*Node{{ID: "a"}})

	ticks := 0
	s.On(EventTick, func(*Simulation) { ticks++ })

	s.Tick(5)
	if ticks != 0 {
		t.Errorf("Tick must not fire events, saw %d", ticks)
	}
	s.Step()
	if ticks != 1 {
		t.Errorf("Step should fire one tick event, saw %d", ticks)
	}
}

func TestSimulationRestart(t *testing.T) {
	s := NewSimulation()
	s.SetNodes([]*Node{{ID: "a"}})
	s.Tick(400)
	if s.Alpha() >= s.AlphaMin() {
		t.Fatal("expected cooled alpha before restart")
	}
	s.Restart()
	if s.Alpha() != 1 {
		t.Errorf("restart should reset alpha to 1, got %f", s.Alpha())
	}
	if !s.Running() {
		t.Error("restart should resume running")
	}
}

func TestSimulationFind(t *testing.T) {
	s := NewSimulation()
	a := &Node{ID: "a", X: 10, Y: 10}
	b := &Node{ID: "b", X: 200, Y: 200}
	s.SetNodes([]*Node{a, b})

	if got := s.Find(12, 12, 0); got != a {
		t.Errorf("expected node a, got %v", got)
	}
	if got := s.Find(500, 500, 5); got != nil {
		t.Errorf("expected no node within radius, got %v", got)
	}
}

func TestSimulationStats(t *testing.T) {
	s := NewSimulation()
	s.SetNodes([]*Node{{ID: "a"}, {ID: "b"}})
	s.AddForce("charge", &ManyBody{})
	s.Step()
	s.Step()

	st := s.Stats()
	if st.Ticks != 2 {
		t.Errorf("expected 2 ticks, got %d", st.Ticks)
	}
	if st.Nodes != 2 || st.ForcesActive != 1 {
		t.Errorf("unexpected snapshot: %+v", st)
	}
	if st.AvgTick <= 0 || st.LastTick <= 0 {
		t.Errorf("expected positive tick durations: %+v", st)
	}
}
