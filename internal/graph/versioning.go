package graph

import (
	"math"

	"github.com/onnwee/knowledge-cluster-map/engine/internal/sim"
)

// PositionSnapshot is a point-in-time map of node positions, used to compute
// incremental updates between simulation frames.
type PositionSnapshot map[string][2]float64

// CaptureSnapshot records the current positions of the given nodes.
func CaptureSnapshot(nodes []*sim.Node) PositionSnapshot {
	snap := make(PositionSnapshot, len(nodes))
	for _, n := range nodes {
		snap[n.ID] = [2]float64{n.X, n.Y}
	}
	return snap
}

// DiffSnapshots returns the updates needed to move a client from old to new.
// Nodes absent from old are always included; nodes whose displacement is
// below epsilon are skipped to keep frames small.
func DiffSnapshots(old, new PositionSnapshot, epsilon float64) []PositionUpdate {
	var updates []PositionUpdate
	for id, pos := range new {
		oldPos, existed := old[id]
		if existed && epsilon > 0 {
			dx := pos[0] - oldPos[0]
			dy := pos[1] - oldPos[1]
			if math.Sqrt(dx*dx+dy*dy) < epsilon {
				continue
			}
		} else if existed && pos == oldPos {
			continue
		}
		updates = append(updates, PositionUpdate{ID: id, X: pos[0], Y: pos[1]})
	}
	return updates
}
