package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/cache"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/config"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/db"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/metrics"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/sim"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
)

const snapshotCacheKey = "layout:snapshot"

// Store is the subset of db.Queries the layout service needs.
type Store interface {
	ListGraphNodes(ctx context.Context, limit int) ([]db.GraphNode, error)
	ListGraphLinksAmong(ctx context.Context, ids []string) ([]db.GraphLink, error)
	BatchUpdateGraphNodePositions(ctx context.Context, ids []string, x, y []float64, batchSize int, epsilon float64) (int, error)
	SetGraphNodePinned(ctx context.Context, id string, pinned bool) error
	SetGraphNodePosition(ctx context.Context, id string, x, y float64) error
	SetGraphNodeCommunities(ctx context.Context, ids []string, communities []int32) error
	InsertLayoutVersion(ctx context.Context, v db.LayoutVersion) error
	LatestLayoutVersion(ctx context.Context) (db.LayoutVersion, error)
}

// Service owns the force simulation over the stored graph: it loads nodes
// and links, runs the layout to convergence, persists positions, and hands
// out cached snapshots and live position updates.
type Service struct {
	store Store
	cache cache.Cache
	cfg   *config.Config

	mu      sync.Mutex
	sim     *sim.Simulation
	charge  *sim.ManyBody
	version uuid.UUID
	lastRun time.Time
	running bool

	subMu sync.Mutex
	subs  map[chan []PositionUpdate]struct{}
}

func NewService(store Store, c cache.Cache) *Service {
	return &Service{
		store: store,
		cache: c,
		cfg:   config.Load(),
		subs:  make(map[chan []PositionUpdate]struct{}),
	}
}

// PositionUpdate is one node's new coordinates, broadcast to subscribers.
type PositionUpdate struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// PayloadNode is a node as served to clients.
type PayloadNode struct {
	ID        string          `json:"id"`
	Name      string          `json:"name,omitempty"`
	Kind      string          `json:"kind,omitempty"`
	Val       float64         `json:"val,omitempty"`
	X         float64         `json:"x"`
	Y         float64         `json:"y"`
	Pinned    bool            `json:"pinned,omitempty"`
	Community *int32          `json:"community,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

// PayloadLink is a link as served to clients.
type PayloadLink struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Weight float64 `json:"weight,omitempty"`
}

// Payload is the full graph snapshot served to clients.
type Payload struct {
	Version string        `json:"version"`
	Nodes   []PayloadNode `json:"nodes"`
	Links   []PayloadLink `json:"links"`
}

// Status reports the current layout state.
type Status struct {
	Running bool      `json:"running"`
	Version string    `json:"version,omitempty"`
	LastRun time.Time `json:"last_run,omitempty"`
	Stats   sim.Stats `json:"stats"`
}

// loadGraph reads nodes and links from the store and converts them into
// simulation inputs. Stored positions seed the simulation; pinned nodes are
// fixed at their stored coordinates.
func (s *Service) loadGraph(ctx context.Context) ([]db.GraphNode, []*sim.Node, []db.GraphLink, error) {
	rows, err := s.store.ListGraphNodes(ctx, s.cfg.LayoutMaxNodes)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("fetch nodes: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, nil, nil
	}

	ids := make([]string, len(rows))
	nodes := make([]*sim.Node, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
		n := sim.NewNode(r.ID)
		if r.Val > 0 {
			n.Mass = r.Val
		}
		if r.PosX.Valid && r.PosY.Valid {
			n.X = r.PosX.Float64
			n.Y = r.PosY.Float64
			if r.Pinned {
				n.Pin(n.X, n.Y)
			}
		}
		if r.Metadata.Valid {
			n.Metadata = json.RawMessage(r.Metadata.RawMessage)
		}
		nodes[i] = n
	}

	rawLinks, err := s.store.ListGraphLinksAmong(ctx, ids)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("fetch links: %w", err)
	}
	return rows, nodes, rawLinks, nil
}

// simLinks converts stored links into spring constraints. Strength is left
// zero so the link force derives it from endpoint degrees.
func (s *Service) simLinks(rawLinks []db.GraphLink) []sim.Link {
	links := make([]sim.Link, len(rawLinks))
	for i, l := range rawLinks {
		links[i] = sim.Link{
			Source:   l.Source,
			Target:   l.Target,
			Distance: s.cfg.LinkDistance,
		}
	}
	return links
}

// buildSimulation wires the configured force stack into a fresh simulation.
func (s *Service) buildSimulation(nodes []*sim.Node, links []sim.Link) *sim.Simulation {
	simulation := sim.NewSimulation()
	simulation.SetAlphaMin(s.cfg.AlphaMin)
	simulation.SetAlphaTarget(s.cfg.AlphaTarget)
	simulation.SetVelocityDecay(s.cfg.VelocityDecay)
	if s.cfg.AlphaDecay > 0 {
		simulation.SetAlphaDecay(s.cfg.AlphaDecay)
	} else if s.cfg.LayoutIterations > 0 {
		simulation.SetAlphaDecayForIterations(s.cfg.LayoutIterations)
	}
	simulation.SetNodes(nodes)

	charge := &sim.ManyBody{
		Strength:    sim.ConstantStrength(s.cfg.ChargeStrength),
		Theta:       s.cfg.Theta,
		DistanceMax: s.cfg.ChargeDistMax,
	}
	link := sim.NewLinkForce(links)
	link.Iterations = s.cfg.LinkIterations

	simulation.AddForce("charge", charge)
	simulation.AddForce("link", link)
	simulation.AddForce("center", &sim.Center{})
	simulation.AddForce("collide", &sim.Collide{Strength: s.cfg.CollideStrength})
	simulation.AddForce("x", &sim.PositionX{Strength: 0.01})
	simulation.AddForce("y", &sim.PositionY{Strength: 0.01})

	s.charge = charge
	return simulation
}

// RunLayout executes one full layout run to convergence and persists the
// resulting positions. It records a layout version on success.
func (s *Service) RunLayout(ctx context.Context) (db.LayoutVersion, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.RunLayout")
	defer span.End()

	start := time.Now()
	version, err := s.runLayout(ctx)
	status := "success"
	if err != nil {
		status = "failed"
		span.RecordError(err)
	}
	metrics.LayoutRunsTotal.WithLabelValues(status).Inc()
	metrics.LayoutRunDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	span.SetAttributes(
		attribute.String("layout_status", status),
		attribute.Int("node_count", int(version.NodeCount)),
		attribute.Int("tick_count", int(version.TickCount)),
		attribute.Float64("duration_seconds", time.Since(start).Seconds()),
	)
	return version, err
}

func (s *Service) runLayout(ctx context.Context) (db.LayoutVersion, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return db.LayoutVersion{}, ErrLayoutRunning
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	rows, nodes, rawLinks, err := s.loadGraph(ctx)
	if err != nil {
		return db.LayoutVersion{}, err
	}
	if len(nodes) == 0 {
		log.Printf("ℹ️ No nodes found, skipping layout run")
		return db.LayoutVersion{}, nil
	}

	simulation := s.buildSimulation(nodes, s.simLinks(rawLinks))
	s.mu.Lock()
	s.sim = simulation
	s.mu.Unlock()

	start := time.Now()
	// Safety cap: a run never exceeds 4x the nominal cooling schedule even
	// if alphaTarget keeps the simulation warm.
	maxTicks := 4 * s.cfg.LayoutIterations
	if maxTicks <= 0 {
		maxTicks = 1200
	}
	simulation.Start()
	ticks := 0
	for ticks < maxTicks {
		if err := ctx.Err(); err != nil {
			return db.LayoutVersion{}, err
		}
		more := simulation.Step()
		ticks++
		metrics.LayoutTicksTotal.Inc()
		if !more {
			break
		}
	}
	st := simulation.Stats()
	metrics.LayoutAlpha.Set(st.Alpha)
	metrics.LayoutTickDuration.Observe(st.AvgTick.Seconds())
	metrics.LayoutTreeVisits.Set(float64(s.charge.Visited()))

	if err := s.persistPositions(ctx, nodes); err != nil {
		return db.LayoutVersion{}, err
	}

	v := db.LayoutVersion{
		ID:         uuid.New(),
		CreatedAt:  time.Now().UTC(),
		NodeCount:  int64(len(nodes)),
		TickCount:  int64(ticks),
		FinalAlpha: simulation.Alpha(),
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err := s.store.InsertLayoutVersion(ctx, v); err != nil {
		return db.LayoutVersion{}, fmt.Errorf("record layout version: %w", err)
	}

	s.mu.Lock()
	s.version = v.ID
	s.lastRun = v.CreatedAt
	s.mu.Unlock()

	s.cache.Delete(snapshotCacheKey)
	s.publishPayload(rows, rawLinks, nodes, v.ID)
	s.broadcast(positionsOf(nodes))

	log.Printf("✅ Layout run complete: %d nodes, %d ticks in %dms (alpha=%.4f)",
		len(nodes), ticks, v.DurationMs, v.FinalAlpha)
	return v, nil
}

func (s *Service) persistPositions(ctx context.Context, nodes []*sim.Node) error {
	ids := make([]string, len(nodes))
	xs := make([]float64, len(nodes))
	ys := make([]float64, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
		xs[i] = n.X
		ys[i] = n.Y
	}
	updated, err := s.store.BatchUpdateGraphNodePositions(ctx, ids, xs, ys, s.cfg.LayoutBatchSize, s.cfg.LayoutEpsilon)
	if err != nil {
		return fmt.Errorf("persist positions: %w", err)
	}
	log.Printf("💾 Persisted %d/%d node positions", updated, len(nodes))
	return nil
}

// publishPayload rebuilds the cached snapshot from the just-simulated state
// so the next read does not hit the database.
func (s *Service) publishPayload(rows []db.GraphNode, rawLinks []db.GraphLink, nodes []*sim.Node, version uuid.UUID) {
	byID := make(map[string]*sim.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}
	payload := Payload{Version: version.String(), Nodes: make([]PayloadNode, 0, len(rows))}
	for _, r := range rows {
		n, ok := byID[r.ID]
		if !ok {
			continue
		}
		pn := PayloadNode{
			ID:     r.ID,
			Name:   r.Name,
			Kind:   r.Kind,
			Val:    r.Val,
			X:      n.X,
			Y:      n.Y,
			Pinned: r.Pinned,
		}
		if r.Community.Valid {
			c := r.Community.Int32
			pn.Community = &c
		}
		if r.Metadata.Valid {
			pn.Metadata = json.RawMessage(r.Metadata.RawMessage)
		}
		payload.Nodes = append(payload.Nodes, pn)
	}
	for _, l := range rawLinks {
		payload.Links = append(payload.Links, PayloadLink{Source: l.Source, Target: l.Target, Weight: l.Weight})
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("⚠️ Failed to marshal snapshot: %v", err)
		return
	}
	s.cache.Set(snapshotCacheKey, data, 0)
}

// Snapshot returns the current graph with positions, served from cache when
// possible.
func (s *Service) Snapshot(ctx context.Context) (*Payload, error) {
	if data, ok := s.cache.Get(snapshotCacheKey); ok {
		metrics.APICacheHits.WithLabelValues("snapshot").Inc()
		var p Payload
		if err := json.Unmarshal(data, &p); err == nil {
			return &p, nil
		}
	}
	metrics.APICacheMisses.WithLabelValues("snapshot").Inc()

	rows, err := s.store.ListGraphNodes(ctx, s.cfg.LayoutMaxNodes)
	if err != nil {
		return nil, fmt.Errorf("fetch nodes: %w", err)
	}
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	rawLinks, err := s.store.ListGraphLinksAmong(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch links: %w", err)
	}

	s.mu.Lock()
	version := s.version
	s.mu.Unlock()
	if version == uuid.Nil {
		if latest, err := s.store.LatestLayoutVersion(ctx); err == nil {
			version = latest.ID
		}
	}

	payload := &Payload{Version: version.String(), Nodes: make([]PayloadNode, 0, len(rows))}
	for _, r := range rows {
		pn := PayloadNode{
			ID:     r.ID,
			Name:   r.Name,
			Kind:   r.Kind,
			Val:    r.Val,
			Pinned: r.Pinned,
		}
		if r.PosX.Valid {
			pn.X = r.PosX.Float64
		}
		if r.PosY.Valid {
			pn.Y = r.PosY.Float64
		}
		if r.Community.Valid {
			c := r.Community.Int32
			pn.Community = &c
		}
		if r.Metadata.Valid {
			pn.Metadata = json.RawMessage(r.Metadata.RawMessage)
		}
		payload.Nodes = append(payload.Nodes, pn)
	}
	for _, l := range rawLinks {
		payload.Links = append(payload.Links, PayloadLink{Source: l.Source, Target: l.Target, Weight: l.Weight})
	}

	if data, err := json.Marshal(payload); err == nil {
		s.cache.Set(snapshotCacheKey, data, 0)
	}
	return payload, nil
}

// Status returns the current layout state without blocking a running layout.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{Running: s.running, LastRun: s.lastRun}
	if s.version != uuid.Nil {
		st.Version = s.version.String()
	}
	if s.sim != nil {
		st.Stats = s.sim.Stats()
	}
	return st
}

// Reheat raises the simulation energy so an already-converged layout keeps
// adjusting, typically while a client drags a node.
func (s *Service) Reheat(alpha, alphaTarget float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sim == nil {
		return
	}
	s.sim.SetAlphaTarget(alphaTarget)
	s.sim.SetAlpha(alpha)
	s.sim.Restart()
}

// PinNode fixes a node at the given coordinates, both in storage and in the
// live simulation if one is loaded.
func (s *Service) PinNode(ctx context.Context, id string, x, y float64) error {
	if err := s.store.SetGraphNodePosition(ctx, id, x, y); err != nil {
		return fmt.Errorf("store position: %w", err)
	}
	if err := s.store.SetGraphNodePinned(ctx, id, true); err != nil {
		return fmt.Errorf("store pin: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sim != nil {
		if n := s.sim.NodeByID(id); n != nil {
			n.Pin(x, y)
		}
	}
	s.cache.Delete(snapshotCacheKey)
	return nil
}

// UnpinNode releases a pinned node back to the simulation.
func (s *Service) UnpinNode(ctx context.Context, id string) error {
	if err := s.store.SetGraphNodePinned(ctx, id, false); err != nil {
		return fmt.Errorf("store pin: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sim != nil {
		if n := s.sim.NodeByID(id); n != nil {
			n.Unpin()
		}
	}
	s.cache.Delete(snapshotCacheKey)
	return nil
}

// Subscribe registers a listener for live position updates. The returned
// cancel func must be called to release the subscription.
func (s *Service) Subscribe() (<-chan []PositionUpdate, func()) {
	ch := make(chan []PositionUpdate, 8)
	s.subMu.Lock()
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()
	return ch, func() {
		s.subMu.Lock()
		delete(s.subs, ch)
		s.subMu.Unlock()
	}
}

// broadcast fans position updates out to subscribers, dropping frames for
// slow consumers rather than blocking the simulation.
func (s *Service) broadcast(updates []PositionUpdate) {
	if len(updates) == 0 {
		return
	}
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- updates:
			metrics.WebSocketMessagesSent.Inc()
		default:
		}
	}
}

func positionsOf(nodes []*sim.Node) []PositionUpdate {
	updates := make([]PositionUpdate, len(nodes))
	for i, n := range nodes {
		updates[i] = PositionUpdate{ID: n.ID, X: n.X, Y: n.Y}
	}
	return updates
}
