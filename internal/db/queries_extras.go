package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/sqlc-dev/pqtype"
)

type UpsertGraphNodeParams struct {
	ID       string
	Name     string
	Kind     string
	Val      float64
	Metadata pqtype.NullRawMessage
}

type InsertGraphLinkParams struct {
	Source string
	Target string
	Weight float64
}

// BatchUpsertGraphNodes performs a multi-row upsert for graph_nodes for the provided slice.
// It falls back to no-op if the slice is empty. Batch size limits the number of rows per statement.
// Stored positions and pin state are preserved across upserts.
func (q *Queries) BatchUpsertGraphNodes(ctx context.Context, nodes []UpsertGraphNodeParams, batchSize int) error {
	if len(nodes) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = 1000
	}
	for start := 0; start < len(nodes); start += batchSize {
		end := start + batchSize
		if end > len(nodes) {
			end = len(nodes)
		}
		batch := nodes[start:end]
		var sb strings.Builder
		sb.WriteString("INSERT INTO graph_nodes (id,name,kind,val,metadata) VALUES ")
		args := make([]any, 0, len(batch)*5)
		for i, n := range batch {
			if i > 0 {
				sb.WriteByte(',')
			}
			idx := i*5 + 1
			sb.WriteString(fmt.Sprintf("($%d,$%d,$%d,$%d,$%d)", idx, idx+1, idx+2, idx+3, idx+4))
			args = append(args, n.ID, n.Name, n.Kind, n.Val, n.Metadata)
		}
		sb.WriteString(" ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name,kind=EXCLUDED.kind,val=EXCLUDED.val,metadata=EXCLUDED.metadata,updated_at=now()")
		if _, err := q.db.ExecContext(ctx, sb.String(), args...); err != nil {
			return err
		}
	}
	return nil
}

// BatchInsertGraphLinks inserts many graph_links rows with ON CONFLICT DO NOTHING semantics in batches.
// It de-duplicates (source,target) pairs client-side to reduce useless conflict checks.
func (q *Queries) BatchInsertGraphLinks(ctx context.Context, links []InsertGraphLinkParams, batchSize int) error {
	if len(links) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = 2000
	}
	// Deduplicate
	uniq := make(map[string]InsertGraphLinkParams, len(links))
	for _, l := range links {
		key := l.Source + "\x00" + l.Target
		uniq[key] = l
	}
	dedup := make([]InsertGraphLinkParams, 0, len(uniq))
	for _, v := range uniq {
		dedup = append(dedup, v)
	}
	// Batch insert using a VALUES table joined against graph_nodes to satisfy FKs
	for start := 0; start < len(dedup); start += batchSize {
		end := start + batchSize
		if end > len(dedup) {
			end = len(dedup)
		}
		batch := dedup[start:end]
		var sb strings.Builder
		sb.WriteString("WITH vals(source, target, weight) AS (VALUES ")
		args := make([]any, 0, len(batch)*3)
		for i, l := range batch {
			if i > 0 {
				sb.WriteByte(',')
			}
			idx := i*3 + 1
			sb.WriteString(fmt.Sprintf("($%d,$%d,$%d::float8)", idx, idx+1, idx+2))
			args = append(args, l.Source, l.Target, l.Weight)
		}
		sb.WriteString(") INSERT INTO graph_links (source, target, weight) ")
		sb.WriteString("SELECT v.source, v.target, v.weight FROM vals v ")
		sb.WriteString("JOIN graph_nodes s ON s.id = v.source ")
		sb.WriteString("JOIN graph_nodes t ON t.id = v.target ")
		sb.WriteString("ON CONFLICT (source, target) DO NOTHING")
		if _, err := q.db.ExecContext(ctx, sb.String(), args...); err != nil {
			return err
		}
	}
	return nil
}

// BatchUpdateGraphNodePositions updates positions for multiple nodes in chunks to avoid large array binds
// and reduce lock contention. It filters out nodes with negligible changes if epsilon > 0.
// Returns the number of nodes updated.
func (q *Queries) BatchUpdateGraphNodePositions(ctx context.Context, ids []string, x, y []float64, batchSize int, epsilon float64) (int, error) {
	if len(ids) == 0 || len(ids) != len(x) || len(ids) != len(y) {
		return 0, fmt.Errorf("ids, x, y arrays must have the same non-zero length")
	}
	if batchSize <= 0 {
		batchSize = 5000
	}

	// Apply epsilon filtering if needed (only update if position changed significantly)
	filtered := make([]int, 0, len(ids))
	if epsilon > 0 {
		existing, err := q.existingPositions(ctx, ids)
		if err != nil {
			return 0, err
		}
		for i := range ids {
			if oldPos, ok := existing[ids[i]]; ok {
				dx := x[i] - oldPos[0]
				dy := y[i] - oldPos[1]
				if dx*dx+dy*dy < epsilon*epsilon {
					continue // Skip if change is below threshold
				}
			}
			filtered = append(filtered, i)
		}
	} else {
		for i := range ids {
			filtered = append(filtered, i)
		}
	}

	if len(filtered) == 0 {
		return 0, nil
	}

	totalUpdated := 0
	for start := 0; start < len(filtered); start += batchSize {
		end := start + batchSize
		if end > len(filtered) {
			end = len(filtered)
		}

		batchIDs := make([]string, end-start)
		batchX := make([]float64, end-start)
		batchY := make([]float64, end-start)
		for i := start; i < end; i++ {
			idx := filtered[i]
			batchIDs[i-start] = ids[idx]
			batchX[i-start] = x[idx]
			batchY[i-start] = y[idx]
		}

		if err := q.UpdateGraphNodePositions(ctx, batchIDs, batchX, batchY); err != nil {
			return totalUpdated, fmt.Errorf("failed to update batch %d-%d: %w", start, end, err)
		}
		totalUpdated += len(batchIDs)
	}

	return totalUpdated, nil
}

func (q *Queries) existingPositions(ctx context.Context, ids []string) (map[string][2]float64, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT id, pos_x, pos_y FROM graph_nodes WHERE id = ANY($1)", pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query existing positions: %w", err)
	}
	defer rows.Close()

	existing := make(map[string][2]float64)
	for rows.Next() {
		var id string
		var px, py *float64
		if err := rows.Scan(&id, &px, &py); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		if px != nil && py != nil {
			existing[id] = [2]float64{*px, *py}
		}
	}
	return existing, rows.Err()
}
