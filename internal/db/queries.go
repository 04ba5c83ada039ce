package db

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const graphNodeColumns = "id, name, kind, val, pos_x, pos_y, pinned, community, metadata, updated_at"

func scanGraphNode(row interface{ Scan(...any) error }) (GraphNode, error) {
	var n GraphNode
	err := row.Scan(
		&n.ID, &n.Name, &n.Kind, &n.Val,
		&n.PosX, &n.PosY, &n.Pinned, &n.Community,
		&n.Metadata, &n.UpdatedAt,
	)
	return n, err
}

func (q *Queries) GetGraphNode(ctx context.Context, id string) (GraphNode, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+graphNodeColumns+" FROM graph_nodes WHERE id = $1", id)
	return scanGraphNode(row)
}

// ListGraphNodes returns nodes ordered by descending val so that a capped
// layout run keeps the most significant nodes. limit <= 0 means no cap.
func (q *Queries) ListGraphNodes(ctx context.Context, limit int) ([]GraphNode, error) {
	query := "SELECT " + graphNodeColumns + " FROM graph_nodes ORDER BY val DESC, id"
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = q.db.QueryContext(ctx, query+" LIMIT $1", limit)
	} else {
		rows, err = q.db.QueryContext(ctx, query)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nodes []GraphNode
	for rows.Next() {
		n, err := scanGraphNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// ListGraphLinksAmong returns links whose both endpoints are in ids.
func (q *Queries) ListGraphLinksAmong(ctx context.Context, ids []string) ([]GraphLink, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT source, target, weight FROM graph_links WHERE source = ANY($1) AND target = ANY($1)",
		pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []GraphLink
	for rows.Next() {
		var l GraphLink
		if err := rows.Scan(&l.Source, &l.Target, &l.Weight); err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

func (q *Queries) ListGraphLinks(ctx context.Context) ([]GraphLink, error) {
	rows, err := q.db.QueryContext(ctx, "SELECT source, target, weight FROM graph_links")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []GraphLink
	for rows.Next() {
		var l GraphLink
		if err := rows.Scan(&l.Source, &l.Target, &l.Weight); err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

func (q *Queries) CountGraphNodes(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM graph_nodes").Scan(&n)
	return n, err
}

func (q *Queries) CountGraphLinks(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM graph_links").Scan(&n)
	return n, err
}

func (q *Queries) CountCommunities(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		"SELECT COUNT(DISTINCT community) FROM graph_nodes WHERE community IS NOT NULL").Scan(&n)
	return n, err
}

// GetDatabaseStats returns node counts grouped by kind.
func (q *Queries) GetDatabaseStats(ctx context.Context) (DatabaseStats, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT kind, COUNT(*) FROM graph_nodes GROUP BY kind")
	if err != nil {
		return DatabaseStats{}, err
	}
	defer rows.Close()

	stats := DatabaseStats{Kinds: make(map[string]int64)}
	for rows.Next() {
		var kind string
		var count int64
		if err := rows.Scan(&kind, &count); err != nil {
			return DatabaseStats{}, err
		}
		stats.Kinds[kind] = count
	}
	return stats, rows.Err()
}

// SetGraphNodePinned pins or releases a node. Pinning also freezes the
// current stored position as the pin coordinates.
func (q *Queries) SetGraphNodePinned(ctx context.Context, id string, pinned bool) error {
	_, err := q.db.ExecContext(ctx,
		"UPDATE graph_nodes SET pinned = $2, updated_at = now() WHERE id = $1", id, pinned)
	return err
}

func (q *Queries) SetGraphNodePosition(ctx context.Context, id string, x, y float64) error {
	_, err := q.db.ExecContext(ctx,
		"UPDATE graph_nodes SET pos_x = $2, pos_y = $3, updated_at = now() WHERE id = $1", id, x, y)
	return err
}

// UpdateGraphNodePositions writes positions for many nodes in one statement
// using parallel unnested arrays.
func (q *Queries) UpdateGraphNodePositions(ctx context.Context, ids []string, x, y []float64) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE graph_nodes AS n SET
			pos_x = v.x,
			pos_y = v.y,
			updated_at = now()
		FROM (SELECT unnest($1::text[]) AS id, unnest($2::float8[]) AS x, unnest($3::float8[]) AS y) AS v
		WHERE n.id = v.id`,
		pq.Array(ids), pq.Array(x), pq.Array(y))
	return err
}

// SetGraphNodeCommunities assigns community labels in bulk.
func (q *Queries) SetGraphNodeCommunities(ctx context.Context, ids []string, communities []int32) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE graph_nodes AS n SET
			community = v.community,
			updated_at = now()
		FROM (SELECT unnest($1::text[]) AS id, unnest($2::int[]) AS community) AS v
		WHERE n.id = v.id`,
		pq.Array(ids), pq.Array(communities))
	return err
}

func (q *Queries) InsertLayoutVersion(ctx context.Context, v LayoutVersion) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO layout_versions (id, created_at, node_count, tick_count, final_alpha, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		v.ID, v.CreatedAt, v.NodeCount, v.TickCount, v.FinalAlpha, v.DurationMs)
	return err
}

func (q *Queries) LatestLayoutVersion(ctx context.Context) (LayoutVersion, error) {
	var v LayoutVersion
	err := q.db.QueryRowContext(ctx, `
		SELECT id, created_at, node_count, tick_count, final_alpha, duration_ms
		FROM layout_versions ORDER BY created_at DESC LIMIT 1`).
		Scan(&v.ID, &v.CreatedAt, &v.NodeCount, &v.TickCount, &v.FinalAlpha, &v.DurationMs)
	return v, err
}

func (q *Queries) ListLayoutVersions(ctx context.Context, limit int) ([]LayoutVersion, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, created_at, node_count, tick_count, final_alpha, duration_ms
		FROM layout_versions ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []LayoutVersion
	for rows.Next() {
		var v LayoutVersion
		if err := rows.Scan(&v.ID, &v.CreatedAt, &v.NodeCount, &v.TickCount, &v.FinalAlpha, &v.DurationMs); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func (q *Queries) GetLayoutVersion(ctx context.Context, id uuid.UUID) (LayoutVersion, error) {
	var v LayoutVersion
	err := q.db.QueryRowContext(ctx, `
		SELECT id, created_at, node_count, tick_count, final_alpha, duration_ms
		FROM layout_versions WHERE id = $1`, id).
		Scan(&v.ID, &v.CreatedAt, &v.NodeCount, &v.TickCount, &v.FinalAlpha, &v.DurationMs)
	return v, err
}
