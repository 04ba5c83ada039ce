package integrity

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/onnwee/knowledge-cluster-map/engine/internal/metrics"
)

// Service provides graph data integrity operations
type Service struct {
	db *sql.DB
}

// NewService creates a new integrity service
func NewService(database *sql.DB) *Service {
	return &Service{db: database}
}

// CheckResult contains the result of an integrity check
type CheckResult struct {
	CheckName  string
	IssueCount int64
	Details    string
	CheckedAt  time.Time
	HasIssues  bool
}

func (s *Service) count(ctx context.Context, query string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, query).Scan(&n)
	return n, err
}

// CheckAllIntegrity runs all integrity checks
func (s *Service) CheckAllIntegrity(ctx context.Context) ([]CheckResult, error) {
	results := make([]CheckResult, 0)
	now := time.Now()

	// Dangling links. Foreign keys normally prevent these, but imports that
	// bypass the FK (or a disabled constraint) can leave them behind.
	danglingCount, err := s.count(ctx, `
		SELECT COUNT(*) FROM graph_links l
		WHERE NOT EXISTS (SELECT 1 FROM graph_nodes n WHERE n.id = l.source)
		   OR NOT EXISTS (SELECT 1 FROM graph_nodes n WHERE n.id = l.target)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count dangling links: %w", err)
	}
	metrics.GraphDanglingLinks.Set(float64(danglingCount))
	results = append(results, CheckResult{
		CheckName:  "dangling_links",
		IssueCount: danglingCount,
		Details:    "Links referencing non-existent nodes",
		CheckedAt:  now,
		HasIssues:  danglingCount > 0,
	})

	// Isolated nodes. Not an error, but a large count usually means the
	// source document's links went missing.
	isolatedCount, err := s.count(ctx, `
		SELECT COUNT(*) FROM graph_nodes n
		WHERE NOT EXISTS (SELECT 1 FROM graph_links l WHERE l.source = n.id OR l.target = n.id)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count isolated nodes: %w", err)
	}
	results = append(results, CheckResult{
		CheckName:  "isolated_nodes",
		IssueCount: isolatedCount,
		Details:    "Nodes with no links",
		CheckedAt:  now,
		HasIssues:  isolatedCount > 0,
	})

	// Invalid positions: NaN or infinite coordinates poison every later
	// layout run that seeds from stored positions.
	invalidPosCount, err := s.count(ctx, `
		SELECT COUNT(*) FROM graph_nodes
		WHERE pos_x = 'NaN'::float8 OR pos_y = 'NaN'::float8
		   OR pos_x IN ('Infinity'::float8, '-Infinity'::float8)
		   OR pos_y IN ('Infinity'::float8, '-Infinity'::float8)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count invalid positions: %w", err)
	}
	results = append(results, CheckResult{
		CheckName:  "invalid_positions",
		IssueCount: invalidPosCount,
		Details:    "Nodes with NaN or infinite coordinates",
		CheckedAt:  now,
		HasIssues:  invalidPosCount > 0,
	})

	// Half-set positions: one coordinate stored without the other.
	halfPosCount, err := s.count(ctx, `
		SELECT COUNT(*) FROM graph_nodes
		WHERE (pos_x IS NULL) <> (pos_y IS NULL)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count half-set positions: %w", err)
	}
	results = append(results, CheckResult{
		CheckName:  "half_set_positions",
		IssueCount: halfPosCount,
		Details:    "Nodes with only one of pos_x/pos_y set",
		CheckedAt:  now,
		HasIssues:  halfPosCount > 0,
	})

	// Pinned nodes need a stored position to pin to.
	pinnedNoPosCount, err := s.count(ctx, `
		SELECT COUNT(*) FROM graph_nodes
		WHERE pinned AND (pos_x IS NULL OR pos_y IS NULL)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count pinned nodes without positions: %w", err)
	}
	results = append(results, CheckResult{
		CheckName:  "pinned_without_position",
		IssueCount: pinnedNoPosCount,
		Details:    "Pinned nodes with no stored position",
		CheckedAt:  now,
		HasIssues:  pinnedNoPosCount > 0,
	})

	return results, nil
}

// CleanupDanglingLinks removes links referencing non-existent nodes
func (s *Service) CleanupDanglingLinks(ctx context.Context, batchSize int32) (int64, error) {
	var totalDeleted int64
	for {
		res, err := s.db.ExecContext(ctx, `
			DELETE FROM graph_links WHERE (source, target) IN (
				SELECT l.source, l.target FROM graph_links l
				WHERE NOT EXISTS (SELECT 1 FROM graph_nodes n WHERE n.id = l.source)
				   OR NOT EXISTS (SELECT 1 FROM graph_nodes n WHERE n.id = l.target)
				LIMIT $1
			)
		`, batchSize)
		if err != nil {
			return totalDeleted, fmt.Errorf("failed to delete dangling links: %w", err)
		}
		deleted, err := res.RowsAffected()
		if err != nil {
			return totalDeleted, err
		}
		totalDeleted += deleted
		if deleted == 0 {
			break
		}
		log.Printf("Deleted batch of %d dangling links", deleted)
	}
	return totalDeleted, nil
}

// CleanupIsolatedNodes removes nodes with no links
func (s *Service) CleanupIsolatedNodes(ctx context.Context, batchSize int32) (int64, error) {
	var totalDeleted int64
	for {
		res, err := s.db.ExecContext(ctx, `
			DELETE FROM graph_nodes WHERE id IN (
				SELECT n.id FROM graph_nodes n
				WHERE NOT EXISTS (SELECT 1 FROM graph_links l WHERE l.source = n.id OR l.target = n.id)
				LIMIT $1
			)
		`, batchSize)
		if err != nil {
			return totalDeleted, fmt.Errorf("failed to delete isolated nodes: %w", err)
		}
		deleted, err := res.RowsAffected()
		if err != nil {
			return totalDeleted, err
		}
		totalDeleted += deleted
		if deleted == 0 {
			break
		}
		log.Printf("Deleted batch of %d isolated nodes", deleted)
	}
	return totalDeleted, nil
}

// ResetInvalidPositions clears NaN, infinite, and half-set coordinates so
// the next layout run re-seeds those nodes from scratch.
func (s *Service) ResetInvalidPositions(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE graph_nodes
		SET pos_x = NULL, pos_y = NULL, pinned = FALSE
		WHERE pos_x = 'NaN'::float8 OR pos_y = 'NaN'::float8
		   OR pos_x IN ('Infinity'::float8, '-Infinity'::float8)
		   OR pos_y IN ('Infinity'::float8, '-Infinity'::float8)
		   OR (pos_x IS NULL) <> (pos_y IS NULL)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to reset invalid positions: %w", err)
	}
	return res.RowsAffected()
}

// DatabaseStats contains database statistics
type DatabaseStats struct {
	TableName       string
	Size            string
	RowCount        int64
	DeadRows        int64
	LastVacuum      *time.Time
	LastAutoVacuum  *time.Time
	LastAnalyze     *time.Time
	LastAutoAnalyze *time.Time
}

// GetDatabaseStatistics retrieves database statistics for monitoring
func (s *Service) GetDatabaseStatistics(ctx context.Context) ([]DatabaseStats, error) {
	query := `
		SELECT
			schemaname,
			tablename,
			pg_size_pretty(pg_total_relation_size(schemaname||'.'||tablename)) AS size,
			n_live_tup as row_count,
			n_dead_tup as dead_rows,
			last_vacuum,
			last_autovacuum,
			last_analyze,
			last_autoanalyze
		FROM pg_stat_user_tables
		WHERE schemaname = 'public'
		ORDER BY pg_total_relation_size(schemaname||'.'||tablename) DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query table statistics: %w", err)
	}
	defer rows.Close()

	var stats []DatabaseStats
	for rows.Next() {
		var schema, tablename, size string
		var rowCount, deadRows int64
		var lastVacuum, lastAutoVacuum, lastAnalyze, lastAutoAnalyze sql.NullTime

		err := rows.Scan(&schema, &tablename, &size, &rowCount, &deadRows,
			&lastVacuum, &lastAutoVacuum, &lastAnalyze, &lastAutoAnalyze)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		stat := DatabaseStats{
			TableName: tablename,
			Size:      size,
			RowCount:  rowCount,
			DeadRows:  deadRows,
		}
		if lastVacuum.Valid {
			stat.LastVacuum = &lastVacuum.Time
		}
		if lastAutoVacuum.Valid {
			stat.LastAutoVacuum = &lastAutoVacuum.Time
		}
		if lastAnalyze.Valid {
			stat.LastAnalyze = &lastAnalyze.Time
		}
		if lastAutoAnalyze.Valid {
			stat.LastAutoAnalyze = &lastAutoAnalyze.Time
		}

		stats = append(stats, stat)
	}

	return stats, rows.Err()
}

// GetBloatAnalysis identifies tables with high bloat that need vacuum
func (s *Service) GetBloatAnalysis(ctx context.Context) ([]DatabaseStats, error) {
	query := `
		SELECT
			schemaname,
			tablename,
			pg_size_pretty(pg_total_relation_size(schemaname||'.'||tablename)) AS total_size,
			n_live_tup as row_count,
			n_dead_tup as dead_rows
		FROM pg_stat_user_tables
		WHERE schemaname = 'public'
		  AND (n_live_tup + n_dead_tup) > 0
		ORDER BY n_dead_tup DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query bloat analysis: %w", err)
	}
	defer rows.Close()

	var stats []DatabaseStats
	for rows.Next() {
		var schema, tablename, size string
		var rowCount, deadRows int64

		err := rows.Scan(&schema, &tablename, &size, &rowCount, &deadRows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		stats = append(stats, DatabaseStats{
			TableName: tablename,
			Size:      size,
			RowCount:  rowCount,
			DeadRows:  deadRows,
		})
	}

	return stats, rows.Err()
}
