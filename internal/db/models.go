package db

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

// GraphNode is a row in graph_nodes. Positions are nullable: a node that has
// never been through a layout run has no coordinates yet.
type GraphNode struct {
	ID        string
	Name      string
	Kind      string
	Val       float64
	PosX      sql.NullFloat64
	PosY      sql.NullFloat64
	Pinned    bool
	Community sql.NullInt32
	Metadata  pqtype.NullRawMessage
	UpdatedAt time.Time
}

// GraphLink is a row in graph_links.
type GraphLink struct {
	Source string
	Target string
	Weight float64
}

// LayoutVersion records one completed layout run.
type LayoutVersion struct {
	ID         uuid.UUID
	CreatedAt  time.Time
	NodeCount  int64
	TickCount  int64
	FinalAlpha float64
	DurationMs int64
}

// DatabaseStats aggregates node counts by kind for the metrics collector.
type DatabaseStats struct {
	Kinds map[string]int64
}
