package db

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"
)

// DBTX is the subset of *sql.DB / *sql.Tx the query layer needs, so
// queries can run inside or outside a transaction.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries bundles hand-written SQL against the layout schema.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// DB exposes the underlying connection so callers can run raw SQL when needed.
func (q *Queries) DB() DBTX {
	return q.db
}

func Init(connStr string) (*Queries, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return New(db), nil
}
