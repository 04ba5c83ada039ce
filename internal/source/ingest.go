package source

import (
	"context"
	"fmt"
	"log"

	"github.com/sqlc-dev/pqtype"

	"github.com/onnwee/knowledge-cluster-map/engine/internal/config"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/db"
)

// Ingest upserts a fetched document into the graph tables. Links referencing
// unknown nodes are silently dropped by the FK join in the batch insert.
func Ingest(ctx context.Context, queries *db.Queries, doc *Document) error {
	if doc == nil || len(doc.Nodes) == 0 {
		log.Printf("ℹ️ Source document empty, nothing to ingest")
		return nil
	}
	cfg := config.Load()

	nodes := make([]db.UpsertGraphNodeParams, 0, len(doc.Nodes))
	for _, n := range doc.Nodes {
		if n.ID == "" {
			continue
		}
		p := db.UpsertGraphNodeParams{
			ID:   n.ID,
			Name: n.Name,
			Kind: n.Kind,
			Val:  n.Val,
		}
		if p.Kind == "" {
			p.Kind = "node"
		}
		if len(n.Metadata) > 0 {
			p.Metadata = pqtype.NullRawMessage{RawMessage: n.Metadata, Valid: true}
		}
		nodes = append(nodes, p)
	}
	if err := queries.BatchUpsertGraphNodes(ctx, nodes, cfg.LayoutBatchSize); err != nil {
		return fmt.Errorf("upsert nodes: %w", err)
	}

	links := make([]db.InsertGraphLinkParams, 0, len(doc.Links))
	for _, l := range doc.Links {
		if l.Source == "" || l.Target == "" || l.Source == l.Target {
			continue
		}
		w := l.Weight
		if w <= 0 {
			w = 1
		}
		links = append(links, db.InsertGraphLinkParams{Source: l.Source, Target: l.Target, Weight: w})
	}
	if err := queries.BatchInsertGraphLinks(ctx, links, cfg.LayoutBatchSize); err != nil {
		return fmt.Errorf("insert links: %w", err)
	}

	log.Printf("✅ Ingested %d nodes and %d links from source", len(nodes), len(links))
	return nil
}

// Sync fetches the upstream document and ingests it.
func Sync(ctx context.Context, client *Client, queries *db.Queries) error {
	doc, err := client.FetchGraph(ctx)
	if err != nil {
		return fmt.Errorf("fetch graph: %w", err)
	}
	return Ingest(ctx, queries, doc)
}
