package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/config"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/integrity"
)

func main() {
	checkCmd := flag.NewFlagSet("check", flag.ExitOnError)
	cleanCmd := flag.NewFlagSet("clean", flag.ExitOnError)
	statsCmd := flag.NewFlagSet("stats", flag.ExitOnError)
	bloatCmd := flag.NewFlagSet("bloat", flag.ExitOnError)

	cleanType := cleanCmd.String("type", "all", "Type of cleanup: all, links, nodes, positions")
	cleanBatch := cleanCmd.Int("batch", 1000, "Batch size for cleanup operations")
	cleanDryRun := cleanCmd.Bool("dry-run", false, "Report what would be cleaned without deleting")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	_ = config.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	svc := integrity.NewService(db)
	ctx := context.Background()

	switch os.Args[1] {
	case "check":
		checkCmd.Parse(os.Args[2:])
		runCheck(ctx, svc)
	case "clean":
		cleanCmd.Parse(os.Args[2:])
		runClean(ctx, svc, *cleanType, *cleanBatch, *cleanDryRun)
	case "stats":
		statsCmd.Parse(os.Args[2:])
		runStats(ctx, svc)
	case "bloat":
		bloatCmd.Parse(os.Args[2:])
		runBloat(ctx, svc)
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Knowledge Cluster Map - Graph Integrity Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  integrity check                    - Run all integrity checks")
	fmt.Println("  integrity clean [options]          - Clean up graph integrity issues")
	fmt.Println("  integrity stats                    - Show database statistics")
	fmt.Println("  integrity bloat                    - Analyze table bloat")
	fmt.Println()
	fmt.Println("Clean options:")
	fmt.Println("  -type string     Type of cleanup (default: all)")
	fmt.Println("                   Options: all, links, nodes, positions")
	fmt.Println("  -batch int       Batch size for cleanup (default: 1000)")
	fmt.Println("  -dry-run         Report issues without deleting (default: false)")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  integrity check")
	fmt.Println("  integrity clean -type links -batch 500")
	fmt.Println("  integrity clean -dry-run")
	fmt.Println("  integrity stats")
}

func runCheck(ctx context.Context, svc *integrity.Service) {
	log.Println("Running integrity checks...")

	results, err := svc.CheckAllIntegrity(ctx)
	if err != nil {
		log.Fatalf("Failed to run integrity checks: %v", err)
	}

	fmt.Println()
	fmt.Println("=== Integrity Check Results ===")
	fmt.Println()

	hasAnyIssues := false
	for _, result := range results {
		status := "✓ OK"
		if result.HasIssues {
			status = fmt.Sprintf("⚠ ISSUES FOUND: %d", result.IssueCount)
			hasAnyIssues = true
		}
		fmt.Printf("%-26s %s\n", result.CheckName, status)
		fmt.Printf("%-26s %s\n", "", result.Details)
		fmt.Println()
	}

	if hasAnyIssues {
		fmt.Println("Run 'integrity clean' to fix the issues above.")
		os.Exit(2)
	}
	fmt.Println("All checks passed.")
}

func runClean(ctx context.Context, svc *integrity.Service, cleanType string, batchSize int, dryRun bool) {
	if dryRun {
		log.Println("Dry run: reporting issues without deleting")
		runCheck(ctx, svc)
		return
	}

	switch cleanType {
	case "all":
		cleanLinks(ctx, svc, batchSize)
		cleanNodes(ctx, svc, batchSize)
		cleanPositions(ctx, svc)
	case "links":
		cleanLinks(ctx, svc, batchSize)
	case "nodes":
		cleanNodes(ctx, svc, batchSize)
	case "positions":
		cleanPositions(ctx, svc)
	default:
		log.Fatalf("Unknown cleanup type: %s", cleanType)
	}
}

func cleanLinks(ctx context.Context, svc *integrity.Service, batchSize int) {
	deleted, err := svc.CleanupDanglingLinks(ctx, int32(batchSize))
	if err != nil {
		log.Fatalf("Failed to clean dangling links: %v", err)
	}
	log.Printf("Deleted %d dangling links", deleted)
}

func cleanNodes(ctx context.Context, svc *integrity.Service, batchSize int) {
	deleted, err := svc.CleanupIsolatedNodes(ctx, int32(batchSize))
	if err != nil {
		log.Fatalf("Failed to clean isolated nodes: %v", err)
	}
	log.Printf("Deleted %d isolated nodes", deleted)
}

func cleanPositions(ctx context.Context, svc *integrity.Service) {
	reset, err := svc.ResetInvalidPositions(ctx)
	if err != nil {
		log.Fatalf("Failed to reset invalid positions: %v", err)
	}
	log.Printf("Reset %d invalid positions", reset)
}

func runStats(ctx context.Context, svc *integrity.Service) {
	stats, err := svc.GetDatabaseStatistics(ctx)
	if err != nil {
		log.Fatalf("Failed to get database statistics: %v", err)
	}

	fmt.Println()
	fmt.Println("=== Database Statistics ===")
	fmt.Println()
	for _, stat := range stats {
		fmt.Printf("%-20s %10s  rows=%-10d dead=%d\n",
			stat.TableName, stat.Size, stat.RowCount, stat.DeadRows)
	}
}

func runBloat(ctx context.Context, svc *integrity.Service) {
	stats, err := svc.GetBloatAnalysis(ctx)
	if err != nil {
		log.Fatalf("Failed to analyze bloat: %v", err)
	}

	fmt.Println()
	fmt.Println("=== Table Bloat ===")
	fmt.Println()
	for _, stat := range stats {
		total := stat.RowCount + stat.DeadRows
		if total == 0 {
			continue
		}
		percentDead := float64(stat.DeadRows) / float64(total) * 100
		fmt.Printf("%-20s %10s  dead=%.1f%%\n", stat.TableName, stat.Size, percentDead)
	}
}
