// Package main prints a summary of the catalog database, or one entry.
//
// Usage:
//
//	go run ./cmd/dbinspect
//	go run ./cmd/dbinspect --key "Dune|Frank Herbert"
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"slices"
	"strings"

	"github.com/goccy/go-json"

	"github.com/novelly/novelly-server/internal/config"
	"github.com/novelly/novelly-server/internal/domain"
	"github.com/novelly/novelly-server/internal/store/sqlite"
)

var entryKey = flag.String("key", "", "Catalog key to print in full")

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := sqlite.Open(cfg.Data.DatabasePath(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	if *entryKey != "" {
		title, author, _ := strings.Cut(*entryKey, "|")
		key := domain.MakeCatalogKey(title, author)
		entry, err := db.GetByKey(ctx, key)
		if err != nil {
			log.Fatalf("Failed to load %q: %v", key, err)
		}
		out, err := json.MarshalIndent(entry, "", "  ")
		if err != nil {
			log.Fatalf("Failed to encode entry: %v", err)
		}
		fmt.Println(string(out))
		return
	}

	stats, err := db.Stats(ctx)
	if err != nil {
		log.Fatalf("Failed to read catalog stats: %v", err)
	}

	fmt.Println("=== Catalog Inspection ===")
	fmt.Printf("Database: %s\n", cfg.Data.DatabasePath())
	fmt.Println()
	fmt.Printf("Total entries: %d\n", stats.Total)

	tiers := make([]domain.Tier, 0, len(stats.ByTier))
	for t := range stats.ByTier {
		tiers = append(tiers, t)
	}
	slices.Sort(tiers)
	for _, t := range tiers {
		fmt.Printf("  tier %d: %d\n", t, stats.ByTier[t])
	}

	fmt.Printf("Needs review: %d\n", stats.NeedsReview)
	fmt.Printf("Failed extractions: %d\n", stats.Failed)
	if stats.Total > 0 {
		fmt.Printf("Failure rate: %.1f%%\n", 100*float64(stats.Failed)/float64(stats.Total))
	}
}
