// Package main provides a tool to seed the shared catalog from a list of books.
//
// Each line of the input file names one book as "Title|Author". Blank lines
// and lines starting with # are skipped. Books are extracted in batches with
// the configured model and stored at the extracted tier.
//
// Usage:
//
//	PERPLEXITY_API_KEY=... go run ./cmd/seed --file books.txt
//	PERPLEXITY_API_KEY=... go run ./cmd/seed --file books.txt --batch 5 --dry-run
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/novelly/novelly-server/internal/catalog"
	"github.com/novelly/novelly-server/internal/config"
	"github.com/novelly/novelly-server/internal/domain"
	"github.com/novelly/novelly-server/internal/llm"
	"github.com/novelly/novelly-server/internal/logger"
	"github.com/novelly/novelly-server/internal/store/sqlite"
)

var (
	inputFile = flag.String("file", "", "File with one \"Title|Author\" per line (required)")
	batchSize = flag.Int("batch", 10, "Books per extraction request")
	dryRun    = flag.Bool("dry-run", false, "Parse the file and print the books without calling the model")
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *inputFile == "" {
		log.Fatal("--file is required")
	}

	f, err := os.Open(*inputFile)
	if err != nil {
		log.Fatalf("Failed to open %s: %v", *inputFile, err)
	}
	books, err := parseBooks(f)
	f.Close()
	if err != nil {
		log.Fatalf("Failed to read %s: %v", *inputFile, err)
	}

	fmt.Printf("Parsed %d books from %s\n", len(books), *inputFile)
	if *dryRun {
		for _, b := range books {
			fmt.Printf("  %s | %s\n", b.Title, b.Author)
		}
		return
	}

	appLog := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Environment: cfg.App.Environment,
	})

	client := llm.NewClient(llm.Config{
		APIKey:            cfg.LLM.APIKey,
		BaseURL:           cfg.LLM.BaseURL,
		Model:             cfg.LLM.Model,
		Timeout:           cfg.LLM.Timeout,
		RequestsPerSecond: cfg.LLM.RequestsPerSecond,
	}, appLog.Logger)
	defer client.Close()
	if !client.HasKey() {
		log.Fatal("PERPLEXITY_API_KEY is required to seed the catalog")
	}

	fmt.Printf("Opening database at: %s\n", cfg.Data.DatabasePath())
	db, err := sqlite.Open(cfg.Data.DatabasePath(), appLog.Logger)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	svc := catalog.NewService(db, client, catalog.Options{Model: cfg.LLM.Model}, appLog.Logger)
	ctx := context.Background()

	if *batchSize <= 0 {
		*batchSize = 10
	}

	stored := 0
	for start := 0; start < len(books); start += *batchSize {
		end := min(start+*batchSize, len(books))
		entries := svc.BatchExtractAndStore(ctx, books[start:end])
		stored += len(entries)
		fmt.Printf("Batch %d-%d: %d entries\n", start+1, end, len(entries))
	}

	stats := svc.GetCatalogStats(ctx)
	fmt.Println()
	fmt.Println("=== Summary ===")
	fmt.Printf("Books submitted: %d\n", len(books))
	fmt.Printf("Entries stored: %d\n", stored)
	fmt.Printf("Catalog size: %d\n", stats.Total)
	for tier, n := range stats.ByTier {
		fmt.Printf("  tier %d: %d\n", tier, n)
	}
}

// parseBooks reads "Title|Author" lines. Duplicate lines are kept; the
// catalog collapses them by key.
func parseBooks(r io.Reader) ([]domain.RawRecommendation, error) {
	var books []domain.RawRecommendation
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		title, author, _ := strings.Cut(text, "|")
		title = strings.TrimSpace(title)
		if title == "" {
			return nil, fmt.Errorf("line %d: missing title", line)
		}
		books = append(books, domain.RawRecommendation{
			Title:  title,
			Author: strings.TrimSpace(author),
		})
	}
	return books, scanner.Err()
}
