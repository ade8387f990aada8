// Package main provides a batch tool to ingest training data and learn
// mappings without running the HTTP server.
//
// Usage:
//
//	go run ./cmd/learn --csv training.csv --data ~/OrderMap/data
//	go run ./cmd/learn --data ~/OrderMap/data --category "Roller Blinds"
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/ordermap/ordermap-server/internal/corpus"
	"github.com/ordermap/ordermap-server/internal/logger"
	"github.com/ordermap/ordermap-server/internal/mappings"
	"github.com/ordermap/ordermap-server/internal/oracle"
	"github.com/ordermap/ordermap-server/internal/service"
)

var (
	csvPath  = flag.String("csv", "", "CSV file with training rows to ingest before learning")
	dataPath = flag.String("data", "", "Data directory (default: ~/OrderMap/data)")
	category = flag.String("category", "", "Learn only this category (default: all)")
)

func main() {
	flag.Parse()

	dataDir := *dataPath
	if dataDir == "" {
		dataDir = os.ExpandEnv("$HOME/OrderMap/data")
	}

	lg := logger.New(logger.Config{
		Writer: io.Discard,
	})

	corpusStore, err := corpus.Open(filepath.Join(dataDir, "corpus.db"), lg)
	if err != nil {
		log.Fatalf("Failed to open training corpus: %v", err)
	}
	defer corpusStore.Close()

	mappingStore, err := mappings.NewStore(filepath.Join(dataDir, "mappings"), lg)
	if err != nil {
		log.Fatalf("Failed to open mapping store: %v", err)
	}

	svc := service.NewLearnService(corpusStore, mappingStore, oracle.Noop{}, lg)

	ctx := context.Background()

	if *csvPath != "" {
		f, err := os.Open(*csvPath)
		if err != nil {
			log.Fatalf("Failed to open CSV file: %v", err)
		}

		report, err := svc.Ingest(ctx, f)
		f.Close()
		if err != nil {
			log.Fatalf("Ingest failed: %v", err)
		}

		fmt.Printf("Ingested batch %s: %d rows (%d skipped)\n",
			report.BatchID, report.Rows, report.Skipped)
		for cat, n := range report.ByCat {
			fmt.Printf("  %-30s %d\n", cat, n)
		}
	}

	reports, err := svc.Learn(ctx, *category)
	if err != nil {
		log.Fatalf("Learn failed: %v", err)
	}

	fmt.Printf("\nLearned %d categories:\n", len(reports))
	for _, r := range reports {
		fmt.Printf("  %-30s %d pairs, %d mapped, %d constants, %d unmapped -> %s\n",
			r.Category, r.Pairs, r.MappedKeys, r.Constants, r.Unmapped, r.Path)
	}
}
