package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Conversly/storefront/internal/category"
	"github.com/Conversly/storefront/internal/remote"
	"github.com/Conversly/storefront/internal/types"
	"go.uber.org/zap"
)

// Prints the category forest for a JSON dump of the flat category list, or
// for the live list of a backend, and reports orphans, cycles and duplicate
// ids.
func main() {
	jsonFile := flag.String("file", "", "Path to a JSON array of category records")
	backend := flag.String("backend", "", "Backend base URL to fetch the category list from")
	term := flag.String("q", "", "Only show branches matching this text or path")
	asJSON := flag.Bool("json", false, "Print the forest as JSON")
	flag.Parse()

	if (*jsonFile == "") == (*backend == "") {
		fmt.Println("Error: exactly one of -file or -backend is required")
		flag.Usage()
		os.Exit(1)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	var records []types.Category
	if *jsonFile != "" {
		logger.Info("Loading JSON file", zap.String("file", *jsonFile))
		records, err = loadJSONFile(*jsonFile)
	} else {
		logger.Info("Fetching category list", zap.String("backend", *backend))
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		records, err = remote.New(*backend, 15*time.Second).ListCategories(ctx)
		cancel()
	}
	if err != nil {
		logger.Fatal("Failed to load categories", zap.Error(err))
	}
	logger.Info("Loaded category records", zap.Int("count", len(records)))

	forest := category.Build(records)
	if *term != "" {
		forest = category.Filter(forest, *term)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(forest); err != nil {
			logger.Fatal("Failed to encode forest", zap.Error(err))
		}
	} else {
		for _, e := range category.Flatten(forest) {
			fmt.Printf("%s%s (%s) [%s]\n", strings.Repeat("  ", e.Level), e.Node.Text, e.Node.Path, e.LevelName)
		}
	}

	report := category.Inspect(records)
	logger.Info("Category tree built",
		zap.Int("roots", len(forest)),
		zap.Int("nodes", category.Count(forest)),
		zap.Strings("orphans", report.Orphans),
		zap.Int("cycles", len(report.Cycles)),
		zap.Strings("duplicates", report.Duplicates))
	if !report.Clean() {
		logger.Sync()
		os.Exit(2)
	}
}

// loadJSONFile accepts a bare array or the backend's {"categories": [...]}
// envelope.
func loadJSONFile(filePath string) ([]types.Category, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	var records []types.Category
	if err := json.Unmarshal(data, &records); err == nil {
		return records, nil
	}

	var envelope struct {
		Categories []types.Category `json:"categories"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}
	return envelope.Categories, nil
}
