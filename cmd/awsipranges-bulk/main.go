// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"awsipranges/pkg/client"
	"awsipranges/pkg/model"
	"awsipranges/pkg/util/cidr"
	"awsipranges/pkg/util/workers"
)

const version = "1.0.0"

func main() {
	// Parse flags
	inputFile := flag.String("input", "", "Input file (one IP or CIDR per line, default: stdin)")
	outputFile := flag.String("output", "", "Output file (JSONL format, default: stdout)")
	workerCount := flag.Int("workers", 10, "Number of concurrent workers")
	rateLimit := flag.Float64("rate", 0, "Maximum lookups per second (0 = unlimited)")
	showVersion := flag.Bool("version", false, "Show version")
	flag.Parse()

	if *showVersion {
		fmt.Printf("awsipranges-bulk version %s\n", version)
		return
	}

	// Load the AWS IP ranges
	ranges, err := client.New().GetRanges()
	if err != nil {
		log.Fatalf("ERROR: Failed to load AWS IP ranges: %v", err)
	}

	// Setup input
	var input *os.File
	if *inputFile == "" {
		input = os.Stdin
		log.Println("INFO: Reading from stdin (one IP or CIDR per line)")
	} else {
		f, err := os.Open(*inputFile)
		if err != nil {
			log.Fatalf("ERROR: Failed to open input file: %v", err)
		}
		defer f.Close()
		input = f
		log.Printf("INFO: Reading from %s", *inputFile)
	}

	// Setup output
	var output *os.File
	if *outputFile == "" {
		output = os.Stdout
	} else {
		f, err := os.Create(*outputFile)
		if err != nil {
			log.Fatalf("ERROR: Failed to create output file: %v", err)
		}
		defer f.Close()
		output = f
		log.Printf("INFO: Writing to %s", *outputFile)
	}

	// Read all queries
	var queries []string
	scanner := bufio.NewScanner(input)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		queries = append(queries, line)
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("ERROR: Failed to read input: %v", err)
	}

	log.Printf("INFO: Processing %d queries with %d workers", len(queries), *workerCount)

	// Resolve each query to its longest matching AWS prefix
	pool := workers.New(workers.Config{
		Workers:   *workerCount,
		RateLimit: *rateLimit,
	})

	outcomes, summary := pool.Run(context.Background(), queries,
		func(ctx context.Context, query string) (*model.LookupResult, error) {
			network, err := cidr.ParseQuery(query)
			if err != nil {
				return nil, err
			}
			rec, ok := ranges.LongestMatch(network)
			if !ok {
				return nil, model.ErrNotFound
			}
			return &model.LookupResult{
				Query:              query,
				Prefix:             rec.Network.String(),
				Region:             rec.Region,
				NetworkBorderGroup: rec.NetworkBorderGroup,
				Services:           rec.Services,
				SupernetCount:      len(ranges.Covering(network)),
			}, nil
		})

	// Write results in input order
	for _, outcome := range outcomes {
		switch {
		case outcome.Err == nil:
			writeJSON(output, outcome.Result)
		case errors.Is(outcome.Err, model.ErrNotFound):
			writeJSON(output, map[string]interface{}{
				"query": outcome.Query,
				"error": "not found",
			})
		case errors.Is(outcome.Err, model.ErrInvalidPrefix):
			writeJSON(output, map[string]interface{}{
				"query": outcome.Query,
				"error": "invalid IP or CIDR",
			})
		default:
			writeJSON(output, map[string]interface{}{
				"query": outcome.Query,
				"error": outcome.Err.Error(),
			})
		}
	}

	// Print summary to stderr, only when results go to a file
	if output != os.Stdout {
		log.Printf("INFO: Processed: %d, Found: %d, Not found: %d, Invalid: %d",
			len(queries), summary.Found, summary.NotFound, summary.Invalid)
	}
}

func writeJSON(w *os.File, data interface{}) {
	encoder := json.NewEncoder(w)
	if err := encoder.Encode(data); err != nil {
		log.Printf("ERROR: Failed to write JSON: %v", err)
	}
}
