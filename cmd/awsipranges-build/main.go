// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

package main

import (
	"flag"
	"fmt"
	"log"

	"awsipranges/pkg/client"
	"awsipranges/pkg/prefixdb"
)

const version = "1.0.0"

// awsipranges-build fetches the AWS IP Ranges manifest and writes a LevelDB
// snapshot for offline lookups with awsipranges-lookup.
func main() {
	dbPath := flag.String("db", "./awsiprangesdb", "Path to LevelDB snapshot database")
	showVersion := flag.Bool("version", false, "Show version")
	flag.Parse()

	if *showVersion {
		fmt.Printf("awsipranges-build version %s\n", version)
		return
	}

	ranges, err := client.New().GetRanges()
	if err != nil {
		log.Fatalf("ERROR: Failed to load AWS IP ranges: %v", err)
	}
	log.Printf("INFO: Loaded %d prefixes (sync token %s)", ranges.Len(), ranges.SyncToken())

	db, err := prefixdb.Open(*dbPath)
	if err != nil {
		log.Fatalf("ERROR: Failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.WriteRanges(ranges); err != nil {
		log.Fatalf("ERROR: Failed to write snapshot: %v", err)
	}

	log.Printf("INFO: Wrote %d prefixes to %s", ranges.Len(), *dbPath)
}
