// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"awsipranges/pkg/model"
	"awsipranges/pkg/prefixdb"
	"awsipranges/pkg/util/cidr"
)

const version = "1.0.0"

// awsipranges-lookup finds the longest matching AWS IP prefix for a host or
// network in a snapshot built with awsipranges-build.
func main() {
	dbPath := flag.String("db", "./awsiprangesdb", "Path to LevelDB snapshot database")
	jsonOutput := flag.Bool("json", true, "Output as JSON")
	showVersion := flag.Bool("version", false, "Show version")
	flag.Parse()

	if *showVersion {
		fmt.Printf("awsipranges-lookup version %s\n", version)
		return
	}

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: awsipranges-lookup [options] <ip-or-cidr>\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  awsipranges-lookup 3.5.140.10\n")
		fmt.Fprintf(os.Stderr, "  awsipranges-lookup --db=/data/awsiprangesdb 2600:1f18::/32\n")
		os.Exit(1)
	}

	query, err := cidr.ParseQuery(flag.Arg(0))
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}

	db, err := prefixdb.Open(*dbPath)
	if err != nil {
		log.Fatalf("ERROR: Failed to open database: %v", err)
	}
	defer db.Close()

	rec, err := db.LongestMatch(query)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			if *jsonOutput {
				fmt.Printf("{\"error\":\"not found\",\"query\":%q}\n", flag.Arg(0))
			} else {
				fmt.Printf("%s not found in AWS IP ranges\n", flag.Arg(0))
			}
			os.Exit(1)
		}
		log.Fatalf("ERROR: Lookup failed: %v", err)
	}

	result := &model.LookupResult{
		Query:              flag.Arg(0),
		Prefix:             rec.Network.String(),
		Region:             rec.Region,
		NetworkBorderGroup: rec.NetworkBorderGroup,
		Services:           rec.Services,
	}

	if *jsonOutput {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			log.Fatalf("ERROR: Failed to marshal JSON: %v", err)
		}
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Query:                %s\n", result.Query)
	fmt.Printf("AWS IP Prefix:        %s\n", result.Prefix)
	fmt.Printf("Region:               %s\n", result.Region)
	fmt.Printf("Network Border Group: %s\n", result.NetworkBorderGroup)
	fmt.Printf("Services:             %s\n", strings.Join(result.Services, ", "))
}
