// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

package awsranges

import (
	"log"
	"net/netip"
	"sort"

	"awsipranges/pkg/util/cidr"
)

// SearchResults holds the outcome of a bulk containment search: a derived
// index of every matching record, the per-query covering records, and the
// queries with no cover.
type SearchResults struct {
	// Ranges is a derived index containing the union of all matching
	// records, with the parent's sync token and create date.
	Ranges *Ranges

	// Matches maps each found query network to the records that cover it,
	// ordered by network.
	Matches map[netip.Prefix][]Prefix

	// NotFound lists the query networks with no covering record, sorted.
	NotFound []netip.Prefix
}

// Search looks up the covering prefixes of each query network. Query
// networks are canonicalized before lookup.
func (r *Ranges) Search(queries []netip.Prefix) *SearchResults {
	results := &SearchResults{
		Matches: make(map[netip.Prefix][]Prefix),
	}

	var matched []Prefix
	for _, query := range queries {
		query = cidr.Canonical(query)
		covering := r.Covering(query)
		if len(covering) == 0 {
			log.Printf("WARN: Search CIDR not found in AWS IP ranges: %s", query)
			results.NotFound = appendNetwork(results.NotFound, query)
			continue
		}
		results.Matches[query] = covering
		matched = append(matched, covering...)
	}

	results.Ranges = NewRanges(r.syncToken, r.createDate, matched)
	return results
}

// appendNetwork inserts the network into the sorted slice if absent.
func appendNetwork(networks []netip.Prefix, network netip.Prefix) []netip.Prefix {
	i := sort.Search(len(networks), func(i int) bool {
		return cidr.Compare(networks[i], network) >= 0
	})
	if i < len(networks) && networks[i] == network {
		return networks
	}
	networks = append(networks, netip.Prefix{})
	copy(networks[i+1:], networks[i:])
	networks[i] = network
	return networks
}
