// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

// Package awsranges provides an immutable, queryable index over the AWS IP
// Ranges publication: exact prefix lookup, longest-prefix match, covering
// supernet enumeration, filtering, and bulk search.
package awsranges

import (
	"net/netip"
	"sort"
	"time"

	"awsipranges/pkg/util/cidr"
	"awsipranges/pkg/util/names"
)

// AWS does not publish aggregates coarser than a /8 (IPv4) or /16 (IPv6),
// so a covering record can never sort below these reshaped lower bounds.
const (
	minIPv4PrefixLen = 8
	minIPv6PrefixLen = 16
)

// Ranges is an immutable index of AWS IP prefix records ordered by network.
// Build one with ParseManifest or NewRanges; all query methods are safe for
// concurrent use.
type Ranges struct {
	syncToken  string
	createDate time.Time

	regions             *names.Set
	networkBorderGroups *names.Set
	services            *names.Set

	// Sorted by cidr.Compare on Network; one record per network.
	prefixes []Prefix
}

// NewRanges builds an index from an arbitrary collection of prefix records,
// rebuilding the region, network border group, and service sets from the
// records. The metadata values are carried verbatim, so a derived index
// preserves its parent's sync token and create date.
func NewRanges(syncToken string, createDate time.Time, records []Prefix) *Ranges {
	r := &Ranges{
		syncToken:           syncToken,
		createDate:          createDate,
		regions:             &names.Set{},
		networkBorderGroups: &names.Set{},
		services:            &names.Set{},
		prefixes:            make([]Prefix, 0, len(records)),
	}

	for _, rec := range records {
		rec.Network = cidr.Canonical(rec.Network)
		r.prefixes = append(r.prefixes, rec)
	}
	sort.Slice(r.prefixes, func(i, j int) bool {
		return r.prefixes[i].Compare(r.prefixes[j]) < 0
	})

	// One record per network key.
	deduped := r.prefixes[:0]
	for _, rec := range r.prefixes {
		if len(deduped) > 0 && deduped[len(deduped)-1].Network == rec.Network {
			continue
		}
		deduped = append(deduped, rec)
	}
	r.prefixes = deduped

	for _, rec := range r.prefixes {
		r.regions.Intern(rec.Region)
		r.networkBorderGroups.Intern(rec.NetworkBorderGroup)
		for _, service := range rec.Services {
			r.services.Intern(service)
		}
	}

	return r
}

// SyncToken returns the publication identifier of the manifest, a Unix
// second count in practice.
func (r *Ranges) SyncToken() string {
	return r.syncToken
}

// CreateDate returns the UTC instant the manifest was published.
func (r *Ranges) CreateDate() time.Time {
	return r.createDate
}

// Regions returns the AWS regions referenced by the indexed records, in
// lexicographic order.
func (r *Ranges) Regions() []string {
	return r.regions.Values()
}

// NetworkBorderGroups returns the network border groups referenced by the
// indexed records, in lexicographic order.
func (r *Ranges) NetworkBorderGroups() []string {
	return r.networkBorderGroups.Values()
}

// Services returns the AWS services referenced by the indexed records, in
// lexicographic order.
func (r *Ranges) Services() []string {
	return r.services.Values()
}

// Prefixes returns the indexed records ordered by network. The returned
// slice is shared with the index and must not be modified.
func (r *Ranges) Prefixes() []Prefix {
	return r.prefixes
}

// Len returns the number of indexed records.
func (r *Ranges) Len() int {
	return len(r.prefixes)
}

// GetRegion returns the interned region handle for the given name.
func (r *Ranges) GetRegion(value string) (string, bool) {
	return r.regions.Lookup(value)
}

// GetNetworkBorderGroup returns the interned network border group handle
// for the given name.
func (r *Ranges) GetNetworkBorderGroup(value string) (string, bool) {
	return r.networkBorderGroups.Lookup(value)
}

// GetService returns the interned service handle for the given name.
func (r *Ranges) GetService(value string) (string, bool) {
	return r.services.Lookup(value)
}

// Get returns the record whose network equals the given network after
// canonicalization.
func (r *Ranges) Get(network netip.Prefix) (Prefix, bool) {
	network = cidr.Canonical(network)
	i := sort.Search(len(r.prefixes), func(i int) bool {
		return cidr.Compare(r.prefixes[i].Network, network) >= 0
	})
	if i < len(r.prefixes) && r.prefixes[i].Network == network {
		return r.prefixes[i], true
	}
	return Prefix{}, false
}

// LongestMatch returns the record with the longest prefix length that is a
// supernet of the query network.
func (r *Ranges) LongestMatch(query netip.Prefix) (Prefix, bool) {
	lo, hi, ok := r.scanBounds(query)
	if !ok {
		return Prefix{}, false
	}
	query = cidr.Canonical(query)
	for i := hi - 1; i >= lo; i-- {
		if cidr.IsSupernetOf(r.prefixes[i].Network, query) {
			return r.prefixes[i], true
		}
	}
	return Prefix{}, false
}

// Covering returns all records that are supernets of the query network,
// ordered by network.
func (r *Ranges) Covering(query netip.Prefix) []Prefix {
	lo, hi, ok := r.scanBounds(query)
	if !ok {
		return nil
	}
	query = cidr.Canonical(query)
	var covering []Prefix
	for i := lo; i < hi; i++ {
		if cidr.IsSupernetOf(r.prefixes[i].Network, query) {
			covering = append(covering, r.prefixes[i])
		}
	}
	return covering
}

// scanBounds returns the half-open record range [lo, hi) that can contain
// supernets of the query: from the query reshaped to the family's minimum
// published prefix length up through the query's own canonical network.
func (r *Ranges) scanBounds(query netip.Prefix) (int, int, bool) {
	upper := cidr.Canonical(query)

	minBits := minIPv4PrefixLen
	if !upper.Addr().Is4() {
		minBits = minIPv6PrefixLen
	}
	lower, err := cidr.Reshape(upper, minBits)
	if err != nil {
		return 0, 0, false
	}

	lo := sort.Search(len(r.prefixes), func(i int) bool {
		return cidr.Compare(r.prefixes[i].Network, lower) >= 0
	})
	hi := sort.Search(len(r.prefixes), func(i int) bool {
		return cidr.Compare(r.prefixes[i].Network, upper) > 0
	})
	if lo >= hi {
		return 0, 0, false
	}
	return lo, hi, true
}

// Filter returns a derived index containing exactly the records accepted by
// the filter. The sync token and create date are copied from the parent.
func (r *Ranges) Filter(filter *Filter) *Ranges {
	var records []Prefix
	for _, rec := range r.prefixes {
		if filter.Include(rec) {
			records = append(records, rec)
		}
	}
	return NewRanges(r.syncToken, r.createDate, records)
}
