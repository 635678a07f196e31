// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

package awsranges

import (
	"net/netip"
	"sort"
	"strings"

	"awsipranges/pkg/util/cidr"
)

// Prefix is a single AWS IP prefix record: the network plus the region,
// network border group, and services associated with it. Records are value
// types; the index never edits one after construction.
type Prefix struct {
	// IPv4 or IPv6 network in canonical form (host bits zero).
	Network netip.Prefix

	// AWS region the prefix is associated with.
	Region string

	// Network border group the prefix is associated with.
	NetworkBorderGroup string

	// AWS services that use the prefix, sorted and deduplicated.
	Services []string
}

// HasService reports whether the record lists the given service.
func (p Prefix) HasService(service string) bool {
	i := sort.SearchStrings(p.Services, service)
	return i < len(p.Services) && p.Services[i] == service
}

// HasAnyService reports whether the record lists any of the given services.
func (p Prefix) HasAnyService(services []string) bool {
	for _, service := range services {
		if p.HasService(service) {
			return true
		}
	}
	return false
}

// Compare orders records by network, region, network border group, then
// services (lexicographically by contained names).
func (p Prefix) Compare(other Prefix) int {
	if c := cidr.Compare(p.Network, other.Network); c != 0 {
		return c
	}
	if c := strings.Compare(p.Region, other.Region); c != 0 {
		return c
	}
	if c := strings.Compare(p.NetworkBorderGroup, other.NetworkBorderGroup); c != 0 {
		return c
	}
	return compareServices(p.Services, other.Services)
}

// Equal reports whether two records compare equal on all fields.
func (p Prefix) Equal(other Prefix) bool {
	return p.Compare(other) == 0
}

func compareServices(a, b []string) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := strings.Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

// insertService returns the service slice with the given service added,
// keeping it sorted and deduplicated.
func insertService(services []string, service string) []string {
	i := sort.SearchStrings(services, service)
	if i < len(services) && services[i] == service {
		return services
	}
	services = append(services, "")
	copy(services[i+1:], services[i:])
	services[i] = service
	return services
}
