// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

package awsranges

import (
	"awsipranges/pkg/model"
	"awsipranges/pkg/util/names"
)

// PrefixType selects an IP address family in a Filter.
type PrefixType int

const (
	PrefixTypeIPv4 PrefixType = iota + 1
	PrefixTypeIPv6
)

// IsIPv4 reports whether the prefix type is IPv4.
func (t PrefixType) IsIPv4() bool {
	return t == PrefixTypeIPv4
}

// IsIPv6 reports whether the prefix type is IPv6.
func (t PrefixType) IsIPv6() bool {
	return t == PrefixTypeIPv6
}

// Filter is a conjunction of predicates over prefix record attributes. An
// unset field places no restriction on that attribute. The zero value
// accepts every record. Build validated filters with FilterBuilder.
type Filter struct {
	prefixType          *PrefixType
	regions             *names.Set
	networkBorderGroups *names.Set
	services            *names.Set
}

// IPv4 reports whether the filter accepts IPv4 records.
func (f *Filter) IPv4() bool {
	return f.prefixType == nil || f.prefixType.IsIPv4()
}

// IPv6 reports whether the filter accepts IPv6 records.
func (f *Filter) IPv6() bool {
	return f.prefixType == nil || f.prefixType.IsIPv6()
}

// Regions returns the configured region restriction, or nil when unset.
func (f *Filter) Regions() []string {
	if f.regions == nil {
		return nil
	}
	return f.regions.Values()
}

// NetworkBorderGroups returns the configured network border group
// restriction, or nil when unset.
func (f *Filter) NetworkBorderGroups() []string {
	if f.networkBorderGroups == nil {
		return nil
	}
	return f.networkBorderGroups.Values()
}

// Services returns the configured service restriction, or nil when unset.
func (f *Filter) Services() []string {
	if f.services == nil {
		return nil
	}
	return f.services.Values()
}

// Include reports whether the record satisfies every configured predicate.
func (f *Filter) Include(p Prefix) bool {
	return f.matchPrefixType(p) &&
		f.matchRegions(p) &&
		f.matchNetworkBorderGroups(p) &&
		f.matchServices(p)
}

func (f *Filter) matchPrefixType(p Prefix) bool {
	if f.prefixType == nil {
		return true
	}
	if f.prefixType.IsIPv4() {
		return p.Network.Addr().Is4()
	}
	return !p.Network.Addr().Is4()
}

func (f *Filter) matchRegions(p Prefix) bool {
	return f.regions == nil || f.regions.Contains(p.Region)
}

func (f *Filter) matchNetworkBorderGroups(p Prefix) bool {
	return f.networkBorderGroups == nil || f.networkBorderGroups.Contains(p.NetworkBorderGroup)
}

// matchServices accepts a record when its service set intersects the
// configured services.
func (f *Filter) matchServices(p Prefix) bool {
	if f.services == nil {
		return true
	}
	return p.HasAnyService(f.services.Values())
}

// FilterBuilder constructs a Filter, validating each region, network border
// group, and service name against the parent index as it is set.
type FilterBuilder struct {
	ranges *Ranges

	prefixType          *PrefixType
	regions             *names.Set
	networkBorderGroups *names.Set
	services            *names.Set
}

// FilterBuilder returns a builder for filters over this index.
func (r *Ranges) FilterBuilder() *FilterBuilder {
	return &FilterBuilder{ranges: r}
}

// IPv4 includes IPv4 prefixes. Calling IPv4 after IPv6 (or vice versa)
// clears the family restriction so both families are included.
func (b *FilterBuilder) IPv4() *FilterBuilder {
	switch {
	case b.prefixType == nil:
		t := PrefixTypeIPv4
		b.prefixType = &t
	case b.prefixType.IsIPv6():
		b.prefixType = nil
	}
	return b
}

// IPv6 includes IPv6 prefixes. Calling IPv6 after IPv4 (or vice versa)
// clears the family restriction so both families are included.
func (b *FilterBuilder) IPv6() *FilterBuilder {
	switch {
	case b.prefixType == nil:
		t := PrefixTypeIPv6
		b.prefixType = &t
	case b.prefixType.IsIPv4():
		b.prefixType = nil
	}
	return b
}

// Regions restricts the filter to prefixes from the given AWS regions.
func (b *FilterBuilder) Regions(values ...string) error {
	set, err := b.resolve(values, model.AttributeRegion, b.ranges.GetRegion)
	if err != nil {
		return err
	}
	b.regions = set
	return nil
}

// NetworkBorderGroups restricts the filter to prefixes from the given
// network border groups.
func (b *FilterBuilder) NetworkBorderGroups(values ...string) error {
	set, err := b.resolve(values, model.AttributeNetworkBorderGroup, b.ranges.GetNetworkBorderGroup)
	if err != nil {
		return err
	}
	b.networkBorderGroups = set
	return nil
}

// Services restricts the filter to prefixes used by the given services.
func (b *FilterBuilder) Services(values ...string) error {
	set, err := b.resolve(values, model.AttributeService, b.ranges.GetService)
	if err != nil {
		return err
	}
	b.services = set
	return nil
}

func (b *FilterBuilder) resolve(values []string, kind string, lookup func(string) (string, bool)) (*names.Set, error) {
	set := &names.Set{}
	for _, value := range values {
		handle, ok := lookup(value)
		if !ok {
			return nil, model.UnknownAttributeError{Kind: kind, Value: value}
		}
		set.Intern(handle)
	}
	return set, nil
}

// Build yields the configured Filter. Validation happens in the setters, so
// Build cannot fail.
func (b *FilterBuilder) Build() *Filter {
	return &Filter{
		prefixType:          b.prefixType,
		regions:             b.regions,
		networkBorderGroups: b.networkBorderGroups,
		services:            b.services,
	}
}
