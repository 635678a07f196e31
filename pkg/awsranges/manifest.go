// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

package awsranges

import (
	"encoding/json"
	"fmt"
	"net/netip"
	"sort"
	"strings"
	"time"

	"awsipranges/pkg/model"
	"awsipranges/pkg/util/cidr"
	"awsipranges/pkg/util/names"
)

// CreateDateFormat is the timestamp layout of the manifest's createDate
// field, interpreted as UTC.
const CreateDateFormat = "2006-01-02-15-04-05"

// Wire format of https://ip-ranges.amazonaws.com/ip-ranges.json. Unknown
// fields are ignored.
type manifestDocument struct {
	SyncToken    string               `json:"syncToken"`
	CreateDate   string               `json:"createDate"`
	Prefixes     []manifestIPv4Prefix `json:"prefixes"`
	IPv6Prefixes []manifestIPv6Prefix `json:"ipv6_prefixes"`
}

type manifestIPv4Prefix struct {
	IPPrefix           string `json:"ip_prefix"`
	Region             string `json:"region"`
	NetworkBorderGroup string `json:"network_border_group"`
	Service            string `json:"service"`
}

type manifestIPv6Prefix struct {
	IPv6Prefix         string `json:"ipv6_prefix"`
	Region             string `json:"region"`
	NetworkBorderGroup string `json:"network_border_group"`
	Service            string `json:"service"`
}

// ParseManifest decodes the published AWS IP Ranges JSON document and
// builds the index. Duplicate rows for the same network union their
// services; a duplicate that names a different region or network border
// group fails with ErrMalformedManifest.
func ParseManifest(data []byte) (*Ranges, error) {
	var doc manifestDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidManifest, err)
	}

	doc.SyncToken = strings.TrimSpace(doc.SyncToken)
	if doc.SyncToken == "" {
		return nil, fmt.Errorf("%w: missing syncToken", model.ErrInvalidManifest)
	}

	createDate, err := time.ParseInLocation(CreateDateFormat, strings.TrimSpace(doc.CreateDate), time.UTC)
	if err != nil {
		return nil, fmt.Errorf("%w: createDate %q", model.ErrInvalidManifest, doc.CreateDate)
	}

	if doc.Prefixes == nil || doc.IPv6Prefixes == nil {
		return nil, fmt.Errorf("%w: missing prefixes or ipv6_prefixes", model.ErrInvalidManifest)
	}

	b := newRangesBuilder(doc.SyncToken, createDate)
	for _, row := range doc.Prefixes {
		if err := b.addRow(row.IPPrefix, row.Region, row.NetworkBorderGroup, row.Service); err != nil {
			return nil, err
		}
	}
	for _, row := range doc.IPv6Prefixes {
		if err := b.addRow(row.IPv6Prefix, row.Region, row.NetworkBorderGroup, row.Service); err != nil {
			return nil, err
		}
	}

	return b.finish(), nil
}

// rangesBuilder accumulates manifest rows into the in-progress prefix map
// before the index is frozen.
type rangesBuilder struct {
	ranges  *Ranges
	records map[netip.Prefix]*Prefix
}

func newRangesBuilder(syncToken string, createDate time.Time) *rangesBuilder {
	return &rangesBuilder{
		ranges: &Ranges{
			syncToken:           syncToken,
			createDate:          createDate,
			regions:             &names.Set{},
			networkBorderGroups: &names.Set{},
			services:            &names.Set{},
		},
		records: make(map[netip.Prefix]*Prefix),
	}
}

func (b *rangesBuilder) addRow(prefix, region, networkBorderGroup, service string) error {
	prefix = strings.TrimSpace(prefix)
	region = strings.TrimSpace(region)
	networkBorderGroup = strings.TrimSpace(networkBorderGroup)
	service = strings.TrimSpace(service)

	if region == "" || networkBorderGroup == "" || service == "" {
		return fmt.Errorf("%w: prefix row %q missing region, network border group, or service",
			model.ErrInvalidManifest, prefix)
	}

	parsed, err := netip.ParsePrefix(prefix)
	if err != nil {
		return fmt.Errorf("%w: prefix %q", model.ErrInvalidManifest, prefix)
	}
	network := cidr.Canonical(parsed)

	regionHandle := b.ranges.regions.Intern(region)
	groupHandle := b.ranges.networkBorderGroups.Intern(networkBorderGroup)
	serviceHandle := b.ranges.services.Intern(service)

	if rec, ok := b.records[network]; ok {
		// A network belongs to exactly one region and network border
		// group; duplicate rows only add services.
		if rec.Region != regionHandle || rec.NetworkBorderGroup != groupHandle {
			return fmt.Errorf("%w: %s listed under %s/%s and %s/%s",
				model.ErrMalformedManifest, network,
				rec.Region, rec.NetworkBorderGroup, regionHandle, groupHandle)
		}
		rec.Services = insertService(rec.Services, serviceHandle)
		return nil
	}

	b.records[network] = &Prefix{
		Network:            network,
		Region:             regionHandle,
		NetworkBorderGroup: groupHandle,
		Services:           []string{serviceHandle},
	}
	return nil
}

func (b *rangesBuilder) finish() *Ranges {
	b.ranges.prefixes = make([]Prefix, 0, len(b.records))
	for _, rec := range b.records {
		b.ranges.prefixes = append(b.ranges.prefixes, *rec)
	}
	sort.Slice(b.ranges.prefixes, func(i, j int) bool {
		return cidr.Compare(b.ranges.prefixes[i].Network, b.ranges.prefixes[j].Network) < 0
	})
	return b.ranges
}
