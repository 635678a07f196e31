// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

package awsranges

import (
	"errors"
	"net/netip"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"awsipranges/pkg/model"
	"awsipranges/pkg/util/cidr"
)

const testManifest = `{
  "syncToken": "1700000000",
  "createDate": "2023-11-14-22-13-20",
  "prefixes": [
    {"ip_prefix": "10.0.0.0/8", "region": "us-east-1", "network_border_group": "us-east-1", "service": "EC2"},
    {"ip_prefix": "10.0.0.0/8", "region": "us-east-1", "network_border_group": "us-east-1", "service": "S3"},
    {"ip_prefix": "10.0.0.0/16", "region": "us-east-1", "network_border_group": "us-east-1", "service": "EC2"},
    {"ip_prefix": "10.1.0.0/16", "region": "us-west-1", "network_border_group": "us-west-1", "service": "EC2"}
  ],
  "ipv6_prefixes": [
    {"ipv6_prefix": "2001:db8::/32", "region": "us-east-1", "network_border_group": "us-east-1", "service": "EC2"},
    {"ipv6_prefix": "2001:db8::/48", "region": "us-east-1", "network_border_group": "us-east-1", "service": "EC2"}
  ]
}`

func testRanges(t *testing.T) *Ranges {
	t.Helper()
	ranges, err := ParseManifest([]byte(testManifest))
	if err != nil {
		t.Fatalf("ParseManifest failed: %v", err)
	}
	return ranges
}

func TestParseManifest(t *testing.T) {
	ranges := testRanges(t)

	if got := ranges.SyncToken(); got != "1700000000" {
		t.Errorf("got sync token %q, want 1700000000", got)
	}
	want := time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)
	if !ranges.CreateDate().Equal(want) {
		t.Errorf("got create date %v, want %v", ranges.CreateDate(), want)
	}
	if got := ranges.Len(); got != 5 {
		t.Errorf("got %d prefixes, want 5", got)
	}

	if diff := cmp.Diff([]string{"us-east-1", "us-west-1"}, ranges.Regions()); diff != "" {
		t.Errorf("Regions mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"us-east-1", "us-west-1"}, ranges.NetworkBorderGroups()); diff != "" {
		t.Errorf("NetworkBorderGroups mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"EC2", "S3"}, ranges.Services()); diff != "" {
		t.Errorf("Services mismatch (-want +got):\n%s", diff)
	}
}

// Duplicate rows for the same network union their services.
func TestParseManifestMergesDuplicateRows(t *testing.T) {
	ranges := testRanges(t)

	rec, ok := ranges.Get(netip.MustParsePrefix("10.0.0.0/8"))
	if !ok {
		t.Fatal("10.0.0.0/8 not found")
	}
	if rec.Region != "us-east-1" {
		t.Errorf("got region %q, want us-east-1", rec.Region)
	}
	if diff := cmp.Diff([]string{"EC2", "S3"}, rec.Services); diff != "" {
		t.Errorf("Services mismatch (-want +got):\n%s", diff)
	}
}

func TestParseManifestErrors(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		wantErr error
	}{
		{"not json", `{`, model.ErrInvalidManifest},
		{"missing sync token", `{"createDate": "2023-11-14-22-13-20", "prefixes": [], "ipv6_prefixes": []}`, model.ErrInvalidManifest},
		{"bad create date", `{"syncToken": "1", "createDate": "2023-11-14T22:13:20Z", "prefixes": [], "ipv6_prefixes": []}`, model.ErrInvalidManifest},
		{"missing prefix arrays", `{"syncToken": "1", "createDate": "2023-11-14-22-13-20"}`, model.ErrInvalidManifest},
		{"invalid cidr", `{"syncToken": "1", "createDate": "2023-11-14-22-13-20", "prefixes": [
			{"ip_prefix": "10.0.0.0/33", "region": "us-east-1", "network_border_group": "us-east-1", "service": "EC2"}
		], "ipv6_prefixes": []}`, model.ErrInvalidManifest},
		{"missing row fields", `{"syncToken": "1", "createDate": "2023-11-14-22-13-20", "prefixes": [
			{"ip_prefix": "10.0.0.0/8", "region": "", "network_border_group": "us-east-1", "service": "EC2"}
		], "ipv6_prefixes": []}`, model.ErrInvalidManifest},
		{"conflicting region", `{"syncToken": "1", "createDate": "2023-11-14-22-13-20", "prefixes": [
			{"ip_prefix": "10.0.0.0/8", "region": "us-east-1", "network_border_group": "us-east-1", "service": "EC2"},
			{"ip_prefix": "10.0.0.0/8", "region": "us-west-1", "network_border_group": "us-west-1", "service": "S3"}
		], "ipv6_prefixes": []}`, model.ErrMalformedManifest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest([]byte(tt.json))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got error %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// Every name referenced by a record is present in the index sets, and every
// set entry is referenced by some record.
func TestConstructionClosure(t *testing.T) {
	ranges := testRanges(t)

	seenRegions := map[string]bool{}
	seenGroups := map[string]bool{}
	seenServices := map[string]bool{}
	for _, rec := range ranges.Prefixes() {
		seenRegions[rec.Region] = true
		seenGroups[rec.NetworkBorderGroup] = true
		for _, service := range rec.Services {
			seenServices[service] = true
		}

		if _, ok := ranges.GetRegion(rec.Region); !ok {
			t.Errorf("record region %q missing from index", rec.Region)
		}
		if _, ok := ranges.GetNetworkBorderGroup(rec.NetworkBorderGroup); !ok {
			t.Errorf("record network border group %q missing from index", rec.NetworkBorderGroup)
		}
		for _, service := range rec.Services {
			if _, ok := ranges.GetService(service); !ok {
				t.Errorf("record service %q missing from index", service)
			}
		}
	}

	for _, region := range ranges.Regions() {
		if !seenRegions[region] {
			t.Errorf("index region %q not referenced by any record", region)
		}
	}
	for _, group := range ranges.NetworkBorderGroups() {
		if !seenGroups[group] {
			t.Errorf("index network border group %q not referenced by any record", group)
		}
	}
	for _, service := range ranges.Services() {
		if !seenServices[service] {
			t.Errorf("index service %q not referenced by any record", service)
		}
	}
}

// Records are sorted and stored under their canonical network.
func TestPrefixesSortedAndCanonical(t *testing.T) {
	ranges := testRanges(t)

	prefixes := ranges.Prefixes()
	for i, rec := range prefixes {
		if rec.Network != cidr.Canonical(rec.Network) {
			t.Errorf("record %s is not canonical", rec.Network)
		}
		if i > 0 && cidr.Compare(prefixes[i-1].Network, rec.Network) >= 0 {
			t.Errorf("records out of order: %s before %s", prefixes[i-1].Network, rec.Network)
		}
	}
}

func TestGet(t *testing.T) {
	ranges := testRanges(t)

	if _, ok := ranges.Get(netip.MustParsePrefix("10.0.0.0/16")); !ok {
		t.Error("10.0.0.0/16 not found")
	}
	// Non-canonical input is canonicalized before lookup.
	if _, ok := ranges.Get(netip.MustParsePrefix("10.0.255.255/16")); !ok {
		t.Error("10.0.255.255/16 did not resolve to 10.0.0.0/16")
	}
	if _, ok := ranges.Get(netip.MustParsePrefix("192.168.0.0/24")); ok {
		t.Error("unexpected record for 192.168.0.0/24")
	}
}

func TestLongestMatch(t *testing.T) {
	tests := []struct {
		query string
		want  string
		found bool
	}{
		{"10.0.0.1/32", "10.0.0.0/16", true},
		{"10.0.0.0/8", "10.0.0.0/8", true},
		{"10.1.2.3/32", "10.1.0.0/16", true},
		{"192.168.0.0/24", "", false},
		{"2001:db8::1/128", "2001:db8::/48", true},
		{"2001:db8:ffff::/48", "2001:db8::/32", true},
		{"2001:face::1/64", "", false},
	}

	ranges := testRanges(t)
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec, ok := ranges.LongestMatch(netip.MustParsePrefix(tt.query))
			if ok != tt.found {
				t.Fatalf("got found=%v, want %v", ok, tt.found)
			}
			if ok && rec.Network != netip.MustParsePrefix(tt.want) {
				t.Errorf("got %s, want %s", rec.Network, tt.want)
			}
		})
	}
}

func TestCovering(t *testing.T) {
	ranges := testRanges(t)

	covering := ranges.Covering(netip.MustParsePrefix("10.0.0.1/32"))
	if len(covering) != 2 {
		t.Fatalf("got %d covering records, want 2", len(covering))
	}
	if covering[0].Network != netip.MustParsePrefix("10.0.0.0/8") ||
		covering[1].Network != netip.MustParsePrefix("10.0.0.0/16") {
		t.Errorf("got %s, %s; want 10.0.0.0/8, 10.0.0.0/16",
			covering[0].Network, covering[1].Network)
	}

	if got := ranges.Covering(netip.MustParsePrefix("192.168.0.0/24")); got != nil {
		t.Errorf("got %v, want no covering records", got)
	}
}

// The longest match is a supernet of the query and no covering record has a
// longer prefix; a non-empty covering set implies a longest match.
func TestLongestMatchAgreesWithCovering(t *testing.T) {
	ranges := testRanges(t)

	queries := []string{
		"10.0.0.1/32", "10.0.0.0/12", "10.1.0.0/16", "10.2.3.0/24",
		"192.168.0.0/24", "2001:db8::/64", "2001:db8:1:2::/64", "2001:face::/48",
	}
	for _, q := range queries {
		query := netip.MustParsePrefix(q)
		covering := ranges.Covering(query)
		rec, ok := ranges.LongestMatch(query)

		if (len(covering) > 0) != ok {
			t.Errorf("%s: covering=%d but longest match found=%v", q, len(covering), ok)
			continue
		}
		if !ok {
			continue
		}
		if !cidr.IsSupernetOf(rec.Network, query) {
			t.Errorf("%s: longest match %s is not a supernet", q, rec.Network)
		}
		for _, cover := range covering {
			if cover.Network.Bits() > rec.Network.Bits() {
				t.Errorf("%s: covering record %s is longer than longest match %s",
					q, cover.Network, rec.Network)
			}
		}
	}
}

func TestSearch(t *testing.T) {
	ranges := testRanges(t)

	queries := []netip.Prefix{
		netip.MustParsePrefix("10.0.0.1/32"),
		netip.MustParsePrefix("10.1.0.0/16"),
		netip.MustParsePrefix("192.168.0.0/24"),
		netip.MustParsePrefix("2001:db8::1/128"),
		netip.MustParsePrefix("2001:face::/48"),
	}

	results := ranges.Search(queries)

	// Every query lands in exactly one of Matches or NotFound.
	if got := len(results.Matches) + len(results.NotFound); got != len(queries) {
		t.Errorf("got %d partitioned queries, want %d", got, len(queries))
	}
	for _, query := range queries {
		_, matched := results.Matches[query]
		notFound := false
		for _, nf := range results.NotFound {
			if nf == query {
				notFound = true
			}
		}
		if matched == notFound {
			t.Errorf("%s: matched=%v notFound=%v", query, matched, notFound)
		}
	}

	if diff := cmp.Diff(
		[]netip.Prefix{netip.MustParsePrefix("192.168.0.0/24"), netip.MustParsePrefix("2001:face::/48")},
		results.NotFound,
		cmp.Comparer(func(a, b netip.Prefix) bool { return a == b }),
	); diff != "" {
		t.Errorf("NotFound mismatch (-want +got):\n%s", diff)
	}

	// 10.0.0.1/32 is covered by both the /8 and the /16.
	if got := len(results.Matches[netip.MustParsePrefix("10.0.0.1/32")]); got != 2 {
		t.Errorf("got %d covering records for 10.0.0.1/32, want 2", got)
	}

	// Derived index holds the union of matched records with parent
	// metadata: both 10.0.0.0 prefixes, 10.1.0.0/16, and both 2001:db8::
	// prefixes.
	if got := results.Ranges.Len(); got != 5 {
		t.Errorf("got %d derived records, want 5", got)
	}
	if results.Ranges.SyncToken() != ranges.SyncToken() {
		t.Errorf("derived sync token %q, want %q", results.Ranges.SyncToken(), ranges.SyncToken())
	}
	if !results.Ranges.CreateDate().Equal(ranges.CreateDate()) {
		t.Errorf("derived create date %v, want %v", results.Ranges.CreateDate(), ranges.CreateDate())
	}
}

func TestNewRangesSubset(t *testing.T) {
	ranges := testRanges(t)

	rec, ok := ranges.Get(netip.MustParsePrefix("10.1.0.0/16"))
	if !ok {
		t.Fatal("10.1.0.0/16 not found")
	}

	subset := NewRanges(ranges.SyncToken(), ranges.CreateDate(), []Prefix{rec})

	if subset.Len() != 1 {
		t.Fatalf("got %d records, want 1", subset.Len())
	}
	if diff := cmp.Diff([]string{"us-west-1"}, subset.Regions()); diff != "" {
		t.Errorf("Regions mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"EC2"}, subset.Services()); diff != "" {
		t.Errorf("Services mismatch (-want +got):\n%s", diff)
	}
	if subset.SyncToken() != ranges.SyncToken() {
		t.Errorf("subset sync token %q, want %q", subset.SyncToken(), ranges.SyncToken())
	}
}

func TestPrefixOrdering(t *testing.T) {
	base := Prefix{
		Network:            netip.MustParsePrefix("10.0.0.0/8"),
		Region:             "us-east-1",
		NetworkBorderGroup: "us-east-1",
		Services:           []string{"EC2"},
	}

	longer := base
	longer.Network = netip.MustParsePrefix("10.0.0.0/16")

	higher := base
	higher.Network = netip.MustParsePrefix("10.1.0.0/16")

	otherRegion := base
	otherRegion.Region = "us-east-2"

	otherGroup := base
	otherGroup.NetworkBorderGroup = "us-east-2"

	moreServices := base
	moreServices.Services = []string{"EC2", "ROUTE53"}

	laterService := base
	laterService.Services = []string{"EC2", "ROUTE53_HEALTHCHECKS"}

	ordered := []struct {
		name string
		a, b Prefix
	}{
		{"shorter prefix sorts first", base, longer},
		{"lower address sorts first", longer, higher},
		{"lower region sorts first", base, otherRegion},
		{"lower network border group sorts first", base, otherGroup},
		{"prefix of a service list sorts first", base, moreServices},
		{"lower service sorts first", moreServices, laterService},
	}

	for _, tt := range ordered {
		t.Run(tt.name, func(t *testing.T) {
			if tt.a.Compare(tt.b) >= 0 {
				t.Errorf("expected %v < %v", tt.a, tt.b)
			}
		})
	}

	same := base
	same.Services = []string{"EC2"}
	if !base.Equal(same) {
		t.Error("equal records compare unequal")
	}
}
