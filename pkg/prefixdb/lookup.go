// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

package prefixdb

import (
	"fmt"
	"net/netip"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"awsipranges/pkg/awsranges"
	"awsipranges/pkg/model"
	"awsipranges/pkg/util/cidr"
)

// A stored supernet of a query can only sort between the query reshaped to
// the family's shortest published prefix length and the query itself.
const (
	minIPv4PrefixLen = 8
	minIPv6PrefixLen = 16
)

// Get retrieves the record stored under the given network, after
// canonicalization. Returns model.ErrNotFound if the network is not in the
// snapshot.
func (d *DB) Get(network netip.Prefix) (awsranges.Prefix, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.open {
		return awsranges.Prefix{}, model.ErrDatabaseClosed
	}

	network = cidr.Canonical(network)
	value, err := d.ldb.Get(cidr.EncodeNetworkKey(network), nil)
	if err == leveldb.ErrNotFound {
		return awsranges.Prefix{}, model.ErrNotFound
	}
	if err != nil {
		return awsranges.Prefix{}, fmt.Errorf("get failed: %w", err)
	}
	return decodeRecord(network, value)
}

// LongestMatch returns the stored record with the longest prefix that
// covers the query network, walking the key range backward so the first
// covering record found is the most specific.
func (d *DB) LongestMatch(query netip.Prefix) (awsranges.Prefix, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.open {
		return awsranges.Prefix{}, model.ErrDatabaseClosed
	}

	query = cidr.Canonical(query)
	slice, ok := scanRange(query)
	if !ok {
		return awsranges.Prefix{}, model.ErrNotFound
	}

	iter := d.ldb.NewIterator(slice, nil)
	defer iter.Release()

	for valid := iter.Last(); valid; valid = iter.Prev() {
		network, err := cidr.DecodeNetworkKey(iter.Key())
		if err != nil {
			return awsranges.Prefix{}, fmt.Errorf("invalid key: %w", err)
		}
		if cidr.IsSupernetOf(network, query) {
			return decodeRecord(network, iter.Value())
		}
	}
	if err := iter.Error(); err != nil {
		return awsranges.Prefix{}, fmt.Errorf("iterator failed: %w", err)
	}

	return awsranges.Prefix{}, model.ErrNotFound
}

// Covering returns all stored records that cover the query network, ordered
// by network.
func (d *DB) Covering(query netip.Prefix) ([]awsranges.Prefix, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.open {
		return nil, model.ErrDatabaseClosed
	}

	query = cidr.Canonical(query)
	slice, ok := scanRange(query)
	if !ok {
		return nil, nil
	}

	iter := d.ldb.NewIterator(slice, nil)
	defer iter.Release()

	var covering []awsranges.Prefix
	for iter.Next() {
		network, err := cidr.DecodeNetworkKey(iter.Key())
		if err != nil {
			return nil, fmt.Errorf("invalid key: %w", err)
		}
		if !cidr.IsSupernetOf(network, query) {
			continue
		}
		rec, err := decodeRecord(network, iter.Value())
		if err != nil {
			return nil, err
		}
		covering = append(covering, rec)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iterator failed: %w", err)
	}

	return covering, nil
}

// scanRange returns the half-open key range that can hold supernets of the
// canonical query network.
func scanRange(query netip.Prefix) (*util.Range, bool) {
	minBits := minIPv4PrefixLen
	if !query.Addr().Is4() {
		minBits = minIPv6PrefixLen
	}
	lower, err := cidr.Reshape(query, minBits)
	if err != nil || query.Bits() < minBits {
		return nil, false
	}

	// Limit is exclusive; extending the query's own key by a zero byte
	// keeps the query network itself inside the range.
	limit := append(cidr.EncodeNetworkKey(query), 0x00)
	return &util.Range{Start: cidr.EncodeNetworkKey(lower), Limit: limit}, true
}
