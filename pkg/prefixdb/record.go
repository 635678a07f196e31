// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

package prefixdb

import (
	"fmt"
	"net/netip"

	"github.com/vmihailenco/msgpack/v5"

	"awsipranges/pkg/awsranges"
)

// The network lives in the key; the value carries the attributes.
type storedRecord struct {
	Region             string
	NetworkBorderGroup string
	Services           []string
}

// encodeRecord serializes a prefix record's attributes to msgpack.
func encodeRecord(rec awsranges.Prefix) ([]byte, error) {
	return msgpack.Marshal(storedRecord{
		Region:             rec.Region,
		NetworkBorderGroup: rec.NetworkBorderGroup,
		Services:           rec.Services,
	})
}

// decodeRecord deserializes a prefix record from its network and msgpack
// value.
func decodeRecord(network netip.Prefix, data []byte) (awsranges.Prefix, error) {
	var stored storedRecord
	if err := msgpack.Unmarshal(data, &stored); err != nil {
		return awsranges.Prefix{}, fmt.Errorf("failed to unmarshal record: %w", err)
	}

	return awsranges.Prefix{
		Network:            network,
		Region:             stored.Region,
		NetworkBorderGroup: stored.NetworkBorderGroup,
		Services:           stored.Services,
	}, nil
}
