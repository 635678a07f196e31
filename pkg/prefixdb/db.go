// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

// Package prefixdb persists a built AWS IP Ranges index into LevelDB so
// repeated lookups can run without re-fetching or re-parsing the manifest.
// The in-memory index in pkg/awsranges remains the source of truth; this is
// an offline snapshot of it.
package prefixdb

import (
	"fmt"
	"sync"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"awsipranges/pkg/awsranges"
	"awsipranges/pkg/model"
	"awsipranges/pkg/util/cidr"
)

// Metadata keys
const (
	metaKeySyncToken   = "sync_token"
	metaKeyCreateDate  = "create_date"
	metaKeyRecordCount = "record_count"
)

// DB is a LevelDB-backed snapshot of the AWS IP Ranges. A DB stays usable
// until Close; operations on a closed DB return model.ErrDatabaseClosed.
type DB struct {
	ldb  *leveldb.DB
	path string

	mu   sync.RWMutex
	open bool
}

// Open opens (or creates) the snapshot database at path.
func Open(path string) (*DB, error) {
	ldb, err := leveldb.OpenFile(path, &opt.Options{
		// Snappy keeps the repeated region and service strings small
		Compression: opt.SnappyCompression,
		WriteBuffer: 16 * 1024 * 1024,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot at %s: %w", path, err)
	}
	return &DB{ldb: ldb, path: path, open: true}, nil
}

// Close releases the underlying LevelDB handle. Closing twice returns
// model.ErrDatabaseClosed.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return model.ErrDatabaseClosed
	}
	d.open = false
	return d.ldb.Close()
}

// IsClosed reports whether Close has been called.
func (d *DB) IsClosed() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return !d.open
}

// Path returns the snapshot's on-disk location.
func (d *DB) Path() string {
	return d.path
}

// WriteRanges replaces the stored snapshot with the records and metadata of
// the given index.
func (d *DB) WriteRanges(ranges *awsranges.Ranges) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.open {
		return model.ErrDatabaseClosed
	}

	batch := new(leveldb.Batch)

	// Drop the previous snapshot's records so prefixes withdrawn from the
	// manifest do not linger.
	iter := d.ldb.NewIterator(util.BytesPrefix([]byte("P")), nil)
	for iter.Next() {
		batch.Delete(append([]byte(nil), iter.Key()...))
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return fmt.Errorf("failed to scan existing records: %w", err)
	}

	for _, rec := range ranges.Prefixes() {
		value, err := encodeRecord(rec)
		if err != nil {
			return fmt.Errorf("failed to encode record %s: %w", rec.Network, err)
		}
		batch.Put(cidr.EncodeNetworkKey(rec.Network), value)
	}

	batch.Put(cidr.MetaKey(metaKeySyncToken), []byte(ranges.SyncToken()))
	batch.Put(cidr.MetaKey(metaKeyCreateDate), []byte(ranges.CreateDate().UTC().Format(time.RFC3339)))
	batch.Put(cidr.MetaKey(metaKeyRecordCount), []byte(fmt.Sprintf("%d", ranges.Len())))

	return d.ldb.Write(batch, nil)
}

// SyncToken returns the stored manifest sync token.
func (d *DB) SyncToken() (string, error) {
	value, err := d.getMeta(metaKeySyncToken)
	return string(value), err
}

// CreateDate returns the stored manifest publication time.
func (d *DB) CreateDate() (time.Time, error) {
	value, err := d.getMeta(metaKeyCreateDate)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, string(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid create_date metadata: %w", err)
	}
	return t, nil
}

// RecordCount returns the number of stored prefix records.
func (d *DB) RecordCount() (int, error) {
	value, err := d.getMeta(metaKeyRecordCount)
	if err != nil {
		return 0, err
	}
	var count int
	if _, err := fmt.Sscanf(string(value), "%d", &count); err != nil {
		return 0, fmt.Errorf("invalid record_count metadata: %w", err)
	}
	return count, nil
}

func (d *DB) getMeta(key string) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.open {
		return nil, model.ErrDatabaseClosed
	}

	value, err := d.ldb.Get(cidr.MetaKey(key), nil)
	if err == leveldb.ErrNotFound {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get failed: %w", err)
	}
	return value, nil
}
