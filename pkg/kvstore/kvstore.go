// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package kvstore writes (and reads back) the embedded key-value databases
// holding the encoded samples.
//
// Each database is a single bbolt file created fresh by one conversion run:
// creation fails with ErrTargetExists if the target path is already taken,
// and the whole batch of records is committed in one transaction, so a
// database either contains every record of its job pair or does not exist.
//
// Records live in the "samples" bucket under ASCII decimal keys zero-padded
// to width 10 ("0000000000", "0000000001", ...), contiguous from 0 in
// processing order. A small "manifest" bucket, written in the same
// transaction, identifies the database (UUID, creation time, record count and
// payload size); the training reader only consumes the samples bucket.
package kvstore

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/gomlx/imageset/pkg/support/fsutil"
)

// ErrTargetExists is returned by Create when the target database path already
// exists. Test with errors.Is.
var ErrTargetExists = errors.New("target database already exists")

// KeyWidth is the fixed width of the zero-padded decimal sample keys.
const KeyWidth = 10

var (
	samplesBucket  = []byte("samples")
	manifestBucket = []byte("manifest")
)

// Key returns the database key for the sample at index i: the 0-based decimal
// index as ASCII, zero-padded to KeyWidth.
func Key(i int) []byte {
	return []byte(fmt.Sprintf("%0*d", KeyWidth, i))
}

// DB is a handle to one sample database.
type DB struct {
	path string
	bolt *bolt.DB
}

// Create opens a new database at targetPath, failing with ErrTargetExists if
// anything already exists there. No part of an existing file is touched.
//
// capacityBytes is a pre-allocation ceiling for the expected total data
// volume, not a usage measure: it sizes the initial memory map so the file
// does not need remapping while the batch is written.
func Create(targetPath string, capacityBytes int64) (*DB, error) {
	exists, err := fsutil.FileExists(targetPath)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to check target database path %q", targetPath)
	}
	if exists {
		return nil, errors.Wrapf(ErrTargetExists, "cannot create database at %q", targetPath)
	}
	options := &bolt.Options{InitialMmapSize: mmapSizeFor(capacityBytes)}
	bdb, err := bolt.Open(targetPath, 0644, options)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create database at %q", targetPath)
	}
	return &DB{path: targetPath, bolt: bdb}, nil
}

// mmapSizeFor converts the capacity ceiling to bbolt's int-typed
// InitialMmapSize, capping it at what the platform can address when int is
// 32 bits.
func mmapSizeFor(capacityBytes int64) int {
	if capacityBytes < 0 {
		return 0
	}
	size := int(capacityBytes)
	if int64(size) != capacityBytes {
		return math.MaxInt
	}
	return size
}

// Open opens an existing database read-only, for verification or consumption.
func Open(path string) (*DB, error) {
	bdb, err := bolt.Open(path, 0644, &bolt.Options{ReadOnly: true})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database at %q", path)
	}
	return &DB{path: path, bolt: bdb}, nil
}

// Path returns the file path of the database.
func (db *DB) Path() string { return db.path }

// WriteAll writes numRecords serialized records under the sequential keys
// Key(0)..Key(numRecords-1), in one transaction. encodeFn is called once per
// index, in order; its first error aborts and rolls back the transaction,
// leaving no committed content (all-or-nothing). The manifest bucket is
// written as part of the same transaction.
//
// It returns the total payload bytes committed.
func (db *DB) WriteAll(numRecords int, encodeFn func(i int) ([]byte, error)) (written int64, err error) {
	err = db.bolt.Update(func(tx *bolt.Tx) error {
		samples, err := tx.CreateBucket(samplesBucket)
		if err != nil {
			return errors.Wrapf(err, "failed to create samples bucket in %q", db.path)
		}
		for i := 0; i < numRecords; i++ {
			data, err := encodeFn(i)
			if err != nil {
				return errors.WithMessagef(err, "while writing record %d of %d to %q", i, numRecords, db.path)
			}
			if err = samples.Put(Key(i), data); err != nil {
				return errors.Wrapf(err, "failed to write record %d of %d to %q", i, numRecords, db.path)
			}
			written += int64(len(data))
		}
		return db.writeManifest(tx, numRecords, written)
	})
	if err != nil {
		written = 0
	}
	return
}

func (db *DB) writeManifest(tx *bolt.Tx, numRecords int, written int64) error {
	manifest, err := tx.CreateBucket(manifestBucket)
	if err != nil {
		return errors.Wrapf(err, "failed to create manifest bucket in %q", db.path)
	}
	entries := map[string]string{
		"id":      uuid.NewString(),
		"created": time.Now().UTC().Format(time.RFC3339),
		"count":   strconv.Itoa(numRecords),
		"bytes":   strconv.FormatInt(written, 10),
	}
	for key, value := range entries {
		if err = manifest.Put([]byte(key), []byte(value)); err != nil {
			return errors.Wrapf(err, "failed to write manifest entry %q in %q", key, db.path)
		}
	}
	return nil
}

// Count returns the number of sample records.
func (db *DB) Count() (count int, err error) {
	err = db.view(func(samples *bolt.Bucket) error {
		count = samples.Stats().KeyN
		return nil
	})
	return
}

// Get returns a copy of the serialized record for sample index i, or an error
// if the key is absent.
func (db *DB) Get(i int) (data []byte, err error) {
	err = db.view(func(samples *bolt.Bucket) error {
		value := samples.Get(Key(i))
		if value == nil {
			return errors.Errorf("no record for key %q in %q", Key(i), db.path)
		}
		data = append([]byte(nil), value...)
		return nil
	})
	return
}

// ForEach calls fn for every sample record in key order. Key and value are
// only valid during the call.
func (db *DB) ForEach(fn func(key, value []byte) error) error {
	return db.view(func(samples *bolt.Bucket) error {
		return samples.ForEach(fn)
	})
}

// Manifest returns the manifest entries of the database.
func (db *DB) Manifest() (entries map[string]string, err error) {
	entries = make(map[string]string)
	err = db.bolt.View(func(tx *bolt.Tx) error {
		manifest := tx.Bucket(manifestBucket)
		if manifest == nil {
			return errors.Errorf("database %q has no manifest bucket", db.path)
		}
		return manifest.ForEach(func(k, v []byte) error {
			entries[string(k)] = string(v)
			return nil
		})
	})
	return
}

func (db *DB) view(fn func(samples *bolt.Bucket) error) error {
	return db.bolt.View(func(tx *bolt.Tx) error {
		samples := tx.Bucket(samplesBucket)
		if samples == nil {
			return errors.Errorf("database %q has no samples bucket", db.path)
		}
		return fn(samples)
	})
}

// Close commits nothing (transactions are scoped to WriteAll) and releases
// the file handle.
func (db *DB) Close() error {
	return errors.Wrapf(db.bolt.Close(), "failed to close database at %q", db.path)
}

// Discard closes the database and removes its file. It is used after a failed
// batch so a rerun of the job pair does not trip over ErrTargetExists.
func (db *DB) Discard() error {
	_ = db.bolt.Close()
	if err := os.Remove(db.path); err != nil {
		return errors.Wrapf(err, "failed to remove aborted database at %q", db.path)
	}
	return nil
}
