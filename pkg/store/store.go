// Package store keeps the latest telemetry record of every device kind
// in an embedded bbolt database, so it survives bridge restarts.
package store

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/robotalks/rove.go/pkg/l0/device"
)

// ErrNotFound indicates no record was stored for the kind.
var ErrNotFound = errors.New("record not found")

var latestBucket = []byte("latest")

const stampLen = 8

// Entry is a stored record.
type Entry struct {
	Kind   device.Kind
	Record []byte
	Time   time.Time
}

// Store persists the latest record per kind.
type Store struct {
	// Now returns the timestamp of new entries.
	Now func() time.Time

	db *bolt.DB
}

// Open creates or opens a database at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(latestBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}
	return &Store{Now: time.Now, db: db}, nil
}

// Name implements Named.
func (s *Store) Name() string {
	return "store"
}

// Put replaces the latest record of kind.
func (s *Store) Put(kind device.Kind, record []byte) error {
	val := make([]byte, stampLen+len(record))
	binary.BigEndian.PutUint64(val, uint64(s.Now().UnixNano()))
	copy(val[stampLen:], record)
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(latestBucket).Put([]byte(kind), val)
	})
}

// HandleTelemetry implements motherboard.TelemetrySink.
func (s *Store) HandleTelemetry(ctx context.Context, kind device.Kind, record []byte) error {
	return s.Put(kind, record)
}

// Latest returns the latest record of kind.
func (s *Store) Latest(kind device.Kind) (Entry, error) {
	var entry Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(latestBucket).Get([]byte(kind))
		if v == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, kind)
		}
		var err error
		entry, err = decodeEntry([]byte(kind), v)
		return err
	})
	return entry, err
}

// Snapshot returns the latest records of all kinds.
func (s *Store) Snapshot() (map[device.Kind]Entry, error) {
	result := make(map[device.Kind]Entry)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(latestBucket).ForEach(func(k, v []byte) error {
			entry, err := decodeEntry(k, v)
			if err != nil {
				return err
			}
			result[entry.Kind] = entry
			return nil
		})
	})
	return result, err
}

// Close implements io.Closer.
func (s *Store) Close() error {
	return s.db.Close()
}

func decodeEntry(k, v []byte) (Entry, error) {
	if len(v) < stampLen {
		return Entry{}, fmt.Errorf("corrupted entry %s", k)
	}
	record := make([]byte, len(v)-stampLen)
	copy(record, v[stampLen:])
	return Entry{
		Kind:   device.Kind(k),
		Record: record,
		Time:   time.Unix(0, int64(binary.BigEndian.Uint64(v))),
	}, nil
}
