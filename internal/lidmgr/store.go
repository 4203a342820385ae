// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package lidmgr implements the LID manager: persistent GUID→LID
// mapping, LMC-aware range allocation, and reuse policy across sweeps.
//
// Store persists the map via go.etcd.io/bbolt, grounded on
// _examples/JoshFinlayAU-athena-dhcpd/internal/lease/store.go's
// BoltDB-backed store with an in-memory index for O(1) lookup; it also
// renders/parses a documented text format ("<GUID-hex> <lid-decimal>
// <lmc>") so operators can inspect or seed the map without touching the
// database directly.
package lidmgr

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	bolt "go.etcd.io/bbolt"

	"github.com/ibfabric/osmd/internal/ibtype"
)

var bucketGUID2LID = []byte("guid2lid")

// Store provides GUID→LIDRange persistence via BoltDB with an in-memory
// index for lookups that don't touch disk on the hot path.
type Store struct {
	db  *bolt.DB
	mu  sync.RWMutex
	byGUID map[ibtype.GUID]ibtype.LIDRange
}

// NewStore opens or creates a BoltDB database at path and loads its
// contents into the in-memory index.
func NewStore(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening guid2lid database %s: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketGUID2LID)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing guid2lid bucket: %w", err)
	}
	s := &Store{db: db, byGUID: make(map[ibtype.GUID]ibtype.LIDRange)}
	if err := s.reload(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) reload() error {
	return s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketGUID2LID)
		return b.ForEach(func(k, v []byte) error {
			guid, rng, err := decodeRecord(k, v)
			if err != nil {
				return err
			}
			s.byGUID[guid] = rng
			return nil
		})
	})
}

func encodeKey(guid ibtype.GUID) []byte {
	return []byte(fmt.Sprintf("%016x", uint64(guid)))
}

func encodeValue(rng ibtype.LIDRange) []byte {
	return []byte(fmt.Sprintf("%d %d", rng.Base, rng.LMC))
}

func decodeRecord(k, v []byte) (ibtype.GUID, ibtype.LIDRange, error) {
	guidVal, err := strconv.ParseUint(string(k), 16, 64)
	if err != nil {
		return 0, ibtype.LIDRange{}, fmt.Errorf("decoding guid2lid key %q: %w", k, err)
	}
	parts := strings.Fields(string(v))
	if len(parts) != 2 {
		return 0, ibtype.LIDRange{}, fmt.Errorf("decoding guid2lid value %q: expected 2 fields", v)
	}
	base, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil {
		return 0, ibtype.LIDRange{}, fmt.Errorf("decoding guid2lid base %q: %w", parts[0], err)
	}
	lmc, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil {
		return 0, ibtype.LIDRange{}, fmt.Errorf("decoding guid2lid lmc %q: %w", parts[1], err)
	}
	return ibtype.GUID(guidVal), ibtype.LIDRange{Base: ibtype.LID(base), LMC: uint8(lmc)}, nil
}

// Get returns the persisted range for guid, if any.
func (s *Store) Get(guid ibtype.GUID) (ibtype.LIDRange, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byGUID[guid]
	return r, ok
}

// All returns every persisted (GUID, range) pair.
func (s *Store) All() map[ibtype.GUID]ibtype.LIDRange {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[ibtype.GUID]ibtype.LIDRange, len(s.byGUID))
	for k, v := range s.byGUID {
		out[k] = v
	}
	return out
}

// Put persists guid's range, updating both BoltDB and the in-memory index.
func (s *Store) Put(guid ibtype.GUID, rng ibtype.LIDRange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketGUID2LID).Put(encodeKey(guid), encodeValue(rng))
	})
	if err != nil {
		return fmt.Errorf("persisting guid2lid entry for %s: %w", guid, err)
	}
	s.byGUID[guid] = rng
	return nil
}

// Clear wipes every persisted entry (used by reassign_lids=true).
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketGUID2LID); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		_, err := tx.CreateBucket(bucketGUID2LID)
		return err
	})
	if err != nil {
		return fmt.Errorf("clearing guid2lid store: %w", err)
	}
	s.byGUID = make(map[ibtype.GUID]ibtype.LIDRange)
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

// ExportText renders the store in the documented
// "<GUID-hex> <lid-decimal> <lmc>" text format.
func (s *Store) ExportText(w *bufio.Writer) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for guid, rng := range s.byGUID {
		if _, err := fmt.Fprintf(w, "%s %d %d\n", guid, rng.Base, rng.LMC); err != nil {
			return err
		}
	}
	return w.Flush()
}

// ImportTextFile loads GUID→LID entries from the documented text format
// into the store, adding or replacing the entry for each GUID it lists
// (used to seed a fresh deployment from a file).
func ImportTextFile(s *Store, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening guid2lid text file %s: %w", path, err)
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return fmt.Errorf("malformed guid2lid line %q", line)
		}
		guidVal, err := strconv.ParseUint(strings.TrimPrefix(fields[0], "0x"), 16, 64)
		if err != nil {
			return fmt.Errorf("parsing guid %q: %w", fields[0], err)
		}
		base, err := strconv.ParseUint(fields[1], 10, 16)
		if err != nil {
			return fmt.Errorf("parsing lid %q: %w", fields[1], err)
		}
		lmc, err := strconv.ParseUint(fields[2], 10, 8)
		if err != nil {
			return fmt.Errorf("parsing lmc %q: %w", fields[2], err)
		}
		if err := s.Put(ibtype.GUID(guidVal), ibtype.LIDRange{Base: ibtype.LID(base), LMC: uint8(lmc)}); err != nil {
			return err
		}
	}
	return sc.Err()
}
