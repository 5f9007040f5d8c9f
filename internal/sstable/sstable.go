// Package sstable implements VaporDB's on-disk LSM tier: immutable
// JSON-lines snapshots of key → optional value (tombstone when absent) plus
// an optional per-key TTL, merged newest-wins during compaction.
//
// Once the MemTable flushes, its contents freeze into a file that is never
// mutated in place: immutable here means the whole file gets replaced, not
// that the in-memory map is read-only. Compaction folds two of these files
// into one, keeping the newer copy of any duplicated key and preserving
// tombstones so a delete doesn't resurrect an older value once the table
// that recorded the delete is gone.
package sstable

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tejxsmore/vapordb-go/internal/value"
)

// line is the on-disk shape of one SSTable record:
// {"key": string, "value": null | TaggedValue, "ttl": number?}
type line struct {
	Key   string       `json:"key"`
	Value *value.Value `json:"value"`
	TTL   *int64       `json:"ttl,omitempty"`
}

// SSTable is an immutable-on-disk, mutable-in-memory snapshot. The
// in-memory map is mutated directly by the TTL daemon (tombstoning expired
// keys) and by compaction (building the merged result before it is
// written out).
type SSTable struct {
	mu    sync.RWMutex
	path  string
	m     map[string]*value.Value // nil value = tombstone
	ttl   map[string]int64        // key -> epoch seconds
	bloom *bloomFilter
	log   *logrus.Entry
}

func currentTimestamp() int64 {
	return time.Now().Unix()
}

// New returns an empty, unpathed SSTable, used by compaction to build a
// merge result before it is written to its final path.
func New() *SSTable {
	return &SSTable{
		m:   make(map[string]*value.Value),
		ttl: make(map[string]int64),
		log: logrus.WithField("component", "sstable"),
	}
}

// Path returns the file path this table was loaded from or last written to.
func (s *SSTable) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}

// Load parses a JSON-lines file where each line is {key, value, ttl?}.
// Malformed lines are skipped with a logged warning rather than failing the
// whole load. Entries whose ttl is already in the past are dropped on load.
func Load(path string) (*SSTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sstable: open %s: %w", path, err)
	}
	defer f.Close()

	s := New()
	s.path = path

	now := currentTimestamp()
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		var l line
		if err := json.Unmarshal(raw, &l); err != nil {
			s.log.WithError(err).WithField("path", path).Warn("skipping malformed SSTable line")
			continue
		}
		if l.TTL != nil && now >= *l.TTL {
			continue
		}
		s.m[l.Key] = l.Value
		if l.TTL != nil {
			s.ttl[l.Key] = *l.TTL
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("sstable: scan %s: %w", path, err)
	}

	s.bloom = buildBloomFilter(s.liveKeysLocked())
	return s, nil
}

// liveKeysLocked returns keys holding a live (non-tombstone) value. Caller
// must hold s.mu for reading, or be constructing s before it's shared.
func (s *SSTable) liveKeysLocked() []string {
	out := make([]string, 0, len(s.m))
	for k, v := range s.m {
		if v != nil {
			out = append(out, k)
		}
	}
	return out
}

// Write truncate-creates path and emits one JSON line per entry, skipping
// already-expired entries.
func Write(path string, m map[string]*value.Value, ttlMap map[string]int64) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("sstable: create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	now := currentTimestamp()
	for key, v := range m {
		var ttlPtr *int64
		if ttl, ok := ttlMap[key]; ok {
			if now >= ttl {
				continue
			}
			ttlPtr = &ttl
		}
		enc, err := json.Marshal(line{Key: key, Value: v, TTL: ttlPtr})
		if err != nil {
			return fmt.Errorf("sstable: encode entry for %q: %w", key, err)
		}
		if _, err := w.Write(enc); err != nil {
			return fmt.Errorf("sstable: write line: %w", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fmt.Errorf("sstable: write newline: %w", err)
		}
	}
	return w.Flush()
}

// Get returns the value stored at key if present and not expired. Absent,
// tombstoned, and expired keys all report ok=false; distinguishing between
// them is the memtable/engine's job, not the SSTable's.
func (s *SSTable) Get(key string) (value.Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.bloom != nil && !s.bloom.MightContain(key) {
		return value.Value{}, false
	}

	if ttl, ok := s.ttl[key]; ok && currentTimestamp() >= ttl {
		return value.Value{}, false
	}
	v, ok := s.m[key]
	if !ok || v == nil {
		return value.Value{}, false
	}
	return *v, true
}

// Insert mutates the in-memory representation: sets key to value with an
// optional absolute-epoch TTL, clearing any prior TTL when ttl is nil. Used
// by the TTL daemon and by compaction to build a merge result.
func (s *SSTable) Insert(key string, v value.Value, ttl *int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	vv := v
	s.m[key] = &vv
	if ttl != nil {
		s.ttl[key] = *ttl
	} else {
		delete(s.ttl, key)
	}
	s.bloom = buildBloomFilter(s.liveKeysLocked())
}

// Delete marks key as a tombstone in the in-memory representation. This
// does not remove the map entry: a tombstone must be preserved so it can
// shadow the same key in strictly older SSTables.
func (s *SSTable) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = nil
	delete(s.ttl, key)
	s.bloom = buildBloomFilter(s.liveKeysLocked())
}

// Size reports the number of entries (including tombstones) this table
// holds: the metric background compaction sorts tables by.
func (s *SSTable) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

// Rewrite persists the current in-memory representation back to this
// table's path, rebuilding the bloom filter. Used by the TTL daemon after
// it tombstones expired keys.
func (s *SSTable) Rewrite() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.path == "" {
		return fmt.Errorf("sstable: rewrite: no path set")
	}
	if err := Write(s.path, s.m, s.ttl); err != nil {
		return err
	}
	s.bloom = buildBloomFilter(s.liveKeysLocked())
	return nil
}

// Merge combines multiple SSTables into one. ssts must be given in age
// order, oldest first; for duplicate keys the later (newer) entry wins,
// and tombstones are preserved rather than omitted.
func Merge(ssts []*SSTable) *SSTable {
	out := New()
	for _, sst := range ssts {
		sst.mu.RLock()
		for k, v := range sst.m {
			out.m[k] = v
		}
		for k, t := range sst.ttl {
			out.ttl[k] = t
		}
		sst.mu.RUnlock()
	}
	out.bloom = buildBloomFilter(out.liveKeysLocked())
	return out
}

// Compact writes the merge of older and newer (in that age order) to
// outPath and returns the resulting in-memory SSTable with its path set,
// ready to be kept in place of the two inputs.
func Compact(older, newer *SSTable, outPath string) (*SSTable, error) {
	merged := Merge([]*SSTable{older, newer})
	if err := Write(outPath, merged.m, merged.ttl); err != nil {
		return nil, fmt.Errorf("sstable: compact write: %w", err)
	}
	merged.path = outPath
	return merged, nil
}
