// Package memtable holds VaporDB's in-memory, authoritative key→Value map.
//
// Every read checks here first and every write lands here before (or,
// durability-wise, just after) the WAL. A sync.RWMutex gives cheap
// concurrent reads, useful for the TTL daemon snapshotting expired keys
// without blocking a Get, while keeping writes exclusive. A deleted key is
// stored as a nil pointer rather than removed outright: a plain delete would
// only hide a key that an SSTable flushed before the delete happened,
// because a later Get falls through to that older SSTable once it finds
// nothing here. Keeping an explicit tombstone means the next flush carries
// the delete into the new SSTable, where it shadows the stale entry in the
// older one.
package memtable

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/tejxsmore/vapordb-go/internal/value"
)

// MemTable is safe for concurrent use. A nil entry marks a tombstone.
type MemTable struct {
	mu sync.RWMutex
	m  map[string]*value.Value
}

// New returns an empty MemTable.
func New() *MemTable {
	return &MemTable{m: make(map[string]*value.Value)}
}

// Get returns the live value stored at key. A tombstoned or absent key both
// report ok=false; callers that need to tell "definitely deleted" apart
// from "not here, check older layers" should use State instead.
func (t *MemTable) Get(key string) (value.Value, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.m[key]
	if !ok || v == nil {
		return value.Value{}, false
	}
	return *v, true
}

// State reports the full three-way lookup result: hasEntry is false if key
// has never been written here (callers should fall through to the SSTable
// tier); hasEntry true with a nil value means a tombstone, and callers must
// stop there since the key is deleted regardless of what older layers hold.
func (t *MemTable) State(key string) (v *value.Value, hasEntry bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, hasEntry = t.m[key]
	return v, hasEntry
}

// Set replaces whatever is stored at key, regardless of its prior variant.
func (t *MemTable) Set(key string, v value.Value) {
	t.mu.Lock()
	defer t.mu.Unlock()
	vv := v
	t.m[key] = &vv
}

// Del tombstones key. Reports whether a live value was present beforehand.
func (t *MemTable) Del(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	prev, existed := t.m[key]
	existedLive := existed && prev != nil
	t.m[key] = nil
	return existedLive
}

// Exists reports whether key holds a live (non-tombstone) value here.
func (t *MemTable) Exists(key string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.m[key]
	return ok && v != nil
}

// Keys returns a snapshot of every key holding a live value.
func (t *MemTable) Keys() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.m))
	for k, v := range t.m {
		if v != nil {
			out = append(out, k)
		}
	}
	return out
}

// Len returns the number of live (non-tombstone) keys currently held.
func (t *MemTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, v := range t.m {
		if v != nil {
			n++
		}
	}
	return n
}

// Clear removes every entry, including tombstones. The engine calls this
// immediately after a successful flush to SSTable, since the flush has
// already carried every tombstone forward.
func (t *MemTable) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.m = make(map[string]*value.Value)
}

// Snapshot returns a shallow copy of the current key→*Value map (nil entries
// are tombstones), for callers that need a stable view without holding the
// lock across I/O.
func (t *MemTable) Snapshot() map[string]*value.Value {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]*value.Value, len(t.m))
	for k, v := range t.m {
		out[k] = v
	}
	return out
}

// FlushToSSTable writes every entry, including tombstones as a bare key with
// no value, to a new file in a textual, line-oriented "key\tjson" or
// "key\t" format. It does not clear the MemTable; the caller clears
// immediately after a successful flush so the two steps can be sequenced
// under the engine's single write lock.
func (t *MemTable) FlushToSSTable(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("memtable: create flush file %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	t.mu.RLock()
	for k, v := range t.m {
		if v == nil {
			if _, err := fmt.Fprintf(w, "%s\t\n", k); err != nil {
				t.mu.RUnlock()
				return fmt.Errorf("memtable: write tombstone line: %w", err)
			}
			continue
		}
		encoded, err := json.Marshal(v)
		if err != nil {
			t.mu.RUnlock()
			return fmt.Errorf("memtable: encode value for %q: %w", k, err)
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\n", k, encoded); err != nil {
			t.mu.RUnlock()
			return fmt.Errorf("memtable: write flush line: %w", err)
		}
	}
	t.mu.RUnlock()

	return w.Flush()
}

// RemoveAll deletes every key in keys outright (not a tombstone). Used by
// the TTL daemon's active expiration sweep, which tombstones the same keys
// only in the single SSTable handle it holds, if any.
func (t *MemTable) RemoveAll(keys []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, k := range keys {
		delete(t.m, k)
	}
}
