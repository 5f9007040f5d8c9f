// Package engine implements VaporDB's command dispatcher: the single
// exclusive lock around MemTable, WAL, SSTable tier, and TTL table that
// gives every command a consistent view of the store.
//
// Everything funnels through Execute, which holds one mutex for the whole
// call. That is deliberately coarse, with no per-key locking and no
// lock-free tricks, because the store's correctness story (write-ahead
// before visible, newest-wins across layers, tombstones shadow older
// snapshots) is far easier to reason about serialized than interleaved. The
// MemTable and ExpirationTable still carry their own RWMutex so a
// concurrent reader outside Execute, such as the TTL daemon or a health
// probe, isn't blocked by it.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/sirupsen/logrus"

	"github.com/tejxsmore/vapordb-go/internal/memtable"
	"github.com/tejxsmore/vapordb-go/internal/sstable"
	"github.com/tejxsmore/vapordb-go/internal/ttlstore"
	"github.com/tejxsmore/vapordb-go/internal/value"
	"github.com/tejxsmore/vapordb-go/internal/wal"
)

// Config controls where an Engine keeps its data and how eagerly it flushes
// and compacts. Zero values are filled in by withDefaults.
type Config struct {
	WALPath            string
	SSTDir             string
	FlushThreshold     int
	TTLInterval        time.Duration
	CompactionInterval time.Duration
	NodeID             int64
}

func (c Config) withDefaults() Config {
	if c.WALPath == "" {
		c.WALPath = "vapordb.wal"
	}
	if c.SSTDir == "" {
		c.SSTDir = "sstables"
	}
	if c.FlushThreshold <= 0 {
		c.FlushThreshold = 1000
	}
	if c.TTLInterval <= 0 {
		c.TTLInterval = ttlstore.DefaultInterval
	}
	if c.CompactionInterval <= 0 {
		c.CompactionInterval = 30 * time.Second
	}
	return c
}

// Engine is VaporDB. All exported methods are safe for concurrent use.
type Engine struct {
	mu sync.Mutex

	cfg Config

	memtable    *memtable.MemTable
	wal         *wal.WAL
	sstables    []*sstable.SSTable // oldest first, newest last
	expirations *ttlstore.ExpirationTable

	idNode *snowflake.Node
	log    *logrus.Entry
}

// New opens (or creates) the WAL and SSTable directory at the configured
// paths, replays the WAL into a fresh MemTable, loads any existing SSTables
// oldest-first, and returns a ready Engine.
func New(cfg Config) (*Engine, error) {
	cfg = cfg.withDefaults()

	if err := os.MkdirAll(cfg.SSTDir, 0755); err != nil {
		return nil, newIO(fmt.Errorf("create sstable dir %s: %w", cfg.SSTDir, err))
	}

	w, err := wal.Open(cfg.WALPath)
	if err != nil {
		return nil, newIO(err)
	}

	node, err := snowflake.NewNode(cfg.NodeID)
	if err != nil {
		return nil, newInternal(fmt.Errorf("create snowflake node: %w", err))
	}

	e := &Engine{
		cfg:         cfg,
		memtable:    memtable.New(),
		wal:         w,
		expirations: ttlstore.New(),
		idNode:      node,
		log:         logrus.WithField("component", "engine"),
	}

	if err := e.loadSSTables(); err != nil {
		return nil, err
	}
	if err := e.replayWAL(); err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"sstables": len(e.sstables),
		"keys":     e.memtable.Len(),
	}).Info("engine ready")
	return e, nil
}

func (e *Engine) loadSSTables() error {
	entries, err := os.ReadDir(e.cfg.SSTDir)
	if err != nil {
		return newIO(fmt.Errorf("read sstable dir: %w", err))
	}

	type found struct {
		path    string
		modTime time.Time
	}
	var files []found
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sst") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return newIO(fmt.Errorf("stat sstable %s: %w", entry.Name(), err))
		}
		files = append(files, found{path: filepath.Join(e.cfg.SSTDir, entry.Name()), modTime: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].modTime.Before(files[j].modTime) })

	for _, f := range files {
		sst, err := sstable.Load(f.path)
		if err != nil {
			return newIO(fmt.Errorf("load sstable %s: %w", f.path, err))
		}
		e.sstables = append(e.sstables, sst)
	}
	return nil
}

func (e *Engine) replayWAL() error {
	entries, err := e.wal.LoadEntries()
	if err != nil {
		return newIO(err)
	}
	for _, entry := range entries {
		switch entry.Op {
		case wal.OpSet:
			e.memtable.Set(entry.Key, value.DecodeLoose([]byte(entry.Value)))
		default:
			e.memtable.Del(entry.Key)
		}
	}
	return nil
}

// Close flushes nothing (the WAL already holds every unflushed write) and
// closes the underlying log file.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.wal.Close()
}

// MemTable exposes the authoritative in-memory map, for callers (the TTL
// daemon, diagnostics) that need direct access.
func (e *Engine) MemTable() *memtable.MemTable { return e.memtable }

// ExpirationTable exposes the TTL table, for the same reason.
func (e *Engine) ExpirationTable() *ttlstore.ExpirationTable { return e.expirations }

// SSTable returns the oldest tracked SSTable handle, or nil if none has
// been flushed yet. StartTTLDaemon hands the daemon this one handle when it
// starts, so the daemon's on-disk tombstoning applies to that table only;
// tables flushed or produced by compaction afterwards are not touched by it.
func (e *Engine) SSTable() *sstable.SSTable {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.sstables) == 0 {
		return nil
	}
	return e.sstables[0]
}

// Execute dispatches cmd under the engine's single lock and returns a
// string result where the command produces one (nil for commands that
// don't, and for any read of a key that isn't present anywhere, except
// LRange, which reports a missing key as "[]").
func (e *Engine) Execute(cmd Command) (*string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.log.WithField("cmd", cmd.commandName()).Debug("executing command")

	switch c := cmd.(type) {
	case GetCommand:
		return e.execGet(c.Key)
	case SetCommand:
		return nil, e.setLocked(c.Key, value.NewString(c.Value))
	case DelCommand:
		return nil, e.delLocked(c.Key)
	case HSetCommand:
		return nil, e.hsetLocked(c.Key, c.Field, c.Value)
	case HGetCommand:
		return e.execHGet(c.Key, c.Field)
	case HDelCommand:
		return nil, e.hdelLocked(c.Key, c.Field)
	case LPushCommand:
		return nil, e.pushLocked(c.Key, c.Value, true)
	case RPushCommand:
		return nil, e.pushLocked(c.Key, c.Value, false)
	case LPopCommand:
		return e.popLocked(c.Key, true)
	case RPopCommand:
		return e.popLocked(c.Key, false)
	case LRangeCommand:
		return e.execLRange(c.Key, c.Start, c.End)
	case SAddCommand:
		return nil, e.saddLocked(c.Key, c.Member)
	case SRemCommand:
		return nil, e.sremLocked(c.Key, c.Member)
	case SMembersCommand:
		return e.execSMembers(c.Key)
	default:
		return nil, newInternal(fmt.Errorf("unrecognized command %T", cmd))
	}
}

// SetWithExpiration sets key to val and attaches a TTL in one locked
// section, so no interleaved command can observe the write without its
// expiration.
func (e *Engine) SetWithExpiration(key, val string, ttl time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.setLocked(key, value.NewString(val)); err != nil {
		return err
	}
	e.expirations.Set(key, ttl)
	return nil
}

// lookupLive resolves key through lazy expiration, the MemTable (including
// its tombstones), then every SSTable newest-first, so a later flush always
// shadows an earlier one for the same key.
func (e *Engine) lookupLive(key string) (value.Value, bool) {
	if e.expirations.IsExpired(key) {
		return value.Value{}, false
	}
	if v, hasEntry := e.memtable.State(key); hasEntry {
		if v == nil {
			return value.Value{}, false
		}
		return *v, true
	}
	for i := len(e.sstables) - 1; i >= 0; i-- {
		if v, ok := e.sstables[i].Get(key); ok {
			return v, true
		}
	}
	return value.Value{}, false
}

// commitLocked appends v's tagged JSON to the WAL, applies it to the
// MemTable, and flushes if the MemTable has reached the configured
// threshold. Caller must hold e.mu.
func (e *Engine) commitLocked(key string, v value.Value) error {
	encoded, err := json.Marshal(v)
	if err != nil {
		return newSerde(fmt.Errorf("encode value for %q: %w", key, err))
	}
	if err := e.wal.Append(walSetEntry(key, string(encoded))); err != nil {
		return newIO(err)
	}
	e.memtable.Set(key, v)
	return e.maybeFlushLocked()
}

func (e *Engine) setLocked(key string, v value.Value) error {
	return e.commitLocked(key, v)
}

func (e *Engine) delLocked(key string) error {
	if err := e.wal.Append(walDelEntry(key)); err != nil {
		return newIO(err)
	}
	e.memtable.Del(key)
	e.expirations.Remove(key)
	return e.maybeFlushLocked()
}

func (e *Engine) execGet(key string) (*string, error) {
	v, ok := e.lookupLive(key)
	if !ok || v.Kind != value.KindString {
		return nil, nil
	}
	return renderValue(v), nil
}

// existingOrKind fetches key's current value if present and of kind, or
// returns a freshly constructed zero value of kind when key is absent or
// holds another variant, which the write then replaces (the
// "read-modify-write, creating on first write" path used by
// HSet/LPush/RPush/SAdd).
func (e *Engine) existingOrKind(key string, kind value.Kind, zero func() value.Value) (value.Value, error) {
	v, ok := e.lookupLive(key)
	if !ok || v.Kind != kind {
		return zero(), nil
	}
	return v, nil
}

// existingOfKind fetches key's current value, validating its kind, and
// reports whether key exists at all (the "no-op on missing key" path used
// by HDel/SRem/LPop/RPop/HGet).
func (e *Engine) existingOfKind(key string, kind value.Kind) (value.Value, bool, error) {
	v, ok := e.lookupLive(key)
	if !ok {
		return value.Value{}, false, nil
	}
	if v.Kind != kind {
		return value.Value{}, true, newTypeMismatch(key, kind, v.Kind)
	}
	return v, true, nil
}

func (e *Engine) hsetLocked(key, field, val string) error {
	cur, err := e.existingOrKind(key, value.KindHash, func() value.Value { return value.NewHash(nil) })
	if err != nil {
		return err
	}
	cur.Hash[field] = val
	return e.commitLocked(key, cur)
}

func (e *Engine) execHGet(key, field string) (*string, error) {
	cur, exists, err := e.existingOfKind(key, value.KindHash)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	fv, ok := cur.Hash[field]
	if !ok {
		return nil, nil
	}
	return &fv, nil
}

func (e *Engine) hdelLocked(key, field string) error {
	cur, exists, err := e.existingOfKind(key, value.KindHash)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	delete(cur.Hash, field)
	return e.commitLocked(key, cur)
}

func (e *Engine) pushLocked(key, val string, front bool) error {
	cur, err := e.existingOrKind(key, value.KindList, func() value.Value { return value.NewList(nil) })
	if err != nil {
		return err
	}
	if front {
		cur.List = append([]string{val}, cur.List...)
	} else {
		cur.List = append(cur.List, val)
	}
	return e.commitLocked(key, cur)
}

func (e *Engine) popLocked(key string, front bool) (*string, error) {
	cur, exists, err := e.existingOfKind(key, value.KindList)
	if err != nil {
		return nil, err
	}
	if !exists || len(cur.List) == 0 {
		return nil, nil
	}
	var popped string
	if front {
		popped = cur.List[0]
		cur.List = cur.List[1:]
	} else {
		popped = cur.List[len(cur.List)-1]
		cur.List = cur.List[:len(cur.List)-1]
	}
	if err := e.commitLocked(key, cur); err != nil {
		return nil, err
	}
	return &popped, nil
}

func (e *Engine) execLRange(key string, start, end uint) (*string, error) {
	cur, exists, err := e.existingOfKind(key, value.KindList)
	if err != nil {
		return nil, err
	}
	if !exists {
		return renderStringSlice(nil)
	}
	n := uint(len(cur.List))
	if start >= n {
		return renderStringSlice(nil)
	}
	if end >= n {
		end = n - 1
	}
	if start > end {
		return renderStringSlice(nil)
	}
	return renderStringSlice(cur.List[start : end+1])
}

func (e *Engine) saddLocked(key, member string) error {
	cur, err := e.existingOrKind(key, value.KindSet, func() value.Value { return value.NewSet(nil) })
	if err != nil {
		return err
	}
	cur.Set[member] = struct{}{}
	return e.commitLocked(key, cur)
}

func (e *Engine) sremLocked(key, member string) error {
	cur, exists, err := e.existingOfKind(key, value.KindSet)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	delete(cur.Set, member)
	return e.commitLocked(key, cur)
}

func (e *Engine) execSMembers(key string) (*string, error) {
	cur, exists, err := e.existingOfKind(key, value.KindSet)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	return renderStringSlice(cur.Members())
}

// renderValue returns v's raw string payload. Callers must only pass a
// String-kind value; Get already filters out every other variant, since
// reading a non-string key is defined to report absent, not its encoding.
func renderValue(v value.Value) *string {
	s := v.Str
	return &s
}

func renderStringSlice(s []string) (*string, error) {
	if s == nil {
		s = []string{}
	}
	encoded, err := json.Marshal(s)
	if err != nil {
		return nil, newSerde(err)
	}
	out := string(encoded)
	return &out, nil
}

// maybeFlushLocked flushes the MemTable to a new SSTable once it holds at
// least cfg.FlushThreshold live keys, then checkpoints the WAL so replay cost stays
// bounded. Caller must hold e.mu.
func (e *Engine) maybeFlushLocked() error {
	if e.memtable.Len() < e.cfg.FlushThreshold {
		return nil
	}

	snap := e.memtable.Snapshot()
	ttlMap := make(map[string]int64, len(snap))
	for key := range snap {
		if when, ok := e.expirations.ExpiresAt(key); ok {
			ttlMap[key] = when.Unix()
		}
	}

	path := e.nextSSTablePath("")
	if err := sstable.Write(path, snap, ttlMap); err != nil {
		return newIO(fmt.Errorf("flush write: %w", err))
	}
	sst, err := sstable.Load(path)
	if err != nil {
		return newIO(fmt.Errorf("flush reload: %w", err))
	}

	e.sstables = append(e.sstables, sst)
	e.memtable.Clear()
	if err := e.wal.Checkpoint(); err != nil {
		return newIO(fmt.Errorf("flush checkpoint: %w", err))
	}
	e.log.WithField("path", path).Info("flushed memtable to sstable")
	return nil
}

// nextSSTablePath builds a "<unix-seconds>-<snowflake-id>.sst" filename
// (optionally prefixed), using a snowflake node instead of a bare
// timestamp so two flushes or compactions within the same second never
// collide.
func (e *Engine) nextSSTablePath(prefix string) string {
	id := e.idNode.Generate().Int64()
	name := fmt.Sprintf("%s%d-%d.sst", prefix, time.Now().Unix(), id)
	return filepath.Join(e.cfg.SSTDir, name)
}

// StartBackgroundCompaction launches a goroutine that periodically folds
// the two smallest SSTables into one, until ctx is cancelled.
func (e *Engine) StartBackgroundCompaction(ctx context.Context) error {
	if e.cfg.CompactionInterval <= 0 {
		return newInternal(fmt.Errorf("compaction interval must be positive"))
	}
	go e.runCompactionLoop(ctx)
	return nil
}

func (e *Engine) runCompactionLoop(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.CompactionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			e.log.Info("background compaction stopping")
			return
		case <-ticker.C:
			e.mu.Lock()
			err := e.compactOnceLocked()
			e.mu.Unlock()
			if err != nil {
				e.log.WithError(err).Warn("compaction pass failed")
			}
		}
	}
}

// compactOnceLocked sorts the tracked SSTables ascending by size and folds
// the two smallest into one. A no-op when fewer than two tables exist.
// Caller must hold e.mu.
func (e *Engine) compactOnceLocked() error {
	if len(e.sstables) < 2 {
		return nil
	}

	idx := make([]int, len(e.sstables))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		return e.sstables[idx[a]].Size() < e.sstables[idx[b]].Size()
	})
	i, j := idx[0], idx[1]
	if i > j {
		i, j = j, i
	}
	older, newer := e.sstables[i], e.sstables[j]
	outPath := e.nextSSTablePath("compact_")

	merged, err := sstable.Compact(older, newer, outPath)
	if err != nil {
		return newCompactionFailed(err)
	}

	for _, stale := range []string{older.Path(), newer.Path()} {
		if err := os.Remove(stale); err != nil && !os.IsNotExist(err) {
			e.log.WithError(err).WithField("path", stale).Warn("failed to remove compacted sstable")
		}
	}

	rest := make([]*sstable.SSTable, 0, len(e.sstables)-1)
	rest = append(rest, e.sstables[:i]...)
	rest = append(rest, e.sstables[i+1:j]...)
	rest = append(rest, e.sstables[j+1:]...)
	e.sstables = append(rest, merged)
	e.log.WithField("path", outPath).Info("compacted two sstables")
	return nil
}

// StartTTLDaemon launches the active-expiration background sweep against
// the engine's current state, until ctx is cancelled.
func (e *Engine) StartTTLDaemon(ctx context.Context) {
	d := ttlstore.NewDaemon(e.expirations, e.memtable, e.SSTable(), e.cfg.TTLInterval)
	go d.Run(ctx)
}
