package engine

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejxsmore/vapordb-go/internal/sstable"
	"github.com/tejxsmore/vapordb-go/internal/value"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	dir := t.TempDir()
	e, err := New(Config{
		WALPath:        filepath.Join(dir, "test.wal"),
		SSTDir:         filepath.Join(dir, "sst"),
		FlushThreshold: 1000,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func mustExec(t *testing.T, e *Engine, cmd Command) *string {
	t.Helper()
	res, err := e.Execute(cmd)
	require.NoError(t, err)
	return res
}

func TestStringSetGet(t *testing.T) {
	e := newTestEngine(t)
	mustExec(t, e, SetCommand{Key: "greeting", Value: "hello"})

	res := mustExec(t, e, GetCommand{Key: "greeting"})
	require.NotNil(t, res)
	assert.Equal(t, "hello", *res)
}

func TestGetMissingKeyReturnsNilNoError(t *testing.T) {
	e := newTestEngine(t)
	res := mustExec(t, e, GetCommand{Key: "nope"})
	assert.Nil(t, res)
}

func TestDelRemovesKey(t *testing.T) {
	e := newTestEngine(t)
	mustExec(t, e, SetCommand{Key: "k", Value: "v"})
	mustExec(t, e, DelCommand{Key: "k"})
	res := mustExec(t, e, GetCommand{Key: "k"})
	assert.Nil(t, res)
}

func TestDelOnMissingKeyIsNoop(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Execute(DelCommand{Key: "never-existed"})
	assert.NoError(t, err)
}

func TestGetOnNonStringVariantReturnsNil(t *testing.T) {
	e := newTestEngine(t)
	mustExec(t, e, HSetCommand{Key: "u", Field: "f", Value: "x"})
	assert.Nil(t, mustExec(t, e, GetCommand{Key: "u"}))
}

func TestHashOps(t *testing.T) {
	e := newTestEngine(t)
	mustExec(t, e, HSetCommand{Key: "user:1", Field: "name", Value: "ada"})
	mustExec(t, e, HSetCommand{Key: "user:1", Field: "lang", Value: "go"})

	res := mustExec(t, e, HGetCommand{Key: "user:1", Field: "name"})
	require.NotNil(t, res)
	assert.Equal(t, "ada", *res)

	assert.Nil(t, mustExec(t, e, HGetCommand{Key: "user:1", Field: "missing-field"}))

	mustExec(t, e, HDelCommand{Key: "user:1", Field: "lang"})
	assert.Nil(t, mustExec(t, e, HGetCommand{Key: "user:1", Field: "lang"}))
}

func TestListOps(t *testing.T) {
	e := newTestEngine(t)
	mustExec(t, e, RPushCommand{Key: "q", Value: "a"})
	mustExec(t, e, RPushCommand{Key: "q", Value: "b"})
	mustExec(t, e, LPushCommand{Key: "q", Value: "z"})
	// list is now [z, a, b]

	popped := mustExec(t, e, LPopCommand{Key: "q"})
	require.NotNil(t, popped)
	assert.Equal(t, "z", *popped)

	popped = mustExec(t, e, RPopCommand{Key: "q"})
	require.NotNil(t, popped)
	assert.Equal(t, "b", *popped)

	res := mustExec(t, e, LRangeCommand{Key: "q", Start: 0, End: 10})
	require.NotNil(t, res)
	var list []string
	require.NoError(t, json.Unmarshal([]byte(*res), &list))
	assert.Equal(t, []string{"a"}, list)
}

func TestLRangeOutOfBoundsClamps(t *testing.T) {
	e := newTestEngine(t)
	mustExec(t, e, RPushCommand{Key: "l", Value: "a"})
	mustExec(t, e, RPushCommand{Key: "l", Value: "b"})

	res := mustExec(t, e, LRangeCommand{Key: "l", Start: 0, End: 99})
	require.NotNil(t, res)
	var list []string
	require.NoError(t, json.Unmarshal([]byte(*res), &list))
	assert.Equal(t, []string{"a", "b"}, list)

	res = mustExec(t, e, LRangeCommand{Key: "l", Start: 5, End: 10})
	require.NotNil(t, res)
	require.NoError(t, json.Unmarshal([]byte(*res), &list))
	assert.Empty(t, list)
}

func TestLRangeOnMissingKeyReturnsEmptyArray(t *testing.T) {
	e := newTestEngine(t)
	res := mustExec(t, e, LRangeCommand{Key: "nope", Start: 0, End: 10})
	require.NotNil(t, res)
	assert.Equal(t, "[]", *res)
}

func TestPopOnEmptyListReturnsNil(t *testing.T) {
	e := newTestEngine(t)
	mustExec(t, e, RPushCommand{Key: "l", Value: "only"})
	mustExec(t, e, LPopCommand{Key: "l"})
	assert.Nil(t, mustExec(t, e, LPopCommand{Key: "l"}))
}

func TestSetOps(t *testing.T) {
	e := newTestEngine(t)
	mustExec(t, e, SAddCommand{Key: "tags", Member: "go"})
	mustExec(t, e, SAddCommand{Key: "tags", Member: "db"})
	mustExec(t, e, SAddCommand{Key: "tags", Member: "go"}) // dup, no-op

	res := mustExec(t, e, SMembersCommand{Key: "tags"})
	require.NotNil(t, res)
	var members []string
	require.NoError(t, json.Unmarshal([]byte(*res), &members))
	assert.ElementsMatch(t, []string{"go", "db"}, members)

	mustExec(t, e, SRemCommand{Key: "tags", Member: "db"})
	res = mustExec(t, e, SMembersCommand{Key: "tags"})
	require.NotNil(t, res)
	require.NoError(t, json.Unmarshal([]byte(*res), &members))
	assert.Equal(t, []string{"go"}, members)
}

func TestTypeMismatchAcrossCommands(t *testing.T) {
	e := newTestEngine(t)
	mustExec(t, e, SetCommand{Key: "k", Value: "plain string"})

	_, err := e.Execute(HGetCommand{Key: "k", Field: "f"})
	require.Error(t, err)
	var engineErr *Error
	require.ErrorAs(t, err, &engineErr)
	assert.Equal(t, KindTypeMismatch, engineErr.Kind)
}

func TestOverwriteAcrossVariantsReplaces(t *testing.T) {
	e := newTestEngine(t)
	mustExec(t, e, RPushCommand{Key: "k", Value: "a"})
	mustExec(t, e, SetCommand{Key: "k", Value: "now a string"})

	res := mustExec(t, e, GetCommand{Key: "k"})
	require.NotNil(t, res)
	assert.Equal(t, "now a string", *res)
}

func TestExpirationLazy(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.SetWithExpiration("temp", "v", 10*time.Millisecond))

	res := mustExec(t, e, GetCommand{Key: "temp"})
	require.NotNil(t, res)

	time.Sleep(20 * time.Millisecond)
	res = mustExec(t, e, GetCommand{Key: "temp"})
	assert.Nil(t, res, "expired key must read as absent without an active sweep")
}

func TestSetDoesNotClearExistingTTL(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.SetWithExpiration("k", "v1", 10*time.Millisecond))
	mustExec(t, e, SetCommand{Key: "k", Value: "v2"})

	time.Sleep(20 * time.Millisecond)
	res := mustExec(t, e, GetCommand{Key: "k"})
	assert.Nil(t, res, "a plain Set must not clear a pre-existing TTL (documented divergence from Redis)")
}

func TestFlushAndReloadPreservesData(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		WALPath:        filepath.Join(dir, "test.wal"),
		SSTDir:         filepath.Join(dir, "sst"),
		FlushThreshold: 3,
	}
	e, err := New(cfg)
	require.NoError(t, err)

	mustExec(t, e, SetCommand{Key: "a", Value: "1"})
	mustExec(t, e, SetCommand{Key: "b", Value: "2"})
	mustExec(t, e, SetCommand{Key: "c", Value: "3"}) // reaches the threshold, triggers flush

	require.Equal(t, 0, e.MemTable().Len(), "flush must clear the memtable")
	require.NoError(t, e.Close())

	reopened, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	res, err := reopened.Execute(GetCommand{Key: "a"})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "1", *res)
}

// TestCompactionPicksSmallestNotOldest builds three SSTables of distinct
// sizes directly (bypassing the normal flush path) and confirms
// compactOnceLocked merges the two smallest regardless of their position
// in the oldest-first slice.
func TestCompactionPicksSmallestNotOldest(t *testing.T) {
	e := newTestEngine(t)
	dir := t.TempDir()

	mk := func(name string, keys ...string) *sstable.SSTable {
		m := make(map[string]*value.Value, len(keys))
		for _, k := range keys {
			v := value.NewString(k)
			m[k] = &v
		}
		path := filepath.Join(dir, name)
		require.NoError(t, sstable.Write(path, m, nil))
		sst, err := sstable.Load(path)
		require.NoError(t, err)
		return sst
	}

	oldest := mk("oldest.sst", "a", "b", "c") // size 3
	middle := mk("middle.sst", "d")           // size 1 (smallest)
	newest := mk("newest.sst", "e", "f")      // size 2

	e.sstables = []*sstable.SSTable{oldest, middle, newest}
	require.NoError(t, e.compactOnceLocked())

	require.Len(t, e.sstables, 2, "the two smallest tables merge, the largest survives untouched")
	assert.Same(t, oldest, e.sstables[0], "the largest table (oldest here) must not be touched")

	merged := e.sstables[1]
	for _, k := range []string{"d", "e", "f"} {
		_, ok := merged.Get(k)
		assert.True(t, ok, "merged table must contain %q from both compacted inputs", k)
	}
}

func TestDeleteAfterFlushStaysInvisible(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		WALPath:        filepath.Join(dir, "test.wal"),
		SSTDir:         filepath.Join(dir, "sst"),
		FlushThreshold: 1,
	}
	e, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })

	mustExec(t, e, SetCommand{Key: "k", Value: "v"}) // flushes immediately (threshold=1)
	mustExec(t, e, DelCommand{Key: "k"})

	res := mustExec(t, e, GetCommand{Key: "k"})
	assert.Nil(t, res, "a delete of an already-flushed key must shadow the older sstable")
}

func TestComprehensiveWorkflow(t *testing.T) {
	e := newTestEngine(t)

	mustExec(t, e, SetCommand{Key: "session:1", Value: "active"})
	mustExec(t, e, HSetCommand{Key: "user:1", Field: "name", Value: "grace"})
	mustExec(t, e, RPushCommand{Key: "queue", Value: "job1"})
	mustExec(t, e, SAddCommand{Key: "online", Member: "user:1"})

	assert.Equal(t, "active", *mustExec(t, e, GetCommand{Key: "session:1"}))
	assert.Equal(t, "grace", *mustExec(t, e, HGetCommand{Key: "user:1", Field: "name"}))

	mustExec(t, e, DelCommand{Key: "session:1"})
	assert.Nil(t, mustExec(t, e, GetCommand{Key: "session:1"}))

	res := mustExec(t, e, SMembersCommand{Key: "online"})
	var members []string
	require.NoError(t, json.Unmarshal([]byte(*res), &members))
	assert.Equal(t, []string{"user:1"}, members)
}
