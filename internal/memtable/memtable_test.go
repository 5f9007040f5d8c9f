package memtable

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejxsmore/vapordb-go/internal/value"
)

func TestSetGetDel(t *testing.T) {
	mt := New()
	mt.Set("a", value.NewString("1"))

	v, ok := mt.Get("a")
	require.True(t, ok)
	assert.Equal(t, "1", v.Str)

	assert.True(t, mt.Del("a"))
	_, ok = mt.Get("a")
	assert.False(t, ok)
	assert.False(t, mt.Del("a"))
}

func TestDelTombstoneDistinctFromAbsent(t *testing.T) {
	mt := New()
	mt.Set("a", value.NewString("1"))
	mt.Del("a")

	_, hasEntry := mt.State("a")
	assert.True(t, hasEntry, "a deleted key must still have an entry (a tombstone)")

	_, hasEntry = mt.State("never-written")
	assert.False(t, hasEntry, "a never-written key must have no entry at all")
}

func TestReplaceAcrossVariants(t *testing.T) {
	mt := New()
	mt.Set("k", value.NewString("s"))
	mt.Set("k", value.NewList([]string{"a"}))

	v, ok := mt.Get("k")
	require.True(t, ok)
	assert.Equal(t, value.KindList, v.Kind)
}

func TestLenAndClear(t *testing.T) {
	mt := New()
	mt.Set("a", value.NewString("1"))
	mt.Set("b", value.NewString("2"))
	assert.Equal(t, 2, mt.Len())

	mt.Clear()
	assert.Equal(t, 0, mt.Len())
	assert.Empty(t, mt.Keys())
}

func TestFlushToSSTableDoesNotClear(t *testing.T) {
	mt := New()
	mt.Set("a", value.NewString("1"))
	mt.Set("b", value.NewList([]string{"x", "y"}))

	path := filepath.Join(t.TempDir(), "flush.sst")
	require.NoError(t, mt.FlushToSSTable(path))

	assert.Equal(t, 2, mt.Len(), "flush must not clear the memtable")

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	lines := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		require.True(t, strings.Contains(line, "\t"))
		lines++
	}
	assert.Equal(t, 2, lines)
}
