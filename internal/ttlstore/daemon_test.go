package ttlstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejxsmore/vapordb-go/internal/memtable"
	"github.com/tejxsmore/vapordb-go/internal/sstable"
	"github.com/tejxsmore/vapordb-go/internal/value"
)

func TestDaemonSweepsExpiredKeysMemoryOnly(t *testing.T) {
	et := New()
	mt := memtable.New()

	mt.Set("gone", value.NewString("x"))
	mt.Set("stays", value.NewString("y"))
	et.Set("gone", -time.Second)
	et.Set("stays", time.Hour)

	d := NewDaemon(et, mt, nil, time.Millisecond)
	d.tick()

	_, ok := mt.Get("gone")
	assert.False(t, ok)
	_, ok = mt.Get("stays")
	assert.True(t, ok)
}

func TestDaemonTombstonesSSTable(t *testing.T) {
	et := New()
	mt := memtable.New()
	sst := sstable.New()
	sst.Insert("gone", value.NewString("x"), nil)

	mt.Set("gone", value.NewString("x"))
	et.Set("gone", -time.Second)

	d := NewDaemon(et, mt, sst, time.Millisecond)
	d.tick()

	_, ok := sst.Get("gone")
	assert.False(t, ok, "daemon must tombstone the key in the SSTable too")
}

func TestDaemonRunStopsOnContextCancel(t *testing.T) {
	et := New()
	mt := memtable.New()
	d := NewDaemon(et, mt, nil, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("daemon did not stop after context cancellation")
	}
}

func TestDaemonTickNoExpiredKeysIsNoop(t *testing.T) {
	et := New()
	mt := memtable.New()
	mt.Set("k", value.NewString("v"))
	et.Set("k", time.Hour)

	d := NewDaemon(et, mt, nil, time.Millisecond)
	require.NotPanics(t, d.tick)

	_, ok := mt.Get("k")
	assert.True(t, ok)
}
