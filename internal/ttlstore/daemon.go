package ttlstore

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tejxsmore/vapordb-go/internal/memtable"
	"github.com/tejxsmore/vapordb-go/internal/sstable"
)

// DefaultInterval is the TTL daemon's default wake period.
const DefaultInterval = 100 * time.Millisecond

// Daemon is VaporDB's active-expiration background task: it wakes every
// interval, removes expired keys from the TTL table and MemTable, and, when
// it holds an SSTable handle, tombstones those keys in that one table and
// rewrites its file. The sweep writes no WAL record, so a swept key whose
// write is still in the WAL is restored by replay on the next start.
type Daemon struct {
	expirations *ExpirationTable
	memtable    *memtable.MemTable
	sst         *sstable.SSTable // optional; nil means "memory only"
	interval    time.Duration
	log         *logrus.Entry
}

// NewDaemon builds a Daemon. sst may be nil: the daemon then only maintains
// in-memory state, since the engine's SSTable accessor returns nothing if
// no SSTable has been flushed yet.
func NewDaemon(expirations *ExpirationTable, mt *memtable.MemTable, sst *sstable.SSTable, interval time.Duration) *Daemon {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Daemon{
		expirations: expirations,
		memtable:    mt,
		sst:         sst,
		interval:    interval,
		log:         logrus.WithField("component", "ttl-daemon"),
	}
}

// Run blocks, ticking every d.interval, until ctx is cancelled. Each tick
// runs in its own recovered function so a panic or lock failure during a
// single sweep is logged and swallowed rather than propagated: the daemon
// never stops the process over one bad sweep.
func (d *Daemon) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.log.Info("ttl daemon stopping")
			return
		case <-ticker.C:
			d.tick()
		}
	}
}

func (d *Daemon) tick() {
	defer func() {
		if r := recover(); r != nil {
			d.log.WithField("panic", r).Error("ttl daemon tick recovered from panic")
		}
	}()

	expired := d.expirations.GetExpiredKeys()
	if len(expired) == 0 {
		return
	}

	for _, key := range expired {
		d.expirations.Remove(key)
	}
	d.memtable.RemoveAll(expired)
	d.log.WithField("count", len(expired)).Debug("expired keys swept")

	if d.sst == nil {
		return
	}
	for _, key := range expired {
		d.sst.Delete(key)
	}
	if err := d.sst.Rewrite(); err != nil {
		d.log.WithError(err).Warn("failed to persist tombstones after ttl sweep")
	}
}
