package engine

import "github.com/tejxsmore/vapordb-go/internal/wal"

func walSetEntry(key, encodedValue string) wal.LogEntry {
	return wal.LogEntry{Op: wal.OpSet, Key: key, Value: encodedValue}
}

func walDelEntry(key string) wal.LogEntry {
	return wal.LogEntry{Op: wal.OpDel, Key: key}
}
