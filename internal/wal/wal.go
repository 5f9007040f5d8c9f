// Package wal implements VaporDB's write-ahead log: an append-only file
// where every mutation is durably recorded before it is applied to the
// MemTable.
//
// Each record is framed with a 4-byte little-endian length prefix followed
// by a gob-encoded payload, so a reader never has to guess where one record
// ends and the next begins. A torn write at the very end of the file, from
// the process dying mid-append, is detected by a short read and treated as
// end-of-log rather than corruption.
package wal

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// Op identifies the kind of mutation a LogEntry records.
type Op uint8

const (
	OpSet Op = iota
	OpDel
)

// LogEntry is one WAL record: a Set(key, value) or a Del(key). For
// composite writes (HSet, LPush, ...) Value carries the serialized tagged
// form of the whole value after mutation: read-modify-write semantics at
// log time.
type LogEntry struct {
	Op    Op
	Key   string
	Value string
}

// WAL is a simple append-only log backed by a single file. Append and
// LoadEntries agree on a length-prefixed binary framing so recovery never
// has to scan for delimiters inside arbitrary key/value bytes.
type WAL struct {
	mu   sync.Mutex
	file *os.File
	path string
	log  *logrus.Entry
}

// Open creates or opens path in append mode. It never truncates an existing
// log: recovery depends on everything written so far still being there.
func Open(path string) (*WAL, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("wal: open %s: %w", path, err)
	}
	return &WAL{
		file: f,
		path: path,
		log:  logrus.WithField("component", "wal"),
	}, nil
}

// Append encodes entry and durably appends it to the log. The write buffer
// (here: the raw file) is flushed via fsync before Append returns, so a
// caller that has seen Append succeed knows the record survives a crash.
func (w *WAL) Append(entry LogEntry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(entry); err != nil {
		return fmt.Errorf("wal: encode entry: %w", err)
	}
	payload := buf.Bytes()

	var lenPrefix [4]byte
	binary.LittleEndian.PutUint32(lenPrefix[:], uint32(len(payload)))

	if _, err := w.file.Write(lenPrefix[:]); err != nil {
		return fmt.Errorf("wal: write length prefix: %w", err)
	}
	if _, err := w.file.Write(payload); err != nil {
		return fmt.Errorf("wal: write payload: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("wal: sync: %w", err)
	}
	return nil
}

// LoadEntries reads the file from offset 0 and returns every entry in
// append order. A truncated trailing record, such as a length prefix with
// fewer than 4 bytes remaining or a payload shorter than its declared
// length, is treated as end-of-log rather than an error, so recovery
// tolerates a torn tail left by a crash mid-append.
func (w *WAL) LoadEntries() ([]LogEntry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("wal: seek: %w", err)
	}
	defer w.file.Seek(0, io.SeekEnd)

	var entries []LogEntry
	var lenPrefix [4]byte
	for {
		if _, err := io.ReadFull(w.file, lenPrefix[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return nil, fmt.Errorf("wal: read length prefix: %w", err)
		}
		n := binary.LittleEndian.Uint32(lenPrefix[:])
		payload := make([]byte, n)
		if _, err := io.ReadFull(w.file, payload); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				w.log.Warn("torn WAL record at tail, stopping replay")
				break
			}
			return nil, fmt.Errorf("wal: read payload: %w", err)
		}

		var entry LogEntry
		if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&entry); err != nil {
			w.log.WithError(err).Warn("skipping undecodable WAL record")
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Checkpoint truncates the log to empty. The engine calls this right after
// a successful MemTable flush, once every record in the log is already
// captured by the new SSTable, bounding how much a restart ever has to
// replay.
func (w *WAL) Checkpoint() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.file.Truncate(0); err != nil {
		return fmt.Errorf("wal: checkpoint truncate: %w", err)
	}
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("wal: checkpoint seek: %w", err)
	}
	return nil
}

// Close closes the underlying file. Call during shutdown.
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}
