package engine

import (
	"fmt"

	"github.com/tejxsmore/vapordb-go/internal/value"
)

// Kind identifies which error category a Error belongs to.
type Kind int

const (
	// KindKeyNotFound is reserved but unused: every command that might look
	// up a missing key reports it via a nil result, not an error.
	KindKeyNotFound Kind = iota
	KindIO
	KindSerde
	KindTypeMismatch
	KindCompactionFailed
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindKeyNotFound:
		return "key not found"
	case KindIO:
		return "io"
	case KindSerde:
		return "serde"
	case KindTypeMismatch:
		return "type mismatch"
	case KindCompactionFailed:
		return "compaction failed"
	default:
		return "internal"
	}
}

// Error is VaporDB's engine-level error type. It wraps an underlying cause
// where one exists, so errors.Is/errors.As work against the wrapped error.
type Error struct {
	Kind     Kind
	Key      string
	Expected value.Kind
	Found    value.Kind
	Err      error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindTypeMismatch:
		return fmt.Sprintf("type mismatch on key %q: expected %s, found %s", e.Key, e.Expected, e.Found)
	case KindKeyNotFound:
		return fmt.Sprintf("key not found: %q", e.Key)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", e.Kind, e.Err)
		}
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

func newTypeMismatch(key string, expected, found value.Kind) error {
	return &Error{Kind: KindTypeMismatch, Key: key, Expected: expected, Found: found}
}

func newIO(err error) error {
	return &Error{Kind: KindIO, Err: err}
}

func newSerde(err error) error {
	return &Error{Kind: KindSerde, Err: err}
}

func newCompactionFailed(err error) error {
	return &Error{Kind: KindCompactionFailed, Err: err}
}

func newInternal(err error) error {
	return &Error{Kind: KindInternal, Err: err}
}
