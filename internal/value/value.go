// Package value defines VaporDB's tagged value variant: a key holds exactly
// one of a string, a hash, a list, or a set, and the same wire shape is used
// both in SSTable lines and in WAL records for composite writes.
package value

import (
	"encoding/json"
	"fmt"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindString Kind = iota
	KindHash
	KindList
	KindSet
)

// String renders the kind the way TypeMismatch errors name their
// "expected" and "found" variants.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindHash:
		return "hash"
	case KindList:
		return "list"
	case KindSet:
		return "set"
	default:
		return "unknown"
	}
}

// Value is a tagged union over VaporDB's four supported shapes. Only the
// field matching Kind is meaningful; the zero value of the others is left
// alone rather than cleared, since callers are expected to go through the
// constructors below.
type Value struct {
	Kind Kind

	Str  string
	Hash map[string]string
	List []string
	Set  map[string]struct{}
}

func NewString(s string) Value { return Value{Kind: KindString, Str: s} }

func NewHash(m map[string]string) Value {
	if m == nil {
		m = map[string]string{}
	}
	return Value{Kind: KindHash, Hash: m}
}

func NewList(l []string) Value {
	if l == nil {
		l = []string{}
	}
	return Value{Kind: KindList, List: l}
}

func NewSet(s map[string]struct{}) Value {
	if s == nil {
		s = map[string]struct{}{}
	}
	return Value{Kind: KindSet, Set: s}
}

// SetFromSlice builds a Set value from a slice of members, deduplicating.
func SetFromSlice(members []string) Value {
	s := make(map[string]struct{}, len(members))
	for _, m := range members {
		s[m] = struct{}{}
	}
	return NewSet(s)
}

// Members returns the set's members as a slice in unspecified order.
func (v Value) Members() []string {
	out := make([]string, 0, len(v.Set))
	for m := range v.Set {
		out = append(out, m)
	}
	return out
}

// taggedJSON mirrors the self-describing wire shape:
// {"String": "..."} | {"Hash": {...}} | {"List": [...]} | {"Set": [...]}
type taggedJSON struct {
	String *string           `json:"String,omitempty"`
	Hash   map[string]string `json:"Hash,omitempty"`
	List   []string          `json:"List,omitempty"`
	Set    []string          `json:"Set,omitempty"`
}

// MarshalJSON encodes Value in its self-describing tagged form.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindString:
		s := v.Str
		return json.Marshal(taggedJSON{String: &s})
	case KindHash:
		h := v.Hash
		if h == nil {
			h = map[string]string{}
		}
		return json.Marshal(map[string]map[string]string{"Hash": h})
	case KindList:
		l := v.List
		if l == nil {
			l = []string{}
		}
		return json.Marshal(map[string][]string{"List": l})
	case KindSet:
		return json.Marshal(map[string][]string{"Set": v.Members()})
	default:
		return nil, fmt.Errorf("value: marshal: unknown kind %d", v.Kind)
	}
}

// UnmarshalJSON decodes the tagged form. It rejects anything without a
// recognized tag; callers that want a raw-string fallback should use
// DecodeLoose instead of calling this directly on untrusted input.
func (v *Value) UnmarshalJSON(data []byte) error {
	var t taggedJSON
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	switch {
	case t.String != nil:
		*v = NewString(*t.String)
	case t.Hash != nil:
		*v = NewHash(t.Hash)
	case t.List != nil:
		*v = NewList(t.List)
	case t.Set != nil:
		*v = SetFromSlice(t.Set)
	default:
		return fmt.Errorf("value: unmarshal: no recognized tag in %s", data)
	}
	return nil
}

// DecodeLoose decodes raw bytes as a Value, falling back to treating the
// payload as a plain string when it isn't one of the tagged shapes. Used on
// WAL replay so a torn or pre-tagging-era record still recovers as data
// instead of failing the whole replay.
func DecodeLoose(data []byte) Value {
	var v Value
	if err := json.Unmarshal(data, &v); err == nil {
		return v
	}
	return NewString(string(data))
}
