package value

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalRoundTrip_String(t *testing.T) {
	v := NewString("hello")
	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"String":"hello"}`, string(data))

	var out Value
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, KindString, out.Kind)
	assert.Equal(t, "hello", out.Str)
}

func TestMarshalRoundTrip_Hash(t *testing.T) {
	v := NewHash(map[string]string{"name": "Alice", "age": "30"})
	data, err := json.Marshal(v)
	require.NoError(t, err)

	var out Value
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, KindHash, out.Kind)
	assert.Equal(t, "Alice", out.Hash["name"])
	assert.Equal(t, "30", out.Hash["age"])
}

func TestMarshalRoundTrip_List(t *testing.T) {
	v := NewList([]string{"a", "b", "c"})
	data, err := json.Marshal(v)
	require.NoError(t, err)

	var out Value
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, KindList, out.Kind)
	assert.Equal(t, []string{"a", "b", "c"}, out.List)
}

func TestMarshalRoundTrip_Set(t *testing.T) {
	v := SetFromSlice([]string{"x", "y", "x"})
	assert.Len(t, v.Members(), 2)

	data, err := json.Marshal(v)
	require.NoError(t, err)

	var out Value
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, KindSet, out.Kind)
	assert.ElementsMatch(t, []string{"x", "y"}, out.Members())
}

func TestDecodeLoose_FallsBackToString(t *testing.T) {
	v := DecodeLoose([]byte("just-a-raw-string"))
	assert.Equal(t, KindString, v.Kind)
	assert.Equal(t, "just-a-raw-string", v.Str)
}

func TestDecodeLoose_RecognizesTagged(t *testing.T) {
	v := DecodeLoose([]byte(`{"List":["a","b"]}`))
	assert.Equal(t, KindList, v.Kind)
	assert.Equal(t, []string{"a", "b"}, v.List)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "string", KindString.String())
	assert.Equal(t, "hash", KindHash.String())
	assert.Equal(t, "list", KindList.String())
	assert.Equal(t, "set", KindSet.String())
}
