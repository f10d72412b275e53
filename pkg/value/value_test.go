package value

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromJSONRoundTrip(t *testing.T) {
	raw := `{"name":"ada","age":36,"active":true,"tags":["a","b"],"address":null}`

	var decoded interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))

	v := FromJSON(decoded)
	obj, ok := v.Object()
	require.True(t, ok)

	assert.Equal(t, "ada", obj["name"].String())
	f, ok := obj["age"].Float64()
	require.True(t, ok)
	assert.Equal(t, 36.0, f)

	arr, ok := obj["tags"].Array()
	require.True(t, ok)
	require.Len(t, arr, 2)
	assert.Equal(t, "a", arr[0].String())

	assert.True(t, obj["address"].IsNull())

	out, err := json.Marshal(v)
	require.NoError(t, err)

	var roundTripped interface{}
	require.NoError(t, json.Unmarshal(out, &roundTripped))
	assert.Equal(t, decoded, roundTripped)
}

func TestValueStringCoercion(t *testing.T) {
	assert.Equal(t, "", Null.String())
	assert.Equal(t, "hello", FromString("hello").String())
	assert.Equal(t, "true", FromBool(true).String())
	assert.Equal(t, "3.5", FromNumber(3.5).String())

	composite := FromArray([]Value{FromNumber(1), FromNumber(2)})
	assert.Equal(t, "[1,2]", composite.String())
}

func TestValueFloat64(t *testing.T) {
	f, ok := FromNumber(42).Float64()
	require.True(t, ok)
	assert.Equal(t, 42.0, f)

	f, ok = FromString("17.5").Float64()
	require.True(t, ok)
	assert.Equal(t, 17.5, f)

	_, ok = FromString("not-a-number").Float64()
	assert.False(t, ok)

	_, ok = FromBool(true).Float64()
	assert.False(t, ok)
}

func TestObjectMergeIsShallowUnion(t *testing.T) {
	base := Object{
		"name": FromString("ada"),
		"age":  FromNumber(36),
	}
	patch := Object{
		"age":  FromNumber(37),
		"city": FromString("london"),
	}

	merged := base.Merge(patch)

	assert.Equal(t, "ada", merged["name"].String())
	assert.Equal(t, 37.0, must(merged["age"].Float64()))
	assert.Equal(t, "london", merged["city"].String())

	// base is untouched.
	assert.Equal(t, 36.0, must(base["age"].Float64()))
}

func TestObjectCloneIsIndependent(t *testing.T) {
	base := Object{"name": FromString("ada")}
	clone := base.Clone()
	clone["name"] = FromString("grace")

	assert.Equal(t, "ada", base["name"].String())
	assert.Equal(t, "grace", clone["name"].String())
}

func TestObjectKeysAreSorted(t *testing.T) {
	obj := Object{"z": Null, "a": Null, "m": Null}
	assert.Equal(t, []string{"a", "m", "z"}, obj.Keys())
}

func TestObjectJSONRoundTrip(t *testing.T) {
	obj := Object{"name": FromString("ada"), "age": FromNumber(36)}

	data, err := json.Marshal(obj)
	require.NoError(t, err)

	var decoded Object
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "ada", decoded["name"].String())
	assert.Equal(t, 36.0, must(decoded["age"].Float64()))
}

func TestNilObjectMarshalsToJSONNull(t *testing.T) {
	var obj Object
	data, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))

	data, err = json.Marshal(map[string]interface{}{"found": obj})
	require.NoError(t, err)
	assert.JSONEq(t, `{"found":null}`, string(data))
}

func must(f float64, ok bool) float64 {
	if !ok {
		panic("not numeric")
	}
	return f
}
