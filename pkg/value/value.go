// Package value provides the JSON-DOM scalar/composite type carried by
// entity payloads throughout graphstore.
//
// Entities are opaque string-keyed objects whose property values are one of
// string, number, bool, array, object, or null. Go has no built-in sum type
// for that, so Value wraps interface{} and restricts construction to the
// allowed shapes, the way the teacher's storage package carries node
// properties as map[string]any but narrower: graphstore needs the
// restriction because index values must be coercible to strings and range
// predicates need numeric comparison.
package value

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Value is a JSON-DOM value: nil, bool, float64, string, []Value, or
// map[string]Value. Construct via the From* helpers or FromJSON.
type Value struct {
	raw interface{}
}

// Null is the zero Value.
var Null = Value{}

func FromString(s string) Value { return Value{raw: s} }
func FromNumber(f float64) Value { return Value{raw: f} }
func FromBool(b bool) Value      { return Value{raw: b} }
func FromArray(a []Value) Value  { return Value{raw: a} }
func FromObject(o map[string]Value) Value { return Value{raw: o} }

// FromJSON converts a generic json.Unmarshal result (map[string]any,
// []any, string, float64, bool, nil) into a Value tree.
func FromJSON(v interface{}) Value {
	switch t := v.(type) {
	case nil:
		return Null
	case map[string]interface{}:
		obj := make(map[string]Value, len(t))
		for k, val := range t {
			obj[k] = FromJSON(val)
		}
		return FromObject(obj)
	case []interface{}:
		arr := make([]Value, len(t))
		for i, val := range t {
			arr[i] = FromJSON(val)
		}
		return FromArray(arr)
	case map[string]Value:
		return FromObject(t)
	case []Value:
		return FromArray(t)
	case Value:
		return t
	default:
		return Value{raw: t}
	}
}

// Raw returns the underlying interface{} (nil / bool / float64 / string /
// []Value / map[string]Value).
func (v Value) Raw() interface{} { return v.raw }

// IsNull reports whether v holds no value.
func (v Value) IsNull() bool { return v.raw == nil }

// Object returns the value as map[string]Value, or ok=false if v is not an object.
func (v Value) Object() (map[string]Value, bool) {
	o, ok := v.raw.(map[string]Value)
	return o, ok
}

// Array returns the value as []Value, or ok=false if v is not an array.
func (v Value) Array() (arr []Value, ok bool) {
	a, ok := v.raw.([]Value)
	return a, ok
}

// String coerces v to a string, following the same "index values must be
// coerce-able to strings" rule the Index Engine relies on when building
// index-row keys. Scalars coerce directly; composite values marshal to
// compact JSON so the coercion is total and deterministic.
func (v Value) String() string {
	switch t := v.raw.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		b, err := json.Marshal(v.ToJSON())
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}
}

// Float64 returns v as a float64 for range-predicate comparison.
// ok is false for non-numeric, non-numeric-string values.
func (v Value) Float64() (float64, bool) {
	switch t := v.raw.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// ToJSON converts v back into plain Go values suitable for
// encoding/json.Marshal (the inverse of FromJSON).
func (v Value) ToJSON() interface{} {
	switch t := v.raw.(type) {
	case map[string]Value:
		m := make(map[string]interface{}, len(t))
		for k, val := range t {
			m[k] = val.ToJSON()
		}
		return m
	case []Value:
		a := make([]interface{}, len(t))
		for i, val := range t {
			a[i] = val.ToJSON()
		}
		return a
	default:
		return t
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.ToJSON())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = FromJSON(raw)
	return nil
}

// Object is the entity payload type: a string-keyed map of Values. It is
// the unit the Entity Engine and Index Engine exchange.
type Object map[string]Value

// Clone returns a shallow-independent copy of o (top-level keys copied;
// nested Values are immutable so no deep copy is required).
func (o Object) Clone() Object {
	out := make(Object, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

// Merge returns a new Object that is the shallow union of o and patch,
// with patch's keys winning. This is the "merge is shallow union, not
// replace" semantics updateQuery relies on: properties absent from patch
// survive untouched.
func (o Object) Merge(patch Object) Object {
	out := o.Clone()
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// Keys returns the object's keys in sorted order, for deterministic
// iteration (index expansion, JSON encoding of backups, etc).
func (o Object) Keys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (o Object) MarshalJSON() ([]byte, error) {
	if o == nil {
		return []byte("null"), nil
	}
	m := make(map[string]interface{}, len(o))
	for k, v := range o {
		m[k] = v.ToJSON()
	}
	return json.Marshal(m)
}

func (o *Object) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Object, len(raw))
	for k, v := range raw {
		out[k] = FromJSON(v)
	}
	*o = out
	return nil
}
