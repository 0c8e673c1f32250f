// Package recovery turns free-form delegate output into structured records.
package recovery

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies the dynamic type held by a Value.
type Kind int

// Value kinds mirror the JSON data model.
const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindObject
)

// Value is a dynamically typed JSON value.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	list []Value
	obj  Record
}

// Record is a recovered JSON object. An empty Record is a valid, degraded result.
type Record map[string]Value

// Null returns the null value.
func Null() Value { return Value{kind: KindNull} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number wraps a number.
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, s: s} }

// List wraps a list of values.
func List(items ...Value) Value { return Value{kind: KindList, list: items} }

// Object wraps a nested record.
func Object(r Record) Value { return Value{kind: KindObject, obj: r} }

// Kind returns the dynamic type of v.
func (v Value) Kind() Kind { return v.kind }

// AsNumber returns the numeric value. Numeric strings are accepted; NaN and
// infinities are not.
func (v Value) AsNumber() (float64, bool) {
	var f float64
	switch v.kind {
	case KindNumber:
		f = v.n
	case KindString:
		var err error
		if f, err = strconv.ParseFloat(strings.TrimSpace(v.s), 64); err != nil {
			return 0, false
		}
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// AsString returns the string value.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// AsList returns the list items.
func (v Value) AsList() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return v.list, true
}

// AsObject returns the nested record.
func (v Value) AsObject() (Record, bool) {
	if v.kind != KindObject {
		return nil, false
	}
	return v.obj, true
}

// text renders a scalar as display text.
func (v Value) text() (string, bool) {
	switch v.kind {
	case KindString:
		return v.s, true
	case KindNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64), true
	case KindBool:
		return strconv.FormatBool(v.b), true
	default:
		return "", false
	}
}

// Interface converts v back into plain Go values (map[string]any, []any, ...).
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Interface()
		}
		return out
	case KindObject:
		return v.obj.Map()
	default:
		return nil
	}
}

// MarshalJSON encodes v as JSON.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// Has reports whether key is present.
func (r Record) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// Len returns the number of top-level keys.
func (r Record) Len() int { return len(r) }

// Keys returns the top-level keys in sorted order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Number returns the number at key, or def when absent or not numeric.
func (r Record) Number(key string, def float64) float64 {
	v, ok := r[key]
	if !ok {
		return def
	}
	if n, ok := v.AsNumber(); ok {
		return n
	}
	return def
}

// String returns the string at key, or def when absent or not a string.
func (r Record) String(key, def string) string {
	v, ok := r[key]
	if !ok {
		return def
	}
	if s, ok := v.AsString(); ok {
		return s
	}
	return def
}

// Strings returns the list at key rendered as text. Null and nested items
// are skipped. Returns nil when the key is absent or not a list.
func (r Record) Strings(key string) []string {
	v, ok := r[key]
	if !ok {
		return nil
	}
	items, ok := v.AsList()
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.text(); ok {
			out = append(out, s)
		}
	}
	return out
}

// Object returns the nested record at key, or nil.
func (r Record) Object(key string) Record {
	v, ok := r[key]
	if !ok {
		return nil
	}
	obj, _ := v.AsObject()
	return obj
}

// Map converts the record into a plain map.
func (r Record) Map() map[string]any {
	out := make(map[string]any, len(r))
	for k, v := range r {
		out[k] = v.Interface()
	}
	return out
}

// fromAny converts a decoded JSON value (decoded with UseNumber) into a Value.
func fromAny(raw any) Value {
	switch t := raw.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return String(t.String())
		}
		return Number(f)
	case float64:
		return Number(t)
	case string:
		return String(t)
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = fromAny(item)
		}
		return List(items...)
	case map[string]any:
		return Object(fromMap(t))
	default:
		return Null()
	}
}

func fromMap(m map[string]any) Record {
	r := make(Record, len(m))
	for k, v := range m {
		r[k] = fromAny(v)
	}
	return r
}
