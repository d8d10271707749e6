package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

var ErrMissingKey = errors.New("missing key")

// Kind tags the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a payload value of one of the Kind variants. The zero Value is
// null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	l    []Value
	m    Data
}

func NullValue() Value { return Value{} }
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }
func IntValue(i int64) Value { return Value{kind: KindInt, i: i} }
func FloatValue(f float64) Value { return Value{kind: KindFloat, f: f} }
func StringValue(s string) Value { return Value{kind: KindString, s: s} }
func ListValue(items ...Value) Value { return Value{kind: KindList, l: items} }
func MapValue(m Data) Value { return Value{kind: KindMap, m: m} }

func (v Value) Kind() Kind { return v.kind }

// AsString returns the string held by v.
func (v Value) AsString() (string, bool) {
	return v.s, v.kind == KindString
}

// AsInt returns v as an integer. Floats with an integral value are
// accepted since numbers may widen on the wire.
func (v Value) AsInt() (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.i, true
	case KindFloat:
		if floatFitsInt64(v.f) {
			return int64(v.f), true
		}
	}
	return 0, false
}

// floatFitsInt64 reports whether f is integral and inside [-2^63, 2^63).
// float64(math.MaxInt64) rounds up to 2^63, so the upper bound is strict.
func floatFitsInt64(f float64) bool {
	return f == math.Trunc(f) && f >= -(1<<63) && f < 1<<63
}

func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	}
	return 0, false
}

func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

func (v Value) AsList() ([]Value, bool) {
	return v.l, v.kind == KindList
}

func (v Value) AsMap() (Data, bool) {
	return v.m, v.kind == KindMap
}

// Equal compares values, treating ints and integral floats as equal.
func (v Value) Equal(o Value) bool {
	if a, ok := v.AsFloat(); ok {
		b, ok := o.AsFloat()
		return ok && a == b
	}
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindString:
		return v.s == o.s
	case KindList:
		if len(v.l) != len(o.l) {
			return false
		}
		for i := range v.l {
			if !v.l[i].Equal(o.l[i]) {
				return false
			}
		}
		return true
	case KindMap:
		return v.m.Equal(o.m)
	}
	return false
}

func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindNull:
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return v.kind.String()
	}
	return string(b)
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.native())
}

func (v *Value) UnmarshalJSON(b []byte) error {
	raw, err := decodeNative(b)
	if err != nil {
		return err
	}
	parsed, err := fromNative(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v Value) native() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindList:
		out := make([]any, len(v.l))
		for i, item := range v.l {
			out[i] = item.native()
		}
		return out
	case KindMap:
		return v.m.native()
	default:
		return nil
	}
}

func fromNative(raw any) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return NullValue(), nil
	case bool:
		return BoolValue(x), nil
	case string:
		return StringValue(x), nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return IntValue(i), nil
		}
		f, err := x.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("number %q: %w", x.String(), err)
		}
		return FloatValue(f), nil
	case []any:
		items := make([]Value, len(x))
		for i, item := range x {
			v, err := fromNative(item)
			if err != nil {
				return Value{}, err
			}
			items[i] = v
		}
		return ListValue(items...), nil
	case map[string]any:
		d, err := dataFromNative(x)
		if err != nil {
			return Value{}, err
		}
		return MapValue(d), nil
	default:
		return Value{}, fmt.Errorf("unsupported value %T", raw)
	}
}

// TypeError reports a payload value that does not hold the requested kind.
type TypeError struct {
	Key  string
	Want Kind
	Got  Kind
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("key %q: want %s, got %s", e.Key, e.Want, e.Got)
}

// Data is the keyed payload of an envelope.
type Data map[string]Value

func (d Data) Has(key string) bool {
	_, ok := d[key]
	return ok
}

func (d Data) Lookup(key string) (Value, bool) {
	v, ok := d[key]
	return v, ok
}

func (d Data) get(key string) (Value, error) {
	v, ok := d[key]
	if !ok {
		return Value{}, fmt.Errorf("key %q: %w", key, ErrMissingKey)
	}
	return v, nil
}

func (d Data) String(key string) (string, error) {
	v, err := d.get(key)
	if err != nil {
		return "", err
	}
	s, ok := v.AsString()
	if !ok {
		return "", &TypeError{Key: key, Want: KindString, Got: v.kind}
	}
	return s, nil
}

func (d Data) Int(key string) (int64, error) {
	v, err := d.get(key)
	if err != nil {
		return 0, err
	}
	i, ok := v.AsInt()
	if !ok {
		return 0, &TypeError{Key: key, Want: KindInt, Got: v.kind}
	}
	return i, nil
}

func (d Data) Float(key string) (float64, error) {
	v, err := d.get(key)
	if err != nil {
		return 0, err
	}
	f, ok := v.AsFloat()
	if !ok {
		return 0, &TypeError{Key: key, Want: KindFloat, Got: v.kind}
	}
	return f, nil
}

func (d Data) Bool(key string) (bool, error) {
	v, err := d.get(key)
	if err != nil {
		return false, err
	}
	b, ok := v.AsBool()
	if !ok {
		return false, &TypeError{Key: key, Want: KindBool, Got: v.kind}
	}
	return b, nil
}

func (d Data) Map(key string) (Data, error) {
	v, err := d.get(key)
	if err != nil {
		return nil, err
	}
	m, ok := v.AsMap()
	if !ok {
		return nil, &TypeError{Key: key, Want: KindMap, Got: v.kind}
	}
	return m, nil
}

// Clone returns a shallow copy; nested values are shared.
func (d Data) Clone() Data {
	out := make(Data, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

func (d Data) Equal(o Data) bool {
	if len(d) != len(o) {
		return false
	}
	for k, v := range d {
		ov, ok := o[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

func (d Data) native() map[string]any {
	out := make(map[string]any, len(d))
	for k, v := range d {
		out[k] = v.native()
	}
	return out
}

func dataFromNative(raw map[string]any) (Data, error) {
	out := make(Data, len(raw))
	for k, item := range raw {
		v, err := fromNative(item)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}
