package rdx

import (
	"math"
	"slices"
	"strconv"
	"strings"
)

// Value types. The letters follow the RDX notation: FIST for the
// scalars (no references here), L for linear arrays, M for mappings.
// Terms carry the JSON literals true, false and null.
const (
	None    = byte(0)
	Float   = byte('F')
	Integer = byte('I')
	String  = byte('S')
	Term    = byte('T')
	Linear  = byte('L')
	Mapping = byte('M')
)

const (
	TermTrue  = "true"
	TermFalse = "false"
	TermNull  = "null"
)

// Pair is a single named entry of a mapping.
type Pair struct {
	Key   string
	Value Value
}

// Value is an explicitly tagged JSON-like value. Generic merge code
// reads payload fields through it instead of reflecting over the
// concrete payload types. The zero Value is None and encodes as null.
type Value struct {
	RdxType byte
	text    string
	integer int64
	float   float64
	items   []Value
	pairs   []Pair // sorted by key, unique
}

type Valuer interface {
	RdxValue() Value
}

func Str(s string) Value {
	return Value{RdxType: String, text: s}
}

func Int(i int64) Value {
	return Value{RdxType: Integer, integer: i}
}

func Flt(f float64) Value {
	return Value{RdxType: Float, float: f}
}

func Bool(b bool) Value {
	if b {
		return Value{RdxType: Term, text: TermTrue}
	}
	return Value{RdxType: Term, text: TermFalse}
}

func Null() Value {
	return Value{RdxType: Term, text: TermNull}
}

// Array makes a Linear value; an empty call makes an empty array, not null.
func Array(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{RdxType: Linear, items: items}
}

// Object makes a Mapping value. Pairs get sorted by key; for repeated
// keys the last one wins.
func Object(pairs ...Pair) Value {
	sorted := make([]Pair, 0, len(pairs))
	for _, p := range pairs {
		i, found := slices.BinarySearchFunc(sorted, p.Key, comparePairKey)
		if found {
			sorted[i] = p
		} else {
			sorted = slices.Insert(sorted, i, p)
		}
	}
	return Value{RdxType: Mapping, pairs: sorted}
}

func Map(fields map[string]Value) Value {
	pairs := make([]Pair, 0, len(fields))
	for k, v := range fields {
		pairs = append(pairs, Pair{Key: k, Value: v})
	}
	slices.SortFunc(pairs, func(a, b Pair) int { return strings.Compare(a.Key, b.Key) })
	return Value{RdxType: Mapping, pairs: pairs}
}

func comparePairKey(p Pair, key string) int {
	return strings.Compare(p.Key, key)
}

func (v Value) Type() byte {
	return v.RdxType
}

func (v Value) IsNull() bool {
	return v.RdxType == None || (v.RdxType == Term && v.text == TermNull)
}

func (v Value) Text() (string, bool) {
	if v.RdxType != String {
		return "", false
	}
	return v.text, true
}

func (v Value) Int64() (int64, bool) {
	if v.RdxType != Integer {
		return 0, false
	}
	return v.integer, true
}

// Float64 returns the numeric value of both Float and Integer values.
func (v Value) Float64() (float64, bool) {
	switch v.RdxType {
	case Float:
		return v.float, true
	case Integer:
		return float64(v.integer), true
	}
	return 0, false
}

func (v Value) Bool() (b, ok bool) {
	if v.RdxType != Term || v.text == TermNull {
		return false, false
	}
	return v.text == TermTrue, true
}

func (v Value) Items() []Value {
	return v.items
}

// Len is the number of array items or mapping entries.
func (v Value) Len() int {
	switch v.RdxType {
	case Linear:
		return len(v.items)
	case Mapping:
		return len(v.pairs)
	}
	return 0
}

func (v Value) Get(key string) (Value, bool) {
	if v.RdxType != Mapping {
		return Value{}, false
	}
	i, found := slices.BinarySearchFunc(v.pairs, key, comparePairKey)
	if !found {
		return Value{}, false
	}
	return v.pairs[i].Value, true
}

func (v Value) Has(key string) bool {
	_, ok := v.Get(key)
	return ok
}

func (v Value) Pairs() []Pair {
	return v.pairs
}

// Keys of a mapping, sorted.
func (v Value) Keys() []string {
	keys := make([]string, 0, len(v.pairs))
	for _, p := range v.pairs {
		keys = append(keys, p.Key)
	}
	return keys
}

// Fields returns a mapping as a Go map; nil for any other type.
func (v Value) Fields() map[string]Value {
	if v.RdxType != Mapping {
		return nil
	}
	m := make(map[string]Value, len(v.pairs))
	for _, p := range v.pairs {
		m[p.Key] = p.Value
	}
	return m
}

// Equal is deep equality; the shape matters, so 1 and 1.0 differ.
func (v Value) Equal(b Value) bool {
	if v.IsNull() || b.IsNull() {
		return v.IsNull() && b.IsNull()
	}
	if v.RdxType != b.RdxType {
		return false
	}
	switch v.RdxType {
	case String, Term:
		return v.text == b.text
	case Integer:
		return v.integer == b.integer
	case Float:
		return v.float == b.float || (math.IsNaN(v.float) && math.IsNaN(b.float))
	case Linear:
		return slices.EqualFunc(v.items, b.items, Value.Equal)
	case Mapping:
		return slices.EqualFunc(v.pairs, b.pairs, func(x, y Pair) bool {
			return x.Key == y.Key && x.Value.Equal(y.Value)
		})
	}
	return false
}

// String renders the value in RDX text notation, e.g. {"a":[1,2.5,true]}
func (v Value) String() string {
	return string(v.appendText(nil))
}

func (v Value) appendText(b []byte) []byte {
	switch v.RdxType {
	case None:
		b = append(b, TermNull...)
	case String:
		b = strconv.AppendQuote(b, v.text)
	case Term:
		b = append(b, v.text...)
	case Integer:
		b = strconv.AppendInt(b, v.integer, 10)
	case Float:
		b = appendFloat(b, v.float)
	case Linear:
		b = append(b, '[')
		for i, item := range v.items {
			if i > 0 {
				b = append(b, ',')
			}
			b = item.appendText(b)
		}
		b = append(b, ']')
	case Mapping:
		b = append(b, '{')
		for i, p := range v.pairs {
			if i > 0 {
				b = append(b, ',')
			}
			b = strconv.AppendQuote(b, p.Key)
			b = append(b, ':')
			b = p.Value.appendText(b)
		}
		b = append(b, '}')
	}
	return b
}

// appendFloat keeps a decimal point or exponent in the output so the
// value reads back as a Float, not an Integer.
func appendFloat(b []byte, f float64) []byte {
	start := len(b)
	b = strconv.AppendFloat(b, f, 'g', -1, 64)
	for _, c := range b[start:] {
		if c == '.' || c == 'e' || c == 'E' || c == 'N' || c == 'I' {
			return b
		}
	}
	return append(b, '.', '0')
}
