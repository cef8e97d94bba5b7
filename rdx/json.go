package rdx

import (
	"bytes"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

var ErrBadValue = errors.New("rdx: value can not be represented")
var ErrBadJSON = errors.New("rdx: bad JSON")

// MarshalJSON writes the canonical encoding: mapping keys sorted,
// no insignificant whitespace, floats always with a point or exponent.
// Equal values always produce identical bytes.
func (v Value) MarshalJSON() ([]byte, error) {
	return v.AppendJSON(nil)
}

func (v Value) AppendJSON(b []byte) ([]byte, error) {
	var err error
	switch v.RdxType {
	case None:
		b = append(b, TermNull...)
	case String:
		b = appendJSONString(b, v.text)
	case Term:
		switch v.text {
		case TermTrue, TermFalse, TermNull:
			b = append(b, v.text...)
		default:
			return nil, ErrBadValue
		}
	case Integer:
		b = strconv.AppendInt(b, v.integer, 10)
	case Float:
		if math.IsNaN(v.float) || math.IsInf(v.float, 0) {
			return nil, ErrBadValue
		}
		b = appendFloat(b, v.float)
	case Linear:
		b = append(b, '[')
		for i, item := range v.items {
			if i > 0 {
				b = append(b, ',')
			}
			if b, err = item.AppendJSON(b); err != nil {
				return nil, err
			}
		}
		b = append(b, ']')
	case Mapping:
		b = append(b, '{')
		for i, p := range v.pairs {
			if i > 0 {
				b = append(b, ',')
			}
			b = appendJSONString(b, p.Key)
			b = append(b, ':')
			if b, err = p.Value.AppendJSON(b); err != nil {
				return nil, err
			}
		}
		b = append(b, '}')
	default:
		return nil, ErrBadValue
	}
	return b, nil
}

func appendJSONString(b []byte, s string) []byte {
	quoted, _ := json.Marshal(s) // strings always marshal
	return append(b, quoted...)
}

func (v *Value) UnmarshalJSON(data []byte) (err error) {
	*v, err = ParseJSON(data)
	return
}

// ParseJSON reads exactly one JSON value. Numbers without a fraction
// or exponent become Integers and must fit int64.
func ParseJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var native any
	if err := dec.Decode(&native); err != nil {
		return Value{}, errors.Join(ErrBadJSON, err)
	}
	var extra any
	if err := dec.Decode(&extra); err != io.EOF {
		return Value{}, ErrBadJSON
	}
	return FromNative(native)
}

// FromNative converts the output of a generic JSON decode
// (and common Go scalars) into a Value.
func FromNative(native any) (Value, error) {
	switch n := native.(type) {
	case nil:
		return Null(), nil
	case Value:
		return n, nil
	case bool:
		return Bool(n), nil
	case string:
		return Str(n), nil
	case json.Number:
		return parseNumber(string(n))
	case float64:
		return Flt(n), nil
	case float32:
		return Flt(float64(n)), nil
	case int:
		return Int(int64(n)), nil
	case int64:
		return Int(n), nil
	case int32:
		return Int(int64(n)), nil
	case uint32:
		return Int(int64(n)), nil
	case []any:
		items := make([]Value, 0, len(n))
		for _, item := range n {
			v, err := FromNative(item)
			if err != nil {
				return Value{}, err
			}
			items = append(items, v)
		}
		return Array(items...), nil
	case map[string]any:
		fields := make(map[string]Value, len(n))
		for k, item := range n {
			v, err := FromNative(item)
			if err != nil {
				return Value{}, err
			}
			fields[k] = v
		}
		return Map(fields), nil
	}
	return Value{}, ErrBadValue
}

// parseNumber keeps integers integral; one that does not fit int64 is
// refused rather than rounded to a Float.
func parseNumber(num string) (Value, error) {
	if !strings.ContainsAny(num, ".eE") {
		i, err := strconv.ParseInt(num, 10, 64)
		if err != nil {
			return Value{}, errors.Join(ErrBadJSON, err)
		}
		return Int(i), nil
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Value{}, errors.Join(ErrBadJSON, err)
	}
	return Flt(f), nil
}

// Marshal projects any Go value onto a Value: Valuers directly,
// everything else through its JSON encoding.
func Marshal(val any) (Value, error) {
	switch v := val.(type) {
	case Value:
		return v, nil
	case Valuer:
		return v.RdxValue(), nil
	}
	data, err := json.Marshal(val)
	if err != nil {
		return Value{}, err
	}
	return ParseJSON(data)
}

// Unmarshal fills a typed Go value from v, the inverse of Marshal.
func (v Value) Unmarshal(into any) error {
	data, err := v.MarshalJSON()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, into)
}
