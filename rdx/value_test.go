package rdx

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_JSONCanonical(t *testing.T) {
	cases := map[string]string{
		`12345`:                    `12345`,
		`-7`:                       `-7`,
		`1.5`:                      `1.5`,
		`2.0`:                      `2.0`,
		`1e3`:                      `1000.0`,
		` "text" `:                 `"text"`,
		`true`:                     `true`,
		`null`:                     `null`,
		`[ 1, 2 ,3]`:               `[1,2,3]`,
		`[]`:                       `[]`,
		`{}`:                       `{}`,
		`{"b": 1, "a": {"d":[],"c":false}}`: `{"a":{"c":false,"d":[]},"b":1}`,
		`-9223372036854775808`:     `-9223372036854775808`,
		`9.3e18`:                   `9.3e+18`,
	}
	for in, out := range cases {
		v, err := ParseJSON([]byte(in))
		require.NoError(t, err, in)
		enc, err := v.MarshalJSON()
		require.NoError(t, err, in)
		assert.Equal(t, out, string(enc), in)
	}
}

func TestValue_ParseErrors(t *testing.T) {
	for _, in := range []string{``, `{`, `[1,]`, `1 2`, `{"a":1}{}`,
		`9223372036854775808`, `-9223372036854775809`, `{"record_id":18446744073709551615}`} {
		_, err := ParseJSON([]byte(in))
		assert.ErrorIs(t, err, ErrBadJSON, in)
	}
}

func TestValue_Shapes(t *testing.T) {
	v, err := ParseJSON([]byte(`{"s":"x","i":3,"f":3.0,"b":true,"n":null,"l":[1],"m":{"k":"v"}}`))
	require.NoError(t, err)
	assert.Equal(t, Mapping, v.Type())
	assert.Equal(t, []string{"b", "f", "i", "l", "m", "n", "s"}, v.Keys())

	s, _ := v.Get("s")
	text, ok := s.Text()
	assert.True(t, ok)
	assert.Equal(t, "x", text)

	i, _ := v.Get("i")
	n, ok := i.Int64()
	assert.True(t, ok)
	assert.Equal(t, int64(3), n)

	f, _ := v.Get("f")
	assert.Equal(t, Float, f.Type())
	assert.False(t, f.Equal(i))

	b, _ := v.Get("b")
	bv, ok := b.Bool()
	assert.True(t, ok)
	assert.True(t, bv)

	null, _ := v.Get("n")
	assert.True(t, null.IsNull())

	l, _ := v.Get("l")
	assert.Equal(t, 1, l.Len())

	m, _ := v.Get("m")
	assert.Equal(t, Str("v"), m.Fields()["k"])

	_, ok = v.Get("missing")
	assert.False(t, ok)
}

func TestValue_ObjectLastWins(t *testing.T) {
	o := Object(Pair{"b", Int(1)}, Pair{"a", Int(2)}, Pair{"b", Int(3)})
	assert.Equal(t, `{"a":2,"b":3}`, o.String())
	assert.True(t, o.Equal(Map(map[string]Value{"a": Int(2), "b": Int(3)})))
}

func TestValue_NonFinite(t *testing.T) {
	_, err := Flt(math.Inf(1)).MarshalJSON()
	assert.ErrorIs(t, err, ErrBadValue)
	_, err = Array(Flt(math.NaN())).MarshalJSON()
	assert.ErrorIs(t, err, ErrBadValue)
}

type point struct {
	X int     `json:"x"`
	Y float64 `json:"y"`
	Tag string `json:"tag,omitempty"`
}

func TestValue_MarshalUnmarshal(t *testing.T) {
	v, err := Marshal(point{X: 1, Y: 2.5})
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, v.Keys())

	var back point
	require.NoError(t, v.Unmarshal(&back))
	assert.Equal(t, point{X: 1, Y: 2.5}, back)

	scalar, err := Marshal(42)
	require.NoError(t, err)
	assert.Equal(t, Int(42), scalar)
}

func TestValue_String(t *testing.T) {
	v := Array(Str("a\n"), Int(1), Flt(2), Bool(false), Null(), Object())
	assert.Equal(t, `["a\n",1,2.0,false,null,{}]`, v.String())
}
