package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTLVAppend(t *testing.T) {
	buf := []byte{}
	buf = Append(buf, 'A', []byte{'A'})
	buf = Append(buf, 'b', []byte{'B', 'B'})
	correct2 := []byte{'a', 1, 'A', 'b', 2, 'B', 'B'}
	assert.Equal(t, correct2, buf, "basic TLV fail")

	c256 := bytes.Repeat([]byte{'c'}, 256)
	buf = Append(buf, 'C', c256)
	assert.Equal(t, len(correct2)+1+4+len(c256), len(buf))
	assert.Equal(t, uint8('C'), buf[len(correct2)])
	assert.Equal(t, uint8(1), buf[len(correct2)+2])

	lit, body, buf, err := TakeAnyWary(buf)
	assert.Nil(t, err)
	assert.Equal(t, uint8('A'), lit)
	assert.Equal(t, []byte{'A'}, body)

	body2, rest, err2 := TakeWary('B', buf)
	assert.Nil(t, err2)
	assert.Equal(t, []byte{'B', 'B'}, body2)

	body3, rest, err3 := TakeWary('C', rest)
	assert.Nil(t, err3)
	assert.Equal(t, c256, body3)
	assert.Empty(t, rest)
}

func TestTLVErrors(t *testing.T) {
	rec := Append(nil, 'O', []byte("hello"))

	_, rest, err := TakeWary('O', rec[:4])
	assert.ErrorIs(t, err, ErrIncomplete)
	assert.Equal(t, rec[:4], rest)

	_, _, err = TakeWary('X', rec)
	assert.ErrorIs(t, err, ErrBadRecord)

	_, _, _, err = TakeAnyWary([]byte{'?', 1, 2})
	assert.ErrorIs(t, err, ErrBadRecord)

	_, _, _, err = TakeAnyWary(nil)
	assert.ErrorIs(t, err, ErrIncomplete)

	assert.Panics(t, func() { Append(nil, '1') })
}

func TestSplit(t *testing.T) {
	a := Append(nil, 'O', []byte("first"))
	b := Append(nil, 'O', bytes.Repeat([]byte{'x'}, 300))
	recs, err := Split(append(append([]byte{}, a...), b...))
	assert.NoError(t, err)
	assert.Equal(t, Records{a, b}, recs)

	_, err = Split(append(a, 'O'))
	assert.ErrorIs(t, err, ErrIncomplete)
}
