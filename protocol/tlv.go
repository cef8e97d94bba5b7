// TLV framing is based on ToyTLV (MIT licence) written by Victor Grishchenko in 2024
// Original project: https://github.com/learn-decentralized-systems/toytlv

/*
Package protocol frames opaque records as TLV (type, length, value) so
several encoded operations can travel or sit on disk as one blob.

Headers come in two sizes:

 1. Short (2 bytes) for bodies up to 255 bytes: [lowercase_type, length]
 2. Long (5 bytes) for bodies up to 2GB: [uppercase_type, uint32 little endian length]

Record types are letters A..Z. The case of the first byte only tells the
header size; readers always see the uppercase type.

	batch := Append(nil, 'O', op1)
	batch = Append(batch, 'O', op2)
	body, rest, err := TakeWary('O', batch)
*/
package protocol

import (
	"encoding/binary"
	"errors"
)

const CaseBit uint8 = 'a' - 'A'

const MaxBodyLen = 0x7fffffff

var (
	ErrIncomplete = errors.New("incomplete data")
	ErrBadRecord  = errors.New("bad TLV record format")
)

// Records is a batch of raw records.
type Records [][]byte

// ProbeHeader reads a record header.
//
// Returns:
//   - lit: record type 'A'..'Z', '-' for a malformed header, 0 if incomplete
//   - hdrlen: header length, 2 or 5
//   - bodylen: body length in bytes
func ProbeHeader(data []byte) (lit byte, hdrlen, bodylen int) {
	if len(data) == 0 {
		return 0, 0, 0
	}
	dlit := data[0]
	switch {
	case dlit >= 'a' && dlit <= 'z':
		if len(data) < 2 {
			return
		}
		return dlit - CaseBit, 2, int(data[1])
	case dlit >= 'A' && dlit <= 'Z':
		if len(data) < 5 {
			return
		}
		bl := binary.LittleEndian.Uint32(data[1:5])
		if bl > MaxBodyLen {
			return '-', 0, 0
		}
		return dlit, 5, int(bl)
	default:
		return '-', 0, 0
	}
}

// AppendHeader picks the short header whenever the body fits.
func AppendHeader(into []byte, lit byte, bodylen int) []byte {
	biglit := lit &^ CaseBit
	if biglit < 'A' || biglit > 'Z' {
		panic("TLV record type is A..Z")
	}
	if bodylen > 0xff {
		if bodylen > MaxBodyLen {
			panic("oversized TLV record")
		}
		into = append(into, biglit)
		return binary.LittleEndian.AppendUint32(into, uint32(bodylen))
	}
	return append(into, biglit|CaseBit, byte(bodylen))
}

func totalLen(inputs [][]byte) (sum int) {
	for _, input := range inputs {
		sum += len(input)
	}
	return
}

// Append adds a complete record with the concatenated body parts.
func Append(into []byte, lit byte, body ...[]byte) []byte {
	into = AppendHeader(into, lit, totalLen(body))
	for _, b := range body {
		into = append(into, b...)
	}
	return into
}

// TakeWary takes one record of the given type off the front of untrusted data.
//
// Returns:
//   - body: record body, nil on error
//   - rest: data after the record, the original data if incomplete
//   - err: ErrIncomplete or ErrBadRecord
func TakeWary(lit byte, data []byte) (body, rest []byte, err error) {
	flit, hdrlen, bodylen := ProbeHeader(data)
	if flit == '-' {
		return nil, nil, ErrBadRecord
	}
	if flit == 0 || hdrlen+bodylen > len(data) {
		return nil, data, ErrIncomplete
	}
	if flit != lit&^CaseBit {
		return nil, nil, ErrBadRecord
	}
	return data[hdrlen : hdrlen+bodylen], data[hdrlen+bodylen:], nil
}

// TakeAnyWary is TakeWary for a record of any type.
func TakeAnyWary(data []byte) (lit byte, body, rest []byte, err error) {
	if len(data) == 0 {
		return 0, nil, nil, ErrIncomplete
	}
	lit = data[0] &^ CaseBit
	body, rest, err = TakeWary(lit, data)
	if err != nil {
		lit = 0
	}
	return
}

// Split cuts a buffer into whole records, header included.
func Split(data []byte) (recs Records, err error) {
	for len(data) > 0 {
		_, hlen, blen := ProbeHeader(data)
		if _, _, _, err = TakeAnyWary(data); err != nil {
			return recs, err
		}
		recs = append(recs, data[:hlen+blen])
		data = data[hlen+blen:]
	}
	return recs, nil
}
