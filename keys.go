package crdtop

import (
	"encoding/binary"

	"github.com/drpcorg/crdtop/crdtop_errors"
	"github.com/drpcorg/crdtop/hlc"
)

// OpKeyPrefix starts every operation key.
const OpKeyPrefix = 'O'

const opKeyTsLen = 1 + 8 + 4

// OpKey is the storage key of an operation: 'O', big-endian physical
// time and counter, then the node id. Byte order of keys is exactly the
// merge order of operations.
func OpKey(op CRDTOperation) []byte {
	return AppendOpKey(make([]byte, 0, opKeyTsLen+len(op.Node)), op.Timestamp, op.Node)
}

func AppendOpKey(into []byte, ts hlc.Timestamp, node Id) []byte {
	into = append(into, OpKeyPrefix)
	into = binary.BigEndian.AppendUint64(into, ts.Physical)
	into = binary.BigEndian.AppendUint32(into, ts.Logical)
	return append(into, node...)
}

// OpKeyFrom is the smallest key with a timestamp of at least ts.
func OpKeyFrom(ts hlc.Timestamp) []byte {
	return AppendOpKey(make([]byte, 0, opKeyTsLen), ts, nil)
}

func ParseOpKey(key []byte) (ts hlc.Timestamp, node Id, err error) {
	if len(key) < opKeyTsLen || key[0] != OpKeyPrefix {
		return ts, nil, crdtop_errors.ErrBadOperation
	}
	ts.Physical = binary.BigEndian.Uint64(key[1:9])
	ts.Logical = binary.BigEndian.Uint32(key[9:13])
	return ts, Id(key[opKeyTsLen:]).Clone(), nil
}
