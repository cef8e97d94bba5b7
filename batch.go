package crdtop

import (
	"github.com/drpcorg/crdtop/crdtop_errors"
	"github.com/drpcorg/crdtop/protocol"
	"github.com/pkg/errors"
)

// BatchRecord is the TLV type of one encoded operation in a batch.
const BatchRecord = 'O'

// EncodeBatch frames encoded operations back to back, one 'O' record
// each, for export files and bulk transfer.
func EncodeBatch(ops []CRDTOperation) (batch []byte, err error) {
	for i, op := range ops {
		data, err := Encode(op)
		if err != nil {
			return nil, errors.Wrapf(err, "op %d", i)
		}
		batch = protocol.Append(batch, BatchRecord, data)
	}
	return batch, nil
}

// DecodeBatch is strict: one bad record fails the whole batch. The
// framing is checked before any record is decoded.
func DecodeBatch(batch []byte) (ops []CRDTOperation, err error) {
	recs, err := protocol.Split(batch)
	if err != nil {
		return nil, errors.Wrapf(crdtop_errors.ErrBadBatch, "record %d: %v", len(recs), err)
	}
	ops = make([]CRDTOperation, 0, len(recs))
	for i, rec := range recs {
		lit, body, _, err := protocol.TakeAnyWary(rec)
		if err != nil {
			return nil, errors.Wrapf(crdtop_errors.ErrBadBatch, "record %d: %v", i, err)
		}
		if lit != BatchRecord {
			return nil, errors.Wrapf(crdtop_errors.ErrBadBatch, "record %d: type %c", i, lit)
		}
		op, err := Decode(body)
		if err != nil {
			return nil, errors.Wrapf(err, "record %d", i)
		}
		ops = append(ops, op)
	}
	return ops, nil
}
