package crdtop

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/cespare/xxhash"
	"github.com/drpcorg/crdtop/hlc"
)

// CRDTOperation is a single mutation: who made it, when, and what it
// does. Operations are immutable and append-only; the state of any
// model is the result of replaying its operations in merge order, so an
// operation can be shipped over any transport to any node.
type CRDTOperation struct {
	Node      Id
	Timestamp hlc.Timestamp
	Typ       CRDTOperationType
}

// NewOperation does no validation: timestamp monotonicity and node
// attribution are up to the caller. A pointer payload is stored by
// value.
func NewOperation(node Id, timestamp hlc.Timestamp, typ CRDTOperationType) CRDTOperation {
	return CRDTOperation{
		Node:      node,
		Timestamp: timestamp,
		Typ:       payloadOf(typ),
	}
}

// Compare is the merge order: timestamp first, node id breaks ties.
// Every node sorts any set of operations identically.
func (op CRDTOperation) Compare(b CRDTOperation) int {
	if c := op.Timestamp.Compare(b.Timestamp); c != 0 {
		return c
	}
	return bytes.Compare(op.Node, b.Node)
}

func (op CRDTOperation) Less(b CRDTOperation) bool {
	return op.Compare(b) < 0
}

func Compare(a, b CRDTOperation) int {
	return a.Compare(b)
}

// Sort puts operations in merge order. Operations with equal
// (timestamp, node) keep their relative order.
func Sort(ops []CRDTOperation) {
	slices.SortStableFunc(ops, Compare)
}

// Equal compares the canonical encodings, so it covers the payload too.
func (op CRDTOperation) Equal(b CRDTOperation) bool {
	if op.Compare(b) != 0 {
		return false
	}
	x, errx := Encode(op)
	y, erry := Encode(b)
	return errx == nil && erry == nil && bytes.Equal(x, y)
}

// Fingerprint hashes the canonical encoding; replicas use it to
// recognise an operation they have already applied.
func Fingerprint(op CRDTOperation) (uint64, error) {
	data, err := Encode(op)
	if err != nil {
		return 0, err
	}
	return xxhash.Sum64(data), nil
}

func (op CRDTOperation) family() Family {
	if typ := payloadOf(op.Typ); typ != nil {
		return typ.Family()
	}
	return "none"
}

func (op CRDTOperation) String() string {
	return fmt.Sprintf("%s@%s %s", op.Node, op.Timestamp, op.family())
}
