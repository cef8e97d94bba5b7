package crdtop

import (
	"context"

	"github.com/drpcorg/crdtop/crdtop_errors"
	"github.com/drpcorg/crdtop/utils"
	"github.com/pkg/errors"
)

// Merger applies decoded operations to model state, one method per
// family. Implementations must be idempotent and must reach the same
// state for any order of concurrent operations.
type Merger interface {
	MergeShared(ctx context.Context, op CRDTOperation, shared SharedOperation) error
	MergeRelation(ctx context.Context, op CRDTOperation, relation RelationOperation) error
	MergeOwned(ctx context.Context, op CRDTOperation, owned OwnedOperation) error
}

// Dispatch hands op to the merger method of its family. Pointer
// payloads are dispatched by value.
func Dispatch(ctx context.Context, m Merger, op CRDTOperation) error {
	switch typ := payloadOf(op.Typ).(type) {
	case SharedOperation:
		return m.MergeShared(ctx, op, typ)
	case RelationOperation:
		return m.MergeRelation(ctx, op, typ)
	case OwnedOperation:
		return m.MergeOwned(ctx, op, typ)
	}
	return errors.Wrapf(crdtop_errors.ErrBadOperation, "no operation type in %s", op)
}

type cursor struct {
	log []CRDTOperation
	pos int
}

func (c *cursor) head() CRDTOperation {
	return c.log[c.pos]
}

// MergeOrdered merges logs that are each already in merge order into
// one log in merge order. Copies of the same operation collapse into
// one; two different operations sharing (timestamp, node) are an error.
func MergeOrdered(logs ...[]CRDTOperation) (merged []CRDTOperation, err error) {
	heap := utils.NewHeap(func(a, b *cursor) int { return a.head().Compare(b.head()) })
	total := 0
	for _, log := range logs {
		if len(log) > 0 {
			heap.Push(&cursor{log: log})
			total += len(log)
		}
	}
	merged = make([]CRDTOperation, 0, total)
	for heap.Len() > 0 {
		c := heap.Peek()
		op := c.head()
		if n := len(merged); n > 0 && merged[n-1].Compare(op) == 0 {
			if !merged[n-1].Equal(op) {
				return nil, errors.Wrapf(crdtop_errors.ErrConflictingOperation, "%s", op)
			}
		} else if n > 0 && merged[n-1].Compare(op) > 0 {
			return nil, errors.Errorf("log out of order at %s", op)
		} else {
			merged = append(merged, op)
		}
		c.pos++
		if c.pos == len(c.log) {
			heap.Pop()
		} else {
			heap.Fix(0)
		}
	}
	return merged, nil
}
