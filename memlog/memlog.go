// Package memlog is an in-memory operation log, for tests and
// short-lived replicas.
package memlog

import (
	"bytes"
	"context"
	"slices"
	"strings"

	"github.com/drpcorg/crdtop"
	"github.com/drpcorg/crdtop/crdtop_errors"
	"github.com/pkg/errors"
	"github.com/puzpuzpuz/xsync/v3"
)

type entry struct {
	key  string
	data []byte
	op   crdtop.CRDTOperation
}

// Log keeps operations keyed by (timestamp, node). Safe for concurrent use.
type Log struct {
	ops *xsync.MapOf[string, *entry]
}

var _ crdtop.Backend = (*Log)(nil)

func New() *Log {
	return &Log{ops: xsync.NewMapOf[string, *entry]()}
}

func (l *Log) Append(ctx context.Context, op crdtop.CRDTOperation) (fresh bool, err error) {
	if err = ctx.Err(); err != nil {
		return false, err
	}
	data, err := crdtop.Encode(op)
	if err != nil {
		return false, err
	}
	e := &entry{key: string(crdtop.OpKey(op)), data: data, op: op}
	have, loaded := l.ops.LoadOrStore(e.key, e)
	if !loaded {
		return true, nil
	}
	if !bytes.Equal(have.data, data) {
		return false, errors.Wrapf(crdtop_errors.ErrConflictingOperation, "%s", op)
	}
	return false, nil
}

func (l *Log) Scan(ctx context.Context, fn func(op crdtop.CRDTOperation) error) error {
	for _, e := range l.sorted() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(e.op); err != nil {
			return err
		}
	}
	return nil
}

// Operations returns a snapshot of the log in merge order.
func (l *Log) Operations() []crdtop.CRDTOperation {
	entries := l.sorted()
	ops := make([]crdtop.CRDTOperation, 0, len(entries))
	for _, e := range entries {
		ops = append(ops, e.op)
	}
	return ops
}

func (l *Log) Len() int {
	return l.ops.Size()
}

func (l *Log) sorted() []*entry {
	entries := make([]*entry, 0, l.ops.Size())
	l.ops.Range(func(_ string, e *entry) bool {
		entries = append(entries, e)
		return true
	})
	slices.SortFunc(entries, func(a, b *entry) int { return strings.Compare(a.key, b.key) })
	return entries
}
