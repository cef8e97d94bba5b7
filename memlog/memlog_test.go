package memlog

import (
	"context"
	"sync"
	"testing"

	"github.com/drpcorg/crdtop"
	"github.com/drpcorg/crdtop/crdtop_errors"
	"github.com/drpcorg/crdtop/hlc"
	"github.com/drpcorg/crdtop/rdx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ownedOp(node string, ts hlc.Timestamp, n int64) crdtop.CRDTOperation {
	return crdtop.NewOperation(crdtop.Id(node), ts, crdtop.Owned("counter", []crdtop.OwnedOperationItem{
		crdtop.OwnedUpdate(rdx.Str(node), map[string]rdx.Value{"n": rdx.Int(n)}),
	}))
}

func TestLog_Order(t *testing.T) {
	ctx := context.Background()
	log := New()
	for _, op := range []crdtop.CRDTOperation{
		ownedOp("b", hlc.New(5, 0), 1),
		ownedOp("a", hlc.New(5, 0), 2),
		ownedOp("c", hlc.New(4, 9), 3),
	} {
		fresh, err := log.Append(ctx, op)
		require.NoError(t, err)
		assert.True(t, fresh)
	}
	var nodes []string
	require.NoError(t, log.Scan(ctx, func(op crdtop.CRDTOperation) error {
		nodes = append(nodes, string(op.Node))
		return nil
	}))
	assert.Equal(t, []string{"c", "a", "b"}, nodes)
	assert.Equal(t, 3, log.Len())
	assert.Len(t, log.Operations(), 3)
}

func TestLog_Duplicates(t *testing.T) {
	ctx := context.Background()
	log := New()
	op := ownedOp("a", hlc.New(1, 0), 1)
	_, err := log.Append(ctx, op)
	require.NoError(t, err)

	fresh, err := log.Append(ctx, op)
	require.NoError(t, err)
	assert.False(t, fresh)

	_, err = log.Append(ctx, ownedOp("a", hlc.New(1, 0), 2))
	assert.ErrorIs(t, err, crdtop_errors.ErrConflictingOperation)
	assert.Equal(t, 1, log.Len())
}

func TestLog_ConcurrentAppend(t *testing.T) {
	ctx := context.Background()
	log := New()
	var wg sync.WaitGroup
	var lock sync.Mutex
	freshCount := 0
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				fresh, err := log.Append(ctx, ownedOp("a", hlc.New(uint64(i), 0), int64(i)))
				assert.NoError(t, err)
				if fresh {
					lock.Lock()
					freshCount++
					lock.Unlock()
				}
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, freshCount)
	assert.Equal(t, 100, log.Len())
}

func TestLog_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Append(ctx, ownedOp("a", hlc.New(1, 0), 1))
	assert.ErrorIs(t, err, context.Canceled)
}
