package crdtop

import (
	"context"
	"log/slog"

	"github.com/drpcorg/crdtop/hlc"
	"github.com/drpcorg/crdtop/utils"
)

type ReplicaOptions struct {
	Logger utils.Logger
	// Merger receives every fresh operation, local or remote. Optional.
	Merger Merger
}

func (o *ReplicaOptions) SetDefaults() {
	if o.Logger == nil {
		o.Logger = utils.NewDefaultLogger(slog.LevelWarn)
	}
}

// Replica is the write path of one node: it stamps local mutations
// with the node id and clock, appends them to the store, and takes in
// operations from other nodes.
type Replica[B Backend] struct {
	node  Id
	clock hlc.Clock
	store *CRDTStore[B]
	opts  ReplicaOptions
}

// NewReplica takes the clock as a dependency; share one clock between
// all replicas of the same node.
func NewReplica[B Backend](node Id, clock hlc.Clock, store *CRDTStore[B], opts ReplicaOptions) *Replica[B] {
	opts.SetDefaults()
	return &Replica[B]{
		node:  node.Clone(),
		clock: clock,
		store: store,
		opts:  opts,
	}
}

func (r *Replica[B]) Node() Id {
	return r.node
}

func (r *Replica[B]) Store() *CRDTStore[B] {
	return r.store
}

func (r *Replica[B]) Logger() utils.Logger {
	return r.opts.Logger
}

// Commit records a local mutation and returns the stamped operation.
func (r *Replica[B]) Commit(ctx context.Context, typ CRDTOperationType) (op CRDTOperation, err error) {
	op = NewOperation(r.node, r.clock.Now(), typ)
	ctx = withOperation(ctx, op)
	fresh, err := r.store.Database.Append(ctx, op)
	if err != nil {
		r.opts.Logger.ErrorCtx(ctx, "append failed", "err", err)
		return op, err
	}
	if fresh {
		err = r.merge(ctx, op)
	}
	return op, err
}

// Receive takes an operation from another node. The local clock moves
// past its timestamp first, so later local operations order after it.
// Already stored operations are skipped.
func (r *Replica[B]) Receive(ctx context.Context, op CRDTOperation) error {
	ctx = withOperation(ctx, op)
	if _, err := r.clock.Update(op.Timestamp); err != nil {
		r.opts.Logger.WarnCtx(ctx, "remote clock rejected", "err", err)
		return err
	}
	fresh, err := r.store.Database.Append(ctx, op)
	if err != nil {
		r.opts.Logger.ErrorCtx(ctx, "append failed", "err", err)
		return err
	}
	if !fresh {
		r.opts.Logger.DebugCtx(ctx, "duplicate operation")
		return nil
	}
	return r.merge(ctx, op)
}

// ReceiveBytes decodes and receives one encoded operation. Decode
// errors are returned to the caller.
func (r *Replica[B]) ReceiveBytes(ctx context.Context, data []byte) (CRDTOperation, error) {
	op, err := Decode(data)
	if err != nil {
		r.opts.Logger.WarnCtx(ctx, "undecodable operation", "len", len(data), "err", err)
		return op, err
	}
	return op, r.Receive(ctx, op)
}

// Replay feeds the whole stored log to the merger in merge order.
func (r *Replica[B]) Replay(ctx context.Context) error {
	if r.opts.Merger == nil {
		return nil
	}
	return r.store.Database.Scan(ctx, func(op CRDTOperation) error {
		return Dispatch(withOperation(ctx, op), r.opts.Merger, op)
	})
}

// withOperation tags log records, and the merger's context, with op.
func withOperation(ctx context.Context, op CRDTOperation) context.Context {
	return utils.WithOperation(ctx, op.Node.String(), op.Timestamp.String(), string(op.family()))
}

func (r *Replica[B]) merge(ctx context.Context, op CRDTOperation) error {
	if r.opts.Merger == nil {
		return nil
	}
	if err := Dispatch(ctx, r.opts.Merger, op); err != nil {
		r.opts.Logger.ErrorCtx(ctx, "merge failed", "err", err)
		return err
	}
	return nil
}
