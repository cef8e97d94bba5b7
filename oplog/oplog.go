// Package oplog persists operations in a pebble database. Keys sort in
// merge order, so a plain iteration replays the log the way every
// other node replays it.
package oplog

import (
	"bytes"
	"context"
	"log/slog"
	"sync"

	"github.com/cespare/xxhash"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/drpcorg/crdtop"
	"github.com/drpcorg/crdtop/crdtop_errors"
	"github.com/drpcorg/crdtop/hlc"
	"github.com/drpcorg/crdtop/utils"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
)

type Options struct {
	// Fingerprints of this many recent appends are cached, so that
	// duplicates skip the database read.
	DedupCacheSize int
	// Sync every append to disk.
	Sync   bool
	FS     vfs.FS
	Logger utils.Logger
}

func (o *Options) SetDefaults() {
	if o.DedupCacheSize == 0 {
		o.DedupCacheSize = 1 << 14
	}
	if o.FS == nil {
		o.FS = vfs.Default
	}
	if o.Logger == nil {
		o.Logger = utils.NewDefaultLogger(slog.LevelWarn)
	}
}

type Log struct {
	db      *pebble.DB
	dir     string
	seen    *lru.Cache[string, uint64]
	lock    sync.Mutex
	opts    Options
	metrics *Metrics
}

var _ crdtop.Backend = (*Log)(nil)

// Open opens or creates the log in dir.
func Open(dir string, opts Options) (*Log, error) {
	opts.SetDefaults()
	seen, err := lru.New[string, uint64](opts.DedupCacheSize)
	if err != nil {
		return nil, err
	}
	db, err := pebble.Open(dir, &pebble.Options{FS: opts.FS})
	if err != nil {
		return nil, errors.Wrapf(err, "open oplog %s", dir)
	}
	opts.Logger.Debug("oplog open", "dir", dir)
	return &Log{
		db:      db,
		dir:     dir,
		seen:    seen,
		opts:    opts,
		metrics: NewMetrics(),
	}, nil
}

func (l *Log) writeOptions() *pebble.WriteOptions {
	if l.opts.Sync {
		return pebble.Sync
	}
	return pebble.NoSync
}

func (l *Log) Close() error {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.db == nil {
		return crdtop_errors.ErrClosed
	}
	err := l.db.Close()
	l.db = nil
	return err
}

// Append stores op unless an identical copy is stored already. A
// different operation under the same (timestamp, node) is refused.
func (l *Log) Append(ctx context.Context, op crdtop.CRDTOperation) (fresh bool, err error) {
	if err = ctx.Err(); err != nil {
		return false, err
	}
	data, err := crdtop.Encode(op)
	if err != nil {
		return false, err
	}
	key := crdtop.OpKey(op)
	fp := xxhash.Sum64(data)

	l.lock.Lock()
	defer l.lock.Unlock()
	if l.db == nil {
		return false, crdtop_errors.ErrClosed
	}
	if have, ok := l.seen.Get(string(key)); ok {
		return false, l.duplicate(ctx, op, have == fp)
	}
	stored, closer, err := l.db.Get(key)
	switch {
	case err == nil:
		same := bytes.Equal(stored, data)
		l.seen.Add(string(key), xxhash.Sum64(stored))
		_ = closer.Close()
		return false, l.duplicate(ctx, op, same)
	case errors.Is(err, pebble.ErrNotFound):
	default:
		return false, err
	}
	if err = l.db.Set(key, data, l.writeOptions()); err != nil {
		return false, err
	}
	l.seen.Add(string(key), fp)
	l.metrics.Appended.Inc()
	return true, nil
}

func (l *Log) duplicate(ctx context.Context, op crdtop.CRDTOperation, same bool) error {
	if same {
		l.metrics.Duplicates.Inc()
		return nil
	}
	l.metrics.Conflicts.Inc()
	l.opts.Logger.ErrorCtx(ctx, "conflicting operation", "op", op.String())
	return errors.Wrapf(crdtop_errors.ErrConflictingOperation, "%s", op)
}

// Get looks up the operation stamped ts by node.
func (l *Log) Get(ts hlc.Timestamp, node crdtop.Id) (op crdtop.CRDTOperation, found bool, err error) {
	l.lock.Lock()
	db := l.db
	l.lock.Unlock()
	if db == nil {
		return op, false, crdtop_errors.ErrClosed
	}
	data, closer, err := db.Get(crdtop.AppendOpKey(nil, ts, node))
	if errors.Is(err, pebble.ErrNotFound) {
		return op, false, nil
	} else if err != nil {
		return op, false, err
	}
	defer closer.Close()
	op, err = crdtop.Decode(data)
	return op, err == nil, err
}

func (l *Log) Scan(ctx context.Context, fn func(op crdtop.CRDTOperation) error) error {
	return l.ScanFrom(ctx, hlc.Zero, fn)
}

// ScanFrom visits operations stamped at or after from, in merge order.
// A record that fails to decode stops the scan with its error.
func (l *Log) ScanFrom(ctx context.Context, from hlc.Timestamp, fn func(op crdtop.CRDTOperation) error) error {
	l.lock.Lock()
	db := l.db
	l.lock.Unlock()
	if db == nil {
		return crdtop_errors.ErrClosed
	}
	it, err := db.NewIter(&pebble.IterOptions{
		LowerBound: crdtop.OpKeyFrom(from),
		UpperBound: []byte{crdtop.OpKeyPrefix + 1},
	})
	if err != nil {
		return err
	}
	defer it.Close()
	for it.First(); it.Valid(); it.Next() {
		if err = ctx.Err(); err != nil {
			return err
		}
		op, err := crdtop.Decode(it.Value())
		if err != nil {
			l.metrics.DecodeErrors.Inc()
			return errors.Wrapf(err, "key %x", it.Key())
		}
		if err = fn(op); err != nil {
			return err
		}
	}
	return it.Error()
}

func (l *Log) Metrics() *Metrics {
	return l.metrics
}

func (l *Log) Dir() string {
	return l.dir
}

// Collector exposes the pebble internals of this log. A closed log
// reports nothing.
func (l *Log) Collector() *PebbleCollector {
	return NewPebbleCollector(l.metricsSource)
}

func (l *Log) metricsSource() *pebble.Metrics {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.db == nil {
		return nil
	}
	return l.db.Metrics()
}
