package hlc

import (
	"math"
	"sync"
	"time"

	"github.com/drpcorg/crdtop/crdtop_errors"
	"github.com/drpcorg/crdtop/rdx"
	"github.com/pkg/errors"
)

// Clock is the timestamp source of a node. Now is strictly monotonic;
// Update advances the clock past a timestamp seen on a remote operation,
// so anything stamped afterwards compares greater.
type Clock interface {
	Now() Timestamp
	Update(remote Timestamp) (Timestamp, error)
}

// PhysicalTime reads the wall clock.
type PhysicalTime func() time.Time

type Options struct {
	// Remote timestamps further ahead of local wall time are refused.
	// Negative disables the check.
	MaxDelta time.Duration
	Now      PhysicalTime
}

func (o *Options) SetDefaults() {
	if o.MaxDelta == 0 {
		o.MaxDelta = 500 * time.Millisecond
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// HLC is a hybrid logical clock safe for concurrent use. Share one
// instance between all writers of a node.
type HLC struct {
	lock sync.Mutex
	last Timestamp
	opts Options
}

func NewHLC(opts Options) *HLC {
	opts.SetDefaults()
	return &HLC{opts: opts}
}

func (c *HLC) physical() uint64 {
	ns := c.opts.Now().UnixNano()
	if ns < 0 {
		return 0
	}
	return uint64(ns)
}

func (c *HLC) Now() Timestamp {
	phy := c.physical()
	c.lock.Lock()
	defer c.lock.Unlock()
	if phy > c.last.Physical {
		c.last = Timestamp{Physical: phy}
	} else {
		c.last = c.last.next()
	}
	return c.last
}

func (c *HLC) Update(remote Timestamp) (Timestamp, error) {
	phy := c.physical()
	if c.opts.MaxDelta >= 0 && remote.Physical > phy &&
		remote.Physical-phy > uint64(c.opts.MaxDelta) {
		return Zero, errors.Wrapf(crdtop_errors.ErrClockDrift,
			"remote %s is %s ahead", remote, time.Duration(min(remote.Physical-phy, math.MaxInt64)))
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	latest := c.last
	if remote.Compare(latest) > 0 {
		latest = remote
	}
	if phy > latest.Physical {
		c.last = Timestamp{Physical: phy}
	} else {
		c.last = latest.next()
	}
	return c.last, nil
}

// Last is the most recent timestamp issued, Zero if none.
func (c *HLC) Last() Timestamp {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.last
}

// ManualTime is a settable physical time source for tests.
type ManualTime struct {
	lock sync.Mutex
	now  time.Time
}

func NewManualTime(start time.Time) *ManualTime {
	return &ManualTime{now: start}
}

func (m *ManualTime) Now() time.Time {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.now
}

func (m *ManualTime) Set(t time.Time) {
	m.lock.Lock()
	m.now = t
	m.lock.Unlock()
}

func (m *ManualTime) Advance(d time.Duration) {
	m.lock.Lock()
	m.now = m.now.Add(d)
	m.lock.Unlock()
}

// RdxValue is the two-part native form: [physical, logical]
func (ts Timestamp) RdxValue() rdx.Value {
	return rdx.Array(rdx.Int(int64(ts.Physical)), rdx.Int(int64(ts.Logical)))
}

func FromValue(v rdx.Value) (Timestamp, error) {
	items := v.Items()
	if v.Type() != rdx.Linear || len(items) != 2 {
		return Zero, crdtop_errors.ErrBadTimestamp
	}
	phy, ok1 := items[0].Int64()
	log, ok2 := items[1].Int64()
	if !ok1 || !ok2 || phy < 0 || log < 0 || log > math.MaxUint32 {
		return Zero, crdtop_errors.ErrBadTimestamp
	}
	return Timestamp{Physical: uint64(phy), Logical: uint32(log)}, nil
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if err := ts.Check(); err != nil {
		return nil, err
	}
	return ts.RdxValue().MarshalJSON()
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	v, err := rdx.ParseJSON(data)
	if err != nil {
		return errors.Wrap(crdtop_errors.ErrBadTimestamp, err.Error())
	}
	*ts, err = FromValue(v)
	return err
}
