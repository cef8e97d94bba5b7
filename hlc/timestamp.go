package hlc

import (
	"cmp"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/drpcorg/crdtop/crdtop_errors"
	"github.com/pkg/errors"
)

// Timestamp is a hybrid logical clock reading: wall time in
// nanoseconds since the Unix epoch plus a logical counter that breaks
// ties within one physical tick. Timestamps are totally ordered.
type Timestamp struct {
	Physical uint64
	Logical  uint32
}

var Zero Timestamp

func New(physical uint64, logical uint32) Timestamp {
	return Timestamp{Physical: physical, Logical: logical}
}

func FromTime(t time.Time) Timestamp {
	return Timestamp{Physical: uint64(t.UnixNano())}
}

func (ts Timestamp) Time() time.Time {
	return time.Unix(0, int64(ts.Physical)).UTC()
}

func (ts Timestamp) Compare(b Timestamp) int {
	if c := cmp.Compare(ts.Physical, b.Physical); c != 0 {
		return c
	}
	return cmp.Compare(ts.Logical, b.Logical)
}

func (ts Timestamp) Less(b Timestamp) bool {
	return ts.Compare(b) < 0
}

func (ts Timestamp) IsZero() bool {
	return ts == Zero
}

// next is the smallest timestamp greater than ts
func (ts Timestamp) next() Timestamp {
	if ts.Logical == ^uint32(0) {
		return Timestamp{Physical: ts.Physical + 1}
	}
	return Timestamp{Physical: ts.Physical, Logical: ts.Logical + 1}
}

// String is "physical.logical", both decimal.
func (ts Timestamp) String() string {
	var buf [32]byte
	b := strconv.AppendUint(buf[:0], ts.Physical, 10)
	b = append(b, '.')
	b = strconv.AppendUint(b, uint64(ts.Logical), 10)
	return string(b)
}

// Check reports timestamps the two-part wire form can not carry:
// the physical part is a signed 64-bit number there.
func (ts Timestamp) Check() error {
	if ts.Physical > math.MaxInt64 {
		return errors.Wrapf(crdtop_errors.ErrBadTimestamp, "physical %d out of range", ts.Physical)
	}
	return nil
}

// Parse reads the String form back. Both parts are plain decimal
// digits, nothing else is accepted.
func Parse(s string) (ts Timestamp, err error) {
	p, l, ok := strings.Cut(s, ".")
	if !ok || !digits(p) || !digits(l) {
		return Zero, errors.Wrapf(crdtop_errors.ErrBadTimestamp, "parse %q", s)
	}
	phy, err1 := strconv.ParseUint(p, 10, 64)
	log, err2 := strconv.ParseUint(l, 10, 32)
	if err1 != nil || err2 != nil {
		return Zero, errors.Wrapf(crdtop_errors.ErrBadTimestamp, "parse %q", s)
	}
	ts = Timestamp{Physical: phy, Logical: uint32(log)}
	if err = ts.Check(); err != nil {
		return Zero, err
	}
	return ts, nil
}

func digits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
