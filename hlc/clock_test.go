package hlc

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/drpcorg/crdtop/crdtop_errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestHLC_NowMonotonic(t *testing.T) {
	wall := NewManualTime(epoch)
	clock := NewHLC(Options{Now: wall.Now})

	t1 := clock.Now()
	assert.Equal(t, New(uint64(epoch.UnixNano()), 0), t1)
	t2 := clock.Now()
	assert.Equal(t, New(t1.Physical, 1), t2)

	wall.Advance(time.Millisecond)
	t3 := clock.Now()
	assert.Equal(t, New(t1.Physical+uint64(time.Millisecond), 0), t3)

	// wall clock going backwards does not move the HLC back
	wall.Set(epoch.Add(-time.Hour))
	t4 := clock.Now()
	assert.True(t, t3.Less(t4))
	assert.Equal(t, t4, clock.Last())
}

func TestHLC_UpdatePastRemote(t *testing.T) {
	wall := NewManualTime(epoch)
	clock := NewHLC(Options{Now: wall.Now})
	local := clock.Now()

	remote := New(local.Physical+uint64(100*time.Millisecond), 7)
	seen, err := clock.Update(remote)
	require.NoError(t, err)
	assert.Equal(t, New(remote.Physical, 8), seen)
	assert.True(t, remote.Less(clock.Now()))

	// an old remote stamp still advances the counter
	old, err := clock.Update(local)
	require.NoError(t, err)
	assert.True(t, seen.Less(old))
}

func TestHLC_UpdateDrift(t *testing.T) {
	wall := NewManualTime(epoch)
	clock := NewHLC(Options{Now: wall.Now, MaxDelta: time.Second})
	_, err := clock.Update(FromTime(epoch.Add(time.Minute)))
	assert.ErrorIs(t, err, crdtop_errors.ErrClockDrift)
	assert.True(t, clock.Last().IsZero())

	free := NewHLC(Options{Now: wall.Now, MaxDelta: -1})
	ts, err := free.Update(FromTime(epoch.Add(time.Minute)))
	require.NoError(t, err)
	assert.Equal(t, uint32(1), ts.Logical)
}

func TestHLC_LogicalOverflow(t *testing.T) {
	ts := New(10, ^uint32(0))
	assert.Equal(t, New(11, 0), ts.next())
}

func TestHLC_ConcurrentWriters(t *testing.T) {
	wall := NewManualTime(epoch) // frozen wall time forces the logical path
	clock := NewHLC(Options{Now: wall.Now})
	const writers, each = 8, 500
	stamps := make([][]Timestamp, writers)
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < each; i++ {
				stamps[w] = append(stamps[w], clock.Now())
			}
		}(w)
	}
	wg.Wait()

	seen := make(map[Timestamp]bool)
	for _, list := range stamps {
		for i := 1; i < len(list); i++ {
			assert.True(t, list[i-1].Less(list[i]))
		}
		for _, ts := range list {
			assert.False(t, seen[ts], "duplicate %s", ts)
			seen[ts] = true
		}
	}
	assert.Equal(t, writers*each, len(seen))
}

func TestTimestamp_Text(t *testing.T) {
	ts := New(1709294400000000000, 42)
	assert.Equal(t, "1709294400000000000.42", ts.String())
	back, err := Parse(ts.String())
	require.NoError(t, err)
	assert.Equal(t, ts, back)

	back, err = Parse("0.0")
	require.NoError(t, err)
	assert.Equal(t, Zero, back)

	bad := []string{"nope", "5.3xyz", "5", ".3", "5.", "-1.0", "+1.0", "5.4294967296",
		"1.2.3", " 1.2", "9223372036854775808.0"}
	for _, in := range bad {
		_, err = Parse(in)
		assert.ErrorIs(t, err, crdtop_errors.ErrBadTimestamp, in)
	}
}

func TestTimestamp_JSON(t *testing.T) {
	ts := New(1709294400000000000, 3)
	data, err := ts.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `[1709294400000000000,3]`, string(data))

	var back Timestamp
	require.NoError(t, back.UnmarshalJSON(data))
	assert.Equal(t, ts, back)

	_, err = New(math.MaxInt64+1, 0).MarshalJSON()
	assert.ErrorIs(t, err, crdtop_errors.ErrBadTimestamp)
	edge := New(math.MaxInt64, math.MaxUint32)
	data, err = edge.MarshalJSON()
	require.NoError(t, err)
	require.NoError(t, back.UnmarshalJSON(data))
	assert.Equal(t, edge, back)

	bad := []string{`[1]`, `[1,2,3]`, `["1",2]`, `[-1,0]`, `[1,4294967296]`, `{}`, `[1.5,0]`}
	for _, in := range bad {
		assert.ErrorIs(t, back.UnmarshalJSON([]byte(in)), crdtop_errors.ErrBadTimestamp, in)
	}
}

func TestTimestamp_Order(t *testing.T) {
	assert.True(t, New(1, 5).Less(New(2, 0)))
	assert.True(t, New(2, 0).Less(New(2, 1)))
	assert.Equal(t, 0, New(3, 3).Compare(New(3, 3)))
	assert.Equal(t, epoch, FromTime(epoch).Time())
}
