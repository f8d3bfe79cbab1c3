package ticks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestElapsed(t *testing.T) {
	testCases := []struct {
		name   string
		now    Millis
		ref    Millis
		expect Millis
	}{
		{"same", 100, 100, 0},
		{"forward", 1500, 1000, 500},
		{"across wrap", 10, 0xfffffff6, 20},
		{"just wrapped", 0, 0xffffffff, 1},
		{"max age", 0xfffffffe, 0xffffffff, 0xffffffff},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expect, Elapsed(tc.now, tc.ref))
			require.Equal(t, tc.expect, tc.now.Since(tc.ref))
		})
	}
}

func TestExpired(t *testing.T) {
	require.False(t, Expired(1100, 1000, 100))
	require.True(t, Expired(1101, 1000, 100))
	// a naive now > ref+timeout check would say "not expired" here.
	require.True(t, Expired(50, 0xffffffc0, 100))
	require.False(t, Expired(30, 0xffffffc0, 100))
}

func TestConversions(t *testing.T) {
	require.Equal(t, 1500*time.Millisecond, Millis(1500).Duration())
	require.Equal(t, Millis(2000), FromDuration(2*time.Second))
	require.Equal(t, Millis(0), FromDuration(-time.Second))
	require.Equal(t, Millis(0xffffffff), FromDuration(100*24*time.Hour))
}

func TestManualClock(t *testing.T) {
	c := NewManualClock(0xfffffff0)
	require.Equal(t, Millis(0xfffffff0), c.Millis())
	require.Equal(t, Millis(0x10), c.Advance(0x20))
	require.Equal(t, Millis(0x20), Elapsed(c.Millis(), 0xfffffff0))
	c.Set(7)
	require.Equal(t, Millis(7), c.Millis())
}

func TestSystemClockWraps(t *testing.T) {
	c := NewSystemClockAt(0xffffffff)
	start := Millis(0xffffffff)
	time.Sleep(5 * time.Millisecond)
	age := Elapsed(c.Millis(), start)
	require.True(t, age >= 5 && age < 1000, "age %d", age)
}
