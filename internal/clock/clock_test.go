package clock

import (
	"testing"
	"time"
)

func TestSinceNonNegative(t *testing.T) {
	c := New()
	start := c.Now()
	time.Sleep(2 * time.Millisecond)
	d := c.Since(start)
	if d <= 0 {
		t.Fatalf("expected positive duration, got %v", d)
	}
}

func TestMeasure(t *testing.T) {
	c := New()
	d := c.Measure(func() {
		time.Sleep(time.Millisecond)
	})
	if d < time.Millisecond {
		t.Fatalf("expected measured duration >= 1ms, got %v", d)
	}
}

func TestSubClampsNonNegative(t *testing.T) {
	c := New()
	later := c.Now()
	earlier := c.Now()
	// later was taken before earlier here, so later.Sub(earlier)
	// exercises the reversed case.
	if d := later.Sub(earlier); d < 0 {
		t.Fatalf("Sub must never return a negative duration, got %v", d)
	}
}

func TestZeroTimestamp(t *testing.T) {
	var ts Timestamp
	if !ts.IsZero() {
		t.Fatalf("zero value Timestamp should report IsZero")
	}
}
