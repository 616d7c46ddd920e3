// ABOUTME: Tests for the adaptive speed controller
// ABOUTME: Covers the unity region, the catch-up curve, and the cap
package pipeline

import (
	"math"
	"testing"
)

func TestSpeedBelowThreshold(t *testing.T) {
	for _, depth := range []int{0, 1, 10, 19} {
		if got := Speed(depth, 20, 10, 2.0, 10); got != 1.0 {
			t.Errorf("Speed(depth=%d) = %v, want 1.0", depth, got)
		}
	}
}

func TestSpeedCatchupCurve(t *testing.T) {
	// 100-chunk window (10 chunks/s over 10 s), so a backlog of 50
	// demands 1.5x to clear the excess in the target time.
	got := Speed(50, 20, 10, 2.0, 10)
	if math.Abs(got-1.5) > 1e-9 {
		t.Errorf("Speed(depth=50) = %v, want 1.5", got)
	}

	got = Speed(20, 20, 10, 2.0, 10)
	if math.Abs(got-1.2) > 1e-9 {
		t.Errorf("Speed(depth=20) = %v, want 1.2", got)
	}
}

func TestSpeedMonotonic(t *testing.T) {
	prev := 0.0
	for depth := 20; depth <= 200; depth++ {
		got := Speed(depth, 20, 10, 2.0, 10)
		if got < prev {
			t.Fatalf("Speed(depth=%d) = %v, less than Speed(depth=%d) = %v", depth, got, depth-1, prev)
		}
		prev = got
	}
}

func TestSpeedCapped(t *testing.T) {
	// Depth 150 with a 100-chunk window wants 2.5x but is capped.
	if got := Speed(150, 20, 10, 2.0, 10); got != 2.0 {
		t.Errorf("Speed(depth=150) = %v, want capped at 2.0", got)
	}
}

func TestSpeedNeverBelowUnity(t *testing.T) {
	for depth := 0; depth <= 300; depth += 7 {
		if got := Speed(depth, 20, 10, 2.0, 10); got < 1.0 {
			t.Errorf("Speed(depth=%d) = %v, below unity", depth, got)
		}
	}
}
