package main

import (
	"testing"
	"time"
)

func TestRetryDelayDoublesWithCap(t *testing.T) {
	shortSession := 2 * time.Second

	var got []time.Duration
	delay := time.Duration(0)
	for i := 0; i < 7; i++ {
		delay = retryDelay(delay, shortSession)
		got = append(got, delay)
	}

	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		30 * time.Second,
		30 * time.Second,
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("delay %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestRetryDelayResetsAfterHealthySession(t *testing.T) {
	// Climb the schedule first.
	delay := time.Duration(0)
	for i := 0; i < 6; i++ {
		delay = retryDelay(delay, time.Second)
	}
	if delay != maxBackoff {
		t.Fatalf("delay = %s, want %s", delay, maxBackoff)
	}

	// A long-lived session drops: the next retry starts over.
	delay = retryDelay(delay, 5*time.Minute)
	if delay != initialBackoff {
		t.Fatalf("delay after healthy session = %s, want %s", delay, initialBackoff)
	}

	// And keeps doubling from there if drops continue.
	if next := retryDelay(delay, time.Second); next != 2*time.Second {
		t.Fatalf("delay = %s, want 2s", next)
	}
}

func TestRetryDelayBoundaries(t *testing.T) {
	if d := retryDelay(4*time.Second, sessionHealthyAfter); d != initialBackoff {
		t.Errorf("session at threshold: delay = %s, want %s", d, initialBackoff)
	}
	if d := retryDelay(4*time.Second, sessionHealthyAfter-time.Millisecond); d != 8*time.Second {
		t.Errorf("session under threshold: delay = %s, want 8s", d)
	}
}
