package clock

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestVirtualClock(t *testing.T, statePath string, multiplier int64) *VirtualClock {
	t.Helper()
	c, err := NewVirtualClock(VirtualClockConfig{
		Multiplier:    multiplier,
		StatePath:     statePath,
		FlushInterval: time.Hour,
	})
	if err != nil {
		t.Fatalf("unexpected error constructing virtual clock: %v", err)
	}
	return c
}

func TestNewVirtualClockRejectsInvalidConfig(t *testing.T) {
	if _, err := NewVirtualClock(VirtualClockConfig{Multiplier: 0, StatePath: "state"}); err == nil {
		t.Fatalf("expected error for zero multiplier")
	}
	if _, err := NewVirtualClock(VirtualClockConfig{Multiplier: 10, StatePath: "  "}); err == nil {
		t.Fatalf("expected error for blank state path")
	}
}

func TestVirtualClockAdvancesFasterThanWallClock(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "virtual_time")
	c := newTestVirtualClock(t, statePath, 3600)
	defer c.Close() //nolint:errcheck

	first := c.Now()
	time.Sleep(50 * time.Millisecond)
	second := c.Now()

	advance := second.Sub(first)
	if advance < 2*time.Minute {
		t.Fatalf("expected at least 2 virtual minutes to pass, got %v", advance)
	}
}

func TestVirtualClockNeverMovesBackward(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "virtual_time")
	c := newTestVirtualClock(t, statePath, 86400)
	defer c.Close() //nolint:errcheck

	var wg sync.WaitGroup
	results := make([][]time.Time, 4)
	for i := range results {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			samples := make([]time.Time, 0, 200)
			for j := 0; j < 200; j++ {
				samples = append(samples, c.Now())
			}
			results[slot] = samples
		}(i)
	}
	wg.Wait()

	for _, samples := range results {
		for i := 1; i < len(samples); i++ {
			if samples[i].Before(samples[i-1]) {
				t.Fatalf("virtual time moved backward: %v then %v", samples[i-1], samples[i])
			}
		}
	}
}

func TestVirtualClockResumesFromPersistedState(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "virtual_time")

	first := newTestVirtualClock(t, statePath, 86400)
	time.Sleep(20 * time.Millisecond)
	beforeClose := first.Now()
	if err := first.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}

	second := newTestVirtualClock(t, statePath, 86400)
	defer second.Close() //nolint:errcheck

	resumed := second.Now()
	if resumed.Before(beforeClose) {
		t.Fatalf("expected resumed virtual time %v to continue from %v", resumed, beforeClose)
	}
	if resumed.Sub(beforeClose) > time.Hour {
		t.Fatalf("expected continuity with persisted state, jumped by %v", resumed.Sub(beforeClose))
	}
}

func TestVirtualClockIgnoresCorruptState(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "virtual_time")
	if err := os.WriteFile(statePath, []byte("not-a-timestamp"), 0o644); err != nil {
		t.Fatalf("failed to seed corrupt state: %v", err)
	}

	c := newTestVirtualClock(t, statePath, 60)
	defer c.Close() //nolint:errcheck

	now := c.Now()
	if now.Before(time.Now().UTC().Add(-time.Minute)) {
		t.Fatalf("expected corrupt state to fall back to wall time, got %v", now)
	}
}

func TestVirtualClockCloseIsSingleUse(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "virtual_time")
	c := newTestVirtualClock(t, statePath, 60)
	if err := c.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if err := c.Close(); err == nil {
		t.Fatalf("expected error on second close")
	}
	if _, err := os.Stat(statePath); err != nil {
		t.Fatalf("expected state file to exist after close: %v", err)
	}
}
