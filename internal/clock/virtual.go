package clock

import (
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	errInvalidMultiplier    = errors.New("clock: multiplier must be positive")
	errMissingStatePath     = errors.New("clock: state path is required")
	errVirtualClockClosed   = errors.New("clock: virtual clock already closed")
	errEmptyStateFile       = errors.New("clock: state file is empty")
	defaultFlushInterval    = 30 * time.Second
	virtualTimestampLayout  = time.RFC3339Nano
	virtualStateFilePerm    = os.FileMode(0o644)
	noOpVirtualClockLogger  = zap.NewNop()
)

// VirtualClockConfig describes an accelerated clock.
type VirtualClockConfig struct {
	// Multiplier is how many virtual seconds pass per real second.
	Multiplier int64
	// StatePath is the file holding the persisted virtual timestamp.
	StatePath string
	// FlushInterval bounds how much virtual time a crash can lose.
	FlushInterval time.Duration
	Logger        *zap.Logger
}

// VirtualClock advances at a configurable multiple of wall-clock time.
// The current virtual time is recomputed from the wall-clock delta since
// construction, so periodic persistence gaps never accumulate drift. The
// persisted timestamp lets a restart resume where the previous process
// left off instead of resetting to wall time.
type VirtualClock struct {
	mu            sync.Mutex
	anchorReal    time.Time
	anchorVirtual time.Time
	multiplier    int64
	lastReturned  time.Time

	statePath string
	logger    *zap.Logger
	stop      chan struct{}
	done      chan struct{}
	closed    bool
}

// NewVirtualClock restores the persisted virtual timestamp (falling back
// to wall time when no state exists) and starts the periodic flush.
func NewVirtualClock(cfg VirtualClockConfig) (*VirtualClock, error) {
	if cfg.Multiplier <= 0 {
		return nil, errInvalidMultiplier
	}
	if strings.TrimSpace(cfg.StatePath) == "" {
		return nil, errMissingStatePath
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpVirtualClockLogger
	}
	flushInterval := cfg.FlushInterval
	if flushInterval <= 0 {
		flushInterval = defaultFlushInterval
	}

	wallNow := time.Now().UTC()
	anchorVirtual := wallNow
	if restored, err := loadVirtualTimestamp(cfg.StatePath); err == nil {
		anchorVirtual = restored
		logger.Info("virtual clock restored",
			zap.String("virtual_time", restored.Format(virtualTimestampLayout)))
	} else if !errors.Is(err, os.ErrNotExist) {
		logger.Warn("virtual clock state unreadable, starting from wall time", zap.Error(err))
	}

	c := &VirtualClock{
		anchorReal:    wallNow,
		anchorVirtual: anchorVirtual,
		multiplier:    cfg.Multiplier,
		lastReturned:  anchorVirtual,
		statePath:     cfg.StatePath,
		logger:        logger,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}

	go c.flushLoop(flushInterval)

	return c, nil
}

// Now returns the current virtual time. Values never move backward even
// under wall-clock adjustments.
func (c *VirtualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nowLocked()
}

func (c *VirtualClock) nowLocked() time.Time {
	elapsed := time.Since(c.anchorReal)
	virtual := c.anchorVirtual.Add(elapsed * time.Duration(c.multiplier))
	if virtual.Before(c.lastReturned) {
		return c.lastReturned
	}
	c.lastReturned = virtual
	return virtual
}

// Multiplier reports how many virtual seconds pass per real second.
func (c *VirtualClock) Multiplier() int64 {
	return c.multiplier
}

// Persist writes the current virtual timestamp to the state file.
func (c *VirtualClock) Persist() error {
	c.mu.Lock()
	current := c.nowLocked()
	c.mu.Unlock()

	payload := current.Format(virtualTimestampLayout) + "\n"
	if err := os.WriteFile(c.statePath, []byte(payload), virtualStateFilePerm); err != nil {
		return err
	}
	return nil
}

// Close stops the flush loop and persists the final virtual timestamp.
func (c *VirtualClock) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errVirtualClockClosed
	}
	c.closed = true
	c.mu.Unlock()

	close(c.stop)
	<-c.done
	return c.Persist()
}

func (c *VirtualClock) flushLoop(interval time.Duration) {
	defer close(c.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			if err := c.Persist(); err != nil {
				c.logger.Warn("virtual clock persist failed", zap.Error(err))
			}
		}
	}
}

func loadVirtualTimestamp(path string) (time.Time, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return time.Time{}, err
	}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return time.Time{}, errEmptyStateFile
	}
	parsed, err := time.Parse(virtualTimestampLayout, trimmed)
	if err != nil {
		return time.Time{}, err
	}
	return parsed.UTC(), nil
}
