package tracking

import (
	"fmt"
	"time"

	"github.com/Codealike/Codealike-plugins-core/internal/core/constants"
)

// Config contains the timing configuration of a tracker
type Config struct {
	// Idle polling granularity; also the grace window of the recorder
	IdleCheckInterval time.Duration
	// Inactivity after which the open state is replaced by Idle
	IdleMaxPeriod time.Duration
	// Batch cadence
	FlushInterval time.Duration
	// Bound for the final flush performed when Run's context is cancelled
	ShutdownTimeout time.Duration
}

// Validate fills zero values with defaults and rejects negative durations
func (c *Config) Validate() error {
	if c.IdleCheckInterval == 0 {
		c.IdleCheckInterval = constants.IdleCheckInterval
	}
	if c.IdleMaxPeriod == 0 {
		c.IdleMaxPeriod = constants.IdleMaxPeriod
	}
	if c.FlushInterval == 0 {
		c.FlushInterval = constants.FlushInterval
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = constants.ShutdownFlushTimeout
	}

	if c.IdleCheckInterval < 0 || c.IdleMaxPeriod < 0 || c.FlushInterval < 0 || c.ShutdownTimeout < 0 {
		return fmt.Errorf("tracking intervals must be positive (idle check %v, idle max %v, flush %v)",
			c.IdleCheckInterval, c.IdleMaxPeriod, c.FlushInterval)
	}
	return nil
}
