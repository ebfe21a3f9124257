package runner

import (
	"fmt"
	"time"
)

// Config defines the runner's loop timing and concurrency limits
type Config struct {
	// Main loop iteration interval
	LoopInterval time.Duration `toml:"loop_interval"`

	// How often the index is rebuilt from the store even when nothing fired
	IndexRebuildInterval time.Duration `toml:"index_rebuild_interval"`

	// How far ahead of now fires are loaded into the index
	LookaheadWindow time.Duration `toml:"lookahead_window"`

	// Upper bound on handlers running at once
	MaxConcurrentFires int `toml:"max_concurrent_fires"`

	// Capacity of the handler results inbox
	ResultBufferSize int `toml:"result_buffer_size"`

	// How long a finished handler waits for inbox space before recording
	// its own result
	ResultSendTimeout time.Duration `toml:"result_send_timeout"`
}

// DefaultConfig returns the runner defaults
func DefaultConfig() Config {
	return Config{
		LoopInterval:         1 * time.Second,
		IndexRebuildInterval: 1 * time.Minute,
		LookaheadWindow:      10 * time.Minute,
		MaxConcurrentFires:   16,
		ResultBufferSize:     1024,
		ResultSendTimeout:    5 * time.Second,
	}
}

// Validate returns an error describing the first invalid setting
func (c Config) Validate() error {
	if c.LoopInterval <= 0 {
		return fmt.Errorf("LoopInterval must be positive, got %v", c.LoopInterval)
	}

	if c.IndexRebuildInterval <= 0 {
		return fmt.Errorf("IndexRebuildInterval must be positive, got %v", c.IndexRebuildInterval)
	}

	if c.LookaheadWindow <= 0 {
		return fmt.Errorf("LookaheadWindow must be positive, got %v", c.LookaheadWindow)
	}

	if c.IndexRebuildInterval >= c.LookaheadWindow {
		return fmt.Errorf("IndexRebuildInterval (%v) must be less than LookaheadWindow (%v)",
			c.IndexRebuildInterval, c.LookaheadWindow)
	}

	if c.MaxConcurrentFires <= 0 {
		return fmt.Errorf("MaxConcurrentFires must be positive, got %d", c.MaxConcurrentFires)
	}

	if c.ResultBufferSize <= 0 {
		return fmt.Errorf("ResultBufferSize must be positive, got %d", c.ResultBufferSize)
	}

	if c.ResultSendTimeout <= 0 {
		return fmt.Errorf("ResultSendTimeout must be positive, got %v", c.ResultSendTimeout)
	}

	return nil
}
