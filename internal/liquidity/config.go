package liquidity

import "time"

const (
	defaultConfirmTimeout = 3 * time.Minute
	defaultDeadlineWindow = 1200 * time.Second
	defaultReadBackoff    = 500 * time.Millisecond
)

// Config bounds the waits and retries of a pipeline run.
type Config struct {
	// ConfirmTimeout caps every confirmation wait.
	ConfirmTimeout time.Duration
	// DeadlineWindow is added to the current time for the router deadline.
	DeadlineWindow time.Duration
	// ReadRetries applies to read-only calls only.
	ReadRetries int
	ReadBackoff time.Duration
	// PollAttempts and PollDelay override the profile when positive.
	PollAttempts int
	PollDelay    time.Duration
}

func (c Config) withDefaults() Config {
	if c.ConfirmTimeout <= 0 {
		c.ConfirmTimeout = defaultConfirmTimeout
	}
	if c.DeadlineWindow <= 0 {
		c.DeadlineWindow = defaultDeadlineWindow
	}
	if c.ReadRetries < 0 {
		c.ReadRetries = 0
	}
	if c.ReadBackoff <= 0 {
		c.ReadBackoff = defaultReadBackoff
	}
	return c
}
