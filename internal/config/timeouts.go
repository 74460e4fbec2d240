package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds the wait-loop ceilings and retry settings.
// Each value can be overridden through the environment.
type Timeouts struct {
	GatewayWaitAttempts int           // Polls while waiting for a gateway to become active
	GatewayWaitInterval time.Duration // Delay between gateway polls
	DrainAttempts       int           // Delete/re-list rounds when draining child resources
	DrainInterval       time.Duration // Delay between drain rounds
	Delete              time.Duration // Budget for each teardown step
	RetryMaxAttempts    int           // Adapter-level API retries
	RetryInitialDelay   time.Duration // Initial backoff for adapter-level retries
}

// LoadTimeouts loads timeout configuration from environment variables.
// Unset or unparsable values fall back to the defaults.
//
// Environment Variables:
//   - WSCTL_GATEWAY_WAIT_ATTEMPTS (default: 6)
//   - WSCTL_GATEWAY_WAIT_INTERVAL (default: 1s)
//   - WSCTL_DRAIN_ATTEMPTS (default: 30)
//   - WSCTL_DRAIN_INTERVAL (default: 1s)
//   - WSCTL_TIMEOUT_DELETE (default: 5m)
//   - WSCTL_RETRY_MAX_ATTEMPTS (default: 5)
//   - WSCTL_RETRY_INITIAL_DELAY (default: 1s)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		GatewayWaitAttempts: parseInt("WSCTL_GATEWAY_WAIT_ATTEMPTS", 6),
		GatewayWaitInterval: parseDuration("WSCTL_GATEWAY_WAIT_INTERVAL", 1*time.Second),
		DrainAttempts:       parseInt("WSCTL_DRAIN_ATTEMPTS", 30),
		DrainInterval:       parseDuration("WSCTL_DRAIN_INTERVAL", 1*time.Second),
		Delete:              parseDuration("WSCTL_TIMEOUT_DELETE", 5*time.Minute),
		RetryMaxAttempts:    parseInt("WSCTL_RETRY_MAX_ATTEMPTS", 5),
		RetryInitialDelay:   parseDuration("WSCTL_RETRY_INITIAL_DELAY", 1*time.Second),
	}
}

// TestTimeouts returns timeouts suitable for tests: few attempts, no real sleeping.
func TestTimeouts() *Timeouts {
	return &Timeouts{
		GatewayWaitAttempts: 6,
		GatewayWaitInterval: time.Millisecond,
		DrainAttempts:       5,
		DrainInterval:       time.Millisecond,
		Delete:              10 * time.Second,
		RetryMaxAttempts:    1,
		RetryInitialDelay:   time.Millisecond,
	}
}

func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil || d < 0 {
		return defaultVal
	}

	return d
}

func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}

	return i
}
