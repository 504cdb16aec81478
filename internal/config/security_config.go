package config

import "time"

type SecurityConfig interface {
	GetMaxSessionAge() time.Duration
	GetResolveWait() time.Duration
	GetHandoffRedirectDelay() time.Duration
	GetEnableRateLimiting() bool
	GetAuthRateLimit() (requests int, window time.Duration)
}

type Security struct{}

var _ SecurityConfig = Security{}

// GetMaxSessionAge bounds the device cookie and the idle lifetime of a device's session store.
func (Security) GetMaxSessionAge() time.Duration {
	return 30 * 24 * time.Hour
}

// GetResolveWait is how long a request waits for rehydration before the loading page is served.
func (Security) GetResolveWait() time.Duration {
	return 1500 * time.Millisecond
}

func (Security) GetHandoffRedirectDelay() time.Duration {
	return 2 * time.Second
}

func (Security) GetEnableRateLimiting() bool {
	return true
}

func (Security) GetAuthRateLimit() (int, time.Duration) {
	return 10, time.Minute
}
