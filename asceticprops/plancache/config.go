package plancache

import "time"

type Config struct {
	// MaxEntries caps the number of plans; the least recently used plan is
	// evicted first. Zero or less means no cap.
	MaxEntries int
	// SlidingExpiration drops a plan not read for this long.
	SlidingExpiration time.Duration
	// AbsoluteExpiration drops a plan this long after it was stored.
	AbsoluteExpiration time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxEntries:         10000,
		SlidingExpiration:  30 * time.Minute,
		AbsoluteExpiration: 2 * time.Hour,
	}
}
