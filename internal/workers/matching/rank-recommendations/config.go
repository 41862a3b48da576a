// internal/workers/matching/rank-recommendations/config.go
package rankrecommendations

import "time"

type Config struct {
	Timeout time.Duration

	// DefaultLimit caps the ranked list when the process does not pass a
	// limit variable.
	DefaultLimit int

	// MinSamplesScholarship gates the scholarship-specific model fallback.
	MinSamplesScholarship int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:               30 * time.Second,
		DefaultLimit:          10,
		MinSamplesScholarship: 20,
	}
}
