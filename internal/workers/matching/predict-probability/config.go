// internal/workers/matching/predict-probability/config.go
package predictprobability

import "time"

type Config struct {
	Timeout time.Duration

	// ProfileCacheTTL bounds staleness of the Redis student-profile read
	// cache.
	ProfileCacheTTL time.Duration

	// MinSamplesScholarship gates the scholarship-specific model fallback:
	// below this floor the global model serves instead.
	MinSamplesScholarship int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:               30 * time.Second,
		ProfileCacheTTL:       5 * time.Minute,
		MinSamplesScholarship: 20,
	}
}
