// internal/workers/training/train-model/config.go
package trainmodel

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		// Synchronous training over the full sample log.
		Timeout: 5 * time.Minute,
	}
}
