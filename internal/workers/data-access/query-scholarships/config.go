// internal/workers/data-access/query-scholarships/config.go
package queryscholarships

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}
