// internal/workers/tenant/create-location/config.go
package createlocation

import "time"

type Config struct {
	Timeout       time.Duration
	MaxTableCount int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:       30 * time.Second,
		MaxTableCount: 200,
	}
}
