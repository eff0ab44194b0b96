// internal/workers/reporting/search-orders/config.go
package searchorders

import "time"

type Config struct {
	Timeout         time.Duration
	SalesIndex      string
	DefaultPageSize int
	MaxPageSize     int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:         10 * time.Second,
		SalesIndex:      "pos-sales",
		DefaultPageSize: 20,
		MaxPageSize:     100,
	}
}
