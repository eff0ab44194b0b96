// internal/workers/reporting/sales-report/config.go
package salesreport

import "time"

type Config struct {
	Timeout      time.Duration
	CacheTTL     time.Duration
	MaxRangeDays int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:      60 * time.Second,
		CacheTTL:     5 * time.Minute,
		MaxRangeDays: 366,
	}
}
