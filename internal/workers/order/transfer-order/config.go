// internal/workers/order/transfer-order/config.go
package transferorder

import "time"

type Config struct {
	Timeout   time.Duration
	LockTTL   time.Duration
	ResultTTL time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout:   30 * time.Second,
		LockTTL:   15 * time.Second,
		ResultTTL: 24 * time.Hour,
	}
}
