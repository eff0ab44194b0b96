// internal/workers/order/settle-order/config.go
package settleorder

import "time"

type Config struct {
	Timeout    time.Duration
	SalesIndex string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:    30 * time.Second,
		SalesIndex: "pos-sales",
	}
}
