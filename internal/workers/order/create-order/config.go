// internal/workers/order/create-order/config.go
package createorder

import "time"

type Config struct {
	Timeout time.Duration
	// TaxRate is a percentage applied to the subtotal.
	TaxRate float64
	// NumberPrefix is used when the location has no code.
	NumberPrefix string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:      30 * time.Second,
		TaxRate:      5,
		NumberPrefix: "ORD",
	}
}
