// internal/workers/reporting/sales-report/models.go
package salesreport

import "time"

// Input dates are inclusive calendar days in UTC, formatted 2006-01-02.
type Input struct {
	ActingUserID string `json:"actingUserId"`
	FranchiseID  string `json:"franchiseId"`
	LocationID   string `json:"locationId,omitempty"`
	From         string `json:"from"`
	To           string `json:"to"`
	Refresh      bool   `json:"refresh,omitempty"`
}

type Output struct {
	FranchiseID     string          `json:"franchiseId"`
	LocationID      string          `json:"locationId,omitempty"`
	From            string          `json:"from"`
	To              string          `json:"to"`
	OrderCount      int64           `json:"orderCount"`
	Gross           float64         `json:"gross"`
	Tax             float64         `json:"tax"`
	Discount        float64         `json:"discount"`
	Net             float64         `json:"net"`
	ByLocation      []LocationTotal `json:"byLocation"`
	ByPaymentMethod []PaymentTotal  `json:"byPaymentMethod"`
	GeneratedAt     time.Time       `json:"generatedAt"`
	Cached          bool            `json:"cached"`
}

type LocationTotal struct {
	LocationID string  `json:"locationId"`
	OrderCount int64   `json:"orderCount"`
	Total      float64 `json:"total"`
}

type PaymentTotal struct {
	PaymentMethod string  `json:"paymentMethod"`
	OrderCount    int64   `json:"orderCount"`
	Total         float64 `json:"total"`
}
