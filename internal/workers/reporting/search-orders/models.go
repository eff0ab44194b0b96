// internal/workers/reporting/search-orders/models.go
package searchorders

import "time"

type Input struct {
	ActingUserID      string `json:"actingUserId"`
	FranchiseID       string `json:"franchiseId"`
	LocationID        string `json:"locationId,omitempty"`
	OrderNumberPrefix string `json:"orderNumberPrefix,omitempty"`
	CustomerPhone     string `json:"customerPhone,omitempty"`
	PaymentMethod     string `json:"paymentMethod,omitempty"`
	From              int    `json:"from,omitempty"`
	Size              int    `json:"size,omitempty"`
}

type Output struct {
	Total  int64      `json:"total"`
	From   int        `json:"from"`
	Size   int        `json:"size"`
	Orders []OrderHit `json:"orders"`
}

// OrderHit mirrors the document settle-order writes to the sales index.
type OrderHit struct {
	OrderID       string    `json:"orderId"`
	OrderNumber   string    `json:"orderNumber"`
	BillNumber    string    `json:"billNumber,omitempty"`
	FranchiseID   string    `json:"franchiseId"`
	LocationID    string    `json:"locationId"`
	CustomerPhone string    `json:"customerPhone,omitempty"`
	PaymentMethod string    `json:"paymentMethod"`
	ItemCount     int       `json:"itemCount"`
	Subtotal      float64   `json:"subtotal"`
	Tax           float64   `json:"tax"`
	Discount      float64   `json:"discount"`
	Total         float64   `json:"total"`
	SettledBy     string    `json:"settledBy"`
	SettledAt     time.Time `json:"settledAt"`
}
