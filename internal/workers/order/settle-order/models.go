// internal/workers/order/settle-order/models.go
package settleorder

import (
	"time"

	"pos-workers/internal/models"
)

type Input struct {
	OrderID       string               `json:"orderId"`
	ActingUserID  string               `json:"actingUserId"`
	PaymentMethod models.PaymentMethod `json:"paymentMethod"`
}

type Output struct {
	OrderID          string               `json:"orderId"`
	OrderNumber      string               `json:"orderNumber"`
	Status           models.OrderStatus   `json:"status"`
	OwnerQueue       models.OwnerQueue    `json:"ownerQueue"`
	PaymentMethod    models.PaymentMethod `json:"paymentMethod"`
	Total            float64              `json:"total"`
	SettledBy        string               `json:"settledBy,omitempty"`
	SettledAt        time.Time            `json:"settledAt"`
	AlreadySettled   bool                 `json:"alreadySettled"`
	ReleasedTableIDs []string             `json:"releasedTableIds"`
	FailedTableIDs   []string             `json:"failedTableIds"`
	Indexed          bool                 `json:"indexed"`
}

// SaleDocument is what gets indexed into the sales index for search-orders.
type SaleDocument struct {
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
