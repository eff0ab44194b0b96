// internal/models/franchise.go
package models

type Plan string

const (
	PlanBasic      Plan = "basic"
	PlanPremium    Plan = "premium"
	PlanEnterprise Plan = "enterprise"
)

func (p Plan) Valid() bool {
	return p == PlanBasic || p == PlanPremium || p == PlanEnterprise
}

type Franchise struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	OwnerName      string  `json:"ownerName"`
	ContactEmail   string  `json:"contactEmail"`
	ContactPhone   string  `json:"contactPhone"`
	Plan           Plan    `json:"plan"`
	CommissionRate float64 `json:"commissionRate"`
	Approved       bool    `json:"approved"`
	Active         bool    `json:"active"`
}

type Location struct {
	ID          string `json:"id"`
	FranchiseID string `json:"franchiseId"`
	Name        string `json:"name"`
	Code        string `json:"code"`
	Address     string `json:"address"`
	Phone       string `json:"phone"`
	Active      bool   `json:"active"`
}

type TableStatus string

const (
	TableAvailable TableStatus = "available"
	TableOccupied  TableStatus = "occupied"
)

type RestaurantTable struct {
	ID         string      `json:"id"`
	LocationID string      `json:"locationId"`
	Label      string      `json:"label"`
	Status     TableStatus `json:"status"`
	OrderID    string      `json:"orderId,omitempty"`
}
