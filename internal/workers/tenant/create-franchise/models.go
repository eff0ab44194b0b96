// internal/workers/tenant/create-franchise/models.go
package createfranchise

import (
	"time"

	"pos-workers/internal/models"
)

type Input struct {
	ActingUserID   string      `json:"actingUserId"`
	Name           string      `json:"name"`
	OwnerName      string      `json:"ownerName,omitempty"`
	ContactEmail   string      `json:"contactEmail,omitempty"`
	ContactPhone   string      `json:"contactPhone,omitempty"`
	Plan           models.Plan `json:"plan,omitempty"`
	CommissionRate float64     `json:"commissionRate"`
}

type Output struct {
	FranchiseID    string      `json:"franchiseId"`
	Name           string      `json:"name"`
	Plan           models.Plan `json:"plan"`
	CommissionRate float64     `json:"commissionRate"`
	Approved       bool        `json:"approved"`
	Active         bool        `json:"active"`
	CreatedAt      time.Time   `json:"createdAt"`
}
