// internal/workers/order/transfer-order/models.go
package transferorder

import (
	"time"

	"pos-workers/internal/models"
)

type Input struct {
	OrderID      string           `json:"orderId"`
	ActingUserID string           `json:"actingUserId"`
	Note         string           `json:"note,omitempty"`
	Customer     *models.Customer `json:"customer,omitempty"`
}

type Output struct {
	OrderID            string             `json:"orderId"`
	OrderNumber        string             `json:"orderNumber"`
	LocationID         string             `json:"locationId"`
	Status             models.OrderStatus `json:"status"`
	OwnerQueue         models.OwnerQueue  `json:"ownerQueue"`
	TransferredBy      string             `json:"transferredBy"`
	TransferredAt      time.Time          `json:"transferredAt"`
	AlreadyTransferred bool               `json:"alreadyTransferred"`
	CustomerSaved      bool               `json:"customerSaved"`
	ReleasedTableIDs   []string           `json:"releasedTableIds"`
	FailedTableIDs     []string           `json:"failedTableIds"`
}
