// internal/workers/maintenance/reconcile-order-queues/models.go
package reconcileorderqueues

import "pos-workers/internal/models"

type Input struct {
	DryRun     bool   `json:"dryRun"`
	LocationID string `json:"locationId,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

type Output struct {
	DryRun      bool       `json:"dryRun"`
	Scanned     int        `json:"scanned"`
	Repaired    int        `json:"repaired"`
	Skipped     int        `json:"skipped"`
	Mismatched  []Mismatch `json:"mismatched"`
	RepairedIDs []string   `json:"repairedOrderIds"`
}

// Mismatch is one order whose owner_queue disagrees with its status.
type Mismatch struct {
	OrderID    string             `json:"orderId"`
	Status     models.OrderStatus `json:"status"`
	OwnerQueue models.OwnerQueue  `json:"ownerQueue"`
	Expected   models.OwnerQueue  `json:"expectedQueue,omitempty"`
}
