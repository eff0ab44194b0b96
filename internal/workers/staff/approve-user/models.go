// internal/workers/staff/approve-user/models.go
package approveuser

import (
	"time"

	"pos-workers/internal/models"
)

// Input selects the user to approve. Role, when set, is the role granted on
// approval; otherwise the user keeps the role they registered with.
type Input struct {
	UserID     string      `json:"userId"`
	ApproverID string      `json:"approverId"`
	LocationID string      `json:"locationId,omitempty"`
	Role       models.Role `json:"role,omitempty"`
}

type Output struct {
	UserID         string      `json:"userId"`
	Email          string      `json:"email"`
	Role           models.Role `json:"role"`
	FranchiseID    string      `json:"franchiseId"`
	LocationID     string      `json:"locationId,omitempty"`
	Approved       bool        `json:"approved"`
	Active         bool        `json:"active"`
	ApprovedBy     string      `json:"approvedBy"`
	ApprovedAt     time.Time   `json:"approvedAt"`
	IdentitySynced bool        `json:"identitySynced"`
}
