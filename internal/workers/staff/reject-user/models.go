// internal/workers/staff/reject-user/models.go
package rejectuser

import "time"

type Input struct {
	UserID     string `json:"userId"`
	ApproverID string `json:"approverId"`
	Reason     string `json:"reason,omitempty"`
}

type Output struct {
	UserID         string    `json:"userId"`
	Email          string    `json:"email"`
	Approved       bool      `json:"approved"`
	Active         bool      `json:"active"`
	RejectedBy     string    `json:"rejectedBy"`
	RejectedAt     time.Time `json:"rejectedAt"`
	Reason         string    `json:"reason,omitempty"`
	IdentitySynced bool      `json:"identitySynced"`
}
