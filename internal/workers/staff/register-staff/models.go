// internal/workers/staff/register-staff/models.go
package registerstaff

import "pos-workers/internal/models"

type Input struct {
	Email               string      `json:"email"`
	DisplayName         string      `json:"displayName"`
	Phone               string      `json:"phone,omitempty"`
	FranchiseID         string      `json:"franchiseId"`
	RequestedLocationID string      `json:"requestedLocationId"`
	Role                models.Role `json:"role,omitempty"`
}

type Output struct {
	UserID              string      `json:"userId"`
	Email               string      `json:"email"`
	Role                models.Role `json:"role"`
	FranchiseID         string      `json:"franchiseId"`
	RequestedLocationID string      `json:"requestedLocationId"`
	Approved            bool        `json:"approved"`
	Active              bool        `json:"active"`
	IdentityID          string      `json:"identityId,omitempty"`
	IdentityCreated     bool        `json:"identityCreated"`
}
