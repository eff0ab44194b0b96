// internal/workers/tenant/create-location/models.go
package createlocation

type Input struct {
	ActingUserID string `json:"actingUserId"`
	FranchiseID  string `json:"franchiseId"`
	Name         string `json:"name"`
	Code         string `json:"code,omitempty"`
	Address      string `json:"address,omitempty"`
	Phone        string `json:"phone,omitempty"`
	TableCount   int    `json:"tableCount,omitempty"`
}

type Output struct {
	LocationID  string   `json:"locationId"`
	FranchiseID string   `json:"franchiseId"`
	Name        string   `json:"name"`
	Code        string   `json:"code"`
	Active      bool     `json:"active"`
	TableIDs    []string `json:"tableIds"`
}
