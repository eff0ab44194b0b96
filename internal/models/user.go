// internal/models/user.go
package models

type Role string

const (
	RoleSuperadmin Role = "superadmin"
	RoleAdmin      Role = "admin"
	RoleOwner      Role = "owner"
	RoleManager    Role = "manager"
	RoleStaff      Role = "staff"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSuperadmin, RoleAdmin, RoleOwner, RoleManager, RoleStaff:
		return true
	}
	return false
}

// TenantWide roles are not tied to a single location.
func (r Role) TenantWide() bool {
	return r == RoleSuperadmin || r == RoleAdmin || r == RoleOwner
}

type User struct {
	ID                  string `json:"id"`
	Email               string `json:"email"`
	DisplayName         string `json:"displayName"`
	Phone               string `json:"phone,omitempty"`
	Role                Role   `json:"role"`
	FranchiseID         string `json:"franchiseId,omitempty"`
	LocationID          string `json:"locationId,omitempty"`
	RequestedLocationID string `json:"requestedLocationId,omitempty"`
	Approved            bool   `json:"approved"`
	Active              bool   `json:"active"`
}

func (u *User) Enabled() bool {
	return u != nil && u.Active && u.Approved
}

// CanOperateAt reports whether u may work orders at locationID in franchiseID.
// Reason is empty when allowed.
func (u *User) CanOperateAt(franchiseID, locationID string) (bool, string) {
	if !u.Enabled() {
		return false, "user is not active and approved"
	}
	switch u.Role {
	case RoleSuperadmin:
		return true, ""
	case RoleAdmin, RoleOwner:
		if u.FranchiseID != franchiseID {
			return false, "user belongs to another franchise"
		}
		return true, ""
	case RoleManager, RoleStaff:
		if u.LocationID != locationID {
			return false, "user is not assigned to the order's location"
		}
		return true, ""
	}
	return false, "role not allowed"
}

// CanBillAt is CanOperateAt without staff.
func (u *User) CanBillAt(franchiseID, locationID string) (bool, string) {
	if u != nil && u.Role == RoleStaff {
		return false, "staff cannot bill or settle orders"
	}
	return u.CanOperateAt(franchiseID, locationID)
}

// CanGrant reports whether a user with role granter may assign role on approval.
// Nobody grants superadmin, and a role is never granted above the granter's own.
func CanGrant(granter, role Role) bool {
	switch granter {
	case RoleSuperadmin:
		return role == RoleAdmin || role == RoleOwner || role == RoleManager || role == RoleStaff
	case RoleAdmin:
		return role == RoleOwner || role == RoleManager || role == RoleStaff
	case RoleOwner:
		return role == RoleManager || role == RoleStaff
	case RoleManager:
		return role == RoleStaff
	}
	return false
}

// CanApprove decides whether approver may approve or reject target at
// locationID. Admins, owners and superadmins act franchise-wide; a manager
// may only act on staff for the manager's own location.
func CanApprove(approver, target *User, locationID string) (bool, string) {
	if !approver.Enabled() {
		return false, "approver is not active and approved"
	}
	if approver.ID == target.ID {
		return false, "users cannot approve themselves"
	}
	switch approver.Role {
	case RoleSuperadmin:
		return true, ""
	case RoleAdmin, RoleOwner:
		if approver.FranchiseID != target.FranchiseID {
			return false, "approver belongs to another franchise"
		}
		return true, ""
	case RoleManager:
		if approver.FranchiseID != target.FranchiseID {
			return false, "approver belongs to another franchise"
		}
		if target.Role != RoleStaff {
			return false, "managers can only approve staff"
		}
		if locationID == "" || approver.LocationID != locationID {
			return false, "managers can only approve for their own location"
		}
		return true, ""
	}
	return false, "role cannot approve users"
}
