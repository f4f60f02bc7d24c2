package domain

import "time"

// EmployeeRole is the closed set of internal staff roles, ordered from
// highest privilege to read-only. The constants must match the stored values
// byte for byte; comparisons are always against these constants, never ad hoc
// string literals.
type EmployeeRole string

const (
	RoleSuperAdmin EmployeeRole = "SUPER_ADMIN"
	RoleAdmin      EmployeeRole = "ADMIN"
	RoleSupport    EmployeeRole = "SUPPORT"
	RoleOps        EmployeeRole = "OPS"
	RoleViewer     EmployeeRole = "VIEWER"
)

// EmployeeStatus is the closed set of staff account states.
type EmployeeStatus string

const (
	StatusActive    EmployeeStatus = "ACTIVE"
	StatusInactive  EmployeeStatus = "INACTIVE"
	StatusPending   EmployeeStatus = "PENDING"
	StatusSuspended EmployeeStatus = "SUSPENDED"
)

// elevatedRoles are the roles allowed to perform privileged operations such
// as provisioning tenants or issuing recovery links.
var elevatedRoles = map[EmployeeRole]bool{
	RoleSuperAdmin: true,
	RoleAdmin:      true,
}

// Valid reports whether the role is one of the known constants.
func (r EmployeeRole) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleSupport, RoleOps, RoleViewer:
		return true
	}
	return false
}

// Elevated reports whether the role may perform privileged admin operations.
func (r EmployeeRole) Elevated() bool {
	return elevatedRoles[r]
}

// Valid reports whether the status is one of the known constants.
func (s EmployeeStatus) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusPending, StatusSuspended:
		return true
	}
	return false
}

// Employee is an internal staff record used to gate admin-only operations.
type Employee struct {
	ID        string         `db:"id" json:"id"`
	AccountID string         `db:"account_id" json:"account_id"`
	Email     string         `db:"email" json:"email"`
	Name      string         `db:"name" json:"name"`
	Role      EmployeeRole   `db:"role" json:"role"`
	Status    EmployeeStatus `db:"status" json:"status"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// CanProvision reports whether this employee may perform privileged
// operations. Both checks compare against the closed enumerations above.
func (e *Employee) CanProvision() bool {
	if e == nil {
		return false
	}
	return e.Role.Elevated() && e.Status == StatusActive
}
