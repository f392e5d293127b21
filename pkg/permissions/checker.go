// Package permissions provides role permission checks with wildcard support
// and pharmacy access scoping.
//
// Permission Format:
//   - "*" - Full access (all permissions)
//   - "resource.*" - All actions on a resource (e.g., "usage.*")
//   - "resource.action" - Specific action (e.g., "inventory.read")
package permissions

import (
	"strings"
)

// Permissions used by the pharmacy service.
const (
	InventoryRead  = "inventory.read"
	InventoryWrite = "inventory.write"
	InventoryAdmin = "inventory.admin"
	UsageRead      = "usage.read"
	UsageCreate    = "usage.create"
	UsageUpdate    = "usage.update"
	UsageDelete    = "usage.delete"
	ReportsRead    = "reports.read"
	UsersManage    = "users.manage"
	AuditRead      = "audit.read"
)

// Role names as stored on users.
const (
	RoleAdmin           = "ADMIN"
	RolePharmacyManager = "PHARMACY_MANAGER"
	RoleStaff           = "STAFF"
	RoleViewer          = "VIEWER"
)

var rolePermissions = map[string][]string{
	RoleAdmin: {"*"},
	RolePharmacyManager: {
		"inventory.read",
		"inventory.write",
		"usage.*",
		"reports.read",
	},
	RoleStaff: {
		"inventory.read",
		"inventory.write",
		"usage.read",
		"usage.create",
		"reports.read",
	},
	RoleViewer: {
		"inventory.read",
		"usage.read",
		"reports.read",
	},
}

// RolePermissions returns the permission set granted to a role.
// Unknown roles get no permissions.
func RolePermissions(role string) []string {
	return rolePermissions[role]
}

// RoleHasPermission checks a role against a required permission.
func RoleHasPermission(role, required string) bool {
	return HasPermission(RolePermissions(role), required)
}

// HasPermission checks if the user's permissions include the required permission.
// Supports wildcard matching:
//   - "*" matches everything
//   - "usage.*" matches "usage.create", "usage.delete", etc.
//   - Exact match for specific permissions
func HasPermission(userPerms []string, required string) bool {
	if required == "" {
		return true // No permission required
	}

	for _, p := range userPerms {
		if p == "*" {
			return true
		}
		if p == required {
			return true
		}
		if strings.HasSuffix(p, ".*") {
			prefix := strings.TrimSuffix(p, ".*")
			if strings.HasPrefix(required, prefix+".") {
				return true
			}
		}
	}
	return false
}
