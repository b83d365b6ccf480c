package authroles

import (
	domainauth "github.com/caretrack/licensure/internal/domain/auth"
)

// StaticRoleMapper resolves roles from group membership using fixed group
// names supplied by configuration. Admin wins over user; anything else is
// a guest.
type StaticRoleMapper struct {
	AdminGroup string
	UserGroup  string
}

// Map returns the highest role any of the groups grants.
func (m StaticRoleMapper) Map(groups []string) domainauth.Role {
	for _, g := range groups {
		if m.AdminGroup != "" && g == m.AdminGroup {
			return domainauth.RoleAdmin
		}
	}
	for _, g := range groups {
		if m.UserGroup != "" && g == m.UserGroup {
			return domainauth.RoleUser
		}
	}
	return domainauth.RoleGuest
}
