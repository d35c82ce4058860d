// Package auth - roles.go defines the closed set of membership roles and the
// resource scope each one belongs to.
package auth

import "fmt"

// Role is a membership role. Each role is valid on exactly one resource kind and
// roles carry no numeric rank; privilege is decided by explicit role sets.
type Role string

const (
	RoleOrganizationAdmin Role = "organization_admin"
	RoleOrganizationUser  Role = "organization_user"
	RoleWebsiteAdmin      Role = "website_admin"
	RoleWebsiteUser       Role = "website_user"
)

// ResourceScope names the resource kind a role applies to.
type ResourceScope string

const (
	ScopeOrganization ResourceScope = "organization"
	ScopeWebsite      ResourceScope = "website"
)

// Valid reports whether r is one of the four defined roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOrganizationAdmin, RoleOrganizationUser, RoleWebsiteAdmin, RoleWebsiteUser:
		return true
	}
	return false
}

// Scope returns the resource kind r applies to, or "" for an unknown role.
func (r Role) Scope() ResourceScope {
	switch r {
	case RoleOrganizationAdmin, RoleOrganizationUser:
		return ScopeOrganization
	case RoleWebsiteAdmin, RoleWebsiteUser:
		return ScopeWebsite
	}
	return ""
}

// IsOrganizationRole reports whether r may be stored on an organization membership.
func (r Role) IsOrganizationRole() bool { return r.Scope() == ScopeOrganization }

// IsWebsiteRole reports whether r may be stored on a website membership.
func (r Role) IsWebsiteRole() bool { return r.Scope() == ScopeWebsite }

func (r Role) String() string { return string(r) }

// ParseRole converts a wire value into a Role
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("invalid role: %s", s)
	}
	return r, nil
}
