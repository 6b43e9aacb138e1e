// Package rbac holds the typed role and capability vocabulary. Slug strings
// only appear at the storage and HTTP boundary.
package rbac

import (
	"regexp"
	"strings"
)

type RoleSlug string

const (
	RoleAdmin  RoleSlug = "admin"
	RoleEditor RoleSlug = "editor"
	RoleViewer RoleSlug = "viewer"
)

var (
	roleSlugRe       = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
	permissionSlugRe = regexp.MustCompile(`^[a-z0-9_]+\.[a-z0-9_]+$`)
)

func ValidRoleSlug(s string) bool { return roleSlugRe.MatchString(s) }

func ValidPermissionSlug(s string) bool { return permissionSlugRe.MatchString(s) }

type RoleSet map[RoleSlug]struct{}

func NewRoleSet(slugs ...string) RoleSet {
	set := make(RoleSet, len(slugs))
	for _, s := range slugs {
		set[RoleSlug(s)] = struct{}{}
	}
	return set
}

// Has reports whether the set intersects slugs.
func (s RoleSet) Has(slugs ...RoleSlug) bool {
	for _, slug := range slugs {
		if _, ok := s[slug]; ok {
			return true
		}
	}
	return false
}

// Capability is a permission slug of the form module.action.
type Capability string

const (
	CapAssetsView     Capability = "assets.view"
	CapAssetsCreate   Capability = "assets.create"
	CapAssetsUpdate   Capability = "assets.update"
	CapAssetsDelete   Capability = "assets.delete"
	CapClientsView    Capability = "clients.view"
	CapClientsCreate  Capability = "clients.create"
	CapClientsUpdate  Capability = "clients.update"
	CapClientsDelete  Capability = "clients.delete"
	CapUsersManage    Capability = "users.manage"
	CapRolesManage    Capability = "roles.manage"
	CapPermissionsMgr Capability = "permissions.manage"
)

// BuiltinCapabilities is the permission catalogue seeded on a fresh install.
var BuiltinCapabilities = []Capability{
	CapAssetsView, CapAssetsCreate, CapAssetsUpdate, CapAssetsDelete,
	CapClientsView, CapClientsCreate, CapClientsUpdate, CapClientsDelete,
	CapUsersManage, CapRolesManage, CapPermissionsMgr,
}

func (c Capability) Module() string {
	m, _, _ := strings.Cut(string(c), ".")
	return m
}

func (c Capability) Action() string {
	_, a, _ := strings.Cut(string(c), ".")
	return a
}
