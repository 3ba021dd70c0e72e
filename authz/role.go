package authz

// Built-in role names.
const (
	RoleSuperadmin = "superadmin"
	RoleAdmin      = "admin"
	RoleEditor     = "editor"
	RoleAuthor     = "author"
	RoleViewer     = "viewer"
)

// Role bundles permission patterns under a name. Patterns may contain '*'
// wildcards. The pattern list has set semantics: no duplicates, with
// insertion order preserved for deterministic matching.
type Role struct {
	Name        string
	Description string
	Scopes      []string
	Priority    int

	permissions []string
	index       map[string]struct{}
}

// NewRole creates a role holding the given permission patterns.
func NewRole(name string, permissions ...string) *Role {
	r := &Role{
		Name:  name,
		index: make(map[string]struct{}, len(permissions)),
	}
	for _, p := range permissions {
		r.AddPermission(p)
	}
	return r
}

// AddPermission adds a permission pattern. Adding an already-held pattern is
// a no-op.
func (r *Role) AddPermission(pattern string) {
	if _, ok := r.index[pattern]; ok {
		return
	}
	if r.index == nil {
		r.index = make(map[string]struct{})
	}
	r.index[pattern] = struct{}{}
	r.permissions = append(r.permissions, pattern)
}

// RemovePermission removes a permission pattern, preserving the order of the
// remaining patterns. Removing an absent pattern is a no-op.
func (r *Role) RemovePermission(pattern string) {
	if _, ok := r.index[pattern]; !ok {
		return
	}
	delete(r.index, pattern)
	for i, p := range r.permissions {
		if p == pattern {
			r.permissions = append(r.permissions[:i], r.permissions[i+1:]...)
			break
		}
	}
}

// Permissions returns the held permission patterns in insertion order.
func (r *Role) Permissions() []string {
	out := make([]string, len(r.permissions))
	copy(out, r.permissions)
	return out
}

// HasPermission reports whether the role grants the queried permission:
// either a held pattern equals it exactly, or a held wildcard pattern
// matches it.
func (r *Role) HasPermission(permission string) bool {
	for _, pattern := range r.permissions {
		if matchPattern(permission, pattern) {
			return true
		}
	}
	return false
}

// SystemRoles returns the fixed built-in role catalog. The contents are
// identical across calls; each call returns fresh instances so callers can
// mutate their copy freely.
func SystemRoles() map[string]*Role {
	superadmin := NewRole(RoleSuperadmin, "*:*")
	superadmin.Description = "Full access to everything"
	superadmin.Priority = 1000

	admin := NewRole(RoleAdmin, "users:*", "roles:*", "permissions:*", "settings:*")
	admin.Description = "Administrative access"
	admin.Priority = 900

	editor := NewRole(RoleEditor, "posts:*", "pages:*", "media:*")
	editor.Description = "Content management access"
	editor.Priority = 500

	author := NewRole(RoleAuthor, "posts:create", "posts:update", "posts:read", "media:create")
	author.Description = "Content authoring access"
	author.Priority = 300

	viewer := NewRole(RoleViewer, "posts:read", "pages:read")
	viewer.Description = "Read-only access"
	viewer.Priority = 100

	return map[string]*Role{
		RoleSuperadmin: superadmin,
		RoleAdmin:      admin,
		RoleEditor:     editor,
		RoleAuthor:     author,
		RoleViewer:     viewer,
	}
}

// SystemRole looks up one built-in role by name.
func SystemRole(name string) (*Role, bool) {
	role, ok := SystemRoles()[name]
	return role, ok
}
