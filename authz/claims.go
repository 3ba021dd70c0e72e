package authz

import (
	"fmt"
	"strings"
)

// Claims is the loosely-typed claim data handed over by the authentication
// layer. No field is guaranteed to be present, and list-valued fields arrive
// in several shapes depending on the token issuer; the accessors below
// normalize them.
type Claims map[string]any

// UserID returns the principal's identifier, or "" when absent.
func (c Claims) UserID() string {
	return stringify(c["user_id"])
}

// RoleNames returns the principal's role names. The roles claim may be a
// single string, a list of strings, or a list of maps carrying a "name" or
// "role_name" field.
func (c Claims) RoleNames() []string {
	raw, ok := c["roles"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if name := roleName(item); name != "" {
				out = append(out, name)
			}
		}
		return out
	}
	return nil
}

func roleName(item any) string {
	switch r := item.(type) {
	case string:
		return r
	case map[string]any:
		if name := stringify(r["name"]); name != "" {
			return name
		}
		return stringify(r["role_name"])
	case map[string]string:
		if name := r["name"]; name != "" {
			return name
		}
		return r["role_name"]
	}
	return ""
}

// HasRole reports exact membership of the role name in the roles claim.
func (c Claims) HasRole(name string) bool {
	for _, role := range c.RoleNames() {
		if role == name {
			return true
		}
	}
	return false
}

// PermissionNames returns the "permissions" claim as a string list.
func (c Claims) PermissionNames() []string {
	return stringList(c["permissions"])
}

// ExtraPermissionNames returns the "permission_names" claim as a string list.
func (c Claims) ExtraPermissionNames() []string {
	return stringList(c["permission_names"])
}

// ScopeNames returns the "scopes" claim, accepting either a list or a
// comma-separated string.
func (c Claims) ScopeNames() []string {
	raw, ok := c["scopes"]
	if !ok {
		return nil
	}
	if s, ok := raw.(string); ok {
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	}
	return stringList(raw)
}

// stringList normalizes a claim value into a list of non-empty strings.
func stringList(raw any) []string {
	switch v := raw.(type) {
	case nil:
		return nil
	case []string:
		out := make([]string, 0, len(v))
		for _, s := range v {
			if s != "" {
				out = append(out, s)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s := stringify(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	}
	return nil
}

// stringify renders a loosely-typed claim or resource field as a string.
// Numeric IDs from JSON decode as float64; fmt prints integral floats
// without a decimal point, so "42" compares equal across shapes.
func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(v)
	}
}
