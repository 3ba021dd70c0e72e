package authz

import (
	"regexp"
	"strings"
)

// Permission is a named capability in "resource:action" form. A name without
// a colon implies the "all" action for that resource.
type Permission struct {
	Name        string   `json:"name"`
	Resource    string   `json:"resource"`
	Action      string   `json:"action"`
	Description string   `json:"description,omitempty"`
	Scopes      []string `json:"scopes,omitempty"`
}

// NewPermission builds a Permission from its name, deriving resource and
// action by splitting on the first colon.
func NewPermission(name string) Permission {
	resource, action := splitPermission(name)
	return Permission{
		Name:     name,
		Resource: resource,
		Action:   action,
	}
}

func splitPermission(name string) (resource, action string) {
	if i := strings.Index(name, ":"); i >= 0 {
		return name[:i], name[i+1:]
	}
	return name, "all"
}

// Matches reports whether this permission's name satisfies the given pattern.
// Exact names always match; a pattern containing '*' matches with '*'
// standing for any sequence of characters. The match covers the full name,
// never a substring.
func (p Permission) Matches(pattern string) bool {
	return matchPattern(p.Name, pattern)
}

// matchPattern is the single wildcard algorithm shared by Permission, Role
// and Manager checks.
func matchPattern(name, pattern string) bool {
	if name == pattern {
		return true
	}
	if !strings.Contains(pattern, "*") {
		return false
	}
	parts := strings.Split(pattern, "*")
	for i, part := range parts {
		parts[i] = regexp.QuoteMeta(part)
	}
	re, err := regexp.Compile("^" + strings.Join(parts, ".*") + "$")
	if err != nil {
		return false
	}
	return re.MatchString(name)
}

// Define returns the conventional permission set for a resource: read,
// create, update and delete, plus the "resource:*" catch-all.
func Define(resource string) []Permission {
	actions := []string{"read", "create", "update", "delete"}
	perms := make([]Permission, 0, len(actions)+1)
	for _, action := range actions {
		perms = append(perms, NewPermission(resource+":"+action))
	}
	perms = append(perms, NewPermission(resource+":*"))
	return perms
}
