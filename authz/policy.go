package authz

// Policy is a single-resource authorization check evaluated against the
// acting principal. Implementations typically embed BasePolicy for the
// shared ownership and role helpers.
type Policy interface {
	Can(action string, resource any) bool
}

// PolicyFactory constructs a Policy bound to the acting principal's claims.
// Factories are registered at bootstrap and invoked lazily by
// Manager.Authorize.
type PolicyFactory func(claims Claims) Policy

// BasePolicy carries the claim data and shared helpers concrete policies
// build their decisions from.
type BasePolicy struct {
	Claims Claims
}

// Owns reports whether the principal is the resource's declared owner: the
// resource exposes a user_id field equal to the principal's user_id.
func (p BasePolicy) Owns(resource any) bool {
	res := AsResource(resource)
	if res == nil {
		return false
	}
	owner, ok := res.Field("user_id")
	if !ok {
		return false
	}
	userID := p.Claims.UserID()
	return userID != "" && stringify(owner) == userID
}

// HasRole reports exact membership of the role in the principal's roles.
func (p BasePolicy) HasRole(role string) bool {
	return p.Claims.HasRole(role)
}

// IsAdmin reports whether the principal holds the admin or superadmin role.
func (p BasePolicy) IsAdmin() bool {
	return p.HasRole(RoleAdmin) || p.HasRole(RoleSuperadmin)
}

// ResourceInState reports whether the resource's status field is one of the
// allowed states.
func (p BasePolicy) ResourceInState(resource any, allowedStates ...string) bool {
	res := AsResource(resource)
	if res == nil {
		return false
	}
	status, ok := res.Field("status")
	if !ok {
		return false
	}
	current := stringify(status)
	for _, state := range allowedStates {
		if current == state {
			return true
		}
	}
	return false
}
