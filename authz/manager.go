// Package authz is the authorization decision core: role and permission
// resolution from request claims, wildcard permission matching, and the
// layered resource-access decision (permission, then policy engine, then
// ownership). It performs no authentication and persists nothing.
package authz

import (
	"go.uber.org/zap"
)

// Evaluator is the policy-engine surface the manager delegates resource
// decisions to. Satisfied by engine.Engine.
type Evaluator interface {
	Can(user Claims, action string, resource any, ctx map[string]any) bool
}

// Manager resolves a principal's effective permission and scope sets from
// claim data once, then answers authorization queries against them. Build
// one per request and discard it at request end; instances are not safe for
// concurrent use and are not meant to outlive the request.
type Manager struct {
	claims     Claims
	superadmin bool

	permissions []string
	permIndex   map[string]struct{}
	scopes      []string
	scopeIndex  map[string]struct{}

	engine    Evaluator
	factories map[string]PolicyFactory
	policies  map[string]Policy

	logger *zap.Logger
}

// Option configures a Manager at construction.
type Option func(*Manager)

// WithEngine attaches a policy engine consulted by CanAccess. Without one,
// CanAccess skips the policy layer.
func WithEngine(e Evaluator) Option {
	return func(m *Manager) { m.engine = e }
}

// WithLogger sets the manager's logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithPolicyFactories seeds the registry Authorize resolves policy names
// through. Registered at bootstrap, shared across requests.
func WithPolicyFactories(factories map[string]PolicyFactory) Option {
	return func(m *Manager) {
		for name, factory := range factories {
			m.factories[name] = factory
		}
	}
}

// NewManager builds the per-request authorization context from claim data.
func NewManager(claims Claims, opts ...Option) *Manager {
	if claims == nil {
		claims = Claims{}
	}
	m := &Manager{
		claims:     claims,
		permIndex:  make(map[string]struct{}),
		scopeIndex: make(map[string]struct{}),
		factories:  make(map[string]PolicyFactory),
		policies:   make(map[string]Policy),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.resolve()
	return m
}

// resolve computes the effective permission set: permissions ∪
// permission_names ∪ scopes ∪ built-in role grants, deduplicated with
// insertion order preserved. The scopes claim is overloaded: it carries both
// OAuth-style scopes and plain permission names, so it feeds both sets.
func (m *Manager) resolve() {
	for _, p := range m.claims.PermissionNames() {
		m.addPermission(p)
	}
	for _, p := range m.claims.ExtraPermissionNames() {
		m.addPermission(p)
	}
	for _, s := range m.claims.ScopeNames() {
		m.addPermission(s)
		m.addScope(s)
	}
	for _, name := range m.claims.RoleNames() {
		if name == RoleSuperadmin {
			m.superadmin = true
		}
		role, ok := SystemRole(name)
		if !ok {
			continue
		}
		for _, p := range role.Permissions() {
			m.addPermission(p)
		}
	}
}

func (m *Manager) addPermission(p string) {
	if p == "" {
		return
	}
	if _, ok := m.permIndex[p]; ok {
		return
	}
	m.permIndex[p] = struct{}{}
	m.permissions = append(m.permissions, p)
}

func (m *Manager) addScope(s string) {
	if s == "" {
		return
	}
	if _, ok := m.scopeIndex[s]; ok {
		return
	}
	m.scopeIndex[s] = struct{}{}
	m.scopes = append(m.scopes, s)
}

// Can reports whether the principal holds the permission. Superadmins pass
// every check; otherwise any held permission string grants access when it
// equals the queried permission or is a wildcard pattern matching it.
func (m *Manager) Can(permission string) bool {
	if m.superadmin {
		return true
	}
	for _, held := range m.permissions {
		if matchPattern(permission, held) {
			return true
		}
	}
	return false
}

// Cannot is the negation of Can.
func (m *Manager) Cannot(permission string) bool {
	return !m.Can(permission)
}

// CanAny reports whether the principal holds at least one of the
// permissions.
func (m *Manager) CanAny(permissions []string) bool {
	for _, p := range permissions {
		if m.Can(p) {
			return true
		}
	}
	return false
}

// CanAll reports whether the principal holds every one of the permissions.
func (m *Manager) CanAll(permissions []string) bool {
	for _, p := range permissions {
		if !m.Can(p) {
			return false
		}
	}
	return true
}

// HasScope reports exact membership in the effective scope set.
func (m *Manager) HasScope(scope string) bool {
	_, ok := m.scopeIndex[scope]
	return ok
}

// HasAnyScope reports whether any of the scopes is held.
func (m *Manager) HasAnyScope(scopes []string) bool {
	for _, s := range scopes {
		if m.HasScope(s) {
			return true
		}
	}
	return false
}

// CanAccess makes the layered resource-level decision: base permission,
// then the policy engine when configured, then ownership. Each layer can
// only narrow the previous one.
func (m *Manager) CanAccess(resource any, action string, ctx map[string]any) bool {
	if emptyResource(resource) {
		m.logger.Debug("access denied: no resource", zap.String("action", action))
		return false
	}
	if m.superadmin {
		return true
	}

	resourceType := "resource"
	res := AsResource(resource)
	if res != nil {
		resourceType = res.TypeName()
	}

	if !m.Can(resourceType + ":" + action) {
		m.logger.Debug("access denied: missing permission",
			zap.String("permission", resourceType+":"+action),
			zap.String("user_id", m.claims.UserID()))
		return false
	}

	if m.engine != nil && !m.engine.Can(m.claims, action, resource, ctx) {
		m.logger.Debug("access denied: policy engine",
			zap.String("resource_type", resourceType),
			zap.String("action", action),
			zap.String("user_id", m.claims.UserID()))
		return false
	}

	// Ownership applies only when the resource declares an owner. A
	// non-owner needs a type-wide or global wildcard on top of the base
	// permission.
	if res != nil {
		if owner, ok := res.Field("user_id"); ok {
			if stringify(owner) == m.claims.UserID() {
				return true
			}
			return m.Can(resourceType+":*") || m.Can("*:*")
		}
	}
	return true
}

// Authorize resolves a named policy and forwards the decision to it. An
// unresolvable name is a normal deny, never an error: authorization must not
// fail open through an exception path.
func (m *Manager) Authorize(name, action string, resource any) bool {
	policy := m.policy(name)
	if policy == nil {
		m.logger.Warn("authorization policy not resolved",
			zap.String("policy", name),
			zap.Error(ErrPolicyNotFound))
		return false
	}
	return policy.Can(action, resource)
}

// policy returns the cached instance for a name, instantiating it through
// the factory registry on first use.
func (m *Manager) policy(name string) Policy {
	if p, ok := m.policies[name]; ok {
		return p
	}
	factory, ok := m.factories[name]
	if !ok || factory == nil {
		return nil
	}
	p := factory(m.claims)
	if p == nil {
		return nil
	}
	m.policies[name] = p
	return p
}

// RegisterPolicy registers a policy instance under a name, bypassing lazy
// instantiation for that identifier.
func (m *Manager) RegisterPolicy(name string, policy Policy) {
	if policy == nil {
		return
	}
	m.policies[name] = policy
}

// RegisterPolicyFactory registers a policy factory under a name.
func (m *Manager) RegisterPolicyFactory(name string, factory PolicyFactory) {
	if factory == nil {
		return
	}
	m.factories[name] = factory
}

// Permissions returns the resolved effective permission set.
func (m *Manager) Permissions() []string {
	out := make([]string, len(m.permissions))
	copy(out, m.permissions)
	return out
}

// Scopes returns the resolved effective scope set.
func (m *Manager) Scopes() []string {
	out := make([]string, len(m.scopes))
	copy(out, m.scopes)
	return out
}

// Claims returns the claim data this manager was built from.
func (m *Manager) Claims() Claims {
	return m.claims
}
