package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockEvaluator is a mock implementation of Evaluator
type MockEvaluator struct {
	mock.Mock
}

func (m *MockEvaluator) Can(user Claims, action string, resource any, ctx map[string]any) bool {
	args := m.Called(user, action, resource, ctx)
	return args.Bool(0)
}

func TestManager_EffectivePermissions(t *testing.T) {
	m := NewManager(Claims{
		"permissions":      []string{"posts:read", "posts:create"},
		"permission_names": []string{"media:create", "posts:read"},
		"scopes":           "reports:view, posts:read",
		"roles":            []string{"viewer"},
	})

	// permissions ∪ permission_names ∪ scopes ∪ role grants, deduplicated,
	// insertion order preserved
	assert.Equal(t,
		[]string{"posts:read", "posts:create", "media:create", "reports:view", "pages:read"},
		m.Permissions())
	assert.Equal(t, []string{"reports:view", "posts:read"}, m.Scopes())
}

func TestManager_Can(t *testing.T) {
	m := NewManager(Claims{"permissions": []string{"posts:read", "media:*"}})

	assert.True(t, m.Can("posts:read"))
	assert.True(t, m.Can("media:create"), "held wildcard grants")
	assert.False(t, m.Can("posts:create"))
	assert.True(t, m.Cannot("posts:create"))
}

func TestManager_Can_Superadmin(t *testing.T) {
	m := NewManager(Claims{"roles": []string{"superadmin"}})

	assert.True(t, m.Can("anything:whatever"))
	assert.True(t, m.Can("never:defined"))
}

func TestManager_Can_RoleGrants(t *testing.T) {
	m := NewManager(Claims{"roles": []any{map[string]any{"name": "author"}}})

	assert.True(t, m.Can("posts:create"))
	assert.True(t, m.Can("media:create"))
	assert.False(t, m.Can("posts:delete"))

	// Unknown role names grant nothing
	unknown := NewManager(Claims{"roles": []string{"moderator"}})
	assert.False(t, unknown.Can("posts:read"))
}

func TestManager_CanAnyCanAll(t *testing.T) {
	m := NewManager(Claims{"permissions": []string{"posts:read"}})

	assert.True(t, m.CanAny([]string{"posts:read", "posts:delete"}))
	assert.False(t, m.CanAll([]string{"posts:read", "posts:delete"}))
	assert.True(t, m.CanAll([]string{"posts:read"}))
	assert.False(t, m.CanAny(nil))
	assert.True(t, m.CanAll(nil))
}

func TestManager_Scopes(t *testing.T) {
	m := NewManager(Claims{"scopes": []string{"reports:view", "exports:run"}})

	assert.True(t, m.HasScope("reports:view"))
	assert.False(t, m.HasScope("admin:panel"))
	assert.True(t, m.HasAnyScope([]string{"admin:panel", "exports:run"}))
	assert.False(t, m.HasAnyScope([]string{"admin:panel"}))

	// Scope membership is exact, never wildcard
	wild := NewManager(Claims{"scopes": []string{"reports:*"}})
	assert.False(t, wild.HasScope("reports:view"))
}

func TestManager_CanAccess_NilResource(t *testing.T) {
	m := NewManager(Claims{"roles": []string{"superadmin"}})
	assert.False(t, m.CanAccess(nil, "read", nil))
	assert.False(t, m.CanAccess(map[string]any{}, "read", nil))
}

func TestManager_CanAccess_Superadmin(t *testing.T) {
	m := NewManager(Claims{"roles": []string{"superadmin"}})
	assert.True(t, m.CanAccess(map[string]any{"_type": "posts", "user_id": "7"}, "delete", nil))
}

func TestManager_CanAccess_BasePermission(t *testing.T) {
	m := NewManager(Claims{"permissions": []string{"posts:read"}})

	resource := map[string]any{"_type": "posts", "title": "x"}
	assert.True(t, m.CanAccess(resource, "read", nil))
	assert.False(t, m.CanAccess(resource, "update", nil))
}

func TestManager_CanAccess_Ownership(t *testing.T) {
	m := NewManager(Claims{
		"user_id":     "42",
		"permissions": []string{"posts:update"},
	})

	own := map[string]any{"_type": "posts", "user_id": "42"}
	other := map[string]any{"_type": "posts", "user_id": "7"}

	assert.True(t, m.CanAccess(own, "update", nil), "owner needs no override permission")
	assert.False(t, m.CanAccess(other, "update", nil), "non-owner is denied without an override")

	override := NewManager(Claims{
		"user_id":     "42",
		"permissions": []string{"posts:update", "posts:*"},
	})
	assert.True(t, override.CanAccess(other, "update", nil))

	global := NewManager(Claims{
		"user_id":     "42",
		"permissions": []string{"posts:update", "*:*"},
	})
	assert.True(t, global.CanAccess(other, "update", nil))
}

func TestManager_CanAccess_NoOwnershipConcept(t *testing.T) {
	m := NewManager(Claims{"user_id": "42", "permissions": []string{"settings:update"}})

	// Permission success alone suffices when the resource declares no owner
	assert.True(t, m.CanAccess(map[string]any{"_type": "settings", "theme": "dark"}, "update", nil))
}

func TestManager_CanAccess_StructResource(t *testing.T) {
	m := NewManager(Claims{"user_id": "42", "permissions": []string{"post:update"}})
	assert.True(t, m.CanAccess(post{UserID: "42"}, "update", nil))
	assert.False(t, m.CanAccess(post{UserID: "7"}, "update", nil))
}

func TestManager_CanAccess_EngineDeny(t *testing.T) {
	eval := new(MockEvaluator)
	eval.On("Can", mock.Anything, "update", mock.Anything, mock.Anything).Return(false)

	claims := Claims{"user_id": "42", "permissions": []string{"posts:update"}}
	m := NewManager(claims, WithEngine(eval))

	assert.False(t, m.CanAccess(map[string]any{"_type": "posts", "user_id": "42"}, "update", nil))
	eval.AssertExpectations(t)
}

func TestManager_CanAccess_EngineAllow(t *testing.T) {
	eval := new(MockEvaluator)
	eval.On("Can", mock.Anything, "update", mock.Anything, mock.Anything).Return(true)

	claims := Claims{"user_id": "42", "permissions": []string{"posts:update"}}
	m := NewManager(claims, WithEngine(eval))

	assert.True(t, m.CanAccess(map[string]any{"_type": "posts", "user_id": "42"}, "update", nil))
}

func TestManager_CanAccess_EngineSkippedWithoutPermission(t *testing.T) {
	eval := new(MockEvaluator)

	m := NewManager(Claims{"user_id": "42"}, WithEngine(eval))

	assert.False(t, m.CanAccess(map[string]any{"_type": "posts"}, "update", nil))
	eval.AssertNotCalled(t, "Can", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

type allowOwnPolicy struct {
	BasePolicy
}

func (p *allowOwnPolicy) Can(_ string, resource any) bool {
	return p.Owns(resource)
}

func TestManager_Authorize(t *testing.T) {
	claims := Claims{"user_id": "42"}
	m := NewManager(claims, WithPolicyFactories(map[string]PolicyFactory{
		"post": func(c Claims) Policy { return &allowOwnPolicy{BasePolicy{Claims: c}} },
	}))

	assert.True(t, m.Authorize("post", "update", map[string]any{"user_id": "42"}))
	assert.False(t, m.Authorize("post", "update", map[string]any{"user_id": "7"}))
}

func TestManager_Authorize_UnknownPolicy(t *testing.T) {
	m := NewManager(Claims{"user_id": "42"})

	// Unresolvable names are a normal deny, never a panic or error
	assert.False(t, m.Authorize("nonexistent", "update", map[string]any{"user_id": "42"}))
}

func TestManager_Authorize_CachesInstances(t *testing.T) {
	built := 0
	m := NewManager(Claims{"user_id": "42"})
	m.RegisterPolicyFactory("post", func(c Claims) Policy {
		built++
		return &allowOwnPolicy{BasePolicy{Claims: c}}
	})

	resource := map[string]any{"user_id": "42"}
	m.Authorize("post", "update", resource)
	m.Authorize("post", "delete", resource)
	assert.Equal(t, 1, built, "factory runs once per manager")
}

func TestManager_RegisterPolicy_BypassesFactory(t *testing.T) {
	m := NewManager(Claims{"user_id": "42"})
	m.RegisterPolicyFactory("post", func(c Claims) Policy {
		t.Fatal("factory must not run for an explicitly registered policy")
		return nil
	})
	m.RegisterPolicy("post", &allowOwnPolicy{BasePolicy{Claims: m.Claims()}})

	assert.True(t, m.Authorize("post", "update", map[string]any{"user_id": "42"}))
}
