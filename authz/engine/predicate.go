package engine

import (
	"github.com/kudeepakh/farm-authz/authz"
)

// Predicate is an arbitrary caller-supplied authorization check.
type Predicate func(user authz.Claims, action string, resource any, ctx map[string]any) (bool, error)

// PredicateRule passes evaluation straight through to a caller-supplied
// predicate. Default priority is 100.
type PredicateRule struct {
	ruleBase
	predicate Predicate
}

// NewPredicateRule builds a predicate rule.
func NewPredicateRule(name string, predicate Predicate, opts ...RuleOption) *PredicateRule {
	r := &PredicateRule{
		ruleBase:  ruleBase{name: name, priority: 100},
		predicate: predicate,
	}
	for _, opt := range opts {
		opt(&r.ruleBase)
	}
	return r
}

// Evaluate implements Rule.
func (r *PredicateRule) Evaluate(user authz.Claims, action string, resource any, ctx map[string]any) (bool, error) {
	if r.predicate == nil {
		return false, authz.NewDomainError(authz.ErrorTypeEvaluation,
			"no predicate configured for rule "+r.name, nil)
	}
	return r.predicate(user, action, resource, ctx)
}
