package engine

import (
	"github.com/kudeepakh/farm-authz/authz"
)

// Rule is one pluggable policy check. Evaluate returns the rule's verdict,
// or an error when it could not produce one; how errors combine into the
// final verdict is decided by the engine mode, never by the rule itself.
type Rule interface {
	Name() string
	Priority() int
	Evaluate(user authz.Claims, action string, resource any, ctx map[string]any) (bool, error)
}

// ruleBase carries the identity shared by the built-in rules.
type ruleBase struct {
	name     string
	priority int
}

func (b ruleBase) Name() string { return b.name }

func (b ruleBase) Priority() int { return b.priority }

// RuleOption adjusts a built-in rule at construction.
type RuleOption func(*ruleBase)

// WithPriority overrides a rule's default priority. Higher priorities are
// evaluated first.
func WithPriority(priority int) RuleOption {
	return func(b *ruleBase) { b.priority = priority }
}
