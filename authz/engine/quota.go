package engine

import (
	"fmt"

	"github.com/kudeepakh/farm-authz/authz"
)

// UsageFunc reports a principal's current usage count for a resource type
// within a counting period (e.g. "day", "month"). Implementations own their
// I/O and timeout policy; the engine imposes none.
type UsageFunc func(userID, resourceType, period string) (int, error)

// QuotaRule denies once a principal's usage of a resource type reaches the
// configured limit (usage equal to the limit already denies). With no usage
// lookup configured the rule allows everything: quota enforcement degrades
// open rather than blocking traffic.
type QuotaRule struct {
	ruleBase
	resourceType string
	limit        int
	period       string
	usage        UsageFunc
}

// NewQuotaRule builds a quota rule for one resource type. Default priority
// is 150.
func NewQuotaRule(resourceType string, limit int, period string, usage UsageFunc, opts ...RuleOption) *QuotaRule {
	r := &QuotaRule{
		ruleBase:     ruleBase{name: "quota:" + resourceType, priority: 150},
		resourceType: resourceType,
		limit:        limit,
		period:       period,
		usage:        usage,
	}
	for _, opt := range opts {
		opt(&r.ruleBase)
	}
	return r
}

// Evaluate implements Rule. An anonymous principal cannot consume quota, so
// it is denied outright; a failing lookup is a rule fault for the engine to
// combine per its mode.
func (r *QuotaRule) Evaluate(user authz.Claims, _ string, _ any, _ map[string]any) (bool, error) {
	if r.usage == nil {
		return true, nil
	}
	userID := user.UserID()
	if userID == "" {
		return false, nil
	}
	current, err := r.usage(userID, r.resourceType, r.period)
	if err != nil {
		return false, fmt.Errorf("usage lookup for %s: %w", r.resourceType, err)
	}
	return current < r.limit, nil
}
