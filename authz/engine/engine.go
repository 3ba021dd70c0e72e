// Package engine combines independently pluggable policy rules into a single
// allow/deny verdict per call. Rules are kept in descending priority order
// and combined in ALL or ANY mode with short-circuiting; rule faults never
// escape the engine.
package engine

import (
	"fmt"
	"sort"

	"github.com/kudeepakh/farm-authz/authz"
	"go.uber.org/zap"
)

// Mode selects how rule results combine into one verdict.
type Mode string

const (
	// ModeAll denies unless every rule allows.
	ModeAll Mode = "all"
	// ModeAny allows if at least one rule allows.
	ModeAny Mode = "any"
)

// Engine holds an ordered set of rules and produces one allow/deny verdict
// per Can call. Configure it at process bootstrap: AddRule, SetMode and
// ClearRules mutate shared state and are not guarded against concurrent Can
// calls.
type Engine struct {
	rules    []Rule
	mode     Mode
	strict   bool
	logger   *zap.Logger
	recorder Recorder
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithLogger sets the engine's logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithRecorder attaches an audit recorder receiving one record per Can call.
func WithRecorder(recorder Recorder) Option {
	return func(e *Engine) { e.recorder = recorder }
}

// WithStrict flips the default decision of an engine with no rules from
// allow to deny. The fail-open default matches the source behavior; strict
// mode makes the implicit default visible for deployments that want it.
func WithStrict() Option {
	return func(e *Engine) { e.strict = true }
}

// New creates an engine in ALL mode with no rules.
func New(opts ...Option) *Engine {
	e := &Engine{
		mode:   ModeAll,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AddRule registers a rule and re-sorts the rule list descending by
// priority. The sort is stable: equal priorities keep insertion order.
func (e *Engine) AddRule(rule Rule) {
	e.rules = append(e.rules, rule)
	sort.SliceStable(e.rules, func(i, j int) bool {
		return e.rules[i].Priority() > e.rules[j].Priority()
	})
}

// SetMode sets the combination mode. Anything other than "all" or "any" is a
// configuration error, the one hard failure this subsystem surfaces.
func (e *Engine) SetMode(mode string) error {
	switch Mode(mode) {
	case ModeAll, ModeAny:
		e.mode = Mode(mode)
		return nil
	default:
		return fmt.Errorf("%w: %q", authz.ErrInvalidMode, mode)
	}
}

// Mode returns the current combination mode.
func (e *Engine) Mode() Mode {
	return e.mode
}

// Can evaluates all rules in priority order and combines their results per
// the configured mode. With no rules registered the engine allows (or
// denies, in strict mode). A rule fault is an immediate deny in ALL mode; in
// ANY mode the faulty rule is logged and skipped, since one success from any
// other rule suffices.
func (e *Engine) Can(user authz.Claims, action string, resource any, ctx map[string]any) bool {
	record := newAuditRecord(user, action, resource, e.mode)
	defer func() { e.emit(record) }()

	if len(e.rules) == 0 {
		record.Verdict = !e.strict
		return record.Verdict
	}

	anyAllowed := false
	for _, rule := range e.rules {
		allowed, err := e.evaluate(rule, user, action, resource, ctx)
		if err != nil {
			record.addFault(rule, err)
			if e.mode == ModeAll {
				e.logger.Warn("rule evaluation failed, denying",
					zap.String("rule", rule.Name()),
					zap.String("action", action),
					zap.Error(err))
				record.Verdict = false
				return false
			}
			e.logger.Warn("rule evaluation failed, skipping",
				zap.String("rule", rule.Name()),
				zap.String("action", action),
				zap.Error(err))
			continue
		}

		record.addResult(rule, allowed)
		if e.mode == ModeAny && allowed {
			record.Verdict = true
			return true
		}
		if e.mode == ModeAll && !allowed {
			record.Verdict = false
			return false
		}
		if allowed {
			anyAllowed = true
		}
	}

	if e.mode == ModeAll {
		record.Verdict = true
		return true
	}
	record.Verdict = anyAllowed
	return anyAllowed
}

// evaluate runs one rule, converting panics into rule faults so a
// misbehaving rule can never take down request handling.
func (e *Engine) evaluate(rule Rule, user authz.Claims, action string, resource any, ctx map[string]any) (allowed bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			allowed = false
			err = authz.NewDomainError(authz.ErrorTypeEvaluation,
				fmt.Sprintf("rule %s panicked: %v", rule.Name(), r), nil)
		}
	}()
	return rule.Evaluate(user, action, resource, ctx)
}

// EvaluateRule runs a single rule by name in isolation, without touching the
// aggregate verdict. An unknown name returns ErrRuleNotFound.
func (e *Engine) EvaluateRule(name string, user authz.Claims, action string, resource any, ctx map[string]any) (bool, error) {
	for _, rule := range e.rules {
		if rule.Name() == name {
			return e.evaluate(rule, user, action, resource, ctx)
		}
	}
	return false, fmt.Errorf("%w: %s", authz.ErrRuleNotFound, name)
}

// Rules returns the registered rules in evaluation order.
func (e *Engine) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// ClearRules removes all registered rules.
func (e *Engine) ClearRules() {
	e.rules = nil
}

func (e *Engine) emit(record *AuditRecord) {
	e.logger.Debug("authorization decision",
		zap.String("audit_id", record.ID.String()),
		zap.String("user_id", record.UserID),
		zap.String("action", record.Action),
		zap.String("resource_type", record.ResourceType),
		zap.String("mode", string(record.Mode)),
		zap.Bool("verdict", record.Verdict),
		zap.Int("rules_evaluated", len(record.Results)))
	if e.recorder != nil {
		e.recorder.Record(record)
	}
}
