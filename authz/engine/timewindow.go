package engine

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kudeepakh/farm-authz/authz"
)

var validate = validator.New()

// TimeWindowConfig bounds when a TimeWindowRule allows access. Every field
// is optional; an empty config always allows. The time window must not
// cross midnight: Start and End are compared to the current "HH:MM"
// lexicographically.
type TimeWindowConfig struct {
	Start     string `validate:"omitempty,datetime=15:04"`      // "HH:MM", inclusive
	End       string `validate:"omitempty,datetime=15:04"`      // "HH:MM", inclusive
	Weekdays  []int  `validate:"omitempty,dive,min=1,max=7"`    // 1=Monday .. 7=Sunday
	StartDate string `validate:"omitempty,datetime=2006-01-02"` // inclusive
	EndDate   string `validate:"omitempty,datetime=2006-01-02"` // inclusive
	Timezone  string // IANA name, defaults to UTC
}

// TimeWindowRule allows access only inside a configured time window,
// evaluated against the current time in the rule's timezone.
type TimeWindowRule struct {
	ruleBase
	config   TimeWindowConfig
	location *time.Location

	now func() time.Time // test seam
}

// NewTimeWindowRule validates the config and builds the rule. Default
// priority is 200.
func NewTimeWindowRule(name string, config TimeWindowConfig, opts ...RuleOption) (*TimeWindowRule, error) {
	if err := validate.Struct(config); err != nil {
		return nil, authz.NewDomainError(authz.ErrorTypeConfiguration,
			"invalid time window config for rule "+name, err)
	}

	tz := config.Timezone
	if tz == "" {
		tz = "UTC"
	}
	location, err := time.LoadLocation(tz)
	if err != nil {
		return nil, authz.NewDomainError(authz.ErrorTypeConfiguration,
			"unknown timezone "+tz+" for rule "+name, err)
	}

	r := &TimeWindowRule{
		ruleBase: ruleBase{name: name, priority: 200},
		config:   config,
		location: location,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&r.ruleBase)
	}
	return r, nil
}

// Evaluate implements Rule. The decision depends only on the clock, not on
// the principal or resource.
func (r *TimeWindowRule) Evaluate(_ authz.Claims, _ string, _ any, _ map[string]any) (bool, error) {
	now := r.now().In(r.location)

	if r.config.StartDate != "" || r.config.EndDate != "" {
		day := now.Format("2006-01-02")
		if r.config.StartDate != "" && day < r.config.StartDate {
			return false, nil
		}
		if r.config.EndDate != "" && day > r.config.EndDate {
			return false, nil
		}
	}

	if len(r.config.Weekdays) > 0 && !containsInt(r.config.Weekdays, isoWeekday(now)) {
		return false, nil
	}

	if r.config.Start != "" && r.config.End != "" {
		clock := now.Format("15:04")
		if clock < r.config.Start || clock > r.config.End {
			return false, nil
		}
	}

	return true, nil
}

// isoWeekday maps Go's Sunday-based weekday onto ISO numbering, 1=Monday.
func isoWeekday(t time.Time) int {
	if wd := int(t.Weekday()); wd != 0 {
		return wd
	}
	return 7
}

func containsInt(list []int, v int) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
