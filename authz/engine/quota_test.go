package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/kudeepakh/farm-authz/authz"
)

// MockUsageLookup is a mock implementation of the usage-lookup contract
type MockUsageLookup struct {
	mock.Mock
}

func (m *MockUsageLookup) Count(userID, resourceType, period string) (int, error) {
	args := m.Called(userID, resourceType, period)
	return args.Int(0), args.Error(1)
}

func TestQuotaRule_Defaults(t *testing.T) {
	r := NewQuotaRule("posts", 10, "day", nil)
	assert.Equal(t, "quota:posts", r.Name())
	assert.Equal(t, 150, r.Priority())

	r = NewQuotaRule("posts", 10, "day", nil, WithPriority(500))
	assert.Equal(t, 500, r.Priority())
}

func TestQuotaRule_NoLookupAllows(t *testing.T) {
	r := NewQuotaRule("posts", 0, "day", nil)

	allowed, err := r.Evaluate(authz.Claims{"user_id": "42"}, "create", nil, nil)
	assert.NoError(t, err)
	assert.True(t, allowed, "quota degrades open without a usage lookup")
}

func TestQuotaRule_NoUserDenies(t *testing.T) {
	lookup := new(MockUsageLookup)
	r := NewQuotaRule("posts", 10, "day", lookup.Count)

	allowed, err := r.Evaluate(authz.Claims{}, "create", nil, nil)
	assert.NoError(t, err)
	assert.False(t, allowed)
	lookup.AssertNotCalled(t, "Count", mock.Anything, mock.Anything, mock.Anything)
}

func TestQuotaRule_LimitBoundary(t *testing.T) {
	tests := []struct {
		usage int
		limit int
		want  bool
	}{
		{0, 10, true},
		{9, 10, true},
		{10, 10, false}, // usage equal to the limit denies
		{11, 10, false},
	}

	for _, tt := range tests {
		lookup := new(MockUsageLookup)
		lookup.On("Count", "42", "posts", "day").Return(tt.usage, nil)

		r := NewQuotaRule("posts", tt.limit, "day", lookup.Count)
		allowed, err := r.Evaluate(authz.Claims{"user_id": "42"}, "create", nil, nil)

		assert.NoError(t, err)
		assert.Equal(t, tt.want, allowed, "usage=%d limit=%d", tt.usage, tt.limit)
		lookup.AssertExpectations(t)
	}
}

func TestQuotaRule_LookupErrorIsAFault(t *testing.T) {
	lookup := new(MockUsageLookup)
	lookup.On("Count", "42", "posts", "day").Return(0, errors.New("connection refused"))

	r := NewQuotaRule("posts", 10, "day", lookup.Count)
	allowed, err := r.Evaluate(authz.Claims{"user_id": "42"}, "create", nil, nil)

	assert.Error(t, err)
	assert.False(t, allowed)
}

func TestQuotaRule_FaultDeniesInAllMode(t *testing.T) {
	lookup := new(MockUsageLookup)
	lookup.On("Count", "42", "posts", "day").Return(0, errors.New("connection refused"))

	e := New()
	e.AddRule(NewQuotaRule("posts", 10, "day", lookup.Count))

	assert.False(t, e.Can(authz.Claims{"user_id": "42"}, "create", nil, nil))
}
