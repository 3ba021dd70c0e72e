package usage

import (
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCounter(t *testing.T) (*PostgresCounter, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	counter := NewPostgresCounter(db)
	counter.now = func() time.Time {
		// Wednesday 2026-08-26
		return time.Date(2026, time.August, 26, 15, 30, 0, 0, time.UTC)
	}
	return counter, mock
}

func TestPostgresCounter_CountDay(t *testing.T) {
	counter, mock := newCounter(t)

	dayStart := time.Date(2026, time.August, 26, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM resource_usage WHERE user_id = \$1 AND resource_type = \$2 AND created_at >= \$3`).
		WithArgs("42", "posts", dayStart).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := counter.Count("42", "posts", "day")
	assert.NoError(t, err)
	assert.Equal(t, 7, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCounter_CountWeek(t *testing.T) {
	counter, mock := newCounter(t)

	// Monday of that week
	weekStart := time.Date(2026, time.August, 24, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM resource_usage`).
		WithArgs("42", "posts", weekStart).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := counter.Count("42", "posts", "week")
	assert.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestPostgresCounter_CountMonth(t *testing.T) {
	counter, mock := newCounter(t)

	monthStart := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM resource_usage`).
		WithArgs("42", "posts", monthStart).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

	count, err := counter.Count("42", "posts", "month")
	assert.NoError(t, err)
	assert.Equal(t, 12, count)
}

func TestPostgresCounter_UnknownPeriodCountsAllRows(t *testing.T) {
	counter, mock := newCounter(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM resource_usage WHERE user_id = \$1 AND resource_type = \$2$`).
		WithArgs("42", "posts").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(99))

	count, err := counter.Count("42", "posts", "lifetime")
	assert.NoError(t, err)
	assert.Equal(t, 99, count)
}

func TestPostgresCounter_QueryError(t *testing.T) {
	counter, mock := newCounter(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM resource_usage`).
		WithArgs("42", "posts").
		WillReturnError(errors.New("connection refused"))

	_, err := counter.Count("42", "posts", "lifetime")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "posts")
}
