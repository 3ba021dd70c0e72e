// Package usage provides implementations of the quota usage-lookup
// contract. They are read-only collaborators: the authorization core itself
// persists nothing.
package usage

import (
	"database/sql"
	"fmt"
	"time"
)

const usageTable = "resource_usage"

// PostgresCounter counts a principal's resource usage rows from Postgres.
// Its Count method satisfies engine.UsageFunc.
type PostgresCounter struct {
	db  *sql.DB
	now func() time.Time // test seam
}

// NewPostgresCounter creates a counter reading from the resource_usage
// table.
func NewPostgresCounter(db *sql.DB) *PostgresCounter {
	return &PostgresCounter{
		db:  db,
		now: time.Now,
	}
}

// Count returns how many resources of the given type the user created in
// the current period bucket. Recognized periods are "day", "week" and
// "month"; anything else counts all rows for the user and type.
func (c *PostgresCounter) Count(userID, resourceType, period string) (int, error) {
	var (
		count int
		err   error
	)
	if since, bounded := c.periodStart(period); bounded {
		query := "SELECT COUNT(*) FROM " + usageTable +
			" WHERE user_id = $1 AND resource_type = $2 AND created_at >= $3"
		err = c.db.QueryRow(query, userID, resourceType, since).Scan(&count)
	} else {
		query := "SELECT COUNT(*) FROM " + usageTable +
			" WHERE user_id = $1 AND resource_type = $2"
		err = c.db.QueryRow(query, userID, resourceType).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count %s usage: %w", resourceType, err)
	}
	return count, nil
}

// periodStart returns the UTC start of the current period bucket, and
// whether the period bounds the count at all.
func (c *PostgresCounter) periodStart(period string) (time.Time, bool) {
	now := c.now().UTC()
	switch period {
	case "day":
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), true
	case "week":
		daysSinceMonday := (int(now.Weekday()) + 6) % 7
		monday := now.AddDate(0, 0, -daysSinceMonday)
		return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, time.UTC), true
	case "month":
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}
