package db

import (
	"time"

	"github.com/livinlefevreloca/cronnext/lib/cron"
)

// Schedule statuses
const (
	StatusActive    = "active"
	StatusExhausted = "exhausted"
)

// Record is a registered schedule. The parsed masks are persisted field by
// field so the runner never reparses the expression.
type Record struct {
	ID          string
	Name        string
	Expression  string
	Handler     string
	MinuteMask  uint64
	HourMask    uint64
	DomMask     uint64
	MonthMask   uint64
	DowMask     uint64
	DomWildcard bool
	DowWildcard bool
	Status      string
	NextFireAt  *int64 // unix seconds, nil until primed or once exhausted
	LastFiredAt *int64 // unix seconds
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewRecord builds an active record for a parsed schedule. The ID is left
// empty and assigned by CreateSchedule.
func NewRecord(name, expression, handler string, s cron.Schedule) *Record {
	return &Record{
		Name:        name,
		Expression:  expression,
		Handler:     handler,
		MinuteMask:  s.Minutes,
		HourMask:    s.Hours,
		DomMask:     s.DaysOfMonth,
		MonthMask:   s.Months,
		DowMask:     s.DaysOfWeek,
		DomWildcard: s.DomWildcard,
		DowWildcard: s.DowWildcard,
		Status:      StatusActive,
	}
}

// CronSchedule rebuilds the parsed schedule from the persisted masks
func (r *Record) CronSchedule() cron.Schedule {
	return cron.Schedule{
		Minutes:     r.MinuteMask,
		Hours:       r.HourMask,
		DaysOfMonth: r.DomMask,
		Months:      r.MonthMask,
		DaysOfWeek:  r.DowMask,
		DomWildcard: r.DomWildcard,
		DowWildcard: r.DowWildcard,
	}
}

// Fire is a single attempt to run a schedule's handler at FireAt
type Fire struct {
	ScheduleID  string
	FireAt      int64 // unix seconds
	StartedAt   time.Time
	CompletedAt *time.Time
	Success     *bool
	Error       *string
}
