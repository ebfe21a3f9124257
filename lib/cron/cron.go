package cron

import (
	"math/bits"
	"strconv"
	"strings"
	"time"
)

// Schedule is a parsed 5-field cron expression. Bit i of each mask is set
// when the literal field value i is allowed, so bit 0 of DaysOfMonth and
// Months is always clear after Parse.
//
// The fields are exported so callers can persist a Schedule column by column
// and rebuild it without reparsing. A Schedule is a plain value and safe to
// share between goroutines.
type Schedule struct {
	Minutes     uint64 // 0-59
	Hours       uint64 // 0-23
	DaysOfMonth uint64 // 1-31
	Months      uint64 // 1-12
	DaysOfWeek  uint64 // 0-6 (0=Sunday)

	// Set only when the source field was literally "*". These decide which
	// day matching rule applies and cannot be recovered from the masks.
	DomWildcard bool
	DowWildcard bool
}

// Parse parses a cron expression
// Returns an error wrapping ErrInvalidExpression if:
// - Format is invalid (not 5 fields)
// - Any field contains invalid syntax or an out-of-range value
//
// A schedule that can never fire (e.g. Feb 30th) still parses; Next
// reports no occurrence for it.
func Parse(expr string) (Schedule, error) {
	return parse(expr)
}

// MustParse is like Parse but panics if the expression is invalid
func MustParse(expr string) Schedule {
	s, err := parse(expr)
	if err != nil {
		panic(err)
	}
	return s
}

// Next returns the earliest minute strictly after 'after' that matches the
// schedule, evaluated in UTC. The boolean is false when nothing matches
// within the five year lookahead.
func (s Schedule) Next(after time.Time) (time.Time, bool) {
	next, ok := NextOccurrence(s, after.Unix())
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(next, 0).UTC(), true
}

// NextN calculates up to count occurrences of this schedule after the given time
// "After" means strictly after - if 'after' is exactly at a scheduled time, that time is NOT included
// Returns fewer than count times if the schedule runs out of occurrences
func (s Schedule) NextN(after time.Time, count int) []time.Time {
	if count <= 0 {
		return []time.Time{}
	}
	results := make([]time.Time, 0, count)

	current := after.Unix()
	for len(results) < count {
		next, ok := NextOccurrence(s, current)
		if !ok {
			break
		}
		results = append(results, time.Unix(next, 0).UTC())
		current = next
	}

	return results
}

// Between calculates all occurrences within the given time window [start, end)
// Start is inclusive (after truncation to the minute), end is exclusive
// Returns all matching times in chronological order
func (s Schedule) Between(start, end time.Time) []time.Time {
	results := []time.Time{}
	if !start.Before(end) {
		return results
	}

	// One second before the first candidate minute so that minute is included
	current := start.Truncate(time.Minute).Unix() - 1
	limit := end.Unix()
	if end.Nanosecond() > 0 {
		limit++
	}

	for {
		next, ok := NextOccurrence(s, current)
		if !ok || next >= limit {
			break
		}
		results = append(results, time.Unix(next, 0).UTC())
		current = next
	}

	return results
}

// Matches reports whether the minute containing t satisfies every field
func (s Schedule) Matches(t time.Time) bool {
	dt := SecondsToDateTime(t.Unix())
	dim := DaysInMonth(dt.Year, dt.Month)
	return hasBit(s.Minutes, dt.Minute) &&
		hasBit(s.Hours, dt.Hour) &&
		hasBit(s.Months, dt.Month) &&
		hasBit(allowedDays(s, dt.Year, dt.Month, dim), dt.Day)
}

// String renders the schedule as a canonical cron expression
func (s Schedule) String() string {
	dom := formatMask(s.DaysOfMonth, 1, 31, false)
	if s.DomWildcard {
		dom = wildcard
	}
	dow := formatMask(s.DaysOfWeek, 0, 6, false)
	if s.DowWildcard {
		dow = wildcard
	}
	return strings.Join([]string{
		formatMask(s.Minutes, 0, 59, true),
		formatMask(s.Hours, 0, 23, true),
		dom,
		formatMask(s.Months, 1, 12, true),
		dow,
	}, " ")
}

// formatMask writes the set bits in [min, max] as a list of values and
// ranges. When collapse is true a full mask is written as "*".
func formatMask(mask uint64, min, max int, collapse bool) string {
	mask &= rangeMask(min, max, 1)
	if collapse && mask == rangeMask(min, max, 1) {
		return wildcard
	}
	if mask == 0 {
		// Unsatisfiable; not produced by Parse
		return "-"
	}

	var parts []string
	for mask != 0 {
		start := bits.TrailingZeros64(mask)
		run := bits.TrailingZeros64(^(mask >> uint(start)))
		end := start + run - 1
		switch {
		case run == 1:
			parts = append(parts, strconv.Itoa(start))
		case run == 2:
			parts = append(parts, strconv.Itoa(start), strconv.Itoa(end))
		default:
			parts = append(parts, strconv.Itoa(start)+"-"+strconv.Itoa(end))
		}
		mask &^= rangeMask(start, end, 1)
	}
	return strings.Join(parts, ",")
}
