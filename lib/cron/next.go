package cron

import "fmt"

// horizonYears bounds the search: a schedule that has not fired within this
// many calendar years of the starting point is reported as never firing.
const horizonYears = 5

// NextOccurrence returns the earliest instant, in seconds since the Unix
// epoch, that is strictly greater than after and satisfies every field of s.
// The boolean is false when no such instant exists within horizonYears
// calendar years of the search start.
//
// The search moves a civil cursor field by field, jumping straight to the
// next allowed value and carrying into the coarser field when none is left,
// so its cost depends on calendar granularity rather than on minutes elapsed.
func NextOccurrence(s Schedule, after int64) (int64, bool) {
	// Next whole minute, strictly after 'after' even on a minute boundary
	rounded := after + secondsPerMinute - floorMod(after, secondsPerMinute)

	cursor := SecondsToDateTime(rounded)
	horizon := cursor.Year + horizonYears

	for cursor.Year <= horizon {
		if s.settle(&cursor) {
			return mustSeconds(cursor), true
		}
	}
	return 0, false
}

// settle runs one pass over the fields in priority order: month, day, hour,
// minute. It returns true when every field already matched. Otherwise it
// moves the cursor forward on the first mismatching field, resetting all finer
// fields, and returns false so the caller restarts from the month.
func (s Schedule) settle(c *DateTime) bool {
	return s.settleMonth(c) &&
		s.settleDay(c) &&
		s.settleHour(c) &&
		s.settleMinute(c)
}

func (s Schedule) settleMonth(c *DateTime) bool {
	if hasBit(s.Months, c.Month) {
		return true
	}

	if month, ok := nextBit(s.Months, c.Month, 12); ok {
		c.Month = month
	} else {
		c.Year++
		c.Month = 1
		// Without any month bit the cursor keeps rolling a year per pass
		// until the horizon ends the search.
		if first, ok := nextBit(s.Months, 1, 12); ok {
			c.Month = first
		}
	}
	c.Day, c.Hour, c.Minute = 1, 0, 0
	return false
}

func (s Schedule) settleDay(c *DateTime) bool {
	dim := DaysInMonth(c.Year, c.Month)
	allowed := allowedDays(s, c.Year, c.Month, dim)
	if c.Day <= dim && hasBit(allowed, c.Day) {
		return true
	}

	if day, ok := nextBit(allowed, c.Day, dim); ok {
		c.Day = day
	} else {
		c.Month++
		if c.Month > 12 {
			c.Month = 1
			c.Year++
		}
		c.Day = 1
	}
	c.Hour, c.Minute = 0, 0
	return false
}

func (s Schedule) settleHour(c *DateTime) bool {
	if c.Hour <= 23 && hasBit(s.Hours, c.Hour) {
		return true
	}

	if hour, ok := nextBit(s.Hours, c.Hour, 23); ok {
		c.Hour = hour
	} else {
		// A day past the end of the month is corrected by settleDay
		c.Day++
		c.Hour = 0
	}
	c.Minute = 0
	return false
}

func (s Schedule) settleMinute(c *DateTime) bool {
	if hasBit(s.Minutes, c.Minute) {
		return true
	}

	if minute, ok := nextBit(s.Minutes, c.Minute, 59); ok {
		c.Minute = minute
	} else {
		// An hour of 24 is corrected by settleHour
		c.Hour++
		c.Minute = 0
	}
	return false
}

// allowedDays returns the mask of days in [1, daysInMonth] that satisfy the
// day-of-month and day-of-week fields for the given month.
//
// Cron standard behavior:
// - If both fields are "*": every day matches
// - If only one is restricted: match on that field only
// - If both are restricted: match if EITHER matches (OR logic)
func allowedDays(s Schedule, year int64, month, daysInMonth int) uint64 {
	monthDays := rangeMask(1, daysInMonth, 1)

	switch {
	case s.DomWildcard && s.DowWildcard:
		return monthDays
	case s.DomWildcard:
		return weekdayDays(s.DaysOfWeek, year, month, daysInMonth)
	case s.DowWildcard:
		return s.DaysOfMonth & monthDays
	default:
		return (s.DaysOfMonth | weekdayDays(s.DaysOfWeek, year, month, daysInMonth)) & monthDays
	}
}

// weekdayDays returns the mask of days in the month whose weekday is set in dow
func weekdayDays(dow uint64, year int64, month, daysInMonth int) uint64 {
	var mask uint64
	weekday := Weekday(year, month, 1)
	for day := 1; day <= daysInMonth; day++ {
		if hasBit(dow, weekday) {
			mask |= 1 << uint(day)
		}
		weekday = (weekday + 1) % 7
	}
	return mask
}

// nextBit returns the lowest set bit position in [from, max]
func nextBit(mask uint64, from, max int) (int, bool) {
	for pos := from; pos <= max && pos < 64; pos++ {
		if pos >= 0 && hasBit(mask, pos) {
			return pos, true
		}
	}
	return 0, false
}

func hasBit(mask uint64, pos int) bool {
	return pos >= 0 && pos < 64 && mask&(1<<uint(pos)) != 0
}

// mustSeconds converts a settled cursor back to seconds. Every field was
// clipped to its valid range while settling, so a failure here means the
// search itself is broken.
func mustSeconds(c DateTime) int64 {
	seconds, err := DateTimeToSeconds(c.Year, c.Month, c.Day, c.Hour, c.Minute)
	if err != nil {
		panic(fmt.Sprintf("cron: settled on impossible time %s: %v", c, err))
	}
	return seconds
}
