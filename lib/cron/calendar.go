package cron

import (
	"errors"
	"fmt"
)

const (
	secondsPerMinute = 60
	secondsPerHour   = 60 * secondsPerMinute
	secondsPerDay    = 24 * secondsPerHour

	// Days from 0000-03-01 to 1970-01-01 in the proleptic Gregorian calendar
	epochShift = 719468
	// Days in one 400-year Gregorian era
	daysPerEra = 146097
)

// ErrInvalidDate is returned when a civil date/time has a component outside
// its valid range (including a day past the end of its month)
var ErrInvalidDate = errors.New("cron: invalid date")

// DateTime is a civil date and time with minute resolution. It carries no
// zone; all conversions are against the single UTC clock.
type DateTime struct {
	Year   int64
	Month  int // 1-12
	Day    int // 1-31
	Hour   int // 0-23
	Minute int // 0-59
}

func (dt DateTime) String() string {
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d", dt.Year, dt.Month, dt.Day, dt.Hour, dt.Minute)
}

// IsLeapYear reports whether year is a Gregorian leap year
func IsLeapYear(year int64) bool {
	return (year%4 == 0 && year%100 != 0) || year%400 == 0
}

// DaysInMonth returns the number of days in the given month of the given year
func DaysInMonth(year int64, month int) int {
	switch month {
	case 2:
		if IsLeapYear(year) {
			return 29
		}
		return 28
	case 4, 6, 9, 11:
		return 30
	default:
		return 31
	}
}

// daysFromCivil returns the number of days since 1970-01-01 for the given
// date. The year is shifted to start on March 1 so the leap day is the last
// day of the shifted year, which keeps the month arithmetic linear.
func daysFromCivil(year int64, month, day int) int64 {
	if month <= 2 {
		year--
	}
	era := floorDiv(year, 400)
	yearOfEra := year - era*400 // [0, 399]

	shiftedMonth := int64(month) + 9 // March=0 ... February=11
	if month > 2 {
		shiftedMonth = int64(month) - 3
	}
	dayOfYear := (153*shiftedMonth+2)/5 + int64(day) - 1             // [0, 365]
	dayOfEra := yearOfEra*365 + yearOfEra/4 - yearOfEra/100 + dayOfYear // [0, 146096]

	return era*daysPerEra + dayOfEra - epochShift
}

// civilFromDays is the inverse of daysFromCivil
func civilFromDays(days int64) (year int64, month, day int) {
	days += epochShift
	era := floorDiv(days, daysPerEra)
	dayOfEra := days - era*daysPerEra // [0, 146096]

	yearOfEra := (dayOfEra - dayOfEra/1460 + dayOfEra/36524 - dayOfEra/146096) / 365 // [0, 399]
	dayOfYear := dayOfEra - (365*yearOfEra + yearOfEra/4 - yearOfEra/100)            // [0, 365]
	shiftedMonth := (5*dayOfYear + 2) / 153                                           // [0, 11]

	day = int(dayOfYear - (153*shiftedMonth+2)/5 + 1)
	if shiftedMonth < 10 {
		month = int(shiftedMonth + 3)
	} else {
		month = int(shiftedMonth - 9)
	}

	year = yearOfEra + era*400
	if month <= 2 {
		year++
	}
	return year, month, day
}

// Weekday returns the day of the week for a civil date, 0 = Sunday
func Weekday(year int64, month, day int) int {
	// 1970-01-01 was a Thursday
	return int(((daysFromCivil(year, month, day)+4)%7 + 7) % 7)
}

// SecondsToDateTime converts seconds since the Unix epoch to a civil date
// and time. Seconds within the minute are dropped.
func SecondsToDateTime(seconds int64) DateTime {
	days := floorDiv(seconds, secondsPerDay)
	secondOfDay := seconds - days*secondsPerDay

	year, month, day := civilFromDays(days)
	return DateTime{
		Year:   year,
		Month:  month,
		Day:    day,
		Hour:   int(secondOfDay / secondsPerHour),
		Minute: int(secondOfDay % secondsPerHour / secondsPerMinute),
	}
}

// DateTimeToSeconds converts a civil date and time to seconds since the Unix
// epoch. Returns ErrInvalidDate if any component is out of range.
func DateTimeToSeconds(year int64, month, day, hour, minute int) (int64, error) {
	if month < 1 || month > 12 {
		return 0, fmt.Errorf("%w: month %d", ErrInvalidDate, month)
	}
	if day < 1 || day > DaysInMonth(year, month) {
		return 0, fmt.Errorf("%w: day %d in %04d-%02d", ErrInvalidDate, day, year, month)
	}
	if hour < 0 || hour > 23 {
		return 0, fmt.Errorf("%w: hour %d", ErrInvalidDate, hour)
	}
	if minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: minute %d", ErrInvalidDate, minute)
	}

	return daysFromCivil(year, month, day)*secondsPerDay +
		int64(hour)*secondsPerHour +
		int64(minute)*secondsPerMinute, nil
}

// floorDiv divides rounding toward negative infinity
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// floorMod returns a modulo b with the sign of b
func floorMod(a, b int64) int64 {
	return a - floorDiv(a, b)*b
}
