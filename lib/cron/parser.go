package cron

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidExpression is wrapped by every error returned from Parse
var ErrInvalidExpression = errors.New("cron: invalid expression")

// fieldSpec describes one of the five positional fields
type fieldSpec struct {
	name     string
	min, max int
}

var fieldSpecs = [5]fieldSpec{
	{"minute", 0, 59},
	{"hour", 0, 23},
	{"day-of-month", 1, 31},
	{"month", 1, 12},
	{"day-of-week", 0, 6},
}

// parse parses a cron expression into a Schedule
func parse(expr string) (Schedule, error) {
	// Split on whitespace
	fields := strings.Fields(expr)

	// Verify exactly 5 fields
	if len(fields) != len(fieldSpecs) {
		return Schedule{}, fmt.Errorf("%w: expected 5 fields, got %d", ErrInvalidExpression, len(fields))
	}

	// The wildcard flags are textual facts about the expression; "*/1" or
	// "1-31" select the same days as "*" but do not set them.
	domWildcard := fields[2] == wildcard
	dowWildcard := fields[4] == wildcard

	var masks [5]uint64
	for i, spec := range fieldSpecs {
		mask, err := parseField(fields[i], spec.min, spec.max)
		if err != nil {
			return Schedule{}, fmt.Errorf("%w: %s field %q: %v", ErrInvalidExpression, spec.name, fields[i], err)
		}
		// Bits below min (day 0, month 0) can never be produced by parseField,
		// but the stored mask is always clipped to the field's domain.
		masks[i] = mask & rangeMask(spec.min, spec.max, 1)
	}

	return Schedule{
		Minutes:     masks[0],
		Hours:       masks[1],
		DaysOfMonth: masks[2],
		Months:      masks[3],
		DaysOfWeek:  masks[4],
		DomWildcard: domWildcard,
		DowWildcard: dowWildcard,
	}, nil
}
