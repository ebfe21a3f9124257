package cron

import (
	"fmt"
	"strconv"
	"strings"
)

// wildcard is the literal token that selects every value of a field
const wildcard = "*"

// parseField parses a single cron field into a bitmask where bit i is set
// when value i is allowed. Every value must fall within [min, max].
func parseField(field string, min, max int) (uint64, error) {
	if field == "" {
		return 0, fmt.Errorf("empty field")
	}

	if field == wildcard {
		return rangeMask(min, max, 1), nil
	}

	var mask uint64
	for _, part := range strings.Split(field, ",") {
		bits, err := parsePart(part, min, max)
		if err != nil {
			return 0, err
		}
		mask |= bits
	}
	return mask, nil
}

// parsePart parses one comma-separated element: N, A-B, */S or A-B/S
func parsePart(part string, min, max int) (uint64, error) {
	if part == "" {
		return 0, fmt.Errorf("empty value in list")
	}

	rangeExpr, stepExpr, hasStep := strings.Cut(part, "/")
	if !hasStep {
		if strings.Contains(part, "-") {
			start, end, err := parseRange(part, min, max)
			if err != nil {
				return 0, err
			}
			return rangeMask(start, end, 1), nil
		}
		val, err := parseValue(part, min, max)
		if err != nil {
			return 0, err
		}
		return 1 << uint(val), nil
	}

	step, err := parseStep(stepExpr)
	if err != nil {
		return 0, err
	}

	switch {
	case rangeExpr == wildcard:
		return rangeMask(min, max, step), nil
	case strings.Contains(rangeExpr, "-"):
		start, end, err := parseRange(rangeExpr, min, max)
		if err != nil {
			return 0, err
		}
		return rangeMask(start, end, step), nil
	default:
		return 0, fmt.Errorf("invalid step range %q", rangeExpr)
	}
}

// parseStep parses the S in */S or A-B/S
func parseStep(expr string) (int, error) {
	step, err := parseNumber(expr)
	if err != nil {
		return 0, fmt.Errorf("invalid step value: %w", err)
	}
	if step <= 0 {
		return 0, fmt.Errorf("step must be greater than 0")
	}
	return step, nil
}

// parseRange parses a range like 1-5
func parseRange(expr string, min, max int) (int, int, error) {
	startExpr, endExpr, _ := strings.Cut(expr, "-")

	start, err := parseNumber(startExpr)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid range start: %w", err)
	}
	end, err := parseNumber(endExpr)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid range end: %w", err)
	}

	if start < min || start > max {
		return 0, 0, fmt.Errorf("range start %d out of bounds [%d, %d]", start, min, max)
	}
	if end < min || end > max {
		return 0, 0, fmt.Errorf("range end %d out of bounds [%d, %d]", end, min, max)
	}
	if start > end {
		return 0, 0, fmt.Errorf("invalid range: start %d > end %d", start, end)
	}
	return start, end, nil
}

// parseValue parses a single bounded integer value
func parseValue(expr string, min, max int) (int, error) {
	val, err := parseNumber(expr)
	if err != nil {
		return 0, fmt.Errorf("invalid value: %w", err)
	}
	if val < min || val > max {
		return 0, fmt.Errorf("value %d out of bounds [%d, %d]", val, min, max)
	}
	return val, nil
}

// parseNumber accepts only a non-empty run of ASCII digits. Signs, spaces
// and any other characters are rejected before strconv sees them.
func parseNumber(expr string) (int, error) {
	if expr == "" {
		return 0, fmt.Errorf("missing number")
	}
	for i := 0; i < len(expr); i++ {
		if expr[i] < '0' || expr[i] > '9' {
			return 0, fmt.Errorf("%q is not a number", expr)
		}
	}
	return strconv.Atoi(expr)
}

// rangeMask sets every step-th bit from start through end inclusive
func rangeMask(start, end, step int) uint64 {
	var mask uint64
	for i := start; i <= end; i += step {
		mask |= 1 << uint(i)
		if end-i < step {
			// avoid overflowing i with very large steps
			break
		}
	}
	return mask
}
