package main

import (
	"errors"
	"fmt"
	"io"
	"math/bits"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/livinlefevreloca/cronnext/lib/cron"
)

func runNext(args []string, stdout io.Writer) error {
	var (
		configPath string
		after      string
		count      int
	)
	flags := newFlagSet("next", stdout, &configPath)
	flags.StringVar(&after, "after", "", "start instant, RFC3339 or unix seconds (default now)")
	flags.IntVarP(&count, "count", "n", 5, "number of fire times to print")
	if err := flags.Parse(args); err != nil {
		return err
	}

	expr, err := expressionArg(flags.Args())
	if err != nil {
		return err
	}
	if count <= 0 {
		return fmt.Errorf("--count must be positive, got %d", count)
	}

	schedule, err := cron.Parse(expr)
	if err != nil {
		return err
	}

	start := time.Now().UTC()
	if after != "" {
		if start, err = parseInstant(after); err != nil {
			return err
		}
	}

	times := schedule.NextN(start, count)
	for _, t := range times {
		fmt.Fprintln(stdout, t.Format(time.RFC3339))
	}
	if len(times) < count {
		fmt.Fprintln(stdout, "no further occurrence")
	}
	return nil
}

// description is the YAML shape printed by describe
type description struct {
	Expression  string   `yaml:"expression"`
	Canonical   string   `yaml:"canonical"`
	Minutes     []int    `yaml:"minutes,flow"`
	Hours       []int    `yaml:"hours,flow"`
	DaysOfMonth []int    `yaml:"days_of_month,flow"`
	Months      []int    `yaml:"months,flow"`
	DaysOfWeek  []int    `yaml:"days_of_week,flow"`
	DomWildcard bool     `yaml:"dom_wildcard"`
	DowWildcard bool     `yaml:"dow_wildcard"`
	Next        []string `yaml:"next"`
}

func runDescribe(args []string, stdout io.Writer) error {
	var (
		configPath string
		count      int
	)
	flags := newFlagSet("describe", stdout, &configPath)
	flags.IntVarP(&count, "count", "n", 3, "number of upcoming fire times to include")
	if err := flags.Parse(args); err != nil {
		return err
	}

	expr, err := expressionArg(flags.Args())
	if err != nil {
		return err
	}

	schedule, err := cron.Parse(expr)
	if err != nil {
		return err
	}

	desc := description{
		Expression:  expr,
		Canonical:   schedule.String(),
		Minutes:     maskValues(schedule.Minutes),
		Hours:       maskValues(schedule.Hours),
		DaysOfMonth: maskValues(schedule.DaysOfMonth),
		Months:      maskValues(schedule.Months),
		DaysOfWeek:  maskValues(schedule.DaysOfWeek),
		DomWildcard: schedule.DomWildcard,
		DowWildcard: schedule.DowWildcard,
		Next:        []string{},
	}
	for _, t := range schedule.NextN(time.Now().UTC(), count) {
		desc.Next = append(desc.Next, t.Format(time.RFC3339))
	}

	enc := yaml.NewEncoder(stdout)
	enc.SetIndent(2)
	if err := enc.Encode(desc); err != nil {
		return fmt.Errorf("encode description: %w", err)
	}
	return enc.Close()
}

// expressionArg accepts the expression either quoted as one argument or as
// five separate arguments
func expressionArg(args []string) (string, error) {
	switch len(args) {
	case 0:
		return "", errors.New("missing cron expression")
	case 1:
		return args[0], nil
	default:
		return strings.Join(args, " "), nil
	}
}

// parseInstant reads RFC3339 or integer unix seconds
func parseInstant(s string) (time.Time, error) {
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid instant %q: want RFC3339 or unix seconds", s)
	}
	return t.UTC(), nil
}

// maskValues lists the set bit positions of mask in ascending order
func maskValues(mask uint64) []int {
	values := make([]int, 0, bits.OnesCount64(mask))
	for mask != 0 {
		pos := bits.TrailingZeros64(mask)
		values = append(values, pos)
		mask &^= 1 << uint(pos)
	}
	return values
}
