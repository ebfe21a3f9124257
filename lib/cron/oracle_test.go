package cron

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	robfig "github.com/robfig/cron/v3"
)

// The standard 5-field parser from robfig/cron shares the day-of-month /
// day-of-week union rule, so it serves as an independent oracle for Next.
// The only semantic gap is "*/1", which robfig treats as a wildcard; the
// generator below never emits a step of 1.
var oracleParser = robfig.NewParser(robfig.Minute | robfig.Hour | robfig.Dom | robfig.Month | robfig.Dow)

func randomField(rng *rand.Rand, min, max int) string {
	value := func() int { return min + rng.Intn(max-min+1) }

	switch rng.Intn(6) {
	case 0:
		return "*"
	case 1:
		return fmt.Sprintf("%d", value())
	case 2:
		a, b := value(), value()
		if a > b {
			a, b = b, a
		}
		return fmt.Sprintf("%d-%d", a, b)
	case 3:
		return fmt.Sprintf("*/%d", 2+rng.Intn(max-min))
	case 4:
		a, b := value(), value()
		if a > b {
			a, b = b, a
		}
		return fmt.Sprintf("%d-%d/%d", a, b, 2+rng.Intn(5))
	default:
		parts := make([]string, 1+rng.Intn(3))
		for i := range parts {
			parts[i] = fmt.Sprintf("%d", value())
		}
		return strings.Join(parts, ",")
	}
}

func randomExpression(rng *rand.Rand) string {
	return strings.Join([]string{
		randomField(rng, 0, 59),
		randomField(rng, 0, 23),
		// Days past the 28th make some schedules fire only every few years,
		// where the two search horizons are not guaranteed to agree
		randomField(rng, 1, 28),
		randomField(rng, 1, 12),
		randomField(rng, 0, 6),
	}, " ")
}

func TestNext_MatchesRobfigCron(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	starts := []time.Time{
		makeTime(2024, 1, 1, 0, 0),
		time.Date(2024, 2, 28, 23, 59, 59, 0, time.UTC),
		time.Date(2025, 6, 12, 8, 0, 30, 0, time.UTC),
		makeTime(2025, 12, 31, 23, 59),
		time.Date(2099, 7, 4, 13, 17, 1, 500, time.UTC),
	}

	for i := 0; i < 300; i++ {
		expr := randomExpression(rng)

		cs, err := Parse(expr)
		if err != nil {
			t.Fatalf("Parse(%q) unexpected error: %v", expr, err)
		}
		ref, err := oracleParser.Parse(expr)
		if err != nil {
			t.Fatalf("robfig Parse(%q) unexpected error: %v", expr, err)
		}

		for _, start := range starts {
			current := start
			for n := 0; n < 3; n++ {
				want := ref.Next(current)
				got, ok := cs.Next(current)
				if want.IsZero() {
					if ok {
						t.Errorf("%q after %v: got %v, robfig found nothing", expr, current, got)
					}
					break
				}
				if !ok || !got.Equal(want) {
					t.Errorf("%q after %v: got %v (ok=%v), robfig gives %v", expr, current, got, ok, want)
					break
				}
				current = got
			}
		}
	}
}

func TestBetween_MatchesRobfigCron(t *testing.T) {
	start := makeTime(2024, 1, 1, 0, 0)
	end := makeTime(2024, 3, 1, 0, 0)

	for _, expr := range testCronExpressions {
		ref, err := oracleParser.Parse(expr)
		if err != nil {
			t.Fatalf("robfig Parse(%q) unexpected error: %v", expr, err)
		}
		var want []time.Time
		for ts := ref.Next(start.Add(-time.Second)); !ts.IsZero() && ts.Before(end); ts = ref.Next(ts) {
			want = append(want, ts)
		}

		got := mustParse(t, expr).Between(start, end)
		if len(want) == 0 {
			want = []time.Time{}
		}
		assertTimes(t, want, got)
	}
}
