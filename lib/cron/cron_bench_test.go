package cron

import (
	"fmt"
	"testing"
	"time"
)

var testCronExpressions = []string{
	"* * * * *",           // Every minute
	"0 * * * *",           // Every hour
	"0 0 * * *",           // Daily
	"*/5 * * * *",         // Every 5 minutes
	"*/15 9-17 * * 1-5",   // Business hours
	"0 0 1 * *",           // Monthly
	"0 0 1 1 *",           // Yearly
	"30 2 * * 0",          // Weekly on Sunday
	"0,30 * * * *",        // Twice an hour
	"0 0,12 * * *",        // Twice a day
	"0 9-17 * * 1-5",      // Hourly on weekdays
	"*/10 8-18 * * 1-5",   // Every 10 min business hours
	"0 0 1,15 * *",        // Twice a month
	"0 0 * * 1",           // Every Monday
	"0 0 31 * *",          // Last day (where applicable)
	"0 0 * 1,6,12 *",      // Quarterly
	"15 10 * * *",         // Daily at 10:15
	"0 */4 * * *",         // Every 4 hours
	"30 3 * * *",          // Daily at 3:30am
	"0 0 * * 0,6",         // Weekends only
}

func BenchmarkParse(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = Parse("*/5 9-17 * * 1-5")
	}
}

func BenchmarkParse_Schedules(b *testing.B) {
	for _, count := range []int{10, 100, 1000, 10000} {
		expressions := make([]string, count)
		for i := 0; i < count; i++ {
			expressions[i] = testCronExpressions[i%len(testCronExpressions)]
		}
		b.Run(fmt.Sprintf("%d", count), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				for _, expr := range expressions {
					_, _ = Parse(expr)
				}
			}
		})
	}
}

func preParsedSchedules(count int) []Schedule {
	schedules := make([]Schedule, count)
	for i := 0; i < count; i++ {
		schedules[i] = MustParse(testCronExpressions[i%len(testCronExpressions)])
	}
	return schedules
}

func BenchmarkNext_EveryMinute(b *testing.B) {
	cs := MustParse("* * * * *")
	after := makeTime(2024, 1, 1, 0, 0)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cs.NextN(after, 100)
	}
}

func BenchmarkNext_Daily(b *testing.B) {
	cs := MustParse("0 0 * * *")
	after := makeTime(2024, 1, 1, 0, 0)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cs.NextN(after, 365)
	}
}

// A schedule that never fires walks the whole horizon
func BenchmarkNext_Unsatisfiable(b *testing.B) {
	cs := MustParse("0 0 31 2 *")
	after := makeTime(2024, 1, 1, 0, 0).Unix()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = NextOccurrence(cs, after)
	}
}

func BenchmarkBetween_OneWeek(b *testing.B) {
	cs := MustParse("0 * * * *")
	start := makeTime(2024, 1, 1, 0, 0)
	end := makeTime(2024, 1, 8, 0, 0)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cs.Between(start, end)
	}
}

func BenchmarkBetween_OneYear(b *testing.B) {
	cs := MustParse("0 0 * * *")
	start := makeTime(2024, 1, 1, 0, 0)
	end := makeTime(2025, 1, 1, 0, 0)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cs.Between(start, end)
	}
}

// Windowed expansion across many schedules, as the runner does when
// building its index

func BenchmarkBetween_Schedules(b *testing.B) {
	windows := []struct {
		name string
		end  time.Time
	}{
		{"1Hour", makeTime(2024, 1, 1, 1, 0)},
		{"1Day", makeTime(2024, 1, 2, 0, 0)},
		{"1Week", makeTime(2024, 1, 8, 0, 0)},
		{"1Month", makeTime(2024, 2, 1, 0, 0)},
	}
	start := makeTime(2024, 1, 1, 0, 0)

	for _, count := range []int{10, 100, 1000} {
		schedules := preParsedSchedules(count)
		for _, w := range windows {
			b.Run(fmt.Sprintf("%d_Schedules_%s", count, w.name), func(b *testing.B) {
				b.ReportAllocs()
				for i := 0; i < b.N; i++ {
					for _, cs := range schedules {
						_ = cs.Between(start, w.end)
					}
				}
			})
		}
	}
}

func BenchmarkNextOccurrence_Schedules(b *testing.B) {
	schedules := preParsedSchedules(1000)
	after := makeTime(2024, 1, 1, 0, 0).Unix()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, cs := range schedules {
			_, _ = NextOccurrence(cs, after)
		}
	}
}
