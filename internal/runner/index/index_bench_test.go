package index

import (
	"fmt"
	"sync"
	"testing"
)

// generateFires returns fires grouped by schedule, the order the runner
// produces them while walking its schedules.
func generateFires(count int, start, interval int64) []ScheduledFire {
	fires := make([]ScheduledFire, 0, count)
	schedules := 10
	perSchedule := count / schedules
	if perSchedule == 0 {
		perSchedule = 1
		schedules = count
	}

	for s := 0; s < schedules && len(fires) < count; s++ {
		id := fmt.Sprintf("schedule-%04d", s)
		for i := 0; i < perSchedule && len(fires) < count; i++ {
			fires = append(fires, ScheduledFire{ScheduleID: id, FireAt: start + int64(i)*interval})
		}
	}
	return fires
}

func BenchmarkNew(b *testing.B) {
	for _, n := range []int{10, 1000, 100000} {
		fires := generateFires(n, 0, 60)
		b.Run(fmt.Sprintf("n=%d", n), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				_ = New(fires)
			}
		})
	}
}

func BenchmarkQuery(b *testing.B) {
	for _, n := range []int{1000, 100000} {
		idx := New(generateFires(n, 0, 60))
		mid := int64(n/20) * 60
		b.Run(fmt.Sprintf("n=%d", n), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				_ = idx.Query(mid, mid+600)
			}
		})
	}
}

func BenchmarkDue(b *testing.B) {
	idx := New(generateFires(10000, 0, 60))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = idx.Due(3600)
	}
}

func BenchmarkQueryDuringSwap(b *testing.B) {
	idx := New(generateFires(10000, 0, 60))
	next := generateFires(10000, 60, 60)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				idx.Swap(next)
			}
		}
	}()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = idx.Query(0, 3600)
	}
	b.StopTimer()
	close(stop)
	wg.Wait()
}
