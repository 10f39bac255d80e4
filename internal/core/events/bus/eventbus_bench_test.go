package bus

import (
	"strconv"
	"testing"
	"time"
)

type nopObserver struct{}

func (nopObserver) OnPublish(string, string, Event)                       {}
func (nopObserver) OnDelivered(string, string, int, error, time.Duration) {}

func BenchmarkPublishManySubscribers(b *testing.B) {
	for _, subs := range []int{1, 4, 16, 64} {
		b.Run("subs="+strconv.Itoa(subs), func(b *testing.B) {
			bus := New()
			for i := 0; i < subs; i++ {
				_, _ = bus.Subscribe("tick", func(Event) error { return nil })
			}
			e := NewEvent("tick", "bench", nil)
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = bus.Publish(e)
			}
		})
	}
}

func BenchmarkPublishWithObserver(b *testing.B) {
	bus := New()
	bus.AddObserver(nopObserver{})
	_, _ = bus.Subscribe("tick", func(Event) error { return nil })
	e := NewEvent("tick", "bench", nil)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = bus.Publish(e)
	}
}
