package bus

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testObserver struct {
	mu             sync.Mutex
	publishCount   int
	deliveredCount int
	lastErr        error
}

func (o *testObserver) OnPublish(_, _ string, _ Event) {
	o.mu.Lock()
	o.publishCount++
	o.mu.Unlock()
}

func (o *testObserver) OnDelivered(_, _ string, handlers int, err error, _ time.Duration) {
	o.mu.Lock()
	o.deliveredCount += handlers
	o.lastErr = err
	o.mu.Unlock()
}

func TestBus(t *testing.T) {
	t.Run("Publish reaches subscribers of the type", func(t *testing.T) {
		b := New()
		var got []any
		_, err := b.Subscribe("wall.passed", func(e Event) error {
			got = append(got, e.Data())
			return nil
		})
		require.NoError(t, err)

		require.NoError(t, b.Publish(NewEvent("wall.passed", "session", 12)))
		require.NoError(t, b.Publish(NewEvent("hole.entered", "session", 13)))
		require.Equal(t, []any{12}, got)
	})

	t.Run("Wildcard sees everything once", func(t *testing.T) {
		b := New()
		count := 0
		_, err := b.SubscribeAll(func(Event) error { count++; return nil })
		require.NoError(t, err)
		require.NoError(t, b.Publish(NewEvent("a", "s", nil)))
		require.NoError(t, b.Publish(NewEvent(Wildcard, "s", nil)))
		require.Equal(t, 2, count)
	})

	t.Run("Handler errors are joined", func(t *testing.T) {
		b := New()
		e1, e2 := errors.New("one"), errors.New("two")
		_, _ = b.Subscribe("x", func(Event) error { return e1 })
		_, _ = b.Subscribe("x", func(Event) error { return e2 })

		err := b.Publish(NewEvent("x", "s", nil))
		require.ErrorIs(t, err, e1)
		require.ErrorIs(t, err, e2)

		err = b.PublishBatch(NewEvent("x", "s", nil), NewEvent("y", "s", nil))
		require.ErrorIs(t, err, e1)
	})

	t.Run("Cancelled subscriptions stop receiving", func(t *testing.T) {
		b := New()
		count := 0
		sub, _ := b.Subscribe("x", func(Event) error { count++; return nil })
		require.True(t, sub.IsActive())
		require.NoError(t, b.Unsubscribe(sub))
		require.NoError(t, sub.Cancel())
		require.False(t, sub.IsActive())
		require.NoError(t, b.Unsubscribe(nil))

		_ = b.Publish(NewEvent("x", "s", nil))
		require.Zero(t, count)
	})

	t.Run("Invalid input", func(t *testing.T) {
		b := New()
		_, err := b.Subscribe("x", nil)
		require.ErrorIs(t, err, ErrNilHandler)
		_, err = b.Subscribe("", func(Event) error { return nil })
		require.ErrorIs(t, err, ErrEmptyEventType)
		require.ErrorIs(t, b.Publish(nil), ErrNilEvent)
	})

	t.Run("Topics are isolated", func(t *testing.T) {
		b := New()
		require.NoError(t, b.CreateTopic("s1"))
		require.NoError(t, b.CreateTopic("s2"))
		count1, count2 := 0, 0
		_, _ = b.SubscribeTopic("s1", "ev", func(Event) error { count1++; return nil })
		sub2, _ := b.SubscribeTopic("s2", "ev", func(Event) error { count2++; return nil })
		_ = b.PublishToTopic("s1", NewEvent("ev", "src", nil))
		require.Equal(t, 1, count1)
		require.Zero(t, count2)

		b.DropTopic("s2")
		require.False(t, sub2.IsActive())
		require.NoError(t, sub2.Cancel())
		for _, ti := range b.GetTopics() {
			require.NotEqual(t, "s2", ti.Name)
		}
	})

	t.Run("Filters drop silently", func(t *testing.T) {
		b := New()
		obs := &testObserver{}
		b.AddObserver(obs)
		count := 0
		_, _ = b.Subscribe("x", func(Event) error { count++; return nil })
		reject := func(Event) bool { return false }
		require.NoError(t, b.PublishWithFilters(NewEvent("x", "s", nil), reject))
		require.Zero(t, count)
		require.Equal(t, uint64(1), b.GetMetrics().DroppedByFilters)
	})

	t.Run("Metrics only with observers", func(t *testing.T) {
		b := New()
		_, _ = b.Subscribe("e", func(Event) error { return nil })
		_ = b.Publish(NewEvent("e", "s", nil))
		require.Zero(t, b.GetMetrics().Published)

		obs := &testObserver{}
		b.AddObserver(obs)
		_ = b.Publish(NewEvent("e", "s", nil))
		m := b.GetMetrics()
		require.Equal(t, uint64(1), m.Published)
		require.Equal(t, uint64(1), m.DeliveredHandlers)
		require.Equal(t, 1, obs.publishCount)
		require.Equal(t, 1, obs.deliveredCount)

		b.RemoveObserver(obs)
		_ = b.Publish(NewEvent("e", "s", nil))
		require.Equal(t, uint64(1), b.GetMetrics().Published)
	})

	t.Run("Concurrent publish and subscribe", func(t *testing.T) {
		b := New()
		b.AddObserver(&testObserver{})
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				sub, _ := b.Subscribe("c", func(Event) error { return nil })
				_ = sub.Cancel()
			}()
			go func() {
				defer wg.Done()
				_ = b.Publish(NewEvent("c", "s", nil))
			}()
		}
		wg.Wait()
	})
}
