package input

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zeusync/runhole/internal/core/orient"
)

func TestMailbox(t *testing.T) {
	t.Run("Drain preserves order", func(t *testing.T) {
		m := NewMailbox(4, false)
		require.NoError(t, m.Post(context.Background(), Roll{Clockwise: true}))
		require.NoError(t, m.Post(context.Background(), Quit{}))

		var got []Command
		require.Equal(t, 2, m.Drain(func(c Command) { got = append(got, c) }))
		require.Equal(t, []Command{Roll{Clockwise: true}, Quit{}}, got)
		require.Zero(t, m.Drain(func(Command) {}))
	})

	t.Run("Non-blocking post fails when full", func(t *testing.T) {
		m := NewMailbox(1, false)
		require.NoError(t, m.Post(context.Background(), Quit{}))
		require.ErrorIs(t, m.Post(context.Background(), Quit{}), ErrMailboxFull)
	})

	t.Run("Blocking post honours context", func(t *testing.T) {
		m := NewMailbox(1, true)
		require.NoError(t, m.Post(context.Background(), Quit{}))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		require.ErrorIs(t, m.Post(ctx, Quit{}), context.DeadlineExceeded)
	})

	t.Run("Closed mailbox rejects posts", func(t *testing.T) {
		m := NewMailbox(1, true)
		m.Close()
		m.Close()
		require.ErrorIs(t, m.Post(context.Background(), Quit{}), ErrMailboxClosed)
	})

	t.Run("Concurrent producers", func(t *testing.T) {
		m := NewMailbox(256, false)
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 16; j++ {
					_ = m.Post(context.Background(), Look{Yaw: float64(j)})
				}
			}()
		}
		wg.Wait()
		require.Equal(t, 128, m.Drain(func(Command) {}))
	})
}

func TestCooldowns(t *testing.T) {
	c := NewCooldowns(2, 4)
	require.True(t, c.MoveReady())
	c.Moved()
	require.False(t, c.MoveReady())
	c.Tick()
	require.False(t, c.MoveReady())
	c.Tick()
	require.True(t, c.MoveReady())

	c.Rotated()
	for i := 0; i < 3; i++ {
		c.Tick()
		require.False(t, c.RotateReady())
	}
	c.Tick()
	require.True(t, c.RotateReady())
}

func TestGestures(t *testing.T) {
	t.Run("Leaving the threshold fires once", func(t *testing.T) {
		g := NewGestures(10, 0.02)
		require.Empty(t, g.Update(0, 0, true))
		require.Equal(t, GuideCentre, g.Guide())

		require.Equal(t, []orient.Turn{orient.YawRight}, g.Update(30, 0, true))
		require.Equal(t, GuideRight, g.Guide())
		require.Empty(t, g.Update(30, 0, true))
	})

	t.Run("Re-arms after returning", func(t *testing.T) {
		g := NewGestures(10, 0.02)
		g.Update(0, 0, true)
		require.Equal(t, []orient.Turn{orient.PitchUp}, g.Update(0, -30, true))
		require.Equal(t, GuideUp, g.Guide())
		require.Empty(t, g.Update(0, 0, true))
		require.Equal(t, []orient.Turn{orient.PitchDown}, g.Update(0, 30, true))
		require.Equal(t, GuideDown, g.Guide())
	})

	t.Run("Cooldown suppresses turns and freezes the target", func(t *testing.T) {
		g := NewGestures(10, 0.5)
		g.Update(0, 0, true)
		require.Empty(t, g.Update(-30, 0, false))
		require.Equal(t, GuideLeft, g.Guide())
		require.Equal(t, []orient.Turn{orient.YawLeft}, g.Update(-30, 0, true))
	})

	t.Run("Both axes fire together", func(t *testing.T) {
		g := NewGestures(10, 0.02)
		g.Update(0, 0, true)
		require.Equal(t, []orient.Turn{orient.YawLeft, orient.PitchDown}, g.Update(-20, 20, true))
		require.Equal(t, GuideDownLeft, g.Guide())
	})

	t.Run("Yaw wraps around", func(t *testing.T) {
		g := NewGestures(10, 0.02)
		g.Update(175, 0, true)
		require.Empty(t, g.Update(-178, 0, true))
	})
}

func TestInterpreter(t *testing.T) {
	t.Run("Steering maps keys with horizontal precedence", func(t *testing.T) {
		in := NewInterpreter(DefaultSettings())
		in.Feed(Steer{Left: true, Forward: true})
		f := in.Next()
		require.Equal(t, 1, f.DX)
		require.Zero(t, f.DY)
		require.True(t, f.MoveLeft)

		in.Feed(Steer{Backward: true})
		f = in.Next()
		require.Equal(t, 0, f.DX)
		require.Equal(t, -1, f.DY)

		in.Feed(Steer{Left: true, Right: true})
		require.False(t, in.Next().HasMove())
	})

	t.Run("Move cooldown after success", func(t *testing.T) {
		in := NewInterpreter(DefaultSettings())
		in.Feed(Steer{Right: true})
		require.Equal(t, -1, in.Next().DX)
		in.Moved()
		require.False(t, in.Next().HasMove())
		require.Equal(t, -1, in.Next().DX)
	})

	t.Run("Roll clicks respect rotation cooldown", func(t *testing.T) {
		in := NewInterpreter(DefaultSettings())
		in.Feed(Roll{Clockwise: true})
		f := in.Next()
		require.True(t, f.RollCW)
		require.Equal(t, []orient.Turn{orient.RollCW}, f.Turns)

		in.Feed(Roll{Clockwise: false})
		require.Empty(t, in.Next().Turns)

		in.Next()
		in.Next()
		in.Feed(Roll{Clockwise: false})
		f = in.Next()
		require.True(t, f.RollCCW)
		require.Equal(t, []orient.Turn{orient.RollCCW}, f.Turns)
	})

	t.Run("Boost edge and quit", func(t *testing.T) {
		in := NewInterpreter(DefaultSettings())
		in.Feed(Steer{Jump: true})
		f := in.Next()
		require.True(t, f.BoostHeld)
		require.True(t, f.BoostPressed)
		f = in.Next()
		require.True(t, f.BoostHeld)
		require.False(t, f.BoostPressed)

		in.Feed(Quit{})
		require.True(t, in.Next().Quit)
		require.False(t, in.Next().Quit)

		in.Feed(Steer{Sneak: true})
		require.True(t, in.Next().Quit)
	})

	t.Run("Look gestures become turns", func(t *testing.T) {
		in := NewInterpreter(DefaultSettings())
		in.Feed(Look{})
		require.Empty(t, in.Next().Turns)
		in.Feed(Look{Yaw: 45})
		f := in.Next()
		require.Equal(t, []orient.Turn{orient.YawRight}, f.Turns)
		require.Equal(t, GuideRight, f.Guide)
	})
}
