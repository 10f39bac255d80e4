package passage

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/require"
)

func at(z float64) *Sighting {
	return &Sighting{Position: mgl64.Vec3{0, 0, z}}
}

func TestMachine(t *testing.T) {
	t.Run("First sighting enters", func(t *testing.T) {
		m := New(DefaultMargin)
		require.False(t, m.Inside())
		_, ok := m.LastHole()
		require.False(t, ok)

		m.Update(at(5), 4.8)
		require.True(t, m.Inside())
		require.True(t, m.Entered())
		require.False(t, m.Exited())

		m.Update(at(5.2), 5.2)
		require.True(t, m.Inside())
		require.False(t, m.Changed())
	})

	t.Run("Noise inside the margin keeps state", func(t *testing.T) {
		m := New(DefaultMargin)
		for _, z := range []float64{5.0, 5.35, 5.7} {
			m.Update(at(z), z)
			require.True(t, m.Inside())
		}
		m.Update(nil, 6.05)
		require.True(t, m.Inside())
		require.False(t, m.Changed())

		m.Update(at(6.4), 6.4)
		require.True(t, m.Inside())
		require.False(t, m.Changed())
	})

	t.Run("Leaves only past the margin", func(t *testing.T) {
		m := New(DefaultMargin)
		m.Update(at(5), 5)
		m.Update(nil, 6.0)
		require.True(t, m.Inside())
		m.Update(nil, 6.01)
		require.False(t, m.Inside())
		require.True(t, m.Exited())

		m.Update(nil, 7)
		require.False(t, m.Changed())

		hole, ok := m.LastHole()
		require.True(t, ok)
		require.Equal(t, 5.0, hole.Z())
	})

	t.Run("Anchor follows long tunnels", func(t *testing.T) {
		m := New(DefaultMargin)
		for z := 0.0; z < 10; z += 0.5 {
			m.Update(at(z), z)
		}
		m.Update(nil, 10.2)
		require.True(t, m.Inside())
	})

	t.Run("Reset forgets everything", func(t *testing.T) {
		m := New(2)
		m.Update(at(1), 1)
		m.Reset()
		require.Equal(t, Outside, m.State())
		require.False(t, m.Changed())
		_, ok := m.LastHole()
		require.False(t, ok)
		require.Equal(t, 2.0, m.Margin())
	})

	t.Run("Negative margin clamps to zero", func(t *testing.T) {
		require.Zero(t, New(-1).Margin())
	})
}
