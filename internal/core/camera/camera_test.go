package camera

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/runhole/internal/core/passage"
	"github.com/zeusync/runhole/internal/core/voxel"
)

var origin = mgl64.Vec3{0.5, 0.5, 0.5}

func newCamera(t *testing.T, w voxel.World) *Camera {
	t.Helper()
	c, err := New(w, origin, DefaultParams())
	require.NoError(t, err)
	return c
}

func TestCamera(t *testing.T) {
	t.Run("Nil world is rejected", func(t *testing.T) {
		_, err := New(nil, origin, DefaultParams())
		require.ErrorIs(t, err, ErrNilWorld)
	})

	t.Run("Starts above and behind the origin", func(t *testing.T) {
		c := newCamera(t, voxel.NewGrid())
		v := c.Viewpoint()
		require.InDeltaSlice(t, []float64{0.5, 2.5, -9.5}, v[:], 1e-9)
		require.Zero(t, c.Blend())
	})

	t.Run("Follows slowly", func(t *testing.T) {
		c := newCamera(t, voxel.NewGrid())
		c.Update(BodyView{Center: mgl64.Vec3{1.5, 0.5, 0.85}})
		require.InDelta(t, 0.02, c.Target().X(), 1e-9)
		require.InDelta(t, 3, c.Target().Y(), 1e-9)
		require.False(t, c.CeilingClamped())
	})

	t.Run("Depth tracks the body exactly", func(t *testing.T) {
		c := newCamera(t, voxel.NewGrid())
		for _, z := range []float64{0.85, 1.2, 7.77} {
			c.Update(BodyView{Center: mgl64.Vec3{0.5, 0.5, z}})
			require.InDelta(t, z-10, c.Viewpoint().Z(), 1e-12)
		}
	})

	t.Run("Ducks quickly under a ceiling", func(t *testing.T) {
		g := voxel.NewGrid()
		g.Set(voxel.Cell{X: 0, Y: 2, Z: 0}, voxel.Solid)
		c := newCamera(t, g)
		c.Update(BodyView{Center: origin})
		require.True(t, c.CeilingClamped())
		require.InDelta(t, 3+(0.5-3)*0.3, c.Target().Y(), 1e-9)
	})

	t.Run("Passable markers are not ceilings", func(t *testing.T) {
		g := voxel.NewGrid()
		g.Set(voxel.Cell{X: 0, Y: 2, Z: 0}, voxel.Passable)
		c := newCamera(t, g)
		c.Update(BodyView{Center: origin})
		require.False(t, c.CeilingClamped())
	})

	t.Run("Swings to the hole and back", func(t *testing.T) {
		c := newCamera(t, voxel.NewGrid())
		hole := &passage.Sighting{Position: mgl64.Vec3{3.5, 1.5, 5}}

		c.Update(BodyView{Center: mgl64.Vec3{0.5, 0.5, 5}, Hole: hole})
		require.True(t, c.Inside())
		require.InDelta(t, 0.2, c.Blend(), 1e-9)

		for i := 0; i < 60; i++ {
			c.Update(BodyView{Center: mgl64.Vec3{0.5, 0.5, 5}, Hole: hole})
		}
		require.InDelta(t, 1, c.Blend(), 1e-4)
		require.InDelta(t, 3, c.Target().X(), 1e-3)
		require.InDelta(t, 1, c.Target().Y(), 1e-3)

		// camera depth has not passed the hole yet
		c.Update(BodyView{Center: mgl64.Vec3{0.5, 0.5, 15.5}})
		require.True(t, c.Inside())

		c.Update(BodyView{Center: mgl64.Vec3{0.5, 0.5, 16.5}})
		require.False(t, c.Inside())
		before := c.Blend()
		c.Update(BodyView{Center: mgl64.Vec3{0.5, 0.5, 17}})
		require.Less(t, c.Blend(), before)
	})
}
