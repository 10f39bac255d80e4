package body

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zeusync/runhole/internal/core/orient"
	"github.com/zeusync/runhole/internal/core/voxel"
)

var (
	singleVoxel = strings.Repeat("0", 13) + "1" + strings.Repeat("0", 13)
	// centre plus +X neighbour
	pairVoxel = strings.Repeat("0", 13) + "11" + strings.Repeat("0", 12)
)

// wall fills the plane at depth z solid and opens the given cells.
func wall(g *voxel.Grid, z int, holes ...voxel.Cell2) {
	g.Fill(voxel.Bounds{Min: voxel.Cell{X: -5, Y: -5, Z: z}, Max: voxel.Cell{X: 5, Y: 5, Z: z}}, voxel.Solid)
	for _, h := range holes {
		g.Set(h.At(z), voxel.Empty)
	}
}

func newBody(t *testing.T, g voxel.World, origin voxel.Cell, pattern string, params Params) *ShapeBody {
	t.Helper()
	b, err := NewShapeBody(g, origin, MustParseMask(pattern), params)
	require.NoError(t, err)
	return b
}

func TestNewShapeBody(t *testing.T) {
	_, err := NewShapeBody(nil, voxel.Cell{}, MustParseMask(singleVoxel), DefaultParams())
	require.ErrorIs(t, err, ErrNilWorld)

	_, err = NewShapeBody(voxel.NewGrid(), voxel.Cell{}, Mask{}, DefaultParams())
	require.ErrorIs(t, err, ErrEmptyMask)

	b := newBody(t, voxel.NewGrid(), voxel.Cell{X: 2, Y: 3, Z: 4}, singleVoxel, DefaultParams())
	require.Equal(t, voxel.Cell{X: 2, Y: 3, Z: 4}, b.Cell())
	require.Equal(t, orient.Identity, b.Orientation())
	require.InDelta(t, 4.5, b.Depth(), 1e-9)
}

func TestDetectHole(t *testing.T) {
	t.Run("Open cell under the body is a hole", func(t *testing.T) {
		g := voxel.NewGrid()
		wall(g, 3, voxel.Cell2{X: 0, Y: 0}, voxel.Cell2{X: 1, Y: 0}, voxel.Cell2{X: 0, Y: 1})
		b := newBody(t, g, voxel.Cell{Z: 3}, singleVoxel, DefaultParams())

		hole, ok := b.DetectHole()
		require.True(t, ok)
		require.Equal(t, 3, hole.Depth)
		require.InDelta(t, 3.5, hole.Center.Z(), 1e-9)
		require.Empty(t, b.CheckCollision(voxel.Cell{}, nil))
	})

	t.Run("Too few open cells is not a hole", func(t *testing.T) {
		g := voxel.NewGrid()
		wall(g, 0, voxel.Cell2{X: 0, Y: 0})
		b := newBody(t, g, voxel.Cell{}, singleVoxel, DefaultParams())
		_, ok := b.DetectHole()
		require.False(t, ok)
	})

	t.Run("Open air is not a hole", func(t *testing.T) {
		b := newBody(t, voxel.NewGrid(), voxel.Cell{}, singleVoxel, DefaultParams())
		_, ok := b.DetectHole()
		require.False(t, ok)
	})
}

func TestCollision(t *testing.T) {
	t.Run("Blocked destination rejects move", func(t *testing.T) {
		g := voxel.NewGrid()
		wall(g, 1, voxel.Cell2{X: 3, Y: 3})
		g.Set(voxel.Cell{Z: 1}, voxel.Empty)
		b := newBody(t, g, voxel.Cell{Z: 1}, singleVoxel, DefaultParams())

		require.Empty(t, b.Colliding())
		hits := b.CheckCollision(voxel.Cell{X: 1}, nil)
		require.Len(t, hits, 1)
		require.Equal(t, voxel.Cell{X: 1, Z: 1}, hits[0].World)

		before := b.Position()
		require.False(t, b.Move(1, 0))
		require.Equal(t, before, b.Position())
	})

	t.Run("Solid plane ahead collides at its depth", func(t *testing.T) {
		g := voxel.NewGrid()
		wall(g, 1, voxel.Cell2{X: 3, Y: 3})
		b := newBody(t, g, voxel.Cell{}, singleVoxel, DefaultParams())
		hits := b.CheckCollision(voxel.Cell{Z: 1}, nil)
		require.Len(t, hits, 1)
		require.Equal(t, 0, hits[0].Index)
	})

	t.Run("Blocked orientation rejects rotate", func(t *testing.T) {
		g := voxel.NewGrid()
		wall(g, 0, voxel.Cell2{X: 0, Y: 0}, voxel.Cell2{X: 1, Y: 0})
		b := newBody(t, g, voxel.Cell{}, pairVoxel, DefaultParams())
		require.Empty(t, b.Colliding())

		next := orient.Compose(orient.RollCW, b.Orientation())
		require.NotEmpty(t, b.CheckCollision(voxel.Cell{}, &next))
		require.False(t, b.Rotate(orient.RollCW))
		require.Equal(t, orient.Identity, b.Orientation())
	})

	t.Run("Passable markers never collide", func(t *testing.T) {
		g := voxel.NewGrid()
		g.Set(voxel.Cell{X: 1}, voxel.Passable)
		b := newBody(t, g, voxel.Cell{}, singleVoxel, DefaultParams())
		require.True(t, b.Move(1, 0))
		require.Empty(t, b.Colliding())
	})

	t.Run("Zero move is rejected", func(t *testing.T) {
		b := newBody(t, voxel.NewGrid(), voxel.Cell{}, singleVoxel, DefaultParams())
		require.False(t, b.Move(0, 0))
	})

	t.Run("Move and rotate agree with CheckCollision", func(t *testing.T) {
		g := voxel.NewGrid()
		// checkerboard-ish debris around the body
		for x := -3; x <= 3; x++ {
			for y := -3; y <= 3; y++ {
				for z := -2; z <= 2; z++ {
					if (x*7+y*3+z*5)%4 == 0 && !(x == 0 && y == 0 && z == 0) {
						g.Set(voxel.Cell{X: x, Y: y, Z: z}, voxel.Solid)
					}
				}
			}
		}
		mask := "000000000" + "000011000" + "000000000"
		moves := []voxel.Cell2{{X: 1}, {X: -1}, {Y: 1}, {Y: -1}}

		for i := 0; i < 50; i++ {
			b := newBody(t, g, voxel.Cell{}, mask, DefaultParams())
			if len(b.Colliding()) > 0 {
				t.Skip("start pose collides")
			}
			for step := 0; step < 10; step++ {
				mv := moves[(i+step)%len(moves)]
				blocked := len(b.CheckCollision(voxel.Cell{X: mv.X, Y: mv.Y}, nil)) > 0
				before := b.Position()
				ok := b.Move(mv.X, mv.Y)
				require.Equal(t, !blocked, ok)
				if ok {
					require.Equal(t, before.X+mv.X, b.Position().X)
					require.Equal(t, before.Y+mv.Y, b.Position().Y)
				} else {
					require.Equal(t, before, b.Position())
				}

				turn := orient.Turns()[(i*3+step)%6]
				next := orient.Compose(turn, b.Orientation())
				blocked = len(b.CheckCollision(voxel.Cell{}, &next)) > 0
				prev := b.Orientation()
				ok = b.Rotate(turn)
				require.Equal(t, !blocked, ok)
				if ok {
					require.Equal(t, next, b.Orientation())
				} else {
					require.Equal(t, prev, b.Orientation())
				}
				require.True(t, b.Orientation().Valid())
			}
		}
	})
}

func TestRotate(t *testing.T) {
	t.Run("Four turns return to the start", func(t *testing.T) {
		b := newBody(t, voxel.NewGrid(), voxel.Cell{}, pairVoxel, DefaultParams())
		for _, turn := range orient.Turns() {
			start := b.Orientation()
			for i := 0; i < 4; i++ {
				require.True(t, b.Rotate(turn))
			}
			require.Equal(t, start, b.Orientation())
		}
	})

	t.Run("Silhouette follows orientation", func(t *testing.T) {
		b := newBody(t, voxel.NewGrid(), voxel.Cell{}, pairVoxel, DefaultParams())
		require.Equal(t, []voxel.Cell2{{X: 0}, {X: 1}}, b.ProjectedSilhouette())

		require.True(t, b.Rotate(orient.YawLeft))
		require.Equal(t, []voxel.Cell2{{}}, b.ProjectedSilhouette())

		require.True(t, b.Rotate(orient.YawRight))
		require.True(t, b.Rotate(orient.RollCW))
		require.Equal(t, []voxel.Cell2{{}, {Y: 1}}, b.ProjectedSilhouette())
		require.Equal(t, []voxel.Cell{{Z: 7}, {Y: 1, Z: 7}}, b.SilhouetteAt(7))
	})
}

func TestAdvance(t *testing.T) {
	t.Run("Cruise speed in open air", func(t *testing.T) {
		b := newBody(t, voxel.NewGrid(), voxel.Cell{}, singleVoxel, DefaultParams())
		require.InDelta(t, 0.35, b.Advance(), 1e-9)
		require.InDelta(t, 0.35, b.Position().Progress, 1e-9)
		b.Advance()
		b.Advance()
		require.Equal(t, 1, b.Position().Cells)
		require.InDelta(t, 0.05, b.Position().Progress, 1e-9)
	})

	t.Run("Boost triples speed", func(t *testing.T) {
		b := newBody(t, voxel.NewGrid(), voxel.Cell{}, singleVoxel, DefaultParams())
		b.SetBoosting(true)
		require.InDelta(t, 1.05, b.Advance(), 1e-9)
		require.Equal(t, 1, b.Position().Cells)
		require.InDelta(t, 0.05, b.Position().Progress, 1e-9)

		b.SetBoosting(false)
		b.StartContinuousBoost()
		require.True(t, b.Boosting())
		b.StopContinuousBoost()
		require.False(t, b.Boosting())
	})

	t.Run("Impassable wall at 1.5 halves speed", func(t *testing.T) {
		g := voxel.NewGrid()
		wall(g, 2)
		b := newBody(t, g, voxel.Cell{}, singleVoxel, DefaultParams())

		probe := b.DistanceToNextWall()
		require.True(t, probe.Found)
		require.False(t, probe.Passable)
		require.Equal(t, 2, probe.Depth)
		require.InDelta(t, 1.5, probe.Distance, 1e-9)
		require.InDelta(t, 0.35*1.5/3, b.Advance(), 1e-9)
		require.Equal(t, 1, b.SlowdownTicks())
	})

	t.Run("Passable wall does not slow", func(t *testing.T) {
		g := voxel.NewGrid()
		wall(g, 2, voxel.Cell2{})
		b := newBody(t, g, voxel.Cell{}, singleVoxel, DefaultParams())
		require.True(t, b.DistanceToNextWall().Passable)
		require.InDelta(t, 0.35, b.Advance(), 1e-9)
		require.Zero(t, b.SlowdownTicks())
	})

	t.Run("Speed grows with distance and respects the floor", func(t *testing.T) {
		prev := 0.0
		for _, oz := range []int{2, 1, 0} {
			g := voxel.NewGrid()
			wall(g, 3)
			b := newBody(t, g, voxel.Cell{Z: oz}, singleVoxel, DefaultParams())
			speed := b.Advance()
			require.GreaterOrEqual(t, speed, prev)
			require.GreaterOrEqual(t, speed, DefaultParams().MinSpeed)
			prev = speed
		}

		prev = 0
		for d := 0.0; d <= 3; d += 0.25 {
			s := DecayedSpeed(0.35, d, 3, 0.01)
			require.GreaterOrEqual(t, s, prev)
			require.GreaterOrEqual(t, s, 0.01)
			prev = s
		}
	})

	t.Run("Stall breaker restores full speed", func(t *testing.T) {
		params := DefaultParams()
		params.StallBreakerTicks = 3
		g := voxel.NewGrid()
		wall(g, 3)
		b := newBody(t, g, voxel.Cell{}, singleVoxel, params)

		for i := 0; i < 3; i++ {
			require.Less(t, b.Advance(), 0.35)
		}
		require.InDelta(t, 0.35, b.Advance(), 1e-9)
		require.Equal(t, 4, b.SlowdownTicks())
	})
}

func TestWallQueries(t *testing.T) {
	g := voxel.NewGrid()
	wall(g, 4, voxel.Cell2{X: 0, Y: 0}, voxel.Cell2{X: 1, Y: 0})
	b := newBody(t, g, voxel.Cell{}, pairVoxel, DefaultParams())

	t.Run("Find next wall", func(t *testing.T) {
		depth, ok := b.FindNextWall(0, 10)
		require.True(t, ok)
		require.Equal(t, 4, depth)

		_, ok = b.FindNextWall(0, 3)
		require.False(t, ok)
	})

	t.Run("Holes and clearance", func(t *testing.T) {
		require.ElementsMatch(t, []voxel.Cell2{{X: 0}, {X: 1}}, b.WallHoles(4))
		require.True(t, b.SilhouetteClear(4))
		require.True(t, b.DistanceToNextWall().Passable)
	})

	t.Run("Warning only for impassable walls in range", func(t *testing.T) {
		warn, _ := b.ShouldWarn()
		require.False(t, warn)

		g2 := voxel.NewGrid()
		wall(g2, 2)
		b2 := newBody(t, g2, voxel.Cell{}, singleVoxel, DefaultParams())
		warn, level := b2.ShouldWarn()
		require.True(t, warn)
		require.InDelta(t, 1-0.5/3, level, 1e-9)

		warn, _ = WarnLevel(WallProbe{Found: true, Distance: 2}, 1.5)
		require.False(t, warn)
		_, level = WarnLevel(WallProbe{Found: true, Distance: 0}, 1.5)
		require.Equal(t, 1.0, level)
	})
}
