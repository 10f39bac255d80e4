package body

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/runhole/internal/core/voxel"
)

// WallProbe is the result of looking for the next wall ahead. Distance is
// only meaningful when Found is true.
type WallProbe struct {
	Found    bool
	Depth    int
	Passable bool
	Distance float64
}

// HoleSighting is reported by DetectHole when the body's current plane looks
// like a perforated wall.
type HoleSighting struct {
	Center mgl64.Vec3
	Depth  int
}

// DetectHole samples the window around the body's cell at its current depth.
// The plane counts as a perforated wall when it is dense enough to be a wall
// and still has enough open cells to be a hole.
func (b *ShapeBody) DetectHole() (HoleSighting, bool) {
	c := b.Cell()
	solid, open := voxel.CountWindow(b.world, c.X, c.Y, c.Z, b.params.DetectRadius)
	if solid < b.params.WallMinSolid || open < b.params.HoleMinOpen {
		return HoleSighting{}, false
	}
	return HoleSighting{Center: b.Center(), Depth: c.Z}, true
}

// IsWall applies the density threshold to the window around the body's
// lateral cell at depth z.
func (b *ShapeBody) IsWall(z int) bool {
	c := b.Cell()
	solid, _ := voxel.CountWindow(b.world, c.X, c.Y, z, b.params.DetectRadius)
	return solid >= b.params.WallMinSolid
}

// FindNextWall returns the nearest depth in [floor(zFrom), floor(zTo)] that
// qualifies as a wall.
func (b *ShapeBody) FindNextWall(zFrom, zTo float64) (int, bool) {
	for z := voxel.Floor(zFrom); z <= voxel.Floor(zTo); z++ {
		if b.IsWall(z) {
			return z, true
		}
	}
	return 0, false
}

// WallHoles lists the open cells of the detection window on the wall plane,
// centred on the body's lateral cell.
func (b *ShapeBody) WallHoles(depth int) []voxel.Cell2 {
	c := b.Cell()
	return voxel.OpenWindow(b.world, c.X, c.Y, depth, b.params.DetectRadius)
}

// DistanceToNextWall measures how far the nearest voxel is from the next wall
// within the scan window, and whether the current silhouette fits it.
func (b *ShapeBody) DistanceToNextWall() WallProbe {
	start := b.Center().Z()
	depth, ok := b.FindNextWall(start, start+b.params.WallScanAhead)
	if !ok {
		return WallProbe{}
	}
	probe := WallProbe{Found: true, Depth: depth, Passable: b.SilhouetteClear(depth)}
	probe.Distance = math.Inf(1)
	for _, off := range b.mask.offsets {
		d := float64(depth) - (start + float64(b.orientation.Apply(off).Z))
		if d < probe.Distance {
			probe.Distance = d
		}
	}
	return probe
}

// ShouldWarn reports an imminent impassable wall and a warning level in
// [0, 1] that grows as the wall gets closer.
func (b *ShapeBody) ShouldWarn() (bool, float64) {
	return WarnLevel(b.DistanceToNextWall(), b.params.WarningDistance)
}

// WarnLevel applies the warning rule to an existing probe.
func WarnLevel(probe WallProbe, within float64) (bool, float64) {
	if !probe.Found || probe.Passable || probe.Distance < 0 || probe.Distance > within {
		return false, 0
	}
	level := 1 - (probe.Distance-1)/3
	return true, math.Min(1, math.Max(0, level))
}
