// Package body implements the player-controlled voxel shape: its pose,
// automatic forward motion, lateral moves, 90° reorientation and every
// collision or detection query against the world.
package body

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/runhole/internal/core/orient"
	"github.com/zeusync/runhole/internal/core/voxel"
)

// Position is the authoritative grid pose. Progress stays in [0, 1).
type Position struct {
	X, Y     int
	Cells    int
	Progress float64
}

// Voxel identifies one occupied mask cell and where it currently sits.
type Voxel struct {
	Index int
	Local voxel.Cell
	World voxel.Cell
}

// ShapeBody is not safe for concurrent use. A single simulation goroutine
// owns it.
type ShapeBody struct {
	world  voxel.World
	origin voxel.Cell
	mask   Mask
	params Params

	pos         Position
	orientation orient.Orientation

	boostHeld       bool
	continuousBoost bool
	slowdownTicks   int
	lastSpeed       float64
}

// NewShapeBody places the body so that its centre voxel starts in origin.
func NewShapeBody(world voxel.World, origin voxel.Cell, mask Mask, params Params) (*ShapeBody, error) {
	if world == nil {
		return nil, ErrNilWorld
	}
	if mask.IsZero() {
		return nil, ErrEmptyMask
	}
	return &ShapeBody{
		world:  world,
		origin: origin,
		mask:   mask,
		params: params,
	}, nil
}

func (b *ShapeBody) Position() Position                { return b.pos }
func (b *ShapeBody) Orientation() orient.Orientation   { return b.orientation }
func (b *ShapeBody) Mask() Mask                        { return b.mask }
func (b *ShapeBody) Params() Params                    { return b.params }
func (b *ShapeBody) Origin() voxel.Cell                { return b.origin }
func (b *ShapeBody) World() voxel.World                { return b.world }
func (b *ShapeBody) LastSpeed() float64                { return b.lastSpeed }
func (b *ShapeBody) SlowdownTicks() int                { return b.slowdownTicks }
func (b *ShapeBody) Rotated(off voxel.Cell) voxel.Cell { return b.orientation.Apply(off) }
func (b *ShapeBody) Depth() float64                    { return b.Center().Z() }

// Center is the continuous world position of the centre voxel.
func (b *ShapeBody) Center() mgl64.Vec3 {
	return mgl64.Vec3{
		float64(b.origin.X+b.pos.X) + 0.5,
		float64(b.origin.Y+b.pos.Y) + 0.5,
		float64(b.origin.Z+b.pos.Cells) + 0.5 + b.pos.Progress,
	}
}

// Cell is the world cell holding the body centre.
func (b *ShapeBody) Cell() voxel.Cell {
	c := b.Center()
	return voxel.Cell{X: voxel.Floor(c.X()), Y: voxel.Floor(c.Y()), Z: voxel.Floor(c.Z())}
}

func (b *ShapeBody) worldCell(pos Position, o orient.Orientation, local voxel.Cell) voxel.Cell {
	r := o.Apply(local)
	return voxel.Cell{
		X: b.origin.X + pos.X + r.X,
		Y: b.origin.Y + pos.Y + r.Y,
		Z: b.origin.Z + pos.Cells + r.Z + voxel.Floor(0.5+pos.Progress),
	}
}

// VoxelCells lists the world cells of every occupied voxel in mask order.
func (b *ShapeBody) VoxelCells() []voxel.Cell {
	out := make([]voxel.Cell, 0, b.mask.Count())
	for _, off := range b.mask.offsets {
		out = append(out, b.worldCell(b.pos, b.orientation, off))
	}
	return out
}

// CheckCollision returns the voxels that would sit in blocking cells if the
// body were shifted by offset and, when override is non-nil, reoriented.
func (b *ShapeBody) CheckCollision(offset voxel.Cell, override *orient.Orientation) []Voxel {
	o := b.orientation
	if override != nil {
		o = *override
	}
	pos := b.pos
	pos.X += offset.X
	pos.Y += offset.Y
	pos.Cells += offset.Z

	var hits []Voxel
	for i, off := range b.mask.offsets {
		c := b.worldCell(pos, o, off)
		if voxel.At(b.world, c).Blocks() {
			hits = append(hits, Voxel{Index: i, Local: off, World: c})
		}
	}
	return hits
}

// Colliding is CheckCollision at the current pose.
func (b *ShapeBody) Colliding() []Voxel {
	return b.CheckCollision(voxel.Cell{}, nil)
}

// Move translates the body laterally if the destination is free.
func (b *ShapeBody) Move(dx, dy int) bool {
	if dx == 0 && dy == 0 {
		return false
	}
	if len(b.CheckCollision(voxel.Cell{X: dx, Y: dy}, nil)) > 0 {
		return false
	}
	b.pos.X += dx
	b.pos.Y += dy
	return true
}

// Rotate applies turn after the current orientation if the rotated shape
// fits at the current position.
func (b *ShapeBody) Rotate(turn orient.Turn) bool {
	if !turn.Valid() {
		return false
	}
	next := orient.Compose(turn, b.orientation)
	if len(b.CheckCollision(voxel.Cell{}, &next)) > 0 {
		return false
	}
	b.orientation = next
	return true
}

// Boosting reports whether either boost source is active this step.
func (b *ShapeBody) Boosting() bool { return b.boostHeld || b.continuousBoost }

// SetBoosting records whether the boost control is held this step.
func (b *ShapeBody) SetBoosting(held bool) { b.boostHeld = held }

func (b *ShapeBody) StartContinuousBoost()    { b.continuousBoost = true }
func (b *ShapeBody) StopContinuousBoost()     { b.continuousBoost = false }
func (b *ShapeBody) ContinuousBoosting() bool { return b.continuousBoost }

func (b *ShapeBody) baseSpeed() float64 {
	if b.Boosting() {
		return b.params.CruiseSpeed * b.params.BoostMultiplier
	}
	return b.params.CruiseSpeed
}

// Speed computes the forward step for the current pose without moving.
func (b *ShapeBody) Speed() float64 {
	speed, _ := b.speedFor(b.DistanceToNextWall(), b.slowdownTicks)
	return speed
}

func (b *ShapeBody) speedFor(probe WallProbe, slowdown int) (float64, int) {
	base := b.baseSpeed()
	if !probe.Found || probe.Passable || probe.Distance < 0 || probe.Distance > b.params.SlowdownRange {
		return base, 0
	}
	slowdown++
	// the full StallBreakerTicks steps are slowed; full speed resumes after them
	if slowdown > b.params.StallBreakerTicks {
		return base, slowdown
	}
	return DecayedSpeed(base, probe.Distance, b.params.SlowdownRange, b.params.MinSpeed), slowdown
}

// DecayedSpeed is the linear slowdown curve: base scaled by the remaining
// distance over the range, never below floor.
func DecayedSpeed(base, distance, rng, floor float64) float64 {
	if rng <= 0 {
		return math.Max(base, floor)
	}
	return math.Max(base*distance/rng, floor)
}

// Advance performs one step of automatic forward motion and returns the
// speed that was applied.
func (b *ShapeBody) Advance() float64 {
	speed, slowdown := b.speedFor(b.DistanceToNextWall(), b.slowdownTicks)
	b.slowdownTicks = slowdown
	b.lastSpeed = speed

	b.pos.Progress += speed
	for b.pos.Progress >= 1 {
		b.pos.Progress--
		b.pos.Cells++
	}
	return speed
}

// ProjectedSilhouette is the distinct lateral offsets occupied by the
// rotated mask, sorted by Y then X.
func (b *ShapeBody) ProjectedSilhouette() []voxel.Cell2 {
	return silhouette(b.mask, b.orientation)
}

func silhouette(m Mask, o orient.Orientation) []voxel.Cell2 {
	seen := make(map[voxel.Cell2]struct{}, m.Count())
	out := make([]voxel.Cell2, 0, m.Count())
	for _, off := range m.offsets {
		l := o.Apply(off).Lateral()
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})
	return out
}

// Silhouette is the shadow of a mask under an orientation. Course
// generators use it to cut holes the shape can pass.
func Silhouette(m Mask, o orient.Orientation) []voxel.Cell2 {
	return silhouette(m, o)
}

// SilhouetteAt places the projected silhouette on the wall plane at depth.
func (b *ShapeBody) SilhouetteAt(depth int) []voxel.Cell {
	lateral := voxel.Cell2{X: b.origin.X + b.pos.X, Y: b.origin.Y + b.pos.Y}
	shadow := b.ProjectedSilhouette()
	out := make([]voxel.Cell, len(shadow))
	for i, s := range shadow {
		out[i] = lateral.Add(s).At(depth)
	}
	return out
}

// SilhouetteClear reports whether every silhouette cell on the wall plane
// is open.
func (b *ShapeBody) SilhouetteClear(depth int) bool {
	for _, c := range b.SilhouetteAt(depth) {
		if voxel.At(b.world, c).Blocks() {
			return false
		}
	}
	return true
}
