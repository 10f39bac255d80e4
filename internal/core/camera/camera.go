// Package camera derives a smoothed trailing viewpoint from the body pose,
// ducking under ceilings and swinging toward holes the body is passing.
package camera

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/runhole/internal/core/passage"
	"github.com/zeusync/runhole/internal/core/voxel"
)

var ErrNilWorld = errors.New("camera world is nil")

type Params struct {
	Distance    float64
	Height      float64
	FollowLerp  float64
	CeilingLerp float64
	SwitchLerp  float64
	HeightTrim  float64
	MountHeight float64
	Margin      float64
}

func DefaultParams() Params {
	return Params{
		Distance:    10,
		Height:      3,
		FollowLerp:  0.02,
		CeilingLerp: 0.3,
		SwitchLerp:  0.2,
		HeightTrim:  -1,
		MountHeight: 0,
		Margin:      passage.DefaultMargin,
	}
}

// BodyView is the read-only snapshot of the body a camera step consumes.
// Hole is nil when nothing was detected this step.
type BodyView struct {
	Center mgl64.Vec3
	Hole   *passage.Sighting
}

// Camera keeps its targets as lateral/vertical offsets from a base fixed
// behind the course origin.
type Camera struct {
	world  voxel.World
	params Params
	base   mgl64.Vec3

	cubeTarget mgl64.Vec2
	holeTarget mgl64.Vec2
	target     mgl64.Vec2
	blend      float64
	clamped    bool

	passage   *passage.Machine
	viewpoint mgl64.Vec3
}

func New(world voxel.World, origin mgl64.Vec3, params Params) (*Camera, error) {
	if world == nil {
		return nil, ErrNilWorld
	}
	c := &Camera{
		world:   world,
		params:  params,
		base:    origin.Sub(mgl64.Vec3{0, 0, params.Distance}),
		passage: passage.New(params.Margin),
	}
	c.cubeTarget = mgl64.Vec2{0, params.Height}
	c.target = c.cubeTarget
	c.viewpoint = c.place(origin.Z())
	return c, nil
}

// Update advances the camera one step.
func (c *Camera) Update(view BodyView) {
	desired := c.ceilingTarget(view.Center)

	lerp := c.params.FollowLerp
	if c.clamped {
		lerp = c.params.CeilingLerp
	}
	c.cubeTarget = c.cubeTarget.Add(desired.Sub(c.cubeTarget).Mul(lerp))

	cameraDepth := view.Center.Z() - c.params.Distance
	c.passage.Update(view.Hole, cameraDepth)
	if hole, ok := c.passage.LastHole(); ok {
		c.holeTarget = mgl64.Vec2{hole.Position.X() - c.base.X(), hole.Position.Y() - c.base.Y()}
	}

	goal := 0.0
	if c.passage.Inside() {
		goal = 1
	}
	c.blend += (goal - c.blend) * c.params.SwitchLerp

	c.target = c.cubeTarget.Add(c.holeTarget.Sub(c.cubeTarget).Mul(c.blend))
	c.viewpoint = c.place(view.Center.Z())
}

// ceilingTarget returns the desired cube-follow offset and records whether
// a ceiling is holding it down.
func (c *Camera) ceilingTarget(center mgl64.Vec3) mgl64.Vec2 {
	cx, cy, cz := voxel.Floor(center.X()), voxel.Floor(center.Y()), voxel.Floor(center.Z())
	want := center.Y() + c.params.Height

	ceiling := want
	top := cy + int(math.Ceil(c.params.Height))
	for y := cy; y <= top; y++ {
		if c.world.Material(cx, y, cz) == voxel.Solid {
			ceiling = float64(y - 1)
			break
		}
	}

	c.clamped = ceiling < want
	return mgl64.Vec2{center.X() - c.base.X(), math.Min(ceiling, want) - c.base.Y()}
}

func (c *Camera) place(bodyDepth float64) mgl64.Vec3 {
	return mgl64.Vec3{
		c.base.X() + c.target.X(),
		c.base.Y() + c.target.Y() + c.params.HeightTrim - c.params.MountHeight,
		bodyDepth - c.params.Distance,
	}
}

func (c *Camera) Viewpoint() mgl64.Vec3 { return c.viewpoint }

// Blend is the hole-focus weight in [0, 1].
func (c *Camera) Blend() float64 { return c.blend }

func (c *Camera) CeilingClamped() bool { return c.clamped }

// Inside reports the camera's own passage state.
func (c *Camera) Inside() bool { return c.passage.Inside() }

// Target is the blended offset from the base.
func (c *Camera) Target() mgl64.Vec2 { return c.target }

func (c *Camera) Params() Params { return c.params }
