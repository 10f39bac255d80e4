// Package orient enumerates the 24 rotations of a cube that map the
// principal axes onto themselves. Orientations are plain indexes into
// precomputed tables, so composing 90° turns never accumulates error.
package orient

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/runhole/internal/core/voxel"
)

// Count is the number of distinct axis-aligned orientations.
const Count = 24

// Orientation is one of the 24 cube orientations. The zero value is Identity.
type Orientation uint8

const Identity Orientation = 0

// Turn is a single 90° generator rotation.
type Turn uint8

const (
	// RollCW is +90° about Z.
	RollCW Turn = iota
	// RollCCW is -90° about Z.
	RollCCW
	// YawLeft is +90° about Y.
	YawLeft
	// YawRight is -90° about Y.
	YawRight
	// PitchDown is +90° about X.
	PitchDown
	// PitchUp is -90° about X.
	PitchUp

	turnCount
)

var turnNames = [turnCount]string{"roll_cw", "roll_ccw", "yaw_left", "yaw_right", "pitch_down", "pitch_up"}

func (t Turn) String() string {
	if t >= turnCount {
		return fmt.Sprintf("turn(%d)", t)
	}
	return turnNames[t]
}

func (t Turn) Valid() bool { return t < turnCount }

// Turns lists every generator turn.
func Turns() []Turn {
	return []Turn{RollCW, RollCCW, YawLeft, YawRight, PitchDown, PitchUp}
}

// Inverse returns the turn that undoes t.
func (t Turn) Inverse() Turn {
	return t ^ 1
}

type matrix [3][3]int

func (m matrix) mul(o matrix) matrix {
	var r matrix
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				r[i][j] += m[i][k] * o[k][j]
			}
		}
	}
	return r
}

var (
	matrices [Count]matrix
	quats    [Count]mgl64.Quat
	product  [Count][Count]Orientation
	byTurn   [turnCount]Orientation
)

func turnMatrix(t Turn) (matrix, mgl64.Vec3, float64) {
	switch t {
	case RollCW:
		return matrix{{0, -1, 0}, {1, 0, 0}, {0, 0, 1}}, mgl64.Vec3{0, 0, 1}, math.Pi / 2
	case RollCCW:
		return matrix{{0, 1, 0}, {-1, 0, 0}, {0, 0, 1}}, mgl64.Vec3{0, 0, 1}, -math.Pi / 2
	case YawLeft:
		return matrix{{0, 0, 1}, {0, 1, 0}, {-1, 0, 0}}, mgl64.Vec3{0, 1, 0}, math.Pi / 2
	case YawRight:
		return matrix{{0, 0, -1}, {0, 1, 0}, {1, 0, 0}}, mgl64.Vec3{0, 1, 0}, -math.Pi / 2
	case PitchDown:
		return matrix{{1, 0, 0}, {0, 0, -1}, {0, 1, 0}}, mgl64.Vec3{1, 0, 0}, math.Pi / 2
	default:
		return matrix{{1, 0, 0}, {0, 0, 1}, {0, -1, 0}}, mgl64.Vec3{1, 0, 0}, -math.Pi / 2
	}
}

// init walks the rotation group breadth-first from identity using the
// generator turns, then fills the product table.
func init() {
	index := make(map[matrix]Orientation, Count)

	matrices[0] = matrix{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	quats[0] = mgl64.QuatIdent()
	index[matrices[0]] = 0

	next := Orientation(1)
	queue := []Orientation{0}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, t := range Turns() {
			tm, axis, angle := turnMatrix(t)
			m := tm.mul(matrices[cur])
			if _, seen := index[m]; seen {
				continue
			}
			matrices[next] = m
			quats[next] = mgl64.QuatRotate(angle, axis).Mul(quats[cur]).Normalize()
			index[m] = next
			queue = append(queue, next)
			next++
		}
	}
	if next != Count {
		panic(fmt.Sprintf("orient: generated %d orientations, want %d", next, Count))
	}

	for a := 0; a < Count; a++ {
		for b := 0; b < Count; b++ {
			product[a][b] = index[matrices[a].mul(matrices[b])]
		}
	}
	for _, t := range Turns() {
		tm, _, _ := turnMatrix(t)
		byTurn[t] = index[tm]
	}
}

// All lists the 24 orientations in table order.
func All() []Orientation {
	out := make([]Orientation, Count)
	for i := range out {
		out[i] = Orientation(i)
	}
	return out
}

func (o Orientation) Valid() bool { return o < Count }

func (o Orientation) String() string { return fmt.Sprintf("orientation(%d)", uint8(o)) }

// Of returns the orientation a single turn produces from Identity.
func Of(t Turn) Orientation { return byTurn[t] }

// Compose applies cur first and then turn.
func Compose(turn Turn, cur Orientation) Orientation {
	return product[byTurn[turn]][cur]
}

// Then returns the orientation equivalent to applying o first and then next.
func (o Orientation) Then(next Orientation) Orientation {
	return product[next][o]
}

// Apply rotates a body-local offset.
func (o Orientation) Apply(v voxel.Cell) voxel.Cell {
	m := matrices[o]
	return voxel.Cell{
		X: m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		Y: m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		Z: m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

// Matrix returns the exact row-major rotation matrix.
func (o Orientation) Matrix() [3][3]int { return matrices[o] }

// Quat is the render rotation for a proxy. Simulation code never reads it.
func (o Orientation) Quat() mgl64.Quat { return quats[o] }
