package body

import (
	"fmt"
	"strings"

	"github.com/zeusync/runhole/internal/core/voxel"
)

// MaskSize is the edge length of the occupancy cube.
const MaskSize = 3

const maskCells = MaskSize * MaskSize * MaskSize

// Mask is an immutable 3x3x3 occupancy grid. Local offsets run from -1 to 1
// on each axis with the centre cell at the origin.
type Mask struct {
	bits    uint32
	offsets []voxel.Cell
}

func maskIndex(x, y, z int) int { return x + MaskSize*y + MaskSize*MaskSize*z }

func newMaskFromBits(bits uint32) (Mask, error) {
	if bits == 0 {
		return Mask{}, ErrEmptyMask
	}
	m := Mask{bits: bits}
	for z := 0; z < MaskSize; z++ {
		for y := 0; y < MaskSize; y++ {
			for x := 0; x < MaskSize; x++ {
				if bits&(1<<maskIndex(x, y, z)) != 0 {
					m.offsets = append(m.offsets, voxel.Cell{X: x - 1, Y: y - 1, Z: z - 1})
				}
			}
		}
	}
	return m, nil
}

// NewMask builds a mask from a [x][y][z] array.
func NewMask(cells [MaskSize][MaskSize][MaskSize]bool) (Mask, error) {
	var bits uint32
	for x := 0; x < MaskSize; x++ {
		for y := 0; y < MaskSize; y++ {
			for z := 0; z < MaskSize; z++ {
				if cells[x][y][z] {
					bits |= 1 << maskIndex(x, y, z)
				}
			}
		}
	}
	return newMaskFromBits(bits)
}

// MaskFromSlices is NewMask for dynamically shaped input, indexed [x][y][z].
func MaskFromSlices(cells [][][]bool) (Mask, error) {
	if len(cells) != MaskSize {
		return Mask{}, fmt.Errorf("%w: got %d planes", ErrInvalidMask, len(cells))
	}
	var fixed [MaskSize][MaskSize][MaskSize]bool
	for x, plane := range cells {
		if len(plane) != MaskSize {
			return Mask{}, fmt.Errorf("%w: plane %d has %d rows", ErrInvalidMask, x, len(plane))
		}
		for y, row := range plane {
			if len(row) != MaskSize {
				return Mask{}, fmt.Errorf("%w: row %d/%d has %d cells", ErrInvalidMask, x, y, len(row))
			}
			copy(fixed[x][y][:], row)
		}
	}
	return NewMask(fixed)
}

// ParseMask reads the 27 character 0/1 pattern where character i describes
// local cell x + 3y + 9z. Whitespace is ignored.
func ParseMask(pattern string) (Mask, error) {
	pattern = strings.Join(strings.Fields(pattern), "")
	if len(pattern) != maskCells {
		return Mask{}, fmt.Errorf("%w: pattern has %d cells", ErrInvalidMask, len(pattern))
	}
	var bits uint32
	for i, r := range pattern {
		switch r {
		case '1':
			bits |= 1 << i
		case '0':
		default:
			return Mask{}, fmt.Errorf("%w: unexpected %q at %d", ErrInvalidMask, r, i)
		}
	}
	return newMaskFromBits(bits)
}

// MustParseMask panics on malformed patterns. Intended for literals.
func MustParseMask(pattern string) Mask {
	m, err := ParseMask(pattern)
	if err != nil {
		panic(err)
	}
	return m
}

// Occupied reports whether the local offset (each component in -1..1) is set.
func (m Mask) Occupied(off voxel.Cell) bool {
	if off.X < -1 || off.X > 1 || off.Y < -1 || off.Y > 1 || off.Z < -1 || off.Z > 1 {
		return false
	}
	return m.bits&(1<<maskIndex(off.X+1, off.Y+1, off.Z+1)) != 0
}

// Offsets lists occupied local offsets in pattern order.
func (m Mask) Offsets() []voxel.Cell {
	out := make([]voxel.Cell, len(m.offsets))
	copy(out, m.offsets)
	return out
}

func (m Mask) Count() int { return len(m.offsets) }

func (m Mask) IsZero() bool { return m.bits == 0 }

// Pattern is the inverse of ParseMask.
func (m Mask) Pattern() string {
	var b strings.Builder
	b.Grow(maskCells)
	for i := 0; i < maskCells; i++ {
		if m.bits&(1<<i) != 0 {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}
