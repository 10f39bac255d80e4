package voxel

import "math"

// Material is the host world's answer for a single cell.
type Material uint8

const (
	Empty Material = iota
	// Passable cells are drawn as markers but never stop the body.
	Passable
	Solid
)

// Blocks reports whether a body voxel may not occupy the cell.
func (m Material) Blocks() bool { return m == Solid }

// Open is the complement of Blocks.
func (m Material) Open() bool { return m != Solid }

func (m Material) IsEmpty() bool { return m == Empty }

func (m Material) String() string {
	switch m {
	case Empty:
		return "empty"
	case Passable:
		return "passable"
	case Solid:
		return "solid"
	default:
		return "unknown"
	}
}

// World is the read-only query every collision and detection routine uses.
type World interface {
	Material(x, y, z int) Material
}

// WorldFunc adapts a plain function to World.
type WorldFunc func(x, y, z int) Material

func (f WorldFunc) Material(x, y, z int) Material { return f(x, y, z) }

// Cell is an integer world (or body-local) coordinate.
type Cell struct {
	X, Y, Z int
}

func (c Cell) Add(o Cell) Cell {
	return Cell{X: c.X + o.X, Y: c.Y + o.Y, Z: c.Z + o.Z}
}

func (c Cell) Offset(dx, dy, dz int) Cell {
	return Cell{X: c.X + dx, Y: c.Y + dy, Z: c.Z + dz}
}

// Lateral drops the depth component.
func (c Cell) Lateral() Cell2 { return Cell2{X: c.X, Y: c.Y} }

// Cell2 is a lateral (X, Y) coordinate on a wall plane.
type Cell2 struct {
	X, Y int
}

func (c Cell2) Add(o Cell2) Cell2 { return Cell2{X: c.X + o.X, Y: c.Y + o.Y} }

// At lifts the lateral cell onto the plane at depth z.
func (c Cell2) At(z int) Cell { return Cell{X: c.X, Y: c.Y, Z: z} }

// Floor returns the cell containing a continuous coordinate.
func Floor(v float64) int { return int(math.Floor(v)) }

// At is shorthand for w.Material on a Cell.
func At(w World, c Cell) Material { return w.Material(c.X, c.Y, c.Z) }

// CountWindow counts blocking and open cells in the square window of the
// given radius centred on (cx, cy) at depth z. Passable cells count as open,
// so a pane of them is a hole rather than part of the wall.
func CountWindow(w World, cx, cy, z, radius int) (solid, open int) {
	for dx := -radius; dx <= radius; dx++ {
		for dy := -radius; dy <= radius; dy++ {
			if w.Material(cx+dx, cy+dy, z).Blocks() {
				solid++
			} else {
				open++
			}
		}
	}
	return solid, open
}

// OpenWindow lists the open cells of the square window centred on (cx, cy)
// at depth z, in row-major order from the lowest X.
func OpenWindow(w World, cx, cy, z, radius int) []Cell2 {
	out := make([]Cell2, 0, (2*radius+1)*(2*radius+1))
	for dx := -radius; dx <= radius; dx++ {
		for dy := -radius; dy <= radius; dy++ {
			if w.Material(cx+dx, cy+dy, z).Open() {
				out = append(out, Cell2{X: cx + dx, Y: cy + dy})
			}
		}
	}
	return out
}
