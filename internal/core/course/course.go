// Package course describes levels as YAML and builds them into a voxel
// grid. Walls are either drawn by hand or generated from the player's own
// silhouette so every wall is passable.
package course

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/runhole/internal/core/body"
	"github.com/zeusync/runhole/internal/core/voxel"
)

var (
	ErrInvalidCourse = errors.New("invalid course")
	ErrNoMask        = errors.New("procedural walls need the player mask")
)

// Wall cell symbols.
const (
	SymbolSolid    = '#'
	SymbolEmpty    = '.'
	SymbolPassable = '+'
)

// Course is the YAML description of a level. Rows are drawn top to bottom
// as seen by the player; the leftmost column has the largest X.
type Course struct {
	Name       string          `yaml:"name"`
	Width      int             `yaml:"width"`
	Height     int             `yaml:"height"`
	Floor      bool            `yaml:"floor"`
	Enclosed   bool            `yaml:"enclosed"`
	Walls      []WallSpec      `yaml:"walls"`
	Procedural *ProceduralSpec `yaml:"procedural,omitempty"`
}

// WallSpec is one wall plane at Depth cells ahead of the origin.
type WallSpec struct {
	Depth int      `yaml:"depth"`
	Rows  []string `yaml:"rows"`
}

func Load(r io.Reader) (Course, error) {
	var c Course
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return Course{}, fmt.Errorf("decode course: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Course{}, err
	}
	return c, nil
}

func LoadFile(path string) (Course, error) {
	f, err := os.Open(path)
	if err != nil {
		return Course{}, fmt.Errorf("open course: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Load(f)
}

// Validate checks dimensions and symbols. Width and Height default to the
// size of the first hand-drawn wall.
func (c *Course) Validate() error {
	if c.Width == 0 && c.Height == 0 && len(c.Walls) > 0 && len(c.Walls[0].Rows) > 0 {
		c.Height = len(c.Walls[0].Rows)
		c.Width = len([]rune(c.Walls[0].Rows[0]))
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidCourse, c.Width, c.Height)
	}

	seen := make(map[int]bool, len(c.Walls))
	for i, w := range c.Walls {
		if seen[w.Depth] {
			return fmt.Errorf("%w: wall %d repeats depth %d", ErrInvalidCourse, i, w.Depth)
		}
		seen[w.Depth] = true
		if w.Depth <= 0 {
			return fmt.Errorf("%w: wall %d depth %d must be ahead of the origin", ErrInvalidCourse, i, w.Depth)
		}
		if len(w.Rows) != c.Height {
			return fmt.Errorf("%w: wall %d has %d rows, want %d", ErrInvalidCourse, i, len(w.Rows), c.Height)
		}
		for j, row := range w.Rows {
			runes := []rune(row)
			if len(runes) != c.Width {
				return fmt.Errorf("%w: wall %d row %d has %d cells, want %d", ErrInvalidCourse, i, j, len(runes), c.Width)
			}
			for _, r := range runes {
				if _, err := material(r); err != nil {
					return fmt.Errorf("wall %d row %d: %w", i, j, err)
				}
			}
		}
	}

	if p := c.Procedural; p != nil {
		if p.Count < 0 || (p.Count > 0 && p.Spacing <= 0) || p.FirstDepth < 0 {
			return fmt.Errorf("%w: procedural count %d spacing %d first %d", ErrInvalidCourse, p.Count, p.Spacing, p.FirstDepth)
		}
	}
	return nil
}

func material(r rune) (voxel.Material, error) {
	switch r {
	case SymbolSolid:
		return voxel.Solid, nil
	case SymbolEmpty:
		return voxel.Empty, nil
	case SymbolPassable:
		return voxel.Passable, nil
	default:
		return voxel.Empty, fmt.Errorf("%w: unknown symbol %q", ErrInvalidCourse, r)
	}
}

// Extent is the lateral range of cells a course covers around its origin.
type Extent struct {
	MinX, MaxX int
	MinY, MaxY int
}

func (c Course) extent(origin voxel.Cell) Extent {
	left := origin.X + c.Width/2
	top := origin.Y + c.Height/2
	return Extent{MinX: left - c.Width + 1, MaxX: left, MinY: top - c.Height + 1, MaxY: top}
}

// Built is a course turned into a world.
type Built struct {
	Grid   *voxel.Grid
	Walls  []int
	Length int
	Extent Extent
}

// Build validates the course and writes it into a new grid. origin is the
// cell where the body starts; wall depths are relative to it. mask is only
// needed for procedural walls.
func Build(c Course, origin voxel.Cell, mask body.Mask) (Built, error) {
	if err := c.Validate(); err != nil {
		return Built{}, err
	}

	walls := append([]WallSpec(nil), c.Walls...)
	if p := c.Procedural; p != nil && p.Count > 0 {
		if mask.IsZero() {
			return Built{}, ErrNoMask
		}
		walls = append(walls, Generate(*p, mask, c.Width, c.Height)...)
	}
	sort.Slice(walls, func(i, j int) bool { return walls[i].Depth < walls[j].Depth })
	for i := 1; i < len(walls); i++ {
		if walls[i].Depth == walls[i-1].Depth {
			return Built{}, fmt.Errorf("%w: two walls at depth %d", ErrInvalidCourse, walls[i].Depth)
		}
	}

	ext := c.extent(origin)
	length := 1
	if len(walls) > 0 {
		length = walls[len(walls)-1].Depth + 1
	}

	var opts []voxel.GridOption
	// enclosed courses are walled in laterally and open along the track
	if c.Enclosed {
		opts = append(opts, voxel.WithBounds(voxel.Bounds{
			Min: voxel.Cell{X: ext.MinX, Y: ext.MinY, Z: math.MinInt32},
			Max: voxel.Cell{X: ext.MaxX, Y: ext.MaxY, Z: math.MaxInt32},
		}, voxel.Solid))
	}
	g := voxel.NewGrid(opts...)

	depths := make([]int, 0, len(walls))
	for _, w := range walls {
		z := origin.Z + w.Depth
		depths = append(depths, z)
		for j, row := range w.Rows {
			y := ext.MaxY - j
			for i, r := range []rune(row) {
				m, _ := material(r)
				g.Set(voxel.Cell{X: ext.MaxX - i, Y: y, Z: z}, m)
			}
		}
	}

	if c.Floor {
		g.Fill(voxel.Bounds{
			Min: voxel.Cell{X: ext.MinX, Y: ext.MinY - 1, Z: origin.Z - 1},
			Max: voxel.Cell{X: ext.MaxX, Y: ext.MinY - 1, Z: origin.Z + length},
		}, voxel.Solid)
	}

	return Built{Grid: g, Walls: depths, Length: length, Extent: ext}, nil
}
